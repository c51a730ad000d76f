// Package policy holds the pure business rules checked before any balance
// moves. Checks run in a fixed order and the first violation wins, so
// callers always see the same error for the same input.
package policy

import (
	"github.com/eaglebank/ledger/shared/errs"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
)

func CheckAmount(amount money.Money) error {
	return money.Positive(amount)
}

func CheckDistinct(fromID, toID string) error {
	if fromID == toID {
		return errs.New(errs.SameAccount, "cannot transfer to the same account")
	}
	return nil
}

// CheckFunds fails when from cannot cover amount.
func CheckFunds(from *models.Account, amount money.Money) error {
	if !from.Balance.Covers(amount) {
		return errs.New(errs.InsufficientFunds, "insufficient funds")
	}
	return nil
}

func CheckOwner(account *models.Account, ownerID string) error {
	if account.OwnerID != ownerID {
		return errs.New(errs.Forbidden, "account does not belong to the caller")
	}
	return nil
}

// ValidateTransfer checks amount, then distinct accounts, then funds.
func ValidateTransfer(from, to *models.Account, amount money.Money) error {
	if err := CheckAmount(amount); err != nil {
		return err
	}
	if err := CheckDistinct(from.ID, to.ID); err != nil {
		return err
	}
	return CheckFunds(from, amount)
}

func ValidateReplenishment(_ *models.Account, amount money.Money) error {
	return CheckAmount(amount)
}

// CheckDeletable rejects accounts that still hold money.
func CheckDeletable(account *models.Account) error {
	if !account.Balance.IsZero() {
		return errs.New(errs.NotEmpty, "balance not zero")
	}
	return nil
}
