package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eaglebank/ledger/shared/errs"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
)

func account(id, owner, balance string) *models.Account {
	return &models.Account{ID: id, OwnerID: owner, Balance: money.MustParse(balance)}
}

func TestValidateTransfer(t *testing.T) {
	a := account("acc-a", "usr-1", "100.00")
	b := account("acc-b", "usr-2", "0")

	tests := []struct {
		name    string
		from    *models.Account
		to      *models.Account
		amount  string
		wantErr error
	}{
		{name: "valid", from: a, to: b, amount: "100.00"},
		{name: "zero amount", from: a, to: b, amount: "0", wantErr: errs.ErrInvalidAmount},
		{name: "same account", from: a, to: a, amount: "1", wantErr: errs.ErrSameAccount},
		{name: "insufficient funds", from: a, to: b, amount: "100.01", wantErr: errs.ErrInsufficientFunds},
		// amount is checked before the account pair, which is checked before the balance.
		{name: "zero amount to same account", from: a, to: a, amount: "0", wantErr: errs.ErrInvalidAmount},
		{name: "same account over balance", from: b, to: b, amount: "5", wantErr: errs.ErrSameAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransfer(tt.from, tt.to, money.MustParse(tt.amount))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateReplenishment(t *testing.T) {
	a := account("acc-a", "usr-1", "0")
	assert.NoError(t, ValidateReplenishment(a, money.MustParse("0.01")))
	assert.ErrorIs(t, ValidateReplenishment(a, money.Zero), errs.ErrInvalidAmount)
}

func TestCheckOwner(t *testing.T) {
	a := account("acc-a", "usr-1", "0")
	assert.NoError(t, CheckOwner(a, "usr-1"))
	assert.ErrorIs(t, CheckOwner(a, "usr-2"), errs.ErrForbidden)
}

func TestCheckDeletable(t *testing.T) {
	assert.NoError(t, CheckDeletable(account("acc-a", "usr-1", "0")))
	err := CheckDeletable(account("acc-a", "usr-1", "0.01"))
	assert.ErrorIs(t, err, errs.ErrNotEmpty)
	assert.Equal(t, "balance not zero", errs.MessageOf(err))
}
