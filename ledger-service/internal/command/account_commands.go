package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/eaglebank/ledger/ledger-service/internal/policy"
	"github.com/eaglebank/ledger/ledger-service/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/models"
)

func (s *LedgerCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (*models.Account, error) {
	var account *models.Account
	err := s.inTx(ctx, "create account", func(tx *repository.LedgerTx) error {
		var err error
		account, err = tx.CreateAccount(ctx, cmd.OwnerID, cmd.InitialBalance)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", zap.String("account_id", account.ID), zap.String("owner_id", account.OwnerID))
	s.publish(ctx, events.AccountEventsStream, events.AccountCreated, events.AccountCreatedEvent{
		AccountID: account.ID,
		OwnerID:   account.OwnerID,
		Balance:   account.Balance.String(),
	})
	return account, nil
}

// DeleteAccount removes one of the caller's accounts once it is empty. Its
// replenishments and transfers go with it.
func (s *LedgerCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) error {
	var deleted *repository.DeletedAccount
	err := s.inTx(ctx, "delete account", func(tx *repository.LedgerTx) error {
		account, err := tx.GetAccount(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		if err := policy.CheckOwner(account, cmd.OwnerID); err != nil {
			return err
		}
		if err := policy.CheckDeletable(account); err != nil {
			return err
		}
		deleted, err = tx.DeleteAccount(ctx, account.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("account deleted",
		zap.String("account_id", cmd.AccountID),
		zap.Int("replenishments", len(deleted.ReplenishmentIDs)),
		zap.Int("transfers", len(deleted.TransferIDs)),
	)
	s.records.Evict(ctx, deleted.ReplenishmentIDs, deleted.TransferIDs)
	s.publish(ctx, events.AccountEventsStream, events.AccountDeleted, events.AccountDeletedEvent{
		AccountID: cmd.AccountID,
		OwnerID:   cmd.OwnerID,
	})
	return nil
}

// UpsertCustomer creates or updates the caller's customer profile.
func (s *LedgerCommandService) UpsertCustomer(ctx context.Context, cmd cqrs.UpsertCustomerCommand) (*models.Customer, error) {
	var customer *models.Customer
	err := s.inTx(ctx, "upsert customer", func(tx *repository.LedgerTx) error {
		var err error
		customer, err = tx.UpsertCustomer(ctx, cmd.OwnerID, cmd.FirstName, cmd.LastName, cmd.City)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.CustomerEventsStream, events.CustomerUpdated, events.CustomerUpdatedEvent{
		CustomerID: customer.ID,
		OwnerID:    customer.OwnerID,
	})
	return customer, nil
}

// DeleteCustomer erases everything the caller holds: the profile and every
// account with its history. It is refused while any account holds money.
func (s *LedgerCommandService) DeleteCustomer(ctx context.Context, cmd cqrs.DeleteCustomerCommand) error {
	var removed []*repository.DeletedAccount
	err := s.inTx(ctx, "delete customer", func(tx *repository.LedgerTx) error {
		removed = nil
		accounts, err := tx.ListAccountsByOwner(ctx, cmd.OwnerID)
		if err != nil {
			return err
		}
		for i := range accounts {
			if err := policy.CheckDeletable(&accounts[i]); err != nil {
				return err
			}
		}
		for _, account := range accounts {
			deleted, err := tx.DeleteAccount(ctx, account.ID)
			if err != nil {
				return err
			}
			removed = append(removed, deleted)
		}
		return tx.DeleteCustomer(ctx, cmd.OwnerID)
	})
	if err != nil {
		return err
	}

	accountIDs := make([]string, 0, len(removed))
	for _, deleted := range removed {
		accountIDs = append(accountIDs, deleted.Account.ID)
		s.records.Evict(ctx, deleted.ReplenishmentIDs, deleted.TransferIDs)
	}
	s.logger.Info("customer deleted", zap.String("owner_id", cmd.OwnerID), zap.Int("accounts", len(accountIDs)))
	s.publish(ctx, events.CustomerEventsStream, events.CustomerDeleted, events.CustomerDeletedEvent{
		OwnerID:    cmd.OwnerID,
		AccountIDs: accountIDs,
	})
	return nil
}
