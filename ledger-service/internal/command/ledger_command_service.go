package command

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/eaglebank/ledger/ledger-service/internal/policy"
	"github.com/eaglebank/ledger/ledger-service/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/errs"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/logging"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
)

// RetryConfig bounds how often a unit of work is re-run after the database
// aborts it because of a concurrent writer.
type RetryConfig struct {
	MaxAttempts uint
	BaseDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 5, BaseDelay: 20 * time.Millisecond}
}

// LedgerCommandService owns every write to the ledger. Each command runs as
// one store transaction; balances and history either all change or none do.
// Cache warming and event publishing happen after commit and never fail a
// command.
type LedgerCommandService struct {
	store     *repository.LedgerStore
	records   *repository.RecordReadRepository
	publisher *events.Publisher
	logger    *zap.Logger
	retry     RetryConfig
}

func NewLedgerCommandService(
	store *repository.LedgerStore,
	records *repository.RecordReadRepository,
	publisher *events.Publisher,
	logger *zap.Logger,
	retry RetryConfig,
) *LedgerCommandService {
	if retry.MaxAttempts == 0 {
		retry.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	return &LedgerCommandService{
		store:     store,
		records:   records,
		publisher: publisher,
		logger:    logging.OrNop(logger),
		retry:     retry,
	}
}

// ReplenishResult is a committed replenishment and the account it credited.
type ReplenishResult struct {
	Replenishment *models.Replenishment
	Account       *models.Account
}

// TransferResult is a committed transfer and both accounts after it.
type TransferResult struct {
	Transfer *models.Transfer
	From     *models.Account
	To       *models.Account
}

// Replenish credits one of the caller's accounts with money from outside the
// ledger and records the deposit.
func (s *LedgerCommandService) Replenish(ctx context.Context, cmd cqrs.ReplenishCommand) (*ReplenishResult, error) {
	if err := policy.CheckAmount(cmd.Amount); err != nil {
		return nil, err
	}

	var res ReplenishResult
	err := s.inTx(ctx, "replenish", func(tx *repository.LedgerTx) error {
		account, err := tx.GetAccount(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		if err := policy.CheckOwner(account, cmd.OwnerID); err != nil {
			return err
		}
		if err := policy.ValidateReplenishment(account, cmd.Amount); err != nil {
			return err
		}
		balance, err := tx.AtomicAdjust(ctx, account.ID, cmd.Amount.Credit(), money.Zero)
		if err != nil {
			return err
		}
		account.Balance = balance
		rec, err := tx.AppendReplenishment(ctx, account.ID, cmd.Amount)
		if err != nil {
			return err
		}
		res = ReplenishResult{Replenishment: rec, Account: account}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("replenishment committed",
		zap.String("replenishment_id", res.Replenishment.ID),
		zap.String("account_id", res.Account.ID),
		zap.String("amount", cmd.Amount.String()),
	)
	s.records.CacheReplenishment(ctx, &models.ReplenishmentView{
		ID:        res.Replenishment.ID,
		AccountID: res.Replenishment.AccountID,
		OwnerID:   res.Account.OwnerID,
		Amount:    res.Replenishment.Amount,
		CreatedAt: res.Replenishment.CreatedAt,
	})
	s.publish(ctx, events.LedgerEventsStream, events.ReplenishmentCreated, events.ReplenishmentCreatedEvent{
		ReplenishmentID: res.Replenishment.ID,
		AccountID:       res.Account.ID,
		OwnerID:         cmd.OwnerID,
		Amount:          cmd.Amount.String(),
	})
	s.publishBalance(ctx, res.Account, cmd.Amount.Credit())
	return &res, nil
}

// Transfer moves amount from one of the caller's accounts to any existing
// account. The debit, the credit and the transfer record commit together.
func (s *LedgerCommandService) Transfer(ctx context.Context, cmd cqrs.TransferCommand) (*TransferResult, error) {
	if err := policy.CheckAmount(cmd.Amount); err != nil {
		return nil, err
	}
	if err := policy.CheckDistinct(cmd.FromAccountID, cmd.ToAccountID); err != nil {
		return nil, err
	}

	var res TransferResult
	err := s.inTx(ctx, "transfer", func(tx *repository.LedgerTx) error {
		from, err := tx.GetAccount(ctx, cmd.FromAccountID)
		if err != nil {
			return err
		}
		if err := policy.CheckOwner(from, cmd.OwnerID); err != nil {
			return err
		}
		to, err := tx.GetAccount(ctx, cmd.ToAccountID)
		if err != nil {
			return err
		}
		// Fast fail on the snapshot; AtomicAdjust is what actually guards the balance.
		if err := policy.ValidateTransfer(from, to, cmd.Amount); err != nil {
			return err
		}
		if err := tx.LockAccounts(ctx, from.ID, to.ID); err != nil {
			return err
		}

		if from.Balance, err = tx.AtomicAdjust(ctx, from.ID, cmd.Amount.Debit(), money.Zero); err != nil {
			return err
		}
		if to.Balance, err = tx.AtomicAdjust(ctx, to.ID, cmd.Amount.Credit(), money.Zero); err != nil {
			return err
		}
		rec, err := tx.AppendTransfer(ctx, from.ID, to.ID, cmd.Amount)
		if err != nil {
			return err
		}
		res = TransferResult{Transfer: rec, From: from, To: to}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer committed",
		zap.String("transfer_id", res.Transfer.ID),
		zap.String("from_account_id", res.From.ID),
		zap.String("to_account_id", res.To.ID),
		zap.String("amount", cmd.Amount.String()),
	)
	s.records.CacheTransfer(ctx, &models.TransferView{
		ID:            res.Transfer.ID,
		FromAccountID: res.From.ID,
		ToAccountID:   res.To.ID,
		FromOwnerID:   res.From.OwnerID,
		ToOwnerID:     res.To.OwnerID,
		Amount:        res.Transfer.Amount,
		CreatedAt:     res.Transfer.CreatedAt,
	})
	s.publish(ctx, events.LedgerEventsStream, events.TransferCreated, events.TransferCreatedEvent{
		TransferID:    res.Transfer.ID,
		FromAccountID: res.From.ID,
		ToAccountID:   res.To.ID,
		OwnerID:       cmd.OwnerID,
		Amount:        cmd.Amount.String(),
	})
	s.publishBalance(ctx, res.From, cmd.Amount.Debit())
	s.publishBalance(ctx, res.To, cmd.Amount.Credit())
	return &res, nil
}

// inTx runs fn in a store transaction, re-running it with exponential backoff
// while the database reports a conflict. Business errors are returned as is.
func (s *LedgerCommandService) inTx(ctx context.Context, op string, fn func(tx *repository.LedgerTx) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.BaseDelay
	b.MaxInterval = 50 * s.retry.BaseDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.store.WithinTx(ctx, fn)
		if err == nil || errors.Is(err, repository.ErrConflict) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.retry.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Debug("retrying after conflict", zap.String("op", op), zap.Duration("backoff", next), zap.Error(err))
		}),
	)
	if errors.Is(err, repository.ErrConflict) {
		s.logger.Warn("giving up after repeated conflicts", zap.String("op", op), zap.Uint("attempts", s.retry.MaxAttempts))
		return errs.Wrap(errs.ConflictRetryExhausted, "too many concurrent updates, try again", err)
	}
	return err
}

func (s *LedgerCommandService) publish(ctx context.Context, stream, eventType string, data any) {
	if err := s.publisher.Publish(ctx, stream, eventType, data); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *LedgerCommandService) publishBalance(ctx context.Context, account *models.Account, change money.Delta) {
	s.publish(ctx, events.LedgerEventsStream, events.BalanceUpdated, events.BalanceUpdatedEvent{
		AccountID:  account.ID,
		NewBalance: account.Balance.String(),
		Change:     change.String(),
	})
}
