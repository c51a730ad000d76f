package query

import (
	"context"

	"github.com/eaglebank/ledger/ledger-service/internal/policy"
	"github.com/eaglebank/ledger/ledger-service/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/errs"
	"github.com/eaglebank/ledger/shared/models"
)

// LedgerQueryService serves reads scoped to the calling owner. Reads never
// mutate anything, so repeating one returns the same result until a command
// commits.
type LedgerQueryService struct {
	store   *repository.LedgerStore
	records *repository.RecordReadRepository
}

func NewLedgerQueryService(store *repository.LedgerStore, records *repository.RecordReadRepository) *LedgerQueryService {
	return &LedgerQueryService{store: store, records: records}
}

func (s *LedgerQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.Account, error) {
	return s.store.ListAccountsByOwner(ctx, q.OwnerID)
}

// GetAccount fetches a single account and enforces ownership.
func (s *LedgerQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	if err := policy.CheckOwner(account, q.OwnerID); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *LedgerQueryService) ListReplenishments(ctx context.Context, q cqrs.ListReplenishmentsQuery) ([]models.Replenishment, error) {
	return s.store.QueryReplenishments(ctx, q.OwnerID)
}

// GetReplenishment returns a replenishment into one of the caller's accounts.
// Records belonging to other owners are reported as missing.
func (s *LedgerQueryService) GetReplenishment(ctx context.Context, q cqrs.GetReplenishmentQuery) (*models.Replenishment, error) {
	view, err := s.records.GetReplenishment(ctx, q.ReplenishmentID)
	if err != nil {
		return nil, err
	}
	if view.OwnerID != q.OwnerID {
		return nil, errs.New(errs.NotFound, "replenishment not found")
	}
	rec := view.Replenishment()
	return &rec, nil
}

// ListTransfers returns transfers sent or received by the caller's accounts.
func (s *LedgerQueryService) ListTransfers(ctx context.Context, q cqrs.ListTransfersQuery) ([]models.Transfer, error) {
	return s.store.QueryTransfersInvolving(ctx, q.OwnerID)
}

func (s *LedgerQueryService) GetTransfer(ctx context.Context, q cqrs.GetTransferQuery) (*models.Transfer, error) {
	view, err := s.records.GetTransfer(ctx, q.TransferID)
	if err != nil {
		return nil, err
	}
	if !view.Involves(q.OwnerID) {
		return nil, errs.New(errs.NotFound, "transfer not found")
	}
	rec := view.Transfer()
	return &rec, nil
}

func (s *LedgerQueryService) GetCustomer(ctx context.Context, q cqrs.GetCustomerQuery) (*models.Customer, error) {
	return s.store.GetCustomer(ctx, q.OwnerID)
}
