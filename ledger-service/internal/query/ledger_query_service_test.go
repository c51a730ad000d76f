package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eaglebank/ledger/ledger-service/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/errs"
	"github.com/eaglebank/ledger/shared/money"
)

type fixture struct {
	store   *repository.LedgerStore
	service *LedgerQueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.Setup(context.Background(), repository.SQLite, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := repository.NewLedgerStore(db, repository.SQLite)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	records := repository.NewRecordReadRepository(store, client, 0, zap.NewNop())
	return &fixture{store: store, service: NewLedgerQueryService(store, records)}
}

func (f *fixture) account(t *testing.T, owner, balance string) string {
	t.Helper()
	account, err := f.store.CreateAccount(context.Background(), owner, money.MustParse(balance))
	require.NoError(t, err)
	return account.ID
}

func TestAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "usr-1", "10.00")
	f.account(t, "usr-2", "0")

	accounts, err := f.service.ListAccounts(ctx, cqrs.ListAccountsQuery{OwnerID: "usr-1"})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, a, accounts[0].ID)

	accounts, err = f.service.ListAccounts(ctx, cqrs.ListAccountsQuery{OwnerID: "usr-3"})
	require.NoError(t, err)
	assert.NotNil(t, accounts)
	assert.Empty(t, accounts)

	account, err := f.service.GetAccount(ctx, cqrs.GetAccountQuery{AccountID: a, OwnerID: "usr-1"})
	require.NoError(t, err)
	assert.Equal(t, "10.00", account.Balance.String())

	_, err = f.service.GetAccount(ctx, cqrs.GetAccountQuery{AccountID: a, OwnerID: "usr-2"})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.service.GetAccount(ctx, cqrs.GetAccountQuery{AccountID: "acc-missing", OwnerID: "usr-1"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReplenishments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "usr-1", "0")
	rpl, err := f.store.AppendReplenishment(ctx, a, money.MustParse("7.00"))
	require.NoError(t, err)

	list, err := f.service.ListReplenishments(ctx, cqrs.ListReplenishmentsQuery{OwnerID: "usr-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rpl.ID, list[0].ID)

	got, err := f.service.GetReplenishment(ctx, cqrs.GetReplenishmentQuery{ReplenishmentID: rpl.ID, OwnerID: "usr-1"})
	require.NoError(t, err)
	assert.Equal(t, "7.00", got.Amount.String())
	assert.Equal(t, a, got.AccountID)

	// served from the cache the second time
	again, err := f.service.GetReplenishment(ctx, cqrs.GetReplenishmentQuery{ReplenishmentID: rpl.ID, OwnerID: "usr-1"})
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = f.service.GetReplenishment(ctx, cqrs.GetReplenishmentQuery{ReplenishmentID: rpl.ID, OwnerID: "usr-2"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTransfers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "usr-1", "0")
	b := f.account(t, "usr-2", "0")
	c := f.account(t, "usr-3", "0")

	out, err := f.store.AppendTransfer(ctx, a, b, money.MustParse("1.00"))
	require.NoError(t, err)
	in, err := f.store.AppendTransfer(ctx, c, a, money.MustParse("2.00"))
	require.NoError(t, err)

	list, err := f.service.ListTransfers(ctx, cqrs.ListTransfersQuery{OwnerID: "usr-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, out.ID, list[0].ID)
	assert.Equal(t, in.ID, list[1].ID)

	got, err := f.service.GetTransfer(ctx, cqrs.GetTransferQuery{TransferID: out.ID, OwnerID: "usr-2"})
	require.NoError(t, err)
	assert.Equal(t, a, got.FromAccountID)

	_, err = f.service.GetTransfer(ctx, cqrs.GetTransferQuery{TransferID: out.ID, OwnerID: "usr-3"})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.service.GetTransfer(ctx, cqrs.GetTransferQuery{TransferID: "trf-missing", OwnerID: "usr-1"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReadsAreIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "usr-1", "3.00")
	_, err := f.store.AppendReplenishment(ctx, a, money.MustParse("3.00"))
	require.NoError(t, err)

	first, err := f.service.ListReplenishments(ctx, cqrs.ListReplenishmentsQuery{OwnerID: "usr-1"})
	require.NoError(t, err)
	second, err := f.service.ListReplenishments(ctx, cqrs.ListReplenishmentsQuery{OwnerID: "usr-1"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	before, err := f.service.GetAccount(ctx, cqrs.GetAccountQuery{AccountID: a, OwnerID: "usr-1"})
	require.NoError(t, err)
	after, err := f.service.GetAccount(ctx, cqrs.GetAccountQuery{AccountID: a, OwnerID: "usr-1"})
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGetCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.GetCustomer(ctx, cqrs.GetCustomerQuery{OwnerID: "usr-1"})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, f.store.WithinTx(ctx, func(tx *repository.LedgerTx) error {
		_, err := tx.UpsertCustomer(ctx, "usr-1", "Grace", "Hopper", "Arlington")
		return err
	}))
	customer, err := f.service.GetCustomer(ctx, cqrs.GetCustomerQuery{OwnerID: "usr-1"})
	require.NoError(t, err)
	assert.Equal(t, "Hopper", customer.LastName)
}
