package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eaglebank/ledger/shared/errs"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/utils"
)

// queryer is the subset of *sql.DB and *sql.Tx the store needs.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LedgerStore is the durable store of accounts, customers and ledger history.
// It is the source of truth; every balance change goes through AtomicAdjust
// inside a transaction opened by WithinTx.
type LedgerStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewLedgerStore(db *sql.DB, dialect Dialect) *LedgerStore {
	return &LedgerStore{db: db, dialect: dialect, now: time.Now}
}

// LedgerTx is one open store transaction. It must not be used after the function
// passed to WithinTx returns.
type LedgerTx struct {
	q       queryer
	dialect Dialect
	now     func() time.Time
}

// DeletedAccount lists the history records removed together with an account.
type DeletedAccount struct {
	Account          models.Account
	ReplenishmentIDs []string
	TransferIDs      []string
}

// WithinTx runs fn in a single database transaction. The transaction commits
// only if fn returns nil; an error or panic rolls every write back.
func (s *LedgerStore) WithinTx(ctx context.Context, fn func(tx *LedgerTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(s.tx(sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return wrap("commit transaction", err)
	}
	committed = true
	return nil
}

func (s *LedgerStore) tx(q queryer) *LedgerTx {
	return &LedgerTx{q: q, dialect: s.dialect, now: s.now}
}

// ---------- single-statement conveniences ----------

// GetAccount reads an account outside any transaction, together with the ids
// of its replenishments.
func (s *LedgerStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	tx := s.tx(s.db)
	account, err := tx.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, err := tx.ids(ctx, `SELECT id FROM replenishments WHERE account_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	account.Replenishments = append([]string{}, ids...)
	return account, nil
}

// CreateAccount inserts an account in its own transaction.
func (s *LedgerStore) CreateAccount(ctx context.Context, ownerID string, initial money.Money) (*models.Account, error) {
	var account *models.Account
	err := s.WithinTx(ctx, func(tx *LedgerTx) error {
		var err error
		account, err = tx.CreateAccount(ctx, ownerID, initial)
		return err
	})
	return account, err
}

// DeleteAccount removes a zero-balance account in its own transaction.
func (s *LedgerStore) DeleteAccount(ctx context.Context, id string) (*DeletedAccount, error) {
	var deleted *DeletedAccount
	err := s.WithinTx(ctx, func(tx *LedgerTx) error {
		var err error
		deleted, err = tx.DeleteAccount(ctx, id)
		return err
	})
	return deleted, err
}

// AtomicAdjust applies delta in its own transaction.
func (s *LedgerStore) AtomicAdjust(ctx context.Context, id string, delta money.Delta, expectedMin money.Money) (money.Money, error) {
	var balance money.Money
	err := s.WithinTx(ctx, func(tx *LedgerTx) error {
		var err error
		balance, err = tx.AtomicAdjust(ctx, id, delta, expectedMin)
		return err
	})
	return balance, err
}

// AppendReplenishment inserts a replenishment record in its own transaction.
// It does not touch the balance; use WithinTx to pair it with AtomicAdjust.
func (s *LedgerStore) AppendReplenishment(ctx context.Context, accountID string, amount money.Money) (*models.Replenishment, error) {
	var rec *models.Replenishment
	err := s.WithinTx(ctx, func(tx *LedgerTx) error {
		var err error
		rec, err = tx.AppendReplenishment(ctx, accountID, amount)
		return err
	})
	return rec, err
}

// AppendTransfer inserts a transfer record in its own transaction.
// It does not touch balances; use WithinTx to pair it with AtomicAdjust.
func (s *LedgerStore) AppendTransfer(ctx context.Context, fromID, toID string, amount money.Money) (*models.Transfer, error) {
	var rec *models.Transfer
	err := s.WithinTx(ctx, func(tx *LedgerTx) error {
		var err error
		rec, err = tx.AppendTransfer(ctx, fromID, toID, amount)
		return err
	})
	return rec, err
}

// ---------- reads ----------

// ListAccountsByOwner returns the owner's accounts in creation order, each
// with the ids of its replenishments.
func (s *LedgerStore) ListAccountsByOwner(ctx context.Context, ownerID string) ([]models.Account, error) {
	accounts, err := s.tx(s.db).ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT r.account_id, r.id
		FROM replenishments r
		JOIN accounts a ON a.id = r.account_id
		WHERE a.owner_id = ?
		ORDER BY r.seq
	`), ownerID)
	if err != nil {
		return nil, wrap("failed to list replenishment ids", err)
	}
	defer rows.Close()

	byAccount := make(map[string][]string)
	for rows.Next() {
		var accountID, id string
		if err := rows.Scan(&accountID, &id); err != nil {
			return nil, fmt.Errorf("failed to scan replenishment id: %w", err)
		}
		byAccount[accountID] = append(byAccount[accountID], id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("failed to list replenishment ids", err)
	}

	for i := range accounts {
		accounts[i].Replenishments = append([]string{}, byAccount[accounts[i].ID]...)
	}
	return accounts, nil
}

// QueryReplenishments returns replenishments into the owner's accounts in creation order.
func (s *LedgerStore) QueryReplenishments(ctx context.Context, ownerID string) ([]models.Replenishment, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT r.id, r.account_id, r.amount, r.created_at
		FROM replenishments r
		JOIN accounts a ON a.id = r.account_id
		WHERE a.owner_id = ?
		ORDER BY r.seq
	`), ownerID)
	if err != nil {
		return nil, wrap("failed to query replenishments", err)
	}
	defer rows.Close()

	out := []models.Replenishment{}
	for rows.Next() {
		var rec models.Replenishment
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan replenishment: %w", err)
		}
		rec.CreatedAt = fromMillis(createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("failed to query replenishments", err)
	}
	return out, nil
}

// QueryTransfersInvolving returns transfers sent from or received into the
// owner's accounts, each once, in creation order.
func (s *LedgerStore) QueryTransfersInvolving(ctx context.Context, ownerID string) ([]models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT t.id, t.from_account_id, t.to_account_id, t.amount, t.created_at
		FROM transfers t
		WHERE t.from_account_id IN (SELECT id FROM accounts WHERE owner_id = ?)
		   OR t.to_account_id IN (SELECT id FROM accounts WHERE owner_id = ?)
		ORDER BY t.seq
	`), ownerID, ownerID)
	if err != nil {
		return nil, wrap("failed to query transfers", err)
	}
	defer rows.Close()

	out := []models.Transfer{}
	for rows.Next() {
		var rec models.Transfer
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.FromAccountID, &rec.ToAccountID, &rec.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		rec.CreatedAt = fromMillis(createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("failed to query transfers", err)
	}
	return out, nil
}

// GetReplenishmentView returns a replenishment together with its account owner.
func (s *LedgerStore) GetReplenishmentView(ctx context.Context, id string) (*models.ReplenishmentView, error) {
	var view models.ReplenishmentView
	var createdAt int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT r.id, r.account_id, a.owner_id, r.amount, r.created_at
		FROM replenishments r
		JOIN accounts a ON a.id = r.account_id
		WHERE r.id = ?
	`), id).Scan(&view.ID, &view.AccountID, &view.OwnerID, &view.Amount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "replenishment not found")
	}
	if err != nil {
		return nil, wrap("failed to get replenishment", err)
	}
	view.CreatedAt = fromMillis(createdAt)
	return &view, nil
}

// GetTransferView returns a transfer together with both account owners.
func (s *LedgerStore) GetTransferView(ctx context.Context, id string) (*models.TransferView, error) {
	var view models.TransferView
	var createdAt int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT t.id, t.from_account_id, t.to_account_id, f.owner_id, d.owner_id, t.amount, t.created_at
		FROM transfers t
		JOIN accounts f ON f.id = t.from_account_id
		JOIN accounts d ON d.id = t.to_account_id
		WHERE t.id = ?
	`), id).Scan(&view.ID, &view.FromAccountID, &view.ToAccountID, &view.FromOwnerID, &view.ToOwnerID, &view.Amount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "transfer not found")
	}
	if err != nil {
		return nil, wrap("failed to get transfer", err)
	}
	view.CreatedAt = fromMillis(createdAt)
	return &view, nil
}

// GetCustomer returns the owner's customer profile.
// HasReplenishment reports whether the replenishment row still exists.
func (s *LedgerStore) HasReplenishment(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM replenishments WHERE id = ?`, id)
}

// HasTransfer reports whether the transfer row still exists.
func (s *LedgerStore) HasTransfer(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM transfers WHERE id = ?`, id)
}

func (s *LedgerStore) exists(ctx context.Context, query, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap("failed to check record", err)
	}
	return true, nil
}

func (s *LedgerStore) GetCustomer(ctx context.Context, ownerID string) (*models.Customer, error) {
	return s.tx(s.db).GetCustomer(ctx, ownerID)
}

// ---------- transactional operations ----------

const accountColumns = `id, owner_id, balance, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var account models.Account
	var createdAt int64
	if err := row.Scan(&account.ID, &account.OwnerID, &account.Balance, &createdAt); err != nil {
		return nil, err
	}
	account.CreatedAt = fromMillis(createdAt)
	return &account, nil
}

func (t *LedgerTx) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := scanAccount(t.q.QueryRowContext(ctx, t.dialect.rebind(
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "account not found")
	}
	if err != nil {
		return nil, wrap("failed to get account", err)
	}
	return account, nil
}

func (t *LedgerTx) ListAccountsByOwner(ctx context.Context, ownerID string) ([]models.Account, error) {
	rows, err := t.q.QueryContext(ctx, t.dialect.rebind(
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY seq`), ownerID)
	if err != nil {
		return nil, wrap("failed to list accounts", err)
	}
	defer rows.Close()

	out := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("failed to list accounts", err)
	}
	return out, nil
}

// LockAccounts takes row locks on ids in a fixed order so two transfers in
// opposite directions cannot deadlock. SQLite transactions already hold the
// database write lock, so this is a no-op there.
func (t *LedgerTx) LockAccounts(ctx context.Context, ids ...string) error {
	if t.dialect != Postgres || len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := t.q.QueryContext(ctx, t.dialect.rebind(
		`SELECT id FROM accounts WHERE id IN (`+placeholders+`) ORDER BY id FOR UPDATE`), args...)
	if err != nil {
		return wrap("failed to lock accounts", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	return wrap("failed to lock accounts", rows.Err())
}

// AtomicAdjust adds delta to the account balance with a single conditional
// update that commits only if the result stays within [expectedMin,
// money.MaxMinor]. The database re-evaluates the condition against the
// latest committed balance, so concurrent adjustments never lose updates.
// A rejected adjustment changes nothing.
func (t *LedgerTx) AtomicAdjust(ctx context.Context, id string, delta money.Delta, expectedMin money.Money) (money.Money, error) {
	var balance money.Money
	err := t.q.QueryRowContext(ctx, t.dialect.rebind(`
		UPDATE accounts
		SET balance = balance + ?
		WHERE id = ? AND balance + ? >= ? AND balance + ? <= ?
		RETURNING balance
	`), int64(delta), id, int64(delta), expectedMin.Minor(), int64(delta), money.MaxMinor).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return money.Money{}, wrap("failed to adjust balance", err)
	}

	// Nothing matched: find out why.
	account, err := t.GetAccount(ctx, id)
	if err != nil {
		return money.Money{}, err
	}
	next, err := money.Apply(account.Balance, delta)
	if err != nil {
		return money.Money{}, err
	}
	if next.LessThan(expectedMin) {
		return money.Money{}, errs.Newf(errs.InsufficientFunds, "balance %s would fall below %s", next, expectedMin)
	}
	return money.Money{}, wrap("failed to adjust balance", ErrConflict)
}

func (t *LedgerTx) CreateAccount(ctx context.Context, ownerID string, initial money.Money) (*models.Account, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, errs.New(errs.Forbidden, "owner is required")
	}
	account := &models.Account{
		ID:             utils.GenerateID(utils.AccountPrefix),
		OwnerID:        ownerID,
		Balance:        initial,
		Replenishments: []string{},
		CreatedAt:      fromMillis(toMillis(t.now())),
	}
	_, err := t.q.ExecContext(ctx, t.dialect.rebind(`
		INSERT INTO accounts (id, owner_id, balance, created_at)
		VALUES (?, ?, ?, ?)
	`), account.ID, account.OwnerID, account.Balance.Minor(), toMillis(account.CreatedAt))
	if err != nil {
		return nil, wrap("failed to create account", err)
	}
	return account, nil
}

// DeleteAccount removes an account whose balance is zero, together with its
// history. Accounts holding money are rejected with NotEmpty.
func (t *LedgerTx) DeleteAccount(ctx context.Context, id string) (*DeletedAccount, error) {
	account, err := t.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if !account.Balance.IsZero() {
		return nil, errs.New(errs.NotEmpty, "balance not zero")
	}

	deleted := &DeletedAccount{Account: *account}
	if deleted.ReplenishmentIDs, err = t.ids(ctx, `SELECT id FROM replenishments WHERE account_id = ? ORDER BY seq`, id); err != nil {
		return nil, err
	}
	if deleted.TransferIDs, err = t.ids(ctx, `SELECT id FROM transfers WHERE from_account_id = ? OR to_account_id = ? ORDER BY seq`, id, id); err != nil {
		return nil, err
	}

	res, err := t.q.ExecContext(ctx, t.dialect.rebind(`DELETE FROM accounts WHERE id = ? AND balance = 0`), id)
	if err != nil {
		return nil, wrap("failed to delete account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		// Credited between the read and the delete.
		return nil, errs.New(errs.NotEmpty, "balance not zero")
	}
	return deleted, nil
}

func (t *LedgerTx) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := t.q.QueryContext(ctx, t.dialect.rebind(query), args...)
	if err != nil {
		return nil, wrap("failed to list record ids", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan record id: %w", err)
		}
		out = append(out, id)
	}
	return out, wrap("failed to list record ids", rows.Err())
}

// AppendReplenishment writes the immutable history row for a replenishment.
func (t *LedgerTx) AppendReplenishment(ctx context.Context, accountID string, amount money.Money) (*models.Replenishment, error) {
	if err := money.Positive(amount); err != nil {
		return nil, err
	}
	rec := &models.Replenishment{
		ID:        utils.GenerateID(utils.ReplenishmentPrefix),
		AccountID: accountID,
		Amount:    amount,
		CreatedAt: fromMillis(toMillis(t.now())),
	}
	_, err := t.q.ExecContext(ctx, t.dialect.rebind(`
		INSERT INTO replenishments (id, account_id, amount, created_at)
		VALUES (?, ?, ?, ?)
	`), rec.ID, rec.AccountID, rec.Amount.Minor(), toMillis(rec.CreatedAt))
	if isForeignKeyViolation(err) {
		return nil, errs.New(errs.NotFound, "account not found")
	}
	if err != nil {
		return nil, wrap("failed to append replenishment", err)
	}
	return rec, nil
}

// AppendTransfer writes the immutable history row for a transfer.
func (t *LedgerTx) AppendTransfer(ctx context.Context, fromID, toID string, amount money.Money) (*models.Transfer, error) {
	if err := money.Positive(amount); err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, errs.New(errs.SameAccount, "cannot transfer to the same account")
	}
	rec := &models.Transfer{
		ID:            utils.GenerateID(utils.TransferPrefix),
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		CreatedAt:     fromMillis(toMillis(t.now())),
	}
	_, err := t.q.ExecContext(ctx, t.dialect.rebind(`
		INSERT INTO transfers (id, from_account_id, to_account_id, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), rec.ID, rec.FromAccountID, rec.ToAccountID, rec.Amount.Minor(), toMillis(rec.CreatedAt))
	if isForeignKeyViolation(err) {
		return nil, errs.New(errs.NotFound, "account not found")
	}
	if err != nil {
		return nil, wrap("failed to append transfer", err)
	}
	return rec, nil
}

func (t *LedgerTx) GetCustomer(ctx context.Context, ownerID string) (*models.Customer, error) {
	var c models.Customer
	var createdAt, updatedAt int64
	err := t.q.QueryRowContext(ctx, t.dialect.rebind(`
		SELECT id, owner_id, first_name, last_name, city, created_at, updated_at
		FROM customers
		WHERE owner_id = ?
	`), ownerID).Scan(&c.ID, &c.OwnerID, &c.FirstName, &c.LastName, &c.City, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "customer not found")
	}
	if err != nil {
		return nil, wrap("failed to get customer", err)
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}

// UpsertCustomer creates the owner's profile or replaces its mutable fields.
func (t *LedgerTx) UpsertCustomer(ctx context.Context, ownerID, firstName, lastName, city string) (*models.Customer, error) {
	now := toMillis(t.now())
	_, err := t.q.ExecContext(ctx, t.dialect.rebind(`
		INSERT INTO customers (id, owner_id, first_name, last_name, city, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE
		SET first_name = excluded.first_name,
		    last_name = excluded.last_name,
		    city = excluded.city,
		    updated_at = excluded.updated_at
	`), utils.GenerateID(utils.CustomerPrefix), ownerID, firstName, lastName, city, now, now)
	if err != nil {
		return nil, wrap("failed to upsert customer", err)
	}
	return t.GetCustomer(ctx, ownerID)
}

// DeleteCustomer removes the owner's profile. Missing profiles are not an error.
func (t *LedgerTx) DeleteCustomer(ctx context.Context, ownerID string) error {
	_, err := t.q.ExecContext(ctx, t.dialect.rebind(`DELETE FROM customers WHERE owner_id = ?`), ownerID)
	return wrap("failed to delete customer", err)
}
