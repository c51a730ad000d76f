package events

import "time"

// Event types
const (
	AccountCreated = "account.created"
	AccountDeleted = "account.deleted"

	CustomerUpdated = "customer.updated"
	CustomerDeleted = "customer.deleted"

	ReplenishmentCreated = "replenishment.created"
	TransferCreated      = "transfer.created"
	BalanceUpdated       = "balance.updated"
)

// Stream names
const (
	AccountEventsStream  = "account.events"
	CustomerEventsStream = "customer.events"
	LedgerEventsStream   = "ledger.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Account events
type AccountCreatedEvent struct {
	AccountID string `json:"accountId"`
	OwnerID   string `json:"ownerId"`
	Balance   string `json:"balance"`
}

type AccountDeletedEvent struct {
	AccountID string `json:"accountId"`
	OwnerID   string `json:"ownerId"`
}

// Customer events
type CustomerUpdatedEvent struct {
	CustomerID string `json:"customerId"`
	OwnerID    string `json:"ownerId"`
}

type CustomerDeletedEvent struct {
	OwnerID    string   `json:"ownerId"`
	AccountIDs []string `json:"accountIds"`
}

// Ledger events. Amounts and balances are decimal strings ("150.00").
type ReplenishmentCreatedEvent struct {
	ReplenishmentID string `json:"replenishmentId"`
	AccountID       string `json:"accountId"`
	OwnerID         string `json:"ownerId"`
	Amount          string `json:"amount"`
}

type TransferCreatedEvent struct {
	TransferID    string `json:"transferId"`
	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`
	OwnerID       string `json:"ownerId"`
	Amount        string `json:"amount"`
}

type BalanceUpdatedEvent struct {
	AccountID  string `json:"accountId"`
	NewBalance string `json:"newBalance"`
	Change     string `json:"change"`
}
