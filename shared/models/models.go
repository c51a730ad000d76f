package models

import (
	"time"

	"github.com/eaglebank/ledger/shared/money"
)

// Customer is the profile bound one-to-one to an owning principal.
type Customer struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"createdTimestamp"`
	UpdatedAt time.Time `json:"updatedTimestamp"`
}

// Account holds a non-negative balance owned by exactly one principal.
// Balance is the only field that changes after creation.
//
// Replenishments lists the ids of deposits into the account, oldest first.
// It is filled in by the read paths only; accounts loaded inside a write
// transaction leave it nil.
type Account struct {
	ID             string      `json:"id"`
	OwnerID        string      `json:"-"`
	Balance        money.Money `json:"balance"`
	Replenishments []string    `json:"replenishments"`
	CreatedAt      time.Time   `json:"createdTimestamp"`
}

// Replenishment records one external deposit into an account.
type Replenishment struct {
	ID        string      `json:"id"`
	AccountID string      `json:"account"`
	Amount    money.Money `json:"amount"`
	CreatedAt time.Time   `json:"createdTimestamp"`
}

// Transfer records one movement between two distinct accounts.
type Transfer struct {
	ID            string      `json:"id"`
	FromAccountID string      `json:"fromAccount"`
	ToAccountID   string      `json:"toAccount"`
	Amount        money.Money `json:"amount"`
	CreatedAt     time.Time   `json:"createdTimestamp"`
}
