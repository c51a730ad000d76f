package cqrs

import "github.com/eaglebank/ledger/shared/money"

type UpsertCustomerCommand struct {
	OwnerID   string
	FirstName string
	LastName  string
	City      string
}

type DeleteCustomerCommand struct {
	OwnerID string
}

type CreateAccountCommand struct {
	OwnerID        string
	InitialBalance money.Money
}

type DeleteAccountCommand struct {
	AccountID string
	OwnerID   string
}

type ReplenishCommand struct {
	AccountID string
	OwnerID   string
	Amount    money.Money
}

type TransferCommand struct {
	FromAccountID string
	ToAccountID   string
	OwnerID       string
	Amount        money.Money
}
