package cqrs

// ---------- Customer queries ----------

// GetCustomerQuery fetches the caller's own customer profile.
type GetCustomerQuery struct {
	OwnerID string
}

// ---------- Account queries ----------

// GetAccountQuery fetches a single account, subject to ownership check.
type GetAccountQuery struct {
	AccountID string
	OwnerID   string
}

// ListAccountsQuery fetches all accounts belonging to an owner.
type ListAccountsQuery struct {
	OwnerID string
}

// ---------- Replenishment queries ----------

// GetReplenishmentQuery fetches a single replenishment into one of the owner's accounts.
type GetReplenishmentQuery struct {
	ReplenishmentID string
	OwnerID         string
}

// ListReplenishmentsQuery fetches all replenishments into the owner's accounts.
type ListReplenishmentsQuery struct {
	OwnerID string
}

// ---------- Transfer queries ----------

// GetTransferQuery fetches a single transfer the owner sent or received.
type GetTransferQuery struct {
	TransferID string
	OwnerID    string
}

// ListTransfersQuery fetches every transfer involving the owner's accounts.
type ListTransfersQuery struct {
	OwnerID string
}
