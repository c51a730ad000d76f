package models

import (
	"time"

	"github.com/eaglebank/ledger/shared/money"
)

// ReplenishmentView is the cached projection of a replenishment. Unlike the
// public Replenishment it carries OwnerID so reads can be scoped from the cache.
type ReplenishmentView struct {
	ID        string      `json:"id"`
	AccountID string      `json:"account"`
	OwnerID   string      `json:"ownerId"`
	Amount    money.Money `json:"amount"`
	CreatedAt time.Time   `json:"createdTimestamp"`
}

// TransferView is the cached projection of a transfer. Either owner may read it.
type TransferView struct {
	ID            string      `json:"id"`
	FromAccountID string      `json:"fromAccount"`
	ToAccountID   string      `json:"toAccount"`
	FromOwnerID   string      `json:"fromOwnerId"`
	ToOwnerID     string      `json:"toOwnerId"`
	Amount        money.Money `json:"amount"`
	CreatedAt     time.Time   `json:"createdTimestamp"`
}

// Involves reports whether ownerID holds either side of the transfer.
func (v *TransferView) Involves(ownerID string) bool {
	return v.FromOwnerID == ownerID || v.ToOwnerID == ownerID
}

// Replenishment strips the view down to the public record.
func (v *ReplenishmentView) Replenishment() Replenishment {
	return Replenishment{ID: v.ID, AccountID: v.AccountID, Amount: v.Amount, CreatedAt: v.CreatedAt}
}

// Transfer strips the view down to the public record.
func (v *TransferView) Transfer() Transfer {
	return Transfer{ID: v.ID, FromAccountID: v.FromAccountID, ToAccountID: v.ToAccountID, Amount: v.Amount, CreatedAt: v.CreatedAt}
}
