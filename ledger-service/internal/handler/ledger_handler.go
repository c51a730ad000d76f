package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/ledger/ledger-service/internal/command"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/errs"
	"github.com/eaglebank/ledger/shared/middleware"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/utils"
)

// LedgerCommander defines the money-moving operations used by LedgerHandler.
type LedgerCommander interface {
	Replenish(context.Context, cqrs.ReplenishCommand) (*command.ReplenishResult, error)
	Transfer(context.Context, cqrs.TransferCommand) (*command.TransferResult, error)
}

// LedgerQuerier defines the history reads used by LedgerHandler.
type LedgerQuerier interface {
	ListReplenishments(context.Context, cqrs.ListReplenishmentsQuery) ([]models.Replenishment, error)
	GetReplenishment(context.Context, cqrs.GetReplenishmentQuery) (*models.Replenishment, error)
	ListTransfers(context.Context, cqrs.ListTransfersQuery) ([]models.Transfer, error)
	GetTransfer(context.Context, cqrs.GetTransferQuery) (*models.Transfer, error)
}

// LedgerHandler serves replenishments and transfers.
type LedgerHandler struct {
	commands LedgerCommander
	queries  LedgerQuerier
}

type ReplenishRequest struct {
	Account string      `json:"account" validate:"required,accountid"`
	Amount  money.Money `json:"amount" validate:"gt=0"`
}

type TransferRequest struct {
	FromAccount string      `json:"fromAccount" validate:"required,accountid"`
	ToAccount   string      `json:"toAccount" validate:"required,accountid"`
	Amount      money.Money `json:"amount" validate:"gt=0"`
}

type ListReplenishmentsResponse struct {
	Replenishments []models.Replenishment `json:"replenishments"`
}

type ListTransfersResponse struct {
	Transfers []models.Transfer `json:"transfers"`
}

func NewLedgerHandler(commands LedgerCommander, queries LedgerQuerier) *LedgerHandler {
	return &LedgerHandler{commands: commands, queries: queries}
}

func (h *LedgerHandler) Replenish(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req ReplenishRequest
	if !bindAndValidate(c, &req) {
		return
	}

	res, err := h.commands.Replenish(c.Request.Context(), cqrs.ReplenishCommand{
		AccountID: req.Account,
		OwnerID:   ownerID,
		Amount:    req.Amount,
	})
	if err != nil {
		switch errs.KindOf(err) {
		case errs.NotFound:
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
		case errs.Forbidden:
			middleware.RespondWithError(c, http.StatusForbidden, "You can only replenish your own accounts")
		default:
			middleware.RespondWithLedgerError(c, err, "Failed to replenish account")
		}
		return
	}

	c.JSON(http.StatusCreated, res.Replenishment)
}

func (h *LedgerHandler) ListReplenishments(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	recs, err := h.queries.ListReplenishments(c.Request.Context(), cqrs.ListReplenishmentsQuery{OwnerID: ownerID})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to list replenishments")
		return
	}
	if recs == nil {
		recs = []models.Replenishment{}
	}
	c.JSON(http.StatusOK, ListReplenishmentsResponse{Replenishments: recs})
}

func (h *LedgerHandler) GetReplenishment(c *gin.Context) {
	id := c.Param("id")
	ownerID, _ := middleware.GetOwnerID(c)
	if !utils.ValidateReplenishmentID(id) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid replenishment identifier")
		return
	}

	rec, err := h.queries.GetReplenishment(c.Request.Context(), cqrs.GetReplenishmentQuery{
		ReplenishmentID: id,
		OwnerID:         ownerID,
	})
	if err != nil {
		if errs.KindOf(err) == errs.NotFound {
			middleware.RespondWithError(c, http.StatusNotFound, "Replenishment not found")
			return
		}
		middleware.RespondWithLedgerError(c, err, "Failed to get replenishment")
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *LedgerHandler) Transfer(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req TransferRequest
	if !bindAndValidate(c, &req) {
		return
	}

	res, err := h.commands.Transfer(c.Request.Context(), cqrs.TransferCommand{
		FromAccountID: req.FromAccount,
		ToAccountID:   req.ToAccount,
		OwnerID:       ownerID,
		Amount:        req.Amount,
	})
	if err != nil {
		switch errs.KindOf(err) {
		case errs.NotFound:
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
		case errs.Forbidden:
			middleware.RespondWithError(c, http.StatusForbidden, "You can only transfer from your own accounts")
		case errs.InsufficientFunds:
			middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Insufficient funds")
		default:
			middleware.RespondWithLedgerError(c, err, "Failed to create transfer")
		}
		return
	}

	c.JSON(http.StatusCreated, res.Transfer)
}

func (h *LedgerHandler) ListTransfers(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	transfers, err := h.queries.ListTransfers(c.Request.Context(), cqrs.ListTransfersQuery{OwnerID: ownerID})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to list transfers")
		return
	}
	if transfers == nil {
		transfers = []models.Transfer{}
	}
	c.JSON(http.StatusOK, ListTransfersResponse{Transfers: transfers})
}

func (h *LedgerHandler) GetTransfer(c *gin.Context) {
	id := c.Param("id")
	ownerID, _ := middleware.GetOwnerID(c)
	if !utils.ValidateTransferID(id) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid transfer identifier")
		return
	}

	transfer, err := h.queries.GetTransfer(c.Request.Context(), cqrs.GetTransferQuery{
		TransferID: id,
		OwnerID:    ownerID,
	})
	if err != nil {
		if errs.KindOf(err) == errs.NotFound {
			middleware.RespondWithError(c, http.StatusNotFound, "Transfer not found")
			return
		}
		middleware.RespondWithLedgerError(c, err, "Failed to get transfer")
		return
	}

	c.JSON(http.StatusOK, transfer)
}
