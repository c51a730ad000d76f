package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/errs"
	"github.com/eaglebank/ledger/shared/middleware"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/utils"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.Account, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) error
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.Account, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type ListAccountsResponse struct {
	Accounts []models.Account `json:"accounts"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

// CreateAccount always opens an empty account. Any request body is ignored.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	account, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{OwnerID: ownerID})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	accounts, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{OwnerID: ownerID})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: accounts})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	ownerID, _ := middleware.GetOwnerID(c)
	if !utils.ValidateAccountID(accountID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account identifier")
		return
	}

	account, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{
		AccountID: accountID,
		OwnerID:   ownerID,
	})
	if err != nil {
		switch errs.KindOf(err) {
		case errs.NotFound:
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
		case errs.Forbidden:
			middleware.RespondWithError(c, http.StatusForbidden, "You can only access your own accounts")
		default:
			middleware.RespondWithLedgerError(c, err, "Failed to get account")
		}
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	ownerID, _ := middleware.GetOwnerID(c)
	if !utils.ValidateAccountID(accountID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account identifier")
		return
	}

	err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{
		AccountID: accountID,
		OwnerID:   ownerID,
	})
	if err != nil {
		switch errs.KindOf(err) {
		case errs.NotFound:
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
		case errs.Forbidden:
			middleware.RespondWithError(c, http.StatusForbidden, "You can only delete your own accounts")
		default:
			middleware.RespondWithLedgerError(c, err, "Failed to delete account")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// bindAndValidate decodes the JSON body into req and runs the struct
// validators. It writes the 400 response itself and reports whether the
// handler should continue.
func bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if errs.KindOf(err) == errs.InvalidAmount {
			middleware.RespondWithLedgerError(c, err, "Invalid request body")
			return false
		}
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return false
	}
	return true
}
