package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/errs"
	"github.com/eaglebank/ledger/shared/middleware"
	"github.com/eaglebank/ledger/shared/models"
)

// CustomerCommander defines the profile writes used by CustomerHandler.
type CustomerCommander interface {
	UpsertCustomer(context.Context, cqrs.UpsertCustomerCommand) (*models.Customer, error)
	DeleteCustomer(context.Context, cqrs.DeleteCustomerCommand) error
}

type CustomerQuerier interface {
	GetCustomer(context.Context, cqrs.GetCustomerQuery) (*models.Customer, error)
}

// CustomerHandler serves the caller's own customer profile.
type CustomerHandler struct {
	commands CustomerCommander
	queries  CustomerQuerier
}

type UpsertCustomerRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	City      string `json:"city" validate:"required,max=100"`
}

func NewCustomerHandler(commands CustomerCommander, queries CustomerQuerier) *CustomerHandler {
	return &CustomerHandler{commands: commands, queries: queries}
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	customer, err := h.queries.GetCustomer(c.Request.Context(), cqrs.GetCustomerQuery{OwnerID: ownerID})
	if err != nil {
		if errs.KindOf(err) == errs.NotFound {
			middleware.RespondWithError(c, http.StatusNotFound, "Customer not found")
			return
		}
		middleware.RespondWithLedgerError(c, err, "Failed to get customer")
		return
	}

	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) UpsertCustomer(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req UpsertCustomerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	customer, err := h.commands.UpsertCustomer(c.Request.Context(), cqrs.UpsertCustomerCommand{
		OwnerID:   ownerID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		City:      req.City,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to save customer")
		return
	}

	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	if err := h.commands.DeleteCustomer(c.Request.Context(), cqrs.DeleteCustomerCommand{OwnerID: ownerID}); err != nil {
		if errs.KindOf(err) == errs.NotEmpty {
			middleware.RespondWithError(c, http.StatusConflict, "Accounts with a non-zero balance must be emptied first")
			return
		}
		middleware.RespondWithLedgerError(c, err, "Failed to delete customer")
		return
	}

	c.Status(http.StatusNoContent)
}
