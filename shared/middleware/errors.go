package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/ledger/shared/errs"
)

// StatusFor maps a ledger error kind onto an HTTP status.
func StatusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.InvalidAmount, errs.SameAccount:
		return http.StatusBadRequest
	case errs.Forbidden:
		return http.StatusForbidden
	case errs.NotFound:
		return http.StatusNotFound
	case errs.NotEmpty:
		return http.StatusConflict
	case errs.InsufficientFunds:
		return http.StatusUnprocessableEntity
	case errs.ConflictRetryExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithLedgerError writes err using StatusFor. Business rejections echo
// their message together with a stable code; anything else is reported with
// fallback and recorded on the gin context for the logging middleware.
func RespondWithLedgerError(c *gin.Context, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		RespondWithError(c, status, fallback)
		return
	}
	message := errs.MessageOf(err)
	if message == "" {
		message = string(errs.KindOf(err))
	}
	c.JSON(status, gin.H{
		"message": message,
		"code":    errs.KindOf(err),
	})
}
