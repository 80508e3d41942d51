package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rewear/swap-ledger/internal/models"
	"github.com/rewear/swap-ledger/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// checked in order, the first match wins
var errorMappings = []errorMapping{
	{service.ErrItemNotFound, http.StatusNotFound, "ITEM_NOT_FOUND"},
	{service.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
	{service.ErrItemNotAvailable, http.StatusBadRequest, "ITEM_NOT_AVAILABLE"},
	{service.ErrInsufficientPoints, http.StatusBadRequest, "INSUFFICIENT_POINTS"},
	{service.ErrSelfSwap, http.StatusBadRequest, "SELF_SWAP"},
	{service.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{service.ErrConflict, http.StatusConflict, "CONFLICT"},
	{service.ErrVersionConflict, http.StatusConflict, "VERSION_CONFLICT"},
	{service.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{service.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrTransient, http.StatusInternalServerError, "TRANSIENT_ERROR"},
}

// respondError writes the error response for a service error. Messages of
// unexpected errors are not exposed to clients.
func respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		message := err.Error()
		if m.status == http.StatusInternalServerError {
			message = "Temporary failure, please retry"
		}
		c.JSON(m.status, models.ErrorResponse{Status: "error", Code: m.code, Message: message})
		return
	}

	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Status:  "error",
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
	})
}

func respondBadRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}
