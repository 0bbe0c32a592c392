package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"raffle-system/internal/status"

	"github.com/pocketbase/pocketbase/apis"
)

// toAPIError translates service errors into HTTP responses. Number conflicts
// carry the offending numbers so the client can highlight them.
func toAPIError(err error) error {
	if err == nil {
		return nil
	}

	var numErr *status.NumberError
	if errors.As(err, &numErr) {
		return apis.NewBadRequestError(numErr.Error(), map[string]any{"numbers": numErr.Numbers})
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apis.NewNotFoundError("Not found", err)
	case errors.Is(err, status.ErrPermissionDenied):
		return apis.NewForbiddenError("Access denied", err)
	case errors.Is(err, status.ErrVerificationClosed),
		errors.Is(err, status.ErrReservationLapsed):
		return apis.NewApiError(http.StatusConflict, err.Error(), err)
	case errors.Is(err, status.ErrRaffleNotSellable),
		errors.Is(err, status.ErrCannotCancelPaid),
		errors.Is(err, status.ErrEmptyNumbers),
		errors.Is(err, status.ErrDuplicateNumbers),
		errors.Is(err, status.ErrGuestInfoRequired),
		errors.Is(err, status.ErrInvalidPhoneFormat),
		errors.Is(err, status.ErrInvalidAction),
		errors.Is(err, status.ErrReceiptRequired),
		errors.Is(err, status.ErrNoPayableNumbers):
		return apis.NewBadRequestError(err.Error(), err)
	default:
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}
}
