package handlers

import (
	"database/sql"
	"net/http"
	"testing"

	"raffle-system/internal/status"

	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *router.ApiError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Status
}

func TestToAPIError_StatusCodes(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, toAPIError(status.ErrCannotCancelPaid)))
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, toAPIError(status.ErrNoPayableNumbers)))
	assert.Equal(t, http.StatusConflict, apiStatus(t, toAPIError(status.ErrVerificationClosed)))
	assert.Equal(t, http.StatusConflict, apiStatus(t, toAPIError(status.ErrReservationLapsed)))
	assert.Equal(t, http.StatusForbidden, apiStatus(t, toAPIError(status.ErrPermissionDenied)))
	assert.Equal(t, http.StatusNotFound, apiStatus(t, toAPIError(sql.ErrNoRows)))
}

func TestToAPIError_NumberConflict(t *testing.T) {
	err := toAPIError(status.NewNumberError(status.ErrNumberUnavailable, 7, 3))

	var apiErr *router.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "3, 7")
}
