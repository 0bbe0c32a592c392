package services

import (
	"errors"
	"testing"
	"time"

	"raffle-system/internal/status"
	"raffle-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedDetail(number int, s models.Status) *models.PurchaseDetail {
	return &models.PurchaseDetail{Number: number, Status: s}
}

func TestPlanReceipt_EmptySelectionCoversAllPayable(t *testing.T) {
	details := []*models.PurchaseDetail{
		numberedDetail(5, models.StatusPending),
		numberedDetail(6, models.StatusPending),
		numberedDetail(7, models.StatusPaid),
	}

	covered, remaining, err := PlanReceipt(details, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, covered)
	assert.Empty(t, remaining)
}

func TestPlanReceipt_EmptySelectionSkipsClaimed(t *testing.T) {
	details := []*models.PurchaseDetail{
		numberedDetail(5, models.StatusPending),
		numberedDetail(6, models.StatusPending),
	}
	claimed := map[int]bool{5: true}

	covered, remaining, err := PlanReceipt(details, claimed, nil)

	require.NoError(t, err)
	assert.Equal(t, []int{6}, covered)
	assert.Empty(t, remaining)
}

func TestPlanReceipt_NothingPayable(t *testing.T) {
	details := []*models.PurchaseDetail{
		numberedDetail(5, models.StatusPaid),
		numberedDetail(6, models.StatusCanceled),
	}

	_, _, err := PlanReceipt(details, nil, nil)

	assert.ErrorIs(t, err, status.ErrNoPayableNumbers)
}

func TestPlanReceipt_SubsetLeavesRemaining(t *testing.T) {
	details := []*models.PurchaseDetail{
		numberedDetail(5, models.StatusPending),
		numberedDetail(6, models.StatusPending),
		numberedDetail(7, models.StatusPending),
	}

	covered, remaining, err := PlanReceipt(details, nil, []int{6})

	require.NoError(t, err)
	assert.Equal(t, []int{6}, covered)
	assert.Equal(t, []int{5, 7}, remaining)
}

func TestPlanReceipt_NumbersOutsidePurchase(t *testing.T) {
	details := []*models.PurchaseDetail{
		numberedDetail(5, models.StatusPending),
	}

	_, _, err := PlanReceipt(details, nil, []int{5, 99})

	var numErr *status.NumberError
	require.True(t, errors.As(err, &numErr))
	assert.ErrorIs(t, err, status.ErrNumbersNotInOrder)
	assert.Equal(t, []int{99}, numErr.Numbers)
}

func TestPlanReceipt_DoubleClaimRejected(t *testing.T) {
	details := []*models.PurchaseDetail{
		numberedDetail(5, models.StatusPending),
		numberedDetail(6, models.StatusPending),
	}
	claimed := map[int]bool{5: true}

	_, _, err := PlanReceipt(details, claimed, []int{5, 6})

	var numErr *status.NumberError
	require.True(t, errors.As(err, &numErr))
	assert.ErrorIs(t, err, status.ErrNumberInVerification)
	assert.Equal(t, []int{5}, numErr.Numbers)
}

func TestPlanReceipt_AlreadyPaidRejected(t *testing.T) {
	details := []*models.PurchaseDetail{
		numberedDetail(5, models.StatusPaid),
		numberedDetail(6, models.StatusPending),
	}

	_, _, err := PlanReceipt(details, nil, []int{5})

	assert.ErrorIs(t, err, status.ErrNumberInVerification)
}

func TestPlanReceipt_DuplicateSelection(t *testing.T) {
	details := []*models.PurchaseDetail{
		numberedDetail(5, models.StatusPending),
	}

	_, _, err := PlanReceipt(details, nil, []int{5, 5})

	assert.ErrorIs(t, err, status.ErrDuplicateNumbers)
}

func TestPlanReceipt_RemainingExcludesClaimed(t *testing.T) {
	details := []*models.PurchaseDetail{
		numberedDetail(5, models.StatusPending),
		numberedDetail(6, models.StatusPending),
		numberedDetail(7, models.StatusPending),
	}
	claimed := map[int]bool{7: true}

	covered, remaining, err := PlanReceipt(details, claimed, []int{5})

	require.NoError(t, err)
	assert.Equal(t, []int{5}, covered)
	assert.Equal(t, []int{6}, remaining)
}

func TestCheckReceiptWindow(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		status  models.Status
		expires time.Time
		wantErr error
	}{
		{"pending inside window", models.StatusPending, now.Add(time.Hour), nil},
		{"pending window lapsed", models.StatusPending, now.Add(-time.Minute), status.ErrReservationLapsed},
		{"paid past window", models.StatusPaid, now.Add(-time.Hour), nil},
		{"canceled past window", models.StatusCanceled, now.Add(-time.Hour), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			purchase := &models.Purchase{Status: tt.status, ExpiresAt: tt.expires}
			err := CheckReceiptWindow(purchase, now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLapsedHoldCannotBePaidAfterResale(t *testing.T) {
	now := time.Now()
	purchase := &models.Purchase{
		ID:        "stale",
		Status:    models.StatusPending,
		ExpiresAt: now.Add(-time.Minute),
	}

	// Once the hold lapses the number reads as free and can be resold.
	claim := NumberClaim{
		Number:         7,
		PurchaseID:     purchase.ID,
		PurchaseStatus: models.StatusPending,
		DetailStatus:   models.StatusPending,
		ExpiresAt:      purchase.ExpiresAt,
	}
	assert.False(t, claim.Taken(now))

	// The same lapse closes the receipt window for the original buyer, so
	// the stale hold can never be flipped to paid over the new reservation.
	assert.ErrorIs(t, CheckReceiptWindow(purchase, now), status.ErrReservationLapsed)
}

func TestDecidedReceiptStaysDecided(t *testing.T) {
	// A cancel auto-rejects pending receipts; the rejected receipt must read
	// as decided so a later approve attempt is refused.
	rejected := &models.PaymentReceipt{VerificationStatus: models.VerificationRejected}
	assert.True(t, rejected.Decided())

	approved := &models.PaymentReceipt{VerificationStatus: models.VerificationApproved}
	assert.True(t, approved.Decided())
}
