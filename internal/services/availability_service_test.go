package services

import (
	"testing"
	"time"

	"raffle-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberClaim_Taken(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		claim NumberClaim
		taken bool
	}{
		{
			name: "pending detail under live pending purchase",
			claim: NumberClaim{
				DetailStatus:   models.StatusPending,
				PurchaseStatus: models.StatusPending,
				ExpiresAt:      now.Add(time.Hour),
			},
			taken: true,
		},
		{
			name: "pending detail under lapsed pending purchase is free",
			claim: NumberClaim{
				DetailStatus:   models.StatusPending,
				PurchaseStatus: models.StatusPending,
				ExpiresAt:      now.Add(-time.Minute),
			},
			taken: false,
		},
		{
			name: "paid detail under paid purchase",
			claim: NumberClaim{
				DetailStatus:   models.StatusPaid,
				PurchaseStatus: models.StatusPaid,
			},
			taken: true,
		},
		{
			name: "pending detail under paid purchase stays held",
			claim: NumberClaim{
				DetailStatus:   models.StatusPending,
				PurchaseStatus: models.StatusPaid,
			},
			taken: true,
		},
		{
			name: "canceled detail is free",
			claim: NumberClaim{
				DetailStatus:   models.StatusCanceled,
				PurchaseStatus: models.StatusPaid,
			},
			taken: false,
		},
		{
			name: "detail under canceled purchase is free",
			claim: NumberClaim{
				DetailStatus:   models.StatusPending,
				PurchaseStatus: models.StatusCanceled,
			},
			taken: false,
		},
		{
			name: "detail under expired purchase is free",
			claim: NumberClaim{
				DetailStatus:   models.StatusPending,
				PurchaseStatus: models.StatusExpired,
			},
			taken: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.taken, tt.claim.Taken(now))
		})
	}
}

func TestBuildAvailability(t *testing.T) {
	now := time.Now()
	raffle := &models.Raffle{ID: "r1", NumberStart: 1, NumberEnd: 5}

	claims := []NumberClaim{
		{Number: 2, DetailStatus: models.StatusPending, PurchaseStatus: models.StatusPending, ExpiresAt: now.Add(time.Hour), PurchaseID: "p1", BuyerName: "Ana"},
		{Number: 3, DetailStatus: models.StatusPaid, PurchaseStatus: models.StatusPaid, PurchaseID: "p2", BuyerName: "Bo"},
		// released hold on 3 from an expired purchase must not shadow the paid claim
		{Number: 3, DetailStatus: models.StatusPending, PurchaseStatus: models.StatusExpired, PurchaseID: "p0"},
		{Number: 5, DetailStatus: models.StatusCanceled, PurchaseStatus: models.StatusCanceled, PurchaseID: "p3"},
	}

	availability := BuildAvailability(raffle, claims, now)

	require.Len(t, availability.Numbers, 5)
	assert.Equal(t, 5, availability.TotalNumbers)

	assert.Equal(t, NumberAvailable, availability.Numbers[0].Status)
	assert.Equal(t, NumberReserved, availability.Numbers[1].Status)
	assert.Equal(t, "p1", availability.Numbers[1].PurchaseID)
	assert.Equal(t, NumberPaid, availability.Numbers[2].Status)
	assert.Equal(t, "p2", availability.Numbers[2].PurchaseID)
	assert.Equal(t, NumberAvailable, availability.Numbers[3].Status)
	assert.Equal(t, NumberAvailable, availability.Numbers[4].Status)

	assert.Equal(t, []int{2, 3}, availability.TakenNumbers)
	assert.Equal(t, 3, availability.Summary[NumberAvailable])
	assert.Equal(t, 1, availability.Summary[NumberReserved])
	assert.Equal(t, 1, availability.Summary[NumberPaid])
}

func TestBuildAvailability_PaidWinsOverLaterReserved(t *testing.T) {
	now := time.Now()
	raffle := &models.Raffle{ID: "r1", NumberStart: 1, NumberEnd: 1}

	claims := []NumberClaim{
		{Number: 1, DetailStatus: models.StatusPaid, PurchaseStatus: models.StatusPaid, PurchaseID: "paid"},
		{Number: 1, DetailStatus: models.StatusPending, PurchaseStatus: models.StatusPending, ExpiresAt: now.Add(time.Hour), PurchaseID: "reserved"},
	}

	availability := BuildAvailability(raffle, claims, now)

	assert.Equal(t, NumberPaid, availability.Numbers[0].Status)
	assert.Equal(t, "paid", availability.Numbers[0].PurchaseID)
}

func TestBuildAvailability_EmptyRaffle(t *testing.T) {
	raffle := &models.Raffle{ID: "r1", NumberStart: 10, NumberEnd: 12}

	availability := BuildAvailability(raffle, nil, time.Now())

	assert.Len(t, availability.Numbers, 3)
	assert.Empty(t, availability.TakenNumbers)
	assert.Equal(t, 3, availability.Summary[NumberAvailable])
}
