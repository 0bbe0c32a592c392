package models

import (
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		details  []Status
		expected Status
	}{
		{
			name:     "no details defaults to pending",
			details:  nil,
			expected: StatusPending,
		},
		{
			name:     "all pending",
			details:  []Status{StatusPending, StatusPending},
			expected: StatusPending,
		},
		{
			name:     "all paid",
			details:  []Status{StatusPaid, StatusPaid, StatusPaid},
			expected: StatusPaid,
		},
		{
			name:     "all canceled",
			details:  []Status{StatusCanceled, StatusCanceled},
			expected: StatusCanceled,
		},
		{
			name:     "all expired",
			details:  []Status{StatusExpired},
			expected: StatusExpired,
		},
		{
			name:     "mixed with any paid is paid",
			details:  []Status{StatusPaid, StatusPending},
			expected: StatusPaid,
		},
		{
			name:     "paid beats canceled",
			details:  []Status{StatusPaid, StatusCanceled},
			expected: StatusPaid,
		},
		{
			name:     "mixed without paid is pending",
			details:  []Status{StatusPending, StatusCanceled},
			expected: StatusPending,
		},
		{
			name:     "expired and canceled mix is pending",
			details:  []Status{StatusExpired, StatusCanceled},
			expected: StatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveStatus(tt.details))
		})
	}
}

func TestPurchase_Expired(t *testing.T) {
	now := time.Now()

	pending := &Purchase{Status: StatusPending, ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, pending.Expired(now))

	alive := &Purchase{Status: StatusPending, ExpiresAt: now.Add(time.Minute)}
	assert.False(t, alive.Expired(now))

	// only pending purchases expire
	paid := &Purchase{Status: StatusPaid, ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, paid.Expired(now))
}

func TestPurchase_IsGuest(t *testing.T) {
	assert.True(t, (&Purchase{GuestPhone: "0201234567"}).IsGuest())
	assert.False(t, (&Purchase{CustomerID: "user123"}).IsGuest())
}

func TestRaffle_IsOnSale(t *testing.T) {
	now := time.Now()
	raffle := &Raffle{
		SaleStartAt: now.Add(-time.Hour),
		SaleEndAt:   now.Add(time.Hour),
	}

	assert.True(t, raffle.IsOnSale(now))
	assert.False(t, raffle.IsOnSale(now.Add(-2*time.Hour)))
	assert.False(t, raffle.IsOnSale(now.Add(2*time.Hour)))

	deleted := *raffle
	deletedAt := now
	deleted.DeletedAt = &deletedAt
	assert.False(t, deleted.IsOnSale(now))
}

func TestRaffle_InRange(t *testing.T) {
	raffle := &Raffle{NumberStart: 1, NumberEnd: 100}

	assert.True(t, raffle.InRange(1))
	assert.True(t, raffle.InRange(100))
	assert.False(t, raffle.InRange(0))
	assert.False(t, raffle.InRange(101))
	assert.Equal(t, 100, raffle.TotalNumbers())
}

func TestRaffle_Validate(t *testing.T) {
	now := time.Now()
	valid := func() *Raffle {
		return &Raffle{
			Name:            "Community Raffle",
			NumberStart:     1,
			NumberEnd:       500,
			PricePerNumber:  5,
			SaleStartAt:     now,
			SaleEndAt:       now.Add(24 * time.Hour),
			DrawScheduledAt: now.Add(48 * time.Hour),
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Raffle)
	}{
		{"missing name", func(r *Raffle) { r.Name = "" }},
		{"inverted range", func(r *Raffle) { r.NumberStart = 500; r.NumberEnd = 1 }},
		{"negative price", func(r *Raffle) { r.PricePerNumber = -1 }},
		{"sale window inverted", func(r *Raffle) { r.SaleEndAt = r.SaleStartAt.Add(-time.Hour) }},
		{"draw before sale end", func(r *Raffle) { r.DrawScheduledAt = r.SaleStartAt }},
		{"winner out of range", func(r *Raffle) { w := 999; r.WinnerNumber = &w }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raffle := valid()
			tt.mutate(raffle)
			assert.Error(t, raffle.Validate())
		})
	}
}

func TestPaymentReceipt_Decided(t *testing.T) {
	assert.False(t, (&PaymentReceipt{VerificationStatus: VerificationPending}).Decided())
	assert.True(t, (&PaymentReceipt{VerificationStatus: VerificationApproved}).Decided())
	assert.True(t, (&PaymentReceipt{VerificationStatus: VerificationRejected}).Decided())
}

func TestRaffleFromRecord_WinnerZeroIsRepresentable(t *testing.T) {
	collection := core.NewBaseCollection("raffles")
	collection.Fields.Add(&core.JSONField{Name: "winner_number"})

	record := core.NewRecord(collection)
	assert.Nil(t, RaffleFromRecord(record).WinnerNumber, "undrawn raffle has no winner")

	record.Set("winner_number", 0)
	winner := RaffleFromRecord(record).WinnerNumber
	require.NotNil(t, winner, "0 is a valid winning number for zero-based ranges")
	assert.Equal(t, 0, *winner)
}
