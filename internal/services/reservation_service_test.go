package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"raffle-system/internal/status"
	"raffle-system/models"

	"github.com/go-redis/redismock/v9"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	guest := Identity{}

	tests := []struct {
		name    string
		req     ReservationRequest
		caller  Identity
		wantErr error
	}{
		{
			name:    "empty numbers",
			req:     ReservationRequest{RaffleID: "r1"},
			caller:  guest,
			wantErr: status.ErrEmptyNumbers,
		},
		{
			name: "duplicate numbers",
			req: ReservationRequest{
				RaffleID: "r1",
				Numbers:  []int{7, 7},
				Guest:    GuestInfo{Phone: "0201234567"},
			},
			caller:  guest,
			wantErr: status.ErrDuplicateNumbers,
		},
		{
			name: "guest without phone",
			req: ReservationRequest{
				RaffleID: "r1",
				Numbers:  []int{7},
			},
			caller:  guest,
			wantErr: status.ErrGuestInfoRequired,
		},
		{
			name: "guest with malformed phone",
			req: ReservationRequest{
				RaffleID: "r1",
				Numbers:  []int{7},
				Guest:    GuestInfo{Phone: "12345"},
			},
			caller:  guest,
			wantErr: status.ErrInvalidPhoneFormat,
		},
		{
			name: "valid guest request",
			req: ReservationRequest{
				RaffleID: "r1",
				Numbers:  []int{7, 8, 9},
				Guest:    GuestInfo{Name: "Ana", Phone: "0201234567"},
			},
			caller:  guest,
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req, tt.caller)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCheckRange(t *testing.T) {
	raffle := &models.Raffle{NumberStart: 1, NumberEnd: 100}

	assert.NoError(t, CheckRange(raffle, []int{1, 50, 100}))

	err := CheckRange(raffle, []int{0, 50, 101, 200})
	require.Error(t, err)

	var numErr *status.NumberError
	require.True(t, errors.As(err, &numErr))
	assert.ErrorIs(t, err, status.ErrNumberOutOfRange)
	assert.Equal(t, []int{0, 101, 200}, numErr.Numbers)
}

func TestRaffleLockName(t *testing.T) {
	assert.Equal(t, "raffle_lock:abc123", raffleLockName("abc123"))
}

func TestNumberError_ReportsSortedNumbers(t *testing.T) {
	err := status.NewNumberError(status.ErrNumberUnavailable, 9, 3, 7)

	assert.Equal(t, []int{3, 7, 9}, err.Numbers)
	assert.Contains(t, err.Error(), "3, 7, 9")
	assert.ErrorIs(t, err, status.ErrNumberUnavailable)
}

func TestReservationWindow(t *testing.T) {
	now := time.Now()
	purchase := &models.Purchase{
		Status:    models.StatusPending,
		ExpiresAt: now.Add(24 * time.Hour),
	}

	assert.False(t, purchase.Expired(now))
	assert.True(t, purchase.Expired(now.Add(25*time.Hour)))
}

func TestRaffleLock_Acquire(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locks := redsync.New(goredis.NewPool(client))

	mock.Regexp().ExpectSetNX(raffleLockName("r1"), `.+`, 10*time.Second).SetVal(true)

	mutex := locks.NewMutex(raffleLockName("r1"),
		redsync.WithExpiry(10*time.Second),
		redsync.WithTries(1),
	)
	require.NoError(t, mutex.LockContext(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRaffleLock_HeldByAnotherReservation(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locks := redsync.New(goredis.NewPool(client))

	mock.Regexp().ExpectSetNX(raffleLockName("r1"), `.+`, 10*time.Second).SetVal(false)

	mutex := locks.NewMutex(raffleLockName("r1"),
		redsync.WithExpiry(10*time.Second),
		redsync.WithTries(1),
	)
	assert.Error(t, mutex.LockContext(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
