package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"raffle-system/internal/status"
	"raffle-system/models"
	"raffle-system/monitoring"
	"raffle-system/utils"

	"github.com/go-redsync/redsync/v4"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

type GuestInfo struct {
	Name  string `json:"guest_name"`
	Phone string `json:"guest_phone"`
	Email string `json:"guest_email"`
}

type ReservationRequest struct {
	RaffleID string    `json:"raffle_id"`
	Numbers  []int     `json:"numbers"`
	Guest    GuestInfo `json:"guest"`
}

type Reservation struct {
	Purchase *models.Purchase         `json:"purchase"`
	Details  []*models.PurchaseDetail `json:"details"`
}

// ReservationService atomically claims a set of numbers for a new purchase.
// Concurrent attempts against the same raffle are serialized by a per-raffle
// Redis mutex held across the availability check and the inserts, so at most
// one of two overlapping requests can succeed.
type ReservationService struct {
	app     core.App
	locks   *redsync.Redsync
	monitor *monitoring.Monitor

	reservationTTL time.Duration
	lockTTL        time.Duration
}

func NewReservationService(app core.App, locks *redsync.Redsync, monitor *monitoring.Monitor, reservationTTL, lockTTL time.Duration) *ReservationService {
	return &ReservationService{
		app:            app,
		locks:          locks,
		monitor:        monitor,
		reservationTTL: reservationTTL,
		lockTTL:        lockTTL,
	}
}

func raffleLockName(raffleID string) string {
	return "raffle_lock:" + raffleID
}

// ValidateRequest covers everything that can be checked before touching
// storage: a non-empty duplicate-free number list and a usable identity.
func ValidateRequest(req ReservationRequest, caller Identity) error {
	if len(req.Numbers) == 0 {
		return status.ErrEmptyNumbers
	}

	seen := make(map[int]bool, len(req.Numbers))
	for _, number := range req.Numbers {
		if seen[number] {
			return status.ErrDuplicateNumbers
		}
		seen[number] = true
	}

	if !caller.IsAuthenticated() {
		if req.Guest.Phone == "" {
			return status.ErrGuestInfoRequired
		}
		if !ValidPhone(req.Guest.Phone) {
			return status.ErrInvalidPhoneFormat
		}
	}

	return nil
}

// CheckRange rejects any requested number outside the raffle's range,
// naming every offender.
func CheckRange(raffle *models.Raffle, numbers []int) error {
	var outOfRange []int
	for _, number := range numbers {
		if !raffle.InRange(number) {
			outOfRange = append(outOfRange, number)
		}
	}
	if len(outOfRange) > 0 {
		return status.NewNumberError(status.ErrNumberOutOfRange, outOfRange...)
	}
	return nil
}

func (s *ReservationService) Reserve(ctx context.Context, req ReservationRequest, caller Identity) (*Reservation, error) {
	if err := ValidateRequest(req, caller); err != nil {
		s.monitor.TrackReservation("invalid")
		return nil, err
	}

	mutex := s.locks.NewMutex(raffleLockName(req.RaffleID), redsync.WithExpiry(s.lockTTL))
	lockStart := time.Now()
	if err := mutex.LockContext(ctx); err != nil {
		s.monitor.TrackReservation("error")
		return nil, fmt.Errorf("acquire raffle lock: %w", err)
	}
	s.monitor.TrackLockWait(time.Since(lockStart))
	defer func() {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			slog.Error("Failed to release raffle lock", "raffle_id", req.RaffleID, "error", err)
		}
	}()

	var reservation *Reservation
	err := s.app.RunInTransaction(func(txApp core.App) error {
		created, err := s.reserveInTx(txApp, req, caller)
		if err != nil {
			return err
		}
		reservation = created
		return nil
	})
	if err != nil {
		var numErr *status.NumberError
		if errors.As(err, &numErr) {
			s.monitor.TrackReservation("conflict")
		} else {
			s.monitor.TrackReservation("invalid")
		}
		return nil, err
	}

	s.monitor.TrackReservation("success")
	s.monitor.TrackNumbersReserved(len(req.Numbers))
	slog.Info("Reservation created",
		"purchase_id", reservation.Purchase.ID,
		"raffle_id", req.RaffleID,
		"numbers", len(req.Numbers),
	)
	return reservation, nil
}

func (s *ReservationService) reserveInTx(txApp core.App, req ReservationRequest, caller Identity) (*Reservation, error) {
	now := time.Now()

	raffleRecord, err := txApp.FindRecordById("raffles", req.RaffleID)
	if err != nil {
		return nil, fmt.Errorf("find raffle %s: %w", req.RaffleID, err)
	}
	raffle := models.RaffleFromRecord(raffleRecord)

	if !raffle.IsOnSale(now) {
		return nil, status.ErrRaffleNotSellable
	}
	if err := CheckRange(raffle, req.Numbers); err != nil {
		return nil, err
	}

	taken, err := TakenSet(txApp.DB(), raffle.ID, now)
	if err != nil {
		return nil, err
	}

	var conflicts []int
	for _, number := range req.Numbers {
		if taken[number] {
			conflicts = append(conflicts, number)
		}
	}
	if len(conflicts) > 0 {
		return nil, status.NewNumberError(status.ErrNumberUnavailable, conflicts...)
	}

	unitPrice := decimal.NewFromFloat(raffle.PricePerNumber)
	total := unitPrice.Mul(decimal.NewFromInt(int64(len(req.Numbers))))

	refCode, err := utils.GenerateCode(4)
	if err != nil {
		return nil, fmt.Errorf("generate ref code: %w", err)
	}

	purchases, err := txApp.FindCollectionByNameOrId("purchases")
	if err != nil {
		return nil, err
	}

	purchaseRecord := core.NewRecord(purchases)
	purchaseRecord.Set("raffle", raffle.ID)
	if caller.IsAuthenticated() {
		purchaseRecord.Set("customer", caller.UserID())
	} else {
		purchaseRecord.Set("guest_name", req.Guest.Name)
		purchaseRecord.Set("guest_phone", req.Guest.Phone)
		purchaseRecord.Set("guest_email", req.Guest.Email)
	}
	purchaseRecord.Set("status", string(models.StatusPending))
	purchaseRecord.Set("total_amount", total.InexactFloat64())
	purchaseRecord.Set("ref_code", refCode)
	purchaseRecord.Set("reserved_at", now)
	purchaseRecord.Set("expires_at", now.Add(s.reservationTTL))

	if err := txApp.Save(purchaseRecord); err != nil {
		return nil, fmt.Errorf("save purchase: %w", err)
	}

	detailCollection, err := txApp.FindCollectionByNameOrId("purchase_details")
	if err != nil {
		return nil, err
	}

	numbers := append([]int(nil), req.Numbers...)
	sort.Ints(numbers)

	details := make([]*models.PurchaseDetail, 0, len(numbers))
	for _, number := range numbers {
		detailRecord := core.NewRecord(detailCollection)
		detailRecord.Set("purchase", purchaseRecord.Id)
		detailRecord.Set("number", number)
		detailRecord.Set("unit_price", unitPrice.InexactFloat64())
		detailRecord.Set("status", string(models.StatusPending))

		if err := txApp.Save(detailRecord); err != nil {
			return nil, fmt.Errorf("save detail %d: %w", number, err)
		}
		details = append(details, models.DetailFromRecord(detailRecord))
	}

	return &Reservation{
		Purchase: models.PurchaseFromRecord(purchaseRecord),
		Details:  details,
	}, nil
}
