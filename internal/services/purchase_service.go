package services

import (
	"fmt"
	"log/slog"
	"time"

	"raffle-system/internal/status"
	"raffle-system/models"
	"raffle-system/monitoring"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// PurchaseService owns the purchase lifecycle: the aggregate status machine,
// cancellation, the personal panel and the expiry sweep.
type PurchaseService struct {
	app     core.App
	monitor *monitoring.Monitor
}

func NewPurchaseService(app core.App, monitor *monitoring.Monitor) *PurchaseService {
	return &PurchaseService{app: app, monitor: monitor}
}

// PlanCancel decides what cancellation means for the purchase in its current
// state. It returns the details to cancel, or nil when the call is an
// idempotent no-op. A purchase whose every detail is paid refuses.
func PlanCancel(purchase *models.Purchase, details []*models.PurchaseDetail) ([]*models.PurchaseDetail, error) {
	if purchase.Status == models.StatusCanceled {
		return nil, nil
	}

	var pending []*models.PurchaseDetail
	allPaid := len(details) > 0
	for _, detail := range details {
		if detail.Status == models.StatusPending {
			pending = append(pending, detail)
		}
		if detail.Status != models.StatusPaid {
			allPaid = false
		}
	}

	if len(pending) == 0 {
		if allPaid {
			return nil, status.ErrCannotCancelPaid
		}
		return nil, nil
	}
	return pending, nil
}

// Cancel cancels every pending detail of the purchase, leaving paid details
// untouched, auto-rejects any still-pending receipt and recomputes the
// aggregate status, all in one transaction. Calling it on an already
// canceled purchase succeeds without side effects.
func (s *PurchaseService) Cancel(purchaseID string, caller Identity) (*models.Purchase, error) {
	purchaseRecord, err := s.app.FindRecordById("purchases", purchaseID)
	if err != nil {
		return nil, fmt.Errorf("find purchase %s: %w", purchaseID, err)
	}
	purchase := models.PurchaseFromRecord(purchaseRecord)

	raffleRecord, err := s.app.FindRecordById("raffles", purchase.RaffleID)
	if err != nil {
		return nil, fmt.Errorf("find raffle %s: %w", purchase.RaffleID, err)
	}
	raffle := models.RaffleFromRecord(raffleRecord)

	if !caller.CanManage(purchase, raffle) {
		return nil, status.ErrPermissionDenied
	}

	var result *models.Purchase
	err = s.app.RunInTransaction(func(txApp core.App) error {
		canceled, err := s.cancelInTx(txApp, purchaseID)
		if err != nil {
			return err
		}
		result = canceled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.monitor.TrackCancellation()
	slog.Info("Purchase canceled", "purchase_id", purchaseID)
	return result, nil
}

func (s *PurchaseService) cancelInTx(txApp core.App, purchaseID string) (*models.Purchase, error) {
	// Re-read under the transaction so the plan reflects committed state.
	purchaseRecord, err := txApp.FindRecordById("purchases", purchaseID)
	if err != nil {
		return nil, err
	}
	purchase := models.PurchaseFromRecord(purchaseRecord)

	detailRecords, err := txApp.FindRecordsByFilter(
		"purchase_details",
		"purchase = {:purchaseId}",
		"number",
		0,
		0,
		dbx.Params{"purchaseId": purchaseID},
	)
	if err != nil {
		return nil, fmt.Errorf("find details: %w", err)
	}

	details := make([]*models.PurchaseDetail, len(detailRecords))
	for i, record := range detailRecords {
		details[i] = models.DetailFromRecord(record)
	}

	toCancel, err := PlanCancel(purchase, details)
	if err != nil {
		return nil, err
	}
	if toCancel == nil {
		return purchase, nil
	}

	cancelIDs := make(map[string]bool, len(toCancel))
	for _, detail := range toCancel {
		cancelIDs[detail.ID] = true
	}

	statuses := make([]models.Status, 0, len(detailRecords))
	for _, record := range detailRecords {
		if cancelIDs[record.Id] {
			record.Set("status", string(models.StatusCanceled))
			if err := txApp.Save(record); err != nil {
				return nil, fmt.Errorf("cancel detail %s: %w", record.Id, err)
			}
		}
		statuses = append(statuses, models.Status(record.GetString("status")))
	}

	if err := rejectPendingReceipts(txApp, purchaseID, ""); err != nil {
		return nil, err
	}

	purchaseRecord.Set("status", string(models.DeriveStatus(statuses)))
	if err := txApp.Save(purchaseRecord); err != nil {
		return nil, fmt.Errorf("save purchase: %w", err)
	}

	return models.PurchaseFromRecord(purchaseRecord), nil
}

// rejectPendingReceipts flips every pending receipt of the purchase to
// rejected. Used by cancellation, where the receipts' claims die with the
// canceled details, so no ticket statuses are reverted here.
func rejectPendingReceipts(txApp core.App, purchaseID, verifierID string) error {
	receipts, err := txApp.FindRecordsByFilter(
		"payment_receipts",
		"payment.purchase = {:purchaseId} && verification_status = {:pending}",
		"",
		0,
		0,
		dbx.Params{"purchaseId": purchaseID, "pending": string(models.VerificationPending)},
	)
	if err != nil {
		return fmt.Errorf("find pending receipts: %w", err)
	}

	for _, receipt := range receipts {
		receipt.Set("verification_status", string(models.VerificationRejected))
		receipt.Set("verification_date", time.Now())
		if verifierID != "" {
			receipt.Set("verified_by", verifierID)
		}
		if err := txApp.Save(receipt); err != nil {
			return fmt.Errorf("reject receipt %s: %w", receipt.Id, err)
		}
	}
	return nil
}

// RecomputeStatus re-derives and persists the aggregate purchase status from
// its details. Must run inside the same transaction as the detail writes.
func RecomputeStatus(txApp core.App, purchaseRecord *core.Record) error {
	detailRecords, err := txApp.FindRecordsByFilter(
		"purchase_details",
		"purchase = {:purchaseId}",
		"",
		0,
		0,
		dbx.Params{"purchaseId": purchaseRecord.Id},
	)
	if err != nil {
		return fmt.Errorf("find details: %w", err)
	}

	statuses := make([]models.Status, len(detailRecords))
	for i, record := range detailRecords {
		statuses[i] = models.Status(record.GetString("status"))
	}

	purchaseRecord.Set("status", string(models.DeriveStatus(statuses)))
	return txApp.Save(purchaseRecord)
}

type PurchaseView struct {
	models.Purchase

	RaffleName  string `json:"raffle_name"`
	RaffleImage string `json:"raffle_image,omitempty"`
	Numbers     []int  `json:"numbers"`
}

// List is the personal panel: an authenticated customer sees their own
// purchases, a guest looks theirs up by phone, and an organizer may look up
// any guest's purchases by phone.
func (s *PurchaseService) List(caller Identity, phone string) ([]PurchaseView, error) {
	var filter string
	params := dbx.Params{}

	switch {
	case caller.IsAuthenticated() && phone != "":
		if caller.Role() != RoleOrganizer {
			return nil, status.ErrPermissionDenied
		}
		filter = "guest_phone = {:phone}"
		params["phone"] = phone
	case caller.IsAuthenticated():
		filter = "customer = {:customerId}"
		params["customerId"] = caller.UserID()
	default:
		if phone == "" {
			return nil, status.ErrGuestInfoRequired
		}
		if !ValidPhone(phone) {
			return nil, status.ErrInvalidPhoneFormat
		}
		filter = "guest_phone = {:phone}"
		params["phone"] = phone
	}

	purchaseRecords, err := s.app.FindRecordsByFilter("purchases", filter, "-created", 0, 0, params)
	if err != nil {
		return nil, fmt.Errorf("find purchases: %w", err)
	}

	views := make([]PurchaseView, 0, len(purchaseRecords))
	for _, record := range purchaseRecords {
		view := PurchaseView{Purchase: *models.PurchaseFromRecord(record)}

		if raffleRecord, err := s.app.FindRecordById("raffles", view.RaffleID); err == nil {
			view.RaffleName = raffleRecord.GetString("name")
			view.RaffleImage = raffleRecord.GetString("image")
		}

		detailRecords, err := s.app.FindRecordsByFilter(
			"purchase_details",
			"purchase = {:purchaseId}",
			"number",
			0,
			0,
			dbx.Params{"purchaseId": record.Id},
		)
		if err != nil {
			return nil, fmt.Errorf("find details: %w", err)
		}
		view.Numbers = make([]int, len(detailRecords))
		for i, detail := range detailRecords {
			view.Numbers[i] = detail.GetInt("number")
		}

		views = append(views, view)
	}

	return views, nil
}

// ExpireStale flips pending purchases whose reservation window has passed to
// expired, details included. Read paths already treat them as free; the
// sweep just converges stored state.
func (s *PurchaseService) ExpireStale() (int, error) {
	staleRecords, err := s.app.FindRecordsByFilter(
		"purchases",
		"status = {:pending} && expires_at <= {:now}",
		"",
		0,
		0,
		dbx.Params{
			"pending": string(models.StatusPending),
			"now":     time.Now().UTC().Format(types.DefaultDateLayout),
		},
	)
	if err != nil {
		return 0, fmt.Errorf("find stale purchases: %w", err)
	}

	expired := 0
	for _, purchaseRecord := range staleRecords {
		err := s.app.RunInTransaction(func(txApp core.App) error {
			detailRecords, err := txApp.FindRecordsByFilter(
				"purchase_details",
				"purchase = {:purchaseId} && status = {:pending}",
				"",
				0,
				0,
				dbx.Params{"purchaseId": purchaseRecord.Id, "pending": string(models.StatusPending)},
			)
			if err != nil {
				return err
			}
			for _, detail := range detailRecords {
				detail.Set("status", string(models.StatusExpired))
				if err := txApp.Save(detail); err != nil {
					return err
				}
			}

			if err := rejectPendingReceipts(txApp, purchaseRecord.Id, ""); err != nil {
				return err
			}

			purchaseRecord.Set("status", string(models.StatusExpired))
			return txApp.Save(purchaseRecord)
		})
		if err != nil {
			slog.Error("Failed to expire purchase", "purchase_id", purchaseRecord.Id, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.monitor.TrackExpired(expired)
		slog.Info("Expired stale purchases", "count", expired)
	}
	return expired, nil
}
