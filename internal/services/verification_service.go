package services

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"raffle-system/internal/status"
	"raffle-system/models"
	"raffle-system/monitoring"
	"raffle-system/utils"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
	"github.com/shopspring/decimal"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// VerificationService reconciles uploaded payment receipts with ticket and
// purchase state: buyers attach a receipt to a subset of their numbers, the
// organizer approves or rejects it, and the covered tickets move with the
// decision.
type VerificationService struct {
	app      core.App
	notifier *Notifier
	monitor  *monitoring.Monitor
}

func NewVerificationService(app core.App, notifier *Notifier, monitor *monitoring.Monitor) *VerificationService {
	return &VerificationService{app: app, notifier: notifier, monitor: monitor}
}

type UploadRequest struct {
	PurchaseID string
	Numbers    []int
	Receipt    *filesystem.File
}

type UploadResult struct {
	Payment          *models.Payment        `json:"payment"`
	Receipt          *models.PaymentReceipt `json:"receipt"`
	RemainingNumbers []int                  `json:"remaining_numbers"`
}

// PlanReceipt resolves which numbers a new receipt covers and which remain
// payable afterwards. An empty selection is the legacy whole-order mode and
// resolves to every currently payable number, so stored receipts always
// carry an explicit list. A number is payable when its detail is pending and
// no pending verification already claims it.
func PlanReceipt(details []*models.PurchaseDetail, claimed map[int]bool, selected []int) (covered, remaining []int, err error) {
	payable := make(map[int]bool, len(details))
	inPurchase := make(map[int]bool, len(details))
	paid := make(map[int]bool)
	for _, detail := range details {
		inPurchase[detail.Number] = true
		switch detail.Status {
		case models.StatusPaid:
			paid[detail.Number] = true
		case models.StatusPending:
			if !claimed[detail.Number] {
				payable[detail.Number] = true
			}
		}
	}

	if len(selected) == 0 {
		for number := range payable {
			covered = append(covered, number)
		}
		if len(covered) == 0 {
			return nil, nil, status.ErrNoPayableNumbers
		}
	} else {
		var notInPurchase, conflicting []int
		seen := make(map[int]bool, len(selected))
		for _, number := range selected {
			if seen[number] {
				return nil, nil, status.ErrDuplicateNumbers
			}
			seen[number] = true

			switch {
			case !inPurchase[number]:
				notInPurchase = append(notInPurchase, number)
			case paid[number] || claimed[number]:
				conflicting = append(conflicting, number)
			}
		}
		if len(notInPurchase) > 0 {
			return nil, nil, status.NewNumberError(status.ErrNumbersNotInOrder, notInPurchase...)
		}
		if len(conflicting) > 0 {
			return nil, nil, status.NewNumberError(status.ErrNumberInVerification, conflicting...)
		}
		covered = append(covered, selected...)
	}

	coveredSet := make(map[int]bool, len(covered))
	for _, number := range covered {
		coveredSet[number] = true
	}
	for number := range payable {
		if !coveredSet[number] {
			remaining = append(remaining, number)
		}
	}

	sort.Ints(covered)
	sort.Ints(remaining)
	if remaining == nil {
		remaining = []int{}
	}
	return covered, remaining, nil
}

// CheckReceiptWindow refuses payment activity on a purchase whose reservation
// window has lapsed while it was still pending. Once a hold expires its
// numbers read as free again, so accepting a late receipt (or approving one)
// would put two live claims on the same number.
func CheckReceiptWindow(p *models.Purchase, now time.Time) error {
	if p.Expired(now) {
		return status.ErrReservationLapsed
	}
	return nil
}

// pendingClaims is the union of numbers held by the purchase's receipts that
// are still awaiting a decision.
func pendingClaims(app core.App, purchaseID string) (map[int]bool, error) {
	receipts, err := app.FindRecordsByFilter(
		"payment_receipts",
		"payment.purchase = {:purchaseId} && verification_status = {:pending}",
		"",
		0,
		0,
		dbx.Params{"purchaseId": purchaseID, "pending": string(models.VerificationPending)},
	)
	if err != nil {
		return nil, fmt.Errorf("find pending receipts: %w", err)
	}

	claimed := make(map[int]bool)
	for _, receipt := range receipts {
		var numbers []int
		if err := receipt.UnmarshalJSONField("selected_numbers", &numbers); err != nil {
			continue
		}
		for _, number := range numbers {
			claimed[number] = true
		}
	}
	return claimed, nil
}

func (s *VerificationService) UploadReceipt(req UploadRequest, caller Identity) (*UploadResult, error) {
	if req.Receipt == nil {
		return nil, status.ErrReceiptRequired
	}
	if caller.Phone != "" && !ValidPhone(caller.Phone) {
		return nil, status.ErrInvalidPhoneFormat
	}

	purchaseRecord, err := s.app.FindRecordById("purchases", req.PurchaseID)
	if err != nil {
		return nil, fmt.Errorf("find purchase %s: %w", req.PurchaseID, err)
	}
	purchase := models.PurchaseFromRecord(purchaseRecord)

	raffleRecord, err := s.app.FindRecordById("raffles", purchase.RaffleID)
	if err != nil {
		return nil, fmt.Errorf("find raffle %s: %w", purchase.RaffleID, err)
	}

	if !caller.CanManage(purchase, models.RaffleFromRecord(raffleRecord)) {
		return nil, status.ErrPermissionDenied
	}

	var result *UploadResult
	err = s.app.RunInTransaction(func(txApp core.App) error {
		// Re-read the purchase under the transaction: a sweep or cancel may
		// have landed since the auth check above.
		freshPurchase, err := txApp.FindRecordById("purchases", purchase.ID)
		if err != nil {
			return fmt.Errorf("reload purchase: %w", err)
		}
		if err := CheckReceiptWindow(models.PurchaseFromRecord(freshPurchase), time.Now()); err != nil {
			return err
		}

		detailRecords, err := txApp.FindRecordsByFilter(
			"purchase_details",
			"purchase = {:purchaseId}",
			"number",
			0,
			0,
			dbx.Params{"purchaseId": purchase.ID},
		)
		if err != nil {
			return fmt.Errorf("find details: %w", err)
		}
		details := make([]*models.PurchaseDetail, len(detailRecords))
		unitPrices := make(map[int]decimal.Decimal, len(detailRecords))
		for i, record := range detailRecords {
			details[i] = models.DetailFromRecord(record)
			unitPrices[details[i].Number] = decimal.NewFromFloat(details[i].UnitPrice)
		}

		claimed, err := pendingClaims(txApp, purchase.ID)
		if err != nil {
			return err
		}

		covered, remaining, err := PlanReceipt(details, claimed, req.Numbers)
		if err != nil {
			return err
		}

		amount := decimal.Zero
		for _, number := range covered {
			amount = amount.Add(unitPrices[number])
		}

		reference, err := utils.GenerateCode(4)
		if err != nil {
			return fmt.Errorf("generate payment reference: %w", err)
		}

		payments, err := txApp.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}
		paymentRecord := core.NewRecord(payments)
		paymentRecord.Set("purchase", purchase.ID)
		paymentRecord.Set("amount", amount.InexactFloat64())
		paymentRecord.Set("reference", reference)
		paymentRecord.Set("payment_date", time.Now())
		if caller.IsAuthenticated() {
			paymentRecord.Set("created_by", caller.UserID())
		}
		if err := txApp.Save(paymentRecord); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		receiptCollection, err := txApp.FindCollectionByNameOrId("payment_receipts")
		if err != nil {
			return err
		}
		receiptRecord := core.NewRecord(receiptCollection)
		receiptRecord.Set("payment", paymentRecord.Id)
		receiptRecord.Set("receipt_image", req.Receipt)
		receiptRecord.Set("selected_numbers", covered)
		receiptRecord.Set("verification_status", string(models.VerificationPending))
		if err := txApp.Save(receiptRecord); err != nil {
			return fmt.Errorf("save receipt: %w", err)
		}

		result = &UploadResult{
			Payment:          models.PaymentFromRecord(paymentRecord),
			Receipt:          models.ReceiptFromRecord(receiptRecord),
			RemainingNumbers: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Receipt uploaded",
		"purchase_id", purchase.ID,
		"payment_id", result.Payment.ID,
		"numbers", len(result.Receipt.SelectedNumbers),
	)
	return result, nil
}

// Verify applies the organizer's decision on a pending receipt. Approve
// marks every covered detail paid; reject reverts them to pending, keeping
// the reservation alive. Both recompute the aggregate purchase status in the
// same transaction. A decided receipt cannot be decided again.
func (s *VerificationService) Verify(paymentID, action string, caller Identity) (*models.PaymentReceipt, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, status.ErrInvalidAction
	}

	receiptRecord, err := s.app.FindFirstRecordByFilter(
		"payment_receipts",
		"payment = {:paymentId}",
		dbx.Params{"paymentId": paymentID},
	)
	if err != nil {
		return nil, fmt.Errorf("find receipt for payment %s: %w", paymentID, err)
	}

	paymentRecord, err := s.app.FindRecordById("payments", receiptRecord.GetString("payment"))
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	purchaseRecord, err := s.app.FindRecordById("purchases", paymentRecord.GetString("purchase"))
	if err != nil {
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	purchase := models.PurchaseFromRecord(purchaseRecord)

	raffleRecord, err := s.app.FindRecordById("raffles", purchase.RaffleID)
	if err != nil {
		return nil, fmt.Errorf("find raffle: %w", err)
	}

	if !caller.Organizes(models.RaffleFromRecord(raffleRecord)) {
		return nil, status.ErrPermissionDenied
	}

	receipt := models.ReceiptFromRecord(receiptRecord)
	if receipt.Decided() {
		return nil, status.ErrVerificationClosed
	}

	var updated *models.PaymentReceipt
	err = s.app.RunInTransaction(func(txApp core.App) error {
		// The pre-check above raced against cancels and concurrent decisions;
		// only the rows read under this transaction are authoritative.
		currentReceipt, err := txApp.FindRecordById("payment_receipts", receiptRecord.Id)
		if err != nil {
			return fmt.Errorf("reload receipt: %w", err)
		}
		current := models.ReceiptFromRecord(currentReceipt)
		if current.Decided() {
			return status.ErrVerificationClosed
		}

		freshPurchase, err := txApp.FindRecordById("purchases", purchase.ID)
		if err != nil {
			return fmt.Errorf("reload purchase: %w", err)
		}

		decision := models.VerificationApproved
		detailStatus := models.StatusPaid
		if action == ActionReject {
			decision = models.VerificationRejected
			detailStatus = models.StatusPending
		} else if err := CheckReceiptWindow(models.PurchaseFromRecord(freshPurchase), time.Now()); err != nil {
			return err
		}

		covered := make(map[int]bool, len(current.SelectedNumbers))
		for _, number := range current.SelectedNumbers {
			covered[number] = true
		}

		detailRecords, err := txApp.FindRecordsByFilter(
			"purchase_details",
			"purchase = {:purchaseId}",
			"number",
			0,
			0,
			dbx.Params{"purchaseId": purchase.ID},
		)
		if err != nil {
			return fmt.Errorf("find details: %w", err)
		}
		for _, detail := range detailRecords {
			if !covered[detail.GetInt("number")] {
				continue
			}
			detail.Set("status", string(detailStatus))
			if err := txApp.Save(detail); err != nil {
				return fmt.Errorf("update detail %s: %w", detail.Id, err)
			}
		}

		currentReceipt.Set("verification_status", string(decision))
		currentReceipt.Set("verification_date", time.Now())
		currentReceipt.Set("verified_by", caller.UserID())
		if err := txApp.Save(currentReceipt); err != nil {
			return fmt.Errorf("save receipt: %w", err)
		}

		if err := RecomputeStatus(txApp, freshPurchase); err != nil {
			return err
		}

		updated = models.ReceiptFromRecord(currentReceipt)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.monitor.TrackVerification(action)
	s.notifier.VerificationDecided(purchase, updated)
	slog.Info("Verification decided",
		"payment_id", paymentID,
		"action", action,
		"purchase_id", purchase.ID,
	)
	return updated, nil
}

type VerificationView struct {
	models.PaymentReceipt

	PurchaseID string  `json:"purchase_id"`
	RaffleID   string  `json:"raffle_id"`
	Amount     float64 `json:"amount"`
	BuyerName  string  `json:"buyer_name,omitempty"`
}

// ListPending returns the review queue for the caller's raffles.
func (s *VerificationService) ListPending(caller Identity) ([]VerificationView, error) {
	if !caller.IsAuthenticated() || caller.Role() != RoleOrganizer {
		return nil, status.ErrPermissionDenied
	}

	receipts, err := s.app.FindRecordsByFilter(
		"payment_receipts",
		"verification_status = {:pending} && payment.purchase.raffle.organizer = {:organizerId}",
		"-created",
		0,
		0,
		dbx.Params{
			"pending":     string(models.VerificationPending),
			"organizerId": caller.UserID(),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("find pending receipts: %w", err)
	}

	views := make([]VerificationView, 0, len(receipts))
	for _, receiptRecord := range receipts {
		view := VerificationView{PaymentReceipt: *models.ReceiptFromRecord(receiptRecord)}

		paymentRecord, err := s.app.FindRecordById("payments", view.PaymentID)
		if err != nil {
			continue
		}
		view.Amount = paymentRecord.GetFloat("amount")
		view.PurchaseID = paymentRecord.GetString("purchase")

		if purchaseRecord, err := s.app.FindRecordById("purchases", view.PurchaseID); err == nil {
			view.RaffleID = purchaseRecord.GetString("raffle")
			view.BuyerName = purchaseRecord.GetString("guest_name")
			if customerID := purchaseRecord.GetString("customer"); customerID != "" {
				if customer, err := s.app.FindRecordById("users", customerID); err == nil {
					view.BuyerName = customer.GetString("name")
					if view.BuyerName == "" {
						view.BuyerName = customer.GetString("email")
					}
				}
			}
		}

		views = append(views, view)
	}

	return views, nil
}
