package models

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

type Payment struct {
	ID          string    `json:"id"`
	PurchaseID  string    `json:"purchase_id"`
	Amount      float64   `json:"amount"`
	Reference   string    `json:"reference"`
	PaymentDate time.Time `json:"payment_date"`
	CreatedByID string    `json:"created_by,omitempty"`
}

// PaymentReceipt is the organizer-reviewed claim that an uploaded receipt
// pays for a specific subset of a purchase's numbers.
type PaymentReceipt struct {
	ID                 string             `json:"id"`
	PaymentID          string             `json:"payment_id"`
	ReceiptImage       string             `json:"receipt_image"`
	SelectedNumbers    []int              `json:"selected_numbers"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	VerificationDate   *time.Time         `json:"verification_date,omitempty"`
	VerifiedByID       string             `json:"verified_by,omitempty"`
}

func PaymentFromRecord(r *core.Record) *Payment {
	return &Payment{
		ID:          r.Id,
		PurchaseID:  r.GetString("purchase"),
		Amount:      r.GetFloat("amount"),
		Reference:   r.GetString("reference"),
		PaymentDate: r.GetDateTime("payment_date").Time(),
		CreatedByID: r.GetString("created_by"),
	}
}

func ReceiptFromRecord(r *core.Record) *PaymentReceipt {
	receipt := &PaymentReceipt{
		ID:                 r.Id,
		PaymentID:          r.GetString("payment"),
		ReceiptImage:       r.GetString("receipt_image"),
		VerificationStatus: VerificationStatus(r.GetString("verification_status")),
		VerifiedByID:       r.GetString("verified_by"),
	}

	if err := r.UnmarshalJSONField("selected_numbers", &receipt.SelectedNumbers); err != nil {
		receipt.SelectedNumbers = nil
	}
	if verified := r.GetDateTime("verification_date"); !verified.IsZero() {
		t := verified.Time()
		receipt.VerificationDate = &t
	}

	return receipt
}

func (r *PaymentReceipt) Decided() bool {
	return r.VerificationStatus != VerificationPending
}
