package models

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// Status is shared by purchases and their details. A detail carries its own
// status independently of the parent purchase.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

type Purchase struct {
	ID          string    `json:"id"`
	RaffleID    string    `json:"raffle_id"`
	CustomerID  string    `json:"customer_id,omitempty"`
	GuestName   string    `json:"guest_name,omitempty"`
	GuestPhone  string    `json:"guest_phone,omitempty"`
	GuestEmail  string    `json:"guest_email,omitempty"`
	Status      Status    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	RefCode     string    `json:"ref_code"`
	ReservedAt  time.Time `json:"reserved_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type PurchaseDetail struct {
	ID         string  `json:"id"`
	PurchaseID string  `json:"purchase_id"`
	Number     int     `json:"number"`
	UnitPrice  float64 `json:"unit_price"`
	Status     Status  `json:"status"`
}

func PurchaseFromRecord(r *core.Record) *Purchase {
	return &Purchase{
		ID:          r.Id,
		RaffleID:    r.GetString("raffle"),
		CustomerID:  r.GetString("customer"),
		GuestName:   r.GetString("guest_name"),
		GuestPhone:  r.GetString("guest_phone"),
		GuestEmail:  r.GetString("guest_email"),
		Status:      Status(r.GetString("status")),
		TotalAmount: r.GetFloat("total_amount"),
		RefCode:     r.GetString("ref_code"),
		ReservedAt:  r.GetDateTime("reserved_at").Time(),
		ExpiresAt:   r.GetDateTime("expires_at").Time(),
	}
}

func DetailFromRecord(r *core.Record) *PurchaseDetail {
	return &PurchaseDetail{
		ID:         r.Id,
		PurchaseID: r.GetString("purchase"),
		Number:     r.GetInt("number"),
		UnitPrice:  r.GetFloat("unit_price"),
		Status:     Status(r.GetString("status")),
	}
}

func (p *Purchase) IsGuest() bool {
	return p.CustomerID == ""
}

// Expired reports whether a still-pending purchase has outlived its
// reservation window. Terminal statuses are never "expired" retroactively.
func (p *Purchase) Expired(now time.Time) bool {
	return p.Status == StatusPending && !p.ExpiresAt.After(now)
}

// DeriveStatus recomputes a purchase's aggregate status from its details.
// A uniform set adopts the shared status. A mixed set with at least one paid
// detail counts as paid overall; any other mix stays pending until resolved.
func DeriveStatus(details []Status) Status {
	if len(details) == 0 {
		return StatusPending
	}

	uniform := true
	anyPaid := false
	for _, s := range details {
		if s != details[0] {
			uniform = false
		}
		if s == StatusPaid {
			anyPaid = true
		}
	}

	if uniform {
		return details[0]
	}
	if anyPaid {
		return StatusPaid
	}
	return StatusPending
}
