package models

import (
	"errors"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

type Raffle struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Image           string     `json:"image,omitempty"`
	NumberStart     int        `json:"number_start"`
	NumberEnd       int        `json:"number_end"`
	PricePerNumber  float64    `json:"price_per_number"`
	SaleStartAt     time.Time  `json:"sale_start_at"`
	SaleEndAt       time.Time  `json:"sale_end_at"`
	DrawScheduledAt time.Time  `json:"draw_scheduled_at"`
	WinnerNumber    *int       `json:"winner_number,omitempty"`
	OrganizerID     string     `json:"organizer_id"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

func RaffleFromRecord(r *core.Record) *Raffle {
	raffle := &Raffle{
		ID:              r.Id,
		Name:            r.GetString("name"),
		Description:     r.GetString("description"),
		Image:           r.GetString("image"),
		NumberStart:     r.GetInt("number_start"),
		NumberEnd:       r.GetInt("number_end"),
		PricePerNumber:  r.GetFloat("price_per_number"),
		SaleStartAt:     r.GetDateTime("sale_start_at").Time(),
		SaleEndAt:       r.GetDateTime("sale_end_at").Time(),
		DrawScheduledAt: r.GetDateTime("draw_scheduled_at").Time(),
		OrganizerID:     r.GetString("organizer"),
	}

	// winner_number is stored as a nullable JSON value so 0 stays a valid
	// winning number for ranges that start at zero.
	var winner *int
	if err := r.UnmarshalJSONField("winner_number", &winner); err == nil && winner != nil {
		raffle.WinnerNumber = winner
	}
	if deleted := r.GetDateTime("deleted_at"); !deleted.IsZero() {
		t := deleted.Time()
		raffle.DeletedAt = &t
	}

	return raffle
}

// IsOnSale reports whether numbers can currently be reserved.
func (r *Raffle) IsOnSale(now time.Time) bool {
	if r.DeletedAt != nil {
		return false
	}
	return !now.Before(r.SaleStartAt) && !now.After(r.SaleEndAt)
}

func (r *Raffle) InRange(number int) bool {
	return number >= r.NumberStart && number <= r.NumberEnd
}

func (r *Raffle) TotalNumbers() int {
	return r.NumberEnd - r.NumberStart + 1
}

func (r *Raffle) HasWinner() bool {
	return r.WinnerNumber != nil
}

// Validate enforces the write-time constraints on a raffle definition.
func (r *Raffle) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.NumberStart >= r.NumberEnd {
		return errors.New("number_end must be greater than number_start")
	}
	if r.PricePerNumber < 0 {
		return errors.New("price_per_number cannot be negative")
	}
	if !r.SaleStartAt.Before(r.SaleEndAt) {
		return errors.New("sale_end_at must be after sale_start_at")
	}
	if !r.SaleEndAt.Before(r.DrawScheduledAt) {
		return errors.New("draw_scheduled_at must be after sale_end_at")
	}
	if r.WinnerNumber != nil && !r.InRange(*r.WinnerNumber) {
		return errors.New("winner_number must fall within the configured range")
	}
	return nil
}
