package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"raffle-system/internal/services"
	"raffle-system/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type RaffleHandler struct {
	app          *pocketbase.PocketBase
	availability *services.AvailabilityService
}

func NewRaffleHandler(app *pocketbase.PocketBase, availability *services.AvailabilityService) *RaffleHandler {
	return &RaffleHandler{
		app:          app,
		availability: availability,
	}
}

// ListRaffles - Public listing, soft-deleted raffles excluded.
// ?on_sale=true keeps only raffles currently inside their sale window.
func (h *RaffleHandler) ListRaffles(e *core.RequestEvent) error {
	records, err := h.app.FindRecordsByFilter(
		"raffles",
		"deleted_at = ''",
		"-created",
		0,
		0,
		dbx.Params{},
	)
	if err != nil {
		return toAPIError(err)
	}

	onSaleOnly := e.Request.URL.Query().Get("on_sale") == "true"
	now := time.Now()

	raffles := make([]*models.Raffle, 0, len(records))
	for _, record := range records {
		raffle := models.RaffleFromRecord(record)
		if onSaleOnly && !raffle.IsOnSale(now) {
			continue
		}
		raffles = append(raffles, raffle)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"raffles": raffles,
		"total":   len(raffles),
	})
}

// CreateRaffle - Organizer creates a raffle. The caller becomes the
// organizer; an image upload is optional.
func (h *RaffleHandler) CreateRaffle(e *core.RequestEvent) error {
	caller := callerIdentity(e)
	if !caller.IsAuthenticated() || caller.Role() != services.RoleOrganizer {
		return apis.NewForbiddenError("Only organizers can create raffles", nil)
	}

	var req struct {
		Name            string  `json:"name" form:"name"`
		Description     string  `json:"description" form:"description"`
		NumberStart     int     `json:"number_start" form:"number_start"`
		NumberEnd       int     `json:"number_end" form:"number_end"`
		PricePerNumber  float64 `json:"price_per_number" form:"price_per_number"`
		SaleStartAt     string  `json:"sale_start_at" form:"sale_start_at"`
		SaleEndAt       string  `json:"sale_end_at" form:"sale_end_at"`
		DrawScheduledAt string  `json:"draw_scheduled_at" form:"draw_scheduled_at"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	saleStart, err := time.Parse(time.RFC3339, req.SaleStartAt)
	if err != nil {
		return apis.NewBadRequestError("sale_start_at must be RFC3339", err)
	}
	saleEnd, err := time.Parse(time.RFC3339, req.SaleEndAt)
	if err != nil {
		return apis.NewBadRequestError("sale_end_at must be RFC3339", err)
	}
	drawAt, err := time.Parse(time.RFC3339, req.DrawScheduledAt)
	if err != nil {
		return apis.NewBadRequestError("draw_scheduled_at must be RFC3339", err)
	}

	raffle := &models.Raffle{
		Name:            req.Name,
		Description:     req.Description,
		NumberStart:     req.NumberStart,
		NumberEnd:       req.NumberEnd,
		PricePerNumber:  req.PricePerNumber,
		SaleStartAt:     saleStart,
		SaleEndAt:       saleEnd,
		DrawScheduledAt: drawAt,
		OrganizerID:     caller.UserID(),
	}
	if err := raffle.Validate(); err != nil {
		return apis.NewBadRequestError(err.Error(), err)
	}

	collection, err := h.app.FindCollectionByNameOrId("raffles")
	if err != nil {
		return toAPIError(err)
	}
	record := core.NewRecord(collection)
	record.Set("name", raffle.Name)
	record.Set("description", raffle.Description)
	record.Set("number_start", raffle.NumberStart)
	record.Set("number_end", raffle.NumberEnd)
	record.Set("price_per_number", raffle.PricePerNumber)
	record.Set("sale_start_at", raffle.SaleStartAt)
	record.Set("sale_end_at", raffle.SaleEndAt)
	record.Set("draw_scheduled_at", raffle.DrawScheduledAt)
	record.Set("organizer", raffle.OrganizerID)

	if files, err := e.FindUploadedFiles("image"); err == nil && len(files) > 0 {
		record.Set("image", files[0])
	}

	if err := h.app.Save(record); err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusCreated, models.RaffleFromRecord(record))
}

// GetRaffle - Public detail with an availability summary.
func (h *RaffleHandler) GetRaffle(e *core.RequestEvent) error {
	raffle, err := h.findRaffle(e.Request.PathValue("raffleId"))
	if err != nil {
		return toAPIError(err)
	}

	availability, err := h.availability.ForRaffle(h.app.DB(), raffle)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"raffle":  raffle,
		"summary": availability.Summary,
	})
}

// DeleteRaffle - Organizer soft delete. The raffle disappears from listings
// and stops selling; existing purchase history stays queryable.
func (h *RaffleHandler) DeleteRaffle(e *core.RequestEvent) error {
	caller := callerIdentity(e)

	record, err := h.app.FindRecordById("raffles", e.Request.PathValue("raffleId"))
	if err != nil {
		return apis.NewNotFoundError("Raffle not found", err)
	}
	raffle := models.RaffleFromRecord(record)

	if !caller.Organizes(raffle) {
		return apis.NewForbiddenError("Access denied", nil)
	}

	record.Set("deleted_at", time.Now())
	if err := h.app.Save(record); err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Raffle deleted"})
}

// GetAvailability - Per-number status for a raffle, computed from current
// ticket state on every call. Buyer details are only included for the
// raffle's organizer.
func (h *RaffleHandler) GetAvailability(e *core.RequestEvent) error {
	raffle, err := h.findRaffle(e.Request.PathValue("raffleId"))
	if err != nil {
		return toAPIError(err)
	}

	availability, err := h.availability.ForRaffle(h.app.DB(), raffle)
	if err != nil {
		return toAPIError(err)
	}

	if !callerIdentity(e).Organizes(raffle) {
		for i := range availability.Numbers {
			availability.Numbers[i].PurchaseID = ""
			availability.Numbers[i].BuyerName = ""
		}
	}

	return e.JSON(http.StatusOK, availability)
}

// GetManifest - Organizer-only sales manifest: every taken number with its
// purchase and buyer, canceled and expired holds excluded.
func (h *RaffleHandler) GetManifest(e *core.RequestEvent) error {
	caller := callerIdentity(e)

	raffle, err := h.findRaffle(e.Request.PathValue("raffleId"))
	if err != nil {
		return toAPIError(err)
	}
	if !caller.Organizes(raffle) {
		return apis.NewForbiddenError("Access denied", nil)
	}

	availability, err := h.availability.ForRaffle(h.app.DB(), raffle)
	if err != nil {
		return toAPIError(err)
	}

	entries := make([]services.NumberInfo, 0, len(availability.TakenNumbers))
	for _, info := range availability.Numbers {
		if info.Status != services.NumberAvailable {
			entries = append(entries, info)
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"raffle_id": raffle.ID,
		"entries":   entries,
		"summary":   availability.Summary,
	})
}

// findRaffle loads a raffle by id, treating soft-deleted ones as missing.
func (h *RaffleHandler) findRaffle(raffleID string) (*models.Raffle, error) {
	record, err := h.app.FindRecordById("raffles", raffleID)
	if err != nil {
		return nil, err
	}
	raffle := models.RaffleFromRecord(record)
	if raffle.DeletedAt != nil {
		return nil, sql.ErrNoRows
	}
	return raffle, nil
}
