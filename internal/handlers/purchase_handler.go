package handlers

import (
	"net/http"

	"raffle-system/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PurchaseHandler struct {
	app          *pocketbase.PocketBase
	reservations *services.ReservationService
	purchases    *services.PurchaseService
}

func NewPurchaseHandler(app *pocketbase.PocketBase, reservations *services.ReservationService, purchases *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		app:          app,
		reservations: reservations,
		purchases:    purchases,
	}
}

// Reserve - Claim a set of numbers on a raffle. Succeeds fully or not at
// all; conflicting numbers come back in the error payload.
func (h *PurchaseHandler) Reserve(e *core.RequestEvent) error {
	var req services.ReservationRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	caller := callerIdentity(e)
	if !caller.IsAuthenticated() {
		caller.Phone = req.Guest.Phone
	}

	reservation, err := h.reservations.Reserve(e.Request.Context(), req, caller)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusCreated, reservation)
}

// ListPurchases - Personal panel. Authenticated users see their own
// purchases; guests look up by phone. Organizers may pass ?phone= to pull
// up a buyer's purchases for support.
func (h *PurchaseHandler) ListPurchases(e *core.RequestEvent) error {
	caller := callerIdentity(e)
	phone := e.Request.URL.Query().Get("phone")

	views, err := h.purchases.List(caller, phone)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"purchases": views,
		"total":     len(views),
	})
}

// Cancel - Release the pending numbers of a purchase. Idempotent: repeating
// the call on an already canceled purchase responds 200 again.
func (h *PurchaseHandler) Cancel(e *core.RequestEvent) error {
	purchaseID := e.Request.PathValue("purchaseId")

	purchase, err := h.purchases.Cancel(purchaseID, callerIdentity(e))
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message":  "Purchase canceled",
		"purchase": purchase,
	})
}
