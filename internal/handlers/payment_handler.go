package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"raffle-system/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PaymentHandler struct {
	app           *pocketbase.PocketBase
	verifications *services.VerificationService
}

func NewPaymentHandler(app *pocketbase.PocketBase, verifications *services.VerificationService) *PaymentHandler {
	return &PaymentHandler{
		app:           app,
		verifications: verifications,
	}
}

// UploadReceipt - Multipart receipt upload against a purchase. The optional
// "numbers" form field ("5,6,7") restricts the receipt to a subset of the
// purchase's numbers; omitted, it covers every still-payable number.
func (h *PaymentHandler) UploadReceipt(e *core.RequestEvent) error {
	purchaseID := e.Request.PathValue("purchaseId")

	files, err := e.FindUploadedFiles("receipt_image")
	if err != nil || len(files) == 0 {
		return apis.NewBadRequestError("receipt_image file is required", err)
	}

	numbers, err := parseNumbers(e.Request.FormValue("numbers"))
	if err != nil {
		return apis.NewBadRequestError("numbers must be a comma separated list of integers", err)
	}

	caller := callerIdentity(e)
	if !caller.IsAuthenticated() && caller.Phone == "" {
		caller.Phone = e.Request.FormValue("phone")
	}

	result, err := h.verifications.UploadReceipt(services.UploadRequest{
		PurchaseID: purchaseID,
		Numbers:    numbers,
		Receipt:    files[0],
	}, caller)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusCreated, result)
}

// ListVerifications - Pending review queue for the calling organizer.
func (h *PaymentHandler) ListVerifications(e *core.RequestEvent) error {
	views, err := h.verifications.ListPending(callerIdentity(e))
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"verifications": views,
		"total":         len(views),
	})
}

// Verify - Organizer decision on a pending receipt.
func (h *PaymentHandler) Verify(e *core.RequestEvent) error {
	paymentID := e.Request.PathValue("paymentId")

	var req struct {
		Action string `json:"action"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	receipt, err := h.verifications.Verify(paymentID, req.Action, callerIdentity(e))
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message":      "Verification " + string(receipt.VerificationStatus),
		"verification": receipt,
	})
}

func parseNumbers(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	numbers := make([]int, 0, len(parts))
	for _, part := range parts {
		number, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		numbers = append(numbers, number)
	}
	return numbers, nil
}
