package handlers

import (
	"net/http"
	"strings"

	"pass-system/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PaymentHandler struct {
	app    *pocketbase.PocketBase
	review *services.ReviewService
}

func NewPaymentHandler(app *pocketbase.PocketBase, review *services.ReviewService) *PaymentHandler {
	return &PaymentHandler{
		app:    app,
		review: review,
	}
}

// GetPaymentDetails - payment plus the tickets it funds
func (h *PaymentHandler) GetPaymentDetails(e *core.RequestEvent) error {
	paymentID := e.Request.PathValue("paymentId")

	payment, tickets, err := h.review.GetPayment(e.Request.Context(), paymentID)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"payment": payment,
		"tickets": tickets,
	})
}

// AttachProof - payer uploads a transfer slip reference for review
func (h *PaymentHandler) AttachProof(e *core.RequestEvent) error {
	paymentID := e.Request.PathValue("paymentId")

	var body struct {
		ProofRef string `json:"proof_ref"`
	}
	if err := e.BindBody(&body); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if strings.TrimSpace(body.ProofRef) == "" {
		return apis.NewBadRequestError("proof_ref is required", nil)
	}

	payment, err := h.review.RecordProof(e.Request.Context(), paymentID, body.ProofRef)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, payment)
}

// ApprovePayment - reviewer accepts a bank transfer
func (h *PaymentHandler) ApprovePayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	paymentID := e.Request.PathValue("paymentId")

	payment, tickets, err := h.review.Approve(e.Request.Context(), paymentID, e.Auth.Id)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"payment": payment,
		"tickets": tickets,
	})
}

// RejectPayment - reviewer declines a bank transfer with a reason
func (h *PaymentHandler) RejectPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	paymentID := e.Request.PathValue("paymentId")

	var body struct {
		Reason string `json:"reason"`
	}
	if err := e.BindBody(&body); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	payment, err := h.review.Reject(e.Request.Context(), paymentID, e.Auth.Id, body.Reason)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, payment)
}

// ListReviewQueue - pending bank transfers, oldest first
func (h *PaymentHandler) ListReviewQueue(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	payments, err := h.review.ListReviewQueue(e.Request.Context())
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"payments": payments,
		"count":    len(payments),
	})
}
