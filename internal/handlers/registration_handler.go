package handlers

import (
	"log/slog"
	"net/http"

	"pass-system/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type RegistrationHandler struct {
	app      *pocketbase.PocketBase
	issuance *services.IssuanceService
}

func NewRegistrationHandler(app *pocketbase.PocketBase, issuance *services.IssuanceService) *RegistrationHandler {
	return &RegistrationHandler{
		app:      app,
		issuance: issuance,
	}
}

// CreateRegistration - register a holder and issue their passes
func (h *RegistrationHandler) CreateRegistration(e *core.RequestEvent) error {
	var req services.RegistrationRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	result, err := h.issuance.CreateTicket(e.Request.Context(), &req)
	if err != nil {
		slog.Error("registration failed",
			"holder", req.HolderContact,
			"class", req.Class,
			"error", err,
		)
		return toAPIError(err)
	}

	slog.Info("registration complete",
		"payment_id", result.Payment.ID,
		"tickets", len(result.Tickets),
		"status", result.Payment.Status,
	)

	return e.JSON(http.StatusCreated, result)
}
