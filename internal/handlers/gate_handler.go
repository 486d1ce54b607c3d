package handlers

import (
	"net/http"

	"pass-system/internal/scancode"
	"pass-system/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type GateHandler struct {
	app  *pocketbase.PocketBase
	gate *services.GateService
	qr   scancode.QRGenerator
}

func NewGateHandler(app *pocketbase.PocketBase, gate *services.GateService, qr scancode.QRGenerator) *GateHandler {
	return &GateHandler{
		app:  app,
		gate: gate,
		qr:   qr,
	}
}

// VerifyCode - read-only admissibility check for the gate UI
func (h *GateHandler) VerifyCode(e *core.RequestEvent) error {
	payload := e.Request.URL.Query().Get("code")
	if payload == "" {
		return apis.NewBadRequestError("code query parameter is required", nil)
	}

	verification, err := h.gate.Verify(e.Request.Context(), payload)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, verification)
}

// Admit - commit an admission against a scanned credential
func (h *GateHandler) Admit(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var body struct {
		Code  string `json:"code"`
		Count int    `json:"count"`
	}
	if err := e.BindBody(&body); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if body.Code == "" {
		return apis.NewBadRequestError("code is required", nil)
	}
	if body.Count == 0 {
		body.Count = 1
	}

	admission, err := h.gate.Admit(e.Request.Context(), body.Code, body.Count, e.Auth.Id)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, admission)
}

// TicketQR - the credential's scan payload rendered as a PNG
func (h *GateHandler) TicketQR(e *core.RequestEvent) error {
	code := e.Request.PathValue("code")

	verification, err := h.gate.Verify(e.Request.Context(), code)
	if err != nil {
		return toAPIError(err)
	}

	png, err := h.qr.Generate(verification.Ticket.ScanPayload)
	if err != nil {
		return apis.NewApiError(500, "failed to render QR image", err)
	}

	e.Response.Header().Set("Content-Type", "image/png")
	e.Response.WriteHeader(http.StatusOK)
	_, err = e.Response.Write(png)
	return err
}
