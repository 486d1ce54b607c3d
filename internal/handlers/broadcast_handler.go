package handlers

import (
	"log/slog"
	"net/http"

	"pass-system/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type BroadcastHandler struct {
	app       *pocketbase.PocketBase
	broadcast *services.BroadcastService
}

func NewBroadcastHandler(app *pocketbase.PocketBase, broadcast *services.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{
		app:       app,
		broadcast: broadcast,
	}
}

// SendBroadcast - push an operator-composed message to matching holders
func (h *BroadcastHandler) SendBroadcast(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req services.BroadcastRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	req.Actor = e.Auth.Id

	result, err := h.broadcast.Broadcast(e.Request.Context(), &req)
	if err != nil {
		return toAPIError(err)
	}

	slog.Info("broadcast dispatched",
		"actor", req.Actor,
		"selected", result.Selected,
		"sent", result.Sent,
		"failed", result.Failed,
	)

	return e.JSON(http.StatusOK, result)
}
