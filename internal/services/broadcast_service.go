package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"pass-system/internal/notify"
	"pass-system/internal/status"
	"pass-system/internal/store"
	"pass-system/models"
	"pass-system/monitoring"
)

// BroadcastRequest selects recipients by simple ticket predicates and
// carries the message template. Template variables: {holder}, {code},
// {class}, {remaining}.
type BroadcastRequest struct {
	Class    string `json:"class,omitempty"`
	Status   string `json:"status,omitempty"`
	Subject  string `json:"subject"`
	Template string `json:"template"`
	Actor    string `json:"actor"`
}

type BroadcastResult struct {
	Selected int `json:"selected"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Deduped  int `json:"deduped"`
}

// BroadcastService pushes an operator-composed message to ticket holders.
// It is deliberately lower rigor than the ledger paths: plain batch
// iteration, one failure never aborts the rest.
type BroadcastService struct {
	store     store.Store
	notifiers []notify.Notifier
}

func NewBroadcastService(st store.Store, notifiers ...notify.Notifier) *BroadcastService {
	return &BroadcastService{store: st, notifiers: notifiers}
}

func (s *BroadcastService) Broadcast(ctx context.Context, req *BroadcastRequest) (*BroadcastResult, error) {
	if strings.TrimSpace(req.Template) == "" {
		return nil, status.Invalid("template", "required")
	}
	if req.Class != "" && !models.ValidClass(req.Class) {
		return nil, status.Invalid("class", "must be contestant or audience")
	}
	if req.Status != "" && req.Status != models.TicketPending && req.Status != models.TicketVerified {
		return nil, status.Invalid("status", "must be pending or verified")
	}

	tickets, err := s.store.ListTickets(ctx, store.TicketFilter{
		Class:  req.Class,
		Status: req.Status,
	})
	if err != nil {
		return nil, err
	}

	result := &BroadcastResult{Selected: len(tickets)}
	seen := map[string]bool{}

	for _, t := range tickets {
		if t.HolderContact == "" || seen[t.HolderContact] {
			result.Deduped++
			continue
		}
		seen[t.HolderContact] = true

		body := interpolate(req.Template, t)
		if s.deliver(ctx, t.HolderContact, req.Subject, body) {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	logErr := s.store.AppendAdminLog(ctx, &models.AdminLog{
		Actor:      req.Actor,
		Action:     models.ActionBroadcast,
		TargetType: "ticket",
		TargetID:   "*",
		Detail: fmt.Sprintf("class=%q status=%q selected=%d sent=%d failed=%d",
			req.Class, req.Status, result.Selected, result.Sent, result.Failed),
	})
	if logErr != nil {
		slog.Error("broadcast: audit log write failed", "error", logErr)
	}

	return result, nil
}

// deliver counts the recipient as sent when at least one channel took the
// message.
func (s *BroadcastService) deliver(ctx context.Context, recipient, subject, body string) bool {
	delivered := false
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, recipient, subject, body); err != nil {
			slog.Error("broadcast: delivery failed", "recipient", recipient, "error", err)
			monitoring.BroadcastDelivery(false)
			continue
		}
		monitoring.BroadcastDelivery(true)
		delivered = true
	}
	return delivered
}

func interpolate(template string, t *models.Ticket) string {
	return strings.NewReplacer(
		"{holder}", t.Holder,
		"{code}", t.Code,
		"{class}", t.Class,
		"{remaining}", strconv.Itoa(t.Remaining()),
	).Replace(template)
}
