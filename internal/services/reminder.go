package services

import (
	"context"
	"fmt"
	"log/slog"

	"pass-system/internal/notify"
	"pass-system/internal/store"
	"pass-system/models"
	"pass-system/monitoring"
)

// ReminderService runs the daily sweep over verified, still unused passes.
// The per-ticket sent flag is flipped with a conditional update, so the
// sweep is idempotent and safe to re-run after a crash or on an overlapping
// schedule.
type ReminderService struct {
	store      store.Store
	dispatcher *notify.Dispatcher
}

func NewReminderService(st store.Store, dispatcher *notify.Dispatcher) *ReminderService {
	return &ReminderService{store: st, dispatcher: dispatcher}
}

// Sweep returns how many reminders it claimed this run.
func (s *ReminderService) Sweep(ctx context.Context) (int, error) {
	notSent := false
	tickets, err := s.store.ListTickets(ctx, store.TicketFilter{
		Status:       models.TicketVerified,
		ReminderSent: &notSent,
	})
	if err != nil {
		return 0, err
	}

	claimed := 0
	for _, t := range tickets {
		if t.FullyUsed() {
			continue
		}

		ok, err := s.store.MarkReminderSent(ctx, t.ID)
		if err != nil {
			slog.Error("reminder: marking ticket", "ticket", t.ID, "error", err)
			continue
		}
		if !ok {
			// another sweep got here first
			continue
		}

		claimed++
		monitoring.ReminderSent()
		s.dispatcher.Publish(ctx, notify.RKReminderDue, &notify.ReminderDue{
			Code:    t.Code,
			Holder:  t.Holder,
			Contact: t.HolderContact,
		})
	}

	if claimed > 0 {
		err := s.store.AppendAdminLog(ctx, &models.AdminLog{
			Actor:      "system",
			Action:     models.ActionReminderSweep,
			TargetType: "ticket",
			TargetID:   "*",
			Detail:     fmt.Sprintf("%d reminder(s) queued", claimed),
		})
		if err != nil {
			slog.Error("reminder: audit log write failed", "error", err)
		}
	}

	return claimed, nil
}
