// Package store persists the three record collections (payments, tickets,
// admin logs). The production implementation sits on PocketBase; the memory
// implementation backs tests and local development.
package store

import (
	"context"
	"time"

	"pass-system/models"
)

// TicketFilter narrows ListTickets. Zero values mean "any".
type TicketFilter struct {
	Class        string
	Status       string
	ReminderSent *bool
}

type Store interface {
	// RunInTransaction runs fn against a transactional view of the store.
	// Every state-mutating operation in the core runs inside exactly one
	// such transaction.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	CreatePayment(ctx context.Context, p *models.Payment) error
	UpdatePayment(ctx context.Context, p *models.Payment) error
	FindPaymentByID(ctx context.Context, id string) (*models.Payment, error)
	ListPaymentsByStatus(ctx context.Context, paymentStatus string) ([]*models.Payment, error)

	CreateTicket(ctx context.Context, t *models.Ticket) error
	UpdateTicket(ctx context.Context, t *models.Ticket) error
	FindTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error)
	FindTicketsByPayment(ctx context.Context, paymentID string) ([]*models.Ticket, error)
	ListTickets(ctx context.Context, f TicketFilter) ([]*models.Ticket, error)
	CodeExists(ctx context.Context, code string) (bool, error)

	// AdmitCAS bumps admitted_count by delta only when it still equals
	// expected, setting the admission timestamp on the first admission.
	// A false return means a concurrent admit won; the caller re-reads and
	// retries.
	AdmitCAS(ctx context.Context, ticketID string, expected, delta int, admittedAt time.Time) (bool, error)

	// MarkReminderSent flips the per-ticket sent flag, returning false when
	// another sweep already claimed it.
	MarkReminderSent(ctx context.Context, ticketID string) (bool, error)

	AppendAdminLog(ctx context.Context, entry *models.AdminLog) error
}
