package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"pass-system/internal/status"
	"pass-system/models"
	"pass-system/utils"
)

// Memory is an in-memory store used by tests and local development. A single
// mutex serializes transactions, which is also what makes it an honest model
// of the per-record guarantees the SQLite store provides.
type Memory struct {
	mu sync.Mutex

	payments map[string]*models.Payment
	tickets  map[string]*models.Ticket
	byCode   map[string]string // code -> ticket id, never deleted
	logs     []*models.AdminLog
}

func NewMemory() *Memory {
	return &Memory{
		payments: map[string]*models.Payment{},
		tickets:  map[string]*models.Ticket{},
		byCode:   map[string]string{},
	}
}

// memoryTx is the view handed to a transaction callback. It reuses the
// outer store's data without re-locking.
type memoryTx struct {
	s *Memory
}

func (s *Memory) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backupPayments := clonePayments(s.payments)
	backupTickets := cloneTickets(s.tickets)
	backupByCode := cloneCodes(s.byCode)
	backupLogs := append([]*models.AdminLog(nil), s.logs...)

	if err := fn(&memoryTx{s: s}); err != nil {
		s.payments = backupPayments
		s.tickets = backupTickets
		s.byCode = backupByCode
		s.logs = backupLogs
		return err
	}
	return nil
}

func (s *Memory) CreatePayment(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createPayment(p)
}

func (s *Memory) UpdatePayment(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatePayment(p)
}

func (s *Memory) FindPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findPaymentByID(id)
}

func (s *Memory) ListPaymentsByStatus(ctx context.Context, paymentStatus string) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listPaymentsByStatus(paymentStatus)
}

func (s *Memory) CreateTicket(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTicket(t)
}

func (s *Memory) UpdateTicket(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTicket(t)
}

func (s *Memory) FindTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTicketByID(id)
}

func (s *Memory) FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTicketByCode(code)
}

func (s *Memory) FindTicketsByPayment(ctx context.Context, paymentID string) ([]*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTicketsByPayment(paymentID)
}

func (s *Memory) ListTickets(ctx context.Context, f TicketFilter) ([]*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTickets(f)
}

func (s *Memory) CodeExists(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byCode[code]
	return ok, nil
}

func (s *Memory) AdmitCAS(ctx context.Context, ticketID string, expected, delta int, admittedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admitCAS(ticketID, expected, delta, admittedAt)
}

func (s *Memory) MarkReminderSent(ctx context.Context, ticketID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markReminderSent(ticketID)
}

func (s *Memory) AppendAdminLog(ctx context.Context, entry *models.AdminLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendAdminLog(entry)
}

// AdminLogs returns a snapshot of the audit trail, newest last.
func (s *Memory) AdminLogs() []*models.AdminLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.AdminLog(nil), s.logs...)
}

// transaction view delegates to the unlocked internals

func (tx *memoryTx) RunInTransaction(ctx context.Context, fn func(inner Store) error) error {
	// already serialized by the outer transaction
	return fn(tx)
}

func (tx *memoryTx) CreatePayment(ctx context.Context, p *models.Payment) error {
	return tx.s.createPayment(p)
}

func (tx *memoryTx) UpdatePayment(ctx context.Context, p *models.Payment) error {
	return tx.s.updatePayment(p)
}

func (tx *memoryTx) FindPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	return tx.s.findPaymentByID(id)
}

func (tx *memoryTx) ListPaymentsByStatus(ctx context.Context, paymentStatus string) ([]*models.Payment, error) {
	return tx.s.listPaymentsByStatus(paymentStatus)
}

func (tx *memoryTx) CreateTicket(ctx context.Context, t *models.Ticket) error {
	return tx.s.createTicket(t)
}

func (tx *memoryTx) UpdateTicket(ctx context.Context, t *models.Ticket) error {
	return tx.s.updateTicket(t)
}

func (tx *memoryTx) FindTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	return tx.s.findTicketByID(id)
}

func (tx *memoryTx) FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	return tx.s.findTicketByCode(code)
}

func (tx *memoryTx) FindTicketsByPayment(ctx context.Context, paymentID string) ([]*models.Ticket, error) {
	return tx.s.findTicketsByPayment(paymentID)
}

func (tx *memoryTx) ListTickets(ctx context.Context, f TicketFilter) ([]*models.Ticket, error) {
	return tx.s.listTickets(f)
}

func (tx *memoryTx) CodeExists(ctx context.Context, code string) (bool, error) {
	_, ok := tx.s.byCode[code]
	return ok, nil
}

func (tx *memoryTx) AdmitCAS(ctx context.Context, ticketID string, expected, delta int, admittedAt time.Time) (bool, error) {
	return tx.s.admitCAS(ticketID, expected, delta, admittedAt)
}

func (tx *memoryTx) MarkReminderSent(ctx context.Context, ticketID string) (bool, error) {
	return tx.s.markReminderSent(ticketID)
}

func (tx *memoryTx) AppendAdminLog(ctx context.Context, entry *models.AdminLog) error {
	return tx.s.appendAdminLog(entry)
}

// unlocked internals

func (s *Memory) createPayment(p *models.Payment) error {
	if p.ID == "" {
		id, err := utils.GenerateCode(8)
		if err != nil {
			return err
		}
		p.ID = "pay_" + strings.ToLower(id)
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.payments[p.ID] = clonePayment(p)
	return nil
}

func (s *Memory) updatePayment(p *models.Payment) error {
	if _, ok := s.payments[p.ID]; !ok {
		return status.NotFound("payment", p.ID)
	}
	p.UpdatedAt = time.Now()
	s.payments[p.ID] = clonePayment(p)
	return nil
}

func (s *Memory) findPaymentByID(id string) (*models.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return nil, status.NotFound("payment", id)
	}
	return clonePayment(p), nil
}

func (s *Memory) listPaymentsByStatus(paymentStatus string) ([]*models.Payment, error) {
	out := []*models.Payment{}
	for _, p := range s.payments {
		if p.Status == paymentStatus {
			out = append(out, clonePayment(p))
		}
	}
	return out, nil
}

func (s *Memory) createTicket(t *models.Ticket) error {
	if _, exists := s.byCode[t.Code]; exists {
		return status.ErrDuplicateCode
	}
	if t.ID == "" {
		id, err := utils.GenerateCode(8)
		if err != nil {
			return err
		}
		t.ID = "tkt_" + strings.ToLower(id)
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tickets[t.ID] = cloneTicket(t)
	s.byCode[t.Code] = t.ID
	return nil
}

func (s *Memory) updateTicket(t *models.Ticket) error {
	if _, ok := s.tickets[t.ID]; !ok {
		return status.NotFound("ticket", t.ID)
	}
	t.UpdatedAt = time.Now()
	s.tickets[t.ID] = cloneTicket(t)
	return nil
}

func (s *Memory) findTicketByID(id string) (*models.Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, status.NotFound("ticket", id)
	}
	return cloneTicket(t), nil
}

func (s *Memory) findTicketByCode(code string) (*models.Ticket, error) {
	id, ok := s.byCode[code]
	if !ok {
		return nil, status.NotFound("ticket code", code)
	}
	return s.findTicketByID(id)
}

func (s *Memory) findTicketsByPayment(paymentID string) ([]*models.Ticket, error) {
	out := []*models.Ticket{}
	for _, t := range s.tickets {
		if t.PaymentID == paymentID {
			out = append(out, cloneTicket(t))
		}
	}
	return out, nil
}

func (s *Memory) listTickets(f TicketFilter) ([]*models.Ticket, error) {
	out := []*models.Ticket{}
	for _, t := range s.tickets {
		if f.Class != "" && t.Class != f.Class {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.ReminderSent != nil && t.ReminderSent != *f.ReminderSent {
			continue
		}
		out = append(out, cloneTicket(t))
	}
	return out, nil
}

func (s *Memory) admitCAS(ticketID string, expected, delta int, admittedAt time.Time) (bool, error) {
	t, ok := s.tickets[ticketID]
	if !ok {
		return false, status.NotFound("ticket", ticketID)
	}
	if t.AdmittedCount != expected {
		return false, nil
	}
	t.AdmittedCount += delta
	if t.AdmittedAt == nil {
		at := admittedAt
		t.AdmittedAt = &at
	}
	t.UpdatedAt = time.Now()
	return true, nil
}

func (s *Memory) markReminderSent(ticketID string) (bool, error) {
	t, ok := s.tickets[ticketID]
	if !ok {
		return false, status.NotFound("ticket", ticketID)
	}
	if t.ReminderSent {
		return false, nil
	}
	t.ReminderSent = true
	t.UpdatedAt = time.Now()
	return true, nil
}

func (s *Memory) appendAdminLog(entry *models.AdminLog) error {
	if entry.ID == "" {
		id, err := utils.GenerateCode(8)
		if err != nil {
			return err
		}
		entry.ID = "log_" + strings.ToLower(id)
	}
	entry.CreatedAt = time.Now()
	s.logs = append(s.logs, entry)
	return nil
}

func clonePayment(p *models.Payment) *models.Payment {
	c := *p
	return &c
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	c := *t
	if t.AdmittedAt != nil {
		at := *t.AdmittedAt
		c.AdmittedAt = &at
	}
	return &c
}

func clonePayments(in map[string]*models.Payment) map[string]*models.Payment {
	out := make(map[string]*models.Payment, len(in))
	for k, v := range in {
		out[k] = clonePayment(v)
	}
	return out
}

func cloneTickets(in map[string]*models.Ticket) map[string]*models.Ticket {
	out := make(map[string]*models.Ticket, len(in))
	for k, v := range in {
		out[k] = cloneTicket(v)
	}
	return out
}

func cloneCodes(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
