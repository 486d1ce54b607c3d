package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"pass-system/internal/status"
	"pass-system/models"
)

const (
	collectionPayments  = "payments"
	collectionTickets   = "tickets"
	collectionAdminLogs = "admin_logs"
)

// PB is the PocketBase-backed store. Transactions map onto
// app.RunInTransaction, the unique ticket-code index backs CodeExists, and
// the admission counter is bumped with a conditional UPDATE.
type PB struct {
	app core.App
}

func NewPB(app core.App) *PB {
	return &PB{app: app}
}

func (s *PB) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(&PB{app: txApp})
	})
}

func (s *PB) CreatePayment(ctx context.Context, p *models.Payment) error {
	collection, err := s.app.FindCollectionByNameOrId(collectionPayments)
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	applyPayment(record, p)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return err
	}

	hydratePayment(p, record)
	return nil
}

func (s *PB) UpdatePayment(ctx context.Context, p *models.Payment) error {
	record, err := s.app.FindRecordById(collectionPayments, p.ID)
	if err != nil {
		return status.NotFound("payment", p.ID)
	}

	applyPayment(record, p)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return err
	}

	hydratePayment(p, record)
	return nil
}

func (s *PB) FindPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	record, err := s.app.FindRecordById(collectionPayments, id)
	if err != nil {
		return nil, status.NotFound("payment", id)
	}
	return paymentFromRecord(record), nil
}

func (s *PB) ListPaymentsByStatus(ctx context.Context, paymentStatus string) ([]*models.Payment, error) {
	records, err := s.app.FindRecordsByFilter(
		collectionPayments,
		"status = {:status}",
		"-created",
		0,
		0,
		dbx.Params{"status": paymentStatus},
	)
	if err != nil {
		return nil, err
	}

	payments := make([]*models.Payment, 0, len(records))
	for _, r := range records {
		payments = append(payments, paymentFromRecord(r))
	}
	return payments, nil
}

func (s *PB) CreateTicket(ctx context.Context, t *models.Ticket) error {
	collection, err := s.app.FindCollectionByNameOrId(collectionTickets)
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	applyTicket(record, t)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		if isUniqueViolation(err) {
			return status.ErrDuplicateCode
		}
		return err
	}

	hydrateTicket(t, record)
	return nil
}

func (s *PB) UpdateTicket(ctx context.Context, t *models.Ticket) error {
	record, err := s.app.FindRecordById(collectionTickets, t.ID)
	if err != nil {
		return status.NotFound("ticket", t.ID)
	}

	applyTicket(record, t)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return err
	}

	hydrateTicket(t, record)
	return nil
}

func (s *PB) FindTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById(collectionTickets, id)
	if err != nil {
		return nil, status.NotFound("ticket", id)
	}
	return ticketFromRecord(record), nil
}

func (s *PB) FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	record, err := s.app.FindFirstRecordByData(collectionTickets, "code", code)
	if err != nil {
		return nil, status.NotFound("ticket code", code)
	}
	return ticketFromRecord(record), nil
}

func (s *PB) FindTicketsByPayment(ctx context.Context, paymentID string) ([]*models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		collectionTickets,
		"payment = {:payment}",
		"created",
		0,
		0,
		dbx.Params{"payment": paymentID},
	)
	if err != nil {
		return nil, err
	}

	tickets := make([]*models.Ticket, 0, len(records))
	for _, r := range records {
		tickets = append(tickets, ticketFromRecord(r))
	}
	return tickets, nil
}

func (s *PB) ListTickets(ctx context.Context, f TicketFilter) ([]*models.Ticket, error) {
	exprs := []string{}
	params := dbx.Params{}

	if f.Class != "" {
		exprs = append(exprs, "class = {:class}")
		params["class"] = f.Class
	}
	if f.Status != "" {
		exprs = append(exprs, "status = {:ticketStatus}")
		params["ticketStatus"] = f.Status
	}
	if f.ReminderSent != nil {
		exprs = append(exprs, "reminder_sent = {:reminderSent}")
		params["reminderSent"] = *f.ReminderSent
	}

	filter := "id != ''"
	if len(exprs) > 0 {
		filter = strings.Join(exprs, " && ")
	}

	records, err := s.app.FindRecordsByFilter(collectionTickets, filter, "created", 0, 0, params)
	if err != nil {
		return nil, err
	}

	tickets := make([]*models.Ticket, 0, len(records))
	for _, r := range records {
		tickets = append(tickets, ticketFromRecord(r))
	}
	return tickets, nil
}

func (s *PB) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := s.app.FindFirstRecordByData(collectionTickets, "code", code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PB) AdmitCAS(ctx context.Context, ticketID string, expected, delta int, admittedAt time.Time) (bool, error) {
	ts, err := types.ParseDateTime(admittedAt.UTC())
	if err != nil {
		return false, err
	}

	res, err := s.app.DB().NewQuery(
		`UPDATE tickets
		 SET admitted_count = {:next},
		     admitted_at = CASE WHEN admitted_at = '' OR admitted_at IS NULL THEN {:ts} ELSE admitted_at END,
		     updated = {:ts}
		 WHERE id = {:id} AND admitted_count = {:current}`,
	).Bind(dbx.Params{
		"next":    expected + delta,
		"ts":      ts.String(),
		"id":      ticketID,
		"current": expected,
	}).WithContext(ctx).Execute()
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PB) MarkReminderSent(ctx context.Context, ticketID string) (bool, error) {
	res, err := s.app.DB().NewQuery(
		`UPDATE tickets
		 SET reminder_sent = TRUE
		 WHERE id = {:id} AND reminder_sent = FALSE`,
	).Bind(dbx.Params{"id": ticketID}).WithContext(ctx).Execute()
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PB) AppendAdminLog(ctx context.Context, entry *models.AdminLog) error {
	collection, err := s.app.FindCollectionByNameOrId(collectionAdminLogs)
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("actor", entry.Actor)
	record.Set("action", entry.Action)
	record.Set("target_type", entry.TargetType)
	record.Set("target_id", entry.TargetID)
	record.Set("detail", entry.Detail)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return err
	}

	entry.ID = record.Id
	entry.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

// isUniqueViolation reports whether err is a duplicate ticket code. Record
// saves surface the unique index as a normalized "validation_not_unique"
// error on the code field; raw queries surface the sqlite constraint code.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var vErrs validation.Errors
	if errors.As(err, &vErrs) {
		fieldErr, ok := vErrs["code"].(validation.Error)
		return ok && fieldErr.Code() == "validation_not_unique"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}

	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func applyPayment(r *core.Record, p *models.Payment) {
	r.Set("payer", p.Payer)
	r.Set("payer_name", p.PayerName)
	r.Set("amount", p.Amount)
	r.Set("method", p.Method)
	r.Set("status", p.Status)
	r.Set("gateway_ref", p.GatewayRef)
	r.Set("proof_ref", p.ProofRef)
	r.Set("reject_reason", p.RejectReason)
}

func hydratePayment(p *models.Payment, r *core.Record) {
	p.ID = r.Id
	p.CreatedAt = r.GetDateTime("created").Time()
	p.UpdatedAt = r.GetDateTime("updated").Time()
}

func paymentFromRecord(r *core.Record) *models.Payment {
	return &models.Payment{
		ID:           r.Id,
		Payer:        r.GetString("payer"),
		PayerName:    r.GetString("payer_name"),
		Amount:       int64(r.GetInt("amount")),
		Method:       r.GetString("method"),
		Status:       r.GetString("status"),
		GatewayRef:   r.GetString("gateway_ref"),
		ProofRef:     r.GetString("proof_ref"),
		RejectReason: r.GetString("reject_reason"),
		CreatedAt:    r.GetDateTime("created").Time(),
		UpdatedAt:    r.GetDateTime("updated").Time(),
	}
}

func applyTicket(r *core.Record, t *models.Ticket) {
	r.Set("payment", t.PaymentID)
	r.Set("holder", t.Holder)
	r.Set("holder_contact", t.HolderContact)
	r.Set("class", t.Class)
	r.Set("code", t.Code)
	r.Set("scan_payload", t.ScanPayload)
	r.Set("status", t.Status)
	r.Set("party_size", t.PartySize)
	r.Set("admitted_count", t.AdmittedCount)
	r.Set("primary_ticket", t.PrimaryTicket)
	r.Set("reminder_sent", t.ReminderSent)

	if t.AdmittedAt != nil {
		r.Set("admitted_at", t.AdmittedAt.UTC())
	} else {
		r.Set("admitted_at", "")
	}
}

func hydrateTicket(t *models.Ticket, r *core.Record) {
	t.ID = r.Id
	t.CreatedAt = r.GetDateTime("created").Time()
	t.UpdatedAt = r.GetDateTime("updated").Time()
}

func ticketFromRecord(r *core.Record) *models.Ticket {
	t := &models.Ticket{
		ID:            r.Id,
		PaymentID:     r.GetString("payment"),
		Holder:        r.GetString("holder"),
		HolderContact: r.GetString("holder_contact"),
		Class:         r.GetString("class"),
		Code:          r.GetString("code"),
		ScanPayload:   r.GetString("scan_payload"),
		Status:        r.GetString("status"),
		PartySize:     r.GetInt("party_size"),
		AdmittedCount: r.GetInt("admitted_count"),
		PrimaryTicket: r.GetString("primary_ticket"),
		ReminderSent:  r.GetBool("reminder_sent"),
		CreatedAt:     r.GetDateTime("created").Time(),
		UpdatedAt:     r.GetDateTime("updated").Time(),
	}

	if admitted := r.GetDateTime("admitted_at"); !admitted.IsZero() {
		at := admitted.Time()
		t.AdmittedAt = &at
	}
	return t
}
