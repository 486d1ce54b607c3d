package services

import (
	"context"
	"fmt"
	"time"

	"pass-system/internal/scancode"
	"pass-system/internal/status"
	"pass-system/internal/store"
	"pass-system/models"
	"pass-system/monitoring"
)

// admitRetries bounds the CAS retry loop when concurrent scans race on the
// same code.
const admitRetries = 5

// Verification is the read-only pre-check answer for the gate UI.
type Verification struct {
	Ticket     *models.Ticket `json:"ticket"`
	Admissible bool           `json:"admissible"`
	Reason     string         `json:"reason,omitempty"`
}

// Admission is the committed result of an admit call.
type Admission struct {
	Ticket      *models.Ticket `json:"ticket"`
	AdmittedNow int            `json:"admitted_now"`
}

// GateService enforces at-most-party-size entry per credential. Admit is the
// one operation in the system that must be serializable per ticket.
type GateService struct {
	store store.Store
}

func NewGateService(st store.Store) *GateService {
	return &GateService{store: st}
}

// Verify resolves a scanned or typed payload without committing anything.
// An unknown code (including an undecodable payload) is a not-found error.
func (s *GateService) Verify(ctx context.Context, payload string) (*Verification, error) {
	code := scancode.Decode(payload)
	if code == "" {
		return nil, status.NotFound("ticket code", payload)
	}

	ticket, err := s.store.FindTicketByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	reason, err := s.admissibility(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if reason == reasonFullyUsed {
		reason = fmt.Sprintf("%s at %s", reasonFullyUsed, firstAdmission(ticket).Format(time.RFC3339))
	}

	return &Verification{
		Ticket:     ticket,
		Admissible: reason == "",
		Reason:     reason,
	}, nil
}

// Admit consumes up to requested seats of the credential. The requested
// count is clamped to the remaining capacity; the increment is a
// compare-and-swap retried on conflict so two concurrent scans can never
// push the count past the party size.
func (s *GateService) Admit(ctx context.Context, payload string, requested int, operatorID string) (*Admission, error) {
	code := scancode.Decode(payload)
	if code == "" {
		return nil, status.NotFound("ticket code", payload)
	}
	if operatorID == "" {
		return nil, status.Invalid("operator_id", "required")
	}

	for attempt := 0; attempt < admitRetries; attempt++ {
		admission, conflicted, err := s.tryAdmit(ctx, code, requested, operatorID)
		if err != nil {
			monitoring.Admission("denied")
			return nil, err
		}
		if conflicted {
			continue
		}

		monitoring.Admission("admitted")
		return admission, nil
	}

	monitoring.Admission("contended")
	return nil, status.Conflict("admit", "concurrent admissions on this code, scan again")
}

func (s *GateService) tryAdmit(ctx context.Context, code string, requested int, operatorID string) (*Admission, bool, error) {
	var (
		admission  *Admission
		conflicted bool
	)

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		ticket, err := tx.FindTicketByCode(ctx, code)
		if err != nil {
			return err
		}

		reason, err := s.admissibilityTx(ctx, tx, ticket)
		if err != nil {
			return err
		}
		switch reason {
		case "":
		case reasonFullyUsed:
			return status.ConflictAt("admit", "pass already fully used", firstAdmission(ticket))
		default:
			return status.Conflict("admit", reason)
		}

		admitNow := ticket.ClampAdmit(requested)

		ok, err := tx.AdmitCAS(ctx, ticket.ID, ticket.AdmittedCount, admitNow, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			conflicted = true
			return nil
		}

		if err := tx.AppendAdminLog(ctx, &models.AdminLog{
			Actor:      operatorID,
			Action:     models.ActionAdmit,
			TargetType: "ticket",
			TargetID:   ticket.ID,
			Detail:     fmt.Sprintf("code %s, admitted %d of %d requested", ticket.Code, admitNow, requested),
		}); err != nil {
			return err
		}

		updated, err := tx.FindTicketByID(ctx, ticket.ID)
		if err != nil {
			return err
		}

		admission = &Admission{Ticket: updated, AdmittedNow: admitNow}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return admission, conflicted, nil
}

const reasonFullyUsed = "already fully used"

func (s *GateService) admissibility(ctx context.Context, ticket *models.Ticket) (string, error) {
	return s.admissibilityTx(ctx, s.store, ticket)
}

// admissibilityTx classifies why a ticket cannot be admitted, "" meaning it
// can. The unpaid cases are split so the operator can tell a waiting payer
// from a rejected one.
func (s *GateService) admissibilityTx(ctx context.Context, st store.Store, ticket *models.Ticket) (string, error) {
	if ticket.Status != models.TicketVerified {
		payment, err := st.FindPaymentByID(ctx, ticket.PaymentID)
		if err != nil {
			return "", err
		}
		if payment.Status == models.PaymentFailed {
			return "payment was rejected", nil
		}
		return "payment not yet verified", nil
	}

	if ticket.FullyUsed() {
		return reasonFullyUsed, nil
	}
	return "", nil
}

func firstAdmission(t *models.Ticket) time.Time {
	if t.AdmittedAt != nil {
		return *t.AdmittedAt
	}
	return t.UpdatedAt
}
