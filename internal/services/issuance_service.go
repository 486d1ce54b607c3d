package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"pass-system/internal/notify"
	"pass-system/internal/scancode"
	"pass-system/internal/services/gateway"
	"pass-system/internal/status"
	"pass-system/internal/store"
	"pass-system/models"
	"pass-system/monitoring"
	"pass-system/utils"
)

// codeAttempts bounds the collision-regenerate loop per ticket.
const codeAttempts = 5

const captureTimeout = 15 * time.Second

// Pricing is the per-class price list in minor currency units.
type Pricing struct {
	ContestantMinor int64
	AudienceMinor   int64
	Currency        string
}

// RegistrationRequest is the payload handed over by the registration intake.
type RegistrationRequest struct {
	HolderName    string `json:"holder_name"`
	HolderContact string `json:"holder_contact"`
	Class         string `json:"class"`
	PartySize     int    `json:"party_size"`  // people admitted by the primary credential
	GuestCount    int    `json:"guest_count"` // bundled audience passes, own credential each
	TotalAmount   int64  `json:"total_amount"`
	Method        string `json:"method"`
	CardToken     string `json:"card_token,omitempty"`
}

// IssuanceResult is what a successful createTicket returns: one payment and
// every ticket it funds, primary first.
type IssuanceResult struct {
	Payment *models.Payment  `json:"payment"`
	Tickets []*models.Ticket `json:"tickets"`
}

// IssuanceService converts a registration payload plus a payment method into
// one Payment and 1..N coded Tickets, atomically.
type IssuanceService struct {
	store      store.Store
	gateway    gateway.Interface
	dispatcher *notify.Dispatcher
	redis      *redis.Client
	breaker    *utils.CircuitBreaker
	pricing    Pricing
}

func NewIssuanceService(st store.Store, gw gateway.Interface, dispatcher *notify.Dispatcher, redisClient *redis.Client, pricing Pricing) *IssuanceService {
	return &IssuanceService{
		store:      st,
		gateway:    gw,
		dispatcher: dispatcher,
		redis:      redisClient,
		breaker:    utils.NewCircuitBreaker("card-gateway"),
		pricing:    pricing,
	}
}

// CreateTicket is the single entry point for both payment paths.
//
// Card: the capture happens first; only a captured charge commits a success
// payment with verified tickets, and a declined or failed capture commits a
// failed payment with no tickets at all.
//
// Bank transfer: payment and tickets commit as pending and stay out of the
// gate until a reviewer approves the proof.
func (s *IssuanceService) CreateTicket(ctx context.Context, req *RegistrationRequest) (*IssuanceResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		Payer:     req.HolderContact,
		PayerName: req.HolderName,
		Amount:    req.TotalAmount,
		Method:    req.Method,
		Status:    models.PaymentPending,
	}

	if req.Method == models.MethodCard {
		result, err := s.capture(ctx, req)
		if err != nil {
			s.recordFailedPayment(ctx, payment, fmt.Sprintf("capture error: %v", err))
			return nil, err
		}
		if !result.Captured {
			reason := result.FailureMessage
			if reason == "" {
				reason = result.FailureCode
			}
			payment.GatewayRef = result.GatewayRef
			s.recordFailedPayment(ctx, payment, "declined: "+reason)
			return nil, fmt.Errorf("%w: %s", status.ErrFailedPayment, reason)
		}
		payment.Status = models.PaymentSuccess
		payment.GatewayRef = result.GatewayRef
	}

	tickets := buildTickets(req, payment)

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		for _, t := range tickets {
			t.PaymentID = payment.ID
			if err := s.createWithFreshCode(ctx, tx, t); err != nil {
				return err
			}
		}

		// bundled add-ons reference the primary credential
		for _, t := range tickets[1:] {
			t.PrimaryTicket = tickets[0].ID
			if err := tx.UpdateTicket(ctx, t); err != nil {
				return err
			}
		}

		return tx.AppendAdminLog(ctx, &models.AdminLog{
			Actor:      req.HolderContact,
			Action:     models.ActionIssueTickets,
			TargetType: "payment",
			TargetID:   payment.ID,
			Detail:     fmt.Sprintf("%d ticket(s), %s, %d minor units", len(tickets), req.Method, req.TotalAmount),
		})
	})
	if err != nil {
		return nil, err
	}

	for _, t := range tickets {
		monitoring.TicketIssued(t.Class, req.Method)
	}

	s.dispatcher.Publish(ctx, notify.RKTicketsIssued, &notify.TicketsIssued{
		PaymentID: payment.ID,
		Holder:    req.HolderName,
		Contact:   req.HolderContact,
		Codes:     ticketCodes(tickets),
		Method:    req.Method,
		Verified:  payment.Status == models.PaymentSuccess,
	})

	return &IssuanceResult{Payment: payment, Tickets: tickets}, nil
}

func (s *IssuanceService) validate(req *RegistrationRequest) error {
	switch {
	case strings.TrimSpace(req.HolderName) == "":
		return status.Invalid("holder_name", "required")
	case strings.TrimSpace(req.HolderContact) == "":
		return status.Invalid("holder_contact", "required")
	case !models.ValidClass(req.Class):
		return status.Invalid("class", "must be contestant or audience")
	case !models.ValidMethod(req.Method):
		return status.Invalid("method", "must be card or bank_transfer")
	case req.PartySize < 0:
		return status.Invalid("party_size", "must not be negative")
	case req.GuestCount < 0:
		return status.Invalid("guest_count", "must not be negative")
	case req.GuestCount > 0 && req.Class != models.ClassContestant:
		return status.Invalid("guest_count", "only contestant passes bundle guests")
	case req.Method == models.MethodCard && req.CardToken == "":
		return status.Invalid("card_token", "required for card payments")
	}

	if req.PartySize == 0 {
		req.PartySize = 1
	}

	if expected := s.expectedTotal(req); req.TotalAmount != expected {
		return status.Invalid("total_amount",
			fmt.Sprintf("expected %d minor units, got %d", expected, req.TotalAmount))
	}
	return nil
}

// expectedTotal recomputes the price of the party composition: the primary
// credential at its class price, every extra head on it and every bundled
// guest at the audience price.
func (s *IssuanceService) expectedTotal(req *RegistrationRequest) int64 {
	audience := decimal.NewFromInt(s.pricing.AudienceMinor)

	base := audience
	if req.Class == models.ClassContestant {
		base = decimal.NewFromInt(s.pricing.ContestantMinor)
	}

	extraHeads := decimal.NewFromInt(int64(req.PartySize - 1 + req.GuestCount))
	return base.Add(audience.Mul(extraHeads)).IntPart()
}

func (s *IssuanceService) capture(ctx context.Context, req *RegistrationRequest) (*gateway.ChargeResult, error) {
	reference := uuid.NewString()
	s.trackCaptureSession(ctx, reference, req)

	captureCtx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	res, err := s.breaker.Execute(captureCtx, func() (any, error) {
		return s.gateway.Capture(captureCtx, &gateway.ChargeRequest{
			Amount:      decimal.NewFromInt(req.TotalAmount),
			Currency:    s.pricing.Currency,
			CardToken:   req.CardToken,
			Reference:   reference,
			Description: fmt.Sprintf("%s pass for %s", req.Class, req.HolderName),
		})
	})
	if err != nil {
		s.closeCaptureSession(ctx, reference, "error")
		return nil, err
	}

	result := res.(*gateway.ChargeResult)
	if result.Captured {
		s.closeCaptureSession(ctx, reference, "captured")
	} else {
		s.closeCaptureSession(ctx, reference, "declined")
	}
	return result, nil
}

// trackCaptureSession mirrors the in-flight capture into redis so operators
// can see stuck captures. Best effort only.
func (s *IssuanceService) trackCaptureSession(ctx context.Context, reference string, req *RegistrationRequest) {
	if s.redis == nil {
		return
	}

	key := fmt.Sprintf("capture:%s", reference)
	s.redis.HSet(ctx, key, map[string]any{
		"holder": req.HolderContact,
		"amount": req.TotalAmount,
		"status": "in_flight",
	})
	s.redis.Expire(ctx, key, 10*time.Minute)
}

func (s *IssuanceService) closeCaptureSession(ctx context.Context, reference, result string) {
	if s.redis == nil {
		return
	}
	s.redis.HSet(ctx, fmt.Sprintf("capture:%s", reference), "status", result)
}

// recordFailedPayment keeps the audit trail even when no ticket is issued.
func (s *IssuanceService) recordFailedPayment(ctx context.Context, payment *models.Payment, reason string) {
	payment.Status = models.PaymentFailed
	payment.RejectReason = reason

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		return tx.AppendAdminLog(ctx, &models.AdminLog{
			Actor:      payment.Payer,
			Action:     models.ActionIssueTickets,
			TargetType: "payment",
			TargetID:   payment.ID,
			Detail:     "capture failed: " + reason,
		})
	})
	if err != nil {
		slog.Error("issuance: recording failed payment", "error", err)
	}
}

func (s *IssuanceService) createWithFreshCode(ctx context.Context, tx store.Store, t *models.Ticket) error {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := utils.GenerateTicketCode()
		if err != nil {
			return err
		}

		exists, err := tx.CodeExists(ctx, code)
		if err != nil {
			return err
		}
		if exists {
			monitoring.CodeCollision()
			continue
		}

		t.Code = code
		t.ScanPayload = scancode.Encode(code, uuid.New(), time.Now())

		err = tx.CreateTicket(ctx, t)
		if err == nil {
			return nil
		}
		if errors.Is(err, status.ErrDuplicateCode) {
			// lost the race on the unique index, regenerate
			monitoring.CodeCollision()
			continue
		}
		return err
	}
	return status.ErrCodeExhausted
}

func buildTickets(req *RegistrationRequest, payment *models.Payment) []*models.Ticket {
	ticketStatus := models.TicketPending
	if payment.Status == models.PaymentSuccess {
		ticketStatus = models.TicketVerified
	}

	tickets := make([]*models.Ticket, 0, 1+req.GuestCount)
	tickets = append(tickets, &models.Ticket{
		Holder:        req.HolderName,
		HolderContact: req.HolderContact,
		Class:         req.Class,
		Status:        ticketStatus,
		PartySize:     req.PartySize,
	})

	for i := 0; i < req.GuestCount; i++ {
		tickets = append(tickets, &models.Ticket{
			Holder:        fmt.Sprintf("%s (guest %d)", req.HolderName, i+1),
			HolderContact: req.HolderContact,
			Class:         models.ClassAudience,
			Status:        ticketStatus,
			PartySize:     1,
		})
	}
	return tickets
}

func ticketCodes(tickets []*models.Ticket) []string {
	codes := make([]string, 0, len(tickets))
	for _, t := range tickets {
		codes = append(codes, t.Code)
	}
	return codes
}
