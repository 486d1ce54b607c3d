package services

import (
	"context"
	"fmt"

	"pass-system/internal/notify"
	"pass-system/internal/status"
	"pass-system/internal/store"
	"pass-system/models"
	"pass-system/monitoring"
)

// ReviewService is the bank-transfer review queue: proof submission and the
// approve/reject decision, each a single transaction over the payment and
// every ticket it funds.
type ReviewService struct {
	store      store.Store
	dispatcher *notify.Dispatcher
}

func NewReviewService(st store.Store, dispatcher *notify.Dispatcher) *ReviewService {
	return &ReviewService{store: st, dispatcher: dispatcher}
}

// RecordProof attaches a proof-of-payment reference, moving the payment from
// pending to review_pending. Any other source state is a conflict.
func (s *ReviewService) RecordProof(ctx context.Context, paymentID, proofRef string) (*models.Payment, error) {
	if proofRef == "" {
		return nil, status.Invalid("proof_ref", "required")
	}

	var payment *models.Payment
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		p, err := tx.FindPaymentByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if !p.CanAttachProof() {
			return status.Conflict("attach_proof",
				fmt.Sprintf("payment is %s (%s), proof accepted only on a pending bank transfer", p.Status, p.Method))
		}

		p.Status = models.PaymentReviewPending
		p.ProofRef = proofRef
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}

		payment = p
		return tx.AppendAdminLog(ctx, &models.AdminLog{
			Actor:      p.Payer,
			Action:     models.ActionAttachProof,
			TargetType: "payment",
			TargetID:   p.ID,
			Detail:     "proof " + proofRef,
		})
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Approve moves review_pending to success and cascades every funded ticket
// to verified. A second approve lands on a conflict, never a double flip.
func (s *ReviewService) Approve(ctx context.Context, paymentID, reviewerID string) (*models.Payment, []*models.Ticket, error) {
	var (
		payment *models.Payment
		tickets []*models.Ticket
	)

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		p, err := tx.FindPaymentByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if !p.CanReview() {
			return status.Conflict("approve_payment", "payment is "+p.Status+", not review_pending")
		}

		p.Status = models.PaymentSuccess
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}

		funded, err := tx.FindTicketsByPayment(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, t := range funded {
			t.Status = models.TicketVerified
			if err := tx.UpdateTicket(ctx, t); err != nil {
				return err
			}
		}

		payment = p
		tickets = funded
		return tx.AppendAdminLog(ctx, &models.AdminLog{
			Actor:      reviewerID,
			Action:     models.ActionApprovePayment,
			TargetType: "payment",
			TargetID:   p.ID,
			Detail:     fmt.Sprintf("%d ticket(s) verified", len(funded)),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	monitoring.ReviewDecision("approved")

	s.dispatcher.Publish(ctx, notify.RKPaymentApproved, &notify.PaymentApproved{
		PaymentID: payment.ID,
		Reviewer:  reviewerID,
		Contact:   payment.Payer,
		Codes:     ticketCodes(tickets),
	})

	return payment, tickets, nil
}

// Reject moves review_pending to failed. Funded tickets stay pending forever:
// they are kept for the audit trail but can never pass gate verification.
func (s *ReviewService) Reject(ctx context.Context, paymentID, reviewerID, reason string) (*models.Payment, error) {
	if reason == "" {
		return nil, status.Invalid("reason", "required")
	}

	var payment *models.Payment
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		p, err := tx.FindPaymentByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if !p.CanReview() {
			return status.Conflict("reject_payment", "payment is "+p.Status+", not review_pending")
		}

		p.Status = models.PaymentFailed
		p.RejectReason = reason
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}

		payment = p
		return tx.AppendAdminLog(ctx, &models.AdminLog{
			Actor:      reviewerID,
			Action:     models.ActionRejectPayment,
			TargetType: "payment",
			TargetID:   p.ID,
			Detail:     reason,
		})
	})
	if err != nil {
		return nil, err
	}

	monitoring.ReviewDecision("rejected")

	s.dispatcher.Publish(ctx, notify.RKPaymentRejected, &notify.PaymentRejected{
		PaymentID: payment.ID,
		Reviewer:  reviewerID,
		Contact:   payment.Payer,
		Reason:    reason,
	})

	return payment, nil
}

// ListReviewQueue returns the payments awaiting an operator decision.
func (s *ReviewService) ListReviewQueue(ctx context.Context) ([]*models.Payment, error) {
	return s.store.ListPaymentsByStatus(ctx, models.PaymentReviewPending)
}

// GetPayment returns a payment and the tickets it funds.
func (s *ReviewService) GetPayment(ctx context.Context, paymentID string) (*models.Payment, []*models.Ticket, error) {
	payment, err := s.store.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	tickets, err := s.store.FindTicketsByPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	return payment, tickets, nil
}
