package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pass-system/internal/notify"
	"pass-system/internal/status"
	"pass-system/internal/store"
	"pass-system/models"
)

func newReviewFixture(t *testing.T) (*ReviewService, *store.Memory, *models.Payment, *models.Ticket) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	payment := &models.Payment{
		Payer:  "payer@example.com",
		Amount: 1500,
		Method: models.MethodBankTransfer,
		Status: models.PaymentPending,
	}
	require.NoError(t, mem.CreatePayment(ctx, payment))

	ticket := &models.Ticket{
		PaymentID:     payment.ID,
		Holder:        "Payer",
		HolderContact: "payer@example.com",
		Class:         models.ClassAudience,
		Code:          "QQQQ-WWWW-EEEE",
		Status:        models.TicketPending,
		PartySize:     1,
	}
	require.NoError(t, mem.CreateTicket(ctx, ticket))

	return NewReviewService(mem, notify.NewDispatcher(nil)), mem, payment, ticket
}

func TestRecordProof_MovesPaymentToReview(t *testing.T) {
	svc, mem, payment, _ := newReviewFixture(t)

	updated, err := svc.RecordProof(context.Background(), payment.ID, "slip-042.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentReviewPending, updated.Status)
	assert.Equal(t, "slip-042.jpg", updated.ProofRef)

	queue, err := mem.ListPaymentsByStatus(context.Background(), models.PaymentReviewPending)
	require.NoError(t, err)
	assert.Len(t, queue, 1)
}

func TestRecordProof_RequiresReference(t *testing.T) {
	svc, _, payment, _ := newReviewFixture(t)

	_, err := svc.RecordProof(context.Background(), payment.ID, "")
	assert.True(t, status.IsValidation(err))
}

func TestRecordProof_RejectsNonPendingPayment(t *testing.T) {
	svc, _, payment, _ := newReviewFixture(t)
	ctx := context.Background()

	_, err := svc.RecordProof(ctx, payment.ID, "slip-1.jpg")
	require.NoError(t, err)

	// a second upload hits the review_pending state
	_, err = svc.RecordProof(ctx, payment.ID, "slip-2.jpg")
	assert.True(t, status.IsConflict(err))
}

func TestApprove_CascadesTicketsToVerified(t *testing.T) {
	svc, mem, payment, ticket := newReviewFixture(t)
	ctx := context.Background()

	_, err := svc.RecordProof(ctx, payment.ID, "slip.jpg")
	require.NoError(t, err)

	approved, tickets, err := svc.Approve(ctx, payment.ID, "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, approved.Status)
	require.Len(t, tickets, 1)
	assert.Equal(t, models.TicketVerified, tickets[0].Status)

	stored, err := mem.FindTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketVerified, stored.Status)
}

func TestApprove_SecondApproveIsConflict(t *testing.T) {
	svc, _, payment, _ := newReviewFixture(t)
	ctx := context.Background()

	_, err := svc.RecordProof(ctx, payment.ID, "slip.jpg")
	require.NoError(t, err)

	_, _, err = svc.Approve(ctx, payment.ID, "reviewer-1")
	require.NoError(t, err)

	_, _, err = svc.Approve(ctx, payment.ID, "reviewer-2")
	assert.True(t, status.IsConflict(err))
}

func TestApprove_WithoutProofIsConflict(t *testing.T) {
	svc, _, payment, _ := newReviewFixture(t)

	_, _, err := svc.Approve(context.Background(), payment.ID, "reviewer-1")
	assert.True(t, status.IsConflict(err))
}

func TestReject_IsTerminal(t *testing.T) {
	svc, mem, payment, ticket := newReviewFixture(t)
	ctx := context.Background()

	_, err := svc.RecordProof(ctx, payment.ID, "slip.jpg")
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, payment.ID, "reviewer-1", "amount does not match")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, rejected.Status)
	assert.Equal(t, "amount does not match", rejected.RejectReason)

	// tickets stay pending and the decision cannot be reversed
	stored, err := mem.FindTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketPending, stored.Status)

	_, _, err = svc.Approve(ctx, payment.ID, "reviewer-2")
	assert.True(t, status.IsConflict(err))
}

func TestReject_RequiresReason(t *testing.T) {
	svc, _, payment, _ := newReviewFixture(t)
	ctx := context.Background()

	_, err := svc.RecordProof(ctx, payment.ID, "slip.jpg")
	require.NoError(t, err)

	_, err = svc.Reject(ctx, payment.ID, "reviewer-1", "")
	assert.True(t, status.IsValidation(err))
}

func TestGetPayment_ReturnsFundedTickets(t *testing.T) {
	svc, _, payment, ticket := newReviewFixture(t)

	found, tickets, err := svc.GetPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, found.ID)
	require.Len(t, tickets, 1)
	assert.Equal(t, ticket.ID, tickets[0].ID)
}

func TestGetPayment_UnknownID(t *testing.T) {
	svc, _, _, _ := newReviewFixture(t)

	_, _, err := svc.GetPayment(context.Background(), "pay_missing")
	assert.True(t, status.IsNotFound(err))
}
