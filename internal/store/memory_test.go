package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pass-system/internal/status"
	"pass-system/models"
)

func TestMemory_DuplicateCodeRejected(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	first := &models.Ticket{Holder: "A", Class: models.ClassAudience, Code: "AAAA-AAAA-AAAA", Status: models.TicketPending, PartySize: 1}
	require.NoError(t, mem.CreateTicket(ctx, first))

	dup := &models.Ticket{Holder: "B", Class: models.ClassAudience, Code: "AAAA-AAAA-AAAA", Status: models.TicketPending, PartySize: 1}
	err := mem.CreateTicket(ctx, dup)
	assert.True(t, errors.Is(err, status.ErrDuplicateCode))

	exists, err := mem.CodeExists(ctx, "AAAA-AAAA-AAAA")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemory_TransactionRollback(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	boom := errors.New("boom")
	err := mem.RunInTransaction(ctx, func(tx Store) error {
		if err := tx.CreatePayment(ctx, &models.Payment{Payer: "a", Amount: 1, Method: models.MethodCard, Status: models.PaymentPending}); err != nil {
			return err
		}
		ticket := &models.Ticket{Holder: "A", Class: models.ClassAudience, Code: "ROLL-BACK-0001", Status: models.TicketPending, PartySize: 1}
		if err := tx.CreateTicket(ctx, ticket); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	// nothing from the failed transaction is visible
	exists, err := mem.CodeExists(ctx, "ROLL-BACK-0001")
	require.NoError(t, err)
	assert.False(t, exists)

	payments, err := mem.ListPaymentsByStatus(ctx, models.PaymentPending)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestMemory_AdmitCAS(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	ticket := &models.Ticket{Holder: "A", Class: models.ClassAudience, Code: "CASX-CASX-CASX", Status: models.TicketVerified, PartySize: 3}
	require.NoError(t, mem.CreateTicket(ctx, ticket))

	ok, err := mem.AdmitCAS(ctx, ticket.ID, 0, 2, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	// a stale expected count loses the swap
	ok, err = mem.AdmitCAS(ctx, ticket.ID, 0, 1, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := mem.FindTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.AdmittedCount)
	require.NotNil(t, stored.AdmittedAt)

	// the first admission timestamp never moves
	first := *stored.AdmittedAt
	ok, err = mem.AdmitCAS(ctx, ticket.ID, 2, 1, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err = mem.FindTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *stored.AdmittedAt)
}

func TestMemory_MarkReminderSentOnce(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	ticket := &models.Ticket{Holder: "A", Class: models.ClassAudience, Code: "REMI-REMI-REMI", Status: models.TicketVerified, PartySize: 1}
	require.NoError(t, mem.CreateTicket(ctx, ticket))

	ok, err := mem.MarkReminderSent(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mem.MarkReminderSent(ctx, ticket.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ListTicketsFilter(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	sent := &models.Ticket{Holder: "A", Class: models.ClassAudience, Code: "FILT-0000-0001", Status: models.TicketVerified, PartySize: 1, ReminderSent: true}
	fresh := &models.Ticket{Holder: "B", Class: models.ClassContestant, Code: "FILT-0000-0002", Status: models.TicketVerified, PartySize: 1}
	pending := &models.Ticket{Holder: "C", Class: models.ClassAudience, Code: "FILT-0000-0003", Status: models.TicketPending, PartySize: 1}
	for _, tk := range []*models.Ticket{sent, fresh, pending} {
		require.NoError(t, mem.CreateTicket(ctx, tk))
	}

	notSent := false
	got, err := mem.ListTickets(ctx, TicketFilter{Status: models.TicketVerified, ReminderSent: &notSent})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fresh.ID, got[0].ID)

	got, err = mem.ListTickets(ctx, TicketFilter{Class: models.ClassAudience})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMemory_FindReturnsCopies(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	ticket := &models.Ticket{Holder: "A", Class: models.ClassAudience, Code: "COPY-COPY-COPY", Status: models.TicketVerified, PartySize: 1}
	require.NoError(t, mem.CreateTicket(ctx, ticket))

	got, err := mem.FindTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	got.AdmittedCount = 99

	again, err := mem.FindTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.AdmittedCount)
}
