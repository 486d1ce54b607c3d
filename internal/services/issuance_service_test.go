package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pass-system/internal/notify"
	"pass-system/internal/scancode"
	"pass-system/internal/services/gateway"
	"pass-system/internal/status"
	"pass-system/internal/store"
	"pass-system/models"
)

var codePattern = regexp.MustCompile(`^[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}(-[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}){2}$`)

func testPricing() Pricing {
	return Pricing{ContestantMinor: 10000, AudienceMinor: 1500, Currency: "thb"}
}

func newIssuanceFixture(t *testing.T) (*IssuanceService, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := NewIssuanceService(mem, gateway.NewSandbox(), notify.NewDispatcher(nil), nil, testPricing())
	return svc, mem
}

func TestCreateTicket_CardAudience(t *testing.T) {
	svc, mem := newIssuanceFixture(t)

	result, err := svc.CreateTicket(context.Background(), &RegistrationRequest{
		HolderName:    "Nok",
		HolderContact: "nok@example.com",
		Class:         models.ClassAudience,
		PartySize:     1,
		TotalAmount:   1500,
		Method:        models.MethodCard,
		CardToken:     "tok_visa",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentSuccess, result.Payment.Status)
	assert.NotEmpty(t, result.Payment.GatewayRef)
	require.Len(t, result.Tickets, 1)

	ticket := result.Tickets[0]
	assert.Equal(t, models.TicketVerified, ticket.Status)
	assert.Regexp(t, codePattern, ticket.Code)
	assert.True(t, strings.HasPrefix(ticket.ScanPayload, scancode.Marker+"|"))

	stored, err := mem.FindTicketByCode(context.Background(), ticket.Code)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, stored.ID)
}

func TestCreateTicket_BankTransferContestantWithGuest(t *testing.T) {
	svc, mem := newIssuanceFixture(t)

	result, err := svc.CreateTicket(context.Background(), &RegistrationRequest{
		HolderName:    "Pim",
		HolderContact: "pim@example.com",
		Class:         models.ClassContestant,
		PartySize:     1,
		GuestCount:    1,
		TotalAmount:   11500,
		Method:        models.MethodBankTransfer,
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPending, result.Payment.Status)
	require.Len(t, result.Tickets, 2)

	primary, guest := result.Tickets[0], result.Tickets[1]
	assert.Equal(t, models.ClassContestant, primary.Class)
	assert.Equal(t, models.TicketPending, primary.Status)
	assert.Equal(t, models.ClassAudience, guest.Class)
	assert.Equal(t, models.TicketPending, guest.Status)
	assert.Equal(t, primary.ID, guest.PrimaryTicket)
	assert.NotEqual(t, primary.Code, guest.Code)

	funded, err := mem.FindTicketsByPayment(context.Background(), result.Payment.ID)
	require.NoError(t, err)
	assert.Len(t, funded, 2)
}

func TestCreateTicket_PartySizeDefaultsToOne(t *testing.T) {
	svc, _ := newIssuanceFixture(t)

	result, err := svc.CreateTicket(context.Background(), &RegistrationRequest{
		HolderName:    "Mali",
		HolderContact: "mali@example.com",
		Class:         models.ClassAudience,
		TotalAmount:   1500,
		Method:        models.MethodBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Tickets[0].PartySize)
}

func TestCreateTicket_ValidationErrors(t *testing.T) {
	svc, _ := newIssuanceFixture(t)

	tests := []struct {
		name string
		req  RegistrationRequest
	}{
		{"missing holder name", RegistrationRequest{
			HolderContact: "a@b.c", Class: models.ClassAudience, TotalAmount: 1500, Method: models.MethodCard, CardToken: "tok",
		}},
		{"missing contact", RegistrationRequest{
			HolderName: "A", Class: models.ClassAudience, TotalAmount: 1500, Method: models.MethodCard, CardToken: "tok",
		}},
		{"unknown class", RegistrationRequest{
			HolderName: "A", HolderContact: "a@b.c", Class: "vip", TotalAmount: 1500, Method: models.MethodCard, CardToken: "tok",
		}},
		{"unknown method", RegistrationRequest{
			HolderName: "A", HolderContact: "a@b.c", Class: models.ClassAudience, TotalAmount: 1500, Method: "cash",
		}},
		{"card without token", RegistrationRequest{
			HolderName: "A", HolderContact: "a@b.c", Class: models.ClassAudience, TotalAmount: 1500, Method: models.MethodCard,
		}},
		{"guest on audience pass", RegistrationRequest{
			HolderName: "A", HolderContact: "a@b.c", Class: models.ClassAudience, GuestCount: 1, TotalAmount: 3000, Method: models.MethodBankTransfer,
		}},
		{"negative party size", RegistrationRequest{
			HolderName: "A", HolderContact: "a@b.c", Class: models.ClassAudience, PartySize: -2, TotalAmount: 1500, Method: models.MethodCard, CardToken: "tok",
		}},
		{"negative guest count", RegistrationRequest{
			HolderName: "A", HolderContact: "a@b.c", Class: models.ClassContestant, GuestCount: -1, TotalAmount: 10000, Method: models.MethodBankTransfer,
		}},
		{"wrong total", RegistrationRequest{
			HolderName: "A", HolderContact: "a@b.c", Class: models.ClassAudience, TotalAmount: 100, Method: models.MethodBankTransfer,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTicket(context.Background(), &tt.req)
			assert.True(t, status.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreateTicket_CardDeclined(t *testing.T) {
	svc, mem := newIssuanceFixture(t)

	_, err := svc.CreateTicket(context.Background(), &RegistrationRequest{
		HolderName:    "Tui",
		HolderContact: "tui@example.com",
		Class:         models.ClassAudience,
		PartySize:     1,
		TotalAmount:   1500,
		Method:        models.MethodCard,
		CardToken:     "tok_declined_visa",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrFailedPayment))

	// the decline still leaves an auditable failed payment, with no tickets
	failed, listErr := mem.ListPaymentsByStatus(context.Background(), models.PaymentFailed)
	require.NoError(t, listErr)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].RejectReason, "declined")

	tickets, listErr := mem.FindTicketsByPayment(context.Background(), failed[0].ID)
	require.NoError(t, listErr)
	assert.Empty(t, tickets)
}

func TestCreateTicket_GatewayError(t *testing.T) {
	svc, mem := newIssuanceFixture(t)

	_, err := svc.CreateTicket(context.Background(), &RegistrationRequest{
		HolderName:    "Fon",
		HolderContact: "fon@example.com",
		Class:         models.ClassAudience,
		PartySize:     1,
		TotalAmount:   1500,
		Method:        models.MethodCard,
		CardToken:     "tok_error_network",
	})
	require.Error(t, err)
	assert.True(t, status.IsExternal(err))

	failed, listErr := mem.ListPaymentsByStatus(context.Background(), models.PaymentFailed)
	require.NoError(t, listErr)
	assert.Len(t, failed, 1)
}

func TestCreateTicket_ConcurrentCodesStayUnique(t *testing.T) {
	svc, mem := newIssuanceFixture(t)

	const registrations = 25

	var wg sync.WaitGroup
	results := make(chan *IssuanceResult, registrations)

	for i := 0; i < registrations; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result, err := svc.CreateTicket(context.Background(), &RegistrationRequest{
				HolderName:    fmt.Sprintf("holder-%d", n),
				HolderContact: fmt.Sprintf("holder-%d@example.com", n),
				Class:         models.ClassAudience,
				PartySize:     1,
				TotalAmount:   1500,
				Method:        models.MethodBankTransfer,
			})
			if err == nil {
				results <- result
			}
		}(i)
	}
	wg.Wait()
	close(results)

	codes := map[string]bool{}
	total := 0
	for result := range results {
		total++
		for _, ticket := range result.Tickets {
			assert.False(t, codes[ticket.Code], "duplicate code %s", ticket.Code)
			codes[ticket.Code] = true
		}
	}
	assert.Equal(t, registrations, total)

	pending, err := mem.ListPaymentsByStatus(context.Background(), models.PaymentPending)
	require.NoError(t, err)
	assert.Len(t, pending, registrations)
}

func TestExpectedTotal(t *testing.T) {
	svc, _ := newIssuanceFixture(t)

	tests := []struct {
		name     string
		req      RegistrationRequest
		expected int64
	}{
		{"single audience", RegistrationRequest{Class: models.ClassAudience, PartySize: 1}, 1500},
		{"audience party of three", RegistrationRequest{Class: models.ClassAudience, PartySize: 3}, 4500},
		{"single contestant", RegistrationRequest{Class: models.ClassContestant, PartySize: 1}, 10000},
		{"contestant with one guest", RegistrationRequest{Class: models.ClassContestant, PartySize: 1, GuestCount: 1}, 11500},
		{"contestant party of two with two guests", RegistrationRequest{Class: models.ClassContestant, PartySize: 2, GuestCount: 2}, 14500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, svc.expectedTotal(&tt.req))
		})
	}
}
