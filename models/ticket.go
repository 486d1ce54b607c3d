package models

import (
	"time"
)

// Ticket statuses. A ticket is admissible only while verified.
const (
	TicketPending  = "pending"
	TicketVerified = "verified"
)

// Ticket classes.
const (
	ClassContestant = "contestant"
	ClassAudience   = "audience"
)

type Ticket struct {
	ID            string     `json:"id"`
	PaymentID     string     `json:"payment_id"`
	Holder        string     `json:"holder"`
	HolderContact string     `json:"holder_contact"`
	Class         string     `json:"class"`  // contestant, audience
	Code          string     `json:"code"`   // human-readable, unique forever
	ScanPayload   string     `json:"scan_payload"`
	Status        string     `json:"status"` // pending, verified
	PartySize     int        `json:"party_size"`
	AdmittedCount int        `json:"admitted_count"`
	AdmittedAt    *time.Time `json:"admitted_at,omitempty"`
	PrimaryTicket string     `json:"primary_ticket,omitempty"` // set on bundled add-ons
	ReminderSent  bool       `json:"reminder_sent"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Remaining returns how many people the ticket can still admit.
func (t *Ticket) Remaining() int {
	return t.PartySize - t.AdmittedCount
}

// FullyUsed reports whether the credential is consumed.
func (t *Ticket) FullyUsed() bool {
	return t.AdmittedCount >= t.PartySize
}

// ClampAdmit clamps a requested head count to what the ticket can still
// admit. Returns 0 when nothing can be admitted.
func (t *Ticket) ClampAdmit(requested int) int {
	remaining := t.Remaining()
	if remaining <= 0 {
		return 0
	}
	if requested < 1 {
		requested = 1
	}
	if requested > remaining {
		return remaining
	}
	return requested
}

func ValidClass(class string) bool {
	return class == ClassContestant || class == ClassAudience
}
