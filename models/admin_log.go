package models

import (
	"time"
)

// AdminLog actions written by the mutating operations.
const (
	ActionIssueTickets   = "issue_tickets"
	ActionAttachProof    = "attach_proof"
	ActionApprovePayment = "approve_payment"
	ActionRejectPayment  = "reject_payment"
	ActionAdmit          = "admit"
	ActionBroadcast      = "broadcast"
	ActionReminderSweep  = "reminder_sweep"
)

// AdminLog is an append-only audit record. It is never updated or deleted.
type AdminLog struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"` // payment, ticket
	TargetID   string    `json:"target_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
