// Package notify carries the commit-then-enqueue notification pipeline:
// services publish events after their transaction commits, a worker consumes
// them and fans out to the configured notifiers. Delivery is best effort and
// never feeds back into ledger state.
package notify

import (
	"encoding/json"
	"fmt"
)

// Routing keys on the pass-events exchange.
const (
	RKTicketsIssued   = "pass.issued"
	RKPaymentApproved = "payment.approved"
	RKPaymentRejected = "payment.rejected"
	RKReminderDue     = "pass.reminder"
)

// TicketsIssued is published once per successful issuance, whatever the
// payment method.
type TicketsIssued struct {
	PaymentID string   `json:"payment_id"`
	Holder    string   `json:"holder"`
	Contact   string   `json:"contact"`
	Codes     []string `json:"codes"`
	Method    string   `json:"method"`
	Verified  bool     `json:"verified"`
}

type PaymentApproved struct {
	PaymentID string   `json:"payment_id"`
	Reviewer  string   `json:"reviewer"`
	Contact   string   `json:"contact"`
	Codes     []string `json:"codes"`
}

type PaymentRejected struct {
	PaymentID string `json:"payment_id"`
	Reviewer  string `json:"reviewer"`
	Contact   string `json:"contact"`
	Reason    string `json:"reason"`
}

type ReminderDue struct {
	Code    string `json:"code"`
	Holder  string `json:"holder"`
	Contact string `json:"contact"`
}

// DecodePayload unmarshals an event body into its typed payload.
func DecodePayload[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
