package models

import (
	"time"
)

// Payment statuses. A payment never leaves success or failed.
const (
	PaymentPending       = "pending"
	PaymentReviewPending = "review_pending"
	PaymentSuccess       = "success"
	PaymentFailed        = "failed"
)

// Payment methods.
const (
	MethodCard         = "card"
	MethodBankTransfer = "bank_transfer"
)

type Payment struct {
	ID           string    `json:"payment_id"`
	Payer        string    `json:"payer"` // contact identifier (email or phone)
	PayerName    string    `json:"payer_name"`
	Amount       int64     `json:"amount"` // minor currency units
	Method       string    `json:"method"` // card, bank_transfer
	Status       string    `json:"status"` // pending, review_pending, success, failed
	GatewayRef   string    `json:"gateway_ref,omitempty"`
	ProofRef     string    `json:"proof_ref,omitempty"`
	RejectReason string    `json:"reject_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Terminal reports whether the payment reached a final state.
func (p *Payment) Terminal() bool {
	return p.Status == PaymentSuccess || p.Status == PaymentFailed
}

// CanAttachProof reports whether a proof-of-payment reference may be
// recorded. Only a fresh bank-transfer payment accepts proof.
func (p *Payment) CanAttachProof() bool {
	return p.Method == MethodBankTransfer && p.Status == PaymentPending
}

// CanReview reports whether an approve/reject decision is allowed.
// Anything outside review_pending is a conflict, which is what keeps a
// double decision from flipping an already terminal payment.
func (p *Payment) CanReview() bool {
	return p.Status == PaymentReviewPending
}

func ValidMethod(method string) bool {
	return method == MethodCard || method == MethodBankTransfer
}
