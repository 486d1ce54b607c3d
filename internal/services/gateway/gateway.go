// Package gateway abstracts the instant card-capture provider behind a small
// interface so the issuance path never knows which processor is wired in.
package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Provider identifies a card gateway implementation.
type Provider string

const (
	ProviderOmise   Provider = "omise"
	ProviderSandbox Provider = "sandbox"
)

// ChargeRequest is a capture attempt. Amount is in minor currency units.
type ChargeRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CardToken   string          `json:"card_token"`
	Reference   string          `json:"reference"`
	Description string          `json:"description,omitempty"`
}

// ChargeResult is the gateway's answer. Captured=false with a nil error is a
// gateway-reported decline (e.g. insufficient funds), which is a failed
// payment, not an external dependency error.
type ChargeResult struct {
	GatewayRef     string `json:"gateway_ref"`
	Captured       bool   `json:"captured"`
	FailureCode    string `json:"failure_code,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
}

// Interface is the common surface of all card gateway providers.
type Interface interface {
	GetProvider() Provider

	// Capture performs a synchronous card capture. Implementations bound the
	// call with their own timeout; it is never retried by the caller.
	Capture(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)

	Close(ctx context.Context) error
}

// Config carries the settings of every supported provider; the factory picks
// the section matching the requested one.
type Config struct {
	Omise OmiseConfig
}

// New creates a gateway instance for the given provider.
func New(ctx context.Context, provider Provider, cfg *Config) (Interface, error) {
	switch provider {
	case ProviderOmise:
		return NewOmise(ctx, &cfg.Omise)
	case ProviderSandbox:
		return NewSandbox(), nil
	default:
		return nil, fmt.Errorf("gateway: unsupported provider %q", provider)
	}
}

// SupportedProviders lists the providers the factory can create.
func SupportedProviders() []Provider {
	return []Provider{ProviderOmise, ProviderSandbox}
}
