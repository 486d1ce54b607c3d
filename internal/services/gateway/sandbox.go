package gateway

import (
	"context"
	"strings"

	"pass-system/internal/status"
	"pass-system/utils"
)

// Sandbox is the development and test gateway. Behavior is driven by the
// card token so failure paths stay reproducible:
//
//	tok_declined...  capture refused by the issuer
//	tok_error...     transport failure (external dependency error)
//	anything else    captured
type Sandbox struct{}

func NewSandbox() *Sandbox { return &Sandbox{} }

func (g *Sandbox) GetProvider() Provider { return ProviderSandbox }

func (g *Sandbox) Capture(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.External("sandbox", err)
	}

	switch {
	case strings.HasPrefix(req.CardToken, "tok_error"):
		return nil, status.External("sandbox", status.ErrFailedPayment)
	case strings.HasPrefix(req.CardToken, "tok_declined"):
		return &ChargeResult{
			Captured:       false,
			FailureCode:    "insufficient_fund",
			FailureMessage: "sandbox decline",
		}, nil
	}

	ref, err := utils.GenerateCode(6)
	if err != nil {
		return nil, err
	}
	return &ChargeResult{GatewayRef: "sbx_" + ref, Captured: true}, nil
}

func (g *Sandbox) Close(ctx context.Context) error { return nil }
