package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"

	"pass-system/internal/status"
)

type OmiseConfig struct {
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
	Currency  string `json:"currency"`
}

// Omise captures cards through the Omise charge API.
type Omise struct {
	client   *omise.Client
	currency string
}

func NewOmise(_ context.Context, cfg *OmiseConfig) (*Omise, error) {
	client, err := omise.NewClient(cfg.PublicKey, cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	client.Timeout = 10 * time.Second

	currency := cfg.Currency
	if currency == "" {
		currency = "thb"
	}

	return &Omise{client: client, currency: currency}, nil
}

func (g *Omise) GetProvider() Provider { return ProviderOmise }

func (g *Omise) Capture(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}

	charge := &omise.Charge{}
	err := g.client.Do(charge, &operations.CreateCharge{
		Amount:      req.Amount.IntPart(),
		Currency:    strings.ToLower(currency),
		Card:        req.CardToken,
		Description: req.Description,
	})
	if err != nil {
		return nil, status.External("omise", err)
	}

	result := &ChargeResult{
		GatewayRef: charge.ID,
		Captured:   charge.Paid,
	}
	if charge.FailureCode != nil {
		result.FailureCode = *charge.FailureCode
	}
	if charge.FailureMessage != nil {
		result.FailureMessage = *charge.FailureMessage
	}
	return result, nil
}

func (g *Omise) Close(ctx context.Context) error { return nil }
