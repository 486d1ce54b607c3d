package notify

import (
	"context"
	"log/slog"
	"time"

	"pass-system/utils"
)

// Dispatcher is the fire-and-forget side used by the services: it publishes
// an event after the owning transaction committed and swallows every
// failure. A broken broker must never look like a failed sale.
type Dispatcher struct {
	pub     *Publisher
	breaker *utils.CircuitBreaker
	timeout time.Duration
}

// NewDispatcher wraps a publisher. A nil publisher produces a dispatcher
// that only logs, which is how local development runs without a broker.
func NewDispatcher(pub *Publisher) *Dispatcher {
	return &Dispatcher{
		pub:     pub,
		breaker: utils.NewCircuitBreaker("notify"),
		timeout: 5 * time.Second,
	}
}

func (d *Dispatcher) Publish(ctx context.Context, key string, payload any) {
	if d.pub == nil {
		slog.Info("notify: no broker configured, dropping event", "key", key)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	_, err := d.breaker.Execute(pubCtx, func() (any, error) {
		return nil, d.pub.PublishJSON(pubCtx, key, payload)
	})
	if err != nil {
		slog.Error("notify: publish failed", "key", key, "error", err)
	}
}
