package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Worker consumes pass events and fans each one out to every configured
// notifier. One notifier failing does not stop the others, and a poison
// message is dropped rather than redelivered forever.
type Worker struct {
	consumer  *Consumer
	notifiers []Notifier
}

func NewWorker(consumer *Consumer, notifiers ...Notifier) *Worker {
	return &Worker{consumer: consumer, notifiers: notifiers}
}

// WorkerBindings are the routing keys a notification worker subscribes to.
func WorkerBindings() []string {
	return []string{RKTicketsIssued, RKPaymentApproved, RKPaymentRejected, RKReminderDue}
}

func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.consumer.Deliveries(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			if err := w.handle(ctx, d); err != nil {
				slog.Error("notify: handling event failed", "key", d.RoutingKey, "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) error {
	recipient, subject, body, err := compose(d)
	if err != nil {
		return err
	}
	if recipient == "" {
		return nil
	}

	w.fanOut(ctx, recipient, subject, body)
	return nil
}

func (w *Worker) fanOut(ctx context.Context, recipient, subject, body string) {
	for _, n := range w.notifiers {
		if err := n.Notify(ctx, recipient, subject, body); err != nil {
			slog.Error("notify: delivery failed",
				"notifier", fmt.Sprintf("%T", n),
				"recipient", recipient,
				"error", err,
			)
		}
	}
}

func compose(d amqp.Delivery) (recipient, subject, body string, err error) {
	switch d.RoutingKey {
	case RKTicketsIssued:
		ev, decodeErr := DecodePayload[TicketsIssued](d.Body)
		if decodeErr != nil {
			return "", "", "", decodeErr
		}
		subject = "Your passes are issued"
		if ev.Verified {
			body = fmt.Sprintf("Hi %s, your payment is confirmed. Pass code(s): %s. Show the code at the gate.",
				ev.Holder, strings.Join(ev.Codes, ", "))
		} else {
			body = fmt.Sprintf("Hi %s, we reserved pass code(s) %s. They activate once your bank transfer is approved.",
				ev.Holder, strings.Join(ev.Codes, ", "))
		}
		return ev.Contact, subject, body, nil

	case RKPaymentApproved:
		ev, decodeErr := DecodePayload[PaymentApproved](d.Body)
		if decodeErr != nil {
			return "", "", "", decodeErr
		}
		subject = "Payment approved"
		body = fmt.Sprintf("Your bank transfer was approved. Pass code(s) %s are now valid at the gate.",
			strings.Join(ev.Codes, ", "))
		return ev.Contact, subject, body, nil

	case RKPaymentRejected:
		ev, decodeErr := DecodePayload[PaymentRejected](d.Body)
		if decodeErr != nil {
			return "", "", "", decodeErr
		}
		subject = "Payment rejected"
		body = fmt.Sprintf("Your bank transfer could not be verified: %s. Please register again with a valid proof of payment.",
			ev.Reason)
		return ev.Contact, subject, body, nil

	case RKReminderDue:
		ev, decodeErr := DecodePayload[ReminderDue](d.Body)
		if decodeErr != nil {
			return "", "", "", decodeErr
		}
		subject = "Event reminder"
		body = fmt.Sprintf("Hi %s, your pass %s has not been used yet. Doors open today.", ev.Holder, ev.Code)
		return ev.Contact, subject, body, nil
	}

	// unknown key: ack and move on
	return "", "", "", nil
}
