package notify

import (
	"context"
	"fmt"
	"log"
	"net/mail"

	pubnub "github.com/pubnub/go"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
)

// Notifier delivers one message to one recipient. Implementations must treat
// failures as their own problem to report; callers only log them.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, message string) error
}

// ConsoleNotifier logs deliveries, used in development.
type ConsoleNotifier struct{}

func NewConsole() *ConsoleNotifier { return &ConsoleNotifier{} }

func (c *ConsoleNotifier) Notify(_ context.Context, recipient, subject, message string) error {
	log.Printf("[notify] %s | %s :: %s", recipient, subject, message)
	return nil
}

// PubNubNotifier pushes to the holder's realtime channel so an open
// purchase/status page updates without polling.
type PubNubNotifier struct {
	pn *pubnub.PubNub
}

func NewPubNub(pn *pubnub.PubNub) *PubNubNotifier {
	return &PubNubNotifier{pn: pn}
}

func (n *PubNubNotifier) Notify(_ context.Context, recipient, subject, message string) error {
	channel := fmt.Sprintf("holder-%s", recipient)
	_, _, err := n.pn.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":    "pass_update",
			"subject": subject,
			"body":    message,
		}).
		Execute()
	return err
}

// MailNotifier sends through the app's configured SMTP settings.
type MailNotifier struct {
	app core.App
}

func NewMail(app core.App) *MailNotifier {
	return &MailNotifier{app: app}
}

func (n *MailNotifier) Notify(_ context.Context, recipient, subject, message string) error {
	settings := n.app.Settings()

	return n.app.NewMailClient().Send(&mailer.Message{
		From: mail.Address{
			Name:    settings.Meta.SenderName,
			Address: settings.Meta.SenderAddress,
		},
		To:      []mail.Address{{Address: recipient}},
		Subject: subject,
		Text:    message,
	})
}
