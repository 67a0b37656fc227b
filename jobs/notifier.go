package jobs

import (
	"context"
	"fmt"
)

// Notifier delivers account notifications through the job queue.
type Notifier struct {
	client *Client
	from   string
}

// NewNotifier constructs a Notifier.
func NewNotifier(client *Client, from string) *Notifier {
	return &Notifier{client: client, from: from}
}

// SendTempPassword enqueues delivery of a temporary password.
func (n *Notifier) SendTempPassword(ctx context.Context, email, tempPassword string) error {
	if n == nil || n.client == nil {
		return nil
	}
	_, err := n.client.EnqueueSendEmail(ctx, SendEmailPayload{
		From:    n.from,
		To:      email,
		Subject: "Su contraseña temporal",
		Body: fmt.Sprintf(
			"Se generó una contraseña temporal para su cuenta: %s\nCámbiela al iniciar sesión.",
			tempPassword),
	})
	return err
}
