package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
)

// Mailer delivers transactional mail over plain SMTP. Local development
// points it at Mailpit.
type Mailer struct {
	addr string
	from string
}

// NewMailer constructs a mailer for the given SMTP endpoint. from is the
// sender used when a payload carries none.
func NewMailer(host string, port int, from string) *Mailer {
	return &Mailer{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: from,
	}
}

// Send delivers one message.
func (m *Mailer) Send(payload SendEmailPayload) error {
	from := payload.From
	if from == "" {
		from = m.from
	}
	msg := buildMessage(from, payload.To, payload.Subject, payload.Body)
	if err := smtp.SendMail(m.addr, nil, from, []string{payload.To}, msg); err != nil {
		return fmt.Errorf("jobs: send mail to %s: %w", payload.To, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// NewSendEmailHandler returns the handler for TaskTypeSendEmail tasks. A
// malformed payload is dropped; delivery failures are retried by the queue.
func NewSendEmailHandler(mailer *Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("malformed send-email payload", slog.Any("error", err))
			return asynq.SkipRetry
		}
		if err := mailer.Send(payload); err != nil {
			logger.Error("send email failed",
				slog.String("to", payload.To), slog.Any("error", err))
			return err
		}
		logger.Info("email sent", slog.String("to", payload.To),
			slog.String("subject", payload.Subject))
		return nil
	}
}
