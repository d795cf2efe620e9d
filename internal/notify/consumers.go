package notify

import (
	"context"
	"log/slog"

	"eventservices/internal/dispatch"
	"eventservices/pkg/mail"
	"eventservices/pkg/whatsapp"
)

type MailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type WhatsAppPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type MailConsumer struct {
	Sender mail.Sender
}

func (c MailConsumer) Handle(ctx context.Context, job dispatch.Job) error {
	var p MailPayload
	if err := job.Decode(&p); err != nil {
		return err
	}
	return c.Sender.Send(ctx, p.To, p.Subject, p.Body)
}

// WhatsAppConsumer logs instead of sending when Sender is nil (no provider configured).
type WhatsAppConsumer struct {
	Sender whatsapp.Sender
	Logger *slog.Logger
}

func (c WhatsAppConsumer) Handle(ctx context.Context, job dispatch.Job) error {
	var p WhatsAppPayload
	if err := job.Decode(&p); err != nil {
		return err
	}
	if c.Sender == nil {
		if c.Logger != nil {
			c.Logger.Info("whatsapp message (not sent, provider disabled)", "job_id", job.ID, "to", p.To)
		}
		return nil
	}
	msgID, err := c.Sender.Send(ctx, p.To, p.Body)
	if err != nil {
		return err
	}
	if c.Logger != nil {
		c.Logger.Debug("whatsapp message sent", "job_id", job.ID, "provider_id", msgID)
	}
	return nil
}

// Register wires both consumers into the queue.
func Register(q *dispatch.Queue, mailSender mail.Sender, wa whatsapp.Sender, logger *slog.Logger) {
	q.Register(dispatch.JobMail, MailConsumer{Sender: mailSender})
	q.Register(dispatch.JobWhatsApp, WhatsAppConsumer{Sender: wa, Logger: logger})
}
