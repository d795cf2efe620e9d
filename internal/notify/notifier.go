package notify

import (
	"context"
	"log/slog"
	"strings"

	"eventservices/internal/dispatch"
)

type Recipient struct {
	Name  string
	Email string
	Phone string
}

type Enqueuer interface {
	Enqueue(ctx context.Context, t dispatch.JobType, payload any, opts ...dispatch.EnqueueOption) (string, error)
}

// Notifier renders a template and enqueues one job per channel the recipient has.
// It never fails the caller: enqueue problems are logged.
type Notifier struct {
	Queue  Enqueuer
	Logger *slog.Logger
}

// Notify sends tmpl to rcpt. key identifies the logical notification so redelivery
// and repeated calls send at most once per channel.
func (n Notifier) Notify(ctx context.Context, rcpt Recipient, tmpl, key string, data map[string]any) {
	if n.Queue == nil {
		return
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["ClientName"]; !ok {
		data["ClientName"] = rcpt.Name
	}
	subject, body, err := Render(tmpl, data)
	if err != nil {
		logger.Error("render notification failed", "template", tmpl, "key", key, "err", err)
		return
	}

	// Jobs outlive the request.
	ctx = context.WithoutCancel(ctx)

	if email := strings.TrimSpace(rcpt.Email); email != "" {
		if _, err := n.Queue.Enqueue(ctx, dispatch.JobMail, MailPayload{To: email, Subject: subject, Body: body}, dispatch.WithKey(key+":mail")); err != nil {
			logger.Warn("enqueue mail failed", "template", tmpl, "key", key, "err", err)
		}
	}
	if phone := strings.TrimSpace(rcpt.Phone); phone != "" {
		if _, err := n.Queue.Enqueue(ctx, dispatch.JobWhatsApp, WhatsAppPayload{To: phone, Body: body}, dispatch.WithKey(key+":whatsapp")); err != nil {
			logger.Warn("enqueue whatsapp failed", "template", tmpl, "key", key, "err", err)
		}
	}
}
