package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/payment"
	"eventservices/internal/status"
	"eventservices/pkg/db"
)

const (
	ProviderActor = "payment-provider"

	SignatureHeader = "X-Signature"
	IDHeader        = "X-Webhook-Id"
	TopicHeader     = "X-Topic"
)

var errIgnored = errors.New("callback ignored")

type Handler struct {
	Secret   string
	DB       *pgxpool.Pool
	Reviewer payment.Reviewer
	Logger   *slog.Logger
}

type paymentPayload struct {
	PaymentID     string `json:"paymentId"`
	Note          string `json:"note"`
	IssueCategory string `json:"issueCategory"`
	Reason        string `json:"reason"`
}

// paymentID prefers the explicit field and falls back to a payment_id=... token in the note.
func (p paymentPayload) paymentID() string {
	if id := strings.TrimSpace(p.PaymentID); id != "" {
		return id
	}
	return ParseKeyFromNote(p.Note, "payment_id")
}

// decision maps a topic to a review decision. Provider rejections without a
// category are filed as OTHER.
func decision(topic string, p paymentPayload) (payment.Decision, error) {
	switch topic {
	case TopicPaymentApproved:
		return payment.Decision{To: status.PaymentApproved}, nil
	case TopicPaymentRejected:
		cat := strings.TrimSpace(p.IssueCategory)
		if _, err := payment.ParseIssueCategory(cat); err != nil {
			cat = string(payment.IssueOther)
		}
		return payment.Decision{To: status.PaymentRejected, IssueCategory: cat, Note: p.Reason}, nil
	}
	return payment.Decision{}, errIgnored
}

func (h Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimSpace(r.Header.Get(TopicHeader))
	if topic == "" {
		topic = chi.URLParam(r, "topic")
	}
	topic = NormalizeTopic(topic)
	webhookID := strings.TrimSpace(r.Header.Get(IDHeader))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}
	if !VerifySignature(body, strings.TrimSpace(r.Header.Get(SignatureHeader)), h.Secret) {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook signature")
		return
	}

	payloadHash := sha256Hex(body)
	if webhookID == "" {
		webhookID = payloadHash
	}
	log := h.logger().With("topic", topic, "webhook_id", webhookID)

	var out *payment.Outcome
	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		if err := insertWebhookEvent(r.Context(), tx, topic, webhookID, payloadHash); err != nil {
			if db.IsUniqueViolation(err) {
				log.Debug("webhook already processed")
				return errIgnored
			}
			return err
		}

		var payload paymentPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Warn("webhook payload not decodable", "err", err)
			return nil
		}
		d, err := decision(topic, payload)
		if err != nil {
			log.Info("webhook topic not handled")
			return nil
		}
		id := payload.paymentID()
		if id == "" {
			log.Warn("webhook without payment id")
			return nil
		}

		out, err = h.Reviewer.Review(r.Context(), tx, id, d, ProviderActor)
		return err
	})
	switch {
	case err == nil:
		if out != nil {
			h.Reviewer.Notify(r.Context(), out)
			log.Info("payment reviewed by provider", "payment_id", out.Payment.ID, "status", out.Payment.Status)
		}
	case errors.Is(err, errIgnored):
	default:
		log.Error("webhook processing failed", "err", err)
	}

	// The provider only needs an acknowledgement; failures are not retried by it.
	w.WriteHeader(http.StatusOK)
}

func insertWebhookEvent(ctx context.Context, tx pgx.Tx, topic, webhookID, payloadHash string) error {
	const q = `
INSERT INTO webhook_events (id, provider, topic, webhook_id, payload_hash)
VALUES ($1, 'payments', $2, $3, $4)
`
	_, err := tx.Exec(ctx, q, uuid.NewString(), topic, webhookID, payloadHash)
	return err
}

func sha256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
