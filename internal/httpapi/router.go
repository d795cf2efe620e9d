package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/appointment"
	"eventservices/internal/audit"
	"eventservices/internal/event"
	"eventservices/internal/ledger"
	"eventservices/internal/maintenance"
	"eventservices/internal/notify"
	"eventservices/internal/payment"
	"eventservices/internal/portal"
	"eventservices/internal/resource"
	"eventservices/internal/status"
	"eventservices/internal/timeline"
	"eventservices/internal/webhook"
	"eventservices/pkg/config"
)

type Dependencies struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Logger *slog.Logger
	Ledger *ledger.Ledger
	Queue  notify.Enqueuer
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(api.RequestID)
	r.Use(api.AccessLog(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := deps.DB.Ping(ctx); err != nil {
			api.WriteError(w, http.StatusServiceUnavailable, "NOT_READY", "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	notifier := notify.Notifier{Queue: deps.Queue, Logger: deps.Logger}
	eventRepo := event.NewRepository(deps.DB)
	timelineRepo := timeline.NewRepository(deps.DB)
	paymentRepo := payment.NewRepository(deps.DB)
	resourceRepo := resource.NewRepository(deps.DB)
	portalRepo := portal.NewRepository(deps.DB)

	workflow := event.Workflow{
		IssuePortalToken: portal.IssueToken,
		PortalTokenTTL:   deps.Cfg.PortalTokenTTL,
		PortalBaseURL:    deps.Cfg.PortalBaseURL,
		Notifier:         notifier,
	}
	reviewer := payment.Reviewer{Events: eventRepo, Workflow: workflow}

	deps.Ledger.CheckResource = resource.BookableCheck(func(ctx context.Context, id string) (status.Status, error) {
		res, err := resourceRepo.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		return res.Status, nil
	})

	eventHandlers := event.Handlers{DB: deps.DB, Events: eventRepo, Timelines: timelineRepo, Workflow: workflow}
	appointmentHandlers := appointment.Handlers{
		DB:           deps.DB,
		Appointments: appointment.NewRepository(deps.DB),
		Events:       eventRepo,
		Notifier:     notifier,
	}
	paymentHandlers := payment.Handlers{DB: deps.DB, Payments: paymentRepo, Events: eventRepo, Reviewer: reviewer}
	resourceHandlers := resource.Handlers{DB: deps.DB, Resources: resourceRepo, Events: eventRepo, Ledger: deps.Ledger}
	maintenanceHandlers := maintenance.Handlers{
		DB:           deps.DB,
		Maintenances: maintenance.NewRepository(deps.DB),
		Resources:    resourceRepo,
	}
	auditHandlers := audit.Handlers{Repo: audit.NewRepository(deps.DB)}
	portalHandlers := portal.Handlers{
		DB:           deps.DB,
		Tokens:       portalRepo,
		Events:       eventRepo,
		Payments:     paymentRepo,
		Timelines:    timelineRepo,
		Workflow:     workflow,
		Reviewer:     reviewer,
		SupportEmail: deps.Cfg.PortalSupportEmail,
	}
	webhookHandler := webhook.Handler{
		Secret:   deps.Cfg.PaymentWebhookSecret,
		DB:       deps.DB,
		Reviewer: reviewer,
		Logger:   deps.Logger,
	}

	r.Route("/v1", func(r chi.Router) {
		// Staff APIs
		r.Group(func(r chi.Router) {
			// Production: bearer JWT. Dev: falls back to X-Staff-Id.
			r.Use(api.StaffAuth(deps.Cfg))

			r.Post("/events", eventHandlers.Create)
			r.Get("/events", eventHandlers.List)
			r.Get("/events/{id}", eventHandlers.Get)
			r.Patch("/events/{id}/status", eventHandlers.PatchStatus)
			r.Get("/events/{id}/timeline", eventHandlers.Timeline)

			r.Post("/events/{id}/appointments", appointmentHandlers.Create)
			r.Get("/events/{id}/appointments", appointmentHandlers.ListByEvent)
			r.Post("/appointments/{id}/confirm", appointmentHandlers.Confirm)
			r.Patch("/appointments/{id}/status", appointmentHandlers.PatchStatus)

			r.Post("/events/{id}/payment-plan", paymentHandlers.AssignPlan)
			r.Get("/events/{id}/payments", paymentHandlers.ListByEvent)
			r.Post("/payments/{id}/approve", paymentHandlers.Approve)
			r.Post("/payments/{id}/reject", paymentHandlers.Reject)

			r.Post("/resources", resourceHandlers.Create)
			r.Get("/resources", resourceHandlers.List)
			r.Get("/resources/{id}", resourceHandlers.Get)
			r.Patch("/resources/{id}/status", resourceHandlers.PatchStatus)
			r.Post("/resources/{id}/bookings", resourceHandlers.Reserve)
			r.Get("/resources/{id}/bookings", resourceHandlers.ListBookings)
			r.Delete("/bookings/{bookingId}", resourceHandlers.Release)

			r.Post("/resources/{id}/maintenances", maintenanceHandlers.Create)
			r.Get("/resources/{id}/maintenances", maintenanceHandlers.ListByResource)
			r.Patch("/maintenances/{maintenanceId}/status", maintenanceHandlers.PatchStatus)

			// Destructive and audit endpoints
			r.Group(func(r chi.Router) {
				r.Use(api.RequireAdmin)
				r.Delete("/events/{id}", eventHandlers.Delete)
				r.Delete("/resources/{id}", resourceHandlers.Delete)
				r.Get("/audit", auditHandlers.List)
			})
		})

		// Portal
		r.Route("/portal", func(r chi.Router) {
			// Public, token-based endpoints used by a separate frontend domain.
			// Only allow CORS for explicitly configured origins.
			r.Use(api.CORSMiddleware(api.CORSOptions{
				AllowedOrigins: deps.Cfg.PortalAllowedOrigins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type"},
				MaxAgeSeconds:  600,
			}))

			r.Get("/{token}", portalHandlers.View)
			r.Get("/{token}/timeline", portalHandlers.Timeline)
			r.Post("/{token}/approve", portalHandlers.Approve)
			r.Post("/{token}/follow-up", portalHandlers.RequestFollowUp)
			r.Post("/{token}/reject", portalHandlers.Reject)
			r.Post("/{token}/payments/{paymentId}/receipt", portalHandlers.SubmitReceipt)
		})

		// Webhooks
		r.Post("/webhooks/payments/{topic}", webhookHandler.ServeHTTP)
	})

	return r
}
