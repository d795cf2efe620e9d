package maintenance

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/audit"
	"eventservices/internal/resource"
	"eventservices/internal/status"
	"eventservices/internal/validate"
	"eventservices/pkg/db"
)

type Handlers struct {
	DB           *pgxpool.Pool
	Maintenances *Repository
	Resources    *resource.Repository
}

type CreateRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (r CreateRequest) Validate() error {
	if _, err := ParseType(r.Type); err != nil {
		return validate.ValidationError{Code: "VALIDATION_FAILED", Field: "type", Message: err.Error()}
	}
	return validate.First(
		validate.Required("description", r.Description),
		validate.MaxLen("description", r.Description, 2000),
	)
}

// Create opens a maintenance record on an equipment resource.
func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")

	var req CreateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}

	res, err := h.Resources.GetByID(r.Context(), resourceID)
	if err != nil {
		api.WriteDomainError(w, err, "failed to load resource")
		return
	}
	if res.Type != resource.TypeEquipment {
		api.WriteError(w, http.StatusBadRequest, "EQUIPMENT_REQUIRED", "maintenance applies to equipment resources only")
		return
	}

	t, _ := ParseType(req.Type)
	m := &Maintenance{
		ID:          uuid.NewString(),
		ResourceID:  resourceID,
		Type:        t,
		Description: strings.TrimSpace(req.Description),
		Status:      status.MaintenancePending,
	}
	m.Touch(time.Now())

	actor := api.ActorID(r.Context())
	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		if err := Insert(r.Context(), tx, m); err != nil {
			return err
		}
		return audit.Insert(r.Context(), tx, string(status.EntityMaintenance), m.ID, "CREATED", actor, map[string]any{"resourceId": resourceID, "type": m.Type})
	})
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to create maintenance")
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{"maintenance": m})
}

func (h Handlers) ListByResource(w http.ResponseWriter, r *http.Request) {
	items, err := h.Maintenances.ListByResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type PatchStatusRequest struct {
	Status string `json:"status"`
}

func (r PatchStatusRequest) Validate() error {
	return validate.Required("status", r.Status)
}

func (h Handlers) PatchStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "maintenanceId")

	var req PatchStatusRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}
	next, err := status.Parse(status.EntityMaintenance, req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}

	actor := api.ActorID(r.Context())
	var m *Maintenance
	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		m, err = GetForUpdate(r.Context(), tx, id)
		if err != nil {
			return err
		}
		from := m.Status
		if err := transition(m, next, time.Now()); err != nil {
			return err
		}
		if err := Update(r.Context(), tx, m); err != nil {
			return err
		}
		return audit.Insert(r.Context(), tx, string(status.EntityMaintenance), m.ID, "STATUS_CHANGED", actor, map[string]any{"from": from, "to": next})
	})
	if err != nil {
		api.WriteDomainError(w, err, "failed to change maintenance status")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"maintenance": m})
}
