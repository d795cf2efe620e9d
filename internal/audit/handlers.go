package audit

import (
	"net/http"
	"strconv"
	"strings"

	"eventservices/internal/api"
)

type Handlers struct {
	Repo *Repository
}

// List serves GET /v1/audit?entityType=event&entityId=...
func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	entityType := strings.TrimSpace(r.URL.Query().Get("entityType"))
	entityID := strings.TrimSpace(r.URL.Query().Get("entityId"))
	if entityType == "" || entityID == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "entityType and entityId are required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.Repo.ListByEntity(r.Context(), entityType, entityID, limit)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list audit entries")
		return
	}
	if items == nil {
		items = []Entry{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}
