// audit.go — обработчик журнала аудита.
// GET /api/v1/audit/{document_id} — события документа в хронологическом порядке.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docsign/internal/domain/model"
)

// auditEntryResponse — представление записи журнала в API.
type auditEntryResponse struct {
	ID         int64     `json:"id"`
	DocumentID string    `json:"documentId"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Origin     string    `json:"origin,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toAuditEntryResponse(e *model.AuditEntry) auditEntryResponse {
	return auditEntryResponse{
		ID:         e.ID,
		DocumentID: e.DocumentID,
		Actor:      e.Actor,
		Action:     e.Action,
		Origin:     e.Origin,
		CreatedAt:  e.CreatedAt,
	}
}

// GetAuditTrail — реализация GET /api/v1/audit/{document_id}.
func (h *APIHandler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "document_id")

	entries, err := h.audit.Trail(r.Context(), documentID)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка чтения журнала аудита")
		return
	}

	items := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toAuditEntryResponse(e))
	}

	writeJSON(w, http.StatusOK, items)
}
