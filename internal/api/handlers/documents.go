// documents.go — обработчики работы с документами.
// POST /api/v1/documents — загрузка PDF (multipart)
// GET  /api/v1/documents — список документов владельца
// GET  /api/v1/documents/{document_id}/content — содержимое PDF
package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/docsign/internal/api/errors"
	"github.com/bigkaa/docsign/internal/api/middleware"
	"github.com/bigkaa/docsign/internal/domain/model"
)

// maxUploadBytes — предел размера загружаемого PDF (50 МиБ).
const maxUploadBytes = 50 << 20

// documentResponse — представление документа в API.
type documentResponse struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"originalFilename"`
	OwnerID          string    `json:"ownerId"`
	UploadedAt       time.Time `json:"uploadedAt"`
}

func toDocumentResponse(d *model.Document) documentResponse {
	return documentResponse{
		ID:               d.ID,
		OriginalFilename: d.OriginalFilename,
		OwnerID:          d.OwnerID,
		UploadedAt:       d.UploadedAt,
	}
}

// UploadDocument — реализация POST /api/v1/documents.
// Принимает multipart/form-data с полем file.
func (h *APIHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Ожидается multipart-поле file с PDF-документом")
		return
	}
	defer file.Close()

	doc, err := h.documents.Upload(r.Context(), file, header.Filename, actor, r.RemoteAddr)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка загрузки документа")
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// ListDocuments — реализация GET /api/v1/documents.
// Возвращает документы текущего пользователя, новые первыми.
func (h *APIHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	docs, err := h.documents.List(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка документов")
		return
	}

	items := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, toDocumentResponse(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

// GetDocumentContent — реализация GET /api/v1/documents/{document_id}/content.
// Стримит PDF клиенту.
func (h *APIHandler) GetDocumentContent(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "document_id")

	doc, f, err := h.documents.Content(r.Context(), documentID)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка чтения документа")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+doc.OriginalFilename+`"`)
	_, _ = io.Copy(w, f)
}
