// signatures.go — обработчики жизненного цикла подписей.
// POST /api/v1/signatures — размещение подписи
// GET  /api/v1/signatures/{document_id} — подписи документа
// GET  /api/v1/signatures/{document_id}/status — сводка статусов
// POST /api/v1/signatures/{signature_id}/image — изображение слота
// PUT  /api/v1/signatures/{signature_id}/accept — принятие
// PUT  /api/v1/signatures/{signature_id}/reject — отклонение
// POST /api/v1/signatures/finalize — выпуск подписанного артефакта
// POST /api/v1/signatures/invite — приглашение подписанта
// GET  /api/v1/invites/redeem — погашение приглашения (без токена IdP)
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/docsign/internal/api/errors"
	"github.com/bigkaa/docsign/internal/api/middleware"
	"github.com/bigkaa/docsign/internal/domain/approval"
	"github.com/bigkaa/docsign/internal/domain/geom"
	"github.com/bigkaa/docsign/internal/domain/model"
	"github.com/bigkaa/docsign/internal/service"
)

// signatureResponse — представление подписи в API.
type signatureResponse struct {
	ID              string            `json:"id"`
	DocumentID      string            `json:"documentId"`
	Signer          string            `json:"signer"`
	Page            int               `json:"page"`
	Coordinates     []geom.Coordinate `json:"coordinates"`
	Images          []*string         `json:"images"`
	Status          approval.Status   `json:"status"`
	RejectionReason *string           `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func toSignatureResponse(s *model.Signature) signatureResponse {
	return signatureResponse{
		ID:              s.ID,
		DocumentID:      s.DocumentID,
		Signer:          s.Signer,
		Page:            s.Page,
		Coordinates:     s.Coordinates,
		Images:          s.Images,
		Status:          s.Status,
		RejectionReason: s.RejectionReason,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func toSignatureResponses(sigs []*model.Signature) []signatureResponse {
	items := make([]signatureResponse, 0, len(sigs))
	for _, s := range sigs {
		items = append(items, toSignatureResponse(s))
	}
	return items
}

// placeSignatureRequest — тело POST /api/v1/signatures.
type placeSignatureRequest struct {
	DocumentID  string            `json:"documentId"`
	Coordinates []geom.Coordinate `json:"coordinates"`
	Status      string            `json:"status,omitempty"`
}

// PlaceSignature — реализация POST /api/v1/signatures.
// Подписант — текущий аутентифицированный пользователь.
// 201 — создана новая запись, 200 — возвращена существующая.
func (h *APIHandler) PlaceSignature(w http.ResponseWriter, r *http.Request) {
	var req placeSignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	result, err := h.placement.Place(r.Context(), service.PlaceRequest{
		DocumentID:  req.DocumentID,
		Signer:      middleware.ActorFromContext(r.Context()),
		Coordinates: req.Coordinates,
		Status:      approval.Status(req.Status),
	}, r.RemoteAddr)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка размещения подписи")
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toSignatureResponse(result.Signature))
}

// ListSignatures — реализация GET /api/v1/signatures/{document_id}.
func (h *APIHandler) ListSignatures(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "document_id")

	sigs, err := h.placement.ListByDocument(r.Context(), documentID)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения подписей")
		return
	}

	writeJSON(w, http.StatusOK, toSignatureResponses(sigs))
}

// GetSignatureStatus — реализация GET /api/v1/signatures/{document_id}/status.
func (h *APIHandler) GetSignatureStatus(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "document_id")

	summary, err := h.approvals.Summary(r.Context(), documentID)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения сводки статусов")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// attachImageRequest — тело POST /api/v1/signatures/{signature_id}/image.
type attachImageRequest struct {
	Slot  int    `json:"slot"`
	Image string `json:"image"`
}

// AttachSignatureImage — реализация POST /api/v1/signatures/{signature_id}/image.
// Возвращает все подписи документа после обновления слота.
func (h *APIHandler) AttachSignatureImage(w http.ResponseWriter, r *http.Request) {
	signatureID := chi.URLParam(r, "signature_id")

	var req attachImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	sigs, err := h.approvals.AttachImage(r.Context(), signatureID, actor, req.Slot, req.Image, r.RemoteAddr)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка прикрепления изображения")
		return
	}

	writeJSON(w, http.StatusOK, toSignatureResponses(sigs))
}

// AcceptSignature — реализация PUT /api/v1/signatures/{signature_id}/accept.
func (h *APIHandler) AcceptSignature(w http.ResponseWriter, r *http.Request) {
	signatureID := chi.URLParam(r, "signature_id")
	actor := middleware.ActorFromContext(r.Context())

	sig, err := h.approvals.Accept(r.Context(), signatureID, actor, r.RemoteAddr)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка принятия подписи")
		return
	}

	writeJSON(w, http.StatusOK, toSignatureResponse(sig))
}

// rejectSignatureRequest — тело PUT /api/v1/signatures/{signature_id}/reject.
type rejectSignatureRequest struct {
	Reason string `json:"reason"`
}

// RejectSignature — реализация PUT /api/v1/signatures/{signature_id}/reject.
func (h *APIHandler) RejectSignature(w http.ResponseWriter, r *http.Request) {
	signatureID := chi.URLParam(r, "signature_id")

	var req rejectSignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	sig, err := h.approvals.Reject(r.Context(), signatureID, actor, req.Reason, r.RemoteAddr)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка отклонения подписи")
		return
	}

	writeJSON(w, http.StatusOK, toSignatureResponse(sig))
}

// finalizeRequest — тело POST /api/v1/signatures/finalize.
type finalizeRequest struct {
	DocumentID string `json:"documentId"`
}

// finalizeResponse — ответ финализации.
type finalizeResponse struct {
	DocumentID  string `json:"documentId"`
	Filename    string `json:"filename"`
	StoragePath string `json:"storagePath"`
	Stamped     int    `json:"stamped"`
}

// FinalizeDocument — реализация POST /api/v1/signatures/finalize.
func (h *APIHandler) FinalizeDocument(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	result, err := h.finalizer.Finalize(r.Context(), req.DocumentID, actor, r.RemoteAddr)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка финализации документа")
		return
	}

	writeJSON(w, http.StatusOK, finalizeResponse{
		DocumentID:  result.Document.ID,
		Filename:    result.Filename,
		StoragePath: result.StoragePath,
		Stamped:     result.Stamped,
	})
}

// inviteRequest — тело POST /api/v1/signatures/invite.
type inviteRequest struct {
	DocumentID  string `json:"documentId"`
	SignerEmail string `json:"signerEmail"`
}

// InviteSigner — реализация POST /api/v1/signatures/invite.
func (h *APIHandler) InviteSigner(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	result, err := h.invites.Send(r.Context(), req.DocumentID, req.SignerEmail, actor, r.RemoteAddr)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка отправки приглашения")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RedeemInvite — реализация GET /api/v1/invites/redeem?token=...
// Публичный endpoint: вместо токена IdP предъявляется токен приглашения.
func (h *APIHandler) RedeemInvite(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		apierrors.ValidationError(w, "Отсутствует параметр token")
		return
	}

	invite, err := h.invites.Redeem(token)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка погашения приглашения")
		return
	}

	writeJSON(w, http.StatusOK, invite)
}
