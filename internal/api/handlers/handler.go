// handler.go — основной обработчик API модуля подписания.
// Объединяет health и бизнес-обработчики, делегируя запросы
// в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/docsign/internal/api/errors"
	"github.com/bigkaa/docsign/internal/service"
)

// APIHandler — основной обработчик API модуля подписания.
type APIHandler struct {
	health    *HealthHandler
	documents *service.DocumentService
	placement *service.PlacementService
	approvals *service.ApprovalService
	finalizer *service.FinalizeService
	invites   *service.InviteService
	audit     *service.AuditService
	logger    *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	documents *service.DocumentService,
	placement *service.PlacementService,
	approvals *service.ApprovalService,
	finalizer *service.FinalizeService,
	invites *service.InviteService,
	audit *service.AuditService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		documents: documents,
		placement: placement,
		approvals: approvals,
		finalizer: finalizer,
		invites:   invites,
		audit:     audit,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError маппит ошибку сервисного слоя в HTTP-ответ.
// Неизвестные ошибки логируются и возвращаются как 500.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrTransition):
		apierrors.InvalidTransition(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInviteInvalid):
		apierrors.InviteInvalid(w, err.Error())
	default:
		h.logger.Error(logMsg, slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
