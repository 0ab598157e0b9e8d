// placement.go — сервис размещения подписей.
// Одна запись на ключ (документ, подписант, страница): при повторном
// размещении возвращается существующая запись, новые координаты
// отбрасываются (first-write-wins). Гонки разрешает уникальный
// индекс БД.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bigkaa/docsign/internal/domain/approval"
	"github.com/bigkaa/docsign/internal/domain/geom"
	"github.com/bigkaa/docsign/internal/domain/model"
	"github.com/bigkaa/docsign/internal/repository"
)

// PlaceRequest — запрос на размещение подписи.
type PlaceRequest struct {
	DocumentID  string
	Signer      string
	Coordinates []geom.Coordinate
	// Status — начальный статус; пустой означает pending
	Status approval.Status
}

// PlaceResult — результат размещения.
type PlaceResult struct {
	Signature *model.Signature
	// Created — false, если возвращена существующая запись
	Created bool
}

// PlacementService — сервис размещения подписей.
type PlacementService struct {
	sigRepo  repository.SignatureRepository
	docs     *DocumentService
	recorder *AuditRecorder
	logger   *slog.Logger
}

// NewPlacementService создаёт сервис размещения.
func NewPlacementService(
	sigRepo repository.SignatureRepository,
	docs *DocumentService,
	recorder *AuditRecorder,
	logger *slog.Logger,
) *PlacementService {
	return &PlacementService{
		sigRepo:  sigRepo,
		docs:     docs,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "placement_service")),
	}
}

// Place размещает подпись. Все координаты запроса относятся к одной
// странице — странице первой координаты (ключ дедупликации).
func (s *PlacementService) Place(ctx context.Context, req PlaceRequest, origin string) (*PlaceResult, error) {
	if req.Signer == "" {
		return nil, fmt.Errorf("%w: не указан подписант", ErrValidation)
	}
	if len(req.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: не указаны координаты", ErrValidation)
	}
	for i, c := range req.Coordinates {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: координата %d вне допустимого диапазона", ErrValidation, i)
		}
	}

	status := req.Status
	if status == "" {
		status = approval.StatusPending
	}
	if !approval.Valid(status) {
		return nil, fmt.Errorf("%w: недопустимый статус %q", ErrValidation, string(req.Status))
	}

	if _, err := s.docs.Get(ctx, req.DocumentID); err != nil {
		return nil, err
	}

	page := req.Coordinates[0].Page

	// Быстрый путь: запись уже существует
	existing, err := s.sigRepo.GetByKey(ctx, req.DocumentID, req.Signer, page)
	if err == nil {
		return &PlaceResult{Signature: existing, Created: false}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	sig := &model.Signature{
		ID:          uuid.New().String(),
		DocumentID:  req.DocumentID,
		Signer:      req.Signer,
		Page:        page,
		Coordinates: req.Coordinates,
		Images:      make([]*string, len(req.Coordinates)),
		Status:      status,
	}

	if err := s.sigRepo.Create(ctx, sig); err != nil {
		// Гонка: параллельный запрос успел раньше — возвращаем его запись
		if errors.Is(err, repository.ErrConflict) {
			existing, getErr := s.sigRepo.GetByKey(ctx, req.DocumentID, req.Signer, page)
			if getErr != nil {
				return nil, fmt.Errorf("конфликт размещения без существующей записи: %w", getErr)
			}
			return &PlaceResult{Signature: existing, Created: false}, nil
		}
		return nil, fmt.Errorf("ошибка сохранения подписи: %w", err)
	}

	s.recorder.Record(AuditEvent{
		DocumentID: req.DocumentID,
		Actor:      req.Signer,
		Action:     model.AuditActionSigned,
		Origin:     origin,
	})

	s.logger.Info("подпись размещена",
		slog.String("signature_id", sig.ID),
		slog.String("document_id", req.DocumentID),
		slog.String("signer", req.Signer),
		slog.Int("page", page))

	return &PlaceResult{Signature: sig, Created: true}, nil
}

// ListByDocument возвращает все подписи документа в порядке создания.
func (s *PlacementService) ListByDocument(ctx context.Context, documentID string) ([]*model.Signature, error) {
	if _, err := s.docs.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.sigRepo.ListByDocument(ctx, documentID)
}
