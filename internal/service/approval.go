// approval.go — сервис согласования подписей.
// Переходы статусов выполняет машина состояний approval:
// принять/отклонить может только сам подписант, отклонение требует
// причину, принятие стирает ранее указанную причину. Повторный
// перевод в тот же терминальный статус идемпотентен.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/docsign/internal/domain/approval"
	"github.com/bigkaa/docsign/internal/domain/model"
	"github.com/bigkaa/docsign/internal/repository"
)

// SlotUpdater — транзакционное обновление слота изображения.
// Реализуется repository.SignatureSlotStore.
type SlotUpdater interface {
	UpdateSlot(ctx context.Context, signatureID string, slot int, image string) (*model.Signature, error)
}

// StatusSummary — сводка статусов подписей документа.
type StatusSummary struct {
	Total      int                `json:"total"`
	Pending    int                `json:"pending"`
	Signed     int                `json:"signed"`
	Rejected   int                `json:"rejected"`
	Signatures []*model.Signature `json:"signatures"`
}

// ApprovalService — сервис согласования подписей.
type ApprovalService struct {
	sigRepo  repository.SignatureRepository
	slots    SlotUpdater
	recorder *AuditRecorder
	logger   *slog.Logger
}

// NewApprovalService создаёт сервис согласования.
func NewApprovalService(
	sigRepo repository.SignatureRepository,
	slots SlotUpdater,
	recorder *AuditRecorder,
	logger *slog.Logger,
) *ApprovalService {
	return &ApprovalService{
		sigRepo:  sigRepo,
		slots:    slots,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "approval_service")),
	}
}

// Accept переводит подпись в статус signed.
// actor обязан совпадать с подписантом записи. Причина отклонения,
// если была, стирается.
func (s *ApprovalService) Accept(ctx context.Context, signatureID, actor, origin string) (*model.Signature, error) {
	sig, err := s.getOwned(ctx, signatureID, actor)
	if err != nil {
		return nil, err
	}

	updated, err := s.setStatus(ctx, sig, approval.StatusSigned, nil)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(AuditEvent{
		DocumentID: sig.DocumentID,
		Actor:      actor,
		Action:     model.AuditActionAccepted,
		Origin:     origin,
	})

	s.logger.Info("подпись принята",
		slog.String("signature_id", sig.ID),
		slog.String("signer", actor))

	return updated, nil
}

// Reject переводит подпись в статус rejected с обязательной причиной.
func (s *ApprovalService) Reject(ctx context.Context, signatureID, actor, reason, origin string) (*model.Signature, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: отклонение требует причину", ErrValidation)
	}

	sig, err := s.getOwned(ctx, signatureID, actor)
	if err != nil {
		return nil, err
	}

	updated, err := s.setStatus(ctx, sig, approval.StatusRejected, &reason)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(AuditEvent{
		DocumentID: sig.DocumentID,
		Actor:      actor,
		Action:     model.AuditActionRejected,
		Origin:     origin,
	})

	s.logger.Info("подпись отклонена",
		slog.String("signature_id", sig.ID),
		slog.String("signer", actor))

	return updated, nil
}

// AttachImage прикрепляет изображение (data-URI) к слоту подписи и
// возвращает все подписи документа. Слот соответствует индексу
// координаты; при необходимости массив слотов дорастает.
// В отличие от Accept/Reject прикрепить изображение может любой
// аутентифицированный пользователь, не только подписант записи.
func (s *ApprovalService) AttachImage(ctx context.Context, signatureID, actor string, slot int, image, origin string) ([]*model.Signature, error) {
	if slot < 0 {
		return nil, fmt.Errorf("%w: отрицательный индекс слота", ErrValidation)
	}
	if strings.TrimSpace(image) == "" {
		return nil, fmt.Errorf("%w: пустое изображение", ErrValidation)
	}

	sig, err := s.getByID(ctx, signatureID)
	if err != nil {
		return nil, err
	}

	updated, err := s.slots.UpdateSlot(ctx, sig.ID, slot, image)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.recorder.Record(AuditEvent{
		DocumentID: updated.DocumentID,
		Actor:      actor,
		Action:     model.AuditActionUploadedImage,
		Origin:     origin,
	})

	return s.sigRepo.ListByDocument(ctx, updated.DocumentID)
}

// Summary возвращает сводку статусов подписей документа.
func (s *ApprovalService) Summary(ctx context.Context, documentID string) (*StatusSummary, error) {
	sigs, err := s.sigRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	summary := &StatusSummary{
		Total:      len(sigs),
		Signatures: sigs,
	}
	for _, sig := range sigs {
		switch sig.Status {
		case approval.StatusPending:
			summary.Pending++
		case approval.StatusSigned:
			summary.Signed++
		case approval.StatusRejected:
			summary.Rejected++
		}
	}

	return summary, nil
}

// setStatus проверяет переход по машине состояний и выполняет
// compare-and-set обновление статуса. Если между чтением и UPDATE
// статус изменил конкурент, запись перечитывается: совпадение с
// целевым статусом — идемпотентный повтор, иначе переход от свежего
// статуса невозможен (терминальные статусы неизменяемы).
func (s *ApprovalService) setStatus(ctx context.Context, sig *model.Signature, target approval.Status, reason *string) (*model.Signature, error) {
	if err := approval.Transition(sig.Status, target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransition, err)
	}

	updated, err := s.sigRepo.UpdateStatus(ctx, sig.ID, sig.Status, target, reason)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("ошибка обновления статуса: %w", err)
	}

	cur, rerr := s.getByID(ctx, sig.ID)
	if rerr != nil {
		return nil, rerr
	}
	if cur.Status == target {
		return cur, nil
	}
	if terr := approval.Transition(cur.Status, target); terr != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransition, terr)
	}
	return nil, fmt.Errorf("%w: статус изменён конкурентно", ErrConflict)
}

// getByID возвращает подпись, транслируя repository.ErrNotFound.
func (s *ApprovalService) getByID(ctx context.Context, signatureID string) (*model.Signature, error) {
	sig, err := s.sigRepo.GetByID(ctx, signatureID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sig, nil
}

// getOwned возвращает подпись и проверяет, что actor — её подписант.
func (s *ApprovalService) getOwned(ctx context.Context, signatureID, actor string) (*model.Signature, error) {
	sig, err := s.getByID(ctx, signatureID)
	if err != nil {
		return nil, err
	}

	if sig.Signer != actor {
		return nil, fmt.Errorf("%w: подпись принадлежит другому подписанту", ErrForbidden)
	}

	return sig, nil
}
