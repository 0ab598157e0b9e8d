// slot.go — транзакционное обновление слотов изображений подписи.
// Строка блокируется SELECT ... FOR UPDATE на время read-modify-write,
// чтобы параллельные загрузки в разные слоты не теряли изменения.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/docsign/internal/domain/model"
)

// SignatureSlotStore — обновление слотов изображений в транзакции.
type SignatureSlotStore struct {
	tx *TxRunner
}

// NewSignatureSlotStore создаёт хранилище слотов.
func NewSignatureSlotStore(tx *TxRunner) *SignatureSlotStore {
	return &SignatureSlotStore{tx: tx}
}

// UpdateSlot записывает изображение в слот подписи.
// Массив слотов при необходимости дорастает до len(coordinates)
// или slot+1. Возвращает обновлённую запись.
func (s *SignatureSlotStore) UpdateSlot(ctx context.Context, signatureID string, slot int, image string) (*model.Signature, error) {
	var out *model.Signature

	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		repo := NewSignatureRepository(tx)

		sig, err := repo.GetByIDForUpdate(ctx, signatureID)
		if err != nil {
			return err
		}

		sig.PadImages(slot)
		sig.Images[slot] = &image

		if err := repo.UpdateImages(ctx, sig.ID, sig.Images); err != nil {
			return fmt.Errorf("ошибка обновления слотов изображений: %w", err)
		}

		out = sig
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
