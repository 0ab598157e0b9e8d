package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/docsign/internal/domain/model"
)

// AuditRepository — интерфейс доступа к таблице audit_entries.
// Журнал append-only: только вставка и чтение.
type AuditRepository interface {
	// Append добавляет запись в журнал.
	Append(ctx context.Context, e *model.AuditEntry) error
	// ListByDocument возвращает записи документа в хронологическом порядке.
	ListByDocument(ctx context.Context, documentID string) ([]*model.AuditEntry, error)
}

// auditRepo — реализация AuditRepository.
type auditRepo struct {
	db DBTX
}

// NewAuditRepository создаёт репозиторий журнала аудита.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (document_id, actor, action, origin)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		e.DocumentID, e.Actor, e.Action, e.Origin,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал аудита: %w", err)
	}
	return nil
}

func (r *auditRepo) ListByDocument(ctx context.Context, documentID string) ([]*model.AuditEntry, error) {
	query := `
		SELECT id, document_id, actor, action, origin, created_at
		FROM audit_entries
		WHERE document_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала аудита: %w", err)
	}
	defer rows.Close()

	var result []*model.AuditEntry
	for rows.Next() {
		e := &model.AuditEntry{}
		if err := rows.Scan(
			&e.ID, &e.DocumentID, &e.Actor, &e.Action, &e.Origin, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи аудита: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
