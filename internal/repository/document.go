package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/docsign/internal/domain/model"
)

// DocumentRepository — интерфейс доступа к таблице documents.
type DocumentRepository interface {
	// Create создаёт запись документа.
	Create(ctx context.Context, d *model.Document) error
	// GetByID возвращает документ по UUID.
	GetByID(ctx context.Context, documentID string) (*model.Document, error)
	// ListByOwner возвращает документы владельца, новые — первыми.
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Document, error)
}

// documentRepo — реализация DocumentRepository.
type documentRepo struct {
	db DBTX
}

// NewDocumentRepository создаёт репозиторий документов.
func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, d *model.Document) error {
	query := `
		INSERT INTO documents (id, original_filename, storage_path, owner_id, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		d.ID, d.OriginalFilename, d.StoragePath, d.OwnerID, d.UploadedAt,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: документ с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания документа: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, documentID string) (*model.Document, error) {
	query := `
		SELECT id, original_filename, storage_path, owner_id, uploaded_at, created_at, updated_at
		FROM documents
		WHERE id = $1`

	d := &model.Document{}
	err := r.db.QueryRow(ctx, query, documentID).Scan(
		&d.ID, &d.OriginalFilename, &d.StoragePath, &d.OwnerID,
		&d.UploadedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения документа: %w", err)
	}
	return d, nil
}

func (r *documentRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Document, error) {
	query := `
		SELECT id, original_filename, storage_path, owner_id, uploaded_at, created_at, updated_at
		FROM documents
		WHERE owner_id = $1
		ORDER BY uploaded_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка документов: %w", err)
	}
	defer rows.Close()

	var result []*model.Document
	for rows.Next() {
		d := &model.Document{}
		if err := rows.Scan(
			&d.ID, &d.OriginalFilename, &d.StoragePath, &d.OwnerID,
			&d.UploadedAt, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования документа: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
