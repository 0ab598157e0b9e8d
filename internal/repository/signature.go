package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/docsign/internal/domain/approval"
	"github.com/bigkaa/docsign/internal/domain/model"
)

// SignatureRepository — интерфейс доступа к таблице signatures.
//
// Дедупликация размещений обеспечивается unique-индексом
// (document_id, signer, page): конкурирующий Create возвращает
// ErrConflict, после чего вызывающий перечитывает существующую запись.
type SignatureRepository interface {
	// Create создаёт запись подписи. ErrConflict при нарушении
	// ключа дедупликации (document_id, signer, page).
	Create(ctx context.Context, s *model.Signature) error
	// GetByID возвращает подпись по UUID.
	GetByID(ctx context.Context, signatureID string) (*model.Signature, error)
	// GetByIDForUpdate возвращает подпись с блокировкой строки
	// (SELECT ... FOR UPDATE). Вызывается только внутри транзакции.
	GetByIDForUpdate(ctx context.Context, signatureID string) (*model.Signature, error)
	// GetByKey возвращает подпись по ключу дедупликации.
	GetByKey(ctx context.Context, documentID, signer string, page int) (*model.Signature, error)
	// ListByDocument возвращает подписи документа в порядке вставки.
	ListByDocument(ctx context.Context, documentID string) ([]*model.Signature, error)
	// ListByDocumentAndStatus возвращает подписи документа с указанным
	// статусом в порядке вставки.
	ListByDocumentAndStatus(ctx context.Context, documentID string, status approval.Status) ([]*model.Signature, error)
	// UpdateStatus устанавливает статус и причину отклонения.
	// Compare-and-set: обновление применяется только если текущий
	// статус строки равен from; иначе возвращается ErrConflict, и
	// вызывающий перечитывает запись.
	UpdateStatus(ctx context.Context, signatureID string, from, to approval.Status, reason *string) (*model.Signature, error)
	// UpdateImages перезаписывает массив изображений подписи.
	UpdateImages(ctx context.Context, signatureID string, images []*string) error
}

// signatureRepo — реализация SignatureRepository.
type signatureRepo struct {
	db DBTX
}

// NewSignatureRepository создаёт репозиторий подписей.
func NewSignatureRepository(db DBTX) SignatureRepository {
	return &signatureRepo{db: db}
}

// signatureColumns — список колонок для SELECT в порядке scanSignature.
const signatureColumns = `id, document_id, signer, page, coordinates, images,
	status, rejection_reason, created_at, updated_at`

// scanSignature сканирует строку signatures, распаковывая jsonb-колонки.
func scanSignature(row pgx.Row) (*model.Signature, error) {
	s := &model.Signature{}
	var coordsJSON, imagesJSON []byte
	var status string

	err := row.Scan(
		&s.ID, &s.DocumentID, &s.Signer, &s.Page, &coordsJSON, &imagesJSON,
		&status, &s.RejectionReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = approval.Status(status)
	if err := json.Unmarshal(coordsJSON, &s.Coordinates); err != nil {
		return nil, fmt.Errorf("ошибка распаковки координат: %w", err)
	}
	if err := json.Unmarshal(imagesJSON, &s.Images); err != nil {
		return nil, fmt.Errorf("ошибка распаковки изображений: %w", err)
	}
	return s, nil
}

func (r *signatureRepo) Create(ctx context.Context, s *model.Signature) error {
	coordsJSON, err := json.Marshal(s.Coordinates)
	if err != nil {
		return fmt.Errorf("ошибка упаковки координат: %w", err)
	}
	images := s.Images
	if images == nil {
		images = []*string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("ошибка упаковки изображений: %w", err)
	}

	query := `
		INSERT INTO signatures (id, document_id, signer, page, coordinates, images, status, rejection_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		s.ID, s.DocumentID, s.Signer, s.Page, coordsJSON, imagesJSON,
		string(s.Status), s.RejectionReason,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: подпись для этой страницы уже размещена", ErrConflict)
		}
		return fmt.Errorf("ошибка создания подписи: %w", err)
	}
	return nil
}

func (r *signatureRepo) getOne(ctx context.Context, query string, args ...any) (*model.Signature, error) {
	s, err := scanSignature(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения подписи: %w", err)
	}
	return s, nil
}

func (r *signatureRepo) GetByID(ctx context.Context, signatureID string) (*model.Signature, error) {
	query := fmt.Sprintf(`SELECT %s FROM signatures WHERE id = $1`, signatureColumns)
	return r.getOne(ctx, query, signatureID)
}

func (r *signatureRepo) GetByIDForUpdate(ctx context.Context, signatureID string) (*model.Signature, error) {
	query := fmt.Sprintf(`SELECT %s FROM signatures WHERE id = $1 FOR UPDATE`, signatureColumns)
	return r.getOne(ctx, query, signatureID)
}

func (r *signatureRepo) GetByKey(ctx context.Context, documentID, signer string, page int) (*model.Signature, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM signatures WHERE document_id = $1 AND signer = $2 AND page = $3`,
		signatureColumns,
	)
	return r.getOne(ctx, query, documentID, signer, page)
}

func (r *signatureRepo) list(ctx context.Context, query string, args ...any) ([]*model.Signature, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка подписей: %w", err)
	}
	defer rows.Close()

	var result []*model.Signature
	for rows.Next() {
		s, err := scanSignature(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования подписи: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *signatureRepo) ListByDocument(ctx context.Context, documentID string) ([]*model.Signature, error) {
	// Порядок вставки — естественный порядок обработки при финализации
	query := fmt.Sprintf(
		`SELECT %s FROM signatures WHERE document_id = $1 ORDER BY created_at, id`,
		signatureColumns,
	)
	return r.list(ctx, query, documentID)
}

func (r *signatureRepo) ListByDocumentAndStatus(ctx context.Context, documentID string, status approval.Status) ([]*model.Signature, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM signatures WHERE document_id = $1 AND status = $2 ORDER BY created_at, id`,
		signatureColumns,
	)
	return r.list(ctx, query, documentID, string(status))
}

func (r *signatureRepo) UpdateStatus(ctx context.Context, signatureID string, from, to approval.Status, reason *string) (*model.Signature, error) {
	query := fmt.Sprintf(`
		UPDATE signatures
		SET status = $2, rejection_reason = $3, updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING %s`, signatureColumns)

	s, err := scanSignature(r.db.QueryRow(ctx, query, signatureID, string(to), reason, string(from)))
	if err != nil {
		if err == pgx.ErrNoRows {
			// Строки нет либо статус уже изменён конкурентом —
			// различаем перечитыванием.
			if _, gerr := r.GetByID(ctx, signatureID); gerr != nil {
				return nil, gerr
			}
			return nil, fmt.Errorf("%w: статус подписи изменён конкурентно", ErrConflict)
		}
		return nil, fmt.Errorf("ошибка обновления статуса подписи: %w", err)
	}
	return s, nil
}

func (r *signatureRepo) UpdateImages(ctx context.Context, signatureID string, images []*string) error {
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("ошибка упаковки изображений: %w", err)
	}

	query := `
		UPDATE signatures
		SET images = $2, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, signatureID, imagesJSON)
	if err != nil {
		return fmt.Errorf("ошибка обновления изображений подписи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
