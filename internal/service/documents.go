// documents.go — сервис управления документами.
// Загрузка PDF в blob-хранилище, список документов владельца,
// выдача содержимого. Метаданные кэшируются в LRU.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/docsign/internal/domain/model"
	"github.com/bigkaa/docsign/internal/repository"
	"github.com/bigkaa/docsign/internal/storage/filestore"
)

// pdfMagic — сигнатура PDF-файла.
const pdfMagic = "%PDF-"

// DocumentService — сервис управления документами.
type DocumentService struct {
	docRepo  repository.DocumentRepository
	store    *filestore.FileStore
	cache    *CacheService
	recorder *AuditRecorder
	logger   *slog.Logger
}

// NewDocumentService создаёт сервис документов.
func NewDocumentService(
	docRepo repository.DocumentRepository,
	store *filestore.FileStore,
	cache *CacheService,
	recorder *AuditRecorder,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:  docRepo,
		store:    store,
		cache:    cache,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "document_service")),
	}
}

// Upload сохраняет загруженный PDF на диск и регистрирует документ в БД.
// Проверяет сигнатуру PDF по первым байтам потока.
func (s *DocumentService) Upload(ctx context.Context, reader io.Reader, originalFilename, ownerID, origin string) (*model.Document, error) {
	if originalFilename == "" {
		return nil, fmt.Errorf("%w: не указано имя файла", ErrValidation)
	}

	// Проверка сигнатуры без потери прочитанных байт
	head := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("ошибка чтения загружаемого файла: %w", err)
	}
	if n < len(pdfMagic) || string(head) != pdfMagic {
		return nil, fmt.Errorf("%w: файл не является PDF", ErrValidation)
	}
	full := io.MultiReader(strings.NewReader(string(head)), reader)

	result, err := s.store.SaveUpload(full, originalFilename, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения файла: %w", err)
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:               uuid.New().String(),
		OriginalFilename: originalFilename,
		StoragePath:      result.StoragePath,
		OwnerID:          ownerID,
		UploadedAt:       now,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		// Откат: файл без записи в БД не нужен
		if rmErr := os.Remove(result.FullPath); rmErr != nil {
			s.logger.Warn("не удалось удалить файл после ошибки регистрации",
				slog.String("path", result.StoragePath),
				slog.String("error", rmErr.Error()))
		}
		return nil, fmt.Errorf("ошибка регистрации документа: %w", err)
	}

	s.cache.Set(doc.ID, doc)
	s.recorder.Record(AuditEvent{
		DocumentID: doc.ID,
		Actor:      ownerID,
		Action:     model.AuditActionUploaded,
		Origin:     origin,
	})

	s.logger.Info("документ загружен",
		slog.String("document_id", doc.ID),
		slog.String("filename", originalFilename),
		slog.Int64("size", result.Size),
		slog.String("checksum", result.Checksum))

	return doc, nil
}

// List возвращает документы владельца (новые первыми).
func (s *DocumentService) List(ctx context.Context, ownerID string) ([]*model.Document, error) {
	return s.docRepo.ListByOwner(ctx, ownerID)
}

// Get возвращает метаданные документа. Сначала проверяет кэш.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*model.Document, error) {
	if doc, ok := s.cache.Get(documentID); ok {
		return doc, nil
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.cache.Set(documentID, doc)
	return doc, nil
}

// Content открывает содержимое документа для чтения.
// Вызывающий обязан закрыть возвращённый файл.
func (s *DocumentService) Content(ctx context.Context, documentID string) (*model.Document, *os.File, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	f, err := s.store.Open(doc.StoragePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: файл документа отсутствует на диске", ErrNotFound)
		}
		return nil, nil, err
	}

	return doc, f, nil
}
