// finalize.go — сервис выпуска подписанного артефакта.
// В копию исходного PDF впечатываются маркеры всех подписей со
// статусом signed; результат публикуется как новый файл
// signed-<timestamp>-<оригинальное имя>. Исходный документ и записи
// подписей не изменяются. Операция атомарна: любая ошибка — артефакт
// не публикуется.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bigkaa/docsign/internal/domain/approval"
	"github.com/bigkaa/docsign/internal/domain/model"
	"github.com/bigkaa/docsign/internal/repository"
	"github.com/bigkaa/docsign/internal/stamp"
	"github.com/bigkaa/docsign/internal/storage/filestore"
)

// PDFStamper — впечатывание маркеров подписей в PDF.
// Реализуется stamp.Stamper.
type PDFStamper interface {
	Stamp(src io.Reader, out io.Writer, marks []stamp.Mark) error
}

// FinalizeResult — результат выпуска артефакта.
type FinalizeResult struct {
	// Document — исходный документ
	Document *model.Document
	// StoragePath — путь подписанного артефакта в хранилище
	StoragePath string
	// Filename — имя артефакта
	Filename string
	// Stamped — количество впечатанных маркеров
	Stamped int
}

// FinalizeService — сервис выпуска подписанных артефактов.
type FinalizeService struct {
	sigRepo  repository.SignatureRepository
	docs     *DocumentService
	store    *filestore.FileStore
	stamper  PDFStamper
	recorder *AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewFinalizeService создаёт сервис финализации.
func NewFinalizeService(
	sigRepo repository.SignatureRepository,
	docs *DocumentService,
	store *filestore.FileStore,
	stamper PDFStamper,
	recorder *AuditRecorder,
	logger *slog.Logger,
) *FinalizeService {
	return &FinalizeService{
		sigRepo:  sigRepo,
		docs:     docs,
		store:    store,
		stamper:  stamper,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "finalize_service")),
		now:      time.Now,
	}
}

// Finalize выпускает подписанный артефакт документа.
// Требует хотя бы одну подпись со статусом signed.
func (s *FinalizeService) Finalize(ctx context.Context, documentID, actor, origin string) (*FinalizeResult, error) {
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	sigs, err := s.sigRepo.ListByDocumentAndStatus(ctx, documentID, approval.StatusSigned)
	if err != nil {
		return nil, err
	}
	if len(sigs) == 0 {
		return nil, fmt.Errorf("%w: нет принятых подписей для финализации", ErrNotFound)
	}

	// Маркеры в порядке создания подписей, внутри подписи — в порядке слотов
	var marks []stamp.Mark
	for _, sig := range sigs {
		for i, coord := range sig.Coordinates {
			marks = append(marks, stamp.Mark{
				Coord: coord,
				Image: sig.ImageAt(i),
			})
		}
	}

	src, err := s.store.Open(doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия исходного документа: %w", err)
	}
	defer src.Close()

	var stamped bytes.Buffer
	if err := s.stamper.Stamp(src, &stamped, marks); err != nil {
		return nil, fmt.Errorf("ошибка впечатывания подписей: %w", err)
	}

	filename := fmt.Sprintf("signed-%d-%s", s.now().UnixMilli(), doc.OriginalFilename)
	result, err := s.store.SaveNamed(&stamped, filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка публикации артефакта: %w", err)
	}

	s.recorder.Record(AuditEvent{
		DocumentID: documentID,
		Actor:      actor,
		Action:     model.AuditActionFinalized,
		Origin:     origin,
	})

	s.logger.Info("подписанный артефакт выпущен",
		slog.String("document_id", documentID),
		slog.String("artifact", result.StoragePath),
		slog.Int("marks", len(marks)))

	return &FinalizeResult{
		Document:    doc,
		StoragePath: result.StoragePath,
		Filename:    filename,
		Stamped:     len(marks),
	}, nil
}
