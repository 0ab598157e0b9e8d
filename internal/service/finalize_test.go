package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/docsign/internal/domain/approval"
	"github.com/bigkaa/docsign/internal/domain/geom"
	"github.com/bigkaa/docsign/internal/domain/model"
	"github.com/bigkaa/docsign/internal/repository"
)

const testPDF = "%PDF-1.4 test content"

func newTestFinalize(t *testing.T, sigRepo *mockSignatureRepo, stamper *fakeStamper) (*FinalizeService, *model.Document) {
	t.Helper()

	docRepo := &mockDocumentRepo{}
	docs, store := newTestDocuments(t, docRepo)

	// Исходный документ лежит в хранилище
	result, err := store.SaveNamed(strings.NewReader(testPDF), "contract.pdf")
	if err != nil {
		t.Fatalf("SaveNamed(): %v", err)
	}

	doc := &model.Document{
		ID:               "doc-1",
		OriginalFilename: "contract.pdf",
		StoragePath:      result.StoragePath,
		OwnerID:          "owner-1",
	}
	docRepo.getByIDFn = func(_ context.Context, id string) (*model.Document, error) {
		if id == doc.ID {
			return doc, nil
		}
		return nil, repository.ErrNotFound
	}

	svc := NewFinalizeService(sigRepo, docs, store, stamper, newTestRecorder(sigRepo), slog.Default())
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, doc
}

// TestFinalizeService_Finalize проверяет выпуск артефакта: маркеры
// собираются из принятых подписей в порядке слотов, артефакт получает
// имя signed-<timestamp>-<оригинал>.
func TestFinalizeService_Finalize(t *testing.T) {
	img := "data:image/png;base64,aGVsbG8="
	sigs := []*model.Signature{
		{
			ID:          "sig-1",
			DocumentID:  "doc-1",
			Signer:      "alice@example.com",
			Page:        1,
			Coordinates: []geom.Coordinate{{X: 0.1, Y: 0.1, Page: 1}, {X: 0.9, Y: 0.9, Page: 1}},
			Images:      []*string{&img, nil},
			Status:      approval.StatusSigned,
		},
		{
			ID:          "sig-2",
			DocumentID:  "doc-1",
			Signer:      "bob@example.com",
			Page:        2,
			Coordinates: []geom.Coordinate{{X: 0.5, Y: 0.5, Page: 2}},
			Images:      []*string{nil},
			Status:      approval.StatusSigned,
		},
	}

	sigRepo := &mockSignatureRepo{
		listByStatusFn: func(_ context.Context, _ string, status approval.Status) ([]*model.Signature, error) {
			if status != approval.StatusSigned {
				t.Errorf("status = %q, ожидался signed", status)
			}
			return sigs, nil
		},
	}
	stamper := &fakeStamper{}

	svc, _ := newTestFinalize(t, sigRepo, stamper)

	result, err := svc.Finalize(context.Background(), "doc-1", "owner-1", "")
	if err != nil {
		t.Fatalf("Finalize ошибка: %v", err)
	}

	if result.Filename != "signed-1700000000000-contract.pdf" {
		t.Errorf("Filename = %q, ожидался signed-1700000000000-contract.pdf", result.Filename)
	}
	if result.Stamped != 3 {
		t.Errorf("Stamped = %d, ожидалось 3 маркера", result.Stamped)
	}

	// Порядок маркеров: слоты sig-1, затем sig-2
	if len(stamper.marks) != 3 {
		t.Fatalf("маркеров = %d, ожидалось 3", len(stamper.marks))
	}
	if stamper.marks[0].Image != img {
		t.Error("первый маркер должен нести изображение первого слота")
	}
	if stamper.marks[1].Image != "" || stamper.marks[2].Image != "" {
		t.Error("маркеры без изображения должны иметь пустой Image")
	}
	if stamper.marks[2].Coord.Page != 2 {
		t.Errorf("третий маркер на странице %d, ожидалась 2", stamper.marks[2].Coord.Page)
	}
}

// TestFinalizeService_Finalize_NoSigned проверяет отказ при отсутствии
// принятых подписей.
func TestFinalizeService_Finalize_NoSigned(t *testing.T) {
	sigRepo := &mockSignatureRepo{
		listByStatusFn: func(_ context.Context, _ string, _ approval.Status) ([]*model.Signature, error) {
			return nil, nil
		},
	}

	svc, _ := newTestFinalize(t, sigRepo, &fakeStamper{})

	_, err := svc.Finalize(context.Background(), "doc-1", "owner-1", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Finalize() err = %v, ожидался ErrNotFound", err)
	}
}

// TestFinalizeService_Finalize_StampError проверяет атомарность:
// при ошибке впечатывания артефакт не публикуется.
func TestFinalizeService_Finalize_StampError(t *testing.T) {
	sigRepo := &mockSignatureRepo{
		listByStatusFn: func(_ context.Context, _ string, _ approval.Status) ([]*model.Signature, error) {
			return []*model.Signature{{
				ID:          "sig-1",
				DocumentID:  "doc-1",
				Coordinates: []geom.Coordinate{{X: 0.5, Y: 0.5, Page: 1}},
				Status:      approval.StatusSigned,
			}}, nil
		},
	}
	stamper := &fakeStamper{err: io.ErrUnexpectedEOF}

	svc, _ := newTestFinalize(t, sigRepo, stamper)

	if _, err := svc.Finalize(context.Background(), "doc-1", "owner-1", ""); err == nil {
		t.Fatal("Finalize должен вернуть ошибку при сбое впечатывания")
	}
}

// TestFinalizeService_Finalize_DocumentNotFound проверяет отказ для
// несуществующего документа.
func TestFinalizeService_Finalize_DocumentNotFound(t *testing.T) {
	svc, _ := newTestFinalize(t, &mockSignatureRepo{}, &fakeStamper{})

	_, err := svc.Finalize(context.Background(), "missing", "owner-1", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Finalize() err = %v, ожидался ErrNotFound", err)
	}
}
