package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bigkaa/docsign/internal/domain/model"
	"github.com/bigkaa/docsign/internal/repository"
)

// TestDocumentService_Upload проверяет загрузку PDF: файл сохраняется
// на диск, документ регистрируется в БД.
func TestDocumentService_Upload(t *testing.T) {
	var created *model.Document
	docRepo := &mockDocumentRepo{
		createFn: func(_ context.Context, d *model.Document) error {
			created = d
			return nil
		},
	}

	docs, store := newTestDocuments(t, docRepo)

	doc, err := docs.Upload(context.Background(), strings.NewReader(testPDF), "contract.pdf", "owner-1", "")
	if err != nil {
		t.Fatalf("Upload ошибка: %v", err)
	}

	if created == nil {
		t.Fatal("документ не зарегистрирован в репозитории")
	}
	if doc.OriginalFilename != "contract.pdf" || doc.OwnerID != "owner-1" {
		t.Errorf("документ = %+v, ожидались contract.pdf / owner-1", doc)
	}

	f, err := store.Open(doc.StoragePath)
	if err != nil {
		t.Fatalf("файл не сохранён: %v", err)
	}
	defer f.Close()

	data, _ := io.ReadAll(f)
	if string(data) != testPDF {
		t.Error("содержимое сохранённого файла не совпадает с загруженным")
	}
}

// TestDocumentService_Upload_NotPDF проверяет отказ для не-PDF файла.
func TestDocumentService_Upload_NotPDF(t *testing.T) {
	docs, _ := newTestDocuments(t, &mockDocumentRepo{})

	tests := []struct {
		name    string
		content string
	}{
		{"текстовый файл", "hello world"},
		{"пустой файл", ""},
		{"обрезанная сигнатура", "%PD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := docs.Upload(context.Background(), strings.NewReader(tt.content), "f.pdf", "owner-1", "")
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Upload() err = %v, ожидался ErrValidation", err)
			}
		})
	}
}

// TestDocumentService_Get_Cache проверяет, что повторное чтение идёт из кэша.
func TestDocumentService_Get_Cache(t *testing.T) {
	calls := 0
	docRepo := &mockDocumentRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Document, error) {
			calls++
			return testDoc(id), nil
		},
	}

	docs, _ := newTestDocuments(t, docRepo)

	for i := 0; i < 3; i++ {
		if _, err := docs.Get(context.Background(), "doc-1"); err != nil {
			t.Fatalf("Get ошибка: %v", err)
		}
	}

	if calls != 1 {
		t.Errorf("обращений к репозиторию = %d, ожидалось 1 (остальные из кэша)", calls)
	}
}

// TestDocumentService_Get_NotFound проверяет маппинг ErrNotFound.
func TestDocumentService_Get_NotFound(t *testing.T) {
	docRepo := &mockDocumentRepo{
		getByIDFn: func(_ context.Context, _ string) (*model.Document, error) {
			return nil, repository.ErrNotFound
		},
	}

	docs, _ := newTestDocuments(t, docRepo)

	if _, err := docs.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() err = %v, ожидался ErrNotFound", err)
	}
}
