package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/bigkaa/docsign/internal/domain/approval"
	"github.com/bigkaa/docsign/internal/domain/geom"
	"github.com/bigkaa/docsign/internal/domain/model"
	"github.com/bigkaa/docsign/internal/repository"
)

func testDoc(id string) *model.Document {
	return &model.Document{ID: id, OriginalFilename: "contract.pdf", StoragePath: "contract.pdf", OwnerID: "owner-1"}
}

func newTestPlacement(t *testing.T, docRepo *mockDocumentRepo, sigRepo *mockSignatureRepo) *PlacementService {
	t.Helper()
	docs, _ := newTestDocuments(t, docRepo)
	return NewPlacementService(sigRepo, docs, newTestRecorder(sigRepo), slog.Default())
}

// TestPlacementService_Place проверяет создание новой подписи.
func TestPlacementService_Place(t *testing.T) {
	docRepo := &mockDocumentRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Document, error) {
			return testDoc(id), nil
		},
	}

	var created *model.Signature
	sigRepo := &mockSignatureRepo{
		createFn: func(_ context.Context, s *model.Signature) error {
			created = s
			return nil
		},
	}

	svc := newTestPlacement(t, docRepo, sigRepo)

	result, err := svc.Place(context.Background(), PlaceRequest{
		DocumentID:  "doc-1",
		Signer:      "alice@example.com",
		Coordinates: []geom.Coordinate{{X: 0.5, Y: 0.5, Page: 2}, {X: 0.1, Y: 0.9, Page: 2}},
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("Place ошибка: %v", err)
	}

	if !result.Created {
		t.Error("Created = false, ожидался true")
	}
	if created == nil {
		t.Fatal("Create не вызван")
	}
	if created.Page != 2 {
		t.Errorf("Page = %d, ожидался 2 (страница первой координаты)", created.Page)
	}
	if created.Status != approval.StatusPending {
		t.Errorf("Status = %q, ожидался pending", created.Status)
	}
	if len(created.Images) != 2 {
		t.Errorf("len(Images) = %d, ожидался 2 (по слоту на координату)", len(created.Images))
	}
}

// TestPlacementService_Place_Existing проверяет first-write-wins:
// повторное размещение возвращает существующую запись без изменений.
func TestPlacementService_Place_Existing(t *testing.T) {
	existing := &model.Signature{
		ID:          "sig-1",
		DocumentID:  "doc-1",
		Signer:      "alice@example.com",
		Page:        1,
		Coordinates: []geom.Coordinate{{X: 0.2, Y: 0.2, Page: 1}},
		Status:      approval.StatusPending,
	}

	docRepo := &mockDocumentRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Document, error) {
			return testDoc(id), nil
		},
	}
	sigRepo := &mockSignatureRepo{
		getByKeyFn: func(_ context.Context, _, _ string, _ int) (*model.Signature, error) {
			return existing, nil
		},
		createFn: func(_ context.Context, _ *model.Signature) error {
			t.Error("Create не должен вызываться при существующей записи")
			return nil
		},
	}

	svc := newTestPlacement(t, docRepo, sigRepo)

	result, err := svc.Place(context.Background(), PlaceRequest{
		DocumentID:  "doc-1",
		Signer:      "alice@example.com",
		Coordinates: []geom.Coordinate{{X: 0.9, Y: 0.9, Page: 1}},
	}, "")
	if err != nil {
		t.Fatalf("Place ошибка: %v", err)
	}

	if result.Created {
		t.Error("Created = true, ожидался false")
	}
	if result.Signature.ID != "sig-1" {
		t.Errorf("Signature.ID = %q, ожидался sig-1", result.Signature.ID)
	}
	if result.Signature.Coordinates[0].X != 0.2 {
		t.Error("координаты существующей записи не должны изменяться")
	}
}

// TestPlacementService_Place_ConflictRace проверяет разрешение гонки:
// Create вернул ErrConflict — возвращается запись победителя.
func TestPlacementService_Place_ConflictRace(t *testing.T) {
	winner := &model.Signature{ID: "sig-winner", DocumentID: "doc-1", Signer: "alice@example.com", Page: 1}

	firstGet := true
	docRepo := &mockDocumentRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Document, error) {
			return testDoc(id), nil
		},
	}
	sigRepo := &mockSignatureRepo{
		getByKeyFn: func(_ context.Context, _, _ string, _ int) (*model.Signature, error) {
			// Первый вызов — записи ещё нет, второй — после конфликта
			if firstGet {
				firstGet = false
				return nil, repository.ErrNotFound
			}
			return winner, nil
		},
		createFn: func(_ context.Context, _ *model.Signature) error {
			return repository.ErrConflict
		},
	}

	svc := newTestPlacement(t, docRepo, sigRepo)

	result, err := svc.Place(context.Background(), PlaceRequest{
		DocumentID:  "doc-1",
		Signer:      "alice@example.com",
		Coordinates: []geom.Coordinate{{X: 0.5, Y: 0.5, Page: 1}},
	}, "")
	if err != nil {
		t.Fatalf("Place ошибка: %v", err)
	}

	if result.Created {
		t.Error("Created = true, ожидался false при проигранной гонке")
	}
	if result.Signature.ID != "sig-winner" {
		t.Errorf("Signature.ID = %q, ожидался sig-winner", result.Signature.ID)
	}
}

// TestPlacementService_Place_Validation проверяет отказы валидации.
func TestPlacementService_Place_Validation(t *testing.T) {
	docRepo := &mockDocumentRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Document, error) {
			return testDoc(id), nil
		},
	}
	svc := newTestPlacement(t, docRepo, &mockSignatureRepo{})

	tests := []struct {
		name string
		req  PlaceRequest
	}{
		{"пустой подписант", PlaceRequest{DocumentID: "doc-1", Coordinates: []geom.Coordinate{{X: 0.5, Y: 0.5, Page: 1}}}},
		{"нет координат", PlaceRequest{DocumentID: "doc-1", Signer: "a@b.c"}},
		{"координата вне диапазона", PlaceRequest{DocumentID: "doc-1", Signer: "a@b.c", Coordinates: []geom.Coordinate{{X: 1.5, Y: 0.5, Page: 1}}}},
		{"страница меньше 1", PlaceRequest{DocumentID: "doc-1", Signer: "a@b.c", Coordinates: []geom.Coordinate{{X: 0.5, Y: 0.5, Page: 0}}}},
		{"недопустимый статус", PlaceRequest{DocumentID: "doc-1", Signer: "a@b.c", Coordinates: []geom.Coordinate{{X: 0.5, Y: 0.5, Page: 1}}, Status: "frozen"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Place(context.Background(), tt.req, "")
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Place() err = %v, ожидался ErrValidation", err)
			}
		})
	}
}

// TestPlacementService_Place_DocumentNotFound проверяет отказ для
// несуществующего документа.
func TestPlacementService_Place_DocumentNotFound(t *testing.T) {
	svc := newTestPlacement(t, &mockDocumentRepo{}, &mockSignatureRepo{})

	_, err := svc.Place(context.Background(), PlaceRequest{
		DocumentID:  "missing",
		Signer:      "a@b.c",
		Coordinates: []geom.Coordinate{{X: 0.5, Y: 0.5, Page: 1}},
	}, "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Place() err = %v, ожидался ErrNotFound", err)
	}
}
