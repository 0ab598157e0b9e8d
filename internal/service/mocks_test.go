package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/docsign/internal/domain/approval"
	"github.com/bigkaa/docsign/internal/domain/model"
	"github.com/bigkaa/docsign/internal/repository"
	"github.com/bigkaa/docsign/internal/stamp"
	"github.com/bigkaa/docsign/internal/storage/filestore"
)

// --- Mock repositories ---

// mockDocumentRepo — мок DocumentRepository для unit-тестов.
type mockDocumentRepo struct {
	createFn      func(ctx context.Context, d *model.Document) error
	getByIDFn     func(ctx context.Context, documentID string) (*model.Document, error)
	listByOwnerFn func(ctx context.Context, ownerID string) ([]*model.Document, error)
}

func (m *mockDocumentRepo) Create(ctx context.Context, d *model.Document) error {
	if m.createFn != nil {
		return m.createFn(ctx, d)
	}
	return nil
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, documentID string) (*model.Document, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, documentID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockDocumentRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Document, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}

// mockSignatureRepo — мок SignatureRepository для unit-тестов.
type mockSignatureRepo struct {
	createFn         func(ctx context.Context, s *model.Signature) error
	getByIDFn        func(ctx context.Context, signatureID string) (*model.Signature, error)
	getByKeyFn       func(ctx context.Context, documentID, signer string, page int) (*model.Signature, error)
	listByDocumentFn func(ctx context.Context, documentID string) ([]*model.Signature, error)
	listByStatusFn   func(ctx context.Context, documentID string, status approval.Status) ([]*model.Signature, error)
	updateStatusFn   func(ctx context.Context, signatureID string, from, to approval.Status, reason *string) (*model.Signature, error)
	updateImagesFn   func(ctx context.Context, signatureID string, images []*string) error
	getByIDForUpdFn  func(ctx context.Context, signatureID string) (*model.Signature, error)
}

func (m *mockSignatureRepo) Create(ctx context.Context, s *model.Signature) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockSignatureRepo) GetByID(ctx context.Context, signatureID string) (*model.Signature, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, signatureID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockSignatureRepo) GetByIDForUpdate(ctx context.Context, signatureID string) (*model.Signature, error) {
	if m.getByIDForUpdFn != nil {
		return m.getByIDForUpdFn(ctx, signatureID)
	}
	return m.GetByID(ctx, signatureID)
}

func (m *mockSignatureRepo) GetByKey(ctx context.Context, documentID, signer string, page int) (*model.Signature, error) {
	if m.getByKeyFn != nil {
		return m.getByKeyFn(ctx, documentID, signer, page)
	}
	return nil, repository.ErrNotFound
}

func (m *mockSignatureRepo) ListByDocument(ctx context.Context, documentID string) ([]*model.Signature, error) {
	if m.listByDocumentFn != nil {
		return m.listByDocumentFn(ctx, documentID)
	}
	return nil, nil
}

func (m *mockSignatureRepo) ListByDocumentAndStatus(ctx context.Context, documentID string, status approval.Status) ([]*model.Signature, error) {
	if m.listByStatusFn != nil {
		return m.listByStatusFn(ctx, documentID, status)
	}
	return nil, nil
}

func (m *mockSignatureRepo) UpdateStatus(ctx context.Context, signatureID string, from, to approval.Status, reason *string) (*model.Signature, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, signatureID, from, to, reason)
	}
	return nil, repository.ErrNotFound
}

func (m *mockSignatureRepo) UpdateImages(ctx context.Context, signatureID string, images []*string) error {
	if m.updateImagesFn != nil {
		return m.updateImagesFn(ctx, signatureID, images)
	}
	return nil
}

// mockAuditRepo — мок AuditRepository, накапливающий записи в памяти.
type mockAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
	failN   int // первые failN вызовов Append возвращают ошибку
}

func (m *mockAuditRepo) Append(_ context.Context, e *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failN > 0 {
		m.failN--
		return context.DeadlineExceeded
	}
	e.ID = int64(len(m.entries) + 1)
	e.CreatedAt = time.Now().UTC()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditRepo) ListByDocument(_ context.Context, documentID string) ([]*model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AuditEntry
	for _, e := range m.entries {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockSlotUpdater — мок SlotUpdater.
type mockSlotUpdater struct {
	updateSlotFn func(ctx context.Context, signatureID string, slot int, image string) (*model.Signature, error)
}

func (m *mockSlotUpdater) UpdateSlot(ctx context.Context, signatureID string, slot int, image string) (*model.Signature, error) {
	if m.updateSlotFn != nil {
		return m.updateSlotFn(ctx, signatureID, slot, image)
	}
	return nil, repository.ErrNotFound
}

// fakeStamper — PDFStamper, копирующий вход в выход и запоминающий маркеры.
type fakeStamper struct {
	marks []stamp.Mark
	err   error
}

func (f *fakeStamper) Stamp(src io.Reader, out io.Writer, marks []stamp.Mark) error {
	if f.err != nil {
		return f.err
	}
	f.marks = marks
	_, err := io.Copy(out, src)
	return err
}

// --- Общие помощники ---

// newTestRecorder создаёт AuditRecorder без запуска фоновой горутины:
// события накапливаются в очереди и в тестах не записываются.
func newTestRecorder(sigRepo repository.SignatureRepository) *AuditRecorder {
	return NewAuditRecorder(&mockAuditRepo{}, sigRepo, 64, slog.Default())
}

// newTestDocuments создаёт DocumentService поверх временного хранилища.
func newTestDocuments(t *testing.T, docRepo repository.DocumentRepository) (*DocumentService, *filestore.FileStore) {
	t.Helper()

	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New(): %v", err)
	}

	cache := NewCacheService(16, time.Minute)
	recorder := newTestRecorder(&mockSignatureRepo{})
	return NewDocumentService(docRepo, store, cache, recorder, slog.Default()), store
}
