package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/docsign/internal/domain/model"
)

// TestAuditRecorder_Record проверяет асинхронную запись событий:
// после Stop все принятые события оказываются в журнале.
func TestAuditRecorder_Record(t *testing.T) {
	auditRepo := &mockAuditRepo{}
	recorder := NewAuditRecorder(auditRepo, &mockSignatureRepo{}, 16, slog.Default())
	recorder.Start()

	recorder.Record(AuditEvent{DocumentID: "doc-1", Actor: "alice", Action: model.AuditActionSigned, Origin: "10.0.0.1"})
	recorder.Record(AuditEvent{DocumentID: "doc-1", Actor: "alice", Action: model.AuditActionAccepted})
	recorder.Record(AuditEvent{DocumentID: "doc-2", Actor: "bob", Action: model.AuditActionFinalized})

	recorder.Stop()

	entries, _ := auditRepo.ListByDocument(context.Background(), "doc-1")
	if len(entries) != 2 {
		t.Fatalf("записей doc-1 = %d, ожидалось 2", len(entries))
	}
	if entries[0].Action != model.AuditActionSigned || entries[0].Origin != "10.0.0.1" {
		t.Errorf("первая запись = %+v, ожидалось action=signed origin=10.0.0.1", entries[0])
	}
}

// TestAuditRecorder_ResolveDocument проверяет резолв документа
// по идентификатору подписи.
func TestAuditRecorder_ResolveDocument(t *testing.T) {
	auditRepo := &mockAuditRepo{}
	sigRepo := &mockSignatureRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Signature, error) {
			return &model.Signature{ID: id, DocumentID: "doc-42"}, nil
		},
	}

	recorder := NewAuditRecorder(auditRepo, sigRepo, 16, slog.Default())
	recorder.Start()
	recorder.Record(AuditEvent{SignatureID: "sig-1", Actor: "alice", Action: model.AuditActionAccepted})
	recorder.Stop()

	entries, _ := auditRepo.ListByDocument(context.Background(), "doc-42")
	if len(entries) != 1 {
		t.Fatalf("записей doc-42 = %d, ожидалась 1", len(entries))
	}
}

// TestAuditRecorder_Retry проверяет повторную попытку записи:
// первый Append падает, второй успешен, событие не теряется.
func TestAuditRecorder_Retry(t *testing.T) {
	auditRepo := &mockAuditRepo{failN: 1}

	recorder := NewAuditRecorder(auditRepo, &mockSignatureRepo{}, 16, slog.Default())
	recorder.Start()
	recorder.Record(AuditEvent{DocumentID: "doc-1", Actor: "alice", Action: model.AuditActionSigned})
	recorder.Stop()

	entries, _ := auditRepo.ListByDocument(context.Background(), "doc-1")
	if len(entries) != 1 {
		t.Fatalf("записей = %d, ожидалась 1 (после повторной попытки)", len(entries))
	}
}

// TestAuditRecorder_Overflow проверяет, что переполнение очереди не
// блокирует вызывающего.
func TestAuditRecorder_Overflow(t *testing.T) {
	recorder := NewAuditRecorder(&mockAuditRepo{}, &mockSignatureRepo{}, 1, slog.Default())
	// Горутина записи не запущена — очередь из одного события заполнится

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			recorder.Record(AuditEvent{DocumentID: "doc-1", Action: model.AuditActionSigned})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record заблокировался при переполненной очереди")
	}
}

// TestAuditService_Trail проверяет чтение журнала документа.
func TestAuditService_Trail(t *testing.T) {
	auditRepo := &mockAuditRepo{}
	_ = auditRepo.Append(context.Background(), &model.AuditEntry{DocumentID: "doc-1", Actor: "alice", Action: model.AuditActionSigned})
	_ = auditRepo.Append(context.Background(), &model.AuditEntry{DocumentID: "doc-1", Actor: "alice", Action: model.AuditActionAccepted})

	docRepo := &mockDocumentRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Document, error) {
			return testDoc(id), nil
		},
	}

	svc := NewAuditService(auditRepo, docRepo)

	entries, err := svc.Trail(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Trail ошибка: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("записей = %d, ожидалось 2", len(entries))
	}
}
