package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/docsign/internal/domain/model"
)

func newTestInvites(t *testing.T, ttl time.Duration) *InviteService {
	t.Helper()

	docRepo := &mockDocumentRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Document, error) {
			return testDoc(id), nil
		},
	}
	docs, _ := newTestDocuments(t, docRepo)

	logger := slog.Default()
	return NewInviteService(docs, NewLogMailer(logger), newTestRecorder(&mockSignatureRepo{}),
		"test-secret", ttl, "https://sign.example.com", logger)
}

// TestInviteService_RoundTrip проверяет выпуск и погашение приглашения.
func TestInviteService_RoundTrip(t *testing.T) {
	svc := newTestInvites(t, 48*time.Hour)

	issued := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	result, err := svc.Send(context.Background(), "doc-1", "alice@example.com", "owner-1", "")
	if err != nil {
		t.Fatalf("Send ошибка: %v", err)
	}

	if !strings.HasPrefix(result.Link, "https://sign.example.com/sign?token=") {
		t.Errorf("Link = %q, ожидался префикс https://sign.example.com/sign?token=", result.Link)
	}
	if !result.ExpiresAt.Equal(issued.Add(48 * time.Hour)) {
		t.Errorf("ExpiresAt = %v, ожидалось %v", result.ExpiresAt, issued.Add(48*time.Hour))
	}

	token := strings.TrimPrefix(result.Link, "https://sign.example.com/sign?token=")

	invite, err := svc.Redeem(token)
	if err != nil {
		t.Fatalf("Redeem ошибка: %v", err)
	}
	if invite.DocumentID != "doc-1" {
		t.Errorf("DocumentID = %q, ожидался doc-1", invite.DocumentID)
	}
	if invite.SignerEmail != "alice@example.com" {
		t.Errorf("SignerEmail = %q, ожидался alice@example.com", invite.SignerEmail)
	}
}

// TestInviteService_Redeem_Expired проверяет отказ для просроченного токена.
func TestInviteService_Redeem_Expired(t *testing.T) {
	svc := newTestInvites(t, time.Hour)

	issued := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	result, err := svc.Send(context.Background(), "doc-1", "alice@example.com", "owner-1", "")
	if err != nil {
		t.Fatalf("Send ошибка: %v", err)
	}
	token := strings.TrimPrefix(result.Link, "https://sign.example.com/sign?token=")

	// Через два часа токен просрочен
	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }

	if _, err := svc.Redeem(token); !errors.Is(err, ErrInviteInvalid) {
		t.Errorf("Redeem() err = %v, ожидался ErrInviteInvalid", err)
	}
}

// TestInviteService_Redeem_Garbage проверяет отказ для повреждённого токена.
func TestInviteService_Redeem_Garbage(t *testing.T) {
	svc := newTestInvites(t, time.Hour)

	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, err := svc.Redeem(token); !errors.Is(err, ErrInviteInvalid) {
			t.Errorf("Redeem(%q) err = %v, ожидался ErrInviteInvalid", token, err)
		}
	}
}

// TestInviteService_Send_BadEmail проверяет валидацию email.
func TestInviteService_Send_BadEmail(t *testing.T) {
	svc := newTestInvites(t, time.Hour)

	for _, email := range []string{"", "not-an-email", "@example.com"} {
		if _, err := svc.Send(context.Background(), "doc-1", email, "owner-1", ""); !errors.Is(err, ErrValidation) {
			t.Errorf("Send(email=%q) err = %v, ожидался ErrValidation", email, err)
		}
	}
}
