// invite.go — сервис приглашений подписантов.
// Приглашение — подписанный HS256 JWT с документом и email
// подписанта, действующий ограниченное время (по умолчанию 48 часов).
// Ссылка на подписание отправляется через Mailer; LogMailer пишет
// письмо в лог (для окружений без SMTP).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/docsign/internal/domain/model"
)

// Mailer — доставка приглашения подписанту.
type Mailer interface {
	// SendInvite отправляет ссылку на подписание.
	// preview — необязательное представление письма (для отладки).
	SendInvite(ctx context.Context, to, link string) (preview string, err error)
}

// LogMailer — Mailer, пишущий письмо в лог вместо отправки.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer создаёт LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With(slog.String("component", "log_mailer"))}
}

// SendInvite пишет приглашение в лог и возвращает ссылку как preview.
func (m *LogMailer) SendInvite(_ context.Context, to, link string) (string, error) {
	m.logger.Info("приглашение подписанту",
		slog.String("to", to),
		slog.String("link", link))
	return link, nil
}

// inviteClaims — полезная нагрузка токена приглашения.
type inviteClaims struct {
	DocumentID  string `json:"documentId"`
	SignerEmail string `json:"signerEmail"`
	jwt.RegisteredClaims
}

// Invite — расшифрованное приглашение.
type Invite struct {
	DocumentID  string    `json:"documentId"`
	SignerEmail string    `json:"signerEmail"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// InviteResult — результат отправки приглашения.
type InviteResult struct {
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expiresAt"`
	// Preview — представление письма от Mailer (может быть пустым)
	Preview string `json:"preview,omitempty"`
}

// InviteService — выдача и проверка приглашений.
type InviteService struct {
	docs          *DocumentService
	mailer        Mailer
	recorder      *AuditRecorder
	secret        []byte
	ttl           time.Duration
	publicBaseURL string
	logger        *slog.Logger
	now           func() time.Time
}

// NewInviteService создаёт сервис приглашений.
func NewInviteService(
	docs *DocumentService,
	mailer Mailer,
	recorder *AuditRecorder,
	secret string,
	ttl time.Duration,
	publicBaseURL string,
	logger *slog.Logger,
) *InviteService {
	return &InviteService{
		docs:          docs,
		mailer:        mailer,
		recorder:      recorder,
		secret:        []byte(secret),
		ttl:           ttl,
		publicBaseURL: publicBaseURL,
		logger:        logger.With(slog.String("component", "invite_service")),
		now:           time.Now,
	}
}

// Send выпускает токен приглашения и отправляет ссылку подписанту.
func (s *InviteService) Send(ctx context.Context, documentID, signerEmail, actor, origin string) (*InviteResult, error) {
	if _, err := mail.ParseAddress(signerEmail); err != nil {
		return nil, fmt.Errorf("%w: некорректный email подписанта", ErrValidation)
	}

	if _, err := s.docs.Get(ctx, documentID); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := inviteClaims{
		DocumentID:  documentID,
		SignerEmail: signerEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи токена приглашения: %w", err)
	}

	link := fmt.Sprintf("%s/sign?token=%s", s.publicBaseURL, token)

	preview, err := s.mailer.SendInvite(ctx, signerEmail, link)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки приглашения: %w", err)
	}

	s.recorder.Record(AuditEvent{
		DocumentID: documentID,
		Actor:      actor,
		Action:     model.AuditActionInvited,
		Origin:     origin,
	})

	s.logger.Info("приглашение отправлено",
		slog.String("document_id", documentID),
		slog.String("signer", signerEmail))

	return &InviteResult{Link: link, ExpiresAt: expiresAt, Preview: preview}, nil
}

// Redeem проверяет токен приглашения и возвращает его содержимое.
// Просроченный или повреждённый токен — ErrInviteInvalid.
func (s *InviteService) Redeem(tokenString string) (*Invite, error) {
	var claims inviteClaims

	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(_ *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		if err == nil {
			err = errors.New("токен не прошёл проверку")
		}
		return nil, fmt.Errorf("%w: %w", ErrInviteInvalid, err)
	}

	if claims.DocumentID == "" || claims.SignerEmail == "" {
		return nil, fmt.Errorf("%w: неполная полезная нагрузка", ErrInviteInvalid)
	}

	return &Invite{
		DocumentID:  claims.DocumentID,
		SignerEmail: claims.SignerEmail,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
