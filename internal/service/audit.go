// audit.go — асинхронный регистратор аудита.
// События складываются в буферизованный канал и пишутся в БД
// отдельной горутиной. Сбой записи не влияет на основную операцию
// (best-effort): одна повторная попытка, затем событие отбрасывается
// с записью в лог. Журнал append-only.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docsign/internal/domain/model"
	"github.com/bigkaa/docsign/internal/repository"
)

// Prometheus-метрики аудита.
var (
	auditEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_audit_events_total",
		Help: "Общее количество событий аудита по действиям.",
	}, []string{"action"})
	auditDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_audit_dropped_total",
		Help: "Количество событий аудита, отброшенных из-за переполнения очереди или ошибок записи.",
	})
)

// auditWriteTimeout — таймаут записи одного события в БД.
const auditWriteTimeout = 5 * time.Second

// AuditEvent — событие для регистрации в журнале аудита.
type AuditEvent struct {
	// DocumentID — документ, к которому относится событие.
	// Пустой, если известен только SignatureID (accept/reject).
	DocumentID string
	// SignatureID — подпись-источник события (для резолва DocumentID)
	SignatureID string
	// Actor — идентификатор инициатора (sub или email из токена)
	Actor string
	// Action — одно из model.AuditAction*
	Action string
	// Origin — источник запроса (удалённый адрес)
	Origin string
}

// AuditRecorder — асинхронный писатель журнала аудита.
type AuditRecorder struct {
	auditRepo repository.AuditRepository
	sigRepo   repository.SignatureRepository
	events    chan AuditEvent
	logger    *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewAuditRecorder создаёт регистратор с очередью указанного размера.
func NewAuditRecorder(
	auditRepo repository.AuditRepository,
	sigRepo repository.SignatureRepository,
	queueSize int,
	logger *slog.Logger,
) *AuditRecorder {
	return &AuditRecorder{
		auditRepo: auditRepo,
		sigRepo:   sigRepo,
		events:    make(chan AuditEvent, queueSize),
		logger:    logger.With(slog.String("component", "audit_recorder")),
	}
}

// Start запускает фоновую горутину записи.
func (a *AuditRecorder) Start() {
	a.wg.Add(1)
	go a.loop()
}

// Stop закрывает очередь и дожидается записи всех принятых событий.
func (a *AuditRecorder) Stop() {
	a.stopOnce.Do(func() {
		close(a.events)
	})
	a.wg.Wait()
}

// Record ставит событие в очередь. Не блокируется: при переполнении
// очереди событие отбрасывается с предупреждением в логе.
func (a *AuditRecorder) Record(ev AuditEvent) {
	select {
	case a.events <- ev:
		auditEventsTotal.WithLabelValues(ev.Action).Inc()
	default:
		auditDroppedTotal.Inc()
		a.logger.Warn("очередь аудита переполнена, событие отброшено",
			slog.String("action", ev.Action),
			slog.String("actor", ev.Actor))
	}
}

func (a *AuditRecorder) loop() {
	defer a.wg.Done()

	for ev := range a.events {
		a.write(ev)
	}
}

// write пишет событие в БД с одной повторной попыткой.
func (a *AuditRecorder) write(ev AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	documentID := ev.DocumentID
	if documentID == "" && ev.SignatureID != "" {
		sig, err := a.sigRepo.GetByID(ctx, ev.SignatureID)
		if err != nil {
			auditDroppedTotal.Inc()
			a.logger.Warn("не удалось определить документ для события аудита",
				slog.String("signature_id", ev.SignatureID),
				slog.String("action", ev.Action),
				slog.String("error", err.Error()))
			return
		}
		documentID = sig.DocumentID
	}

	entry := &model.AuditEntry{
		DocumentID: documentID,
		Actor:      ev.Actor,
		Action:     ev.Action,
		Origin:     ev.Origin,
	}

	if err := a.auditRepo.Append(ctx, entry); err != nil {
		a.logger.Warn("ошибка записи события аудита, повторная попытка",
			slog.String("action", ev.Action),
			slog.String("error", err.Error()))

		if err := a.auditRepo.Append(ctx, entry); err != nil {
			auditDroppedTotal.Inc()
			a.logger.Error("событие аудита потеряно",
				slog.String("document_id", documentID),
				slog.String("action", ev.Action),
				slog.String("error", err.Error()))
		}
	}
}

// AuditService — чтение журнала аудита.
type AuditService struct {
	auditRepo repository.AuditRepository
	docRepo   repository.DocumentRepository
}

// NewAuditService создаёт сервис чтения аудита.
func NewAuditService(auditRepo repository.AuditRepository, docRepo repository.DocumentRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo, docRepo: docRepo}
}

// Trail возвращает журнал аудита документа в хронологическом порядке.
func (s *AuditService) Trail(ctx context.Context, documentID string) ([]*model.AuditEntry, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.auditRepo.ListByDocument(ctx, documentID)
}
