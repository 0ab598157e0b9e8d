package model

import "time"

// Действия аудита — закрытый набор значений AuditEntry.Action.
const (
	// AuditActionUploaded — загрузка документа
	AuditActionUploaded = "uploaded"
	// AuditActionSigned — размещение подписи
	AuditActionSigned = "signed"
	// AuditActionAccepted — принятие подписи подписантом
	AuditActionAccepted = "accepted"
	// AuditActionRejected — отклонение подписи подписантом
	AuditActionRejected = "rejected"
	// AuditActionUploadedImage — прикрепление изображения к слоту
	AuditActionUploadedImage = "uploaded_image"
	// AuditActionFinalized — выпуск подписанного артефакта
	AuditActionFinalized = "finalized"
	// AuditActionInvited — приглашение подписанта
	AuditActionInvited = "invited"
)

// AuditEntry — неизменяемая запись журнала аудита.
// Append-only: записи никогда не обновляются и не удаляются.
// Одна запись на каждый успешно завершённый мутирующий вызов.
type AuditEntry struct {
	// ID — последовательный идентификатор записи
	ID int64
	// DocumentID — UUID документа, к которому относится действие
	DocumentID string
	// Actor — идентификатор аутентифицированного принципала
	Actor string
	// Action — выполненное действие (AuditAction* константы)
	Action string
	// Origin — сетевой адрес клиента
	Origin string
	// CreatedAt — время записи
	CreatedAt time.Time
}
