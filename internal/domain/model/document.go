package model

import "time"

// Document — загруженный PDF-документ.
// Хранится в таблице documents. Неизменяем после создания,
// кроме нормализации storage_path.
type Document struct {
	// ID — UUID документа
	ID string
	// OriginalFilename — оригинальное имя загруженного файла
	OriginalFilename string
	// StoragePath — относительный путь файла в blob-хранилище
	StoragePath string
	// OwnerID — идентификатор загрузившего принципала
	OwnerID string
	// UploadedAt — время загрузки
	UploadedAt time.Time
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
