package model

import (
	"time"

	"github.com/bigkaa/docsign/internal/domain/approval"
	"github.com/bigkaa/docsign/internal/domain/geom"
)

// Signature — размещённая подпись: подписант, позиции на странице,
// статус согласования и прикреплённые изображения.
// Хранится в таблице signatures.
//
// Coordinates — упорядоченный список: индекс координаты (slot) стабилен
// и адресует параллельный массив Images. Images дорастает лениво до
// нужного slot, пустые слоты — nil.
type Signature struct {
	// ID — UUID подписи
	ID string
	// DocumentID — UUID документа-владельца
	DocumentID string
	// Signer — идентификатор принципала-подписанта
	Signer string
	// Page — страница первой координаты; ключ дедупликации
	// (document_id, signer, page) с unique-индексом в БД
	Page int
	// Coordinates — позиции подписи, порядок вставки = порядок отображения
	Coordinates []geom.Coordinate
	// Images — data-URI изображений по слотам, параллелен Coordinates;
	// слот без изображения — nil
	Images []*string
	// Status — статус согласования (pending, signed, rejected)
	Status approval.Status
	// RejectionReason — причина отклонения; непусто iff Status = rejected
	RejectionReason *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// ImageAt возвращает изображение слота slot или пустую строку,
// если слот не заполнен или выходит за пределы массива.
func (s *Signature) ImageAt(slot int) string {
	if slot < 0 || slot >= len(s.Images) || s.Images[slot] == nil {
		return ""
	}
	return *s.Images[slot]
}

// PadImages дорастает массив Images пустыми слотами так, чтобы он
// покрывал и все координаты, и слот slot.
func (s *Signature) PadImages(slot int) {
	need := len(s.Coordinates)
	if slot+1 > need {
		need = slot + 1
	}
	for len(s.Images) < need {
		s.Images = append(s.Images, nil)
	}
}
