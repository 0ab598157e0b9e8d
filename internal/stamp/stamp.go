// Пакет stamp — впечатывание подписей в PDF через pdfcpu.
//
// Для каждой метки на страницу наносится либо изображение подписи
// (data-URI, фиксированная визуальная ширина с сохранением пропорций),
// либо текстовый маркер "Signed". Позиция задаётся нормализованной
// координатой и преобразуется в PDF user space с переворотом оси y
// (geom.Coordinate.PDFPoint).
//
// Метки наносятся последовательно, в порядке переданного среза:
// при совпадении позиций поздняя метка рисуется поверх ранней.
package stamp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // регистрация декодера для DecodeConfig
	_ "image/png"  // регистрация декодера для DecodeConfig
	"io"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/bigkaa/docsign/internal/domain/geom"
)

const (
	// markerWidthPt — визуальная ширина изображения подписи в пунктах.
	// Высота вычисляется из пропорций исходного изображения.
	markerWidthPt = 50.0
	// markerHeightPt — номинальная высота маркера; половина используется
	// как вертикальное смещение точки привязки изображения.
	markerHeightPt = 24.0
	// textPointSize — кегль текстового маркера "Signed".
	textPointSize = 12
	// textMarker — текст, наносимый при отсутствии изображения слота.
	textMarker = "Signed"
	// textFillColor — цвет текстового маркера (тёмно-зелёный).
	textFillColor = "#008700"
)

// Mark — одна метка для нанесения: нормализованная координата страницы
// и опциональное изображение слота (data-URI). Пустое изображение —
// текстовый маркер.
type Mark struct {
	Coord geom.Coordinate
	Image string
}

// Stamper наносит метки подписей на PDF.
type Stamper struct {
	conf *model.Configuration
}

// New создаёт Stamper с relaxed-валидацией PDF:
// пользовательские документы часто формально некорректны.
func New() *Stamper {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Stamper{conf: conf}
}

// Stamp читает PDF из src, наносит метки и записывает результат в out.
// Метки со страницей за пределами документа пропускаются, а не
// ошибаются. Любая другая ошибка (битый PDF, битое изображение)
// прерывает всю операцию — частичный результат не записывается.
func (s *Stamper) Stamp(src io.Reader, out io.Writer, marks []Mark) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("ошибка чтения исходного PDF: %w", err)
	}

	pageCount, dims, err := s.pageGeometry(data)
	if err != nil {
		return err
	}

	// Метки наносятся по одной: каждая — отдельный watermark-проход
	// pdfcpu по своей странице. Порядок прохода сохраняет порядок
	// среза (last-write-wins при совпадении позиций).
	cur := data
	for i, m := range marks {
		if m.Coord.Page < 1 || m.Coord.Page > pageCount {
			continue
		}

		dim := dims[m.Coord.Page-1]
		wm, err := s.buildWatermark(i, m, dim)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		pages := []string{strconv.Itoa(m.Coord.Page)}
		if err := api.AddWatermarks(bytes.NewReader(cur), &buf, pages, wm, s.conf); err != nil {
			return fmt.Errorf("ошибка нанесения метки %d на страницу %d: %w", i, m.Coord.Page, err)
		}
		cur = buf.Bytes()
	}

	if _, err := out.Write(cur); err != nil {
		return fmt.Errorf("ошибка записи результата: %w", err)
	}
	return nil
}

// pageGeometry возвращает количество страниц и нативные размеры
// страниц документа в пунктах.
func (s *Stamper) pageGeometry(data []byte) (int, []types.Dim, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), s.conf)
	if err != nil {
		return 0, nil, fmt.Errorf("ошибка разбора PDF: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return 0, nil, fmt.Errorf("некорректный PDF: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return 0, nil, fmt.Errorf("ошибка чтения размеров страниц: %w", err)
	}
	return ctx.PageCount, dims, nil
}

// buildWatermark собирает watermark pdfcpu для метки:
// изображение слота или текстовый маркер.
func (s *Stamper) buildWatermark(idx int, m Mark, dim types.Dim) (*model.Watermark, error) {
	if m.Image == "" {
		// Текстовый маркер привязывается без вертикального смещения
		p := m.Coord.PDFPoint(dim.Width, dim.Height, 0)
		desc := fmt.Sprintf(
			"font:Helvetica, points:%d, pos:bl, off:%.2f %.2f, scale:1 abs, rot:0, fillcol:%s, op:1",
			textPointSize, p.X, p.Y, textFillColor,
		)
		wm, err := api.TextWatermark(textMarker, desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("ошибка подготовки текстовой метки %d: %w", idx, err)
		}
		return wm, nil
	}

	raw, err := DecodeDataURI(m.Image)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования изображения метки %d: %w", idx, err)
	}

	scale, err := ImageScale(raw, markerWidthPt)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения изображения метки %d: %w", idx, err)
	}

	// Точка привязки изображения — его вертикальный центр
	p := m.Coord.PDFPoint(dim.Width, dim.Height, markerHeightPt/2)
	desc := fmt.Sprintf(
		"pos:bl, off:%.2f %.2f, scale:%.4f abs, rot:0, op:1",
		p.X, p.Y, scale,
	)
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(raw), desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("ошибка подготовки изображения метки %d: %w", idx, err)
	}
	return wm, nil
}

// DecodeDataURI извлекает бинарные данные из data-URI
// (data:image/png;base64,...). Строка без префикса трактуется
// как «голый» base64.
func DecodeDataURI(s string) ([]byte, error) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, fmt.Errorf("некорректный data-URI: отсутствует разделитель")
		}
		payload = s[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("некорректный base64: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("пустое изображение")
	}
	return raw, nil
}

// ImageScale возвращает масштаб, приводящий изображение к ширине
// widthPt пунктов (1 пиксель = 1 пункт до масштабирования).
// Пропорции сохраняются самим watermark-рендером.
func ImageScale(raw []byte, widthPt float64) (float64, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("нечитаемое изображение: %w", err)
	}
	if cfg.Width <= 0 {
		return 0, fmt.Errorf("некорректная ширина изображения: %d", cfg.Width)
	}
	return widthPt / float64(cfg.Width), nil
}
