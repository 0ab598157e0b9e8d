// Пакет geom — модель координат подписи.
//
// Координата нормализована относительно отрендеренного окна страницы:
// x и y лежат в [0, 1] и не зависят от разрешения и зума вьювера.
// Страницы нумеруются с 1.
//
// Три системы координат:
//   - пиксели вьювера (клик/отпускание drag) — вход Normalize
//   - нормализованные доли страницы — хранятся в БД
//   - PDF user space (origin снизу слева) — выход PDFPoint
package geom

// Coordinate — нормализованная позиция подписи на странице.
type Coordinate struct {
	// X — доля ширины отрендеренной страницы, [0, 1]
	X float64 `json:"x"`
	// Y — доля высоты отрендеренной страницы, [0, 1]
	Y float64 `json:"y"`
	// Page — номер страницы, нумерация с 1
	Page int `json:"page"`
}

// Box — отрендеренный bounding box страницы во вьювере.
// Left/Top — позиция страницы, Width/Height — её размер.
// Все значения в одних и тех же единицах (обычно CSS-пиксели).
type Box struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Point — точка в координатах вьювера или PDF.
type Point struct {
	X float64
	Y float64
}

// Normalize преобразует позицию указателя (px, py) в нормализованную
// координату относительно box. Результат зажимается в [0, 1], поэтому
// клик за пределами страницы привязывается к её краю.
func Normalize(px, py float64, box Box, page int) Coordinate {
	return Coordinate{
		X:    Clamp01((px - box.Left) / box.Width),
		Y:    Clamp01((py - box.Top) / box.Height),
		Page: page,
	}
}

// Render возвращает позицию оверлея в координатах текущего
// отрендеренного box. Обратное преобразование к Normalize: одна и та же
// нормализованная координата корректна при любом зуме и ширине.
func (c Coordinate) Render(box Box) Point {
	return Point{
		X: box.Left + c.X*box.Width,
		Y: box.Top + c.Y*box.Height,
	}
}

// PDFPoint преобразует координату в PDF user space страницы с нативным
// размером pageW x pageH (в пунктах). PDF origin — снизу слева, поэтому
// ось y переворачивается. markerHalfHeight смещает маркер так, чтобы
// точка привязки была его вертикальным центром (для текста передаётся 0).
func (c Coordinate) PDFPoint(pageW, pageH, markerHalfHeight float64) Point {
	return Point{
		X: c.X * pageW,
		Y: pageH - c.Y*pageH - markerHalfHeight,
	}
}

// Valid сообщает, является ли координата допустимой:
// x и y в [0, 1], page >= 1.
func (c Coordinate) Valid() bool {
	return c.X >= 0 && c.X <= 1 && c.Y >= 0 && c.Y <= 1 && c.Page >= 1
}

// Clamp01 зажимает v в отрезок [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
