package domain

// Поля сортировки, известные хранилищу. Репозитории принимают только их,
// произвольные имена полей отклоняются на уровне реализации.
const (
	SortFieldID        = "id"
	SortFieldOrderDate = "order_date"
	SortFieldFullName  = "full_name"
	SortFieldName      = "name"
)

// DefaultPageSize применяется, если запрошенный размер страницы не задан.
const DefaultPageSize = 20

// Sort описывает одно правило сортировки.
type Sort struct {
	Field string
	Desc  bool
}

// PageRequest — запрошенные страница, размер и сортировка.
type PageRequest struct {
	// Page нумеруется с нуля.
	Page int
	Size int
	Sort []Sort
}

// Sorted сообщает, задал ли вызывающий собственную сортировку.
func (p PageRequest) Sorted() bool {
	return len(p.Sort) > 0
}

// Offset возвращает смещение первой записи страницы.
func (p PageRequest) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return p.Page * p.Size
}

// Page — страница результатов вместе с общим количеством записей.
type Page[T any] struct {
	Items []T
	Page  int
	Size  int
	Total int
}

// WithDefaultSort нормализует запрос страницы: пустой размер заменяется
// DefaultPageSize, отрицательная страница — нулевой, а сортировка по
// умолчанию применяется только если вызывающий не задал свою.
// Чистая функция без разделяемого состояния.
func WithDefaultSort(req PageRequest, fallback []Sort) PageRequest {
	if req.Size <= 0 {
		req.Size = DefaultPageSize
	}
	if req.Page < 0 {
		req.Page = 0
	}
	if !req.Sorted() {
		req.Sort = fallback
	}
	return req
}

// OrderDefaultSort — сортировка заказов по умолчанию: дата заказа DESC, id DESC.
func OrderDefaultSort() []Sort {
	return []Sort{
		{Field: SortFieldOrderDate, Desc: true},
		{Field: SortFieldID, Desc: true},
	}
}

// CustomerDefaultSort — сортировка клиентов по умолчанию: имя ASC, id DESC.
func CustomerDefaultSort() []Sort {
	return []Sort{
		{Field: SortFieldFullName},
		{Field: SortFieldID, Desc: true},
	}
}

// ProductDefaultSort — сортировка товаров по умолчанию: название ASC, id DESC.
func ProductDefaultSort() []Sort {
	return []Sort{
		{Field: SortFieldName},
		{Field: SortFieldID, Desc: true},
	}
}
