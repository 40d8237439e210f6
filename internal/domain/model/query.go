package model

import (
	"maps"
	"strings"
)

// DefaultPageSize — размер страницы, если сервер его не сообщил.
const DefaultPageSize = 10

// ListQuery — параметры запроса страницы списка.
type ListQuery struct {
	// Page — номер страницы (с 1)
	Page int
	// Status — фильтр статуса
	Status StatusFilter
	// Filters — произвольные фильтры сущности (nombre, ubicacion, año, ...)
	Filters map[string]string
}

// Equal сравнивает параметры запроса.
func (q ListQuery) Equal(other ListQuery) bool {
	return q.Page == other.Page && q.Status == other.Status && FiltersEqual(q.Filters, other.Filters)
}

// Clone возвращает копию запроса с независимой картой фильтров.
func (q ListQuery) Clone() ListQuery {
	q.Filters = maps.Clone(q.Filters)
	return q
}

// PaginationMeta — метаданные пагинации. Производные от ответа сервера,
// локально меняется только Count при оптимистичном удалении.
type PaginationMeta struct {
	Count      int     `json:"count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
}

// Recount пересчитывает TotalPages по Count и PageSize.
func (m *PaginationMeta) Recount() {
	m.TotalPages = TotalPages(m.Count, m.PageSize)
}

// Page — одна страница списка, полученная от сервера.
type Page[T any] struct {
	Items []T
	Meta  PaginationMeta
}

// TotalPages возвращает max(1, ceil(count/pageSize)).
func TotalPages(count, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if count <= 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

// NormalizeFilters убирает пробелы по краям и пустые значения.
// Пустое значение эквивалентно отсутствию фильтра.
func NormalizeFilters(filters map[string]string) map[string]string {
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// FiltersEqual сравнивает фильтры после нормализации.
func FiltersEqual(a, b map[string]string) bool {
	return maps.Equal(NormalizeFilters(a), NormalizeFilters(b))
}
