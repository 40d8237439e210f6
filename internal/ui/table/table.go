// Пакет table — универсальная таблица со столбцами, действиями над строкой,
// декларативными фильтрами и пагинацией.
//
// Два режима:
//   - серверный (ApplyFiltersInternally=false): Items и Count уже отфильтрованы
//     и разбиты на страницы вызывающим кодом, таблица только отображает их;
//   - локальный (ApplyFiltersInternally=true): таблица сама фильтрует Items
//     и вырезает страницу [(page-1)*pageSize, page*pageSize).
//
// Таблица не хранит значения фильтров и не сбрасывает страницу при их
// изменении: это делает владелец состояния списка.
package table

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/bigkaa/agroadmin/internal/domain/model"
)

// Align — выравнивание столбца.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Class возвращает CSS-класс выравнивания (по умолчанию left).
func (a Align) Class() string {
	switch a {
	case AlignCenter:
		return "text-center"
	case AlignRight:
		return "text-right"
	default:
		return "text-left"
	}
}

// Column — столбец таблицы.
type Column[T any] struct {
	Label string
	// Key — ключ поля записи (передаётся в Props.Field)
	Key   string
	Align Align
	// Format — форматирование значения поля (по умолчанию Stringify)
	Format func(v any) string
	// Render — произвольное содержимое ячейки; имеет приоритет над Key/Format
	Render func(item T, rowIndex int) templ.Component
}

// Labels — подписи элементов управления таблицы.
type Labels struct {
	Actions  string
	Previous string
	Next     string
	Apply    string
}

// DefaultLabels — подписи по умолчанию.
var DefaultLabels = Labels{
	Actions:  "Acciones",
	Previous: "Anterior",
	Next:     "Siguiente",
	Apply:    "Filtrar",
}

// Props — входные данные таблицы.
type Props[T any] struct {
	// ID — id корневого элемента (цель HTMX-замены)
	ID    string
	Items []T
	// Page — текущая страница (с 1)
	Page     int
	PageSize int
	// Count — общее число записей (серверный режим)
	Count   int
	Columns []Column[T]
	// Field — доступ к полю записи по ключу
	Field func(item T, key string) any
	// RowActions — слот действий над строкой (nil — без столбца действий)
	RowActions func(item T, rowIndex int) templ.Component
	// PageURL — адрес перехода на страницу (аналог onPageChange)
	PageURL func(page int) string
	// Filters — декларативные фильтры
	Filters []FilterConfig
	// FilterValues — текущие значения фильтров
	FilterValues map[string]string
	// FilterURL — адрес, куда отправляются значения фильтров (аналог onFilterChange)
	FilterURL              string
	ApplyFiltersInternally bool
	EmptyMessage           string
	Labels                 Labels
}

// FieldOf возвращает accessor для записей, реализующих model.FieldSource.
func FieldOf[T model.FieldSource]() func(item T, key string) any {
	return func(item T, key string) any { return item.Field(key) }
}

// View — вычисленное представление страницы.
type View[T any] struct {
	Rows []T
	// Offset — индекс первой строки страницы в отфильтрованном наборе
	Offset         int
	Page           int
	PageSize       int
	TotalPages     int
	EffectiveCount int
	Empty          bool
}

// Compute вычисляет строки страницы и число страниц. Не меняет props.Items.
func Compute[T any](p Props[T]) View[T] {
	page := max(p.Page, 1)
	pageSize := p.PageSize
	if pageSize < 1 {
		pageSize = model.DefaultPageSize
	}

	v := View[T]{Page: page, PageSize: pageSize}

	if !p.ApplyFiltersInternally {
		v.Rows = p.Items
		v.EffectiveCount = max(p.Count, 0)
	} else {
		filtered := ApplyFilters(p.Items, p.Field, p.Filters, p.FilterValues)
		v.EffectiveCount = len(filtered)
		start := (page - 1) * pageSize
		end := min(start+pageSize, len(filtered))
		if start < len(filtered) {
			v.Rows = filtered[start:end]
			v.Offset = start
		}
	}

	v.TotalPages = model.TotalPages(v.EffectiveCount, pageSize)
	v.Empty = len(v.Rows) == 0
	return v
}

// ApplyFilters оставляет записи, прошедшие все фильтры с непустым значением.
// Возвращает новый срез; items не меняется.
func ApplyFilters[T any](items []T, field func(T, string) any, filters []FilterConfig, values map[string]string) []T {
	active := make([]FilterConfig, 0, len(filters))
	for _, f := range filters {
		if values[f.Key] != "" {
			active = append(active, f)
		}
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if matchesAll(item, field, active, values) {
			out = append(out, item)
		}
	}
	return out
}

func matchesAll[T any](item T, field func(T, string) any, filters []FilterConfig, values map[string]string) bool {
	for _, f := range filters {
		var v any
		if field != nil {
			v = field(item, f.Key)
		}
		if !strategyFor(f.Kind).match(v, values[f.Key]) {
			return false
		}
	}
	return true
}

// Stringify приводит значение поля к строке для отображения и фильтрации.
// nil и nil-указатели дают пустую строку.
func Stringify(v any) string {
	if v == nil {
		return ""
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}

	switch t := rv.Interface().(type) {
	case string:
		return t
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(time.DateOnly)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// CellText возвращает текст ячейки для столбца без Render.
func CellText[T any](p Props[T], col Column[T], item T) string {
	if p.Field == nil || col.Key == "" {
		return ""
	}
	v := p.Field(item, col.Key)
	if col.Format != nil {
		return col.Format(v)
	}
	return Stringify(v)
}
