package pages

import (
	"context"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/liststate"
	"github.com/bigkaa/agroadmin/internal/ui/i18n"
	"github.com/bigkaa/agroadmin/internal/ui/table"
	"github.com/bigkaa/agroadmin/internal/ui/views"
)

// ListChangedEvent — HX-Trigger событие, по которому таблица перезагружается.
const ListChangedEvent = "agro:list-changed"

// TableID возвращает id таблицы сущности (цель HTMX-замены).
func TableID(entity string) string { return entity + "-table" }

// TabsID возвращает id вкладок статуса сущности.
func TabsID(entity string) string { return entity + "-tabs" }

// AlertID возвращает id области ошибки загрузки.
func AlertID(entity string) string { return entity + "-alert" }

// TableURL возвращает адрес HTMX-фрагмента таблицы сущности.
func TableURL(entity string) string { return "/admin/partials/" + entity + "/table" }

// FormURL возвращает адрес формы создания (id=0) или редактирования.
func FormURL(entity string, id int64) string {
	if id == 0 {
		return "/admin/partials/" + entity + "/form"
	}
	return "/admin/partials/" + entity + "/form/" + strconv.FormatInt(id, 10)
}

// ItemURL возвращает адрес записи (действие action необязательно).
func ItemURL(entity string, id int64, action string) string {
	u := "/admin/partials/" + entity + "/" + strconv.FormatInt(id, 10)
	if action != "" {
		u += "/" + action
	}
	return u
}

func statusURL(entity string, st model.StatusFilter) string {
	return TableURL(entity) + "?estado=" + url.QueryEscape(st.String())
}

func clearURL(entity string) string { return TableURL(entity) + "?clear=1" }

func retryURL(entity string) string { return TableURL(entity) + "?refresh=1" }

func tableTarget(entity string) string { return "#" + TableID(entity) }

// ListData — данные страницы и фрагмента списка.
type ListData[T model.Record] struct {
	View  views.View
	State liststate.State[T]
	// Columns — столбцы, связанные с типом записи
	Columns []table.Column[T]
	Field   func(item T, key string) any
}

func (d ListData[T]) entity() string { return d.View.Entity }

// tableProps собирает входные данные таблицы из состояния списка.
func tableProps[T model.Record](ctx context.Context, d ListData[T]) table.Props[T] {
	entity := d.entity()
	st := d.State
	return table.Props[T]{
		ID:       TableID(entity),
		Items:    st.Items,
		Page:     st.Page,
		PageSize: st.Meta.PageSize,
		Count:    st.Meta.Count,
		Columns:  d.Columns,
		Field:    d.Field,
		RowActions: func(item T, _ int) templ.Component {
			return RowActions(entity, item)
		},
		PageURL: func(page int) string {
			return TableURL(entity) + "?page=" + strconv.Itoa(page)
		},
		Filters:      d.View.Filters,
		FilterValues: st.Filters,
		FilterURL:    TableURL(entity),
		EmptyMessage: d.View.Empty,
		Labels: table.Labels{
			Actions:  i18n.T(ctx, "table.actions"),
			Previous: i18n.T(ctx, "table.previous"),
			Next:     i18n.T(ctx, "table.next"),
			Apply:    i18n.T(ctx, "table.apply"),
		},
	}
}
