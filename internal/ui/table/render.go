package table

//go:generate templ generate

import (
	"strconv"

	"github.com/a-h/templ"
)

// pagerWindow — число номеров страниц вокруг текущей.
const pagerWindow = 2

// Render возвращает компонент таблицы: фильтры, заголовок, строки (или строку
// пустого состояния) и пагинатор. Разметка описана в table.templ.
func Render[T any](p Props[T]) templ.Component {
	labels := p.Labels
	if labels == (Labels{}) {
		labels = DefaultLabels
	}
	return dataTable(p, Compute(p), labels)
}

// cellContent возвращает содержимое ячейки; без Render выводится CellText.
func cellContent[T any](p Props[T], col Column[T], item T, rowIndex int) templ.Component {
	if col.Render == nil {
		return cellText(CellText(p, col, item))
	}
	return orNop(col.Render(item, rowIndex))
}

func rowActions[T any](p Props[T], item T, rowIndex int) templ.Component {
	return orNop(p.RowActions(item, rowIndex))
}

func orNop(c templ.Component) templ.Component {
	if c == nil {
		return templ.NopComponent
	}
	return c
}

func emptyColspan[T any](p Props[T]) string {
	n := len(p.Columns)
	if p.RowActions != nil {
		n++
	}
	return strconv.Itoa(max(n, 1))
}

// filterFormID — id формы фильтров; от него строятся id элементов управления,
// чтобы HTMX сохранял фокус после замены таблицы.
func filterFormID(tableID string) string {
	if tableID == "" {
		return "table-filters"
	}
	return tableID + "-filters"
}

func filterControlID(formID, key string) string {
	return formID + "-" + key
}

// pageLink — элемент пагинатора. Gap обозначает пропуск номеров.
type pageLink struct {
	URL     string
	Text    string
	Current bool
	Gap     bool
}

func pageLinks[T any](p Props[T], view View[T], labels Labels) []pageLink {
	link := func(page int, text string) pageLink {
		return pageLink{URL: p.PageURL(page), Text: text, Current: page == view.Page}
	}

	var out []pageLink
	if view.Page > 1 {
		out = append(out, link(view.Page-1, labels.Previous))
	}
	for _, n := range pageNumbers(view.Page, view.TotalPages) {
		if n == 0 {
			out = append(out, pageLink{Gap: true})
			continue
		}
		out = append(out, link(n, strconv.Itoa(n)))
	}
	if view.Page < view.TotalPages {
		out = append(out, link(view.Page+1, labels.Next))
	}
	return out
}

// pageNumbers возвращает номера страниц для пагинатора; 0 обозначает пропуск.
func pageNumbers(current, total int) []int {
	if total <= 2*pagerWindow+3 {
		out := make([]int, 0, total)
		for i := 1; i <= total; i++ {
			out = append(out, i)
		}
		return out
	}

	from := max(current-pagerWindow, 2)
	to := min(current+pagerWindow, total-1)

	out := []int{1}
	if from > 2 {
		out = append(out, 0)
	}
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	if to < total-1 {
		out = append(out, 0)
	}
	return append(out, total)
}
