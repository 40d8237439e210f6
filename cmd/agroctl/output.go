package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/bigkaa/agroadmin/internal/notify"
	"github.com/bigkaa/agroadmin/internal/ui/table"
	"github.com/bigkaa/agroadmin/internal/ui/views"
)

// printTable печатает страницу списка: ID, столбцы представления и строку пагинации.
func printTable[T interface{ RecordID() int64 }](out io.Writer, p table.Props[T]) {
	view := table.Compute(p)
	if view.Empty {
		fmt.Fprintln(out, p.EmptyMessage)
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(p.Columns)+1)
	header = append(header, "ID")
	for _, col := range p.Columns {
		header = append(header, strings.ToUpper(col.Label))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, item := range view.Rows {
		row := make([]string, 0, len(p.Columns)+1)
		row = append(row, fmt.Sprint(item.RecordID()))
		for _, col := range p.Columns {
			row = append(row, table.CellText(p, col, item))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()

	fmt.Fprintf(out, "\nPágina %d de %d · %d registros\n", view.Page, max(view.TotalPages, 1), view.EffectiveCount)
}

// printNotifications печатает уведомления Inbox по одному в строке.
func printNotifications(out io.Writer, notes []notify.Notification) {
	for _, n := range notes {
		fmt.Fprintf(out, "[%s] %s\n", n.Severity, n.Message)
	}
}

// printFieldErrors печатает ошибки по полям в порядке формы, затем прочие.
func printFieldErrors(out io.Writer, view views.View, fieldErrs map[string][]string, formErrs []string) {
	labels := make(map[string]string, len(view.Form))
	for _, f := range view.Form {
		labels[f.Key] = f.Label
	}

	keys := make([]string, 0, len(fieldErrs))
	for key := range fieldErrs {
		keys = append(keys, key)
	}
	order := view.FieldOrder()
	slices.SortFunc(keys, func(a, b string) int {
		ia, ib := slices.Index(order, a), slices.Index(order, b)
		if ia < 0 {
			ia = len(order)
		}
		if ib < 0 {
			ib = len(order)
		}
		if ia != ib {
			return ia - ib
		}
		return strings.Compare(a, b)
	})

	for _, key := range keys {
		label := labels[key]
		if label == "" {
			label = key
		}
		for _, msg := range fieldErrs[key] {
			fmt.Fprintf(out, "  %s: %s\n", label, msg)
		}
	}
	for _, msg := range formErrs {
		fmt.Fprintf(out, "  %s\n", msg)
	}
}
