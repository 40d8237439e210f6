package table

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/agroadmin/internal/domain/model"
)

type row struct {
	Nombre    string
	Ubicacion *string
	Activa    bool
}

func rowField(r row, key string) any {
	switch key {
	case "nombre":
		return r.Nombre
	case "ubicacion":
		return r.Ubicacion
	case "activa":
		return r.Activa
	}
	return nil
}

func rowsN(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{Nombre: fmt.Sprintf("Bodega %02d", i+1), Activa: i%2 == 0}
	}
	return out
}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

var textFilter = []FilterConfig{{Key: "nombre", Label: "Nombre", Kind: FilterText}}

func TestCompute_TextFilterScenario(t *testing.T) {
	items := []row{{Nombre: "Bodega Norte"}, {Nombre: "Almacén Sur"}}
	v := Compute(Props[row]{
		Items:                  items,
		Page:                   1,
		PageSize:               10,
		Field:                  rowField,
		Filters:                textFilter,
		FilterValues:           map[string]string{"nombre": "bod"},
		ApplyFiltersInternally: true,
	})

	require.Len(t, v.Rows, 1)
	assert.Equal(t, "Bodega Norte", v.Rows[0].Nombre)
	assert.Equal(t, 1, v.EffectiveCount)
	assert.Len(t, items, 2, "исходный набор не меняется")
}

func TestCompute_ServerModePage3Of25(t *testing.T) {
	v := Compute(Props[row]{Items: rowsN(5), Page: 3, PageSize: 10, Count: 25})

	assert.Len(t, v.Rows, 5)
	assert.Equal(t, 3, v.TotalPages)
	assert.Equal(t, 25, v.EffectiveCount)
}

func TestCompute_ServerModeTrustsItems(t *testing.T) {
	v := Compute(Props[row]{
		Items:        []row{{Nombre: "Almacén Sur"}},
		Page:         1,
		PageSize:     10,
		Count:        1,
		Field:        rowField,
		Filters:      textFilter,
		FilterValues: map[string]string{"nombre": "bod"},
	})

	assert.Len(t, v.Rows, 1, "в серверном режиме фильтры не применяются локально")
}

func TestCompute_RowCountProperty(t *testing.T) {
	for filtered := 0; filtered <= 23; filtered++ {
		for pageSize := 1; pageSize <= 7; pageSize++ {
			for page := 1; page <= 6; page++ {
				v := Compute(Props[row]{
					Items:                  rowsN(filtered),
					Page:                   page,
					PageSize:               pageSize,
					ApplyFiltersInternally: true,
				})
				want := max(0, min(pageSize, filtered-(page-1)*pageSize))
				require.Len(t, v.Rows, want, "filtered=%d pageSize=%d page=%d", filtered, pageSize, page)
				require.Equal(t, model.TotalPages(filtered, pageSize), v.TotalPages)
			}
		}
	}
}

func TestApplyFilters_Idempotent(t *testing.T) {
	loc := "Curicó"
	items := append(rowsN(12), row{Nombre: "Bodega Centro", Ubicacion: &loc, Activa: true})
	filters := []FilterConfig{
		{Key: "nombre", Kind: FilterText},
		{Key: "activa", Kind: FilterSelect, Options: []Option{{"Sí", "true"}, {"No", "false"}}},
	}
	values := map[string]string{"nombre": "BODEGA 1", "activa": "true"}

	once := ApplyFilters(items, rowField, filters, values)
	twice := ApplyFilters(once, rowField, filters, values)

	assert.Equal(t, once, twice)
	for _, r := range once {
		assert.True(t, r.Activa)
		assert.Contains(t, strings.ToLower(r.Nombre), "bodega 1")
	}
}

func TestApplyFilters_EmptyValuePasses(t *testing.T) {
	items := rowsN(4)
	got := ApplyFilters(items, rowField, textFilter, map[string]string{"nombre": ""})
	assert.Len(t, got, 4)

	got = ApplyFilters(items, rowField, textFilter, nil)
	assert.Len(t, got, 4)
}

func TestMatch_Strategies(t *testing.T) {
	text := FilterConfig{Kind: FilterText}
	sel := FilterConfig{Kind: FilterSelect}
	auto := FilterConfig{Kind: FilterAutocomplete}

	assert.True(t, Match(text, "Bodega Norte", "NORTE"))
	assert.False(t, Match(sel, "Bodega Norte", "Norte"))
	assert.True(t, Match(sel, 2025, "2025"))
	assert.True(t, Match(auto, "Talca", "Talca"))
	assert.False(t, Match(auto, "Talca", "tal"))
	assert.True(t, Match(sel, nil, ""))
	assert.False(t, Match(text, nil, "x"))
	assert.True(t, Match(FilterConfig{Kind: "unknown"}, "abc", "B"), "неизвестный вид работает как text")
}

func TestStringify(t *testing.T) {
	var nilStr *string
	s := "x"
	f := 12.5
	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "", Stringify(nilStr))
	assert.Equal(t, "x", Stringify(&s))
	assert.Equal(t, "12.5", Stringify(&f))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "42", Stringify(int64(42)))
	assert.Equal(t, "2026-01-15", Stringify(&day))
	assert.Equal(t, "archived", Stringify(model.StatusArchived))
}

func TestRender_EmptyPlaceholder(t *testing.T) {
	html := render(t, Render(Props[row]{
		ID:           "bodegas-table",
		Columns:      []Column[row]{{Label: "Nombre", Key: "nombre"}, {Label: "Ubicación", Key: "ubicacion"}},
		Field:        rowField,
		RowActions:   func(row, int) templ.Component { return cellText("x") },
		EmptyMessage: "No hay bodegas",
	}))

	assert.Contains(t, html, `<tr class="empty"><td colspan="3">No hay bodegas</td></tr>`)
	assert.Contains(t, html, `<th class="actions">Acciones</th>`)
	assert.NotContains(t, html, `class="pager"`)
}

func TestRender_CellsAndActions(t *testing.T) {
	html := render(t, Render(Props[row]{
		ID:       "t",
		Items:    []row{{Nombre: "<Bodega & Co>"}},
		Page:     1,
		PageSize: 10,
		Count:    1,
		Field:    rowField,
		Columns: []Column[row]{
			{Label: "Nombre", Key: "nombre"},
			{Label: "Ubicación", Key: "ubicacion", Align: AlignRight},
			{Label: "#", Align: AlignCenter, Render: func(_ row, i int) templ.Component {
				return cellText(fmt.Sprintf("fila %d", i))
			}},
		},
		RowActions: func(r row, _ int) templ.Component { return cellText("editar " + r.Nombre) },
	}))

	assert.Contains(t, html, `<td class="text-left">&lt;Bodega &amp; Co&gt;</td>`)
	assert.Contains(t, html, `<td class="text-right"></td>`, "nil выводится как пустая строка")
	assert.Contains(t, html, `<td class="text-center">fila 0</td>`)
	assert.Contains(t, html, `<td class="actions">editar &lt;Bodega &amp; Co&gt;</td>`)
	assert.NotContains(t, html, `class="empty"`)
}

func TestRender_RowIndexIsOffsetInInternalMode(t *testing.T) {
	var indexes []int
	render(t, Render(Props[row]{
		Items:                  rowsN(7),
		Page:                   2,
		PageSize:               3,
		ApplyFiltersInternally: true,
		Columns: []Column[row]{{Label: "i", Render: func(_ row, i int) templ.Component {
			indexes = append(indexes, i)
			return nil
		}}},
	}))

	assert.Equal(t, []int{3, 4, 5}, indexes)
}

func TestRender_PagerAndFilters(t *testing.T) {
	html := render(t, Render(Props[row]{
		ID:       "temporadas-table",
		Items:    rowsN(10),
		Page:     2,
		PageSize: 10,
		Count:    35,
		Field:    rowField,
		Columns:  []Column[row]{{Label: "Nombre", Key: "nombre"}},
		PageURL:  func(p int) string { return fmt.Sprintf("/admin/partials/temporadas/table?page=%d", p) },
		Filters: []FilterConfig{
			{Key: "nombre", Label: "Nombre", Kind: FilterText, Width: "12rem"},
			{Key: "finalizada", Label: "Finalizada", Kind: FilterSelect, Options: []Option{{"Sí", "true"}, {"No", "false"}}},
			{Key: "ubicacion", Label: "Ubicación", Kind: FilterAutocomplete, Options: []Option{{"Talca", "Talca"}}},
		},
		FilterValues: map[string]string{"nombre": "2025", "finalizada": "false"},
		FilterURL:    "/admin/partials/temporadas/table",
	}))

	assert.Contains(t, html, `hx-get="/admin/partials/temporadas/table?page=3"`)
	assert.Contains(t, html, `<span class="page current" aria-current="page">2</span>`)
	assert.Contains(t, html, `>Anterior</a>`)
	assert.Contains(t, html, `>Siguiente</a>`)
	assert.Contains(t, html, `name="nombre" value="2025"`)
	assert.Contains(t, html, `<option value="false" selected>No</option>`)
	assert.Contains(t, html, `<datalist id="temporadas-table-filters-ubicacion-options">`)
	assert.Contains(t, html, `style="width:12rem;"`)
	assert.Contains(t, html, `hx-target="#temporadas-table"`)
}

func TestRender_FilterControlsKeepIDsAcrossSwaps(t *testing.T) {
	props := func(value string) Props[row] {
		return Props[row]{
			ID:      "temporadas-table",
			Field:   rowField,
			Columns: []Column[row]{{Label: "Nombre", Key: "nombre"}},
			Filters: []FilterConfig{
				{Key: "nombre", Label: "Nombre", Kind: FilterText},
				{Key: "finalizada", Label: "Finalizada", Kind: FilterSelect, Options: []Option{{"No", "false"}}},
			},
			FilterValues: map[string]string{"nombre": value},
			FilterURL:    "/admin/partials/temporadas/table",
		}
	}

	first := render(t, Render(props("20")))
	second := render(t, Render(props("2025")))

	for _, id := range []string{`id="temporadas-table-filters-nombre"`, `id="temporadas-table-filters-finalizada"`} {
		assert.Contains(t, first, id)
		assert.Contains(t, second, id)
	}
	assert.Contains(t, second, `id="temporadas-table-filters-nombre" name="nombre" value="2025"`)
}

func TestRender_NilCellComponentRendersEmptyCell(t *testing.T) {
	html := render(t, Render(Props[row]{
		Items:      []row{{Nombre: "a"}},
		Page:       1,
		PageSize:   10,
		Count:      1,
		Columns:    []Column[row]{{Label: "x", Render: func(row, int) templ.Component { return nil }}},
		RowActions: func(row, int) templ.Component { return nil },
	}))

	assert.Contains(t, html, `<td class="text-left"></td>`)
	assert.Contains(t, html, `<td class="actions"></td>`)
}

func TestPageNumbers(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, pageNumbers(1, 3))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, pageNumbers(4, 7))
	assert.Equal(t, []int{1, 0, 8, 9, 10, 11, 12, 0, 20}, pageNumbers(10, 20))
	assert.Equal(t, []int{1, 2, 3, 0, 20}, pageNumbers(1, 20))
	assert.Equal(t, []int{1, 0, 18, 19, 20}, pageNumbers(20, 20))
}
