package views

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/ui/table"
)

func TestLoad_Embedded(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"bodegas", "temporadas"}, c.Entities())

	v, ok := c.View("temporadas")
	require.True(t, ok)
	assert.Equal(t, "temporadas", v.Entity)
	assert.Equal(t, []string{"nombre", "año", "fecha_inicio", "fecha_fin", "finalizada"}, v.FieldOrder())

	var kinds []table.FilterKind
	for _, f := range v.Filters {
		kinds = append(kinds, f.Kind)
	}
	assert.Equal(t, []table.FilterKind{table.FilterText, table.FilterAutocomplete, table.FilterSelect}, kinds)
	assert.Equal(t, "No", v.Filters[2].Options[1].Label)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct{ name, data string }{
		{"пусто", `views: {}`},
		{"нет столбцов", `views: {a: {title: A}}`},
		{"неизвестный kind", `views: {a: {columns: [{key: x}], filters: [{key: x, kind: range}]}}`},
		{"select без опций", `views: {a: {columns: [{key: x}], filters: [{key: x, kind: select}]}}`},
		{"повтор ключа", `views: {a: {columns: [{key: x}], filters: [{key: x, kind: text}, {key: x, kind: text}]}}`},
		{"неизвестный format", `views: {a: {columns: [{key: x, format: money}]}}`},
		{"неизвестный type", `views: {a: {columns: [{key: x}], form: [{key: x, type: color}]}}`},
		{"не yaml", `views: [`},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.data))
		assert.Error(t, err, tt.name)
	}
}

func TestColumns_BindFormatters(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	v, _ := c.View("bodegas")

	cols := Columns[model.Warehouse](v)
	require.Len(t, cols, len(v.Columns))

	byKey := map[string]table.Column[model.Warehouse]{}
	for _, col := range cols {
		byKey[col.Key] = col
	}
	assert.Equal(t, "Activa", byKey["is_active"].Format(true))
	assert.Equal(t, "Archivada", byKey["is_active"].Format(false))
	assert.Nil(t, byKey["nombre"].Format)

	at := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "03-02-2026", byKey["archived_at"].Format(&at))
	var none *time.Time
	assert.Equal(t, "", byKey["archived_at"].Format(none))

	capacity := 1500.0
	assert.Equal(t, "1500", byKey["capacidad"].Format(&capacity))
	assert.Equal(t, table.AlignRight, byKey["capacidad"].Align)
}

func TestPayload(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	v, _ := c.View("temporadas")

	payload, errs := v.Payload(url.Values{
		"nombre":       {" Temporada 2026 "},
		"año":          {"2026"},
		"fecha_inicio": {"2026-03-01"},
		"fecha_fin":    {""},
		"finalizada":   {"on"},
	})
	assert.Empty(t, errs)
	assert.Equal(t, map[string]any{
		"nombre":       "Temporada 2026",
		"año":          2026,
		"fecha_inicio": "2026-03-01",
		"fecha_fin":    nil,
		"finalizada":   true,
	}, payload)

	_, errs = v.Payload(url.Values{"año": {"dos mil"}, "fecha_inicio": {"01/03/2026"}})
	assert.Equal(t, []string{msgRequired}, errs["nombre"])
	assert.Equal(t, []string{msgInteger}, errs["año"])
	assert.Equal(t, []string{msgDate}, errs["fecha_inicio"])
}

func TestPatchPayload(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	v, _ := c.View("temporadas")

	payload, errs := v.PatchPayload(url.Values{"finalizada": {"false"}, "año": {"2027"}})
	assert.Empty(t, errs)
	assert.Equal(t, map[string]any{"finalizada": false, "año": 2027}, payload)

	_, errs = v.PatchPayload(url.Values{"nombre": {""}, "color": {"rojo"}})
	assert.Equal(t, []string{msgRequired}, errs["nombre"])
	assert.Equal(t, []string{msgUnknown}, errs["color"])
}

func TestConvert(t *testing.T) {
	num := FieldDef{Key: "capacidad", Type: FieldNumber}
	v, err := num.Convert("12,5", true)
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	check := FieldDef{Key: "finalizada", Type: FieldCheckbox}
	v, err = check.Convert("", false)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	sel := FieldDef{Key: "tipo", Type: FieldSelect, Options: []table.Option{{Label: "A", Value: "a"}}}
	_, err = sel.Convert("b", true)
	assert.EqualError(t, err, msgOption)
}

func TestFilterValues(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	v, _ := c.View("bodegas")

	got := v.FilterValues(url.Values{"nombre": {" bod "}, "ubicacion": {""}, "page": {"3"}})
	assert.Equal(t, map[string]string{"nombre": "bod"}, got)
}
