package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		count, pageSize, want int
	}{
		{0, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{1, 1, 1},
		{7, 1, 7},
		{5, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.count, tt.pageSize), "count=%d pageSize=%d", tt.count, tt.pageSize)
	}
}

func TestWarehouse_ArchiveRestoreKeepsMarkersConsistent(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w := Warehouse{ID: 7, Nombre: "Bodega Norte", IsActive: true}

	archived := w.Archived(now)
	require.NotNil(t, archived.ArchivedAt)
	assert.Equal(t, now, *archived.ArchivedAt)
	assert.False(t, archived.IsActive)
	assert.True(t, archived.IsArchived())

	// исходное значение не меняется
	assert.True(t, w.IsActive)
	assert.Nil(t, w.ArchivedAt)

	restored := archived.Restored()
	assert.Nil(t, restored.ArchivedAt)
	assert.True(t, restored.IsActive)
	assert.False(t, restored.IsArchived())
}

func TestMatchesStatus(t *testing.T) {
	now := time.Now()
	active := Season{ID: 1, IsActive: true}
	archived := active.Archived(now)

	assert.True(t, MatchesStatus(active, StatusActive))
	assert.False(t, MatchesStatus(active, StatusArchived))
	assert.True(t, MatchesStatus(active, StatusAll))

	assert.False(t, MatchesStatus(archived, StatusActive))
	assert.True(t, MatchesStatus(archived, StatusArchived))
	assert.True(t, MatchesStatus(archived, StatusAll))
}

func TestParseStatus(t *testing.T) {
	tests := map[string]StatusFilter{
		"active":     StatusActive,
		" ARCHIVED ": StatusArchived,
		"all":        StatusAll,
		"todas":      StatusAll,
		"archivadas": StatusArchived,
	}
	for in, want := range tests {
		got, ok := ParseStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseStatus("deleted")
	assert.False(t, ok)
}

func TestNormalizeFilters(t *testing.T) {
	got := NormalizeFilters(map[string]string{
		"nombre":    "  bod ",
		"ubicacion": "",
		"  ":        "x",
		"año":       "2025",
	})
	assert.Equal(t, map[string]string{"nombre": "bod", "año": "2025"}, got)

	assert.True(t, FiltersEqual(nil, map[string]string{"nombre": ""}))
	assert.False(t, FiltersEqual(map[string]string{"nombre": "a"}, nil))
}

func TestListQuery_EqualAndClone(t *testing.T) {
	q := ListQuery{Page: 2, Status: StatusActive, Filters: map[string]string{"nombre": "a"}}
	c := q.Clone()
	assert.True(t, q.Equal(c))

	c.Filters["nombre"] = "b"
	assert.Equal(t, "a", q.Filters["nombre"])
	assert.False(t, q.Equal(c))
}

func TestField(t *testing.T) {
	s := Season{ID: 3, Nombre: "2025-A", Anio: 2025, Finalizada: true}
	assert.Equal(t, 2025, s.Field("año"))
	assert.Equal(t, true, s.Field("finalizada"))
	assert.Nil(t, s.Field("unknown"))

	w := Warehouse{ID: 1, Nombre: "Bodega Norte", Ubicacion: "Curicó"}
	assert.Equal(t, "Curicó", w.Field("ubicacion"))
	assert.Equal(t, int64(1), w.Field("id"))
}
