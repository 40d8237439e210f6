package model

import "strings"

// StatusFilter — фильтр списка по soft-delete статусу.
// Значения передаются на сервер как query-параметр "estado".
type StatusFilter string

const (
	// StatusActive — только активные записи.
	StatusActive StatusFilter = "active"
	// StatusArchived — только архивные записи.
	StatusArchived StatusFilter = "archived"
	// StatusAll — все записи.
	StatusAll StatusFilter = "all"
)

// Statuses — все значения фильтра в порядке вкладок UI.
var Statuses = []StatusFilter{StatusActive, StatusArchived, StatusAll}

// ParseStatus разбирает строку фильтра статуса.
// Принимает также испанские синонимы (activas, archivadas, todas).
func ParseStatus(s string) (StatusFilter, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "activas", "activos":
		return StatusActive, true
	case "archived", "archivadas", "archivados":
		return StatusArchived, true
	case "all", "todas", "todos":
		return StatusAll, true
	default:
		return "", false
	}
}

// String реализует fmt.Stringer.
func (s StatusFilter) String() string {
	return string(s)
}
