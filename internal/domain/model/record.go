// Пакет model — доменные сущности Admin UI: бодеги, сезоны,
// фильтр статуса и параметры пагинации списков.
package model

import "time"

// Record — запись, которую можно показать в табличном списке.
// ID присваивается сервером и не меняется.
type Record interface {
	// RecordID возвращает серверный идентификатор записи.
	RecordID() int64
	// IsArchived возвращает true, если запись в архиве (soft-delete).
	IsArchived() bool
}

// Entity — запись с soft-delete маркером.
// Archived/Restored возвращают копию с согласованными ArchivedAt и IsActive.
type Entity[T any] interface {
	Record
	Archived(at time.Time) T
	Restored() T
}

// FieldSource — запись, поля которой доступны по ключу (ключ = JSON-имя поля).
// Используется табличным рендерером и локальной фильтрацией.
type FieldSource interface {
	Field(key string) any
}

// MatchesStatus проверяет, видна ли запись при заданном фильтре статуса.
func MatchesStatus(r Record, status StatusFilter) bool {
	switch status {
	case StatusActive:
		return !r.IsArchived()
	case StatusArchived:
		return r.IsArchived()
	default:
		return true
	}
}

// Имена сущностей: путь коллекции на сервере, ключ представления UI
// и сегмент URL страниц администратора.
const (
	EntityWarehouses = "bodegas"
	EntitySeasons    = "temporadas"
)

// Entities — все сущности в порядке вкладок навигации.
var Entities = []string{EntityWarehouses, EntitySeasons}
