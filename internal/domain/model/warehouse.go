package model

import "time"

// Warehouse — бодега (склад). Ответ сервера на /api/bodegas/.
type Warehouse struct {
	// ID — идентификатор, присвоенный сервером
	ID int64 `json:"id"`
	// Nombre — название бодеги
	Nombre string `json:"nombre"`
	// Ubicacion — адрес или район
	Ubicacion string `json:"ubicacion"`
	// Capacidad — вместимость (может отсутствовать)
	Capacidad *float64 `json:"capacidad,omitempty"`
	// ArchivedAt — время архивирования (nil для активных)
	ArchivedAt *time.Time `json:"archived_at"`
	// IsActive — согласован с ArchivedAt
	IsActive bool `json:"is_active"`
	// CreatedAt — время создания
	CreatedAt *time.Time `json:"created_at,omitempty"`
	// UpdatedAt — время последнего изменения
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// RecordID реализует Record.
func (w Warehouse) RecordID() int64 { return w.ID }

// IsArchived реализует Record.
func (w Warehouse) IsArchived() bool { return w.ArchivedAt != nil }

// Archived реализует Entity.
func (w Warehouse) Archived(at time.Time) Warehouse {
	w.ArchivedAt = &at
	w.IsActive = false
	return w
}

// Restored реализует Entity.
func (w Warehouse) Restored() Warehouse {
	w.ArchivedAt = nil
	w.IsActive = true
	return w
}

// Field реализует FieldSource.
func (w Warehouse) Field(key string) any {
	switch key {
	case "id":
		return w.ID
	case "nombre":
		return w.Nombre
	case "ubicacion":
		return w.Ubicacion
	case "capacidad":
		return w.Capacidad
	case "archived_at":
		return w.ArchivedAt
	case "is_active":
		return w.IsActive
	case "created_at":
		return w.CreatedAt
	case "updated_at":
		return w.UpdatedAt
	default:
		return nil
	}
}
