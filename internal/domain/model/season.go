package model

import "time"

// Season — сезон (temporada) работы бодег. Ответ сервера на /api/temporadas/.
type Season struct {
	ID          int64      `json:"id"`
	Nombre      string     `json:"nombre"`
	Anio        int        `json:"año"`
	FechaInicio *string    `json:"fecha_inicio,omitempty"`
	FechaFin    *string    `json:"fecha_fin,omitempty"`
	Finalizada  bool       `json:"finalizada"`
	ArchivedAt  *time.Time `json:"archived_at"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// RecordID реализует Record.
func (s Season) RecordID() int64 { return s.ID }

// IsArchived реализует Record.
func (s Season) IsArchived() bool { return s.ArchivedAt != nil }

// Archived реализует Entity.
func (s Season) Archived(at time.Time) Season {
	s.ArchivedAt = &at
	s.IsActive = false
	return s
}

// Restored реализует Entity.
func (s Season) Restored() Season {
	s.ArchivedAt = nil
	s.IsActive = true
	return s
}

// Field реализует FieldSource.
func (s Season) Field(key string) any {
	switch key {
	case "id":
		return s.ID
	case "nombre":
		return s.Nombre
	case "año", "anio":
		return s.Anio
	case "fecha_inicio":
		return s.FechaInicio
	case "fecha_fin":
		return s.FechaFin
	case "finalizada":
		return s.Finalizada
	case "archived_at":
		return s.ArchivedAt
	case "is_active":
		return s.IsActive
	case "created_at":
		return s.CreatedAt
	case "updated_at":
		return s.UpdatedAt
	default:
		return nil
	}
}
