package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/agroadmin/internal/domain/model"
)

// ViewPreference — модель записи из таблицы view_preferences:
// выбранная вкладка статуса и фильтры пользователя в одном представлении.
type ViewPreference struct {
	// Username — имя пользователя UI
	Username string
	// View — представление (bodegas, temporadas)
	View string
	// Status — последняя выбранная вкладка
	Status model.StatusFilter
	// Filters — последние применённые фильтры (уже нормализованные)
	Filters map[string]string
	// UpdatedAt — время последнего сохранения
	UpdatedAt time.Time
}

// validate нормализует запись перед сохранением.
func (p *ViewPreference) validate() error {
	if strings.TrimSpace(p.Username) == "" || strings.TrimSpace(p.View) == "" {
		return fmt.Errorf("%w: username и view обязательны", ErrInvalid)
	}
	if p.Status == "" {
		p.Status = model.StatusActive
	}
	if _, ok := model.ParseStatus(string(p.Status)); !ok {
		return fmt.Errorf("%w: неизвестный статус %q", ErrInvalid, p.Status)
	}
	p.Filters = model.NormalizeFilters(p.Filters)
	return nil
}

// PreferencesRepository — интерфейс для таблицы view_preferences.
type PreferencesRepository interface {
	// Get возвращает настройки представления. Если не найдены — ErrNotFound.
	Get(ctx context.Context, username, view string) (*ViewPreference, error)
	// Save создаёт или обновляет настройки (upsert). Заполняет UpdatedAt.
	Save(ctx context.Context, p *ViewPreference) error
	// ListByUser возвращает все настройки пользователя, отсортированные по view.
	ListByUser(ctx context.Context, username string) ([]ViewPreference, error)
	// Delete удаляет настройки представления.
	Delete(ctx context.Context, username, view string) error
}

// preferencesRepo — реализация PreferencesRepository поверх PostgreSQL.
type preferencesRepo struct {
	db DBTX
}

// NewPreferencesRepository создаёт репозиторий настроек представлений.
func NewPreferencesRepository(db DBTX) PreferencesRepository {
	return &preferencesRepo{db: db}
}

// Get возвращает настройки представления.
func (r *preferencesRepo) Get(ctx context.Context, username, view string) (*ViewPreference, error) {
	query := `
		SELECT username, view, status, filters, updated_at
		FROM view_preferences
		WHERE username = $1 AND view = $2`

	p := &ViewPreference{}
	var status string
	err := r.db.QueryRow(ctx, query, username, view).Scan(
		&p.Username, &p.View, &status, &p.Filters, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения view_preferences[%s/%s]: %w", username, view, err)
	}
	p.Status = model.StatusFilter(status)
	if p.Filters == nil {
		p.Filters = map[string]string{}
	}
	return p, nil
}

// Save создаёт или обновляет настройки (INSERT ... ON CONFLICT DO UPDATE).
func (r *preferencesRepo) Save(ctx context.Context, p *ViewPreference) error {
	if err := p.validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO view_preferences (username, view, status, filters)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username, view) DO UPDATE
		SET status = EXCLUDED.status,
			filters = EXCLUDED.filters,
			updated_at = NOW()
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, p.Username, p.View, string(p.Status), p.Filters).Scan(&p.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return fmt.Errorf("ошибка сохранения view_preferences[%s/%s]: %w", p.Username, p.View, err)
	}
	return nil
}

// ListByUser возвращает все настройки пользователя.
func (r *preferencesRepo) ListByUser(ctx context.Context, username string) ([]ViewPreference, error) {
	query := `
		SELECT username, view, status, filters, updated_at
		FROM view_preferences
		WHERE username = $1
		ORDER BY view`

	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения view_preferences пользователя %q: %w", username, err)
	}
	defer rows.Close()

	var prefs []ViewPreference
	for rows.Next() {
		var (
			p      ViewPreference
			status string
		)
		if err := rows.Scan(&p.Username, &p.View, &status, &p.Filters, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования view_preferences: %w", err)
		}
		p.Status = model.StatusFilter(status)
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// Delete удаляет настройки представления.
func (r *preferencesRepo) Delete(ctx context.Context, username, view string) error {
	query := `DELETE FROM view_preferences WHERE username = $1 AND view = $2`
	tag, err := r.db.Exec(ctx, query, username, view)
	if err != nil {
		return fmt.Errorf("ошибка удаления view_preferences[%s/%s]: %w", username, view, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// memoryPreferences — in-memory реализация для запуска без PostgreSQL.
// Настройки живут до перезапуска процесса.
type memoryPreferences struct {
	mu    sync.RWMutex
	now   func() time.Time
	prefs map[prefKey]ViewPreference
}

type prefKey struct {
	username string
	view     string
}

// NewMemoryPreferences создаёт in-memory репозиторий настроек представлений.
func NewMemoryPreferences() PreferencesRepository {
	return &memoryPreferences{
		now:   time.Now,
		prefs: make(map[prefKey]ViewPreference),
	}
}

// Get возвращает копию сохранённых настроек.
func (m *memoryPreferences) Get(_ context.Context, username, view string) (*ViewPreference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prefs[prefKey{username, view}]
	if !ok {
		return nil, ErrNotFound
	}
	p.Filters = maps.Clone(p.Filters)
	return &p, nil
}

// Save сохраняет копию настроек.
func (m *memoryPreferences) Save(_ context.Context, p *ViewPreference) error {
	if err := p.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p.UpdatedAt = m.now().UTC()
	stored := *p
	stored.Filters = maps.Clone(p.Filters)
	m.prefs[prefKey{p.Username, p.View}] = stored
	return nil
}

// ListByUser возвращает настройки пользователя, отсортированные по view.
func (m *memoryPreferences) ListByUser(_ context.Context, username string) ([]ViewPreference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var prefs []ViewPreference
	for k, p := range m.prefs {
		if k.username != username {
			continue
		}
		p.Filters = maps.Clone(p.Filters)
		prefs = append(prefs, p)
	}
	slices.SortFunc(prefs, func(a, b ViewPreference) int {
		return strings.Compare(a.View, b.View)
	})
	return prefs, nil
}

// Delete удаляет настройки.
func (m *memoryPreferences) Delete(_ context.Context, username, view string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := prefKey{username, view}
	if _, ok := m.prefs[k]; !ok {
		return ErrNotFound
	}
	delete(m.prefs, k)
	return nil
}
