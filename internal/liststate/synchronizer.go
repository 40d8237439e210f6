package liststate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bigkaa/agroadmin/internal/domain/model"
)

// Synchronizer держит загруженный список в соответствии с {page, status, filters}
// контейнера. Одновременно выполняется не более одной загрузки: новая загрузка
// отменяет предыдущую через её контекст.
type Synchronizer[T model.Entity[T]] struct {
	c      *Container[T]
	logger *slog.Logger

	mu     sync.Mutex
	last   *model.ListQuery
	cancel context.CancelFunc
	seq    uint64
}

// NewSynchronizer создаёт Synchronizer поверх контейнера.
func NewSynchronizer[T model.Entity[T]](c *Container[T], logger *slog.Logger) *Synchronizer[T] {
	return &Synchronizer[T]{
		c: c,
		logger: logger.With(
			slog.String("component", "sync"),
			slog.String("entity", c.Entity()),
		),
	}
}

// Container возвращает контейнер.
func (s *Synchronizer[T]) Container() *Container[T] {
	return s.c
}

// State возвращает снимок состояния контейнера.
func (s *Synchronizer[T]) State() State[T] {
	return s.c.Snapshot()
}

// Sync загружает список, если параметры изменились с последней загрузки
// (или загрузки ещё не было).
func (s *Synchronizer[T]) Sync(ctx context.Context) error {
	q := s.c.Snapshot().Query()

	s.mu.Lock()
	if s.last != nil && s.last.Equal(q) {
		s.mu.Unlock()
		return nil
	}
	return s.fetchLocked(ctx, q)
}

// Refresh безусловно перезагружает список с текущими параметрами.
func (s *Synchronizer[T]) Refresh(ctx context.Context) error {
	q := s.c.Snapshot().Query()

	s.mu.Lock()
	return s.fetchLocked(ctx, q)
}

// Stop отменяет выполняющуюся загрузку.
func (s *Synchronizer[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.last = nil
}

// fetchLocked вызывается с захваченным s.mu и освобождает его.
func (s *Synchronizer[T]) fetchLocked(ctx context.Context, q model.ListQuery) error {
	if s.cancel != nil {
		s.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.seq++
	seq := s.seq
	issued := q.Clone()
	s.last = &issued
	s.mu.Unlock()

	err := s.c.FetchList(fetchCtx, q.Page, q.Status, q.Filters)

	s.mu.Lock()
	superseded := seq != s.seq
	if !superseded {
		s.cancel = nil
		// Прерванная загрузка будет повторена следующим Sync
		if err != nil && fetchCtx.Err() != nil {
			s.last = nil
		}
	}
	s.mu.Unlock()
	cancel()

	if errors.Is(err, ErrStale) || (superseded && errors.Is(err, context.Canceled)) {
		s.logger.Debug("Загрузка списка заменена более новой", slog.Int("page", q.Page))
		return nil
	}
	return err
}

// --- Сеттеры ---

// SetPage выбирает страницу.
func (s *Synchronizer[T]) SetPage(page int) { s.c.SetPage(page) }

// SetStatus меняет фильтр статуса (страница сбрасывается на 1).
func (s *Synchronizer[T]) SetStatus(status model.StatusFilter) { s.c.SetStatus(status) }

// SetFilters заменяет фильтры (страница сбрасывается на 1).
func (s *Synchronizer[T]) SetFilters(filters map[string]string) { s.c.SetFilters(filters) }

// ShowActive переключает список на активные записи.
func (s *Synchronizer[T]) ShowActive() { s.c.SetStatus(model.StatusActive) }

// ShowArchived переключает список на архивные записи.
func (s *Synchronizer[T]) ShowArchived() { s.c.SetStatus(model.StatusArchived) }

// ShowAll переключает список на все записи.
func (s *Synchronizer[T]) ShowAll() { s.c.SetStatus(model.StatusAll) }

// ClearFilters сбрасывает фильтры.
func (s *Synchronizer[T]) ClearFilters() { s.c.SetFilters(nil) }

// NextPage переходит на следующую страницу, если она есть.
func (s *Synchronizer[T]) NextPage() {
	st := s.c.Snapshot()
	if st.RequestedPage < st.Meta.TotalPages {
		s.c.SetPage(st.RequestedPage + 1)
	}
}

// PrevPage переходит на предыдущую страницу, если она есть.
func (s *Synchronizer[T]) PrevPage() {
	st := s.c.Snapshot()
	if st.RequestedPage > 1 {
		s.c.SetPage(st.RequestedPage - 1)
	}
}

// Navigate применяет параметры из адресной строки. Изменение статуса или
// фильтров сбрасывает страницу на 1 и page игнорируется; иначе применяется
// page (0 — без изменений). Пустой status и nil filters означают "не менять".
func (s *Synchronizer[T]) Navigate(status model.StatusFilter, filters map[string]string, page int) {
	st := s.c.Snapshot()
	reset := false
	if status != "" && status != st.Status {
		s.c.SetStatus(status)
		reset = true
	}
	if filters != nil && !model.FiltersEqual(filters, st.Filters) {
		s.c.SetFilters(filters)
		reset = true
	}
	if !reset && page > 0 && page != st.RequestedPage {
		s.c.SetPage(page)
	}
}

// --- CRUD с повторной загрузкой ---

// Create создаёт запись и перезагружает список.
func (s *Synchronizer[T]) Create(ctx context.Context, payload any) (T, error) {
	v, err := s.c.Create(ctx, payload)
	if err != nil {
		return v, err
	}
	s.reconcile(ctx)
	return v, nil
}

// Update обновляет запись и перезагружает список.
func (s *Synchronizer[T]) Update(ctx context.Context, id int64, payload any) (T, error) {
	v, err := s.c.Update(ctx, id, payload)
	if err != nil {
		return v, err
	}
	s.reconcile(ctx)
	return v, nil
}

// Delete удаляет запись и перезагружает список.
func (s *Synchronizer[T]) Delete(ctx context.Context, id int64) error {
	if err := s.c.Delete(ctx, id); err != nil {
		return err
	}
	s.reconcile(ctx)
	return nil
}

// Archive архивирует запись и перезагружает список.
func (s *Synchronizer[T]) Archive(ctx context.Context, id int64) (T, error) {
	v, err := s.c.Archive(ctx, id)
	if err != nil {
		return v, err
	}
	s.reconcile(ctx)
	return v, nil
}

// Restore восстанавливает запись и перезагружает список.
func (s *Synchronizer[T]) Restore(ctx context.Context, id int64) (T, error) {
	v, err := s.c.Restore(ctx, id)
	if err != nil {
		return v, err
	}
	s.reconcile(ctx)
	return v, nil
}

// reconcile перезагружает список после успешной мутации. Ошибка загрузки
// уже записана в State.Error и мутацию не отменяет.
func (s *Synchronizer[T]) reconcile(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Debug("Повторная загрузка после мутации не удалась", slog.String("error", err.Error()))
	}
}
