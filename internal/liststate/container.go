// Пакет liststate — состояние табличного списка одной сущности:
// страница записей, метаданные пагинации, фильтры и флаги загрузки.
// Состояние меняется только редьюсерами Container под мьютексом,
// по одному на каждый завершённый асинхронный шаг.
package liststate

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/bigkaa/agroadmin/internal/apiclient"
	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/notify"
)

// Backend — HTTP-коллаборатор сущности (реализуется apiclient.Resource).
type Backend[T any] interface {
	List(ctx context.Context, q model.ListQuery) (model.Page[T], error)
	Create(ctx context.Context, payload any) (apiclient.Success[T], error)
	Update(ctx context.Context, id int64, payload any) (apiclient.Success[T], error)
	Delete(ctx context.Context, id int64) (apiclient.Success[T], error)
	Archive(ctx context.Context, id int64) (apiclient.Success[T], error)
	Restore(ctx context.Context, id int64) (apiclient.Success[T], error)
}

// State — снимок состояния списка.
type State[T any] struct {
	// Items — записи текущей страницы в порядке сервера
	Items []T
	Meta  model.PaginationMeta
	// Page — страница, загруженная последней (меняется только вместе с Items)
	Page int
	// RequestedPage — страница, выбранная пользователем (SetPage)
	RequestedPage int
	Status        model.StatusFilter
	Filters       map[string]string
	Loading       bool
	Loaded        bool
	// Error — сообщение последней неудачной загрузки ("" — ошибки нет)
	Error string
}

// Query возвращает параметры, с которыми список должен быть загружен.
func (s State[T]) Query() model.ListQuery {
	return model.ListQuery{
		Page:    s.RequestedPage,
		Status:  s.Status,
		Filters: maps.Clone(s.Filters),
	}
}

func (s State[T]) clone() State[T] {
	s.Items = slices.Clone(s.Items)
	s.Filters = maps.Clone(s.Filters)
	return s
}

// Option — опция Container.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock задаёт источник времени для локального архивирования.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Container — владелец состояния списка одной сущности.
type Container[T model.Entity[T]] struct {
	entity   string
	backend  Backend[T]
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       State[T]
	generation  uint64
	subscribers map[int]func(State[T])
	nextSub     int
}

// NewContainer создаёт контейнер с пустым списком активных записей.
func NewContainer[T model.Entity[T]](entity string, backend Backend[T], notifier notify.Notifier, pageSize int, logger *slog.Logger, opts ...Option) *Container[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if notifier == nil {
		notifier = notify.Discard
	}
	if pageSize < 1 {
		pageSize = model.DefaultPageSize
	}

	return &Container[T]{
		entity:   entity,
		backend:  backend,
		notifier: notifier,
		logger: logger.With(
			slog.String("component", "liststate"),
			slog.String("entity", entity),
		),
		now: o.now,
		state: State[T]{
			Items: []T{},
			Meta: model.PaginationMeta{
				Page:       1,
				PageSize:   pageSize,
				TotalPages: 1,
			},
			Page:          1,
			RequestedPage: 1,
			Status:        model.StatusActive,
			Filters:       map[string]string{},
		},
		subscribers: make(map[int]func(State[T])),
	}
}

// Entity возвращает имя сущности (bodegas, temporadas).
func (c *Container[T]) Entity() string {
	return c.entity
}

// Snapshot возвращает копию текущего состояния.
func (c *Container[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe регистрирует обработчик изменений состояния.
// Возвращает функцию отписки.
func (c *Container[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// update применяет редьюсер под мьютексом и оповещает подписчиков.
func (c *Container[T]) update(reduce func(s *State[T])) {
	c.mu.Lock()
	reduce(&c.state)
	snap := c.state.clone()
	subs := make([]func(State[T]), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// --- Синхронные сеттеры ---

// SetPage выбирает страницу (минимум 1).
func (c *Container[T]) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.update(func(s *State[T]) {
		s.RequestedPage = page
	})
}

// SetStatus меняет фильтр статуса и сбрасывает страницу на 1.
func (c *Container[T]) SetStatus(status model.StatusFilter) {
	c.update(func(s *State[T]) {
		s.Status = status
		s.RequestedPage = 1
	})
}

// SetFilters заменяет фильтры и сбрасывает страницу на 1.
// Пустые значения отбрасываются.
func (c *Container[T]) SetFilters(filters map[string]string) {
	normalized := model.NormalizeFilters(filters)
	c.update(func(s *State[T]) {
		s.Filters = normalized
		s.RequestedPage = 1
	})
}

// --- Загрузка списка ---

// FetchList загружает страницу списка.
// Каждый вызов получает номер поколения; ответ, пришедший после начала более
// нового вызова, отбрасывается с ErrStale. Отмена ctx не считается ошибкой
// загрузки: состояние остаётся без Error, возвращается ctx.Err().
func (c *Container[T]) FetchList(ctx context.Context, page int, status model.StatusFilter, filters map[string]string) error {
	if page < 1 {
		page = 1
	}
	query := model.ListQuery{Page: page, Status: status, Filters: model.NormalizeFilters(filters)}

	var gen uint64
	c.update(func(s *State[T]) {
		c.generation++
		gen = c.generation
		s.Loading = true
	})

	result, err := c.backend.List(ctx, query)

	var outcome error
	c.update(func(s *State[T]) {
		if gen != c.generation {
			outcome = ErrStale
			return
		}
		s.Loading = false

		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				outcome = ctx.Err()
				return
			}
			s.Loaded = true
			s.Error = apiclient.UserMessage(err)
			outcome = err
			return
		}

		items := result.Items
		meta := result.Meta
		// Страница не может быть длиннее page_size
		if meta.PageSize < len(items) {
			meta.PageSize = len(items)
			meta.Recount()
		}
		s.Items = slices.Clone(items)
		s.Meta = meta
		s.Page = meta.Page
		s.Loaded = true
		s.Error = ""
	})

	switch {
	case errors.Is(outcome, ErrStale):
		staleResponsesTotal.WithLabelValues(c.entity).Inc()
		c.logger.Debug("Устаревший ответ списка отброшен",
			slog.Int("page", page),
			slog.String("status", status.String()),
		)
	case outcome != nil && errors.Is(outcome, ctx.Err()):
		fetchTotal.WithLabelValues(c.entity, resultAborted).Inc()
	case outcome != nil:
		fetchTotal.WithLabelValues(c.entity, resultError).Inc()
		c.logger.Warn("Ошибка загрузки списка",
			slog.Int("page", page),
			slog.String("status", status.String()),
			slog.String("error", outcome.Error()),
		)
	default:
		fetchTotal.WithLabelValues(c.entity, resultSuccess).Inc()
	}
	return outcome
}

// --- Мутации ---

// Create создаёт запись. При фильтре active новая запись вставляется
// в начало страницы, meta.count увеличивается на 1.
func (c *Container[T]) Create(ctx context.Context, payload any) (T, error) {
	return c.mutate(ctx, OpCreate, func(ctx context.Context) (apiclient.Success[T], error) {
		return c.backend.Create(ctx, payload)
	}, func(s *State[T], out apiclient.Success[T]) {
		if !out.HasData || s.Status != model.StatusActive {
			return
		}
		items := append([]T{out.Data}, s.Items...)
		if len(items) > s.Meta.PageSize {
			items = items[:s.Meta.PageSize]
		}
		s.Items = items
		s.Meta.Count++
		s.Meta.Recount()
	})
}

// Update обновляет запись на текущей странице по id.
// Если записи нет на странице, список не меняется.
func (c *Container[T]) Update(ctx context.Context, id int64, payload any) (T, error) {
	return c.mutate(ctx, OpUpdate, func(ctx context.Context) (apiclient.Success[T], error) {
		return c.backend.Update(ctx, id, payload)
	}, func(s *State[T], out apiclient.Success[T]) {
		if !out.HasData {
			return
		}
		if i := indexOf(s.Items, id); i >= 0 {
			s.Items[i] = out.Data
		}
	})
}

// Delete удаляет запись со страницы, meta.count уменьшается (не ниже 0).
func (c *Container[T]) Delete(ctx context.Context, id int64) error {
	_, err := c.mutate(ctx, OpDelete, func(ctx context.Context) (apiclient.Success[T], error) {
		return c.backend.Delete(ctx, id)
	}, func(s *State[T], _ apiclient.Success[T]) {
		if i := indexOf(s.Items, id); i >= 0 {
			s.Items = slices.Delete(s.Items, i, i+1)
		}
		s.Meta.Count = max(0, s.Meta.Count-1)
		s.Meta.Recount()
	})
	return err
}

// Archive переводит запись в архив.
func (c *Container[T]) Archive(ctx context.Context, id int64) (T, error) {
	return c.mutate(ctx, OpArchive, func(ctx context.Context) (apiclient.Success[T], error) {
		return c.backend.Archive(ctx, id)
	}, func(s *State[T], out apiclient.Success[T]) {
		c.settleSoftDelete(s, id, out, func(r T) T { return r.Archived(c.now()) })
	})
}

// Restore возвращает запись из архива.
func (c *Container[T]) Restore(ctx context.Context, id int64) (T, error) {
	return c.mutate(ctx, OpRestore, func(ctx context.Context) (apiclient.Success[T], error) {
		return c.backend.Restore(ctx, id)
	}, func(s *State[T], out apiclient.Success[T]) {
		c.settleSoftDelete(s, id, out, func(r T) T { return r.Restored() })
	})
}

// settleSoftDelete обновляет запись после archive/restore: если она больше не
// подходит под фильтр статуса, удаляется со страницы с уменьшением meta.count,
// иначе заменяется на месте. Без записи в ответе маркеры меняются локально.
func (c *Container[T]) settleSoftDelete(s *State[T], id int64, out apiclient.Success[T], local func(T) T) {
	i := indexOf(s.Items, id)
	if i < 0 {
		return
	}
	record := out.Data
	if !out.HasData {
		record = local(s.Items[i])
	}
	if model.MatchesStatus(record, s.Status) {
		s.Items[i] = record
		return
	}
	s.Items = slices.Delete(s.Items, i, i+1)
	s.Meta.Count = max(0, s.Meta.Count-1)
	s.Meta.Recount()
}

// mutate выполняет мутацию. Запрос не отменяется вместе с ctx: после отправки
// он доводится до конца. Уведомление backend'а пересылается всегда; если его
// нет, формируется стандартное.
func (c *Container[T]) mutate(
	ctx context.Context,
	op string,
	call func(ctx context.Context) (apiclient.Success[T], error),
	reduce func(s *State[T], out apiclient.Success[T]),
) (T, error) {
	var zero T

	out, err := call(context.WithoutCancel(ctx))
	if err != nil {
		mErr := c.mutationError(op, err)
		mErr.Notification = c.failureNotification(op, err, mErr.Message)
		c.notifier.Notify(ctx, mErr.Notification)
		mutationTotal.WithLabelValues(c.entity, op, resultError).Inc()
		c.logger.Warn("Ошибка операции над записью",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return zero, mErr
	}

	c.update(func(s *State[T]) { reduce(s, out) })

	note := out.Notification
	if note == nil {
		note = &notify.Notification{
			Message:  successMessages[op],
			Severity: notify.SeveritySuccess,
			Key:      c.entity + "." + op,
		}
	}
	c.notifier.Notify(ctx, *note)
	mutationTotal.WithLabelValues(c.entity, op, resultSuccess).Inc()
	c.logger.Info("Операция над записью выполнена", slog.String("op", op))

	if out.HasData {
		return out.Data, nil
	}
	return zero, nil
}

// successMessages — уведомления по умолчанию, если backend их не прислал.
var successMessages = map[string]string{
	OpCreate:  "Registro creado",
	OpUpdate:  "Registro actualizado",
	OpDelete:  "Registro eliminado",
	OpArchive: "Registro archivado",
	OpRestore: "Registro restaurado",
}

func (c *Container[T]) mutationError(op string, err error) *MutationError {
	mErr := &MutationError{
		Op:      op,
		Entity:  c.entity,
		Message: apiclient.UserMessage(err),
		Err:     err,
	}
	var vf *apiclient.ValidationFailure
	if errors.As(err, &vf) {
		mErr.FieldErrors = vf.FieldErrors
		mErr.FormErrors = vf.FormErrors
	}
	return mErr
}

func (c *Container[T]) failureNotification(op string, err error, message string) notify.Notification {
	if note := apiclient.NotificationOf(err); note != nil {
		return *note
	}
	return notify.Notification{
		Message:  message,
		Severity: notify.SeverityError,
		Key:      c.entity + "." + op,
	}
}

func indexOf[T model.Record](items []T, id int64) int {
	return slices.IndexFunc(items, func(r T) bool { return r.RecordID() == id })
}
