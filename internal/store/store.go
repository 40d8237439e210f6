// Пакет store — состояние UI одной сессии: по одному списку на сущность
// и очередь уведомлений. Store создаётся явно и передаётся обработчикам,
// глобального состояния нет.
package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bigkaa/agroadmin/internal/apiclient"
	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/liststate"
	"github.com/bigkaa/agroadmin/internal/notify"
	"github.com/bigkaa/agroadmin/internal/repository"
)

// Backends — HTTP-коллабораторы сущностей, общие для всех сессий.
type Backends struct {
	Warehouses liststate.Backend[model.Warehouse]
	Seasons    liststate.Backend[model.Season]
}

// NewBackends создаёт ресурсы REST API для всех сущностей.
func NewBackends(c *apiclient.Client) Backends {
	return Backends{
		Warehouses: apiclient.NewResource[model.Warehouse](c, model.EntityWarehouses),
		Seasons:    apiclient.NewResource[model.Season](c, model.EntitySeasons),
	}
}

// Options — параметры создания Store.
type Options struct {
	// PageSize — размер страницы по умолчанию
	PageSize int
	// Preferences — хранилище настроек представлений (nil — не сохранять)
	Preferences repository.PreferencesRepository
	// Notifier — дополнительный получатель уведомлений (например, лог)
	Notifier notify.Notifier
	// ContainerOptions — опции контейнеров списков
	ContainerOptions []liststate.Option
}

// Store — состояние UI одной сессии.
type Store struct {
	// ID — идентификатор сессии
	ID string
	// Username — пользователь сессии
	Username string
	// Inbox — уведомления, ещё не показанные пользователю
	Inbox *notify.Inbox

	Warehouses *liststate.Synchronizer[model.Warehouse]
	Seasons    *liststate.Synchronizer[model.Season]

	prefs  repository.PreferencesRepository
	logger *slog.Logger
}

// New создаёт Store с пустыми списками активных записей.
func New(id, username string, b Backends, opts Options, logger *slog.Logger) *Store {
	logger = logger.With(
		slog.String("component", "store"),
		slog.String("session", id),
	)

	inbox := notify.NewInbox()
	var notifier notify.Notifier = inbox
	if opts.Notifier != nil {
		notifier = notify.Multi(inbox, opts.Notifier)
	}

	warehouses := liststate.NewContainer(model.EntityWarehouses, b.Warehouses, notifier, opts.PageSize, logger, opts.ContainerOptions...)
	seasons := liststate.NewContainer(model.EntitySeasons, b.Seasons, notifier, opts.PageSize, logger, opts.ContainerOptions...)

	return &Store{
		ID:         id,
		Username:   username,
		Inbox:      inbox,
		Warehouses: liststate.NewSynchronizer(warehouses, logger),
		Seasons:    liststate.NewSynchronizer(seasons, logger),
		prefs:      opts.Preferences,
		logger:     logger,
	}
}

// viewState — то, что сохраняется между сессиями для одного представления.
type viewState interface {
	status() model.StatusFilter
	filters() map[string]string
	navigate(status model.StatusFilter, filters map[string]string)
}

type syncView[T model.Entity[T]] struct {
	s *liststate.Synchronizer[T]
}

func (v syncView[T]) status() model.StatusFilter { return v.s.State().Status }
func (v syncView[T]) filters() map[string]string { return v.s.State().Filters }
func (v syncView[T]) navigate(st model.StatusFilter, f map[string]string) {
	v.s.Navigate(st, f, 0)
}

func (s *Store) view(name string) (viewState, bool) {
	switch name {
	case model.EntityWarehouses:
		return syncView[model.Warehouse]{s.Warehouses}, true
	case model.EntitySeasons:
		return syncView[model.Season]{s.Seasons}, true
	default:
		return nil, false
	}
}

// ApplyPreferences восстанавливает сохранённые вкладку и фильтры
// для всех представлений пользователя. Загрузка списков не выполняется.
func (s *Store) ApplyPreferences(ctx context.Context) error {
	if s.prefs == nil {
		return nil
	}

	prefs, err := s.prefs.ListByUser(ctx, s.Username)
	if err != nil {
		return err
	}
	for _, p := range prefs {
		v, ok := s.view(p.View)
		if !ok {
			continue
		}
		v.navigate(p.Status, p.Filters)
	}

	s.logger.Debug("Настройки представлений применены",
		slog.String("username", s.Username),
		slog.Int("views", len(prefs)),
	)
	return nil
}

// SavePreferences сохраняет текущие вкладку и фильтры представления.
func (s *Store) SavePreferences(ctx context.Context, view string) error {
	if s.prefs == nil {
		return nil
	}
	v, ok := s.view(view)
	if !ok {
		return errors.New("неизвестное представление: " + view)
	}

	err := s.prefs.Save(ctx, &repository.ViewPreference{
		Username: s.Username,
		View:     view,
		Status:   v.status(),
		Filters:  v.filters(),
	})
	if err != nil {
		s.logger.Warn("Не удалось сохранить настройки представления",
			slog.String("view", view),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// Close отменяет выполняющиеся загрузки списков.
func (s *Store) Close() {
	s.Warehouses.Stop()
	s.Seasons.Stop()
}
