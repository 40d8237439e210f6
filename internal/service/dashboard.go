// Пакет service — бизнес-логика Agro Admin поверх REST API:
// сводка для панели и мониторинг зависимостей.
package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/agroadmin/internal/apiclient"
	"github.com/bigkaa/agroadmin/internal/domain/model"
)

// Lister — источник страниц списка (реализуется apiclient.Resource).
type Lister[T any] interface {
	List(ctx context.Context, q model.ListQuery) (model.Page[T], error)
}

// CountFunc возвращает число активных записей сущности.
type CountFunc func(ctx context.Context) (int, error)

// ActiveCount строит CountFunc по первой странице активных записей:
// число берётся из meta.count ответа.
func ActiveCount[T any](l Lister[T]) CountFunc {
	return func(ctx context.Context) (int, error) {
		page, err := l.List(ctx, model.ListQuery{Page: 1, Status: model.StatusActive})
		if err != nil {
			return 0, err
		}
		return page.Meta.Count, nil
	}
}

// StatusSource — источник состояний зависимостей (DephealthService).
type StatusSource interface {
	Statuses() []DependencyStatus
}

// NoStatuses — StatusSource без зависимостей (topologymetrics не запущен).
type NoStatuses struct{}

// Statuses возвращает пустой список.
func (NoStatuses) Statuses() []DependencyStatus { return nil }

// EntityCount — число записей одной сущности или ошибка его получения.
type EntityCount struct {
	Entity string
	Count  int
	// Error — сообщение для пользователя ("" — число получено)
	Error string
}

// Summary — сводка для панели.
type Summary struct {
	// Counts — в порядке регистрации сущностей
	Counts       []EntityCount
	Dependencies []DependencyStatus
}

// DashboardService собирает сводку для панели.
type DashboardService struct {
	entities []string
	counters map[string]CountFunc
	deps     StatusSource
	logger   *slog.Logger
}

// NewDashboardService создаёт сервис. deps может быть nil.
func NewDashboardService(deps StatusSource, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		counters: make(map[string]CountFunc),
		deps:     deps,
		logger:   logger.With(slog.String("component", "dashboard")),
	}
}

// Register добавляет счётчик сущности.
func (s *DashboardService) Register(entity string, count CountFunc) *DashboardService {
	if _, ok := s.counters[entity]; !ok {
		s.entities = append(s.entities, entity)
	}
	s.counters[entity] = count
	return s
}

// Summary запрашивает числа записей всех сущностей параллельно.
// Ошибка одного счётчика не отменяет остальные.
func (s *DashboardService) Summary(ctx context.Context) Summary {
	counts := make([]EntityCount, len(s.entities))

	var g errgroup.Group
	for i, entity := range s.entities {
		count := s.counters[entity]
		g.Go(func() error {
			n, err := count(ctx)
			counts[i] = EntityCount{Entity: entity, Count: n}
			if err != nil {
				counts[i].Error = apiclient.UserMessage(err)
				s.logger.Warn("Ошибка получения числа записей",
					slog.String("entity", entity),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Counts: counts}
	if s.deps != nil {
		summary.Dependencies = s.deps.Statuses()
	}
	return summary
}
