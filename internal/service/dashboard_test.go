package service

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/agroadmin/internal/apiclient"
	"github.com/bigkaa/agroadmin/internal/domain/model"
)

type listerFunc[T any] func(ctx context.Context, q model.ListQuery) (model.Page[T], error)

func (f listerFunc[T]) List(ctx context.Context, q model.ListQuery) (model.Page[T], error) {
	return f(ctx, q)
}

type staticStatuses []DependencyStatus

func (s staticStatuses) Statuses() []DependencyStatus { return s }

func TestActiveCount(t *testing.T) {
	var got model.ListQuery
	count := ActiveCount[model.Warehouse](listerFunc[model.Warehouse](func(_ context.Context, q model.ListQuery) (model.Page[model.Warehouse], error) {
		got = q
		return model.Page[model.Warehouse]{Meta: model.PaginationMeta{Count: 42}}, nil
	}))

	n, err := count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, model.StatusActive, got.Status)
}

func TestDashboardSummary(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := staticStatuses{{Name: DependencyAPI, OK: true}}

	// Оба счётчика ждут друг друга: сводка завершится, только если они
	// выполняются параллельно.
	var started atomic.Int32
	barrier := func(ctx context.Context) error {
		started.Add(1)
		deadline := time.After(2 * time.Second)
		for started.Load() < 2 {
			select {
			case <-deadline:
				return context.DeadlineExceeded
			case <-time.After(time.Millisecond):
			}
		}
		return nil
	}

	svc := NewDashboardService(deps, logger).
		Register(model.EntityWarehouses, func(ctx context.Context) (int, error) {
			if err := barrier(ctx); err != nil {
				return 0, err
			}
			return 3, nil
		}).
		Register(model.EntitySeasons, func(ctx context.Context) (int, error) {
			if err := barrier(ctx); err != nil {
				return 0, err
			}
			return 0, &apiclient.TransportError{Err: context.DeadlineExceeded}
		})

	summary := svc.Summary(context.Background())

	require.Len(t, summary.Counts, 2)
	assert.Equal(t, EntityCount{Entity: model.EntityWarehouses, Count: 3}, summary.Counts[0])
	assert.Equal(t, model.EntitySeasons, summary.Counts[1].Entity)
	assert.NotEmpty(t, summary.Counts[1].Error)
	assert.Equal(t, []DependencyStatus(deps), summary.Dependencies)
}

func TestDashboardSummary_NoDeps(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	summary := NewDashboardService(nil, logger).Summary(context.Background())
	assert.Empty(t, summary.Counts)
	assert.Nil(t, summary.Dependencies)
}
