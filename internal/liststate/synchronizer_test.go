package liststate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/agroadmin/internal/apiclient"
	"github.com/bigkaa/agroadmin/internal/domain/model"
)

func newTestSynchronizer(t *testing.T, backend *fakeBackend) *Synchronizer[model.Warehouse] {
	t.Helper()
	c, _ := newTestContainer(t, backend)
	return NewSynchronizer(c, testLogger())
}

func TestSync_FetchesOnlyOnChange(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSynchronizer(t, backend)
	ctx := context.Background()

	require.NoError(t, s.Sync(ctx))
	require.NoError(t, s.Sync(ctx))
	assert.Len(t, backend.calls(), 1, "параметры не менялись — повторной загрузки нет")

	s.SetPage(2)
	require.NoError(t, s.Sync(ctx))
	s.ShowArchived()
	require.NoError(t, s.Sync(ctx))
	s.SetFilters(map[string]string{"nombre": "bod"})
	require.NoError(t, s.Sync(ctx))

	calls := backend.calls()
	require.Len(t, calls, 4)
	assert.Equal(t, 2, calls[1].Page)
	assert.Equal(t, model.ListQuery{Page: 1, Status: model.StatusArchived, Filters: map[string]string{}}, calls[2])
	assert.Equal(t, 1, calls[3].Page)
	assert.Equal(t, "bod", calls[3].Filters["nombre"])
}

func TestSync_StatusTransitionsResetPage(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSynchronizer(t, backend)
	ctx := context.Background()

	transitions := []func(){s.ShowActive, s.ShowArchived, s.ShowAll, s.ShowArchived, s.ShowActive, s.ShowAll}
	for i, show := range transitions {
		s.SetPage(i + 3)
		show()
		require.NoError(t, s.Refresh(ctx))
		calls := backend.calls()
		assert.Equal(t, 1, calls[len(calls)-1].Page, "переход %d", i)
	}
}

func TestRefresh_AlwaysFetches(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSynchronizer(t, backend)
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.Refresh(ctx))
	assert.Len(t, backend.calls(), 2)
}

func TestSync_CancelsSupersededFetch(t *testing.T) {
	started := make(chan struct{})
	backend := &fakeBackend{}
	backend.list = func(ctx context.Context, q model.ListQuery) (model.Page[model.Warehouse], error) {
		if q.Page == 1 {
			close(started)
			<-ctx.Done()
			return model.Page[model.Warehouse]{}, &apiclient.TransportError{Method: "GET", Path: "/bodegas/", Err: ctx.Err()}
		}
		return model.Page[model.Warehouse]{Items: warehouses(11), Meta: meta(11, q.Page, 10)}, nil
	}
	s := newTestSynchronizer(t, backend)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Sync(context.Background()) }()
	<-started

	s.SetPage(2)
	require.NoError(t, s.Sync(context.Background()))

	select {
	case err := <-errCh:
		assert.NoError(t, err, "заменённая загрузка не является ошибкой")
	case <-time.After(2 * time.Second):
		t.Fatal("предыдущая загрузка не была отменена")
	}

	st := s.State()
	assert.Equal(t, 2, st.Page)
	assert.Empty(t, st.Error)
}

func TestSync_RetriesAfterAbort(t *testing.T) {
	backend := &fakeBackend{}
	backend.list = func(ctx context.Context, q model.ListQuery) (model.Page[model.Warehouse], error) {
		if err := ctx.Err(); err != nil {
			return model.Page[model.Warehouse]{}, &apiclient.TransportError{Method: "GET", Path: "/bodegas/", Err: err}
		}
		return model.Page[model.Warehouse]{Items: []model.Warehouse{}, Meta: meta(0, 1, 10)}, nil
	}
	s := newTestSynchronizer(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Sync(ctx), context.Canceled)

	require.NoError(t, s.Sync(context.Background()))
	assert.Len(t, backend.calls(), 2)
	assert.True(t, s.State().Loaded)
}

func TestSync_FailureIsNotRetriedWithoutChange(t *testing.T) {
	backend := &fakeBackend{}
	backend.list = func(context.Context, model.ListQuery) (model.Page[model.Warehouse], error) {
		return model.Page[model.Warehouse]{}, &apiclient.GenericFailure{Status: 500}
	}
	s := newTestSynchronizer(t, backend)

	require.Error(t, s.Sync(context.Background()))
	require.NoError(t, s.Sync(context.Background()))
	assert.Len(t, backend.calls(), 1)
	assert.NotEmpty(t, s.State().Error)
}

func TestCRUDWrappers_RefreshOnceOnSuccess(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSynchronizer(t, backend)
	ctx := context.Background()
	require.NoError(t, s.Sync(ctx))

	ops := map[string]func() error{
		OpCreate:  func() error { _, err := s.Create(ctx, map[string]any{"nombre": "A"}); return err },
		OpUpdate:  func() error { _, err := s.Update(ctx, 1, map[string]any{"nombre": "B"}); return err },
		OpDelete:  func() error { return s.Delete(ctx, 1) },
		OpArchive: func() error { _, err := s.Archive(ctx, 1); return err },
		OpRestore: func() error { _, err := s.Restore(ctx, 1); return err },
	}
	for op, run := range ops {
		before := len(backend.calls())
		require.NoError(t, run(), op)
		assert.Equal(t, before+1, len(backend.calls()), "%s: ровно одна повторная загрузка", op)
	}
}

func TestCRUDWrappers_NoRefreshOnFailure(t *testing.T) {
	backend := &fakeBackend{}
	backend.del = func(int64) (apiclient.Success[model.Warehouse], error) {
		return apiclient.Success[model.Warehouse]{}, &apiclient.GenericFailure{Status: 404}
	}
	s := newTestSynchronizer(t, backend)

	err := s.Delete(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "El registro no existe", err.Error())
	assert.Empty(t, backend.calls())
}

func TestNavigate(t *testing.T) {
	s := newTestSynchronizer(t, &fakeBackend{})

	s.Navigate("", nil, 4)
	assert.Equal(t, 4, s.State().RequestedPage)

	// смена статуса сбрасывает страницу, page игнорируется
	s.Navigate(model.StatusAll, nil, 3)
	st := s.State()
	assert.Equal(t, model.StatusAll, st.Status)
	assert.Equal(t, 1, st.RequestedPage)

	s.Navigate(model.StatusAll, map[string]string{}, 2)
	assert.Equal(t, 2, s.State().RequestedPage)

	s.Navigate(model.StatusAll, map[string]string{"nombre": "bod"}, 5)
	st = s.State()
	assert.Equal(t, 1, st.RequestedPage)
	assert.Equal(t, "bod", st.Filters["nombre"])
}

func TestNextPrevPage(t *testing.T) {
	backend := &fakeBackend{}
	backend.list = func(_ context.Context, q model.ListQuery) (model.Page[model.Warehouse], error) {
		return model.Page[model.Warehouse]{Items: warehouses(1), Meta: meta(25, q.Page, 10)}, nil
	}
	s := newTestSynchronizer(t, backend)
	require.NoError(t, s.Sync(context.Background()))

	s.PrevPage()
	assert.Equal(t, 1, s.State().RequestedPage)
	s.NextPage()
	s.NextPage()
	s.NextPage()
	assert.Equal(t, 3, s.State().RequestedPage)
	s.ClearFilters()
	assert.Equal(t, 1, s.State().RequestedPage)
}
