package store

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/agroadmin/internal/apiclient"
	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/notify"
	"github.com/bigkaa/agroadmin/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubBackend — Backend, отдающий фиксированную страницу и
// запоминающий параметры загрузок.
type stubBackend[T any] struct {
	mu      sync.Mutex
	queries []model.ListQuery
	items   []T
	created T
}

func (b *stubBackend[T]) List(_ context.Context, q model.ListQuery) (model.Page[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, q.Clone())
	return model.Page[T]{
		Items: append([]T(nil), b.items...),
		Meta: model.PaginationMeta{
			Count:      len(b.items),
			Page:       q.Page,
			PageSize:   10,
			TotalPages: model.TotalPages(len(b.items), 10),
		},
	}, nil
}

func (b *stubBackend[T]) Create(context.Context, any) (apiclient.Success[T], error) {
	return apiclient.Success[T]{
		Data:         b.created,
		HasData:      true,
		Notification: &notify.Notification{Message: "Creado", Severity: notify.SeveritySuccess},
	}, nil
}

func (b *stubBackend[T]) Update(context.Context, int64, any) (apiclient.Success[T], error) {
	return apiclient.Success[T]{}, nil
}

func (b *stubBackend[T]) Delete(context.Context, int64) (apiclient.Success[T], error) {
	return apiclient.Success[T]{}, nil
}

func (b *stubBackend[T]) Archive(context.Context, int64) (apiclient.Success[T], error) {
	return apiclient.Success[T]{}, nil
}

func (b *stubBackend[T]) Restore(context.Context, int64) (apiclient.Success[T], error) {
	return apiclient.Success[T]{}, nil
}

func (b *stubBackend[T]) lastQuery() model.ListQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[len(b.queries)-1]
}

func newBackends() (Backends, *stubBackend[model.Warehouse], *stubBackend[model.Season]) {
	w := &stubBackend[model.Warehouse]{
		items:   []model.Warehouse{{ID: 1, Nombre: "Bodega Norte", IsActive: true}},
		created: model.Warehouse{ID: 2, Nombre: "Bodega Sur", IsActive: true},
	}
	s := &stubBackend[model.Season]{
		items: []model.Season{{ID: 7, Nombre: "Vendimia", Anio: 2024, IsActive: true}},
	}
	return Backends{Warehouses: w, Seasons: s}, w, s
}

func TestNew_InitialState(t *testing.T) {
	b, _, _ := newBackends()
	s := New("sid", "ana", b, Options{PageSize: 5}, testLogger())

	for _, st := range []struct {
		status model.StatusFilter
		page   int
		size   int
	}{
		{s.Warehouses.State().Status, s.Warehouses.State().RequestedPage, s.Warehouses.State().Meta.PageSize},
		{s.Seasons.State().Status, s.Seasons.State().RequestedPage, s.Seasons.State().Meta.PageSize},
	} {
		assert.Equal(t, model.StatusActive, st.status)
		assert.Equal(t, 1, st.page)
		assert.Equal(t, 5, st.size)
	}
	assert.Equal(t, model.EntityWarehouses, s.Warehouses.Container().Entity())
	assert.Equal(t, model.EntitySeasons, s.Seasons.Container().Entity())
}

func TestStore_SyncAndNotifications(t *testing.T) {
	b, wb, _ := newBackends()
	var logged []notify.Notification
	extra := notify.NotifierFunc(func(_ context.Context, n notify.Notification) {
		logged = append(logged, n)
	})
	s := New("sid", "ana", b, Options{Notifier: extra}, testLogger())

	require.NoError(t, s.Warehouses.Sync(context.Background()))
	st := s.Warehouses.State()
	assert.True(t, st.Loaded)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "Bodega Norte", st.Items[0].Nombre)
	assert.Equal(t, model.StatusActive, wb.lastQuery().Status)

	_, err := s.Warehouses.Create(context.Background(), map[string]any{"nombre": "Bodega Sur"})
	require.NoError(t, err)

	inbox := s.Inbox.Drain()
	require.Len(t, inbox, 1)
	assert.Equal(t, "Creado", inbox[0].Message)
	require.Len(t, logged, 1)
	assert.Equal(t, inbox[0], logged[0])
}

func TestStore_Preferences(t *testing.T) {
	ctx := context.Background()
	prefs := repository.NewMemoryPreferences()
	b, wb, sb := newBackends()

	s := New("sid", "ana", b, Options{Preferences: prefs}, testLogger())
	s.Warehouses.Navigate(model.StatusArchived, map[string]string{"nombre": "norte"}, 0)
	require.NoError(t, s.SavePreferences(ctx, model.EntityWarehouses))

	saved, err := prefs.Get(ctx, "ana", model.EntityWarehouses)
	require.NoError(t, err)
	assert.Equal(t, model.StatusArchived, saved.Status)
	assert.Equal(t, map[string]string{"nombre": "norte"}, saved.Filters)

	// Новая сессия того же пользователя получает сохранённое представление
	fresh := New("sid-2", "ana", b, Options{Preferences: prefs}, testLogger())
	require.NoError(t, fresh.ApplyPreferences(ctx))
	st := fresh.Warehouses.State()
	assert.Equal(t, model.StatusArchived, st.Status)
	assert.Equal(t, map[string]string{"nombre": "norte"}, st.Filters)
	assert.Equal(t, 1, st.RequestedPage)
	assert.Equal(t, model.StatusActive, fresh.Seasons.State().Status)

	require.NoError(t, fresh.Warehouses.Sync(ctx))
	assert.Equal(t, model.StatusArchived, wb.lastQuery().Status)
	assert.Equal(t, "norte", wb.lastQuery().Filters["nombre"])
	assert.Empty(t, sb.queries)

	// Другой пользователь не видит чужих настроек
	other := New("sid-3", "luis", b, Options{Preferences: prefs}, testLogger())
	require.NoError(t, other.ApplyPreferences(ctx))
	assert.Equal(t, model.StatusActive, other.Warehouses.State().Status)

	assert.Error(t, s.SavePreferences(ctx, "clientes"))
}

func TestStore_NoPreferences(t *testing.T) {
	b, _, _ := newBackends()
	s := New("sid", "ana", b, Options{}, testLogger())
	assert.NoError(t, s.ApplyPreferences(context.Background()))
	assert.NoError(t, s.SavePreferences(context.Background(), model.EntitySeasons))
}

func TestRegistry_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newBackends()
	r := NewRegistry(b, Options{}, 10, time.Hour, testLogger())

	s1 := r.Get(ctx, "sid", "ana")
	s2 := r.Get(ctx, "sid", "ana")
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, r.Len())

	// Смена пользователя в сессии — новое состояние
	s3 := r.Get(ctx, "sid", "luis")
	assert.NotSame(t, s1, s3)
	assert.Equal(t, "luis", s3.Username)
	assert.Equal(t, 1, r.Len())

	other := r.Get(ctx, "sid-2", "ana")
	assert.NotSame(t, s3, other)
	assert.Equal(t, 2, r.Len())

	r.Remove("sid")
	_, ok := r.Peek("sid")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())

	r.Close()
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newBackends()
	r := NewRegistry(b, Options{}, 2, time.Hour, testLogger())

	r.Get(ctx, "a", "ana")
	r.Get(ctx, "b", "ana")
	r.Get(ctx, "c", "ana")

	assert.Equal(t, 2, r.Len())
	_, ok := r.Peek("a")
	assert.False(t, ok, "самая старая сессия должна быть вытеснена")
	_, ok = r.Peek("c")
	assert.True(t, ok)
}

func TestRegistry_AppliesPreferences(t *testing.T) {
	ctx := context.Background()
	prefs := repository.NewMemoryPreferences()
	require.NoError(t, prefs.Save(ctx, &repository.ViewPreference{
		Username: "ana",
		View:     model.EntitySeasons,
		Status:   model.StatusAll,
		Filters:  map[string]string{"año": "2024"},
	}))

	b, _, _ := newBackends()
	r := NewRegistry(b, Options{Preferences: prefs}, 10, time.Hour, testLogger())
	s := r.Get(ctx, "sid", "ana")

	st := s.Seasons.State()
	assert.Equal(t, model.StatusAll, st.Status)
	assert.Equal(t, "2024", st.Filters["año"])
}

// slowPreferences — хранилище настроек, чтение которого ждёт release.
type slowPreferences struct {
	repository.PreferencesRepository
	started chan struct{}
	release chan struct{}
}

func (p *slowPreferences) ListByUser(ctx context.Context, username string) ([]repository.ViewPreference, error) {
	if username == "lento" {
		close(p.started)
		<-p.release
	}
	return p.PreferencesRepository.ListByUser(ctx, username)
}

func TestRegistry_SlowPreferencesDoNotBlockOtherSessions(t *testing.T) {
	ctx := context.Background()
	prefs := &slowPreferences{
		PreferencesRepository: repository.NewMemoryPreferences(),
		started:               make(chan struct{}),
		release:               make(chan struct{}),
	}
	b, _, _ := newBackends()
	r := NewRegistry(b, Options{Preferences: prefs}, 10, time.Hour, testLogger())

	slow := make(chan *Store)
	go func() { slow <- r.Get(ctx, "sid-lento", "lento") }()
	<-prefs.started

	done := make(chan *Store)
	go func() { done <- r.Get(ctx, "sid-ana", "ana") }()
	select {
	case s := <-done:
		assert.Equal(t, "ana", s.Username)
	case <-time.After(2 * time.Second):
		t.Fatal("Get другой сессии заблокирован чтением настроек")
	}

	close(prefs.release)
	s := <-slow
	assert.Equal(t, "lento", s.Username)
	assert.Same(t, s, r.Get(ctx, "sid-lento", "lento"))
	assert.Equal(t, 2, r.Len())
}
