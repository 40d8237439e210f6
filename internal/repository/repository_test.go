package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/agroadmin/internal/config"
	"github.com/bigkaa/agroadmin/internal/database"
	"github.com/bigkaa/agroadmin/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("agro_test"),
		postgres.WithUsername("agro"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("AM_API_URL", "http://localhost:8010/api")
	t.Setenv("AM_DB_HOST", host)
	t.Setenv("AM_DB_PORT", port.Port())
	t.Setenv("AM_DB_NAME", "agro_test")
	t.Setenv("AM_DB_USER", "agro")
	t.Setenv("AM_DB_PASSWORD", "test-password")
	t.Setenv("AM_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// testPreferencesRepository — общий сценарий для обеих реализаций.
func testPreferencesRepository(t *testing.T, repo PreferencesRepository) {
	ctx := context.Background()

	// Get несуществующей записи
	if _, err := repo.Get(ctx, "ana", "bodegas"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() ошибка = %v, ожидали ErrNotFound", err)
	}

	// Save: пустой статус становится active, пустые фильтры отбрасываются
	p := &ViewPreference{
		Username: "ana",
		View:     "bodegas",
		Filters:  map[string]string{"nombre": " norte ", "ubicacion": ""},
	}
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save() ошибка: %v", err)
	}
	if p.UpdatedAt.IsZero() {
		t.Error("UpdatedAt не установлен")
	}

	got, err := repo.Get(ctx, "ana", "bodegas")
	if err != nil {
		t.Fatalf("Get() ошибка: %v", err)
	}
	if got.Status != model.StatusActive {
		t.Errorf("Status = %q, ожидали %q", got.Status, model.StatusActive)
	}
	if len(got.Filters) != 1 || got.Filters["nombre"] != "norte" {
		t.Errorf("Filters = %v, ожидали map[nombre:norte]", got.Filters)
	}

	// Upsert
	p.Status = model.StatusArchived
	p.Filters = map[string]string{}
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save() (upsert) ошибка: %v", err)
	}
	got, err = repo.Get(ctx, "ana", "bodegas")
	if err != nil {
		t.Fatalf("Get() после upsert ошибка: %v", err)
	}
	if got.Status != model.StatusArchived {
		t.Errorf("Status = %q, ожидали %q", got.Status, model.StatusArchived)
	}
	if len(got.Filters) != 0 {
		t.Errorf("Filters = %v, ожидали пустые", got.Filters)
	}

	// Изменение возвращённой копии не влияет на хранилище
	got.Filters["x"] = "y"
	again, _ := repo.Get(ctx, "ana", "bodegas")
	if _, ok := again.Filters["x"]; ok {
		t.Error("Get() вернул разделяемую карту фильтров")
	}

	// ListByUser
	if err := repo.Save(ctx, &ViewPreference{Username: "ana", View: "temporadas", Status: model.StatusAll}); err != nil {
		t.Fatalf("Save(temporadas) ошибка: %v", err)
	}
	if err := repo.Save(ctx, &ViewPreference{Username: "luis", View: "bodegas"}); err != nil {
		t.Fatalf("Save(luis) ошибка: %v", err)
	}
	list, err := repo.ListByUser(ctx, "ana")
	if err != nil {
		t.Fatalf("ListByUser() ошибка: %v", err)
	}
	if len(list) != 2 || list[0].View != "bodegas" || list[1].View != "temporadas" {
		t.Errorf("ListByUser() = %+v, ожидали [bodegas temporadas]", list)
	}

	// Некорректные записи
	if err := repo.Save(ctx, &ViewPreference{Username: "ana", View: "bodegas", Status: "deleted"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Save(status=deleted) ошибка = %v, ожидали ErrInvalid", err)
	}
	if err := repo.Save(ctx, &ViewPreference{View: "bodegas"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Save(без username) ошибка = %v, ожидали ErrInvalid", err)
	}

	// Delete
	if err := repo.Delete(ctx, "ana", "bodegas"); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if err := repo.Delete(ctx, "ana", "bodegas"); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete() ошибка = %v, ожидали ErrNotFound", err)
	}
}

func TestMemoryPreferences(t *testing.T) {
	testPreferencesRepository(t, NewMemoryPreferences())
}

func TestPreferencesRepository(t *testing.T) {
	pool := setupTestDB(t)
	testPreferencesRepository(t, NewPreferencesRepository(pool))
}
