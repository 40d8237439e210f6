// Точка входа Agro Admin — административный UI бодег и сезонов.
// Загружает конфигурацию, опционально подключается к PostgreSQL (настройки
// представлений), создаёт клиент REST API, реестр состояний сессий,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/agroadmin/internal/api/handlers"
	"github.com/bigkaa/agroadmin/internal/apiclient"
	"github.com/bigkaa/agroadmin/internal/config"
	"github.com/bigkaa/agroadmin/internal/database"
	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/notify"
	"github.com/bigkaa/agroadmin/internal/repository"
	"github.com/bigkaa/agroadmin/internal/server"
	"github.com/bigkaa/agroadmin/internal/service"
	"github.com/bigkaa/agroadmin/internal/store"
	"github.com/bigkaa/agroadmin/internal/tracing"
	uihandlers "github.com/bigkaa/agroadmin/internal/ui/handlers"
	"github.com/bigkaa/agroadmin/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/agroadmin/internal/ui/middleware"
	"github.com/bigkaa/agroadmin/internal/ui/session"
	"github.com/bigkaa/agroadmin/internal/ui/views"
)

// serviceID — имя вершины графа зависимостей и OpenTelemetry-ресурса.
const serviceID = "agro-admin"

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Agro Admin запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("api_url", cfg.APIURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. OpenTelemetry (span'ы запросов к REST API)
	shutdownTracing, err := tracing.Setup(cfg.OTelEnabled, serviceID, config.Version, logger)
	if err != nil {
		logger.Error("Ошибка настройки OpenTelemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Ошибка остановки OpenTelemetry", slog.String("error", err.Error()))
		}
	}()

	// 4. PostgreSQL (опционально): миграции, пул, хранилище настроек
	var (
		prefs  repository.PreferencesRepository
		pool   *pgxpool.Pool
		checks []handlers.Check
	)
	depCfg := service.DephealthConfig{
		ServiceID:     serviceID,
		Group:         cfg.DephealthGroup,
		APIURL:        cfg.APIURL,
		APIHealthPath: cfg.APIHealthPath,
		CheckInterval: cfg.DephealthCheckInterval,
	}

	if cfg.DBEnabled() {
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err = database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
		pgDB := stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		depCfg.DB = pgDB
		depCfg.PGConnURL = cfg.DatabaseURL()
		prefs = repository.NewPreferencesRepository(pool)
		checks = append(checks, handlers.Check{Checker: database.NewReadinessChecker(pool)})
	} else {
		logger.Info("AM_DB_HOST не задан, настройки представлений хранятся в памяти")
		prefs = repository.NewMemoryPreferences()
	}

	// 5. Клиент REST API
	client, err := apiclient.New(apiclient.Config{
		BaseURL:    cfg.APIURL,
		Token:      cfg.APIToken,
		Timeout:    cfg.APITimeout,
		CACertPath: cfg.APICACertPath,
		PageSize:   cfg.PageSize,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	warehouses := apiclient.NewResource[model.Warehouse](client, model.EntityWarehouses)
	seasons := apiclient.NewResource[model.Season](client, model.EntitySeasons)

	checks = append(checks, handlers.Check{
		Checker:  handlers.NewPingChecker(service.DependencyAPI, 3*time.Second, warehouses.Ping),
		Critical: true,
	})

	// 6. Реестр состояний сессий
	registry := store.NewRegistry(store.NewBackends(client), store.Options{
		PageSize:    cfg.PageSize,
		Preferences: prefs,
		Notifier:    notify.NewLogNotifier(logger),
	}, cfg.SessionMax, cfg.SessionTTL, logger)
	defer registry.Close()

	// 7. topologymetrics — мониторинг зависимостей (REST API + PostgreSQL)
	var statuses service.StatusSource = service.NoStatuses{}
	dephealthSvc, err := service.NewDephealthService(depCfg, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		dephealthSvc = nil
	} else {
		statuses = dephealthSvc
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 8. Dashboard
	dashboardSvc := service.NewDashboardService(statuses, logger).
		Register(model.EntityWarehouses, service.ActiveCount(warehouses)).
		Register(model.EntitySeasons, service.ActiveCount(seasons))

	// 9. UI: переводы, описания представлений, сессии
	if _, err := i18n.Setup(logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	catalog, err := views.Load()
	if err != nil {
		logger.Error("Ошибка загрузки описаний представлений", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.SessionSecret == "" {
		logger.Warn("AM_SESSION_SECRET не задан, UI-сессии не сохраняются между рестартами")
	}
	sessionMgr, err := session.NewManager(cfg.SessionSecret, cfg.SessionSecure, cfg.SessionTTL)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}

	entitiesHandler, err := uihandlers.NewEntitiesHandler(catalog, logger)
	if err != nil {
		logger.Error("Ошибка создания обработчиков сущностей", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 10. Создание и запуск HTTP-сервера
	router := server.NewRouter(logger, server.Handlers{
		Health:    handlers.NewHealthHandler(checks...),
		Sessions:  uimiddleware.NewSessions(sessionMgr, registry, logger),
		Entities:  entitiesHandler,
		Dashboard: uihandlers.NewDashboardHandler(dashboardSvc, logger),
		Events:    uihandlers.NewEventsHandler(statuses, cfg.SSEInterval, logger),
	})
	srv := server.New(cfg, logger, router)
	runErr := srv.Run(ctx)

	// 11. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("Agro Admin остановлен")
}
