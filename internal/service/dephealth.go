// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Agro Admin мониторит:
//   - REST API бодег и сезонов — HTTP checker (critical)
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode),
//     только если БД сконфигурирована (не critical: без неё теряются лишь
//     сохранённые настройки представлений)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для REST API
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"     // PostgreSQL checker (pool mode)
	"github.com/prometheus/client_golang/prometheus"
)

// Имена зависимостей в метриках.
const (
	DependencyAPI      = "agro-api"
	DependencyPostgres = "postgresql"
)

// DependencyStatus — состояние одной зависимости.
type DependencyStatus struct {
	Name string
	OK   bool
}

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (AM_DEPHEALTH_GROUP)
	Group string
	// APIURL — базовый URL REST API
	APIURL string
	// APIHealthPath — путь HTTP-проверки API
	APIHealthPath string
	// DB — *sql.DB из pgxpool через stdlib.OpenDBFromPool() (nil — без PostgreSQL)
	DB *sql.DB
	// PGConnURL — URL PostgreSQL (для метрик/лейблов, не для подключения)
	PGConnURL string
	// CheckInterval — интервал проверки (AM_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	names  []string
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(cfg DephealthConfig, logger *slog.Logger, registerer prometheus.Registerer) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(cfg DephealthConfig, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.HTTP(DependencyAPI,
			dephealth.FromURL(cfg.APIURL),
			dephealth.WithHTTPHealthPath(healthPath(cfg.APIHealthPath)),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
		),
	}
	names := []string{DependencyAPI}

	if cfg.DB != nil {
		// pgcheck.New + dephealth.AddDependency напрямую,
		// чтобы не тянуть contrib/sqldb с транзитивной зависимостью на MySQL.
		opts = append(opts, dephealth.AddDependency(DependencyPostgres, dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			dephealth.FromURL(cfg.PGConnURL),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(false),
		))
		names = append(names, DependencyPostgres)
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		names:  names,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// healthPath нормализует путь проверки: ведущий "/" обязателен.
func healthPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен",
		slog.String("dependencies", strings.Join(ds.names, ",")),
	)
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// Statuses возвращает состояние всех сконфигурированных зависимостей
// в порядке имён. Ещё не проверенная зависимость считается недоступной.
func (ds *DephealthService) Statuses() []DependencyStatus {
	return statusesOf(ds.names, ds.Health())
}

// statusesOf сопоставляет имена зависимостей со снимком Health().
// Ключи снимка могут содержать суффикс endpoint'а ("agro-api:host:port").
func statusesOf(names []string, health map[string]bool) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(names))
	for _, name := range names {
		ok, found := health[name]
		if !found {
			ok = anyPrefixed(health, name)
		}
		out = append(out, DependencyStatus{Name: name, OK: ok})
	}
	slices.SortFunc(out, func(a, b DependencyStatus) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// anyPrefixed возвращает true, если есть хотя бы один здоровый ключ name:*,
// и все такие ключи здоровы.
func anyPrefixed(health map[string]bool, name string) bool {
	seen := false
	for k, ok := range health {
		if !strings.HasPrefix(k, name+":") {
			continue
		}
		if !ok {
			return false
		}
		seen = true
	}
	return seen
}
