// Пакет config — загрузка и валидация конфигурации Agro Admin
// из переменных окружения с префиксом AM_.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// envPrefix — префикс переменных окружения.
const envPrefix = "AM"

// rawEnv — переменные окружения до валидации.
type rawEnv struct {
	Port      int    `envconfig:"PORT" default:"8000"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	APIURL        string        `envconfig:"API_URL" required:"true"`
	APIToken      string        `envconfig:"API_TOKEN"`
	APITimeout    time.Duration `envconfig:"API_TIMEOUT" default:"15s"`
	APICACertPath string        `envconfig:"API_CA_CERT_PATH"`
	APIHealthPath string        `envconfig:"API_HEALTH_PATH"`
	PageSize      int           `envconfig:"PAGE_SIZE" default:"10"`

	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionSecure bool          `envconfig:"SESSION_SECURE" default:"false"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"8h"`
	SessionMax    int           `envconfig:"SESSION_MAX" default:"1000"`

	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`

	DephealthGroup         string        `envconfig:"DEPHEALTH_GROUP" default:"agro"`
	DephealthCheckInterval time.Duration `envconfig:"DEPHEALTH_CHECK_INTERVAL" default:"15s"`
	SSEInterval            time.Duration `envconfig:"SSE_INTERVAL" default:"15s"`

	OTelEnabled     bool          `envconfig:"OTEL_ENABLED" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Config содержит все параметры конфигурации Agro Admin.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- REST backend ---

	// Базовый URL API (без trailing slash)
	APIURL string
	// Статический bearer-токен (опционально)
	APIToken string
	// Таймаут HTTP-запросов к API
	APITimeout time.Duration
	// Путь к CA-сертификату API (опционально)
	APICACertPath string
	// Путь проверки доступности API (по умолчанию путь AM_API_URL + "/")
	APIHealthPath string
	// Размер страницы по умолчанию, если сервер его не сообщает
	PageSize int

	// --- Сессии UI ---

	// Ключ шифрования cookie (пустой — генерируется при старте)
	SessionSecret string
	// Secure flag для cookie (true за HTTPS)
	SessionSecure bool
	// Время жизни неактивной сессии
	SessionTTL time.Duration
	// Максимальное число сессий в памяти
	SessionMax int

	// --- PostgreSQL (опционально, хранение настроек представлений) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- topologymetrics ---

	// Группа зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Интервал SSE-обновлений состояния зависимостей на панели
	SSEInterval time.Duration

	// --- OpenTelemetry ---

	// Экспорт span'ов в stdout
	OTelEnabled bool

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	var env rawEnv
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return nil, fmt.Errorf("переменные окружения: %w", err)
	}
	return fromEnv(env)
}

// fromEnv валидирует значения и вычисляет производные.
func fromEnv(env rawEnv) (*Config, error) {
	cfg := &Config{
		Port:                   env.Port,
		LogFormat:              env.LogFormat,
		APIToken:               env.APIToken,
		APITimeout:             env.APITimeout,
		APICACertPath:          env.APICACertPath,
		PageSize:               env.PageSize,
		SessionSecret:          env.SessionSecret,
		SessionSecure:          env.SessionSecure,
		SessionTTL:             env.SessionTTL,
		SessionMax:             env.SessionMax,
		DBHost:                 env.DBHost,
		DBPort:                 env.DBPort,
		DBName:                 env.DBName,
		DBUser:                 env.DBUser,
		DBPassword:             env.DBPassword,
		DBSSLMode:              env.DBSSLMode,
		DephealthGroup:         env.DephealthGroup,
		DephealthCheckInterval: env.DephealthCheckInterval,
		SSEInterval:            env.SSEInterval,
		OTelEnabled:            env.OTelEnabled,
		ShutdownTimeout:        env.ShutdownTimeout,
	}
	var err error

	// --- Сервер ---

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("AM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(env.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("AM_LOG_LEVEL: %w", err)
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- REST backend ---

	// Убираем trailing slash
	cfg.APIURL = strings.TrimRight(env.APIURL, "/")
	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("AM_API_URL: некорректный URL %q (ожидается http(s)://host[/path])", env.APIURL)
	}

	cfg.APIHealthPath = env.APIHealthPath
	if cfg.APIHealthPath == "" {
		cfg.APIHealthPath = u.Path + "/"
	}
	if !strings.HasPrefix(cfg.APIHealthPath, "/") {
		return nil, fmt.Errorf("AM_API_HEALTH_PATH: путь %q должен начинаться с /", cfg.APIHealthPath)
	}

	if cfg.APITimeout <= 0 {
		return nil, fmt.Errorf("AM_API_TIMEOUT: значение должно быть больше нуля")
	}

	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return nil, fmt.Errorf("AM_PAGE_SIZE: значение %d вне допустимого диапазона 1-100", cfg.PageSize)
	}

	// --- Сессии UI ---

	if cfg.SessionTTL < time.Minute {
		return nil, fmt.Errorf("AM_SESSION_TTL: значение %v меньше 1m", cfg.SessionTTL)
	}
	if cfg.SessionMax < 1 || cfg.SessionMax > 1_000_000 {
		return nil, fmt.Errorf("AM_SESSION_MAX: значение %d вне допустимого диапазона 1-1000000", cfg.SessionMax)
	}

	// --- PostgreSQL ---

	// Блок опциональный: включается заданием AM_DB_HOST
	if cfg.DBEnabled() {
		for key, val := range map[string]string{
			"AM_DB_NAME":     cfg.DBName,
			"AM_DB_USER":     cfg.DBUser,
			"AM_DB_PASSWORD": cfg.DBPassword,
		} {
			if val == "" {
				return nil, fmt.Errorf("%s: обязательная переменная окружения не задана (задан AM_DB_HOST)", key)
			}
		}
		validSSLModes := map[string]bool{
			"disable": true, "require": true, "verify-ca": true, "verify-full": true,
		}
		if !validSSLModes[cfg.DBSSLMode] {
			return nil, fmt.Errorf("AM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
		}
	}

	// --- topologymetrics ---

	if cfg.DephealthGroup == "" {
		return nil, fmt.Errorf("AM_DEPHEALTH_GROUP: пустое значение")
	}
	if cfg.DephealthCheckInterval < time.Second {
		return nil, fmt.Errorf("AM_DEPHEALTH_CHECK_INTERVAL: значение %v меньше 1s", cfg.DephealthCheckInterval)
	}
	if cfg.SSEInterval < time.Second {
		return nil, fmt.Errorf("AM_SSE_INTERVAL: значение %v меньше 1s", cfg.SSEInterval)
	}

	if cfg.ShutdownTimeout <= 0 {
		return nil, fmt.Errorf("AM_SHUTDOWN_TIMEOUT: значение должно быть больше нуля")
	}

	return cfg, nil
}

// DBEnabled сообщает, что PostgreSQL сконфигурирован.
func (c *Config) DBEnabled() bool {
	return c.DBHost != ""
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без учётных данных
// (лейблы метрик topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
