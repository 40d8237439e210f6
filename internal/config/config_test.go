package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"AM_API_URL": "https://api.agro.lan/api/",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, ожидается 8000", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.APIURL != "https://api.agro.lan/api" {
		t.Errorf("APIURL = %q, ожидается без trailing slash", cfg.APIURL)
	}
	if cfg.APITimeout != 15*time.Second {
		t.Errorf("APITimeout = %v, ожидается 15s", cfg.APITimeout)
	}
	if cfg.APIHealthPath != "/api/" {
		t.Errorf("APIHealthPath = %q, ожидается /api/", cfg.APIHealthPath)
	}
	if cfg.PageSize != 10 {
		t.Errorf("PageSize = %d, ожидается 10", cfg.PageSize)
	}
	if cfg.SessionTTL != 8*time.Hour {
		t.Errorf("SessionTTL = %v, ожидается 8h", cfg.SessionTTL)
	}
	if cfg.SessionMax != 1000 {
		t.Errorf("SessionMax = %d, ожидается 1000", cfg.SessionMax)
	}
	if cfg.DBEnabled() {
		t.Error("DBEnabled() = true без AM_DB_HOST")
	}
	if cfg.DephealthGroup != "agro" {
		t.Errorf("DephealthGroup = %q, ожидается agro", cfg.DephealthGroup)
	}
	if cfg.DephealthCheckInterval != 15*time.Second {
		t.Errorf("DephealthCheckInterval = %v, ожидается 15s", cfg.DephealthCheckInterval)
	}
	if cfg.SSEInterval != 15*time.Second {
		t.Errorf("SSEInterval = %v, ожидается 15s", cfg.SSEInterval)
	}
	if cfg.OTelEnabled {
		t.Error("OTelEnabled = true по умолчанию")
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envs := minimalEnvs()
	envs["AM_PORT"] = "8080"
	envs["AM_LOG_LEVEL"] = "debug"
	envs["AM_LOG_FORMAT"] = "text"
	envs["AM_API_TOKEN"] = "tok"
	envs["AM_API_TIMEOUT"] = "3s"
	envs["AM_API_HEALTH_PATH"] = "/health/"
	envs["AM_PAGE_SIZE"] = "25"
	envs["AM_SESSION_TTL"] = "30m"
	envs["AM_SESSION_MAX"] = "50"
	envs["AM_SESSION_SECURE"] = "true"
	envs["AM_DB_HOST"] = "db.agro.lan"
	envs["AM_DB_NAME"] = "agro"
	envs["AM_DB_USER"] = "agro"
	envs["AM_DB_PASSWORD"] = "secret"
	envs["AM_DB_SSL_MODE"] = "require"
	envs["AM_OTEL_ENABLED"] = "true"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.APIToken != "tok" {
		t.Errorf("APIToken = %q, ожидается tok", cfg.APIToken)
	}
	if cfg.APITimeout != 3*time.Second {
		t.Errorf("APITimeout = %v, ожидается 3s", cfg.APITimeout)
	}
	if cfg.APIHealthPath != "/health/" {
		t.Errorf("APIHealthPath = %q, ожидается /health/", cfg.APIHealthPath)
	}
	if cfg.PageSize != 25 {
		t.Errorf("PageSize = %d, ожидается 25", cfg.PageSize)
	}
	if !cfg.SessionSecure {
		t.Error("SessionSecure = false, ожидается true")
	}
	if !cfg.DBEnabled() {
		t.Error("DBEnabled() = false при заданном AM_DB_HOST")
	}
	if cfg.DBSSLMode != "require" {
		t.Errorf("DBSSLMode = %q, ожидается require", cfg.DBSSLMode)
	}
	if !cfg.OTelEnabled {
		t.Error("OTelEnabled = false, ожидается true")
	}
}

func TestLoad_MissingAPIURL(t *testing.T) {
	t.Setenv("AM_API_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("ожидалась ошибка при отсутствии AM_API_URL")
	}
	if !strings.Contains(err.Error(), "AM_API_URL") {
		t.Errorf("ошибка должна упоминать AM_API_URL: %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"порт 0", "AM_PORT", "0"},
		{"порт не число", "AM_PORT", "abc"},
		{"уровень логов", "AM_LOG_LEVEL", "verbose"},
		{"формат логов", "AM_LOG_FORMAT", "xml"},
		{"URL без схемы", "AM_API_URL", "api.agro.lan"},
		{"URL ftp", "AM_API_URL", "ftp://api.agro.lan"},
		{"путь проверки API", "AM_API_HEALTH_PATH", "health"},
		{"таймаут", "AM_API_TIMEOUT", "0s"},
		{"длительность", "AM_API_TIMEOUT", "15"},
		{"размер страницы", "AM_PAGE_SIZE", "0"},
		{"размер страницы большой", "AM_PAGE_SIZE", "1000"},
		{"TTL сессии", "AM_SESSION_TTL", "10s"},
		{"число сессий", "AM_SESSION_MAX", "0"},
		{"интервал dephealth", "AM_DEPHEALTH_CHECK_INTERVAL", "100ms"},
		{"интервал SSE", "AM_SSE_INTERVAL", "500ms"},
		{"shutdown", "AM_SHUTDOWN_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			envs[tt.key] = tt.val
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка для %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_DBBlockRequiresCredentials(t *testing.T) {
	envs := minimalEnvs()
	envs["AM_DB_HOST"] = "localhost"
	envs["AM_DB_NAME"] = "agro"
	setEnvs(t, envs)

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка: AM_DB_USER и AM_DB_PASSWORD не заданы")
	}
}

func TestLoad_InvalidSSLMode(t *testing.T) {
	envs := minimalEnvs()
	envs["AM_DB_HOST"] = "localhost"
	envs["AM_DB_NAME"] = "agro"
	envs["AM_DB_USER"] = "agro"
	envs["AM_DB_PASSWORD"] = "secret"
	envs["AM_DB_SSL_MODE"] = "prefer"
	setEnvs(t, envs)

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка для AM_DB_SSL_MODE=prefer")
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.example.com",
		DBPort:     5432,
		DBName:     "agro",
		DBUser:     "user",
		DBPassword: "pass",
		DBSSLMode:  "disable",
	}
	expected := "host=db.example.com port=5432 dbname=agro user=user password=pass sslmode=disable"
	if dsn := cfg.DatabaseDSN(); dsn != expected {
		t.Errorf("DatabaseDSN() = %q, ожидается %q", dsn, expected)
	}
}

func TestDatabaseURL_HidesCredentials(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: 5432, DBName: "agro", DBUser: "agro", DBPassword: "secret"}
	if got := cfg.DatabaseURL(); got != "postgres://db:5432/agro" {
		t.Errorf("DatabaseURL() = %q", got)
	}
}

func TestMigrateURL_EscapesCredentials(t *testing.T) {
	cfg := &Config{
		DBHost:     "db",
		DBPort:     5433,
		DBName:     "agro",
		DBUser:     "agro",
		DBPassword: "p@ss/word",
		DBSSLMode:  "disable",
	}
	expected := "pgx5://agro:p%40ss%2Fword@db:5433/agro?sslmode=disable"
	if got := cfg.MigrateURL(); got != expected {
		t.Errorf("MigrateURL() = %q, ожидается %q", got, expected)
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"json", "json"},
		{"text", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel:  slog.LevelInfo,
				LogFormat: tt.format,
			}
			logger := SetupLogger(cfg)
			if logger == nil {
				t.Error("SetupLogger() вернул nil")
			}
		})
	}
}
