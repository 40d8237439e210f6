// metrics.go — Prometheus HTTP метрики Agro Admin.
// Регистрирует метрики: agro_http_requests_total, agro_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agro_http_requests_total",
			Help: "Общее количество HTTP-запросов к Agro Admin",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agro_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Agro Admin в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// knownPrefixes — корни маршрутов сервера. Остальные пути попадают
// в один лейбл, чтобы сканеры не раздували кардинальность.
var knownPrefixes = []string{"/admin", "/static/", "/health/", "/metrics"}

// normalizePath заменяет числовые сегменты пути на {id}, а статику
// сводит к /static/*.
// /admin/partials/bodegas/42/archive → /admin/partials/bodegas/{id}/archive
func normalizePath(path string) string {
	known := false
	for _, p := range knownPrefixes {
		if strings.HasPrefix(path, p) {
			known = true
			break
		}
	}
	if !known {
		return "other"
	}
	if strings.HasPrefix(path, "/static/") {
		return "/static/*"
	}

	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
