// Файл events.go — SSE (Server-Sent Events) endpoint состояния зависимостей.
// Каждый SSE-клиент обслуживается отдельной горутиной.
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bigkaa/agroadmin/internal/service"
	"github.com/bigkaa/agroadmin/internal/ui/pages"
)

// depStatusEvent — имя SSE-события (совпадает с sse-swap на панели).
const depStatusEvent = "dep-status"

// EventsHandler — обработчик SSE endpoints.
type EventsHandler struct {
	deps        service.StatusSource // может быть nil
	sseInterval time.Duration
	logger      *slog.Logger
}

// NewEventsHandler создаёт новый EventsHandler.
// sseInterval — интервал отправки SSE-обновлений (AM_SSE_INTERVAL).
func NewEventsHandler(deps service.StatusSource, sseInterval time.Duration, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		deps:        deps,
		sseInterval: sseInterval,
		logger:      logger.With(slog.String("component", "ui.events")),
	}
}

// HandleDependencies обрабатывает GET /admin/events/dependencies.
// Сразу и затем периодически отправляет HTML-фрагмент списка зависимостей
// событием dep-status. Завершается при отключении клиента.
func (h *EventsHandler) HandleDependencies(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Отключаем буферизацию Nginx

	// ResponseController находит http.Flusher через Unwrap() обёрток middleware
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE no soportado", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE клиент подключён", slog.String("remote_addr", r.RemoteAddr))

	if err := h.sendDependencies(ctx, w, rc); err != nil {
		return
	}

	ticker := time.NewTicker(h.sseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE клиент отключён", slog.String("remote_addr", r.RemoteAddr))
			return
		case <-ticker.C:
			if err := h.sendDependencies(ctx, w, rc); err != nil {
				return
			}
		}
	}
}

// sendDependencies отправляет одно событие dep-status.
func (h *EventsHandler) sendDependencies(ctx context.Context, w http.ResponseWriter, rc *http.ResponseController) error {
	var deps []service.DependencyStatus
	if h.deps != nil {
		deps = h.deps.Statuses()
	}

	var buf bytes.Buffer
	if err := pages.Dependencies(deps).Render(ctx, &buf); err != nil {
		h.logger.Error("Ошибка рендеринга dep-status", slog.String("error", err.Error()))
		return err
	}

	if _, err := writeEvent(w, depStatusEvent, buf.String()); err != nil {
		return err
	}
	return rc.Flush()
}

// writeEvent пишет SSE-событие; многострочные данные разбиваются на строки data:.
func writeEvent(w http.ResponseWriter, event, data string) (int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&sb, "data: %s\n", line)
	}
	sb.WriteString("\n")
	return w.Write([]byte(sb.String()))
}
