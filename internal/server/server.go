// Пакет server — HTTP-сервер Agro Admin с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/agroadmin/internal/api/errors"
	apihandlers "github.com/bigkaa/agroadmin/internal/api/handlers"
	"github.com/bigkaa/agroadmin/internal/api/middleware"
	"github.com/bigkaa/agroadmin/internal/config"
	uihandlers "github.com/bigkaa/agroadmin/internal/ui/handlers"
	"github.com/bigkaa/agroadmin/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/agroadmin/internal/ui/middleware"
	"github.com/bigkaa/agroadmin/internal/ui/static"
)

// Handlers — обработчики, из которых собирается роутер.
type Handlers struct {
	Health    *apihandlers.HealthHandler
	Sessions  *uimiddleware.Sessions
	Entities  *uihandlers.EntitiesHandler
	Dashboard *uihandlers.DashboardHandler
	Events    *uihandlers.EventsHandler
}

// NewRouter собирает chi-роутер: служебные endpoints, статика и /admin.
func NewRouter(logger *slog.Logger, h Handlers) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.RequestID())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.NotFound(w, fmt.Sprintf("путь %s не найден", r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.MethodNotAllowed(w, fmt.Sprintf("метод %s не поддерживается", r.Method))
	})

	// Health и metrics проверяются Kubernetes напрямую, без сессии.
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)

	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusFound)
	})
	router.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusMovedPermanently)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(i18n.Middleware())
		r.Use(h.Sessions.Middleware())

		r.Get("/", h.Dashboard.HandleDashboard)
		r.Post("/set-language", uihandlers.HandleSetLanguage)
		r.Get("/events/dependencies", h.Events.HandleDependencies)
		h.Entities.Register(r)
	})

	return router
}

// Server — HTTP-сервер Agro Admin.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер поверх готового роутера.
func New(cfg *config.Config, logger *slog.Logger, handler http.Handler) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// WriteTimeout не задаётся: SSE-поток живёт дольше любого таймаута.
		IdleTimeout: 120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает отмены ctx (SIGINT, SIGTERM в main).
// После отмены выполняется graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Получен сигнал завершения")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		return nil
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
