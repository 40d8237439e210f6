package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bigkaa/agroadmin/internal/service"
	"github.com/bigkaa/agroadmin/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/agroadmin/internal/ui/middleware"
	"github.com/bigkaa/agroadmin/internal/ui/pages"
)

// DashboardHandler — обработчик страницы панели.
type DashboardHandler struct {
	dashboardSvc *service.DashboardService
	logger       *slog.Logger
}

// NewDashboardHandler создаёт новый DashboardHandler.
func NewDashboardHandler(dashboardSvc *service.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardSvc: dashboardSvc,
		logger:       logger.With(slog.String("component", "ui.dashboard")),
	}
}

// HandleDashboard обрабатывает GET /admin/ — число активных записей
// по сущностям и состояние зависимостей.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary := h.dashboardSvc.Summary(ctx)

	data := pages.LayoutData{
		Title:  i18n.T(ctx, "dashboard.title"),
		Active: "dashboard",
	}
	if sess := uimiddleware.SessionFromContext(ctx); sess != nil {
		data.Username = sess.Username
	}
	if st := uimiddleware.StoreFromContext(ctx); st != nil {
		data.Notifications = st.Inbox.Drain()
	}

	render(w, r, h.logger, pages.Layout(data, pages.Dashboard(summary)))
}
