package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/agroadmin/internal/apiclient"
	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/service"
	"github.com/bigkaa/agroadmin/internal/ui/i18n"
)

// staticStatuses — StatusSource с фиксированными состояниями.
type staticStatuses []service.DependencyStatus

func (s staticStatuses) Statuses() []service.DependencyStatus { return s }

func TestHandleDashboard(t *testing.T) {
	env := newTestEnv(t)
	deps := staticStatuses{
		{Name: service.DependencyAPI, OK: true},
		{Name: service.DependencyPostgres, OK: false},
	}
	svc := service.NewDashboardService(deps, testLogger()).
		Register(model.EntityWarehouses, service.ActiveCount(apiclient.NewResource[model.Warehouse](env.client, model.EntityWarehouses))).
		Register(model.EntitySeasons, func(context.Context) (int, error) { return 0, errors.New("sin conexión") })
	h := NewDashboardHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.HandleDashboard(rec, httptest.NewRequest(http.MethodGet, "/admin/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Bodegas activas")
	assert.Contains(t, body, `<p class="card-value">1</p>`)
	assert.Contains(t, body, "Sin datos")
	assert.Contains(t, body, `sse-connect="/admin/events/dependencies"`)
	assert.Contains(t, body, "agro-api")
	assert.Contains(t, body, "No disponible")
}

func TestHandleDependencies_SSE(t *testing.T) {
	deps := staticStatuses{{Name: service.DependencyAPI, OK: true}}
	h := NewEventsHandler(deps, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/admin/events/dependencies", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.HandleDependencies(rec, req)
		close(done)
	}()

	// Первое событие отправляется сразу; отключение клиента завершает обработчик
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("обработчик SSE не завершился после отмены контекста")
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: dep-status\ndata: "))
	assert.Contains(t, body, `id="dependencies"`)
	assert.Contains(t, body, "agro-api")
	assert.True(t, strings.HasSuffix(body, "\n\n"))
}

func TestWriteEvent_Multiline(t *testing.T) {
	rec := httptest.NewRecorder()
	_, err := writeEvent(rec, "dep-status", "<ul>\n<li>a</li>\n</ul>")
	require.NoError(t, err)
	assert.Equal(t, "event: dep-status\ndata: <ul>\ndata: <li>a</li>\ndata: </ul>\n\n", rec.Body.String())
}

func TestHandleSetLanguage(t *testing.T) {
	tests := []struct {
		name     string
		lang     string
		referer  string
		wantLang string
		wantLoc  string
	}{
		{"английский", "en", "http://example.com/admin/bodegas", "en", "/admin/bodegas"},
		{"неподдерживаемый", "ru", "", i18n.DefaultLang, "/admin/"},
		{"чужой referer", "es", "http://evil.test/admin/x", "es", "/admin/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/set-language",
				strings.NewReader("lang="+tt.lang))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			rec := httptest.NewRecorder()

			HandleSetLanguage(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, i18n.LangCookieName, cookies[0].Name)
			assert.Equal(t, tt.wantLang, cookies[0].Value)
		})
	}
}
