package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/notify"
	"github.com/bigkaa/agroadmin/internal/repository"
	"github.com/bigkaa/agroadmin/internal/ui/pages"
)

func form(values url.Values) *strings.Reader {
	return strings.NewReader(values.Encode())
}

func TestHandleList_FullPage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/admin/bodegas", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<!doctype html>"))
	assert.Contains(t, body, `id="bodegas-table"`)
	assert.Contains(t, body, "Bodega Norte")
	assert.NotContains(t, body, "Bodega Vieja")
	assert.Contains(t, body, `hx-trigger="agro:list-changed from:body"`)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestHandleTable_UnknownEntity(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/admin/partials/usuarios/table", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/admin/partials/bodegas/abc/archive", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTable_StatusTab(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/admin/partials/bodegas/table?estado=archivadas", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Bodega Vieja")
	assert.NotContains(t, body, "Bodega Norte")
	// Вкладки и область ошибки обновляются out-of-band
	assert.Contains(t, body, `id="bodegas-tabs" hx-swap-oob="true"`)
	assert.Contains(t, body, `id="bodegas-alert" hx-swap-oob="true"`)
	assert.Equal(t, model.StatusArchived, env.store.Warehouses.State().Status)
}

func TestHandleTable_FiltersAndClear(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/admin/partials/bodegas/table?nombre=norte&ubicacion=", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"nombre": "norte"}, env.store.Warehouses.State().Filters)
	assert.Contains(t, rec.Body.String(), "Bodega Norte")

	// Переход по странице фильтры не трогает
	env.do(http.MethodGet, "/admin/partials/bodegas/table?page=1", nil)
	assert.Equal(t, map[string]string{"nombre": "norte"}, env.store.Warehouses.State().Filters)

	env.do(http.MethodGet, "/admin/partials/bodegas/table?clear=1", nil)
	assert.Empty(t, env.store.Warehouses.State().Filters)
}

func TestHandleTable_SyncSkipsUnchangedQuery(t *testing.T) {
	env := newTestEnv(t)

	env.do(http.MethodGet, "/admin/partials/bodegas/table", nil)
	env.do(http.MethodGet, "/admin/partials/bodegas/table", nil)
	assert.Equal(t, 1, env.api.count("GET /api/bodegas/"))

	env.do(http.MethodGet, "/admin/partials/bodegas/table?refresh=1", nil)
	assert.Equal(t, 2, env.api.count("GET /api/bodegas/"))
}

func TestHandleTable_LoadErrorAndRetry(t *testing.T) {
	env := newTestEnv(t)
	env.api.setFailList(true)

	rec := env.do(http.MethodGet, "/admin/partials/bodegas/table", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `role="alert"`)
	assert.Contains(t, body, "refresh=1")

	env.api.setFailList(false)
	rec = env.do(http.MethodGet, "/admin/partials/bodegas/table?refresh=1", nil)
	body = rec.Body.String()
	assert.NotContains(t, body, `role="alert"`)
	assert.Contains(t, body, "Bodega Norte")
	assert.Empty(t, env.store.Warehouses.State().Error)
}

func TestHandleTable_SavesPreferences(t *testing.T) {
	prefs := repository.NewMemoryPreferences()
	env := newTestEnvWithPrefs(t, prefs)

	env.do(http.MethodGet, "/admin/partials/bodegas/table?estado=all&nombre=bod", nil)

	p, err := prefs.Get(context.Background(), "ana", model.EntityWarehouses)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAll, p.Status)
	assert.Equal(t, map[string]string{"nombre": "bod"}, p.Filters)
}

func TestHandleForm_New(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/admin/partials/bodegas/form", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Nueva Bodega")
	assert.Contains(t, body, `hx-post="/admin/partials/bodegas"`)
	// Фокус на первом поле
	assert.Contains(t, body, `name="nombre" required autofocus`)
}

func TestHandleForm_Edit(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/admin/partials/bodegas/table", nil)

	rec := env.do(http.MethodGet, "/admin/partials/bodegas/form/1", nil)

	body := rec.Body.String()
	assert.Contains(t, body, "Editar Bodega")
	assert.Contains(t, body, `hx-put="/admin/partials/bodegas/1"`)
	assert.Contains(t, body, `value="Bodega Norte"`)
	assert.Contains(t, body, `value="Mendoza"`)
}

func TestHandleForm_EditNotOnPage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/admin/partials/bodegas/form/99", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "El registro no existe")
}

func TestHandleCreate_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/admin/partials/bodegas", form(url.Values{"nombre": {"Bodega Sur"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pages.ListChangedEvent, rec.Header().Get("HX-Trigger"))
	body := rec.Body.String()
	assert.Contains(t, body, `hx-swap-oob="beforeend:#toasts"`)
	assert.Contains(t, body, "Bodega creada")
	assert.NotContains(t, body, "<form")
	assert.Equal(t, 1, env.api.count("POST /api/bodegas/"))
	assert.Zero(t, env.store.Inbox.Len())
}

func TestHandleCreate_LocalValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/admin/partials/bodegas",
		form(url.Values{"nombre": {"Bodega Sur"}, "capacidad": {"mucha"}}))

	body := rec.Body.String()
	assert.Empty(t, rec.Header().Get("HX-Trigger"))
	assert.Contains(t, body, "Ingrese un número válido.")
	assert.Contains(t, body, `name="capacidad" autofocus aria-invalid="true"`)
	// Введённые значения сохраняются
	assert.Contains(t, body, `value="Bodega Sur"`)
	assert.Zero(t, env.api.count("POST /api/bodegas/"))
}

func TestHandleCreate_BackendValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/admin/partials/bodegas", form(url.Values{"nombre": {"duplicada"}}))

	body := rec.Body.String()
	assert.Empty(t, rec.Header().Get("HX-Trigger"))
	assert.Contains(t, body, "Ya existe una bodega con ese nombre.")
	assert.Contains(t, body, `name="nombre" required autofocus aria-invalid="true"`)
	assert.Zero(t, env.store.Inbox.Len())
}

func TestHandleCreate_BackendValidationKeepsPendingToasts(t *testing.T) {
	env := newTestEnv(t)
	env.store.Inbox.Notify(context.Background(), notify.Notification{Message: "Temporada archivada", Severity: notify.SeveritySuccess})

	rec := env.do(http.MethodPost, "/admin/partials/bodegas", form(url.Values{"nombre": {"duplicada"}}))

	body := rec.Body.String()
	assert.Contains(t, body, "Ya existe una bodega con ese nombre.")
	// Уведомление другой операции не теряется, а выводится вместе с формой
	assert.Contains(t, body, `hx-swap-oob="beforeend:#toasts"`)
	assert.Contains(t, body, "Temporada archivada")
	assert.Equal(t, 1, strings.Count(body, "toast-message"))
	assert.Zero(t, env.store.Inbox.Len())
}

func TestHandleUpdate_Success(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/admin/partials/bodegas/table", nil)

	rec := env.do(http.MethodPut, "/admin/partials/bodegas/1", form(url.Values{"nombre": {"Bodega Centro"}}))

	assert.Equal(t, pages.ListChangedEvent, rec.Header().Get("HX-Trigger"))
	assert.Equal(t, 1, env.api.count("PATCH /api/bodegas/1/"))
	assert.Equal(t, "Bodega Centro", env.store.Warehouses.State().Items[0].Nombre)
}

func TestHandleArchiveRestore(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/admin/partials/bodegas/table", nil)

	rec := env.do(http.MethodPost, "/admin/partials/bodegas/1/archive", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="bodegas-table"`)
	assert.Contains(t, body, "Bodega archivada")
	assert.NotContains(t, body, "Bodega Norte")
	assert.Empty(t, env.store.Warehouses.State().Items)

	env.do(http.MethodGet, "/admin/partials/bodegas/table?estado=archived", nil)
	rec = env.do(http.MethodPost, "/admin/partials/bodegas/1/restore", nil)
	body = rec.Body.String()
	assert.Contains(t, body, "Bodega Vieja")
	assert.NotContains(t, body, "Bodega Norte")
	assert.Equal(t, 1, env.api.count("POST /api/bodegas/1/restaurar/"))
}

func TestHandleDelete(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/admin/partials/bodegas/table", nil)

	rec := env.do(http.MethodDelete, "/admin/partials/bodegas/1", nil)

	assert.Equal(t, 1, env.api.count("DELETE /api/bodegas/1/"))
	assert.NotContains(t, rec.Body.String(), "Bodega Norte")
}

func TestHandleDelete_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/admin/partials/bodegas/table", nil)

	rec := env.do(http.MethodDelete, "/admin/partials/bodegas/77", nil)

	// Ошибка показывается уведомлением, таблица остаётся
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "toast-error")
	assert.Contains(t, body, "Bodega Norte")
}
