package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiRequest — запрос, полученный fake backend'ом.
type apiRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// fakeBackend — REST API бодег: одна активная запись, ответы в формате DRF.
type fakeBackend struct {
	mu       sync.Mutex
	requests []apiRequest
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := apiRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	norte := map[string]any{"id": 1, "nombre": "Bodega Norte", "ubicacion": "Mendoza", "is_active": true, "archived_at": nil}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/bodegas/":
		_ = json.NewEncoder(w).Encode(map[string]any{"count": 1, "results": []any{norte}})
	case r.Method == http.MethodPost && r.URL.Path == "/api/bodegas/":
		if req.Body["nombre"] == "duplicada" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"nombre": []string{"Ya existe una bodega con ese nombre."}})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"notification": map[string]any{"message": "Bodega creada", "type": "success"},
			"data":         map[string]any{"id": 7, "nombre": req.Body["nombre"], "is_active": true},
		})
	case r.URL.Path == "/api/bodegas/1/" && r.Method == http.MethodPatch:
		_ = json.NewEncoder(w).Encode(norte)
	case r.URL.Path == "/api/bodegas/1/archivar/":
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "nombre": "Bodega Norte", "is_active": false, "archived_at": "2026-01-01T00:00:00Z"})
	case r.URL.Path == "/api/bodegas/1/" && r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "No encontrado."})
	}
}

func (f *fakeBackend) find(method, path string) []apiRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiRequest
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// run выполняет agroctl с аргументами и возвращает stdout, stderr и ошибку.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func newBackend(t *testing.T) (*fakeBackend, string) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return backend, srv.URL + "/api"
}

func TestList(t *testing.T) {
	backend, apiURL := newBackend(t)

	out, _, err := run(t, "bodegas", "list", "--api-url", apiURL, "--filter", "nombre=norte", "--estado", "todas")
	require.NoError(t, err)

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "NOMBRE")
	assert.Contains(t, out, "Bodega Norte")
	assert.Contains(t, out, "Mendoza")
	assert.Contains(t, out, "Página 1 de 1 · 1 registros")

	reqs := backend.find(http.MethodGet, "/api/bodegas/")
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Query, "nombre=norte")
	assert.Contains(t, reqs[0].Query, "estado=all")
}

func TestList_Errors(t *testing.T) {
	_, apiURL := newBackend(t)

	_, _, err := run(t, "bodegas", "list", "--api-url", apiURL, "--estado", "borradas")
	assert.ErrorContains(t, err, "estado desconocido")

	_, _, err = run(t, "bodegas", "list", "--api-url", apiURL, "--filter", "sin-igual")
	assert.ErrorContains(t, err, "clave=valor")

	_, _, err = run(t, "temporadas", "list", "--api-url", apiURL)
	assert.Error(t, err, "ошибка загрузки списка должна вернуться")
}

func TestConfig_FromFileAndEnv(t *testing.T) {
	_, apiURL := newBackend(t)

	path := filepath.Join(t.TempDir(), "agroctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: "+apiURL+"\npage_size: 5\n"), 0o600))
	out, _, err := run(t, "bodegas", "list", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Bodega Norte")

	t.Setenv("AGROCTL_API_URL", apiURL)
	out, _, err = run(t, "bodegas", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Bodega Norte")
}

func TestConfig_MissingAPIURL(t *testing.T) {
	_, _, err := run(t, "bodegas", "list")
	assert.ErrorContains(t, err, "api_url")

	_, err = loadConfig("", newRootCmd(io.Discard, io.Discard).PersistentFlags())
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	backend, apiURL := newBackend(t)

	out, _, err := run(t, "bodegas", "create", "--api-url", apiURL,
		"--set", "nombre=Bodega Sur", "--set", "capacidad=1500,5")
	require.NoError(t, err)
	assert.Contains(t, out, "[success] Bodega creada")
	assert.Contains(t, out, "ID 7")

	posts := backend.find(http.MethodPost, "/api/bodegas/")
	require.Len(t, posts, 1)
	assert.Equal(t, "Bodega Sur", posts[0].Body["nombre"])
	assert.InDelta(t, 1500.5, posts[0].Body["capacidad"], 0.001)
}

func TestCreate_LocalValidation(t *testing.T) {
	backend, apiURL := newBackend(t)

	_, errOut, err := run(t, "bodegas", "create", "--api-url", apiURL, "--set", "capacidad=mucha")
	require.Error(t, err)
	assert.ErrorAs(t, err, new(reported))
	assert.Contains(t, errOut, "Nombre: Este campo es obligatorio.")
	assert.Contains(t, errOut, "Capacidad: Ingrese un número válido.")
	assert.Less(t, strings.Index(errOut, "Nombre"), strings.Index(errOut, "Capacidad"))
	assert.Empty(t, backend.find(http.MethodPost, "/api/bodegas/"))
}

func TestCreate_BackendValidation(t *testing.T) {
	_, apiURL := newBackend(t)

	out, errOut, err := run(t, "bodegas", "create", "--api-url", apiURL, "--set", "nombre=duplicada")
	require.Error(t, err)
	assert.ErrorAs(t, err, new(reported))
	assert.Contains(t, out, "[error]")
	assert.Contains(t, errOut, "Nombre: Ya existe una bodega con ese nombre.")
}

func TestUpdate_SendsOnlyGivenFields(t *testing.T) {
	backend, apiURL := newBackend(t)

	_, _, err := run(t, "bodegas", "update", "1", "--api-url", apiURL, "--set", "ubicacion=Luján")
	require.NoError(t, err)

	patches := backend.find(http.MethodPatch, "/api/bodegas/1/")
	require.Len(t, patches, 1)
	assert.Equal(t, map[string]any{"ubicacion": "Luján"}, patches[0].Body)

	_, _, err = run(t, "bodegas", "update", "1", "--api-url", apiURL)
	assert.ErrorContains(t, err, "--set")

	_, _, err = run(t, "bodegas", "update", "cero", "--api-url", apiURL, "--set", "ubicacion=x")
	assert.ErrorContains(t, err, "ID no válido")
}

func TestActions(t *testing.T) {
	backend, apiURL := newBackend(t)

	out, _, err := run(t, "bodegas", "archive", "1", "--api-url", apiURL)
	require.NoError(t, err)
	assert.Contains(t, out, "[success]")
	assert.Len(t, backend.find(http.MethodPost, "/api/bodegas/1/archivar/"), 1)

	_, _, err = run(t, "bodegas", "delete", "1", "--api-url", apiURL)
	require.NoError(t, err)
	assert.Len(t, backend.find(http.MethodDelete, "/api/bodegas/1/"), 1)

	out, _, err = run(t, "bodegas", "restore", "9", "--api-url", apiURL)
	require.Error(t, err)
	assert.Contains(t, out, "[error]")
}

func TestParsePairs(t *testing.T) {
	values, err := parsePairs([]string{"nombre=a=b", " ubicacion =", "año=2026"})
	require.NoError(t, err)
	assert.Equal(t, "a=b", values.Get("nombre"))
	assert.True(t, values.Has("ubicacion"))
	assert.Equal(t, "2026", values.Get("año"))

	_, err = parsePairs([]string{"=x"})
	assert.Error(t, err)
}
