// resource.go — REST-ресурс одной сущности (bodegas, temporadas).
package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bigkaa/agroadmin/internal/domain/model"
)

// Параметры запроса, зарезервированные клиентом. Одноимённые фильтры игнорируются.
const (
	paramPage   = "page"
	paramStatus = "estado"
)

// Resource — CRUD и soft-delete операции над коллекцией /{path}/.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource создаёт ресурс для коллекции path (например, "bodegas").
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

// Name возвращает имя коллекции.
func (r *Resource[T]) Name() string {
	return r.path
}

// List загружает страницу списка.
// GET /{path}/?page=N&estado=active|archived|all&<фильтры>
func (r *Resource[T]) List(ctx context.Context, q model.ListQuery) (model.Page[T], error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	status := q.Status
	if status == "" {
		status = model.StatusActive
	}

	query := url.Values{}
	query.Set(paramPage, strconv.Itoa(page))
	query.Set(paramStatus, status.String())
	for k, v := range model.NormalizeFilters(q.Filters) {
		if k == paramPage || k == paramStatus {
			continue
		}
		query.Set(k, v)
	}

	resp, err := r.client.do(ctx, http.MethodGet, r.collectionPath(), query, nil)
	if err != nil {
		return model.Page[T]{}, err
	}
	return decodeList[T](resp, page, r.client.pageSize)
}

// Create создаёт запись. POST /{path}/
func (r *Resource[T]) Create(ctx context.Context, payload any) (Success[T], error) {
	resp, err := r.client.do(ctx, http.MethodPost, r.collectionPath(), nil, payload)
	return settle[T](resp, err)
}

// Update частично обновляет запись. PATCH /{path}/{id}/
func (r *Resource[T]) Update(ctx context.Context, id int64, payload any) (Success[T], error) {
	resp, err := r.client.do(ctx, http.MethodPatch, r.itemPath(id, ""), nil, payload)
	return settle[T](resp, err)
}

// Delete удаляет запись. DELETE /{path}/{id}/
func (r *Resource[T]) Delete(ctx context.Context, id int64) (Success[T], error) {
	resp, err := r.client.do(ctx, http.MethodDelete, r.itemPath(id, ""), nil, nil)
	return settle[T](resp, err)
}

// Archive переводит запись в архив. POST /{path}/{id}/archivar/
func (r *Resource[T]) Archive(ctx context.Context, id int64) (Success[T], error) {
	resp, err := r.client.do(ctx, http.MethodPost, r.itemPath(id, "archivar"), nil, nil)
	return settle[T](resp, err)
}

// Restore возвращает запись из архива. POST /{path}/{id}/restaurar/
func (r *Resource[T]) Restore(ctx context.Context, id int64) (Success[T], error) {
	resp, err := r.client.do(ctx, http.MethodPost, r.itemPath(id, "restaurar"), nil, nil)
	return settle[T](resp, err)
}

// Ping проверяет доступность коллекции (GET первой страницы).
func (r *Resource[T]) Ping(ctx context.Context) error {
	_, err := r.List(ctx, model.ListQuery{Page: 1, Status: model.StatusActive})
	return err
}

func (r *Resource[T]) collectionPath() string {
	return "/" + r.path + "/"
}

func (r *Resource[T]) itemPath(id int64, action string) string {
	p := "/" + r.path + "/" + strconv.FormatInt(id, 10) + "/"
	if action != "" {
		p += action + "/"
	}
	return p
}
