// Пакет handlers — HTTP-обработчики Admin UI.
// Файл entities.go — страницы списков бодег и сезонов: полная страница,
// HTMX-фрагмент таблицы, модальная форма и мутации (создание, изменение,
// архивирование, восстановление, удаление).
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/agroadmin/internal/apiclient"
	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/liststate"
	"github.com/bigkaa/agroadmin/internal/store"
	"github.com/bigkaa/agroadmin/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/agroadmin/internal/ui/middleware"
	"github.com/bigkaa/agroadmin/internal/ui/pages"
	"github.com/bigkaa/agroadmin/internal/ui/table"
	"github.com/bigkaa/agroadmin/internal/ui/views"
)

// Query-параметры страницы списка.
const (
	paramStatus  = "estado"
	paramPage    = "page"
	paramClear   = "clear"
	paramRefresh = "refresh"
)

// entityRoutes — обработчики одной сущности.
type entityRoutes interface {
	list(w http.ResponseWriter, r *http.Request, st *store.Store)
	table(w http.ResponseWriter, r *http.Request, st *store.Store)
	form(w http.ResponseWriter, r *http.Request, st *store.Store, id int64)
	create(w http.ResponseWriter, r *http.Request, st *store.Store)
	update(w http.ResponseWriter, r *http.Request, st *store.Store, id int64)
	archive(w http.ResponseWriter, r *http.Request, st *store.Store, id int64)
	restore(w http.ResponseWriter, r *http.Request, st *store.Store, id int64)
	remove(w http.ResponseWriter, r *http.Request, st *store.Store, id int64)
}

// EntitiesHandler — обработчик страниц списков. Сущность выбирается
// параметром маршрута {entity}.
type EntitiesHandler struct {
	routes map[string]entityRoutes
	logger *slog.Logger
}

// NewEntitiesHandler создаёт обработчик для всех сущностей каталога представлений.
func NewEntitiesHandler(catalog *views.Catalog, logger *slog.Logger) (*EntitiesHandler, error) {
	logger = logger.With(slog.String("component", "ui.entities"))

	warehouses, ok := catalog.View(model.EntityWarehouses)
	if !ok {
		return nil, errors.New("нет представления " + model.EntityWarehouses)
	}
	seasons, ok := catalog.View(model.EntitySeasons)
	if !ok {
		return nil, errors.New("нет представления " + model.EntitySeasons)
	}

	return &EntitiesHandler{
		routes: map[string]entityRoutes{
			model.EntityWarehouses: newEntityHandler(warehouses,
				func(st *store.Store) *liststate.Synchronizer[model.Warehouse] { return st.Warehouses }, logger),
			model.EntitySeasons: newEntityHandler(seasons,
				func(st *store.Store) *liststate.Synchronizer[model.Season] { return st.Seasons }, logger),
		},
		logger: logger,
	}, nil
}

// Register регистрирует маршруты списков. r — роутер /admin.
func (h *EntitiesHandler) Register(r chi.Router) {
	r.Get("/{entity}", h.HandleList)
	r.Route("/partials/{entity}", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/table", h.HandleTable)
		r.Get("/form", h.HandleNewForm)
		r.Get("/form/{id}", h.HandleEditForm)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/archive", h.HandleArchive)
		r.Post("/{id}/restore", h.HandleRestore)
	})
}

// resolve находит обработчик сущности и Store сессии.
// При ошибке ответ уже записан.
func (h *EntitiesHandler) resolve(w http.ResponseWriter, r *http.Request) (entityRoutes, *store.Store, bool) {
	routes, ok := h.routes[chi.URLParam(r, "entity")]
	if !ok {
		http.Error(w, i18n.T(r.Context(), "error.not_found"), http.StatusNotFound)
		return nil, nil, false
	}
	st := uimiddleware.StoreFromContext(r.Context())
	if st == nil {
		http.Error(w, "Sesión no disponible", http.StatusUnauthorized)
		return nil, nil, false
	}
	return routes, st, true
}

// resolveItem дополнительно разбирает {id}.
func (h *EntitiesHandler) resolveItem(w http.ResponseWriter, r *http.Request) (entityRoutes, *store.Store, int64, bool) {
	routes, st, ok := h.resolve(w, r)
	if !ok {
		return nil, nil, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, i18n.T(r.Context(), "error.not_found"), http.StatusNotFound)
		return nil, nil, 0, false
	}
	return routes, st, id, true
}

// HandleList обрабатывает GET /admin/{entity} — полная страница списка.
func (h *EntitiesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if routes, st, ok := h.resolve(w, r); ok {
		routes.list(w, r, st)
	}
}

// HandleTable обрабатывает GET /admin/partials/{entity}/table — фрагмент таблицы.
// Параметры: estado, page, фильтры представления, clear=1, refresh=1.
func (h *EntitiesHandler) HandleTable(w http.ResponseWriter, r *http.Request) {
	if routes, st, ok := h.resolve(w, r); ok {
		routes.table(w, r, st)
	}
}

// HandleNewForm обрабатывает GET /admin/partials/{entity}/form — форма создания.
func (h *EntitiesHandler) HandleNewForm(w http.ResponseWriter, r *http.Request) {
	if routes, st, ok := h.resolve(w, r); ok {
		routes.form(w, r, st, 0)
	}
}

// HandleEditForm обрабатывает GET /admin/partials/{entity}/form/{id} — форма редактирования.
func (h *EntitiesHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	if routes, st, id, ok := h.resolveItem(w, r); ok {
		routes.form(w, r, st, id)
	}
}

// HandleCreate обрабатывает POST /admin/partials/{entity}.
func (h *EntitiesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if routes, st, ok := h.resolve(w, r); ok {
		routes.create(w, r, st)
	}
}

// HandleUpdate обрабатывает PUT /admin/partials/{entity}/{id}.
func (h *EntitiesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if routes, st, id, ok := h.resolveItem(w, r); ok {
		routes.update(w, r, st, id)
	}
}

// HandleArchive обрабатывает POST /admin/partials/{entity}/{id}/archive.
func (h *EntitiesHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	if routes, st, id, ok := h.resolveItem(w, r); ok {
		routes.archive(w, r, st, id)
	}
}

// HandleRestore обрабатывает POST /admin/partials/{entity}/{id}/restore.
func (h *EntitiesHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	if routes, st, id, ok := h.resolveItem(w, r); ok {
		routes.restore(w, r, st, id)
	}
}

// HandleDelete обрабатывает DELETE /admin/partials/{entity}/{id}.
func (h *EntitiesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if routes, st, id, ok := h.resolveItem(w, r); ok {
		routes.remove(w, r, st, id)
	}
}

// record — запись списка, поля которой доступны по ключу.
type record[T any] interface {
	model.Entity[T]
	model.FieldSource
}

// entityHandler — обработчики списка одной сущности.
type entityHandler[T record[T]] struct {
	view    views.View
	columns []table.Column[T]
	sync    func(st *store.Store) *liststate.Synchronizer[T]
	logger  *slog.Logger
}

func newEntityHandler[T record[T]](view views.View, sync func(*store.Store) *liststate.Synchronizer[T], logger *slog.Logger) *entityHandler[T] {
	return &entityHandler[T]{
		view:    view,
		columns: views.Columns[T](view),
		sync:    sync,
		logger:  logger.With(slog.String("entity", view.Entity)),
	}
}

func (h *entityHandler[T]) data(s *liststate.Synchronizer[T]) pages.ListData[T] {
	return pages.ListData[T]{
		View:    h.view,
		State:   s.State(),
		Columns: h.columns,
		Field:   table.FieldOf[T](),
	}
}

// navigate применяет query-параметры к списку. Возвращает true, если
// изменились вкладка или фильтры (их нужно сохранить в настройках).
func (h *entityHandler[T]) navigate(q url.Values, s *liststate.Synchronizer[T]) bool {
	before := s.State()

	var status model.StatusFilter
	if raw := q.Get(paramStatus); raw != "" {
		if parsed, ok := model.ParseStatus(raw); ok {
			status = parsed
		}
	}

	var filters map[string]string
	switch {
	case q.Get(paramClear) == "1":
		filters = map[string]string{}
	case h.hasFilterParams(q):
		filters = h.view.FilterValues(q)
	}

	page, _ := strconv.Atoi(q.Get(paramPage))
	s.Navigate(status, filters, page)

	after := s.State()
	return after.Status != before.Status || !model.FiltersEqual(after.Filters, before.Filters)
}

func (h *entityHandler[T]) hasFilterParams(q url.Values) bool {
	for _, f := range h.view.Filters {
		if q.Has(f.Key) {
			return true
		}
	}
	return false
}

// load приводит список в соответствие с запросом. Ошибка загрузки
// уже записана в State.Error, поэтому здесь только логируется.
func (h *entityHandler[T]) load(r *http.Request, st *store.Store, s *liststate.Synchronizer[T]) {
	ctx := r.Context()
	q := r.URL.Query()

	if h.navigate(q, s) {
		if err := st.SavePreferences(ctx, h.view.Entity); err != nil {
			h.logger.Debug("Настройки представления не сохранены", slog.String("error", err.Error()))
		}
	}

	var err error
	if q.Get(paramRefresh) == "1" {
		err = s.Refresh(ctx)
	} else {
		err = s.Sync(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debug("Загрузка списка завершилась ошибкой", slog.String("error", err.Error()))
	}
}

func (h *entityHandler[T]) list(w http.ResponseWriter, r *http.Request, st *store.Store) {
	s := h.sync(st)
	h.load(r, st, s)

	layout := pages.LayoutData{
		Title:         h.view.Title,
		Active:        h.view.Entity,
		Username:      st.Username,
		Notifications: st.Inbox.Drain(),
	}
	render(w, r, h.logger, pages.Layout(layout, pages.ListPage(h.data(s))))
}

func (h *entityHandler[T]) table(w http.ResponseWriter, r *http.Request, st *store.Store) {
	s := h.sync(st)
	h.load(r, st, s)
	h.renderTable(w, r, st, s)
}

func (h *entityHandler[T]) renderTable(w http.ResponseWriter, r *http.Request, st *store.Store, s *liststate.Synchronizer[T]) {
	render(w, r, h.logger, pages.ListTable(h.data(s), st.Inbox.Drain()))
}

func (h *entityHandler[T]) form(w http.ResponseWriter, r *http.Request, st *store.Store, id int64) {
	ctx := r.Context()
	if id == 0 {
		render(w, r, h.logger, pages.Form(h.formData(ctx, 0, nil)))
		return
	}

	// Редактируется запись текущей страницы
	for _, item := range h.sync(st).State().Items {
		if item.RecordID() != id {
			continue
		}
		values := make(map[string]string, len(h.view.Form))
		for _, f := range h.view.Form {
			values[f.Key] = table.Stringify(item.Field(f.Key))
		}
		render(w, r, h.logger, pages.Form(h.formData(ctx, id, values)))
		return
	}

	d := h.formData(ctx, id, nil)
	d.FormErrors = []string{i18n.T(ctx, "form.not_found")}
	render(w, r, h.logger, pages.Form(d))
}

func (h *entityHandler[T]) formData(ctx context.Context, id int64, values map[string]string) pages.FormData {
	if id == 0 {
		return pages.FormData{
			Title:  i18n.Tf(ctx, "form.create_title", h.view.Singular),
			Action: "/admin/partials/" + h.view.Entity,
			Method: "post",
			Fields: h.view.Form,
			Values: values,
		}
	}
	return pages.FormData{
		Title:  i18n.Tf(ctx, "form.edit_title", h.view.Singular),
		Action: pages.ItemURL(h.view.Entity, id, ""),
		Method: "put",
		Fields: h.view.Form,
		Values: values,
	}
}

func (h *entityHandler[T]) create(w http.ResponseWriter, r *http.Request, st *store.Store) {
	h.submit(w, r, st, 0, func(ctx context.Context, payload map[string]any) error {
		_, err := h.sync(st).Create(ctx, payload)
		return err
	})
}

func (h *entityHandler[T]) update(w http.ResponseWriter, r *http.Request, st *store.Store, id int64) {
	h.submit(w, r, st, id, func(ctx context.Context, payload map[string]any) error {
		_, err := h.sync(st).Update(ctx, id, payload)
		return err
	})
}

// submit обрабатывает отправку формы. Ошибки приведения и ошибки валидации
// backend возвращают форму с сообщениями и фокусом на первом поле с ошибкой.
// При успехе модальное окно очищается, а список перезагружается по HX-Trigger.
func (h *entityHandler[T]) submit(w http.ResponseWriter, r *http.Request, st *store.Store, id int64,
	save func(ctx context.Context, payload map[string]any) error,
) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		d := h.formData(ctx, id, nil)
		d.FormErrors = []string{i18n.T(ctx, "form.bad_request")}
		render(w, r, h.logger, pages.Form(d))
		return
	}

	values := make(map[string]string, len(h.view.Form))
	for _, f := range h.view.Form {
		values[f.Key] = r.PostForm.Get(f.Key)
	}

	payload, fieldErrors := h.view.Payload(r.PostForm)
	if len(fieldErrors) > 0 {
		d := h.formData(ctx, id, values)
		d.FieldErrors = fieldErrors
		d.Focus = apiclient.FirstField(fieldErrors, h.view.FieldOrder())
		render(w, r, h.logger, pages.Form(d))
		return
	}

	err := save(ctx, payload)
	if err != nil {
		var mutErr *liststate.MutationError
		if errors.As(err, &mutErr) && mutErr.IsValidation() {
			d := h.formData(ctx, id, values)
			d.FieldErrors = mutErr.FieldErrors
			d.FormErrors = mutErr.FormErrors
			d.Focus = apiclient.FirstField(mutErr.FieldErrors, h.view.FieldOrder())
			h.renderFailedForm(w, r, st, d, mutErr)
			return
		}

		h.logger.Debug("Ошибка сохранения записи", slog.String("error", detail(err)))
		d := h.formData(ctx, id, values)
		d.FormErrors = []string{err.Error()}
		h.renderFailedForm(w, r, st, d, mutErr)
		return
	}

	w.Header().Set("HX-Trigger", pages.ListChangedEvent)
	render(w, r, h.logger, pages.ToastsOOB(st.Inbox.Drain()))
}

// renderFailedForm возвращает форму с ошибками. Уведомление самой мутации
// уже показано в форме и убирается из очереди; остальные ожидающие
// уведомления выводятся out-of-band.
func (h *entityHandler[T]) renderFailedForm(w http.ResponseWriter, r *http.Request, st *store.Store,
	d pages.FormData, mutErr *liststate.MutationError,
) {
	if mutErr != nil {
		st.Inbox.Discard(mutErr.Notification)
	}
	d.Notifications = st.Inbox.Drain()
	render(w, r, h.logger, pages.Form(d))
}

func (h *entityHandler[T]) archive(w http.ResponseWriter, r *http.Request, st *store.Store, id int64) {
	s := h.sync(st)
	_, err := s.Archive(r.Context(), id)
	h.afterMutation(w, r, st, s, err)
}

func (h *entityHandler[T]) restore(w http.ResponseWriter, r *http.Request, st *store.Store, id int64) {
	s := h.sync(st)
	_, err := s.Restore(r.Context(), id)
	h.afterMutation(w, r, st, s, err)
}

func (h *entityHandler[T]) remove(w http.ResponseWriter, r *http.Request, st *store.Store, id int64) {
	s := h.sync(st)
	err := s.Delete(r.Context(), id)
	h.afterMutation(w, r, st, s, err)
}

// afterMutation отвечает актуальной таблицей. Результат операции
// (успех или ошибка) показывается уведомлением из Inbox.
func (h *entityHandler[T]) afterMutation(w http.ResponseWriter, r *http.Request, st *store.Store, s *liststate.Synchronizer[T], err error) {
	if err != nil {
		h.logger.Debug("Ошибка операции над записью", slog.String("error", detail(err)))
	}
	h.renderTable(w, r, st, s)
}

// detail возвращает описание ошибки для логов.
func detail(err error) string {
	var mutErr *liststate.MutationError
	if errors.As(err, &mutErr) {
		return mutErr.Detail()
	}
	return err.Error()
}

// render пишет HTML-ответ. Фрагменты с ошибками формы тоже отдаются
// со статусом 200: HTMX не подставляет ответы 4xx.
func render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logger.Error("Ошибка рендеринга",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}
