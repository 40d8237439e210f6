// Пакет pages — страницы и HTML-фрагменты Admin UI на templ.
// Разметка лежит в *.templ, Go-файлы рядом содержат данные страниц
// и адреса HTMX-фрагментов. Тексты интерфейса берутся из i18n
// по языку запроса.
package pages

//go:generate templ generate

import (
	"github.com/bigkaa/agroadmin/internal/notify"
)

// Идентификаторы общих контейнеров страницы.
const (
	// ToastsID — контейнер уведомлений
	ToastsID = "toasts"
	// ModalID — контейнер модального окна формы
	ModalID = "modal"
)

// HTMX и его SSE-расширение подключаются с CDN, остальные ресурсы встроены в бинарник.
const (
	htmxSrc    = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"
	htmxSSESrc = "https://unpkg.com/htmx-ext-sse@2.2.2/sse.js"
)

// LayoutData — данные общей разметки страницы.
type LayoutData struct {
	// Title — заголовок страницы (уже переведённый)
	Title string
	// Active — активный пункт навигации: "dashboard" или имя сущности
	Active   string
	Username string
	// Notifications — уведомления, накопленные до рендеринга страницы
	Notifications []notify.Notification
}
