// language.go — обработчик переключения языка UI.
package handlers

import (
	"net/http"
	"strings"

	"github.com/bigkaa/agroadmin/internal/ui/i18n"
)

// HandleSetLanguage обрабатывает POST /admin/set-language: запоминает
// выбранный язык (параметр lang) и возвращает на страницу, с которой пришёл запрос.
func HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	i18n.SetLangCookie(w, r.FormValue("lang"))

	// Redirect обратно на предыдущую страницу (только локальные пути) или на /admin/
	target := "/admin/"
	if ref := r.Header.Get("Referer"); ref != "" {
		if i := strings.Index(ref, "/admin"); i >= 0 && sameHost(ref[:i], r.Host) {
			target = ref[i:]
		}
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

// sameHost проверяет, что префикс Referer (схема и хост) указывает на этот сервер.
func sameHost(prefix, host string) bool {
	prefix = strings.TrimPrefix(strings.TrimPrefix(prefix, "https://"), "http://")
	return prefix == "" || prefix == host
}
