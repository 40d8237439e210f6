package i18n

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// LangCookieName — cookie с выбранным пользователем языком.
const LangCookieName = "lang"

// langCookieTTL — срок хранения выбора языка.
const langCookieTTL = 365 * 24 * time.Hour

type ctxKey struct{}

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// LangFromContext возвращает язык из контекста или DefaultLang.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(ctxKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// T возвращает текст ключа на языке запроса. До Setup возвращает ключ.
func T(ctx context.Context, key string) string {
	c := current()
	if c == nil {
		return key
	}
	return c.Translate(LangFromContext(ctx), key)
}

// Tf — T с подстановкой аргументов в шаблон из каталога.
func Tf(ctx context.Context, key string, args ...any) string {
	tmpl := T(ctx, key)
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// Middleware определяет язык запроса и кладёт его в контекст.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), Negotiate(r))))
		})
	}
}

// Negotiate выбирает язык запроса: поддерживаемое значение cookie,
// затем Accept-Language.
func Negotiate(r *http.Request) string {
	if c, err := r.Cookie(LangCookieName); err == nil && IsSupported(c.Value) {
		return c.Value
	}
	return MatchLanguage(r.Header.Get("Accept-Language"))
}

// SetLangCookie запоминает выбор языка. Неподдерживаемый код заменяется
// на DefaultLang. Возвращает записанный код.
func SetLangCookie(w http.ResponseWriter, lang string) string {
	if !IsSupported(lang) {
		lang = DefaultLang
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   int(langCookieTTL / time.Second),
		SameSite: http.SameSiteLaxMode,
	})
	return lang
}
