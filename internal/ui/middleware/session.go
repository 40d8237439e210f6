// Пакет middleware — HTTP middleware для Admin UI.
// session.go — UI-сессия (cookie-based) и состояние списков сессии.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bigkaa/agroadmin/internal/store"
	"github.com/bigkaa/agroadmin/internal/ui/session"
)

// UserHeader — заголовок с именем пользователя от аутентифицирующего прокси.
const UserHeader = "X-Forwarded-User"

// AnonymousUser — имя пользователя без заголовка UserHeader.
const AnonymousUser = "anonymous"

// contextKey — тип для ключей контекста UI (избегаем коллизий с API middleware).
type contextKey string

const (
	// ContextKeyUISession — данные UI-сессии в контексте запроса.
	ContextKeyUISession contextKey = "ui_session"
	// ContextKeyStore — состояние списков сессии в контексте запроса.
	ContextKeyStore contextKey = "ui_store"
)

// Sessions — middleware UI-сессий. Создаёт сессию при отсутствии cookie,
// при повреждённом или истёкшем cookie и при смене пользователя,
// затем помещает в контекст сессию и её Store.
type Sessions struct {
	manager  *session.Manager
	registry *store.Registry
	logger   *slog.Logger
}

// NewSessions создаёт middleware UI-сессий.
func NewSessions(manager *session.Manager, registry *store.Registry, logger *slog.Logger) *Sessions {
	return &Sessions{
		manager:  manager,
		registry: registry,
		logger:   logger.With(slog.String("component", "ui_session_middleware")),
	}
}

// Middleware возвращает HTTP middleware.
func (s *Sessions) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username := strings.TrimSpace(r.Header.Get(UserHeader))
			if username == "" {
				username = AnonymousUser
			}

			// 1. Извлекаем сессию из cookie
			data, err := s.manager.FromRequest(r)
			if err != nil {
				s.logger.Debug("Ошибка чтения UI-сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				data = nil
			}

			// 2. Новая сессия: нет cookie, истекла или сменился пользователь
			if data == nil || data.IsExpired() || data.Username != username {
				if data != nil {
					s.registry.Remove(data.ID)
				}
				data = s.manager.New(username)
				if err := s.manager.SetCookie(w, data); err != nil {
					s.logger.Error("Ошибка установки session cookie",
						slog.String("error", err.Error()),
					)
					http.Error(w, "Error de sesión", http.StatusInternalServerError)
					return
				}
				s.logger.Debug("Создана UI-сессия",
					slog.String("session", data.ID),
					slog.String("username", username),
				)
			}

			// 3. Помещаем сессию и её Store в контекст
			st := s.registry.Get(r.Context(), data.ID, data.Username)
			ctx := context.WithValue(r.Context(), ContextKeyUISession, data)
			ctx = context.WithValue(ctx, ContextKeyStore, st)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext извлекает Data из контекста запроса.
// Возвращает nil если сессия не найдена (не прошёл через Sessions middleware).
func SessionFromContext(ctx context.Context) *session.Data {
	data, ok := ctx.Value(ContextKeyUISession).(*session.Data)
	if !ok {
		return nil
	}
	return data
}

// StoreFromContext извлекает Store сессии из контекста запроса.
func StoreFromContext(ctx context.Context) *store.Store {
	st, ok := ctx.Value(ContextKeyStore).(*store.Store)
	if !ok {
		return nil
	}
	return st
}

// WithStore помещает Store в контекст (для тестов обработчиков и CLI).
func WithStore(ctx context.Context, st *store.Store) context.Context {
	return context.WithValue(ctx, ContextKeyStore, st)
}

// WithSession помещает сессию в контекст.
func WithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, ContextKeyUISession, data)
}
