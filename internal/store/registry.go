package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики реестра сессий.
var (
	sessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agro_ui_sessions_created_total",
		Help: "Общее количество созданных состояний UI-сессий.",
	})
	sessionsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agro_ui_sessions_evicted_total",
		Help: "Общее количество состояний UI-сессий, вытесненных по TTL или размеру.",
	})
)

// Registry — LRU-реестр Store по идентификатору сессии с автоматическим TTL.
// Вытесненный Store закрывается (отменяются его загрузки).
type Registry struct {
	backends Backends
	opts     Options
	logger   *slog.Logger

	// mu защищает проверку и добавление Store; параллельные запросы
	// одной сессии получают один и тот же Store.
	mu    sync.Mutex
	cache *expirable.LRU[string, *Store]
}

// NewRegistry создаёт реестр.
// maxSize — максимальное число одновременно хранимых сессий.
// ttl — время жизни состояния сессии после последнего обращения.
func NewRegistry(b Backends, opts Options, maxSize int, ttl time.Duration, logger *slog.Logger) *Registry {
	r := &Registry{
		backends: b,
		opts:     opts,
		logger:   logger.With(slog.String("component", "store_registry")),
	}
	r.cache = expirable.NewLRU[string, *Store](maxSize, r.onEvict, ttl)
	return r
}

func (r *Registry) onEvict(id string, s *Store) {
	sessionsEvictedTotal.Inc()
	s.Close()
	r.logger.Debug("Состояние сессии вытеснено", slog.String("session", id))
}

// Get возвращает Store сессии, создавая его при отсутствии.
// Новый Store получает сохранённые настройки представлений пользователя;
// ошибка чтения настроек не мешает работе. Настройки читаются без
// блокировки реестра.
// Если в сессии сменился пользователь, Store создаётся заново.
func (r *Registry) Get(ctx context.Context, sessionID, username string) *Store {
	if s, ok := r.lookup(sessionID, username); ok {
		return s
	}

	s := New(sessionID, username, r.backends, r.opts, r.logger)
	if err := s.ApplyPreferences(ctx); err != nil {
		r.logger.Warn("Не удалось загрузить настройки представлений",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Параллельный запрос той же сессии мог успеть создать Store
	if cur, ok := r.cache.Get(sessionID); ok {
		if cur.Username == username {
			s.Close()
			r.cache.Add(sessionID, cur)
			return cur
		}
		cur.Close()
	}
	r.cache.Add(sessionID, s)
	sessionsCreatedTotal.Inc()

	r.logger.Debug("Создано состояние сессии",
		slog.String("session", sessionID),
		slog.String("username", username),
	)
	return s
}

// lookup возвращает существующий Store сессии того же пользователя
// и продлевает его TTL.
func (r *Registry) lookup(sessionID, username string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.cache.Get(sessionID)
	if !ok || s.Username != username {
		return nil, false
	}
	// Повторное добавление продлевает TTL
	r.cache.Add(sessionID, s)
	return s, true
}

// Peek возвращает Store без создания.
func (r *Registry) Peek(sessionID string) (*Store, bool) {
	return r.cache.Peek(sessionID)
}

// Remove удаляет и закрывает Store сессии.
func (r *Registry) Remove(sessionID string) {
	r.cache.Remove(sessionID)
}

// Len возвращает число хранимых сессий.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close закрывает все Store.
func (r *Registry) Close() {
	r.cache.Purge()
}
