// Пакет notify — уведомления (toasts) для пользователя UI.
// Сервер присылает уведомление в каждом ответе на мутацию
// ({message, type, key}); слой UI пересылает его получателю без фильтрации.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Severity — уровень уведомления.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// NormalizeSeverity приводит произвольное значение "type" из ответа сервера
// к одному из известных уровней. Пустое значение — info, нераспознанное — error.
func NormalizeSeverity(s string) Severity {
	switch Severity(s) {
	case SeveritySuccess, SeverityInfo, SeverityWarning, SeverityError:
		return Severity(s)
	case "":
		return SeverityInfo
	case "ok":
		return SeveritySuccess
	case "warn":
		return SeverityWarning
	default:
		// danger, fail и любые нераспознанные значения
		return SeverityError
	}
}

// Notification — одно уведомление.
type Notification struct {
	Message  string   `json:"message"`
	Severity Severity `json:"type"`
	// Key — необязательный ключ для дедупликации на стороне UI
	Key string `json:"key,omitempty"`
}

// Notifier — получатель уведомлений.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc — адаптер функции к Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify реализует Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Discard — Notifier, игнорирующий уведомления.
var Discard Notifier = NotifierFunc(func(context.Context, Notification) {})

// Multi рассылает уведомление всем получателям по порядку.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) {
		for _, nt := range notifiers {
			if nt != nil {
				nt.Notify(ctx, n)
			}
		}
	})
}

// InboxCapacity — максимальное число неотображённых уведомлений в Inbox.
const InboxCapacity = 20

// Inbox — очередь уведомлений одной UI-сессии.
// Страница при рендеринге забирает накопленные уведомления (Drain).
// При переполнении вытесняются самые старые.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
}

// NewInbox создаёт пустой Inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Notify реализует Notifier.
func (in *Inbox) Notify(_ context.Context, n Notification) {
	in.mu.Lock()
	defer in.mu.Unlock()

	// Уведомление с тем же ключом заменяет предыдущее
	if n.Key != "" {
		for i := range in.items {
			if in.items[i].Key == n.Key {
				in.items = append(in.items[:i], in.items[i+1:]...)
				break
			}
		}
	}

	in.items = append(in.items, n)
	if len(in.items) > InboxCapacity {
		in.items = in.items[len(in.items)-InboxCapacity:]
	}
}

// Drain возвращает накопленные уведомления и очищает очередь.
func (in *Inbox) Drain() []Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.items
	in.items = nil
	return out
}

// Discard убирает из очереди уведомление, равное n (последнее из совпадающих).
// Возвращает false, если такого нет.
func (in *Inbox) Discard(n Notification) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := len(in.items) - 1; i >= 0; i-- {
		if in.items[i] == n {
			in.items = append(in.items[:i], in.items[i+1:]...)
			return true
		}
	}
	return false
}

// Len возвращает число ожидающих уведомлений.
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.items)
}

// LogNotifier пишет уведомления в slog (используется CLI и фоновыми задачами).
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier создаёт LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

// Notify реализует Notifier.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	switch n.Severity {
	case SeverityError:
		level = slog.LevelError
	case SeverityWarning:
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(ctx, level, n.Message,
		slog.String("severity", string(n.Severity)),
		slog.String("key", n.Key),
	)
}
