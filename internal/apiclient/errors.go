// errors.go — ошибки клиента: транспортная ошибка и два варианта отказа
// backend'а (валидация и общая ошибка сервера).
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/bigkaa/agroadmin/internal/notify"
)

var (
	// ErrNotFound — backend ответил 404.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — backend ответил 409.
	ErrConflict = errors.New("конфликт")
)

// Короткие сообщения для пользователя. Сырые ошибки транспорта в UI не попадают.
const (
	msgTransport  = "No se pudo conectar con el servidor"
	msgCanceled   = "La solicitud fue cancelada"
	msgValidation = "Revise los campos del formulario"
	msgServer     = "Error del servidor"
	msgNotFound   = "El registro no existe"
	msgUnexpected = "Ocurrió un error inesperado"
)

// TransportError — запрос не получил HTTP-ответа (сеть, DNS, TLS, таймаут, отмена).
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("запрос %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationFailure — 400/409/422 с ошибками по полям.
type ValidationFailure struct {
	Status int
	// FieldErrors — ключ поля → сообщения
	FieldErrors map[string][]string
	// FormErrors — ошибки формы, не привязанные к полю
	FormErrors   []string
	Notification *notify.Notification
}

func (e *ValidationFailure) Error() string {
	keys := make([]string, 0, len(e.FieldErrors))
	for k := range e.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("ошибка валидации (HTTP %d): поля [%s], форма %d",
		e.Status, strings.Join(keys, ", "), len(e.FormErrors))
}

// Is позволяет errors.Is(err, ErrConflict) для 409.
func (e *ValidationFailure) Is(target error) bool {
	return target == ErrConflict && e.Status == http.StatusConflict
}

// GenericFailure — прочие не-2xx ответы или 2xx с success=false.
type GenericFailure struct {
	Status       int
	Message      string
	Notification *notify.Notification
}

func (e *GenericFailure) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ошибка backend (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("ошибка backend (HTTP %d): %s", e.Status, e.Message)
}

// Is позволяет errors.Is(err, ErrNotFound) для 404 и ErrConflict для 409.
func (e *GenericFailure) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// UserMessage возвращает короткое сообщение для пользователя по любой ошибке клиента.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var vf *ValidationFailure
	if errors.As(err, &vf) {
		if len(vf.FormErrors) > 0 {
			return vf.FormErrors[0]
		}
		if vf.Notification != nil && vf.Notification.Message != "" {
			return vf.Notification.Message
		}
		return msgValidation
	}

	var gf *GenericFailure
	if errors.As(err, &gf) {
		if gf.Notification != nil && gf.Notification.Message != "" {
			return gf.Notification.Message
		}
		if gf.Message != "" {
			return gf.Message
		}
		if gf.Status == http.StatusNotFound {
			return msgNotFound
		}
		return msgServer
	}

	if errors.Is(err, context.Canceled) {
		return msgCanceled
	}

	var te *TransportError
	if errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded) {
		return msgTransport
	}

	return msgUnexpected
}

// NotificationOf возвращает уведомление backend'а, приложенное к ошибке (или nil).
func NotificationOf(err error) *notify.Notification {
	var vf *ValidationFailure
	if errors.As(err, &vf) {
		return vf.Notification
	}
	var gf *GenericFailure
	if errors.As(err, &gf) {
		return gf.Notification
	}
	return nil
}

// FirstField возвращает первое поле с ошибкой в порядке полей формы (для фокуса).
// Поля, отсутствующие в order, проверяются после, в алфавитном порядке.
func FirstField(fieldErrors map[string][]string, order []string) string {
	for _, key := range order {
		if len(fieldErrors[key]) > 0 {
			return key
		}
	}
	rest := make([]string, 0, len(fieldErrors))
	for k, msgs := range fieldErrors {
		if len(msgs) > 0 {
			rest = append(rest, k)
		}
	}
	if len(rest) == 0 {
		return ""
	}
	sort.Strings(rest)
	return rest[0]
}
