package liststate

import (
	"errors"
	"fmt"

	"github.com/bigkaa/agroadmin/internal/notify"
)

// ErrStale — ответ на загрузку списка отброшен: после него был начат более новый запрос.
var ErrStale = errors.New("устаревший ответ списка")

// Операции мутации (значение лейбла op и часть ключа уведомления).
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpArchive = "archive"
	OpRestore = "restore"
)

// MutationError — отказ мутации. Error() возвращает короткое сообщение
// для пользователя; исходная ошибка доступна через Unwrap.
type MutationError struct {
	Op     string
	Entity string
	// Message — сообщение для пользователя
	Message string
	// FieldErrors — ошибки по полям формы (только при ошибке валидации)
	FieldErrors map[string][]string
	// FormErrors — ошибки формы без привязки к полю
	FormErrors []string
	// Notification — уведомление, отправленное об этом отказе
	Notification notify.Notification
	Err          error
}

func (e *MutationError) Error() string {
	return e.Message
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// IsValidation сообщает, что backend отклонил данные формы.
func (e *MutationError) IsValidation() bool {
	return len(e.FieldErrors) > 0 || len(e.FormErrors) > 0
}

// Detail — описание для логов (с исходной ошибкой).
func (e *MutationError) Detail() string {
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Op, e.Err)
}
