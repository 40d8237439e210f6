package pages

import (
	"github.com/bigkaa/agroadmin/internal/notify"
	"github.com/bigkaa/agroadmin/internal/ui/views"
)

// FormData — модальная форма создания или редактирования записи.
type FormData struct {
	Title string
	// Action — адрес отправки формы
	Action string
	// Method — "post" (создание) или "put" (редактирование)
	Method string
	Fields []views.FieldDef
	// Values — текущие значения полей (строковые, как в форме)
	Values map[string]string
	// FieldErrors — ошибки по полям; FormErrors — ошибки всей формы
	FieldErrors map[string][]string
	FormErrors  []string
	// Focus — поле с autofocus (первое поле с ошибкой)
	Focus string
	// Notifications — прочие уведомления, выводятся out-of-band
	Notifications []notify.Notification
}

func (d FormData) isPut() bool { return d.Method == "put" }

// focus возвращает поле с autofocus: заданное явно или первое поле формы,
// если нет ошибок уровня формы.
func (d FormData) focus() string {
	if d.Focus != "" {
		return d.Focus
	}
	if len(d.Fields) > 0 && len(d.FormErrors) == 0 {
		return d.Fields[0].Key
	}
	return ""
}

func fieldID(key string) string { return "field-" + key }

func fieldErrorsID(key string) string { return fieldID(key) + "-errors" }

func inputType(fieldType string) string {
	switch fieldType {
	case views.FieldNumber, views.FieldInteger:
		return "number"
	case views.FieldDate:
		return "date"
	default:
		return "text"
	}
}
