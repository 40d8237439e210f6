// Пакет views — декларативные описания табличных представлений
// (столбцы, фильтры, поля формы) из встроенного views.yaml.
package views

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bigkaa/agroadmin/internal/ui/table"
)

//go:embed views.yaml
var embedded []byte

// ColumnDef — описание столбца.
type ColumnDef struct {
	Label  string      `yaml:"label"`
	Key    string      `yaml:"key"`
	Align  table.Align `yaml:"align"`
	Format string      `yaml:"format"`
}

// Типы полей формы.
const (
	FieldText     = "text"
	FieldNumber   = "number"
	FieldInteger  = "integer"
	FieldDate     = "date"
	FieldCheckbox = "checkbox"
	FieldSelect   = "select"
)

// FieldDef — описание поля формы создания/редактирования.
type FieldDef struct {
	Key      string         `yaml:"key"`
	Label    string         `yaml:"label"`
	Type     string         `yaml:"type"`
	Required bool           `yaml:"required"`
	Options  []table.Option `yaml:"options"`
}

// View — представление одной сущности.
type View struct {
	Entity   string               `yaml:"-"`
	Title    string               `yaml:"title"`
	Singular string               `yaml:"singular"`
	Empty    string               `yaml:"empty"`
	Columns  []ColumnDef          `yaml:"columns"`
	Filters  []table.FilterConfig `yaml:"filters"`
	Form     []FieldDef           `yaml:"form"`
}

// Catalog — все представления.
type Catalog struct {
	Views map[string]View `yaml:"views"`
}

// Load разбирает встроенный views.yaml.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// Parse разбирает и проверяет описание представлений.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("разбор views.yaml: %w", err)
	}
	if len(c.Views) == 0 {
		return nil, errors.New("views.yaml: не описано ни одного представления")
	}
	for entity, v := range c.Views {
		v.Entity = entity
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("views.yaml: %s: %w", entity, err)
		}
		c.Views[entity] = v
	}
	return &c, nil
}

// View возвращает представление сущности.
func (c *Catalog) View(entity string) (View, bool) {
	v, ok := c.Views[entity]
	return v, ok
}

// Entities возвращает имена сущностей в алфавитном порядке.
func (c *Catalog) Entities() []string {
	out := make([]string, 0, len(c.Views))
	for e := range c.Views {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func (v View) validate() error {
	if len(v.Columns) == 0 {
		return errors.New("нет столбцов")
	}
	for _, col := range v.Columns {
		if col.Key == "" {
			return fmt.Errorf("столбец %q без key", col.Label)
		}
		if col.Format != "" {
			if _, ok := formatters[col.Format]; !ok {
				return fmt.Errorf("столбец %q: неизвестный format %q", col.Key, col.Format)
			}
		}
	}

	seen := make(map[string]bool, len(v.Filters))
	for _, f := range v.Filters {
		if f.Key == "" {
			return fmt.Errorf("фильтр %q без key", f.Label)
		}
		if seen[f.Key] {
			return fmt.Errorf("повторяющийся ключ фильтра %q", f.Key)
		}
		seen[f.Key] = true
		if !f.Kind.Valid() {
			return fmt.Errorf("фильтр %q: неизвестный kind %q", f.Key, f.Kind)
		}
		if f.Kind != table.FilterText && len(f.Options) == 0 {
			return fmt.Errorf("фильтр %q: для kind %q нужны options", f.Key, f.Kind)
		}
	}

	for _, fd := range v.Form {
		switch fd.Type {
		case FieldText, FieldNumber, FieldInteger, FieldDate, FieldCheckbox:
		case FieldSelect:
			if len(fd.Options) == 0 {
				return fmt.Errorf("поле %q: для select нужны options", fd.Key)
			}
		default:
			return fmt.Errorf("поле %q: неизвестный type %q", fd.Key, fd.Type)
		}
	}
	return nil
}

// Columns связывает описания столбцов с записями типа T.
func Columns[T any](v View) []table.Column[T] {
	out := make([]table.Column[T], 0, len(v.Columns))
	for _, def := range v.Columns {
		out = append(out, table.Column[T]{
			Label:  def.Label,
			Key:    def.Key,
			Align:  def.Align,
			Format: formatters[def.Format],
		})
	}
	return out
}

// FilterValues извлекает значения фильтров представления из query-параметров.
func (v View) FilterValues(q url.Values) map[string]string {
	out := make(map[string]string, len(v.Filters))
	for _, f := range v.Filters {
		if val := strings.TrimSpace(q.Get(f.Key)); val != "" {
			out[f.Key] = val
		}
	}
	return out
}

// FieldOrder возвращает ключи полей формы по порядку (для фокуса на первой ошибке).
func (v View) FieldOrder() []string {
	out := make([]string, 0, len(v.Form))
	for _, f := range v.Form {
		out = append(out, f.Key)
	}
	return out
}

// Сообщения локальной проверки формы.
const (
	msgRequired = "Este campo es obligatorio."
	msgNumber   = "Ingrese un número válido."
	msgInteger  = "Ingrese un número entero."
	msgDate     = "Ingrese una fecha válida (AAAA-MM-DD)."
	msgOption   = "Seleccione una opción válida."
	msgUnknown  = "Campo desconocido."
)

// Payload собирает JSON-тело запроса из значений формы. Приведение типов
// выполняется локально; ошибки приведения возвращаются в формате fieldErrors.
// Бизнес-правила проверяет backend.
func (v View) Payload(form url.Values) (map[string]any, map[string][]string) {
	payload := make(map[string]any, len(v.Form))
	errs := make(map[string][]string)

	for _, f := range v.Form {
		raw := strings.TrimSpace(form.Get(f.Key))
		value, err := f.Convert(raw, form.Has(f.Key))
		if err != nil {
			errs[f.Key] = append(errs[f.Key], err.Error())
			continue
		}
		payload[f.Key] = value
	}
	return payload, errs
}

// PatchPayload — как Payload, но только для полей, присутствующих в form
// (частичное изменение). Неизвестные ключи возвращаются ошибкой поля.
func (v View) PatchPayload(form url.Values) (map[string]any, map[string][]string) {
	payload := make(map[string]any, len(form))
	errs := make(map[string][]string)

	known := make(map[string]bool, len(v.Form))
	for _, f := range v.Form {
		known[f.Key] = true
		if !form.Has(f.Key) {
			continue
		}
		value, err := f.Convert(strings.TrimSpace(form.Get(f.Key)), true)
		if err != nil {
			errs[f.Key] = append(errs[f.Key], err.Error())
			continue
		}
		payload[f.Key] = value
	}
	for key := range form {
		if !known[key] {
			errs[key] = append(errs[key], msgUnknown)
		}
	}
	return payload, errs
}

// Convert приводит строковое значение поля формы к типу JSON.
// present — поле присутствовало в форме (для checkbox отсутствие означает false).
func (f FieldDef) Convert(raw string, present bool) (any, error) {
	if f.Type == FieldCheckbox {
		return present && raw != "" && raw != "false" && raw != "off", nil
	}
	if raw == "" {
		if f.Required {
			return nil, errors.New(msgRequired)
		}
		return nil, nil
	}

	switch f.Type {
	case FieldNumber:
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return nil, errors.New(msgNumber)
		}
		return n, nil
	case FieldInteger:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New(msgInteger)
		}
		return n, nil
	case FieldDate:
		if _, err := time.Parse(time.DateOnly, raw); err != nil {
			return nil, errors.New(msgDate)
		}
		return raw, nil
	case FieldSelect:
		for _, o := range f.Options {
			if o.Value == raw {
				return raw, nil
			}
		}
		return nil, errors.New(msgOption)
	default:
		return raw, nil
	}
}

// formatters — именованные форматы столбцов.
var formatters = map[string]func(any) string{
	"date":   formatDate,
	"bool":   formatBool,
	"status": formatStatus,
	"number": formatNumber,
}

func formatDate(v any) string {
	switch t := v.(type) {
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("02-01-2006")
	case time.Time:
		return t.Format("02-01-2006")
	default:
		return table.Stringify(v)
	}
}

func formatBool(v any) string {
	switch table.Stringify(v) {
	case "true":
		return "Sí"
	case "false":
		return "No"
	default:
		return ""
	}
}

func formatStatus(v any) string {
	switch table.Stringify(v) {
	case "true":
		return "Activa"
	case "false":
		return "Archivada"
	default:
		return ""
	}
}

func formatNumber(v any) string {
	s := table.Stringify(v)
	if s == "" {
		return ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
