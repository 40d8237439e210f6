package table

import (
	"strings"

	"github.com/a-h/templ"
)

// FilterKind — вид фильтра.
type FilterKind string

const (
	// FilterText — подстрока без учёта регистра.
	FilterText FilterKind = "text"
	// FilterSelect — точное совпадение, выбор из списка.
	FilterSelect FilterKind = "select"
	// FilterAutocomplete — точное совпадение, поле ввода с подсказками.
	FilterAutocomplete FilterKind = "autocomplete"
)

// Valid сообщает, что вид фильтра известен.
func (k FilterKind) Valid() bool {
	_, ok := filterStrategies[k]
	return ok
}

// Option — вариант значения фильтра.
type Option struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// FilterConfig — декларативное описание фильтра.
type FilterConfig struct {
	// Key — уникален в пределах таблицы, совпадает с query-параметром
	Key   string     `yaml:"key"`
	Label string     `yaml:"label"`
	Kind  FilterKind `yaml:"kind"`
	// Options — обязательны для select и autocomplete
	Options []Option `yaml:"options"`
	// Width — CSS-ширина элемента (необязательно)
	Width string `yaml:"width"`
}

// filterStrategy — сопоставление и отрисовка одного вида фильтра.
// Элементы управления описаны в table.templ.
type filterStrategy struct {
	match   func(fieldValue any, filterValue string) bool
	control func(f FilterConfig, value, formID string) templ.Component
}

var filterStrategies = map[FilterKind]filterStrategy{
	FilterText:         {match: matchSubstring, control: textControl},
	FilterSelect:       {match: matchExact, control: selectControl},
	FilterAutocomplete: {match: matchExact, control: autocompleteControl},
}

// strategyFor возвращает стратегию вида; неизвестный вид обрабатывается как text.
func strategyFor(kind FilterKind) filterStrategy {
	if s, ok := filterStrategies[kind]; ok {
		return s
	}
	return filterStrategies[FilterText]
}

// Match проверяет значение поля по фильтру. Пустое значение фильтра пропускает всё.
func Match(f FilterConfig, fieldValue any, filterValue string) bool {
	if filterValue == "" {
		return true
	}
	return strategyFor(f.Kind).match(fieldValue, filterValue)
}

func matchSubstring(fieldValue any, filterValue string) bool {
	if filterValue == "" {
		return true
	}
	return strings.Contains(strings.ToLower(Stringify(fieldValue)), strings.ToLower(filterValue))
}

func matchExact(fieldValue any, filterValue string) bool {
	if filterValue == "" {
		return true
	}
	return Stringify(fieldValue) == filterValue
}
