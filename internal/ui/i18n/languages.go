// Пакет i18n — тексты интерфейса на испанском и английском.
//
// Язык запроса выбирается по cookie "lang", затем по Accept-Language;
// по умолчанию испанский. Шаблоны берут строки через T и Tf.
package i18n

import "golang.org/x/text/language"

// Language — поддерживаемый язык интерфейса.
type Language struct {
	// Code — значение cookie, атрибута html lang и имя каталога
	Code string
	// Name — название языка на нём самом (для переключателя)
	Name string
	Tag  language.Tag
}

// languages — единственный список поддерживаемых языков.
// Первый элемент — язык по умолчанию.
var languages = []Language{
	{Code: "es", Name: "Español", Tag: language.Spanish},
	{Code: "en", Name: "English", Tag: language.English},
}

// DefaultLang — язык по умолчанию и каталог для недостающих ключей.
var DefaultLang = languages[0].Code

var matcher = language.NewMatcher(tags())

func tags() []language.Tag {
	out := make([]language.Tag, len(languages))
	for i, l := range languages {
		out[i] = l.Tag
	}
	return out
}

// Languages возвращает поддерживаемые языки в порядке отображения.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

// IsSupported сообщает, что code — код поддерживаемого языка.
func IsSupported(code string) bool {
	for _, l := range languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// MatchLanguage выбирает язык по заголовку Accept-Language.
// Без подходящего варианта возвращает DefaultLang.
func MatchLanguage(acceptLanguage string) string {
	_, idx := language.MatchStrings(matcher, acceptLanguage)
	if idx < 0 || idx >= len(languages) {
		return DefaultLang
	}
	return languages[idx].Code
}
