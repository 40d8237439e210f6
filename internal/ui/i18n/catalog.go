package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"sync"
)

//go:embed locales/*.json
var localeFS embed.FS

// Catalog — переводы всех поддерживаемых языков: lang → key → текст.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
}

// NewCatalog создаёт пустой каталог.
func NewCatalog() *Catalog {
	return &Catalog{messages: make(map[string]map[string]string)}
}

// Add добавляет переводы языка из плоского JSON {"key": "text"}.
func (c *Catalog) Add(lang string, data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("i18n: каталог %s: %w", lang, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[lang] = m
	return nil
}

// Translate возвращает текст ключа на языке lang, затем на DefaultLang.
// Неизвестный ключ возвращается как есть.
func (c *Catalog) Translate(lang, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range []string{lang, DefaultLang} {
		if msg, ok := c.messages[l][key]; ok {
			return msg
		}
	}
	return key
}

// Missing возвращает ключи каталога по умолчанию, которых нет в lang.
func (c *Catalog) Missing(lang string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for key := range c.messages[DefaultLang] {
		if _, ok := c.messages[lang][key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// LoadCatalog читает locales/<code>.json каждого поддерживаемого языка из fsys.
func LoadCatalog(fsys fs.FS) (*Catalog, error) {
	c := NewCatalog()
	for _, l := range languages {
		path := "locales/" + l.Code + ".json"
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("i18n: чтение %s: %w", path, err)
		}
		if err := c.Add(l.Code, data); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var (
	defaultMu      sync.RWMutex
	defaultCatalog *Catalog
)

// Setup загружает встроенные каталоги и делает их каталогом для T и Tf.
// Недостающие переводы не мешают запуску: для них берётся испанский текст.
func Setup(logger *slog.Logger) (*Catalog, error) {
	c, err := LoadCatalog(localeFS)
	if err != nil {
		return nil, err
	}
	for _, l := range languages[1:] {
		if missing := c.Missing(l.Code); len(missing) > 0 {
			logger.Warn("В каталоге нет переводов",
				slog.String("lang", l.Code),
				slog.Any("keys", missing),
			)
		}
	}

	defaultMu.Lock()
	defaultCatalog = c
	defaultMu.Unlock()

	logger.Info("Каталоги переводов загружены", slog.Int("languages", len(languages)))
	return c, nil
}

func current() *Catalog {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultCatalog
}
