// envelope.go — декодирование ответов backend'а на границе клиента.
// Ожидаемый конверт: {success, notification: {message, type, key}, data}.
// Ошибки по полям допускаются в data.errors, errors или (DRF) на верхнем уровне.
package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/notify"
)

// Outcome — закрытый набор исходов мутации:
// Success[T], *ValidationFailure, *GenericFailure.
type Outcome[T any] interface {
	isOutcome()
}

// Success — успешный ответ на мутацию.
type Success[T any] struct {
	// Data — запись из ответа (валидна только при HasData)
	Data    T
	HasData bool
	// Notification — уведомление backend'а (может быть nil)
	Notification *notify.Notification
}

func (Success[T]) isOutcome()          {}
func (*ValidationFailure) isOutcome() {}
func (*GenericFailure) isOutcome()    {}

// formErrorKeys — ключи ошибок уровня формы.
var formErrorKeys = map[string]bool{
	"non_field_errors": true,
	"__all__":          true,
	"_form":            true,
	"form":             true,
	"detail":           true,
}

// envelopeKeys — служебные ключи конверта (не поля формы).
var envelopeKeys = map[string]bool{
	"success":      true,
	"notification": true,
	"message":      true,
	"data":         true,
	"error":        true,
	"errors":       true,
	"code":         true,
	"status":       true,
}

// decodeOutcome разбирает ответ на мутацию в один из исходов.
func decodeOutcome[T any](resp *rawResponse) Outcome[T] {
	env := decodeObject(resp.body)
	note := decodeNotification(env)

	if resp.status >= 200 && resp.status < 300 {
		if ok, present := decodeBool(env["success"]); present && !ok {
			return &GenericFailure{Status: resp.status, Message: extractMessage(env), Notification: note}
		}

		s := Success[T]{Notification: note}
		raw, enveloped := env["data"]
		if !enveloped {
			// Ответ без конверта (DRF): запись целиком в теле
			if _, hasID := env["id"]; hasID {
				raw = resp.body
			}
		}
		if len(raw) > 0 && !isNull(raw) {
			if err := json.Unmarshal(raw, &s.Data); err == nil {
				s.HasData = true
			}
		}
		return s
	}

	if isValidationStatus(resp.status) {
		fieldErrs, formErrs := extractErrors(env)
		if len(fieldErrs) > 0 || len(formErrs) > 0 {
			return &ValidationFailure{
				Status:       resp.status,
				FieldErrors:  fieldErrs,
				FormErrors:   formErrs,
				Notification: note,
			}
		}
	}

	return &GenericFailure{Status: resp.status, Message: extractMessage(env), Notification: note}
}

// settle превращает исход в пару (Success, error).
func settle[T any](resp *rawResponse, err error) (Success[T], error) {
	if err != nil {
		return Success[T]{}, err
	}
	switch o := decodeOutcome[T](resp).(type) {
	case Success[T]:
		return o, nil
	case *ValidationFailure:
		return Success[T]{}, o
	case *GenericFailure:
		return Success[T]{}, o
	default:
		return Success[T]{}, fmt.Errorf("неизвестный исход ответа: %T", o)
	}
}

// wireMeta — поля пагинации в любом из поддерживаемых форматов.
type wireMeta struct {
	Count      *int    `json:"count"`
	Total      *int    `json:"total"`
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
	Page       *int    `json:"page"`
	PageSize   *int    `json:"page_size"`
	Limit      *int    `json:"limit"`
	TotalPages *int    `json:"total_pages"`
}

// listBody — ответ на GET списка: DRF ({count, next, previous, results})
// или конверт ({success, data: {results|items, meta|pagination}}).
type listBody[T any] struct {
	wireMeta
	Success    *bool           `json:"success"`
	Results    []T             `json:"results"`
	Items      []T             `json:"items"`
	Meta       *wireMeta       `json:"meta"`
	Pagination *wireMeta       `json:"pagination"`
	Data       json.RawMessage `json:"data"`
}

// decodeList разбирает ответ на GET списка и нормализует метаданные пагинации.
func decodeList[T any](resp *rawResponse, requestedPage, defaultPageSize int) (model.Page[T], error) {
	if resp.status < 200 || resp.status >= 300 {
		_, err := settle[T](resp, nil)
		if err == nil {
			err = &GenericFailure{Status: resp.status}
		}
		return model.Page[T]{}, err
	}

	body := bytes.TrimSpace(resp.body)
	if len(body) > 0 && body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return model.Page[T]{}, fmt.Errorf("декодирование списка: %w", err)
		}
		return model.Page[T]{Items: items, Meta: normalizeMeta(wireMeta{}, len(items), requestedPage, defaultPageSize)}, nil
	}

	var lb listBody[T]
	if err := json.Unmarshal(body, &lb); err != nil {
		return model.Page[T]{}, fmt.Errorf("декодирование списка: %w", err)
	}
	if lb.Success != nil && !*lb.Success {
		env := decodeObject(body)
		return model.Page[T]{}, &GenericFailure{
			Status:       resp.status,
			Message:      extractMessage(env),
			Notification: decodeNotification(env),
		}
	}

	items, meta, err := resolveList(lb, 0)
	if err != nil {
		return model.Page[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	return model.Page[T]{Items: items, Meta: normalizeMeta(meta, len(items), requestedPage, defaultPageSize)}, nil
}

// resolveList достаёт записи и метаданные, спускаясь в data не глубже одного уровня.
func resolveList[T any](lb listBody[T], depth int) ([]T, wireMeta, error) {
	outer := mergeMeta(lb.Meta, lb.Pagination, &lb.wireMeta)

	if len(lb.Data) > 0 && !isNull(lb.Data) && depth == 0 {
		data := bytes.TrimSpace(lb.Data)
		if data[0] == '[' {
			var items []T
			if err := json.Unmarshal(data, &items); err != nil {
				return nil, wireMeta{}, fmt.Errorf("декодирование data: %w", err)
			}
			return items, outer, nil
		}
		var inner listBody[T]
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, wireMeta{}, fmt.Errorf("декодирование data: %w", err)
		}
		items, innerMeta, err := resolveList(inner, depth+1)
		if err != nil {
			return nil, wireMeta{}, err
		}
		return items, mergeMeta(&innerMeta, &outer), nil
	}

	items := lb.Results
	if items == nil {
		items = lb.Items
	}
	return items, outer, nil
}

// mergeMeta выбирает для каждого поля первое непустое значение.
func mergeMeta(ms ...*wireMeta) wireMeta {
	var out wireMeta
	for _, m := range ms {
		if m == nil {
			continue
		}
		out.Count = firstInt(out.Count, m.Count)
		out.Total = firstInt(out.Total, m.Total)
		out.Page = firstInt(out.Page, m.Page)
		out.PageSize = firstInt(out.PageSize, m.PageSize)
		out.Limit = firstInt(out.Limit, m.Limit)
		out.TotalPages = firstInt(out.TotalPages, m.TotalPages)
		if out.Next == nil {
			out.Next = m.Next
		}
		if out.Previous == nil {
			out.Previous = m.Previous
		}
	}
	return out
}

func firstInt(a, b *int) *int {
	if a != nil {
		return a
	}
	return b
}

// normalizeMeta строит PaginationMeta. TotalPages всегда вычисляется
// из count и page_size, значение сервера не используется.
func normalizeMeta(m wireMeta, itemsLen, requestedPage, defaultPageSize int) model.PaginationMeta {
	count := itemsLen
	switch {
	case m.Count != nil:
		count = *m.Count
	case m.Total != nil:
		count = *m.Total
	}
	if count < 0 {
		count = 0
	}

	page := requestedPage
	if m.Page != nil && *m.Page > 0 {
		page = *m.Page
	}
	if page < 1 {
		page = 1
	}

	pageSize := defaultPageSize
	switch {
	case m.PageSize != nil && *m.PageSize > 0:
		pageSize = *m.PageSize
	case m.Limit != nil && *m.Limit > 0:
		pageSize = *m.Limit
	}
	if pageSize < 1 {
		pageSize = model.DefaultPageSize
	}

	return model.PaginationMeta{
		Count:      count,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: model.TotalPages(count, pageSize),
		Next:       m.Next,
		Previous:   m.Previous,
	}
}

// --- Вспомогательные функции ---

func isValidationStatus(status int) bool {
	return status == http.StatusBadRequest ||
		status == http.StatusConflict ||
		status == http.StatusUnprocessableEntity
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// decodeObject разбирает тело как JSON-объект. Не объект — пустая карта.
func decodeObject(body []byte) map[string]json.RawMessage {
	env := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(body)) == 0 {
		return env
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return map[string]json.RawMessage{}
	}
	return env
}

func decodeBool(raw json.RawMessage) (value bool, present bool) {
	if len(raw) == 0 {
		return false, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, false
	}
	return value, true
}

func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// decodeNotification извлекает notification {message, type, key}.
// key может быть строкой или числом.
func decodeNotification(env map[string]json.RawMessage) *notify.Notification {
	raw, ok := env["notification"]
	if !ok || isNull(raw) {
		return nil
	}
	var wire struct {
		Message  string          `json:"message"`
		Type     string          `json:"type"`
		Severity string          `json:"severity"`
		Key      json.RawMessage `json:"key"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil || wire.Message == "" {
		return nil
	}
	sev := wire.Type
	if sev == "" {
		sev = wire.Severity
	}
	key := strings.Trim(string(bytes.TrimSpace(wire.Key)), `"`)
	if key == "null" {
		key = ""
	}
	return &notify.Notification{
		Message:  wire.Message,
		Severity: notify.NormalizeSeverity(sev),
		Key:      key,
	}
}

// extractMessage ищет человекочитаемое сообщение об ошибке.
func extractMessage(env map[string]json.RawMessage) string {
	if msg := decodeString(env["message"]); msg != "" {
		return msg
	}
	if msg := decodeString(env["detail"]); msg != "" {
		return msg
	}
	if raw, ok := env["error"]; ok {
		if msg := decodeString(raw); msg != "" {
			return msg
		}
		// Формат {"error": {"code": "...", "message": "..."}}
		inner := decodeObject(raw)
		if msg := decodeString(inner["message"]); msg != "" {
			return msg
		}
	}
	if note := decodeNotification(env); note != nil {
		return note.Message
	}
	if raw, ok := env["data"]; ok {
		inner := decodeObject(raw)
		if msg := decodeString(inner["message"]); msg != "" {
			return msg
		}
	}
	return ""
}

// extractErrors ищет ошибки по полям: data.errors → errors → поля верхнего уровня (DRF).
func extractErrors(env map[string]json.RawMessage) (map[string][]string, []string) {
	if raw, ok := env["data"]; ok {
		inner := decodeObject(raw)
		if errs, ok := inner["errors"]; ok && !isNull(errs) {
			return normalizeErrors(errs)
		}
	}
	if errs, ok := env["errors"]; ok && !isNull(errs) {
		return normalizeErrors(errs)
	}

	// DRF: {"nombre": ["Este campo es obligatorio."], "non_field_errors": [...]}
	fields := map[string][]string{}
	var form []string
	for _, key := range sortedKeys(env) {
		if envelopeKeys[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(env[key], &v); err != nil {
			continue
		}
		msgs := messagesOf(v)
		if len(msgs) == 0 {
			continue
		}
		if formErrorKeys[key] {
			// detail без других ошибок — это общее сообщение, а не ошибка формы
			if key == "detail" && len(env) == 1 {
				continue
			}
			form = append(form, msgs...)
			continue
		}
		fields[key] = msgs
	}
	return fields, form
}

// normalizeErrors приводит ошибки произвольной формы к
// fieldErrors (ключ → сообщения) и formErrors.
func normalizeErrors(raw json.RawMessage) (map[string][]string, []string) {
	fields := map[string][]string{}
	var form []string

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fields, form
	}

	switch t := v.(type) {
	case string:
		form = append(form, t)
	case []any:
		form = append(form, messagesOf(t)...)
	case map[string]any:
		flattenErrors("", t, fields, &form)
	}
	return fields, form
}

// flattenErrors разворачивает вложенные ошибки в ключи вида "parent.child".
func flattenErrors(prefix string, m map[string]any, fields map[string][]string, form *[]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		val := m[k]
		if prefix == "" && formErrorKeys[k] {
			*form = append(*form, messagesOf(val)...)
			continue
		}
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			flattenErrors(key, nested, fields, form)
			continue
		}
		if msgs := messagesOf(val); len(msgs) > 0 {
			fields[key] = append(fields[key], msgs...)
		}
	}
}

// messagesOf собирает строковые сообщения из значения ошибки.
func messagesOf(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, messagesOf(item)...)
		}
		return out
	case map[string]any:
		if msg, ok := t["message"].(string); ok && msg != "" {
			return []string{msg}
		}
		return nil
	case nil:
		return nil
	case bool:
		return nil
	default:
		return []string{fmt.Sprint(t)}
	}
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
