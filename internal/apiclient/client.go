// Пакет apiclient — HTTP-клиент REST backend'а бодег и сезонов.
// Поддерживает TLS с кастомным CA (AM_API_CA_CERT_PATH) и статический
// bearer-токен (AM_API_TOKEN). Каждый запрос — отдельный span OpenTelemetry.
// Ответы backend'а декодируются на границе в закрытый набор исходов
// (Success / ValidationFailure / GenericFailure), внутренний код не
// разбирает нетипизированный JSON.
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// tracerName — имя tracer'а OpenTelemetry для клиента.
const tracerName = "github.com/bigkaa/agroadmin/internal/apiclient"

// maxBodySize — ограничение на размер тела ответа (4 MiB).
const maxBodySize = 4 << 20

// Config — параметры клиента.
type Config struct {
	// BaseURL — базовый URL API (например, https://api.agro.lan/api)
	BaseURL string
	// Token — bearer-токен (пустая строка — без авторизации)
	Token string
	// Timeout — таймаут HTTP-запросов
	Timeout time.Duration
	// CACertPath — путь к CA-сертификату (пустая строка — системный пул)
	CACertPath string
	// PageSize — размер страницы по умолчанию, если сервер его не сообщает
	PageSize int
}

// Client — HTTP-клиент REST backend'а.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pageSize   int
	tracer     trace.Tracer
	logger     *slog.Logger
}

// New создаёт клиент.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	if cfg.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата API: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат API добавлен в пул доверия",
			slog.String("ca_cert", cfg.CACertPath),
		)
	}

	return NewWithHTTPClient(cfg, httpClient, logger), nil
}

// NewWithHTTPClient создаёт клиент с готовым *http.Client (тесты, кастомный транспорт).
func NewWithHTTPClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize < 1 {
		pageSize = 10
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    normalizeURL(cfg.BaseURL),
		token:      cfg.Token,
		pageSize:   pageSize,
		tracer:     otel.Tracer(tracerName),
		logger:     logger.With(slog.String("component", "api_client")),
	}
}

// BaseURL возвращает нормализованный базовый URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// rawResponse — статус и тело ответа backend'а.
type rawResponse struct {
	status int
	body   []byte
}

// do выполняет запрос и читает тело ответа целиком.
// Ошибки сети (ответа нет) возвращаются как *TransportError;
// любой полученный HTTP-ответ, включая 4xx/5xx, ошибкой не считается.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*rawResponse, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	ctx, span := c.tracer.Start(ctx, "apiclient."+method+" "+spanPath(path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", reqURL),
		),
	)
	defer span.End()

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "marshal")
			return nil, fmt.Errorf("сериализация тела запроса %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("создание запроса %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:gosec // G107: URL из конфигурации
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		c.logger.Debug("Запрос к API не выполнен",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}

	c.logger.Debug("Ответ API",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// normalizeURL убирает trailing slash из URL.
func normalizeURL(rawURL string) string {
	return strings.TrimRight(rawURL, "/")
}

// spanPath заменяет числовые сегменты пути на {id}, чтобы имена span'ов
// не зависели от идентификаторов записей.
func spanPath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p != "" && strings.Trim(p, "0123456789") == "" {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
