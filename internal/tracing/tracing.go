// Пакет tracing — настройка OpenTelemetry TracerProvider.
// Span'ы клиента REST API экспортируются в stdout (AM_OTEL_ENABLED=true),
// дальше их собирает агент логов.
package tracing

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc сбрасывает накопленные span'ы и останавливает экспорт.
type ShutdownFunc func(ctx context.Context) error

// Setup устанавливает глобальный TracerProvider.
// При enabled=false остаётся noop-провайдер и возвращается пустой ShutdownFunc.
func Setup(enabled bool, serviceName, version string, logger *slog.Logger) (ShutdownFunc, error) {
	return setup(enabled, serviceName, version, os.Stdout, logger)
}

func setup(enabled bool, serviceName, version string, out io.Writer, logger *slog.Logger) (ShutdownFunc, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("OpenTelemetry tracing включён", slog.String("exporter", "stdout"))
	return tp.Shutdown, nil
}
