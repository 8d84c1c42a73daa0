// Package observability bootstraps the OpenTelemetry providers the scheduler
// process exports through: traces, metrics and logs over OTLP/HTTP, plus an
// otelslog-bridged slog.Logger. When telemetry is disabled every Init
// function still returns a working no-op provider, so callers wire shutdown
// hooks the same way in both modes and never branch on the flag themselves.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	serviceVersion = "0.1.0"

	exportTimeout  = 10 * time.Second
	batchTimeout   = 5 * time.Second
	metricInterval = 15 * time.Second
)

// exporterHeaders reads OTEL_EXPORTER_OTLP_HEADERS and URL-decodes each
// value. Managed OTLP backends hand out the Authorization header in
// URL-encoded form (Basic%20...) and the Go SDK does not always decode it
// before sending. A value that fails to decode is passed through as-is.
func exporterHeaders() map[string]string {
	raw := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")
	if raw == "" {
		return nil
	}

	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, encoded, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		value, err := url.QueryUnescape(encoded)
		if err != nil {
			value = encoded
		}
		headers[strings.TrimSpace(key)] = value
	}
	return headers
}

// schedulerResource describes this process to the telemetry backend: the
// service name and version, merged over the SDK defaults. The standard
// OTEL_RESOURCE_ATTRIBUTES and OTEL_SERVICE_NAME env vars are honored and
// win over the static attributes set here.
func schedulerResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	svc, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
		resource.WithFromEnv(),
		resource.WithSchemaURL(semconv.SchemaURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build service resource: %w", err)
	}

	res, err := resource.Merge(resource.Default(), svc)
	if err != nil {
		// A partial resource or schema conflict still yields a usable
		// resource; only a hard merge failure is fatal.
		if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
			return res, nil
		}
		return nil, fmt.Errorf("failed to merge resources: %w", err)
	}
	return res, nil
}

// InitTracerProvider wires an OTLP/HTTP span exporter behind a batching
// tracer provider and installs it globally, along with W3C trace-context and
// baggage propagation. The exporter endpoint comes from the standard
// OTEL_EXPORTER_OTLP_ENDPOINT env var.
func InitTracerProvider(ctx context.Context, serviceName string, enabled bool) (*sdktrace.TracerProvider, error) {
	if !enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	res, err := schedulerResource(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithTimeout(exportTimeout)}
	if headers := exporterHeaders(); headers != nil {
		opts = append(opts, otlptracehttp.WithHeaders(headers))
	}

	// The exporter is built on a background context so a cancelled startup
	// context cannot wedge its later shutdown.
	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

// InitMeterProvider wires an OTLP/HTTP metric exporter behind a periodic
// reader and installs it globally. Same endpoint and header env vars as the
// tracer provider.
func InitMeterProvider(ctx context.Context, serviceName string, enabled bool) (*sdkmetric.MeterProvider, error) {
	if !enabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		return mp, nil
	}

	res, err := schedulerResource(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithTimeout(exportTimeout)}
	if headers := exporterHeaders(); headers != nil {
		opts = append(opts, otlpmetrichttp.WithHeaders(headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(metricInterval),
		)),
	)

	otel.SetMeterProvider(mp)
	return mp, nil
}

// InitLogger returns a logger provider plus an otelslog-bridged slog.Logger
// that ships records over OTLP/HTTP. When telemetry is disabled it returns a
// no-op provider and a plain JSON logger on stdout, so cmd/scheduler always
// has a structured logger to install as the slog default.
func InitLogger(ctx context.Context, serviceName string, enabled bool) (*log.LoggerProvider, *slog.Logger, error) {
	if !enabled {
		return log.NewLoggerProvider(), slog.New(slog.NewJSONHandler(os.Stdout, nil)), nil
	}

	res, err := schedulerResource(ctx, serviceName)
	if err != nil {
		return nil, nil, err
	}

	opts := []otlploghttp.Option{otlploghttp.WithTimeout(exportTimeout)}
	if headers := exporterHeaders(); headers != nil {
		opts = append(opts, otlploghttp.WithHeaders(headers))
	}

	exporter, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	lp := log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exporter,
			log.WithExportTimeout(batchTimeout),
		)),
		log.WithResource(res),
	)

	logger := otelslog.NewLogger(serviceName, otelslog.WithLoggerProvider(lp))
	return lp, logger, nil
}
