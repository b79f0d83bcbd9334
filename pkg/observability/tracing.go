// Package observability sets up OpenTelemetry tracing for ingestion runs.
//
// Every task gets one span. Spans go to a file through the stdout exporter
// when a trace file is configured; otherwise the global no-op provider
// swallows them.
package observability

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
)

const instrumentationName = "github.com/ajitpratap0/nebula-ingest"

// Config contains tracing configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// TraceFile receives finished spans as JSON. Empty disables export.
	TraceFile    string
	SamplingRate float64
	BatchTimeout time.Duration
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig() Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return Config{
		ServiceName:    "nebula-ingest",
		ServiceVersion: "dev",
		Environment:    env,
		SamplingRate:   1.0,
		BatchTimeout:   5 * time.Second,
	}
}

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

// Initialize installs the global tracer provider. The returned function must
// be called before the process exits so buffered spans reach the file.
func Initialize(cfg Config) (ShutdownFunc, error) {
	if cfg.TraceFile == "" {
		return func(context.Context) error { return nil }, nil
	}

	f, err := os.Create(cfg.TraceFile)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create trace file").
			WithDetail("path", cfg.TraceFile)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create trace exporter")
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create trace resource")
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 5 * time.Second
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to flush traces")
		}
		return nil
	}, nil
}

// Tracer returns the tracer for ingestion spans. Tracers obtained before
// Initialize follow the provider it installs.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Span is one traced ingestion task.
type Span struct {
	span  trace.Span
	start time.Time
}

// StartTask starts the span for ingesting one path into destination.
func StartTask(ctx context.Context, path, destination string) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, "ingest.task",
		trace.WithAttributes(
			attribute.String("ingest.path", path),
			attribute.String("ingest.destination", destination),
		),
	)
	return ctx, &Span{span: span, start: time.Now()}
}

// SetAttribute adds one attribute to the span.
func (s *Span) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	}
}

// End finishes the span, marking it failed when err is non-nil. It returns
// the time since StartTask.
func (s *Span) End(err error) time.Duration {
	elapsed := time.Since(s.start)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		var e *errors.Error
		if errors.As(err, &e) {
			s.span.SetAttributes(attribute.String("error.type", string(e.Type)))
		}
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
	return elapsed
}
