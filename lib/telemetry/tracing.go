package telemetry

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/lni/dragonboat/v4/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/KimSoungRyoul/aerospike-py-sub001"
	dbSystem            = "aerospike"
)

var (
	plog = logger.GetLogger("telemetry")

	propagator = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
)

// --------------------------------------------------------------------------
// Context capture
// --------------------------------------------------------------------------

// Context is a snapshot of the caller's trace context. It is a plain value and can be
// handed to another goroutine without touching the caller's state again.
type Context struct {
	carrier propagation.MapCarrier
}

// Empty reports whether the snapshot carries no trace context
func (c Context) Empty() bool {
	return len(c.carrier) == 0
}

// Capture snapshots the trace context of ctx. Callers hold the host lock while calling it.
func Capture(ctx context.Context) Context {
	if TracingDisabled() {
		return Context{}
	}
	carrier := propagation.MapCarrier{}
	propagator.Inject(ctx, carrier)
	return Context{carrier: carrier}
}

// Labels describe the operation a span or metric sample belongs to
type Labels struct {
	Operation string
	Namespace string
	Set       string
	Conn      protocol.ConnectionInfo
}

// SpanName returns "OP ns.set" (or "OP ns" without a set)
func (l Labels) SpanName() string {
	op := strings.ToUpper(l.Operation)
	if l.Set == "" {
		return fmt.Sprintf("%s %s", op, l.Namespace)
	}
	return fmt.Sprintf("%s %s.%s", op, l.Namespace, l.Set)
}

// Attach restores the captured context on top of base and starts a client span as its child.
// base only contributes deadline and cancellation. Attach runs on runtime workers and never
// touches host state.
func Attach(base context.Context, c Context, spanName string, l Labels) (context.Context, *Span) {
	ctx := base
	if c.carrier != nil {
		ctx = propagator.Extract(ctx, c.carrier)
	}
	if TracingDisabled() {
		return ctx, &Span{span: trace.SpanFromContext(ctx)}
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.system.name", dbSystem),
		attribute.String("db.namespace", l.Namespace),
		attribute.String("db.operation.name", strings.ToUpper(l.Operation)),
	}
	if l.Set != "" {
		attrs = append(attrs, attribute.String("db.collection.name", l.Set))
	}
	if l.Conn.ServerAddress != "" {
		attrs = append(attrs,
			attribute.String("server.address", l.Conn.ServerAddress),
			attribute.Int("server.port", l.Conn.ServerPort),
		)
	}
	if l.Conn.ClusterName != "" {
		attrs = append(attrs, attribute.String("db.aerospike.cluster_name", l.Conn.ClusterName))
	}

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, &Span{span: span, recording: true}
}

// --------------------------------------------------------------------------
// Span
// --------------------------------------------------------------------------

// Span wraps an OpenTelemetry span with the error conventions of the client
type Span struct {
	span      trace.Span
	recording bool
}

// End finishes the span and records err if it is not nil
func (s *Span) End(err error) {
	if s == nil || !s.recording {
		return
	}
	if err != nil {
		code := protocol.CodeOf(err)
		s.span.SetAttributes(
			attribute.String("error.type", ErrorType(err)),
			attribute.String("db.response.status_code", strconv.Itoa(int(code))),
		)
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

// SpanContext returns the context of the underlying span
func (s *Span) SpanContext() trace.SpanContext {
	return s.span.SpanContext()
}

// --------------------------------------------------------------------------
// Provider setup
// --------------------------------------------------------------------------

// TracingDisabled honors OTEL_SDK_DISABLED and OTEL_TRACES_EXPORTER=none
func TracingDisabled() bool {
	if v, _ := strconv.ParseBool(os.Getenv("OTEL_SDK_DISABLED")); v {
		return true
	}
	return strings.EqualFold(os.Getenv("OTEL_TRACES_EXPORTER"), "none")
}

// InitTracing installs a global tracer provider exporting to stdout. The returned function
// flushes and shuts the provider down.
func InitTracing(serviceName, version string) (func(context.Context) error, error) {
	if TracingDisabled() {
		plog.Infof("tracing disabled by environment")
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagator)
	plog.Infof("tracing initialized for %s", serviceName)

	return tp.Shutdown, nil
}
