package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Setenv("OTEL_SDK_DISABLED", "")
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func TestAttachParentsToCapturedContext(t *testing.T) {
	sr := installRecorder(t)

	parentCtx, parent := otel.Tracer("test").Start(context.Background(), "caller")
	captured := Capture(parentCtx)
	require.False(t, captured.Empty())

	labels := Labels{
		Operation: "get",
		Namespace: "test",
		Set:       "demo",
		Conn:      protocol.ConnectionInfo{ServerAddress: "127.0.0.1", ServerPort: 3000, ClusterName: "c1"},
	}

	// attach on another goroutine, like a runtime worker
	done := make(chan trace.SpanContext)
	go func() {
		_, span := Attach(context.Background(), captured, labels.SpanName(), labels)
		span.End(nil)
		done <- span.SpanContext()
	}()
	child := <-done
	parent.End()

	assert.Equal(t, parent.SpanContext().TraceID(), child.TraceID())

	spans := sr.Ended()
	require.Len(t, spans, 2)
	op := spans[0]
	assert.Equal(t, "GET test.demo", op.Name())
	assert.Equal(t, trace.SpanKindClient, op.SpanKind())
	assert.Equal(t, parent.SpanContext().SpanID(), op.Parent().SpanID())
	assert.Contains(t, op.Attributes(), attribute.String("db.aerospike.cluster_name", "c1"))
	assert.Contains(t, op.Attributes(), attribute.Int("server.port", 3000))
}

func TestSpanRecordsError(t *testing.T) {
	sr := installRecorder(t)

	_, span := Attach(context.Background(), Capture(context.Background()), "PUT test", Labels{Operation: "put", Namespace: "test"})
	span.End(protocol.NewError(protocol.ResultGeneration, "stale"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("error.type", "GENERATION_ERROR"))
	assert.Contains(t, attrs, attribute.String("db.response.status_code", "3"))
}

func TestTracingDisabledByEnvironment(t *testing.T) {
	sr := installRecorder(t)
	t.Setenv("OTEL_TRACES_EXPORTER", "none")

	assert.True(t, TracingDisabled())
	assert.True(t, Capture(context.Background()).Empty())
	_, span := Attach(context.Background(), Context{}, "GET test", Labels{})
	span.End(errors.New("ignored"))
	assert.Empty(t, sr.Ended())
}

func TestTimerObserves(t *testing.T) {
	before := testutil.CollectAndCount(OperationDuration)

	labels := Labels{Operation: "exists", Namespace: "timer-ns", Set: "s"}
	StartTimer(labels).Observe(nil)
	StartTimer(labels).Observe(protocol.NewError(protocol.ResultTimeout, ""))
	StartTimer(labels).Observe(nil)

	// one series per error type
	assert.Equal(t, before+2, testutil.CollectAndCount(OperationDuration))

	SetMetricsEnabled(false)
	defer SetMetricsEnabled(true)
	StartTimer(Labels{Operation: "exists", Namespace: "disabled-ns"}).Observe(nil)
	assert.Equal(t, before+2, testutil.CollectAndCount(OperationDuration))
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "", ErrorType(nil))
	assert.Equal(t, "KEY_NOT_FOUND_ERROR", ErrorType(protocol.NewError(protocol.ResultKeyNotFound, "")))
	assert.Equal(t, "CLIENT_TIMEOUT", ErrorType(context.DeadlineExceeded))
	assert.Equal(t, "CLIENT_ERROR", ErrorType(errors.New("x")))
}
