package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestTracer installs an in-memory span recorder as the global provider
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := StartSpan(context.Background(), "fulfillment.advance",
		WithAttribute(AttrOrderID, "202403151030001234_1"),
		WithAttribute(AttrActorID, int64(10)),
		WithSpanKind(trace.SpanKindServer))
	assert.NotEmpty(t, GetTraceID(ctx))
	SetAttributes(span, AttrTarget, "approved", 42, "ignored")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "fulfillment.advance", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	v, ok := attr(spans[0], AttrOrderID)
	require.True(t, ok)
	assert.Equal(t, "202403151030001234_1", v.AsString())
	v, ok = attr(spans[0], AttrActorID)
	require.True(t, ok)
	assert.Equal(t, int64(10), v.AsInt64())
	v, ok = attr(spans[0], AttrTarget)
	require.True(t, ok)
	assert.Equal(t, "approved", v.AsString())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := StartSpan(context.Background(), "checkout.confirm")
	RecordError(span, nil)
	RecordError(span, errors.New("insert failed"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "insert failed", spans[0].Status().Description)
	assert.Len(t, spans[0].Events(), 1)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}

func TestRegisterDBTracing(t *testing.T) {
	sr := setupTestTracer(t)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: false}, nil))
	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, nil))

	ctx, span := StartSpan(context.Background(), "parent")
	var n int
	require.NoError(t, db.WithContext(ctx).Raw("SELECT 1").Scan(&n).Error)
	span.End()

	assert.Equal(t, 1, n)
	assert.GreaterOrEqual(t, len(sr.Ended()), 2, "the statement gets its own span")
}
