package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/markethub/backend/internal/infrastructure/telemetry"
)

func TestStartSpan(t *testing.T) {
	ctx, span := telemetry.StartSpan(context.Background(), "product.approve",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, "p-1"),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	require.NotNil(t, span)
	assert.Equal(t, span, trace.SpanFromContext(ctx))
}

func TestStartServiceSpan(t *testing.T) {
	_, span := telemetry.StartServiceSpan(context.Background(), "product", "approve")
	defer span.End()

	require.NotNil(t, span)
}

func TestRecordError_NilSafe(t *testing.T) {
	// Neither a nil span nor a nil error may panic
	telemetry.RecordError(nil, errors.New("boom"))

	_, span := telemetry.StartSpan(context.Background(), "op")
	defer span.End()
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("boom"))
}

func TestAddEvent(t *testing.T) {
	_, span := telemetry.StartSpan(context.Background(), "op")
	defer span.End()

	telemetry.AddEvent(span, "images_staged",
		telemetry.SpanAttrImageCount, 3,
		telemetry.SpanAttrDroppedImages, 1,
	)
	telemetry.AddEvent(nil, "ignored")
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

func TestSetAttribute_NilSafe(t *testing.T) {
	telemetry.SetAttribute(nil, "key", "value")

	_, span := telemetry.StartSpan(context.Background(), "op")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrShopDomain, "lamps.myshopify.com")
	telemetry.SetAttribute(span, "count", int64(7))
	telemetry.SetAttribute(span, "ratio", 0.5)
	telemetry.SetAttribute(span, "flag", true)
}
