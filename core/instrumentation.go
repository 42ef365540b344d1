package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-pet/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	processedEvents, _ = meter.Int64Counter("orchestrator.events.processed",
		metric.WithDescription("Events handled by the orchestrator runtime"))
	droppedEvents, _ = meter.Int64Counter("orchestrator.events.dropped",
		metric.WithDescription("Events discarded as stale or invalid for the current mode"))
)
