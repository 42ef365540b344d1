package relay

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-pet/internal/relay"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	askedPrompts, _ = meter.Int64Counter("relay.prompts",
		metric.WithDescription("Prompts answered by the relay"),
		metric.WithUnit("{prompt}"),
	)
)
