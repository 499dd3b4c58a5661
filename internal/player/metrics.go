package player

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/flanker-wargame/client/internal/player"

type metrics struct {
	actions  metric.Int64Counter
	duration metric.Float64Histogram
}

// newMetrics uses the global OTel meter (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)

	actions, err := m.Int64Counter(
		"player.actions",
		metric.WithDescription("Actions dispatched to the game server"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating actions counter: %w", err)
	}

	duration, err := m.Float64Histogram(
		"player.action.duration",
		metric.WithDescription("Round trip time of dispatched actions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &metrics{actions: actions, duration: duration}, nil
}

func (m *metrics) record(ctx context.Context, kind actionKind, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("action", string(kind)),
		attribute.String("result", result),
	)
	m.actions.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}
