package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "image-to-excel-converter/websocket"

// Metrics holds the hub instruments
type Metrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	messagesTotal      metric.Int64Counter
	messageBytes       metric.Int64Counter
	droppedMessages    metric.Int64Counter
}

// NewMetrics creates the hub instruments on meter. A nil meter records
// nothing.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(meterName)
	}

	var (
		m   Metrics
		err error
	)
	if m.connectionsTotal, err = meter.Int64Counter("websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections")); err != nil {
		return nil, err
	}
	if m.connectionsActive, err = meter.Int64UpDownCounter("websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections")); err != nil {
		return nil, err
	}
	if m.connectionDuration, err = meter.Float64Histogram("websocket_connection_duration_seconds",
		metric.WithDescription("WebSocket connection lifetime"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.messagesTotal, err = meter.Int64Counter("websocket_messages_total",
		metric.WithDescription("WebSocket messages by direction and type")); err != nil {
		return nil, err
	}
	if m.messageBytes, err = meter.Int64Counter("websocket_message_bytes_total",
		metric.WithDescription("WebSocket payload bytes by direction"), metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.droppedMessages, err = meter.Int64Counter("websocket_dropped_messages_total",
		metric.WithDescription("Messages dropped because a queue was full")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) recordConnection(ctx context.Context) {
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

func (m *Metrics) recordDisconnection(ctx context.Context, d time.Duration, reason string) {
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) recordMessage(ctx context.Context, direction, msgType string, size int) {
	m.messagesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("type", msgType)))
	m.messageBytes.Add(ctx, int64(size), metric.WithAttributes(attribute.String("direction", direction)))
}

func (m *Metrics) recordDropped(ctx context.Context, where string) {
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", where)))
}
