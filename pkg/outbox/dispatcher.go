package outbox

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"

	"github.com/foltz-ar/checkout-service/pkg/tracing"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ErrPermanent marks a dispatch failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent")

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher publishes outbox events to one topic, keyed by aggregate id so
// every event of a checkout lands on the same partition in order.
type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
	tracer   trace.Tracer
}

func NewDispatcher(log *slog.Logger, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topic: topic, tracer: otel.Tracer("outbox")}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	if len(event.Payload) == 0 {
		return errors.Join(ErrPermanent, errors.New("empty payload"))
	}

	if event.Traceparent != "" {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{tracing.TraceparentHeader: event.Traceparent})
	}
	ctx, span := d.tracer.Start(ctx, "outbox.dispatch "+event.Type, trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(attribute.Int64("outbox.event_id", event.ID), attribute.String("outbox.aggregate_id", event.AggregateID))

	keys := make([]string, 0, len(event.Headers))
	for k := range event.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	headers := make([]kafka.Header, 0, len(keys)+3)
	for _, k := range keys {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(event.Headers[k])})
	}
	headers = append(headers,
		kafka.Header{Key: "event_type", Value: []byte(event.Type)},
		kafka.Header{Key: "event_id", Value: []byte(strconv.FormatInt(event.ID, 10))},
	)
	headers = tracing.InjectKafkaHeaders(ctx, headers)
	if tracing.Header(headers, tracing.TraceparentHeader) == "" && event.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: tracing.TraceparentHeader, Value: []byte(event.Traceparent)})
	}

	msg := kafka.Message{
		Topic:   d.topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		d.log.Error("outbox dispatch failed", "event_id", event.ID, "type", event.Type, "err", err)
		return err
	}
	d.log.Debug("outbox dispatched", "event_id", event.ID, "type", event.Type, "aggregate_id", event.AggregateID)
	return nil
}
