package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/conversions/infrastructure/meta"
	"github.com/foltz-ar/checkout-service/pkg/tracing"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Handler interface {
	CheckoutPaid(ctx context.Context, ev checkout.AttemptEvent) error
}

type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
}

// Consumer turns OrderPaid checkout events into Purchase conversions.
type Consumer struct {
	log        *slog.Logger
	reader     Reader
	handler    Handler
	idem       Deduper
	tracer     trace.Tracer
	maxElapsed time.Duration
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, handler Handler, idem Deduper) *Consumer {
	return &Consumer{
		log:        log,
		reader:     reader,
		handler:    handler,
		idem:       idem,
		tracer:     otel.Tracer("conversions-consumer"),
		maxElapsed: 30 * time.Second,
	}
}

// Run commits every fetched message once handled. A Purchase that still fails
// after retries is alerted and not redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	if tracing.Header(msg.Headers, "event_type") != checkout.EventOrderPaid {
		return
	}

	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Warn("idempotency check failed, processing anyway", "err", err)
	} else if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderPaid")
	defer span.End()

	var ev checkout.AttemptEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.log.Error("unmarshal failed", "offset", msg.Offset, "err", err)
		return
	}
	span.SetAttributes(attribute.String("payment.id", ev.PaymentID))

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.maxElapsed
	err = backoff.Retry(func() error {
		err := c.handler.CheckoutPaid(msgCtx, ev)
		var apiErr *meta.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 && apiErr.StatusCode != 429 {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, msgCtx))
	if err != nil {
		c.log.Error("purchase conversion not sent", "alert", true, "payment_id", ev.PaymentID, "offset", msg.Offset, "err", err)
		return
	}
	c.log.Info("order paid event processed", "payment_id", ev.PaymentID, "order_name", ev.OrderName)
}
