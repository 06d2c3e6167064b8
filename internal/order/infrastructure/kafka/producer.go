package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer publishes outbox events. The topic comes from each message, so the
// writer itself has none.
type Writer struct {
	w *kafka.Writer
}

func NewWriter(brokers []string) *Writer {
	return &Writer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           20 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

// WriteMessages keys by payment id, so events of one checkout stay ordered
// within a partition.
func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return w.w.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.w.Close()
}
