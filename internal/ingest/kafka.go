package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// #region kafka
// MessageReader is the part of *kafka.Reader the consumer loop uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaReader builds a consumer-group reader for cfg.KafkaTopic.
func NewKafkaReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroup,
		Topic:    cfg.KafkaTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
}

// ConsumeKafka stores every message from r until ctx ends. The message key
// is the fallback user. Bad payloads are logged and committed; a storage
// failure stops the loop without committing so the message is redelivered.
func (i *Ingester) ConsumeKafka(ctx context.Context, r MessageReader) error {
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		n, err := i.Handle(string(msg.Key), msg.Value)
		i.metrics.ObserveIngest("kafka", n, err)
		if err != nil {
			if !errors.Is(err, ErrPayload) {
				return err
			}
			i.log.Warn("dropping message", "topic", msg.Topic, "partition", msg.Partition,
				"offset", msg.Offset, "error", err)
		}

		if err := r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

// #endregion kafka
