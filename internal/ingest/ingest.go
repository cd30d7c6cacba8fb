package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/metrics"
)

// #region config
// Config names the brokers and topics events arrive on. An empty broker
// list or address disables that source.
type Config struct {
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTQoS      byte
}

// DefaultConfig returns topic names with both sources disabled.
func DefaultConfig() Config {
	return Config{
		KafkaTopic:   "estimator.events",
		KafkaGroup:   "estimator-ingest",
		MQTTTopic:    "estimator/events/+",
		MQTTClientID: "estimator-ingest",
		MQTTQoS:      1,
	}
}

// #endregion config

// #region ingester
var (
	// ErrPayload marks a message that can never be stored.
	ErrPayload = errors.New("bad payload")
	// ErrNoUser is returned for payloads that name no user.
	ErrNoUser = errors.New("payload has no user_id")
)

// Sink stores decoded events. *state.Store satisfies it.
type Sink interface {
	AddEvents(userID string, evs []event.Event) (int, error)
}

// Ingester decodes event documents from a broker and hands them to a Sink.
type Ingester struct {
	sink    Sink
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewIngester creates an ingester. A nil logger discards records.
func NewIngester(sink Sink, log *slog.Logger) *Ingester {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ingester{sink: sink, log: log.With(slog.String("component", "ingest"))}
}

// WithMetrics counts stored events and rejected messages on m.
func (i *Ingester) WithMetrics(m *metrics.Metrics) *Ingester {
	i.metrics = m
	return i
}

// Handle decodes one payload in the event document format and stores its
// events. fallbackUser is used when the document carries no user_id.
// Decode failures wrap ErrPayload; storage failures are returned as is.
func (i *Ingester) Handle(fallbackUser string, payload []byte) (int, error) {
	doc, err := event.Decode(bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	if doc.UserID == "" {
		doc.UserID = fallbackUser
	}
	if doc.UserID == "" {
		return 0, fmt.Errorf("%w: %w", ErrPayload, ErrNoUser)
	}
	if len(doc.Events) == 0 {
		return 0, nil
	}
	n, err := i.sink.AddEvents(doc.UserID, doc.Events)
	if err != nil {
		return 0, fmt.Errorf("store events for %s: %w", doc.UserID, err)
	}
	i.log.Debug("stored events", "user", doc.UserID, "count", n)
	return n, nil
}

// #endregion ingester
