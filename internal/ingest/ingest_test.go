package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/state"
)

const doc = `{"user_id":"alice","events":[
	{"event_id":"c1","event_type":"caffeine","timestamp":"2025-03-10T08:00:00Z","properties":{"dose_mg":100}},
	{"event_type":"health_hrv","timestamp":"2025-03-10T07:00:00Z","properties":{"value":55}}]}`

const anonymous = `{"events":[{"event_id":"e1","event_type":"exercise","timestamp":"2025-03-10T18:00:00Z","properties":{"duration_minutes":30}}]}`

// #region fakes
type memSink struct {
	events map[string][]event.Event
	err    error
}

func (s *memSink) AddEvents(userID string, evs []event.Event) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.events == nil {
		s.events = map[string][]event.Event{}
	}
	s.events[userID] = append(s.events[userID], evs...)
	return len(evs), nil
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// #endregion fakes

// #region handle-tests
func TestHandle(t *testing.T) {
	tests := []struct {
		name     string
		fallback string
		payload  string
		wantUser string
		wantN    int
		wantErr  error
	}{
		{"document user", "bob", doc, "alice", 2, nil},
		{"fallback user", "bob", anonymous, "bob", 1, nil},
		{"no user", "", anonymous, "", 0, ErrNoUser},
		{"bad json", "bob", `{"events":`, "", 0, ErrPayload},
		{"missing timestamp", "bob", `{"events":[{"event_type":"sleep"}]}`, "", 0, ErrPayload},
		{"no events", "bob", `{"user_id":"x","events":[]}`, "", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &memSink{}
			n, err := NewIngester(sink, nil).Handle(tt.fallback, []byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if n != tt.wantN {
				t.Errorf("stored %d, want %d", n, tt.wantN)
			}
			if tt.wantUser != "" && len(sink.events[tt.wantUser]) != tt.wantN {
				t.Errorf("events for %s = %d", tt.wantUser, len(sink.events[tt.wantUser]))
			}
		})
	}
}

func TestHandle_StoreError(t *testing.T) {
	sink := &memSink{err: errors.New("disk full")}
	_, err := NewIngester(sink, nil).Handle("", []byte(doc))
	if err == nil || errors.Is(err, ErrPayload) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestHandle_IntoStore(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if _, err := NewIngester(store, nil).Handle("", []byte(doc)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	evs, err := store.Events("alice")
	if err != nil || len(evs) != 2 {
		t.Fatalf("Events = %d, %v", len(evs), err)
	}
	if evs[0].Type != event.HealthType(event.HRV) || evs[0].ID == "" {
		t.Errorf("first event = %+v", evs[0])
	}
}

// #endregion handle-tests

// #region source-tests
func TestConsumeKafka(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte(doc)},
			{Offset: 2, Value: []byte(`not json`)},
			{Offset: 3, Key: []byte("carol"), Value: []byte(anonymous)},
		},
		cancel: cancel,
	}
	sink := &memSink{}
	if err := NewIngester(sink, nil).ConsumeKafka(ctx, r); err != nil {
		t.Fatalf("ConsumeKafka: %v", err)
	}
	if len(r.committed) != 3 {
		t.Errorf("committed %v, want all three offsets", r.committed)
	}
	if len(sink.events["alice"]) != 2 || len(sink.events["carol"]) != 1 {
		t.Errorf("stored %v", sink.events)
	}
}

func TestConsumeKafka_StoreErrorStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{msgs: []kafka.Message{{Offset: 7, Value: []byte(doc)}}, cancel: cancel}
	err := NewIngester(&memSink{err: errors.New("locked")}, nil).ConsumeKafka(ctx, r)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(r.committed) != 0 {
		t.Errorf("committed %v after storage failure", r.committed)
	}
}

func TestMQTTHandler_TopicUser(t *testing.T) {
	sink := &memSink{}
	h := NewIngester(sink, nil).MQTTHandler()
	h(nil, fakeMessage{topic: "estimator/events/dave", payload: []byte(anonymous)})
	h(nil, fakeMessage{topic: "estimator/events/dave", payload: []byte(`{`)})
	h(nil, fakeMessage{topic: "estimator/events/dave", payload: []byte(doc)})

	if len(sink.events["dave"]) != 1 || len(sink.events["alice"]) != 2 {
		t.Errorf("stored %v", sink.events)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if len(cfg.KafkaBrokers) != 0 || cfg.MQTTBroker != "" {
		t.Error("sources should be disabled by default")
	}
	if cfg.KafkaTopic == "" || cfg.MQTTTopic == "" {
		t.Error("default topics missing")
	}
}

// #endregion source-tests
