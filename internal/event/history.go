package event

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
)

// #region history
// History is a read-only, time-ordered snapshot of a user's events.
// Views returned by its methods share no state with the caller's input.
type History struct {
	events []Event
}

// NewHistory copies events and orders them by start time, then by ID.
func NewHistory(events []Event) History {
	cp := make([]Event, len(events))
	for i, ev := range events {
		cp[i] = ev.Clone()
	}
	slices.SortStableFunc(cp, func(a, b Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	closeOpenSleeps(cp)
	return History{events: cp}
}

// closeOpenSleeps ends a sleep that has neither an end timestamp nor a
// duration at the next wake event, provided no other rest starts first.
func closeOpenSleeps(evs []Event) {
	for i := range evs {
		if evs[i].Type != Sleep || evs[i].End != nil || evs[i].Has("duration_hours") {
			continue
		}
		for j := i + 1; j < len(evs); j++ {
			if evs[j].Type.IsRest() {
				break
			}
			if evs[j].Type == Wake && evs[j].Start.After(evs[i].Start) {
				end := evs[j].Start
				evs[i].End = &end
				break
			}
		}
	}
}

// Len returns the number of events.
func (h History) Len() int { return len(h.events) }

// Events returns a copy of the ordered events.
func (h History) Events() []Event {
	return slices.Clone(h.events)
}

// Each calls fn for every event in order.
func (h History) Each(fn func(Event)) {
	for _, ev := range h.events {
		fn(ev)
	}
}

func (h History) filter(keep func(Event) bool) History {
	var out []Event
	for _, ev := range h.events {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	return History{events: out}
}

// Until keeps events that started at or before t.
func (h History) Until(t time.Time) History {
	return h.filter(func(ev Event) bool { return !ev.Start.After(t) })
}

// Between keeps events whose start lies in [from, to].
func (h History) Between(from, to time.Time) History {
	return h.filter(func(ev Event) bool {
		return !ev.Start.Before(from) && !ev.Start.After(to)
	})
}

// OfType keeps events of the given types.
func (h History) OfType(types ...Type) History {
	return h.filter(func(ev Event) bool { return slices.Contains(types, ev.Type) })
}

// Activities drops health measurements.
func (h History) Activities() History {
	return h.filter(func(ev Event) bool { return !ev.Type.IsHealth() })
}

// Measurements keeps only health measurements.
func (h History) Measurements() History {
	return h.filter(func(ev Event) bool { return ev.Type.IsHealth() })
}

// Last returns the latest event, if any.
func (h History) Last() (Event, bool) {
	if len(h.events) == 0 {
		return Event{}, false
	}
	return h.events[len(h.events)-1], true
}

// #endregion history

// #region document
// Document is the JSON exchange format: a user and their events.
type Document struct {
	UserID string  `json:"user_id"`
	Events []Event `json:"events"`
}

// Decode reads a Document and gives every event without an ID a fresh one.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode events: %w", err)
	}
	AssignIDs(doc.Events)
	for i := range doc.Events {
		if doc.Events[i].Start.IsZero() {
			return Document{}, fmt.Errorf("event %d (%s): missing timestamp", i, doc.Events[i].ID)
		}
	}
	return doc, nil
}

// AssignIDs gives every event without an ID a fresh one, in place.
func AssignIDs(evs []Event) {
	for i := range evs {
		if evs[i].ID == "" {
			evs[i].ID = uuid.NewString()
		}
	}
}

// LoadDocument reads a Document from a JSON file.
func LoadDocument(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// History wraps the document's events.
func (d Document) History() History {
	return NewHistory(d.Events)
}

// #endregion document
