package events

import "sync"

// Event represents a structured state change emitted by the distribution
// ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, metrics,
// indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MemoryEmitter records every emitted event in order. Intended for tests and
// diagnostics.
type MemoryEmitter struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (m *MemoryEmitter) Emit(evt Event) {
	if m == nil || evt == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

// Events returns a copy of the recorded events in emission order.
func (m *MemoryEmitter) Events() []Event {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

type multiEmitter struct {
	emitters []Emitter
}

// Multi fans every event out to each of the supplied emitters. Nil entries are
// skipped.
func Multi(emitters ...Emitter) Emitter {
	filtered := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	return multiEmitter{emitters: filtered}
}

func (m multiEmitter) Emit(evt Event) {
	for _, e := range m.emitters {
		e.Emit(evt)
	}
}
