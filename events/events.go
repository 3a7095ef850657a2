// Package events provides the event sinks the registrar publishes to.
package events

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ruteri/name-registrar/interfaces"
)

// DefaultCapacity is the number of events a Recorder keeps by default.
const DefaultCapacity = 4096

// Recorder keeps the most recent events in memory.
type Recorder struct {
	mu       sync.RWMutex
	buf      []interfaces.Event
	capacity int
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{capacity: capacity}
}

func (r *Recorder) Emit(ev interfaces.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) == r.capacity {
		copy(r.buf, r.buf[1:])
		r.buf = r.buf[:len(r.buf)-1]
	}
	r.buf = append(r.buf, ev)
}

// Since returns retained events with Seq > after, oldest first, at most
// limit of them. A non-positive limit returns everything.
func (r *Recorder) Since(after uint64, limit int) []interfaces.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []interfaces.Event{}
	for _, ev := range r.buf {
		if ev.Seq <= after {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buf)
}

// Export encodes all retained events for storage.
func (r *Recorder) Export() ([]byte, error) {
	return json.Marshal(r.Since(0, 0))
}

// Log writes every event to a structured logger.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Emit(ev interfaces.Event) {
	attrs := []any{
		slog.Uint64("seq", ev.Seq),
		slog.String("kind", string(ev.Kind)),
		slog.String("actor", ev.Actor.Hex()),
		slog.Uint64("at", uint64(ev.At)),
	}
	if ev.Name != "" {
		attrs = append(attrs, slog.String("name", ev.Name))
	}
	for k, v := range ev.Data {
		attrs = append(attrs, slog.String(k, v))
	}
	l.log.Debug("Registrar event", attrs...)
}

// Fanout forwards each event to every sink in order.
type Fanout []interfaces.EventSink

func (f Fanout) Emit(ev interfaces.Event) {
	for _, s := range f {
		s.Emit(ev)
	}
}

// SinkFunc adapts a function to interfaces.EventSink.
type SinkFunc func(interfaces.Event)

func (f SinkFunc) Emit(ev interfaces.Event) {
	f(ev)
}
