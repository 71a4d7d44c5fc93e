package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// EventType tags a progress event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventStep     EventType = "step"
	EventResult   EventType = "result"
	EventError    EventType = "error"
)

// Event is one progress notification from a running task. Events arrive in
// execution order on the handle's channel; when the consumer lags behind
// the buffer, events are dropped and counted rather than blocking the loop.
type Event struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Step      string    `json:"step,omitempty"`
	Round     int       `json:"round,omitempty"`
	Percent   int       `json:"percent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// defaultEventBuffer is the per-task event channel capacity.
const defaultEventBuffer = 256

// eventSink is the sending side of a task's event channel.
type eventSink struct {
	ch        chan Event
	dropped   atomic.Int64
	closeOnce sync.Once
	onDrop    func()
}

func newEventSink(buffer int, onDrop func()) *eventSink {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &eventSink{
		ch:     make(chan Event, buffer),
		onDrop: onDrop,
	}
}

// emit delivers an event without ever blocking the research loop.
func (s *eventSink) emit(ev Event) {
	ev.Timestamp = time.Now()
	select {
	case s.ch <- ev:
	default:
		n := s.dropped.Add(1)
		if s.onDrop != nil {
			s.onDrop()
		}
		slog.Debug("engine: event dropped, consumer lagging", "type", ev.Type, "total_dropped", n)
	}
}

func (s *eventSink) progress(message string, percent int) {
	s.emit(Event{Type: EventProgress, Message: message, Percent: percent})
}

func (s *eventSink) step(step, message string, round int) {
	s.emit(Event{Type: EventStep, Step: step, Message: message, Round: round})
}

// close ends the stream. Safe to call more than once.
func (s *eventSink) close() {
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}

// Dropped returns how many events were lost to a slow consumer.
func (s *eventSink) Dropped() int64 {
	return s.dropped.Load()
}
