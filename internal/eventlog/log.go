package eventlog

import "fenrir/internal/decimalx"

// Sink receives events as they are emitted, e.g. an out-of-scope API shell
// subscribing to the engine (adapted from the teacher's
// Server.ReportTrade/ReportError pattern at internal/net/server.go). The
// in-memory Log below is always the append target; a Sink is an optional
// secondary observer and is never required for replay correctness.
type Sink interface {
	Observe(Event)
}

// Log is the append-only, ordered event sequence that is the engine's
// source of truth (spec.md §3, §12).
type Log struct {
	events []Event
	epoch  uint64
	seq    uint64
	sinks  []Sink
}

// NewLog constructs an empty log.
func NewLog() *Log {
	return &Log{}
}

// Subscribe registers a Sink to be notified of every appended event, in
// append order.
func (l *Log) Subscribe(sink Sink) {
	l.sinks = append(l.sinks, sink)
}

// BeginEpoch starts a new command's generation epoch; every event appended
// until the next BeginEpoch shares this Epoch number and is totally ordered
// by Seq within it (spec.md §5).
func (l *Log) BeginEpoch() uint64 {
	l.epoch++
	l.seq = 0
	return l.epoch
}

// Append records one event under the current epoch and notifies sinks.
func (l *Log) Append(kind Kind, ts decimalx.Timestamp, payload any) Event {
	l.seq++
	ev := Event{
		Epoch:     l.epoch,
		Seq:       l.seq,
		Kind:      kind,
		Timestamp: ts,
		Payload:   payload,
	}
	l.events = append(l.events, ev)
	for _, sink := range l.sinks {
		sink.Observe(ev)
	}
	return ev
}

// Events returns the full ordered log, for replay-based testing
// (spec.md §9 "pure-functional apply event to state" — see
// engine.Replay/engine.ApplyEvent, which fold this slice back into state).
func (l *Log) Events() []Event {
	return l.events
}

// Len reports how many events have been appended.
func (l *Log) Len() int { return len(l.events) }
