package progress

import (
	"sync"
	"sync/atomic"
)

// Sink receives progress events. Emit must not block.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// DefaultBuffer is the initial AsyncSink queue capacity used by the server.
const DefaultBuffer = 256

// AsyncSink decouples a producer from a slow consumer. Events are appended
// to an unbounded queue and written in order by one goroutine, so a slow
// consumer delays events but never loses them. Events after the terminal
// event are ignored. Once write fails, the remaining events are counted as
// dropped.
type AsyncSink struct {
	write func(Event) error

	mu         sync.Mutex
	pending    []Event
	closed     bool
	terminated bool
	wake       chan struct{}

	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Bool
	err     error
}

// NewAsyncSink starts the writer goroutine. buffer is the initial queue
// capacity. write is called for each event in order until it returns an
// error; after that events are discarded.
func NewAsyncSink(buffer int, write func(Event) error) *AsyncSink {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &AsyncSink{
		write:   write,
		pending: make([]Event, 0, buffer),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		closed := s.closed
		s.mu.Unlock()

		for _, e := range batch {
			s.deliver(e)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-s.wake
	}
}

func (s *AsyncSink) deliver(e Event) {
	if s.failed.Load() {
		s.dropped.Add(1)
		return
	}
	if err := s.write(e); err != nil {
		s.err = err
		s.failed.Store(true)
	}
}

// Emit queues e without blocking.
func (s *AsyncSink) Emit(e Event) {
	s.mu.Lock()
	if s.closed || s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = IsTerminal(e)
	s.pending = append(s.pending, e)
	s.mu.Unlock()
	s.signal()
}

// Close flushes queued events and waits for the writer to finish. It is
// safe to call more than once.
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()

	<-s.done
	return s.err
}

// Dropped returns how many events were not delivered.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Failed reports whether the consumer returned a write error.
func (s *AsyncSink) Failed() bool {
	return s.failed.Load()
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the type tags of the recorded events.
func (r *Recorder) Types() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type()
	}
	return out
}

// Terminals returns the terminal events recorded.
func (r *Recorder) Terminals() []Event {
	var out []Event
	for _, e := range r.Events() {
		if IsTerminal(e) {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the last recorded event, or nil.
func (r *Recorder) Last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

// Tee fans events out to several sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}
