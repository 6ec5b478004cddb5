// Package storage defines the durable key-value slot shared by every tab of a profile.
//
// A Slot behaves like browser local storage: values survive restarts, every tab of
// the same profile sees the same values, and Watch reports writes made by OTHER
// tabs only. Writers never wait for watchers.
package storage

import (
	"context"
	"sync"

	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = autherrors.ErrNotFound

// Event describes a change made to a key by another tab.
// A nil NewValue means the key was removed.
type Event struct {
	Key      string
	OldValue []byte
	NewValue []byte
}

// Removed reports whether the event is a removal.
func (e Event) Removed() bool {
	return e.NewValue == nil
}

// Slot is the durable key/value storage shared by the tabs of one profile.
type Slot interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error

	// Watch streams changes made by other tabs until ctx is cancelled or the slot closes.
	Watch(ctx context.Context) (<-chan Event, error)

	Close() error
}

// EventStream is an unbounded, ordered queue feeding a receive channel.
// Push never blocks, so a slow watcher cannot stall a writer.
type EventStream struct {
	mu      sync.Mutex
	pending []Event
	closed  bool
	signal  chan struct{}
	out     chan Event
	done    chan struct{}
}

// NewEventStream starts a stream that delivers until ctx is done or Close is called.
func NewEventStream(ctx context.Context) *EventStream {
	s := &EventStream{
		signal: make(chan struct{}, 1),
		out:    make(chan Event),
		done:   make(chan struct{}),
	}
	go s.pump(ctx)
	return s
}

// C returns the receive side of the stream. It is closed when the stream stops.
func (s *EventStream) C() <-chan Event {
	return s.out
}

// Done is closed once the stream has stopped delivering.
func (s *EventStream) Done() <-chan struct{} {
	return s.done
}

// Push queues e for delivery. It never blocks.
func (s *EventStream) Push(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, e)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Close stops delivery and closes the channel. It is safe to call more than once.
func (s *EventStream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *EventStream) pump(ctx context.Context) {
	defer close(s.done)
	defer close(s.out)

	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		var next *Event
		if len(s.pending) > 0 {
			e := s.pending[0]
			s.pending = s.pending[1:]
			next = &e
		}
		s.mu.Unlock()

		if next == nil {
			select {
			case <-ctx.Done():
				s.Close()
				return
			case <-s.signal:
			}
			continue
		}

		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.signal:
			// Re-queue at the front and re-check for close.
			s.mu.Lock()
			s.pending = append([]Event{*next}, s.pending...)
			s.mu.Unlock()
		case s.out <- *next:
		}
	}
}
