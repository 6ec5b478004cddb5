// Package memstore is an in-process storage.Slot backend.
//
// A Profile is the shared durable area; each Open returns a Handle playing the part
// of one tab. Writes through a handle are published to the watchers of every other
// handle of the same profile, which makes cross-tab behaviour testable without
// separate processes.
package memstore

import (
	"bytes"
	"context"
	"sync"

	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/storage"
)

type watcher struct {
	owner  *Handle
	stream *storage.EventStream
}

// Profile is the shared key-value area.
type Profile struct {
	mu       sync.Mutex
	values   map[string][]byte
	watchers map[*watcher]struct{}
}

// NewProfile creates an empty in-process profile.
func NewProfile() *Profile {
	return &Profile{
		values:   make(map[string][]byte),
		watchers: make(map[*watcher]struct{}),
	}
}

// Open returns a new handle onto the profile.
func (p *Profile) Open() *Handle {
	return &Handle{profile: p}
}

// Publish writes key as if an unrelated context had done so; every watcher is notified.
// A nil value removes the key.
func (p *Profile) Publish(key string, value []byte) {
	p.write(nil, key, value)
}

func (p *Profile) write(from *Handle, key string, value []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	old, existed := p.values[key]
	if value == nil {
		if !existed {
			return
		}
		delete(p.values, key)
	} else {
		if existed && bytes.Equal(old, value) {
			return
		}
		p.values[key] = clone(value)
	}

	for w := range p.watchers {
		if w.owner == from {
			continue
		}
		w.stream.Push(storage.Event{Key: key, OldValue: clone(old), NewValue: clone(value)})
	}
}

func (p *Profile) removeWatcher(w *watcher) {
	p.mu.Lock()
	delete(p.watchers, w)
	p.mu.Unlock()
}

// Handle is one tab's view of the profile.
type Handle struct {
	profile *Profile
	mu      sync.Mutex
	closed  bool
	streams []*storage.EventStream
}

var _ storage.Slot = (*Handle)(nil)

func (h *Handle) Get(key string) ([]byte, error) {
	if h.isClosed() {
		return nil, autherrors.ErrStorageClosed
	}
	h.profile.mu.Lock()
	defer h.profile.mu.Unlock()

	v, ok := h.profile.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(v), nil
}

func (h *Handle) Set(key string, value []byte) error {
	if h.isClosed() {
		return autherrors.ErrStorageClosed
	}
	if value == nil {
		value = []byte{}
	}
	h.profile.write(h, key, value)
	return nil
}

func (h *Handle) Remove(key string) error {
	if h.isClosed() {
		return autherrors.ErrStorageClosed
	}
	h.profile.write(h, key, nil)
	return nil
}

// Watch delivers writes made through the profile's other handles and Publish.
func (h *Handle) Watch(ctx context.Context) (<-chan storage.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, autherrors.ErrStorageClosed
	}

	w := &watcher{owner: h, stream: storage.NewEventStream(ctx)}
	h.profile.mu.Lock()
	h.profile.watchers[w] = struct{}{}
	h.profile.mu.Unlock()
	h.streams = append(h.streams, w.stream)

	go func() {
		<-w.stream.Done()
		h.profile.removeWatcher(w)
	}()
	return w.stream.C(), nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, s := range h.streams {
		s.Close()
	}
	h.streams = nil
	return nil
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
