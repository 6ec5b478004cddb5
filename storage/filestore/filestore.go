// Package filestore is a storage.Slot backed by one file per key in a profile directory.
//
// Several processes opening the same directory share the slot. Changes made by other
// processes are detected with fsnotify; a change this Store made itself is recognised
// because every watch records the value last written through it.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/rs/zerolog"
)

const (
	slotExt   = ".slot"
	tmpPrefix = ".tmp-"
	fileMode  = 0o600
	dirMode   = 0o700
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type fileWatch struct {
	stream *storage.EventStream
	seen   map[string][]byte
}

// Store is a file backed slot.
type Store struct {
	dir     string
	logger  zerolog.Logger
	mu      sync.Mutex
	watches map[*fileWatch]struct{}
	closed  bool
}

var _ storage.Slot = (*Store)(nil)

type Option func(*Store)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open creates dir if needed and returns a Store over it.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("filestore.Open: %w", err)
	}
	s := &Store{
		dir:     dir,
		logger:  logging.Component("filestore"),
		watches: make(map[*fileWatch]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir is the profile directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key %q: %w", key, autherrors.ErrInvalidRequest)
	}
	return filepath.Join(s.dir, key+slotExt), nil
}

func (s *Store) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filestore.Get %s: %w", key, err)
	}
	return data, nil
}

// Set writes the value atomically (temp file then rename).
func (s *Store) Set(key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return autherrors.ErrStorageClosed
	}

	for w := range s.watches {
		w.seen[key] = append([]byte{}, value...)
	}

	tmp, err := os.CreateTemp(s.dir, tmpPrefix+key+"-*")
	if err != nil {
		return fmt.Errorf("filestore.Set create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore.Set write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore.Set sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore.Set close: %w", err)
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		return fmt.Errorf("filestore.Set chmod: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("filestore.Set rename: %w", err)
	}
	return nil
}

// Remove deletes key. A missing key is not an error.
func (s *Store) Remove(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return autherrors.ErrStorageClosed
	}

	for w := range s.watches {
		delete(w.seen, key)
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filestore.Remove: %w", err)
	}
	return nil
}

// Watch reports changes to slot files made by other processes (or other Stores).
func (s *Store) Watch(ctx context.Context) (<-chan storage.Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filestore.Watch: %w", err)
	}
	if err := fsw.Add(s.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("filestore.Watch add %s: %w", s.dir, err)
	}

	w := &fileWatch{
		stream: storage.NewEventStream(ctx),
		seen:   make(map[string][]byte),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fsw.Close()
		w.stream.Close()
		return nil, autherrors.ErrStorageClosed
	}
	if err := s.snapshot(w); err != nil {
		s.mu.Unlock()
		fsw.Close()
		w.stream.Close()
		return nil, err
	}
	s.watches[w] = struct{}{}
	s.mu.Unlock()

	go s.processEvents(fsw, w)
	return w.stream.C(), nil
}

// snapshot records the current contents so the first event can carry an OldValue.
func (s *Store) snapshot(w *fileWatch) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("filestore.Watch read dir: %w", err)
	}
	for _, e := range entries {
		key, ok := keyFromName(e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		w.seen[key] = data
	}
	return nil
}

func (s *Store) processEvents(fsw *fsnotify.Watcher, w *fileWatch) {
	defer func() {
		fsw.Close()
		s.mu.Lock()
		delete(s.watches, w)
		s.mu.Unlock()
	}()

	for {
		select {
		case <-w.stream.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				w.stream.Close()
				return
			}
			key, ok := keyFromName(filepath.Base(event.Name))
			if !ok {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.reconcile(w, key)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				w.stream.Close()
				return
			}
			s.logger.Warn().Err(err).Str("dir", s.dir).Msg("watch error")
		}
	}
}

func (s *Store) reconcile(w *fileWatch, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := os.ReadFile(filepath.Join(s.dir, key+slotExt))
	if err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to read changed slot")
		return
	}
	if os.IsNotExist(err) {
		current = nil
	}

	old, had := w.seen[key]
	switch {
	case current == nil && !had:
		return
	case current == nil:
		delete(w.seen, key)
	case had && bytes.Equal(old, current):
		return
	default:
		w.seen[key] = current
	}

	w.stream.Push(storage.Event{Key: key, OldValue: old, NewValue: current})
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for w := range s.watches {
		w.stream.Close()
	}
	return nil
}

func keyFromName(name string) (string, bool) {
	if strings.HasPrefix(name, tmpPrefix) || !strings.HasSuffix(name, slotExt) {
		return "", false
	}
	return strings.TrimSuffix(name, slotExt), true
}
