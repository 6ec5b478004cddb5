// Package sqlitestore is a storage.Slot kept in a single SQLite table.
//
// Every process opening the same database file shares the slot. Commits by other
// connections are detected by polling PRAGMA data_version on a dedicated connection
// and diffing the table against the values this Store last saw or wrote.
package sqlitestore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `CREATE TABLE IF NOT EXISTS slots (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

type sqlWatch struct {
	stream *storage.EventStream
	seen   map[string][]byte
}

// Store is a Slot kept in a SQLite database file.
type Store struct {
	db           *sql.DB
	pollInterval time.Duration
	logger       zerolog.Logger

	mu      sync.Mutex
	watches map[*sqlWatch]struct{}
	closed  bool
}

var _ storage.Slot = (*Store)(nil)

type Option func(*Store)

// WithPollInterval sets how often Watch checks for other connections' commits.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens (creating if needed) the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore.Open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore.Open schema: %w", err)
	}

	s := &Store{
		db:           db,
		pollInterval: 250 * time.Millisecond,
		logger:       logging.Component("sqlitestore"),
		watches:      make(map[*sqlWatch]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore.Get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts key in a single statement.
func (s *Store) Set(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return autherrors.ErrStorageClosed
	}

	if _, err := s.db.Exec(
		`INSERT INTO slots (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	); err != nil {
		return fmt.Errorf("sqlitestore.Set %s: %w", key, err)
	}
	for w := range s.watches {
		w.seen[key] = append([]byte{}, value...)
	}
	return nil
}

func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return autherrors.ErrStorageClosed
	}

	if _, err := s.db.Exec(`DELETE FROM slots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlitestore.Remove %s: %w", key, err)
	}
	for w := range s.watches {
		delete(w.seen, key)
	}
	return nil
}

// Watch polls for commits made through other connections.
func (s *Store) Watch(ctx context.Context) (<-chan storage.Event, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore.Watch conn: %w", err)
	}

	w := &sqlWatch{
		stream: storage.NewEventStream(ctx),
		seen:   make(map[string][]byte),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		w.stream.Close()
		return nil, autherrors.ErrStorageClosed
	}
	current, err := readAll(ctx, conn)
	if err != nil {
		s.mu.Unlock()
		conn.Close()
		w.stream.Close()
		return nil, err
	}
	w.seen = current
	s.watches[w] = struct{}{}
	s.mu.Unlock()

	version, err := dataVersion(ctx, conn)
	if err != nil {
		s.mu.Lock()
		delete(s.watches, w)
		s.mu.Unlock()
		conn.Close()
		w.stream.Close()
		return nil, err
	}

	go s.poll(ctx, conn, w, version)
	return w.stream.C(), nil
}

func (s *Store) poll(ctx context.Context, conn *sql.Conn, w *sqlWatch, version int64) {
	ticker := time.NewTicker(s.pollInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
		s.mu.Lock()
		delete(s.watches, w)
		s.mu.Unlock()
	}()

	for {
		select {
		case <-w.stream.Done():
			return
		case <-ticker.C:
			v, err := dataVersion(ctx, conn)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn().Err(err).Msg("data_version poll failed")
				continue
			}
			if v == version {
				continue
			}
			version = v
			s.reconcile(ctx, conn, w)
		}
	}
}

func (s *Store) reconcile(ctx context.Context, conn *sql.Conn, w *sqlWatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := readAll(ctx, conn)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read slots")
		return
	}

	for key, old := range w.seen {
		if _, ok := current[key]; !ok {
			w.stream.Push(storage.Event{Key: key, OldValue: old})
		}
	}
	for key, value := range current {
		old, had := w.seen[key]
		if had && bytes.Equal(old, value) {
			continue
		}
		w.stream.Push(storage.Event{Key: key, OldValue: old, NewValue: value})
	}
	w.seen = current
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for w := range s.watches {
		w.stream.Close()
	}
	s.mu.Unlock()
	return s.db.Close()
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	if err := conn.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("sqlitestore data_version: %w", err)
	}
	return v, nil
}

func readAll(ctx context.Context, conn *sql.Conn) (map[string][]byte, error) {
	rows, err := conn.QueryContext(ctx, `SELECT key, value FROM slots`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore read: %w", err)
	}
	defer rows.Close()

	values := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("sqlitestore scan: %w", err)
		}
		if value == nil {
			value = []byte{}
		}
		values[key] = value
	}
	return values, rows.Err()
}
