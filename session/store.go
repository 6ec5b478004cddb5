// Package session holds the authenticated session of one tab and mirrors it to the
// durable storage slot shared with the other tabs.
package session

import (
	"errors"
	"fmt"
	"sync"

	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/metrics"
	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/jrsteele09/go-session-lifecycle/users"
	"github.com/rs/zerolog"
)

const DefaultKey = "session"

// Logout reasons recorded in metrics and logs.
const (
	ReasonUser     = "user"
	ReasonExpired  = "expired"
	ReasonRefresh  = "refresh_failed"
	ReasonCrossTab = "cross_tab"
	ReasonCorrupt  = "corrupted"
)

// Listener is called after every change of the in-memory session.
type Listener func(Session)

// Store is the single in-memory session of a tab plus its persistence side effect.
// It performs no token validation.
type Store struct {
	slot    storage.Slot
	key     string
	logger  zerolog.Logger
	metrics *metrics.Metrics

	// writeMu serializes mutations across check, persist and swap.
	writeMu sync.Mutex
	mu      sync.RWMutex
	current Session

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

type Option func(*Store)

// WithKey overrides the slot key the record is kept under.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics records logins and logouts in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates an unauthenticated store backed by slot. Call Restore to load
// the persisted session.
func NewStore(slot storage.Slot, opts ...Option) *Store {
	s := &Store{
		slot:      slot,
		key:       DefaultKey,
		logger:    logging.Component("session"),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key is the durable slot key holding the session record.
func (s *Store) Key() string {
	return s.key
}

// Current returns the session, or the unauthenticated default. It never blocks on I/O.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Restore loads the persisted record. A missing or corrupted record leaves the
// store unauthenticated; corruption is logged and not returned.
func (s *Store) Restore() error {
	data, err := s.slot.Get(s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.set(Session{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("Store.Restore: %w", err)
	}

	rec, err := DecodeRecord(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding corrupted session record")
		s.set(Session{})
		return nil
	}
	s.set(rec.Session())
	if sess := s.Current(); sess.IsAuthenticated() {
		s.logger.Info().Str("user", sess.User.Username).Msg("session restored")
	}
	return nil
}

// Login builds a session from a login response, persists it and makes it current.
// When persisting fails the in-memory session is left unchanged.
func (s *Store) Login(resp LoginResponse) error {
	if resp.AccessToken == "" {
		return fmt.Errorf("Store.Login: missing access token: %w", autherrors.ErrLoginFailed)
	}

	sess := Session{
		User: users.User{
			ID:       resp.ID,
			Username: resp.Username,
			Email:    resp.Email,
			Role:     users.RoleType(resp.Role),
		},
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}

	s.writeMu.Lock()
	if err := s.persist(sess); err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("Store.Login: %w", err)
	}
	s.setLocked(sess)
	s.writeMu.Unlock()

	s.notify(sess)
	s.metrics.Login()
	s.logger.Info().Str("user", sess.User.Username).Str("role", string(sess.User.Role)).Msg("logged in")
	return nil
}

// Logout clears the durable record and resets the session. It is a no-op when
// already logged out.
func (s *Store) Logout() {
	s.LogoutWithReason(ReasonUser)
}

// LogoutWithReason is Logout with the reason recorded in logs and metrics.
func (s *Store) LogoutWithReason(reason string) {
	s.writeMu.Lock()
	if !s.Current().IsAuthenticated() {
		s.writeMu.Unlock()
		return
	}
	if err := s.slot.Remove(s.key); err != nil {
		s.logger.Err(err).Msg("failed to remove session record")
	}
	s.setLocked(Session{})
	s.writeMu.Unlock()

	s.notify(Session{})
	s.metrics.Logout(reason)
	s.logger.Info().Str("reason", reason).Msg("logged out")
}

// ReplaceTokens installs a refreshed token pair, keeping the user identity. It only
// applies while the current access token is still expectedAccessToken, so a refresh
// that completes after the session changed is discarded (returns false) and the
// slot is left as the change wrote it.
func (s *Store) ReplaceTokens(expectedAccessToken string, pair TokenPair) (bool, error) {
	s.writeMu.Lock()
	cur := s.Current()
	if !cur.IsAuthenticated() || cur.AccessToken != expectedAccessToken {
		s.writeMu.Unlock()
		return false, nil
	}

	next := cur
	next.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		next.RefreshToken = pair.RefreshToken
	}
	if err := s.persist(next); err != nil {
		s.writeMu.Unlock()
		return false, fmt.Errorf("Store.ReplaceTokens: %w", err)
	}
	s.setLocked(next)
	s.writeMu.Unlock()

	s.notify(next)
	return true, nil
}

// Adopt takes another tab's record verbatim without writing the slot.
func (s *Store) Adopt(rec Record) {
	sess := rec.Session()
	s.writeMu.Lock()
	s.setLocked(sess)
	s.writeMu.Unlock()
	s.notify(sess)
}

// Reset drops the in-memory session without touching the slot. Used when another
// tab has already removed the record, or left one this tab cannot read. The
// reason is recorded like a logout.
func (s *Store) Reset(reason string) {
	s.writeMu.Lock()
	if !s.Current().IsAuthenticated() {
		s.writeMu.Unlock()
		return
	}
	s.setLocked(Session{})
	s.writeMu.Unlock()

	s.notify(Session{})
	s.metrics.Logout(reason)
	s.logger.Info().Str("reason", reason).Msg("logged out by another tab")
}

// Subscribe registers a listener; the returned func removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) persist(sess Session) error {
	data, err := EncodeRecord(NewRecord(sess))
	if err != nil {
		return err
	}
	return s.slot.Set(s.key, data)
}

func (s *Store) set(sess Session) {
	s.writeMu.Lock()
	s.setLocked(sess)
	s.writeMu.Unlock()
	s.notify(sess)
}

// setLocked swaps the in-memory session. The caller holds writeMu.
func (s *Store) setLocked(sess Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

func (s *Store) notify(sess Session) {
	s.listenersMu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.listenersMu.Unlock()

	for _, l := range ls {
		l(sess)
	}
}
