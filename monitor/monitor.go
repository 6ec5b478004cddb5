// Package monitor watches the expiry of the current access token and drives the
// ACTIVE / WARNING / EXPIRED state machine of a tab.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/metrics"
	"github.com/jrsteele09/go-session-lifecycle/session"
	"github.com/rs/zerolog"
)

const (
	DefaultThreshold    = 60 * time.Second
	DefaultTickInterval = time.Second
)

// Listener is called with the new state after every change.
// Listeners must not call Check or Expire.
type Listener func(State)

// Monitor tracks the expiry phase of the current access token of a store.
type Monitor struct {
	store     *session.Store
	threshold time.Duration
	tick      time.Duration
	nowFunc   func() time.Time
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	checkMu sync.Mutex

	mu           sync.RWMutex
	state        State
	expiredToken string

	listenersMu sync.Mutex
	listeners   []Listener

	wake chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Monitor)

// WithThreshold sets how long before expiry the Warning phase starts.
func WithThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.threshold = d
		}
	}
}

// WithTickInterval sets the check period while a session is live.
func WithTickInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.tick = d
		}
	}
}

// WithNowFunc sets the clock. Used by tests.
func WithNowFunc(now func() time.Time) Option {
	return func(m *Monitor) {
		m.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

// New creates an idle monitor for store. Call Start to begin checking.
func New(store *session.Store, opts ...Option) *Monitor {
	m := &Monitor{
		store:     store,
		threshold: DefaultThreshold,
		tick:      DefaultTickInterval,
		nowFunc:   time.Now,
		logger:    logging.Component("monitor"),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the result of the last check.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// OnChange registers a listener for state changes.
func (m *Monitor) OnChange(l Listener) {
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, l)
	m.listenersMu.Unlock()
}

// Check runs one tick: with no session the monitor is Idle and nothing is evaluated,
// otherwise the phase is derived from the current access token. Checks are
// serialized; a check and its notifications complete before the next begins.
func (m *Monitor) Check() State {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	sess := m.store.Current()

	m.mu.Lock()
	prev := m.state
	var next State
	switch {
	case !sess.IsAuthenticated():
		next = State{Phase: Idle}
		m.expiredToken = ""
	case sess.AccessToken == m.expiredToken:
		next = State{Phase: Expired, ExpiresAt: prev.ExpiresAt}
	default:
		next = Evaluate(sess.AccessToken, m.nowFunc(), m.threshold)
		if next.Phase == Expired {
			m.expiredToken = sess.AccessToken
		} else {
			m.expiredToken = ""
		}
	}
	m.state = next
	m.mu.Unlock()

	if next == prev {
		return next
	}
	if next.Phase != prev.Phase {
		m.metrics.Transition(next.Phase.String())
		m.logger.Debug().Str("from", prev.Phase.String()).Str("to", next.Phase.String()).Msg("phase changed")
	}
	m.notify(next)
	return next
}

// Expire marks the current access token as expired regardless of its claim. It is
// terminal for that token; a new token re-enters the state machine.
func (m *Monitor) Expire() State {
	sess := m.store.Current()
	if !sess.IsAuthenticated() {
		return m.Check()
	}
	m.mu.Lock()
	m.expiredToken = sess.AccessToken
	m.mu.Unlock()
	return m.Check()
}

// Start checks immediately and then on every tick while a session is Active or
// Warning. Store changes wake the loop at once. The ticker only exists while it is
// needed and is torn down when the session ends, expires, or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	unsubscribe := m.store.Subscribe(func(session.Session) {
		select {
		case m.wake <- struct{}{}:
		default:
		}
	})
	go m.run(ctx, unsubscribe, m.done)
}

// Stop halts the loop started by Start and waits for it to exit.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Monitor) run(ctx context.Context, unsubscribe func(), done chan struct{}) {
	defer close(done)
	defer unsubscribe()

	var ticker *time.Ticker
	var tickC <-chan time.Time
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tickC = nil, nil
		}
	}
	defer stopTicker()

	for {
		switch m.Check().Phase {
		case Active, Warning:
			if ticker == nil {
				ticker = time.NewTicker(m.tick)
				tickC = ticker.C
			}
		default:
			stopTicker()
		}

		select {
		case <-ctx.Done():
			return
		case <-m.wake:
		case <-tickC:
		}
	}
}

func (m *Monitor) notify(s State) {
	m.listenersMu.Lock()
	ls := append([]Listener(nil), m.listeners...)
	m.listenersMu.Unlock()
	for _, l := range ls {
		l(s)
	}
}
