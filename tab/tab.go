// Package tab wires the session lifecycle of one execution context together: the
// session store, the cross-tab synchronizer, the expiry monitor, the refresh
// coordinator and the route guard, all sharing one durable slot.
package tab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-lifecycle/authapi"
	"github.com/jrsteele09/go-session-lifecycle/crosstab"
	"github.com/jrsteele09/go-session-lifecycle/guard"
	"github.com/jrsteele09/go-session-lifecycle/internal/config"
	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/metrics"
	"github.com/jrsteele09/go-session-lifecycle/monitor"
	"github.com/jrsteele09/go-session-lifecycle/refresh"
	"github.com/jrsteele09/go-session-lifecycle/session"
	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/rs/zerolog"
)

// Tab is one browsing context: a session store kept in step with the other tabs,
// an expiry monitor, a refresh coordinator and the route table.
type Tab struct {
	id          string
	slot        storage.Slot
	api         authapi.Client
	store       *session.Store
	sync        *crosstab.Synchronizer
	monitor     *monitor.Monitor
	coordinator *refresh.Coordinator
	routes      *guard.Table
	logger      zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	syncErr chan error
}

type options struct {
	metrics *metrics.Metrics
	nowFunc func() time.Time
	logger  *zerolog.Logger
}

type Option func(*options)

// WithMetrics records every component of the tab in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithNowFunc sets the clock the expiry monitor reads.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}

// WithLogger sets the base logger; each component adds its name to it.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// New wires a store, synchronizer, monitor and refresh coordinator around slot.
// Nothing runs until Start.
func New(cfg config.SessionConfig, slot storage.Slot, api authapi.Client, opts ...Option) *Tab {
	o := options{nowFunc: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	base := logging.Component("tab")
	if o.logger != nil {
		base = *o.logger
	}
	logger := base.With().Str("tab", id[:8]).Logger()

	store := session.NewStore(slot,
		session.WithKey(cfg.GetSessionKey()),
		session.WithLogger(logger.With().Str("component", "session").Logger()),
		session.WithMetrics(o.metrics),
	)
	mon := monitor.New(store,
		monitor.WithThreshold(cfg.GetWarningThreshold()),
		monitor.WithTickInterval(cfg.GetTickInterval()),
		monitor.WithNowFunc(o.nowFunc),
		monitor.WithLogger(logger.With().Str("component", "monitor").Logger()),
		monitor.WithMetrics(o.metrics),
	)

	return &Tab{
		id:    id,
		slot:  slot,
		api:   api,
		store: store,
		sync: crosstab.New(store, slot,
			crosstab.WithLogger(logger.With().Str("component", "crosstab").Logger()),
			crosstab.WithMetrics(o.metrics),
		),
		monitor: mon,
		coordinator: refresh.New(store, mon, api,
			refresh.WithTimeout(cfg.GetRefreshTimeout()),
			refresh.WithLogger(logger.With().Str("component", "refresh").Logger()),
			refresh.WithMetrics(o.metrics),
		),
		routes: guard.DefaultTable(guard.WithMetrics(o.metrics)),
		logger: logger,
	}
}

// ID identifies the tab in logs.
func (t *Tab) ID() string {
	return t.id
}

// Start restores the persisted session and starts following other tabs and the
// token expiry.
func (t *Tab) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return nil
	}

	if err := t.store.Restore(); err != nil {
		return fmt.Errorf("Tab.Start: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.syncErr = make(chan error, 1)
	go func() {
		t.syncErr <- t.sync.Run(ctx)
	}()
	t.monitor.Start(ctx)
	t.logger.Debug().Msg("tab started")
	return nil
}

// Close stops the tab's background work. The slot is left open for its owner.
func (t *Tab) Close() error {
	t.mu.Lock()
	cancel, syncErr := t.cancel, t.syncErr
	t.cancel, t.syncErr = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	t.monitor.Stop()
	if err := <-syncErr; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("Tab.Close: %w", err)
	}
	return nil
}

// Login authenticates with the remote API and makes the result the session of
// every tab sharing the slot.
func (t *Tab) Login(ctx context.Context, creds authapi.Credentials) error {
	resp, err := t.api.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("Tab.Login: %w", err)
	}
	if err := t.store.Login(*resp); err != nil {
		return fmt.Errorf("Tab.Login: %w", err)
	}
	return nil
}

// Logout ends the session in every tab sharing the slot.
func (t *Tab) Logout() {
	t.store.Logout()
}

// AcknowledgeExpiry logs out a session whose token has expired. It reports false,
// and does nothing, unless the monitor is in the Expired phase.
func (t *Tab) AcknowledgeExpiry() bool {
	if t.monitor.State().Phase != monitor.Expired {
		return false
	}
	t.store.LogoutWithReason(session.ReasonExpired)
	return true
}

// Extend accepts the expiry warning and refreshes the session.
func (t *Tab) Extend(ctx context.Context) error {
	return t.coordinator.ExtendSession(ctx)
}

// ExtendInFlight reports whether an extend is pending.
func (t *Tab) ExtendInFlight() bool {
	return t.coordinator.InFlight()
}

// Navigate runs the route guard for path against the current session.
func (t *Tab) Navigate(path string) (guard.Result, error) {
	return t.routes.Navigate(t.store.Current(), path)
}

// Session returns the tab's current session.
func (t *Tab) Session() session.Session {
	return t.store.Current()
}

// MonitorState returns the last evaluated expiry state.
func (t *Tab) MonitorState() monitor.State {
	return t.monitor.State()
}

// CheckNow runs a monitor check outside the tick schedule.
func (t *Tab) CheckNow() monitor.State {
	return t.monitor.Check()
}

// OnStateChange registers a listener for expiry state changes.
func (t *Tab) OnStateChange(l monitor.Listener) {
	t.monitor.OnChange(l)
}

// OnSessionChange registers a listener for session changes; the returned func removes it.
func (t *Tab) OnSessionChange(l session.Listener) func() {
	return t.store.Subscribe(l)
}
