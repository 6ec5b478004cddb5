// Package crosstab keeps a tab's session store in step with writes other tabs make
// to the shared storage slot.
package crosstab

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/metrics"
	"github.com/jrsteele09/go-session-lifecycle/session"
	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/rs/zerolog"
)

// Actions taken for a storage event.
const (
	ActionIgnored = "ignored"
	ActionAdopt   = "adopt"
	ActionReset   = "reset"
	ActionCorrupt = "corrupt"
)

// Synchronizer applies other tabs' writes to the durable slot to a Store.
type Synchronizer struct {
	store   *session.Store
	slot    storage.Slot
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*Synchronizer)

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Synchronizer) {
		s.metrics = m
	}
}

// New creates a synchronizer that keeps store in step with slot.
func New(store *session.Store, slot storage.Slot, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:  store,
		slot:   slot,
		logger: logging.Component("crosstab"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run applies other tabs' writes until ctx is cancelled or the slot stops watching.
func (s *Synchronizer) Run(ctx context.Context) error {
	events, err := s.slot.Watch(ctx)
	if err != nil {
		return fmt.Errorf("Synchronizer.Run: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			s.Apply(e)
		}
	}
}

// Apply reconciles the store with one change to the durable slot and returns the
// action taken. The last write wins; a record that cannot be decoded logs the tab out.
func (s *Synchronizer) Apply(e storage.Event) string {
	action := s.apply(e)
	s.metrics.CrossTab(action)
	return action
}

func (s *Synchronizer) apply(e storage.Event) string {
	if e.Key != s.store.Key() {
		return ActionIgnored
	}
	if e.Removed() {
		s.logger.Info().Msg("session removed by another tab")
		s.store.Reset(session.ReasonCrossTab)
		return ActionReset
	}

	rec, err := session.DecodeRecord(e.NewValue)
	if err != nil {
		s.logger.Warn().Err(err).Msg("malformed session record from another tab, logging out")
		s.store.Reset(session.ReasonCorrupt)
		return ActionCorrupt
	}

	sess := rec.Session()
	if !sess.IsAuthenticated() {
		s.store.Reset(session.ReasonCrossTab)
		return ActionReset
	}
	s.logger.Debug().Str("user", sess.User.Username).Msg("adopting session from another tab")
	s.store.Adopt(rec)
	return ActionAdopt
}
