// Package refresh exchanges the refresh token for a new access token when the user
// accepts the expiry warning.
package refresh

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/metrics"
	"github.com/jrsteele09/go-session-lifecycle/monitor"
	"github.com/jrsteele09/go-session-lifecycle/session"
	"github.com/rs/zerolog"
)

const DefaultTimeout = 10 * time.Second

// Outcomes recorded for each attempt.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDiscarded = "discarded"
	OutcomeRejected  = "rejected"
)

// PhaseSource is the part of the expiry monitor the coordinator relies on.
type PhaseSource interface {
	State() monitor.State
	Expire() monitor.State
}

// Refresher performs the network exchange.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, error)
}

// Coordinator performs the single user-requested refresh of a tab.
type Coordinator struct {
	store    *session.Store
	monitor  PhaseSource
	api      Refresher
	timeout  time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	inFlight atomic.Bool
}

type Option func(*Coordinator)

// WithTimeout bounds one exchange with the remote API.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New creates a coordinator that refreshes store through api while mon reports Warning.
func New(store *session.Store, mon PhaseSource, api Refresher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		monitor: mon,
		api:     api,
		timeout: DefaultTimeout,
		logger:  logging.Component("refresh"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight reports whether an exchange is pending; callers use it to disable the
// extend action.
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

// ExtendSession refreshes the session. It is only accepted in the Warning phase
// and while no other exchange is pending. On success the store receives the new
// tokens with the existing identity. On any failure the current token is marked
// expired and the session is logged out; nothing is retried.
func (c *Coordinator) ExtendSession(ctx context.Context) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.metrics.Refresh(OutcomeRejected, -1)
		return autherrors.ErrRefreshInFlight
	}
	defer c.inFlight.Store(false)

	if phase := c.monitor.State().Phase; phase != monitor.Warning {
		c.metrics.Refresh(OutcomeRejected, -1)
		return fmt.Errorf("ExtendSession in phase %s: %w", phase, autherrors.ErrNotWarning)
	}

	sess := c.store.Current()
	if !sess.IsAuthenticated() {
		return autherrors.ErrNotAuthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	pair, err := c.exchange(ctx, sess.RefreshToken)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		c.metrics.Refresh(OutcomeFailure, elapsed)
		c.logger.Err(err).Str("user", sess.User.Username).Msg("refresh failed, expiring session")
		c.fail(sess.AccessToken)
		return fmt.Errorf("ExtendSession: %w", err)
	}

	ok, err := c.store.ReplaceTokens(sess.AccessToken, *pair)
	if err != nil {
		c.metrics.Refresh(OutcomeFailure, elapsed)
		c.logger.Err(err).Msg("failed to store refreshed tokens, expiring session")
		c.fail(sess.AccessToken)
		return fmt.Errorf("ExtendSession: %w", err)
	}
	if !ok {
		c.metrics.Refresh(OutcomeDiscarded, elapsed)
		c.logger.Info().Msg("session changed during refresh, discarding new tokens")
		return autherrors.ErrSessionChanged
	}

	c.metrics.Refresh(OutcomeSuccess, elapsed)
	c.logger.Info().Str("user", sess.User.Username).Msg("session extended")
	return nil
}

func (c *Coordinator) exchange(ctx context.Context, refreshToken string) (*session.TokenPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token: %w", autherrors.ErrRefreshFailed)
	}
	pair, err := c.api.Refresh(ctx, refreshToken)
	if err != nil {
		if autherrors.Is(err, autherrors.ErrRefreshFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", autherrors.ErrRefreshFailed, err)
	}
	if pair == nil || pair.AccessToken == "" {
		return nil, fmt.Errorf("empty token response: %w", autherrors.ErrRefreshFailed)
	}
	return pair, nil
}

// fail expires and logs out the session the refresh was started for. A session
// that has since been replaced is left alone.
func (c *Coordinator) fail(accessToken string) {
	if c.store.Current().AccessToken != accessToken {
		return
	}
	c.monitor.Expire()
	c.store.LogoutWithReason(session.ReasonRefresh)
}
