package refresh_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/metrics"
	"github.com/jrsteele09/go-session-lifecycle/monitor"
	"github.com/jrsteele09/go-session-lifecycle/refresh"
	"github.com/jrsteele09/go-session-lifecycle/session"
	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/jrsteele09/go-session-lifecycle/storage/memstore"
	"github.com/jrsteele09/go-session-lifecycle/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func accessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := token.NewHMACSigner("test-secret").Sign(token.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(exp)},
	})
	require.NoError(t, err)
	return raw
}

type fakeRefresher struct {
	mu      sync.Mutex
	calls   []string
	pair    *session.TokenPair
	err     error
	release chan struct{}
	entered chan struct{}
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, error) {
	f.mu.Lock()
	f.calls = append(f.calls, refreshToken)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.pair, f.err
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	slot    storage.Slot
	store   *session.Store
	monitor *monitor.Monitor
	t1      string
}

// newFixture logs in with a token that is 30s from expiry so the monitor is in Warning.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	slot := memstore.NewProfile().Open()
	store := session.NewStore(slot)
	mon := monitor.New(store, monitor.WithNowFunc(func() time.Time { return t0 }))
	t1 := accessToken(t, t0.Add(30*time.Second))
	require.NoError(t, store.Login(session.LoginResponse{
		AccessToken: t1, RefreshToken: "refresh-1", ID: "u1", Username: "alice", Email: "alice@example.com", Role: "admin",
	}))
	require.Equal(t, monitor.Warning, mon.Check().Phase)
	return &fixture{slot: slot, store: store, monitor: mon, t1: t1}
}

func TestExtendSession_Success(t *testing.T) {
	f := newFixture(t)
	t2 := accessToken(t, t0.Add(time.Hour))
	api := &fakeRefresher{pair: &session.TokenPair{AccessToken: t2, RefreshToken: "refresh-2"}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := refresh.New(f.store, f.monitor, api, refresh.WithMetrics(m))

	require.NoError(t, c.ExtendSession(context.Background()))

	cur := f.store.Current()
	require.Equal(t, t2, cur.AccessToken)
	require.Equal(t, "refresh-2", cur.RefreshToken)
	require.Equal(t, "alice", cur.User.Username)
	require.Equal(t, "alice@example.com", cur.User.Email)
	require.Equal(t, []string{"refresh-1"}, api.calls)
	require.Equal(t, monitor.Active, f.monitor.Check().Phase)
	require.False(t, c.InFlight())
	require.Equal(t, 1.0, testutil.ToFloat64(m.RefreshAttempts.WithLabelValues(refresh.OutcomeSuccess)))

	data, err := f.slot.Get(session.DefaultKey)
	require.NoError(t, err)
	rec, err := session.DecodeRecord(data)
	require.NoError(t, err)
	require.Equal(t, t2, rec.AccessToken)
}

func TestExtendSession_FailureExpiresAndLogsOut(t *testing.T) {
	tests := map[string]*fakeRefresher{
		"network error":  {err: errors.New("connection refused")},
		"rejected token": {err: autherrors.ErrRefreshFailed},
		"empty response": {pair: &session.TokenPair{}},
		"nil response":   {},
	}
	for name, api := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			c := refresh.New(f.store, f.monitor, api)

			var phases []monitor.Phase
			f.monitor.OnChange(func(s monitor.State) { phases = append(phases, s.Phase) })

			err := c.ExtendSession(context.Background())
			require.ErrorIs(t, err, autherrors.ErrRefreshFailed)
			require.False(t, f.store.Current().IsAuthenticated())
			require.Equal(t, []monitor.Phase{monitor.Expired}, phases)

			_, err = f.slot.Get(session.DefaultKey)
			require.ErrorIs(t, err, storage.ErrNotFound)
			require.Equal(t, monitor.Idle, f.monitor.Check().Phase)
		})
	}
}

func TestExtendSession_NotInWarning(t *testing.T) {
	slot := memstore.NewProfile().Open()
	store := session.NewStore(slot)
	mon := monitor.New(store, monitor.WithNowFunc(func() time.Time { return t0 }))
	require.NoError(t, store.Login(session.LoginResponse{
		AccessToken: accessToken(t, t0.Add(time.Hour)), RefreshToken: "r", ID: "u1", Role: "admin",
	}))
	require.Equal(t, monitor.Active, mon.Check().Phase)

	api := &fakeRefresher{}
	c := refresh.New(store, mon, api)
	require.ErrorIs(t, c.ExtendSession(context.Background()), autherrors.ErrNotWarning)
	require.Zero(t, api.callCount())
	require.True(t, store.Current().IsAuthenticated())
}

func TestExtendSession_InFlightGuard(t *testing.T) {
	f := newFixture(t)
	api := &fakeRefresher{
		pair:    &session.TokenPair{AccessToken: accessToken(t, t0.Add(time.Hour))},
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c := refresh.New(f.store, f.monitor, api)

	done := make(chan error, 1)
	go func() { done <- c.ExtendSession(context.Background()) }()
	<-api.entered

	require.True(t, c.InFlight())
	require.ErrorIs(t, c.ExtendSession(context.Background()), autherrors.ErrRefreshInFlight)

	close(api.release)
	require.NoError(t, <-done)
	require.Equal(t, 1, api.callCount())
	require.False(t, c.InFlight())
}

func TestExtendSession_DiscardedWhenSessionChanged(t *testing.T) {
	f := newFixture(t)
	api := &fakeRefresher{
		pair:    &session.TokenPair{AccessToken: accessToken(t, t0.Add(time.Hour)), RefreshToken: "refresh-2"},
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c := refresh.New(f.store, f.monitor, api)

	done := make(chan error, 1)
	go func() { done <- c.ExtendSession(context.Background()) }()
	<-api.entered

	other := accessToken(t, t0.Add(2*time.Hour))
	require.NoError(t, f.store.Login(session.LoginResponse{
		AccessToken: other, RefreshToken: "other-refresh", ID: "u2", Username: "bob", Role: "employee",
	}))
	close(api.release)

	require.ErrorIs(t, <-done, autherrors.ErrSessionChanged)
	require.Equal(t, other, f.store.Current().AccessToken)
	require.Equal(t, "bob", f.store.Current().User.Username)

	data, err := f.slot.Get(session.DefaultKey)
	require.NoError(t, err)
	rec, err := session.DecodeRecord(data)
	require.NoError(t, err)
	require.Equal(t, other, rec.AccessToken)
}

func TestExtendSession_LogoutDuringExchangeStaysLoggedOut(t *testing.T) {
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	api := &fakeRefresher{
		pair:    &session.TokenPair{AccessToken: accessToken(t, t0.Add(time.Hour)), RefreshToken: "refresh-2"},
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c := refresh.New(f.store, f.monitor, api, refresh.WithMetrics(m))

	done := make(chan error, 1)
	go func() { done <- c.ExtendSession(context.Background()) }()
	<-api.entered

	f.store.Logout()
	close(api.release)

	require.ErrorIs(t, <-done, autherrors.ErrSessionChanged)
	require.False(t, f.store.Current().IsAuthenticated())
	_, err := f.slot.Get(session.DefaultKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.Equal(t, 1.0, testutil.ToFloat64(m.RefreshAttempts.WithLabelValues(refresh.OutcomeDiscarded)))
}

func TestExtendSession_Timeout(t *testing.T) {
	f := newFixture(t)
	api := &fakeRefresher{release: make(chan struct{})}
	c := refresh.New(f.store, f.monitor, api, refresh.WithTimeout(20*time.Millisecond))

	require.ErrorIs(t, c.ExtendSession(context.Background()), autherrors.ErrRefreshFailed)
	require.False(t, f.store.Current().IsAuthenticated())
}
