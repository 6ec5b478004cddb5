package refresh_test

import (
	"testing"
	"time"

	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-session-lifecycle/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateAndRotate(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour)

	first, err := m.Create("user-1")
	require.NoError(t, err)
	require.Len(t, first, 64)

	userID, second, err := m.Rotate(first)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
	require.NotEqual(t, first, second)

	// Refresh tokens are single use.
	_, _, err = m.Rotate(first)
	require.ErrorIs(t, err, autherrors.ErrInvalidRefreshToken)

	_, _, err = m.Rotate(second)
	require.NoError(t, err)
}

func TestManager_CreateReplacesExisting(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour)

	first, err := m.Create("user-1")
	require.NoError(t, err)
	_, err = m.Create("user-1")
	require.NoError(t, err)

	_, _, err = m.Rotate(first)
	require.ErrorIs(t, err, autherrors.ErrInvalidRefreshToken)
}

func TestManager_RotateExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	refresh.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { refresh.NowTimeFunc = time.Now })

	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour)
	rt, err := m.Create("user-1")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, _, err = m.Rotate(rt)
	require.ErrorIs(t, err, autherrors.ErrTokenExpired)

	// An expired token is consumed as well.
	_, _, err = m.Rotate(rt)
	require.ErrorIs(t, err, autherrors.ErrInvalidRefreshToken)
}
