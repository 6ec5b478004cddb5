package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/jrsteele09/go-session-lifecycle/storage/sqlitestore"
	"github.com/stretchr/testify/require"
)

func openPair(t *testing.T) (*sqlitestore.Store, *sqlitestore.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.db")

	a, err := sqlitestore.Open(path, sqlitestore.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	b, err := sqlitestore.Open(path, sqlitestore.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return a, b
}

func waitEvent(t *testing.T, ch <-chan storage.Event) storage.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return storage.Event{}
	}
}

func TestStore_GetSetRemove(t *testing.T) {
	a, b := openPair(t)

	_, err := a.Get("session")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, a.Set("session", []byte("v1")))
	v, err := b.Get("session")
	require.NoError(t, err)
	require.Equal(t, "v1", string(v))

	require.NoError(t, a.Set("session", []byte("v2")))
	v, err = b.Get("session")
	require.NoError(t, err)
	require.Equal(t, "v2", string(v))

	require.NoError(t, b.Remove("session"))
	_, err = a.Get("session")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWatch_SeesOtherConnectionCommits(t *testing.T) {
	a, b := openPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventsB, err := b.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Set("session", []byte("v1")))
	e := waitEvent(t, eventsB)
	require.Equal(t, "session", e.Key)
	require.Equal(t, "v1", string(e.NewValue))

	require.NoError(t, a.Remove("session"))
	e = waitEvent(t, eventsB)
	require.True(t, e.Removed())
	require.Equal(t, "v1", string(e.OldValue))
}

func TestWatch_IgnoresOwnWrites(t *testing.T) {
	a, _ := openPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := a.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Set("session", []byte("mine")))
	select {
	case e := <-events:
		t.Fatalf("unexpected event for own write: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}
