package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/jrsteele09/go-session-lifecycle/storage/filestore"
	"github.com/stretchr/testify/require"
)

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
	s, err := filestore.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get("session")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set("session", []byte(`{"a":1}`)))
	v, err := s.Get("session")
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(v))

	info, err := os.Stat(filepath.Join(s.Dir(), "session.slot"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Remove("session"))
	require.NoError(t, s.Remove("session"))
	_, err = s.Get("session")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_InvalidKey(t *testing.T) {
	s, err := filestore.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.Error(t, s.Set("../escape", []byte("x")))
	_, err = s.Get("a/b")
	require.Error(t, err)
}

func TestWatch_SeesOtherStoreWrites(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tabA, err := filestore.Open(dir)
	require.NoError(t, err)
	defer tabA.Close()
	tabB, err := filestore.Open(dir)
	require.NoError(t, err)
	defer tabB.Close()

	eventsB, err := tabB.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, tabA.Set("session", []byte("v1")))
	e := waitEvent(t, eventsB)
	require.Equal(t, "session", e.Key)
	require.Equal(t, "v1", string(e.NewValue))

	require.NoError(t, tabA.Set("session", []byte("v2")))
	e = waitEvent(t, eventsB)
	require.Equal(t, "v1", string(e.OldValue))
	require.Equal(t, "v2", string(e.NewValue))

	require.NoError(t, tabA.Remove("session"))
	e = waitEvent(t, eventsB)
	require.True(t, e.Removed())
	require.Equal(t, "v2", string(e.OldValue))
}

func TestWatch_IgnoresOwnWrites(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tabA, err := filestore.Open(dir)
	require.NoError(t, err)
	defer tabA.Close()

	eventsA, err := tabA.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, tabA.Set("session", []byte("mine")))
	require.NoError(t, tabA.Remove("session"))

	select {
	case e := <-eventsA:
		t.Fatalf("unexpected event for own write: %+v", e)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatch_StopsOnClose(t *testing.T) {
	s, err := filestore.Open(t.TempDir())
	require.NoError(t, err)

	events, err := s.Watch(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	select {
	case _, ok := <-events:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed")
	}
	require.Error(t, s.Set("session", []byte("x")))
}
