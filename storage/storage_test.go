package storage_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/stretchr/testify/require"
)

func TestEventStream_OrderedAndNonBlocking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := storage.NewEventStream(ctx)
	for i := 0; i < 100; i++ {
		s.Push(storage.Event{Key: fmt.Sprintf("k%d", i)})
	}

	for i := 0; i < 100; i++ {
		select {
		case e := <-s.C():
			require.Equal(t, fmt.Sprintf("k%d", i), e.Key)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestEventStream_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := storage.NewEventStream(ctx)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("stream did not stop")
	}
	_, ok := <-s.C()
	require.False(t, ok)

	// Pushing after close is a no-op.
	s.Push(storage.Event{Key: "late"})
}

func TestEventRemoved(t *testing.T) {
	require.True(t, storage.Event{Key: "k"}.Removed())
	require.False(t, storage.Event{Key: "k", NewValue: []byte("{}")}.Removed())
}
