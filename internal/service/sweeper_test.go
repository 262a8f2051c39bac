package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCleaner struct {
	calls   atomic.Int32
	removed int64
	err     error
}

func (c *countingCleaner) CleanExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return c.removed, c.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIdempotencySweeper_Sweep(t *testing.T) {
	store := &countingCleaner{removed: 3}
	s := NewIdempotencySweeper(store, discardLogger(), "@hourly")
	assert.Equal(t, int64(3), s.Sweep(context.Background()))

	store.err = errors.New("db down")
	assert.Zero(t, s.Sweep(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := store.calls.Load()
	assert.Zero(t, s.Sweep(ctx))
	assert.Equal(t, calls, store.calls.Load(), "cancelled sweeps do not touch the store")
}

func TestIdempotencySweeper_RejectsBadSchedule(t *testing.T) {
	s := NewIdempotencySweeper(&countingCleaner{}, discardLogger(), "every tuesday")
	require.Error(t, s.Start(context.Background()))
}

func TestIdempotencySweeper_RunsOnSchedule(t *testing.T) {
	store := &countingCleaner{}
	s := NewIdempotencySweeper(store, discardLogger(), "@every 1s")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Eventually(t, func() bool { return store.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

type blockingCleaner struct {
	started chan struct{}
	release chan struct{}
	done    atomic.Bool
}

func (c *blockingCleaner) CleanExpired(context.Context) (int64, error) {
	select {
	case c.started <- struct{}{}:
	default:
	}
	<-c.release
	c.done.Store(true)
	return 0, nil
}

func TestIdempotencySweeper_StopWaitsForRunningSweep(t *testing.T) {
	store := &blockingCleaner{started: make(chan struct{}, 1), release: make(chan struct{})}
	s := NewIdempotencySweeper(store, discardLogger(), "@every 1s")
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-store.started:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep never ran")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a sweep was still running")
	case <-time.After(200 * time.Millisecond):
	}

	close(store.release)
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}
	assert.True(t, store.done.Load())
}
