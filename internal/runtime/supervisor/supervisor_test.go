package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoCollectsFirstError(t *testing.T) {
	s := New(context.Background())

	errBoom := errors.New("boom")
	s.Go("a", func(ctx context.Context) error { return errBoom })
	s.Go("b", func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	require.ErrorIs(t, err, errBoom)
}

func TestGoRecoversPanic(t *testing.T) {
	s := New(context.Background())
	s.Go("panicky", func(ctx context.Context) error { panic("oops") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in panicky")
}

func TestCancelOnError(t *testing.T) {
	s := New(context.Background(), WithCancelOnError(true))

	released := make(chan struct{})
	s.Go("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		close(released)
		return ctx.Err()
	})
	s.Go("failer", func(ctx context.Context) error { return errors.New("die") })

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("sibling goroutine was not canceled")
	}
}

func TestGoRestartRetriesUntilSuccess(t *testing.T) {
	s := New(context.Background())

	var runs atomic.Int32
	s.GoRestart("flaky", func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("not yet")
		}
		return nil
	}, RestartBackoff(time.Millisecond, 5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, int32(3), runs.Load())
}

func TestStopCancelsAndWaits(t *testing.T) {
	s := New(context.Background())
	s.Go0("loop", func(ctx context.Context) {
		<-ctx.Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
