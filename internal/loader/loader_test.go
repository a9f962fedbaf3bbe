package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_SingleFlight(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	release := make(chan struct{})
	l := New(func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})
	assert.Equal(t, Unstarted, l.Status())

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = l.Load(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return l.Status() == InFlight }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Done, l.Status())

	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoader_FailureIsStickyUntilReset(t *testing.T) {
	t.Parallel()
	boom := errors.New("script blocked")
	var calls atomic.Int32
	l := New(func(context.Context) error {
		if calls.Add(1) == 1 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, l.Load(context.Background()), boom)
	assert.Equal(t, Failed, l.Status())
	assert.ErrorIs(t, l.Load(context.Background()), boom)
	assert.Equal(t, int32(1), calls.Load())

	l.Reset()
	assert.Equal(t, Unstarted, l.Status())
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, Done, l.Status())
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoader_WaitHonorsContext(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	defer close(release)
	l := New(func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Load(ctx), context.DeadlineExceeded)
	assert.Equal(t, InFlight, l.Status())
}

func TestLoader_ResetDuringFlight(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	stale := errors.New("stale")
	var calls atomic.Int32
	l := New(func(context.Context) error {
		if calls.Add(1) == 1 {
			<-release
			return stale
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- l.Load(context.Background()) }()
	require.Eventually(t, func() bool { return l.Status() == InFlight }, time.Second, time.Millisecond)

	l.Reset()
	close(release)
	assert.ErrorIs(t, <-done, stale)

	assert.Equal(t, Unstarted, l.Status())
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, Done, l.Status())
}

func TestLoader_CanceledFirstCallerDoesNotFailWaiters(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	l := New(func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- l.Load(ctx) }()
	require.Eventually(t, func() bool { return l.Status() == InFlight }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- l.Load(context.Background()) }()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)
	assert.Equal(t, InFlight, l.Status())

	close(release)
	require.NoError(t, <-second)
	assert.Equal(t, Done, l.Status())
}

func TestStatus_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "unstarted", Unstarted.String())
	assert.Equal(t, "in-flight", InFlight.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "failed", Failed.String())
}
