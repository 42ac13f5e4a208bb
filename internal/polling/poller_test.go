package polling

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("SCANDEMO_POLL_INTERVAL", "")
	assert.Equal(t, DefaultInterval, NewConfig().Interval)

	t.Setenv("SCANDEMO_POLL_INTERVAL", "250ms")
	assert.Equal(t, 250*time.Millisecond, NewConfig().Interval)

	t.Setenv("SCANDEMO_POLL_INTERVAL", "invalid")
	assert.Equal(t, DefaultInterval, NewConfig().Interval)

	t.Setenv("SCANDEMO_POLL_INTERVAL", "-1s")
	assert.Equal(t, DefaultInterval, NewConfig().Interval)
}

func TestPollerStart(t *testing.T) {
	poller := NewPoller("test", &Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		poller.Start(ctx, func(context.Context) { calls.Add(1) })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Poller did not stop within expected time")
	}
	assert.Positive(t, calls.Load())

	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "no calls after stop")
}

func TestNewPollerDefaults(t *testing.T) {
	assert.Equal(t, DefaultInterval, NewPoller("x", nil).Interval())
	assert.Equal(t, DefaultInterval, NewPoller("x", &Config{}).Interval())
}

func TestPollerUntil(t *testing.T) {
	poller := NewPoller("until", &Config{Interval: 5 * time.Millisecond})

	var n int
	err := poller.Until(context.Background(), func(context.Context) (bool, error) {
		n++
		return n == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	boom := errors.New("boom")
	err = poller.Until(context.Background(), func(context.Context) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = poller.Until(ctx, func(context.Context) (bool, error) { return false, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
