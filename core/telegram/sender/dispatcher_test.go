package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/core/metrics"
)

var errDial = &net.OpError{Op: "dial", Err: errors.New("refused")}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return errDial
		}
		wg.Done()
		return nil
	})
	require.NoError(t, err)
	wg.Wait()
	d.Close()

	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, d.Failures())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	before := testutil.ToFloat64(metrics.SendFailures.WithLabelValues("http_4xx"))

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	}))
	d.Close()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.Failures())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SendFailures.WithLabelValues("http_4xx")))
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	d.Close()
	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDoReturnsResultInline(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 1, RetryBackoff: time.Millisecond})
	d.Close()

	calls := 0
	err := d.Do(context.Background(), "notify.user", "sendMessage", func() error {
		calls++
		if calls == 1 {
			return errDial
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	blocked := &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	calls = 0
	err = d.Do(context.Background(), "notify.user", "sendMessage", func() error {
		calls++
		return blocked
	})
	assert.ErrorIs(t, err, blocked)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), d.Failures())
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	defer d.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := d.Do(ctx, "notify.user", "sendMessage", func() error { calls++; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoRejectsNilRun(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	defer d.Close()
	assert.Error(t, d.Do(context.Background(), "x", "", nil))
}
