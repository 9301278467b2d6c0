// Package sender runs outbound Telegram calls under one retry policy, either
// queued on a worker pool (Enqueue) or inline when the caller needs the
// result (Do).
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/telecopter/core/logger"
	"github.com/m3rciful/telecopter/core/metrics"
	"github.com/m3rciful/telecopter/core/telegram/netutil"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned by Enqueue when the queue is saturated.
	ErrQueueFull = errors.New("telegram sender: queue full")

	errNilRun = errors.New("telegram sender: nil run function")
)

// Options tunes the worker pool and the retry policy.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds one call including its retries.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type call struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

func (c call) attrs(extra ...slog.Attr) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", c.action)}
	if c.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", c.endpoint))
	}
	return append(attrs, extra...)
}

// Dispatcher executes outbound calls, retrying transient network failures.
type Dispatcher struct {
	opts   Options
	calls  chan call
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewDispatcher starts the worker pool. Zero options get defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts:  opts,
		calls: make(chan call, opts.QueueSize),
		stop:  make(chan struct{}),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules run on the pool. run must be safe to repeat.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errNilRun
	}
	select {
	case <-d.stop:
		return ErrQueueClosed
	default:
	}
	select {
	case d.calls <- call{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Do runs run on the calling goroutine under the same retry policy and
// returns the last error. It keeps working after Close.
func (d *Dispatcher) Do(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errNilRun
	}
	return d.execute(call{ctx: ctx, action: action, endpoint: endpoint, run: run})
}

// Failures returns the number of calls that gave up.
func (d *Dispatcher) Failures() uint64 {
	return d.failed.Load()
}

// Close stops the workers after the queue drains.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.stop)
		close(d.calls)
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for c := range d.calls {
		_ = d.execute(c)
	}
}

func (d *Dispatcher) execute(c call) error {
	parent := c.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = c.run(); err == nil {
			logger.Debug(parent, component, "send.ok", c.attrs(
				slog.Int("attempt", attempt),
				slog.Duration("elapsed", time.Since(start)),
			)...)
			return nil
		}
		if attempt == attempts || !netutil.ShouldRetry(err) {
			break
		}
		delay := d.opts.RetryBackoff * time.Duration(attempt)
		logger.Debug(parent, component, "send.retry", c.attrs(
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("err", err),
		)...)
		if serr := netutil.Sleep(ctx, delay); serr != nil {
			err = serr
			break
		}
	}

	d.failed.Add(1)
	kind := netutil.Classify(err)
	metrics.SendFailures.WithLabelValues(kind).Inc()
	logger.Warn(parent, component, "send.fail", c.attrs(
		slog.String("status", "fail"),
		slog.String("error_kind", kind),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", time.Since(start)),
		slog.String("err", logger.RedactError(err)),
	)...)
	return err
}
