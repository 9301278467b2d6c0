// Package metrics owns the Prometheus collectors exported by the bot.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/telecopter/core/logger"
)

const namespace = "telecopter"

// Registry holds every collector below plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// HandlerResults counts handled updates by handler and outcome.
	HandlerResults = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_results_total",
		Help:      "Handled Telegram updates by handler and outcome.",
	}, []string{"handler", "outcome"})

	// HandlerDuration observes handler latency.
	HandlerDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "handler_duration_seconds",
		Help:      "Handler latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"handler"})

	// SendFailures counts outbound Telegram calls that gave up, by error kind.
	SendFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "send_failures_total",
		Help:      "Outbound Telegram calls that failed after retries.",
	}, []string{"kind"})

	// Transitions counts lifecycle transitions by request type, target status and result.
	Transitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Request status transitions by type, target and result.",
	}, []string{"request_type", "target", "result"})

	// Notifications counts user notifications by result.
	Notifications = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "User notifications attempted by the lifecycle engine.",
	}, []string{"result"})

	// StoreQueryDuration observes row store latency by operation.
	StoreQueryDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_query_seconds",
		Help:      "Row store query latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// StateErrors counts conversation backend failures by operation.
	StateErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_errors_total",
		Help:      "Conversation state backend errors by operation.",
	}, []string{"operation"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveSince records the elapsed time since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Serve exposes Registry on listen+path until ctx is done.
func Serve(ctx context.Context, listen, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry}))
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "metrics", "metrics.listen",
			slog.String("listen", listen),
			slog.String("path", path),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
