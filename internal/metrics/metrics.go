// Package metrics exposes assistant activity as Prometheus counters.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kokistudios/mailvox/internal/intent"
	"github.com/kokistudios/mailvox/internal/ui"
)

// Recorder holds the assistant's counters on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	WakesTotal    prometheus.Counter
	IntentsTotal  *prometheus.CounterVec
	ActionsTotal  *prometheus.CounterVec
	SessionsTotal *prometheus.CounterVec
	Awake         prometheus.Gauge
}

// New creates a Recorder with all metrics registered.
func New(namespace string) *Recorder {
	if namespace == "" {
		namespace = "mailvox"
	}
	registry := prometheus.NewRegistry()

	wakes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wakes_total",
		Help:      "Times the wake phrase started a session",
	})
	intents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Resolved intents by kind",
		},
		[]string{"kind"},
	)
	actions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched actions by kind and result",
		},
		[]string{"kind", "result"},
	)
	sessions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Closed sessions by reason",
		},
		[]string{"reason"},
	)
	awake := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "awake",
		Help:      "1 while a session is open",
	})

	registry.MustRegister(wakes, intents, actions, sessions, awake)

	return &Recorder{
		registry:      registry,
		WakesTotal:    wakes,
		IntentsTotal:  intents,
		ActionsTotal:  actions,
		SessionsTotal: sessions,
		Awake:         awake,
	}
}

func (r *Recorder) Wake() {
	r.WakesTotal.Inc()
	r.Awake.Set(1)
}

func (r *Recorder) Intent(kind intent.Kind) {
	r.IntentsTotal.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) Action(kind intent.Kind, result string) {
	r.ActionsTotal.WithLabelValues(string(kind), result).Inc()
}

func (r *Recorder) SessionEnd(reason string) {
	r.SessionsTotal.WithLabelValues(reason).Inc()
	r.Awake.Set(0)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx ends.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return r.serve(ctx, ln)
}

func (r *Recorder) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	ui.Logger.Debug("metrics listening", "addr", ln.Addr().String())
	err := srv.Serve(ln)
	<-done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
