// Package metrics exposes the agent's Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "xen_guest_agent"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Store operation results.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Metrics groups the collectors. A nil *Metrics discards every observation.
type Metrics struct {
	events          *prometheus.CounterVec
	decodeErrors    *prometheus.CounterVec
	slotExhausted   *prometheus.CounterVec
	storeOps        *prometheus.CounterVec
	interfaces      prometheus.Gauge
	memoryAvailable prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Canonical network events published, by operation.",
		}, []string{"op"}),
		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Messages or poll periods that failed to produce events, by kind.",
		}, []string{"kind"}),
		slotExhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_exhausted_total",
			Help:      "Addresses not published because every slot was taken, by family.",
		}, []string{"family"}),
		storeOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_ops_total",
			Help:      "Store writes and deletes, by operation and result.",
		}, []string{"op", "result"}),
		interfaces: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interfaces",
			Help:      "Interfaces currently tracked.",
		}),
		memoryAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_available_kilobytes",
			Help:      "Last reported available guest memory.",
		}),
	}
}

// Event counts one published event.
func (m *Metrics) Event(op string) {
	if m == nil {
		return
	}

	m.events.WithLabelValues(op).Inc()
}

// DecodeError counts one failed message or period.
func (m *Metrics) DecodeError(kind string) {
	if m == nil {
		return
	}

	m.decodeErrors.WithLabelValues(kind).Inc()
}

// SlotExhausted counts one address dropped for lack of a slot.
func (m *Metrics) SlotExhausted(family string) {
	if m == nil {
		return
	}

	m.slotExhausted.WithLabelValues(family).Inc()
}

// StoreOp counts one store operation.
func (m *Metrics) StoreOp(op, result string) {
	if m == nil {
		return
	}

	m.storeOps.WithLabelValues(op, result).Inc()
}

// SetInterfaces records the tracked interface count.
func (m *Metrics) SetInterfaces(count int) {
	if m == nil {
		return
	}

	m.interfaces.Set(float64(count))
}

// SetMemoryAvailable records the last available-memory sample.
func (m *Metrics) SetMemoryAvailable(kb uint64) {
	if m == nil {
		return
	}

	m.memoryAvailable.Set(float64(kb))
}

// Serve exposes gatherer on addr at /metrics until ctx ends.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", addr, err)
	}

	return ServeListener(ctx, listener, gatherer)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, listener net.Listener, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve metrics: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	return nil
}
