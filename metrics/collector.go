// Package metrics records the timings and counters of one write server build
// in a Prometheus registry owned by that build.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danpasecinic/needlekit"
)

const DefaultNamespace = "needlekit"

// Collector is never registered with the global Prometheus registry, so two
// builds in the same process do not collide.
type Collector struct {
	registry *prometheus.Registry

	resolveLatency *prometheus.HistogramVec
	startLatency   *prometheus.HistogramVec
	stopLatency    *prometheus.HistogramVec
	connections    *prometheus.CounterVec
	peerEvents     *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.resolveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "resolve_duration_seconds",
			Help:      "Time taken to construct a bound capability",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"key", "result"},
	)

	c.startLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "start_duration_seconds",
			Help:      "Time taken to start a capability",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"key", "result"},
	)

	c.stopLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "stop_duration_seconds",
			Help:      "Time taken to stop a capability",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"key", "result"},
	)

	c.connections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connections_total",
			Help:      "Accepted connections per channel",
		},
		[]string{"channel", "admitted"},
	)

	c.peerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "peer_events_total",
			Help:      "Replication peer change notifications consumed",
		},
		[]string{"kind"},
	)

	c.registry.MustRegister(
		c.resolveLatency,
		c.startLatency,
		c.stopLatency,
		c.connections,
		c.peerEvents,
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveResolve(key needlekit.Key, d time.Duration, err error) {
	c.resolveLatency.WithLabelValues(string(key), result(err)).Observe(d.Seconds())
}

func (c *Collector) ObserveStart(key needlekit.Key, d time.Duration, err error) {
	c.startLatency.WithLabelValues(string(key), result(err)).Observe(d.Seconds())
}

func (c *Collector) ObserveStop(key needlekit.Key, d time.Duration, err error) {
	c.stopLatency.WithLabelValues(string(key), result(err)).Observe(d.Seconds())
}

func (c *Collector) ObserveConnection(channel string, admitted bool) {
	c.connections.WithLabelValues(channel, strconv.FormatBool(admitted)).Inc()
}

func (c *Collector) ObservePeerEvent(kind string) {
	c.peerEvents.WithLabelValues(kind).Inc()
}

// InjectorOptions wires the collector into a needlekit.Injector.
func (c *Collector) InjectorOptions() []needlekit.Option {
	return []needlekit.Option{
		needlekit.WithResolveObserver(c.ObserveResolve),
		needlekit.WithStartObserver(c.ObserveStart),
		needlekit.WithStopObserver(c.ObserveStop),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
