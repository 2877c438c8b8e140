// Package metrics provides Prometheus instrumentation for backflow components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace is the metric namespace used when Config.Namespace is empty.
const DefaultNamespace = "backflow"

// Completion kinds used for the "kind" label of StreamCompletions.
const (
	CompletionFinished  = "finished"
	CompletionFailure   = "failure"
	CompletionSwallowed = "swallowed"
)

// Registry holds all metric instances for backflow components.
type Registry struct {
	// Demand buffer metrics
	BufferOffered   *prometheus.CounterVec
	BufferDelivered *prometheus.CounterVec
	BufferQueued    *prometheus.GaugeVec

	// Bridge metrics
	DemandRequested   *prometheus.CounterVec
	UnlimitedRequests *prometheus.CounterVec
	ValuesDropped     *prometheus.CounterVec
	StreamCompletions *prometheus.CounterVec
	Cancellations     *prometheus.CounterVec

	// Source metrics
	SourceFetches     *prometheus.CounterVec
	SourceFetchErrors *prometheus.CounterVec
	SourceItems       *prometheus.CounterVec

	// Writer metrics
	WriterFlushes      *prometheus.CounterVec
	WriterBytesWritten *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by backflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{
		Enabled:   true,
		Registry:  reg,
		Namespace: DefaultNamespace,
	})
}

// NewRegistryWithConfig creates a registry honoring the namespace and constant
// labels of config. It returns nil when config.Enabled is false; every
// component treats a nil registry as "metrics off".
func NewRegistryWithConfig(config Config) *Registry {
	if !config.Enabled {
		return nil
	}
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}

	factory := promauto.With(reg)
	counter := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   subsystem,
				Name:        name,
				Help:        help,
				ConstLabels: config.Labels,
			},
			labels,
		)
	}
	gauge := func(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   subsystem,
				Name:        name,
				Help:        help,
				ConstLabels: config.Labels,
			},
			labels,
		)
	}

	return &Registry{
		BufferOffered: counter("buffer", "offered_total",
			"Total number of values offered to demand buffers", "stream_name"),
		BufferDelivered: counter("buffer", "delivered_total",
			"Total number of values delivered to downstream subscribers", "stream_name"),
		BufferQueued: gauge("buffer", "queued",
			"Number of values waiting for downstream demand", "stream_name"),

		DemandRequested: counter("bridge", "demand_requested_total",
			"Total finite demand requested from upstream", "stream_name"),
		UnlimitedRequests: counter("bridge", "unlimited_requests_total",
			"Number of unlimited demand requests sent upstream", "stream_name"),
		ValuesDropped: counter("bridge", "values_dropped_total",
			"Total number of values dropped by a transform", "stream_name"),
		StreamCompletions: counter("bridge", "completions_total",
			"Total number of terminal signals by kind", "stream_name", "kind"),
		Cancellations: counter("bridge", "cancellations_total",
			"Total number of canceled subscriptions", "stream_name"),

		SourceFetches: counter("source", "fetches_total",
			"Total number of batch fetches performed by pull sources", "source_name"),
		SourceFetchErrors: counter("source", "fetch_errors_total",
			"Total number of failed fetches", "source_name"),
		SourceItems: counter("source", "items_total",
			"Total number of items emitted by sources", "source_name"),

		WriterFlushes: counter("writer", "flushes_total",
			"Total number of writer flushes", "writer_name"),
		WriterBytesWritten: counter("writer", "bytes_written_total",
			"Total bytes written", "writer_name"),
	}
}
