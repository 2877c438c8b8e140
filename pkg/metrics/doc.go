// Package metrics provides Prometheus instrumentation for backflow components.
//
// # Overview
//
// The metrics package instruments:
//   - Demand buffers (values offered, delivered, currently queued)
//   - Bridge adapters (upstream demand, dropped values, completions, cancellations)
//   - Pull sources (fetches, fetch errors, items emitted)
//   - Writer subscribers (flushes, bytes written)
//
// # Quick Start
//
// Pass a registry through a component's Config:
//
//	registry := metrics.NewRegistry(prometheus.NewRegistry())
//
//	adapter := bridge.New(upstream, downstream, bridge.Config[int, int]{
//		Name:      "orders",
//		Transform: bridge.Identity[int](),
//		Metrics:   registry,
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// A nil *Registry disables collection; components check for nil before
// recording.
//
// # Available Metrics
//
//   - backflow_buffer_offered_total: Values offered to demand buffers
//   - backflow_buffer_delivered_total: Values delivered downstream
//   - backflow_buffer_queued: Values waiting for demand
//   - backflow_bridge_demand_requested_total: Finite demand requested upstream
//   - backflow_bridge_unlimited_requests_total: Unlimited requests sent upstream
//   - backflow_bridge_values_dropped_total: Values dropped by a transform
//   - backflow_bridge_completions_total: Terminal signals by kind
//   - backflow_bridge_cancellations_total: Canceled subscriptions
//   - backflow_source_fetches_total: Batch fetches by pull sources
//   - backflow_source_fetch_errors_total: Failed fetches
//   - backflow_source_items_total: Items emitted by sources
//   - backflow_writer_flushes_total: Writer flushes
//   - backflow_writer_bytes_written_total: Bytes written
//
// # Labels
//
//   - stream_name: Config.Name of the buffer or bridge
//   - kind: "finished", "failure" or "swallowed"
//   - source_name: Config.Name of the source
//   - writer_name: Config.Name of the writer
//
// # Configuration
//
//	config := metrics.Config{
//		Enabled:   true,
//		Registry:  prometheus.NewRegistry(),
//		Namespace: "myapp",
//		Labels:    prometheus.Labels{"version": "1.0"},
//	}
//	registry := metrics.NewRegistryWithConfig(config)
package metrics
