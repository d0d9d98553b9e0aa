// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsReadTotal counts packets read from the capture source.
	PacketsReadTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nprint_packets_read_total",
			Help: "Total number of packets read from the capture source",
		},
	)

	// PacketsFilteredTotal counts packets rejected by the BPF pre-filter.
	PacketsFilteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nprint_packets_filtered_total",
			Help: "Total number of packets rejected by the BPF filter",
		},
	)

	// PacketsUnkeyedTotal counts packets that produced no flow key.
	PacketsUnkeyedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nprint_packets_unkeyed_total",
			Help: "Total number of packets without a usable 5-tuple",
		},
	)

	// PacketsMalformedTotal counts per-packet encode failures.
	PacketsMalformedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nprint_packets_malformed_total",
			Help: "Total number of packets with self-inconsistent headers",
		},
	)

	// RowsEncodedTotal counts bit rows produced, padding included.
	RowsEncodedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nprint_rows_encoded_total",
			Help: "Total number of nPrint rows written",
		},
	)

	// FlowsAggregatedTotal counts connections turned into matrices.
	FlowsAggregatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nprint_flows_aggregated_total",
			Help: "Total number of connections aggregated into matrices",
		},
	)

	// AggregateLatencySeconds measures per-connection aggregation latency.
	AggregateLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nprint_aggregate_latency_seconds",
			Help:    "Latency of per-connection aggregation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20),
		},
	)
)
