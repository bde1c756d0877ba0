package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PlacementCounter placement operations routed to a single shard
	PlacementCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shards",
			Subsystem: "coordinator",
			Name:      "placement_total",
			Help:      "Total number of single-shard placement operations made.",
		}, []string{"shard", "status"})

	// BroadcastCounter operations fanned out to every shard
	BroadcastCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shards",
			Subsystem: "coordinator",
			Name:      "broadcast_total",
			Help:      "Total number of broadcast operations made.",
		}, []string{"operation", "status"})

	// ShardDurationHistogram per-shard call duration inside a broadcast
	ShardDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shards",
			Subsystem: "coordinator",
			Name:      "shard_duration_seconds",
			Help:      "Bucketed histogram of per-shard call duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2.0, 20),
		}, []string{"shard"})

	// MergedRowsHistogram rows handed to the cross-shard merge
	MergedRowsHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shards",
			Subsystem: "coordinator",
			Name:      "merged_rows",
			Help:      "Bucketed histogram of partial result rows per broadcast.",
			Buckets:   prometheus.ExponentialBuckets(1, 2.0, 16),
		})

	// ShardsGauge configured physical shards
	ShardsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "shards",
		Subsystem: "coordinator",
		Name:      "shards_total",
		Help:      "Total number of configured physical shards.",
	})
)
