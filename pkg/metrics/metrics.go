package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	prometheus.Register(PlacementCounter)
	prometheus.Register(BroadcastCounter)
	prometheus.Register(ShardDurationHistogram)
	prometheus.Register(MergedRowsHistogram)
	prometheus.Register(ShardsGauge)
}
