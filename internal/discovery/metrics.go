package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	discoveredDeployments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "discovered_deployments_total",
		Help: "Number of discovered deployments",
	})

	discoveryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_errors_total",
		Help: "Discovery service errors",
	})

	lastDiscoveryTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "last_discovery_timestamp",
		Help: "Timestamp of last discovery run",
	})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "discovery_cycle_duration_seconds",
		Help:    "Duration of each discovery cycle",
		Buckets: prometheus.DefBuckets,
	})
)
