package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deploysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staticdeploy_deploys_total",
			Help: "Total deploy operations",
		},
		[]string{"result"},
	)

	rollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staticdeploy_rollbacks_total",
			Help: "Total rollback operations",
		},
		[]string{"result"},
	)

	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "staticdeploy_step_duration_seconds",
			Help:    "Duration of deployment state machine steps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	uploadRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staticdeploy_upload_retries_total",
			Help: "Total per-object upload retries after transient store errors",
		},
	)
)
