// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PassagesIndexed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contract_passages_indexed",
			Help: "Number of passages in the active store snapshot",
		},
	)

	IngestFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_ingest_files_total",
			Help: "Files processed by ingestion, by outcome",
		},
		[]string{"status"},
	)

	StoreRebuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contract_store_rebuilds_total",
			Help: "Completed passage store rebuilds",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contract_sessions_active",
			Help: "Sessions currently held by the session store",
		},
	)
)
