package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Rebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxmap_rebuilds_total",
			Help: "Total layer stack rebuilds",
		},
		[]string{"variable"},
	)

	AssetFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxmap_asset_fetches_total",
			Help: "Asset fetches by asset and outcome (ok, error, stale)",
		},
		[]string{"asset", "status"},
	)

	AssetFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wxmap_asset_fetch_latency_seconds",
			Help:    "Asset fetch and decode latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"asset"},
	)

	StaleResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wxmap_stale_results_dropped_total",
			Help: "Fetch results dropped because a newer rebuild had started",
		},
	)

	StationRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxmap_station_records_total",
			Help: "Station records processed by outcome (built, unflagged, malformed)",
		},
		[]string{"outcome"},
	)

	PointerMoves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxmap_pointer_moves_total",
			Help: "Pointer moves by resulting tooltip state",
		},
		[]string{"state"},
	)
)
