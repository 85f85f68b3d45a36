// Package obsmetrics exposes the discovery engine's Prometheus metrics:
// scan cadence, opportunities found, and book size.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScanTicks counts completed scan-loop ticks, labelled by whether the
// tick errored.
var ScanTicks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "scanner",
		Name:      "ticks_total",
		Help:      "Total number of scan loop ticks",
	},
	[]string{"result"},
)

// ScanTickDuration measures wall-clock time spent per tick.
var ScanTickDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "arbitrage",
		Subsystem: "scanner",
		Name:      "tick_duration_seconds",
		Help:      "Time to complete one scan loop tick",
		Buckets:   prometheus.DefBuckets,
	},
)

// OpportunitiesFound counts opportunities the calculator materialised,
// labelled by pair.
var OpportunitiesFound = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "calculator",
		Name:      "opportunities_found_total",
		Help:      "Total number of arbitrage opportunities materialised",
	},
	[]string{"pair"},
)

// BookSize reports the current count of Active entries in the
// opportunity book.
var BookSize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "book",
		Name:      "active_opportunities",
		Help:      "Current number of active opportunities in the book",
	},
)

// OpportunitiesExecuted counts executor outcomes, labelled by status
// ("executed", "failed", "dry_run").
var OpportunitiesExecuted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "executor",
		Name:      "opportunities_total",
		Help:      "Total number of opportunities the executor gate acted on",
	},
	[]string{"status"},
)

// VenueErrors counts adapter-level failures, labelled by venue and
// operation.
var VenueErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "venue",
		Name:      "errors_total",
		Help:      "Total number of venue adapter errors",
	},
	[]string{"venue", "op"},
)
