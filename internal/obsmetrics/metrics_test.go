package obsmetrics

import "testing"

// These metrics are registered at package init via promauto; this test
// only confirms they're usable without panicking (duplicate
// registration, nil collectors), not any particular reading.
func TestMetricsAreUsable(t *testing.T) {
	ScanTicks.WithLabelValues("ok").Inc()
	ScanTickDuration.Observe(0.25)
	OpportunitiesFound.WithLabelValues("BTC/USDT").Inc()
	BookSize.Set(3)
	OpportunitiesExecuted.WithLabelValues("dry_run").Inc()
	VenueErrors.WithLabelValues("binance", "quote").Inc()
}
