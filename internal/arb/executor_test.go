package arb

import (
	"context"
	"testing"
	"time"

	"arbitrage/internal/models"
	"arbitrage/internal/venue"
)

func newRegistryWith(names ...string) *venue.Registry {
	r := venue.NewRegistry(nil)
	for _, name := range names {
		r.Add(&fakeAdapter{name: name})
	}
	return r
}

func TestExecutorDryRunDoesNotMarkOpportunities(t *testing.T) {
	store := &fakeStore{}
	book := NewBook(store, 0, nil)
	pair := models.NewPair("BTC", "USDT")
	opp := newOpp(pair, "binance", "kraken", "1.0", time.Now())
	book.Upsert(opp)

	registry := newRegistryWith("binance", "kraken")
	executor := NewExecutor(registry, true, 5, nil)
	executor.Run(context.Background(), book)

	if len(book.RankActive()) != 1 {
		t.Error("dry run must not remove the opportunity from the active set")
	}
	if len(store.updated) != 0 {
		t.Error("dry run must not persist a status update")
	}
}

func TestExecutorLiveRunMarksFailedOnStubbedExecution(t *testing.T) {
	store := &fakeStore{}
	book := NewBook(store, 0, nil)
	pair := models.NewPair("BTC", "USDT")
	opp := newOpp(pair, "binance", "kraken", "1.0", time.Now())
	book.Upsert(opp)

	registry := newRegistryWith("binance", "kraken")
	executor := NewExecutor(registry, false, 5, nil)
	executor.Run(context.Background(), book)

	if len(book.RankActive()) != 0 {
		t.Error("a failed execution must remove the opportunity from the active set")
	}
	if len(store.updated) != 1 || store.updated[0].Status != models.OpportunityFailed {
		t.Fatalf("expected one status update to Failed, got %+v", store.updated)
	}
}

func TestExecutorRunTruncatesToMaxConcurrentTrades(t *testing.T) {
	store := &fakeStore{}
	book := NewBook(store, 0, nil)
	now := time.Now()
	book.Upsert(newOpp(models.NewPair("BTC", "USDT"), "binance", "kraken", "3.0", now))
	book.Upsert(newOpp(models.NewPair("ETH", "USDT"), "binance", "kraken", "2.0", now))
	book.Upsert(newOpp(models.NewPair("SOL", "USDT"), "binance", "kraken", "1.0", now))

	registry := newRegistryWith("binance", "kraken")
	executor := NewExecutor(registry, false, 1, nil)
	executor.Run(context.Background(), book)

	if len(store.updated) != 1 {
		t.Fatalf("expected exactly 1 execution attempt (maxConcurrentTrades=1), got %d", len(store.updated))
	}
	// The highest-profit opportunity (BTC/USDT at 3.0) must be the one
	// selected, since Run truncates RankActive's descending order.
	if store.updated[0].Pair.Symbol() != "BTC/USDT" {
		t.Errorf("executed pair = %s, want BTC/USDT (highest profit)", store.updated[0].Pair.Symbol())
	}
}

func TestExecutorExecuteUnknownVenueIsAnError(t *testing.T) {
	store := &fakeStore{}
	book := NewBook(store, 0, nil)
	pair := models.NewPair("BTC", "USDT")
	opp := newOpp(pair, "binance", "unknown-venue", "1.0", time.Now())
	book.Upsert(opp)

	registry := newRegistryWith("binance")
	executor := NewExecutor(registry, false, 5, nil)
	// Run logs the error internally rather than panicking or propagating;
	// confirm it completes and marks the opportunity failed via the
	// error path in execute().
	executor.Run(context.Background(), book)

	if len(store.updated) != 1 || store.updated[0].Status != models.OpportunityFailed {
		t.Fatalf("expected the unknown-venue execution to be marked Failed, got %+v", store.updated)
	}
}

func TestNewExecutorDefaultsMaxConcurrentTrades(t *testing.T) {
	e := NewExecutor(venue.NewRegistry(nil), true, 0, nil)
	if e.maxConcurrentTrades != 1 {
		t.Errorf("maxConcurrentTrades = %d, want default of 1", e.maxConcurrentTrades)
	}
}
