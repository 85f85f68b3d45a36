package venue

import (
	"context"
	"sort"
	"sync"

	"arbitrage/internal/models"
	"arbitrage/internal/obsmetrics"

	"go.uber.org/zap"
)

// Registry holds adapters keyed by Name(). It is built once at startup and
// shared read-only; the embedded mutex only guards the map itself, not
// adapter state.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	log      *zap.Logger
}

// NewRegistry builds an empty registry. log may be nil, in which case a
// no-op logger is used.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{adapters: make(map[string]Adapter), log: log}
}

// Add registers adapter under its own Name(), overwriting any prior
// adapter with the same name.
func (r *Registry) Add(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter registered under name, if any.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// All returns every registered adapter in an unspecified order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// Len reports how many adapters are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// AllQuotes queries, concurrently, every adapter that supports pair,
// logging and dropping individual failures, and returns the surviving
// quotes.
func (r *Registry) AllQuotes(ctx context.Context, pair models.TradingPair) []models.Quote {
	supporting := make([]Adapter, 0)
	for _, a := range r.All() {
		if a.SupportsPair(pair) {
			supporting = append(supporting, a)
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	quotes := make([]models.Quote, 0, len(supporting))

	for _, a := range supporting {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			q, err := a.Quote(ctx, pair)
			if err != nil {
				r.log.Warn("quote fetch failed",
					zap.String("venue", a.Name()),
					zap.String("pair", pair.Symbol()),
					zap.Error(err))
				obsmetrics.VenueErrors.WithLabelValues(a.Name(), "quote").Inc()
				return
			}
			mu.Lock()
			quotes = append(quotes, q)
			mu.Unlock()
		}(a)
	}
	wg.Wait()

	return quotes
}

// BestBuy returns the quote minimising Ask (the cheapest place to buy),
// ties broken by venue name ascending.
func BestBuy(quotes []models.Quote) (models.Quote, bool) {
	return extreme(quotes, func(best, cand models.Quote) bool {
		if cand.Ask.LessThan(best.Ask) {
			return true
		}
		return cand.Ask.Equal(best.Ask) && cand.Venue < best.Venue
	})
}

// BestSell returns the quote maximising Bid (the dearest place to sell),
// ties broken by venue name ascending.
func BestSell(quotes []models.Quote) (models.Quote, bool) {
	return extreme(quotes, func(best, cand models.Quote) bool {
		if cand.Bid.GreaterThan(best.Bid) {
			return true
		}
		return cand.Bid.Equal(best.Bid) && cand.Venue < best.Venue
	})
}

func extreme(quotes []models.Quote, candidateWins func(best, cand models.Quote) bool) (models.Quote, bool) {
	if len(quotes) == 0 {
		return models.Quote{}, false
	}
	sorted := make([]models.Quote, len(quotes))
	copy(sorted, quotes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Venue < sorted[j].Venue })

	best := sorted[0]
	for _, cand := range sorted[1:] {
		if candidateWins(best, cand) {
			best = cand
		}
	}
	return best, true
}
