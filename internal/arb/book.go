package arb

import (
	"sort"
	"sync"
	"time"

	"arbitrage/internal/models"

	"go.uber.org/zap"
)

// DefaultExpiry is how long an Active opportunity may sit unrefreshed
// before expire() removes it.
const DefaultExpiry = 5 * time.Minute

// Store is the persistence port the book writes through to. It is kept
// here, not in internal/store, so the book can depend on a narrow
// interface rather than the whole storage package.
type Store interface {
	SaveOpportunity(opp models.ArbitrageOpportunity) error
	UpdateOpportunityStatus(opp models.ArbitrageOpportunity) error
}

// Book is the single source of truth for currently-live opportunities,
// keyed by models.ArbitrageOpportunity.Key(). The persistence port is a
// write-through log, not a cache: losing the book loses the "currently
// live" view even if every write succeeded.
type Book struct {
	mu      sync.RWMutex
	entries map[string]models.ArbitrageOpportunity
	store   Store
	expiry  time.Duration
	log     *zap.Logger
}

// NewBook builds an empty book. expiry of zero falls back to DefaultExpiry.
func NewBook(store Store, expiry time.Duration, log *zap.Logger) *Book {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Book{
		entries: make(map[string]models.ArbitrageOpportunity),
		store:   store,
		expiry:  expiry,
		log:     log,
	}
}

// Upsert inserts opp if its key is new, or replaces the stored entry
// only when opp.ProfitPct is strictly greater than what's there —
// monotonic quality per key, preventing thrash from noisy quotes.
func (b *Book) Upsert(opp models.ArbitrageOpportunity) error {
	key := opp.Key()

	b.mu.Lock()
	existing, ok := b.entries[key]
	if ok && !opp.ProfitPct.GreaterThan(existing.ProfitPct) {
		b.mu.Unlock()
		return nil
	}
	b.entries[key] = opp
	b.mu.Unlock()

	if err := b.store.SaveOpportunity(opp); err != nil {
		return &PersistenceError{Op: "save_opportunity", Err: err}
	}
	if ok {
		b.log.Info("updated opportunity", zap.String("key", key), zap.String("profit_pct", opp.ProfitPct.String()))
	} else {
		b.log.Info("added opportunity", zap.String("key", key), zap.String("profit_pct", opp.ProfitPct.String()))
	}
	return nil
}

// RankActive returns all Active entries sorted by ProfitPct descending,
// ties broken by earlier Timestamp first.
func (b *Book) RankActive() []models.ArbitrageOpportunity {
	b.mu.RLock()
	out := make([]models.ArbitrageOpportunity, 0, len(b.entries))
	for _, opp := range b.entries {
		if opp.Status == models.OpportunityActive {
			out = append(out, opp)
		}
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProfitPct.Equal(out[j].ProfitPct) {
			return out[i].ProfitPct.GreaterThan(out[j].ProfitPct)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Expire removes any entry whose age exceeds the book's expiry,
// marking it Expired and persisting once before removal.
func (b *Book) Expire(now time.Time) error {
	b.mu.Lock()
	stale := make([]models.ArbitrageOpportunity, 0)
	for key, opp := range b.entries {
		if opp.Status == models.OpportunityActive && now.Sub(opp.Timestamp) > b.expiry {
			opp.Status = models.OpportunityExpired
			stale = append(stale, opp)
			delete(b.entries, key)
		}
	}
	b.mu.Unlock()

	var firstErr error
	for _, opp := range stale {
		if err := b.store.UpdateOpportunityStatus(opp); err != nil {
			werr := &PersistenceError{Op: "update_opportunity_status", Err: err}
			b.log.Error("failed to persist expiry", zap.String("key", opp.Key()), zap.Error(werr))
			if firstErr == nil {
				firstErr = werr
			}
			continue
		}
		b.log.Debug("expired opportunity", zap.String("key", opp.Key()))
	}
	return firstErr
}

// Mark transitions the entry under key to a terminal status and
// persists it. Subsequent upserts with the same key are treated as new
// since the entry is removed from the live map.
func (b *Book) Mark(key string, status models.OpportunityStatus) error {
	b.mu.Lock()
	opp, ok := b.entries[key]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	if !CanTransition(opp.Status, status) {
		b.mu.Unlock()
		return &ExecutionError{OpportunityID: opp.ID.String(), Op: "mark", Err: errInvalidTransition(opp.Status, status)}
	}
	opp.Status = status
	delete(b.entries, key)
	b.mu.Unlock()

	if err := b.store.UpdateOpportunityStatus(opp); err != nil {
		return &PersistenceError{Op: "update_opportunity_status", Err: err}
	}
	return nil
}

func errInvalidTransition(from, to models.OpportunityStatus) error {
	return &transitionError{from: from, to: to}
}

type transitionError struct {
	from, to models.OpportunityStatus
}

func (e *transitionError) Error() string {
	return "arb: invalid status transition " + string(e.from) + " -> " + string(e.to)
}
