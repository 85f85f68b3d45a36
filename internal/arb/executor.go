package arb

import (
	"context"

	"arbitrage/internal/models"
	"arbitrage/internal/obsmetrics"
	"arbitrage/internal/venue"

	"go.uber.org/zap"
)

// Executor takes a snapshot of the book's active opportunities each
// tick, truncates to MaxConcurrentTrades, and either logs an intended
// trade (dry run) or walks the stubbed execution sequence. Selection is
// a snapshot, not a cursor: opportunities inserted mid-run are not
// picked up until the next tick.
type Executor struct {
	registry            *venue.Registry
	dryRun              bool
	maxConcurrentTrades int
	log                 *zap.Logger
}

// NewExecutor builds an Executor gate over registry.
func NewExecutor(registry *venue.Registry, dryRun bool, maxConcurrentTrades int, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	if maxConcurrentTrades <= 0 {
		maxConcurrentTrades = 1
	}
	return &Executor{registry: registry, dryRun: dryRun, maxConcurrentTrades: maxConcurrentTrades, log: log}
}

// Run drains the top of book's ranking and attempts each selected
// opportunity in turn. A failure on one opportunity does not abort the
// rest.
func (e *Executor) Run(ctx context.Context, book *Book) {
	ranked := book.RankActive()
	if len(ranked) > e.maxConcurrentTrades {
		ranked = ranked[:e.maxConcurrentTrades]
	}

	for _, opp := range ranked {
		if err := e.execute(ctx, book, opp.Key()); err != nil {
			e.log.Error("failed to execute opportunity", zap.String("key", opp.Key()), zap.Error(err))
		}
	}
}

func (e *Executor) execute(ctx context.Context, book *Book, key string) error {
	book.mu.RLock()
	opp, ok := book.entries[key]
	book.mu.RUnlock()
	if !ok {
		return nil
	}

	if e.dryRun {
		e.log.Info("dry run: would execute arbitrage opportunity",
			zap.String("pair", opp.Pair.Symbol()),
			zap.String("buy_venue", opp.BuyVenue),
			zap.String("sell_venue", opp.SellVenue),
			zap.String("profit_pct", opp.ProfitPct.String()),
			zap.String("profit_amount", opp.ProfitAmount.String()))
		obsmetrics.OpportunitiesExecuted.WithLabelValues("dry_run").Inc()
		return nil
	}

	e.log.Info("executing arbitrage opportunity",
		zap.String("buy_venue", opp.BuyVenue),
		zap.String("sell_venue", opp.SellVenue),
		zap.String("profit_pct", opp.ProfitPct.String()))

	if err := e.runExecutionSequence(ctx, opp.BuyVenue, opp.SellVenue); err != nil {
		if markErr := book.Mark(key, models.OpportunityFailed); markErr != nil {
			e.log.Error("failed to mark opportunity failed", zap.String("key", key), zap.Error(markErr))
		}
		obsmetrics.OpportunitiesExecuted.WithLabelValues("failed").Inc()
		return &ExecutionError{OpportunityID: opp.ID.String(), Op: "execute", Err: err}
	}

	obsmetrics.OpportunitiesExecuted.WithLabelValues("executed").Inc()
	return book.Mark(key, models.OpportunityExecuted)
}

// runExecutionSequence is the contract stub for the live path. It
// resolves both venues and queries their balances, then returns
// venue.ErrNotImplemented; no order is placed, awaited or cancelled, so
// every live attempt ends in failure.
func (e *Executor) runExecutionSequence(ctx context.Context, buyVenue, sellVenue string) error {
	buyAdapter, ok := e.registry.Get(buyVenue)
	if !ok {
		return venue.NewError(buyVenue, "execute", errUnknownVenue(buyVenue))
	}
	sellAdapter, ok := e.registry.Get(sellVenue)
	if !ok {
		return venue.NewError(sellVenue, "execute", errUnknownVenue(sellVenue))
	}

	if _, err := buyAdapter.Balances(ctx); err != nil {
		return err
	}
	if _, err := sellAdapter.Balances(ctx); err != nil {
		return err
	}

	return venue.ErrNotImplemented
}

func errUnknownVenue(name string) error {
	return &unknownVenueError{name: name}
}

type unknownVenueError struct{ name string }

func (e *unknownVenueError) Error() string { return "arb: unknown venue " + e.name }
