package arb

import (
	"context"
	"sync"
	"time"

	"arbitrage/internal/models"
	"arbitrage/internal/obsmetrics"
	"arbitrage/internal/venue"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ScannerConfig parameterises the periodic driver.
type ScannerConfig struct {
	CheckInterval      time.Duration
	MaxConcurrentPairs int
	Calculator         CalculatorConfig
}

// Scanner is the periodic discovery driver: each tick enumerates the
// configured pair union, fans out the calculator over every unordered
// adapter pair bounded by a concurrency cap, feeds results into the
// book, runs the executor, then expires stale entries.
type Scanner struct {
	cfg      ScannerConfig
	registry *venue.Registry
	book     *Book
	executor *Executor
	log      *zap.Logger
}

// NewScanner wires a Scanner over an already-populated registry and book.
func NewScanner(cfg ScannerConfig, registry *venue.Registry, book *Book, executor *Executor, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxConcurrentPairs <= 0 {
		cfg.MaxConcurrentPairs = 8
	}
	return &Scanner{cfg: cfg, registry: registry, book: book, executor: executor, log: log}
}

// Run blocks, ticking at CheckInterval until ctx is cancelled. Ticks do
// not overlap: if a tick overruns the interval, the next tick starts
// immediately afterward rather than bursting to catch up.
func (s *Scanner) Run(ctx context.Context, pairs []models.TradingPair) {
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx, pairs); err != nil {
				s.log.Error("scan tick failed", zap.Error(err))
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Tick runs one full scan-and-execute cycle over the given pairs.
func (s *Scanner) Tick(ctx context.Context, pairs []models.TradingPair) error {
	start := time.Now()
	defer func() { obsmetrics.ScanTickDuration.Observe(time.Since(start).Seconds()) }()

	if s.registry.Len() < 2 {
		s.log.Warn("need at least 2 venues for arbitrage")
		obsmetrics.ScanTicks.WithLabelValues("skipped").Inc()
		return nil
	}

	sem := make(chan struct{}, s.cfg.MaxConcurrentPairs)
	var wg sync.WaitGroup

	for _, pair := range pairs {
		wg.Add(1)
		sem <- struct{}{}
		go func(pair models.TradingPair) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.scanPair(ctx, pair); err != nil {
				s.log.Warn("error scanning pair", zap.String("pair", pair.Symbol()), zap.Error(err))
			}
		}(pair)
	}
	wg.Wait()

	if s.executor != nil {
		s.executor.Run(ctx, s.book)
	}

	obsmetrics.BookSize.Set(float64(len(s.book.RankActive())))

	if err := s.book.Expire(time.Now()); err != nil {
		s.log.Error("error expiring opportunities", zap.Error(err))
		obsmetrics.ScanTicks.WithLabelValues("error").Inc()
		return nil
	}
	obsmetrics.ScanTicks.WithLabelValues("ok").Inc()
	return nil
}

// scanPair asks the registry for every supporting quote, then runs the
// calculator for every unordered adapter pair in both directions, since
// either venue could be the cheaper place to buy.
func (s *Scanner) scanPair(ctx context.Context, pair models.TradingPair) error {
	quotes := s.registry.AllQuotes(ctx, pair)
	if len(quotes) < 2 {
		return nil
	}

	for i := 0; i < len(quotes); i++ {
		for j := i + 1; j < len(quotes); j++ {
			q1, q2 := quotes[i], quotes[j]

			a1, ok := s.registry.Get(q1.Venue)
			if !ok {
				continue
			}
			a2, ok := s.registry.Get(q2.Venue)
			if !ok {
				continue
			}

			if err := s.tryDirection(ctx, pair, a1, a2, q1.Ask, q2.Bid); err != nil {
				s.log.Warn("calculator error", zap.String("pair", pair.Symbol()), zap.Error(err))
			}
			if err := s.tryDirection(ctx, pair, a2, a1, q2.Ask, q1.Bid); err != nil {
				s.log.Warn("calculator error", zap.String("pair", pair.Symbol()), zap.Error(err))
			}
		}
	}
	return nil
}

func (s *Scanner) tryDirection(ctx context.Context, pair models.TradingPair, buyAdapter, sellAdapter venue.Adapter, buyPrice, sellPrice decimal.Decimal) error {
	opp, ok, err := Calculate(ctx, s.cfg.Calculator, pair, buyAdapter, sellAdapter, buyPrice, sellPrice)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	obsmetrics.OpportunitiesFound.WithLabelValues(pair.Symbol()).Inc()
	return s.book.Upsert(opp)
}
