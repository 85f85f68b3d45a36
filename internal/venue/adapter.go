// Package venue normalises quote, depth, balance and fee access across
// fundamentally different market microstructures — limit order books and
// constant-product AMM pools — behind one Adapter contract.
package venue

import (
	"context"

	"arbitrage/internal/models"

	"github.com/shopspring/decimal"
)

// Adapter is the capability every venue implementation exposes. It is a
// closed set in this repository ({*CEXAdapter, *AMMAdapter}) but the
// interface itself is open — a new venue only needs to satisfy it, not
// extend a switch statement.
type Adapter interface {
	// Name is the adapter's stable identifier, e.g. "binance", "uniswap".
	Name() string

	// Quote returns the venue's current best bid/ask for pair.
	Quote(ctx context.Context, pair models.TradingPair) (models.Quote, error)

	// OrderBook returns the top depth levels per side.
	OrderBook(ctx context.Context, pair models.TradingPair, depth int) (models.OrderBook, error)

	// Balances returns the caller's positions, keyed by asset symbol.
	Balances(ctx context.Context) (map[string]models.Balance, error)

	// TradingFees returns the venue's maker/taker fee fractions for pair.
	TradingFees(ctx context.Context, pair models.TradingPair) (models.TradingFees, error)

	// SupportsPair is a synchronous membership test.
	SupportsPair(pair models.TradingPair) bool

	// SupportedPairs lists every pair this adapter can quote.
	SupportedPairs(ctx context.Context) ([]models.TradingPair, error)

	// Execution surface — stubbed in every adapter shipped here.
	PlaceBuy(ctx context.Context, pair models.TradingPair, amount decimal.Decimal, price *decimal.Decimal) (models.Trade, error)
	PlaceSell(ctx context.Context, pair models.TradingPair, amount decimal.Decimal, price *decimal.Decimal) (models.Trade, error)
	OrderStatus(ctx context.Context, orderID string) (models.Trade, error)
	Cancel(ctx context.Context, orderID string) error
}
