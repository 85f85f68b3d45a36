package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the source's "Price": a venue's current best bid/ask for a pair.
// The calculator must not assume Bid <= Ask — see calculator.go's handling
// of crossed books.
type Quote struct {
	Venue     string
	Pair      TradingPair
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
	Volume24h decimal.NullDecimal
}

// OrderBookLevel is one price/quantity rung of an order book. Both fields
// must be strictly positive.
type OrderBookLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook is a venue's order book snapshot for a pair. Adapters must
// deliver Bids sorted descending by price and Asks ascending.
type OrderBook struct {
	Venue     string
	Pair      TradingPair
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
	Timestamp time.Time
}

// TradingFees are fractions in [0,1), e.g. 0.001 == 10bps. The calculator
// only consumes TakerFee.
type TradingFees struct {
	MakerFee decimal.Decimal
	TakerFee decimal.Decimal
}

// Balance is one asset's free/locked/total holdings at a venue, used by
// execution, not by discovery.
type Balance struct {
	Asset    string
	Free     decimal.Decimal
	Locked   decimal.Decimal
	Total    decimal.Decimal
	USDValue decimal.Decimal
}

// Portfolio aggregates balances across assets. Neither discovery nor the
// CLI commands build or consume one.
type Portfolio struct {
	TotalValueUSD decimal.Decimal
	Balances      map[string]Balance
	UpdatedAt     time.Time
}
