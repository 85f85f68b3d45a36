package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpportunityStatus is the lifecycle state of an ArbitrageOpportunity.
type OpportunityStatus string

const (
	OpportunityActive   OpportunityStatus = "active"
	OpportunityExecuted OpportunityStatus = "executed"
	OpportunityExpired  OpportunityStatus = "expired"
	OpportunityFailed   OpportunityStatus = "failed"
)

// IsTerminal reports whether s is Executed, Expired or Failed — no further
// upsert under the same key can reuse this record once terminal.
func (s OpportunityStatus) IsTerminal() bool {
	return s == OpportunityExecuted || s == OpportunityExpired || s == OpportunityFailed
}

// ArbitrageOpportunity is a structured proposal to buy at BuyVenue and sell
// at SellVenue for a net positive margin. Immutable except Status; all
// other invariants are enforced at construction by the calculator, never
// relaxed afterward.
type ArbitrageOpportunity struct {
	ID            uuid.UUID
	Pair          TradingPair
	BuyVenue      string
	SellVenue     string
	BuyPrice      decimal.Decimal
	SellPrice     decimal.Decimal
	ProfitPct     decimal.Decimal
	ProfitAmount  decimal.Decimal
	MaxTradeSize  decimal.Decimal
	Timestamp     time.Time
	Status        OpportunityStatus
}

// Key returns the directed opportunity-book key "{symbol}-{buy}-{sell}".
// The reverse direction is a distinct key — see book.go.
func (o *ArbitrageOpportunity) Key() string {
	return o.Pair.Symbol() + "-" + o.BuyVenue + "-" + o.SellVenue
}

// TradeSide is the direction of an order placed against a venue.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// TradeStatus is the lifecycle state of a placed order.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusExecuted  TradeStatus = "executed"
	TradeStatusFailed    TradeStatus = "failed"
	TradeStatusCancelled TradeStatus = "cancelled"
)

// Trade is the record a venue adapter's execution surface would return
// once a real order-placement path exists (see venue.ErrNotImplemented).
type Trade struct {
	ID            uuid.UUID
	OpportunityID uuid.UUID
	Venue         string
	Pair          TradingPair
	Side          TradeSide
	Amount        decimal.Decimal
	Price         decimal.Decimal
	Status        TradeStatus
	CreatedAt     time.Time
	ExecutedAt    *time.Time
	TxHash        string
}
