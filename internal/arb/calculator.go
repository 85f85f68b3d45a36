package arb

import (
	"context"
	"time"

	"arbitrage/internal/models"
	"arbitrage/internal/venue"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const bookDepth = 20

var hundred = decimal.NewFromInt(100)

// CalculatorConfig is the subset of trading thresholds the calculator
// consults on every candidate pair of quotes.
type CalculatorConfig struct {
	MinProfitThreshold decimal.Decimal
	MaxSlippage        decimal.Decimal
	MaxTradeAmount      func(venueName string) decimal.Decimal
}

// Calculate folds one buy quote and one sell quote into a sized
// opportunity, or returns (zero, false) when no opportunity clears the
// profit floor at either the gross or net stage. buyAdapter/sellAdapter
// supply trading fees and order-book depth.
func Calculate(ctx context.Context, cfg CalculatorConfig, pair models.TradingPair, buyAdapter, sellAdapter venue.Adapter, buyPrice, sellPrice decimal.Decimal) (models.ArbitrageOpportunity, bool, error) {
	grossPct := sellPrice.Sub(buyPrice).Div(buyPrice).Mul(hundred)
	if grossPct.LessThanOrEqual(cfg.MinProfitThreshold) {
		return models.ArbitrageOpportunity{}, false, nil
	}

	buyFees, err := buyAdapter.TradingFees(ctx, pair)
	if err != nil {
		return models.ArbitrageOpportunity{}, false, venue.NewError(buyAdapter.Name(), "trading_fees", err)
	}
	sellFees, err := sellAdapter.TradingFees(ctx, pair)
	if err != nil {
		return models.ArbitrageOpportunity{}, false, venue.NewError(sellAdapter.Name(), "trading_fees", err)
	}

	totalFeePct := buyFees.TakerFee.Add(sellFees.TakerFee).Mul(hundred)
	netPct := grossPct.Sub(totalFeePct)
	if netPct.LessThanOrEqual(cfg.MinProfitThreshold) {
		return models.ArbitrageOpportunity{}, false, nil
	}

	size, err := maxTradeSize(ctx, cfg, buyAdapter, sellAdapter, pair, buyPrice, sellPrice)
	if err != nil {
		return models.ArbitrageOpportunity{}, false, err
	}
	if size.LessThanOrEqual(decimal.Zero) {
		return models.ArbitrageOpportunity{}, false, nil
	}

	profitAmount := size.Mul(netPct).Div(hundred)

	return models.ArbitrageOpportunity{
		ID:           uuid.New(),
		Pair:         pair,
		BuyVenue:     buyAdapter.Name(),
		SellVenue:    sellAdapter.Name(),
		BuyPrice:     buyPrice,
		SellPrice:    sellPrice,
		ProfitPct:    netPct,
		ProfitAmount: profitAmount,
		MaxTradeSize: size,
		Status:       models.OpportunityActive,
		Timestamp:    time.Now().UTC(),
	}, true, nil
}

// maxTradeSize walks both venues' top-bookDepth levels within the
// configured slippage band and caps the result at the buy venue's
// configured max trade amount.
func maxTradeSize(ctx context.Context, cfg CalculatorConfig, buyAdapter, sellAdapter venue.Adapter, pair models.TradingPair, buyPrice, sellPrice decimal.Decimal) (decimal.Decimal, error) {
	buyBook, err := buyAdapter.OrderBook(ctx, pair, bookDepth)
	if err != nil {
		return decimal.Zero, venue.NewError(buyAdapter.Name(), "order_book", err)
	}
	sellBook, err := sellAdapter.OrderBook(ctx, pair, bookDepth)
	if err != nil {
		return decimal.Zero, venue.NewError(sellAdapter.Name(), "order_book", err)
	}

	one := decimal.NewFromInt(1)
	buyCeiling := buyPrice.Mul(one.Add(cfg.MaxSlippage))
	buyLiquidity := decimal.Zero
	for _, ask := range buyBook.Asks {
		if ask.Price.GreaterThan(buyCeiling) {
			break
		}
		buyLiquidity = buyLiquidity.Add(ask.Quantity)
	}

	sellFloor := sellPrice.Mul(one.Sub(cfg.MaxSlippage))
	sellLiquidity := decimal.Zero
	for _, bid := range sellBook.Bids {
		if bid.Price.LessThan(sellFloor) {
			break
		}
		sellLiquidity = sellLiquidity.Add(bid.Quantity)
	}

	size := decimal.Min(buyLiquidity, sellLiquidity)
	if cfg.MaxTradeAmount != nil {
		size = decimal.Min(size, cfg.MaxTradeAmount(buyAdapter.Name()))
	}
	return size, nil
}
