package arb

import (
	"context"
	"errors"
	"testing"
	"time"

	"arbitrage/internal/models"
	"arbitrage/internal/venue"

	"github.com/shopspring/decimal"
)

// fakeAdapter is a minimal venue.Adapter double driven entirely by its
// exported fields. Methods outside Calculate's dependency surface
// (balances, execution) are stubbed to satisfy the interface.
type fakeAdapter struct {
	name    string
	fees    models.TradingFees
	feesErr error
	book    models.OrderBook
	bookErr error
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Quote(ctx context.Context, pair models.TradingPair) (models.Quote, error) {
	return models.Quote{}, nil
}

func (a *fakeAdapter) OrderBook(ctx context.Context, pair models.TradingPair, depth int) (models.OrderBook, error) {
	return a.book, a.bookErr
}

func (a *fakeAdapter) Balances(ctx context.Context) (map[string]models.Balance, error) {
	return nil, nil
}

func (a *fakeAdapter) TradingFees(ctx context.Context, pair models.TradingPair) (models.TradingFees, error) {
	return a.fees, a.feesErr
}

func (a *fakeAdapter) SupportsPair(pair models.TradingPair) bool { return true }

func (a *fakeAdapter) SupportedPairs(ctx context.Context) ([]models.TradingPair, error) {
	return nil, nil
}

func (a *fakeAdapter) PlaceBuy(ctx context.Context, pair models.TradingPair, amount decimal.Decimal, price *decimal.Decimal) (models.Trade, error) {
	return models.Trade{}, venue.ErrNotImplemented
}

func (a *fakeAdapter) PlaceSell(ctx context.Context, pair models.TradingPair, amount decimal.Decimal, price *decimal.Decimal) (models.Trade, error) {
	return models.Trade{}, venue.ErrNotImplemented
}

func (a *fakeAdapter) OrderStatus(ctx context.Context, orderID string) (models.Trade, error) {
	return models.Trade{}, venue.ErrNotImplemented
}

func (a *fakeAdapter) Cancel(ctx context.Context, orderID string) error {
	return venue.ErrNotImplemented
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func flatBook(venueName string, askPrice, askQty, bidPrice, bidQty string) models.OrderBook {
	return models.OrderBook{
		Venue: venueName,
		Asks:  []models.OrderBookLevel{{Price: dec(askPrice), Quantity: dec(askQty)}},
		Bids:  []models.OrderBookLevel{{Price: dec(bidPrice), Quantity: dec(bidQty)}},
	}
}

func noFeeCfg() CalculatorConfig {
	return CalculatorConfig{
		MinProfitThreshold: dec("0.1"),
		MaxSlippage:        dec("0.01"),
		MaxTradeAmount:     func(string) decimal.Decimal { return dec("1000") },
	}
}

func TestCalculateRejectsBelowGrossThreshold(t *testing.T) {
	pair := models.NewPair("BTC", "USDT")
	buy := &fakeAdapter{name: "binance"}
	sell := &fakeAdapter{name: "kraken"}

	// 0.05% gross spread, below the 0.1% floor.
	_, ok, err := Calculate(context.Background(), noFeeCfg(), pair, buy, sell, dec("100"), dec("100.05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no opportunity below the gross profit floor")
	}
}

func TestCalculatePropagatesFeeLookupError(t *testing.T) {
	pair := models.NewPair("BTC", "USDT")
	buy := &fakeAdapter{name: "binance", feesErr: errors.New("rate limited")}
	sell := &fakeAdapter{name: "kraken"}

	_, ok, err := Calculate(context.Background(), noFeeCfg(), pair, buy, sell, dec("100"), dec("102"))
	if err == nil {
		t.Fatal("expected an error from the buy adapter's fee lookup")
	}
	if ok {
		t.Error("ok must be false alongside a returned error")
	}
	var venueErr *venue.Error
	if !errors.As(err, &venueErr) {
		t.Errorf("expected a *venue.Error, got %T", err)
	}
}

func TestCalculateRejectsBelowNetThresholdAfterFees(t *testing.T) {
	pair := models.NewPair("BTC", "USDT")
	// 1% gross spread, but 0.5%+0.5% taker fees wipe it below the 0.1% floor.
	buy := &fakeAdapter{name: "binance", fees: models.TradingFees{TakerFee: dec("0.005")}}
	sell := &fakeAdapter{name: "kraken", fees: models.TradingFees{TakerFee: dec("0.005")}}

	_, ok, err := Calculate(context.Background(), noFeeCfg(), pair, buy, sell, dec("100"), dec("101"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no opportunity once fees are netted out")
	}
}

func TestCalculateRejectsZeroTradeSize(t *testing.T) {
	pair := models.NewPair("BTC", "USDT")
	buy := &fakeAdapter{
		name: "binance",
		book: flatBook("binance", "1000000", "1", "100", "1"), // ask far outside the slippage ceiling
	}
	sell := &fakeAdapter{
		name: "kraken",
		book: flatBook("kraken", "104", "1", "102", "1"),
	}

	_, ok, err := Calculate(context.Background(), noFeeCfg(), pair, buy, sell, dec("100"), dec("103"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no opportunity when no liquidity is reachable within the slippage band")
	}
}

func TestCalculateMaterializesOpportunity(t *testing.T) {
	pair := models.NewPair("BTC", "USDT")
	buy := &fakeAdapter{
		name: "binance",
		book: flatBook("binance", "100.2", "5", "99.8", "5"),
	}
	sell := &fakeAdapter{
		name: "kraken",
		book: flatBook("kraken", "102.2", "5", "101.8", "5"),
	}

	opp, ok, err := Calculate(context.Background(), noFeeCfg(), pair, buy, sell, dec("100"), dec("102"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a materialized opportunity")
	}
	if opp.BuyVenue != "binance" || opp.SellVenue != "kraken" {
		t.Errorf("venues = %s/%s, want binance/kraken", opp.BuyVenue, opp.SellVenue)
	}
	if opp.Status != models.OpportunityActive {
		t.Errorf("Status = %s, want %s", opp.Status, models.OpportunityActive)
	}
	if opp.ID.String() == "" {
		t.Error("expected a populated opportunity ID")
	}
	wantSize := dec("5")
	if !opp.MaxTradeSize.Equal(wantSize) {
		t.Errorf("MaxTradeSize = %s, want %s", opp.MaxTradeSize, wantSize)
	}
	if !opp.ProfitAmount.Equal(opp.MaxTradeSize.Mul(opp.ProfitPct).Div(hundred)) {
		t.Error("ProfitAmount must equal MaxTradeSize * ProfitPct / 100")
	}
	if opp.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set to the discovery time, not the zero value")
	}
	if age := time.Since(opp.Timestamp); age < 0 || age > time.Minute {
		t.Errorf("Timestamp = %v, want close to now", opp.Timestamp)
	}
}

func TestMaxTradeSizeCapsAtConfiguredMaxTradeAmount(t *testing.T) {
	pair := models.NewPair("BTC", "USDT")
	buy := &fakeAdapter{
		name: "binance",
		book: flatBook("binance", "100.2", "50", "99.8", "50"),
	}
	sell := &fakeAdapter{
		name: "kraken",
		book: flatBook("kraken", "102.2", "50", "101.8", "50"),
	}
	cfg := CalculatorConfig{
		MinProfitThreshold: dec("0.1"),
		MaxSlippage:        dec("0.01"),
		MaxTradeAmount:     func(string) decimal.Decimal { return dec("2") },
	}

	size, err := maxTradeSize(context.Background(), cfg, buy, sell, pair, dec("100"), dec("102"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !size.Equal(dec("2")) {
		t.Errorf("size = %s, want 2 (capped by MaxTradeAmount)", size)
	}
}

func TestMaxTradeSizePropagatesOrderBookError(t *testing.T) {
	pair := models.NewPair("BTC", "USDT")
	buy := &fakeAdapter{name: "binance", bookErr: errors.New("timeout")}
	sell := &fakeAdapter{name: "kraken"}

	_, err := maxTradeSize(context.Background(), noFeeCfg(), buy, sell, pair, dec("100"), dec("102"))
	if err == nil {
		t.Fatal("expected an error from the buy adapter's order book lookup")
	}
}
