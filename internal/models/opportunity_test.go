package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestArbitrageOpportunityKey(t *testing.T) {
	opp := ArbitrageOpportunity{
		Pair:      NewPair("BTC", "USDT"),
		BuyVenue:  "binance",
		SellVenue: "kraken",
	}
	want := "BTC/USDT-binance-kraken"
	if got := opp.Key(); got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}

	reverse := ArbitrageOpportunity{
		Pair:      NewPair("BTC", "USDT"),
		BuyVenue:  "kraken",
		SellVenue: "binance",
	}
	if opp.Key() == reverse.Key() {
		t.Error("reversed buy/sell venues must produce a distinct key")
	}
}

func TestOpportunityStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   OpportunityStatus
		terminal bool
	}{
		{OpportunityActive, false},
		{OpportunityExecuted, true},
		{OpportunityExpired, true},
		{OpportunityFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestArbitrageOpportunityFieldsSurviveConstruction(t *testing.T) {
	opp := ArbitrageOpportunity{
		Pair:         NewPair("ETH", "USDT"),
		BuyVenue:     "binance",
		SellVenue:    "uniswap",
		BuyPrice:     decimal.NewFromFloat(2000),
		SellPrice:    decimal.NewFromFloat(2010),
		ProfitPct:    decimal.NewFromFloat(0.5),
		ProfitAmount: decimal.NewFromFloat(10),
		MaxTradeSize: decimal.NewFromFloat(1),
		Status:       OpportunityActive,
	}
	if opp.Status != OpportunityActive {
		t.Errorf("Status = %s, want %s", opp.Status, OpportunityActive)
	}
	if !opp.ProfitAmount.Equal(decimal.NewFromFloat(10)) {
		t.Errorf("ProfitAmount = %s, want 10", opp.ProfitAmount)
	}
}
