package store

import (
	"context"
	"testing"
	"time"

	"arbitrage/internal/models"

	"github.com/google/uuid"
)

func newTestOpportunity(status models.OpportunityStatus) models.ArbitrageOpportunity {
	return models.ArbitrageOpportunity{
		ID:        uuid.New(),
		Pair:      models.NewPair("BTC", "USDT"),
		BuyVenue:  "binance",
		SellVenue: "kraken",
		Status:    status,
		Timestamp: time.Now(),
	}
}

func TestMemoryInitStoreIsNoOp(t *testing.T) {
	m := NewMemory()
	if err := m.InitStore(context.Background()); err != nil {
		t.Fatalf("InitStore returned error: %v", err)
	}
}

func TestMemorySaveAndAll(t *testing.T) {
	m := NewMemory()
	opp := newTestOpportunity(models.OpportunityActive)

	if err := m.SaveOpportunity(opp); err != nil {
		t.Fatalf("SaveOpportunity returned error: %v", err)
	}
	all := m.All()
	if len(all) != 1 || all[0].ID != opp.ID {
		t.Fatalf("All() = %+v, want a single entry matching the saved opportunity", all)
	}
}

func TestMemoryUpdateOpportunityStatusOverwritesSameID(t *testing.T) {
	m := NewMemory()
	opp := newTestOpportunity(models.OpportunityActive)
	m.SaveOpportunity(opp)

	opp.Status = models.OpportunityExecuted
	if err := m.UpdateOpportunityStatus(opp); err != nil {
		t.Fatalf("UpdateOpportunityStatus returned error: %v", err)
	}

	all := m.All()
	if len(all) != 1 {
		t.Fatalf("expected the update to overwrite rather than append, got %d entries", len(all))
	}
	if all[0].Status != models.OpportunityExecuted {
		t.Errorf("Status = %s, want %s", all[0].Status, models.OpportunityExecuted)
	}
}

func TestMemorySaveOpportunityIsIdempotentByID(t *testing.T) {
	m := NewMemory()
	opp := newTestOpportunity(models.OpportunityActive)
	m.SaveOpportunity(opp)
	m.SaveOpportunity(opp)

	if len(m.All()) != 1 {
		t.Errorf("expected repeated saves of the same ID to collapse to one entry")
	}
}
