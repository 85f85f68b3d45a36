package store

import (
	"context"
	"sync"

	"arbitrage/internal/models"
)

// Memory is an in-process Port for tests that don't need a real
// database. The CLI does not use it.
type Memory struct {
	mu   sync.Mutex
	byID map[string]models.ArbitrageOpportunity
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]models.ArbitrageOpportunity)}
}

func (m *Memory) InitStore(_ context.Context) error { return nil }

func (m *Memory) SaveOpportunity(opp models.ArbitrageOpportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[opp.ID.String()] = opp
	return nil
}

func (m *Memory) UpdateOpportunityStatus(opp models.ArbitrageOpportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[opp.ID.String()] = opp
	return nil
}

// All returns every stored opportunity, for test assertions.
func (m *Memory) All() []models.ArbitrageOpportunity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ArbitrageOpportunity, 0, len(m.byID))
	for _, opp := range m.byID {
		out = append(out, opp)
	}
	return out
}

var _ Port = (*Memory)(nil)
