// Package store implements the persistence port: a write-through log
// for opportunities and their status transitions. The opportunity book
// is the system's source of truth for "currently live" — this package
// never serves reads back into the scan loop.
package store

import (
	"context"

	"arbitrage/internal/models"
)

// Port is the persistence contract the book and CLI bootstrap depend on.
// Writes must be durable before the call returns; repeated
// SaveOpportunity with the same ID is idempotent; a failed write must
// surface as an error without touching in-memory state.
type Port interface {
	SaveOpportunity(opp models.ArbitrageOpportunity) error
	UpdateOpportunityStatus(opp models.ArbitrageOpportunity) error
	InitStore(ctx context.Context) error
}
