package arb

import (
	"testing"

	"arbitrage/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from models.OpportunityStatus
		to   models.OpportunityStatus
		want bool
	}{
		{"active to executed", models.OpportunityActive, models.OpportunityExecuted, true},
		{"active to expired", models.OpportunityActive, models.OpportunityExpired, true},
		{"active to failed", models.OpportunityActive, models.OpportunityFailed, true},
		{"active to active", models.OpportunityActive, models.OpportunityActive, false},
		{"executed is terminal", models.OpportunityExecuted, models.OpportunityActive, false},
		{"expired is terminal", models.OpportunityExpired, models.OpportunityFailed, false},
		{"failed is terminal", models.OpportunityFailed, models.OpportunityExecuted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
