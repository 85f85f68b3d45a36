package arb

import "arbitrage/internal/models"

// validTransitions defines the allowed moves out of each opportunity
// status. Active is the only non-terminal state; everything else is a
// dead end once reached.
var validTransitions = map[models.OpportunityStatus][]models.OpportunityStatus{
	models.OpportunityActive: {
		models.OpportunityExecuted,
		models.OpportunityExpired,
		models.OpportunityFailed,
	},
}

// CanTransition reports whether an opportunity may move from "from" to
// "to".
func CanTransition(from, to models.OpportunityStatus) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
