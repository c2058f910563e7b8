package pricing

import (
	"errors"

	"buildline/internal/domain"
)

var ErrInvalidTier = errors.New("invalid tier")

// Amounts are in the currency's minor unit (cents) and are already in the unit
// the checkout gateway charges in; callers must not rescale them.
const (
	standardCents = 500  // $5
	priorityCents = 1500 // $15
	expressCents  = 5000 // $50
)

// Price returns the charge amount in cents for a tier. Strictly increasing
// with tier rank.
func Price(tier string) (int64, error) {
	switch tier {
	case domain.TierStandard:
		return standardCents, nil
	case domain.TierPriority:
		return priorityCents, nil
	case domain.TierExpress:
		return expressCents, nil
	}
	return 0, ErrInvalidTier
}

// Rank returns the queue rank of a tier: express first, standard last.
// Unknown tiers rank as standard.
func Rank(tier string) int {
	switch tier {
	case domain.TierExpress:
		return 0
	case domain.TierPriority:
		return 1
	default:
		return 2
	}
}

// TierLabel returns the work-item label for a tier; standard has none.
func TierLabel(tier string) string {
	switch tier {
	case domain.TierExpress:
		return domain.LabelPriorityExpress
	case domain.TierPriority:
		return domain.LabelPriorityPriority
	}
	return ""
}
