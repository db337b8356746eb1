package domain

import (
	"math"
	"sort"
)

// CatchAllThreshold is the threshold of the last, unbounded tier.
const CatchAllThreshold int64 = math.MaxInt64

// ConfirmationTier maps deposits up to Threshold (inclusive) to a confirmation depth.
type ConfirmationTier struct {
	Threshold             int64
	RequiredConfirmations int64
	OperatorReview        bool
}

// ConfirmationRequirement is the outcome of a policy lookup.
type ConfirmationRequirement struct {
	RequiredConfirmations int64
	OperatorReview        bool
}

// ConfirmationPolicy selects the confirmation requirement for a deposit amount.
// It is immutable once built.
type ConfirmationPolicy struct {
	tiers []ConfirmationTier
}

// NewConfirmationPolicy validates tiers and builds a policy. Tiers must be
// strictly ascending by threshold and end with a CatchAllThreshold tier.
func NewConfirmationPolicy(tiers []ConfirmationTier) (*ConfirmationPolicy, error) {
	if len(tiers) == 0 {
		return nil, NewError(KindInvalidArgument, "at least one confirmation tier is required")
	}

	sorted := make([]ConfirmationTier, len(tiers))
	copy(sorted, tiers)

	for i, tier := range sorted {
		if tier.Threshold < 0 {
			return nil, NewError(KindInvalidArgument, "tier %d has negative threshold", i)
		}
		if tier.RequiredConfirmations < 0 {
			return nil, NewError(KindInvalidArgument, "tier %d has negative confirmations", i)
		}
		if i > 0 && sorted[i-1].Threshold >= tier.Threshold {
			return nil, NewError(KindInvalidArgument, "tiers must be strictly ascending by threshold")
		}
	}

	if sorted[len(sorted)-1].Threshold != CatchAllThreshold {
		return nil, NewError(KindInvalidArgument, "last tier must be the catch-all")
	}

	return &ConfirmationPolicy{tiers: sorted}, nil
}

// Requirement returns the requirement of the smallest tier whose threshold is
// greater than or equal to amount.
func (p *ConfirmationPolicy) Requirement(amount int64) ConfirmationRequirement {
	if amount < 0 {
		amount = 0
	}

	i := sort.Search(len(p.tiers), func(i int) bool {
		return p.tiers[i].Threshold >= amount
	})
	if i == len(p.tiers) {
		i = len(p.tiers) - 1
	}

	tier := p.tiers[i]

	return ConfirmationRequirement{
		RequiredConfirmations: tier.RequiredConfirmations,
		OperatorReview:        tier.OperatorReview,
	}
}

// Tiers returns a copy of the configured tiers.
func (p *ConfirmationPolicy) Tiers() []ConfirmationTier {
	out := make([]ConfirmationTier, len(p.tiers))
	copy(out, p.tiers)
	return out
}
