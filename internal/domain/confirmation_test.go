package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTiers() []ConfirmationTier {
	return []ConfirmationTier{
		{Threshold: 10 * NanoPerTON, RequiredConfirmations: 1},
		{Threshold: 100 * NanoPerTON, RequiredConfirmations: 3},
		{Threshold: 1000 * NanoPerTON, RequiredConfirmations: 6},
		{Threshold: CatchAllThreshold, RequiredConfirmations: 12, OperatorReview: true},
	}
}

func TestConfirmationPolicy_Requirement(t *testing.T) {
	policy, err := NewConfirmationPolicy(testTiers())
	require.NoError(t, err)

	tests := []struct {
		name   string
		amount int64
		want   ConfirmationRequirement
	}{
		{name: "zero uses lowest tier", amount: 0, want: ConfirmationRequirement{RequiredConfirmations: 1}},
		{name: "negative uses lowest tier", amount: -5, want: ConfirmationRequirement{RequiredConfirmations: 1}},
		{name: "exactly lowest threshold", amount: 10 * NanoPerTON, want: ConfirmationRequirement{RequiredConfirmations: 1}},
		{name: "one above lowest threshold", amount: 10*NanoPerTON + 1, want: ConfirmationRequirement{RequiredConfirmations: 3}},
		{name: "exactly middle threshold", amount: 1000 * NanoPerTON, want: ConfirmationRequirement{RequiredConfirmations: 6}},
		{name: "above last bounded tier", amount: 1000*NanoPerTON + 1, want: ConfirmationRequirement{RequiredConfirmations: 12, OperatorReview: true}},
		{name: "maximum amount", amount: CatchAllThreshold, want: ConfirmationRequirement{RequiredConfirmations: 12, OperatorReview: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Requirement(tt.amount))
		})
	}
}

func TestNewConfirmationPolicy_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		tiers []ConfirmationTier
	}{
		{name: "empty", tiers: nil},
		{name: "no catch-all", tiers: []ConfirmationTier{{Threshold: 10, RequiredConfirmations: 1}}},
		{
			name: "not ascending",
			tiers: []ConfirmationTier{
				{Threshold: 100, RequiredConfirmations: 1},
				{Threshold: 10, RequiredConfirmations: 2},
				{Threshold: CatchAllThreshold, RequiredConfirmations: 3},
			},
		},
		{
			name: "duplicate threshold",
			tiers: []ConfirmationTier{
				{Threshold: 10, RequiredConfirmations: 1},
				{Threshold: 10, RequiredConfirmations: 2},
				{Threshold: CatchAllThreshold, RequiredConfirmations: 3},
			},
		},
		{
			name:  "negative confirmations",
			tiers: []ConfirmationTier{{Threshold: CatchAllThreshold, RequiredConfirmations: -1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfirmationPolicy(tt.tiers)
			require.Error(t, err)
			assert.Equal(t, KindInvalidArgument, KindOf(err))
		})
	}
}

func TestConfirmationPolicy_TiersIsCopy(t *testing.T) {
	policy, err := NewConfirmationPolicy(testTiers())
	require.NoError(t, err)

	tiers := policy.Tiers()
	tiers[0].RequiredConfirmations = 99

	assert.Equal(t, int64(1), policy.Requirement(0).RequiredConfirmations)
}
