package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildline/internal/domain"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		name    string
		tier    string
		wantErr bool
	}{
		{name: "standard", tier: domain.TierStandard},
		{name: "priority", tier: domain.TierPriority},
		{name: "express", tier: domain.TierExpress},
		{name: "unknown tier", tier: "turbo", wantErr: true},
		{name: "empty tier", tier: "", wantErr: true},
		{name: "case sensitive", tier: "Express", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := Price(tt.tier)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTier)
				return
			}
			require.NoError(t, err)
			assert.Positive(t, amount)
		})
	}
}

func TestPriceStrictlyIncreasing(t *testing.T) {
	standard, err := Price(domain.TierStandard)
	require.NoError(t, err)
	priority, err := Price(domain.TierPriority)
	require.NoError(t, err)
	express, err := Price(domain.TierExpress)
	require.NoError(t, err)

	assert.Greater(t, priority, standard)
	assert.Greater(t, express, priority)
}

func TestRank(t *testing.T) {
	assert.Equal(t, 0, Rank(domain.TierExpress))
	assert.Equal(t, 1, Rank(domain.TierPriority))
	assert.Equal(t, 2, Rank(domain.TierStandard))
	assert.Equal(t, 2, Rank("whatever"))
}

func TestTierLabel(t *testing.T) {
	assert.Equal(t, domain.LabelPriorityExpress, TierLabel(domain.TierExpress))
	assert.Equal(t, domain.LabelPriorityPriority, TierLabel(domain.TierPriority))
	assert.Empty(t, TierLabel(domain.TierStandard))
}
