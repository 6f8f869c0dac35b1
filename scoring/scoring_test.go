package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierFromScoreBounds(t *testing.T) {
	cases := []struct {
		score uint32
		tier  Tier
	}{
		{0, TierBronze},
		{299, TierBronze},
		{300, TierSilver},
		{499, TierSilver},
		{500, TierGold},
		{699, TierGold},
		{700, TierPlatinum},
		{849, TierPlatinum},
		{850, TierDiamond},
		{1000, TierDiamond},
	}
	for _, c := range cases {
		assert.Equal(t, c.tier, TierFromScore(c.score), "score=%d", c.score)
	}
}

func TestBandFromScoreBounds(t *testing.T) {
	cases := []struct {
		score uint32
		band  Band
	}{
		{0, BandCalm},
		{24, BandCalm},
		{25, BandNormal},
		{49, BandNormal},
		{50, BandVolatile},
		{74, BandVolatile},
		{75, BandTurbulent},
		{100, BandTurbulent},
	}
	for _, c := range cases {
		assert.Equal(t, c.band, BandFromScore(c.score), "score=%d", c.score)
	}
}

// TestScorePcsHappyPath checks a well-aged, high-activity,
// well-collateralized, no-liquidation wallet lands in the top tier.
func TestScorePcsHappyPath(t *testing.T) {
	b := ScorePcs(PcsFeatures{
		WalletAgeDays:    730,
		TransactionCount: 1000,
		SuccessRate:      0.95,
		LpContribution:   10_000,
		LiquidationCount: 0,
	})
	require.InDelta(t, 798, b.AgeScore, 2)
	require.InDelta(t, 740, b.ActivityScore, 2)
	require.InDelta(t, 1000, b.LiquidityScore, 1)
	require.InDelta(t, 1000, b.LiquidationScore, 1)
	assert.InDelta(t, 871, b.Composite, 2)
	assert.Equal(t, TierDiamond, b.Tier)
}

// TestScorePcsBoundary checks that when liquidity caps out at 1000 and
// everything else is zero, the composite is 450, which is still Silver
// (below the Gold lower bound of 500).
func TestScorePcsBoundary(t *testing.T) {
	b := ScorePcs(PcsFeatures{
		WalletAgeDays:    0,
		TransactionCount: 0,
		SuccessRate:      0,
		LpContribution:   1e8,
		LiquidationCount: 0,
	})
	assert.Equal(t, uint32(450), b.Composite)
	assert.Equal(t, TierSilver, b.Tier)
}

// TestScorePrsHappyPath checks a calm, deep, well-diversified pool with a
// reliable oracle scores very low risk.
func TestScorePrsHappyPath(t *testing.T) {
	b := ScorePrs(PrsMetrics{
		Volatility:       0.1,
		LiquidityDepth:   10_000_000,
		Concentration:    0.1,
		OracleDispersion: 0.02,
	})
	assert.Equal(t, uint32(3), b.Composite)
	assert.Equal(t, BandCalm, b.Band)
}

func TestScorePcsDeterministic(t *testing.T) {
	f := PcsFeatures{WalletAgeDays: 400, TransactionCount: 250, SuccessRate: 0.8, LpContribution: 500, LiquidationCount: 2}
	a := ScorePcs(f)
	b := ScorePcs(f)
	assert.Equal(t, a, b)
}

func TestScorePrsZeroDepthIsMaximallyRisky(t *testing.T) {
	b := ScorePrs(PrsMetrics{Volatility: 0, LiquidityDepth: 0, Concentration: 0, OracleDispersion: 0})
	assert.InDelta(t, 100, b.DepthScore, 0.001)
}

func TestScoreClampsToBounds(t *testing.T) {
	b := ScorePcs(PcsFeatures{WalletAgeDays: 1e9, TransactionCount: 1e9, SuccessRate: 1, LpContribution: 1e18, LiquidationCount: 0})
	assert.LessOrEqual(t, b.Composite, uint32(1000))

	p := ScorePrs(PrsMetrics{Volatility: 1, LiquidityDepth: 0, Concentration: 1, OracleDispersion: 1})
	assert.LessOrEqual(t, p.Composite, uint32(100))
}
