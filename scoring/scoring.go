// Package scoring implements the pure, deterministic credit and pool risk
// scoring functions. Nothing in this package touches a clock, a file, or
// the network: identical inputs always produce identical outputs, on any
// host, because that output is what gets signed.
package scoring

import "math"

// Tier is the closed set of PCS tier labels.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
	TierDiamond  Tier = "Diamond"
)

// Band is the closed set of PRS band labels.
type Band string

const (
	BandCalm      Band = "Calm"
	BandNormal    Band = "Normal"
	BandVolatile  Band = "Volatile"
	BandTurbulent Band = "Turbulent"
)

// tierBounds are inclusive lower bounds, checked from the top down.
var tierBounds = []struct {
	min  uint32
	tier Tier
}{
	{850, TierDiamond},
	{700, TierPlatinum},
	{500, TierGold},
	{300, TierSilver},
	{0, TierBronze},
}

// TierFromScore maps a PCS score (0..1000) to its tier using inclusive
// lower bounds, checked from the top down.
func TierFromScore(score uint32) Tier {
	for _, b := range tierBounds {
		if score >= b.min {
			return b.tier
		}
	}
	return TierBronze
}

var bandBounds = []struct {
	min  uint32
	band Band
}{
	{75, BandTurbulent},
	{50, BandVolatile},
	{25, BandNormal},
	{0, BandCalm},
}

// BandFromScore maps a PRS score (0..100) to its band.
func BandFromScore(score uint32) Band {
	for _, b := range bandBounds {
		if score >= b.min {
			return b.band
		}
	}
	return BandCalm
}

// PcsFeatures are the raw inputs to the personal credit score. A missing
// field defaults to its Go zero value, which is also the spec-mandated
// default of 0 for every field here.
type PcsFeatures struct {
	WalletAgeDays     float64 // days, >= 0
	TransactionCount  float64 // >= 0
	SuccessRate       float64 // in [0,1]
	LpContribution    float64 // >= 0
	LiquidationCount  float64 // >= 0
}

// PcsBreakdown reports the four weighted components alongside the final
// composite, for callers that want to explain a score rather than just
// consume it.
type PcsBreakdown struct {
	AgeScore         float64
	ActivityScore    float64
	LiquidityScore   float64
	LiquidationScore float64
	Composite        uint32
	Tier             Tier
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ScorePcs computes the personal credit score and tier from wallet features.
// Every intermediate is ordinary IEEE-754 float64 arithmetic; the final
// round-half-to-even is the only step that produces the signed integer.
func ScorePcs(f PcsFeatures) PcsBreakdown {
	age := clamp(f.WalletAgeDays, 0, math.MaxFloat64)
	age_score := 1000 * (1 - math.Exp(-0.8*age/365))

	activity := 0.6*math.Min(1000, 200*math.Log10(f.TransactionCount+1)) +
		0.4*(1000*clamp(f.SuccessRate, 0, 1))

	var liquidity float64
	if f.LpContribution > 0 {
		liquidity = math.Min(1000, 250*math.Log10(f.LpContribution+1))
	}

	liq := f.LiquidationCount
	liquidation := clamp(1000-200*liq*math.Exp(-0.2*liq), 0, 1000)

	composite := 0.25*age_score + 0.30*activity + 0.25*liquidity + 0.20*liquidation
	composite = clamp(math.RoundToEven(composite), 0, 1000)
	score := uint32(composite)

	return PcsBreakdown{
		AgeScore:         age_score,
		ActivityScore:    activity,
		LiquidityScore:   liquidity,
		LiquidationScore: liquidation,
		Composite:        score,
		Tier:             TierFromScore(score),
	}
}

// PrsMetrics are the raw inputs to the pool risk score.
type PrsMetrics struct {
	Volatility       float64 // in [0,1]
	LiquidityDepth   float64 // >= 0, currency-neutral
	Concentration    float64 // in [0,1]
	OracleDispersion float64 // in [0,1]
}

// PrsBreakdown reports the four weighted components alongside the final
// composite.
type PrsBreakdown struct {
	VolScore    float64
	DepthScore  float64
	ConcScore   float64
	OracleScore float64
	Composite   uint32
	Band        Band
}

// ScorePrs computes the pool risk score and band from pool metrics.
func ScorePrs(m PrsMetrics) PrsBreakdown {
	vol := 100 / (1 + math.Exp(-10*(m.Volatility-0.5)))

	var depth float64
	if m.LiquidityDepth <= 0 {
		depth = 100
	} else {
		depth = math.Max(0, 100-15*math.Log10(m.LiquidityDepth+1))
	}

	conc := 100 * clamp(m.Concentration, 0, 1)
	oracle := 100 * m.OracleDispersion * m.OracleDispersion

	composite := 0.35*vol + 0.25*depth + 0.25*conc + 0.15*oracle
	composite = clamp(math.RoundToEven(composite), 0, 100)
	score := uint32(composite)

	return PrsBreakdown{
		VolScore:    vol,
		DepthScore:  depth,
		ConcScore:   conc,
		OracleScore: oracle,
		Composite:   score,
		Band:        BandFromScore(score),
	}
}
