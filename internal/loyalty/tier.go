package loyalty

import "github.com/shopspring/decimal"

// Tier is a loyalty level derived from lifetime points.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

type tierRule struct {
	tier       Tier
	threshold  int64
	multiplier decimal.Decimal
}

// tiers is ordered by ascending threshold.
var tiers = []tierRule{
	{TierBronze, 0, decimal.NewFromInt(1)},
	{TierSilver, 1_000, decimal.RequireFromString("1.25")},
	{TierGold, 5_000, decimal.RequireFromString("1.5")},
	{TierPlatinum, 20_000, decimal.RequireFromString("1.75")},
	{TierDiamond, 50_000, decimal.NewFromInt(2)},
}

var pointsPerAmount = decimal.NewFromInt(100)

// TierFor returns the tier reached with lifetime points.
func TierFor(lifetime int64) Tier {
	return ruleFor(lifetime).tier
}

// Multiplier returns the accrual multiplier of a tier.
func (t Tier) Multiplier() decimal.Decimal {
	for _, r := range tiers {
		if r.tier == t {
			return r.multiplier
		}
	}
	return tiers[0].multiplier
}

// PointsFor converts a spend into points: one base point per 100 of
// currency, scaled by the tier multiplier and rounded down.
func PointsFor(amount decimal.Decimal, tier Tier) int64 {
	if !amount.IsPositive() {
		return 0
	}
	base := amount.Div(pointsPerAmount).Floor()
	return base.Mul(tier.Multiplier()).Floor().IntPart()
}

// next returns the tier after the one reached with lifetime points and the
// points still missing, or ok=false at the top tier.
func next(lifetime int64) (Tier, int64, bool) {
	for _, r := range tiers {
		if r.threshold > lifetime {
			return r.tier, r.threshold - lifetime, true
		}
	}
	return "", 0, false
}

func ruleFor(lifetime int64) tierRule {
	current := tiers[0]
	for _, r := range tiers {
		if lifetime >= r.threshold {
			current = r
		}
	}
	return current
}
