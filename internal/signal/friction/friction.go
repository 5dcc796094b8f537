// Package friction implements the cost model: per-venue fee schedules
// plus fixed and size-proportional costs, producing a total package
// cost in cents stamped with the pack's version hash for
// auditability.
package friction

// Pack is the per-venue-pair friction schedule. VersionHash is stamped
// into every EdgeSignal so a signal can be traced back to the exact
// cost assumptions that produced it.
type Pack struct {
	VenueTakerFeePct  float64
	VenueMakerFeePct  float64
	VenueProfitFeePct float64
	GasCostUSD        float64
	BridgeCostUSD     float64
	OnrampFeePct      float64
	FXSpreadPct       float64
	VersionHash       string
}

// assumedSpreadCents is the spread the profit fee is applied against.
// Compute always uses it; neither a live spread nor the actual gross
// edge is consulted.
const assumedSpreadCents = 2.5

// Leg identifies which side of the package a cost applies to, for
// callers that want to report per-leg breakdowns.
type Leg struct {
	Pack          Pack
	BridgeApplies bool
}

// Cost is the breakdown of one computed package cost.
type Cost struct {
	TotalCents     float64
	TakerFeeCents  float64
	ProfitFeeCents float64
	FixedCentsUSD  float64 // gas + bridge, in cents
	SizeCostsCents float64 // onramp + fx, in cents
}

// Compute totals the package cost across both legs for a trade of the
// given notional (dollars):
//
//	total_cents = 100 * (sum(leg taker fee)
//	                    + sum(leg profit fee on assumed spread)
//	                    + 2*gas + bridge_if_applicable
//	                    + size*onramp + size*fx)
func Compute(legs [2]Leg, notionalUSD float64) Cost {
	var out Cost
	for _, leg := range legs {
		takerFee := notionalUSD * leg.Pack.VenueTakerFeePct
		out.TakerFeeCents += takerFee * 100

		profitFee := (assumedSpreadCents / 100) * notionalUSD * leg.Pack.VenueProfitFeePct
		out.ProfitFeeCents += profitFee * 100

		out.FixedCentsUSD += leg.Pack.GasCostUSD * 100
		if leg.BridgeApplies {
			out.FixedCentsUSD += leg.Pack.BridgeCostUSD * 100
		}

		out.SizeCostsCents += notionalUSD * leg.Pack.OnrampFeePct * 100
		out.SizeCostsCents += notionalUSD * leg.Pack.FXSpreadPct * 100
	}
	out.TotalCents = out.TakerFeeCents + out.ProfitFeeCents + out.FixedCentsUSD + out.SizeCostsCents
	return out
}
