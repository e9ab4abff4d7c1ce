package fees

import (
	"math"

	"github.com/lovecigare/jupito-swap/internal/config"
	"github.com/lovecigare/jupito-swap/internal/types"
)

// Policy derives execution parameters from live market state. All methods are
// pure; the tier boundaries and tip constants come from config.
type Policy struct{ cfg config.FeesCfg }

func NewPolicy(cfg config.FeesCfg) *Policy { return &Policy{cfg: cfg} }

// ToleranceBps tiers the slippage tolerance by trade size. amount is in the
// smallest unit of the input asset, decimals converts it to whole units.
func (p *Policy) ToleranceBps(amount uint64, decimals uint8) int {
	units := float64(amount) / math.Pow10(int(decimals))
	switch {
	case units < p.cfg.SmallTradeUnits:
		return p.cfg.LowBps
	case units < p.cfg.LargeTradeUnits:
		return p.cfg.MediumBps
	default:
		return p.cfg.HighBps
	}
}

// PriorityIncentive scales the base tip by the quote's out/in ratio. A ratio
// below 1 inverts the scaling: the worse the effective rate, the more we pay
// for fast inclusion. The result is clamped to MaxTipLamports and is never
// zero.
func (p *Policy) PriorityIncentive(q types.Quote) uint64 {
	ratio := q.Ratio()
	if ratio <= 0 {
		return p.cfg.MinTipLamports
	}

	factor := ratio
	if ratio < 1 {
		factor = 1 / ratio
	}
	tip := uint64(math.Round(float64(p.cfg.BaseTipLamports) * factor))

	if tip > p.cfg.MaxTipLamports {
		tip = p.cfg.MaxTipLamports
	}
	if tip == 0 {
		tip = p.cfg.MinTipLamports
	}
	return tip
}

// Derive bundles both parameters for one attempt.
func (p *Policy) Derive(q types.Quote, amount uint64, decimals uint8) types.ExecutionParams {
	return types.ExecutionParams{
		ToleranceBps: p.ToleranceBps(amount, decimals),
		TipLamports:  p.PriorityIncentive(q),
	}
}
