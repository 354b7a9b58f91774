package ledger

import (
	"math"

	"LaunchCore/internal/apperr"
	"LaunchCore/internal/curve"
)

// Swap is the single mutation primitive for buy and sell. It stages the
// virtual-reserve update, asserts the LP invariant (the product of virtual
// reserves must never decrease — a safety net independent of the per-trade
// math, catching composition bugs), and only then moves real balances.
// On any error the pool is untouched.
func (p *TokenPool) Swap(tokenIn, baseIn, tokenOut, baseOut uint64) error {
	const op = "ledger.Swap"

	if tokenIn == 0 && baseIn == 0 {
		return apperr.New(apperr.KindValidation, op, "swap requires a non-zero input side")
	}

	// Oversized inputs would wrap the staged reserves and trip the LP
	// check below with garbage values. Caller input, so Validation.
	if baseIn > math.MaxUint64-p.VirtualBase {
		return apperr.New(apperr.KindValidation, op,
			"base input %d overflows virtual reserve %d", baseIn, p.VirtualBase)
	}
	if tokenIn > math.MaxUint64-p.VirtualToken {
		return apperr.New(apperr.KindValidation, op,
			"token input %d overflows virtual reserve %d", tokenIn, p.VirtualToken)
	}

	// Stage virtual reserves: -out, +in on each side.
	if p.VirtualBase+baseIn < baseOut {
		return apperr.New(apperr.KindInsufficiency, op,
			"virtual base underflow: reserve=%d in=%d out=%d", p.VirtualBase, baseIn, baseOut)
	}
	if p.VirtualToken+tokenIn < tokenOut {
		return apperr.New(apperr.KindInsufficiency, op,
			"virtual token underflow: reserve=%d in=%d out=%d", p.VirtualToken, tokenIn, tokenOut)
	}
	newVirtualBase := p.VirtualBase + baseIn - baseOut
	newVirtualToken := p.VirtualToken + tokenIn - tokenOut

	if !curve.KNotDecreased(p.VirtualBase, p.VirtualToken, newVirtualBase, newVirtualToken) {
		return apperr.New(apperr.KindInvariant, op,
			"LP value decreased: (%d,%d) -> (%d,%d)",
			p.VirtualBase, p.VirtualToken, newVirtualBase, newVirtualToken)
	}

	// Real custody moves last, after the invariant holds.
	if baseOut > p.RealBase {
		return apperr.New(apperr.KindInsufficiency, op,
			"real base custody %d cannot fund payout %d", p.RealBase, baseOut)
	}
	if tokenOut > p.RealToken {
		return apperr.New(apperr.KindInsufficiency, op,
			"real token custody %d cannot fund payout %d", p.RealToken, tokenOut)
	}

	p.VirtualBase = newVirtualBase
	p.VirtualToken = newVirtualToken
	p.RealBase = p.RealBase + baseIn - baseOut
	p.RealToken = p.RealToken + tokenIn - tokenOut

	return nil
}
