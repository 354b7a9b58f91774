package curve_test

import (
	"math"
	"testing"

	"LaunchCore/internal/curve"
)

func TestPrice_ZeroTokenReserve(t *testing.T) {
	if got := curve.Price(1_000, 0); got != 0 {
		t.Errorf("price with empty token reserve: got %d, want 0", got)
	}
}

func TestPrice_Truncates(t *testing.T) {
	if got := curve.Price(1_000, 3); got != 333 {
		t.Errorf("got %d, want 333", got)
	}
}

func TestPrice_NonDecreasingInRatio(t *testing.T) {
	prev := uint64(0)
	for base := uint64(1_000); base <= 100_000; base += 1_000 {
		p := curve.Price(base, 2_000)
		if p < prev {
			t.Fatalf("price decreased: base=%d price=%d prev=%d", base, p, prev)
		}
		prev = p
	}
}

func TestBuyTokensOut_ReferenceScenario(t *testing.T) {
	// Pool (1000 base, 2000 token), buy with 100 base:
	// 2000*100/1100 = 181.81... -> 181
	got := curve.BuyTokensOut(1_000, 2_000, 100)
	if got != 181 {
		t.Errorf("got %d, want 181", got)
	}
}

func TestBuyTokensOut_ZeroInput(t *testing.T) {
	if got := curve.BuyTokensOut(1_000, 2_000, 0); got != 0 {
		t.Errorf("zero base-in should mint zero tokens, got %d", got)
	}
}

func TestSellBaseOut_RoundTripLosesValue(t *testing.T) {
	// Buy then sell the minted amount back from post-buy reserves:
	// the return must be <= the original input (truncation spread).
	const vb, vt, baseIn = 1_000, 2_000, 100

	minted := curve.BuyTokensOut(vb, vt, baseIn)
	back := curve.SellBaseOut(vb+baseIn, vt-minted, minted)

	if back > baseIn {
		t.Fatalf("round trip gained value: in=%d out=%d", baseIn, back)
	}
	// (1100*181)/(1819+181) = 99.55 -> 99
	if back != 99 {
		t.Errorf("sale return: got %d, want 99", back)
	}
}

func TestSellBaseOut_ZeroAmount(t *testing.T) {
	if got := curve.SellBaseOut(1_000, 2_000, 0); got != 0 {
		t.Errorf("zero token-in should return zero base, got %d", got)
	}
}

func TestSellBaseOut_EmptyBaseReserve(t *testing.T) {
	if got := curve.SellBaseOut(0, 2_000, 100); got != 0 {
		t.Errorf("empty base reserve should return 0, got %d", got)
	}
}

func TestBuyTokensOut_LargeReservesNoOverflow(t *testing.T) {
	// Products of two near-max reserves exceed 64 bits; the result must
	// still be exact, not wrapped.
	vb := uint64(1_000_000_000_000_000_000) // 1e18
	vt := uint64(1_000_000_000_000_000_000)
	baseIn := uint64(1_000_000_000_000) // 1e12

	got := curve.BuyTokensOut(vb, vt, baseIn)
	// vt*in/(vb+in) = 1e30/(1e18+1e12) ~= 999999999999 - epsilon
	if got == 0 || got > baseIn {
		t.Errorf("unexpected tokens out for large reserves: %d", got)
	}
}

func TestCostToMint_InvertsBuy(t *testing.T) {
	const vb, vt = 1_000, 2_000

	for _, want := range []uint64{1, 50, 181, 500, 1_999} {
		cost := curve.CostToMint(vb, vt, want)
		if cost == math.MaxUint64 {
			t.Fatalf("cost saturated for mintable amount %d", want)
		}
		minted := curve.BuyTokensOut(vb, vt, cost)
		if minted < want {
			t.Errorf("cost %d mints %d tokens, want >= %d", cost, minted, want)
		}
		if cost > 0 {
			// One unit less base must not reach the target.
			if prev := curve.BuyTokensOut(vb, vt, cost-1); prev >= want {
				t.Errorf("cost %d is not minimal: %d base already mints %d", cost, cost-1, prev)
			}
		}
	}
}

func TestCostToMint_Unmintable(t *testing.T) {
	if got := curve.CostToMint(1_000, 2_000, 2_000); got != math.MaxUint64 {
		t.Errorf("minting the full virtual reserve should saturate, got %d", got)
	}
	if got := curve.CostToMint(1_000, 2_000, 0); got != 0 {
		t.Errorf("zero tokens should cost 0, got %d", got)
	}
}

func TestKNotDecreased(t *testing.T) {
	cases := []struct {
		name                   string
		ob, ot, nb, nt         uint64
		want                   bool
	}{
		{"unchanged", 1_000, 2_000, 1_000, 2_000, true},
		{"buy keeps k", 1_000, 2_000, 1_100, 1_819, true},
		{"shrunk", 1_000, 2_000, 999, 2_000, false},
		{"grown", 1_000, 2_000, 1_001, 2_000, true},
		{"large reserves", 1 << 62, 1 << 62, 1<<62 + 1, 1 << 62, true},
	}

	for _, tc := range cases {
		if got := curve.KNotDecreased(tc.ob, tc.ot, tc.nb, tc.nt); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBuySellInvariantHolds(t *testing.T) {
	// Sweep a range of trades and verify the constant product never decreases.
	vb, vt := uint64(1_000_000), uint64(5_000_000)

	for in := uint64(1); in < 10_000; in += 97 {
		out := curve.BuyTokensOut(vb, vt, in)
		if !curve.KNotDecreased(vb, vt, vb+in, vt-out) {
			t.Fatalf("buy shrank k: in=%d out=%d", in, out)
		}
		vb += in
		vt -= out
	}

	for in := uint64(1); in < 10_000; in += 89 {
		out := curve.SellBaseOut(vb, vt, in)
		if !curve.KNotDecreased(vb, vt, vb-out, vt+in) {
			t.Fatalf("sell shrank k: in=%d out=%d", in, out)
		}
		vb -= out
		vt += in
	}
}
