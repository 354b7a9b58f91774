package ledger_test

import (
	"math"
	"testing"
	"time"

	"LaunchCore/internal/apperr"
	"LaunchCore/internal/ledger"
)

func newPool() *ledger.TokenPool {
	return ledger.NewTokenPool("tok-1", "creator-1", 9, 1_000_000, 1_000, 2_000, time.Unix(0, 0))
}

// ============================================================================
// Test: TokenPool
// ============================================================================

func TestNewTokenPool_FullAllotmentInCustody(t *testing.T) {
	p := newPool()

	if p.RealToken != 1_000_000 {
		t.Errorf("initial token custody: got %d, want 1_000_000", p.RealToken)
	}
	if p.RealBase != 0 {
		t.Errorf("initial base custody should be 0, got %d", p.RealBase)
	}
	if p.CirculatingSupply != 0 {
		t.Errorf("nothing is pre-sold, supply should be 0, got %d", p.CirculatingSupply)
	}
	if p.Graduated {
		t.Error("new pool must not be graduated")
	}
}

func TestTokenPool_CloneIsDeep(t *testing.T) {
	p := newPool()
	p.Holdings["alice"] = 500

	cp := p.Clone()
	cp.Holdings["alice"] = 900
	cp.RealBase = 42

	if p.Holdings["alice"] != 500 {
		t.Error("clone mutation leaked into original holdings")
	}
	if p.RealBase != 0 {
		t.Error("clone mutation leaked into original balances")
	}
}

func TestTokenPool_DigestDeterministic(t *testing.T) {
	p := newPool()
	p.Holdings["bob"] = 1
	p.Holdings["alice"] = 2

	d1 := p.DigestBytes()
	d2 := p.Clone().DigestBytes()

	if string(d1) != string(d2) {
		t.Error("digest not deterministic across clones")
	}

	p.RealBase++
	if string(p.DigestBytes()) == string(d1) {
		t.Error("digest did not change with state")
	}
}

// ============================================================================
// Test: Swap primitive
// ============================================================================

func TestSwap_RequiresInputSide(t *testing.T) {
	p := newPool()

	err := p.Swap(0, 0, 10, 0)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestSwap_BuyMovesBothSides(t *testing.T) {
	p := newPool()

	// buy: base in, tokens out
	if err := p.Swap(0, 100, 181, 0); err != nil {
		t.Fatalf("swap failed: %v", err)
	}

	if p.VirtualBase != 1_100 || p.VirtualToken != 1_819 {
		t.Errorf("virtual reserves: got (%d,%d), want (1100,1819)", p.VirtualBase, p.VirtualToken)
	}
	if p.RealBase != 100 {
		t.Errorf("real base: got %d, want 100", p.RealBase)
	}
	if p.RealToken != 1_000_000-181 {
		t.Errorf("real token: got %d, want %d", p.RealToken, 1_000_000-181)
	}
}

func TestSwap_LPInvariantViolationAborts(t *testing.T) {
	p := newPool()

	// Taking out more tokens than the curve math allows shrinks k.
	err := p.Swap(0, 100, 200, 0)
	if apperr.KindOf(err) != apperr.KindInvariant {
		t.Fatalf("got %v, want invariant error", err)
	}

	// No partial mutation observable.
	if p.VirtualBase != 1_000 || p.VirtualToken != 2_000 || p.RealBase != 0 {
		t.Error("failed swap mutated pool state")
	}
}

func TestSwap_RealCustodyShortfallAborts(t *testing.T) {
	p := newPool()
	p.RealToken = 100 // custody can no longer fund a 181-token payout

	err := p.Swap(0, 100, 181, 0)
	if apperr.KindOf(err) != apperr.KindInsufficiency {
		t.Fatalf("got %v, want insufficiency error", err)
	}
	if p.VirtualBase != 1_000 || p.VirtualToken != 2_000 {
		t.Error("failed swap mutated virtual reserves")
	}
}

func TestSwap_OversizedInputRejected(t *testing.T) {
	p := newPool()

	// An input that would wrap the staged virtual reserve is caller
	// garbage, not a composition bug: Validation, never Invariant.
	err := p.Swap(0, math.MaxUint64, 100, 0)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("base side: got %v, want validation error", err)
	}
	if apperr.IsFatal(err) {
		t.Error("oversized input must not be a fatal error")
	}

	err = p.Swap(math.MaxUint64, 0, 0, 10)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("token side: got %v, want validation error", err)
	}

	if p.VirtualBase != 1_000 || p.VirtualToken != 2_000 || p.RealBase != 0 {
		t.Error("rejected swap mutated pool state")
	}
}

func TestSwap_SellRoundTrip(t *testing.T) {
	p := newPool()

	if err := p.Swap(0, 100, 181, 0); err != nil {
		t.Fatalf("buy: %v", err)
	}
	// sell: tokens in, base out (99 per the curve from post-buy reserves)
	if err := p.Swap(181, 0, 0, 99); err != nil {
		t.Fatalf("sell: %v", err)
	}

	if p.RealBase != 1 {
		t.Errorf("truncation spread should leave 1 base unit, got %d", p.RealBase)
	}
	if p.RealToken != 1_000_000 {
		t.Errorf("all tokens back in custody, got %d", p.RealToken)
	}
}

// ============================================================================
// Test: PoolArena
// ============================================================================

func TestPoolArena_AddAndGet(t *testing.T) {
	a := ledger.NewPoolArena()
	p := newPool()

	if !a.Add(p) {
		t.Fatal("first add should succeed")
	}
	if a.Add(newPool()) {
		t.Error("duplicate address must be rejected")
	}
	if a.Get("tok-1") != p {
		t.Error("lookup returned wrong pool")
	}
	if a.Get("missing") != nil {
		t.Error("missing pool should be nil")
	}
	if a.Len() != 1 {
		t.Errorf("len: got %d, want 1", a.Len())
	}
}

func TestPoolArena_ReplaceRestoresSnapshot(t *testing.T) {
	a := ledger.NewPoolArena()
	p := newPool()
	a.Add(p)

	snap := p.Clone()
	p.RealBase = 999

	a.Replace(snap)
	if a.Get("tok-1").RealBase != 0 {
		t.Error("replace did not restore snapshot")
	}
}
