package ledger

import (
	"encoding/binary"
	"sort"
	"time"
)

// TokenPool is the per-token reserve record: real balances are custodied
// assets, virtual reserves exist only for constant-product pricing.
type TokenPool struct {
	Address  string
	Creator  string
	Decimals uint8

	// Real custody — always funds whatever a seller could extract.
	RealBase  uint64
	RealToken uint64

	// Virtual reserves — pricing only, not backed 1:1.
	VirtualBase  uint64
	VirtualToken uint64

	// CirculatingSupply equals the sum of all net buys minus net sells.
	CirculatingSupply uint64

	// Graduated flips once, irreversibly; no buy/sell may execute after.
	Graduated   bool
	VenuePoolID string

	// Per-holder token balances backing the circulating supply.
	Holdings map[string]uint64

	CreatedAt time.Time
}

// NewTokenPool creates a pool with the full initial token allotment already
// in real custody (nothing is pre-sold at launch).
func NewTokenPool(address, creator string, decimals uint8, initialTokens, virtualBase, virtualToken uint64, createdAt time.Time) *TokenPool {
	return &TokenPool{
		Address:      address,
		Creator:      creator,
		Decimals:     decimals,
		RealToken:    initialTokens,
		VirtualBase:  virtualBase,
		VirtualToken: virtualToken,
		Holdings:     make(map[string]uint64),
		CreatedAt:    createdAt,
	}
}

// HoldingOf returns a holder's token balance.
func (p *TokenPool) HoldingOf(addr string) uint64 {
	return p.Holdings[addr]
}

// Clone deep-copies the pool. Operations snapshot before staging mutations
// and restore on failure, so no partial state is ever observable.
func (p *TokenPool) Clone() *TokenPool {
	cp := *p
	cp.Holdings = make(map[string]uint64, len(p.Holdings))
	for k, v := range p.Holdings {
		cp.Holdings[k] = v
	}
	return &cp
}

// DigestBytes returns canonical bytes of the pool state for hashing.
// Holder balances are folded in sorted order for determinism.
func (p *TokenPool) DigestBytes() []byte {
	buf := make([]byte, 0, 64+len(p.Address))

	buf = append(buf, byte(len(p.Address)))
	buf = append(buf, p.Address...)
	buf = appendUint64LE(buf, p.RealBase)
	buf = appendUint64LE(buf, p.RealToken)
	buf = appendUint64LE(buf, p.VirtualBase)
	buf = appendUint64LE(buf, p.VirtualToken)
	buf = appendUint64LE(buf, p.CirculatingSupply)
	if p.Graduated {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	holders := make([]string, 0, len(p.Holdings))
	for h := range p.Holdings {
		holders = append(holders, h)
	}
	sort.Strings(holders)
	for _, h := range holders {
		buf = append(buf, byte(len(h)))
		buf = append(buf, h...)
		buf = appendUint64LE(buf, p.Holdings[h])
	}

	return buf
}

func appendUint64LE(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// PoolArena holds every launched pool, addressed by token identifier.
// Single-writer: only the operation core mutates it, so no locking.
type PoolArena struct {
	pools map[string]*TokenPool
	order []string // creation order, stable iteration
}

func NewPoolArena() *PoolArena {
	return &PoolArena{
		pools: make(map[string]*TokenPool),
	}
}

// Add registers a pool. The address must not already be launched.
func (a *PoolArena) Add(p *TokenPool) bool {
	if _, exists := a.pools[p.Address]; exists {
		return false
	}
	a.pools[p.Address] = p
	a.order = append(a.order, p.Address)
	return true
}

// Get returns the pool for a token address, or nil.
func (a *PoolArena) Get(address string) *TokenPool {
	return a.pools[address]
}

// Replace swaps in a pool snapshot (restore path after a failed operation).
func (a *PoolArena) Replace(p *TokenPool) {
	if _, exists := a.pools[p.Address]; exists {
		a.pools[p.Address] = p
	}
}

// Len returns the number of launched pools.
func (a *PoolArena) Len() int {
	return len(a.pools)
}

// Addresses returns token addresses in creation order.
func (a *PoolArena) Addresses() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}
