package issuer

import (
	"fmt"
	"sync"
)

// Authority is the one-time issuance capability for a token: it mints the
// fixed initial allotment at pool creation and the reserve fraction at
// graduation, then is revoked.
type Authority interface {
	// TotalSupply returns the total amount ever minted for the token.
	TotalSupply(token string) (uint64, error)

	// Mint issues new supply. Fails after Revoke.
	Mint(token string, amount uint64) error

	// Revoke burns the mint capability; no further issuance is possible.
	Revoke(token string) error
}

// InMemoryAuthority is the in-process implementation used by tests and
// single-node deployments.
type InMemoryAuthority struct {
	mu       sync.Mutex
	supplies map[string]uint64
	revoked  map[string]bool
}

func NewInMemoryAuthority() *InMemoryAuthority {
	return &InMemoryAuthority{
		supplies: make(map[string]uint64),
		revoked:  make(map[string]bool),
	}
}

func (a *InMemoryAuthority) TotalSupply(token string) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.supplies[token], nil
}

func (a *InMemoryAuthority) Mint(token string, amount uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.revoked[token] {
		return fmt.Errorf("mint authority for %s has been revoked", token)
	}
	a.supplies[token] += amount
	return nil
}

func (a *InMemoryAuthority) Revoke(token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.revoked[token] {
		return fmt.Errorf("mint authority for %s already revoked", token)
	}
	a.revoked[token] = true
	return nil
}

// Revoked reports whether the capability has been burned.
func (a *InMemoryAuthority) Revoked(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.revoked[token]
}
