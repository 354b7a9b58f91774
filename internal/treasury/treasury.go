package treasury

import "sync/atomic"

// Account is the platform fee destination. The core only ever pays into it.
type Account struct {
	balance atomic.Uint64
}

func NewAccount() *Account {
	return &Account{}
}

// Credit adds platform/creation/graduation fees to the treasury.
func (a *Account) Credit(amount uint64) {
	a.balance.Add(amount)
}

// Balance is exposed for tests and metrics only; the core never reads it
// on a decision path.
func (a *Account) Balance() uint64 {
	return a.balance.Load()
}
