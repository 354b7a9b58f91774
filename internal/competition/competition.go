package competition

import (
	"encoding/binary"
	"sort"
	"time"
)

// TotalBps is the basis-point denominator; the three place splits must sum
// to exactly this at creation and at every update.
const TotalBps = 10_000

// Competition is one battle-royale round. Finalized and Cancelled are
// mutually exclusive, both terminal, set once.
type Competition struct {
	ID          string
	Admin       string
	Name        string
	Description string

	StartTime time.Time
	EndTime   time.Time

	PrizePool        uint64
	ParticipationFee uint64
	PlatformFeeBps   uint32

	FirstBps  uint32
	SecondBps uint32
	ThirdBps  uint32

	MaxTokensPerParticipant int
	AllowMidRegistration    bool

	Finalized    bool
	Cancelled    bool
	CancelReason string

	// participant -> registered token addresses (bounded by the cap)
	Participants map[string][]string
	// token -> participant reverse index
	TokenOwner map[string]string

	Winners *WinnerRegistry
}

// Terminal reports whether the competition reached a terminal state.
func (c *Competition) Terminal() bool {
	return c.Finalized || c.Cancelled
}

// ActiveAt reports whether trades at t divert fees into the prize pool:
// the window check happens at trade time, not registration time.
func (c *Competition) ActiveAt(t time.Time) bool {
	if c.Terminal() {
		return false
	}
	return !t.Before(c.StartTime) && !t.After(c.EndTime)
}

// IsRegistered reports whether the participant has a paid entry.
func (c *Competition) IsRegistered(participant string) bool {
	_, ok := c.Participants[participant]
	return ok
}

// DigestBytes returns canonical bytes of the competition state for hashing.
func (c *Competition) DigestBytes() []byte {
	buf := make([]byte, 0, 64+len(c.ID))

	buf = append(buf, byte(len(c.ID)))
	buf = append(buf, c.ID...)
	buf = appendUint64LE(buf, c.PrizePool)

	var flags byte
	if c.Finalized {
		flags |= 1
	}
	if c.Cancelled {
		flags |= 2
	}
	buf = append(buf, flags)

	participants := make([]string, 0, len(c.Participants))
	for p := range c.Participants {
		participants = append(participants, p)
	}
	sort.Strings(participants)
	for _, p := range participants {
		buf = append(buf, byte(len(p)))
		buf = append(buf, p...)
		buf = append(buf, byte(len(c.Participants[p])))
	}

	if c.Winners != nil {
		buf = appendUint64LE(buf, c.Winners.Unclaimed)
		buf = append(buf, byte(c.Winners.ClaimedCount))
	}

	return buf
}

func appendUint64LE(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// placePrize computes one place's share: pool * bps / TotalBps, truncating.
// Split into quotient and remainder parts so the intermediate never
// overflows uint64.
func placePrize(pool uint64, bps uint32) uint64 {
	q := pool / TotalBps
	r := pool % TotalBps
	return q*uint64(bps) + r*uint64(bps)/TotalBps
}

// validateSplits enforces the exact-sum rule.
func validateSplits(first, second, third uint32) bool {
	return first+second+third == TotalBps
}
