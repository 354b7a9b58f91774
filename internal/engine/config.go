package engine

import (
	"LaunchCore/internal/apperr"
)

// totalBps is the basis-point denominator for fee and reserve fractions.
const totalBps = 10_000

// Config is the versioned platform configuration. Every privileged update
// must carry the successor version, so a stale admin client cannot clobber
// a newer config.
type Config struct {
	Version uint64
	Admin   string

	PlatformFeeBps uint32
	CreationFee    uint64
	GraduationFee  uint64

	// GraduationThreshold is the real base custody at which a pool hands
	// off to the external venue.
	GraduationThreshold uint64

	InitialVirtualBase  uint64
	InitialVirtualToken uint64
	InitialTokenSupply  uint64

	// ReserveTokenBps is the fraction of the initial supply freshly minted
	// for the venue pool at graduation.
	ReserveTokenBps uint32

	DefaultDecimals uint8
	MinTradeAmount  uint64

	MaxNameLen        int
	MaxSymbolLen      int
	MaxDescriptionLen int
	MaxURILen         int
}

// DefaultConfig returns the launch parameters used when the environment
// does not override them.
func DefaultConfig(admin string) Config {
	return Config{
		Version:             1,
		Admin:               admin,
		PlatformFeeBps:      100, // 1%
		CreationFee:         10_000,
		GraduationFee:       50_000,
		GraduationThreshold: 85_000_000,
		InitialVirtualBase:  30_000_000,
		InitialVirtualToken: 1_073_000_000,
		InitialTokenSupply:  1_000_000_000,
		ReserveTokenBps:     2_000, // 20%
		DefaultDecimals:     6,
		MinTradeAmount:      1,
		MaxNameLen:          32,
		MaxSymbolLen:        10,
		MaxDescriptionLen:   500,
		MaxURILen:           200,
	}
}

// Validate rejects configurations that would wedge the engine.
func (c *Config) Validate() error {
	const op = "engine.Config.Validate"

	switch {
	case c.Admin == "":
		return apperr.New(apperr.KindValidation, op, "admin identity is empty")
	case c.PlatformFeeBps > totalBps:
		return apperr.New(apperr.KindValidation, op, "platform fee %d bps exceeds %d", c.PlatformFeeBps, totalBps)
	case c.ReserveTokenBps > totalBps:
		return apperr.New(apperr.KindValidation, op, "reserve fraction %d bps exceeds %d", c.ReserveTokenBps, totalBps)
	case c.InitialVirtualBase == 0 || c.InitialVirtualToken == 0:
		return apperr.New(apperr.KindValidation, op, "initial virtual reserves must be non-zero")
	case c.InitialTokenSupply == 0:
		return apperr.New(apperr.KindValidation, op, "initial token supply must be non-zero")
	case c.GraduationThreshold <= c.GraduationFee:
		return apperr.New(apperr.KindValidation, op,
			"graduation threshold %d must exceed the graduation fee %d", c.GraduationThreshold, c.GraduationFee)
	case c.MinTradeAmount == 0:
		return apperr.New(apperr.KindValidation, op, "minimum trade amount must be positive")
	case c.MaxNameLen <= 0 || c.MaxSymbolLen <= 0 || c.MaxDescriptionLen <= 0 || c.MaxURILen <= 0:
		return apperr.New(apperr.KindValidation, op, "metadata length limits must be positive")
	}
	return nil
}

// bpsShare computes amount * bps / 10000, truncating. Split into quotient
// and remainder parts so the intermediate never overflows uint64.
func bpsShare(amount uint64, bps uint32) uint64 {
	q := amount / totalBps
	r := amount % totalBps
	return q*uint64(bps) + r*uint64(bps)/totalBps
}
