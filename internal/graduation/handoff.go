package graduation

import (
	"context"
	"math"
	"math/big"

	"github.com/rs/zerolog"

	"LaunchCore/internal/apperr"
)

// PriceRatioScale is the fixed-point scale of the initial price ratio
// handed to the external venue (base units per token, scaled).
const PriceRatioScale = 1_000_000_000

// Venue is the external liquidity venue. The core treats CreatePool as an
// opaque call: it either succeeds and returns a pool identifier, or the
// whole graduation attempt fails.
type Venue interface {
	CreatePool(ctx context.Context, baseAmount, tokenAmount, initialPriceRatio uint64) (string, error)
}

// Result describes a completed handoff.
type Result struct {
	VenuePoolID       string
	BaseMoved         uint64
	TokensMoved       uint64
	InitialPriceRatio uint64
	GraduationFee     uint64
}

// Handoff moves a graduating pool's real balances to the external venue.
type Handoff struct {
	venue Venue
	log   zerolog.Logger
}

func NewHandoff(venue Venue, log zerolog.Logger) *Handoff {
	return &Handoff{venue: venue, log: log}
}

// InitialPriceRatio computes the venue's opening price from the base
// custody being moved and the freshly minted reserve tokens:
// baseAmount * PriceRatioScale / tokenAmount, truncating. The scaled
// product exceeds 64 bits for large custody, so it runs through big.Int.
func InitialPriceRatio(baseAmount, tokenAmount uint64) uint64 {
	if tokenAmount == 0 {
		return 0
	}

	num := new(big.Int).SetUint64(baseAmount)
	num.Mul(num, big.NewInt(PriceRatioScale))
	num.Quo(num, new(big.Int).SetUint64(tokenAmount))

	if !num.IsUint64() {
		return math.MaxUint64
	}
	return num.Uint64()
}

// Execute performs the venue handoff. baseAmount is the pool's real base
// custody net of the graduation fee; tokenAmount is the minted reserve
// fraction. Any venue error aborts the whole graduation.
func (h *Handoff) Execute(ctx context.Context, token string, baseAmount, tokenAmount, graduationFee uint64) (*Result, error) {
	const op = "graduation.Execute"

	if baseAmount == 0 || tokenAmount == 0 {
		return nil, apperr.New(apperr.KindValidation, op,
			"graduation requires non-zero balances: base=%d tokens=%d", baseAmount, tokenAmount)
	}

	ratio := InitialPriceRatio(baseAmount, tokenAmount)

	poolID, err := h.venue.CreatePool(ctx, baseAmount, tokenAmount, ratio)
	if err != nil {
		h.log.Error().Err(err).Str("token", token).Msg("venue pool creation failed")
		return nil, apperr.Wrap(apperr.KindState, op, err)
	}

	h.log.Info().
		Str("token", token).
		Str("venue_pool", poolID).
		Uint64("base_moved", baseAmount).
		Uint64("tokens_moved", tokenAmount).
		Uint64("initial_price_ratio", ratio).
		Msg("pool graduated to external venue")

	return &Result{
		VenuePoolID:       poolID,
		BaseMoved:         baseAmount,
		TokensMoved:       tokenAmount,
		InitialPriceRatio: ratio,
		GraduationFee:     graduationFee,
	}, nil
}
