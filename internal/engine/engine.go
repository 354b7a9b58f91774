package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"LaunchCore/internal/apperr"
	"LaunchCore/internal/curve"
	"LaunchCore/internal/event"
	"LaunchCore/internal/graduation"
	"LaunchCore/internal/issuer"
	"LaunchCore/internal/ledger"
)

// Treasury receives creation fees, graduation fees, and the platform's cut
// of trade fees. The engine only ever pays into it.
type Treasury interface {
	Credit(amount uint64)
}

// FeeRouter decides whether a trade fee belongs to a competition prize pool.
// When it declines, the engine keeps the fee for the treasury.
type FeeRouter interface {
	ContributeTradeFee(token string, amount uint64, now time.Time) (*event.FeeRoutedToCompetition, bool)
}

// TradingEngine orchestrates token launches, curve trades, and graduation.
// Single-writer: the core loop is the only caller of mutating methods.
type TradingEngine struct {
	cfg       Config
	pools     *ledger.PoolArena
	authority issuer.Authority
	treasury  Treasury
	fees      FeeRouter
	handoff   *graduation.Handoff
	log       zerolog.Logger
}

func NewTradingEngine(cfg Config, pools *ledger.PoolArena, authority issuer.Authority, treasury Treasury, fees FeeRouter, handoff *graduation.Handoff, log zerolog.Logger) *TradingEngine {
	return &TradingEngine{
		cfg:       cfg,
		pools:     pools,
		authority: authority,
		treasury:  treasury,
		fees:      fees,
		handoff:   handoff,
		log:       log,
	}
}

// Config returns a copy of the live platform configuration.
func (e *TradingEngine) Config() Config {
	return e.cfg
}

// Pools exposes the arena for queries and hashing.
func (e *TradingEngine) Pools() *ledger.PoolArena {
	return e.pools
}

// Authority exposes the issuance authority (replay path).
func (e *TradingEngine) Authority() issuer.Authority {
	return e.authority
}

// RestoreConfig installs a persisted configuration without version checks,
// used when rebuilding state on restart.
func (e *TradingEngine) RestoreConfig(cfg Config) {
	e.cfg = cfg
}

// UpdateConfig replaces the platform configuration. Admin-only, and the
// new config must carry exactly the successor version.
func (e *TradingEngine) UpdateConfig(caller string, next Config) error {
	const op = "engine.UpdateConfig"

	if caller != e.cfg.Admin {
		return apperr.New(apperr.KindAuthorization, op, "caller %s is not the platform admin", caller)
	}
	if next.Version != e.cfg.Version+1 {
		return apperr.New(apperr.KindState, op,
			"config version %d is stale: live version is %d", next.Version, e.cfg.Version)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	e.cfg = next
	e.log.Info().Uint64("version", next.Version).Msg("platform config updated")
	return nil
}

// CreateTokenParams carries a launch request.
type CreateTokenParams struct {
	Token       string
	Creator     string
	Name        string
	Symbol      string
	Description string
	ImageURI    string
	Payment     uint64
}

// CreateToken launches a new pool: mints the full initial allotment into
// real custody, seeds virtual reserves from config, and takes the flat
// creation fee. A token whose issuance authority was ever used cannot be
// launched again.
func (e *TradingEngine) CreateToken(p CreateTokenParams, now time.Time) (*event.TokenCreated, error) {
	const op = "engine.CreateToken"

	if p.Token == "" || p.Creator == "" {
		return nil, apperr.New(apperr.KindValidation, op, "token and creator must be non-empty")
	}
	if len(p.Name) == 0 || len(p.Name) > e.cfg.MaxNameLen {
		return nil, apperr.New(apperr.KindValidation, op, "name length %d outside (0, %d]", len(p.Name), e.cfg.MaxNameLen)
	}
	if len(p.Symbol) == 0 || len(p.Symbol) > e.cfg.MaxSymbolLen {
		return nil, apperr.New(apperr.KindValidation, op, "symbol length %d outside (0, %d]", len(p.Symbol), e.cfg.MaxSymbolLen)
	}
	if len(p.Description) > e.cfg.MaxDescriptionLen {
		return nil, apperr.New(apperr.KindValidation, op, "description length %d exceeds %d", len(p.Description), e.cfg.MaxDescriptionLen)
	}
	if len(p.ImageURI) > e.cfg.MaxURILen {
		return nil, apperr.New(apperr.KindValidation, op, "image URI length %d exceeds %d", len(p.ImageURI), e.cfg.MaxURILen)
	}
	if e.pools.Get(p.Token) != nil {
		return nil, apperr.New(apperr.KindState, op, "token %s already has a pool", p.Token)
	}

	supply, err := e.authority.TotalSupply(p.Token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindState, op, err)
	}
	if supply != 0 {
		return nil, apperr.New(apperr.KindState, op,
			"token %s has %d units already minted: issuance authority was used", p.Token, supply)
	}

	if p.Payment < e.cfg.CreationFee {
		return nil, apperr.New(apperr.KindInsufficiency, op,
			"payment %d below creation fee %d", p.Payment, e.cfg.CreationFee)
	}
	refund := p.Payment - e.cfg.CreationFee

	if err := e.authority.Mint(p.Token, e.cfg.InitialTokenSupply); err != nil {
		return nil, apperr.Wrap(apperr.KindState, op, err)
	}

	pool := ledger.NewTokenPool(p.Token, p.Creator, e.cfg.DefaultDecimals,
		e.cfg.InitialTokenSupply, e.cfg.InitialVirtualBase, e.cfg.InitialVirtualToken, now)
	e.pools.Add(pool)
	e.treasury.Credit(e.cfg.CreationFee)

	e.log.Info().Str("token", p.Token).Str("creator", p.Creator).Msg("token launched")

	return &event.TokenCreated{
		Token:        p.Token,
		Creator:      p.Creator,
		Name:         p.Name,
		Symbol:       p.Symbol,
		Decimals:     e.cfg.DefaultDecimals,
		InitialMint:  e.cfg.InitialTokenSupply,
		VirtualBase:  e.cfg.InitialVirtualBase,
		VirtualToken: e.cfg.InitialVirtualToken,
		CreationFee:  e.cfg.CreationFee,
		Refund:       refund,
		Timestamp:    now,
	}, nil
}

// Buy executes a curve purchase. The fee is charged on top of baseIn and
// routed either into the token's active competition or to the treasury.
// When real base custody crosses the graduation threshold, the handoff to
// the external venue runs inside the same operation; a venue failure rolls
// the entire buy back.
func (e *TradingEngine) Buy(ctx context.Context, token, trader string, baseIn, payment uint64, now time.Time) ([]event.Event, error) {
	const op = "engine.Buy"

	pool, err := e.tradablePool(op, token)
	if err != nil {
		return nil, err
	}
	if baseIn < e.cfg.MinTradeAmount {
		return nil, apperr.New(apperr.KindValidation, op,
			"base amount %d below minimum trade size %d", baseIn, e.cfg.MinTradeAmount)
	}

	tokensOut := curve.BuyTokensOut(pool.VirtualBase, pool.VirtualToken, baseIn)
	if tokensOut == 0 {
		return nil, apperr.New(apperr.KindValidation, op, "buy of %d base would mint zero tokens", baseIn)
	}

	fee := bpsShare(baseIn, e.cfg.PlatformFeeBps)
	if payment < baseIn || payment-baseIn < fee {
		return nil, apperr.New(apperr.KindInsufficiency, op,
			"payment %d below cost %d plus fee %d", payment, baseIn, fee)
	}

	priceBefore := curve.Price(pool.VirtualBase, pool.VirtualToken)
	snapshot := pool.Clone()

	if err := pool.Swap(0, baseIn, tokensOut, 0); err != nil {
		return nil, err
	}
	pool.Holdings[trader] += tokensOut
	pool.CirculatingSupply += tokensOut

	events := make([]event.Event, 0, 3)
	events = append(events, &event.TradeExecuted{
		TradeID:      uuid.New(),
		Token:        token,
		Trader:       trader,
		Direction:    event.DirectionBuy,
		BaseAmount:   baseIn,
		TokenAmount:  tokensOut,
		Fee:          fee,
		PriceBefore:  priceBefore,
		PriceAfter:   curve.Price(pool.VirtualBase, pool.VirtualToken),
		VirtualBase:  pool.VirtualBase,
		VirtualToken: pool.VirtualToken,
		RealBase:     pool.RealBase,
		Supply:       pool.CirculatingSupply,
		Timestamp:    now,
	})

	if !pool.Graduated && pool.RealBase >= e.cfg.GraduationThreshold {
		gradEvent, err := e.graduate(ctx, pool, now)
		if err != nil {
			e.pools.Replace(snapshot)
			return nil, err
		}
		events = append(events, gradEvent)
	}

	events = e.settleFee(events, pool, token, fee, now)
	return events, nil
}

// Sell executes a curve sale. The fee is deducted from the proceeds, so
// the trader receives baseOut minus the platform cut.
func (e *TradingEngine) Sell(token, trader string, tokenIn uint64, now time.Time) ([]event.Event, error) {
	const op = "engine.Sell"

	pool, err := e.tradablePool(op, token)
	if err != nil {
		return nil, err
	}
	if tokenIn == 0 {
		return nil, apperr.New(apperr.KindValidation, op, "token amount is zero")
	}
	if held := pool.HoldingOf(trader); held < tokenIn {
		return nil, apperr.New(apperr.KindInsufficiency, op,
			"trader %s holds %d tokens, cannot sell %d", trader, held, tokenIn)
	}

	baseOut := curve.SellBaseOut(pool.VirtualBase, pool.VirtualToken, tokenIn)
	if baseOut == 0 {
		return nil, apperr.New(apperr.KindValidation, op, "sale of %d tokens would return zero base", tokenIn)
	}
	fee := bpsShare(baseOut, e.cfg.PlatformFeeBps)

	priceBefore := curve.Price(pool.VirtualBase, pool.VirtualToken)

	if err := pool.Swap(tokenIn, 0, 0, baseOut); err != nil {
		return nil, err
	}
	if pool.Holdings[trader] == tokenIn {
		delete(pool.Holdings, trader)
	} else {
		pool.Holdings[trader] -= tokenIn
	}
	pool.CirculatingSupply -= tokenIn

	events := []event.Event{&event.TradeExecuted{
		TradeID:      uuid.New(),
		Token:        token,
		Trader:       trader,
		Direction:    event.DirectionSell,
		BaseAmount:   baseOut - fee,
		TokenAmount:  tokenIn,
		Fee:          fee,
		PriceBefore:  priceBefore,
		PriceAfter:   curve.Price(pool.VirtualBase, pool.VirtualToken),
		VirtualBase:  pool.VirtualBase,
		VirtualToken: pool.VirtualToken,
		RealBase:     pool.RealBase,
		Supply:       pool.CirculatingSupply,
		Timestamp:    now,
	}}

	events = e.settleFee(events, pool, token, fee, now)
	return events, nil
}

// graduate hands the pool's real base custody (net of the graduation fee)
// and a freshly minted reserve fraction to the external venue, then burns
// the issuance authority. The caller restores the pool snapshot on error.
func (e *TradingEngine) graduate(ctx context.Context, pool *ledger.TokenPool, now time.Time) (*event.TokenGraduated, error) {
	const op = "engine.graduate"

	reserveTokens := bpsShare(e.cfg.InitialTokenSupply, e.cfg.ReserveTokenBps)
	baseMoved := pool.RealBase - e.cfg.GraduationFee

	res, err := e.handoff.Execute(ctx, pool.Address, baseMoved, reserveTokens, e.cfg.GraduationFee)
	if err != nil {
		return nil, err
	}

	if err := e.authority.Mint(pool.Address, reserveTokens); err != nil {
		return nil, apperr.Wrap(apperr.KindState, op, err)
	}
	if err := e.authority.Revoke(pool.Address); err != nil {
		return nil, apperr.Wrap(apperr.KindState, op, err)
	}

	e.treasury.Credit(e.cfg.GraduationFee)

	pool.RealBase = 0
	pool.RealToken = 0
	pool.Graduated = true
	pool.VenuePoolID = res.VenuePoolID

	return &event.TokenGraduated{
		Token:             pool.Address,
		VenuePoolID:       res.VenuePoolID,
		BaseMoved:         res.BaseMoved,
		TokensMoved:       res.TokensMoved,
		InitialPriceRatio: res.InitialPriceRatio,
		GraduationFee:     res.GraduationFee,
		Timestamp:         now,
	}, nil
}

// settleFee routes a trade fee into the token's active competition, or to
// the treasury when none applies. The destination is decided at trade
// time: the first event in events must be the TradeExecuted record, whose
// CompetitionID is stamped on diversion.
func (e *TradingEngine) settleFee(events []event.Event, pool *ledger.TokenPool, token string, fee uint64, now time.Time) []event.Event {
	if fee == 0 {
		return events
	}
	if routed, ok := e.fees.ContributeTradeFee(token, fee, now); ok {
		events[0].(*event.TradeExecuted).CompetitionID = routed.CompetitionID
		return append(events, routed)
	}
	e.treasury.Credit(fee)
	return events
}

func (e *TradingEngine) tradablePool(op, token string) (*ledger.TokenPool, error) {
	pool := e.pools.Get(token)
	if pool == nil {
		return nil, apperr.New(apperr.KindValidation, op, "unknown token %s", token)
	}
	if pool.Graduated {
		return nil, apperr.New(apperr.KindState, op, "token %s has graduated: curve trading is closed", token)
	}
	return pool, nil
}
