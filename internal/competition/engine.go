package competition

import (
	"time"

	"github.com/rs/zerolog"

	"LaunchCore/internal/apperr"
	"LaunchCore/internal/event"
)

// Treasury receives the platform's cut of participation fees and drained
// remainders.
type Treasury interface {
	Credit(amount uint64)
}

// Engine owns every competition's lifecycle. It is single-writer: the core
// loop is the only goroutine that calls mutating methods, so there is no
// locking here.
type Engine struct {
	platformAdmin string
	treasury      Treasury
	log           zerolog.Logger

	competitions map[string]*Competition
	// token -> competition ID; a token may only ever enter one competition
	tokenIndex map[string]string
}

func NewEngine(platformAdmin string, treasury Treasury, log zerolog.Logger) *Engine {
	return &Engine{
		platformAdmin: platformAdmin,
		treasury:      treasury,
		log:           log,
		competitions:  make(map[string]*Competition),
		tokenIndex:    make(map[string]string),
	}
}

// Get returns a competition by ID, or nil.
func (e *Engine) Get(id string) *Competition {
	return e.competitions[id]
}

// IDs returns every known competition ID, in map order.
func (e *Engine) IDs() []string {
	ids := make([]string, 0, len(e.competitions))
	for id := range e.competitions {
		ids = append(ids, id)
	}
	return ids
}

// CompetitionForToken returns the competition a token is registered in,
// or nil if the token never entered one.
func (e *Engine) CompetitionForToken(token string) *Competition {
	id, ok := e.tokenIndex[token]
	if !ok {
		return nil
	}
	return e.competitions[id]
}

// Install registers a rebuilt competition during event-log replay,
// re-indexing any tokens already registered in it.
func (e *Engine) Install(c *Competition) {
	e.competitions[c.ID] = c
	for _, tokens := range c.Participants {
		for _, t := range tokens {
			e.tokenIndex[t] = c.ID
		}
	}
}

// IndexToken binds a token to a competition in the global index
// (replay path).
func (e *Engine) IndexToken(token, competitionID string) {
	e.tokenIndex[token] = competitionID
}

// CreateParams carries everything needed to open a new competition.
type CreateParams struct {
	ID          string
	Caller      string
	Name        string
	Description string

	StartTime time.Time
	EndTime   time.Time

	ParticipationFee uint64
	PlatformFeeBps   uint32

	FirstBps  uint32
	SecondBps uint32
	ThirdBps  uint32

	MaxTokensPerParticipant int
	AllowMidRegistration    bool
}

// CreateCompetition opens a new round. Platform-admin only.
func (e *Engine) CreateCompetition(p CreateParams, now time.Time) (*event.CompetitionCreated, error) {
	const op = "competition.Create"

	if p.Caller != e.platformAdmin {
		return nil, apperr.New(apperr.KindAuthorization, op, "caller %s is not the platform admin", p.Caller)
	}
	if p.ID == "" {
		return nil, apperr.New(apperr.KindValidation, op, "competition ID is empty")
	}
	if _, exists := e.competitions[p.ID]; exists {
		return nil, apperr.New(apperr.KindState, op, "competition %s already exists", p.ID)
	}
	if !p.EndTime.After(p.StartTime) {
		return nil, apperr.New(apperr.KindValidation, op, "end time %s is not after start time %s", p.EndTime, p.StartTime)
	}
	if !validateSplits(p.FirstBps, p.SecondBps, p.ThirdBps) {
		return nil, apperr.New(apperr.KindValidation, op,
			"place splits %d/%d/%d do not sum to %d", p.FirstBps, p.SecondBps, p.ThirdBps, TotalBps)
	}
	if p.PlatformFeeBps > TotalBps {
		return nil, apperr.New(apperr.KindValidation, op, "platform fee %d bps exceeds %d", p.PlatformFeeBps, TotalBps)
	}
	if p.MaxTokensPerParticipant <= 0 {
		return nil, apperr.New(apperr.KindValidation, op, "max tokens per participant must be positive")
	}

	c := &Competition{
		ID:                      p.ID,
		Admin:                   p.Caller,
		Name:                    p.Name,
		Description:             p.Description,
		StartTime:               p.StartTime,
		EndTime:                 p.EndTime,
		ParticipationFee:        p.ParticipationFee,
		PlatformFeeBps:          p.PlatformFeeBps,
		FirstBps:                p.FirstBps,
		SecondBps:               p.SecondBps,
		ThirdBps:                p.ThirdBps,
		MaxTokensPerParticipant: p.MaxTokensPerParticipant,
		AllowMidRegistration:    p.AllowMidRegistration,
		Participants:            make(map[string][]string),
		TokenOwner:              make(map[string]string),
	}
	e.competitions[p.ID] = c

	e.log.Info().Str("competition", p.ID).Time("start", p.StartTime).Time("end", p.EndTime).
		Msg("competition created")

	return &event.CompetitionCreated{
		CompetitionID:           p.ID,
		Admin:                   p.Caller,
		Name:                    p.Name,
		Description:             p.Description,
		StartTime:               p.StartTime,
		EndTime:                 p.EndTime,
		ParticipationFee:        p.ParticipationFee,
		PlatformFeeBps:          p.PlatformFeeBps,
		FirstBps:                p.FirstBps,
		SecondBps:               p.SecondBps,
		ThirdBps:                p.ThirdBps,
		MaxTokensPerParticipant: p.MaxTokensPerParticipant,
		AllowMidRegistration:    p.AllowMidRegistration,
		Timestamp:               now,
	}, nil
}

// UpdateSplits changes the place splits of a non-terminal competition.
func (e *Engine) UpdateSplits(caller, id string, first, second, third uint32, now time.Time) (*event.CompetitionUpdated, error) {
	const op = "competition.UpdateSplits"

	c, err := e.adminCompetition(op, caller, id)
	if err != nil {
		return nil, err
	}
	if c.Terminal() {
		return nil, apperr.New(apperr.KindState, op, "competition %s is already settled", id)
	}
	if !validateSplits(first, second, third) {
		return nil, apperr.New(apperr.KindValidation, op,
			"place splits %d/%d/%d do not sum to %d", first, second, third, TotalBps)
	}

	c.FirstBps, c.SecondBps, c.ThirdBps = first, second, third

	return &event.CompetitionUpdated{
		CompetitionID: id,
		FirstBps:      first,
		SecondBps:     second,
		ThirdBps:      third,
		Timestamp:     now,
	}, nil
}

// RegisterParticipant takes the participation fee, routes the platform cut
// to the treasury and the remainder into the prize pool, and refunds any
// overpayment.
func (e *Engine) RegisterParticipant(id, participant string, payment uint64, now time.Time) (*event.ParticipantRegistered, error) {
	const op = "competition.RegisterParticipant"

	c, err := e.competition(op, id)
	if err != nil {
		return nil, err
	}
	if c.Terminal() {
		return nil, apperr.New(apperr.KindState, op, "competition %s is already settled", id)
	}
	if !now.Before(c.EndTime) {
		return nil, apperr.New(apperr.KindState, op, "competition %s has ended", id)
	}
	if !c.AllowMidRegistration && !now.Before(c.StartTime) {
		return nil, apperr.New(apperr.KindState, op, "competition %s does not allow registration after start", id)
	}
	if c.IsRegistered(participant) {
		return nil, apperr.New(apperr.KindState, op, "participant %s is already registered", participant)
	}
	if payment < c.ParticipationFee {
		return nil, apperr.New(apperr.KindInsufficiency, op,
			"payment %d below participation fee %d", payment, c.ParticipationFee)
	}

	platformCut := placePrize(c.ParticipationFee, c.PlatformFeeBps)
	toPool := c.ParticipationFee - platformCut
	refund := payment - c.ParticipationFee

	e.treasury.Credit(platformCut)
	c.PrizePool += toPool
	c.Participants[participant] = nil

	return &event.ParticipantRegistered{
		CompetitionID: id,
		Participant:   participant,
		FeePaid:       c.ParticipationFee,
		ToPrizePool:   toPool,
		ToTreasury:    platformCut,
		Refund:        refund,
		Timestamp:     now,
	}, nil
}

// RegisterToken binds a token to a participant's entry. A token may enter
// at most one competition, ever; the window is [start, end).
func (e *Engine) RegisterToken(id, participant, token string, now time.Time) (*event.TokenRegistered, error) {
	const op = "competition.RegisterToken"

	c, err := e.competition(op, id)
	if err != nil {
		return nil, err
	}
	if c.Terminal() {
		return nil, apperr.New(apperr.KindState, op, "competition %s is already settled", id)
	}
	if !c.IsRegistered(participant) {
		return nil, apperr.New(apperr.KindAuthorization, op, "participant %s is not registered", participant)
	}
	if now.Before(c.StartTime) || !now.Before(c.EndTime) {
		return nil, apperr.New(apperr.KindState, op, "competition %s is not accepting tokens at %s", id, now)
	}
	if _, taken := e.tokenIndex[token]; taken {
		return nil, apperr.New(apperr.KindState, op, "token %s is already registered in a competition", token)
	}
	if len(c.Participants[participant]) >= c.MaxTokensPerParticipant {
		return nil, apperr.New(apperr.KindState, op,
			"participant %s reached the cap of %d tokens", participant, c.MaxTokensPerParticipant)
	}

	c.Participants[participant] = append(c.Participants[participant], token)
	c.TokenOwner[token] = participant
	e.tokenIndex[token] = id

	return &event.TokenRegistered{
		CompetitionID: id,
		Participant:   participant,
		Token:         token,
		Timestamp:     now,
	}, nil
}

// ContributeTradeFee diverts a trade fee into the token's competition prize
// pool. Returns false when the token is not in an active competition, in
// which case the caller keeps the fee for the treasury.
func (e *Engine) ContributeTradeFee(token string, amount uint64, now time.Time) (*event.FeeRoutedToCompetition, bool) {
	c := e.CompetitionForToken(token)
	if c == nil || !c.ActiveAt(now) || amount == 0 {
		return nil, false
	}

	c.PrizePool += amount

	return &event.FeeRoutedToCompetition{
		CompetitionID: c.ID,
		Token:         token,
		Amount:        amount,
		Timestamp:     now,
	}, true
}

// ContributeToPrizePool adds an unconditional top-up (sponsorships).
func (e *Engine) ContributeToPrizePool(id string, amount uint64) error {
	const op = "competition.Contribute"

	c, err := e.competition(op, id)
	if err != nil {
		return err
	}
	if c.Terminal() {
		return apperr.New(apperr.KindState, op, "competition %s is already settled", id)
	}
	if amount == 0 {
		return apperr.New(apperr.KindValidation, op, "contribution amount is zero")
	}

	c.PrizePool += amount
	return nil
}

// Finalize settles a competition: admin names the three winning tokens in
// rank order, prizes are computed from the splits, and the winner registry
// opens for claims. Division truncates; any dust stays locked.
func (e *Engine) Finalize(caller, id string, winningTokens [3]string, now time.Time) (*event.CompetitionFinalized, error) {
	const op = "competition.Finalize"

	c, err := e.adminCompetition(op, caller, id)
	if err != nil {
		return nil, err
	}
	if c.Terminal() {
		return nil, apperr.New(apperr.KindState, op, "competition %s is already settled", id)
	}
	if now.Before(c.EndTime) {
		return nil, apperr.New(apperr.KindState, op, "competition %s has not ended", id)
	}

	owners := [3]string{}
	for i, token := range winningTokens {
		owner, ok := c.TokenOwner[token]
		if !ok {
			return nil, apperr.New(apperr.KindValidation, op, "token %s is not registered in competition %s", token, id)
		}
		owners[i] = owner
		for j := 0; j < i; j++ {
			if winningTokens[j] == token {
				return nil, apperr.New(apperr.KindValidation, op, "token %s named twice", token)
			}
			if owners[j] == owner {
				return nil, apperr.New(apperr.KindValidation, op, "participant %s owns more than one winning token", owner)
			}
		}
	}

	pool := c.PrizePool
	prizes := [3]uint64{
		placePrize(pool, c.FirstBps),
		placePrize(pool, c.SecondBps),
		placePrize(pool, c.ThirdBps),
	}

	registry := newWinnerRegistry(id)
	winners := make([]event.PlacedWinner, 0, 3)
	for i := range winningTokens {
		registry.add(owners[i], winningTokens[i], i+1, prizes[i])
		winners = append(winners, event.PlacedWinner{
			Rank:    i + 1,
			Address: owners[i],
			Token:   winningTokens[i],
			Prize:   prizes[i],
		})
	}

	c.Winners = registry
	c.PrizePool = 0
	c.Finalized = true

	e.log.Info().Str("competition", id).Uint64("pool", pool).Msg("competition finalized")

	return &event.CompetitionFinalized{
		CompetitionID: id,
		PrizePool:     pool,
		Winners:       winners,
		Timestamp:     now,
	}, nil
}

// ClaimPrize pays out one winner's placed prize. Each entry is claimable
// exactly once.
func (e *Engine) ClaimPrize(id, caller string, now time.Time) (*event.PrizeClaimed, error) {
	const op = "competition.ClaimPrize"

	c, err := e.competition(op, id)
	if err != nil {
		return nil, err
	}
	if !c.Finalized || c.Winners == nil {
		return nil, apperr.New(apperr.KindState, op, "competition %s is not finalized", id)
	}

	entry := c.Winners.Entry(caller)
	if entry == nil {
		return nil, apperr.New(apperr.KindAuthorization, op, "%s is not a winner of competition %s", caller, id)
	}
	if entry.Claimed {
		return nil, apperr.New(apperr.KindState, op, "%s already claimed their prize", caller)
	}

	entry.Claimed = true
	c.Winners.Unclaimed -= entry.Prize
	c.Winners.ClaimedCount++
	if c.Winners.ClaimedCount == len(c.Winners.Entries) {
		c.Winners.FullySettled = true
	}

	return &event.PrizeClaimed{
		CompetitionID: id,
		Winner:        caller,
		Rank:          entry.Rank,
		Amount:        entry.Prize,
		FullySettled:  c.Winners.FullySettled,
		Timestamp:     now,
	}, nil
}

// Cancel aborts a competition before settlement. One-way.
func (e *Engine) Cancel(caller, id, reason string, now time.Time) (*event.CompetitionCancelled, error) {
	const op = "competition.Cancel"

	c, err := e.adminCompetition(op, caller, id)
	if err != nil {
		return nil, err
	}
	if c.Terminal() {
		return nil, apperr.New(apperr.KindState, op, "competition %s is already settled", id)
	}

	c.Cancelled = true
	c.CancelReason = reason

	e.log.Warn().Str("competition", id).Str("reason", reason).Msg("competition cancelled")

	return &event.CompetitionCancelled{
		CompetitionID: id,
		Reason:        reason,
		Timestamp:     now,
	}, nil
}

// DrainRemainingFunds sweeps whatever is left in a terminal competition
// (the pool of a cancelled round, unclaimed prizes of a finalized one)
// into the treasury. After a drain no claim can succeed.
func (e *Engine) DrainRemainingFunds(caller, id string) (uint64, error) {
	const op = "competition.Drain"

	c, err := e.adminCompetition(op, caller, id)
	if err != nil {
		return 0, err
	}
	if !c.Terminal() {
		return 0, apperr.New(apperr.KindState, op, "competition %s is still live", id)
	}

	drained := c.PrizePool
	c.PrizePool = 0

	if c.Winners != nil {
		drained += c.Winners.Unclaimed
		c.Winners.Unclaimed = 0
		for _, entry := range c.Winners.Entries {
			if !entry.Claimed {
				entry.Claimed = true
				c.Winners.ClaimedCount++
			}
		}
		c.Winners.FullySettled = true
	}

	if drained == 0 {
		return 0, apperr.New(apperr.KindState, op, "competition %s holds no funds", id)
	}

	e.treasury.Credit(drained)
	e.log.Info().Str("competition", id).Uint64("drained", drained).Msg("remaining funds drained")

	return drained, nil
}

func (e *Engine) competition(op, id string) (*Competition, error) {
	c, ok := e.competitions[id]
	if !ok {
		return nil, apperr.New(apperr.KindValidation, op, "unknown competition %s", id)
	}
	return c, nil
}

func (e *Engine) adminCompetition(op, caller, id string) (*Competition, error) {
	c, err := e.competition(op, id)
	if err != nil {
		return nil, err
	}
	if caller != c.Admin {
		return nil, apperr.New(apperr.KindAuthorization, op, "caller %s is not the competition admin", caller)
	}
	return c, nil
}
