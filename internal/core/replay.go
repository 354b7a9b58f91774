package core

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"LaunchCore/internal/competition"
	"LaunchCore/internal/engine"
	"LaunchCore/internal/event"
	"LaunchCore/internal/ledger"
)

// Replayer rebuilds in-memory state from the persisted event log. Events
// are applied as recorded state transitions — no business validation, no
// external calls, no re-emission. After replay the engines hold exactly
// the state the last persisted event left behind.
type Replayer struct {
	trading      *engine.TradingEngine
	competitions *competition.Engine
	treasury     engine.Treasury
	log          zerolog.Logger
}

func NewReplayer(trading *engine.TradingEngine, competitions *competition.Engine, treasury engine.Treasury, log zerolog.Logger) *Replayer {
	return &Replayer{
		trading:      trading,
		competitions: competitions,
		treasury:     treasury,
		log:          log,
	}
}

// Apply replays one persisted event into the in-memory state.
func (r *Replayer) Apply(eventType string, payload []byte) error {
	switch eventType {
	case event.TypeTokenCreated.String():
		var e event.TokenCreated
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode TokenCreated: %w", err)
		}
		if err := r.trading.Authority().Mint(e.Token, e.InitialMint); err != nil {
			return fmt.Errorf("replay mint %s: %w", e.Token, err)
		}
		pool := ledger.NewTokenPool(e.Token, e.Creator, e.Decimals, e.InitialMint, e.VirtualBase, e.VirtualToken, e.Timestamp)
		if !r.trading.Pools().Add(pool) {
			return fmt.Errorf("replay: pool %s already exists", e.Token)
		}
		r.treasury.Credit(e.CreationFee)
		return nil

	case event.TypeTradeExecuted.String():
		var e event.TradeExecuted
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode TradeExecuted: %w", err)
		}
		pool := r.trading.Pools().Get(e.Token)
		if pool == nil {
			return fmt.Errorf("replay: trade for unknown pool %s", e.Token)
		}

		if e.Direction == event.DirectionBuy {
			pool.Holdings[e.Trader] += e.TokenAmount
			pool.RealToken -= e.TokenAmount
		} else {
			pool.Holdings[e.Trader] -= e.TokenAmount
			if pool.Holdings[e.Trader] == 0 {
				delete(pool.Holdings, e.Trader)
			}
			pool.RealToken += e.TokenAmount
		}
		// Post-trade reserves on the event are authoritative.
		pool.VirtualBase = e.VirtualBase
		pool.VirtualToken = e.VirtualToken
		pool.RealBase = e.RealBase
		pool.CirculatingSupply = e.Supply

		// Competition-routed fees are applied by FeeRoutedToCompetition.
		if e.CompetitionID == "" && e.Fee > 0 {
			r.treasury.Credit(e.Fee)
		}
		return nil

	case event.TypeTokenGraduated.String():
		var e event.TokenGraduated
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode TokenGraduated: %w", err)
		}
		pool := r.trading.Pools().Get(e.Token)
		if pool == nil {
			return fmt.Errorf("replay: graduation for unknown pool %s", e.Token)
		}
		// The live path mints the full reserve fraction on top of the
		// existing supply before revoking; replay must leave the
		// authority's total supply identical.
		if err := r.trading.Authority().Mint(e.Token, e.TokensMoved); err != nil {
			return fmt.Errorf("replay reserve mint %s: %w", e.Token, err)
		}
		if err := r.trading.Authority().Revoke(e.Token); err != nil {
			return fmt.Errorf("replay revoke %s: %w", e.Token, err)
		}
		r.treasury.Credit(e.GraduationFee)
		pool.RealBase = 0
		pool.RealToken = 0
		pool.Graduated = true
		pool.VenuePoolID = e.VenuePoolID
		return nil

	case event.TypeCompetitionCreated.String():
		var e event.CompetitionCreated
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode CompetitionCreated: %w", err)
		}
		r.competitions.Install(&competition.Competition{
			ID:                      e.CompetitionID,
			Admin:                   e.Admin,
			Name:                    e.Name,
			Description:             e.Description,
			StartTime:               e.StartTime,
			EndTime:                 e.EndTime,
			ParticipationFee:        e.ParticipationFee,
			PlatformFeeBps:          e.PlatformFeeBps,
			FirstBps:                e.FirstBps,
			SecondBps:               e.SecondBps,
			ThirdBps:                e.ThirdBps,
			MaxTokensPerParticipant: e.MaxTokensPerParticipant,
			AllowMidRegistration:    e.AllowMidRegistration,
			Participants:            make(map[string][]string),
			TokenOwner:              make(map[string]string),
		})
		return nil

	case event.TypeCompetitionUpdated.String():
		var e event.CompetitionUpdated
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode CompetitionUpdated: %w", err)
		}
		c, err := r.replayCompetition(e.CompetitionID)
		if err != nil {
			return err
		}
		c.FirstBps, c.SecondBps, c.ThirdBps = e.FirstBps, e.SecondBps, e.ThirdBps
		return nil

	case event.TypeParticipantRegistered.String():
		var e event.ParticipantRegistered
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode ParticipantRegistered: %w", err)
		}
		c, err := r.replayCompetition(e.CompetitionID)
		if err != nil {
			return err
		}
		if _, exists := c.Participants[e.Participant]; !exists {
			c.Participants[e.Participant] = nil
		}
		c.PrizePool += e.ToPrizePool
		r.treasury.Credit(e.ToTreasury)
		return nil

	case event.TypeTokenRegistered.String():
		var e event.TokenRegistered
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode TokenRegistered: %w", err)
		}
		c, err := r.replayCompetition(e.CompetitionID)
		if err != nil {
			return err
		}
		c.Participants[e.Participant] = append(c.Participants[e.Participant], e.Token)
		c.TokenOwner[e.Token] = e.Participant
		r.competitions.IndexToken(e.Token, e.CompetitionID)
		return nil

	case event.TypePrizePoolContributed.String():
		var e event.PrizePoolContributed
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode PrizePoolContributed: %w", err)
		}
		c, err := r.replayCompetition(e.CompetitionID)
		if err != nil {
			return err
		}
		c.PrizePool += e.Amount
		return nil

	case event.TypeFeeRoutedToCompetition.String():
		var e event.FeeRoutedToCompetition
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode FeeRoutedToCompetition: %w", err)
		}
		c, err := r.replayCompetition(e.CompetitionID)
		if err != nil {
			return err
		}
		c.PrizePool += e.Amount
		return nil

	case event.TypeCompetitionFinalized.String():
		var e event.CompetitionFinalized
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode CompetitionFinalized: %w", err)
		}
		c, err := r.replayCompetition(e.CompetitionID)
		if err != nil {
			return err
		}
		registry := &competition.WinnerRegistry{
			CompetitionID: e.CompetitionID,
			Entries:       make(map[string]*competition.WinnerEntry, len(e.Winners)),
		}
		for _, w := range e.Winners {
			registry.Entries[w.Address] = &competition.WinnerEntry{
				Rank:  w.Rank,
				Token: w.Token,
				Prize: w.Prize,
			}
			registry.Unclaimed += w.Prize
		}
		c.Winners = registry
		c.PrizePool = 0
		c.Finalized = true
		return nil

	case event.TypePrizeClaimed.String():
		var e event.PrizeClaimed
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode PrizeClaimed: %w", err)
		}
		c, err := r.replayCompetition(e.CompetitionID)
		if err != nil {
			return err
		}
		if c.Winners == nil {
			return fmt.Errorf("replay: claim before finalization in %s", e.CompetitionID)
		}
		entry := c.Winners.Entry(e.Winner)
		if entry == nil {
			return fmt.Errorf("replay: claim by non-winner %s in %s", e.Winner, e.CompetitionID)
		}
		entry.Claimed = true
		c.Winners.Unclaimed -= e.Amount
		c.Winners.ClaimedCount++
		c.Winners.FullySettled = e.FullySettled
		return nil

	case event.TypeCompetitionCancelled.String():
		var e event.CompetitionCancelled
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode CompetitionCancelled: %w", err)
		}
		c, err := r.replayCompetition(e.CompetitionID)
		if err != nil {
			return err
		}
		c.Cancelled = true
		c.CancelReason = e.Reason
		return nil

	case event.TypeCompetitionDrained.String():
		var e event.CompetitionDrained
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode CompetitionDrained: %w", err)
		}
		c, err := r.replayCompetition(e.CompetitionID)
		if err != nil {
			return err
		}
		c.PrizePool = 0
		if c.Winners != nil {
			for _, entry := range c.Winners.Entries {
				if !entry.Claimed {
					entry.Claimed = true
					c.Winners.ClaimedCount++
				}
			}
			c.Winners.Unclaimed = 0
			c.Winners.FullySettled = true
		}
		r.treasury.Credit(e.Amount)
		return nil

	case event.TypeConfigUpdated.String():
		// The full configuration is restored from the registry store
		// before replay; the summary event carries nothing further.
		return nil

	default:
		r.log.Warn().Str("event_type", eventType).Msg("replay: unknown event type skipped")
		return nil
	}
}

func (r *Replayer) replayCompetition(id string) (*competition.Competition, error) {
	c := r.competitions.Get(id)
	if c == nil {
		return nil, fmt.Errorf("replay: unknown competition %s", id)
	}
	return c, nil
}
