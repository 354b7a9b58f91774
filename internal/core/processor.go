package core

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"LaunchCore/internal/apperr"
	"LaunchCore/internal/competition"
	"LaunchCore/internal/engine"
	"LaunchCore/internal/event"
	"LaunchCore/internal/observability"
	"LaunchCore/internal/op"
)

// Processor is the single-threaded operation core: every durable state
// mutation flows through ProcessOperation on one goroutine. Timestamps are
// versioned inputs on the operations — the core never reads the wall clock
// for state decisions.
type Processor struct {
	sequence     int64
	hasher       *StateHasher
	trading      *engine.TradingEngine
	competitions *competition.Engine
	idempotency  *IdempotencyChecker
	metrics      *observability.Metrics

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

// CoreOutput carries one applied event to the persistence and projection
// workers.
type CoreOutput struct {
	Envelope *event.Envelope
	Event    event.Event
}

func NewProcessor(
	startSequence int64,
	trading *engine.TradingEngine,
	competitions *competition.Engine,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) *Processor {
	return &Processor{
		sequence:       startSequence,
		hasher:         NewStateHasher(),
		trading:        trading,
		competitions:   competitions,
		idempotency:    NewIdempotencyChecker(1_000_000, dbChecker),
		metrics:        metrics,
		persistChan:    persistChan,
		projectionChan: projectionChan,
	}
}

// ProcessOperation is the main processing pipeline: dedup, dispatch to the
// engines, envelope each resulting event with a sequence and a state hash,
// emit, then mark processed.
func (p *Processor) ProcessOperation(ctx context.Context, operation op.Operation) error {
	start := time.Now()
	opType := operation.OpType().String()
	idempotencyKey := operation.IdempotencyKey()

	// Step 1: Idempotency check (two-tier)
	if p.idempotency.IsDuplicate(opType, idempotencyKey) {
		if p.metrics != nil {
			p.metrics.OpsRejected.WithLabelValues(opType, "duplicate").Inc()
		}
		return nil
	}

	// Step 2: Dispatch. The engines stage and commit atomically, so a
	// returned error means no state changed.
	events, err := p.dispatch(ctx, operation)
	if err != nil {
		kind := apperr.KindOf(err)
		if apperr.IsFatal(err) {
			panic(fmt.Sprintf("FATAL: invariant violated applying %s: %v", opType, err))
		}
		if p.metrics != nil {
			p.metrics.OpsRejected.WithLabelValues(opType, kind.String()).Inc()
		}
		return err
	}

	// Step 3: Envelope and emit each event on the hash chain.
	for _, evt := range events {
		payload, err := json.Marshal(evt)
		if err != nil {
			panic(fmt.Sprintf("FATAL: unmarshalable event %T: %v", evt, err))
		}

		stateDigest := p.computeStateDigest(evt)
		prevHash := p.hasher.GetPrevHash()
		stateHash := p.hasher.ComputeHash(p.sequence, stateDigest)

		output := CoreOutput{
			Envelope: &event.Envelope{
				Sequence:       p.sequence,
				IdempotencyKey: idempotencyKey,
				EventType:      evt.EventType(),
				TokenID:        evt.TokenID(),
				Timestamp:      operation.OccurredAt(),
				Payload:        payload,
				StateHash:      stateHash,
				PrevHash:       prevHash,
			},
			Event: evt,
		}

		p.sequence++

		// Persistence: blocking send — the core stalls until the
		// persistence worker drains. No event is ever lost.
		if p.metrics != nil && len(p.persistChan) == cap(p.persistChan) {
			p.metrics.PersistBackpressure.Inc()
		}
		p.persistChan <- output

		// Projections: non-blocking send — drop on full. Projection
		// workers rebuild from the event log when they fall behind.
		select {
		case p.projectionChan <- output:
		default:
			if p.metrics != nil {
				p.metrics.ProjectionDrops.WithLabelValues("all").Inc()
			}
		}

		p.recordEventMetrics(evt)
	}

	// Step 4: Mark as processed (add to LRU)
	p.idempotency.MarkProcessed(opType, idempotencyKey)

	if p.metrics != nil {
		p.metrics.OpsApplied.WithLabelValues(opType).Inc()
		p.metrics.OpDuration.WithLabelValues(opType).Observe(time.Since(start).Seconds())
		p.metrics.CoreSequence.Set(float64(p.sequence))
		p.metrics.DedupLRUSize.Set(float64(p.idempotency.Size()))
	}

	return nil
}

func (p *Processor) dispatch(ctx context.Context, operation op.Operation) ([]event.Event, error) {
	switch o := operation.(type) {
	case *op.CreateToken:
		evt, err := p.trading.CreateToken(engine.CreateTokenParams{
			Token:       o.Token,
			Creator:     o.Creator,
			Name:        o.Name,
			Symbol:      o.Symbol,
			Description: o.Description,
			ImageURI:    o.ImageURI,
			Payment:     o.Payment,
		}, o.Timestamp)
		if err != nil {
			return nil, err
		}
		return []event.Event{evt}, nil

	case *op.Buy:
		return p.trading.Buy(ctx, o.Token, o.Trader, o.BaseIn, o.Payment, o.Timestamp)

	case *op.Sell:
		return p.trading.Sell(o.Token, o.Trader, o.TokenIn, o.Timestamp)

	case *op.UpdateConfig:
		if err := p.trading.UpdateConfig(o.Caller, o.Next); err != nil {
			return nil, err
		}
		return []event.Event{&event.ConfigUpdated{
			Version:        o.Next.Version,
			Admin:          o.Next.Admin,
			PlatformFeeBps: o.Next.PlatformFeeBps,
			CreationFee:    o.Next.CreationFee,
			GraduationFee:  o.Next.GraduationFee,
			Timestamp:      o.Timestamp,
		}}, nil

	case *op.CreateCompetition:
		evt, err := p.competitions.CreateCompetition(competition.CreateParams{
			ID:                      o.CompetitionID,
			Caller:                  o.Caller,
			Name:                    o.Name,
			Description:             o.Description,
			StartTime:               o.StartTime,
			EndTime:                 o.EndTime,
			ParticipationFee:        o.ParticipationFee,
			PlatformFeeBps:          o.PlatformFeeBps,
			FirstBps:                o.FirstBps,
			SecondBps:               o.SecondBps,
			ThirdBps:                o.ThirdBps,
			MaxTokensPerParticipant: o.MaxTokensPerParticipant,
			AllowMidRegistration:    o.AllowMidRegistration,
		}, o.Timestamp)
		if err != nil {
			return nil, err
		}
		return []event.Event{evt}, nil

	case *op.UpdateCompetitionSplits:
		evt, err := p.competitions.UpdateSplits(o.Caller, o.CompetitionID, o.FirstBps, o.SecondBps, o.ThirdBps, o.Timestamp)
		if err != nil {
			return nil, err
		}
		return []event.Event{evt}, nil

	case *op.RegisterParticipant:
		evt, err := p.competitions.RegisterParticipant(o.CompetitionID, o.Participant, o.Payment, o.Timestamp)
		if err != nil {
			return nil, err
		}
		return []event.Event{evt}, nil

	case *op.RegisterToken:
		evt, err := p.competitions.RegisterToken(o.CompetitionID, o.Participant, o.Token, o.Timestamp)
		if err != nil {
			return nil, err
		}
		return []event.Event{evt}, nil

	case *op.ContributePrizePool:
		if err := p.competitions.ContributeToPrizePool(o.CompetitionID, o.Amount); err != nil {
			return nil, err
		}
		return []event.Event{&event.PrizePoolContributed{
			CompetitionID: o.CompetitionID,
			Contributor:   o.Contributor,
			Amount:        o.Amount,
			Timestamp:     o.Timestamp,
		}}, nil

	case *op.FinalizeCompetition:
		evt, err := p.competitions.Finalize(o.Caller, o.CompetitionID, [3]string{o.First, o.Second, o.Third}, o.Timestamp)
		if err != nil {
			return nil, err
		}
		return []event.Event{evt}, nil

	case *op.ClaimPrize:
		evt, err := p.competitions.ClaimPrize(o.CompetitionID, o.Caller, o.Timestamp)
		if err != nil {
			return nil, err
		}
		return []event.Event{evt}, nil

	case *op.CancelCompetition:
		evt, err := p.competitions.Cancel(o.Caller, o.CompetitionID, o.Reason, o.Timestamp)
		if err != nil {
			return nil, err
		}
		return []event.Event{evt}, nil

	case *op.DrainCompetition:
		drained, err := p.competitions.DrainRemainingFunds(o.Caller, o.CompetitionID)
		if err != nil {
			return nil, err
		}
		return []event.Event{&event.CompetitionDrained{
			CompetitionID: o.CompetitionID,
			Amount:        drained,
			Timestamp:     o.Timestamp,
		}}, nil

	default:
		return nil, apperr.New(apperr.KindValidation, "core.dispatch", "unknown operation type %T", operation)
	}
}

// computeStateDigest returns canonical bytes of the state the event
// touched: the pool for token-scoped events, the competition for
// competition-scoped ones, the config version otherwise.
func (p *Processor) computeStateDigest(evt event.Event) []byte {
	if id := competitionIDOf(evt); id != "" {
		if c := p.competitions.Get(id); c != nil {
			return c.DigestBytes()
		}
	}
	if tokenID := evt.TokenID(); tokenID != nil {
		if pool := p.trading.Pools().Get(*tokenID); pool != nil {
			return pool.DigestBytes()
		}
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], p.trading.Config().Version)
	return buf[:]
}

// competitionIDOf extracts the competition context, if any.
func competitionIDOf(evt event.Event) string {
	switch e := evt.(type) {
	case *event.CompetitionCreated:
		return e.CompetitionID
	case *event.CompetitionUpdated:
		return e.CompetitionID
	case *event.CompetitionCancelled:
		return e.CompetitionID
	case *event.CompetitionFinalized:
		return e.CompetitionID
	case *event.ParticipantRegistered:
		return e.CompetitionID
	case *event.TokenRegistered:
		return e.CompetitionID
	case *event.PrizeClaimed:
		return e.CompetitionID
	case *event.FeeRoutedToCompetition:
		return e.CompetitionID
	case *event.PrizePoolContributed:
		return e.CompetitionID
	case *event.CompetitionDrained:
		return e.CompetitionID
	default:
		return ""
	}
}

func (p *Processor) recordEventMetrics(evt event.Event) {
	if p.metrics == nil {
		return
	}

	switch e := evt.(type) {
	case *event.TokenCreated:
		p.metrics.TokensLaunched.Inc()
	case *event.TradeExecuted:
		dir := e.Direction.String()
		p.metrics.TradesExecuted.WithLabelValues(dir).Inc()
		p.metrics.TradeVolume.WithLabelValues(dir).Add(float64(e.BaseAmount))
		if e.CompetitionID == "" && e.Fee > 0 {
			p.metrics.FeesRouted.WithLabelValues("treasury").Add(float64(e.Fee))
		}
	case *event.TokenGraduated:
		p.metrics.Graduations.Inc()
	case *event.FeeRoutedToCompetition:
		p.metrics.FeesRouted.WithLabelValues("competition").Add(float64(e.Amount))
		p.setPrizePoolGauge(e.CompetitionID)
	case *event.CompetitionCreated:
		p.metrics.CompetitionsLive.Inc()
	case *event.CompetitionFinalized:
		p.metrics.CompetitionsLive.Dec()
		p.setPrizePoolGauge(e.CompetitionID)
	case *event.CompetitionCancelled:
		p.metrics.CompetitionsLive.Dec()
	case *event.ParticipantRegistered:
		p.setPrizePoolGauge(e.CompetitionID)
	case *event.PrizePoolContributed:
		p.setPrizePoolGauge(e.CompetitionID)
	case *event.PrizeClaimed:
		p.metrics.PrizesClaimed.Inc()
	}
}

func (p *Processor) setPrizePoolGauge(competitionID string) {
	if c := p.competitions.Get(competitionID); c != nil {
		p.metrics.PrizePoolBalance.WithLabelValues(competitionID).Set(float64(c.PrizePool))
	}
}

// GetSequence returns the current global sequence number.
func (p *Processor) GetSequence() int64 {
	return p.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (p *Processor) GetStateHash() [32]byte {
	return p.hasher.GetPrevHash()
}

// Restore positions the sequence and hash chain after warm restart: the
// event log supplies the last persisted sequence and its state hash.
func (p *Processor) Restore(lastSequence int64, lastHash [32]byte) {
	p.sequence = lastSequence + 1
	p.hasher.SetPrevHash(lastHash)
}

// WarmLRU loads recent idempotency keys into the LRU cache.
func (p *Processor) WarmLRU(keys []string) {
	p.idempotency.lru.WarmFromKeys(keys)
}
