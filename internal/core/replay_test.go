package core

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"LaunchCore/internal/competition"
	"LaunchCore/internal/engine"
	"LaunchCore/internal/graduation"
	"LaunchCore/internal/issuer"
	"LaunchCore/internal/ledger"
	"LaunchCore/internal/op"
)

type countingTreasury struct {
	total uint64
}

func (t *countingTreasury) Credit(amount uint64) { t.total += amount }

func replayTestConfig() engine.Config {
	cfg := engine.DefaultConfig("admin")
	cfg.CreationFee = 10
	cfg.GraduationFee = 20
	cfg.GraduationThreshold = 250
	cfg.InitialVirtualBase = 1_000
	cfg.InitialVirtualToken = 2_000
	cfg.InitialTokenSupply = 2_000
	return cfg
}

func newReplayFixture() (*engine.TradingEngine, *competition.Engine, *countingTreasury) {
	treasury := &countingTreasury{}
	competitions := competition.NewEngine("admin", treasury, zerolog.Nop())
	trading := engine.NewTradingEngine(replayTestConfig(), ledger.NewPoolArena(), issuer.NewInMemoryAuthority(),
		treasury, competitions, graduation.NewHandoff(nullVenue{}, zerolog.Nop()), zerolog.Nop())
	return trading, competitions, treasury
}

// Processing a full lifecycle — launches, trades, a graduation, and a
// competition finalized, partially claimed, then drained — and replaying the
// resulting event log into fresh engines must converge on identical state.
func TestReplay_RoundTripMatchesLiveState(t *testing.T) {
	liveTrading, liveCompetitions, liveTreasury := newReplayFixture()

	persistChan := make(chan CoreOutput, 256)
	projectionChan := make(chan CoreOutput, 256)
	p := NewProcessor(0, liveTrading, liveCompetitions, persistChan, projectionChan, nil, nil)
	ctx := context.Background()

	endTime := opTime.Add(24 * time.Hour)
	afterEnd := opTime.Add(25 * time.Hour)

	operations := []op.Operation{
		&op.CreateCompetition{
			OpID: uuid.New(), CompetitionID: "comp-1", Caller: "admin",
			Name: "royale", StartTime: opTime, EndTime: endTime,
			ParticipationFee: 100, FirstBps: 5_000, SecondBps: 3_000, ThirdBps: 2_000,
			MaxTokensPerParticipant: 2, AllowMidRegistration: true, Timestamp: opTime,
		},
		&op.CreateToken{
			OpID: uuid.New(), Token: "tok-1", Creator: "alice",
			Name: "First", Symbol: "FST", Payment: 10, Timestamp: opTime,
		},
		&op.CreateToken{
			OpID: uuid.New(), Token: "tok-2", Creator: "bob",
			Name: "Second", Symbol: "SND", Payment: 10, Timestamp: opTime,
		},
		&op.CreateToken{
			OpID: uuid.New(), Token: "tok-3", Creator: "bob",
			Name: "Third", Symbol: "TRD", Payment: 10, Timestamp: opTime,
		},
		&op.CreateToken{
			OpID: uuid.New(), Token: "tok-4", Creator: "erin",
			Name: "Fourth", Symbol: "FRT", Payment: 10, Timestamp: opTime,
		},
		&op.RegisterParticipant{
			OpID: uuid.New(), CompetitionID: "comp-1", Participant: "alice",
			Payment: 100, Timestamp: opTime.Add(time.Minute),
		},
		&op.RegisterParticipant{
			OpID: uuid.New(), CompetitionID: "comp-1", Participant: "bob",
			Payment: 100, Timestamp: opTime.Add(time.Minute),
		},
		&op.RegisterParticipant{
			OpID: uuid.New(), CompetitionID: "comp-1", Participant: "erin",
			Payment: 100, Timestamp: opTime.Add(time.Minute),
		},
		&op.RegisterToken{
			OpID: uuid.New(), CompetitionID: "comp-1", Participant: "alice",
			Token: "tok-1", Timestamp: opTime.Add(2 * time.Minute),
		},
		&op.RegisterToken{
			OpID: uuid.New(), CompetitionID: "comp-1", Participant: "bob",
			Token: "tok-3", Timestamp: opTime.Add(2 * time.Minute),
		},
		&op.RegisterToken{
			OpID: uuid.New(), CompetitionID: "comp-1", Participant: "erin",
			Token: "tok-4", Timestamp: opTime.Add(2 * time.Minute),
		},
		// fee diverted to the prize pool, and the 300 base custody pushes
		// tok-1 over the graduation threshold
		&op.Buy{
			OpID: uuid.New(), Token: "tok-1", Trader: "carol",
			BaseIn: 300, Payment: 303, Timestamp: opTime.Add(3 * time.Minute),
		},
		// tok-2 is outside the competition: its fee stays with the treasury
		&op.Buy{
			OpID: uuid.New(), Token: "tok-2", Trader: "carol",
			BaseIn: 200, Payment: 202, Timestamp: opTime.Add(4 * time.Minute),
		},
		&op.Sell{
			OpID: uuid.New(), Token: "tok-2", Trader: "carol",
			TokenIn: 50, Timestamp: opTime.Add(5 * time.Minute),
		},
		&op.ContributePrizePool{
			OpID: uuid.New(), CompetitionID: "comp-1", Contributor: "sponsor",
			Amount: 1_000, Timestamp: opTime.Add(6 * time.Minute),
		},
		&op.FinalizeCompetition{
			OpID: uuid.New(), CompetitionID: "comp-1", Caller: "admin",
			First: "tok-1", Second: "tok-3", Third: "tok-4", Timestamp: afterEnd,
		},
		&op.ClaimPrize{
			OpID: uuid.New(), CompetitionID: "comp-1", Caller: "alice",
			Timestamp: afterEnd.Add(time.Minute),
		},
		&op.DrainCompetition{
			OpID: uuid.New(), CompetitionID: "comp-1", Caller: "admin",
			Timestamp: afterEnd.Add(2 * time.Minute),
		},
	}

	for i, operation := range operations {
		if err := p.ProcessOperation(ctx, operation); err != nil {
			t.Fatalf("operation %d (%s): %v", i, operation.OpType(), err)
		}
	}
	outputs := drainOutputs(persistChan)
	if len(outputs) < len(operations) {
		t.Fatalf("got %d events for %d operations", len(outputs), len(operations))
	}

	// Replay the captured log into fresh engines.
	replayTrading, replayCompetitions, replayTreasury := newReplayFixture()
	replayer := NewReplayer(replayTrading, replayCompetitions, replayTreasury, zerolog.Nop())

	for _, o := range outputs {
		if err := replayer.Apply(o.Envelope.EventType.String(), o.Envelope.Payload); err != nil {
			t.Fatalf("replay seq %d (%s): %v", o.Envelope.Sequence, o.Envelope.EventType, err)
		}
	}

	for _, token := range []string{"tok-1", "tok-2", "tok-3", "tok-4"} {
		live := liveTrading.Pools().Get(token)
		replayed := replayTrading.Pools().Get(token)
		if replayed == nil {
			t.Fatalf("pool %s missing after replay", token)
		}
		if !bytes.Equal(live.DigestBytes(), replayed.DigestBytes()) {
			t.Errorf("pool %s state diverged after replay:\nlive:     %+v\nreplayed: %+v", token, live, replayed)
		}
		if live.HoldingOf("carol") != replayed.HoldingOf("carol") {
			t.Errorf("pool %s holdings diverged: live=%d replayed=%d",
				token, live.HoldingOf("carol"), replayed.HoldingOf("carol"))
		}

		liveSupply, _ := liveTrading.Authority().TotalSupply(token)
		replaySupply, _ := replayTrading.Authority().TotalSupply(token)
		if liveSupply != replaySupply {
			t.Errorf("token %s supply diverged: live=%d replayed=%d", token, liveSupply, replaySupply)
		}
	}

	if pool := replayTrading.Pools().Get("tok-1"); !pool.Graduated || pool.VenuePoolID == "" {
		t.Error("graduation lost in replay")
	}

	liveComp := liveCompetitions.Get("comp-1")
	replayedComp := replayCompetitions.Get("comp-1")
	if replayedComp == nil {
		t.Fatal("competition missing after replay")
	}
	if !bytes.Equal(liveComp.DigestBytes(), replayedComp.DigestBytes()) {
		t.Errorf("competition state diverged after replay:\nlive:     %+v\nreplayed: %+v", liveComp, replayedComp)
	}
	if liveComp.PrizePool != replayedComp.PrizePool {
		t.Errorf("prize pool diverged: live=%d replayed=%d", liveComp.PrizePool, replayedComp.PrizePool)
	}

	// The drain after alice's claim settles the registry completely;
	// replay must land on the same claim accounting.
	lw, rw := liveComp.Winners, replayedComp.Winners
	if rw == nil {
		t.Fatal("winner registry missing after replay")
	}
	if lw.ClaimedCount != rw.ClaimedCount || lw.FullySettled != rw.FullySettled || lw.Unclaimed != rw.Unclaimed {
		t.Errorf("winner registry diverged: live claimed=%d settled=%v unclaimed=%d, replayed claimed=%d settled=%v unclaimed=%d",
			lw.ClaimedCount, lw.FullySettled, lw.Unclaimed, rw.ClaimedCount, rw.FullySettled, rw.Unclaimed)
	}
	if !rw.FullySettled || rw.ClaimedCount != 3 || rw.Unclaimed != 0 {
		t.Errorf("drained registry not settled after replay: claimed=%d settled=%v unclaimed=%d",
			rw.ClaimedCount, rw.FullySettled, rw.Unclaimed)
	}

	if liveTreasury.total != replayTreasury.total {
		t.Errorf("treasury diverged: live=%d replayed=%d", liveTreasury.total, replayTreasury.total)
	}
}

func TestReplay_UnknownEventIsSkipped(t *testing.T) {
	trading, competitions, treasury := newReplayFixture()
	replayer := NewReplayer(trading, competitions, treasury, zerolog.Nop())

	if err := replayer.Apply("SomethingFromTheFuture", []byte(`{}`)); err != nil {
		t.Fatalf("unknown event must be skipped, got: %v", err)
	}
}

func TestReplay_TradeForUnknownPoolFails(t *testing.T) {
	trading, competitions, treasury := newReplayFixture()
	replayer := NewReplayer(trading, competitions, treasury, zerolog.Nop())

	err := replayer.Apply("TradeExecuted", []byte(`{"token":"ghost","trader":"x","direction":0}`))
	if err == nil {
		t.Fatal("trade against a pool missing from the log must fail replay")
	}
}
