package core

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"LaunchCore/internal/apperr"
	"LaunchCore/internal/competition"
	"LaunchCore/internal/engine"
	"LaunchCore/internal/event"
	"LaunchCore/internal/graduation"
	"LaunchCore/internal/issuer"
	"LaunchCore/internal/ledger"
	"LaunchCore/internal/op"
)

var opTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type nullTreasury struct{}

func (nullTreasury) Credit(uint64) {}

type nullVenue struct{}

func (nullVenue) CreatePool(context.Context, uint64, uint64, uint64) (string, error) {
	return "venue-pool", nil
}

func newTestProcessor(t *testing.T) (*Processor, chan CoreOutput) {
	t.Helper()

	cfg := engine.DefaultConfig("admin")
	cfg.CreationFee = 10
	cfg.InitialVirtualBase = 1_000
	cfg.InitialVirtualToken = 2_000
	cfg.InitialTokenSupply = 2_000

	treasury := nullTreasury{}
	competitions := competition.NewEngine("admin", treasury, zerolog.Nop())
	trading := engine.NewTradingEngine(cfg, ledger.NewPoolArena(), issuer.NewInMemoryAuthority(),
		treasury, competitions, graduation.NewHandoff(nullVenue{}, zerolog.Nop()), zerolog.Nop())

	persistChan := make(chan CoreOutput, 64)
	projectionChan := make(chan CoreOutput, 64)

	return NewProcessor(0, trading, competitions, persistChan, projectionChan, nil, nil), persistChan
}

func drainOutputs(ch chan CoreOutput) []CoreOutput {
	out := make([]CoreOutput, 0, len(ch))
	for {
		select {
		case o := <-ch:
			out = append(out, o)
		default:
			return out
		}
	}
}

func TestProcessOperation_SequenceAndHashChain(t *testing.T) {
	p, persistChan := newTestProcessor(t)
	ctx := context.Background()

	create := &op.CreateToken{
		OpID: uuid.New(), Token: "tok-1", Creator: "creator",
		Name: "Test", Symbol: "TST", Payment: 10, Timestamp: opTime,
	}
	if err := p.ProcessOperation(ctx, create); err != nil {
		t.Fatalf("create: %v", err)
	}

	buy := &op.Buy{
		OpID: uuid.New(), Token: "tok-1", Trader: "alice",
		BaseIn: 100, Payment: 101, Timestamp: opTime.Add(time.Minute),
	}
	if err := p.ProcessOperation(ctx, buy); err != nil {
		t.Fatalf("buy: %v", err)
	}

	outputs := drainOutputs(persistChan)
	if len(outputs) != 2 {
		t.Fatalf("got %d outputs, want 2", len(outputs))
	}

	first, second := outputs[0].Envelope, outputs[1].Envelope
	if first.Sequence != 0 || second.Sequence != 1 {
		t.Errorf("sequences = %d, %d", first.Sequence, second.Sequence)
	}
	if first.EventType != event.TypeTokenCreated || second.EventType != event.TypeTradeExecuted {
		t.Errorf("event types = %v, %v", first.EventType, second.EventType)
	}
	if second.PrevHash != first.StateHash {
		t.Error("hash chain broken between consecutive envelopes")
	}
	if len(second.Payload) == 0 {
		t.Error("payload not marshalled")
	}
	if p.GetSequence() != 2 {
		t.Errorf("core sequence = %d, want 2", p.GetSequence())
	}
}

func TestProcessOperation_DuplicateIsSkipped(t *testing.T) {
	p, persistChan := newTestProcessor(t)
	ctx := context.Background()

	create := &op.CreateToken{
		OpID: uuid.New(), Token: "tok-1", Creator: "creator",
		Name: "Test", Symbol: "TST", Payment: 10, Timestamp: opTime,
	}
	if err := p.ProcessOperation(ctx, create); err != nil {
		t.Fatalf("create: %v", err)
	}
	// identical resubmission: same OpID, must be a silent no-op
	if err := p.ProcessOperation(ctx, create); err != nil {
		t.Fatalf("duplicate: %v", err)
	}

	if got := len(drainOutputs(persistChan)); got != 1 {
		t.Errorf("got %d outputs, want 1 (duplicate must not emit)", got)
	}
	if p.GetSequence() != 1 {
		t.Errorf("core sequence = %d, want 1", p.GetSequence())
	}
}

func TestProcessOperation_RejectionEmitsNothing(t *testing.T) {
	p, persistChan := newTestProcessor(t)
	ctx := context.Background()

	buy := &op.Buy{
		OpID: uuid.New(), Token: "tok-missing", Trader: "alice",
		BaseIn: 100, Payment: 101, Timestamp: opTime,
	}
	err := p.ProcessOperation(ctx, buy)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("got %v, want validation error", err)
	}

	if got := len(drainOutputs(persistChan)); got != 0 {
		t.Errorf("rejected operation emitted %d outputs", got)
	}
	if p.GetSequence() != 0 {
		t.Errorf("sequence advanced on rejection: %d", p.GetSequence())
	}

	// a rejected OpID is not marked processed: a corrected resubmission
	// with the same key must succeed
	create := &op.CreateToken{
		OpID: buy.OpID, Token: "tok-missing", Creator: "creator",
		Name: "Test", Symbol: "TST", Payment: 10, Timestamp: opTime,
	}
	if err := p.ProcessOperation(ctx, create); err != nil {
		t.Fatalf("resubmission after rejection: %v", err)
	}
}

func TestProcessOperation_CompetitionLifecycle(t *testing.T) {
	p, persistChan := newTestProcessor(t)
	ctx := context.Background()

	createComp := &op.CreateCompetition{
		OpID: uuid.New(), CompetitionID: "comp-1", Caller: "admin",
		Name: "royale", StartTime: opTime, EndTime: opTime.Add(time.Hour),
		ParticipationFee: 100, FirstBps: 5_000, SecondBps: 3_000, ThirdBps: 2_000,
		MaxTokensPerParticipant: 1, AllowMidRegistration: true, Timestamp: opTime,
	}
	if err := p.ProcessOperation(ctx, createComp); err != nil {
		t.Fatalf("create competition: %v", err)
	}

	reg := &op.RegisterParticipant{
		OpID: uuid.New(), CompetitionID: "comp-1", Participant: "alice",
		Payment: 100, Timestamp: opTime.Add(time.Minute),
	}
	if err := p.ProcessOperation(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	contribute := &op.ContributePrizePool{
		OpID: uuid.New(), CompetitionID: "comp-1", Contributor: "sponsor",
		Amount: 500, Timestamp: opTime.Add(2 * time.Minute),
	}
	if err := p.ProcessOperation(ctx, contribute); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	outputs := drainOutputs(persistChan)
	if len(outputs) != 3 {
		t.Fatalf("got %d outputs, want 3", len(outputs))
	}
	want := []event.Type{event.TypeCompetitionCreated, event.TypeParticipantRegistered, event.TypePrizePoolContributed}
	for i, o := range outputs {
		if o.Envelope.EventType != want[i] {
			t.Errorf("output %d: type %v, want %v", i, o.Envelope.EventType, want[i])
		}
	}
	for i := 1; i < len(outputs); i++ {
		if outputs[i].Envelope.PrevHash != outputs[i-1].Envelope.StateHash {
			t.Errorf("hash chain broken at output %d", i)
		}
	}
}

func TestRestore(t *testing.T) {
	p, _ := newTestProcessor(t)

	var hash [32]byte
	hash[0] = 0xAB

	p.Restore(41, hash)
	if p.GetSequence() != 42 {
		t.Errorf("sequence = %d, want 42", p.GetSequence())
	}
	if p.GetStateHash() != hash {
		t.Error("hash chain tip not restored")
	}
}
