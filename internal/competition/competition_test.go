package competition_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"LaunchCore/internal/apperr"
	"LaunchCore/internal/competition"
)

const admin = "platform-admin"

type recordingTreasury struct {
	balance uint64
}

func (t *recordingTreasury) Credit(amount uint64) { t.balance += amount }

var baseTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func defaultParams() competition.CreateParams {
	return competition.CreateParams{
		ID:                      "comp-1",
		Caller:                  admin,
		Name:                    "launch royale",
		StartTime:               baseTime,
		EndTime:                 baseTime.Add(72 * time.Hour),
		ParticipationFee:        1_000,
		PlatformFeeBps:          1_000, // 10% of each entry fee
		FirstBps:                5_000,
		SecondBps:               3_000,
		ThirdBps:                2_000,
		MaxTokensPerParticipant: 2,
		AllowMidRegistration:    true,
	}
}

func newTestEngine(t *testing.T) (*competition.Engine, *recordingTreasury) {
	t.Helper()
	treasury := &recordingTreasury{}
	eng := competition.NewEngine(admin, treasury, zerolog.Nop())
	if _, err := eng.CreateCompetition(defaultParams(), baseTime); err != nil {
		t.Fatalf("create competition: %v", err)
	}
	return eng, treasury
}

// register a participant and one token; returns the token address.
func enter(t *testing.T, eng *competition.Engine, participant, token string) {
	t.Helper()
	if _, err := eng.RegisterParticipant("comp-1", participant, 1_000, baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("register %s: %v", participant, err)
	}
	if _, err := eng.RegisterToken("comp-1", participant, token, baseTime.Add(2*time.Hour)); err != nil {
		t.Fatalf("register token %s: %v", token, err)
	}
}

func TestCreateCompetition_Validation(t *testing.T) {
	eng := competition.NewEngine(admin, &recordingTreasury{}, zerolog.Nop())

	p := defaultParams()
	p.Caller = "mallory"
	if _, err := eng.CreateCompetition(p, baseTime); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Errorf("non-admin: got %v, want authorization error", err)
	}

	p = defaultParams()
	p.FirstBps = 6_000 // 6000+3000+2000 = 11000
	if _, err := eng.CreateCompetition(p, baseTime); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("bad splits: got %v, want validation error", err)
	}

	p = defaultParams()
	p.EndTime = p.StartTime
	if _, err := eng.CreateCompetition(p, baseTime); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("end not after start: got %v, want validation error", err)
	}

	if _, err := eng.CreateCompetition(defaultParams(), baseTime); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
	if _, err := eng.CreateCompetition(defaultParams(), baseTime); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("duplicate ID: got %v, want state error", err)
	}
}

func TestRegisterParticipant_FeeSplitAndRefund(t *testing.T) {
	eng, treasury := newTestEngine(t)

	ev, err := eng.RegisterParticipant("comp-1", "alice", 1_250, baseTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// fee 1000, platform cut 10% = 100, pool gets 900, refund 250
	if ev.ToTreasury != 100 || ev.ToPrizePool != 900 || ev.Refund != 250 {
		t.Errorf("fee split: treasury=%d pool=%d refund=%d", ev.ToTreasury, ev.ToPrizePool, ev.Refund)
	}
	if treasury.balance != 100 {
		t.Errorf("treasury balance = %d, want 100", treasury.balance)
	}
	if got := eng.Get("comp-1").PrizePool; got != 900 {
		t.Errorf("prize pool = %d, want 900", got)
	}
}

func TestRegisterParticipant_Rejections(t *testing.T) {
	eng, _ := newTestEngine(t)

	if _, err := eng.RegisterParticipant("comp-1", "alice", 999, baseTime.Add(time.Hour)); apperr.KindOf(err) != apperr.KindInsufficiency {
		t.Errorf("underpayment: got %v, want insufficiency error", err)
	}

	if _, err := eng.RegisterParticipant("comp-1", "alice", 1_000, baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := eng.RegisterParticipant("comp-1", "alice", 1_000, baseTime.Add(time.Hour)); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("double registration: got %v, want state error", err)
	}

	if _, err := eng.RegisterParticipant("comp-1", "bob", 1_000, baseTime.Add(100*time.Hour)); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("after end: got %v, want state error", err)
	}
}

func TestRegisterParticipant_MidRegistrationGate(t *testing.T) {
	treasury := &recordingTreasury{}
	eng := competition.NewEngine(admin, treasury, zerolog.Nop())
	p := defaultParams()
	p.AllowMidRegistration = false
	if _, err := eng.CreateCompetition(p, baseTime); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := eng.RegisterParticipant("comp-1", "alice", 1_000, baseTime.Add(time.Hour)); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("registration after start with gate closed: got %v, want state error", err)
	}
	if _, err := eng.RegisterParticipant("comp-1", "alice", 1_000, baseTime.Add(-time.Hour)); err != nil {
		t.Errorf("registration before start: %v", err)
	}
}

func TestRegisterToken(t *testing.T) {
	eng, _ := newTestEngine(t)

	if _, err := eng.RegisterToken("comp-1", "alice", "tok-a", baseTime.Add(time.Hour)); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Errorf("unregistered participant: got %v, want authorization error", err)
	}

	enter(t, eng, "alice", "tok-a")

	if _, err := eng.RegisterToken("comp-1", "alice", "tok-a", baseTime.Add(3*time.Hour)); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("token registered twice: got %v, want state error", err)
	}

	// cap is 2 per participant
	if _, err := eng.RegisterToken("comp-1", "alice", "tok-b", baseTime.Add(3*time.Hour)); err != nil {
		t.Fatalf("second token: %v", err)
	}
	if _, err := eng.RegisterToken("comp-1", "alice", "tok-c", baseTime.Add(3*time.Hour)); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("over cap: got %v, want state error", err)
	}

	if c := eng.CompetitionForToken("tok-a"); c == nil || c.ID != "comp-1" {
		t.Error("token index lookup failed")
	}
	if c := eng.CompetitionForToken("tok-zzz"); c != nil {
		t.Error("unknown token resolved to a competition")
	}
}

func TestContributeTradeFee(t *testing.T) {
	eng, _ := newTestEngine(t)
	enter(t, eng, "alice", "tok-a")

	ev, routed := eng.ContributeTradeFee("tok-a", 50, baseTime.Add(10*time.Hour))
	if !routed {
		t.Fatal("fee not routed during active window")
	}
	if ev.CompetitionID != "comp-1" || ev.Amount != 50 {
		t.Errorf("event: %+v", ev)
	}
	if got := eng.Get("comp-1").PrizePool; got != 950 { // 900 entry cut + 50 fee
		t.Errorf("prize pool = %d, want 950", got)
	}

	if _, routed := eng.ContributeTradeFee("tok-a", 50, baseTime.Add(100*time.Hour)); routed {
		t.Error("fee routed after window end")
	}
	if _, routed := eng.ContributeTradeFee("tok-unknown", 50, baseTime.Add(time.Hour)); routed {
		t.Error("fee routed for token outside any competition")
	}
}

func TestFinalize_PrizeDistribution(t *testing.T) {
	eng, _ := newTestEngine(t)
	enter(t, eng, "alice", "tok-a")
	enter(t, eng, "bob", "tok-b")
	enter(t, eng, "carol", "tok-c")

	// top the pool up to a round 10_000
	c := eng.Get("comp-1")
	if err := eng.ContributeToPrizePool("comp-1", 10_000-c.PrizePool); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	after := baseTime.Add(80 * time.Hour)

	if _, err := eng.Finalize(admin, "comp-1", [3]string{"tok-a", "tok-b", "tok-c"}, baseTime.Add(time.Hour)); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("finalize before end: got %v, want state error", err)
	}
	if _, err := eng.Finalize("mallory", "comp-1", [3]string{"tok-a", "tok-b", "tok-c"}, after); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Errorf("finalize by non-admin: got %v, want authorization error", err)
	}

	ev, err := eng.Finalize(admin, "comp-1", [3]string{"tok-a", "tok-b", "tok-c"}, after)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	want := []uint64{5_000, 3_000, 2_000}
	for i, w := range ev.Winners {
		if w.Rank != i+1 || w.Prize != want[i] {
			t.Errorf("winner %d: rank=%d prize=%d, want rank=%d prize=%d", i, w.Rank, w.Prize, i+1, want[i])
		}
	}

	if !c.Finalized || c.PrizePool != 0 {
		t.Errorf("finalized=%v pool=%d after settlement", c.Finalized, c.PrizePool)
	}
	if c.Winners.Unclaimed != 10_000 {
		t.Errorf("unclaimed = %d, want 10000", c.Winners.Unclaimed)
	}

	if _, err := eng.Finalize(admin, "comp-1", [3]string{"tok-a", "tok-b", "tok-c"}, after); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("second finalize: got %v, want state error", err)
	}
}

func TestFinalize_TruncationLeavesDust(t *testing.T) {
	eng, _ := newTestEngine(t)
	enter(t, eng, "alice", "tok-a")
	enter(t, eng, "bob", "tok-b")
	enter(t, eng, "carol", "tok-c")

	// 2700 entry cuts + 7 = 2707; shares truncate to 1353/812/541 = 2706
	if err := eng.ContributeToPrizePool("comp-1", 7); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	ev, err := eng.Finalize(admin, "comp-1", [3]string{"tok-a", "tok-b", "tok-c"}, baseTime.Add(80*time.Hour))
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	var distributed uint64
	for _, w := range ev.Winners {
		distributed += w.Prize
	}
	if distributed != 2_706 {
		t.Errorf("distributed %d, want 2706", distributed)
	}
	if got := eng.Get("comp-1").Winners.Unclaimed; got != 2_706 {
		t.Errorf("unclaimed = %d, want 2706", got)
	}
}

func TestFinalize_DistinctWinnersRequired(t *testing.T) {
	eng, _ := newTestEngine(t)
	enter(t, eng, "alice", "tok-a")
	enter(t, eng, "bob", "tok-b")
	enter(t, eng, "carol", "tok-c")
	if _, err := eng.RegisterToken("comp-1", "alice", "tok-a2", baseTime.Add(3*time.Hour)); err != nil {
		t.Fatalf("second token: %v", err)
	}

	after := baseTime.Add(80 * time.Hour)

	if _, err := eng.Finalize(admin, "comp-1", [3]string{"tok-a", "tok-a", "tok-b"}, after); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("duplicate token: got %v, want validation error", err)
	}
	if _, err := eng.Finalize(admin, "comp-1", [3]string{"tok-a", "tok-a2", "tok-b"}, after); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("one owner holding two places: got %v, want validation error", err)
	}
	if _, err := eng.Finalize(admin, "comp-1", [3]string{"tok-a", "tok-b", "tok-x"}, after); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("unregistered token: got %v, want validation error", err)
	}
}

func TestClaimPrize(t *testing.T) {
	eng, _ := newTestEngine(t)
	enter(t, eng, "alice", "tok-a")
	enter(t, eng, "bob", "tok-b")
	enter(t, eng, "carol", "tok-c")

	after := baseTime.Add(80 * time.Hour)

	if _, err := eng.ClaimPrize("comp-1", "alice", after); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("claim before finalize: got %v, want state error", err)
	}

	if _, err := eng.Finalize(admin, "comp-1", [3]string{"tok-a", "tok-b", "tok-c"}, after); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	pool := uint64(2_700)

	ev, err := eng.ClaimPrize("comp-1", "alice", after)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if ev.Rank != 1 || ev.Amount != pool/2 {
		t.Errorf("claim: rank=%d amount=%d", ev.Rank, ev.Amount)
	}
	if ev.FullySettled {
		t.Error("fully settled after first claim")
	}

	if _, err := eng.ClaimPrize("comp-1", "alice", after); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("double claim: got %v, want state error", err)
	}
	if _, err := eng.ClaimPrize("comp-1", "mallory", after); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Errorf("non-winner claim: got %v, want authorization error", err)
	}

	if _, err := eng.ClaimPrize("comp-1", "bob", after); err != nil {
		t.Fatalf("claim bob: %v", err)
	}
	last, err := eng.ClaimPrize("comp-1", "carol", after)
	if err != nil {
		t.Fatalf("claim carol: %v", err)
	}
	if !last.FullySettled {
		t.Error("last claim did not settle the registry")
	}
	if got := eng.Get("comp-1").Winners.Unclaimed; got != 0 {
		t.Errorf("unclaimed = %d after all claims", got)
	}
}

func TestCancelAndDrain(t *testing.T) {
	eng, treasury := newTestEngine(t)
	enter(t, eng, "alice", "tok-a")

	if _, err := eng.DrainRemainingFunds(admin, "comp-1"); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("drain while live: got %v, want state error", err)
	}

	if _, err := eng.Cancel("mallory", "comp-1", "", baseTime.Add(time.Hour)); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Errorf("cancel by non-admin: got %v, want authorization error", err)
	}
	if _, err := eng.Cancel(admin, "comp-1", "low participation", baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := eng.Cancel(admin, "comp-1", "again", baseTime.Add(time.Hour)); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("double cancel: got %v, want state error", err)
	}

	// cancelled rounds reject new money and new entries
	if err := eng.ContributeToPrizePool("comp-1", 10); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("contribute after cancel: got %v, want state error", err)
	}
	if _, routed := eng.ContributeTradeFee("tok-a", 50, baseTime.Add(2*time.Hour)); routed {
		t.Error("trade fee routed into cancelled competition")
	}

	before := treasury.balance
	drained, err := eng.DrainRemainingFunds(admin, "comp-1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if drained != 900 { // alice's entry cut
		t.Errorf("drained = %d, want 900", drained)
	}
	if treasury.balance != before+900 {
		t.Errorf("treasury = %d", treasury.balance)
	}
	if _, err := eng.DrainRemainingFunds(admin, "comp-1"); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("second drain: got %v, want state error", err)
	}
}

func TestDrainAfterFinalizeSweepsUnclaimed(t *testing.T) {
	eng, treasury := newTestEngine(t)
	enter(t, eng, "alice", "tok-a")
	enter(t, eng, "bob", "tok-b")
	enter(t, eng, "carol", "tok-c")

	after := baseTime.Add(80 * time.Hour)
	if _, err := eng.Finalize(admin, "comp-1", [3]string{"tok-a", "tok-b", "tok-c"}, after); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := eng.ClaimPrize("comp-1", "alice", after); err != nil {
		t.Fatalf("claim: %v", err)
	}

	before := treasury.balance
	drained, err := eng.DrainRemainingFunds(admin, "comp-1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if drained != 1_350 { // bob's 810 + carol's 540
		t.Errorf("drained = %d, want 1350", drained)
	}
	if treasury.balance != before+1_350 {
		t.Errorf("treasury = %d", treasury.balance)
	}

	// swept entries can no longer be claimed
	if _, err := eng.ClaimPrize("comp-1", "bob", after); apperr.KindOf(err) != apperr.KindState {
		t.Errorf("claim after drain: got %v, want state error", err)
	}
}
