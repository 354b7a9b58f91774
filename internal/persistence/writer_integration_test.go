package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"LaunchCore/internal/persistence"
	"LaunchCore/internal/testutil"
)

func eventRow(seq int64, idemKey string, token *string) persistence.EventRow {
	hash := make([]byte, 32)
	prev := make([]byte, 32)
	hash[0] = byte(seq + 1)
	prev[0] = byte(seq)

	return persistence.EventRow{
		Sequence:       seq,
		EventType:      "TokenCreated",
		IdempotencyKey: idemKey,
		TokenID:        token,
		Payload:        []byte(`{"token":"tok-1"}`),
		StateHash:      hash,
		PrevHash:       prev,
		Timestamp:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEventLogRoundTrip(t *testing.T) {
	testutil.RequireIntegration(t)

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := persistence.NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	token := "tok-1"
	keys := []string{uuid.New().String(), uuid.New().String(), uuid.New().String()}
	events := []persistence.EventRow{
		eventRow(0, keys[0], &token),
		eventRow(1, keys[1], &token),
		eventRow(2, keys[2], nil),
	}
	trades := []persistence.TradeRow{{
		TradeID:     uuid.New().String(),
		Token:       token,
		Trader:      "alice",
		Direction:   "buy",
		BaseAmount:  100,
		TokenAmount: 181,
		Fee:         1,
		PriceBefore: 0,
		PriceAfter:  0,
		Sequence:    1,
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}}

	writer := persistence.NewEventLogWriter(db, 50, 10*time.Millisecond)

	write := func() {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := writer.WriteEventBatch(ctx, events, tx); err != nil {
			t.Fatalf("write events: %v", err)
		}
		if err := writer.WriteTradeBatch(ctx, trades, tx); err != nil {
			t.Fatalf("write trades: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	write()
	// re-writing the same batch must be a no-op (ON CONFLICT DO NOTHING)
	write()

	var eventCount, tradeCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM launch.events`).Scan(&eventCount); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM launch.trades`).Scan(&tradeCount); err != nil {
		t.Fatalf("count trades: %v", err)
	}
	if eventCount != 3 || tradeCount != 1 {
		t.Errorf("got %d events / %d trades, want 3 / 1", eventCount, tradeCount)
	}

	restore := persistence.NewRestoreManager(db)

	tip, err := restore.LoadChainTip(ctx)
	if err != nil {
		t.Fatalf("chain tip: %v", err)
	}
	if tip == nil || tip.Sequence != 2 {
		t.Fatalf("chain tip = %+v, want sequence 2", tip)
	}
	if len(tip.StateHash) != 32 || tip.StateHash[0] != 3 {
		t.Errorf("chain tip hash = %x", tip.StateHash)
	}

	loaded, err := restore.LoadEventsFrom(ctx, 0, 10)
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("loaded %d events, want 3", len(loaded))
	}
	for i, row := range loaded {
		if row.Sequence != int64(i) {
			t.Errorf("event %d: sequence %d out of order", i, row.Sequence)
		}
	}
	if loaded[0].TokenID == nil || *loaded[0].TokenID != token {
		t.Errorf("event 0 token = %v", loaded[0].TokenID)
	}
	if loaded[2].TokenID != nil {
		t.Errorf("event 2 token = %v, want nil", *loaded[2].TokenID)
	}

	warmKeys, err := restore.LoadRecentIdempotencyKeys(ctx, 100)
	if err != nil {
		t.Fatalf("load keys: %v", err)
	}
	found := make(map[string]bool, len(warmKeys))
	for _, k := range warmKeys {
		found[k] = true
	}
	for _, k := range keys {
		if !found[k] {
			t.Errorf("idempotency key %s missing from warm load", k)
		}
	}

	checker := persistence.NewPostgresIdempotencyChecker(db)
	if dup, err := checker.IsDuplicate("CreateToken", keys[0]); err != nil || !dup {
		t.Errorf("known key: dup=%v err=%v, want true", dup, err)
	}
	if dup, err := checker.IsDuplicate("CreateToken", uuid.New().String()); err != nil || dup {
		t.Errorf("unknown key: dup=%v err=%v, want false", dup, err)
	}
}
