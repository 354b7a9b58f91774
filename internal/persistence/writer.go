package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// EventLogWriter writes events and trade fills to Postgres using batch
// inserts. The persistence worker favors multi-row INSERT as a portable
// alternative to COPY; switch to pgx CopyFrom for production-grade
// throughput.
type EventLogWriter struct {
	db           *sql.DB
	batchSize    int
	flushTimeout time.Duration
}

// EventRow represents a row in launch.events
type EventRow struct {
	Sequence       int64
	EventType      string
	IdempotencyKey string
	TokenID        *string
	Payload        []byte // JSON-encoded event payload
	StateHash      []byte
	PrevHash       []byte
	Timestamp      time.Time
}

// TradeRow represents a row in launch.trades
type TradeRow struct {
	TradeID       string
	Token         string
	Trader        string
	Direction     string
	BaseAmount    int64
	TokenAmount   int64
	Fee           int64
	CompetitionID *string
	PriceBefore   int64
	PriceAfter    int64
	VirtualBase   int64
	VirtualToken  int64
	RealBase      int64
	Sequence      int64
	Timestamp     time.Time
}

func NewEventLogWriter(db *sql.DB, batchSize int, flushTimeout time.Duration) *EventLogWriter {
	return &EventLogWriter{
		db:           db,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
	}
}

// WriteEventBatch writes a batch of events to launch.events using multi-row INSERT.
func (w *EventLogWriter) WriteEventBatch(ctx context.Context, events []EventRow, tx *sql.Tx) error {
	if len(events) == 0 {
		return nil
	}

	query := `INSERT INTO launch.events
		(sequence, event_type, idempotency_key, token_id, payload, state_hash, prev_hash, timestamp)
		VALUES `

	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*8)

	for i, e := range events {
		base := i * 8
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args,
			e.Sequence, e.EventType, e.IdempotencyKey, e.TokenID,
			e.Payload, e.StateHash, e.PrevHash, e.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING" // Idempotent writes

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// WriteTradeBatch writes a batch of trade fills to launch.trades.
func (w *EventLogWriter) WriteTradeBatch(ctx context.Context, trades []TradeRow, tx *sql.Tx) error {
	if len(trades) == 0 {
		return nil
	}

	query := `INSERT INTO launch.trades
		(trade_id, token, trader, direction, base_amount, token_amount, fee, competition_id,
		 price_before, price_after, virtual_base, virtual_token, real_base, sequence, timestamp)
		VALUES `

	values := make([]string, 0, len(trades))
	args := make([]interface{}, 0, len(trades)*15)

	for i, tr := range trades {
		base := i * 15
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
			base+9, base+10, base+11, base+12, base+13, base+14, base+15,
		))
		args = append(args,
			tr.TradeID, tr.Token, tr.Trader, tr.Direction,
			tr.BaseAmount, tr.TokenAmount, tr.Fee, tr.CompetitionID,
			tr.PriceBefore, tr.PriceAfter, tr.VirtualBase, tr.VirtualToken,
			tr.RealBase, tr.Sequence, tr.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (trade_id) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// MarshalEventPayload serializes an event payload to JSON for storage.
func MarshalEventPayload(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}

// MarshalPayload is a convenience wrapper that never fails; a payload that
// cannot be marshalled is stored as an empty object so the event row is
// still written.
func MarshalPayload(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("WARN: failed to marshal payload: %v", err)
		return []byte("{}")
	}
	return data
}
