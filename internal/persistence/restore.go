package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

// RestoreManager loads recovery state from the event log. State is rebuilt
// by full replay: the core state is small enough (pools, competitions,
// config) that replaying launch.events from sequence 0 stays cheap, so no
// periodic state snapshots are taken.
type RestoreManager struct {
	db *sql.DB
}

func NewRestoreManager(db *sql.DB) *RestoreManager {
	return &RestoreManager{db: db}
}

// ChainTip is the highest persisted sequence and its state hash, used to
// resume the hash chain on warm restart.
type ChainTip struct {
	Sequence  int64
	StateHash []byte
}

// LoadChainTip returns the latest persisted sequence and state hash.
// Returns nil on an empty event log (cold start).
func (rm *RestoreManager) LoadChainTip(ctx context.Context) (*ChainTip, error) {
	row := rm.db.QueryRowContext(ctx, `
		SELECT sequence, state_hash FROM launch.events
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var tip ChainTip
	if err := row.Scan(&tip.Sequence, &tip.StateHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load chain tip: %w", err)
	}
	return &tip, nil
}

// LoadEventsFrom loads events from a given sequence for replay.
func (rm *RestoreManager) LoadEventsFrom(ctx context.Context, fromSequence int64, limit int) ([]EventRow, error) {
	rows, err := rm.db.QueryContext(ctx, `
		SELECT sequence, event_type, idempotency_key, token_id, payload,
		       state_hash, prev_hash, timestamp
		FROM launch.events
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.Sequence, &e.EventType, &e.IdempotencyKey, &e.TokenID,
			&e.Payload, &e.StateHash, &e.PrevHash, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// LoadRecentIdempotencyKeys returns the idempotency keys of the most
// recent events, used to warm the in-memory dedup LRU on restart.
func (rm *RestoreManager) LoadRecentIdempotencyKeys(ctx context.Context, limit int) ([]string, error) {
	rows, err := rm.db.QueryContext(ctx, `
		SELECT DISTINCT ON (idempotency_key) idempotency_key
		FROM launch.events
		ORDER BY idempotency_key, sequence DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// GetLatestSequence returns the highest sequence in the event log.
func (rm *RestoreManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := rm.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM launch.events
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil // Empty event log
	}
	return seq.Int64, nil
}
