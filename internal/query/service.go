package query

import (
	"context"
	"database/sql"
	"fmt"
)

// QueryService provides read-only access to the projection tables and the
// trade log. All responses include as_of_sequence for freshness semantics:
// callers compare it against the core sequence to judge staleness.
type QueryService struct {
	db *sql.DB
}

func NewQueryService(db *sql.DB) *QueryService {
	return &QueryService{db: db}
}

// GetPoolState returns the projected curve state for one token.
func (qs *QueryService) GetPoolState(ctx context.Context, token string) (*PoolStateResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	var p PoolStateResponse
	p.Token = token
	p.AsOfSequence = asOfSeq
	err = qs.db.QueryRowContext(ctx, `
		SELECT virtual_base, virtual_token, real_base, circulating_supply,
		       last_price, graduated, trade_count, buy_volume, sell_volume
		FROM projections.pool_state
		WHERE token = $1
	`, token).Scan(
		&p.VirtualBase, &p.VirtualToken, &p.RealBase, &p.CirculatingSupply,
		&p.LastPrice, &p.Graduated, &p.TradeCount, &p.BuyVolume, &p.SellVolume,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListTokens returns launched tokens, newest first, with cursor pagination
// on the creation sequence.
func (qs *QueryService) ListTokens(ctx context.Context, limit int, afterSequence *int64) ([]TokenResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT token, creator, name, symbol, decimals, graduated, venue_pool_id, created_at, last_sequence
		FROM projections.tokens
	`
	args := []interface{}{}
	argIdx := 1

	if afterSequence != nil {
		query += fmt.Sprintf(" WHERE last_sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY last_sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []TokenResponse
	for rows.Next() {
		var t TokenResponse
		var lastSeq int64
		t.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&t.Token, &t.Creator, &t.Name, &t.Symbol, &t.Decimals,
			&t.Graduated, &t.VenuePoolID, &t.CreatedAt, &lastSeq,
		); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}

	return tokens, rows.Err()
}

// GetTrades returns the trade history for a token with cursor-based
// pagination, newest first.
func (qs *QueryService) GetTrades(
	ctx context.Context,
	token string,
	limit int,
	afterSequence *int64,
) ([]TradeResponse, error) {
	query := `
		SELECT trade_id, token, trader, direction, base_amount, token_amount, fee,
		       competition_id, price_before, price_after, sequence, timestamp
		FROM launch.trades
		WHERE token = $1
	`
	args := []interface{}{token}
	argIdx := 2

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []TradeResponse
	for rows.Next() {
		var t TradeResponse
		if err := rows.Scan(
			&t.TradeID, &t.Token, &t.Trader, &t.Direction, &t.BaseAmount,
			&t.TokenAmount, &t.Fee, &t.CompetitionID, &t.PriceBefore,
			&t.PriceAfter, &t.Sequence, &t.Timestamp,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// GetCompetition returns one competition's projected state, including the
// podium once finalized.
func (qs *QueryService) GetCompetition(ctx context.Context, competitionID string) (*CompetitionResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var c CompetitionResponse
	c.AsOfSequence = asOfSeq
	err = qs.db.QueryRowContext(ctx, `
		SELECT competition_id, name, start_time, end_time, participation_fee,
		       first_bps, second_bps, third_bps, prize_pool, participants, entries, status
		FROM projections.competition_state
		WHERE competition_id = $1
	`, competitionID).Scan(
		&c.CompetitionID, &c.Name, &c.StartTime, &c.EndTime, &c.ParticipationFee,
		&c.FirstBps, &c.SecondBps, &c.ThirdBps, &c.PrizePool, &c.Participants,
		&c.Entries, &c.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT rank, token, address, prize, claimed
		FROM projections.competition_winners
		WHERE competition_id = $1
		ORDER BY rank ASC
	`, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var w WinnerResponse
		if err := rows.Scan(&w.Rank, &w.Token, &w.Address, &w.Prize, &w.Claimed); err != nil {
			return nil, err
		}
		c.Winners = append(c.Winners, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &c, nil
}

// ListCompetitions returns competitions filtered by status ('open',
// 'finalized', 'cancelled'); a nil status returns all.
func (qs *QueryService) ListCompetitions(ctx context.Context, status *string, limit int) ([]CompetitionResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT competition_id, name, start_time, end_time, participation_fee,
		       first_bps, second_bps, third_bps, prize_pool, participants, entries, status
		FROM projections.competition_state
	`
	args := []interface{}{}
	argIdx := 1

	if status != nil {
		query += fmt.Sprintf(" WHERE status = $%d", argIdx)
		args = append(args, *status)
		argIdx++
	}

	query += " ORDER BY start_time DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []CompetitionResponse
	for rows.Next() {
		var c CompetitionResponse
		c.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&c.CompetitionID, &c.Name, &c.StartTime, &c.EndTime, &c.ParticipationFee,
			&c.FirstBps, &c.SecondBps, &c.ThirdBps, &c.PrizePool, &c.Participants,
			&c.Entries, &c.Status,
		); err != nil {
			return nil, err
		}
		results = append(results, c)
	}

	return results, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity checks hash chain continuity and the graduated-pool
// invariant (a graduated pool must hold zero real reserve).
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	// Check hash chain continuity
	rows, err := qs.db.QueryContext(ctx, `
		SELECT e1.sequence
		FROM launch.events e1
		LEFT JOIN launch.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.sequence > 0 AND e1.prev_hash != COALESCE(e2.state_hash, e1.prev_hash)
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Graduated pools must be fully drained
	dirtyRows, err := qs.db.QueryContext(ctx, `
		SELECT token FROM projections.pool_state
		WHERE graduated = TRUE AND real_base != 0
	`)
	if err != nil {
		return nil, err
	}
	defer dirtyRows.Close()

	for dirtyRows.Next() {
		var token string
		if err := dirtyRows.Scan(&token); err != nil {
			return nil, err
		}
		report.GraduatedDirty = append(report.GraduatedDirty, token)
	}
	if err := dirtyRows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.GraduatedDirty) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}
