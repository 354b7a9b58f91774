package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"LaunchCore/internal/event"
)

// ProjectionOutput mirrors the data needed by projection workers.
// The orchestrator bridges between core.CoreOutput and this.
type ProjectionOutput struct {
	Sequence  int64
	EventType string
	TokenID   *string
	Payload   []byte // JSON-encoded event payload
	Timestamp time.Time
}

// ProjectionWorker updates projection tables from processed events.
// The projection channel is non-blocking with drop: if projections fall
// behind, they can be rebuilt from the event log.
type ProjectionWorker struct {
	db        *sql.DB
	inputChan <-chan ProjectionOutput
	prices    *PriceHistoryProjection
	lastSeq   int64
}

func NewProjectionWorker(db *sql.DB, inputChan <-chan ProjectionOutput) *ProjectionWorker {
	return &ProjectionWorker{
		db:        db,
		inputChan: inputChan,
		prices:    NewPriceHistoryProjection(4096),
	}
}

// Prices exposes the in-memory price history for the query service.
func (pw *ProjectionWorker) Prices() *PriceHistoryProjection {
	return pw.prices
}

// Run starts the projection worker loop.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}

			if err := pw.processOutput(ctx, output); err != nil {
				log.Printf("WARN: projection update failed at seq=%d: %v", output.Sequence, err)
				// Continue — projections are eventually consistent
				// and can be rebuilt from the event log
			}

			pw.lastSeq = output.Sequence
		}
	}
}

func (pw *ProjectionWorker) processOutput(ctx context.Context, output ProjectionOutput) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyEvent(ctx, tx, output); err != nil {
		return err
	}

	// Update projection watermark
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	pw.recordPrice(output)
	return nil
}

func (pw *ProjectionWorker) recordPrice(output ProjectionOutput) {
	if output.EventType != event.TypeTradeExecuted.String() {
		return
	}
	var e event.TradeExecuted
	if err := json.Unmarshal(output.Payload, &e); err != nil {
		return
	}
	pw.prices.AddPoint(PricePoint{
		Token:     e.Token,
		Price:     e.PriceAfter,
		Sequence:  output.Sequence,
		Timestamp: e.Timestamp.UnixMicro(),
	})
}

// applyEvent routes one event into the projection tables. Shared between
// the live worker and the rebuild path so both produce identical rows.
func applyEvent(ctx context.Context, tx *sql.Tx, output ProjectionOutput) error {
	switch output.EventType {
	case event.TypeTokenCreated.String():
		var e event.TokenCreated
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode TokenCreated: %w", err)
		}
		return applyTokenCreated(ctx, tx, &e, output.Sequence)

	case event.TypeTradeExecuted.String():
		var e event.TradeExecuted
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode TradeExecuted: %w", err)
		}
		return applyTradeExecuted(ctx, tx, &e, output.Sequence)

	case event.TypeTokenGraduated.String():
		var e event.TokenGraduated
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode TokenGraduated: %w", err)
		}
		return applyTokenGraduated(ctx, tx, &e, output.Sequence)

	case event.TypeCompetitionCreated.String():
		var e event.CompetitionCreated
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode CompetitionCreated: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.competition_state
				(competition_id, name, start_time, end_time, participation_fee,
				 first_bps, second_bps, third_bps, prize_pool, participants, entries, status, last_sequence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 0, 'open', $9)
			ON CONFLICT (competition_id) DO NOTHING
		`, e.CompetitionID, e.Name, e.StartTime, e.EndTime, int64(e.ParticipationFee),
			e.FirstBps, e.SecondBps, e.ThirdBps, output.Sequence)
		return err

	case event.TypeCompetitionUpdated.String():
		var e event.CompetitionUpdated
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode CompetitionUpdated: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.competition_state
			SET first_bps = $2, second_bps = $3, third_bps = $4, last_sequence = $5
			WHERE competition_id = $1
		`, e.CompetitionID, e.FirstBps, e.SecondBps, e.ThirdBps, output.Sequence)
		return err

	case event.TypeParticipantRegistered.String():
		var e event.ParticipantRegistered
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode ParticipantRegistered: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.competition_state
			SET participants = participants + 1,
			    prize_pool = prize_pool + $2,
			    last_sequence = $3
			WHERE competition_id = $1
		`, e.CompetitionID, int64(e.ToPrizePool), output.Sequence)
		return err

	case event.TypeTokenRegistered.String():
		var e event.TokenRegistered
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode TokenRegistered: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.competition_state
			SET entries = entries + 1, last_sequence = $2
			WHERE competition_id = $1
		`, e.CompetitionID, output.Sequence)
		return err

	case event.TypePrizePoolContributed.String():
		var e event.PrizePoolContributed
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode PrizePoolContributed: %w", err)
		}
		return addToPrizePool(ctx, tx, e.CompetitionID, int64(e.Amount), output.Sequence)

	case event.TypeFeeRoutedToCompetition.String():
		var e event.FeeRoutedToCompetition
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode FeeRoutedToCompetition: %w", err)
		}
		return addToPrizePool(ctx, tx, e.CompetitionID, int64(e.Amount), output.Sequence)

	case event.TypeCompetitionFinalized.String():
		var e event.CompetitionFinalized
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode CompetitionFinalized: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE projections.competition_state
			SET status = 'finalized', prize_pool = 0, last_sequence = $2
			WHERE competition_id = $1
		`, e.CompetitionID, output.Sequence); err != nil {
			return err
		}
		for _, w := range e.Winners {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO projections.competition_winners
					(competition_id, rank, token, address, prize, claimed, last_sequence)
				VALUES ($1, $2, $3, $4, $5, FALSE, $6)
				ON CONFLICT (competition_id, rank) DO NOTHING
			`, e.CompetitionID, w.Rank, w.Token, w.Address, int64(w.Prize), output.Sequence); err != nil {
				return err
			}
		}
		return nil

	case event.TypePrizeClaimed.String():
		var e event.PrizeClaimed
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode PrizeClaimed: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.competition_winners
			SET claimed = TRUE, last_sequence = $3
			WHERE competition_id = $1 AND rank = $2
		`, e.CompetitionID, e.Rank, output.Sequence)
		return err

	case event.TypeCompetitionCancelled.String():
		var e event.CompetitionCancelled
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode CompetitionCancelled: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.competition_state
			SET status = 'cancelled', last_sequence = $2
			WHERE competition_id = $1
		`, e.CompetitionID, output.Sequence)
		return err

	case event.TypeCompetitionDrained.String():
		var e event.CompetitionDrained
		if err := json.Unmarshal(output.Payload, &e); err != nil {
			return fmt.Errorf("decode CompetitionDrained: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.competition_state
			SET prize_pool = 0, last_sequence = $2
			WHERE competition_id = $1
		`, e.CompetitionID, output.Sequence)
		return err

	default:
		// ConfigUpdated and any future event types carry no projection
		return nil
	}
}

func applyTokenCreated(ctx context.Context, tx *sql.Tx, e *event.TokenCreated, seq int64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.tokens
			(token, creator, name, symbol, decimals, graduated, created_at, last_sequence)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
		ON CONFLICT (token) DO NOTHING
	`, e.Token, e.Creator, e.Name, e.Symbol, int16(e.Decimals), e.Timestamp, seq); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.pool_state
			(token, virtual_base, virtual_token, real_base, circulating_supply,
			 last_price, graduated, trade_count, buy_volume, sell_volume, last_sequence)
		VALUES ($1, $2, $3, 0, 0, 0, FALSE, 0, 0, 0, $4)
		ON CONFLICT (token) DO NOTHING
	`, e.Token, int64(e.VirtualBase), int64(e.VirtualToken), seq)
	return err
}

func applyTradeExecuted(ctx context.Context, tx *sql.Tx, e *event.TradeExecuted, seq int64) error {
	buyVolume, sellVolume := int64(0), int64(0)
	if e.Direction == event.DirectionBuy {
		buyVolume = int64(e.BaseAmount)
	} else {
		sellVolume = int64(e.BaseAmount)
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE projections.pool_state
		SET virtual_base = $2, virtual_token = $3, real_base = $4,
		    circulating_supply = $5, last_price = $6,
		    trade_count = trade_count + 1,
		    buy_volume = buy_volume + $7, sell_volume = sell_volume + $8,
		    last_sequence = $9
		WHERE token = $1
	`, e.Token, int64(e.VirtualBase), int64(e.VirtualToken), int64(e.RealBase),
		int64(e.Supply), int64(e.PriceAfter), buyVolume, sellVolume, seq)
	return err
}

func applyTokenGraduated(ctx context.Context, tx *sql.Tx, e *event.TokenGraduated, seq int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE projections.tokens
		SET graduated = TRUE, venue_pool_id = $2, last_sequence = $3
		WHERE token = $1
	`, e.Token, e.VenuePoolID, seq); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE projections.pool_state
		SET graduated = TRUE, real_base = 0, last_sequence = $2
		WHERE token = $1
	`, e.Token, seq)
	return err
}

func addToPrizePool(ctx context.Context, tx *sql.Tx, competitionID string, amount int64, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE projections.competition_state
		SET prize_pool = prize_pool + $2, last_sequence = $3
		WHERE competition_id = $1
	`, competitionID, amount, seq)
	return err
}

// RebuildProjections rebuilds all projection tables by replaying the event
// log through the same applyEvent path the live worker uses.
func RebuildProjections(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE projections.tokens`,
		`TRUNCATE projections.pool_state`,
		`TRUNCATE projections.competition_state`,
		`TRUNCATE projections.competition_winners`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	const batchSize = 1000
	from := int64(0)
	lastSeq := int64(-1)

	for {
		rows, err := db.QueryContext(ctx, `
			SELECT sequence, event_type, token_id, payload, timestamp
			FROM launch.events
			WHERE sequence >= $1
			ORDER BY sequence ASC
			LIMIT $2
		`, from, batchSize)
		if err != nil {
			return fmt.Errorf("load events: %w", err)
		}

		var batch []ProjectionOutput
		for rows.Next() {
			var o ProjectionOutput
			if err := rows.Scan(&o.Sequence, &o.EventType, &o.TokenID, &o.Payload, &o.Timestamp); err != nil {
				rows.Close()
				return err
			}
			batch = append(batch, o)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if len(batch) == 0 {
			break
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, o := range batch {
			if err := applyEvent(ctx, tx, o); err != nil {
				tx.Rollback()
				return fmt.Errorf("replay seq=%d: %w", o.Sequence, err)
			}
			lastSeq = o.Sequence
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
			VALUES ('main', $1, NOW())
			ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
		`, lastSeq); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		from = batch[len(batch)-1].Sequence + 1
		if len(batch) < batchSize {
			break
		}
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}
