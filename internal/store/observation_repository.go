// Package store persists observations and the training run ledger in Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockout/internal/contracts"
	"github.com/wonny/stockout/internal/dataset"
)

var observationColumns = []string{
	"store_id", "item_id", "obs_date", "price", "on_promotion",
	"is_holiday", "shipments_received", "sales", "stock_on_hand",
}

// ObservationRepository stores daily observations
// ⭐ SSOT: 관측 데이터 저장소는 여기서만
type ObservationRepository struct {
	pool *pgxpool.Pool
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(pool *pgxpool.Pool) *ObservationRepository {
	return &ObservationRepository{pool: pool}
}

// Upsert bulk-loads observations through COPY into a staging table and
// merges them, so re-ingesting a day overwrites it
func (r *ObservationRepository) Upsert(ctx context.Context, obs []contracts.Observation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin ingest: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE observations_stage
		(LIKE stockout.observations INCLUDING DEFAULTS)
		ON COMMIT DROP
	`); err != nil {
		return 0, fmt.Errorf("create staging table: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"observations_stage"},
		observationColumns,
		pgx.CopyFromRows(observationRows(obs)),
	); err != nil {
		return 0, fmt.Errorf("copy observations: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO stockout.observations
		SELECT * FROM observations_stage
		ON CONFLICT (store_id, item_id, obs_date) DO UPDATE SET
			price = EXCLUDED.price,
			on_promotion = EXCLUDED.on_promotion,
			is_holiday = EXCLUDED.is_holiday,
			shipments_received = EXCLUDED.shipments_received,
			sales = EXCLUDED.sales,
			stock_on_hand = EXCLUDED.stock_on_hand
	`)
	if err != nil {
		return 0, fmt.Errorf("merge observations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit ingest: %w", err)
	}
	return tag.RowsAffected(), nil
}

// observationRows converts observations into COPY rows in observationColumns order
func observationRows(obs []contracts.Observation) [][]any {
	rows := make([][]any, len(obs))
	for i, o := range obs {
		rows[i] = []any{
			o.StoreID, o.ItemID, o.Date, o.Price, o.OnPromotion,
			o.IsHoliday, o.ShipmentsReceived, o.Sales, o.StockOnHand,
		}
	}
	return rows
}

// GetRange returns observations with from <= date <= to, ordered by series
// then date. A zero bound is open.
func (r *ObservationRepository) GetRange(ctx context.Context, from, to time.Time) ([]contracts.Observation, error) {
	query := `
		SELECT store_id, item_id, obs_date, price::float8, on_promotion,
		       is_holiday, shipments_received, sales, stock_on_hand
		FROM stockout.observations
		WHERE ($1::date IS NULL OR obs_date >= $1)
		  AND ($2::date IS NULL OR obs_date <= $2)
		ORDER BY store_id, item_id, obs_date
	`

	rows, err := r.pool.Query(ctx, query, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.Observation
	for rows.Next() {
		var o contracts.Observation
		if err := rows.Scan(
			&o.StoreID, &o.ItemID, &o.Date, &o.Price, &o.OnPromotion,
			&o.IsHoliday, &o.ShipmentsReceived, &o.Sales, &o.StockOnHand,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Count returns the number of stored observations
func (r *ObservationRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stockout.observations`).Scan(&n)
	return n, err
}

// ObservationSource feeds the training pipeline from Postgres
type ObservationSource struct {
	Repo *ObservationRepository
	From time.Time
	To   time.Time
}

// LoadFrame loads the configured date range as a frame
func (s ObservationSource) LoadFrame(ctx context.Context) (*dataset.Frame, error) {
	obs, err := s.Repo.GetRange(ctx, s.From, s.To)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations stored for the requested range")
	}
	return dataset.FromObservations(obs), nil
}
