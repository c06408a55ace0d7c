package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockout/internal/contracts"
)

// RunRepository stores the training run ledger
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// SaveRun inserts one run; it satisfies training.RunRecorder
func (r *RunRepository) SaveRun(ctx context.Context, run contracts.TrainingRun) error {
	trainMetrics, err := metricsJSON(run.TrainMetrics)
	if err != nil {
		return err
	}
	var validMetrics []byte
	if run.ValidMetrics != nil {
		if validMetrics, err = metricsJSON(run.ValidMetrics); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO stockout.training_runs
			(run_id, created_at, model_kind, model_path, horizon, cutoff,
			 train_rows, valid_rows, train_metrics, valid_metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		run.RunID, run.CreatedAt, run.ModelKind, run.ModelPath, run.Horizon, run.Cutoff,
		run.TrainRows, run.ValidRows, trainMetrics, validMetrics,
	)
	if err != nil {
		return fmt.Errorf("insert training run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]contracts.TrainingRun, error) {
	query := `
		SELECT run_id::text, created_at, model_kind, model_path, horizon, cutoff,
		       train_rows, valid_rows, train_metrics, valid_metrics
		FROM stockout.training_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []contracts.TrainingRun
	for rows.Next() {
		var run contracts.TrainingRun
		var trainMetrics, validMetrics []byte
		if err := rows.Scan(
			&run.RunID, &run.CreatedAt, &run.ModelKind, &run.ModelPath, &run.Horizon, &run.Cutoff,
			&run.TrainRows, &run.ValidRows, &trainMetrics, &validMetrics,
		); err != nil {
			return nil, err
		}
		if run.TrainMetrics, err = decodeMetrics(trainMetrics); err != nil {
			return nil, err
		}
		if run.ValidMetrics, err = decodeMetrics(validMetrics); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// metricsJSON encodes metrics; NaN/Inf (e.g. AUC of a single-class split) become null
func metricsJSON(m map[string]float64) ([]byte, error) {
	clean := make(map[string]*float64, len(m))
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			clean[k] = nil
			continue
		}
		clean[k] = &v
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("encode metrics: %w", err)
	}
	return data, nil
}

// decodeMetrics reverses metricsJSON; null comes back as NaN
func decodeMetrics(data []byte) (map[string]float64, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		if v == nil {
			out[k] = math.NaN()
		} else {
			out[k] = *v
		}
	}
	return out, nil
}
