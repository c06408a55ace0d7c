package database

// schema is applied in order by EnsureSchema; every statement is idempotent
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS stockout`,

	`CREATE TABLE IF NOT EXISTS stockout.observations (
		store_id           INTEGER       NOT NULL,
		item_id            INTEGER       NOT NULL,
		obs_date           DATE          NOT NULL,
		price              NUMERIC(12,2) NOT NULL,
		on_promotion       BOOLEAN       NOT NULL DEFAULT FALSE,
		is_holiday         BOOLEAN       NOT NULL DEFAULT FALSE,
		shipments_received INTEGER       NOT NULL DEFAULT 0,
		sales              INTEGER       NOT NULL DEFAULT 0,
		stock_on_hand      INTEGER       NOT NULL CHECK (stock_on_hand >= 0),
		PRIMARY KEY (store_id, item_id, obs_date)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_observations_date ON stockout.observations (obs_date)`,

	`CREATE TABLE IF NOT EXISTS stockout.training_runs (
		run_id        UUID        PRIMARY KEY,
		created_at    TIMESTAMPTZ NOT NULL,
		model_kind    TEXT        NOT NULL,
		model_path    TEXT        NOT NULL,
		horizon       INTEGER     NOT NULL,
		cutoff        TIMESTAMPTZ NOT NULL,
		train_rows    INTEGER     NOT NULL,
		valid_rows    INTEGER     NOT NULL,
		train_metrics JSONB       NOT NULL,
		valid_metrics JSONB
	)`,
}
