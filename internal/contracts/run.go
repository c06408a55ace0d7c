package contracts

import "time"

// TrainingRun is the ledger entry of one training pipeline execution
type TrainingRun struct {
	RunID        string             `json:"run_id"`
	CreatedAt    time.Time          `json:"created_at"`
	ModelKind    string             `json:"model_kind"`
	ModelPath    string             `json:"model_path"`
	Horizon      int                `json:"horizon"`
	Cutoff       time.Time          `json:"cutoff"`
	TrainRows    int                `json:"train_rows"`
	ValidRows    int                `json:"valid_rows"`
	TrainMetrics map[string]float64 `json:"train_metrics"`
	ValidMetrics map[string]float64 `json:"valid_metrics,omitempty"`
}
