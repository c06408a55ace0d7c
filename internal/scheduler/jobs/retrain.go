package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/stockout/internal/training"
	"github.com/wonny/stockout/pkg/logger"
)

// RetrainJob reruns the training pipeline and overwrites the model artifacts.
// A running API keeps its loaded model until it is restarted.
type RetrainJob struct {
	source   training.Source
	opts     training.Options
	schedule string
	logger   *logger.Logger

	lastResult *training.Result
}

// NewRetrainJob creates a new retraining job
func NewRetrainJob(source training.Source, opts training.Options, schedule string, log *logger.Logger) *RetrainJob {
	return &RetrainJob{
		source:   source,
		opts:     opts,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *RetrainJob) Name() string {
	return "retrain_model"
}

// Schedule returns the cron schedule (RETRAIN_CRON, 03:00 daily by default)
func (j *RetrainJob) Schedule() string {
	return j.schedule
}

// Run executes the training pipeline once
func (j *RetrainJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled retraining")

	res, err := training.Run(ctx, j.source, j.opts, j.logger.Zerolog())
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}
	j.lastResult = res

	fields := map[string]interface{}{
		"run_id":     res.Artifact.RunID,
		"train_rows": len(res.Split.Train),
		"valid_rows": len(res.Split.Valid),
		"model_path": res.ModelPath,
	}
	if res.Valid != nil {
		fields["valid_roc_auc"] = res.Valid.ROCAUC
	}
	j.logger.WithFields(fields).Info("Retraining completed")

	return nil
}

// LastResult returns the result of the latest successful run, nil before the first
func (j *RetrainJob) LastResult() *training.Result {
	return j.lastResult
}
