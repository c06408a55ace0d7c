package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockout/internal/dataset"
	"github.com/wonny/stockout/internal/generator"
	"github.com/wonny/stockout/internal/model"
	"github.com/wonny/stockout/internal/scheduler"
	"github.com/wonny/stockout/internal/training"
	"github.com/wonny/stockout/pkg/logger"
)

func TestRetrainJob_ThroughScheduler(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "sample.csv")
	obs := generator.Generate(generator.Config{
		Start:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:    90,
		NStores: 1,
		NItems:  3,
		Seed:    3,
	})
	require.NoError(t, dataset.WriteObservationsCSVFile(csvPath, obs))

	opts := training.DefaultOptions()
	opts.ModelOut = filepath.Join(dir, "models", "stockout_model.json")
	opts.Params.NumBoostRound = 5
	opts.Params.MinDataInLeaf = 5
	opts.Params.VerboseEval = 0

	job := NewRetrainJob(training.CSVSource{Path: csvPath}, opts, "0 0 3 * * *", logger.Nop())
	assert.Nil(t, job.LastResult())

	s := scheduler.New(logger.Nop())
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), job.Name())
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.NotNil(t, job.LastResult())
	art, _, err := model.Load(opts.ModelOut)
	require.NoError(t, err)
	assert.Equal(t, job.LastResult().Artifact.RunID, art.RunID)
}

func TestRetrainJob_MissingData(t *testing.T) {
	opts := training.DefaultOptions()
	opts.ModelOut = filepath.Join(t.TempDir(), "m.json")

	job := NewRetrainJob(training.CSVSource{Path: "does/not/exist.csv"}, opts, "@daily", logger.Nop())
	assert.Error(t, job.Run(context.Background()))
	assert.Nil(t, job.LastResult())
}
