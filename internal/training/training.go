// Package training runs the end-to-end pipeline:
// load → prepare → label → features → time split → fit → evaluate → persist.
package training

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/stockout/internal/contracts"
	"github.com/wonny/stockout/internal/dataset"
	"github.com/wonny/stockout/internal/evaluation"
	"github.com/wonny/stockout/internal/features"
	"github.com/wonny/stockout/internal/labeling"
	"github.com/wonny/stockout/internal/model"
	"github.com/wonny/stockout/pkg/config"
)

// Source supplies the raw observation table
type Source interface {
	LoadFrame(ctx context.Context) (*dataset.Frame, error)
}

// RunRecorder stores the run ledger entry (Postgres in production)
type RunRecorder interface {
	SaveRun(ctx context.Context, run contracts.TrainingRun) error
}

// CSVSource reads the generator/training CSV
type CSVSource struct {
	Path string
}

// LoadFrame implements Source
func (s CSVSource) LoadFrame(ctx context.Context) (*dataset.Frame, error) {
	return dataset.ReadCSVFile(s.Path)
}

// Options configures one pipeline run
type Options struct {
	ModelOut      string
	Horizon       int
	ModelKind     string // model.KindGBDT (default) or model.KindLogistic
	Params        model.Params
	Threshold     float64
	TrainQuantile float64
	Recorder      RunRecorder // optional
}

// DefaultOptions returns horizon 7, GBDT with default params, threshold 0.5
func DefaultOptions() Options {
	return Options{
		ModelOut:      "models/stockout_model.json",
		Horizon:       7,
		ModelKind:     model.KindGBDT,
		Params:        model.DefaultParams(),
		Threshold:     evaluation.DefaultThreshold,
		TrainQuantile: DefaultTrainQuantile,
	}
}

// Result summarizes a finished run
type Result struct {
	Artifact     *model.Artifact
	Features     []string
	Split        *Split
	Train        *evaluation.Report
	Valid        *evaluation.Report // nil when the validation split is empty
	ModelPath    string
	FeaturesPath string
}

// Run executes the full training pipeline and writes the model and its
// feature list next to each other
func Run(ctx context.Context, src Source, opts Options, log zerolog.Logger) (*Result, error) {
	log = log.With().Str("component", "training.Pipeline").Logger()

	if opts.ModelKind == "" {
		opts.ModelKind = model.KindGBDT
	}
	if opts.TrainQuantile == 0 {
		opts.TrainQuantile = DefaultTrainQuantile
	}

	raw, err := src.LoadFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("load training data: %w", err)
	}
	log.Info().Int("rows", raw.Len()).Msg("training data loaded")

	frame, err := BuildFrame(raw, opts.Horizon)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := features.FeatureColumns(frame)
	split, err := TimeSplit(frame, opts.TrainQuantile)
	if err != nil {
		return nil, err
	}
	log.Info().
		Time("cutoff", split.Cutoff).
		Int("train_rows", len(split.Train)).
		Int("valid_rows", len(split.Valid)).
		Int("features", len(names)).
		Msg("time split")

	train, err := Matrix(frame, names, split.Train, contracts.ColLabel)
	if err != nil {
		return nil, err
	}
	valid, err := Matrix(frame, names, split.Valid, contracts.ColLabel)
	if err != nil {
		return nil, err
	}

	var handle any
	switch opts.ModelKind {
	case model.KindGBDT:
		handle, err = model.Train(train, &valid, names, opts.Params, log)
	case model.KindLogistic:
		handle, err = model.TrainLogistic(train, names, opts.Params, log)
	default:
		return nil, &contracts.UnsupportedModelError{Type: opts.ModelKind}
	}
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", opts.ModelKind, err)
	}

	pm, err := model.Adapt(handle, names)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Features:     names,
		Split:        split,
		ModelPath:    opts.ModelOut,
		FeaturesPath: config.FeaturesPathFor(opts.ModelOut),
	}

	if res.Train, err = evaluation.Evaluate(pm, train.X, train.Y, opts.Threshold); err != nil {
		return nil, fmt.Errorf("evaluate train split: %w", err)
	}
	logReport(log, "train", res.Train)

	if valid.Rows() > 0 {
		if res.Valid, err = evaluation.Evaluate(pm, valid.X, valid.Y, opts.Threshold); err != nil {
			return nil, fmt.Errorf("evaluate valid split: %w", err)
		}
		logReport(log, "valid", res.Valid)
	}

	if res.Artifact, err = model.NewArtifact(handle, names); err != nil {
		return nil, err
	}
	if err := model.Save(res.ModelPath, res.Artifact); err != nil {
		return nil, err
	}
	if err := model.SaveFeatureList(res.FeaturesPath, names); err != nil {
		return nil, err
	}
	log.Info().
		Str("run_id", res.Artifact.RunID).
		Str("model_path", res.ModelPath).
		Str("features_path", res.FeaturesPath).
		Msg("model saved")

	if opts.Recorder != nil {
		if err := opts.Recorder.SaveRun(ctx, res.Record(opts.Horizon)); err != nil {
			return nil, fmt.Errorf("record training run: %w", err)
		}
	}

	return res, nil
}

// BuildFrame applies prepare → label → features and returns the model-ready table
func BuildFrame(raw *dataset.Frame, horizon int) (*dataset.Frame, error) {
	prepared, err := dataset.PrepareDataset(raw)
	if err != nil {
		return nil, err
	}

	lopts := labeling.DefaultOptions()
	lopts.Horizon = horizon
	labeled, err := labeling.CreateLabel(prepared, lopts)
	if err != nil {
		return nil, err
	}

	return features.BuildFeatures(labeled, features.DefaultOptions())
}

// Record converts the result into a ledger entry
func (r *Result) Record(horizon int) contracts.TrainingRun {
	run := contracts.TrainingRun{
		RunID:        r.Artifact.RunID,
		CreatedAt:    r.Artifact.CreatedAt,
		ModelKind:    r.Artifact.Kind,
		ModelPath:    r.ModelPath,
		Horizon:      horizon,
		Cutoff:       r.Split.Cutoff,
		TrainRows:    len(r.Split.Train),
		ValidRows:    len(r.Split.Valid),
		TrainMetrics: r.Train.Metrics(),
	}
	if r.Valid != nil {
		run.ValidMetrics = r.Valid.Metrics()
	}
	return run
}

func logReport(log zerolog.Logger, split string, r *evaluation.Report) {
	log.Info().
		Str("split", split).
		Int("rows", r.Rows).
		Float64("roc_auc", r.ROCAUC).
		Float64("pr_auc", r.PRAUC).
		Float64("precision", r.Precision).
		Float64("recall", r.Recall).
		Float64("f1", r.F1).
		Msg("metrics")
}
