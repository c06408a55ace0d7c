package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockout/internal/dataset"
	"github.com/wonny/stockout/internal/model"
	"github.com/wonny/stockout/internal/store"
	"github.com/wonny/stockout/internal/training"
	"github.com/wonny/stockout/pkg/config"
	"github.com/wonny/stockout/pkg/database"
	"github.com/wonny/stockout/pkg/logger"
)

// trainCmd runs the training pipeline
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "품절 예측 모델 학습",
	Long: `CSV 또는 Postgres 이력으로 라벨/피처를 만들고 모델을 학습합니다.

날짜 분포의 80% 지점을 기준으로 학습/검증을 나누고,
모델(JSON)과 피처 목록(<model>_features.txt)을 함께 저장합니다.

Example:
  go run ./cmd/stockout train --data-path data/sample_data.csv --model-out models/stockout_model.json --horizon 7
  go run ./cmd/stockout train --source postgres --record-run`,
	RunE: runTrain,
}

var (
	trainDataPath  string
	trainModelOut  string
	trainHorizon   int
	trainParams    string
	trainModelType string
	trainRecordRun bool
	sourceFlags    sourceOptions
)

// sourceOptions selects where training data comes from
type sourceOptions struct {
	kind string // csv | postgres
	from string
	to   string
}

func (s *sourceOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.kind, "source", "csv", "training data source (csv|postgres)")
	cmd.Flags().StringVar(&s.from, "from", "", "first date to load from postgres (inclusive)")
	cmd.Flags().StringVar(&s.to, "to", "", "last date to load from postgres (inclusive)")
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&trainDataPath, "data-path", "", "training CSV (default TRAIN_DATA_PATH)")
	trainCmd.Flags().StringVar(&trainModelOut, "model-out", "", "model output path (default MODEL_PATH)")
	trainCmd.Flags().IntVar(&trainHorizon, "horizon", 0, "label horizon in days (default TRAIN_HORIZON)")
	trainCmd.Flags().StringVar(&trainParams, "params", "", "YAML hyperparameter file (default TRAIN_PARAMS_FILE)")
	trainCmd.Flags().StringVar(&trainModelType, "model-type", model.KindGBDT, "model kind (gbdt|logistic)")
	trainCmd.Flags().BoolVar(&trainRecordRun, "record-run", false, "store the run in postgres training_runs")
	sourceFlags.register(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	applyTrainingOverrides(cfg)

	opts, err := trainingOptions(cfg, trainModelType)
	if err != nil {
		return err
	}

	var db *database.DB
	if sourceFlags.kind == "postgres" || trainRecordRun {
		if db, err = openDatabase(ctx, cfg, log); err != nil {
			return err
		}
		defer db.Close()
	}
	if trainRecordRun {
		opts.Recorder = store.NewRunRepository(db.Pool)
	}

	src, err := buildSource(sourceFlags, cfg, db)
	if err != nil {
		return err
	}

	res, err := training.Run(ctx, src, opts, log.Zerolog())
	if err != nil {
		return err
	}

	printTrainingSummary(res)
	return nil
}

// applyTrainingOverrides lets CLI flags win over environment config
func applyTrainingOverrides(cfg *config.Config) {
	if trainDataPath != "" {
		cfg.Training.DataPath = trainDataPath
	}
	if trainModelOut != "" {
		cfg.Model.Path = trainModelOut
	}
	if trainHorizon > 0 {
		cfg.Training.Horizon = trainHorizon
	}
	if trainParams != "" {
		cfg.Training.ParamsFile = trainParams
	}
}

// trainingOptions maps config onto pipeline options
func trainingOptions(cfg *config.Config, kind string) (training.Options, error) {
	params, err := loadParams(cfg.Training.ParamsFile)
	if err != nil {
		return training.Options{}, err
	}

	opts := training.DefaultOptions()
	opts.ModelOut = cfg.Model.Path
	opts.Horizon = cfg.Training.Horizon
	opts.ModelKind = kind
	opts.Params = params
	opts.Threshold = cfg.Model.Threshold
	return opts, nil
}

// buildSource returns the CSV or Postgres observation source
func buildSource(so sourceOptions, cfg *config.Config, db *database.DB) (training.Source, error) {
	switch so.kind {
	case "csv":
		return training.CSVSource{Path: cfg.Training.DataPath}, nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres source requires a database connection")
		}
		from, err := optionalDate(so.from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}
		to, err := optionalDate(so.to)
		if err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
		return store.ObservationSource{Repo: store.NewObservationRepository(db.Pool), From: from, To: to}, nil
	}
	return nil, fmt.Errorf("unknown source %q (csv|postgres)", so.kind)
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return dataset.ParseDate(s)
}

// openDatabase connects and applies the schema, for commands that always need Postgres
func openDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.DB, error) {
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("Connected to database")
	return db, nil
}

func printTrainingSummary(res *training.Result) {
	fmt.Printf("Training rows: %d  Validation rows: %d  (cutoff %s)\n",
		len(res.Split.Train), len(res.Split.Valid), res.Split.Cutoff.Format(time.RFC3339))
	printReport("Train", res.Train)
	if res.Valid != nil {
		printReport("Valid", res.Valid)
	}
	fmt.Printf("Model saved: %s (run %s)\n", res.ModelPath, res.Artifact.RunID)
	fmt.Printf("Saved feature list to: %s\n", res.FeaturesPath)
}
