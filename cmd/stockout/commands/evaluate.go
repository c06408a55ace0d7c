package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/stockout/internal/contracts"
	"github.com/wonny/stockout/internal/dataset"
	"github.com/wonny/stockout/internal/evaluation"
	"github.com/wonny/stockout/internal/model"
	"github.com/wonny/stockout/internal/training"
)

// evaluateCmd re-scores a saved model
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "저장된 모델 재평가",
	Long: `저장된 모델을 데이터셋에 다시 적용해 ROC-AUC, PR-AUC, 정밀도/재현율을 출력합니다.

모델에 저장된 피처 순서를 그대로 사용합니다.

Example:
  go run ./cmd/stockout evaluate --data-path data/sample_data.csv --model models/stockout_model.json
  go run ./cmd/stockout evaluate --valid-only --threshold 0.3`,
	RunE: runEvaluate,
}

var (
	evalDataPath  string
	evalModel     string
	evalHorizon   int
	evalThreshold float64
	evalValidOnly bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalDataPath, "data-path", "", "CSV to score (default TRAIN_DATA_PATH)")
	evaluateCmd.Flags().StringVar(&evalModel, "model", "", "model path (default MODEL_PATH)")
	evaluateCmd.Flags().IntVar(&evalHorizon, "horizon", 0, "label horizon in days (default TRAIN_HORIZON)")
	evaluateCmd.Flags().Float64Var(&evalThreshold, "threshold", 0, "decision threshold (default PREDICT_THRESHOLD)")
	evaluateCmd.Flags().BoolVar(&evalValidOnly, "valid-only", false, "score only the rows after the 80% date cutoff")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	dataPath := cfg.Training.DataPath
	if evalDataPath != "" {
		dataPath = evalDataPath
	}
	modelPath := cfg.Model.Path
	if evalModel != "" {
		modelPath = evalModel
	}
	horizon := cfg.Training.Horizon
	if evalHorizon > 0 {
		horizon = evalHorizon
	}
	threshold := cfg.Model.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = evalThreshold
	}

	art, pm, err := model.Load(modelPath)
	if err != nil {
		return err
	}

	raw, err := dataset.ReadCSVFile(dataPath)
	if err != nil {
		return err
	}
	frame, err := training.BuildFrame(raw, horizon)
	if err != nil {
		return err
	}

	rows := allRows(frame.Len())
	label := "All"
	if evalValidOnly {
		split, err := training.TimeSplit(frame, training.DefaultTrainQuantile)
		if err != nil {
			return err
		}
		rows, label = split.Valid, "Valid"
	}
	if len(rows) == 0 {
		return fmt.Errorf("no rows to evaluate")
	}

	data, err := training.Matrix(frame, art.Features, rows, contracts.ColLabel)
	if err != nil {
		return err
	}
	report, err := evaluation.Evaluate(pm, data.X, data.Y, threshold)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"model":  modelPath,
		"run_id": art.RunID,
		"rows":   report.Rows,
	}).Info("Evaluation finished")

	fmt.Printf("Model %s (%s, run %s)\n", modelPath, art.Kind, art.RunID)
	printReport(label, report)
	return nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}
