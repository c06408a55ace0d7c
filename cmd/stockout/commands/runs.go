package commands

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockout/internal/store"
)

// runsCmd lists recorded training runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "학습 실행 이력 조회",
	Long: `stockout.training_runs에 기록된 학습 실행을 최신 순으로 보여줍니다.

train --record-run 또는 scheduler --record-run 으로 기록됩니다.

Example:
  go run ./cmd/stockout runs --limit 5`,
	RunE: runRuns,
}

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := store.NewRunRepository(db.Pool).ListRuns(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No training runs recorded")
		return nil
	}

	fmt.Printf("%-36s  %-19s  %-8s  %7s  %9s  %9s\n", "RUN ID", "CREATED", "KIND", "HORIZON", "TRAIN AUC", "VALID AUC")
	for _, r := range runs {
		fmt.Printf("%-36s  %-19s  %-8s  %7d  %9s  %9s\n",
			r.RunID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.ModelKind,
			r.Horizon,
			metricCell(r.TrainMetrics, "roc_auc"),
			metricCell(r.ValidMetrics, "roc_auc"),
		)
	}
	return nil
}

// metricCell formats a metric; absent or undefined values print as "-"
func metricCell(m map[string]float64, key string) string {
	v, ok := m[key]
	if !ok || math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}
