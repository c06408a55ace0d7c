package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/stockout/internal/dataset"
	"github.com/wonny/stockout/internal/store"
)

// ingestCmd bulk-loads a history CSV into Postgres
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "CSV 이력을 Postgres에 적재",
	Long: `판매/재고 CSV를 stockout.observations 테이블에 적재합니다.

같은 (store_id, item_id, date)는 덮어씁니다.
DATABASE_URL이 필요합니다.

Example:
  go run ./cmd/stockout ingest --data-path data/sample_data.csv`,
	RunE: runIngest,
}

var ingestDataPath string

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestDataPath, "data-path", "", "CSV to load (default TRAIN_DATA_PATH)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	path := cfg.Training.DataPath
	if ingestDataPath != "" {
		path = ingestDataPath
	}

	ctx, cancel := signalContext()
	defer cancel()

	raw, err := dataset.ReadCSVFile(path)
	if err != nil {
		return err
	}
	prepared, err := dataset.PrepareDataset(raw)
	if err != nil {
		return err
	}
	obs, err := dataset.ObservationsFromFrame(prepared)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := store.NewObservationRepository(db.Pool)
	n, err := repo.Upsert(ctx, obs)
	if err != nil {
		return err
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"path":     path,
		"upserted": n,
		"total":    total,
	}).Info("Observations ingested")
	fmt.Printf("Ingested %d rows from %s (table now holds %d)\n", n, path, total)
	return nil
}
