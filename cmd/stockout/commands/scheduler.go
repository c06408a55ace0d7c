package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/stockout/internal/model"
	"github.com/wonny/stockout/internal/scheduler"
	"github.com/wonny/stockout/internal/scheduler/jobs"
	"github.com/wonny/stockout/internal/store"
	"github.com/wonny/stockout/pkg/database"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "재학습 스케줄러 관리",
	Long: `cron 기반 모델 재학습 스케줄러를 실행하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/stockout scheduler start
  go run ./cmd/stockout scheduler start --source postgres --record-run
  go run ./cmd/stockout scheduler run retrain_model`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 재학습 작업을 등록합니다.

등록되는 작업:
- retrain_model: RETRAIN_CRON (기본 매일 03:00), 모델/피처 목록 덮어쓰기

실행 중인 API 서버는 재시작해야 새 모델을 로드합니다.
스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runSchedulerStart,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  runSchedulerList,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedRecordRun bool
	schedSource    sourceOptions
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	for _, c := range []*cobra.Command{schedulerStartCmd, schedulerRunCmd} {
		schedSource.register(c)
		c.Flags().BoolVar(&schedRecordRun, "record-run", false, "store each run in postgres training_runs")
	}
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	sched, cleanup, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	sched.Start()

	fmt.Println("Scheduler started")
	fmt.Println("Registered jobs:")
	for name, st := range sched.GetJobStats() {
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  - %s (%s, next %s)\n", name, st.Schedule, next)
	}
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()

	sched.Stop()
	return nil
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Println("Registered jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	sched, cleanup, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	result, err := sched.RunNow(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Job %s finished in %s\n", result.JobName, result.Duration)
	return nil
}

// initScheduler wires the retrain job. The database is opened only when the
// source or the run ledger needs it; cleanup closes it.
func initScheduler(ctx context.Context) (*scheduler.Scheduler, func(), error) {
	cfg, log, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}

	var db *database.DB
	cleanup := func() {
		if db != nil {
			db.Close()
		}
	}
	if schedSource.kind == "postgres" || schedRecordRun {
		if db, err = openDatabase(ctx, cfg, log); err != nil {
			return nil, nil, err
		}
	}

	opts, err := trainingOptions(cfg, model.KindGBDT)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if schedRecordRun {
		opts.Recorder = store.NewRunRepository(db.Pool)
	}

	src, err := buildSource(schedSource, cfg, db)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	sched := scheduler.New(log.WithField("component", "scheduler"))
	job := jobs.NewRetrainJob(src, opts, cfg.Training.RetrainCron, log.WithField("component", "retrain"))
	if err := sched.AddJob(job); err != nil {
		cleanup()
		return nil, nil, err
	}
	return sched, cleanup, nil
}
