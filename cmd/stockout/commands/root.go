package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stockout/internal/model"
	"github.com/wonny/stockout/pkg/config"
	"github.com/wonny/stockout/pkg/logger"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockout",
	Short: "재고 품절 예측 - stock-out forecasting",
	Long: `Stockout Unified CLI

일별 판매/재고 이력으로 매장×품목 품절을 예측합니다.
generate → train → evaluate → api 순서로 사용합니다.

Usage:
  go run ./cmd/stockout [command]

Examples:
  go run ./cmd/stockout generate --out data/sample_data.csv
  go run ./cmd/stockout train --data-path data/sample_data.csv
  go run ./cmd/stockout predict --store-id 1 --item-id 1 --date 2023-06-01
  go run ./cmd/stockout api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// bootstrap loads config and builds the logger shared by every command
func bootstrap() (*config.Config, *logger.Logger, error) {
	if env != "" {
		os.Setenv("ENV", env)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 로그는 stderr, 명령 결과(JSON/표)는 stdout
	return cfg, logger.NewWithWriter(cfg, os.Stderr), nil
}

// loadParams returns the YAML params when a file is given, defaults otherwise
func loadParams(path string) (model.Params, error) {
	if path == "" {
		return model.DefaultParams(), nil
	}
	return model.LoadParams(path)
}

// signalContext is cancelled on Ctrl+C / SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
