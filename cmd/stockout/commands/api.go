package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockout/internal/api"
	"github.com/wonny/stockout/internal/api/handlers"
	"github.com/wonny/stockout/internal/inference"
	"github.com/wonny/stockout/pkg/redis"
)

// apiCmd starts the inference HTTP service
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "예측 API 서버 시작",
	Long: `모델과 피처 목록을 한 번 로드하고 HTTP 예측 서비스를 시작합니다.

모델 파일이 없으면 바로 종료합니다. 피처 목록이 없으면 서버는 뜨지만
/predict 요청은 설정 오류(500)로 거절됩니다.

Endpoints:
  GET  /health
  GET  /model
  POST /predict

Example:
  go run ./cmd/stockout api --port 8080`,
	RunE: runAPI,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "listen port (default PORT)")
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	ctx, cancel := signalContext()
	defer cancel()

	ic, err := inference.Load(cfg.Model.Path, cfg.FeaturesPath(), cfg.Model.Threshold, log.Zerolog())
	if err != nil {
		return err
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		// 캐시는 선택 사항 - 연결 실패 시 캐시 없이 서비스
		log.WithError(err).Error("Redis unavailable, serving without prediction cache")
		rc = redis.Disabled()
	}
	defer rc.Close()

	predictor := inference.NewCachedPredictor(ic, redis.NewCache(rc, "stockout"), cfg.Model.CacheTTL, log.Zerolog())
	router := api.NewRouter(handlers.NewPredictHandler(predictor, log), cfg.RateLimit, log)
	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	log.Info("Server stopped")
	return nil
}
