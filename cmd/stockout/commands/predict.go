package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockout/internal/api"
	"github.com/wonny/stockout/internal/inference"
	"github.com/wonny/stockout/pkg/config"
	"github.com/wonny/stockout/pkg/httputil"
)

// predictCmd scores one record locally
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "단건 품절 확률 예측",
	Long: `API 서버와 같은 inference.Context로 한 건을 예측합니다.

지정하지 않은 피처는 -1(sentinel)로 채워집니다.

Example:
  go run ./cmd/stockout predict --store-id 1 --item-id 1 --date 2023-06-01
  go run ./cmd/stockout predict --store-id 1 --item-id 1 --date 2023-06-01 --sales-lag-1 3 --price 4.5
  go run ./cmd/stockout predict --store-id 1 --item-id 1 --date 2023-06-01 --feature dow=3 --feature stock_on_hand=2
  go run ./cmd/stockout predict --remote http://localhost:8080 --store-id 1 --item-id 1 --date 2023-06-01`,
	RunE: runPredict,
}

var (
	predModel       string
	predThreshold   float64
	predStoreID     int
	predItemID      int
	predDate        string
	predSalesLag1   float64
	predSalesRmean7 float64
	predDaysOfCover float64
	predOnPromotion float64
	predPrice       float64
	predFeatures    []string
	predRemote      string
)

func init() {
	rootCmd.AddCommand(predictCmd)

	f := predictCmd.Flags()
	f.StringVar(&predModel, "model", "", "model path (default MODEL_PATH)")
	f.Float64Var(&predThreshold, "threshold", 0, "decision threshold (default PREDICT_THRESHOLD)")
	f.IntVar(&predStoreID, "store-id", 0, "store id")
	f.IntVar(&predItemID, "item-id", 0, "item id")
	f.StringVar(&predDate, "date", "", "observation date (YYYY-MM-DD)")
	f.Float64Var(&predSalesLag1, "sales-lag-1", 0, "previous day sales")
	f.Float64Var(&predSalesRmean7, "sales-rmean-7", 0, "7 day rolling mean of sales")
	f.Float64Var(&predDaysOfCover, "days-of-cover", 0, "stock / average daily sales")
	f.Float64Var(&predOnPromotion, "on-promotion", 0, "promotion flag (0|1)")
	f.Float64Var(&predPrice, "price", 0, "unit price")
	f.StringVar(&predRemote, "remote", "", "score through a running API (base URL) instead of loading the model")
	f.StringArrayVar(&predFeatures, "feature", nil, "any model feature as name=value (repeatable)")

	_ = predictCmd.MarkFlagRequired("store-id")
	_ = predictCmd.MarkFlagRequired("item-id")
	_ = predictCmd.MarkFlagRequired("date")
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	modelPath := cfg.Model.Path
	if predModel != "" {
		modelPath = predModel
	}
	threshold := cfg.Model.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = predThreshold
	}

	req, err := predictRequest(cmd)
	if err != nil {
		return err
	}

	var resp *inference.Response
	if predRemote != "" {
		client := api.NewClient(predRemote, httputil.New(log, 10*time.Second))
		resp, err = client.Predict(cmd.Context(), req)
	} else {
		var ic *inference.Context
		if ic, err = inference.Load(modelPath, config.FeaturesPathFor(modelPath), threshold, log.Zerolog()); err != nil {
			return err
		}
		resp, err = ic.Predict(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// predictRequest builds the request; only flags given on the command line are set
func predictRequest(cmd *cobra.Command) (inference.Request, error) {
	req := inference.Request{StoreID: predStoreID, ItemID: predItemID, Date: predDate}

	typed := []struct {
		flag string
		v    float64
		dst  **float64
	}{
		{"sales-lag-1", predSalesLag1, &req.SalesLag1},
		{"sales-rmean-7", predSalesRmean7, &req.SalesRmean7},
		{"days-of-cover", predDaysOfCover, &req.DaysOfCover},
		{"on-promotion", predOnPromotion, &req.OnPromotion},
		{"price", predPrice, &req.Price},
	}
	for _, t := range typed {
		if cmd.Flags().Changed(t.flag) {
			v := t.v
			*t.dst = &v
		}
	}

	features, err := parseFeatureFlags(predFeatures)
	if err != nil {
		return req, err
	}
	req.Features = features
	return req, nil
}

// parseFeatureFlags parses repeated name=value pairs
func parseFeatureFlags(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --feature %q: want name=value", p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --feature %q: %w", p, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}
