package commands

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockout/internal/training"
	"github.com/wonny/stockout/pkg/config"
)

func TestParseFeatureFlags(t *testing.T) {
	got, err := parseFeatureFlags([]string{"dow=3", " stock_on_hand = 2.5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"dow": 3, "stock_on_hand": 2.5}, got)

	got, err = parseFeatureFlags(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"dow", "=3", "dow=x"} {
		_, err := parseFeatureFlags([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestPredictRequest_OnlyChangedFlags(t *testing.T) {
	cmd := predictCmd
	t.Cleanup(func() {
		for _, name := range []string{"store-id", "item-id", "date", "price"} {
			cmd.Flags().Lookup(name).Changed = false
		}
		predFeatures = nil
	})
	require.NoError(t, cmd.Flags().Set("store-id", "4"))
	require.NoError(t, cmd.Flags().Set("item-id", "9"))
	require.NoError(t, cmd.Flags().Set("date", "2023-06-01"))
	require.NoError(t, cmd.Flags().Set("price", "0"))

	req, err := predictRequest(cmd)
	require.NoError(t, err)
	assert.Equal(t, 4, req.StoreID)
	assert.Equal(t, 9, req.ItemID)
	require.NotNil(t, req.Price)
	assert.Equal(t, 0.0, *req.Price)
	assert.Nil(t, req.SalesLag1)
	assert.Nil(t, req.OnPromotion)
}

func TestBuildSource(t *testing.T) {
	cfg := &config.Config{Training: config.TrainingConfig{DataPath: "data/x.csv"}}

	src, err := buildSource(sourceOptions{kind: "csv"}, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, training.CSVSource{Path: "data/x.csv"}, src)

	_, err = buildSource(sourceOptions{kind: "postgres"}, cfg, nil)
	assert.Error(t, err)

	_, err = buildSource(sourceOptions{kind: "parquet"}, cfg, nil)
	assert.Error(t, err)
}

func TestMetricCell(t *testing.T) {
	m := map[string]float64{"roc_auc": 0.91234, "pr_auc": math.NaN()}
	assert.Equal(t, "0.9123", metricCell(m, "roc_auc"))
	assert.Equal(t, "-", metricCell(m, "pr_auc"))
	assert.Equal(t, "-", metricCell(nil, "roc_auc"))
}

func TestAllRows(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, allRows(3))
	assert.Empty(t, allRows(0))
}
