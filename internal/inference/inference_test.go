package inference

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/wonny/stockout/internal/contracts"
	"github.com/wonny/stockout/internal/model"
	"github.com/wonny/stockout/pkg/redis"
)

var servedFeatures = []string{"price", "on_promotion", "sales_lag_1", "sales_rmean_7", "days_of_cover", "month"}

// stubModel records the last row and returns a fixed probability
type stubModel struct {
	p       float64
	err     error
	panics  bool
	lastRow []float64
}

func (m *stubModel) PredictProbability(row []float64) (float64, error) {
	if m.panics {
		panic("boom")
	}
	m.lastRow = append([]float64(nil), row...)
	return m.p, m.err
}

func (m *stubModel) FeatureNames() []string { return servedFeatures }

func ptr(v float64) *float64 { return &v }

func TestPredict_OmittedFieldsUseSentinel(t *testing.T) {
	m := &stubModel{p: 0.3}
	c := NewContext(m, servedFeatures, 0.5)

	resp, err := c.Predict(context.Background(), Request{StoreID: 1, ItemID: 1, Date: "2023-06-01"})
	require.NoError(t, err)

	assert.Equal(t, 0.3, resp.StockoutProbability)
	assert.False(t, resp.PredictedStockout)
	assert.Equal(t, []float64{-1, -1, -1, -1, -1, -1}, m.lastRow)
}

func TestPredict_OverridesFollowFeatureOrder(t *testing.T) {
	m := &stubModel{p: 0.9}
	c := NewContext(m, servedFeatures, 0.5)

	req := Request{
		StoreID:     1,
		ItemID:      2,
		Date:        "2023-06-01",
		Price:       ptr(9.99),
		SalesLag1:   ptr(4),
		DaysOfCover: ptr(0.5),
		OnPromotion: ptr(0),
		Features:    map[string]float64{"month": 6, "sales_lag_1": 100, "unknown": 3},
	}
	resp, err := c.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.PredictedStockout)

	// typed field beats the map, unknown names are ignored
	assert.Equal(t, []float64{9.99, 0, 4, -1, 0.5, 6}, m.lastRow)
}

func TestPredict_ThresholdIsInclusive(t *testing.T) {
	c := NewContext(&stubModel{p: 0.5}, servedFeatures, 0.5)
	resp, err := c.Predict(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, resp.PredictedStockout)
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name     string
		model    *stubModel
		features []string
		check    func(t *testing.T, err error)
	}{
		{
			name:  "feature list missing",
			model: &stubModel{p: 0.1},
			check: func(t *testing.T, err error) {
				var ce *contracts.ConfigurationError
				assert.True(t, errors.As(err, &ce))
			},
		},
		{
			name:     "model error",
			model:    &stubModel{err: errors.New("bad row")},
			features: servedFeatures,
			check: func(t *testing.T, err error) {
				var ie *contracts.InferenceError
				require.True(t, errors.As(err, &ie))
				assert.Contains(t, ie.Error(), "bad row")
			},
		},
		{
			name:     "model panic",
			model:    &stubModel{panics: true},
			features: servedFeatures,
			check: func(t *testing.T, err error) {
				var ie *contracts.InferenceError
				assert.True(t, errors.As(err, &ie))
			},
		},
		{
			name:     "non-finite output",
			model:    &stubModel{p: math.NaN()},
			features: servedFeatures,
			check: func(t *testing.T, err error) {
				var ie *contracts.InferenceError
				assert.True(t, errors.As(err, &ie))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContext(tt.model, tt.features, 0.5)
			_, err := c.Predict(context.Background(), Request{StoreID: 1})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

// trainTiny persists a small booster and its feature list under dir
func trainTiny(t *testing.T, dir string) (modelPath, featuresPath string) {
	t.Helper()

	rng := rand.New(rand.NewSource(1))
	n := 200
	X := mat.NewDense(n, len(servedFeatures), nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := range servedFeatures {
			X.Set(i, j, rng.Float64()*10)
		}
		if X.At(i, 4) < 3 {
			y[i] = 1
		}
	}

	p := model.DefaultParams()
	p.NumBoostRound = 10
	p.NumLeaves = 4
	p.MinDataInLeaf = 5
	p.VerboseEval = 0
	b, err := model.Train(model.Dataset{X: X, Y: y}, nil, servedFeatures, p, zerolog.Nop())
	require.NoError(t, err)

	art, err := model.NewArtifact(b, servedFeatures)
	require.NoError(t, err)

	modelPath = filepath.Join(dir, "stockout_model.json")
	featuresPath = filepath.Join(dir, "stockout_model_features.txt")
	require.NoError(t, model.Save(modelPath, art))
	require.NoError(t, model.SaveFeatureList(featuresPath, servedFeatures))
	return modelPath, featuresPath
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	modelPath, featuresPath := trainTiny(t, dir)

	t.Run("ready context scores empty request", func(t *testing.T) {
		c, err := Load(modelPath, featuresPath, 0.5, zerolog.Nop())
		require.NoError(t, err)
		assert.True(t, c.Ready())
		assert.Equal(t, model.KindGBDT, c.Info().Kind)
		assert.Equal(t, servedFeatures, c.Info().Features)

		resp, err := c.Predict(context.Background(), Request{StoreID: 1, ItemID: 1, Date: "2023-06-01"})
		require.NoError(t, err)
		assert.True(t, resp.StockoutProbability >= 0 && resp.StockoutProbability <= 1)

		again, err := c.Predict(context.Background(), Request{StoreID: 1, ItemID: 1, Date: "2023-06-01"})
		require.NoError(t, err)
		assert.Equal(t, resp, again)
	})

	t.Run("missing model", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.json"), featuresPath, 0.5, zerolog.Nop())
		var nf *contracts.ModelNotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("missing feature list", func(t *testing.T) {
		c, err := Load(modelPath, filepath.Join(dir, "absent_features.txt"), 0.5, zerolog.Nop())
		require.NoError(t, err)
		assert.False(t, c.Ready())

		_, err = c.Predict(context.Background(), Request{})
		var ce *contracts.ConfigurationError
		assert.True(t, errors.As(err, &ce))
	})

	t.Run("feature list out of sync", func(t *testing.T) {
		other := filepath.Join(dir, "other_features.txt")
		require.NoError(t, os.WriteFile(other, []byte("price\nmonth\n"), 0o644))
		_, err := Load(modelPath, other, 0.5, zerolog.Nop())
		var ce *contracts.ConfigurationError
		assert.True(t, errors.As(err, &ce))
	})
}

func TestCachedPredictor_DisabledCachePassesThrough(t *testing.T) {
	m := &stubModel{p: 0.7}
	c := NewContext(m, servedFeatures, 0.5)
	p := NewCachedPredictor(c, redis.NewCache(redis.Disabled(), "stockout"), time.Minute, zerolog.Nop())

	resp, err := p.Predict(context.Background(), Request{Price: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, 0.7, resp.StockoutProbability)
	assert.Equal(t, 2.0, m.lastRow[0])
	assert.True(t, p.Ready())

	_, err = NewCachedPredictor(NewContext(m, nil, 0.5), nil, 0, zerolog.Nop()).Predict(context.Background(), Request{})
	var ce *contracts.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}
