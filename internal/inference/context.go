// Package inference turns single partial records into stock-out predictions.
package inference

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/stockout/internal/contracts"
	"github.com/wonny/stockout/internal/features"
	"github.com/wonny/stockout/internal/model"
)

// Request is a partial record. Every model feature that is not set here is
// scored as the sentinel -1.
type Request struct {
	StoreID int    `json:"store_id"`
	ItemID  int    `json:"item_id"`
	Date    string `json:"date"`

	SalesLag1   *float64 `json:"sales_lag_1,omitempty"`
	SalesRmean7 *float64 `json:"sales_rmean_7,omitempty"`
	DaysOfCover *float64 `json:"days_of_cover,omitempty"`
	OnPromotion *float64 `json:"on_promotion,omitempty"`
	Price       *float64 `json:"price,omitempty"`

	// Features sets any model feature by name; the typed fields above win
	Features map[string]float64 `json:"features,omitempty"`
}

// Values returns the feature values carried by the request
func (r Request) Values() map[string]float64 {
	out := make(map[string]float64, len(r.Features)+5)
	for k, v := range r.Features {
		out[k] = v
	}

	named := []struct {
		name string
		v    *float64
	}{
		{features.LagName(contracts.ColSales, 1), r.SalesLag1},
		{features.RollingMeanName(contracts.ColSales, 7), r.SalesRmean7},
		{features.ColDaysOfCover, r.DaysOfCover},
		{contracts.ColOnPromotion, r.OnPromotion},
		{contracts.ColPrice, r.Price},
	}
	for _, n := range named {
		if n.v != nil {
			out[n.name] = *n.v
		}
	}
	return out
}

// Response is the scored request
type Response struct {
	StockoutProbability float64 `json:"stockout_probability"`
	PredictedStockout   bool    `json:"predicted_stockout"`
}

// ModelInfo describes the loaded model
type ModelInfo struct {
	Kind         string    `json:"kind"`
	RunID        string    `json:"run_id"`
	CreatedAt    time.Time `json:"created_at"`
	Features     []string  `json:"features"`
	ModelPath    string    `json:"model_path"`
	FeaturesPath string    `json:"features_path"`
	Threshold    float64   `json:"threshold"`
}

// Context is built once at startup and only read afterwards, so it is safe
// to share across concurrent requests.
// ⭐ SSOT: 서비스 상태는 이 구조체 하나 (전역 변수 없음)
type Context struct {
	model     contracts.ProbabilityModel
	features  []string // nil: features file was absent
	threshold float64
	info      ModelInfo
}

// NewContext wraps an already adapted model. features may be nil.
func NewContext(m contracts.ProbabilityModel, features []string, threshold float64) *Context {
	return &Context{
		model:     m,
		features:  slices.Clone(features),
		threshold: threshold,
		info:      ModelInfo{Features: slices.Clone(features), Threshold: threshold},
	}
}

// Load reads the model and its feature list. A missing model fails with
// *contracts.ModelNotFoundError; a missing feature list is tolerated here and
// reported as *contracts.ConfigurationError on every request.
func Load(modelPath, featuresPath string, threshold float64, log zerolog.Logger) (*Context, error) {
	log = log.With().Str("component", "inference.Context").Logger()

	art, pm, err := model.Load(modelPath)
	if err != nil {
		return nil, err
	}

	names, err := model.LoadFeatureList(featuresPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", featuresPath).Msg("feature list missing, predictions will fail until it is provided")
		names = nil
	case err != nil:
		return nil, err
	case !slices.Equal(names, art.Features):
		return nil, &contracts.ConfigurationError{
			Reason: fmt.Sprintf("feature list %s does not match the features the model was trained on", featuresPath),
		}
	}

	c := NewContext(pm, names, threshold)
	c.info = ModelInfo{
		Kind:         art.Kind,
		RunID:        art.RunID,
		CreatedAt:    art.CreatedAt,
		Features:     slices.Clone(names),
		ModelPath:    modelPath,
		FeaturesPath: featuresPath,
		Threshold:    threshold,
	}

	log.Info().
		Str("kind", art.Kind).
		Str("run_id", art.RunID).
		Int("features", len(names)).
		Msg("model loaded")
	return c, nil
}

// Info describes the loaded model
func (c *Context) Info() ModelInfo {
	info := c.info
	info.Features = slices.Clone(c.info.Features)
	return info
}

// Ready reports whether requests can be scored
func (c *Context) Ready() bool {
	return c.features != nil
}

// Row builds the model input in feature-list order, sentinel for unset features
func (c *Context) Row(req Request) ([]float64, error) {
	if c.features == nil {
		return nil, &contracts.ConfigurationError{
			Reason: "feature list missing: train the model and include the features file",
		}
	}

	values := req.Values()
	row := make([]float64, len(c.features))
	for i, name := range c.features {
		v, ok := values[name]
		if !ok {
			v = contracts.Sentinel
		}
		row[i] = v
	}
	return row, nil
}

// Predict scores one request
func (c *Context) Predict(_ context.Context, req Request) (*Response, error) {
	row, err := c.Row(req)
	if err != nil {
		return nil, err
	}
	return c.Score(row)
}

// Score runs the model on a prepared row. Any model failure, including a
// panic or a non-finite output, is an *contracts.InferenceError.
func (c *Context) Score(row []float64) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, &contracts.InferenceError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	p, err := c.model.PredictProbability(row)
	if err != nil {
		return nil, &contracts.InferenceError{Err: err}
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return nil, &contracts.InferenceError{Err: fmt.Errorf("non-finite probability %v", p)}
	}

	return &Response{
		StockoutProbability: p,
		PredictedStockout:   p >= c.threshold,
	}, nil
}
