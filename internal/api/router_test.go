package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockout/internal/api/handlers"
	"github.com/wonny/stockout/internal/inference"
	"github.com/wonny/stockout/pkg/config"
	"github.com/wonny/stockout/pkg/logger"
)

// constModel always returns p
type constModel struct{ p float64 }

func (m constModel) PredictProbability([]float64) (float64, error) { return m.p, nil }
func (m constModel) FeatureNames() []string                        { return []string{"price", "sales_lag_1"} }

func newTestRouter(rl config.RateLimitConfig) http.Handler {
	ctx := inference.NewContext(constModel{p: 0.25}, []string{"price", "sales_lag_1"}, 0.5)
	return NewRouter(handlers.NewPredictHandler(ctx, logger.Nop()), rl, logger.Nop())
}

func TestRouter_PredictWithOmittedFields(t *testing.T) {
	r := newTestRouter(config.RateLimitConfig{})

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"store_id":1,"item_id":1,"date":"2023-06-01"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp inference.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0.25, resp.StockoutProbability)
	assert.False(t, resp.PredictedStockout)
}

func TestRouter_MethodsAndRoutes(t *testing.T) {
	r := newTestRouter(config.RateLimitConfig{})

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/model", http.StatusOK},
		{http.MethodGet, "/predict", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRouter_RateLimit(t *testing.T) {
	r := newTestRouter(config.RateLimitConfig{RPS: 0.001, Burst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

type panicModel struct{}

func (panicModel) PredictProbability([]float64) (float64, error) { panic("model exploded") }
func (panicModel) FeatureNames() []string                        { return nil }

func TestRouter_ModelPanicIsInferenceError(t *testing.T) {
	ctx := inference.NewContext(panicModel{}, []string{"price"}, 0.5)
	r := NewRouter(handlers.NewPredictHandler(ctx, logger.Nop()), config.RateLimitConfig{}, logger.Nop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"store_id":1,"item_id":1,"date":"d"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "model prediction failed")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestServer_Shutdown(t *testing.T) {
	cfg := &config.Config{Port: "0", Env: "development"}
	s := New(cfg, logger.Nop(), newTestRouter(config.RateLimitConfig{}))
	require.NoError(t, s.Shutdown(context.Background()))
}
