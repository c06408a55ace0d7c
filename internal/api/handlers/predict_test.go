package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockout/internal/contracts"
	"github.com/wonny/stockout/internal/inference"
	"github.com/wonny/stockout/pkg/logger"
)

type stubPredictor struct {
	resp    *inference.Response
	err     error
	lastReq inference.Request
}

func (s *stubPredictor) Predict(_ context.Context, req inference.Request) (*inference.Response, error) {
	s.lastReq = req
	return s.resp, s.err
}

func (s *stubPredictor) Info() inference.ModelInfo {
	return inference.ModelInfo{Kind: "gbdt", RunID: "run-1", Features: []string{"price"}, Threshold: 0.5}
}

func (s *stubPredictor) Ready() bool { return s.err == nil }

func doPredict(t *testing.T, p Predictor, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewPredictHandler(p, logger.Nop())
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Predict(rec, req)
	return rec
}

func TestPredict_OK(t *testing.T) {
	p := &stubPredictor{resp: &inference.Response{StockoutProbability: 0.8, PredictedStockout: true}}

	rec := doPredict(t, p, `{"store_id": 3, "item_id": 7, "date": "2023-06-01", "price": 4.5, "on_promotion": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0.8, got["stockout_probability"])
	assert.Equal(t, true, got["predicted_stockout"])

	assert.Equal(t, 3, p.lastReq.StoreID)
	assert.Equal(t, 7, p.lastReq.ItemID)
	assert.Equal(t, "2023-06-01", p.lastReq.Date)
	require.NotNil(t, p.lastReq.Price)
	assert.Equal(t, 4.5, *p.lastReq.Price)
	require.NotNil(t, p.lastReq.OnPromotion)
	assert.Nil(t, p.lastReq.SalesLag1)
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		substr string
	}{
		{name: "malformed json", body: `{"store_id":`, status: http.StatusBadRequest, substr: "invalid request body"},
		{name: "wrong type", body: `{"store_id":"x","item_id":1,"date":"2023-01-01"}`, status: http.StatusBadRequest},
		{name: "missing identifiers", body: `{"price": 3}`, status: http.StatusBadRequest, substr: "required"},
		{
			name:   "feature list missing",
			body:   `{"store_id":1,"item_id":1,"date":"2023-01-01"}`,
			err:    &contracts.ConfigurationError{Reason: "feature list missing"},
			status: http.StatusInternalServerError,
			substr: "feature list missing",
		},
		{
			name:   "model failure",
			body:   `{"store_id":1,"item_id":1,"date":"2023-01-01"}`,
			err:    &contracts.InferenceError{Err: errors.New("boom")},
			status: http.StatusInternalServerError,
			substr: "model prediction failed: boom",
		},
		{
			name:   "unexpected",
			body:   `{"store_id":1,"item_id":1,"date":"2023-01-01"}`,
			err:    errors.New("other"),
			status: http.StatusInternalServerError,
			substr: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doPredict(t, &stubPredictor{err: tt.err}, tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Contains(t, got["error"], tt.substr)
		})
	}
}

func TestModelAndHealth(t *testing.T) {
	h := NewPredictHandler(&stubPredictor{}, logger.Nop())

	rec := httptest.NewRecorder()
	h.Model(rec, httptest.NewRequest(http.MethodGet, "/model", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info inference.ModelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "run-1", info.RunID)
	assert.Equal(t, []string{"price"}, info.Features)

	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, true, health["features_loaded"])
}
