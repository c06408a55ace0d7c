package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/stockout/internal/contracts"
	"github.com/wonny/stockout/internal/inference"
	"github.com/wonny/stockout/pkg/logger"
)

// maxBodyBytes bounds a single prediction request
const maxBodyBytes = 1 << 20

// Predictor is what the handler needs from the inference layer
type Predictor interface {
	Predict(ctx context.Context, req inference.Request) (*inference.Response, error)
	Info() inference.ModelInfo
	Ready() bool
}

// PredictHandler serves the prediction endpoints
// ⭐ SSOT: 예측 API 핸들러는 이 구조체에서만
type PredictHandler struct {
	predictor Predictor
	logger    *logger.Logger
}

// NewPredictHandler creates a new predict handler
func NewPredictHandler(predictor Predictor, log *logger.Logger) *PredictHandler {
	return &PredictHandler{
		predictor: predictor,
		logger:    log,
	}
}

// predictPayload shadows the identifiers so absent ones can be detected
type predictPayload struct {
	inference.Request
	StoreID *int    `json:"store_id"`
	ItemID  *int    `json:"item_id"`
	Date    *string `json:"date"`
}

// Predict scores one partial record
// POST /predict
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var payload predictPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if payload.StoreID == nil || payload.ItemID == nil || payload.Date == nil {
		respondError(w, http.StatusBadRequest, "store_id, item_id and date are required")
		return
	}

	req := payload.Request
	req.StoreID, req.ItemID, req.Date = *payload.StoreID, *payload.ItemID, *payload.Date

	resp, err := h.predictor.Predict(r.Context(), req)
	if err != nil {
		h.respondPredictError(w, req, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *PredictHandler) respondPredictError(w http.ResponseWriter, req inference.Request, err error) {
	log := h.logger.WithError(err).WithFields(map[string]interface{}{
		"store_id": req.StoreID,
		"item_id":  req.ItemID,
		"date":     req.Date,
	})

	var ce *contracts.ConfigurationError
	var ie *contracts.InferenceError
	switch {
	case errors.As(err, &ce):
		log.Error("Prediction refused: service misconfigured")
		respondError(w, http.StatusInternalServerError, ce.Error())
	case errors.As(err, &ie):
		log.Error("Prediction failed")
		respondError(w, http.StatusInternalServerError, ie.Error())
	default:
		log.Error("Unexpected prediction error")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Model describes the loaded model
// GET /model
func (h *PredictHandler) Model(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.predictor.Info())
}

// Health reports liveness and whether the feature list is loaded
// GET /health
func (h *PredictHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"service":         "stockout-api",
		"features_loaded": h.predictor.Ready(),
	})
}
