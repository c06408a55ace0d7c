package model

import (
	"fmt"
	"math"

	"github.com/wonny/stockout/internal/contracts"
)

// RawPredictor returns the positive-class probability directly (booster style)
type RawPredictor interface {
	Predict(row []float64) float64
}

// ClassProbabilityPredictor returns one probability per class; index 1 is stock-out
type ClassProbabilityPredictor interface {
	PredictProba(row []float64) []float64
}

// Adapt resolves a loaded handle into a ProbabilityModel once, at load time.
// 호출 시점마다 타입 검사하지 않도록 여기서 한 번만 판별.
func Adapt(handle any, features []string) (contracts.ProbabilityModel, error) {
	switch h := handle.(type) {
	case contracts.ProbabilityModel:
		return h, nil
	case RawPredictor:
		return &rawAdapter{inner: h, features: features}, nil
	case ClassProbabilityPredictor:
		return &classAdapter{inner: h, features: features}, nil
	}
	return nil, &contracts.UnsupportedModelError{Type: fmt.Sprintf("%T", handle)}
}

type rawAdapter struct {
	inner    RawPredictor
	features []string
}

func (a *rawAdapter) FeatureNames() []string { return a.features }

func (a *rawAdapter) PredictProbability(row []float64) (float64, error) {
	if err := checkWidth(row, a.features); err != nil {
		return 0, err
	}
	return checkProbability(a.inner.Predict(row))
}

type classAdapter struct {
	inner    ClassProbabilityPredictor
	features []string
}

func (a *classAdapter) FeatureNames() []string { return a.features }

func (a *classAdapter) PredictProbability(row []float64) (float64, error) {
	if err := checkWidth(row, a.features); err != nil {
		return 0, err
	}
	proba := a.inner.PredictProba(row)
	if len(proba) < 2 {
		return 0, fmt.Errorf("class probabilities have %d entries, want 2", len(proba))
	}
	return checkProbability(proba[1])
}

func checkWidth(row []float64, features []string) error {
	if len(row) != len(features) {
		return fmt.Errorf("row has %d values but model expects %d features", len(row), len(features))
	}
	return nil
}

func checkProbability(p float64) (float64, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("model returned non-finite probability %v", p)
	}
	return p, nil
}
