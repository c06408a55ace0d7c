package model

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Model kinds understood by Save/Load
const (
	KindGBDT     = "gbdt"
	KindLogistic = "logistic"
)

// Params are the training hyperparameters. Field names follow the usual
// gradient-boosting parameter dictionary so a YAML file reads naturally.
type Params struct {
	Objective       string  `yaml:"objective" json:"objective"`
	Metric          string  `yaml:"metric" json:"metric"`
	BoostingType    string  `yaml:"boosting_type" json:"boosting_type"`
	LearningRate    float64 `yaml:"learning_rate" json:"learning_rate"`
	NumLeaves       int     `yaml:"num_leaves" json:"num_leaves"`
	MaxDepth        int     `yaml:"max_depth" json:"max_depth"` // <= 0: unlimited
	FeatureFraction float64 `yaml:"feature_fraction" json:"feature_fraction"`
	BaggingFraction float64 `yaml:"bagging_fraction" json:"bagging_fraction"`
	MinDataInLeaf   int     `yaml:"min_data_in_leaf" json:"min_data_in_leaf"`
	MinSumHessian   float64 `yaml:"min_sum_hessian_in_leaf" json:"min_sum_hessian_in_leaf"`
	LambdaL2        float64 `yaml:"lambda_l2" json:"lambda_l2"`
	MaxBin          int     `yaml:"max_bin" json:"max_bin"`
	Seed            int64   `yaml:"seed" json:"seed"`

	NumBoostRound       int `yaml:"num_boost_round" json:"num_boost_round"`
	EarlyStoppingRounds int `yaml:"early_stopping_rounds" json:"early_stopping_rounds"`
	VerboseEval         int `yaml:"verbose_eval" json:"verbose_eval"`

	// logistic baseline only
	MaxIter int `yaml:"max_iter" json:"max_iter"`
}

// DefaultParams returns the binary/AUC defaults: learning rate 0.05,
// 64 leaves, 0.8 feature and row subsampling, seed 42, 1000 rounds with
// 50-round early stopping
func DefaultParams() Params {
	return Params{
		Objective:           "binary",
		Metric:              "auc",
		BoostingType:        "gbdt",
		LearningRate:        0.05,
		NumLeaves:           64,
		MaxDepth:            -1,
		FeatureFraction:     0.8,
		BaggingFraction:     0.8,
		MinDataInLeaf:       20,
		MinSumHessian:       1e-3,
		LambdaL2:            0,
		MaxBin:              255,
		Seed:                42,
		NumBoostRound:       1000,
		EarlyStoppingRounds: 50,
		VerboseEval:         50,
		MaxIter:             300,
	}
}

// LoadParams reads a YAML file on top of DefaultParams.
// Unknown keys fail immediately (오타 방지).
func LoadParams(path string) (Params, error) {
	params := DefaultParams()

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("read params file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&params); err != nil {
		return params, fmt.Errorf("decode params file %s: %w", path, err)
	}

	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

// Validate rejects parameter combinations the trainer cannot honor
func (p Params) Validate() error {
	if p.Objective != "binary" {
		return fmt.Errorf("objective %q not supported, only binary", p.Objective)
	}
	if p.Metric != "auc" {
		return fmt.Errorf("metric %q not supported, only auc", p.Metric)
	}
	if p.BoostingType != "gbdt" {
		return fmt.Errorf("boosting_type %q not supported, only gbdt", p.BoostingType)
	}
	if p.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0")
	}
	if p.NumLeaves < 2 {
		return fmt.Errorf("num_leaves must be >= 2")
	}
	if p.FeatureFraction <= 0 || p.FeatureFraction > 1 {
		return fmt.Errorf("feature_fraction must be within (0, 1]")
	}
	if p.BaggingFraction <= 0 || p.BaggingFraction > 1 {
		return fmt.Errorf("bagging_fraction must be within (0, 1]")
	}
	if p.MaxBin < 2 || p.MaxBin > 65535 {
		return fmt.Errorf("max_bin must be within [2, 65535]")
	}
	if p.NumBoostRound < 1 {
		return fmt.Errorf("num_boost_round must be >= 1")
	}
	return nil
}
