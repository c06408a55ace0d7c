package model

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// logisticStep is the gradient descent step on standardized inputs
const logisticStep = 0.5

// LogisticRegression is the linear baseline. Inputs are standardized with
// the training mean/scale before the dot product.
type LogisticRegression struct {
	Features []string  `json:"feature_names"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
	Weights  []float64 `json:"weights"`
	Bias     float64   `json:"bias"`
	L2       float64   `json:"l2"`
}

// TrainLogistic fits the baseline with full-batch gradient descent for MaxIter steps
func TrainLogistic(train Dataset, features []string, params Params, log zerolog.Logger) (*LogisticRegression, error) {
	n := train.Rows()
	if n == 0 {
		return nil, fmt.Errorf("training set is empty")
	}
	_, nf := train.X.Dims()
	if len(train.Y) != n {
		return nil, fmt.Errorf("training set has %d rows but %d labels", n, len(train.Y))
	}
	if len(features) != nf {
		return nil, fmt.Errorf("training set has %d columns but %d feature names", nf, len(features))
	}
	iters := params.MaxIter
	if iters < 1 {
		iters = DefaultParams().MaxIter
	}

	m := &LogisticRegression{
		Features: append([]string(nil), features...),
		Mean:     make([]float64, nf),
		Scale:    make([]float64, nf),
		Weights:  make([]float64, nf),
		L2:       params.LambdaL2,
	}

	Z := mat.NewDense(n, nf, nil)
	for j := 0; j < nf; j++ {
		col := mat.Col(nil, j, train.X)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.Mean[j], m.Scale[j] = mean, std
		for i, v := range col {
			Z.Set(i, j, (v-mean)/std)
		}
	}

	y := mat.NewVecDense(n, append([]float64(nil), train.Y...))
	w := mat.NewVecDense(nf, nil)
	z := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(nf, nil)

	for it := 0; it < iters; it++ {
		z.MulVec(Z, w)
		for i := 0; i < n; i++ {
			z.SetVec(i, sigmoid(z.AtVec(i)+m.Bias))
		}
		resid.SubVec(z, y)

		grad.MulVec(Z.T(), resid)
		grad.ScaleVec(1/float64(n), grad)
		if m.L2 > 0 {
			grad.AddScaledVec(grad, m.L2/float64(n), w)
		}

		w.AddScaledVec(w, -logisticStep, grad)
		m.Bias -= logisticStep * mat.Sum(resid) / float64(n)
	}

	for j := range m.Weights {
		m.Weights[j] = w.AtVec(j)
	}

	log.Info().
		Str("component", "model.logistic").
		Int("rows", n).
		Int("features", nf).
		Int("iterations", iters).
		Msg("logistic baseline trained")

	return m, nil
}

// PredictProba returns [P(no stock-out), P(stock-out)]
func (m *LogisticRegression) PredictProba(row []float64) []float64 {
	s := m.Bias
	for j, v := range row {
		s += m.Weights[j] * (v - m.Mean[j]) / m.Scale[j]
	}
	p := sigmoid(s)
	return []float64{1 - p, p}
}
