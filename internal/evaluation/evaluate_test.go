package evaluation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// echoModel returns the first feature as the probability
type echoModel struct {
	err error
}

func (m echoModel) PredictProbability(row []float64) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return row[0], nil
}

func (m echoModel) FeatureNames() []string { return []string{"score"} }

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name  string
		proba []float64
		y     []float64
		want  float64
	}{
		{"gonum reference", []float64{0, 3, 5, 6, 7.5, 8}, []float64{0, 1, 0, 1, 1, 1}, 0.875},
		{"sklearn reference", []float64{0.1, 0.4, 0.35, 0.8}, []float64{0, 0, 1, 1}, 0.75},
		{"perfect", []float64{0.1, 0.2, 0.8, 0.9}, []float64{0, 0, 1, 1}, 1},
		{"inverted", []float64{0.9, 0.8, 0.2, 0.1}, []float64{0, 0, 1, 1}, 0},
		{"all tied", []float64{0.5, 0.5, 0.5, 0.5}, []float64{0, 1, 0, 1}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ROCAUC(tt.proba, tt.y), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(ROCAUC([]float64{0.2, 0.3}, []float64{0, 0})))
}

func TestAveragePrecision(t *testing.T) {
	assert.InDelta(t, 0.8333333333, AveragePrecision([]float64{0.1, 0.4, 0.35, 0.8}, []float64{0, 0, 1, 1}), 1e-9)
	assert.InDelta(t, 1.0, AveragePrecision([]float64{0.1, 0.2, 0.8, 0.9}, []float64{0, 0, 1, 1}), 1e-12)
	// ties collapse into one step: precision 2/4 at recall 1
	assert.InDelta(t, 0.5, AveragePrecision([]float64{0.5, 0.5, 0.5, 0.5}, []float64{0, 1, 0, 1}), 1e-12)
	assert.True(t, math.IsNaN(AveragePrecision([]float64{0.2}, []float64{0})))
}

func TestConfusionAndScores(t *testing.T) {
	proba := []float64{0.9, 0.6, 0.5, 0.2, 0.1}
	y := []float64{1, 0, 1, 1, 0}

	cm := Confusion(proba, y, 0.5)
	assert.Equal(t, ConfusionMatrix{{1, 1}, {1, 2}}, cm)

	p, r, f1 := PrecisionRecallF1(cm)
	assert.InDelta(t, 2.0/3, p, 1e-12)
	assert.InDelta(t, 2.0/3, r, 1e-12)
	assert.InDelta(t, 2.0/3, f1, 1e-12)

	p, r, f1 = PrecisionRecallF1(ConfusionMatrix{{3, 0}, {0, 0}})
	assert.Zero(t, p)
	assert.Zero(t, r)
	assert.Zero(t, f1)
}

func TestEvaluate(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0.1, 0.4, 0.35, 0.8})
	y := []float64{0, 0, 1, 1}

	report, err := Evaluate(echoModel{}, X, y, DefaultThreshold)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Rows)
	assert.InDelta(t, 0.75, report.ROCAUC, 1e-12)
	assert.InDelta(t, 0.8333333333, report.PRAUC, 1e-9)
	assert.Equal(t, ConfusionMatrix{{2, 0}, {1, 1}}, report.Confusion)
	assert.Equal(t, 1.0, report.Precision)
	assert.Equal(t, 0.5, report.Recall)
	assert.Equal(t, []float64{0.1, 0.4, 0.35, 0.8}, report.Proba)
	assert.Contains(t, report.Metrics(), "roc_auc")
}

func TestEvaluate_Errors(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0.1, 0.9})

	_, err := Evaluate(echoModel{}, X, []float64{0}, DefaultThreshold)
	assert.Error(t, err, "row/label mismatch")

	boom := errors.New("boom")
	_, err = Evaluate(echoModel{err: boom}, X, []float64{0, 1}, DefaultThreshold)
	assert.ErrorIs(t, err, boom)

	wide := mat.NewDense(2, 2, nil)
	_, err = Evaluate(echoModel{}, wide, []float64{0, 1}, DefaultThreshold)
	assert.Error(t, err, "column mismatch")
}
