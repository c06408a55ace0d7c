package evaluation

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/stockout/internal/contracts"
)

// DefaultThreshold is the decision threshold for precision/recall/F1
const DefaultThreshold = 0.5

// Report holds classification metrics of one scored dataset
type Report struct {
	Rows      int             `json:"rows"`
	Threshold float64         `json:"threshold"`
	ROCAUC    float64         `json:"roc_auc"`
	PRAUC     float64         `json:"pr_auc"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1"`
	Confusion ConfusionMatrix `json:"confusion_matrix"`
	Proba     []float64       `json:"-"`
}

// Metrics flattens the report for logging and storage
func (r *Report) Metrics() map[string]float64 {
	return map[string]float64{
		"roc_auc":   r.ROCAUC,
		"pr_auc":    r.PRAUC,
		"precision": r.Precision,
		"recall":    r.Recall,
		"f1":        r.F1,
		"tn":        float64(r.Confusion.TN()),
		"fp":        float64(r.Confusion.FP()),
		"fn":        float64(r.Confusion.FN()),
		"tp":        float64(r.Confusion.TP()),
	}
}

// Predict scores every row of X
func Predict(model contracts.ProbabilityModel, X *mat.Dense) ([]float64, error) {
	rows, cols := X.Dims()
	if want := len(model.FeatureNames()); want != 0 && cols != want {
		return nil, fmt.Errorf("feature matrix has %d columns, model expects %d", cols, want)
	}

	proba := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		p, err := model.PredictProbability(row)
		if err != nil {
			return nil, fmt.Errorf("predict row %d: %w", i, err)
		}
		proba[i] = p
	}
	return proba, nil
}

// Evaluate scores X and computes ROC-AUC, PR-AUC, precision/recall/F1 at
// threshold and the confusion matrix against y
func Evaluate(model contracts.ProbabilityModel, X *mat.Dense, y []float64, threshold float64) (*Report, error) {
	rows, _ := X.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("feature matrix has %d rows, labels have %d", rows, len(y))
	}

	proba, err := Predict(model, X)
	if err != nil {
		return nil, err
	}

	cm := Confusion(proba, y, threshold)
	precision, recall, f1 := PrecisionRecallF1(cm)

	return &Report{
		Rows:      rows,
		Threshold: threshold,
		ROCAUC:    ROCAUC(proba, y),
		PRAUC:     AveragePrecision(proba, y),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
		Confusion: cm,
		Proba:     proba,
	}, nil
}
