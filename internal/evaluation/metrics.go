package evaluation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ROCAUC returns the area under the ROC curve, NaN when y holds a single class
func ROCAUC(proba, y []float64) float64 {
	scores := make([]float64, len(proba))
	copy(scores, proba)
	classes := make([]bool, len(y))
	positives := 0
	for i, v := range y {
		classes[i] = v >= 0.5
		if classes[i] {
			positives++
		}
	}
	if positives == 0 || positives == len(y) {
		return math.NaN()
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// AveragePrecision returns the area under the precision/recall curve as the
// step sum Σ (R_k − R_{k−1})·P_k over descending score thresholds.
// NaN when y has no positive.
func AveragePrecision(proba, y []float64) float64 {
	idx := make([]int, len(proba))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return proba[idx[a]] > proba[idx[b]] })

	total := 0
	for _, v := range y {
		if v >= 0.5 {
			total++
		}
	}
	if total == 0 {
		return math.NaN()
	}

	var ap, prevRecall float64
	tp, seen := 0, 0
	for k := 0; k < len(idx); k++ {
		seen++
		if y[idx[k]] >= 0.5 {
			tp++
		}
		// only close a step at the end of a run of tied scores
		if k+1 < len(idx) && proba[idx[k+1]] == proba[idx[k]] {
			continue
		}
		recall := float64(tp) / float64(total)
		precision := float64(tp) / float64(seen)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
	}
	return ap
}

// ConfusionMatrix is [[tn, fp], [fn, tp]]
type ConfusionMatrix [2][2]int

// TN returns true negatives
func (c ConfusionMatrix) TN() int { return c[0][0] }

// FP returns false positives
func (c ConfusionMatrix) FP() int { return c[0][1] }

// FN returns false negatives
func (c ConfusionMatrix) FN() int { return c[1][0] }

// TP returns true positives
func (c ConfusionMatrix) TP() int { return c[1][1] }

// Confusion thresholds proba at threshold (inclusive) and counts outcomes
func Confusion(proba, y []float64, threshold float64) ConfusionMatrix {
	var cm ConfusionMatrix
	for i, p := range proba {
		actual := 0
		if y[i] >= 0.5 {
			actual = 1
		}
		predicted := 0
		if p >= threshold {
			predicted = 1
		}
		cm[actual][predicted]++
	}
	return cm
}

// PrecisionRecallF1 computes binary scores for the positive class; 0 on zero division
func PrecisionRecallF1(cm ConfusionMatrix) (precision, recall, f1 float64) {
	if d := cm.TP() + cm.FP(); d > 0 {
		precision = float64(cm.TP()) / float64(d)
	}
	if d := cm.TP() + cm.FN(); d > 0 {
		recall = float64(cm.TP()) / float64(d)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
