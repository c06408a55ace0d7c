package training

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/stockout/internal/dataset"
	"github.com/wonny/stockout/internal/model"
)

// DefaultTrainQuantile puts the first 80% of the date distribution in training
const DefaultTrainQuantile = 0.8

// Split holds row indices of a time-based train/validation split
type Split struct {
	Cutoff time.Time
	Train  []int
	Valid  []int
}

// TimeSplit cuts at the q-quantile of the row dates (linear interpolation).
// Rows dated on or before the cutoff are training rows.
func TimeSplit(f *dataset.Frame, q float64) (*Split, error) {
	if q <= 0 || q > 1 {
		return nil, fmt.Errorf("split quantile must be within (0, 1], got %v", q)
	}
	dates := f.Dates()
	if len(dates) == 0 {
		return nil, fmt.Errorf("time split: no parsed dates")
	}

	cutoff := DateQuantile(dates, q)
	s := &Split{Cutoff: cutoff}
	for i, d := range dates {
		if !d.After(cutoff) {
			s.Train = append(s.Train, i)
		} else {
			s.Valid = append(s.Valid, i)
		}
	}
	return s, nil
}

// DateQuantile interpolates linearly between the two nearest ranked dates
func DateQuantile(dates []time.Time, q float64) time.Time {
	ns := make([]int64, len(dates))
	for i, d := range dates {
		ns[i] = d.UnixNano()
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i] < ns[j] })

	pos := q * float64(len(ns)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	v := ns[lo] + int64(float64(ns[hi]-ns[lo])*frac)
	return time.Unix(0, v).UTC()
}

// Matrix gathers the named columns of the selected rows into a dataset.
// No rows yields an empty dataset.
func Matrix(f *dataset.Frame, names []string, rows []int, labelCol string) (model.Dataset, error) {
	if len(rows) == 0 {
		return model.Dataset{}, nil
	}
	if err := f.Require("matrix", append(append([]string{}, names...), labelCol)...); err != nil {
		return model.Dataset{}, err
	}

	X := mat.NewDense(len(rows), len(names), nil)
	for j, name := range names {
		col := f.Column(name)
		for i, r := range rows {
			X.Set(i, j, col[r])
		}
	}

	labels := f.Column(labelCol)
	y := make([]float64, len(rows))
	for i, r := range rows {
		y[i] = labels[r]
	}
	return model.Dataset{X: X, Y: y}, nil
}
