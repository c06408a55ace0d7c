package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/stockout/internal/contracts"
	"github.com/wonny/stockout/internal/dataset"
)

// Column names produced by the pipeline
const (
	ColDayOfWeek     = "dayofweek"
	ColMonth         = "month"
	ColWeekOfYear    = "weekofyear"
	ColDaysOfCover   = "days_of_cover"
	ColStoreItemMean = "store_item_mean"
	ColStoreMean     = "store_mean_item"
)

// coverEpsilon keeps days_of_cover finite when recent demand is zero
const coverEpsilon = 1e-6

// Options configures the feature pipeline
type Options struct {
	GroupCols   []string
	TargetCol   string
	Lags        []int
	Windows     []int
	StockCol    string
	CoverWindow int // rolling mean window used as demand rate for days_of_cover
}

// DefaultOptions returns sales lags {1,7,14} and windows {7,14,28}
func DefaultOptions() Options {
	return Options{
		GroupCols:   []string{contracts.ColStoreID, contracts.ColItemID},
		TargetCol:   contracts.ColSales,
		Lags:        []int{1, 7, 14},
		Windows:     []int{7, 14, 28},
		StockCol:    contracts.ColStockOnHand,
		CoverWindow: 7,
	}
}

// LagName returns the lag column name, e.g. sales_lag_1
func LagName(target string, lag int) string { return fmt.Sprintf("%s_lag_%d", target, lag) }

// RollingMeanName returns the rolling mean column name, e.g. sales_rmean_7
func RollingMeanName(target string, w int) string { return fmt.Sprintf("%s_rmean_%d", target, w) }

// RollingStdName returns the rolling std column name, e.g. sales_rstd_7
func RollingStdName(target string, w int) string { return fmt.Sprintf("%s_rstd_%d", target, w) }

// BuildFeatures runs the fixed pipeline: calendar, lag/rolling, days of cover,
// aggregates, then sentinel finalization. One output row per input row; the
// result is sorted by series and date.
func BuildFeatures(f *dataset.Frame, opts Options) (*dataset.Frame, error) {
	out, err := AddTimeFeatures(f)
	if err != nil {
		return nil, err
	}
	if out, err = AddLagRollFeatures(out, opts); err != nil {
		return nil, err
	}
	out = ComputeDaysOfCover(out, opts.StockCol, RollingMeanName(opts.TargetCol, opts.CoverWindow))
	out = AddAggregations(out, opts.TargetCol)
	Finalize(out)
	return out, nil
}

// AddTimeFeatures adds day-of-week (Monday=0), month and ISO week
func AddTimeFeatures(f *dataset.Frame) (*dataset.Frame, error) {
	out, err := dataset.ParseDates(f)
	if err != nil {
		return nil, err
	}

	dates := out.Dates()
	dow := make([]float64, len(dates))
	month := make([]float64, len(dates))
	week := make([]float64, len(dates))
	for i, d := range dates {
		dow[i] = float64((int(d.Weekday()) + 6) % 7)
		month[i] = float64(d.Month())
		_, w := d.ISOWeek()
		week[i] = float64(w)
	}

	out.Set(ColDayOfWeek, dow)
	out.Set(ColMonth, month)
	out.Set(ColWeekOfYear, week)
	return out, nil
}

// AddLagRollFeatures adds per-series lags and leakage-safe rolling mean/std.
// Rolling windows cover the up-to-w rows strictly before the current row.
func AddLagRollFeatures(f *dataset.Frame, opts Options) (*dataset.Frame, error) {
	required := append(append([]string{}, opts.GroupCols...), opts.TargetCol, contracts.ColDate)
	if err := f.Require("build_features", required...); err != nil {
		return nil, err
	}

	out, err := dataset.ParseDates(f)
	if err != nil {
		return nil, err
	}
	out = out.SortBy(opts.GroupCols...)

	target := out.Column(opts.TargetCol)
	groups := out.GroupIndices(opts.GroupCols...)

	for _, lag := range opts.Lags {
		col := dataset.NaNColumn(out.Len())
		for _, rows := range groups {
			for j := lag; j < len(rows); j++ {
				col[rows[j]] = target[rows[j-lag]]
			}
		}
		out.Set(LagName(opts.TargetCol, lag), col)
	}

	for _, w := range opts.Windows {
		mean := dataset.NaNColumn(out.Len())
		std := make([]float64, out.Len())
		window := make([]float64, 0, w)
		for _, rows := range groups {
			for j := range rows {
				window = window[:0]
				for k := max(0, j-w); k < j; k++ {
					if v := target[rows[k]]; !math.IsNaN(v) {
						window = append(window, v)
					}
				}
				mean[rows[j]], std[rows[j]] = windowStats(window)
			}
		}
		out.Set(RollingMeanName(opts.TargetCol, w), mean)
		out.Set(RollingStdName(opts.TargetCol, w), std)
	}

	return out, nil
}

// windowStats returns mean (NaN when empty) and sample std (0 below two values)
func windowStats(window []float64) (float64, float64) {
	switch len(window) {
	case 0:
		return math.NaN(), 0
	case 1:
		return window[0], 0
	}
	return stat.MeanStdDev(window, nil)
}

// ComputeDaysOfCover adds stock / (recent mean demand + ε), sentinel when not computable
func ComputeDaysOfCover(f *dataset.Frame, stockCol, avgCol string) *dataset.Frame {
	out := f.Clone()
	if !out.Has(stockCol) || !out.Has(avgCol) {
		out.Fill(ColDaysOfCover, contracts.Sentinel)
		return out
	}

	stock := out.Column(stockCol)
	avg := out.Column(avgCol)
	cover := make([]float64, out.Len())
	for i := range cover {
		v := stock[i] / (avg[i] + coverEpsilon)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = contracts.Sentinel
		}
		cover[i] = v
	}
	out.Set(ColDaysOfCover, cover)
	return out
}

// AddAggregations broadcasts the target mean of each (store, item) series and of each store
func AddAggregations(f *dataset.Frame, targetCol string) *dataset.Frame {
	out := f.Clone()

	if out.Has(contracts.ColStoreID) && out.Has(contracts.ColItemID) && out.Has(targetCol) {
		out.Set(ColStoreItemMean, groupMean(out, targetCol, contracts.ColStoreID, contracts.ColItemID))
	} else {
		out.Fill(ColStoreItemMean, contracts.Sentinel)
	}

	if out.Has(contracts.ColStoreID) && out.Has(targetCol) {
		out.Set(ColStoreMean, groupMean(out, targetCol, contracts.ColStoreID))
	} else {
		out.Fill(ColStoreMean, contracts.Sentinel)
	}

	return out
}

func groupMean(f *dataset.Frame, col string, keys ...string) []float64 {
	values := f.Column(col)
	out := make([]float64, f.Len())
	for _, rows := range f.GroupIndices(keys...) {
		var sum float64
		var n int
		for _, r := range rows {
			if v := values[r]; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		mean := math.NaN()
		if n > 0 {
			mean = sum / float64(n)
		}
		for _, r := range rows {
			out[r] = mean
		}
	}
	return out
}

// Finalize replaces every NaN and ±Inf in place with the sentinel
func Finalize(f *dataset.Frame) {
	for _, name := range f.Names() {
		col := f.Column(name)
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				col[i] = contracts.Sentinel
			}
		}
	}
}

// FeatureColumns returns the model input columns in frame order
func FeatureColumns(f *dataset.Frame) []string {
	var names []string
	for _, name := range f.Names() {
		if !contracts.NonFeatureColumns[name] {
			names = append(names, name)
		}
	}
	return names
}
