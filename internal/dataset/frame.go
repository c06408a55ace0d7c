package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/stockout/internal/contracts"
)

// Frame is a column-oriented in-memory table.
// Numeric columns are float64 with NaN as the missing marker; the date
// column is kept apart, either raw (as read from CSV) or parsed.
type Frame struct {
	n        int
	names    []string
	cols     map[string][]float64
	dates    []time.Time
	rawDates []string
}

// NewFrame creates an empty frame with n rows
func NewFrame(n int) *Frame {
	return &Frame{n: n, cols: make(map[string][]float64)}
}

// FromObservations builds a frame with the CSV schema columns and parsed dates
func FromObservations(obs []contracts.Observation) *Frame {
	f := NewFrame(len(obs))
	dates := make([]time.Time, len(obs))
	cols := make(map[string][]float64, len(contracts.CSVHeader))
	for _, name := range contracts.CSVHeader[1:] {
		cols[name] = make([]float64, len(obs))
	}

	for i, o := range obs {
		dates[i] = o.Date
		cols[contracts.ColStoreID][i] = float64(o.StoreID)
		cols[contracts.ColItemID][i] = float64(o.ItemID)
		cols[contracts.ColPrice][i] = o.Price
		cols[contracts.ColOnPromotion][i] = boolToFloat(o.OnPromotion)
		cols[contracts.ColIsHoliday][i] = boolToFloat(o.IsHoliday)
		cols[contracts.ColShipmentsReceived][i] = float64(o.ShipmentsReceived)
		cols[contracts.ColSales][i] = float64(o.Sales)
		cols[contracts.ColStockOnHand][i] = float64(o.StockOnHand)
	}

	f.SetDates(dates)
	for _, name := range contracts.CSVHeader[1:] {
		f.Set(name, cols[name])
	}
	return f
}

// Len returns the number of rows
func (f *Frame) Len() int { return f.n }

// Names returns the numeric column names in insertion order
func (f *Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Has reports whether the column exists; "date" counts if raw or parsed dates are present
func (f *Frame) Has(name string) bool {
	if name == contracts.ColDate {
		return f.dates != nil || f.rawDates != nil
	}
	_, ok := f.cols[name]
	return ok
}

// Column returns the backing slice of a numeric column, or nil
func (f *Frame) Column(name string) []float64 {
	return f.cols[name]
}

// Set adds or replaces a numeric column
func (f *Frame) Set(name string, values []float64) {
	if len(values) != f.n {
		panic(fmt.Sprintf("dataset: column %q has %d values, frame has %d rows", name, len(values), f.n))
	}
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = values
}

// Fill adds or replaces a column with a constant value
func (f *Frame) Fill(name string, v float64) {
	values := make([]float64, f.n)
	for i := range values {
		values[i] = v
	}
	f.Set(name, values)
}

// Drop removes a numeric column if present
func (f *Frame) Drop(name string) {
	if _, ok := f.cols[name]; !ok {
		return
	}
	delete(f.cols, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i], f.names[i+1:]...)
			break
		}
	}
}

// Dates returns parsed dates (nil until PrepareDataset or SetDates)
func (f *Frame) Dates() []time.Time { return f.dates }

// RawDates returns unparsed date strings as read from CSV
func (f *Frame) RawDates() []string { return f.rawDates }

// SetDates sets the parsed date column
func (f *Frame) SetDates(dates []time.Time) {
	if len(dates) != f.n {
		panic(fmt.Sprintf("dataset: %d dates for %d rows", len(dates), f.n))
	}
	f.dates = dates
	f.rawDates = nil
}

// SetRawDates sets the unparsed date column
func (f *Frame) SetRawDates(raw []string) {
	if len(raw) != f.n {
		panic(fmt.Sprintf("dataset: %d raw dates for %d rows", len(raw), f.n))
	}
	f.rawDates = raw
	f.dates = nil
}

// Require returns a SchemaError listing every missing column
func (f *Frame) Require(op string, names ...string) error {
	var missing []string
	for _, name := range names {
		if !f.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &contracts.SchemaError{Op: op, Missing: missing}
	}
	return nil
}

// Clone returns a deep copy
func (f *Frame) Clone() *Frame {
	idx := make([]int, f.n)
	for i := range idx {
		idx[i] = i
	}
	return f.Take(idx)
}

// Take returns a new frame holding rows idx in that order
func (f *Frame) Take(idx []int) *Frame {
	out := NewFrame(len(idx))
	for _, name := range f.names {
		src := f.cols[name]
		dst := make([]float64, len(idx))
		for i, j := range idx {
			dst[i] = src[j]
		}
		out.Set(name, dst)
	}
	if f.dates != nil {
		dates := make([]time.Time, len(idx))
		for i, j := range idx {
			dates[i] = f.dates[j]
		}
		out.SetDates(dates)
	}
	if f.rawDates != nil {
		raw := make([]string, len(idx))
		for i, j := range idx {
			raw[i] = f.rawDates[j]
		}
		out.SetRawDates(raw)
	}
	return out
}

// Mask returns the rows where keep[i] is true
func (f *Frame) Mask(keep []bool) *Frame {
	idx := make([]int, 0, f.n)
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// SortBy returns a copy stably sorted by the key columns, then by date.
// Dates must be parsed.
func (f *Frame) SortBy(keys ...string) *Frame {
	idx := make([]int, f.n)
	for i := range idx {
		idx[i] = i
	}
	keyCols := make([][]float64, len(keys))
	for k, name := range keys {
		keyCols[k] = f.cols[name]
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		for _, col := range keyCols {
			if col[ia] != col[ib] {
				return col[ia] < col[ib]
			}
		}
		if f.dates != nil {
			return f.dates[ia].Before(f.dates[ib])
		}
		return false
	})
	return f.Take(idx)
}

// GroupIndices partitions row positions by the key columns.
// Groups are returned in order of first appearance; rows keep frame order.
func (f *Frame) GroupIndices(keys ...string) [][]int {
	keyCols := make([][]float64, len(keys))
	for k, name := range keys {
		keyCols[k] = f.cols[name]
	}

	slot := make(map[string]int)
	var groups [][]int
	var sb strings.Builder
	for i := 0; i < f.n; i++ {
		sb.Reset()
		for _, col := range keyCols {
			sb.WriteString(strconv.FormatFloat(col[i], 'g', -1, 64))
			sb.WriteByte('|')
		}
		key := sb.String()
		g, ok := slot[key]
		if !ok {
			g = len(groups)
			slot[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// NaNColumn returns a column of n missing markers
func NaNColumn(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
