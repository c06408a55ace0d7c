package labeling

import (
	"math"

	"github.com/wonny/stockout/internal/contracts"
	"github.com/wonny/stockout/internal/dataset"
)

// Options configures the stock-out label
type Options struct {
	Horizon   int      // future days over which stock is inspected
	GroupCols []string // series key
	StockCol  string
	SalesCol  string
}

// DefaultOptions returns horizon 7 over (store_id, item_id)
func DefaultOptions() Options {
	return Options{
		Horizon:   7,
		GroupCols: []string{contracts.ColStoreID, contracts.ColItemID},
		StockCol:  contracts.ColStockOnHand,
		SalesCol:  contracts.ColSales,
	}
}

// CreateLabel returns a copy of f sorted by group and date with an integer
// "label" column: 1 when the lowest stock over the next Horizon days does not
// cover next-day demand. No row is dropped and the label is never missing.
func CreateLabel(f *dataset.Frame, opts Options) (*dataset.Frame, error) {
	if opts.Horizon < 1 {
		opts.Horizon = 1
	}

	required := append(append([]string{}, opts.GroupCols...), opts.StockCol, opts.SalesCol, contracts.ColDate)
	if err := f.Require("create_label", required...); err != nil {
		return nil, err
	}

	out, err := dataset.ParseDates(f)
	if err != nil {
		return nil, err
	}
	out = out.SortBy(opts.GroupCols...)

	stock := out.Column(opts.StockCol)
	sales := out.Column(opts.SalesCol)
	label := make([]float64, out.Len())

	for _, rows := range out.GroupIndices(opts.GroupCols...) {
		labelSeries(rows, stock, sales, opts.Horizon, label)
	}

	out.Set(contracts.ColLabel, label)
	return out, nil
}

// labelSeries labels one series. rows are the series' positions in date order.
//
//	next_stock[i]       = stock[i+1]
//	future_stock_min[i] = min(next_stock[i .. i+horizon-1]), defined iff next_stock[i] is
//	expected_demand[i]  = sales[i+1], 0 when absent
func labelSeries(rows []int, stock, sales []float64, horizon int, label []float64) {
	n := len(rows)
	for i := 0; i < n; i++ {
		if i+1 >= n || math.IsNaN(stock[rows[i+1]]) {
			label[rows[i]] = 0
			continue
		}

		futureMin := math.Inf(1)
		for k := i + 1; k <= i+horizon && k < n; k++ {
			v := stock[rows[k]]
			if !math.IsNaN(v) && v < futureMin {
				futureMin = v
			}
		}

		demand := sales[rows[i+1]]
		if math.IsNaN(demand) {
			demand = 0
		}

		if futureMin <= demand {
			label[rows[i]] = 1
		} else {
			label[rows[i]] = 0
		}
	}
}
