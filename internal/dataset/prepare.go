package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/stockout/internal/contracts"
)

var dateLayouts = []string{
	contracts.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// PrepareDataset validates the date column, parses it and returns a copy
// sorted ascending by date only. The input frame is not modified.
// Per-series ordering is the label builder's and feature engineer's job.
func PrepareDataset(f *Frame) (*Frame, error) {
	out, err := ParseDates(f)
	if err != nil {
		return nil, err
	}

	dates := out.Dates()
	idx := make([]int, out.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return dates[idx[a]].Before(dates[idx[b]])
	})

	return out.Take(idx), nil
}

// ParseDates returns a copy of f with the date column parsed, rows in place
func ParseDates(f *Frame) (*Frame, error) {
	if err := f.Require("prepare_dataset", contracts.ColDate); err != nil {
		return nil, err
	}

	out := f.Clone()
	if raw := out.RawDates(); raw != nil {
		dates := make([]time.Time, len(raw))
		for i, s := range raw {
			d, err := ParseDate(s)
			if err != nil {
				return nil, fmt.Errorf("prepare_dataset: row %d: %w", i+2, err)
			}
			dates[i] = d
		}
		out.SetDates(dates)
	}
	return out, nil
}

// ParseDate parses an ISO date (or date-time) string
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
