package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/stockout/internal/contracts"
)

// ReadCSVFile reads a CSV file into a frame. See ReadCSV.
func ReadCSVFile(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file %s: %w", path, err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadCSV reads a header-driven CSV. The date column is kept as raw text
// (PrepareDataset parses it); every other column is parsed as a number,
// with empty cells becoming NaN.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("CSV must have a header row")
	}

	header := records[0]
	rows := records[1:]
	f := NewFrame(len(rows))

	for c, name := range header {
		name = strings.TrimSpace(name)
		if name == contracts.ColDate {
			raw := make([]string, len(rows))
			for i, rec := range rows {
				raw[i] = strings.TrimSpace(rec[c])
			}
			f.SetRawDates(raw)
			continue
		}

		values := make([]float64, len(rows))
		for i, rec := range rows {
			v, err := parseCell(rec[c])
			if err != nil {
				return nil, fmt.Errorf("CSV row %d column %s: %w", i+2, name, err)
			}
			values[i] = v
		}
		f.Set(name, values)
	}

	return f, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return math.NaN(), nil
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteObservationsCSVFile writes observations with the standard header,
// creating the parent directory if needed
func WriteObservationsCSVFile(path string, obs []contracts.Observation) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	return WriteObservationsCSV(file, obs)
}

// WriteObservationsCSV writes observations in the generator/training CSV schema
func WriteObservationsCSV(w io.Writer, obs []contracts.Observation) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(contracts.CSVHeader); err != nil {
		return err
	}

	for _, o := range obs {
		record := []string{
			o.Date.Format(contracts.DateLayout),
			strconv.Itoa(o.StoreID),
			strconv.Itoa(o.ItemID),
			decimal.NewFromFloat(o.Price).StringFixed(2),
			boolFlag(o.OnPromotion),
			boolFlag(o.IsHoliday),
			strconv.Itoa(o.ShipmentsReceived),
			strconv.Itoa(o.Sales),
			strconv.Itoa(o.StockOnHand),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ObservationsFromFrame converts a prepared frame back into typed observations.
// All CSV schema columns must be present and dates parsed.
func ObservationsFromFrame(f *Frame) ([]contracts.Observation, error) {
	if err := f.Require("observations", contracts.CSVHeader...); err != nil {
		return nil, err
	}
	if f.Dates() == nil {
		return nil, fmt.Errorf("observations: dates are not parsed, call PrepareDataset first")
	}

	dates := f.Dates()
	col := func(name string, i int) float64 { return f.Column(name)[i] }

	out := make([]contracts.Observation, f.Len())
	for i := range out {
		price := decimal.NewFromFloat(col(contracts.ColPrice, i)).Round(2)
		out[i] = contracts.Observation{
			Date:              dates[i],
			StoreID:           int(col(contracts.ColStoreID, i)),
			ItemID:            int(col(contracts.ColItemID, i)),
			Price:             price.InexactFloat64(),
			OnPromotion:       col(contracts.ColOnPromotion, i) != 0,
			IsHoliday:         col(contracts.ColIsHoliday, i) != 0,
			ShipmentsReceived: int(col(contracts.ColShipmentsReceived, i)),
			Sales:             int(col(contracts.ColSales, i)),
			StockOnHand:       int(col(contracts.ColStockOnHand, i)),
		}
	}
	return out, nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
