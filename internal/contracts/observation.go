package contracts

import "time"

// Observation is one (store_id, item_id, date) row of the daily history
type Observation struct {
	Date              time.Time `json:"date"`
	StoreID           int       `json:"store_id"`
	ItemID            int       `json:"item_id"`
	Price             float64   `json:"price"`
	OnPromotion       bool      `json:"on_promotion"`
	IsHoliday         bool      `json:"is_holiday"`
	ShipmentsReceived int       `json:"shipments_received"`
	Sales             int       `json:"sales"`         // units sold, capped by available stock
	StockOnHand       int       `json:"stock_on_hand"` // end of day
}

// SeriesKey identifies a Series: all observations of one item at one store
type SeriesKey struct {
	StoreID int
	ItemID  int
}

// Key returns the series key of the observation
func (o Observation) Key() SeriesKey {
	return SeriesKey{StoreID: o.StoreID, ItemID: o.ItemID}
}

// Column names shared by the CSV schema, the label builder and the feature engineer
const (
	ColDate              = "date"
	ColStoreID           = "store_id"
	ColItemID            = "item_id"
	ColPrice             = "price"
	ColOnPromotion       = "on_promotion"
	ColIsHoliday         = "is_holiday"
	ColShipmentsReceived = "shipments_received"
	ColSales             = "sales"
	ColStockOnHand       = "stock_on_hand"
	ColLabel             = "label"
)

// CSVHeader is the column order of generator output / training input
var CSVHeader = []string{
	ColDate, ColStoreID, ColItemID, ColPrice, ColOnPromotion,
	ColIsHoliday, ColShipmentsReceived, ColSales, ColStockOnHand,
}

// NonFeatureColumns are never used as model inputs
var NonFeatureColumns = map[string]bool{
	ColDate:    true,
	ColLabel:   true,
	ColStoreID: true,
	ColItemID:  true,
}

// Sentinel replaces every missing or undefined computed value
const Sentinel = -1.0

// DateLayout is the ISO date format of the CSV schema
const DateLayout = "2006-01-02"
