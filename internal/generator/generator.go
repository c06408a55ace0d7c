// Package generator simulates daily store/item sales and inventory.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/stockout/internal/contracts"
)

// Config controls the simulation size and seed
type Config struct {
	Start   time.Time
	Days    int
	NStores int
	NItems  int
	Seed    int64
}

// DefaultConfig returns one year from 2023-01-01, 10 stores x 50 items, seed 42
func DefaultConfig() Config {
	return Config{
		Start:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:    365,
		NStores: 10,
		NItems:  50,
		Seed:    42,
	}
}

// Validate rejects empty simulations
func (c Config) Validate() error {
	if c.Days < 1 || c.NStores < 1 || c.NItems < 1 {
		return fmt.Errorf("days, stores and items must be >= 1 (got %d, %d, %d)", c.Days, c.NStores, c.NItems)
	}
	return nil
}

// Simulation constants
const (
	promoProbability    = 0.05
	shipmentProbability = 0.25
	promoLift           = 1.4
	regularLift         = 0.9
	minDemand           = 0.1
)

// Generate runs the simulation. Output is ordered by store, item, then date,
// and is fully determined by cfg.Seed.
//
// 매일: 입고(아침) → 판매(재고 한도) 순서
func Generate(cfg Config) []contracts.Observation {
	rng := rand.New(rand.NewSource(cfg.Seed))

	itemBase := make([]float64, cfg.NItems)
	for i := range itemBase {
		itemBase[i] = float64(poisson(rng, 5) + 1)
	}
	itemPrice := make([]float64, cfg.NItems)
	for i := range itemPrice {
		itemPrice[i] = decimal.NewFromFloat(1 + 19*rng.Float64()).Round(2).InexactFloat64()
	}
	storeMul := make([]float64, cfg.NStores)
	for i := range storeMul {
		storeMul[i] = 0.5 + rng.Float64()
	}

	start := time.Date(cfg.Start.Year(), cfg.Start.Month(), cfg.Start.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]contracts.Observation, 0, cfg.Days*cfg.NStores*cfg.NItems)

	for s := 0; s < cfg.NStores; s++ {
		for it := 0; it < cfg.NItems; it++ {
			base := itemBase[it] * storeMul[s]
			stock := int(base * 10)

			for d := 0; d < cfg.Days; d++ {
				date := start.AddDate(0, 0, d)
				weekday := mondayFirst(date)

				promo := rng.Float64() < promoProbability
				lift := regularLift
				if promo {
					lift = promoLift
				}
				weekdayMul := 1 + 0.15*float64(4-absInt(3-weekday))/4
				demand := poisson(rng, math.Max(minDemand, base*weekdayMul*lift))

				shipments := 0
				if float64(stock) < base*2 && rng.Float64() < shipmentProbability {
					shipments = poisson(rng, base*10) + int(base*5)
				}
				stock += shipments
				sales := min(stock, demand)
				stock -= sales

				out = append(out, contracts.Observation{
					Date:              date,
					StoreID:           s + 1,
					ItemID:            it + 1,
					Price:             itemPrice[it],
					OnPromotion:       promo,
					IsHoliday:         weekday == 6,
					ShipmentsReceived: shipments,
					Sales:             sales,
					StockOnHand:       stock,
				})
			}
		}
	}
	return out
}

// mondayFirst maps Monday..Sunday to 0..6
func mondayFirst(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// poisson draws with Knuth's multiplication method; large rates are split
// so exp(-lambda) stays representable
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	n := 0
	for lambda > 500 {
		n += poisson(rng, 500)
		lambda -= 500
	}
	limit := math.Exp(-lambda)
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return n
		}
		n++
	}
}
