package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"tabio/domain/table"
)

// ShoppingGeneratorConfig configures the shopping order table generator
type ShoppingGeneratorConfig struct {
	OrderCount          int       `json:"order_count"`
	CustomerCount       int       `json:"customer_count"`
	ProductCount        int       `json:"product_count"`
	ReturnRateBase      float64   `json:"return_rate_base"`
	MissingDiscountRate float64   `json:"missing_discount_rate"`
	StartDate           time.Time `json:"start_date"`
	EndDate             time.Time `json:"end_date"`
	Seed                int64     `json:"seed"`
}

// DefaultShoppingConfig returns sensible defaults for order generation
func DefaultShoppingConfig() ShoppingGeneratorConfig {
	return ShoppingGeneratorConfig{
		OrderCount:          1000,
		CustomerCount:       200,
		ProductCount:        50,
		ReturnRateBase:      0.08,
		MissingDiscountRate: 0.2,
		StartDate:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:             time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
		Seed:                42,
	}
}

// ShoppingDataGenerator generates a realistic e-commerce order table
type ShoppingDataGenerator struct {
	config ShoppingGeneratorConfig
	rng    *rand.Rand
}

// NewShoppingDataGenerator creates a new shopping data generator
func NewShoppingDataGenerator(config ShoppingGeneratorConfig) *ShoppingDataGenerator {
	return &ShoppingDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// OrderColumns lists the generated columns in order
var OrderColumns = []string{"order_id", "customer_id", "product", "ordered_at", "quantity", "unit_price", "discount", "returned"}

// GenerateOrders builds one row per order. Output is deterministic for a seed.
func (g *ShoppingDataGenerator) GenerateOrders() *table.Table {
	n := g.config.OrderCount
	cols := make([][]any, len(OrderColumns))
	for i := range cols {
		cols[i] = make([]any, n)
	}

	for i := 0; i < n; i++ {
		customer := g.rng.Intn(max(1, g.config.CustomerCount)) + 1
		product := g.rng.Intn(max(1, g.config.ProductCount)) + 1
		quantity := int64(1 + g.rng.Intn(5))
		price := math.Round((5+g.rng.Float64()*195)*100) / 100

		cols[0][i] = fmt.Sprintf("order_%06d", i+1)
		cols[1][i] = fmt.Sprintf("customer_%04d", customer)
		cols[2][i] = fmt.Sprintf("sku-%03d", product)
		cols[3][i] = g.randomTimeInRange(g.config.StartDate, g.config.EndDate)
		cols[4][i] = quantity
		cols[5][i] = price
		if g.rng.Float64() >= g.config.MissingDiscountRate {
			cols[6][i] = float64(g.rng.Intn(4)) * 0.05
		}
		cols[7][i] = g.rng.Float64() < g.returnRate(quantity, price)
	}

	kinds := []table.Kind{
		table.KindString, table.KindString, table.KindString, table.KindTime,
		table.KindInt, table.KindFloat, table.KindFloat, table.KindBool,
	}
	columns := make([]*table.Column, len(OrderColumns))
	for i, name := range OrderColumns {
		columns[i] = table.NewColumn(name, kinds[i], cols[i])
	}
	return table.MustNew(columns...)
}

// returnRate nudges the base rate up for bulky, expensive orders
func (g *ShoppingDataGenerator) returnRate(quantity int64, price float64) float64 {
	rate := g.config.ReturnRateBase
	if quantity >= 4 {
		rate += 0.03
	}
	if price > 150 {
		rate += 0.04
	}
	return math.Min(rate, 1)
}

// randomTimeInRange returns a second-resolution UTC time in [start, end)
func (g *ShoppingDataGenerator) randomTimeInRange(start, end time.Time) time.Time {
	span := int64(end.Sub(start) / time.Second)
	if span <= 0 {
		return start.UTC()
	}
	return start.Add(time.Duration(g.rng.Int63n(span)) * time.Second).UTC()
}
