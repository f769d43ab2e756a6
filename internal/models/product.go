package models

import "time"

// Product is a stock item sold by the business. Prices are in kobo.
type Product struct {
	ID                int
	UserUID           string
	Name              string
	SKU               string
	PriceKobo         int64
	CostKobo          int64
	StockQuantity     int
	LowStockThreshold int
	CreatedAt         time.Time
}

// LowStock reports whether the product is at or below its threshold.
func (p Product) LowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

// DummyProduct receives product create/update payloads.
type DummyProduct struct {
	Name              string `json:"name" validate:"required,max=120"`
	SKU               string `json:"sku" validate:"omitempty,max=60"`
	PriceKobo         int64  `json:"price_kobo" validate:"required,gt=0"`
	CostKobo          int64  `json:"cost_kobo" validate:"omitempty,gte=0"`
	StockQuantity     int    `json:"stock_quantity" validate:"omitempty,gte=0"`
	LowStockThreshold int    `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}
