package models

import "time"

// Sale records a completed over-the-counter transaction.
type Sale struct {
	ID            int
	UserUID       string
	ProductID     int
	CustomerID    *int
	Quantity      int
	UnitPriceKobo int64
	TotalKobo     int64
	SoldAt        time.Time
}

// DummySale receives sale create payloads.
type DummySale struct {
	ProductID     int   `json:"product_id" validate:"required,gt=0"`
	CustomerID    *int  `json:"customer_id" validate:"omitempty,gt=0"`
	Quantity      int   `json:"quantity" validate:"required,gt=0"`
	UnitPriceKobo int64 `json:"unit_price_kobo" validate:"required,gt=0"`
}
