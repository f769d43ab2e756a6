package models

import "time"

// Expense records money spent by the business.
type Expense struct {
	ID          int
	UserUID     string
	Category    string
	Description string
	AmountKobo  int64
	SpentAt     time.Time
	CreatedAt   time.Time
}

// DummyExpense receives expense create payloads.
// SpentAt arrives as an ISO-8601 string and is parsed by the service.
type DummyExpense struct {
	Category    string `json:"category" validate:"required,max=60"`
	Description string `json:"description" validate:"omitempty,max=300"`
	AmountKobo  int64  `json:"amount_kobo" validate:"required,gt=0"`
	SpentAt     string `json:"spent_at" validate:"omitempty"`
}
