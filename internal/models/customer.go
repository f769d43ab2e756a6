package models

import "time"

// Customer is a client of the business owner.
type Customer struct {
	ID        int
	UserUID   string
	Name      string
	Email     string
	Phone     string
	Address   string
	Notes     string
	CreatedAt time.Time
}

// DummyCustomer receives customer create/update payloads.
type DummyCustomer struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,min=7,max=20"`
	Address string `json:"address" validate:"omitempty,max=300"`
	Notes   string `json:"notes" validate:"omitempty,max=1000"`
}
