package models

import "time"

// Invoice statuses.
const (
	InvoiceDraft   = "draft"
	InvoiceSent    = "sent"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
)

// InvoiceItem is a single line of an invoice, stored as jsonb.
type InvoiceItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	PriceKobo   int64  `json:"price_kobo"`
}

// Invoice is a bill issued to a customer. TotalKobo is the sum of its items.
type Invoice struct {
	ID         int
	UserUID    string
	CustomerID int
	Number     string
	Status     string
	Items      []InvoiceItem
	TotalKobo  int64
	DueDate    time.Time
	PaidAt     *time.Time
	CreatedAt  time.Time
}

// Overdue reports whether an unpaid invoice is past its due date.
func (i Invoice) Overdue(now time.Time) bool {
	return i.Status != InvoicePaid && now.After(i.DueDate)
}

// DummyInvoiceItem receives one invoice line from JSON.
type DummyInvoiceItem struct {
	Description string `json:"description" validate:"required,max=200"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	PriceKobo   int64  `json:"price_kobo" validate:"required,gt=0"`
}

// DummyInvoice receives invoice create/update payloads.
// DueDate arrives as an ISO-8601 string and is parsed by the service.
type DummyInvoice struct {
	CustomerID int                `json:"customer_id" validate:"required,gt=0"`
	Items      []DummyInvoiceItem `json:"items" validate:"required,min=1,dive"`
	DueDate    string             `json:"due_date" validate:"required"`
}
