package models

import "time"

// Subscription transaction statuses.
const (
	TxPending = "pending"
	TxSuccess = "success"
	TxFailed  = "failed"
)

// SubscriptionTransaction is an immutable record of a payment or plan-change
// event. Rows are inserted once and never updated except for finalization of
// a pending payment.
type SubscriptionTransaction struct {
	ID         int
	UserUID    string
	Reference  string
	Plan       string
	AmountKobo int64
	Status     string
	PaidAt     *time.Time
	CreatedAt  time.Time
}

// DummyUpgrade receives the plan upgrade payload.
type DummyUpgrade struct {
	Plan string `json:"plan" validate:"required,oneof=weekly monthly yearly"`
}

// DummyVerify receives the payment verification payload.
type DummyVerify struct {
	Reference string `json:"reference" validate:"required"`
}
