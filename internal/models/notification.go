package models

import "time"

// Notification types delivered to users.
const (
	NotifDowngraded   = "subscription_downgraded"
	NotifExpiring     = "subscription_expiring"
	NotifFinalWarning = "subscription_final_warning"
	NotifLowStock     = "low_stock"
	NotifOverdue      = "invoice_overdue"
)

// Notification is an in-app message shown to a user. EventID ties the row
// back to the queued event that produced it, so a redelivered event does not
// insert a second row.
type Notification struct {
	ID        int       `json:"id"`
	UserUID   string    `json:"user_uid"`
	EventID   string    `json:"-"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationEvent is the payload published to the notifications exchange
// and consumed by the sender worker. EventID is assigned by the publisher
// and keeps consumption idempotent across broker redeliveries.
type NotificationEvent struct {
	EventID  string `json:"event_id"`
	UserUID  string `json:"user_uid"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}
