// Package models contains the domain structures shared by the storage and
// service layers, together with the request types ("Dummy*") used to receive
// and validate JSON payloads before they are converted to domain values.
package models

import "time"

// Subscription statuses a user account can be in.
const (
	StatusTrial     = "trial"
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// User represents a registered business owner account.
// Accounts are soft-deactivated via IsActive and never hard-deleted.
type User struct {
	UID                   string
	Email                 string
	Username              string
	PasswordHash          string
	Role                  string
	BusinessName          string
	Phone                 string
	SubscriptionPlan      string
	SubscriptionStatus    string
	SubscriptionStartDate *time.Time
	SubscriptionEndDate   *time.Time
	TrialEndDate          *time.Time
	IsActive              bool
	CreatedAt             time.Time
}

// DummyRegister receives the registration payload.
type DummyRegister struct {
	Email        string `json:"email" validate:"required,email"`
	Username     string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Password     string `json:"password" validate:"required,min=8"`
	BusinessName string `json:"business_name" validate:"required"`
	Phone        string `json:"phone" validate:"omitempty,min=7,max=20"`
}

// DummyLogin receives the login payload.
type DummyLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
