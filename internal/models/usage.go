package models

import "time"

// FeatureUsage is the tracked counter for one (user, feature, cycle) triple.
// The count must equal the number of matching domain rows created in the
// cycle; the consistency validator checks exactly that.
type FeatureUsage struct {
	UserUID     string    `json:"user_uid"`
	FeatureType string    `json:"feature_type"`
	CycleStart  time.Time `json:"cycle_start"`
	Count       int       `json:"count"`
	Limit       int       `json:"limit"`
}

// Discrepancy describes one feature whose tracked counter drifted from the
// authoritative row count. Difference = tracked - actual.
type Discrepancy struct {
	FeatureType  string `json:"feature_type"`
	TrackedCount int    `json:"tracked_count"`
	ActualCount  int    `json:"actual_count"`
	Difference   int    `json:"difference"`
}

// ConsistencyReport is the result of validating a user's usage counters.
type ConsistencyReport struct {
	UserUID       string        `json:"user_uid"`
	IsConsistent  bool          `json:"is_consistent"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	CheckedAt     time.Time     `json:"checked_at"`
}
