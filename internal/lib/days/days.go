// Package days implements the subscription date arithmetic: parsing ISO-8601
// timestamps, computing remaining whole days, expiry checks and expiration
// warning thresholds. All functions are pure and take the reference time
// explicitly so callers and tests control the clock.
package days

import (
	"fmt"
	"time"
)

// Warning levels emitted as a subscription approaches its end date.
const (
	LevelExpiring     = "expiring"
	LevelFinalWarning = "final_warning"
)

// Warning classifies how close a subscription is to expiring.
type Warning struct {
	Level         string `json:"level"`
	DaysRemaining int    `json:"days_remaining"`
	Message       string `json:"message"`
}

// layouts accepted by Parse. Offsets and fractional seconds are optional;
// timestamps without an offset are taken as UTC.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Parse reads an ISO-8601 timestamp and normalizes it to UTC. A malformed
// value returns an error; it is never silently treated as expired.
func Parse(iso string) (time.Time, error) {
	const op = "days.Parse"
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, iso); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: cannot parse %q as ISO-8601", op, iso)
}

// RemainingDays returns the whole-day ceiling between now and end,
// floored at zero for past dates.
func RemainingDays(now, end time.Time) int {
	delta := end.Sub(now)
	if delta <= 0 {
		return 0
	}
	d := int(delta / (24 * time.Hour))
	if delta%(24*time.Hour) > 0 {
		d++
	}
	return d
}

// IsExpired reports whether now is at or past the end date.
func IsExpired(now, end time.Time) bool {
	return !now.Before(end)
}

// WarningFor returns at most one warning record for the given remaining-day
// count: exactly one day left is a final warning, three or fewer days is an
// expiring notice, anything else yields nil.
func WarningFor(daysRemaining int) *Warning {
	switch {
	case daysRemaining == 1:
		return &Warning{
			Level:         LevelFinalWarning,
			DaysRemaining: 1,
			Message:       "Your subscription expires tomorrow. Renew now to keep access.",
		}
	case daysRemaining > 1 && daysRemaining <= 3:
		return &Warning{
			Level:         LevelExpiring,
			DaysRemaining: daysRemaining,
			Message:       fmt.Sprintf("Your subscription expires in %d days.", daysRemaining),
		}
	default:
		return nil
	}
}

// FormatRemaining decomposes the delta between now and end into days, hours
// and minutes. Past dates format as "0d 0h 0m".
func FormatRemaining(now, end time.Time) string {
	delta := end.Sub(now)
	if delta < 0 {
		delta = 0
	}
	d := delta / (24 * time.Hour)
	delta -= d * 24 * time.Hour
	h := delta / time.Hour
	delta -= h * time.Hour
	m := delta / time.Minute
	return fmt.Sprintf("%dd %dh %dm", d, h, m)
}

// EndDate adds a whole-day plan duration to the start date.
func EndDate(start time.Time, durationDays int) time.Time {
	return start.AddDate(0, 0, durationDays)
}

// CycleStart returns the billing-cycle anchor for usage counters: midnight
// UTC of the first day of the month containing ts.
func CycleStart(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
}
