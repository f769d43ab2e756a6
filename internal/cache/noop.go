package cache

import "time"

// Noop is a cache that never hits. It stands in for Redis when no address
// is configured, so analytics always falls through to the database.
type Noop struct{}

func (Noop) Get(string, any) (bool, error)        { return false, nil }
func (Noop) Set(string, any, time.Duration) error { return nil }
func (Noop) Invalidate(string) error              { return nil }
