package entities

import "time"

// FXFreshness is how long a rate snapshot stays usable before a refetch.
const FXFreshness = time.Hour

// FXSnapshot holds USD-relative exchange rates. Rates always contains the
// "USD" key with value 1.
type FXSnapshot struct {
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// IsFresh reports whether the snapshot is within the freshness window.
func (s *FXSnapshot) IsFresh(now time.Time) bool {
	return now.Sub(s.FetchedAt) < FXFreshness
}

// DefaultFXSnapshot returns the degenerate rate table used when no rates
// have ever been fetched. Portfolio math degrades to treating every
// currency as equal to USD instead of halting.
func DefaultFXSnapshot(now time.Time) *FXSnapshot {
	return &FXSnapshot{
		Rates:     map[string]float64{"USD": 1},
		FetchedAt: now,
	}
}
