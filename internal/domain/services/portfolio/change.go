package portfolio

import (
	"sort"
	"time"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/internal/domain/services/fxrates"
)

// PeriodAnchor selects the historical snapshot that a period comparison is
// measured against. It returns nil when history has fewer than two entries,
// in which case there is no valid comparison and callers must treat the
// change as zero.
//
// Anchor rules: 1D takes the second-to-last entry (yesterday's close, not
// necessarily 24h back); All takes the oldest; 1W and 1M take the latest
// entry at or before now minus 7 or 30 days, falling back to the oldest
// when nothing is old enough.
func PeriodAnchor(history []entities.NAVHistoryEntry, period entities.ChangePeriod, now time.Time) *entities.NAVHistoryEntry {
	if len(history) < 2 {
		return nil
	}

	sorted := make([]entities.NAVHistoryEntry, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	switch period {
	case entities.Period1D:
		return &sorted[len(sorted)-2]
	case entities.PeriodAll:
		return &sorted[0]
	}

	daysBack := 7
	if period == entities.Period1M {
		daysBack = 30
	}
	target := now.AddDate(0, 0, -daysBack).Format(entities.NAVDateLayout)

	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].Date <= target {
			return &sorted[i]
		}
	}
	return &sorted[0]
}

// Change computes the absolute and percentage change of currentNAV (already
// in displayCurrency) against the period anchor. Anchor NAVs are stored in
// USD and are converted before comparison. ok is false when history is too
// short for a comparison.
//
// The anchor-or-1 divisor is deliberate policy: a zero anchor yields a
// large but finite percentage instead of Inf/NaN.
func Change(history []entities.NAVHistoryEntry, period entities.ChangePeriod, currentNAV float64, displayCurrency string, rates map[string]float64, now time.Time) (change, changePercent float64, ok bool) {
	anchor := PeriodAnchor(history, period, now)
	if anchor == nil {
		return 0, 0, false
	}

	converted := fxrates.Convert(anchor.TotalNAV, fxrates.USD, displayCurrency, rates)
	change = currentNAV - converted

	divisor := converted
	if divisor == 0 {
		divisor = 1
	}
	return change, change / divisor * 100, true
}
