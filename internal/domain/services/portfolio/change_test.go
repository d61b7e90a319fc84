package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

func entry(date string, nav float64) entities.NAVHistoryEntry {
	return entities.NAVHistoryEntry{Date: date, TotalNAV: nav, DisplayCurrency: "USD"}
}

var changeNow = time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

func TestPeriodAnchorRequiresTwoEntries(t *testing.T) {
	assert.Nil(t, PeriodAnchor(nil, entities.Period1D, changeNow))
	assert.Nil(t, PeriodAnchor([]entities.NAVHistoryEntry{entry("2024-01-01", 100)}, entities.Period1D, changeNow))
}

func TestPeriodAnchorOneDay(t *testing.T) {
	history := []entities.NAVHistoryEntry{
		entry("2024-01-01", 100),
		entry("2024-01-02", 110),
	}

	anchor := PeriodAnchor(history, entities.Period1D, changeNow)
	require.NotNil(t, anchor)
	assert.Equal(t, float64(100), anchor.TotalNAV)
}

func TestPeriodAnchorSortsUnorderedHistory(t *testing.T) {
	history := []entities.NAVHistoryEntry{
		entry("2024-01-09", 300),
		entry("2024-01-02", 100),
		entry("2024-01-05", 200),
	}

	anchor := PeriodAnchor(history, entities.Period1D, changeNow)
	require.NotNil(t, anchor)
	assert.Equal(t, "2024-01-05", anchor.Date)
}

func TestPeriodAnchorAll(t *testing.T) {
	history := []entities.NAVHistoryEntry{
		entry("2024-01-05", 200),
		entry("2024-01-02", 100),
		entry("2024-01-09", 300),
	}

	anchor := PeriodAnchor(history, entities.PeriodAll, changeNow)
	require.NotNil(t, anchor)
	assert.Equal(t, "2024-01-02", anchor.Date)
}

func TestPeriodAnchorWeekPicksLatestAtOrBeforeTarget(t *testing.T) {
	// now = Jan 10, target = Jan 3. Latest entry <= Jan 3 is Jan 2.
	history := []entities.NAVHistoryEntry{
		entry("2024-01-01", 90),
		entry("2024-01-02", 100),
		entry("2024-01-08", 250),
		entry("2024-01-09", 300),
	}

	anchor := PeriodAnchor(history, entities.Period1W, changeNow)
	require.NotNil(t, anchor)
	assert.Equal(t, "2024-01-02", anchor.Date)
}

func TestPeriodAnchorMonthFallsBackToOldest(t *testing.T) {
	// All entries are newer than now-30d, so the oldest wins.
	history := []entities.NAVHistoryEntry{
		entry("2024-01-08", 250),
		entry("2024-01-09", 300),
	}

	anchor := PeriodAnchor(history, entities.Period1M, changeNow)
	require.NotNil(t, anchor)
	assert.Equal(t, "2024-01-08", anchor.Date)
}

func TestChangeComputesAbsoluteAndPercent(t *testing.T) {
	history := []entities.NAVHistoryEntry{
		entry("2024-01-01", 100),
		entry("2024-01-02", 110),
	}

	change, pct, ok := Change(history, entities.Period1D, 120, "USD", map[string]float64{"USD": 1}, changeNow)
	require.True(t, ok)
	assert.InDelta(t, 20, change, 1e-9)
	assert.InDelta(t, 20, pct, 1e-9)
}

func TestChangeConvertsAnchorFromUSD(t *testing.T) {
	rates := map[string]float64{"USD": 1, "ZAR": 18.5}
	history := []entities.NAVHistoryEntry{
		entry("2024-01-01", 100), // 1850 ZAR
		entry("2024-01-02", 110),
	}

	change, pct, ok := Change(history, entities.Period1D, 2035, "ZAR", rates, changeNow)
	require.True(t, ok)
	assert.InDelta(t, 185, change, 1e-9)
	assert.InDelta(t, 10, pct, 1e-9)
}

func TestChangeDegenerateHistory(t *testing.T) {
	_, _, ok := Change([]entities.NAVHistoryEntry{entry("2024-01-01", 100)}, entities.PeriodAll, 500, "USD", map[string]float64{"USD": 1}, changeNow)
	assert.False(t, ok)
}

func TestChangeZeroAnchorStaysFinite(t *testing.T) {
	history := []entities.NAVHistoryEntry{
		entry("2024-01-01", 0),
		entry("2024-01-02", 0),
	}

	change, pct, ok := Change(history, entities.Period1D, 50, "USD", map[string]float64{"USD": 1}, changeNow)
	require.True(t, ok)
	assert.InDelta(t, 50, change, 1e-9)
	// Guarded divisor: 50 / 1 * 100, not Inf.
	assert.InDelta(t, 5000, pct, 1e-9)
}
