package entities

// NAVDateLayout is the calendar-day format used for history entries.
// The format is lexicographically sortable, so entries can be ordered by
// plain string comparison.
const NAVDateLayout = "2006-01-02"

// NAVHistoryEntry is a once-per-day snapshot of total net asset value.
// TotalNAV is always denominated in USD; DisplayCurrency only records what
// the user was looking at when the snapshot was taken.
type NAVHistoryEntry struct {
	Date            string  `json:"date" db:"date"`
	TotalNAV        float64 `json:"total_nav" db:"total_nav"`
	DisplayCurrency string  `json:"display_currency" db:"display_currency"`
}
