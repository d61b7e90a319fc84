package entities

// ErrorResponse is the standard error payload returned by the API layer.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ChangePeriod selects the look-back window for period-over-period change.
type ChangePeriod string

const (
	Period1D  ChangePeriod = "1D"
	Period1W  ChangePeriod = "1W"
	Period1M  ChangePeriod = "1M"
	PeriodAll ChangePeriod = "All"
)

// ParseChangePeriod returns the period for s, defaulting to 1D for
// unrecognized values.
func ParseChangePeriod(s string) ChangePeriod {
	switch ChangePeriod(s) {
	case Period1W, Period1M, PeriodAll:
		return ChangePeriod(s)
	default:
		return Period1D
	}
}

// SortOrder controls asset list presentation.
type SortOrder string

const (
	SortValueDesc SortOrder = "value_desc"
	SortValueAsc  SortOrder = "value_asc"
	SortNameAsc   SortOrder = "name_asc"
)
