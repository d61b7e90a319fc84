package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialGoal is the user's savings target. It feeds the dashboard's
// progress bar and is not part of the aggregation core.
type FinancialGoal struct {
	TargetAmount decimal.Decimal `json:"target_amount" db:"target_amount"`
	Currency     string          `json:"currency" db:"currency"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Progress returns how far a NAV (already converted to the goal currency)
// is toward the target, as a percentage clamped to [0, 100].
func (g *FinancialGoal) Progress(nav decimal.Decimal) decimal.Decimal {
	if g.TargetAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	pct := nav.Div(g.TargetAmount).Mul(decimal.NewFromInt(100))
	if pct.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return pct
}
