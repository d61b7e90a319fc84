package fxrates

// USD is the reference currency all cached rates are quoted against.
const USD = "USD"

// Convert translates an amount between two ISO 4217 currency codes using a
// USD-relative rate table. When from equals to, the amount is returned
// untouched so identity conversions never pick up floating-point noise.
//
// A currency missing from the table (or quoted at zero) is treated as 1:1
// with USD. That leniency keeps an exotic currency from crashing
// aggregation; callers needing strictness must validate coverage themselves.
func Convert(amount float64, from, to string, rates map[string]float64) float64 {
	if from == to {
		return amount
	}

	amountUSD := amount
	if from != USD {
		amountUSD = amount / rateOrOne(rates, from)
	}
	if to == USD {
		return amountUSD
	}
	return amountUSD * rateOrOne(rates, to)
}

func rateOrOne(rates map[string]float64, code string) float64 {
	if r, ok := rates[code]; ok && r != 0 {
		return r
	}
	return 1
}
