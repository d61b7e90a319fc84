// Package insights derives qualitative signals from an allocation
// percentage map: an investor archetype, a risk level, and a
// diversification score. All three functions are pure and deterministic so
// their output can be snapshot-tested.
package insights

import (
	"math"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

// Archetype is a labeled qualitative investor profile.
type Archetype struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Classify evaluates an ordered decision list over the allocation map;
// the first matching rule wins, so rule order is part of the contract.
func Classify(pct map[entities.AssetType]float64) Archetype {
	crypto := pct[entities.AssetTypeCrypto]
	stock := pct[entities.AssetTypeStock]
	property := pct[entities.AssetTypeProperty]
	cash := pct[entities.AssetTypeCash]
	other := pct[entities.AssetTypeOther]

	typeCount := len(pct)
	maxAlloc := 0.0
	for _, v := range pct {
		if v > maxAlloc {
			maxAlloc = v
		}
	}

	switch {
	case crypto >= 60:
		return Archetype{"The Crypto Degen", "High conviction. High volatility. Zero chill."}
	case crypto >= 40:
		return Archetype{"Digital Maverick", "Bullish on the future, one block at a time."}
	case stock >= 70:
		return Archetype{"Equity Devotee", "You believe in companies. Markets agree — mostly."}
	case property >= 50:
		return Archetype{"Property Bull", "Bricks over bytes. Slow and steady."}
	case cash >= 60:
		return Archetype{"The Cautious Accumulator", "Patience is a strategy. Or it should be."}
	case typeCount >= 4 && maxAlloc < 40:
		return Archetype{"The Diversifier", "You've read the books. It shows."}
	case other >= 30:
		return Archetype{"The Speculator", "Unconventional assets, unconventional thinking."}
	case stock >= 40 && crypto >= 20:
		return Archetype{"Growth Seeker", "Balanced between tradition and the frontier."}
	default:
		return Archetype{"The Balanced Investor", "Risk-aware and opportunity-ready."}
	}
}

// RiskLevel grades the portfolio's volatility appetite on a 1-3 scale.
type RiskLevel struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Risk weighs volatile allocations against defensive ones. Crypto and stock
// push the score up; cash and property pull it down.
func Risk(pct map[entities.AssetType]float64) RiskLevel {
	score := pct[entities.AssetTypeCrypto]*0.9 +
		pct[entities.AssetTypeStock]*0.5 -
		pct[entities.AssetTypeCash]*0.7 -
		pct[entities.AssetTypeProperty]*0.4

	switch {
	case score > 40:
		return RiskLevel{Label: "High", Value: 3}
	case score > 15:
		return RiskLevel{Label: "Medium", Value: 2}
	default:
		return RiskLevel{Label: "Low", Value: 1}
	}
}

// Diversification scores concentration on a 0-100 scale.
type Diversification struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// concentratedScore is the fixed score for single-type portfolios, where
// the HHI normalization divides by zero.
const concentratedScore = 8

// Diversify inverts the Herfindahl-Hirschman index of the allocation shares
// and normalizes it by the best achievable spread across n types.
func Diversify(pct map[entities.AssetType]float64) Diversification {
	n := len(pct)
	if n <= 1 {
		return Diversification{Score: concentratedScore, Label: "Concentrated"}
	}

	hhi := 0.0
	for _, v := range pct {
		share := v / 100
		hhi += share * share
	}

	score := int(math.Round((1 - hhi) / (1 - 1/float64(n)) * 100))

	label := "Concentrated"
	switch {
	case score >= 70:
		label = "Diversified"
	case score >= 40:
		label = "Moderate"
	}
	return Diversification{Score: score, Label: label}
}
