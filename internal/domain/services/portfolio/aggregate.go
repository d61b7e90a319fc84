package portfolio

import (
	"sort"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/internal/domain/services/fxrates"
)

// UnassignedAccount labels holdings whose custodian/account is unknown.
const UnassignedAccount = "Unassigned"

// Aggregation is the converted, grouped view of a set of assets in a single
// display currency.
type Aggregation struct {
	// TotalNAV includes liabilities, so debt reduces net worth.
	TotalNAV float64

	// ByType sums converted values per asset type, liabilities included.
	ByType map[entities.AssetType]float64

	// PositiveByType holds the type buckets whose total is >= 0. Buckets
	// that net out negative are folded into LiabilitiesTotal instead, so
	// allocation percentages are not distorted by debt.
	PositiveByType   map[entities.AssetType]float64
	PositiveTotal    float64
	LiabilitiesTotal float64

	// Pct is each positive bucket's share of PositiveTotal, in percent.
	// All zero when there is no positive wealth.
	Pct map[entities.AssetType]float64

	// ByAccount answers "where is my wealth held": only assets with a
	// strictly positive converted value contribute.
	ByAccount map[string]float64

	HoldingsCount int
}

// Aggregate converts every asset into displayCurrency and groups the
// results. It never fails: an empty slice yields zero totals and empty maps.
func Aggregate(assets []*entities.Asset, displayCurrency string, rates map[string]float64) *Aggregation {
	agg := &Aggregation{
		ByType:         make(map[entities.AssetType]float64),
		PositiveByType: make(map[entities.AssetType]float64),
		Pct:            make(map[entities.AssetType]float64),
		ByAccount:      make(map[string]float64),
		HoldingsCount:  len(assets),
	}

	for _, a := range assets {
		value := fxrates.Convert(a.TotalValue, a.TotalValueCurrency, displayCurrency, rates)
		agg.TotalNAV += value
		agg.ByType[a.AssetType.Normalize()] += value

		if value > 0 {
			account := UnassignedAccount
			if a.Source != nil && *a.Source != "" {
				account = *a.Source
			}
			agg.ByAccount[account] += value
		}
	}

	for assetType, total := range agg.ByType {
		if total >= 0 {
			agg.PositiveByType[assetType] = total
			agg.PositiveTotal += total
		} else {
			agg.LiabilitiesTotal += total
		}
	}

	for assetType, total := range agg.PositiveByType {
		if agg.PositiveTotal > 0 {
			agg.Pct[assetType] = total / agg.PositiveTotal * 100
		} else {
			agg.Pct[assetType] = 0
		}
	}

	return agg
}

// Slice is one grouped bucket prepared for presentation.
type Slice struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// AllocationSlices returns the positive type buckets sorted by descending
// value, or alphabetically when requested.
func (a *Aggregation) AllocationSlices(alphabetical bool) []Slice {
	slices := make([]Slice, 0, len(a.PositiveByType))
	for assetType, value := range a.PositiveByType {
		slices = append(slices, Slice{
			Name:    string(assetType),
			Value:   value,
			Percent: a.Pct[assetType],
		})
	}
	sortSlices(slices, alphabetical)
	return slices
}

// AccountSlices returns the per-account buckets sorted by descending value,
// or alphabetically when requested. Percentages use the positive total as
// the base, mirroring the allocation view.
func (a *Aggregation) AccountSlices(alphabetical bool) []Slice {
	slices := make([]Slice, 0, len(a.ByAccount))
	for account, value := range a.ByAccount {
		pct := 0.0
		if a.PositiveTotal > 0 {
			pct = value / a.PositiveTotal * 100
		}
		slices = append(slices, Slice{Name: account, Value: value, Percent: pct})
	}
	sortSlices(slices, alphabetical)
	return slices
}

func sortSlices(slices []Slice, alphabetical bool) {
	sort.Slice(slices, func(i, j int) bool {
		if alphabetical {
			return slices[i].Name < slices[j].Name
		}
		if slices[i].Value != slices[j].Value {
			return slices[i].Value > slices[j].Value
		}
		return slices[i].Name < slices[j].Name
	})
}
