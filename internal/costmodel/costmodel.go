// Package costmodel recomputes vessel costs for a different carbon price.
package costmodel

import (
	"math"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
)

// Model holds the safety risk adjustments applied on top of the monthly cost.
type Model struct {
	adjustments map[int]float64
}

// New returns a Model with the given adjustments keyed by safety score. A nil
// map selects the default adjustments. The map is copied.
func New(adjustments map[int]float64) *Model {
	if adjustments == nil {
		adjustments = constants.DefaultSafetyAdjustments()
	}
	m := &Model{adjustments: make(map[int]float64, len(adjustments))}
	for score, adj := range adjustments {
		m.adjustments[score] = adj
	}
	return m
}

// Adjustment returns the risk premium share for a safety score. Scores
// without an entry carry no premium.
func (m *Model) Adjustment(score int) float64 {
	return m.adjustments[score]
}

// Cost returns the carbon cost and the adjusted cost of one vessel at the
// given carbon price:
//
//	carbon   = total_co2eq * price
//	monthly  = fuel + carbon + ownership
//	adjusted = monthly * (1 + adjustment(safety))
func (m *Model) Cost(rec fleet.VesselRecord, carbonPrice float64) (carbon, adjusted float64) {
	carbon = rec.TotalCO2eq * carbonPrice
	monthly := rec.FuelCostUSD + carbon + rec.OwnershipCostUSD
	premium := monthly * m.Adjustment(rec.SafetyScore)
	return carbon, monthly + premium
}

// Reprice returns a new table whose carbon and adjusted costs reflect
// carbonPrice. The input table is not modified.
func (m *Model) Reprice(t *fleet.Table, carbonPrice float64) (*fleet.Table, error) {
	if math.IsNaN(carbonPrice) || math.IsInf(carbonPrice, 0) || carbonPrice < 0 {
		return nil, fleet.Invalidf("carbon price must be a finite non-negative number, got %v", carbonPrice)
	}
	records := t.Records()
	for i := range records {
		records[i].CarbonCostUSD, records[i].AdjustedCostUSD = m.Cost(records[i], carbonPrice)
	}
	return fleet.NewTable(records)
}

// Validate rejects adjustments that would make a vessel's cost negative or
// undefined.
func (m *Model) Validate() error {
	for score, adj := range m.adjustments {
		if math.IsNaN(adj) || math.IsInf(adj, 0) {
			return fleet.Invalidf("safety adjustment for score %d must be finite", score)
		}
		if adj <= -1 {
			return fleet.Invalidf("safety adjustment for score %d must be above -100%%, got %v", score, adj)
		}
	}
	return nil
}
