package fleet

import "github.com/iwvelando/fleet-optimizer/pkg/mathutil"

// Tally keeps the running aggregates of a coalition so vessels can be added
// and removed in constant time. Tally does not track membership; callers
// must not add a vessel twice or remove one that was never added.
type Tally struct {
	table      *Table
	fuelCounts []int
	covered    int

	Count     int
	SafetySum int
	Capacity  float64
	Cost      float64
	CO2eq     float64
	Fuel      float64
}

// NewTally returns the aggregates of the empty coalition over t.
func NewTally(t *Table) *Tally {
	return &Tally{table: t, fuelCounts: make([]int, t.FuelTypeCount())}
}

// Add includes the vessel at position i.
func (a *Tally) Add(i int) {
	rec := a.table.records[i]
	a.Count++
	a.SafetySum += rec.SafetyScore
	a.Capacity += rec.DWT
	a.Cost += rec.AdjustedCostUSD
	a.CO2eq += rec.TotalCO2eq
	a.Fuel += rec.TotalFuel
	fi := a.table.fuelIndex[i]
	if a.fuelCounts[fi] == 0 {
		a.covered++
	}
	a.fuelCounts[fi]++
}

// Remove excludes the vessel at position i.
func (a *Tally) Remove(i int) {
	rec := a.table.records[i]
	a.Count--
	a.SafetySum -= rec.SafetyScore
	a.Capacity -= rec.DWT
	a.Cost -= rec.AdjustedCostUSD
	a.CO2eq -= rec.TotalCO2eq
	a.Fuel -= rec.TotalFuel
	fi := a.table.fuelIndex[i]
	a.fuelCounts[fi]--
	if a.fuelCounts[fi] == 0 {
		a.covered--
	}
}

// Reset returns the tally to the empty coalition.
func (a *Tally) Reset() {
	for i := range a.fuelCounts {
		a.fuelCounts[i] = 0
	}
	a.covered = 0
	a.Count = 0
	a.SafetySum = 0
	a.Capacity = 0
	a.Cost = 0
	a.CO2eq = 0
	a.Fuel = 0
}

// Clone returns an independent copy.
func (a *Tally) Clone() *Tally {
	c := *a
	c.fuelCounts = make([]int, len(a.fuelCounts))
	copy(c.fuelCounts, a.fuelCounts)
	return &c
}

// FuelTypesCovered returns the number of distinct fuel types in the coalition.
func (a *Tally) FuelTypesCovered() int {
	return a.covered
}

// AvgSafety returns the unweighted mean safety score, NaN when empty.
func (a *Tally) AvgSafety() float64 {
	return mathutil.SafeMean(float64(a.SafetySum), a.Count)
}

// Feasible reports whether the coalition satisfies the capacity, average
// safety and fuel coverage requirements of p. The empty coalition is never
// feasible.
func (a *Tally) Feasible(p Params) bool {
	if a.Count == 0 {
		return false
	}
	if !mathutil.AtLeastScaled(a.Capacity, p.MinCapacity) {
		return false
	}
	// linearized average: sum(score - threshold) >= 0
	if !mathutil.AtLeast(float64(a.SafetySum)-p.MinAvgSafety*float64(a.Count), 0) {
		return false
	}
	if p.RequireAllFuelTypes && a.covered < len(a.fuelCounts) {
		return false
	}
	return true
}
