// Package testutil provides common fixtures for testing the fleet analyses.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
)

// FiveVesselRecords returns the small reference scenario: capacities of one
// to five hundred thousand tonnes, two fuel types and descending costs.
func FiveVesselRecords() []fleet.VesselRecord {
	dwt := []float64{100_000, 200_000, 300_000, 400_000, 500_000}
	safety := []int{3, 4, 5, 3, 4}
	cost := []float64{100_000, 90_000, 80_000, 70_000, 60_000}
	fuel := []string{"A", "a", "B", "b", "A"}

	records := make([]fleet.VesselRecord, len(dwt))
	for i := range dwt {
		records[i] = fleet.VesselRecord{
			VesselID:         fmt.Sprintf("V%d", i+1),
			DWT:              dwt[i],
			SafetyScore:      safety[i],
			FuelType:         fuel[i],
			FuelCostUSD:      cost[i] * 0.5,
			CarbonCostUSD:    cost[i] * 0.2,
			OwnershipCostUSD: cost[i] * 0.3,
			AdjustedCostUSD:  cost[i],
			TotalCO2eq:       cost[i] / 1000,
			TotalFuel:        cost[i] / 3000,
		}
	}
	return records
}

// FiveVesselParams returns the requirements of the reference scenario.
func FiveVesselParams() fleet.Params {
	return fleet.Params{
		MinCapacity:         700_000,
		MinAvgSafety:        4.0,
		RequireAllFuelTypes: true,
	}
}

// MustTable builds a table and panics on error. For fixtures only.
func MustTable(records []fleet.VesselRecord) *fleet.Table {
	t, err := fleet.NewTable(records)
	if err != nil {
		panic(err)
	}
	return t
}

// FiveVesselTable returns the reference scenario as a table.
func FiveVesselTable() *fleet.Table {
	return MustTable(FiveVesselRecords())
}

// RandomRecords generates n vessels with a deterministic pseudo-random mix
// of capacities, safety scores, fuel types and costs.
func RandomRecords(seed int64, n int) []fleet.VesselRecord {
	rng := rand.New(rand.NewSource(seed))
	fuels := []string{"Distillate fuel", "LNG", "Methanol", "Ammonia"}
	records := make([]fleet.VesselRecord, n)
	for i := range records {
		dwt := float64(20_000 + rng.Intn(130_000))
		fuelCost := 50_000 + rng.Float64()*400_000
		co2 := fuelCost / 200
		carbon := co2 * 80
		ownership := 100_000 + dwt*2
		records[i] = fleet.VesselRecord{
			VesselID:         fmt.Sprintf("R%03d", i),
			DWT:              dwt,
			SafetyScore:      1 + rng.Intn(5),
			FuelType:         fuels[rng.Intn(len(fuels))],
			FuelCostUSD:      fuelCost,
			CarbonCostUSD:    carbon,
			OwnershipCostUSD: ownership,
			AdjustedCostUSD:  fuelCost + carbon + ownership,
			TotalCO2eq:       co2,
			TotalFuel:        fuelCost / 650,
		}
	}
	return records
}

// BruteForce enumerates every subset of a small table and returns the
// positions of the cheapest feasible one and its cost. ok is false when no
// subset is feasible.
func BruteForce(t *fleet.Table, p fleet.Params) (best []int, cost float64, ok bool) {
	n := t.Len()
	for mask := 1; mask < 1<<n; mask++ {
		tally := fleet.NewTally(t)
		var members []int
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				tally.Add(i)
				members = append(members, i)
			}
		}
		if !tally.Feasible(p) {
			continue
		}
		if !ok || tally.Cost < cost {
			best, cost, ok = members, tally.Cost, true
		}
	}
	return best, cost, ok
}
