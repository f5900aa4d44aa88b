package fleet_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableInternsFuelTypes(t *testing.T) {
	table, err := fleet.NewTable(testutil.FiveVesselRecords())
	require.NoError(t, err)

	assert.Equal(t, 5, table.Len())
	assert.Equal(t, 2, table.FuelTypeCount())
	assert.Equal(t, []string{"A", "B"}, table.FuelTypes())
	assert.Equal(t, table.FuelIndex(0), table.FuelIndex(1), "A and a share a key")
	assert.Equal(t, table.FuelIndex(2), table.FuelIndex(3), "B and b share a key")
	assert.NotEqual(t, table.FuelIndex(0), table.FuelIndex(2))
	assert.InDelta(t, 400_000.0, table.TotalAdjustedCost(), 1e-9)
}

func TestNewTableRejectsBadIDs(t *testing.T) {
	records := testutil.FiveVesselRecords()
	records[3].VesselID = records[0].VesselID
	_, err := fleet.NewTable(records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fleet.ErrInvalidConfig))

	records = testutil.FiveVesselRecords()
	records[2].VesselID = "  "
	_, err = fleet.NewTable(records)
	assert.ErrorIs(t, err, fleet.ErrInvalidConfig)
}

func TestNewTableCopiesRecords(t *testing.T) {
	records := testutil.FiveVesselRecords()
	table, err := fleet.NewTable(records)
	require.NoError(t, err)

	records[0].AdjustedCostUSD = 1
	assert.Equal(t, 100_000.0, table.Vessel(0).AdjustedCostUSD)

	out := table.Records()
	out[1].DWT = 0
	assert.Equal(t, 200_000.0, table.Vessel(1).DWT)
}

func TestIndices(t *testing.T) {
	table := testutil.FiveVesselTable()

	idx, err := table.Indices([]string{"V5", "V1"})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 0}, idx)

	_, err = table.Indices([]string{"V9"})
	assert.ErrorIs(t, err, fleet.ErrUnknownVessel)
}

func TestTallyFeasibility(t *testing.T) {
	table := testutil.FiveVesselTable()
	params := testutil.FiveVesselParams()

	tally := fleet.NewTally(table)
	assert.False(t, tally.Feasible(params), "empty coalition is infeasible")
	assert.True(t, math.IsNaN(tally.AvgSafety()))

	tally.Add(2)
	assert.False(t, tally.Feasible(params), "capacity short")
	tally.Add(4)
	assert.True(t, tally.Feasible(params))
	assert.Equal(t, 2, tally.FuelTypesCovered())
	assert.InDelta(t, 4.5, tally.AvgSafety(), 1e-12)

	tally.Add(0)
	assert.True(t, tally.Feasible(params), "average safety exactly 4.0")
	assert.InDelta(t, 4.0, tally.AvgSafety(), 1e-12)

	tally.Add(3)
	assert.False(t, tally.Feasible(params), "average safety drops to 3.75")

	tally.Remove(3)
	tally.Remove(0)
	tally.Remove(2)
	assert.Equal(t, 1, tally.FuelTypesCovered())
	assert.False(t, tally.Feasible(params), "fuel type B missing")

	relaxed := params
	relaxed.RequireAllFuelTypes = false
	relaxed.MinCapacity = 500_000
	assert.True(t, tally.Feasible(relaxed))
}

func TestTallyAverageSafetyBoundary(t *testing.T) {
	table := testutil.FiveVesselTable()
	params := fleet.Params{MinCapacity: 0, MinAvgSafety: 4.0}

	tally := fleet.NewTally(table)
	tally.Add(0) // 3
	tally.Add(2) // 5
	assert.True(t, tally.Feasible(params), "average exactly at threshold")
}

func TestTallyClone(t *testing.T) {
	table := testutil.FiveVesselTable()
	tally := fleet.NewTally(table)
	tally.Add(0)

	clone := tally.Clone()
	clone.Add(2)
	assert.Equal(t, 1, tally.Count)
	assert.Equal(t, 1, tally.FuelTypesCovered())
	assert.Equal(t, 2, clone.FuelTypesCovered())
}

func TestTallyReset(t *testing.T) {
	tally := fleet.NewTally(testutil.FiveVesselTable())
	tally.Add(1)
	tally.Add(2)
	tally.Reset()
	assert.Equal(t, *fleet.NewTally(testutil.FiveVesselTable()), *tally)
	assert.False(t, tally.Feasible(testutil.FiveVesselParams()))
}

func TestSummarize(t *testing.T) {
	table := testutil.FiveVesselTable()
	result := fleet.Summarize(table, []int{2, 4}, fleet.StatusOptimal)

	assert.Equal(t, []string{"V3", "V5"}, result.SelectedIDs)
	assert.InDelta(t, 140_000.0, result.TotalCost, 1e-9)
	assert.InDelta(t, 800_000.0, result.TotalCapacity, 1e-9)
	assert.InDelta(t, 4.5, result.AvgSafety, 1e-12)
	assert.Equal(t, 2, result.FleetSize)
	assert.Equal(t, 2, result.FuelTypeCount)
	assert.True(t, result.Optimal())
}

func TestEmptyResult(t *testing.T) {
	result := fleet.EmptyResult(fleet.StatusInfeasible)
	assert.Empty(t, result.SelectedIDs)
	assert.NotNil(t, result.SelectedIDs)
	assert.Zero(t, result.TotalCost)
	assert.Zero(t, result.FleetSize)
	assert.True(t, math.IsNaN(result.AvgSafety))
	assert.False(t, result.Optimal())
}

func TestStatusText(t *testing.T) {
	data, err := json.Marshal(map[string]fleet.Status{"status": fleet.StatusInfeasible})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Infeasible"}`, string(data))

	var s fleet.Status
	require.NoError(t, s.UnmarshalText([]byte("Optimal")))
	assert.Equal(t, fleet.StatusOptimal, s)
	assert.Error(t, s.UnmarshalText([]byte("Solved")))
	assert.Equal(t, "Status(9)", fleet.Status(9).String())
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, fleet.DefaultParams().Validate())
	bad := fleet.DefaultParams()
	bad.MinAvgSafety = math.NaN()
	assert.ErrorIs(t, bad.Validate(), fleet.ErrInvalidConfig)

	p := fleet.DefaultParams().WithMinAvgSafety(4.2)
	assert.Equal(t, 4.2, p.MinAvgSafety)
	assert.Equal(t, fleet.DefaultParams().MinCapacity, p.MinCapacity)
}
