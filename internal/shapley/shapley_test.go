package shapley_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/shapley"
	"github.com/iwvelando/fleet-optimizer/internal/workpool"
	"github.com/iwvelando/fleet-optimizer/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func newAttributor(workers int, opts ...shapley.Option) *shapley.Attributor {
	opts = append([]shapley.Option{shapley.WithPool(workpool.New(workers))}, opts...)
	return shapley.NewAttributor(zap.NewNop(), opts...)
}

// exactShapley averages marginal contributions over every join order.
func exactShapley(t *fleet.Table, ids []string, p fleet.Params) map[string]float64 {
	penalty := 2 * t.TotalAdjustedCost()
	members, _ := t.Indices(ids)
	totals := make(map[string]float64, len(ids))
	orders := 0

	var permute func(prefix []int, rest []int)
	permute = func(prefix []int, rest []int) {
		if len(rest) == 0 {
			orders++
			tally := fleet.NewTally(t)
			prev := penalty
			for _, pos := range prefix {
				tally.Add(members[pos])
				cur := penalty
				if tally.Feasible(p) {
					cur = tally.Cost
				}
				totals[ids[pos]] += prev - cur
				prev = cur
			}
			return
		}
		for i := range rest {
			next := append(append([]int{}, rest[:i]...), rest[i+1:]...)
			permute(append(append([]int{}, prefix...), rest[i]), next)
		}
	}
	positions := make([]int, len(ids))
	for i := range positions {
		positions[i] = i
	}
	permute(nil, positions)
	for id := range totals {
		totals[id] /= float64(orders)
	}
	return totals
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		value, max float64
		want       shapley.Category
	}{
		{100, 100, shapley.Essential},
		{80, 100, shapley.Essential},
		{79.9, 100, shapley.Useful},
		{20, 100, shapley.Useful},
		{19.9, 100, shapley.Marginal},
		{-5, 100, shapley.Marginal},
		{10, 0, shapley.Marginal},
		{-1, -1, shapley.Marginal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shapley.Categorize(tt.value, tt.max), "value %v max %v", tt.value, tt.max)
	}
}

func TestAttributeOptimalPair(t *testing.T) {
	defer goleak.VerifyNone(t)

	table := testutil.FiveVesselTable()
	report, err := newAttributor(2).Attribute(context.Background(), table, []string{"V3", "V5"}, 1000, testutil.FiveVesselParams(), 42)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.False(t, report.Incomplete)
	assert.Equal(t, 1000, report.Completed)

	// neither vessel is feasible alone, so whoever joins second earns
	// penalty - cost = 800000 - 140000
	assert.InDelta(t, 660_000, report.Results[0].ShapleyValue+report.Results[1].ShapleyValue, 0.02)
	for i, r := range report.Results {
		assert.Equal(t, i+1, r.Rank)
		assert.InDelta(t, 330_000, r.ShapleyValue, 40_000)
		assert.Equal(t, shapley.Essential, r.Category)
	}
	assert.Equal(t, shapley.Summary{
		TotalShapleyValue: report.Summary.TotalShapleyValue,
		VesselCount:       2,
		EssentialCount:    2,
	}, report.Summary)
	assert.InDelta(t, 660_000, report.Summary.TotalShapleyValue, 0.02)
}

func TestAttributeOptimalPairReproducible(t *testing.T) {
	defer goleak.VerifyNone(t)

	table := testutil.FiveVesselTable()
	ids := []string{"V3", "V5"}
	first, err := newAttributor(4).Attribute(context.Background(), table, ids, 5000, testutil.FiveVesselParams(), 42)
	require.NoError(t, err)
	second, err := newAttributor(4).Attribute(context.Background(), table, ids, 5000, testutil.FiveVesselParams(), 42)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("attribution differs between runs (-first +second):\n%s", diff)
	}

	require.Len(t, first.Results, 2)
	assert.Equal(t, 5000, first.Completed)
	assert.False(t, first.Incomplete)
	top := first.Results[0]
	assert.Equal(t, 1, top.Rank)
	assert.GreaterOrEqual(t, top.ShapleyValue, first.Results[1].ShapleyValue)
	assert.Equal(t, shapley.Essential, top.Category)
	assert.ElementsMatch(t, ids, []string{first.Results[0].VesselID, first.Results[1].VesselID})
	assert.InDelta(t, 660_000, first.Summary.TotalShapleyValue, 0.02)
}

func TestAttributeConvergesToExact(t *testing.T) {
	table := testutil.FiveVesselTable()
	params := fleet.Params{MinCapacity: 700_000, MinAvgSafety: 3.0, RequireAllFuelTypes: true}
	ids := table.IDs()
	exact := exactShapley(table, ids, params)

	report, err := newAttributor(4).Attribute(context.Background(), table, ids, 5000, params, 7)
	require.NoError(t, err)

	sum := 0.0
	for _, r := range report.Results {
		sum += r.ShapleyValue
		assert.InDelta(t, exact[r.VesselID], r.ShapleyValue, 30_000, r.VesselID)
	}
	// efficiency: v(empty) - v(all) = 800000 - 400000
	assert.InDelta(t, 400_000, sum, 0.05)
}

func TestAttributeDeterministicAcrossWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	table := testutil.FiveVesselTable()
	params := fleet.Params{MinCapacity: 700_000, MinAvgSafety: 3.0, RequireAllFuelTypes: true}

	first, err := newAttributor(1).Attribute(context.Background(), table, table.IDs(), 5000, params, 42)
	require.NoError(t, err)
	second, err := newAttributor(8).Attribute(context.Background(), table, table.IDs(), 5000, params, 42)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("attribution differs between runs (-first +second):\n%s", diff)
	}

	for _, r := range first.Results[1:] {
		assert.GreaterOrEqual(t, first.Results[0].ShapleyValue, r.ShapleyValue)
	}

	other, err := newAttributor(1).Attribute(context.Background(), table, table.IDs(), 5000, params, 43)
	require.NoError(t, err)
	assert.NotEqual(t, first.Results, other.Results)
}

func TestAttributeRejectsBadInput(t *testing.T) {
	table := testutil.FiveVesselTable()
	a := newAttributor(1)

	_, err := a.Attribute(context.Background(), table, []string{"V3"}, 0, testutil.FiveVesselParams(), 1)
	assert.ErrorIs(t, err, fleet.ErrInvalidConfig)

	_, err = a.Attribute(context.Background(), table, []string{"V3", "V9"}, 10, testutil.FiveVesselParams(), 1)
	assert.ErrorIs(t, err, fleet.ErrInvalidConfig)
	assert.ErrorIs(t, err, fleet.ErrUnknownVessel)

	_, err = a.Attribute(context.Background(), table, []string{"V3", "V3"}, 10, testutil.FiveVesselParams(), 1)
	assert.ErrorIs(t, err, fleet.ErrInvalidConfig)

	_, err = a.Attribute(context.Background(), testutil.MustTable(nil), nil, 10, testutil.FiveVesselParams(), 1)
	assert.ErrorIs(t, err, fleet.ErrInvalidConfig)
}

func TestAttributeEmptyReference(t *testing.T) {
	report, err := newAttributor(1).Attribute(context.Background(), testutil.FiveVesselTable(), nil, 10, testutil.FiveVesselParams(), 1)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, shapley.Summary{}, report.Summary)
}

func TestAttributeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newAttributor(2).Attribute(ctx, testutil.FiveVesselTable(), []string{"V3", "V5"}, 1000, testutil.FiveVesselParams(), 1)
	require.NoError(t, err)
	assert.True(t, report.Incomplete)
	assert.Zero(t, report.Completed)
	require.Len(t, report.Results, 2)
	for _, r := range report.Results {
		assert.Zero(t, r.ShapleyValue)
	}
}

func TestAttributeProgressSurvivesPanics(t *testing.T) {
	calls := 0
	a := newAttributor(1, shapley.WithProgress(func(completed, total int) {
		calls++
		panic("callback failure")
	}))
	report, err := a.Attribute(context.Background(), testutil.FiveVesselTable(), []string{"V3", "V5"}, 200, testutil.FiveVesselParams(), 1)
	require.NoError(t, err)
	assert.False(t, report.Incomplete)
	// every 1% of 200 permutations
	assert.Equal(t, 100, calls)
}
