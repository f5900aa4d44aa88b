package output

import (
	"math"
	"sort"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/pareto"
	"github.com/iwvelando/fleet-optimizer/internal/sensitivity"
	"github.com/iwvelando/fleet-optimizer/pkg/mathutil"
)

// FleetSummary is the exported form of a selection result. AvgSafety is
// omitted when the selection is empty.
type FleetSummary struct {
	Status        fleet.Status `json:"solver_status" yaml:"solver_status"`
	FleetSize     int          `json:"fleet_size" yaml:"fleet_size"`
	TotalCost     float64      `json:"total_cost" yaml:"total_cost"`
	TotalDWT      float64      `json:"total_dwt" yaml:"total_dwt"`
	AvgSafety     *float64     `json:"avg_safety_score,omitempty" yaml:"avg_safety_score,omitempty"`
	TotalCO2eq    float64      `json:"total_co2eq" yaml:"total_co2eq"`
	TotalFuel     float64      `json:"total_fuel" yaml:"total_fuel"`
	FuelTypeCount int          `json:"fuel_types_count" yaml:"fuel_types_count"`
	SelectedIDs   []string     `json:"fleet_vessel_ids" yaml:"fleet_vessel_ids"`
}

// VesselRow is one vessel of the candidate pool with its selection flag.
type VesselRow struct {
	VesselID        string  `json:"vessel_id" yaml:"vessel_id"`
	VesselType      string  `json:"vessel_type,omitempty" yaml:"vessel_type,omitempty"`
	DWT             float64 `json:"dwt" yaml:"dwt"`
	SafetyScore     int     `json:"safety_score" yaml:"safety_score"`
	FuelType        string  `json:"main_engine_fuel_type" yaml:"main_engine_fuel_type"`
	TotalFuel       float64 `json:"total_fuel" yaml:"total_fuel"`
	TotalCO2eq      float64 `json:"total_co2eq" yaml:"total_co2eq"`
	AdjustedCostUSD float64 `json:"adjusted_cost_usd" yaml:"adjusted_cost_usd"`
	Selected        bool    `json:"selected" yaml:"selected"`
}

// FuelTypeRow aggregates the candidate pool by main engine fuel type.
type FuelTypeRow struct {
	FuelType    string  `json:"fuel_type" yaml:"fuel_type"`
	VesselCount int     `json:"vessel_count" yaml:"vessel_count"`
	TotalDWT    float64 `json:"total_dwt" yaml:"total_dwt"`
	TotalFuel   float64 `json:"total_fuel" yaml:"total_fuel"`
	TotalCO2eq  float64 `json:"total_co2eq" yaml:"total_co2eq"`
	TotalCost   float64 `json:"total_cost" yaml:"total_cost"`
	AvgSafety   float64 `json:"avg_safety_score" yaml:"avg_safety_score"`
}

// Submission is the single-row competition summary of a selection.
type Submission struct {
	SumDWT               float64  `json:"sum_of_fleet_deadweight" yaml:"sum_of_fleet_deadweight"`
	TotalCost            float64  `json:"total_cost_of_fleet" yaml:"total_cost_of_fleet"`
	AvgSafety            *float64 `json:"average_fleet_safety_score,omitempty" yaml:"average_fleet_safety_score,omitempty"`
	FuelTypeCount        int      `json:"no_of_unique_main_engine_fuel_types_in_fleet" yaml:"no_of_unique_main_engine_fuel_types_in_fleet"`
	SensitivityPerformed string   `json:"sensitivity_analysis_performance" yaml:"sensitivity_analysis_performance"`
	FleetSize            int      `json:"size_of_fleet_count" yaml:"size_of_fleet_count"`
	TotalCO2eq           float64  `json:"total_emission_CO2_eq" yaml:"total_emission_CO2_eq"`
	TotalFuel            float64  `json:"total_fuel_consumption" yaml:"total_fuel_consumption"`
}

// FleetExport is the full export of a selection.
type FleetExport struct {
	OptimalFleet FleetSummary  `json:"optimal_fleet" yaml:"optimal_fleet"`
	Submission   Submission    `json:"submission" yaml:"submission"`
	FuelTypes    []FuelTypeRow `json:"fuel_types" yaml:"fuel_types"`
	Vessels      []VesselRow   `json:"vessels" yaml:"vessels"`
}

// NewFleetExport builds the export of r against the table it was solved on.
func NewFleetExport(t *fleet.Table, r fleet.Result, sensitivityPerformed bool) FleetExport {
	return FleetExport{
		OptimalFleet: NewFleetSummary(r),
		Submission:   NewSubmission(r, sensitivityPerformed),
		FuelTypes:    FuelTypeSummary(t),
		Vessels:      VesselRows(t, r),
	}
}

// NewFleetSummary rounds r for export.
func NewFleetSummary(r fleet.Result) FleetSummary {
	ids := r.SelectedIDs
	if ids == nil {
		ids = []string{}
	}
	return FleetSummary{
		Status:        r.Status,
		FleetSize:     r.FleetSize,
		TotalCost:     mathutil.Round(r.TotalCost),
		TotalDWT:      mathutil.Round(r.TotalCapacity),
		AvgSafety:     optionalRound(r.AvgSafety),
		TotalCO2eq:    mathutil.Round(r.TotalCO2eq),
		TotalFuel:     mathutil.Round(r.TotalFuel),
		FuelTypeCount: r.FuelTypeCount,
		SelectedIDs:   ids,
	}
}

// NewSubmission builds the competition summary row of r.
func NewSubmission(r fleet.Result, sensitivityPerformed bool) Submission {
	performed := "No"
	if sensitivityPerformed {
		performed = "Yes"
	}
	return Submission{
		SumDWT:               math.Trunc(r.TotalCapacity),
		TotalCost:            mathutil.Round(r.TotalCost),
		AvgSafety:            optionalRound(r.AvgSafety),
		FuelTypeCount:        r.FuelTypeCount,
		SensitivityPerformed: performed,
		FleetSize:            r.FleetSize,
		TotalCO2eq:           mathutil.Round(r.TotalCO2eq),
		TotalFuel:            mathutil.Round(r.TotalFuel),
	}
}

// VesselRows lists every vessel of t in table order, flagging the vessels
// selected in r.
func VesselRows(t *fleet.Table, r fleet.Result) []VesselRow {
	selected := make(map[string]bool, len(r.SelectedIDs))
	for _, id := range r.SelectedIDs {
		selected[id] = true
	}
	rows := make([]VesselRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		rec := t.Vessel(i)
		rows = append(rows, VesselRow{
			VesselID:        rec.VesselID,
			VesselType:      rec.VesselType,
			DWT:             mathutil.Round(rec.DWT),
			SafetyScore:     rec.SafetyScore,
			FuelType:        rec.FuelType,
			TotalFuel:       mathutil.Round(rec.TotalFuel),
			TotalCO2eq:      mathutil.Round(rec.TotalCO2eq),
			AdjustedCostUSD: mathutil.Round(rec.AdjustedCostUSD),
			Selected:        selected[rec.VesselID],
		})
	}
	return rows
}

// FuelTypeSummary aggregates t per fuel type, ordered by fuel type label.
func FuelTypeSummary(t *fleet.Table) []FuelTypeRow {
	labels := t.FuelTypes()
	rows := make([]FuelTypeRow, len(labels))
	safety := make([]float64, len(labels))
	for i, label := range labels {
		rows[i].FuelType = label
	}
	for i := 0; i < t.Len(); i++ {
		rec := t.Vessel(i)
		row := &rows[t.FuelIndex(i)]
		row.VesselCount++
		row.TotalDWT += rec.DWT
		row.TotalFuel += rec.TotalFuel
		row.TotalCO2eq += rec.TotalCO2eq
		row.TotalCost += rec.AdjustedCostUSD
		safety[t.FuelIndex(i)] += float64(rec.SafetyScore)
	}
	for i := range rows {
		rows[i].AvgSafety = mathutil.Round(mathutil.SafeMean(safety[i], rows[i].VesselCount))
		rows[i].TotalDWT = mathutil.Round(rows[i].TotalDWT)
		rows[i].TotalFuel = mathutil.Round(rows[i].TotalFuel)
		rows[i].TotalCO2eq = mathutil.Round(rows[i].TotalCO2eq)
		rows[i].TotalCost = mathutil.Round(rows[i].TotalCost)
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].FuelType < rows[b].FuelType })
	return rows
}

// HeatmapSummary describes the axes and feasibility of a heatmap.
type HeatmapSummary struct {
	TotalCells       int       `json:"total_cells" yaml:"total_cells"`
	FeasibleCells    int       `json:"feasible_cells" yaml:"feasible_cells"`
	CarbonPrices     []float64 `json:"carbon_prices" yaml:"carbon_prices"`
	SafetyThresholds []float64 `json:"safety_thresholds" yaml:"safety_thresholds"`
	Incomplete       bool      `json:"incomplete" yaml:"incomplete"`
}

// HeatmapExport is the exported form of a heatmap.
type HeatmapExport struct {
	Summary HeatmapSummary     `json:"summary" yaml:"summary"`
	Cells   []sensitivity.Cell `json:"cells" yaml:"cells"`
}

// NewHeatmapExport summarizes h.
func NewHeatmapExport(h sensitivity.Heatmap) HeatmapExport {
	s := HeatmapSummary{
		TotalCells: len(h.Cells),
		Incomplete: h.Incomplete,
	}
	prices := map[float64]bool{}
	thresholds := map[float64]bool{}
	for _, c := range h.Cells {
		if c.Feasible {
			s.FeasibleCells++
		}
		prices[c.CarbonPrice] = true
		thresholds[c.SafetyThreshold] = true
	}
	s.CarbonPrices = sortedKeys(prices)
	s.SafetyThresholds = sortedKeys(thresholds)
	cells := h.Cells
	if cells == nil {
		cells = []sensitivity.Cell{}
	}
	return HeatmapExport{Summary: s, Cells: cells}
}

// CarbonSummary lists the swept prices.
type CarbonSummary struct {
	NumPoints    int       `json:"num_points" yaml:"num_points"`
	CarbonPrices []float64 `json:"carbon_prices" yaml:"carbon_prices"`
	Incomplete   bool      `json:"incomplete" yaml:"incomplete"`
}

// CarbonExport is the exported form of a carbon price sweep.
type CarbonExport struct {
	Summary CarbonSummary             `json:"summary" yaml:"summary"`
	Points  []sensitivity.CarbonPoint `json:"points" yaml:"points"`
}

// NewCarbonExport summarizes s.
func NewCarbonExport(s sensitivity.CarbonSweep) CarbonExport {
	prices := make([]float64, len(s.Points))
	for i, p := range s.Points {
		prices[i] = p.CarbonPrice
	}
	points := s.Points
	if points == nil {
		points = []sensitivity.CarbonPoint{}
	}
	return CarbonExport{
		Summary: CarbonSummary{NumPoints: len(points), CarbonPrices: prices, Incomplete: s.Incomplete},
		Points:  points,
	}
}

// ComparisonRow compares one fleet metric at two safety thresholds of a
// frontier. DeltaPct is nil when the baseline is zero.
type ComparisonRow struct {
	Metric      string   `json:"metric" yaml:"metric"`
	Baseline    float64  `json:"baseline" yaml:"baseline"`
	Alternative float64  `json:"alternative" yaml:"alternative"`
	DeltaPct    *float64 `json:"delta_pct" yaml:"delta_pct"`
}

// Comparison holds the frontier comparison between two thresholds.
type Comparison struct {
	BaselineThreshold    float64         `json:"baseline_threshold" yaml:"baseline_threshold"`
	AlternativeThreshold float64         `json:"alternative_threshold" yaml:"alternative_threshold"`
	Rows                 []ComparisonRow `json:"rows" yaml:"rows"`
}

// CompareThresholds compares the frontier fleets at the baseline and
// alternative thresholds. It reports false when either point is missing or
// not optimal.
func CompareThresholds(t *fleet.Table, f pareto.Frontier, baseline, alternative float64) (Comparison, bool) {
	base, ok := findPoint(f, baseline)
	if !ok {
		return Comparison{}, false
	}
	alt, ok := findPoint(f, alternative)
	if !ok {
		return Comparison{}, false
	}
	b, err := summarizeIDs(t, base.FleetIDs)
	if err != nil {
		return Comparison{}, false
	}
	a, err := summarizeIDs(t, alt.FleetIDs)
	if err != nil {
		return Comparison{}, false
	}

	metrics := []struct {
		name      string
		base, alt float64
	}{
		{"total_cost", b.TotalCost, a.TotalCost},
		{"fleet_size", float64(b.FleetSize), float64(a.FleetSize)},
		{"total_co2eq", b.TotalCO2eq, a.TotalCO2eq},
		{"avg_safety_score", b.AvgSafety, a.AvgSafety},
		{"total_dwt", b.TotalCapacity, a.TotalCapacity},
		{"total_fuel", b.TotalFuel, a.TotalFuel},
	}
	out := Comparison{BaselineThreshold: baseline, AlternativeThreshold: alternative}
	for _, m := range metrics {
		row := ComparisonRow{
			Metric:      m.name,
			Baseline:    mathutil.Round(m.base),
			Alternative: mathutil.Round(m.alt),
		}
		if m.base != 0 && !math.IsNaN(m.base) && !math.IsNaN(m.alt) {
			d := mathutil.Round((m.alt - m.base) / m.base * 100)
			row.DeltaPct = &d
		}
		out.Rows = append(out.Rows, row)
	}
	return out, true
}

func findPoint(f pareto.Frontier, threshold float64) (pareto.Point, bool) {
	for _, p := range f.Points {
		if mathutil.WithinTolerance(p.SafetyThreshold, threshold, 1e-6) {
			return p, p.Status == fleet.StatusOptimal
		}
	}
	return pareto.Point{}, false
}

func summarizeIDs(t *fleet.Table, ids []string) (fleet.Result, error) {
	idx, err := t.Indices(ids)
	if err != nil {
		return fleet.Result{}, err
	}
	return fleet.Summarize(t, idx, fleet.StatusOptimal), nil
}

func optionalRound(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	r := mathutil.Round(v)
	return &r
}

func sortedKeys(m map[float64]bool) []float64 {
	out := make([]float64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Float64s(out)
	return out
}
