// Package output renders analysis results in the supported output formats:
// pretty, csv, json, yaml and markdown.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/mcmc"
	"github.com/iwvelando/fleet-optimizer/internal/pareto"
	"github.com/iwvelando/fleet-optimizer/internal/sensitivity"
	"github.com/iwvelando/fleet-optimizer/internal/shapley"
	"github.com/iwvelando/fleet-optimizer/internal/store"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/iwvelando/fleet-optimizer/pkg/format"
	"github.com/iwvelando/fleet-optimizer/pkg/optimization"
	"github.com/iwvelando/fleet-optimizer/pkg/validation"
)

const incompleteNote = "analysis was cancelled or timed out - results are partial"

// Writer renders results to an io.Writer in one output format.
type Writer struct {
	w      io.Writer
	format string
}

// NewWriter returns a Writer for the given output format.
func NewWriter(w io.Writer, outputFormat string) (*Writer, error) {
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return nil, err
	}
	return &Writer{w: w, format: outputFormat}, nil
}

// Format returns the output format of the writer.
func (w *Writer) Format() string {
	return w.format
}

// Fleet writes a selection together with the candidate pool it was drawn from.
func (w *Writer) Fleet(t *fleet.Table, r fleet.Result) error {
	exp := NewFleetExport(t, r, false)
	rep := &report{title: "Fleet selection", doc: exp}
	s := exp.OptimalFleet
	rep.fact("Solver status", s.Status.String())
	rep.fact("Fleet size", format.Count(s.FleetSize))
	rep.fact("Total cost", format.Currency(s.TotalCost))
	rep.fact("Total DWT", format.Tonnes(s.TotalDWT))
	if s.AvgSafety != nil {
		rep.fact("Avg safety score", format.Score(*s.AvgSafety))
	} else {
		rep.fact("Avg safety score", format.NotAvailable)
	}
	rep.fact("Total CO2eq", format.Tonnes(s.TotalCO2eq))
	rep.fact("Total fuel", format.Tonnes(s.TotalFuel))
	rep.fact("Fuel types", strconv.Itoa(s.FuelTypeCount))
	if !r.Optimal() {
		rep.warning = fmt.Sprintf("no optimal fleet was found (status %s)", r.Status)
	}

	vessels := section{
		title:  "Vessels",
		header: []string{"vessel_id", "vessel_type", "dwt", "safety_score", "main_engine_fuel_type", "total_fuel", "total_co2eq", "adjusted_cost_usd", "selected"},
	}
	for _, v := range exp.Vessels {
		vessels.rows = append(vessels.rows, []any{v.VesselID, v.VesselType, mass(v.DWT), v.SafetyScore, v.FuelType, mass(v.TotalFuel), mass(v.TotalCO2eq), money(v.AdjustedCostUSD), v.Selected})
	}
	fuels := section{
		title:  "Fuel types",
		header: []string{"fuel_type", "vessel_count", "total_dwt", "total_fuel", "total_co2eq", "total_cost", "avg_safety_score"},
	}
	for _, f := range exp.FuelTypes {
		fuels.rows = append(fuels.rows, []any{f.FuelType, f.VesselCount, mass(f.TotalDWT), mass(f.TotalFuel), mass(f.TotalCO2eq), money(f.TotalCost), score(f.AvgSafety)})
	}
	rep.sections = []section{vessels, fuels}
	return rep.render(w.w, w.format)
}

// Submission writes the single-row competition summary.
func (w *Writer) Submission(r fleet.Result, sensitivityPerformed bool) error {
	sub := NewSubmission(r, sensitivityPerformed)
	rep := &report{title: "Submission", doc: sub}
	avg := any("")
	if sub.AvgSafety != nil {
		avg = score(*sub.AvgSafety)
	}
	rep.sections = []section{{
		title: "Submission",
		header: []string{"sum_of_fleet_deadweight", "total_cost_of_fleet", "average_fleet_safety_score",
			"no_of_unique_main_engine_fuel_types_in_fleet", "sensitivity_analysis_performance",
			"size_of_fleet_count", "total_emission_CO2_eq", "total_fuel_consumption"},
		rows: [][]any{{int(sub.SumDWT), money(sub.TotalCost), avg, sub.FuelTypeCount, sub.SensitivityPerformed,
			sub.FleetSize, mass(sub.TotalCO2eq), mass(sub.TotalFuel)}},
	}}
	return rep.render(w.w, w.format)
}

// Pareto writes a cost/safety frontier.
func (w *Writer) Pareto(f pareto.Frontier) error {
	doc := f
	if doc.Points == nil {
		doc.Points = []pareto.Point{}
	}
	rep := &report{title: "Pareto frontier", doc: doc}
	rep.fact("Points", strconv.Itoa(len(f.Points)))
	if f.Incomplete {
		rep.warning = incompleteNote
	}
	s := section{
		title:  "Frontier",
		header: []string{"safety_threshold", "total_cost", "total_co2eq", "fleet_size", "shadow_price", "status", "fleet_vessel_ids"},
	}
	for _, p := range f.Points {
		s.rows = append(s.rows, []any{score(p.SafetyThreshold), money(p.TotalCost), mass(p.TotalCO2eq), p.FleetSize, optMoney(p.ShadowPrice), p.Status, idList(p.FleetIDs)})
	}
	rep.sections = []section{s}
	return rep.render(w.w, w.format)
}

// Comparison writes a two-threshold frontier comparison.
func (w *Writer) Comparison(c Comparison) error {
	rep := &report{title: "Safety threshold comparison", doc: c}
	rep.fact("Baseline threshold", format.Score(c.BaselineThreshold))
	rep.fact("Alternative threshold", format.Score(c.AlternativeThreshold))
	s := section{title: "Metrics", header: []string{"metric", "baseline", "alternative", "delta_pct"}}
	for _, row := range c.Rows {
		delta := any("")
		if row.DeltaPct != nil {
			delta = score(*row.DeltaPct)
		}
		s.rows = append(s.rows, []any{row.Metric, score(row.Baseline), score(row.Alternative), delta})
	}
	rep.sections = []section{s}
	return rep.render(w.w, w.format)
}

// Carbon writes a carbon price sweep.
func (w *Writer) Carbon(sweep sensitivity.CarbonSweep) error {
	exp := NewCarbonExport(sweep)
	rep := &report{title: "Carbon price sensitivity", doc: exp}
	rep.fact("Points", strconv.Itoa(exp.Summary.NumPoints))
	if sweep.Incomplete {
		rep.warning = incompleteNote
	}
	s := section{
		title:  "Carbon prices",
		header: []string{"carbon_price", "total_cost", "total_co2eq", "fleet_size", "status", "fleet_vessel_ids"},
	}
	for _, p := range exp.Points {
		s.rows = append(s.rows, []any{money(p.CarbonPrice), money(p.TotalCost), mass(p.TotalCO2eq), p.FleetSize, p.Status, idList(p.FleetIDs)})
	}
	rep.sections = []section{s}
	return rep.render(w.w, w.format)
}

// Heatmap writes a carbon price by safety threshold grid.
func (w *Writer) Heatmap(h sensitivity.Heatmap) error {
	exp := NewHeatmapExport(h)
	rep := &report{title: "Sensitivity heatmap", doc: exp}
	rep.fact("Cells", strconv.Itoa(exp.Summary.TotalCells))
	rep.fact("Feasible cells", strconv.Itoa(exp.Summary.FeasibleCells))
	if h.Incomplete {
		rep.warning = incompleteNote
	}
	s := section{
		title:  "Cells",
		header: []string{"carbon_price", "safety_threshold", "total_cost", "fleet_size", "feasible"},
	}
	for _, c := range exp.Cells {
		s.rows = append(s.rows, []any{money(c.CarbonPrice), score(c.SafetyThreshold), money(c.TotalCost), c.FleetSize, c.Feasible})
	}
	rep.sections = []section{s}
	return rep.render(w.w, w.format)
}

// Shapley writes a ranked attribution.
func (w *Writer) Shapley(r shapley.Report) error {
	doc := r
	if doc.Results == nil {
		doc.Results = []shapley.Result{}
	}
	rep := &report{title: "Shapley attribution", doc: doc}
	rep.fact("Permutations", fmt.Sprintf("%s of %s", format.Count(r.Completed), format.Count(r.Permutations)))
	rep.fact("Total Shapley value", format.Currency(r.Summary.TotalShapleyValue))
	rep.fact("Essential / useful / marginal", fmt.Sprintf("%d / %d / %d",
		r.Summary.EssentialCount, r.Summary.UsefulCount, r.Summary.MarginalCount))
	if r.Incomplete {
		rep.warning = incompleteNote
	}
	s := section{title: "Vessels", header: []string{"rank", "vessel_id", "shapley_value", "category"}}
	for _, res := range r.Results {
		s.rows = append(s.rows, []any{res.Rank, res.VesselID, money(res.ShapleyValue), string(res.Category)})
	}
	rep.sections = []section{s}
	return rep.render(w.w, w.format)
}

// MCMC writes one or more robustness chains. Each chain is its own section;
// csv output carries the first chain only.
func (w *Writer) MCMC(reports []mcmc.Report) error {
	doc := reports
	if doc == nil {
		doc = []mcmc.Report{}
	}
	rep := &report{title: "MCMC robustness", doc: doc}
	rep.fact("Chains", strconv.Itoa(len(reports)))
	for _, r := range reports {
		label := "beta " + strconv.FormatFloat(r.Beta, 'g', -1, 64)
		rep.fact(label, fmt.Sprintf("%s of %s iterations, acceptance %s, essential/stable/variable %d/%d/%d",
			format.Count(r.Completed), format.Count(r.Iterations), format.Percent(r.AcceptanceRate),
			r.Summary.EssentialCount, r.Summary.StableCount, r.Summary.VariableCount))
		if r.Incomplete {
			rep.warning = incompleteNote
		}
		s := section{title: "Chain " + label, header: []string{"vessel_id", "appearance_frequency", "category"}}
		for _, res := range r.Results {
			s.rows = append(s.rows, []any{res.VesselID, frequency(res.AppearanceFrequency), string(res.Category)})
		}
		rep.sections = append(rep.sections, s)
	}
	return rep.render(w.w, w.format)
}

// Runs writes archived run summaries.
func (w *Writer) Runs(runs []store.Summary) error {
	doc := runs
	if doc == nil {
		doc = []store.Summary{}
	}
	rep := &report{title: "Archived runs", doc: doc}
	rep.fact("Runs", strconv.Itoa(len(runs)))
	s := section{title: "Runs", header: []string{"id", "kind", "created_at"}}
	for _, r := range runs {
		s.rows = append(s.rows, []any{r.ID, r.Kind, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00")})
	}
	rep.sections = []section{s}
	return rep.render(w.w, w.format)
}

// Structured reports whether the format is a single machine-readable document.
func (w *Writer) Structured() bool {
	return w.format == constants.OutputFormatJSON || w.format == constants.OutputFormatYAML
}

// Document writes an arbitrary record in a structured format.
func (w *Writer) Document(doc any) error {
	if !w.Structured() {
		return fmt.Errorf("output format %s cannot encode a document", w.format)
	}
	return (&report{doc: doc}).render(w.w, w.format)
}

// Separator writes a blank line between reports in text formats.
func (w *Writer) Separator() error {
	if w.Structured() {
		return nil
	}
	_, err := io.WriteString(w.w, "\n")
	return err
}

// Summaries writes the stage summaries of a run.
func (w *Writer) Summaries(summaries []optimization.Summary) error {
	doc := summaries
	if doc == nil {
		doc = []optimization.Summary{}
	}
	rep := &report{title: "Run summary", doc: doc}
	s := section{title: "Stages", header: []string{"analysis", "status", "incomplete", "duration", "run_id", "notes"}}
	for _, sum := range summaries {
		s.rows = append(s.rows, []any{sum.Analysis, sum.Status, sum.Incomplete, sum.Duration.Round(time.Millisecond).String(), sum.RunID, strings.Join(sum.Notes, "; ")})
	}
	rep.sections = []section{s}
	return rep.render(w.w, w.format)
}
