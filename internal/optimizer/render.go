package optimizer

import (
	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/iwvelando/fleet-optimizer/pkg/output"
)

// Payload returns the export record of one analysis, or of every analysis
// that ran when analysis is not a single analysis name.
func (r *Result) Payload(t *fleet.Table, analysis string) any {
	switch analysis {
	case AnalysisOptimize:
		return output.NewFleetExport(t, r.Fleet, r.SensitivityPerformed())
	case AnalysisPareto:
		return r.Frontier
	case AnalysisCarbon:
		if r.Carbon == nil {
			return nil
		}
		return output.NewCarbonExport(*r.Carbon)
	case AnalysisHeatmap:
		if r.Heatmap == nil {
			return nil
		}
		return output.NewHeatmapExport(*r.Heatmap)
	case AnalysisShapley:
		return r.Shapley
	case AnalysisMCMC:
		return r.MCMC
	}

	all := map[string]any{"summaries": r.Summaries}
	if _, ok := r.Summary(AnalysisOptimize); ok {
		all[AnalysisOptimize] = output.NewFleetExport(t, r.Fleet, r.SensitivityPerformed())
	}
	if r.Frontier != nil {
		all[AnalysisPareto] = r.Frontier
	}
	if r.Carbon != nil {
		all[AnalysisCarbon] = output.NewCarbonExport(*r.Carbon)
	}
	if r.Heatmap != nil {
		all[AnalysisHeatmap] = output.NewHeatmapExport(*r.Heatmap)
	}
	if r.Shapley != nil {
		all[AnalysisShapley] = r.Shapley
	}
	if r.MCMC != nil {
		all[AnalysisMCMC] = r.MCMC
	}
	return all
}

// Render writes one analysis, or every analysis that ran followed by the
// stage summaries, with w.
func (r *Result) Render(w *output.Writer, t *fleet.Table, analysis string) error {
	switch analysis {
	case AnalysisOptimize:
		return w.Fleet(t, r.Fleet)
	case AnalysisPareto:
		if r.Frontier == nil {
			return nil
		}
		return w.Pareto(*r.Frontier)
	case AnalysisCarbon:
		if r.Carbon == nil {
			return nil
		}
		return w.Carbon(*r.Carbon)
	case AnalysisHeatmap:
		if r.Heatmap == nil {
			return nil
		}
		return w.Heatmap(*r.Heatmap)
	case AnalysisShapley:
		if r.Shapley == nil {
			return nil
		}
		return w.Shapley(*r.Shapley)
	case AnalysisMCMC:
		if r.MCMC == nil {
			return nil
		}
		return w.MCMC(r.MCMC)
	}

	if w.Structured() {
		return w.Document(r.Payload(t, analysis))
	}
	for _, s := range r.Summaries {
		if s.Skipped() {
			continue
		}
		if err := r.Render(w, t, s.Analysis); err != nil {
			return err
		}
		if err := w.Separator(); err != nil {
			return err
		}
	}
	return w.Summaries(r.Summaries)
}

// Export writes every analysis that ran into e's directory and returns the
// paths written.
func (r *Result) Export(e *output.Exporter, t *fleet.Table) ([]string, error) {
	var written []string
	if _, ok := r.Summary(AnalysisOptimize); ok {
		paths, err := e.Fleet(t, r.Fleet, r.SensitivityPerformed())
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}
	if r.Frontier != nil {
		paths, err := e.Pareto(t, *r.Frontier, constants.ComparisonBaseline, constants.ComparisonAlternative)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}

	var singles []func() (string, error)
	if r.Carbon != nil {
		singles = append(singles, func() (string, error) { return e.Carbon(*r.Carbon) })
	}
	if r.Heatmap != nil {
		singles = append(singles, func() (string, error) { return e.Heatmap(*r.Heatmap) })
	}
	if r.Shapley != nil {
		singles = append(singles, func() (string, error) { return e.Shapley(*r.Shapley) })
	}
	if r.MCMC != nil {
		singles = append(singles, func() (string, error) { return e.MCMC(r.MCMC) })
	}
	for _, fn := range singles {
		path, err := fn()
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
