package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/mcmc"
	"github.com/iwvelando/fleet-optimizer/internal/pareto"
	"github.com/iwvelando/fleet-optimizer/internal/sensitivity"
	"github.com/iwvelando/fleet-optimizer/internal/shapley"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
)

// Export file names.
const (
	FileSubmission    = "submission.csv"
	FileFleetResult   = "fleet_result.json"
	FileFuelTypes     = "fuel_type_summary.json"
	FilePareto        = "pareto_frontier.json"
	FileComparison    = "sensitivity_comparison.csv"
	FileCarbon        = "carbon_sensitivity.json"
	FileHeatmap       = "sensitivity_heatmap.json"
	FileShapley       = "shapley_values.json"
	FileMCMC          = "mcmc_robustness.json"
	exportPermissions = 0o644
)

// Exporter writes analysis results as files into a directory.
type Exporter struct {
	dir string
}

// NewExporter creates dir if needed and returns an Exporter writing into it.
func NewExporter(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}
	return &Exporter{dir: dir}, nil
}

// Dir returns the export directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// Fleet writes the submission row, the fleet result and the fuel type summary.
func (e *Exporter) Fleet(t *fleet.Table, r fleet.Result, sensitivityPerformed bool) ([]string, error) {
	var written []string
	path, err := e.write(FileSubmission, constants.OutputFormatCSV, func(w *Writer) error {
		return w.Submission(r, sensitivityPerformed)
	})
	if err != nil {
		return written, err
	}
	written = append(written, path)

	exp := NewFleetExport(t, r, sensitivityPerformed)
	path, err = e.writeDoc(FileFleetResult, struct {
		OptimalFleet FleetSummary `json:"optimal_fleet"`
		Vessels      []VesselRow  `json:"vessels"`
	}{exp.OptimalFleet, exp.Vessels})
	if err != nil {
		return written, err
	}
	written = append(written, path)

	path, err = e.writeDoc(FileFuelTypes, struct {
		FuelTypes []FuelTypeRow `json:"fuel_types"`
	}{exp.FuelTypes})
	if err != nil {
		return written, err
	}
	return append(written, path), nil
}

// Pareto writes the frontier and, when both thresholds are on it, the
// baseline/alternative comparison.
func (e *Exporter) Pareto(t *fleet.Table, f pareto.Frontier, baseline, alternative float64) ([]string, error) {
	path, err := e.write(FilePareto, constants.OutputFormatJSON, func(w *Writer) error { return w.Pareto(f) })
	if err != nil {
		return nil, err
	}
	written := []string{path}
	c, ok := CompareThresholds(t, f, baseline, alternative)
	if !ok {
		return written, nil
	}
	path, err = e.write(FileComparison, constants.OutputFormatCSV, func(w *Writer) error { return w.Comparison(c) })
	if err != nil {
		return written, err
	}
	return append(written, path), nil
}

// Carbon writes a carbon price sweep.
func (e *Exporter) Carbon(s sensitivity.CarbonSweep) (string, error) {
	return e.write(FileCarbon, constants.OutputFormatJSON, func(w *Writer) error { return w.Carbon(s) })
}

// Heatmap writes a sensitivity grid.
func (e *Exporter) Heatmap(h sensitivity.Heatmap) (string, error) {
	return e.write(FileHeatmap, constants.OutputFormatJSON, func(w *Writer) error { return w.Heatmap(h) })
}

// Shapley writes an attribution report.
func (e *Exporter) Shapley(r shapley.Report) (string, error) {
	return e.write(FileShapley, constants.OutputFormatJSON, func(w *Writer) error { return w.Shapley(r) })
}

// MCMC writes robustness chains.
func (e *Exporter) MCMC(reports []mcmc.Report) (string, error) {
	return e.write(FileMCMC, constants.OutputFormatJSON, func(w *Writer) error { return w.MCMC(reports) })
}

func (e *Exporter) writeDoc(name string, doc any) (string, error) {
	return e.write(name, constants.OutputFormatJSON, func(w *Writer) error {
		return (&report{doc: doc}).render(w.w, w.format)
	})
}

func (e *Exporter) write(name, outputFormat string, fn func(*Writer) error) (string, error) {
	path := filepath.Join(e.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, exportPermissions)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	w, err := NewWriter(f, outputFormat)
	if err != nil {
		f.Close()
		return "", err
	}
	if err := fn(w); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}
