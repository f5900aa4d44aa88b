// Package vesselio reads the per-vessel cost table from CSV, JSON or YAML.
package vesselio

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"gopkg.in/yaml.v3"
)

// Format identifies an input encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Column names of the CSV header.
const (
	ColVesselID     = "vessel_id"
	ColVesselType   = "vessel_type"
	ColDWT          = "dwt"
	ColSafetyScore  = "safety_score"
	ColFuelType     = "main_engine_fuel_type"
	ColFuelCost     = "fuel_cost_usd"
	ColCarbonCost   = "carbon_cost_usd"
	ColOwnership    = "ownership_cost_monthly_usd"
	ColAdjustedCost = "adjusted_cost_usd"
	ColTotalCO2eq   = "total_co2eq"
	ColTotalFuel    = "total_fuel"
)

var requiredColumns = []string{
	ColVesselID, ColDWT, ColSafetyScore, ColFuelType,
	ColAdjustedCost, ColTotalCO2eq, ColTotalFuel,
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fleet.Invalidf("cannot infer vessel table format from %q", path)
	}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fleet.Invalidf("unsupported vessel table format %q", name)
	}
}

// LoadFile reads a vessel table from disk, choosing the decoder by extension.
func LoadFile(path string) (*fleet.Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return LoadFileFormat(path, format)
}

// LoadFileFormat reads and validates a vessel table in the given format
// regardless of the file extension.
func LoadFileFormat(path string, format Format) (*fleet.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vessel table: %w", err)
	}
	defer f.Close()

	table, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("reading vessel table %s: %w", path, err)
	}
	return table, nil
}

// Read decodes and validates a vessel table.
func Read(r io.Reader, format Format) (*fleet.Table, error) {
	var (
		records []fleet.VesselRecord
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = ReadCSV(r)
	case FormatJSON:
		records, err = ReadJSON(r)
	case FormatYAML:
		records, err = ReadYAML(r)
	default:
		return nil, fleet.Invalidf("unsupported vessel table format %q", format)
	}
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		if err := ValidateRecord(rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return fleet.NewTable(records)
}

// ValidateRecord checks the numeric fields of a record.
func ValidateRecord(rec fleet.VesselRecord) error {
	fields := map[string]float64{
		ColDWT:          rec.DWT,
		ColFuelCost:     rec.FuelCostUSD,
		ColCarbonCost:   rec.CarbonCostUSD,
		ColOwnership:    rec.OwnershipCostUSD,
		ColAdjustedCost: rec.AdjustedCostUSD,
		ColTotalCO2eq:   rec.TotalCO2eq,
		ColTotalFuel:    rec.TotalFuel,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fleet.Invalidf("vessel %q: %s is not a finite number", rec.VesselID, name)
		}
	}
	if rec.DWT < 0 {
		return fleet.Invalidf("vessel %q: negative dwt %v", rec.VesselID, rec.DWT)
	}
	if rec.SafetyScore < 1 {
		return fleet.Invalidf("vessel %q: safety score must be positive, got %d", rec.VesselID, rec.SafetyScore)
	}
	if strings.TrimSpace(rec.FuelType) == "" {
		return fleet.Invalidf("vessel %q: missing main engine fuel type", rec.VesselID)
	}
	return nil
}

// ReadCSV decodes a CSV table with a header row. Columns may appear in any
// order; unknown columns are ignored.
func ReadCSV(r io.Reader) ([]fleet.VesselRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fleet.Invalidf("vessel table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fleet.Invalidf("vessel table is missing column %q", name)
		}
	}

	var records []fleet.VesselRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}
		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, cols map[string]int) (fleet.VesselRecord, error) {
	p := rowParser{row: row, cols: cols}
	rec := fleet.VesselRecord{
		VesselID:         p.text(ColVesselID),
		VesselType:       p.text(ColVesselType),
		FuelType:         p.text(ColFuelType),
		DWT:              p.number(ColDWT, true),
		SafetyScore:      p.integer(ColSafetyScore),
		FuelCostUSD:      p.number(ColFuelCost, false),
		CarbonCostUSD:    p.number(ColCarbonCost, false),
		OwnershipCostUSD: p.number(ColOwnership, false),
		AdjustedCostUSD:  p.number(ColAdjustedCost, true),
		TotalCO2eq:       p.number(ColTotalCO2eq, true),
		TotalFuel:        p.number(ColTotalFuel, true),
	}
	return rec, p.err
}

// rowParser keeps the first conversion error of a row.
type rowParser struct {
	row  []string
	cols map[string]int
	err  error
}

func (p *rowParser) text(col string) string {
	i, ok := p.cols[col]
	if !ok || i >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[i])
}

func (p *rowParser) number(col string, required bool) float64 {
	raw := p.text(col)
	if raw == "" {
		if required && p.err == nil {
			p.err = fleet.Invalidf("missing value for %s", col)
		}
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil && p.err == nil {
		p.err = fleet.Invalidf("column %s: %q is not a number", col, raw)
	}
	return v
}

func (p *rowParser) integer(col string) int {
	v := p.number(col, true)
	if v != math.Trunc(v) && p.err == nil {
		p.err = fleet.Invalidf("column %s: %v is not a whole number", col, v)
	}
	return int(v)
}

// ReadJSON decodes a JSON array of records.
func ReadJSON(r io.Reader) ([]fleet.VesselRecord, error) {
	var records []fleet.VesselRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fleet.Invalidf("vessel table is empty")
		}
		return nil, fmt.Errorf("decoding json vessel table: %w", err)
	}
	return records, nil
}

// ReadYAML decodes a YAML sequence of records.
func ReadYAML(r io.Reader) ([]fleet.VesselRecord, error) {
	var records []fleet.VesselRecord
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fleet.Invalidf("vessel table is empty")
		}
		return nil, fmt.Errorf("decoding yaml vessel table: %w", err)
	}
	return records, nil
}
