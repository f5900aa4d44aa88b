// Package fleet defines the vessel attribute table, the selection parameters
// and the result of a fleet selection, together with the incremental
// aggregates used to test a coalition of vessels against the fleet
// requirements.
package fleet

import (
	"fmt"
	"strings"
)

// VesselRecord is one row of the vessel attribute table as delivered by the
// upstream cost pipeline.
type VesselRecord struct {
	VesselID         string  `json:"vessel_id" yaml:"vessel_id"`
	VesselType       string  `json:"vessel_type,omitempty" yaml:"vessel_type,omitempty"`
	DWT              float64 `json:"dwt" yaml:"dwt"`
	SafetyScore      int     `json:"safety_score" yaml:"safety_score"`
	FuelType         string  `json:"main_engine_fuel_type" yaml:"main_engine_fuel_type"`
	FuelCostUSD      float64 `json:"fuel_cost_usd" yaml:"fuel_cost_usd"`
	CarbonCostUSD    float64 `json:"carbon_cost_usd" yaml:"carbon_cost_usd"`
	OwnershipCostUSD float64 `json:"ownership_cost_monthly_usd" yaml:"ownership_cost_monthly_usd"`
	AdjustedCostUSD  float64 `json:"adjusted_cost_usd" yaml:"adjusted_cost_usd"`
	TotalCO2eq       float64 `json:"total_co2eq" yaml:"total_co2eq"`
	TotalFuel        float64 `json:"total_fuel" yaml:"total_fuel"`
}

// CanonicalFuelType returns the case-insensitive key of a fuel type.
func CanonicalFuelType(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Table is an immutable, ordered collection of vessels with unique ids.
// Fuel types are interned once at construction.
type Table struct {
	records    []VesselRecord
	index      map[string]int
	fuelIndex  []int
	fuelKeys   []string
	fuelLabels []string
	totalCost  float64
}

// NewTable builds a Table from records. The records are copied. Empty and
// duplicate vessel ids are rejected.
func NewTable(records []VesselRecord) (*Table, error) {
	t := &Table{
		records:   make([]VesselRecord, len(records)),
		index:     make(map[string]int, len(records)),
		fuelIndex: make([]int, len(records)),
	}
	copy(t.records, records)

	fuelLookup := make(map[string]int)
	for i, rec := range t.records {
		if strings.TrimSpace(rec.VesselID) == "" {
			return nil, Invalidf("vessel at row %d has an empty id", i)
		}
		if _, dup := t.index[rec.VesselID]; dup {
			return nil, Invalidf("duplicate vessel id %q", rec.VesselID)
		}
		t.index[rec.VesselID] = i

		key := CanonicalFuelType(rec.FuelType)
		fi, ok := fuelLookup[key]
		if !ok {
			fi = len(t.fuelKeys)
			fuelLookup[key] = fi
			t.fuelKeys = append(t.fuelKeys, key)
			t.fuelLabels = append(t.fuelLabels, strings.TrimSpace(rec.FuelType))
		}
		t.fuelIndex[i] = fi
		t.totalCost += rec.AdjustedCostUSD
	}
	return t, nil
}

// Len returns the number of vessels.
func (t *Table) Len() int {
	return len(t.records)
}

// Vessel returns the record at position i.
func (t *Table) Vessel(i int) VesselRecord {
	return t.records[i]
}

// Records returns a copy of all records in table order.
func (t *Table) Records() []VesselRecord {
	out := make([]VesselRecord, len(t.records))
	copy(out, t.records)
	return out
}

// IDs returns all vessel ids in table order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.records))
	for i, rec := range t.records {
		ids[i] = rec.VesselID
	}
	return ids
}

// Index returns the position of the vessel with the given id.
func (t *Table) Index(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Indices resolves ids to table positions, preserving the order of ids.
func (t *Table) Indices(ids []string) ([]int, error) {
	out := make([]int, len(ids))
	for k, id := range ids {
		i, ok := t.index[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVessel, id)
		}
		out[k] = i
	}
	return out, nil
}

// FuelIndex returns the interned fuel type of the vessel at position i.
func (t *Table) FuelIndex(i int) int {
	return t.fuelIndex[i]
}

// FuelTypeCount returns the number of distinct fuel types in the table.
func (t *Table) FuelTypeCount() int {
	return len(t.fuelKeys)
}

// FuelTypes returns the distinct fuel types as first spelled in the table.
func (t *Table) FuelTypes() []string {
	out := make([]string, len(t.fuelLabels))
	copy(out, t.fuelLabels)
	return out
}

// TotalAdjustedCost returns the adjusted cost of every vessel in the table.
func (t *Table) TotalAdjustedCost() float64 {
	return t.totalCost
}
