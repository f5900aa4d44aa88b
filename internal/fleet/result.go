package fleet

import (
	"fmt"
	"math"
)

// Status is the outcome of a selection solve.
type Status int

const (
	// StatusUndefined means no definite answer was reached (limit or cancellation).
	StatusUndefined Status = iota
	// StatusOptimal means the selection is a proven cost minimum.
	StatusOptimal
	// StatusInfeasible means no selection satisfies the requirements.
	StatusInfeasible
	// StatusUnbounded means the objective has no finite minimum.
	StatusUnbounded
)

var statusNames = map[Status]string{
	StatusUndefined:  "Undefined",
	StatusOptimal:    "Optimal",
	StatusInfeasible: "Infeasible",
	StatusUnbounded:  "Unbounded",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown solver status %q", string(text))
}

// Result is the outcome of a selection. When the status is not Optimal the
// selection is empty, the aggregates are zero and AvgSafety is NaN.
type Result struct {
	SelectedIDs   []string
	TotalCost     float64
	TotalCapacity float64
	AvgSafety     float64
	FleetSize     int
	TotalCO2eq    float64
	TotalFuel     float64
	FuelTypeCount int
	Status        Status
}

// Optimal reports whether the result carries a proven optimal selection.
func (r Result) Optimal() bool {
	return r.Status == StatusOptimal
}

// EmptyResult returns the result of a solve that produced no selection.
func EmptyResult(status Status) Result {
	return Result{
		SelectedIDs: []string{},
		AvgSafety:   math.NaN(),
		Status:      status,
	}
}

// Summarize aggregates the vessels at the given table positions.
func Summarize(t *Table, selected []int, status Status) Result {
	tally := NewTally(t)
	ids := make([]string, 0, len(selected))
	for _, i := range selected {
		tally.Add(i)
		ids = append(ids, t.records[i].VesselID)
	}
	return Result{
		SelectedIDs:   ids,
		TotalCost:     tally.Cost,
		TotalCapacity: tally.Capacity,
		AvgSafety:     tally.AvgSafety(),
		FleetSize:     tally.Count,
		TotalCO2eq:    tally.CO2eq,
		TotalFuel:     tally.Fuel,
		FuelTypeCount: tally.FuelTypesCovered(),
		Status:        status,
	}
}
