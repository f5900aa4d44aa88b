package vesselio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleCSV = `vessel_id,vessel_type,dwt,safety_score,main_engine_fuel_type,fuel_cost_usd,carbon_cost_usd,ownership_cost_monthly_usd,adjusted_cost_usd,total_co2eq,total_fuel,extra
9000001,Chemical tanker,45000,4,Distillate fuel,120000.5,8000,90000,212570.49,100,38.2,ignored
9000002,Bulk carrier,82000.0,3.0,LNG,98000,6400,130000,234400,80,40.1,
`

func TestReadCSV(t *testing.T) {
	table, err := Read(strings.NewReader(sampleCSV), FormatCSV)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	first := table.Vessel(0)
	assert.Equal(t, "9000001", first.VesselID)
	assert.Equal(t, "Chemical tanker", first.VesselType)
	assert.Equal(t, 45000.0, first.DWT)
	assert.Equal(t, 4, first.SafetyScore)
	assert.Equal(t, "Distillate fuel", first.FuelType)
	assert.Equal(t, 120000.5, first.FuelCostUSD)
	assert.Equal(t, 212570.49, first.AdjustedCostUSD)

	assert.Equal(t, 3, table.Vessel(1).SafetyScore)
	assert.Equal(t, 2, table.FuelTypeCount())
}

func TestReadCSVColumnOrderAndOptionalColumns(t *testing.T) {
	in := "total_fuel,total_co2eq,adjusted_cost_usd,main_engine_fuel_type,safety_score,dwt,vessel_id\n" +
		"1,2,3,lng,5,100,A\n"
	records, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, fleet.VesselRecord{
		VesselID:        "A",
		DWT:             100,
		SafetyScore:     5,
		FuelType:        "lng",
		AdjustedCostUSD: 3,
		TotalCO2eq:      2,
		TotalFuel:       1,
	}, records[0])
}

func TestReadCSVErrors(t *testing.T) {
	header := "vessel_id,dwt,safety_score,main_engine_fuel_type,adjusted_cost_usd,total_co2eq,total_fuel\n"
	tests := []struct {
		name string
		in   string
	}{
		{"empty input", ""},
		{"missing column", "vessel_id,dwt\nA,1\n"},
		{"not a number", header + "A,lots,3,LNG,1,1,1\n"},
		{"fractional safety", header + "A,10,3.5,LNG,1,1,1\n"},
		{"missing required value", header + "A,10,3,LNG,,1,1\n"},
		{"zero safety", header + "A,10,0,LNG,1,1,1\n"},
		{"negative dwt", header + "A,-10,3,LNG,1,1,1\n"},
		{"duplicate id", header + "A,10,3,LNG,1,1,1\nA,10,3,LNG,1,1,1\n"},
		{"missing fuel", header + "A,10,3,,1,1,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in), FormatCSV)
			assert.ErrorIs(t, err, fleet.ErrInvalidConfig)
		})
	}
}

func TestReadJSONAndYAML(t *testing.T) {
	records := testutil.FiveVesselRecords()

	data, err := json.Marshal(records)
	require.NoError(t, err)
	table, err := Read(strings.NewReader(string(data)), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, records, table.Records())

	data, err = yaml.Marshal(records)
	require.NoError(t, err)
	table, err = Read(strings.NewReader(string(data)), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, records, table.Records())
}

func TestReadJSONErrors(t *testing.T) {
	_, err := Read(strings.NewReader(""), FormatJSON)
	assert.ErrorIs(t, err, fleet.ErrInvalidConfig)

	_, err = Read(strings.NewReader("{"), FormatJSON)
	assert.Error(t, err)

	_, err = Read(strings.NewReader(`[{"vessel_id":"A","dwt":1,"safety_score":0,"main_engine_fuel_type":"x"}]`), FormatJSON)
	assert.ErrorIs(t, err, fleet.ErrInvalidConfig)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vessels.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	table, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	_, err = LoadFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "vessels.parquet"))
	assert.ErrorIs(t, err, fleet.ErrInvalidConfig)
}

func TestLoadFileFormatIgnoresExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vessels.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	table, err := LoadFileFormat(path, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"9000001", "9000002"}, table.IDs())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, "JSON": FormatJSON, "yml": FormatYAML, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xlsx")
	assert.ErrorIs(t, err, fleet.ErrInvalidConfig)
}
