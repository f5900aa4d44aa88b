package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/fleet-optimizer/internal/config"
	"github.com/iwvelando/fleet-optimizer/internal/store"
	"github.com/iwvelando/fleet-optimizer/pkg/output"
	"github.com/iwvelando/fleet-optimizer/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigTemplate = `logging:
  level: error
  format: json
  outputFile: %[1]s/fleet.log
output:
  format: pretty
  directory: %[2]s
vessels:
  path: %[1]s/vessels.json
optimization:
  minCapacity: 700000
  minAvgSafety: 4.0
  requireAllFuelTypes: true
  carbonPrice: 80
pareto:
  safetyMin: 3.0
  safetyMax: 4.0
  step: 0.5
sensitivity:
  carbonPrices: [40, 80]
  safetyThresholds: [3.0, 4.0]
shapley:
  permutations: 50
  seed: 42
mcmc:
  iterations: 200
  beta: 0.0001
  seed: 42
store:
  enabled: %[3]t
  path: %[1]s/runs.db
`

// writeTestConfig writes a five-vessel table and a configuration pointing at
// it, returning the configuration path.
func writeTestConfig(t *testing.T, exportDir string, archive bool) string {
	t.Helper()
	dir := t.TempDir()
	data, err := json.Marshal(testutil.FiveVesselRecords())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vessels.json"), data, 0o600))

	path := filepath.Join(dir, "config.yaml")
	conf := fmt.Sprintf(testConfigTemplate, dir, exportDir, archive)
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOptimizeCommand(t *testing.T) {
	path := writeTestConfig(t, "", false)
	out, err := execute(t, "optimize", "--config", path, "--output-format", "json")
	require.NoError(t, err)

	var doc struct {
		OptimalFleet struct {
			Status string   `json:"solver_status"`
			IDs    []string `json:"fleet_vessel_ids"`
		} `json:"optimal_fleet"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	assert.Equal(t, "Optimal", doc.OptimalFleet.Status)
	assert.Equal(t, []string{"V3", "V5"}, doc.OptimalFleet.IDs)
}

func TestAllCommandExports(t *testing.T) {
	exportDir := t.TempDir()
	path := writeTestConfig(t, exportDir, false)
	out, err := execute(t, "all", "--config", path, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "V3")

	for _, name := range []string{
		output.FileSubmission, output.FileFleetResult, output.FileFuelTypes,
		output.FilePareto, output.FileComparison, output.FileCarbon,
		output.FileHeatmap, output.FileShapley, output.FileMCMC,
	} {
		assert.FileExists(t, filepath.Join(exportDir, name))
	}
}

func TestSkippedAnalysisFails(t *testing.T) {
	path := writeTestConfig(t, "", false)
	conf, err := os.ReadFile(path)
	require.NoError(t, err)
	conf = bytes.Replace(conf, []byte("minCapacity: 700000"), []byte("minCapacity: 90000000"), 1)
	require.NoError(t, os.WriteFile(path, conf, 0o600))

	_, err = execute(t, "shapley", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no optimal reference fleet")
}

func TestRunsCommand(t *testing.T) {
	path := writeTestConfig(t, "", true)
	_, err := execute(t, "optimize", "--config", path)
	require.NoError(t, err)

	out, err := execute(t, "runs", "--config", path, "--output-format", "json")
	require.NoError(t, err)
	var runs []store.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &runs), out)
	require.Len(t, runs, 1)
	assert.Equal(t, store.KindOptimize, runs[0].Kind)

	out, err = execute(t, "runs", runs[0].ID, "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"fleet_vessel_ids"`)

	_, err = execute(t, "runs", "missing", "--config", path)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunsCommandRequiresArchive(t *testing.T) {
	path := writeTestConfig(t, "", false)
	_, err := execute(t, "runs", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestCommandFlagErrors(t *testing.T) {
	path := writeTestConfig(t, "", false)

	_, err := execute(t, "optimize", "--config", path, "--output-format", "xml")
	assert.Error(t, err)

	_, err = execute(t, "optimize", "--config", path, "--log-level", "trace")
	assert.Error(t, err)

	_, err = execute(t, "optimize", "--config", path, "--workers", "-1")
	assert.Error(t, err)

	_, err = execute(t, "optimize", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "optimize", "--config", path, "--vessels", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestInitializeLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "fleet.log")
	logger, err := initializeLogger(config.LoggingConfig{Level: "info", Format: "console", OutputFile: logFile}, "debug")
	require.NoError(t, err)
	logger.Debug("hello")
	_ = logger.Sync()
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")

	_, err = initializeLogger(config.LoggingConfig{Level: "loud"}, "")
	assert.Error(t, err)

	_, err = initializeLogger(config.LoggingConfig{Format: "xml"}, "")
	assert.Error(t, err)
}
