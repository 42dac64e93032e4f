package reporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResults() []TestResult {
	return []TestResult{
		{ID: "weather/success[Amsterdam,metric]", Endpoint: "weather", Status: "PASS", HTTPStatus: 200, Duration: 312 * time.Millisecond},
		{
			ID: "forecast/empty_city", Endpoint: "forecast", Status: "FAIL", Failing: true, HTTPStatus: 404,
			Duration: 150 * time.Millisecond, Reasons: []string{"[assertion:status_code] expected 400, got 404", "[assertion:error_code] expected 400, got 404"},
			Assumption: "service answers 400 for an empty city",
		},
		{
			ID: "forecast/success[London,metric]", Endpoint: "forecast", Status: "DEGRADED", Failing: true, HTTPStatus: 200,
			Duration: 6500 * time.Millisecond, Reasons: []string{"[latency:latency] expected < 6000ms, got 6500ms"},
		},
		{ID: "weather/invalid_api_key", Endpoint: "weather", Status: "FAIL", Failing: true, Duration: 10 * time.Second, Reasons: []string{"[timeout] no response within 10s"}},
	}
}

func TestNewReport(t *testing.T) {
	report := NewReport("run-0001", fixed, 17*time.Second, sampleResults())

	assert.Equal(t, 4, report.TotalTests)
	assert.Equal(t, 1, report.PassedTests)
	assert.Equal(t, 2, report.FailedTests)
	assert.Equal(t, 1, report.DegradedTests)
}

func TestGenerateReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	r := NewReporter(ReportingConfig{Format: []string{"json", "yaml"}, OutputDir: dir})
	report := NewReport("run-0001", fixed, 17*time.Second, sampleResults())

	paths, err := r.GenerateReport(report)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "report_20261016_093005.json"),
		filepath.Join(dir, "report_20261016_093005.yaml"),
	}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var fromJSON Report
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, "run-0001", fromJSON.RunID)
	assert.Equal(t, 2, fromJSON.FailedTests)
	assert.Len(t, fromJSON.Results, 4)

	data, err = os.ReadFile(paths[1])
	require.NoError(t, err)
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, "run-0001", fromYAML["run_id"])
	assert.Equal(t, 1, fromYAML["degraded_tests"])
}

func TestGenerateReport_Disabled(t *testing.T) {
	r := NewReporter(ReportingConfig{Format: []string{"json"}})
	paths, err := r.GenerateReport(NewReport("run-0001", fixed, time.Second, nil))
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestGenerateReport_UnsupportedFormat(t *testing.T) {
	r := NewReporter(ReportingConfig{Format: []string{"html"}, OutputDir: t.TempDir()})
	_, err := r.GenerateReport(NewReport("run-0001", fixed, time.Second, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported report format "html"`)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, NewReport("run-0001", fixed, 17*time.Second, sampleResults())))
	out := buf.String()

	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "weather/success[Amsterdam,metric]")
	assert.Contains(t, out, "[assertion:status_code] expected 400, got 404 (+1 more) [unverified expectation]")
	assert.Contains(t, out, "[timeout] no response within 10s")
	assert.Contains(t, out, "4 scenarios: 1 passed, 2 failed, 1 degraded (run run-0001, 17s)")
}
