package reporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 10, 16, 9, 30, 5, 0, time.UTC)

func sampleRecord() FailureRecord {
	return FailureRecord{
		RunID:      "run-0001",
		TestName:   "success[Amsterdam,metric]",
		Identity:   "weather/success[Amsterdam,metric]",
		Stage:      "call",
		Status:     "FAIL",
		Timestamp:  fixed,
		Duration:   4123 * time.Millisecond,
		StatusCode: 200,
		Params: [][2]string{
			{"api_key", "****abcd"},
			{"city", `"Amsterdam"`},
			{"units", "metric"},
			{"endpoint", "weather"},
			{"expected_status", "200"},
		},
		Failures: []FailureDetail{
			{
				Kind:    "schema",
				Path:    "$.main.temp",
				Message: `expected integer or float, got string "14.5"`,
				Cause:   []string{`*validator.Error: $.main.temp: expected integer or float, got string "14.5"`},
			},
			{
				Kind:    "latency",
				Check:   "latency",
				Message: "expected < 4000ms, got 4123ms",
			},
		},
	}
}

func TestRender_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "schema_failure", []byte(Render(sampleRecord())))
}

func TestRender_PanicWithAssumption(t *testing.T) {
	rec := sampleRecord()
	rec.Stage = "setup"
	rec.StatusCode = 0
	rec.Assumption = "service answers 400 for an empty city"
	rec.Stack = "goroutine 7 [running]:\nmain.boom()\n"

	out := Render(rec)
	assert.Contains(t, out, "Stage: setup (setup/call/teardown)")
	assert.NotContains(t, out, "HTTP status:")
	assert.Contains(t, out, "Unverified expectation: service answers 400 for an empty city")
	assert.Contains(t, out, "Traceback:\ngoroutine 7 [running]:\nmain.boom()\n\n")
	assert.NotContains(t, out, "No stack trace")
}

func TestFileName(t *testing.T) {
	tests := []struct {
		identity string
		stage    string
		want     string
	}{
		{"weather/success[Amsterdam,metric]", "call", "FAIL_weather_success_Amsterdam_metric_call_2026-10-16_09-30-05.log"},
		{"forecast/coordinates_out_of_range", "setup", "FAIL_forecast_coordinates_out_of_range_setup_2026-10-16_09-30-05.log"},
		{"forecast/success[52.374, 4.8897]", "teardown", "FAIL_forecast_success_52.374_4.8897_teardown_2026-10-16_09-30-05.log"},
		{"///", "call", "FAIL_unnamed_call_2026-10-16_09-30-05.log"},
		{"weather/a[b]", "call", "FAIL_weather_a_b_call_2026-10-16_09-30-05.log"},
		{"weather/a_b", "call", "FAIL_weather_a_b_call_2026-10-16_09-30-05.log"},
	}

	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(FailureRecord{Identity: tt.identity, Stage: tt.stage, Timestamp: fixed}))
		})
	}
}

func TestErrorChain(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("failed to read response body: %w", base)

	assert.Equal(t, []string{
		"*fmt.wrapError: failed to read response body: connection refused",
		"*errors.errorString: connection refused",
	}, ErrorChain(err))
	assert.Nil(t, ErrorChain(nil))
}

func TestFailureReporter_Record(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, hook := test.NewNullLogger()
	r := NewFailureReporter(dir, log)

	rec := sampleRecord()
	path := r.Record(rec)
	require.NotEmpty(t, path)
	assert.Equal(t, filepath.Join(dir, FileName(rec)), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Render(rec), string(data))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, path, entry.Data["file"])
}

func TestFailureReporter_SameSecondOverwrites(t *testing.T) {
	dir := t.TempDir()
	log, _ := test.NewNullLogger()
	r := NewFailureReporter(dir, log)

	first := sampleRecord()
	second := sampleRecord()
	second.Failures = second.Failures[1:]

	require.Equal(t, r.Record(first), r.Record(second))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, Render(second), string(data))
}

func TestFailureReporter_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	log, hook := test.NewNullLogger()
	r := NewFailureReporter(filepath.Join(blocker, "logs"), log)

	assert.NotPanics(t, func() {
		assert.Empty(t, r.Record(sampleRecord()))
	})
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "weather/success[Amsterdam,metric]", entry.Data["scenario"])
}
