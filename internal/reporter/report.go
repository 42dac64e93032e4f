package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// Report represents the test execution report
type Report struct {
	RunID         string        `json:"run_id" yaml:"run_id"`
	Timestamp     time.Time     `json:"timestamp" yaml:"timestamp"`
	TotalTests    int           `json:"total_tests" yaml:"total_tests"`
	PassedTests   int           `json:"passed_tests" yaml:"passed_tests"`
	FailedTests   int           `json:"failed_tests" yaml:"failed_tests"`
	DegradedTests int           `json:"degraded_tests" yaml:"degraded_tests"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
	Results       []TestResult  `json:"results" yaml:"results"`
}

// TestResult represents a single test result
type TestResult struct {
	ID         string        `json:"id" yaml:"id"`
	Endpoint   string        `json:"endpoint" yaml:"endpoint"`
	Status     string        `json:"status" yaml:"status"`
	Failing    bool          `json:"failing" yaml:"failing"`
	HTTPStatus int           `json:"http_status,omitempty" yaml:"http_status,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Reasons    []string      `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Assumption string        `json:"assumption,omitempty" yaml:"assumption,omitempty"`
	RecordFile string        `json:"record_file,omitempty" yaml:"record_file,omitempty"`
}

// Reporter handles the generation of run summaries
type Reporter struct {
	config ReportingConfig
}

// ReportingConfig holds the configuration for reporting
type ReportingConfig struct {
	Format []string
	// OutputDir receives report files. Empty disables file output.
	OutputDir string
}

// NewReporter creates a new instance of Reporter
func NewReporter(config ReportingConfig) *Reporter {
	return &Reporter{
		config: config,
	}
}

// NewReport tallies results into a report.
func NewReport(runID string, started time.Time, duration time.Duration, results []TestResult) Report {
	report := Report{
		RunID:      runID,
		Timestamp:  started,
		TotalTests: len(results),
		Duration:   duration,
		Results:    results,
	}

	for _, result := range results {
		switch {
		case result.Status == "DEGRADED":
			report.DegradedTests++
		case result.Failing:
			report.FailedTests++
		default:
			report.PassedTests++
		}
	}
	return report
}

// GenerateReport writes the report in every configured format and returns
// the written paths.
func (r *Reporter) GenerateReport(report Report) ([]string, error) {
	if r.config.OutputDir == "" {
		return nil, nil
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(r.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	var paths []string
	for _, format := range r.config.Format {
		var (
			data []byte
			err  error
		)
		switch format {
		case "json":
			data, err = json.MarshalIndent(report, "", "  ")
		case "yaml":
			data, err = yaml.Marshal(report)
		default:
			return paths, fmt.Errorf("unsupported report format %q", format)
		}
		if err != nil {
			return paths, fmt.Errorf("failed to generate %s report: %w", format, err)
		}

		reportPath := filepath.Join(r.config.OutputDir,
			fmt.Sprintf("report_%s.%s", report.Timestamp.Format("20060102_150405"), format))
		if err := os.WriteFile(reportPath, data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s report: %w", format, err)
		}
		paths = append(paths, reportPath)
	}
	return paths, nil
}

// PrintSummary writes a per-scenario table and the totals to w.
func PrintSummary(w io.Writer, report Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tSCENARIO\tHTTP\tTIME\tDETAIL")
	for _, res := range report.Results {
		detail := ""
		if len(res.Reasons) > 0 {
			detail = res.Reasons[0]
			if len(res.Reasons) > 1 {
				detail += fmt.Sprintf(" (+%d more)", len(res.Reasons)-1)
			}
		}
		if res.Assumption != "" && res.Status != "PASS" {
			detail += " [unverified expectation]"
		}
		httpStatus := "-"
		if res.HTTPStatus != 0 {
			httpStatus = fmt.Sprint(res.HTTPStatus)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%s\n",
			res.Status, res.ID, httpStatus, res.Duration.Milliseconds(), strings.TrimSpace(detail))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d scenarios: %d passed, %d failed, %d degraded (run %s, %s)\n",
		report.TotalTests, report.PassedTests, report.FailedTests, report.DegradedTests,
		report.RunID, report.Duration.Round(time.Millisecond))
	return err
}
