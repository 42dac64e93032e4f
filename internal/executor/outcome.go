package executor

import (
	"fmt"
	"time"

	"weather-contract-tester/internal/reporter"
	"weather-contract-tester/internal/types"
)

// Stage is the part of a scenario run a failure happened in.
type Stage string

const (
	StageSetup    Stage = "setup"
	StageCall     Stage = "call"
	StageTeardown Stage = "teardown"
)

// FailureKind classifies why a scenario failed.
type FailureKind string

const (
	KindSetup         FailureKind = "setup"
	KindTimeout       FailureKind = "timeout"
	KindTransport     FailureKind = "transport"
	KindMalformedBody FailureKind = "malformed_body"
	KindSchema        FailureKind = "schema"
	KindAssertion     FailureKind = "assertion"
	KindLatency       FailureKind = "latency"
	KindTeardown      FailureKind = "teardown"
	KindPanic         FailureKind = "panic"
)

// Failure is one reason a scenario did not pass.
type Failure struct {
	Kind    FailureKind
	Stage   Stage
	Check   string
	Path    string
	Message string
	Err     error
}

func (f Failure) String() string {
	label := string(f.Kind)
	if f.Check != "" {
		label += ":" + f.Check
	}
	if f.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", label, f.Path, f.Message)
	}
	return fmt.Sprintf("[%s] %s", label, f.Message)
}

// Status is the overall verdict of a scenario run.
type Status string

const (
	StatusPassed Status = "PASS"
	StatusFailed Status = "FAIL"
	// StatusDegraded means only latency checks failed.
	StatusDegraded Status = "DEGRADED"
)

// Outcome is the result of running one scenario.
type Outcome struct {
	RunID      string
	Scenario   types.Scenario
	Status     Status
	Stage      Stage
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	StatusCode int
	Failures   []Failure
	// Failing is true when the outcome counts against the run. A degraded
	// outcome is failing unless latency findings are configured as soft.
	Failing bool
	// Stack is set when the scenario panicked.
	Stack string
	// RecordFile is the failure record written for this outcome, if any.
	RecordFile string
}

// Passed reports whether every check passed.
func (o Outcome) Passed() bool { return o.Status == StatusPassed }

// Reasons returns the failure messages in the order they were found.
func (o Outcome) Reasons() []string {
	out := make([]string, len(o.Failures))
	for i, f := range o.Failures {
		out[i] = f.String()
	}
	return out
}

// Summarize converts outcomes into report rows.
func Summarize(outcomes []Outcome) []reporter.TestResult {
	results := make([]reporter.TestResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = reporter.TestResult{
			ID:         o.Scenario.ID(),
			Endpoint:   string(o.Scenario.Endpoint),
			Status:     string(o.Status),
			Failing:    o.Failing,
			HTTPStatus: o.StatusCode,
			Duration:   o.Duration,
			Reasons:    o.Reasons(),
			Assumption: o.Scenario.Assumption,
			RecordFile: o.RecordFile,
		}
	}
	return results
}

func (o *Outcome) fail(f Failure) {
	if len(o.Failures) == 0 {
		o.Stage = f.Stage
	}
	o.Failures = append(o.Failures, f)
}

func (o *Outcome) finish(latencySoft bool) {
	if len(o.Failures) == 0 {
		o.Status = StatusPassed
		o.Stage = ""
		return
	}
	o.Status = StatusDegraded
	for _, f := range o.Failures {
		if f.Kind != KindLatency {
			o.Status = StatusFailed
			break
		}
	}
	o.Failing = o.Status == StatusFailed || !latencySoft
}
