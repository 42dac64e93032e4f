package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"weather-contract-tester/internal/assertion"
	"weather-contract-tester/internal/config"
	"weather-contract-tester/internal/document"
	"weather-contract-tester/internal/reporter"
	"weather-contract-tester/internal/schema"
	"weather-contract-tester/internal/types"
	"weather-contract-tester/internal/validator"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FailureRecorder persists diagnostics for failing runs.
type FailureRecorder interface {
	Record(rec reporter.FailureRecord) string
}

// MaxBodyBytes caps how much of a response body is read. A full 40-entry
// forecast is well under 100 KB.
const MaxBodyBytes = 4 << 20

var errBodyTooLarge = errors.New("response body too large")

// TestExecutor handles the execution of contract scenarios
type TestExecutor struct {
	config   *config.Config
	client   Doer
	registry *schema.Registry
	recorder FailureRecorder
	log      logrus.FieldLogger
	runID    string
	now      func() time.Time
}

// Option customizes a TestExecutor.
type Option func(*TestExecutor)

// WithClient replaces the HTTP client.
func WithClient(c Doer) Option {
	return func(e *TestExecutor) { e.client = c }
}

// WithRecorder sets where failing outcomes are recorded by RunTests.
func WithRecorder(r FailureRecorder) Option {
	return func(e *TestExecutor) { e.recorder = r }
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *TestExecutor) { e.now = now }
}

// WithRunID fixes the run identifier.
func WithRunID(id string) Option {
	return func(e *TestExecutor) { e.runID = id }
}

// NewTestExecutor creates a new test executor. The config must carry a
// resolved credential.
func NewTestExecutor(cfg *config.Config, registry *schema.Registry, log logrus.FieldLogger, opts ...Option) *TestExecutor {
	e := &TestExecutor{
		config:   cfg,
		client:   &http.Client{},
		registry: registry,
		log:      log,
		runID:    uuid.NewString(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunID identifies this executor's run in outcomes and failure records.
func (e *TestExecutor) RunID() string { return e.runID }

// RunTests executes every scenario and returns the outcomes in input order.
// Scenarios share no state; up to test.max_workers of them run at once.
// Failing outcomes are handed to the recorder as they complete.
func (e *TestExecutor) RunTests(ctx context.Context, scenarios []types.Scenario) []Outcome {
	results := make([]Outcome, len(scenarios))

	g := new(errgroup.Group)
	g.SetLimit(max(e.config.Test.MaxWorkers, 1))
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			out := e.Run(ctx, sc)
			if out.Failing && e.recorder != nil {
				out.RecordFile = e.recorder.Record(NewFailureRecord(out))
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Run executes one scenario. Every failure, including a panic, is converted
// into the returned outcome.
func (e *TestExecutor) Run(ctx context.Context, sc types.Scenario) (out Outcome) {
	out = Outcome{RunID: e.runID, Scenario: sc, StartedAt: e.now()}
	stage := StageSetup
	log := e.log.WithField("scenario", sc.ID())

	defer func() {
		if r := recover(); r != nil {
			out.fail(Failure{Kind: KindPanic, Stage: stage, Message: fmt.Sprint(r), Err: fmt.Errorf("panic: %v", r)})
			out.Stack = string(debug.Stack())
		}
		out.FinishedAt = e.now()
		out.finish(e.config.Test.LatencySoft)

		entry := log.WithFields(logrus.Fields{
			"status":      out.Status,
			"http_status": out.StatusCode,
			"duration_ms": out.Duration.Milliseconds(),
		})
		if out.Passed() {
			entry.Info("Scenario passed")
			return
		}
		for _, reason := range out.Reasons() {
			entry.WithField("reason", reason).Warn("Scenario check failed")
		}
	}()

	if err := sc.Validate(); err != nil {
		out.fail(Failure{Kind: KindSetup, Stage: StageSetup, Message: err.Error(), Err: err})
		return out
	}

	endpoint := e.config.Endpoint(sc.Endpoint)
	ctx, cancel := context.WithTimeout(ctx, endpoint.Timeout)
	defer cancel()

	req, err := e.buildRequest(ctx, sc)
	if err != nil {
		out.fail(Failure{Kind: KindSetup, Stage: StageSetup, Message: err.Error(), Err: err})
		return out
	}

	stage = StageCall
	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		out.Duration = time.Since(start)
		out.fail(transportFailure(redactURL(err), endpoint.Timeout))
		return out
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			out.fail(Failure{
				Kind:    KindTeardown,
				Stage:   StageTeardown,
				Message: fmt.Sprintf("failed to close response body: %v", err),
				Err:     err,
			})
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	out.Duration = time.Since(start)
	out.StatusCode = resp.StatusCode
	if err != nil {
		out.fail(transportFailure(fmt.Errorf("failed to read response body: %w", err), endpoint.Timeout))
		return out
	}
	if len(body) > MaxBodyBytes {
		out.fail(Failure{
			Kind:    KindMalformedBody,
			Stage:   StageCall,
			Message: fmt.Sprintf("response body exceeds %d bytes; body: %s", MaxBodyBytes, excerpt(body)),
			Err:     errBodyTooLarge,
		})
		return out
	}
	log.WithFields(logrus.Fields{
		"http_status": resp.StatusCode,
		"bytes":       len(body),
	}).Debug("Response received")

	for _, f := range e.check(sc, resp.StatusCode, body, out.Duration, endpoint.LatencyBudget) {
		out.fail(f)
	}
	return out
}

// buildRequest creates the GET request for a scenario
func (e *TestExecutor) buildRequest(ctx context.Context, sc types.Scenario) (*http.Request, error) {
	u, err := url.Parse(e.config.Environment.BaseURL + "/" + string(sc.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to build request URL: %w", err)
	}
	u.RawQuery = sc.Params.Query(e.config.Environment.Auth.Token).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func transportFailure(err error, timeout time.Duration) Failure {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return Failure{
			Kind:    KindTimeout,
			Stage:   StageCall,
			Message: fmt.Sprintf("no response within %s", timeout),
			Err:     err,
		}
	}
	return Failure{Kind: KindTransport, Stage: StageCall, Message: err.Error(), Err: err}
}

// redactURL masks the API key in the request URL that transport errors quote.
func redactURL(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	u, perr := url.Parse(uerr.URL)
	if perr != nil {
		return err
	}
	q := u.Query()
	if key := q.Get("appid"); key != "" {
		q.Set("appid", types.Mask(key))
		u.RawQuery = q.Encode()
		uerr.URL = u.String()
	}
	return err
}

func excerpt(body []byte) string {
	const limit = 200
	if len(body) > limit {
		body = body[:min(len(body), limit+utf8.UTFMax)]
	}
	return document.Truncate(string(body), limit)
}

func assertionFailures(fs ...*assertion.Failure) []Failure {
	var out []Failure
	for _, f := range fs {
		if f == nil {
			continue
		}
		kind := KindAssertion
		if f.Kind == assertion.KindLatency {
			kind = KindLatency
		}
		out = append(out, Failure{
			Kind:    kind,
			Stage:   StageCall,
			Check:   f.Check,
			Path:    f.Path,
			Message: fmt.Sprintf("expected %s, got %s", f.Expected, f.Actual),
			Err:     f,
		})
	}
	return out
}

// check runs status, parsing, structural and domain checks in that order.
// A wrong status or an unparseable body ends checking; a structural failure
// skips the domain checks but not the latency check.
func (e *TestExecutor) check(sc types.Scenario, status int, body []byte, elapsed, budget time.Duration) []Failure {
	if f := assertion.StatusCode(sc.ExpectedStatus, status); f != nil {
		out := assertionFailures(f)
		out[0].Message += "; body: " + excerpt(body)
		return out
	}

	doc, err := document.Parse(body)
	if err != nil {
		return []Failure{{
			Kind:    KindMalformedBody,
			Stage:   StageCall,
			Message: fmt.Sprintf("%v; body: %s", err, excerpt(body)),
			Err:     err,
		}}
	}

	if sc.Negative() {
		return assertionFailures(assertion.ErrorShape(doc, sc.ExpectedStatus, sc.Expect.Keywords)...)
	}

	var out []Failure
	root, err := e.registry.Lookup(sc.Endpoint.Shape())
	if err != nil {
		return []Failure{{Kind: KindSetup, Stage: StageCall, Message: err.Error(), Err: err}}
	}
	if r := validator.Validate(root, doc); !r.Passed() {
		out = append(out, Failure{
			Kind:    KindSchema,
			Stage:   StageCall,
			Path:    r.Path().String(),
			Message: r.Message(),
			Err:     r.Err(),
		})
	} else {
		out = append(out, e.domainChecks(sc, doc)...)
	}

	return append(out, assertionFailures(assertion.Latency("latency", elapsed, budget))...)
}

func (e *TestExecutor) domainChecks(sc types.Scenario, doc document.Value) []Failure {
	units := sc.Params.Units
	if units == "" {
		units = assertion.UnitsStandard
	}

	var fs []*assertion.Failure
	switch sc.Endpoint {
	case types.EndpointCurrent:
		fs = append(fs, equalAt(doc, "success_code", "200", "cod"))
		if sc.Expect.Location != "" {
			fs = append(fs, locationAt(doc, sc.Expect.Location, "name"))
		}
		fs = append(fs, assertion.CurrentWeather(doc, units)...)
	case types.EndpointForecast:
		fs = append(fs, equalAt(doc, "success_code", "200", "cod"))
		fs = append(fs, assertion.Cardinality(doc, sc.Expect.Count)...)
		if sc.Expect.Location != "" {
			fs = append(fs, locationAt(doc, sc.Expect.Location, "city", "name"))
		}
		fs = append(fs, assertion.Forecast(doc, units)...)
	}
	return assertionFailures(fs...)
}

func keypath(keys ...string) string {
	p := "$"
	for _, k := range keys {
		p += "." + k
	}
	return p
}

func equalAt(doc document.Value, check, want string, keys ...string) *assertion.Failure {
	v, err := document.Lookup(doc, keys...)
	if err != nil {
		return &assertion.Failure{Check: check, Kind: assertion.KindAssertion, Path: keypath(keys...), Expected: want, Actual: err.Error()}
	}
	return assertion.Equal(check, keypath(keys...), want, v)
}

func locationAt(doc document.Value, requested string, keys ...string) *assertion.Failure {
	v, err := document.Lookup(doc, keys...)
	if err != nil {
		return &assertion.Failure{Check: "location_name", Kind: assertion.KindAssertion, Path: keypath(keys...), Expected: requested, Actual: err.Error()}
	}
	stated, err := document.AsString(v)
	if err != nil {
		return &assertion.Failure{Check: "location_name", Kind: assertion.KindAssertion, Path: keypath(keys...), Expected: requested, Actual: document.Describe(v)}
	}
	return assertion.LocationName(keypath(keys...), requested, stated)
}

// NewFailureRecord converts a failing outcome into its persisted form.
func NewFailureRecord(o Outcome) reporter.FailureRecord {
	params := o.Scenario.Params.Fields()
	params = append(params, [2]string{"endpoint", string(o.Scenario.Endpoint)})
	params = append(params, [2]string{"expected_status", fmt.Sprint(o.Scenario.ExpectedStatus)})

	var failures []reporter.FailureDetail
	for _, f := range o.Failures {
		detail := reporter.FailureDetail{
			Kind:    string(f.Kind),
			Check:   f.Check,
			Path:    f.Path,
			Message: f.Message,
		}
		if f.Err != nil {
			detail.Cause = reporter.ErrorChain(f.Err)
		}
		failures = append(failures, detail)
	}

	return reporter.FailureRecord{
		RunID:      o.RunID,
		TestName:   o.Scenario.Name,
		Identity:   o.Scenario.ID(),
		Stage:      string(o.Stage),
		Status:     string(o.Status),
		Timestamp:  o.FinishedAt,
		Duration:   o.Duration,
		StatusCode: o.StatusCode,
		Params:     params,
		Failures:   failures,
		Assumption: o.Scenario.Assumption,
		Stack:      o.Stack,
	}
}
