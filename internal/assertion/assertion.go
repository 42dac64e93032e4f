// Package assertion holds the domain checks that run after a response has
// passed structural validation: status codes, location names, plausible value
// ranges, forecast cardinality, latency budgets and error-response shape.
package assertion

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"weather-contract-tester/internal/document"
)

// Kind separates correctness findings from performance findings.
type Kind string

const (
	KindAssertion Kind = "assertion"
	KindLatency   Kind = "latency"
)

// Failure is one failed check.
type Failure struct {
	Check    string
	Kind     Kind
	Path     string
	Expected string
	Actual   string
}

func (f *Failure) Error() string {
	if f.Path != "" {
		return fmt.Sprintf("%s at %s: expected %s, got %s", f.Check, f.Path, f.Expected, f.Actual)
	}
	return fmt.Sprintf("%s: expected %s, got %s", f.Check, f.Expected, f.Actual)
}

func failed(check, path, expected, actual string) *Failure {
	return &Failure{Check: check, Kind: KindAssertion, Path: path, Expected: expected, Actual: actual}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// StatusCode checks the HTTP status.
func StatusCode(want, got int) *Failure {
	if want == got {
		return nil
	}
	return failed("status_code", "", strconv.Itoa(want), strconv.Itoa(got))
}

// LocationName checks that the name the service reports matches the requested
// one, ignoring case (Unicode case folding, so "MÜNCHEN" matches "München"). Either may contain the other so that "London" matches
// "London, GB" and "City of London" matches "London".
func LocationName(path, requested, stated string) *Failure {
	req := cases.Fold().String(strings.TrimSpace(requested))
	got := cases.Fold().String(strings.TrimSpace(stated))
	if got != "" && req != "" && (strings.Contains(req, got) || strings.Contains(got, req)) {
		return nil
	}
	return failed("location_name", path, strconv.Quote(requested), strconv.Quote(stated))
}

// Equal compares the plain rendering of a value with want, so that 200 and
// "200" compare equal.
func Equal(check, path, want string, got document.Value) *Failure {
	if document.Scalar(got) == want {
		return nil
	}
	return failed(check, path, want, document.Describe(got))
}

// Latency checks that a round trip finished strictly within budget.
func Latency(check string, elapsed, budget time.Duration) *Failure {
	if elapsed < budget {
		return nil
	}
	return &Failure{
		Check:    check,
		Kind:     KindLatency,
		Expected: "< " + strconv.FormatInt(budget.Milliseconds(), 10) + "ms",
		Actual:   strconv.FormatInt(elapsed.Milliseconds(), 10) + "ms",
	}
}

// Cardinality checks a forecast: the stated count equals want (when want > 0)
// and the list holds exactly that many entries.
func Cardinality(doc document.Value, want int) []*Failure {
	var out []*Failure

	cntValue, err := document.Lookup(doc, "cnt")
	if err != nil {
		return append(out, failed("forecast_count", "$.cnt", "a number", err.Error()))
	}
	cnt, err := document.AsFloat(cntValue)
	if err != nil {
		return append(out, failed("forecast_count", "$.cnt", "a number", document.Describe(cntValue)))
	}
	if want > 0 && cnt != float64(want) {
		out = append(out, failed("forecast_count", "$.cnt", strconv.Itoa(want), formatFloat(cnt)))
	}

	listValue, err := document.Lookup(doc, "list")
	if err != nil {
		return append(out, failed("forecast_length", "$.list", "an array", err.Error()))
	}
	list, err := document.AsArray(listValue)
	if err != nil {
		return append(out, failed("forecast_length", "$.list", "an array", document.Describe(listValue)))
	}
	if float64(len(list)) != cnt {
		out = append(out, failed("forecast_length", "$.list", "len == cnt ("+formatFloat(cnt)+")", strconv.Itoa(len(list))))
	}
	return out
}

// ErrorShape checks a negative response body: cod equals want once both are
// rendered as strings, and message is a non-empty string. When keywords are
// given the message must contain at least one of them, ignoring case.
func ErrorShape(doc document.Value, want int, keywords []string) []*Failure {
	var out []*Failure

	if _, err := document.AsObject(doc); err != nil {
		return append(out, failed("error_body", "$", "an object with cod and message", document.Describe(doc)))
	}

	cod, err := document.Lookup(doc, "cod")
	if err != nil {
		out = append(out, failed("error_code", "$.cod", strconv.Itoa(want), "absent"))
	} else if f := Equal("error_code", "$.cod", strconv.Itoa(want), cod); f != nil {
		out = append(out, f)
	}

	msgValue, err := document.Lookup(doc, "message")
	if err != nil {
		return append(out, failed("error_message", "$.message", "a non-empty message", "absent"))
	}
	msg, err := document.AsString(msgValue)
	if err != nil || strings.TrimSpace(msg) == "" {
		return append(out, failed("error_message", "$.message", "a non-empty message", document.Describe(msgValue)))
	}

	if len(keywords) == 0 {
		return out
	}
	lower := strings.ToLower(msg)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return out
		}
	}
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = strconv.Quote(kw)
	}
	return append(out, failed("error_message", "$.message",
		"message containing "+strings.Join(quoted, " or "), strconv.Quote(msg)))
}
