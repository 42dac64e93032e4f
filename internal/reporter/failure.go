package reporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// FailureDetail is one reason recorded for a failing scenario.
type FailureDetail struct {
	Kind    string
	Check   string
	Path    string
	Message string
	// Cause lists the underlying error chain, outermost first, as "type: message".
	Cause []string
}

// FailureRecord is the diagnostic written for one failing scenario run.
type FailureRecord struct {
	RunID      string
	TestName   string
	Identity   string
	Stage      string
	Status     string
	Timestamp  time.Time
	Duration   time.Duration
	StatusCode int
	Params     [][2]string
	Failures   []FailureDetail
	Assumption string
	Stack      string
}

// ErrorChain lists err and everything it wraps as "type: message".
func ErrorChain(err error) []string {
	var out []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		out = append(out, fmt.Sprintf("%T: %v", e, e))
	}
	return out
}

// FailureReporter writes one file per failing scenario run.
type FailureReporter struct {
	dir string
	log logrus.FieldLogger
}

// NewFailureReporter creates a reporter writing into dir.
func NewFailureReporter(dir string, log logrus.FieldLogger) *FailureReporter {
	return &FailureReporter{dir: dir, log: log}
}

// FileName returns the file name for rec. Two records with the same identity
// and stage within the same second share a name, and the later one replaces
// the earlier. Characters outside [A-Za-z0-9._-] fold to a single '_', so
// identities differing only in punctuation, such as "weather/a[b]" and
// "weather/a_b", also share a name.
func FileName(rec FailureRecord) string {
	return fmt.Sprintf("FAIL_%s_%s_%s.log",
		sanitize(rec.Identity), sanitize(rec.Stage), rec.Timestamp.Format("2006-01-02_15-04-05"))
}

func sanitize(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		ok := r == '.' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if ok {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unnamed"
	}
	return out
}

// Record writes rec and returns the file path, or "" when writing failed.
// It never panics and never returns an error: problems are logged.
func (r *FailureReporter) Record(rec FailureRecord) (path string) {
	log := r.log.WithFields(logrus.Fields{"scenario": rec.Identity, "stage": rec.Stage})
	defer func() {
		if p := recover(); p != nil {
			log.WithField("panic", p).Error("Failed to write failure record")
			path = ""
		}
	}()

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		log.WithError(err).Error("Failed to create failure record directory")
		return ""
	}

	path = filepath.Join(r.dir, FileName(rec))
	if err := os.WriteFile(path, []byte(Render(rec)), 0644); err != nil {
		log.WithError(err).Error("Failed to write failure record")
		return ""
	}

	log.WithField("file", path).Info("Scenario failed, failure record saved")
	return path
}

// Render formats rec as the text stored on disk.
func Render(rec FailureRecord) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	fmt.Fprintf(&b, "Test: %s\n", rec.TestName)
	fmt.Fprintf(&b, "Identity: %s\n", rec.Identity)
	fmt.Fprintf(&b, "Run: %s\n", rec.RunID)
	fmt.Fprintf(&b, "Stage: %s (setup/call/teardown)\n", rec.Stage)
	fmt.Fprintf(&b, "Time: %s\n", rec.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Status: %s\n", rec.Status)
	fmt.Fprintf(&b, "Duration: %dms\n", rec.Duration.Milliseconds())
	if rec.StatusCode != 0 {
		fmt.Fprintf(&b, "HTTP status: %d\n", rec.StatusCode)
	}
	b.WriteString(rule + "\n\n")

	if len(rec.Params) > 0 {
		b.WriteString("Parameters:\n")
		for _, kv := range rec.Params {
			fmt.Fprintf(&b, "  %s: %s\n", kv[0], kv[1])
		}
		b.WriteString(thin + "\n\n")
	}

	if rec.Assumption != "" {
		fmt.Fprintf(&b, "Unverified expectation: %s\n\n", rec.Assumption)
	}

	b.WriteString("Failures:\n")
	for i, f := range rec.Failures {
		label := f.Kind
		if f.Check != "" {
			label += ":" + f.Check
		}
		if f.Path != "" {
			fmt.Fprintf(&b, "  %d. [%s] %s: %s\n", i+1, label, f.Path, f.Message)
		} else {
			fmt.Fprintf(&b, "  %d. [%s] %s\n", i+1, label, f.Message)
		}
		for _, c := range f.Cause {
			fmt.Fprintf(&b, "       caused by %s\n", c)
		}
	}
	b.WriteString("\n")

	b.WriteString("Traceback:\n")
	if rec.Stack != "" {
		b.WriteString(strings.TrimRight(rec.Stack, "\n") + "\n")
	} else {
		b.WriteString("No stack trace (failure raised by a check, not a panic)\n")
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString("End of log\n")
	return b.String()
}
