// Package validator checks parsed documents against schema contracts.
//
// Validation is depth-first and fails fast: object keys are visited in the
// order the contract declares them, every required key of an object is checked
// for presence before any child is descended into, array items are visited by
// index, and the first violation found ends the walk. A Result therefore names
// exactly one offending location.
package validator

import (
	"fmt"
	"strconv"
	"strings"

	"weather-contract-tester/internal/document"
	"weather-contract-tester/internal/schema"
)

// Token is one step of a keypath: an object key or an array index.
type Token struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path locates a value inside a document.
type Path []Token

func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, t := range p {
		if t.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(t.Index))
			b.WriteByte(']')
			continue
		}
		b.WriteByte('.')
		b.WriteString(t.Key)
	}
	return b.String()
}

func (p Path) key(k string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Token{Key: k})
}

func (p Path) index(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Token{Index: i, IsIndex: true})
}

// Result is the outcome of one validation. The zero value is a pass.
type Result struct {
	failed  bool
	path    Path
	message string
}

func pass() Result { return Result{} }

func fail(path Path, format string, args ...any) Result {
	return Result{failed: true, path: path, message: fmt.Sprintf(format, args...)}
}

// Passed reports whether the document satisfied the contract.
func (r Result) Passed() bool { return !r.failed }

// Path returns the location of the violation, or nil on pass.
func (r Result) Path() Path {
	if !r.failed {
		return nil
	}
	out := make(Path, len(r.path))
	copy(out, r.path)
	return out
}

// Message describes the violation, or is empty on pass.
func (r Result) Message() string { return r.message }

// Err returns the violation as an error, or nil on pass.
func (r Result) Err() error {
	if !r.failed {
		return nil
	}
	return &Error{Path: r.Path(), Message: r.message}
}

func (r Result) String() string {
	if !r.failed {
		return "pass"
	}
	return r.path.String() + ": " + r.message
}

// Error is a structural violation.
type Error struct {
	Path    Path
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("schema violation at %s: %s", e.Path, e.Message)
}

// Validate checks doc against root.
func Validate(root schema.Node, doc document.Value) Result {
	return validate(root, doc, Path{})
}

func validate(n schema.Node, v document.Value, path Path) Result {
	switch node := n.(type) {
	case *schema.Object:
		return validateObject(node, v, path)
	case *schema.Array:
		return validateArray(node, v, path)
	case *schema.Scalar:
		return validateScalar(node, v, path)
	case *schema.OneOf:
		for _, opt := range node.Options {
			if validate(opt, v, path).Passed() {
				return pass()
			}
		}
		return fail(path, "expected %s, got %s", node.Expect(), describe(v))
	case nil:
		return pass()
	}
	return fail(path, "unsupported contract %T", n)
}

func validateObject(node *schema.Object, v document.Value, path Path) Result {
	obj, err := document.AsObject(v)
	if err != nil {
		return fail(path, "expected object, got %s", describe(v))
	}

	for _, key := range node.RequiredKeys() {
		if _, ok := obj.Get(key); !ok {
			return fail(path.key(key), "missing required key %q", key)
		}
	}

	for _, f := range node.Fields {
		child, ok := obj.Get(f.Key)
		if !ok || f.Schema == nil {
			continue
		}
		if r := validate(f.Schema, child, path.key(f.Key)); !r.Passed() {
			return r
		}
	}
	return pass()
}

func validateArray(node *schema.Array, v document.Value, path Path) Result {
	arr, err := document.AsArray(v)
	if err != nil {
		return fail(path, "expected array, got %s", describe(v))
	}
	if len(arr) < node.MinItems {
		return fail(path, "expected at least %d item(s), got %d", node.MinItems, len(arr))
	}
	for i, item := range arr {
		if r := validate(node.Items, item, path.index(i)); !r.Passed() {
			return r
		}
	}
	return pass()
}

func validateScalar(node *schema.Scalar, v document.Value, path Path) Result {
	t, ok := schema.TypeOf(v)
	if !ok || !node.Accepts(t) {
		return fail(path, "expected %s, got %s", node.Expect(), describe(v))
	}

	if len(node.Enum) > 0 {
		s := document.Scalar(v)
		found := false
		for _, allowed := range node.Enum {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			return fail(path, "expected one of [%s], got %s", strings.Join(node.Enum, ", "), describe(v))
		}
	}

	if node.Minimum != nil {
		if n, err := document.AsNumber(v); err == nil && n.Float64() < *node.Minimum {
			return fail(path, "expected value >= %s, got %s",
				strconv.FormatFloat(*node.Minimum, 'f', -1, 64), string(n))
		}
	}
	return pass()
}

func describe(v document.Value) string {
	kind := document.KindOf(v).String()
	if n, ok := v.(document.Number); ok {
		if n.IsInteger() {
			kind = "integer"
		} else {
			kind = "float"
		}
	}
	return kind + " " + document.Describe(v)
}
