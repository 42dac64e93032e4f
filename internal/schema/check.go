package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Check reports definition mistakes in a contract tree: unions that name fewer
// than two distinct types, enum values the declared types cannot hold, negative
// item counts, duplicate keys and empty alternatives. A contract that fails
// Check is a bug in the registry, not a finding about the service.
func Check(n Node) error {
	var errs []error
	check(n, "$", &errs)
	return errors.Join(errs...)
}

func check(n Node, path string, errs *[]error) {
	fail := func(format string, args ...any) {
		*errs = append(*errs, fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...)))
	}

	switch node := n.(type) {
	case nil:
		fail("nil contract")
	case *Object:
		seen := make(map[string]bool, len(node.Fields))
		for _, f := range node.Fields {
			if f.Key == "" {
				fail("empty key")
				continue
			}
			if seen[f.Key] {
				fail("duplicate key %q", f.Key)
			}
			seen[f.Key] = true
			if f.Required && f.Default != nil {
				fail("required key %q has a default", f.Key)
			}
			if f.Schema != nil {
				check(f.Schema, path+"."+f.Key, errs)
			}
		}
	case *Array:
		if node.MinItems < 0 {
			fail("negative minimum item count %d", node.MinItems)
		}
		if node.Items == nil {
			fail("array without item contract")
			return
		}
		check(node.Items, path+"[]", errs)
	case *Scalar:
		checkScalar(node, fail)
	case *OneOf:
		if len(node.Options) < 2 {
			fail("one-of with %d option(s)", len(node.Options))
		}
		for i, opt := range node.Options {
			check(opt, fmt.Sprintf("%s<%d>", path, i), errs)
		}
	default:
		fail("unsupported contract %T", n)
	}
}

func checkScalar(s *Scalar, fail func(string, ...any)) {
	if len(s.Types) == 0 {
		fail("scalar without types")
		return
	}
	seen := make(map[Type]bool, len(s.Types))
	for _, t := range s.Types {
		switch t {
		case TypeInteger, TypeFloat, TypeString, TypeBoolean, TypeNull:
		default:
			fail("unknown type %q", t)
		}
		if seen[t] {
			fail("type %q listed twice", t)
		}
		seen[t] = true
	}
	if len(s.Types) == 1 && s.Types[0] == TypeFloat {
		// A float-only field rejects every whole value the service renders as "12".
		fail("float without integer; use Number()")
	}
	if len(s.Enum) > 0 && !s.Accepts(TypeString) {
		fail("enum on non-string types %s", s.Expect())
	}
	for _, v := range s.Enum {
		if strings.TrimSpace(v) == "" {
			fail("blank enum value")
		}
	}
	if s.Minimum != nil && !s.Accepts(TypeInteger) && !s.Accepts(TypeFloat) {
		fail("minimum on non-numeric types %s", s.Expect())
	}
}
