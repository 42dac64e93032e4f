// Package document holds parsed response bodies as a closed set of JSON value
// variants. Accessing a value as the wrong kind is an error, never a zero value.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrWrongKind is returned when a value is accessed as a kind it is not.
	ErrWrongKind = errors.New("wrong value kind")
	// ErrMissingKey is returned when an object has no such key.
	ErrMissingKey = errors.New("missing key")
)

// Kind identifies the variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is a parsed JSON value. Only the types in this package implement it.
type Value interface {
	Kind() Kind
	sealed()
}

// Null is the JSON null literal.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) sealed()    {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) sealed()    {}

// Number keeps the literal text of a JSON number so integers and floats stay
// distinguishable after parsing.
type Number string

func (Number) Kind() Kind { return KindNumber }
func (Number) sealed()    {}

// IsInteger reports whether the literal was written without a fraction or exponent.
func (n Number) IsInteger() bool {
	return !strings.ContainsAny(string(n), ".eE")
}

// Float64 returns the numeric value of the literal.
func (n Number) Float64() float64 {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		// The parser only produces valid literals; a hand-built Number may not be.
		return 0
	}
	return f
}

// String is a JSON string.
type String string

func (String) Kind() Kind { return KindString }
func (String) sealed()    {}

// Array is a JSON array.
type Array []Value

func (Array) Kind() Kind { return KindArray }
func (Array) sealed()    {}

// Object is a JSON object that remembers the order its keys appeared in.
type Object struct {
	keys   []string
	fields map[string]Value
}

func (*Object) Kind() Kind { return KindObject }
func (*Object) sealed()    {}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{fields: make(map[string]Value)}
}

// Set adds or replaces a key. Replacing keeps the original position.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Field returns the value stored under key or ErrMissingKey.
func (o *Object) Field(key string) (Value, error) {
	v, ok := o.fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingKey, key)
	}
	return v, nil
}

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

func wrongKind(want Kind, v Value) error {
	return fmt.Errorf("%w: want %s, got %s", ErrWrongKind, want, KindOf(v))
}

// KindOf returns the kind of v, treating a nil interface as null.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// AsObject returns v as an object.
func AsObject(v Value) (*Object, error) {
	o, ok := v.(*Object)
	if !ok || o == nil {
		return nil, wrongKind(KindObject, v)
	}
	return o, nil
}

// AsArray returns v as an array.
func AsArray(v Value) (Array, error) {
	a, ok := v.(Array)
	if !ok {
		return nil, wrongKind(KindArray, v)
	}
	return a, nil
}

// AsString returns v as a Go string.
func AsString(v Value) (string, error) {
	s, ok := v.(String)
	if !ok {
		return "", wrongKind(KindString, v)
	}
	return string(s), nil
}

// AsNumber returns v as a number literal.
func AsNumber(v Value) (Number, error) {
	n, ok := v.(Number)
	if !ok {
		return "", wrongKind(KindNumber, v)
	}
	return n, nil
}

// AsFloat returns the numeric value of v.
func AsFloat(v Value) (float64, error) {
	n, err := AsNumber(v)
	if err != nil {
		return 0, err
	}
	return n.Float64(), nil
}

// Lookup walks nested object keys starting at v.
func Lookup(v Value, keys ...string) (Value, error) {
	cur := v
	for i, key := range keys {
		obj, err := AsObject(cur)
		if err != nil {
			return nil, fmt.Errorf("at %s: %w", strings.Join(keys[:i], "."), err)
		}
		cur, err = obj.Field(key)
		if err != nil {
			return nil, fmt.Errorf("at %s: %w", strings.Join(keys[:i+1], "."), err)
		}
	}
	return cur, nil
}

// Scalar renders v as the plain text a person would compare it by: strings
// unquoted, numbers as written, everything else as compact JSON.
func Scalar(v Value) string {
	switch t := v.(type) {
	case String:
		return string(t)
	case Number:
		return string(t)
	}
	return Describe(v)
}

// Describe renders v as compact JSON, truncated for use in failure messages.
func Describe(v Value) string {
	const limit = 80
	var b strings.Builder
	encode(&b, v)
	return Truncate(b.String(), limit)
}

// Truncate shortens s to at most limit bytes, cutting on a rune boundary,
// and marks the cut with "...".
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "..."
}

func encode(b *strings.Builder, v Value) {
	switch t := v.(type) {
	case nil, Null:
		b.WriteString("null")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(t)))
	case Number:
		b.WriteString(string(t))
	case String:
		q, _ := json.Marshal(string(t))
		b.Write(q)
	case Array:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			encode(b, item)
		}
		b.WriteByte(']')
	case *Object:
		b.WriteByte('{')
		for i, key := range t.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			q, _ := json.Marshal(key)
			b.Write(q)
			b.WriteByte(':')
			encode(b, t.fields[key])
		}
		b.WriteByte('}')
	}
}
