// Package schema describes the structural contracts of weather service
// responses as an immutable tree of typed nodes.
package schema

import (
	"strings"

	"weather-contract-tester/internal/document"
)

// Type is a primitive JSON type a scalar may take.
type Type string

const (
	TypeInteger Type = "integer"
	TypeFloat   Type = "float"
	TypeString  Type = "string"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
)

// TypeOf returns the primitive type of a scalar value. Numbers are integer
// when written without a fraction or exponent. ok is false for arrays and objects.
func TypeOf(v document.Value) (t Type, ok bool) {
	switch val := v.(type) {
	case nil, document.Null:
		return TypeNull, true
	case document.Bool:
		return TypeBoolean, true
	case document.String:
		return TypeString, true
	case document.Number:
		if val.IsInteger() {
			return TypeInteger, true
		}
		return TypeFloat, true
	}
	return "", false
}

// Node is one structural contract. The variants are *Object, *Array, *Scalar and *OneOf.
type Node interface {
	// Expect describes the constraint in failure messages.
	Expect() string
	node()
}

// Field is one declared key of an object.
type Field struct {
	Key string
	// Schema may be nil, in which case only presence is checked.
	Schema   Node
	Required bool
	// Default marks an optional field the service may omit; the value is what
	// an absent field stands for.
	Default document.Value
}

// Object requires its required fields and validates every declared field that is
// present. Keys that are not declared are allowed.
type Object struct {
	Fields []Field
}

func (*Object) node() {}

// Expect implements Node.
func (*Object) Expect() string { return "object" }

// RequiredKeys returns the required keys in declaration order.
func (o *Object) RequiredKeys() []string {
	var keys []string
	for _, f := range o.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Field returns the declared field for key.
func (o *Object) Field(key string) (Field, bool) {
	for _, f := range o.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Array requires at least MinItems elements, each matching Items.
type Array struct {
	Items    Node
	MinItems int
}

func (*Array) node() {}

// Expect implements Node.
func (*Array) Expect() string { return "array" }

// Scalar accepts a value whose primitive type is one of Types. A Scalar with more
// than one type is a type union.
type Scalar struct {
	Types []Type
	// Enum, when set, lists the only accepted string renderings of the value.
	Enum    []string
	Minimum *float64
}

func (*Scalar) node() {}

// Expect implements Node.
func (s *Scalar) Expect() string {
	names := make([]string, len(s.Types))
	for i, t := range s.Types {
		names[i] = string(t)
	}
	return strings.Join(names, " or ")
}

// Accepts reports whether t is one of the scalar's types.
func (s *Scalar) Accepts(t Type) bool {
	for _, want := range s.Types {
		if want == t {
			return true
		}
	}
	return false
}

// OneOf accepts a value matching any one of its options.
type OneOf struct {
	Options []Node
}

func (*OneOf) node() {}

// Expect implements Node.
func (o *OneOf) Expect() string {
	parts := make([]string, len(o.Options))
	for i, opt := range o.Options {
		parts[i] = opt.Expect()
	}
	return "one of (" + strings.Join(parts, ", ") + ")"
}

// Obj builds an object contract.
func Obj(fields ...Field) *Object {
	return &Object{Fields: fields}
}

// Req declares a required key. A nil schema checks presence only.
func Req(key string, s Node) Field {
	return Field{Key: key, Schema: s, Required: true}
}

// Opt declares an optional key that is validated when present.
func Opt(key string, s Node) Field {
	return Field{Key: key, Schema: s}
}

// OptDefault declares an optional key with the value its absence stands for.
func OptDefault(key string, s Node, def document.Value) Field {
	return Field{Key: key, Schema: s, Default: def}
}

// ArrayOf builds an array contract.
func ArrayOf(items Node, minItems int) *Array {
	return &Array{Items: items, MinItems: minItems}
}

// Of builds a scalar accepting any of types.
func Of(types ...Type) *Scalar {
	return &Scalar{Types: types}
}

// Integer accepts integer literals only.
func Integer() *Scalar { return Of(TypeInteger) }

// Number accepts integer and float literals. Use it for every field the service
// may render either way (12 vs 12.5).
func Number() *Scalar { return Of(TypeInteger, TypeFloat) }

// String accepts strings.
func String() *Scalar { return Of(TypeString) }

// Enum accepts only the listed strings.
func Enum(values ...string) *Scalar {
	return &Scalar{Types: []Type{TypeString}, Enum: values}
}

// AtLeast returns a copy of s with an inclusive numeric minimum.
func (s *Scalar) AtLeast(min float64) *Scalar {
	c := *s
	c.Minimum = &min
	return &c
}

// Either builds a union of alternative contracts.
func Either(options ...Node) *OneOf {
	return &OneOf{Options: options}
}
