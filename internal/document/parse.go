package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is returned for bodies that are not a single JSON value.
var ErrMalformed = errors.New("malformed document")

// MaxDepth is the deepest nesting of arrays and objects Parse accepts.
const MaxDepth = 64

// Parse decodes a complete JSON document.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after top-level value", ErrMalformed)
	}
	return v, nil
}

func parseValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case json.Delim:
		if depth >= MaxDepth {
			return nil, fmt.Errorf("nesting deeper than %d levels", MaxDepth)
		}
		switch t {
		case '{':
			return parseObject(dec, depth+1)
		case '[':
			return parseArray(dec, depth+1)
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func parseObject(dec *json.Decoder, depth int) (Value, error) {
	obj := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, not string", tok)
		}
		v, err := parseValue(dec, depth)
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func parseArray(dec *json.Decoder, depth int) (Value, error) {
	arr := Array{}
	for dec.More() {
		v, err := parseValue(dec, depth)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// Interface converts v into the plain Go values encoding/json would produce
// (map[string]any, []any, float64, string, bool, nil).
func Interface(v Value) any {
	switch t := v.(type) {
	case Bool:
		return bool(t)
	case Number:
		return t.Float64()
	case String:
		return string(t)
	case Array:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Interface(item)
		}
		return out
	case *Object:
		out := make(map[string]any, len(t.keys))
		for _, key := range t.keys {
			out[key] = Interface(t.fields[key])
		}
		return out
	}
	return nil
}
