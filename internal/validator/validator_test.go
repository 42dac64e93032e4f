package validator

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-contract-tester/internal/document"
	"weather-contract-tester/internal/schema"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

// mutate decodes raw, lets fn edit the generic tree and re-parses the result.
// Number literals survive the round trip unchanged.
func mutate(t *testing.T, raw []byte, fn func(m map[string]any)) document.Value {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	fn(m)
	out, err := json.Marshal(m)
	require.NoError(t, err)
	v, err := document.Parse(out)
	require.NoError(t, err)
	return v
}

func obj(m map[string]any, keys ...string) map[string]any {
	cur := m
	for _, k := range keys {
		cur = cur[k].(map[string]any)
	}
	return cur
}

func listItem(m map[string]any, i int) map[string]any {
	return m["list"].([]any)[i].(map[string]any)
}

func lookup(t *testing.T, name string) schema.Node {
	t.Helper()
	n, err := schema.NewRegistry().Lookup(name)
	require.NoError(t, err)
	return n
}

func TestValidate_Fixtures(t *testing.T) {
	tests := []struct {
		shape   string
		fixture string
	}{
		{shape: schema.ShapeCurrent, fixture: "current_weather.json"},
		{shape: schema.ShapeForecast, fixture: "forecast.json"},
	}

	for _, tt := range tests {
		t.Run(tt.shape, func(t *testing.T) {
			doc, err := document.Parse(fixture(t, tt.fixture))
			require.NoError(t, err)

			r := Validate(lookup(t, tt.shape), doc)
			assert.True(t, r.Passed(), r.String())
			assert.NoError(t, r.Err())
			assert.Nil(t, r.Path())
		})
	}
}

// requiredPaths lists the path of every required key reachable in a
// document, taking the first element of every array.
func requiredPaths(n schema.Node, prefix Path) []Path {
	var out []Path
	switch node := n.(type) {
	case *schema.Object:
		for _, f := range node.Fields {
			if !f.Required {
				continue
			}
			out = append(out, prefix.key(f.Key))
			if f.Schema != nil {
				out = append(out, requiredPaths(f.Schema, prefix.key(f.Key))...)
			}
		}
	case *schema.Array:
		out = append(out, requiredPaths(node.Items, prefix.index(0))...)
	}
	return out
}

func remove(m map[string]any, p Path) {
	var cur any = m
	for _, tok := range p[:len(p)-1] {
		if tok.IsIndex {
			cur = cur.([]any)[tok.Index]
		} else {
			cur = cur.(map[string]any)[tok.Key]
		}
	}
	delete(cur.(map[string]any), p[len(p)-1].Key)
}

func TestValidate_EveryMissingRequiredKey(t *testing.T) {
	shapes := map[string]string{
		schema.ShapeCurrent:  "current_weather.json",
		schema.ShapeForecast: "forecast.json",
	}

	for shape, file := range shapes {
		root := lookup(t, shape)
		raw := fixture(t, file)
		paths := requiredPaths(root, Path{})
		require.NotEmpty(t, paths)

		for _, p := range paths {
			t.Run(shape+"/"+p.String(), func(t *testing.T) {
				doc := mutate(t, raw, func(m map[string]any) { remove(m, p) })

				r := Validate(root, doc)
				require.False(t, r.Passed())
				assert.Equal(t, p.String(), r.Path().String())
				assert.Contains(t, r.Message(), "missing required key")
			})
		}
	}
}

func TestValidate_Violations(t *testing.T) {
	current := fixture(t, "current_weather.json")
	forecast := fixture(t, "forecast.json")

	tests := []struct {
		name     string
		shape    string
		raw      []byte
		edit     func(m map[string]any)
		wantPath string
		wantMsg  string
	}{
		{
			name:     "temperature as string",
			shape:    schema.ShapeCurrent,
			raw:      current,
			edit:     func(m map[string]any) { obj(m, "main")["temp"] = "14.5" },
			wantPath: "$.main.temp",
			wantMsg:  `expected integer or float, got string "14.5"`,
		},
		{
			name:     "fractional pressure",
			shape:    schema.ShapeCurrent,
			raw:      current,
			edit:     func(m map[string]any) { obj(m, "main")["pressure"] = json.Number("1016.5") },
			wantPath: "$.main.pressure",
			wantMsg:  "expected integer, got float 1016.5",
		},
		{
			name:     "empty weather array",
			shape:    schema.ShapeCurrent,
			raw:      current,
			edit:     func(m map[string]any) { m["weather"] = []any{} },
			wantPath: "$.weather",
			wantMsg:  "expected at least 1 item(s), got 0",
		},
		{
			name:     "cod as bool",
			shape:    schema.ShapeCurrent,
			raw:      current,
			edit:     func(m map[string]any) { m["cod"] = true },
			wantPath: "$.cod",
			wantMsg:  "expected one of (integer, string), got bool true",
		},
		{
			name:     "optional gust with wrong type",
			shape:    schema.ShapeCurrent,
			raw:      current,
			edit:     func(m map[string]any) { obj(m, "wind")["gust"] = "strong" },
			wantPath: "$.wind.gust",
			wantMsg:  "expected integer or float",
		},
		{
			name:     "coord is an array",
			shape:    schema.ShapeCurrent,
			raw:      current,
			edit:     func(m map[string]any) { m["coord"] = []any{json.Number("4.8"), json.Number("52.3")} },
			wantPath: "$.coord",
			wantMsg:  "expected object, got array [4.8,52.3]",
		},
		{
			name:     "unknown part of day",
			shape:    schema.ShapeForecast,
			raw:      forecast,
			edit:     func(m map[string]any) { obj(listItem(m, 1), "sys")["pod"] = "x" },
			wantPath: "$.list[1].sys.pod",
			wantMsg:  `expected one of [d, n], got string "x"`,
		},
		{
			name:     "zero count",
			shape:    schema.ShapeForecast,
			raw:      forecast,
			edit:     func(m map[string]any) { m["cnt"] = json.Number("0") },
			wantPath: "$.cnt",
			wantMsg:  "expected value >= 1, got 0",
		},
		{
			name:     "numeric forecast cod",
			shape:    schema.ShapeForecast,
			raw:      forecast,
			edit:     func(m map[string]any) { m["cod"] = json.Number("200") },
			wantPath: "$.cod",
			wantMsg:  "expected string, got integer 200",
		},
		{
			name:     "rain volume as string",
			shape:    schema.ShapeForecast,
			raw:      forecast,
			edit:     func(m map[string]any) { obj(listItem(m, 0), "rain")["3h"] = "0.35" },
			wantPath: "$.list[0].rain.3h",
			wantMsg:  "expected integer or float",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mutate(t, tt.raw, tt.edit)

			r := Validate(lookup(t, tt.shape), doc)
			require.False(t, r.Passed())
			assert.Equal(t, tt.wantPath, r.Path().String())
			assert.Contains(t, r.Message(), tt.wantMsg)

			var verr *Error
			require.ErrorAs(t, r.Err(), &verr)
			assert.Equal(t, tt.wantPath, verr.Path.String())
		})
	}
}

func TestValidate_Tolerated(t *testing.T) {
	current := fixture(t, "current_weather.json")
	forecast := fixture(t, "forecast.json")

	tests := []struct {
		name  string
		shape string
		raw   []byte
		edit  func(m map[string]any)
	}{
		{
			name:  "unknown top-level key",
			shape: schema.ShapeCurrent,
			raw:   current,
			edit:  func(m map[string]any) { m["air_quality"] = map[string]any{"aqi": json.Number("2")} },
		},
		{
			name:  "integer temperature",
			shape: schema.ShapeCurrent,
			raw:   current,
			edit:  func(m map[string]any) { obj(m, "main")["temp"] = json.Number("14") },
		},
		{
			name:  "string cod",
			shape: schema.ShapeCurrent,
			raw:   current,
			edit:  func(m map[string]any) { m["cod"] = "200" },
		},
		{
			name:  "optional keys absent",
			shape: schema.ShapeCurrent,
			raw:   current,
			edit: func(m map[string]any) {
				delete(obj(m, "wind"), "gust")
				delete(obj(m, "main"), "sea_level")
				delete(obj(m, "sys"), "type")
			},
		},
		{
			name:  "count disagrees with list length",
			shape: schema.ShapeForecast,
			raw:   forecast,
			edit:  func(m map[string]any) { m["cnt"] = json.Number("40") },
		},
		{
			name:  "snow block on one item",
			shape: schema.ShapeForecast,
			raw:   forecast,
			edit:  func(m map[string]any) { listItem(m, 1)["snow"] = map[string]any{"3h": json.Number("1")} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(lookup(t, tt.shape), mutate(t, tt.raw, tt.edit))
			assert.True(t, r.Passed(), r.String())
		})
	}
}

func TestValidate_RootNotObject(t *testing.T) {
	doc, err := document.Parse([]byte(`[1,2]`))
	require.NoError(t, err)

	r := Validate(lookup(t, schema.ShapeForecast), doc)
	require.False(t, r.Passed())
	assert.Equal(t, "$", r.Path().String())
	assert.Equal(t, "$: expected object, got array [1,2]", r.String())
}

func TestPath_String(t *testing.T) {
	p := Path{}.key("list").index(3).key("main").key("temp")
	assert.Equal(t, "$.list[3].main.temp", p.String())
}
