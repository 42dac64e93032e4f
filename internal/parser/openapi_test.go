package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-contract-tester/internal/schema"
	"weather-contract-tester/internal/twin"
)

func exporter() *OpenAPIExporter {
	return NewOpenAPIExporter(schema.NewRegistry(), "https://api.openweathermap.org/data/2.5")
}

func TestDocument(t *testing.T) {
	doc, err := exporter().Document(context.Background())
	require.NoError(t, err)

	assert.Equal(t, APIVersion, doc.Info.Version)
	assert.Len(t, doc.Paths.Map(), 2)

	current, err := responseSchema(doc, "/weather", 200)
	require.NoError(t, err)
	assert.Contains(t, current.Required, "main")
	assert.NotContains(t, current.Required, "rain")

	temp := current.Properties["main"].Value.Properties["temp"].Value
	assert.True(t, temp.Type.Is(openapi3.TypeNumber))

	cod := current.Properties["cod"].Value
	assert.Len(t, cod.OneOf, 2)

	rain := current.Properties["rain"].Value
	assert.Equal(t, map[string]any{}, rain.Default)

	forecast, err := responseSchema(doc, "/forecast", 200)
	require.NoError(t, err)
	cnt := forecast.Properties["cnt"].Value
	require.NotNil(t, cnt.Min)
	assert.Equal(t, 1.0, *cnt.Min)
	assert.True(t, cnt.Type.Is(openapi3.TypeInteger))

	pod := forecast.Properties["list"].Value.Items.Value.Properties["sys"].Value.Properties["pod"].Value
	assert.Equal(t, []any{"d", "n"}, pod.Enum)

	_, err = responseSchema(doc, "/onecall", 200)
	assert.Error(t, err)
}

func TestRender_RoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			data, err := exporter().Render(context.Background(), format)
			require.NoError(t, err)

			doc, err := Load(data)
			require.NoError(t, err)
			require.NoError(t, doc.Validate(context.Background()))
			assert.Len(t, doc.Paths.Map(), 2)

			_, err = responseSchema(doc, "/forecast", 0)
			assert.NoError(t, err)
		})
	}

	_, err := exporter().Render(context.Background(), "xml")
	assert.Error(t, err)
}

func TestSchemaFor_Scalars(t *testing.T) {
	tests := []struct {
		name    string
		node    schema.Node
		typ     string
		options int
	}{
		{name: "integer", node: schema.Integer(), typ: openapi3.TypeInteger},
		{name: "number union", node: schema.Number(), typ: openapi3.TypeNumber},
		{name: "string", node: schema.String(), typ: openapi3.TypeString},
		{name: "mixed union", node: schema.Of(schema.TypeInteger, schema.TypeString), options: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SchemaFor(tt.node)
			if tt.options > 0 {
				assert.Len(t, s.OneOf, tt.options)
				return
			}
			assert.True(t, s.Type.Is(tt.typ))
		})
	}

	nullable := SchemaFor(schema.Of(schema.TypeString, schema.TypeNull))
	assert.True(t, nullable.Nullable)
	assert.True(t, nullable.Type.Is(openapi3.TypeString))
}

// Twin bodies must satisfy the exported document as well as the registry.
func TestTwinBodiesMatchDocument(t *testing.T) {
	doc, err := exporter().Document(context.Background())
	require.NoError(t, err)

	router := twin.NewRouter(twin.Config{
		APIKeys: []string{"k"},
		Now:     func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) },
	})

	tests := []struct {
		path   string
		query  string
		status int
	}{
		{path: "/weather", query: "q=Amsterdam&units=metric&appid=k", status: 200},
		{path: "/forecast", query: "q=Tokyo&appid=k", status: 200},
		{path: "/forecast", query: "lat=52.374&lon=4.8897&units=imperial&appid=k", status: 200},
		{path: "/weather", query: "q=Atlantis&appid=k", status: 404},
		{path: "/forecast", query: "q=London&appid=wrong", status: 401},
	}

	for _, tt := range tests {
		t.Run(tt.path+"?"+tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, twin.BasePath+tt.path+"?"+tt.query, nil))
			require.Equal(t, tt.status, rec.Code)

			var body any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

			status := tt.status
			if status != 200 {
				status = 0
			}
			s, err := responseSchema(doc, tt.path, status)
			require.NoError(t, err)
			assert.NoError(t, s.VisitJSON(body))
		})
	}
}
