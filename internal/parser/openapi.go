// Package parser converts response contracts to and from OpenAPI 3 documents.
package parser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"weather-contract-tester/internal/document"
	"weather-contract-tester/internal/schema"
	"weather-contract-tester/internal/types"
)

// APIVersion is the service version the contracts describe.
const APIVersion = "2.5"

// OpenAPIExporter renders a schema registry as an OpenAPI document
type OpenAPIExporter struct {
	registry *schema.Registry
	baseURL  string
}

// NewOpenAPIExporter creates a new instance of OpenAPIExporter
func NewOpenAPIExporter(registry *schema.Registry, baseURL string) *OpenAPIExporter {
	return &OpenAPIExporter{
		registry: registry,
		baseURL:  baseURL,
	}
}

// Document builds the OpenAPI document and validates it.
func (p *OpenAPIExporter) Document(ctx context.Context) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "OpenWeatherMap response contracts",
			Description: "Structural contracts checked by weather-contract-tester.",
			Version:     APIVersion,
		},
		Paths: openapi3.NewPaths(),
	}
	if p.baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: p.baseURL}}
	}

	for _, endpoint := range []types.Endpoint{types.EndpointCurrent, types.EndpointForecast} {
		root, err := p.registry.Lookup(endpoint.Shape())
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", endpoint, err)
		}
		doc.Paths.Set("/"+string(endpoint), &openapi3.PathItem{Get: operation(endpoint, root)})
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("generated OpenAPI document is invalid: %w", err)
	}
	return doc, nil
}

// Render returns the document encoded as "json" or "yaml".
func (p *OpenAPIExporter) Render(ctx context.Context, format string) ([]byte, error) {
	doc, err := p.Document(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode OpenAPI document: %w", err)
	}

	switch format {
	case "json":
		return append(data, '\n'), nil
	case "yaml":
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("failed to re-decode OpenAPI document: %w", err)
		}
		return yaml.Marshal(generic)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// Load parses an OpenAPI document in JSON or YAML.
func Load(data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI doc: %w", err)
	}
	return doc, nil
}

// responseSchema returns the JSON body schema of the GET operation on path
// for the given status. Status 0 selects the default response.
func responseSchema(doc *openapi3.T, path string, status int) (*openapi3.Schema, error) {
	item := doc.Paths.Value(path)
	if item == nil || item.Get == nil {
		return nil, fmt.Errorf("no GET operation for %s", path)
	}

	var ref *openapi3.ResponseRef
	if status == 0 {
		ref = item.Get.Responses.Default()
	} else {
		ref = item.Get.Responses.Status(status)
	}
	if ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("no %d response for %s", status, path)
	}

	media := ref.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil, fmt.Errorf("no JSON schema for %s %d", path, status)
	}
	return media.Schema.Value, nil
}

func operation(endpoint types.Endpoint, root schema.Node) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = string(endpoint)
	op.Summary = summaries[endpoint]

	op.AddParameter(openapi3.NewQueryParameter("q").
		WithDescription("City name, optionally followed by a country code").
		WithSchema(openapi3.NewStringSchema()))
	op.AddParameter(openapi3.NewQueryParameter("lat").WithSchema(openapi3.NewFloat64Schema().WithMin(-90).WithMax(90)))
	op.AddParameter(openapi3.NewQueryParameter("lon").WithSchema(openapi3.NewFloat64Schema().WithMin(-180).WithMax(180)))
	op.AddParameter(openapi3.NewQueryParameter("units").
		WithSchema(openapi3.NewStringSchema().WithEnum("standard", "metric", "imperial")))
	op.AddParameter(openapi3.NewQueryParameter("lang").WithSchema(openapi3.NewStringSchema()))
	op.AddParameter(openapi3.NewQueryParameter("appid").WithRequired(true).WithSchema(openapi3.NewStringSchema()))

	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(200, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Successful response").
				WithJSONSchema(SchemaFor(root)),
		}),
		openapi3.WithName("default", openapi3.NewResponse().
			WithDescription("Error response").
			WithJSONSchema(SchemaFor(errorBody()))),
	)
	return op
}

var summaries = map[types.Endpoint]string{
	types.EndpointCurrent:  "Current weather for one location",
	types.EndpointForecast: "5 day forecast in 3-hour steps",
}

func errorBody() schema.Node {
	return schema.Obj(
		schema.Req("cod", schema.Either(schema.Integer(), schema.String())),
		schema.Req("message", schema.String()),
	)
}

// SchemaFor converts a contract node into an OpenAPI schema. Integer and
// float unions become "number"; other unions become oneOf.
func SchemaFor(n schema.Node) *openapi3.Schema {
	switch n := n.(type) {
	case *schema.Object:
		s := openapi3.NewObjectSchema()
		for _, f := range n.Fields {
			prop := SchemaFor(f.Schema)
			if f.Default != nil {
				if _, null := f.Default.(document.Null); !null {
					prop.Default = document.Interface(f.Default)
				}
			}
			s.WithProperty(f.Key, prop)
			if f.Required {
				s.Required = append(s.Required, f.Key)
			}
		}
		return s
	case *schema.Array:
		s := openapi3.NewArraySchema().WithItems(SchemaFor(n.Items))
		s.MinItems = uint64(n.MinItems)
		return s
	case *schema.Scalar:
		return scalarSchema(n)
	case *schema.OneOf:
		options := make([]*openapi3.Schema, len(n.Options))
		for i, opt := range n.Options {
			options[i] = SchemaFor(opt)
		}
		return openapi3.NewOneOfSchema(options...)
	}
	return openapi3.NewSchema()
}

func scalarSchema(n *schema.Scalar) *openapi3.Schema {
	var names []string
	nullable := false
	for _, t := range n.Types {
		switch t {
		case schema.TypeNull:
			nullable = true
		case schema.TypeInteger:
			if !n.Accepts(schema.TypeFloat) {
				names = append(names, openapi3.TypeInteger)
			}
		case schema.TypeFloat:
			names = append(names, openapi3.TypeNumber)
		case schema.TypeString:
			names = append(names, openapi3.TypeString)
		case schema.TypeBoolean:
			names = append(names, openapi3.TypeBoolean)
		}
	}

	var s *openapi3.Schema
	switch len(names) {
	case 0:
		s = openapi3.NewSchema()
	case 1:
		s = &openapi3.Schema{Type: &openapi3.Types{names[0]}}
	default:
		options := make([]*openapi3.Schema, len(names))
		for i, name := range names {
			options[i] = &openapi3.Schema{Type: &openapi3.Types{name}}
		}
		s = openapi3.NewOneOfSchema(options...)
	}

	s.Nullable = nullable
	if len(n.Enum) > 0 {
		values := make([]any, len(n.Enum))
		for i, v := range n.Enum {
			values[i] = v
		}
		s.Enum = values
	}
	if n.Minimum != nil {
		min := *n.Minimum
		s.Min = &min
	}
	return s
}
