package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"weather-contract-tester/internal/schema"
)

func ptr[T any](v T) *T { return &v }

func TestParams_Query(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{
			name:   "city",
			params: Params{City: ptr("Amsterdam"), Units: "metric"},
			want:   "appid=secret&q=Amsterdam&units=metric",
		},
		{
			name:   "empty city is sent",
			params: Params{City: ptr("")},
			want:   "appid=secret&q=",
		},
		{
			name:   "coordinates",
			params: Params{Lat: ptr(52.374), Lon: ptr(4.8897), Lang: "en"},
			want:   "appid=secret&lang=en&lat=52.374&lon=4.8897",
		},
		{
			name:   "key override",
			params: Params{City: ptr("London"), APIKey: "fake"},
			want:   "appid=fake&q=London",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Query("secret").Encode())
		})
	}
}

func TestParams_Fields(t *testing.T) {
	p := Params{City: ptr("Moscow"), Units: "metric", APIKey: "fake-key-0000000000"}
	assert.Equal(t, [][2]string{
		{"api_key", "****0000"},
		{"city", `"Moscow"`},
		{"units", "metric"},
	}, p.Fields())

	assert.Empty(t, Params{}.Fields())
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", Mask(""))
	assert.Equal(t, "****", Mask("abcd"))
	assert.Equal(t, "****bcde", Mask("abcde"))
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, schema.ShapeCurrent, EndpointCurrent.Shape())
	assert.Equal(t, schema.ShapeForecast, EndpointForecast.Shape())
	assert.True(t, EndpointForecast.Valid())
	assert.False(t, Endpoint("onecall").Valid())
}

func TestScenario(t *testing.T) {
	s := Scenario{Name: "city_not_found", Endpoint: EndpointCurrent, ExpectedStatus: 404}
	assert.Equal(t, "weather/city_not_found", s.ID())
	assert.True(t, s.Negative())
	assert.NoError(t, s.Validate())

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{name: "no name", mutate: func(s *Scenario) { s.Name = "" }, wantErr: "no name"},
		{name: "endpoint", mutate: func(s *Scenario) { s.Endpoint = "onecall" }, wantErr: `unknown endpoint "onecall"`},
		{name: "status", mutate: func(s *Scenario) { s.ExpectedStatus = 0 }, wantErr: "invalid expected status 0"},
		{name: "lat only", mutate: func(s *Scenario) { s.Params.Lat = ptr(1.0) }, wantErr: "lat and lon must be given together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := s
			tt.mutate(&c)
			err := c.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
