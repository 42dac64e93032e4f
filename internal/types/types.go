package types

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"weather-contract-tester/internal/schema"
)

// Endpoint is a weather service resource relative to the versioned base URL.
type Endpoint string

const (
	EndpointCurrent  Endpoint = "weather"
	EndpointForecast Endpoint = "forecast"
)

// Shape returns the registry name of the endpoint's success response contract.
func (e Endpoint) Shape() string {
	switch e {
	case EndpointCurrent:
		return schema.ShapeCurrent
	case EndpointForecast:
		return schema.ShapeForecast
	}
	return string(e)
}

// Valid reports whether e is a known endpoint.
func (e Endpoint) Valid() bool {
	return e == EndpointCurrent || e == EndpointForecast
}

// Params are the query inputs of one scenario. City, Lat and Lon are pointers
// so that an explicitly empty city is distinguishable from an absent one.
type Params struct {
	City  *string  `yaml:"city,omitempty" json:"city,omitempty"`
	Lat   *float64 `yaml:"lat,omitempty" json:"lat,omitempty"`
	Lon   *float64 `yaml:"lon,omitempty" json:"lon,omitempty"`
	Units string   `yaml:"units,omitempty" json:"units,omitempty"`
	Lang  string   `yaml:"lang,omitempty" json:"lang,omitempty"`
	// APIKey replaces the configured credential, for unauthorized-key scenarios.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// Query builds the request query. apiKey is used unless the params override it.
func (p Params) Query(apiKey string) url.Values {
	q := url.Values{}
	if p.City != nil {
		q.Set("q", *p.City)
	}
	if p.Lat != nil {
		q.Set("lat", strconv.FormatFloat(*p.Lat, 'f', -1, 64))
	}
	if p.Lon != nil {
		q.Set("lon", strconv.FormatFloat(*p.Lon, 'f', -1, 64))
	}
	if p.APIKey != "" {
		apiKey = p.APIKey
	}
	q.Set("appid", apiKey)
	if p.Units != "" {
		q.Set("units", p.Units)
	}
	if p.Lang != "" {
		q.Set("lang", p.Lang)
	}
	return q
}

// Fields returns the parameters as ordered name/value pairs for reports.
// Credentials are masked.
func (p Params) Fields() [][2]string {
	m := map[string]string{}
	if p.City != nil {
		m["city"] = strconv.Quote(*p.City)
	}
	if p.Lat != nil {
		m["lat"] = strconv.FormatFloat(*p.Lat, 'f', -1, 64)
	}
	if p.Lon != nil {
		m["lon"] = strconv.FormatFloat(*p.Lon, 'f', -1, 64)
	}
	if p.Units != "" {
		m["units"] = p.Units
	}
	if p.Lang != "" {
		m["lang"] = p.Lang
	}
	if p.APIKey != "" {
		m["api_key"] = Mask(p.APIKey)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, m[k]}
	}
	return out
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// Expectations are the checks a scenario runs after the response arrives.
type Expectations struct {
	// Location is the name the response must report. Empty skips the check.
	Location string `yaml:"location,omitempty" json:"location,omitempty"`
	// Count is the forecast entry count the response must state. Zero skips
	// the comparison but len(list) == cnt is always checked.
	Count int `yaml:"count,omitempty" json:"count,omitempty"`
	// Keywords must appear (any one, ignoring case) in an error message.
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// Scenario is one parametrized contract test case.
type Scenario struct {
	Name           string       `yaml:"name" json:"name"`
	Endpoint       Endpoint     `yaml:"endpoint" json:"endpoint"`
	Params         Params       `yaml:"params" json:"params"`
	ExpectedStatus int          `yaml:"expected_status" json:"expected_status"`
	Expect         Expectations `yaml:"expect,omitempty" json:"expect,omitempty"`
	// Assumption documents an expectation that is not backed by the published
	// contract and has to be confirmed against the live service.
	Assumption string `yaml:"assumption,omitempty" json:"assumption,omitempty"`
}

// ID identifies the scenario across runs.
func (s Scenario) ID() string {
	return fmt.Sprintf("%s/%s", s.Endpoint, s.Name)
}

// Negative reports whether the scenario expects an error response.
func (s Scenario) Negative() bool {
	return s.ExpectedStatus >= 400
}

// Validate checks that the scenario is runnable.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if !s.Endpoint.Valid() {
		return fmt.Errorf("scenario %s: unknown endpoint %q", s.Name, s.Endpoint)
	}
	if s.ExpectedStatus < 100 || s.ExpectedStatus > 599 {
		return fmt.Errorf("scenario %s: invalid expected status %d", s.Name, s.ExpectedStatus)
	}
	if (s.Params.Lat == nil) != (s.Params.Lon == nil) {
		return fmt.Errorf("scenario %s: lat and lon must be given together", s.Name)
	}
	return nil
}
