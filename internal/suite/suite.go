// Package suite provides the built-in contract scenarios and loads
// replacement suites from YAML files.
package suite

import (
	"strings"

	"weather-contract-tester/internal/assertion"
	"weather-contract-tester/internal/types"
)

// InvalidAPIKey is well formed but never issued by the service.
const InvalidAPIKey = "fake-key-0000000000"

func city(name string) *string { return &name }

func coord(v float64) *float64 { return &v }

func currentSuccess(name, units string) types.Scenario {
	return types.Scenario{
		Name:           "success[" + name + "," + units + "]",
		Endpoint:       types.EndpointCurrent,
		Params:         types.Params{City: city(name), Units: units, Lang: "en"},
		ExpectedStatus: 200,
		Expect:         types.Expectations{Location: name},
	}
}

func forecastSuccess(name string) types.Scenario {
	return types.Scenario{
		Name:           "success[" + name + "]",
		Endpoint:       types.EndpointForecast,
		Params:         types.Params{City: city(name), Units: assertion.UnitsMetric, Lang: "en"},
		ExpectedStatus: 200,
		Expect:         types.Expectations{Location: name, Count: 40},
	}
}

// Default returns the built-in suite.
func Default() []types.Scenario {
	var out []types.Scenario

	for _, name := range []string{"Amsterdam", "London", "Berlin", "Moscow"} {
		out = append(out, currentSuccess(name, assertion.UnitsMetric))
	}
	out = append(out,
		currentSuccess("London", assertion.UnitsImperial),
		currentSuccess("Berlin", assertion.UnitsStandard),
		types.Scenario{
			Name:           "city_not_found",
			Endpoint:       types.EndpointCurrent,
			Params:         types.Params{City: city("NonExistentCityXYZ12345"), Units: assertion.UnitsMetric},
			ExpectedStatus: 404,
			Expect:         types.Expectations{Keywords: []string{"city not found"}},
		},
		types.Scenario{
			Name:           "invalid_api_key",
			Endpoint:       types.EndpointCurrent,
			Params:         types.Params{City: city("Amsterdam"), Units: assertion.UnitsMetric, APIKey: InvalidAPIKey},
			ExpectedStatus: 401,
			Expect:         types.Expectations{Keywords: []string{"unauthorized", "invalid"}},
		},
	)

	for _, name := range []string{"Amsterdam", "London", "Berlin", "Tokyo"} {
		out = append(out, forecastSuccess(name))
	}
	out = append(out,
		types.Scenario{
			Name:           "success[coordinates]",
			Endpoint:       types.EndpointForecast,
			Params:         types.Params{Lat: coord(52.374), Lon: coord(4.8897), Units: assertion.UnitsMetric, Lang: "en"},
			ExpectedStatus: 200,
			Expect:         types.Expectations{Count: 40},
		},
		types.Scenario{
			Name:           "city_not_found",
			Endpoint:       types.EndpointForecast,
			Params:         types.Params{City: city("NonExistentCityXYZ987"), Units: assertion.UnitsMetric},
			ExpectedStatus: 404,
			Expect:         types.Expectations{Keywords: []string{"not found"}},
		},
		types.Scenario{
			Name:           "empty_city",
			Endpoint:       types.EndpointForecast,
			Params:         types.Params{City: city(""), Units: assertion.UnitsMetric},
			ExpectedStatus: 400,
			Assumption:     "400 for an empty q is observed behavior, not part of the published contract",
		},
		types.Scenario{
			Name:           "coordinates_out_of_range",
			Endpoint:       types.EndpointForecast,
			Params:         types.Params{Lat: coord(999), Lon: coord(999), Units: assertion.UnitsMetric},
			ExpectedStatus: 400,
			Assumption:     "400 for out-of-range coordinates is observed behavior, not part of the published contract",
		},
		types.Scenario{
			Name:           "invalid_api_key",
			Endpoint:       types.EndpointForecast,
			Params:         types.Params{City: city("Amsterdam"), Units: assertion.UnitsMetric, APIKey: InvalidAPIKey},
			ExpectedStatus: 401,
			Expect:         types.Expectations{Keywords: []string{"unauthorized", "invalid"}},
		},
	)
	return out
}

// Filter keeps the scenarios whose ID contains substr, ignoring case. An
// empty substr keeps everything.
func Filter(scenarios []types.Scenario, substr string) []types.Scenario {
	if substr == "" {
		return scenarios
	}
	needle := strings.ToLower(substr)
	var out []types.Scenario
	for _, s := range scenarios {
		if strings.Contains(strings.ToLower(s.ID()), needle) {
			out = append(out, s)
		}
	}
	return out
}
