package assertion

import (
	"errors"
	"fmt"
	"strings"

	"weather-contract-tester/internal/document"
)

// Unit systems accepted by the service's units parameter.
const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"
	UnitsStandard = "standard"
)

// Bounds is a numeric interval. Exclusive bounds reject both end points.
type Bounds struct {
	Min       float64
	Max       float64
	Exclusive bool
}

// Contains reports whether v lies in the interval.
func (b Bounds) Contains(v float64) bool {
	if b.Exclusive {
		return v > b.Min && v < b.Max
	}
	return v >= b.Min && v <= b.Max
}

func (b Bounds) String() string {
	if b.Exclusive {
		return fmt.Sprintf("(%s, %s)", formatFloat(b.Min), formatFloat(b.Max))
	}
	return fmt.Sprintf("[%s, %s]", formatFloat(b.Min), formatFloat(b.Max))
}

// Range checks that v lies within b.
func Range(check, path string, v float64, b Bounds) *Failure {
	if b.Contains(v) {
		return nil
	}
	return failed(check, path, "value in "+b.String(), formatFloat(v))
}

// TemperatureBounds returns the plausible air temperature interval in the
// given unit system. Unknown systems fall back to the service default, kelvin.
func TemperatureBounds(units string) Bounds {
	switch units {
	case UnitsMetric:
		return Bounds{Min: -60, Max: 60, Exclusive: true}
	case UnitsImperial:
		return Bounds{Min: -76, Max: 140, Exclusive: true}
	}
	return Bounds{Min: 213.15, Max: 333.15, Exclusive: true}
}

func windSpeedBounds(units string) Bounds {
	if units == UnitsImperial {
		return Bounds{Min: 0, Max: 250}
	}
	return Bounds{Min: 0, Max: 113}
}

// Rule is a range check on one field, addressed by object keys.
type Rule struct {
	Check    string
	Keys     []string
	Bounds   Bounds
	Optional bool
}

func temperatureRules(units string) []Rule {
	b := TemperatureBounds(units)
	return []Rule{
		{Check: "temperature", Keys: []string{"main", "temp"}, Bounds: b},
		{Check: "temperature", Keys: []string{"main", "feels_like"}, Bounds: b},
		{Check: "temperature", Keys: []string{"main", "temp_min"}, Bounds: b},
		{Check: "temperature", Keys: []string{"main", "temp_max"}, Bounds: b},
	}
}

var (
	percent   = Bounds{Min: 0, Max: 100}
	pressure  = Bounds{Min: 870, Max: 1085}
	degrees   = Bounds{Min: 0, Max: 360}
	latitude  = Bounds{Min: -90, Max: 90}
	longitude = Bounds{Min: -180, Max: 180}
)

func atmosphereRules(units string) []Rule {
	rules := temperatureRules(units)
	return append(rules,
		Rule{Check: "pressure", Keys: []string{"main", "pressure"}, Bounds: pressure},
		Rule{Check: "pressure", Keys: []string{"main", "sea_level"}, Bounds: pressure, Optional: true},
		Rule{Check: "pressure", Keys: []string{"main", "grnd_level"}, Bounds: Bounds{Min: 300, Max: 1100}, Optional: true},
		Rule{Check: "humidity", Keys: []string{"main", "humidity"}, Bounds: percent},
		Rule{Check: "cloudiness", Keys: []string{"clouds", "all"}, Bounds: percent},
		Rule{Check: "wind_speed", Keys: []string{"wind", "speed"}, Bounds: windSpeedBounds(units)},
		Rule{Check: "wind_speed", Keys: []string{"wind", "gust"}, Bounds: windSpeedBounds(units), Optional: true},
		Rule{Check: "wind_direction", Keys: []string{"wind", "deg"}, Bounds: degrees},
		Rule{Check: "visibility", Keys: []string{"visibility"}, Bounds: Bounds{Min: 0, Max: 10000}},
	)
}

// CurrentWeatherRules returns the range checks for a current-weather body.
func CurrentWeatherRules(units string) []Rule {
	return append(atmosphereRules(units),
		Rule{Check: "latitude", Keys: []string{"coord", "lat"}, Bounds: latitude},
		Rule{Check: "longitude", Keys: []string{"coord", "lon"}, Bounds: longitude},
	)
}

// ForecastItemRules returns the range checks for one entry of a forecast list.
func ForecastItemRules(units string) []Rule {
	return append(atmosphereRules(units),
		Rule{Check: "precipitation_probability", Keys: []string{"pop"}, Bounds: Bounds{Min: 0, Max: 1}},
	)
}

// ForecastRules returns the range checks for the top level of a forecast body.
func ForecastRules() []Rule {
	return []Rule{
		{Check: "latitude", Keys: []string{"city", "coord", "lat"}, Bounds: latitude},
		{Check: "longitude", Keys: []string{"city", "coord", "lon"}, Bounds: longitude},
	}
}

// Plausible applies rules to doc. prefix is the keypath of doc in the body.
func Plausible(doc document.Value, prefix string, rules []Rule) []*Failure {
	var out []*Failure
	for _, r := range rules {
		path := prefix + "." + strings.Join(r.Keys, ".")
		v, err := document.Lookup(doc, r.Keys...)
		if err != nil {
			if r.Optional && errors.Is(err, document.ErrMissingKey) {
				continue
			}
			out = append(out, failed(r.Check, path, "value in "+r.Bounds.String(), err.Error()))
			continue
		}
		if r.Optional {
			if _, isNull := v.(document.Null); isNull {
				continue
			}
		}
		f, err := document.AsFloat(v)
		if err != nil {
			out = append(out, failed(r.Check, path, "value in "+r.Bounds.String(), document.Describe(v)))
			continue
		}
		if fail := Range(r.Check, path, f, r.Bounds); fail != nil {
			out = append(out, fail)
		}
	}
	return out
}

// CurrentWeather range-checks a current-weather body.
func CurrentWeather(doc document.Value, units string) []*Failure {
	return Plausible(doc, "$", CurrentWeatherRules(units))
}

// Forecast range-checks a forecast body, every list entry included.
func Forecast(doc document.Value, units string) []*Failure {
	out := Plausible(doc, "$", ForecastRules())

	listValue, err := document.Lookup(doc, "list")
	if err != nil {
		return out
	}
	list, err := document.AsArray(listValue)
	if err != nil {
		return out
	}
	rules := ForecastItemRules(units)
	for i, item := range list {
		out = append(out, Plausible(item, fmt.Sprintf("$.list[%d]", i), rules)...)
	}
	return out
}
