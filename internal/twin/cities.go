package twin

import (
	"math"
	"strings"
)

type city struct {
	ID       int
	Name     string
	Country  string
	Lat      float64
	Lon      float64
	Timezone int
	// Population is omitted from responses when zero.
	Population int
	// TempC is the air temperature the twin reports now, in Celsius.
	TempC float64
}

var cities = []city{
	{ID: 2759794, Name: "Amsterdam", Country: "NL", Lat: 52.374, Lon: 4.8897, Timezone: 7200, Population: 2122311, TempC: 14.56},
	{ID: 2643743, Name: "London", Country: "GB", Lat: 51.5085, Lon: -0.1257, Timezone: 3600, Population: 1000000, TempC: 12.3},
	{ID: 2950159, Name: "Berlin", Country: "DE", Lat: 52.5244, Lon: 13.4105, Timezone: 7200, Population: 1000000, TempC: 11.8},
	{ID: 524901, Name: "Moscow", Country: "RU", Lat: 55.7522, Lon: 37.6156, Timezone: 10800, Population: 1000000, TempC: 6},
	{ID: 1850147, Name: "Tokyo", Country: "JP", Lat: 35.6895, Lon: 139.6917, Timezone: 32400, TempC: 19.4},
}

// findCity matches "Name" or "Name,CC" ignoring case.
func findCity(q string) (city, bool) {
	name := strings.TrimSpace(strings.SplitN(q, ",", 2)[0])
	for _, c := range cities {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return city{}, false
}

// nearestCity returns the fixture closest to a coordinate pair.
func nearestCity(lat, lon float64) city {
	best := cities[0]
	bestDist := math.Inf(1)
	for _, c := range cities {
		d := (c.Lat-lat)*(c.Lat-lat) + (c.Lon-lon)*(c.Lon-lon)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// temperature converts Celsius into the unit system of the request.
func temperature(celsius float64, units string) float64 {
	switch units {
	case "metric":
		return round2(celsius)
	case "imperial":
		return round2(celsius*9/5 + 32)
	}
	return round2(celsius + 273.15)
}

// windSpeed converts metres per second into the unit system of the request.
func windSpeed(ms float64, units string) float64 {
	if units == "imperial" {
		return round2(ms * 2.23694)
	}
	return round2(ms)
}
