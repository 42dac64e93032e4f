package schema

import (
	"errors"
	"fmt"
	"sort"

	"weather-contract-tester/internal/document"
)

// Shape names.
const (
	ShapeCurrent  = "current_weather"
	ShapeForecast = "forecast"
)

// ErrUnknownShape is returned by Lookup for names the registry does not hold.
var ErrUnknownShape = errors.New("unknown shape")

// Registry holds the root contract of every response shape. It is never
// modified after construction and is safe for concurrent reads.
type Registry struct {
	shapes map[string]Node
}

// NewRegistry builds the contracts pinned to the 2.5 API of the weather service.
func NewRegistry() *Registry {
	return &Registry{
		shapes: map[string]Node{
			ShapeCurrent:  currentWeather(),
			ShapeForecast: forecast(),
		},
	}
}

// Lookup returns the root contract for a shape.
func (r *Registry) Lookup(name string) (Node, error) {
	n, ok := r.shapes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, name)
	}
	return n, nil
}

// Names returns the registered shape names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.shapes))
	for name := range r.shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs Check on every registered shape.
func (r *Registry) Check() error {
	var errs []error
	for _, name := range r.Names() {
		if err := Check(r.shapes[name]); err != nil {
			errs = append(errs, fmt.Errorf("shape %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func emptyObject() document.Value { return document.NewObject() }

func weatherCondition() *Object {
	return Obj(
		Req("id", Integer()),
		Req("main", String()),
		Req("description", String()),
		Req("icon", String()),
	)
}

func precipitation(window string) *Object {
	return Obj(Opt(window, Number()))
}

func currentWeather() *Object {
	return Obj(
		Req("coord", Obj(
			Req("lon", Number()),
			Req("lat", Number()),
		)),
		Req("weather", ArrayOf(weatherCondition(), 1)),
		Req("base", String()),
		Req("main", Obj(
			Req("temp", Number()),
			Req("feels_like", Number()),
			Req("temp_min", Number()),
			Req("temp_max", Number()),
			Req("pressure", Integer()),
			Req("humidity", Integer()),
			OptDefault("sea_level", Integer(), document.Null{}),
			OptDefault("grnd_level", Integer(), document.Null{}),
		)),
		Req("visibility", Integer()),
		Req("wind", Obj(
			Req("speed", Number()),
			Req("deg", Integer()),
			OptDefault("gust", Number(), document.Null{}),
		)),
		OptDefault("rain", precipitation("1h"), emptyObject()),
		OptDefault("snow", precipitation("1h"), emptyObject()),
		Req("clouds", Obj(
			Req("all", Integer()),
		)),
		Req("dt", Integer()),
		Req("sys", Obj(
			Opt("type", Integer()),
			Opt("id", Integer()),
			Req("country", String()),
			Req("sunrise", Integer()),
			Req("sunset", Integer()),
		)),
		Req("timezone", Integer()),
		Req("id", Integer()),
		Req("name", String()),
		Req("cod", Either(Integer(), String())),
	)
}

func forecastItem() *Object {
	return Obj(
		Req("dt", Integer()),
		Req("main", Obj(
			Req("temp", Number()),
			Req("feels_like", Number()),
			Req("temp_min", Number()),
			Req("temp_max", Number()),
			Req("pressure", Integer()),
			Opt("sea_level", Integer()),
			Opt("grnd_level", Integer()),
			Req("humidity", Integer()),
			Req("temp_kf", Number()),
		)),
		Req("weather", ArrayOf(weatherCondition(), 1)),
		Req("clouds", Obj(
			Req("all", Integer()),
		)),
		Req("wind", Obj(
			Req("speed", Number()),
			Req("deg", Integer()),
			Opt("gust", Number()),
		)),
		Req("visibility", Integer()),
		Req("pop", Number()),
		OptDefault("rain", precipitation("3h"), emptyObject()),
		OptDefault("snow", precipitation("3h"), emptyObject()),
		Req("sys", Obj(
			Req("pod", Enum("d", "n")),
		)),
		Req("dt_txt", String()),
	)
}

func forecast() *Object {
	return Obj(
		Req("cod", String()),
		Req("message", Number()),
		Req("cnt", Integer().AtLeast(1)),
		Req("list", ArrayOf(forecastItem(), 1)),
		Req("city", Obj(
			Req("id", Integer()),
			Req("name", String()),
			Req("coord", Obj(
				Req("lat", Number()),
				Req("lon", Number()),
			)),
			Req("country", String()),
			Opt("population", Integer()),
			Req("timezone", Integer()),
			Req("sunrise", Integer()),
			Req("sunset", Integer()),
		)),
	)
}
