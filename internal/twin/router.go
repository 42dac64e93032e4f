// Package twin is an in-process stand-in for the weather service. It answers
// the current-weather and forecast endpoints with deterministic bodies that
// follow the published contract, and reproduces the service's error responses.
package twin

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// BasePath is where the versioned API is mounted.
const BasePath = "/data/2.5"

// Config controls twin behavior.
type Config struct {
	// APIKeys lists the accepted appid values.
	APIKeys []string
	// Delay is added before every response.
	Delay time.Duration
	// Now fixes the clock; nil uses time.Now.
	Now func() time.Time
}

// Handler holds twin state.
type Handler struct {
	keys  map[string]bool
	delay time.Duration
	now   func() time.Time
}

// NewHandler creates a new twin handler.
func NewHandler(cfg Config) *Handler {
	keys := make(map[string]bool, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		keys[k] = true
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{keys: keys, delay: cfg.Delay, now: now}
}

// Routes mounts the service-compatible routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route(BasePath, func(r chi.Router) {
		r.Get("/weather", h.CurrentWeather)
		r.Get("/forecast", h.Forecast)
	})
}

// NewRouter returns a ready-to-serve twin.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	NewHandler(cfg).Routes(r)
	return r
}

type errorBody struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// The service renders 401 with a numeric cod and every other error as a string.
func writeError(w http.ResponseWriter, status int, message string) {
	var cod any = strconv.Itoa(status)
	if status == http.StatusUnauthorized {
		cod = status
	}
	writeJSON(w, status, errorBody{Cod: cod, Message: message})
}

type query struct {
	city  city
	units string
	lang  string
}

// resolve applies the service's checks in its order: credential, location
// parameters, then lookup. It writes the error response itself and returns
// ok=false when the request cannot be served.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (query, bool) {
	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-r.Context().Done():
			return query{}, false
		}
	}

	v := r.URL.Query()
	if !h.keys[v.Get("appid")] {
		writeError(w, http.StatusUnauthorized,
			"Invalid API key. Please see https://openweathermap.org/faq#error401 for more info.")
		return query{}, false
	}

	q := query{units: v.Get("units"), lang: v.Get("lang")}
	if q.units == "" {
		q.units = "standard"
	}

	switch {
	case v.Has("lat") || v.Has("lon"):
		lat, err := strconv.ParseFloat(v.Get("lat"), 64)
		if err != nil || lat < -90 || lat > 90 {
			writeError(w, http.StatusBadRequest, "wrong latitude")
			return query{}, false
		}
		lon, err := strconv.ParseFloat(v.Get("lon"), 64)
		if err != nil || lon < -180 || lon > 180 {
			writeError(w, http.StatusBadRequest, "wrong longitude")
			return query{}, false
		}
		q.city = nearestCity(lat, lon)
	case v.Get("q") == "":
		writeError(w, http.StatusBadRequest, "Nothing to geocode")
		return query{}, false
	default:
		c, ok := findCity(v.Get("q"))
		if !ok {
			writeError(w, http.StatusNotFound, "city not found")
			return query{}, false
		}
		q.city = c
	}
	return q, true
}

type coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type mainBlock struct {
	Temp      float64  `json:"temp"`
	FeelsLike float64  `json:"feels_like"`
	TempMin   float64  `json:"temp_min"`
	TempMax   float64  `json:"temp_max"`
	Pressure  int      `json:"pressure"`
	Humidity  int      `json:"humidity"`
	SeaLevel  int      `json:"sea_level"`
	GrndLevel int      `json:"grnd_level"`
	TempKf    *float64 `json:"temp_kf,omitempty"`
}

type wind struct {
	Speed float64 `json:"speed"`
	Deg   int     `json:"deg"`
	Gust  float64 `json:"gust,omitempty"`
}

type clouds struct {
	All int `json:"all"`
}

type currentSys struct {
	Type    int    `json:"type"`
	ID      int    `json:"id"`
	Country string `json:"country"`
	Sunrise int64  `json:"sunrise"`
	Sunset  int64  `json:"sunset"`
}

type currentWeather struct {
	Coord      coord       `json:"coord"`
	Weather    []condition `json:"weather"`
	Base       string      `json:"base"`
	Main       mainBlock   `json:"main"`
	Visibility int         `json:"visibility"`
	Wind       wind        `json:"wind"`
	Clouds     clouds      `json:"clouds"`
	Dt         int64       `json:"dt"`
	Sys        currentSys  `json:"sys"`
	Timezone   int         `json:"timezone"`
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Cod        int         `json:"cod"`
}

func sunTimes(now time.Time, tz int) (int64, int64) {
	loc := time.FixedZone("", tz)
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return day.Add(7 * time.Hour).Unix(), day.Add(19 * time.Hour).Unix()
}

func conditionFor(clouds int) condition {
	switch {
	case clouds >= 85:
		return condition{ID: 804, Main: "Clouds", Description: "overcast clouds", Icon: "04d"}
	case clouds >= 50:
		return condition{ID: 803, Main: "Clouds", Description: "broken clouds", Icon: "04d"}
	case clouds >= 11:
		return condition{ID: 801, Main: "Clouds", Description: "few clouds", Icon: "02d"}
	}
	return condition{ID: 800, Main: "Clear", Description: "clear sky", Icon: "01d"}
}

// CurrentWeather handles GET /data/2.5/weather.
func (h *Handler) CurrentWeather(w http.ResponseWriter, r *http.Request) {
	q, ok := h.resolve(w, r)
	if !ok {
		return
	}
	now := h.now().UTC()
	sunrise, sunset := sunTimes(now, q.city.Timezone)
	c := q.city

	writeJSON(w, http.StatusOK, currentWeather{
		Coord:   coord{Lon: c.Lon, Lat: c.Lat},
		Weather: []condition{conditionFor(75)},
		Base:    "stations",
		Main: mainBlock{
			Temp:      temperature(c.TempC, q.units),
			FeelsLike: temperature(c.TempC-0.7, q.units),
			TempMin:   temperature(c.TempC-1.2, q.units),
			TempMax:   temperature(c.TempC+1, q.units),
			Pressure:  1016,
			Humidity:  72,
			SeaLevel:  1016,
			GrndLevel: 1015,
		},
		Visibility: 10000,
		Wind:       wind{Speed: windSpeed(5.66, q.units), Deg: 240, Gust: windSpeed(8.23, q.units)},
		Clouds:     clouds{All: 75},
		Dt:         now.Unix(),
		Sys:        currentSys{Type: 2, ID: 2046553, Country: c.Country, Sunrise: sunrise, Sunset: sunset},
		Timezone:   c.Timezone,
		ID:         c.ID,
		Name:       c.Name,
		Cod:        http.StatusOK,
	})
}

type volume struct {
	ThreeHours float64 `json:"3h"`
}

type itemSys struct {
	Pod string `json:"pod"`
}

type forecastItem struct {
	Dt         int64       `json:"dt"`
	Main       mainBlock   `json:"main"`
	Weather    []condition `json:"weather"`
	Clouds     clouds      `json:"clouds"`
	Wind       wind        `json:"wind"`
	Visibility int         `json:"visibility"`
	Pop        float64     `json:"pop"`
	Rain       *volume     `json:"rain,omitempty"`
	Sys        itemSys     `json:"sys"`
	DtTxt      string      `json:"dt_txt"`
}

type forecastCity struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Coord      coord  `json:"coord"`
	Country    string `json:"country"`
	Population int    `json:"population,omitempty"`
	Timezone   int    `json:"timezone"`
	Sunrise    int64  `json:"sunrise"`
	Sunset     int64  `json:"sunset"`
}

type forecastBody struct {
	Cod     string         `json:"cod"`
	Message int            `json:"message"`
	Cnt     int            `json:"cnt"`
	List    []forecastItem `json:"list"`
	City    forecastCity   `json:"city"`
}

// Steps is the number of 3-hour entries in a forecast.
const Steps = 40

// Forecast handles GET /data/2.5/forecast.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	q, ok := h.resolve(w, r)
	if !ok {
		return
	}
	now := h.now().UTC()
	start := now.Truncate(3 * time.Hour).Add(3 * time.Hour)
	sunrise, sunset := sunTimes(now, q.city.Timezone)
	c := q.city

	list := make([]forecastItem, Steps)
	for i := range list {
		at := start.Add(time.Duration(i) * 3 * time.Hour)
		swing := 3 * math.Sin(float64(i)*math.Pi/4)
		cloudCover := (i * 23) % 101
		pop := round2(float64(i%5) / 4)
		kf := round2(swing / 10)

		local := at.Add(time.Duration(c.Timezone) * time.Second)
		pod := "n"
		if local.Hour() >= 6 && local.Hour() < 18 {
			pod = "d"
		}

		item := forecastItem{
			Dt: at.Unix(),
			Main: mainBlock{
				Temp:      temperature(c.TempC+swing, q.units),
				FeelsLike: temperature(c.TempC+swing-0.8, q.units),
				TempMin:   temperature(c.TempC+swing-0.5, q.units),
				TempMax:   temperature(c.TempC+swing, q.units),
				Pressure:  1010 + i%9,
				Humidity:  60 + (i*7)%35,
				SeaLevel:  1010 + i%9,
				GrndLevel: 1006 + i%9,
				TempKf:    &kf,
			},
			Weather:    []condition{conditionFor(cloudCover)},
			Clouds:     clouds{All: cloudCover},
			Wind:       wind{Speed: windSpeed(2+float64(i%6)*0.75, q.units), Deg: (i * 37) % 361},
			Visibility: 10000,
			Pop:        pop,
			Sys:        itemSys{Pod: pod},
			DtTxt:      at.Format("2006-01-02 15:04:05"),
		}
		if pop >= 0.5 {
			item.Rain = &volume{ThreeHours: round2(pop * 1.2)}
		}
		list[i] = item
	}

	writeJSON(w, http.StatusOK, forecastBody{
		Cod:     strconv.Itoa(http.StatusOK),
		Message: 0,
		Cnt:     len(list),
		List:    list,
		City: forecastCity{
			ID:         c.ID,
			Name:       c.Name,
			Coord:      coord{Lat: c.Lat, Lon: c.Lon},
			Country:    c.Country,
			Population: c.Population,
			Timezone:   c.Timezone,
			Sunrise:    sunrise,
			Sunset:     sunset,
		},
	})
}

// Describe returns a one-line summary for startup logs.
func Describe(addr string) string {
	return fmt.Sprintf("weather twin listening on %s%s", addr, BasePath)
}
