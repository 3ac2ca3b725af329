package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/manualmate/orchestrator/internal/cache"
)

// Default endpoints for the third-party data providers.
const (
	DefaultWeatherURL  = "https://api.open-meteo.com"
	DefaultChargingURL = "https://api.openchargemap.io"
)

// RemoteConfig configures the tools that call third-party APIs.
type RemoteConfig struct {
	Cache            *cache.Cache
	Timeout          time.Duration
	WeatherURL       string
	ChargingURL      string
	OpenChargeAPIKey string
}

// remoteTools holds the shared HTTP client and cache for the network tools.
type remoteTools struct {
	cache       *cache.Cache
	httpClient  *http.Client
	weatherURL  string
	chargingURL string
	chargeKey   string
}

// Fixed coordinates for supported EU cities. Unknown cities fall back to
// Zurich.
var cityCoordinates = map[string][2]float64{
	"berlin":    {52.52, 13.41},
	"paris":     {48.85, 2.35},
	"london":    {51.51, -0.13},
	"rome":      {41.89, 12.48},
	"madrid":    {40.42, -3.70},
	"vienna":    {48.21, 16.37},
	"amsterdam": {52.37, 4.89},
	"brussels":  {50.85, 4.35},
	"munich":    {48.14, 11.58},
	"frankfurt": {50.11, 8.68},
	"zurich":    {47.37, 8.54},
	"geneva":    {46.21, 6.14},
	"bern":      {46.95, 7.45},
	"basel":     {47.56, 7.59},
	"lausanne":  {46.52, 6.63},
}

var weatherCodes = map[int]string{
	0: "Clear sky",
	1: "Mainly clear", 2: "Partly cloudy", 3: "Overcast",
	45: "Fog", 48: "Depositing rime fog",
	51: "Light drizzle", 53: "Moderate drizzle", 55: "Dense drizzle",
	61: "Slight rain", 63: "Moderate rain", 65: "Heavy rain",
	71: "Slight snow", 73: "Moderate snow", 75: "Heavy snow",
	95: "Thunderstorm", 96: "Thunderstorm with slight hail", 99: "Thunderstorm with heavy hail",
}

// RegisterRemoteTools registers the tools backed by third-party APIs. Both
// consult the response cache before the network and convert network failures
// into a degraded-service string: a single tool failure never aborts a turn.
func RegisterRemoteTools(r *Registry, cfg RemoteConfig) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rt := &remoteTools{
		cache:       cfg.Cache,
		httpClient:  &http.Client{Timeout: timeout},
		weatherURL:  cfg.WeatherURL,
		chargingURL: cfg.ChargingURL,
		chargeKey:   cfg.OpenChargeAPIKey,
	}
	if rt.weatherURL == "" {
		rt.weatherURL = DefaultWeatherURL
	}
	if rt.chargingURL == "" {
		rt.chargingURL = DefaultChargingURL
	}

	r.MustRegister(Tool{
		Name:        "getWeatherAtLocation",
		Description: "Check real-time weather in a city",
		Schema: Schema{
			Properties: map[string]Param{
				"city": {Type: "string", Description: "City name (e.g., Berlin, Paris, London, Rome)"},
			},
			Required: []string{"city"},
		},
		Handler: rt.weather,
	})

	r.MustRegister(Tool{
		Name:        "getChargingStatus",
		Description: "Check real-time charging status of a station",
		Schema: Schema{
			Properties: map[string]Param{
				"stationId": {Type: "string", Description: "OpenChargeMap station ID"},
			},
			Required: []string{"stationId"},
		},
		Handler: rt.charging,
	})
}

type weatherCurrent struct {
	Time             string  `json:"time"`
	Temperature      float64 `json:"temperature_2m"`
	WeatherCode      int     `json:"weather_code"`
	WindSpeed        float64 `json:"wind_speed_10m"`
	RelativeHumidity float64 `json:"relative_humidity_2m"`
}

type weatherResponse struct {
	Current *weatherCurrent `json:"current"`
}

func (rt *remoteTools) weather(ctx context.Context, args map[string]string) (string, error) {
	city := args["city"]
	normalized := strings.ToLower(strings.TrimSpace(city))

	if cached, ok := rt.cache.Get(normalized); ok {
		log.Printf("using cached weather data for %s", city)
		return cached, nil
	}

	coords, known := cityCoordinates[normalized]
	displayCity := city
	if !known {
		coords = cityCoordinates["zurich"]
		displayCity = city + " (using Zurich as fallback)"
	}

	endpoint := fmt.Sprintf("%s/v1/forecast?latitude=%.2f&longitude=%.2f&current=temperature_2m,weather_code,wind_speed_10m,relative_humidity_2m&timezone=auto",
		strings.TrimSuffix(rt.weatherURL, "/"), coords[0], coords[1])

	var result weatherResponse
	if err := rt.getJSON(ctx, endpoint, &result); err != nil || result.Current == nil {
		if err == nil {
			err = fmt.Errorf("invalid response from weather API")
		}
		log.Printf("ERROR: fetching weather: %v", err)
		// Errors are never cached so the next identical request retries.
		return fmt.Sprintf("🌤️ Unable to retrieve weather information for %s. Please try again later.", city), nil
	}

	condition, ok := weatherCodes[result.Current.WeatherCode]
	if !ok {
		condition = fmt.Sprintf("Unknown (code: %d)", result.Current.WeatherCode)
	}

	info := fmt.Sprintf(`🌤️ Weather in %s:
- Temperature: %.1f°C
- Windspeed: %.1f km/h
- Humidity: %.0f%%
- Condition: %s`,
		displayCity, result.Current.Temperature, result.Current.WindSpeed,
		result.Current.RelativeHumidity, condition)

	rt.cache.Set(normalized, info)
	return info, nil
}

type chargingStation struct {
	AddressInfo struct {
		Title        string `json:"Title"`
		AddressLine1 string `json:"AddressLine1"`
		Town         string `json:"Town"`
	} `json:"AddressInfo"`
	StatusType *struct {
		Title string `json:"Title"`
	} `json:"StatusType"`
	Connections []struct {
		ConnectionType struct {
			Title string `json:"Title"`
		} `json:"ConnectionType"`
	} `json:"Connections"`
}

func (rt *remoteTools) charging(ctx context.Context, args map[string]string) (string, error) {
	stationID := strings.TrimSpace(args["stationId"])

	if cached, ok := rt.cache.Get(stationID); ok {
		log.Printf("using cached charging data for station %s", stationID)
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/v3/poi/?output=json&chargepointid=%s&key=%s",
		strings.TrimSuffix(rt.chargingURL, "/"), url.QueryEscape(stationID), url.QueryEscape(rt.chargeKey))

	var stations []chargingStation
	if err := rt.getJSON(ctx, endpoint, &stations); err != nil {
		log.Printf("ERROR: fetching charging station: %v", err)
		return "⚡ Unable to retrieve charging station information. Please try again later.", nil
	}

	if len(stations) == 0 {
		notFound := fmt.Sprintf("⚡ Station ID %s not found in the database.", stationID)
		// A definitive not-found answer is cacheable; only errors are not.
		rt.cache.Set(stationID, notFound)
		return notFound, nil
	}

	station := stations[0]
	status := "Unknown"
	if station.StatusType != nil {
		status = station.StatusType.Title
	}
	plugs := make([]string, 0, len(station.Connections))
	for _, c := range station.Connections {
		plugs = append(plugs, c.ConnectionType.Title)
	}
	plugList := "Unknown"
	if len(plugs) > 0 {
		plugList = strings.Join(plugs, ", ")
	}

	info := fmt.Sprintf(`⚡ Charging Station "%s":
- Address: %s, %s
- Status: %s
- Plugs: %s`,
		station.AddressInfo.Title, station.AddressInfo.AddressLine1,
		station.AddressInfo.Town, status, plugList)

	rt.cache.Set(stationID, info)
	return info, nil
}

func (rt *remoteTools) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := rt.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error [%d]: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
