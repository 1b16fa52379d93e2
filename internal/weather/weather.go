// Package weather fetches the daily forecast from Open-Meteo and decides
// whether conditions are bad enough to push outdoor chores.
package weather

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rburns/chorepoint/internal/apperr"
)

const cacheTTL = 30 * time.Minute

// Config holds the forecast location, typically from environment variables.
type Config struct {
	Latitude        string
	Longitude       string
	TemperatureUnit string // "fahrenheit" or "celsius"
}

// Forecast is today's outlook, reduced to what chore scheduling needs.
type Forecast struct {
	CurrentTemp float64 `json:"current_temp"`
	CurrentCode int     `json:"current_code"`
	Description string  `json:"description"`
	HighTemp    float64 `json:"high_temp"`
	LowTemp     float64 `json:"low_temp"`
	PrecipProb  int     `json:"precip_probability"`
	Unit        string  `json:"unit"` // "F" or "C"
	Inclement   bool    `json:"inclement"`
}

// Service fetches and caches the forecast. One instance is shared across
// requests; the cache keeps the Open-Meteo call off the hot path.
type Service struct {
	config    Config
	client    *http.Client
	baseURL   string
	mu        sync.RWMutex
	cached    Forecast
	hasCache  bool
	lastFetch time.Time
}

func NewService(cfg Config) *Service {
	if cfg.TemperatureUnit == "" {
		cfg.TemperatureUnit = "fahrenheit"
	}
	return &Service{
		config:  cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://api.open-meteo.com/v1/forecast",
	}
}

// Configured reports whether a forecast location was provided.
func (s *Service) Configured() bool {
	return s.config.Latitude != "" && s.config.Longitude != ""
}

// GetForecast returns today's forecast, refreshing the cache when stale. A
// failed refresh serves the stale forecast rather than nothing; the error is
// only surfaced when there is no cache to fall back on.
func (s *Service) GetForecast() (Forecast, error) {
	if !s.Configured() {
		return Forecast{}, apperr.New(apperr.KindUpstreamUnavailable, "weather location not configured")
	}

	s.mu.RLock()
	if s.hasCache && time.Since(s.lastFetch) < cacheTTL {
		f := s.cached
		s.mu.RUnlock()
		return f, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock.
	if s.hasCache && time.Since(s.lastFetch) < cacheTTL {
		return s.cached, nil
	}

	f, err := s.fetch()
	if err != nil {
		if s.hasCache {
			return s.cached, nil
		}
		return Forecast{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "weather service unavailable", err)
	}

	s.cached = f
	s.hasCache = true
	s.lastFetch = time.Now()
	return f, nil
}

type apiResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		TempMax     []float64 `json:"temperature_2m_max"`
		TempMin     []float64 `json:"temperature_2m_min"`
		PrecipProb  []int     `json:"precipitation_probability_max"`
		WeatherCode []int     `json:"weather_code"`
	} `json:"daily"`
}

func (s *Service) fetch() (Forecast, error) {
	url := fmt.Sprintf(
		"%s?latitude=%s&longitude=%s&current=temperature_2m,weather_code&daily=temperature_2m_max,temperature_2m_min,precipitation_probability_max,weather_code&timezone=auto&forecast_days=1&temperature_unit=%s",
		s.baseURL, s.config.Latitude, s.config.Longitude, s.config.TemperatureUnit,
	)

	resp, err := s.client.Get(url)
	if err != nil {
		return Forecast{}, fmt.Errorf("weather API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Forecast{}, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Forecast{}, fmt.Errorf("decode weather response: %w", err)
	}

	unit := "F"
	if s.config.TemperatureUnit == "celsius" {
		unit = "C"
	}

	f := Forecast{
		CurrentTemp: apiResp.Current.Temperature,
		CurrentCode: apiResp.Current.WeatherCode,
		Description: DescribeCode(apiResp.Current.WeatherCode),
		Unit:        unit,
	}

	dayCode := apiResp.Current.WeatherCode
	if len(apiResp.Daily.WeatherCode) > 0 {
		dayCode = apiResp.Daily.WeatherCode[0]
	}
	if len(apiResp.Daily.TempMax) > 0 {
		f.HighTemp = apiResp.Daily.TempMax[0]
	}
	if len(apiResp.Daily.TempMin) > 0 {
		f.LowTemp = apiResp.Daily.TempMin[0]
	}
	if len(apiResp.Daily.PrecipProb) > 0 {
		f.PrecipProb = apiResp.Daily.PrecipProb[0]
	}
	f.Inclement = IsInclement(dayCode, f.PrecipProb)

	return f, nil
}

// IsInclement decides whether outdoor chores should move. Any precipitation
// or thunderstorm code counts, as does a precipitation probability of 50% or
// more even under a clear code.
func IsInclement(code, precipProb int) bool {
	if precipProb >= 50 {
		return true
	}
	switch {
	case code >= 51 && code <= 67: // drizzle and rain
		return true
	case code >= 71 && code <= 77: // snow
		return true
	case code >= 80 && code <= 86: // showers
		return true
	case code >= 95: // thunderstorms
		return true
	}
	return false
}

// DescribeCode maps a WMO weather code to a short human-readable description.
func DescribeCode(code int) string {
	switch code {
	case 0:
		return "Clear sky"
	case 1:
		return "Mainly clear"
	case 2:
		return "Partly cloudy"
	case 3:
		return "Overcast"
	case 45, 48:
		return "Foggy"
	case 51:
		return "Light drizzle"
	case 53:
		return "Moderate drizzle"
	case 55:
		return "Dense drizzle"
	case 56, 57:
		return "Freezing drizzle"
	case 61:
		return "Slight rain"
	case 63:
		return "Moderate rain"
	case 65:
		return "Heavy rain"
	case 66, 67:
		return "Freezing rain"
	case 71:
		return "Slight snow"
	case 73:
		return "Moderate snow"
	case 75:
		return "Heavy snow"
	case 77:
		return "Snow grains"
	case 80:
		return "Slight showers"
	case 81:
		return "Moderate showers"
	case 82:
		return "Violent showers"
	case 85:
		return "Slight snow showers"
	case 86:
		return "Heavy snow showers"
	case 95:
		return "Thunderstorm"
	case 96, 99:
		return "Thunderstorm with hail"
	default:
		return "Unknown"
	}
}
