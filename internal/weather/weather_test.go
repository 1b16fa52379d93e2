package weather

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rburns/chorepoint/internal/apperr"
)

func TestIsInclement(t *testing.T) {
	tests := []struct {
		code       int
		precipProb int
		want       bool
	}{
		{0, 0, false},
		{2, 10, false},
		{3, 49, false},
		{0, 50, true},   // clear code but likely rain
		{51, 0, true},   // drizzle
		{65, 0, true},   // heavy rain
		{71, 0, true},   // snow
		{82, 0, true},   // violent showers
		{95, 0, true},   // thunderstorm
		{99, 0, true},   // thunderstorm with hail
		{45, 20, false}, // fog alone is fine
	}
	for _, tt := range tests {
		if got := IsInclement(tt.code, tt.precipProb); got != tt.want {
			t.Errorf("IsInclement(%d, %d) = %v, want %v", tt.code, tt.precipProb, got, tt.want)
		}
	}
}

func TestDescribeCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Clear sky"},
		{45, "Foggy"},
		{63, "Moderate rain"},
		{95, "Thunderstorm"},
		{999, "Unknown"},
	}
	for _, tt := range tests {
		if got := DescribeCode(tt.code); got != tt.want {
			t.Errorf("DescribeCode(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestGetForecast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"current": map[string]any{"temperature_2m": 41.0, "weather_code": 61},
			"daily": map[string]any{
				"temperature_2m_max":            []float64{45.0},
				"temperature_2m_min":            []float64{33.0},
				"precipitation_probability_max": []int{80},
				"weather_code":                  []int{61},
			},
		})
	}))
	defer server.Close()

	svc := NewService(Config{Latitude: "47.6", Longitude: "-122.3"})
	svc.baseURL = server.URL

	f, err := svc.GetForecast()
	if err != nil {
		t.Fatalf("get forecast: %v", err)
	}
	if f.CurrentTemp != 41.0 {
		t.Errorf("current temp = %v, want 41.0", f.CurrentTemp)
	}
	if f.Description != "Slight rain" {
		t.Errorf("description = %q, want Slight rain", f.Description)
	}
	if f.HighTemp != 45.0 || f.LowTemp != 33.0 {
		t.Errorf("high/low = %v/%v, want 45/33", f.HighTemp, f.LowTemp)
	}
	if !f.Inclement {
		t.Error("rainy forecast should be inclement")
	}
}

func TestGetForecastServesStaleOnError(t *testing.T) {
	svc := NewService(Config{Latitude: "47.6", Longitude: "-122.3"})
	svc.baseURL = "http://127.0.0.1:1"

	svc.mu.Lock()
	svc.cached = Forecast{CurrentTemp: 70.0, Description: "Clear sky", Unit: "F"}
	svc.hasCache = true
	svc.lastFetch = time.Now().Add(-cacheTTL - time.Minute)
	svc.mu.Unlock()

	f, err := svc.GetForecast()
	if err != nil {
		t.Fatalf("expected stale data, got error: %v", err)
	}
	if f.CurrentTemp != 70.0 {
		t.Errorf("stale temp = %v, want 70.0", f.CurrentTemp)
	}
}

func TestGetForecastUnavailable(t *testing.T) {
	svc := NewService(Config{Latitude: "47.6", Longitude: "-122.3"})
	svc.baseURL = "http://127.0.0.1:1"

	_, err := svc.GetForecast()
	if err == nil {
		t.Fatal("expected error with no cache and unreachable API")
	}
	if apperr.KindOf(err) != apperr.KindUpstreamUnavailable {
		t.Errorf("kind = %v, want upstream_unavailable", apperr.KindOf(err))
	}
}

func TestGetForecastNotConfigured(t *testing.T) {
	svc := NewService(Config{})
	if _, err := svc.GetForecast(); err == nil {
		t.Fatal("expected error when location is not configured")
	}
}

func TestCacheAvoidsRefetch(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{
			"current": map[string]any{"temperature_2m": 70.0, "weather_code": 0},
		})
	}))
	defer server.Close()

	svc := NewService(Config{Latitude: "47.6", Longitude: "-122.3"})
	svc.baseURL = server.URL

	for i := 0; i < 3; i++ {
		if _, err := svc.GetForecast(); err != nil {
			t.Fatalf("get forecast %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("API calls = %d, want 1 (cache should serve repeats)", calls)
	}
}
