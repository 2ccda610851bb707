package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultWeatherBaseURL is the wttr.in endpoint serving JSON conditions.
	DefaultWeatherBaseURL = "https://wttr.in"
	// DefaultWeatherTimeout is the HTTP timeout for weather lookups.
	DefaultWeatherTimeout = 15 * time.Second
)

// WeatherLookup implements the getCurrentWeather capability against the
// wttr.in JSON API.
type WeatherLookup struct {
	baseURL    string
	httpClient *http.Client
}

// NewWeatherLookup creates a weather capability with default settings.
func NewWeatherLookup() *WeatherLookup {
	return NewWeatherLookupWithConfig(DefaultWeatherBaseURL, DefaultWeatherTimeout)
}

// NewWeatherLookupWithConfig creates a weather capability with a custom
// endpoint and timeout.
func NewWeatherLookupWithConfig(baseURL string, timeout time.Duration) *WeatherLookup {
	return &WeatherLookup{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// wttrResponse is the subset of wttr.in's ?format=j1 payload this
// capability reports on.
type wttrResponse struct {
	CurrentCondition []struct {
		TempC         string `json:"temp_C"`
		FeelsLikeC    string `json:"FeelsLikeC"`
		Humidity      string `json:"humidity"`
		WindspeedKmph string `json:"windspeedKmph"`
		WeatherDesc   []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
}

// Invoke implements Invoker.
// Arguments: city (string, required).
func (w *WeatherLookup) Invoke(ctx context.Context, args map[string]any, _ Invocation) (Result, error) {
	city, ok := args["city"].(string)
	city = strings.TrimSpace(city)
	if !ok || city == "" {
		return nil, errors.New("missing required parameter: city (string)")
	}

	endpoint := fmt.Sprintf("%s/%s?format=j1", w.baseURL, url.PathEscape(city))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather lookup for %q failed: %w", city, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather service error for %q (status %d)", city, resp.StatusCode)
	}

	var wttr wttrResponse
	if err := json.Unmarshal(body, &wttr); err != nil {
		return nil, fmt.Errorf("parse weather response: %w", err)
	}
	if len(wttr.CurrentCondition) == 0 {
		return nil, fmt.Errorf("no current conditions reported for %q", city)
	}

	current := wttr.CurrentCondition[0]
	condition := ""
	if len(current.WeatherDesc) > 0 {
		condition = current.WeatherDesc[0].Value
	}

	return Result{
		"city":          city,
		"temperature_c": current.TempC,
		"feels_like_c":  current.FeelsLikeC,
		"humidity":      current.Humidity,
		"wind_kmph":     current.WindspeedKmph,
		"condition":     condition,
	}, nil
}
