// Package weather provides the current-temperature lookup used for the
// daily water goal, backed by the OpenWeatherMap API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "http://api.openweathermap.org/data/2.5/weather"

// Error variables surfaced to callers. ErrUnauthorized indicates a
// credential problem rather than a bad user input and is reported
// distinctly at the command boundary.
var (
	ErrUnauthorized = errors.New("weather: API key rejected")
	ErrLookup       = errors.New("weather: lookup failed")
)

// Client fetches current temperatures from OpenWeatherMap.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client with the default OpenWeatherMap URL.
func NewClient(apiKey string) *Client {
	return NewClientWithURL(defaultBaseURL, apiKey)
}

// NewClientWithURL creates a Client with a custom base URL (for testing or
// configuration overrides). An empty baseURL selects the default.
func NewClientWithURL(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// apiResponse covers the part of the OpenWeatherMap payload we consume.
type apiResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

// CurrentTemperature returns the current temperature in Celsius for a city.
func (c *Client) CurrentTemperature(ctx context.Context, city string) (float64, error) {
	reqURL := fmt.Sprintf("%s?q=%s&appid=%s&units=metric", c.baseURL, url.QueryEscape(city), url.QueryEscape(c.apiKey))

	slog.Debug("Weather lookup", "city", city)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("weather: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Weather request failed", "error", err, "city", city)
		return 0, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		slog.Error("Weather API key rejected", "city", city)
		return 0, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("Weather unexpected status", "status", resp.StatusCode, "city", city)
		return 0, fmt.Errorf("%w: unexpected status %d", ErrLookup, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		slog.Error("Weather decode failed", "error", err, "city", city)
		return 0, fmt.Errorf("%w: decode response: %v", ErrLookup, err)
	}

	slog.Debug("Weather lookup succeeded", "city", city, "temp_c", body.Main.Temp)
	return body.Main.Temp, nil
}
