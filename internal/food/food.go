// Package food provides the product-calorie lookup used for food logging,
// backed by the OpenFoodFacts search API.
package food

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

const defaultBaseURL = "https://world.openfoodfacts.org/cgi/search.pl"

// unknownProductName is used when the matched product carries no name.
const unknownProductName = "Неизвестно"

// Error variables surfaced to callers.
var (
	ErrProductNotFound = errors.New("food: product not found")
	ErrLookup          = errors.New("food: lookup failed")
)

// Product is the resolved result of a food-name lookup.
type Product struct {
	Name            string  `json:"name"`
	CaloriesPer100g float64 `json:"calories_per_100g"`
}

// Client searches products on OpenFoodFacts.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client with the default OpenFoodFacts URL.
func NewClient() *Client {
	return NewClientWithURL(defaultBaseURL)
}

// NewClientWithURL creates a Client with a custom base URL (for testing or
// configuration overrides). An empty baseURL selects the default.
func NewClientWithURL(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// searchResponse covers the part of the OpenFoodFacts payload we consume.
type searchResponse struct {
	Products []struct {
		ProductName string `json:"product_name"`
		Nutriments  struct {
			EnergyKcal100g float64 `json:"energy-kcal_100g"`
		} `json:"nutriments"`
	} `json:"products"`
}

// Search resolves a free-text food query to the first matching product.
// Returns ErrProductNotFound when the database has no match.
func (c *Client) Search(ctx context.Context, query string) (*Product, error) {
	reqURL := fmt.Sprintf("%s?action=process&search_terms=%s&json=true", c.baseURL, url.QueryEscape(query))

	slog.Debug("Food lookup", "query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("food: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Food request failed", "error", err, "query", query)
		return nil, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("Food unexpected status", "status", resp.StatusCode, "query", query)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrLookup, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		slog.Error("Food decode failed", "error", err, "query", query)
		return nil, fmt.Errorf("%w: decode response: %v", ErrLookup, err)
	}

	if len(body.Products) == 0 {
		slog.Debug("Food lookup no match", "query", query)
		return nil, ErrProductNotFound
	}

	first := body.Products[0]
	name := first.ProductName
	if name == "" {
		name = unknownProductName
	}

	product := &Product{Name: name, CaloriesPer100g: first.Nutriments.EnergyKcal100g}
	slog.Debug("Food lookup succeeded", "query", query, "name", product.Name, "kcal_per_100g", product.CaloriesPer100g)
	return product, nil
}
