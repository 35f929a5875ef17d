package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"immograph/utils"
)

const userAgent = "immograph-ingest/1.0"

// Result is the top match returned by the geocoding provider.
type Result struct {
	PlaceID string
	Lat     float64
	Lon     float64
}

// Client queries the Nominatim HTTP API. Requests are serialized
// through a rate gate to respect the provider's usage policy and carry
// an identifying User-Agent plus contact email.
type Client struct {
	baseURL string
	email   string
	http    *http.Client
	gate    *utils.RateGate
	retry   *utils.RetryConfig
}

// NewClient builds a Client. timeout bounds each request; minInterval
// spaces consecutive requests.
func NewClient(baseURL, email string, timeout, minInterval time.Duration, maxRetries int, logger *utils.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		email:   email,
		http:    &http.Client{Timeout: timeout},
		gate:    utils.NewRateGate(minInterval),
		retry:   &utils.RetryConfig{MaxAttempts: maxRetries, BaseDelay: 500 * time.Millisecond, Logger: logger},
	}
}

// nominatimPlace mirrors the fields we consume from the jsonv2 format.
// Nominatim serializes coordinates as strings and osm_id as a number.
type nominatimPlace struct {
	OsmID json.Number `json:"osm_id"`
	Lat   string      `json:"lat"`
	Lon   string      `json:"lon"`
}

// Search resolves a free-text address to its single top match. A nil
// result with a nil error means the provider found nothing.
func (c *Client) Search(ctx context.Context, query string) (*Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	if c.email != "" {
		params.Set("email", c.email)
	}

	var places []nominatimPlace
	if err := c.get(ctx, "/search", params, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, nil
	}
	return places[0].toResult()
}

// Reverse resolves coordinates to the containing place.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Result, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "jsonv2")
	if c.email != "" {
		params.Set("email", c.email)
	}

	var place nominatimPlace
	if err := c.get(ctx, "/reverse", params, &place); err != nil {
		return nil, err
	}
	if place.OsmID == "" {
		return nil, nil
	}
	return place.toResult()
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + params.Encode()

	return c.retry.Do("geocode "+path, func() error {
		c.gate.Wait()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("geocode: build request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("geocode: request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("geocode: unexpected status %d from %s", resp.StatusCode, path)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("geocode: decode response: %w", err)
		}
		return nil
	})
}

func (p nominatimPlace) toResult() (*Result, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode: bad latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode: bad longitude %q: %w", p.Lon, err)
	}
	return &Result{PlaceID: p.OsmID.String(), Lat: lat, Lon: lon}, nil
}
