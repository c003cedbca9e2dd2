package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/version"
)

// MinAnnualRainfall is the floor applied to the rainfall estimate.
const MinAnnualRainfall = 100.0

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Validate checks the coordinate ranges.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %v", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %v", c.Longitude)
	}
	return nil
}

// Conditions are the current conditions the form needs.
type Conditions struct {
	Temperature      float64 `json:"temperature"`
	Humidity         float64 `json:"humidity"`
	PrecipMM         float64 `json:"precip_mm"`
	RainfallEstimate float64 `json:"rainfall_estimate"`
}

// EstimateAnnualRainfall extrapolates today's precipitation to a yearly
// figure: max(100, precipMM*365).
func EstimateAnnualRainfall(precipMM float64) float64 {
	return math.Max(MinAnnualRainfall, precipMM*365)
}

// Provider returns current conditions at a position.
type Provider interface {
	Current(ctx context.Context, at Coordinates) (*Conditions, error)
}

// ErrNotConfigured is returned by a client that has no API key.
var ErrNotConfigured = errors.New("weather API key not configured")

// Client is a weatherapi.com provider. The key never leaves the gateway.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a weatherapi.com client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type currentResponse struct {
	Current *struct {
		TempC    *float64 `json:"temp_c"`
		Humidity *float64 `json:"humidity"`
		PrecipMM *float64 `json:"precip_mm"`
	} `json:"current"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Current fetches current conditions for the coordinates.
func (c *Client) Current(ctx context.Context, at Coordinates) (*Conditions, error) {
	if c.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if err := at.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("key", c.APIKey)
	q.Set("q", fmt.Sprintf("%g,%g", at.Latitude, at.Longitude))
	endpoint := c.BaseURL + "/current.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logging.LogUpstreamCall("weatherapi", http.MethodGet, endpoint, 0, time.Since(start), err)
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response: %w", err)
	}

	var parsed currentResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			err = fmt.Errorf("HTTP %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		logging.LogUpstreamCall("weatherapi", http.MethodGet, endpoint, resp.StatusCode, time.Since(start), err)
		return nil, err
	}
	logging.LogUpstreamCall("weatherapi", http.MethodGet, endpoint, resp.StatusCode, time.Since(start), nil)

	if decodeErr != nil {
		return nil, fmt.Errorf("malformed weather response: %w", decodeErr)
	}
	cur := parsed.Current
	if cur == nil || cur.TempC == nil || cur.Humidity == nil || cur.PrecipMM == nil {
		return nil, errors.New("malformed weather response: missing current conditions")
	}

	return &Conditions{
		Temperature:      *cur.TempC,
		Humidity:         *cur.Humidity,
		PrecipMM:         *cur.PrecipMM,
		RainfallEstimate: EstimateAnnualRainfall(*cur.PrecipMM),
	}, nil
}
