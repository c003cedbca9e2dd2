package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/terradetect/terradetect/internal/version"
)

var (
	// ErrGeolocationUnsupported means no way of locating the user is available.
	ErrGeolocationUnsupported = errors.New("geolocation is not supported")

	// ErrGeolocationDenied means the lookup ran and refused to answer.
	ErrGeolocationDenied = errors.New("geolocation denied")
)

// Locator finds where the form is running.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// StaticLocator always returns the configured position.
type StaticLocator Coordinates

func (s StaticLocator) Locate(context.Context) (Coordinates, error) {
	c := Coordinates(s)
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

// IPLocator estimates the position from the public IP address.
type IPLocator struct {
	URL        string
	HTTPClient *http.Client
}

// NewIPLocator creates a locator backed by an ip-api.com compatible endpoint.
func NewIPLocator(url string, timeout time.Duration) *IPLocator {
	return &IPLocator{URL: url, HTTPClient: &http.Client{Timeout: timeout}}
}

type ipLocation struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *IPLocator) Locate(ctx context.Context) (Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("location lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return Coordinates{}, fmt.Errorf("%w: HTTP %d", ErrGeolocationDenied, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("location lookup failed: HTTP %d", resp.StatusCode)
	}

	var loc ipLocation
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return Coordinates{}, fmt.Errorf("malformed location response: %w", err)
	}
	if loc.Status != "success" {
		msg := loc.Message
		if msg == "" {
			msg = loc.Status
		}
		return Coordinates{}, fmt.Errorf("%w: %s", ErrGeolocationDenied, msg)
	}

	c := Coordinates{Latitude: loc.Lat, Longitude: loc.Lon}
	return c, c.Validate()
}
