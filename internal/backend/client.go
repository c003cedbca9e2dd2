package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/urls"
	"github.com/terradetect/terradetect/internal/version"
	"github.com/terradetect/terradetect/internal/weather"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second

	// maxBody caps how much of a response is read
	maxBody = 4 << 20
)

// Client talks to a TerraDetect gateway (and, through it or directly, to
// the prediction service). Calls are made once; there is no retry here.
type Client struct {
	// BaseURL is the gateway root (e.g., "http://localhost:5000")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewClient creates a client for baseURL with the given timeout
// (DefaultTimeout when zero).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// StreamURL returns the websocket URL of the gateway's reading stream.
func (c *Client) StreamURL() string {
	base := c.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + urls.SensorStream
}

// do performs one request and returns status and body. Transport failures
// come back classified.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	endpoint := c.BaseURL + path
	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, NewValidationError(fmt.Sprintf("failed to encode request: %v", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, NewNetworkError("failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		classified := ClassifyNetworkError(err, c.BaseURL)
		logging.Debug("Request failed",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return 0, nil, classified
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, NewNetworkError("failed to read response body", err)
	}

	logging.Debug("Request completed",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)),
	)

	return resp.StatusCode, data, nil
}

// decodeJSON decodes a gateway response, mapping failures the same way
// predictions are mapped: invalid JSON first, then status / error field.
func decodeJSON(status int, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return NewInvalidJSONError(status, err)
	}
	if status < 200 || status >= 300 {
		var envelope map[string]json.RawMessage
		_ = json.Unmarshal(body, &envelope)
		msg, _ := errorField(envelope)
		if msg == "" {
			if raw, ok := envelope["message"]; ok {
				var t Text
				if t.UnmarshalJSON(raw) == nil {
					msg = t.String()
				}
			}
		}
		return NewServerError(status, msg)
	}
	return nil
}

// Ping checks that the gateway is up.
func (c *Client) Ping(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, urls.Health, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return NewHTTPError(status, fmt.Sprintf("unexpected status code: %d", status))
	}
	return nil
}

// Predict sends one prediction request and decodes the answer for req.Mode.
func (c *Client) Predict(ctx context.Context, req *PredictRequest) (*Prediction, error) {
	status, body, err := c.do(ctx, http.MethodPost, urls.Predict, nil, req)
	if err != nil {
		return nil, err
	}

	p, err := DecodePrediction(req.Mode, status, body)
	if err != nil {
		logging.Warn("Prediction failed",
			zap.String("mode", req.Mode),
			zap.Int("status_code", status),
			zap.Error(err),
		)
		return nil, err
	}
	return p, nil
}

// TriggerSensor asks the field device to take a measurement.
func (c *Client) TriggerSensor(ctx context.Context) (*TriggerResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, urls.SensorTrigger, nil, nil)
	if err != nil {
		return nil, err
	}
	var out TriggerResponse
	if err := decodeJSON(status, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchSensor reads the newest sensor reading. A status "error" answer is
// returned as ErrTypeSensor carrying the gateway's message.
func (c *Client) FetchSensor(ctx context.Context) (*SensorResponse, error) {
	status, body, err := c.do(ctx, http.MethodGet, urls.SensorFetch, nil, nil)
	if err != nil {
		return nil, err
	}

	var out SensorResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, NewInvalidJSONError(status, err)
	}
	if !out.OK() {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("sensor fetch failed (HTTP %d)", status)
		}
		return nil, NewSensorError(msg)
	}
	if out.Data.Empty() {
		return nil, NewSensorError("sensor returned no data")
	}
	return &out, nil
}

// LatestReading returns the newest stored reading, optionally for one device.
func (c *Client) LatestReading(ctx context.Context, deviceID string) (*sensor.Record, error) {
	q := url.Values{}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}
	status, body, err := c.do(ctx, http.MethodGet, urls.SensorLatest, q, nil)
	if err != nil {
		return nil, err
	}
	var rec sensor.Record
	if err := decodeJSON(status, body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// History returns one page of stored readings, newest first.
func (c *Client) History(ctx context.Context, deviceID string, page, perPage int) (*sensor.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}
	status, body, err := c.do(ctx, http.MethodGet, urls.SensorHistory, q, nil)
	if err != nil {
		return nil, err
	}
	var out sensor.Page
	if err := decodeJSON(status, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentWeather asks the gateway for conditions at the coordinates.
func (c *Client) CurrentWeather(ctx context.Context, at weather.Coordinates) (*weather.Conditions, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(at.Longitude, 'f', -1, 64))

	status, body, err := c.do(ctx, http.MethodGet, urls.Weather, q, nil)
	if err != nil {
		return nil, err
	}
	var out weather.Conditions
	if err := decodeJSON(status, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
