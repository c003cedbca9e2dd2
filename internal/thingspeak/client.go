package thingspeak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/version"
)

// ErrUpdateRejected is returned when ThingSpeak answers an update with entry
// "0", which it does when writes are rate limited or the key is wrong.
var ErrUpdateRejected = errors.New("thingspeak rejected the update")

// fieldMap maps channel fields to reading keys with the value used when the
// channel has no data for the field.
var fieldMap = []struct {
	field string
	key   string
	def   float64
}{
	{"field2", sensor.PH, 7},
	{"field3", sensor.Moisture, sensor.DefaultMoisture},
	{"field4", sensor.Temperature, 25},
	{"field5", sensor.EC, sensor.DefaultEC},
	{"field6", sensor.Nitrogen, 0},
	{"field7", sensor.Phosphorus, 0},
	{"field8", sensor.Potassium, 0},
	{"field9", sensor.Humidity, 50},
}

// Client talks to one ThingSpeak channel. field1 is the measurement trigger
// the field device watches; the other fields carry its readings.
type Client struct {
	BaseURL    string
	ChannelID  string
	ReadKey    string
	WriteKey   string
	HTTPClient *http.Client
}

// NewClient creates a client for the channel.
func NewClient(baseURL, channelID, readKey, writeKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ChannelID:  channelID,
		ReadKey:    readKey,
		WriteKey:   writeKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Feed is the last channel entry.
type Feed struct {
	EntryID   int
	CreatedAt time.Time
	Fields    map[string]string
}

// UnmarshalJSON keeps field1..field9 as strings; ThingSpeak sends null for
// fields never written.
func (f *Feed) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f.Fields = make(map[string]string)
	for k, v := range raw {
		switch {
		case k == "entry_id":
			if err := json.Unmarshal(v, &f.EntryID); err != nil {
				return fmt.Errorf("entry_id: %w", err)
			}
		case k == "created_at":
			if err := json.Unmarshal(v, &f.CreatedAt); err != nil {
				return fmt.Errorf("created_at: %w", err)
			}
		case strings.HasPrefix(k, "field"):
			var s *string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			if s != nil {
				f.Fields[k] = strings.TrimSpace(*s)
			}
		}
	}
	return nil
}

// Reading converts the feed to a reading, filling defaults for missing or
// unparseable fields.
func (f Feed) Reading() sensor.Reading {
	r := make(sensor.Reading, len(fieldMap))
	for _, m := range fieldMap {
		r[m.key] = m.def
		if s, ok := f.Fields[m.field]; ok {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				r[m.key] = v
			}
		}
	}
	return r
}

// Trigger writes field1=1, asking the device to take a measurement. It
// returns the new entry ID.
func (c *Client) Trigger(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("api_key", c.WriteKey)
	q.Set("field1", "1")

	body, err := c.do(ctx, http.MethodPost, "/update", q)
	if err != nil {
		return "", err
	}

	entry := strings.TrimSpace(string(body))
	if entry == "0" {
		return "", ErrUpdateRejected
	}
	return entry, nil
}

// LastFeed reads the newest channel entry.
func (c *Client) LastFeed(ctx context.Context) (*Feed, error) {
	q := url.Values{}
	q.Set("api_key", c.ReadKey)

	body, err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(c.ChannelID)+"/feeds/last.json", q)
	if err != nil {
		return nil, err
	}

	// An empty channel answers with the JSON string "-1".
	if strings.TrimSpace(string(body)) == `"-1"` || strings.TrimSpace(string(body)) == "-1" {
		return nil, sensor.ErrNoReadings
	}

	var feed Feed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse channel feed: %w", err)
	}
	return &feed, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values) ([]byte, error) {
	endpoint := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logging.LogUpstreamCall("thingspeak", method, endpoint, 0, time.Since(start), err)
		return nil, fmt.Errorf("thingspeak request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		logging.LogUpstreamCall("thingspeak", method, endpoint, resp.StatusCode, time.Since(start), err)
		return nil, fmt.Errorf("failed to read thingspeak response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		logging.LogUpstreamCall("thingspeak", method, endpoint, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	logging.LogUpstreamCall("thingspeak", method, endpoint, resp.StatusCode, time.Since(start), nil)
	return body, nil
}
