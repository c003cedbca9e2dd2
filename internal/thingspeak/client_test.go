package thingspeak

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terradetect/terradetect/internal/sensor"
)

func TestTrigger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/update", r.URL.Path)
		assert.Equal(t, "write-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "1", r.URL.Query().Get("field1"))
		_, _ = w.Write([]byte("42"))
	}))
	defer server.Close()

	c := NewClient(server.URL, "123", "read-key", "write-key", time.Second)
	entry, err := c.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", entry)
}

func TestTriggerRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0"))
	}))
	defer server.Close()

	c := NewClient(server.URL, "123", "r", "w", time.Second)
	_, err := c.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrUpdateRejected)
}

func TestLastFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/123/feeds/last.json", r.URL.Path)
		assert.Equal(t, "read-key", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{
			"created_at": "2025-02-01T10:00:00Z",
			"entry_id": 77,
			"field1": "1",
			"field2": "6.4",
			"field3": null,
			"field4": "28.25",
			"field5": "garbage",
			"field6": "90",
			"field7": "42",
			"field8": "43"
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "123", "read-key", "write-key", time.Second)
	feed, err := c.LastFeed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 77, feed.EntryID)
	assert.Equal(t, time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC), feed.CreatedAt.UTC())

	r := feed.Reading()
	assert.Equal(t, 6.4, r[sensor.PH])
	assert.Equal(t, 40.0, r[sensor.Moisture], "null field uses default")
	assert.Equal(t, 28.25, r[sensor.Temperature])
	assert.Equal(t, 0.0, r[sensor.EC], "unparseable field uses default")
	assert.Equal(t, 90.0, r[sensor.Nitrogen])
	assert.Equal(t, 42.0, r[sensor.Phosphorus])
	assert.Equal(t, 43.0, r[sensor.Potassium])
	assert.Equal(t, 50.0, r[sensor.Humidity], "missing field9 uses default")
}

func TestLastFeedEmptyChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"-1"`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "123", "r", "w", time.Second)
	_, err := c.LastFeed(context.Background())
	assert.ErrorIs(t, err, sensor.ErrNoReadings)
}

func TestLastFeedHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewClient(server.URL, "123", "r", "w", time.Second)
	_, err := c.LastFeed(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
}
