package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// GatewayEnv is the gateway's configuration. It comes from the process
// environment, optionally seeded from a .env file, because it carries the
// third-party credentials the form must never see.
type GatewayEnv struct {
	Addr string

	WeatherAPIKey string
	WeatherAPIURL string

	ThingSpeakChannelID string
	ThingSpeakReadKey   string
	ThingSpeakWriteKey  string
	ThingSpeakURL       string

	// PredictionURL is the crop/suitability/fertilizer model. When set the
	// gateway proxies POST /predict to it.
	PredictionURL string

	MongoURI string
	MongoDB  string

	// DeviceKeys maps device ID to the API key it must present on
	// POST /api/esp32. Empty disables the check.
	DeviceKeys map[string]string

	CORSOrigins []string
	MDNSEnable  bool

	UpstreamTimeout time.Duration
}

// LoadGatewayEnv reads .env files (missing files are ignored) and then the
// environment. Variables already set in the environment win over .env.
func LoadGatewayEnv(files ...string) (*GatewayEnv, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	timeout, err := time.ParseDuration(getenv("UPSTREAM_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
	}

	mdns, err := strconv.ParseBool(getenv("MDNS_ENABLE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid MDNS_ENABLE: %w", err)
	}

	keys, err := parseDeviceKeys(os.Getenv("DEVICE_API_KEYS"))
	if err != nil {
		return nil, err
	}

	env := &GatewayEnv{
		Addr:                getenv("GATEWAY_ADDR", ":5000"),
		WeatherAPIKey:       os.Getenv("WEATHER_API_KEY"),
		WeatherAPIURL:       getenv("WEATHER_API_URL", "https://api.weatherapi.com/v1"),
		ThingSpeakChannelID: os.Getenv("THINGSPEAK_CHANNEL_ID"),
		ThingSpeakReadKey:   os.Getenv("THINGSPEAK_READ_KEY"),
		ThingSpeakWriteKey:  os.Getenv("THINGSPEAK_WRITE_KEY"),
		ThingSpeakURL:       getenv("THINGSPEAK_URL", "https://api.thingspeak.com"),
		PredictionURL:       os.Getenv("PREDICTION_URL"),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDB:             getenv("MONGO_DB", "terradetect"),
		CORSOrigins:         splitList(getenv("CORS_ORIGINS", "*")),
		MDNSEnable:          mdns,
		UpstreamTimeout:     timeout,
		DeviceKeys:          keys,
	}

	return env, nil
}

// ThingSpeakConfigured reports whether trigger and fetch can work.
func (e *GatewayEnv) ThingSpeakConfigured() bool {
	return e.ThingSpeakChannelID != "" && e.ThingSpeakReadKey != "" && e.ThingSpeakWriteKey != ""
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDeviceKeys reads "device:key,device:key".
func parseDeviceKeys(s string) (map[string]string, error) {
	keys := make(map[string]string)
	for _, pair := range splitList(s) {
		id, key, ok := strings.Cut(pair, ":")
		id, key = strings.TrimSpace(id), strings.TrimSpace(key)
		if !ok || id == "" || key == "" {
			return nil, fmt.Errorf("invalid DEVICE_API_KEYS entry %q (want device_id:api_key)", pair)
		}
		keys[id] = key
	}
	return keys, nil
}
