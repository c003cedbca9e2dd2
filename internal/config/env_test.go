package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GATEWAY_ADDR", "WEATHER_API_KEY", "WEATHER_API_URL",
		"THINGSPEAK_CHANNEL_ID", "THINGSPEAK_READ_KEY", "THINGSPEAK_WRITE_KEY", "THINGSPEAK_URL",
		"PREDICTION_URL", "MONGO_URI", "MONGO_DB", "DEVICE_API_KEYS",
		"CORS_ORIGINS", "MDNS_ENABLE", "UPSTREAM_TIMEOUT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadGatewayEnvDefaults(t *testing.T) {
	clearGatewayEnv(t)

	env, err := LoadGatewayEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":5000", env.Addr)
	assert.Equal(t, "https://api.weatherapi.com/v1", env.WeatherAPIURL)
	assert.Equal(t, "https://api.thingspeak.com", env.ThingSpeakURL)
	assert.Equal(t, "terradetect", env.MongoDB)
	assert.Equal(t, []string{"*"}, env.CORSOrigins)
	assert.True(t, env.MDNSEnable)
	assert.Equal(t, 15*time.Second, env.UpstreamTimeout)
	assert.Empty(t, env.DeviceKeys)
	assert.False(t, env.ThingSpeakConfigured())
}

func TestLoadGatewayEnvFromDotEnv(t *testing.T) {
	clearGatewayEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := `WEATHER_API_KEY=wk
THINGSPEAK_CHANNEL_ID=12345
THINGSPEAK_READ_KEY=rk
THINGSPEAK_WRITE_KEY=wrk
DEVICE_API_KEYS=abc123:k1, def456 : k2 ,
MDNS_ENABLE=false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("GATEWAY_ADDR", ":9090")

	env, err := LoadGatewayEnv(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", env.Addr)
	assert.Equal(t, "wk", env.WeatherAPIKey)
	assert.True(t, env.ThingSpeakConfigured())
	assert.Equal(t, map[string]string{"abc123": "k1", "def456": "k2"}, env.DeviceKeys)
	assert.False(t, env.MDNSEnable)
}

func TestLoadGatewayEnvInvalid(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("UPSTREAM_TIMEOUT", "soon")

	_, err := LoadGatewayEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "UPSTREAM_TIMEOUT")
}

func TestLoadGatewayEnvBadDeviceKeys(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("DEVICE_API_KEYS", "abc123")

	_, err := LoadGatewayEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "DEVICE_API_KEYS")
}
