package config

import (
	"fmt"
	"time"
)

// Sensor wait strategies understood by the form.
const (
	WaitPoll  = "poll"
	WaitPush  = "push"
	WaitFixed = "fixed"
)

// Settings represents the entire client configuration file.
type Settings struct {
	Version     int               `yaml:"version"`
	Gateway     *GatewaySettings  `yaml:"gateway,omitempty"`
	Sensor      *SensorSettings   `yaml:"sensor,omitempty"`
	Location    *LocationSettings `yaml:"location,omitempty"`
	Preferences *Preferences      `yaml:"preferences,omitempty"`
}

// GatewaySettings points the form at a gateway (which also proxies /predict).
type GatewaySettings struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"` // Per-request HTTP timeout
}

// SensorSettings controls how the form waits for a triggered sensor reading.
type SensorSettings struct {
	Wait         string        `yaml:"wait"`          // poll, push or fixed
	PollInterval time.Duration `yaml:"poll_interval"` // Delay between fetch attempts
	MaxAttempts  int           `yaml:"max_attempts"`  // Poll attempts before giving up
	FixedDelay   time.Duration `yaml:"fixed_delay"`   // Used by the fixed strategy
}

// LocationSettings is the form's geolocation capability. With no coordinates
// and IP lookup disabled, the weather API source reports geolocation as
// unsupported.
type LocationSettings struct {
	Latitude  *float64 `yaml:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty"`
	IPLookup  bool     `yaml:"ip_lookup"`
}

// Preferences represents form defaults.
type Preferences struct {
	DefaultMode string `yaml:"default_mode"` // crop, suitability or fertilizer
	DefaultSoil string `yaml:"default_soil,omitempty"`
	LogFile     string `yaml:"log_file,omitempty"`
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version:     1,
		Gateway:     defaultGateway(),
		Sensor:      defaultSensor(),
		Location:    &LocationSettings{},
		Preferences: defaultPreferences(),
	}
}

func defaultGateway() *GatewaySettings {
	return &GatewaySettings{
		URL:     "http://localhost:5000",
		Timeout: 30 * time.Second,
	}
}

func defaultSensor() *SensorSettings {
	return &SensorSettings{
		Wait:         WaitPoll,
		PollInterval: 10 * time.Second,
		MaxAttempts:  18,
		FixedDelay:   150 * time.Second,
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{DefaultMode: "crop"}
}

// fillDefaults replaces missing sections and zero values with defaults.
func (s *Settings) fillDefaults() {
	if s.Gateway == nil {
		s.Gateway = defaultGateway()
	}
	if s.Gateway.URL == "" {
		s.Gateway.URL = defaultGateway().URL
	}
	if s.Gateway.Timeout <= 0 {
		s.Gateway.Timeout = defaultGateway().Timeout
	}

	if s.Sensor == nil {
		s.Sensor = defaultSensor()
	}
	def := defaultSensor()
	if s.Sensor.Wait == "" {
		s.Sensor.Wait = def.Wait
	}
	if s.Sensor.PollInterval <= 0 {
		s.Sensor.PollInterval = def.PollInterval
	}
	if s.Sensor.MaxAttempts <= 0 {
		s.Sensor.MaxAttempts = def.MaxAttempts
	}
	if s.Sensor.FixedDelay <= 0 {
		s.Sensor.FixedDelay = def.FixedDelay
	}

	if s.Location == nil {
		s.Location = &LocationSettings{}
	}
	if s.Preferences == nil {
		s.Preferences = defaultPreferences()
	}
	if s.Preferences.DefaultMode == "" {
		s.Preferences.DefaultMode = defaultPreferences().DefaultMode
	}
}

// Validate checks values that cannot be defaulted.
func (s *Settings) Validate() error {
	switch s.Sensor.Wait {
	case WaitPoll, WaitPush, WaitFixed:
	default:
		return fmt.Errorf("sensor.wait must be poll, push or fixed, got %q", s.Sensor.Wait)
	}

	switch s.Preferences.DefaultMode {
	case "crop", "suitability", "fertilizer":
	default:
		return fmt.Errorf("preferences.default_mode must be crop, suitability or fertilizer, got %q", s.Preferences.DefaultMode)
	}

	if (s.Location.Latitude == nil) != (s.Location.Longitude == nil) {
		return fmt.Errorf("location.latitude and location.longitude must be set together")
	}
	if lat := s.Location.Latitude; lat != nil && (*lat < -90 || *lat > 90) {
		return fmt.Errorf("location.latitude out of range: %v", *lat)
	}
	if lon := s.Location.Longitude; lon != nil && (*lon < -180 || *lon > 180) {
		return fmt.Errorf("location.longitude out of range: %v", *lon)
	}

	return nil
}

// HasCoordinates reports whether a fixed location is configured.
func (l *LocationSettings) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}
