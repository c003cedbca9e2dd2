package session

import "fmt"

// Mode selects which question the form asks the prediction service.
type Mode string

const (
	ModeCrop        Mode = "crop"
	ModeSuitability Mode = "suitability"
	ModeFertilizer  Mode = "fertilizer"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeCrop, ModeSuitability, ModeFertilizer}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want crop, suitability or fertilizer)", s)
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	_, err := ParseMode(string(m))
	return err == nil
}

// ModeConfig is the form layout for one mode.
type ModeConfig struct {
	ShowWeather  bool
	ShowCropName bool
	ShowSoil     bool
	SubmitLabel  string
	Title        string
	ButtonLabel  string
}

var modeConfigs = map[Mode]ModeConfig{
	ModeCrop: {
		ShowWeather: true,
		SubmitLabel: "Recommend Crop",
		Title:       "Find the Best Crop",
		ButtonLabel: "Crop",
	},
	ModeSuitability: {
		ShowWeather:  true,
		ShowCropName: true,
		SubmitLabel:  "Check Suitability",
		Title:        "Check Crop Suitability",
		ButtonLabel:  "Suitability",
	},
	ModeFertilizer: {
		ShowCropName: true,
		ShowSoil:     true,
		SubmitLabel:  "Recommend Fertilizer",
		Title:        "Fertilizer Recommendation",
		ButtonLabel:  "Fertilizer",
	},
}

// ConfigFor returns the layout for m. ok is false for an unknown mode.
func ConfigFor(m Mode) (ModeConfig, bool) {
	c, ok := modeConfigs[m]
	return c, ok
}

// WeatherSource is where temperature, humidity and rainfall come from.
type WeatherSource string

const (
	SourceManual WeatherSource = "manual"
	SourceAPI    WeatherSource = "api"
	SourceSensor WeatherSource = "sensor"
)

// Sources lists every weather source in display order.
var Sources = []WeatherSource{SourceManual, SourceAPI, SourceSensor}

// ParseSource validates a source name.
func ParseSource(s string) (WeatherSource, error) {
	for _, src := range Sources {
		if string(src) == s {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown weather source %q (want manual, api or sensor)", s)
}

// Label is the button text for the source.
func (s WeatherSource) Label() string {
	switch s {
	case SourceManual:
		return "Manual"
	case SourceAPI:
		return "Weather API"
	case SourceSensor:
		return "Sensor"
	default:
		return string(s)
	}
}
