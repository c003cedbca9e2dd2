package session

import (
	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/sensor"
)

// State is a snapshot of the form session. Values are never mutated in
// place; Reduce returns a new snapshot.
type State struct {
	Mode          Mode
	WeatherSource WeatherSource
	Loading       bool
	SensorData    sensor.Reading
}

// New returns the initial state for a mode (crop when mode is invalid).
func New(mode Mode) State {
	if !mode.Valid() {
		mode = ModeCrop
	}
	return State{
		Mode:          mode,
		WeatherSource: SourceManual,
		SensorData:    sensor.Reading{},
	}
}

// HasSensorData reports whether a sensor fetch has succeeded.
func (s State) HasSensorData() bool {
	return !s.SensorData.Empty()
}

// UsesSensor reports whether the submission should be flagged as
// sensor-sourced.
func (s State) UsesSensor() bool {
	return s.WeatherSource == SourceSensor
}

// Event is a state change request.
type Event interface{ event() }

// ModeSelected switches the active mode.
type ModeSelected struct{ Mode Mode }

// SourceSelected switches the weather source.
type SourceSelected struct{ Source WeatherSource }

// LoadingChanged marks a submission as in flight or finished.
type LoadingChanged struct{ Loading bool }

// SensorDataStored records a successful sensor fetch.
type SensorDataStored struct{ Reading sensor.Reading }

// FormReset is the reset action. Mode, source and sensor data survive it.
type FormReset struct{}

func (ModeSelected) event()     {}
func (SourceSelected) event()   {}
func (LoadingChanged) event()   {}
func (SensorDataStored) event() {}
func (FormReset) event()        {}

// Reduce applies ev to s and returns the new state. Invalid events (unknown
// mode or source) return s unchanged and log a warning.
func Reduce(s State, ev Event) State {
	next := s
	switch e := ev.(type) {
	case ModeSelected:
		if !e.Mode.Valid() {
			logging.Warn("Ignoring unknown mode", zap.String("mode", string(e.Mode)))
			return s
		}
		next.Mode = e.Mode

	case SourceSelected:
		if _, err := ParseSource(string(e.Source)); err != nil {
			logging.Warn("Ignoring unknown weather source", zap.String("source", string(e.Source)))
			return s
		}
		next.WeatherSource = e.Source

	case LoadingChanged:
		next.Loading = e.Loading

	case SensorDataStored:
		next.SensorData = e.Reading.Clone()

	case FormReset:
		next.Loading = false

	default:
		return s
	}

	if next.Mode != s.Mode {
		logging.LogTransition("mode", string(s.Mode), string(next.Mode))
	}
	if next.WeatherSource != s.WeatherSource {
		logging.LogTransition("weather_source", string(s.WeatherSource), string(next.WeatherSource))
	}
	return next
}
