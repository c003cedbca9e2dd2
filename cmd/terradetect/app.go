package main

import (
	"strings"

	"github.com/terradetect/terradetect/internal/advisor"
	"github.com/terradetect/terradetect/internal/backend"
	"github.com/terradetect/terradetect/internal/config"
	"github.com/terradetect/terradetect/internal/render"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/session"
	"github.com/terradetect/terradetect/internal/source"
	"github.com/terradetect/terradetect/internal/ui"
	"github.com/terradetect/terradetect/internal/urls"
	"github.com/terradetect/terradetect/internal/weather"
)

func newClient(s *config.Settings) *backend.Client {
	return backend.NewClient(s.Gateway.URL, s.Gateway.Timeout)
}

// newLocator returns the configured geolocation capability; nil when none
// is configured.
func newLocator(s *config.Settings) weather.Locator {
	switch {
	case s.Location.HasCoordinates():
		return weather.StaticLocator{Latitude: *s.Location.Latitude, Longitude: *s.Location.Longitude}
	case s.Location.IPLookup:
		return weather.NewIPLocator(urls.IPGeolocation, s.Gateway.Timeout)
	default:
		return nil
	}
}

func newController(s *config.Settings, client *backend.Client) *source.Controller {
	return source.NewController(client, newLocator(s), source.NewWaiter(s.Sensor, client.StreamURL()))
}

func defaultMode(s *config.Settings) (session.Mode, error) {
	return session.ParseMode(s.Preferences.DefaultMode)
}

// troubleshooting turns the hint for err into bullet points.
func troubleshooting(err error) []string {
	var tips []string
	for _, line := range strings.Split(backend.GetTroubleshootingHint(err), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "Troubleshooting:" {
			continue
		}
		tips = append(tips, strings.TrimPrefix(line, "• "))
	}
	return tips
}

var readingUnits = map[string]string{
	sensor.Temperature: "°C",
	sensor.Humidity:    "%",
	sensor.Moisture:    "%",
}

// readingDetails lists every field of r in display order.
func readingDetails(r sensor.Reading) []ui.Param {
	params := make([]ui.Param, 0, len(sensor.Fields))
	for _, key := range sensor.Fields {
		v := source.PanelValue(r, key)
		if v != "--" {
			v += readingUnits[key]
		}
		params = append(params, ui.Param{Key: readingLabel(key), Value: v})
	}
	return params
}

func readingLabel(key string) string {
	switch key {
	case sensor.PH:
		return "pH"
	case sensor.EC:
		return "EC"
	case sensor.Nitrogen, sensor.Phosphorus, sensor.Potassium:
		return advisor.Field(key).Label()
	default:
		return strings.ToUpper(key[:1]) + key[1:]
	}
}

// cliView collects what the advisory components show. It stands in for
// the form when a command runs without the interactive screen.
type cliView struct {
	values  advisor.Values
	errMsg  string
	result  *render.Fragment
	reading sensor.Reading

	onMessage func(string)
}

func newCLIView() *cliView {
	return &cliView{values: advisor.Values{}}
}

func (v *cliView) ShowLoading(bool) {}

func (v *cliView) ShowError(msg string) { v.errMsg = msg }

func (v *cliView) ShowResult(f render.Fragment) { v.result = &f }

func (v *cliView) ClearPanels() {
	v.errMsg = ""
	v.result = nil
}

func (v *cliView) ApplyMode(session.Mode, session.ModeConfig) {}

func (v *cliView) ShowMessage(msg string) {
	if v.onMessage != nil && msg != "" {
		v.onMessage(msg)
	}
}

func (v *cliView) SetField(f advisor.Field, value string) { v.values[f] = value }

func (v *cliView) ShowSensorPanel(r sensor.Reading) { v.reading = r.Clone() }

func (v *cliView) HideSensorPanel() { v.reading = nil }
