package source

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/advisor"
	"github.com/terradetect/terradetect/internal/backend"
	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/session"
	"github.com/terradetect/terradetect/internal/weather"
)

// ErrNoSensorData is returned by UseSensorData before any successful fetch.
var ErrNoSensorData = errors.New("No sensor data available. Please fetch sensor data first.")

// Error is an acquisition failure. Message is what the user sees.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

func failure(prefix string, err error) *Error {
	return &Error{Message: prefix + backend.UserMessage(err), Err: err}
}

// Gateway is the subset of the gateway client used to acquire weather data.
type Gateway interface {
	TriggerSensor(ctx context.Context) (*backend.TriggerResponse, error)
	FetchSensor(ctx context.Context) (*backend.SensorResponse, error)
	CurrentWeather(ctx context.Context, at weather.Coordinates) (*weather.Conditions, error)
}

// View is what the controller needs from a user interface.
type View interface {
	ShowLoading(loading bool)
	ShowMessage(msg string)
	ShowError(msg string)
	SetField(f advisor.Field, value string)
	ShowSensorPanel(r sensor.Reading)
	HideSensorPanel()
}

// Outcome is the result of one acquisition, ready to be applied to a view.
type Outcome struct {
	Source     session.WeatherSource
	Fields     advisor.Values
	Reading    sensor.Reading
	Err        error
	Superseded bool
}

// Controller fills the weather fields from the selected source. At most one
// acquisition runs at a time; starting another cancels the previous one.
type Controller struct {
	gateway Gateway
	locator weather.Locator
	waiter  Waiter

	// Progress receives waiting messages. Optional.
	Progress ProgressFunc

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewController creates a controller. A nil locator means geolocation is
// unsupported; a nil waiter polls with the default settings.
func NewController(gw Gateway, loc weather.Locator, w Waiter) *Controller {
	if w == nil {
		w = Poll{Interval: 10 * time.Second, MaxAttempts: 18}
	}
	return &Controller{gateway: gw, locator: loc, waiter: w}
}

// Begin records the source and puts the view in its waiting state. An
// acquisition still running is cancelled. It must run on the UI loop
// before Acquire.
func (c *Controller) Begin(st session.State, src session.WeatherSource, v View) session.State {
	next := session.Reduce(st, session.SourceSelected{Source: src})
	if next.WeatherSource != src {
		return st
	}

	if c.Cancel() {
		v.ShowMessage("")
		v.ShowLoading(false)
		next = session.Reduce(next, session.LoadingChanged{Loading: false})
	}

	switch src {
	case session.SourceAPI:
		v.ShowLoading(true)
		next = session.Reduce(next, session.LoadingChanged{Loading: true})
	case session.SourceSensor:
		v.HideSensorPanel()
		v.ShowLoading(true)
		v.ShowMessage("Triggering sensors...")
		next = session.Reduce(next, session.LoadingChanged{Loading: true})
	}
	return next
}

// Acquire fetches data for src. It does not touch any view and may run in
// the background. A later call to Acquire or Cancel supersedes it.
func (c *Controller) Acquire(ctx context.Context, src session.WeatherSource) Outcome {
	ctx, id := c.start(ctx)
	defer c.finish(id)

	out := Outcome{Source: src}
	switch src {
	case session.SourceAPI:
		out.Fields, out.Err = c.acquireWeather(ctx)
	case session.SourceSensor:
		out.Reading, out.Err = c.acquireSensor(ctx)
	}

	out.Superseded = c.superseded(id)
	if out.Err != nil && !out.Superseded {
		logging.Warn("Weather source acquisition failed",
			zap.String("source", string(src)),
			zap.Error(out.Err),
		)
	}
	return out
}

// Cancel stops the in-flight acquisition and reports whether one was
// running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if c.cancel == nil {
		return false
	}
	c.cancel()
	c.cancel = nil
	return true
}

func (c *Controller) start(parent context.Context) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	return ctx, c.seq
}

func (c *Controller) finish(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == id && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) superseded(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq != id
}

func (c *Controller) acquireWeather(ctx context.Context) (advisor.Values, error) {
	if c.locator == nil {
		return nil, &Error{Message: "Geolocation is not supported", Err: weather.ErrGeolocationUnsupported}
	}
	at, err := c.locator.Locate(ctx)
	if err != nil {
		if errors.Is(err, weather.ErrGeolocationUnsupported) {
			return nil, &Error{Message: "Geolocation is not supported", Err: err}
		}
		return nil, &Error{Message: "Geolocation error: " + err.Error(), Err: err}
	}

	cond, err := c.gateway.CurrentWeather(ctx, at)
	if err != nil {
		return nil, failure("Failed to fetch weather data: ", err)
	}

	return advisor.Values{
		advisor.FieldTemperature: formatOne(cond.Temperature),
		advisor.FieldHumidity:    formatOne(cond.Humidity),
		advisor.FieldRainfall:    strconv.FormatFloat(weather.EstimateAnnualRainfall(cond.PrecipMM), 'f', 0, 64),
	}, nil
}

func (c *Controller) acquireSensor(ctx context.Context) (sensor.Reading, error) {
	at := time.Now()
	trig, err := c.gateway.TriggerSensor(ctx)
	if err != nil {
		return nil, &Error{Message: "Failed to trigger sensor.", Err: err}
	}
	ticket := NewTicket(at, trig)
	logging.Info("Sensor triggered", zap.Int("entry_id", ticket.EntryID))

	resp, err := c.waiter.Wait(ctx, ticket, c.gateway.FetchSensor, c.Progress)
	if err != nil {
		return nil, failure("Could not fetch sensor data: ", err)
	}
	return resp.Data.Clone(), nil
}

// Apply shows an outcome and returns the updated state. It must run on the
// UI loop. A superseded outcome changes nothing.
func Apply(st session.State, out Outcome, v View) session.State {
	if out.Superseded {
		return st
	}
	if out.Source == session.SourceManual {
		return st
	}

	v.ShowMessage("")
	if out.Err != nil {
		v.ShowError(out.Err.Error())
		if out.Source == session.SourceSensor {
			v.HideSensorPanel()
		}
	} else {
		for _, f := range advisor.AllFields {
			if val, ok := out.Fields[f]; ok {
				v.SetField(f, val)
			}
		}
		if out.Source == session.SourceSensor {
			st = session.Reduce(st, session.SensorDataStored{Reading: out.Reading})
			v.ShowSensorPanel(st.SensorData)
		}
	}

	v.ShowLoading(false)
	return session.Reduce(st, session.LoadingChanged{Loading: false})
}

// Select runs Begin, Acquire and Apply in order. For callers without an
// event loop.
func (c *Controller) Select(ctx context.Context, st session.State, src session.WeatherSource, v View) (session.State, error) {
	st = c.Begin(st, src, v)
	if st.WeatherSource != src {
		return st, &Error{Message: "Unknown weather source: " + string(src)}
	}
	out := c.Acquire(ctx, src)
	return Apply(st, out, v), out.Err
}

// sensorFields are copied into the form by UseSensorData, in this order.
var sensorFields = []struct {
	key   string
	field advisor.Field
}{
	{sensor.Temperature, advisor.FieldTemperature},
	{sensor.Humidity, advisor.FieldHumidity},
	{sensor.PH, advisor.FieldPH},
	{sensor.Nitrogen, advisor.FieldN},
	{sensor.Phosphorus, advisor.FieldP},
	{sensor.Potassium, advisor.FieldK},
}

// UseSensorData copies the stored reading into the form and switches the
// source back to manual so the values can be edited. Absent and zero
// values are skipped. Without a stored reading nothing changes.
func UseSensorData(st session.State, v View) (session.State, error) {
	if !st.HasSensorData() {
		v.ShowError(ErrNoSensorData.Error())
		return st, ErrNoSensorData
	}
	for _, sf := range sensorFields {
		if val, ok := st.SensorData.Get(sf.key); ok && val != 0 {
			v.SetField(sf.field, formatOne(val))
		}
	}
	return session.Reduce(st, session.SourceSelected{Source: session.SourceManual}), nil
}

// PanelValue formats a reading value for the read-only sensor panel; "--"
// when absent.
func PanelValue(r sensor.Reading, key string) string {
	v, ok := r.Get(key)
	if !ok {
		return "--"
	}
	return formatOne(v)
}

func formatOne(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
