package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terradetect/terradetect/internal/advisor"
	"github.com/terradetect/terradetect/internal/backend"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/session"
	"github.com/terradetect/terradetect/internal/source"
	"github.com/terradetect/terradetect/internal/weather"
)

type fakePredictor struct {
	mu   sync.Mutex
	pred *backend.Prediction
	err  error
	reqs []*backend.PredictRequest
}

func (p *fakePredictor) Predict(_ context.Context, req *backend.PredictRequest) (*backend.Prediction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	return p.pred, p.err
}

type fakeGateway struct {
	reading sensor.Reading
	cond    *weather.Conditions
}

func (g *fakeGateway) TriggerSensor(context.Context) (*backend.TriggerResponse, error) {
	return &backend.TriggerResponse{Status: "triggered", Response: "5"}, nil
}

func (g *fakeGateway) FetchSensor(context.Context) (*backend.SensorResponse, error) {
	return &backend.SensorResponse{Status: "ok", Data: g.reading, EntryID: 6, Timestamp: time.Now()}, nil
}

func (g *fakeGateway) CurrentWeather(context.Context, weather.Coordinates) (*weather.Conditions, error) {
	return g.cond, nil
}

type fixture struct {
	predictor *fakePredictor
	gateway   *fakeGateway
	copied    string
}

func newModel(t *testing.T, mode session.Mode) (Model, *fixture) {
	t.Helper()
	fx := &fixture{
		predictor: &fakePredictor{pred: &backend.Prediction{
			Mode: backend.ModeCrop,
			Crop: &backend.CropResult{Crop: "rice", Confidence: "92.35"},
		}},
		gateway: &fakeGateway{
			reading: sensor.Reading{
				sensor.Temperature: 24.46, sensor.Humidity: 61, sensor.PH: 6.8,
				sensor.Nitrogen: 90, sensor.Phosphorus: 0, sensor.Potassium: 43,
				sensor.Moisture: 35, sensor.EC: 0.4,
			},
			cond: &weather.Conditions{Temperature: 28.44, Humidity: 70, PrecipMM: 1.2},
		},
	}
	ctrl := source.NewController(fx.gateway, weather.StaticLocator{Latitude: 12.97, Longitude: 77.59},
		source.Poll{Interval: time.Millisecond, MaxAttempts: 3})

	m := New(Deps{
		Orchestrator: advisor.NewOrchestrator(fx.predictor),
		Sources:      ctrl,
		GatewayURL:   "http://localhost:5000",
		DefaultMode:  mode,
		Copy: func(s string) error {
			fx.copied = s
			return nil
		},
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 60})
	return m, fx
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func ctrlKey(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// focus moves the cursor onto the first item matching want.
func focus(t *testing.T, m Model, want item) Model {
	t.Helper()
	for i, it := range m.items() {
		if it == want {
			m.blurCurrent()
			m.cursor = i
			m.focusCurrent()
			return m
		}
	}
	t.Fatalf("item %+v not in layout", want)
	return m
}

func fill(m Model, values map[advisor.Field]string) {
	for f, v := range values {
		m.form.SetField(f, v)
	}
}

var cropValues = map[advisor.Field]string{
	advisor.FieldN: "90", advisor.FieldP: "42", advisor.FieldK: "43", advisor.FieldPH: "6.5",
	advisor.FieldTemperature: "20.8", advisor.FieldHumidity: "82", advisor.FieldRainfall: "202.9",
}

func TestNewAppliesDefaultMode(t *testing.T) {
	m, _ := newModel(t, session.ModeFertilizer)

	assert.Equal(t, session.ModeFertilizer, m.State().Mode)
	assert.Equal(t, "Recommend Fertilizer", m.form.cfg.SubmitLabel)

	var fields []advisor.Field
	for _, it := range m.items() {
		if it.kind == itemInput || it.kind == itemSoil {
			fields = append(fields, it.field)
		}
	}
	assert.Equal(t, advisor.VisibleFields(session.ModeFertilizer), fields)
	assert.Contains(t, m.View(), "Fertilizer Recommendation")
}

func TestTypingFillsFocusedInput(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)
	m = focus(t, m, item{kind: itemInput, field: advisor.FieldN})

	m = update(t, m, runes("9"))
	m = update(t, m, runes("0"))

	assert.Equal(t, "90", m.form.Values()[advisor.FieldN])
	assert.Equal(t, advisor.FieldN, m.current().field)

	m = update(t, m, ctrlKey(tea.KeyEnter))
	assert.Equal(t, advisor.FieldP, m.current().field, "enter moves to the next input")
}

func TestSubmitShowsResult(t *testing.T) {
	m, fx := newModel(t, session.ModeCrop)
	fill(m, cropValues)

	m, cmd := updateCmd(t, m, ctrlKey(tea.KeyCtrlS))
	require.NotNil(t, cmd)
	assert.True(t, m.State().Loading)
	assert.True(t, m.form.loading)
	assert.Contains(t, m.View(), "Working...")

	m = update(t, m, cmd())
	assert.False(t, m.State().Loading)
	assert.False(t, m.form.loading)
	require.NotNil(t, m.form.result)
	assert.Equal(t, "rice", m.form.result.Highlight)
	assert.Contains(t, m.renderBody(80).content, "Recommended Crop")

	require.Len(t, fx.predictor.reqs, 1)
	assert.Equal(t, "crop", fx.predictor.reqs[0].Mode)
	assert.False(t, fx.predictor.reqs[0].UseSensorData)
}

func TestSubmitValidationError(t *testing.T) {
	m, fx := newModel(t, session.ModeCrop)

	m, cmd := updateCmd(t, m, ctrlKey(tea.KeyCtrlS))
	assert.Nil(t, cmd)
	assert.Equal(t, "Please fill in the n field", m.form.errMsg)
	assert.False(t, m.form.loading)
	assert.Empty(t, fx.predictor.reqs)
}

func TestSubmitIgnoredWhileInFlight(t *testing.T) {
	m, fx := newModel(t, session.ModeCrop)
	fill(m, cropValues)

	m, first := updateCmd(t, m, ctrlKey(tea.KeyCtrlS))
	require.NotNil(t, first)

	m, second := updateCmd(t, m, ctrlKey(tea.KeyCtrlS))
	assert.Nil(t, second)
	assert.True(t, m.form.loading)

	m = update(t, m, first())
	assert.False(t, m.form.loading)
	assert.Len(t, fx.predictor.reqs, 1)
}

func TestSubmitErrorShowsPanel(t *testing.T) {
	m, fx := newModel(t, session.ModeCrop)
	fx.predictor.err = backend.NewEmptyResultError()
	fill(m, cropValues)

	m, cmd := updateCmd(t, m, ctrlKey(tea.KeyCtrlS))
	m = update(t, m, cmd())

	assert.Equal(t, backend.MsgEmptyResult, m.form.errMsg)
	assert.Nil(t, m.form.result)
	assert.False(t, m.State().Loading)
}

func TestModeButtonSwitchesLayoutAndClearsPanels(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)
	m.form.ShowError("old error")

	m = focus(t, m, item{kind: itemMode, mode: session.ModeSuitability})
	m = update(t, m, ctrlKey(tea.KeyEnter))

	assert.Equal(t, session.ModeSuitability, m.State().Mode)
	assert.Equal(t, "Check Suitability", m.form.cfg.SubmitLabel)
	assert.Empty(t, m.form.errMsg)
	assert.Contains(t, m.items(), item{kind: itemInput, field: advisor.FieldCropName})
}

func TestModeSwitchDuringSubmitKeepsResult(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)
	fill(m, cropValues)

	m, cmd := updateCmd(t, m, ctrlKey(tea.KeyCtrlS))
	require.NotNil(t, cmd)

	m = focus(t, m, item{kind: itemMode, mode: session.ModeFertilizer})
	m = update(t, m, ctrlKey(tea.KeyEnter))
	assert.Equal(t, session.ModeFertilizer, m.State().Mode)
	assert.True(t, m.State().Loading)

	m = update(t, m, cmd())
	assert.False(t, m.State().Loading)
	require.NotNil(t, m.form.result)
	assert.False(t, m.form.result.Empty())
	assert.Equal(t, "Recommended Crop", m.form.result.Heading)
	assert.Equal(t, "rice", m.form.result.Highlight)
}

func TestSensorSourceAndUseSensorData(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)

	m = focus(t, m, item{kind: itemSource, source: session.SourceSensor})
	m, cmd := updateCmd(t, m, ctrlKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.Equal(t, session.SourceSensor, m.State().WeatherSource)
	assert.True(t, m.form.loading)
	assert.Equal(t, "Triggering sensors...", m.form.message)

	m = update(t, m, cmd())
	assert.False(t, m.form.loading)
	assert.True(t, m.form.sensorVisible)
	assert.Equal(t, 6.8, m.State().SensorData[sensor.PH])
	assert.Contains(t, m.items(), item{kind: itemUseData})
	assert.Contains(t, m.renderBody(80).content, "Sensor Data")

	m = update(t, m, ctrlKey(tea.KeyCtrlU))
	v := m.form.Values()
	assert.Equal(t, "24.5", v[advisor.FieldTemperature])
	assert.Equal(t, "6.8", v[advisor.FieldPH])
	assert.Equal(t, "90.0", v[advisor.FieldN])
	assert.Empty(t, v[advisor.FieldP], "zero values are skipped")
	assert.Equal(t, session.SourceManual, m.State().WeatherSource)
}

func TestUseSensorDataWithoutReading(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)

	m = update(t, m, ctrlKey(tea.KeyCtrlU))
	assert.Equal(t, source.ErrNoSensorData.Error(), m.form.errMsg)
	assert.Empty(t, m.form.Values()[advisor.FieldTemperature])
}

func TestWeatherAPISourceFillsFields(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)

	m = focus(t, m, item{kind: itemSource, source: session.SourceAPI})
	m, cmd := updateCmd(t, m, ctrlKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	v := m.form.Values()
	assert.Equal(t, "28.4", v[advisor.FieldTemperature])
	assert.Equal(t, "70.0", v[advisor.FieldHumidity])
	assert.Equal(t, "438", v[advisor.FieldRainfall])
	assert.False(t, m.form.loading)
}

func TestEscCancelsSensorWait(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)
	m = focus(t, m, item{kind: itemSource, source: session.SourceSensor})
	m, cmd := updateCmd(t, m, ctrlKey(tea.KeyEnter))
	require.NotNil(t, cmd)

	m = update(t, m, ctrlKey(tea.KeyEsc))
	assert.Equal(t, session.SourceManual, m.State().WeatherSource)
	assert.False(t, m.form.loading)
	assert.False(t, m.State().Loading)
	assert.Empty(t, m.form.message)

	m = update(t, m, cmd())
	assert.False(t, m.form.sensorVisible, "late outcome is dropped")
	assert.False(t, m.State().HasSensorData())
}

func TestResetClearsInputsButKeepsSensorData(t *testing.T) {
	m, _ := newModel(t, session.ModeFertilizer)
	fill(m, map[advisor.Field]string{advisor.FieldN: "10", advisor.FieldSoil: "Red"})
	m.state = session.Reduce(m.state, session.SensorDataStored{Reading: sensor.Reading{sensor.PH: 6}})
	m.form.ShowError("boom")

	m = update(t, m, ctrlKey(tea.KeyCtrlR))

	v := m.form.Values()
	assert.Empty(t, v[advisor.FieldN])
	assert.Equal(t, "Black", v[advisor.FieldSoil])
	assert.Empty(t, m.form.errMsg)
	assert.True(t, m.State().HasSensorData())
	assert.Equal(t, session.ModeFertilizer, m.State().Mode)
}

func TestSoilSelectorCycles(t *testing.T) {
	m, _ := newModel(t, session.ModeFertilizer)
	m = focus(t, m, item{kind: itemSoil, field: advisor.FieldSoil})

	m = update(t, m, ctrlKey(tea.KeyRight))
	assert.Equal(t, "Clayey", m.form.soilName())
	m = update(t, m, ctrlKey(tea.KeyLeft))
	m = update(t, m, ctrlKey(tea.KeyLeft))
	assert.Equal(t, "Sandy", m.form.soilName())
}

func TestCopyResult(t *testing.T) {
	m, fx := newModel(t, session.ModeCrop)
	fill(m, cropValues)
	m, cmd := updateCmd(t, m, ctrlKey(tea.KeyCtrlS))
	m = update(t, m, cmd())

	m, cmd = updateCmd(t, m, ctrlKey(tea.KeyCtrlY))
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	assert.Contains(t, fx.copied, "rice")
	assert.Equal(t, "Result copied to clipboard", m.form.notice)
}

func TestCopyFailureIsReported(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)
	m = update(t, m, copiedMsg{err: errors.New("no display")})
	assert.Equal(t, "Clipboard unavailable: no display", m.form.notice)
}

func TestProgressMessageRearms(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)

	m, cmd := updateCmd(t, m, progressMsg("Waiting for sensor data (check 1 of 3)..."))
	assert.Equal(t, "Waiting for sensor data (check 1 of 3)...", m.form.message)
	assert.NotNil(t, cmd)
}

func TestTabCyclesThroughControls(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)
	n := len(m.items())
	start := m.cursor

	for i := 0; i < n; i++ {
		m = update(t, m, ctrlKey(tea.KeyTab))
	}
	assert.Equal(t, start, m.cursor)

	m = update(t, m, ctrlKey(tea.KeyShiftTab))
	assert.Equal(t, (start-1+n)%n, m.cursor)
}

func TestQuitCancelsContext(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)
	m, cmd := updateCmd(t, m, ctrlKey(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Error(t, m.ctx.Err())
}

func TestViewHasChrome(t *testing.T) {
	m, _ := newModel(t, session.ModeCrop)
	out := m.View()
	assert.True(t, strings.Contains(out, AppName))
	assert.Contains(t, out, "http://localhost:5000")
	assert.Contains(t, out, "Recommend Crop")
}
