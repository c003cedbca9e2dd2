package advisor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terradetect/terradetect/internal/backend"
	"github.com/terradetect/terradetect/internal/render"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/session"
)

// recorder is a Display that keeps every call in order.
type recorder struct {
	mu      sync.Mutex
	calls   []string
	loading bool
	err     string
	result  *render.Fragment
	mode    session.Mode
	cfg     session.ModeConfig
}

func (r *recorder) log(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) ShowLoading(l bool) {
	r.loading = l
	if l {
		r.log("loading:on")
	} else {
		r.log("loading:off")
	}
}
func (r *recorder) ShowError(msg string)         { r.err = msg; r.log("error") }
func (r *recorder) ShowResult(f render.Fragment) { r.result = &f; r.log("result") }
func (r *recorder) ClearPanels()                 { r.err = ""; r.result = nil; r.log("clear") }
func (r *recorder) ApplyMode(m session.Mode, c session.ModeConfig) {
	r.mode, r.cfg = m, c
	r.log("mode:" + string(m))
}

type fakePredictor struct {
	calls int
	req   *backend.PredictRequest
	pred  *backend.Prediction
	err   error
	block chan struct{}
}

func (f *fakePredictor) Predict(ctx context.Context, req *backend.PredictRequest) (*backend.Prediction, error) {
	f.calls++
	f.req = req
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.pred, f.err
}

func cropValues() Values {
	v := DefaultValues("")
	v[FieldN] = "90"
	v[FieldP] = "42"
	v[FieldK] = "43"
	v[FieldPH] = "6.5"
	v[FieldTemperature] = "20.8"
	v[FieldHumidity] = "82"
	v[FieldRainfall] = "202.9"
	return v
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "crop name", Humanize(FieldCropName))
	assert.Equal(t, "n", Humanize(FieldN))
	assert.Equal(t, "ph", Humanize(FieldPH))
	assert.Equal(t, "temperature", Humanize(FieldTemperature))
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t,
		[]Field{FieldN, FieldP, FieldK, FieldPH, FieldTemperature, FieldHumidity, FieldRainfall},
		RequiredFields(session.ModeCrop))
	assert.Equal(t,
		[]Field{FieldN, FieldP, FieldK, FieldPH, FieldTemperature, FieldHumidity, FieldRainfall, FieldCropName},
		RequiredFields(session.ModeSuitability))
	assert.Equal(t,
		[]Field{FieldN, FieldP, FieldK, FieldPH, FieldCropName},
		RequiredFields(session.ModeFertilizer))

	assert.Contains(t, VisibleFields(session.ModeFertilizer), FieldSoil)
	assert.NotContains(t, VisibleFields(session.ModeFertilizer), FieldRainfall)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mode  session.Mode
		edit  func(Values)
		field Field
		msg   string
	}{
		{"blank N", session.ModeCrop, func(v Values) { v[FieldN] = "  " }, FieldN, "Please fill in the n field"},
		{"first blank wins", session.ModeCrop, func(v Values) { v[FieldPH] = ""; v[FieldRainfall] = "" }, FieldPH, "Please fill in the ph field"},
		{"suitability crop name", session.ModeSuitability, func(v Values) {}, FieldCropName, "Please fill in the crop name field"},
		{"not a number", session.ModeCrop, func(v Values) { v[FieldK] = "lots" }, FieldK, `The k field must be a number (got "lots")`},
		{"NaN rejected", session.ModeCrop, func(v Values) { v[FieldHumidity] = "NaN" }, FieldHumidity, `The humidity field must be a number (got "NaN")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cropValues()
			tt.edit(v)
			err := Validate(tt.mode, v)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.msg, ve.Message)
		})
	}

	// Weather fields are not required in fertilizer mode.
	v := cropValues()
	v[FieldTemperature] = ""
	v[FieldCropName] = "rice"
	assert.NoError(t, Validate(session.ModeFertilizer, v))
}

func TestBuildRequestCrop(t *testing.T) {
	req, err := BuildRequest(session.New(session.ModeCrop), cropValues())
	require.NoError(t, err)

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"mode":"crop","N":90,"P":42,"K":43,"ph":6.5,
		"temperature":20.8,"humidity":82,"rainfall":202.9,
		"use_sensor_data":false
	}`, string(body))
}

func TestBuildRequestFertilizerUsesSensorDefaults(t *testing.T) {
	st := session.New(session.ModeFertilizer)
	v := cropValues()
	v[FieldCropName] = "rice"
	v[FieldSoil] = "Loamy"

	req, err := BuildRequest(st, v)
	require.NoError(t, err)
	assert.Nil(t, req.Temperature)
	assert.Nil(t, req.Rainfall)
	assert.Equal(t, "rice", *req.CropName)
	assert.Equal(t, "Loamy", *req.Soil)
	assert.Equal(t, 40.0, *req.Moisture)
	assert.Equal(t, 0.0, *req.EC)

	st = session.Reduce(st, session.SourceSelected{Source: session.SourceSensor})
	st = session.Reduce(st, session.SensorDataStored{Reading: sensor.Reading{sensor.Moisture: 55.5, sensor.EC: 1.2}})
	req, err = BuildRequest(st, v)
	require.NoError(t, err)
	assert.Equal(t, 55.5, *req.Moisture)
	assert.Equal(t, 1.2, *req.EC)
	assert.True(t, req.UseSensorData)
}

func TestBuildRequestZeroMoistureFallsBack(t *testing.T) {
	st := session.Reduce(session.New(session.ModeFertilizer),
		session.SensorDataStored{Reading: sensor.Reading{sensor.Moisture: 0}})
	v := cropValues()
	v[FieldCropName] = "rice"

	req, err := BuildRequest(st, v)
	require.NoError(t, err)
	assert.Equal(t, 40.0, *req.Moisture)
	assert.Equal(t, "Black", *req.Soil)
}

func TestSubmitSuccess(t *testing.T) {
	p := &fakePredictor{pred: &backend.Prediction{
		Mode: backend.ModeCrop,
		Crop: &backend.CropResult{Crop: "rice", Confidence: "92.35"},
	}}
	o := NewOrchestrator(p)
	d := &recorder{}

	st, err := o.Submit(context.Background(), session.New(session.ModeCrop), cropValues(), d)
	require.NoError(t, err)

	assert.Equal(t, []string{"clear", "loading:on", "result", "loading:off"}, d.calls)
	require.NotNil(t, d.result)
	assert.Equal(t, "rice", d.result.Highlight)
	assert.False(t, st.Loading)
	assert.False(t, d.loading)
	assert.Equal(t, PhaseIdle, o.Phase())
	assert.False(t, o.InFlight())
}

func TestFinishRendersRequestedMode(t *testing.T) {
	p := &fakePredictor{pred: &backend.Prediction{
		Mode: backend.ModeCrop,
		Crop: &backend.CropResult{Crop: "rice", Confidence: "92.35"},
	}}
	o := NewOrchestrator(p)
	d := &recorder{}

	st, req, err := o.Begin(session.New(session.ModeCrop), cropValues(), d)
	require.NoError(t, err)
	pred, err := o.Execute(context.Background(), req)
	require.NoError(t, err)

	st = session.Reduce(st, session.ModeSelected{Mode: session.ModeFertilizer})
	st = o.Finish(st, pred, nil, d)

	require.NotNil(t, d.result)
	assert.Equal(t, "Recommended Crop", d.result.Heading)
	assert.Equal(t, "rice", d.result.Highlight)
	assert.Equal(t, session.ModeFertilizer, st.Mode)
}

func TestSubmitValidationMakesNoRequest(t *testing.T) {
	p := &fakePredictor{}
	o := NewOrchestrator(p)
	d := &recorder{}

	v := cropValues()
	v[FieldN] = ""
	st, err := o.Submit(context.Background(), session.New(session.ModeCrop), v, d)

	require.Error(t, err)
	assert.Equal(t, 0, p.calls)
	assert.Equal(t, "Please fill in the n field", d.err)
	assert.Equal(t, []string{"clear", "error"}, d.calls)
	assert.False(t, st.Loading)
	assert.False(t, o.InFlight())
}

func TestSubmitFailuresRestoreLoading(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"invalid json", backend.NewInvalidJSONError(500, nil), backend.MsgInvalidJSON},
		{"server error text", backend.NewServerError(400, "Invalid mode specified"), "Invalid mode specified"},
		{"server error default", backend.NewServerError(500, ""), backend.MsgServerError},
		{"empty", backend.NewEmptyResultError(), backend.MsgEmptyResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(&fakePredictor{err: tt.err})
			d := &recorder{}

			st, err := o.Submit(context.Background(), session.New(session.ModeCrop), cropValues(), d)
			require.Error(t, err)
			assert.Equal(t, tt.msg, d.err)
			assert.Nil(t, d.result)
			assert.False(t, st.Loading)
			assert.Equal(t, "loading:off", d.calls[len(d.calls)-1])
		})
	}
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	p := &fakePredictor{
		block: make(chan struct{}),
		pred:  &backend.Prediction{Mode: backend.ModeCrop, Crop: &backend.CropResult{Crop: "rice"}},
	}
	o := NewOrchestrator(p)

	st, req, err := o.Begin(session.New(session.ModeCrop), cropValues(), &recorder{})
	require.NoError(t, err)
	assert.True(t, st.Loading)
	assert.Equal(t, PhaseSubmitting, o.Phase())

	_, err = o.Submit(context.Background(), st, cropValues(), &recorder{})
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	done := make(chan struct{})
	go func() {
		defer close(done)
		pred, err := o.Execute(context.Background(), req)
		o.Finish(st, pred, err, &recorder{})
	}()
	close(p.block)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not finish")
	}
	assert.False(t, o.InFlight())
	assert.Equal(t, 1, p.calls)
}

func TestSubmitAgainstGateway(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"crop":"maize","suitability":82.5,"recommendations":[],"table_data":[]}`))
	}))
	defer srv.Close()

	o := NewOrchestrator(backend.NewClient(srv.URL, 5*time.Second))
	d := &recorder{}
	v := cropValues()
	v[FieldCropName] = "maize"

	_, err := o.Submit(context.Background(), session.New(session.ModeSuitability), v, d)
	require.NoError(t, err)
	assert.Equal(t, "suitability", got["mode"])
	assert.Equal(t, "maize", got["crop_name"])
	assert.NotContains(t, got, "soil")
	require.NotNil(t, d.result)
	assert.Equal(t, render.TierHigh, d.result.Bar.Tier)
}

func TestSetMode(t *testing.T) {
	d := &recorder{}
	st := SetMode(session.New(session.ModeCrop), session.ModeFertilizer, d)

	assert.Equal(t, session.ModeFertilizer, st.Mode)
	assert.Equal(t, session.ModeFertilizer, d.mode)
	assert.True(t, d.cfg.ShowSoil)
	assert.Equal(t, "Recommend Fertilizer", d.cfg.SubmitLabel)
	assert.Equal(t, []string{"mode:fertilizer", "clear"}, d.calls)

	d2 := &recorder{}
	same := SetMode(st, "orchard", d2)
	assert.Equal(t, st, same)
	assert.Empty(t, d2.calls)
}
