package tui

import (
	"slices"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/terradetect/terradetect/internal/advisor"
	"github.com/terradetect/terradetect/internal/render"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/session"
)

// form is the visible state of the advisory form: inputs, panels and the
// loading indicator. It implements advisor.ModeView and source.View. It is
// only touched from the Bubble Tea update loop.
type form struct {
	mode session.Mode
	cfg  session.ModeConfig

	inputs      map[advisor.Field]*textinput.Model
	soil        int
	defaultSoil int

	loading bool
	message string
	notice  string

	errMsg string
	result *render.Fragment

	sensorVisible bool
	sensorData    sensor.Reading

	// scrollToPanel asks the model to bring the result or error panel into
	// view on the next refresh.
	scrollToPanel bool
}

func newForm(defaultSoil string) *form {
	f := &form{inputs: make(map[advisor.Field]*textinput.Model)}
	for _, fld := range advisor.AllFields {
		if fld == advisor.FieldSoil {
			continue
		}
		ti := textinput.New()
		ti.Prompt = ""
		ti.Width = inputWidth
		ti.CharLimit = 16
		switch fld {
		case advisor.FieldCropName:
			ti.Placeholder = "e.g. rice"
			ti.CharLimit = 32
			ti.ShowSuggestions = true
			ti.SetSuggestions(advisor.CropNames)
		case advisor.FieldPH:
			ti.Placeholder = "0-14"
		default:
			ti.Placeholder = "0"
		}
		f.inputs[fld] = &ti
	}

	if i := slices.Index(advisor.SoilTypes, defaultSoil); i >= 0 {
		f.defaultSoil = i
	}
	f.soil = f.defaultSoil
	return f
}

// Values returns the current text of every input.
func (f *form) Values() advisor.Values {
	v := make(advisor.Values, len(advisor.AllFields))
	for fld, ti := range f.inputs {
		v[fld] = ti.Value()
	}
	v[advisor.FieldSoil] = f.soilName()
	return v
}

func (f *form) soilName() string {
	return advisor.SoilTypes[f.soil]
}

func (f *form) cycleSoil(delta int) {
	n := len(advisor.SoilTypes)
	f.soil = ((f.soil+delta)%n + n) % n
}

// reset clears every input and hides both panels. The sensor panel stays.
func (f *form) reset() {
	for _, ti := range f.inputs {
		ti.Reset()
	}
	f.soil = f.defaultSoil
	f.notice = ""
	f.ClearPanels()
}

func (f *form) ShowLoading(loading bool) {
	f.loading = loading
}

func (f *form) ShowError(msg string) {
	f.errMsg = msg
	f.scrollToPanel = true
}

func (f *form) ShowResult(fr render.Fragment) {
	f.result = &fr
	f.scrollToPanel = true
}

func (f *form) ClearPanels() {
	f.errMsg = ""
	f.result = nil
}

func (f *form) ApplyMode(mode session.Mode, cfg session.ModeConfig) {
	f.mode = mode
	f.cfg = cfg
}

func (f *form) ShowMessage(msg string) {
	f.message = msg
}

func (f *form) SetField(fld advisor.Field, value string) {
	if fld == advisor.FieldSoil {
		if i := slices.Index(advisor.SoilTypes, value); i >= 0 {
			f.soil = i
		}
		return
	}
	if ti, ok := f.inputs[fld]; ok {
		ti.SetValue(value)
	}
}

func (f *form) ShowSensorPanel(r sensor.Reading) {
	f.sensorData = r.Clone()
	f.sensorVisible = true
}

func (f *form) HideSensorPanel() {
	f.sensorVisible = false
}
