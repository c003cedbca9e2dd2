package advisor

import (
	"strings"
	"unicode"

	"github.com/terradetect/terradetect/internal/session"
)

// Field names a form input.
type Field string

const (
	FieldN           Field = "N"
	FieldP           Field = "P"
	FieldK           Field = "K"
	FieldPH          Field = "ph"
	FieldTemperature Field = "temperature"
	FieldHumidity    Field = "humidity"
	FieldRainfall    Field = "rainfall"
	FieldCropName    Field = "cropName"
	FieldSoil        Field = "soil"
)

// AllFields lists every input in form order.
var AllFields = []Field{
	FieldN, FieldP, FieldK, FieldPH,
	FieldTemperature, FieldHumidity, FieldRainfall,
	FieldCropName, FieldSoil,
}

var (
	soilNutrients = []Field{FieldN, FieldP, FieldK, FieldPH}
	weatherFields = []Field{FieldTemperature, FieldHumidity, FieldRainfall}
)

// Humanize splits a camelCase name into lowercase words: cropName becomes
// "crop name", N becomes "n".
func Humanize(f Field) string {
	var b strings.Builder
	for i, r := range string(f) {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Label is the form label for the field.
func (f Field) Label() string {
	switch f {
	case FieldN:
		return "Nitrogen (N)"
	case FieldP:
		return "Phosphorus (P)"
	case FieldK:
		return "Potassium (K)"
	case FieldPH:
		return "pH"
	case FieldTemperature:
		return "Temperature (°C)"
	case FieldHumidity:
		return "Humidity (%)"
	case FieldRainfall:
		return "Rainfall (mm)"
	case FieldCropName:
		return "Crop Name"
	case FieldSoil:
		return "Soil Type"
	default:
		return string(f)
	}
}

// Numeric reports whether the field holds a number.
func (f Field) Numeric() bool {
	return f != FieldCropName && f != FieldSoil
}

// Values holds the raw text of each input.
type Values map[Field]string

// Get returns the trimmed value of f.
func (v Values) Get(f Field) string {
	return strings.TrimSpace(v[f])
}

// Clone returns an independent copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// SoilTypes are the soil choices, first is the default.
var SoilTypes = []string{"Black", "Clayey", "Loamy", "Red", "Sandy"}

// CropNames are suggestions for the crop name input. Any text is accepted.
var CropNames = []string{
	"rice", "maize", "chickpea", "kidneybeans", "pigeonpeas", "mothbeans",
	"mungbean", "blackgram", "lentil", "pomegranate", "banana", "mango",
	"grapes", "watermelon", "muskmelon", "apple", "orange", "papaya",
	"coconut", "cotton", "jute", "coffee",
}

// DefaultValues returns an empty form with the soil preset.
func DefaultValues(soil string) Values {
	v := make(Values, len(AllFields))
	for _, f := range AllFields {
		v[f] = ""
	}
	if soil == "" {
		soil = SoilTypes[0]
	}
	v[FieldSoil] = soil
	return v
}

// RequiredFields lists the fields that must be filled for mode, in the
// order they are checked.
func RequiredFields(mode session.Mode) []Field {
	req := append([]Field(nil), soilNutrients...)
	cfg, ok := session.ConfigFor(mode)
	if !ok {
		return req
	}
	if cfg.ShowWeather {
		req = append(req, weatherFields...)
	}
	if cfg.ShowCropName {
		req = append(req, FieldCropName)
	}
	return req
}

// VisibleFields lists the inputs shown for mode.
func VisibleFields(mode session.Mode) []Field {
	vis := append([]Field(nil), soilNutrients...)
	cfg, ok := session.ConfigFor(mode)
	if !ok {
		return vis
	}
	if cfg.ShowWeather {
		vis = append(vis, weatherFields...)
	}
	if cfg.ShowCropName {
		vis = append(vis, FieldCropName)
	}
	if cfg.ShowSoil {
		vis = append(vis, FieldSoil)
	}
	return vis
}
