package advisor

import (
	"fmt"
	"math"
	"strconv"

	"github.com/terradetect/terradetect/internal/backend"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/session"
)

// ValidationError names the first field that blocks a submission.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func missing(f Field) *ValidationError {
	return &ValidationError{
		Field:   f,
		Message: fmt.Sprintf("Please fill in the %s field", Humanize(f)),
	}
}

func notNumber(f Field, raw string) *ValidationError {
	return &ValidationError{
		Field:   f,
		Message: fmt.Sprintf("The %s field must be a number (got %q)", Humanize(f), raw),
	}
}

// Validate checks the required fields of mode in order and returns the
// first problem.
func Validate(mode session.Mode, v Values) error {
	for _, f := range RequiredFields(mode) {
		raw := v.Get(f)
		if raw == "" {
			return missing(f)
		}
		if f.Numeric() {
			if _, err := parseNumber(raw); err != nil {
				return notNumber(f, raw)
			}
		}
	}
	return nil
}

func parseNumber(raw string) (float64, error) {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return n, nil
}

// BuildRequest validates v and assembles the /predict body for the state's
// mode. Fields the mode does not use are left nil and omitted from JSON.
func BuildRequest(st session.State, v Values) (*backend.PredictRequest, error) {
	if err := Validate(st.Mode, v); err != nil {
		return nil, err
	}
	cfg, ok := session.ConfigFor(st.Mode)
	if !ok {
		return nil, backend.NewValidationError(fmt.Sprintf("unknown mode %q", st.Mode))
	}

	num := func(f Field) float64 {
		n, _ := parseNumber(v.Get(f))
		return n
	}

	req := &backend.PredictRequest{
		Mode:          string(st.Mode),
		N:             num(FieldN),
		P:             num(FieldP),
		K:             num(FieldK),
		PH:            num(FieldPH),
		UseSensorData: st.UsesSensor(),
	}

	if cfg.ShowWeather {
		req.Temperature = ptr(num(FieldTemperature))
		req.Humidity = ptr(num(FieldHumidity))
		req.Rainfall = ptr(num(FieldRainfall))
	}
	if cfg.ShowCropName {
		req.CropName = ptr(v.Get(FieldCropName))
	}
	if cfg.ShowSoil {
		soil := v.Get(FieldSoil)
		if soil == "" {
			soil = SoilTypes[0]
		}
		req.Soil = ptr(soil)
		req.Moisture = ptr(st.SensorData.Or(sensor.Moisture, sensor.DefaultMoisture))
		req.EC = ptr(st.SensorData.Or(sensor.EC, sensor.DefaultEC))
	}
	return req, nil
}

func ptr[T any](v T) *T { return &v }
