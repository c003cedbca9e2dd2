package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/terradetect/terradetect/internal/sensor"
)

// Modes accepted by POST /predict.
const (
	ModeCrop        = "crop"
	ModeSuitability = "suitability"
	ModeFertilizer  = "fertilizer"
)

// PredictRequest is the JSON body of POST /predict. Optional fields are
// omitted when the active mode does not use them.
type PredictRequest struct {
	Mode          string   `json:"mode"`
	N             float64  `json:"N"`
	P             float64  `json:"P"`
	K             float64  `json:"K"`
	PH            float64  `json:"ph"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
	Rainfall      *float64 `json:"rainfall,omitempty"`
	CropName      *string  `json:"crop_name,omitempty"`
	Soil          *string  `json:"soil,omitempty"`
	Moisture      *float64 `json:"moisture,omitempty"`
	EC            *float64 `json:"ec,omitempty"`
	UseSensorData bool     `json:"use_sensor_data"`
}

// Text is a display string decoded from any JSON scalar. Numbers keep their
// literal form so "92.35" renders exactly as sent.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Number is a float decoded from a JSON number or numeric string. Raw keeps
// the literal for display.
type Number struct {
	Value float64
	Raw   string
}

func (n *Number) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(t))
	if raw == "" {
		*n = Number{}
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("not a number: %q", raw)
	}
	*n = Number{Value: v, Raw: raw}
	return nil
}

func (n Number) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// CropResult is the crop mode response.
type CropResult struct {
	Crop                Text `json:"crop"`
	Confidence          Text `json:"confidence"`
	CropPredicted       Text `json:"crop-predicted,omitempty"`
	ConfidencePredicted Text `json:"confidence-predicted,omitempty"`
}

// TableRow is one parameter comparison in a suitability response.
type TableRow struct {
	Parameter   Text `json:"parameter"`
	Recommended Text `json:"recommended"`
	Observed    Text `json:"observed"`
	Remarks     Text `json:"remarks"`
}

// SuitabilityResult is the suitability mode response.
type SuitabilityResult struct {
	Crop            Text       `json:"crop"`
	Suitability     Number     `json:"suitability"`
	Recommendations []Text     `json:"recommendations"`
	TableData       []TableRow `json:"table_data"`
}

// Deficiencies flags nutrients below the crop's need; positive means deficient.
type Deficiencies struct {
	N Number `json:"N"`
	P Number `json:"P"`
	K Number `json:"K"`
}

// Any reports whether at least one nutrient is deficient.
func (d Deficiencies) Any() bool {
	return d.N.Value > 0 || d.P.Value > 0 || d.K.Value > 0
}

// FertilizerResult is the fertilizer mode response.
type FertilizerResult struct {
	Fertilizer       Text         `json:"fertilizer"`
	Composition      Text         `json:"composition"`
	Application      Text         `json:"application"`
	Rationale        Text         `json:"rationale"`
	Deficiencies     Deficiencies `json:"deficiencies"`
	NitrogenAdvice   Text         `json:"nitrogen_advice"`
	PhosphorusAdvice Text         `json:"phosphorus_advice"`
	PotassiumAdvice  Text         `json:"potassium_advice"`
	CropName         Text         `json:"crop_name"`
}

// Prediction is a decoded /predict response. Exactly one of the result
// pointers is set, chosen by Mode.
type Prediction struct {
	Mode        string
	Crop        *CropResult
	Suitability *SuitabilityResult
	Fertilizer  *FertilizerResult
	Raw         json.RawMessage
}

// TriggerResponse is the gateway's answer to a sensor trigger.
type TriggerResponse struct {
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
}

// SensorResponse is the gateway's answer to a sensor fetch. Timestamp is
// when the channel entry was written.
type SensorResponse struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Data      sensor.Reading `json:"data,omitempty"`
	EntryID   int            `json:"entry_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// OK reports a successful status. "success" is accepted from older gateways.
func (r *SensorResponse) OK() bool {
	return r.Status == "ok" || r.Status == "success"
}
