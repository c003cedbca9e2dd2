package sensor

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Reading field names.
const (
	Temperature = "temperature"
	Humidity    = "humidity"
	PH          = "ph"
	Nitrogen    = "N"
	Phosphorus  = "P"
	Potassium   = "K"
	Moisture    = "moisture"
	EC          = "ec"
)

// Fields lists every field a reading may carry, in display order.
var Fields = []string{Temperature, Humidity, PH, Nitrogen, Phosphorus, Potassium, Moisture, EC}

// Defaults applied by the gateway when a device or channel omits a field.
const (
	DefaultMoisture = 40.0
	DefaultEC       = 0.0
)

// Reading is one set of sensor values keyed by field name.
type Reading map[string]float64

// Get returns a value and whether it is present.
func (r Reading) Get(key string) (float64, bool) {
	v, ok := r[key]
	return v, ok
}

// Or returns the value for key, or def when it is absent or zero.
// Devices report zero for a probe that is not connected.
func (r Reading) Or(key string, def float64) float64 {
	if v, ok := r[key]; ok && v != 0 {
		return v
	}
	return def
}

// Clone returns an independent copy.
func (r Reading) Clone() Reading {
	if r == nil {
		return Reading{}
	}
	return maps.Clone(r)
}

// Empty reports whether no value has been recorded.
func (r Reading) Empty() bool {
	return len(r) == 0
}

// Require returns an error naming the first missing key.
func (r Reading) Require(keys ...string) error {
	for _, k := range keys {
		if _, ok := r[k]; !ok {
			return fmt.Errorf("missing required sensor field %q", k)
		}
	}
	return nil
}

// Record sources.
const (
	SourceThingSpeak = "thingspeak"
	SourceDevice     = "device"
)

// Record is a stored reading.
type Record struct {
	ID        string    `json:"id" bson:"_id"`
	DeviceID  string    `json:"device_id,omitempty" bson:"device_id,omitempty"`
	Source    string    `json:"source" bson:"source"`
	Values    Reading   `json:"data" bson:"data"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// NewRecord stamps a reading with a fresh ID.
func NewRecord(deviceID, source string, values Reading, at time.Time) Record {
	return Record{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		Source:    source,
		Values:    values.Clone(),
		Timestamp: at.UTC(),
	}
}
