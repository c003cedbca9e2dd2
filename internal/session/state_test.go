package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terradetect/terradetect/internal/sensor"
)

func TestNew(t *testing.T) {
	s := New(ModeFertilizer)
	assert.Equal(t, ModeFertilizer, s.Mode)
	assert.Equal(t, SourceManual, s.WeatherSource)
	assert.False(t, s.Loading)
	assert.False(t, s.HasSensorData())

	assert.Equal(t, ModeCrop, New("orchard").Mode)
}

func TestModeConfigTable(t *testing.T) {
	tests := []struct {
		mode                    Mode
		weather, cropName, soil bool
		submit, title, btnLabel string
	}{
		{ModeCrop, true, false, false, "Recommend Crop", "Find the Best Crop", "Crop"},
		{ModeSuitability, true, true, false, "Check Suitability", "Check Crop Suitability", "Suitability"},
		{ModeFertilizer, false, true, true, "Recommend Fertilizer", "Fertilizer Recommendation", "Fertilizer"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			c, ok := ConfigFor(tt.mode)
			require.True(t, ok)
			assert.Equal(t, tt.weather, c.ShowWeather)
			assert.Equal(t, tt.cropName, c.ShowCropName)
			assert.Equal(t, tt.soil, c.ShowSoil)
			assert.Equal(t, tt.submit, c.SubmitLabel)
			assert.Equal(t, tt.title, c.Title)
			assert.Equal(t, tt.btnLabel, c.ButtonLabel)
		})
	}

	_, ok := ConfigFor("orchard")
	assert.False(t, ok)
}

func TestReduceModeSelected(t *testing.T) {
	s := New(ModeCrop)
	next := Reduce(s, ModeSelected{Mode: ModeSuitability})
	assert.Equal(t, ModeSuitability, next.Mode)
	assert.Equal(t, ModeCrop, s.Mode, "input snapshot unchanged")

	same := Reduce(next, ModeSelected{Mode: "orchard"})
	assert.Equal(t, next, same, "unknown mode is a no-op")
}

func TestReduceSourceSelected(t *testing.T) {
	s := Reduce(New(ModeCrop), SourceSelected{Source: SourceSensor})
	assert.Equal(t, SourceSensor, s.WeatherSource)
	assert.True(t, s.UsesSensor())

	assert.Equal(t, s, Reduce(s, SourceSelected{Source: "satellite"}))
}

func TestReduceSensorDataIsCopied(t *testing.T) {
	reading := sensor.Reading{sensor.PH: 6.2}
	s := Reduce(New(ModeCrop), SensorDataStored{Reading: reading})
	reading[sensor.PH] = 9

	assert.Equal(t, 6.2, s.SensorData[sensor.PH])
	assert.True(t, s.HasSensorData())
}

func TestReduceFormResetKeepsSensorData(t *testing.T) {
	s := New(ModeSuitability)
	s = Reduce(s, SourceSelected{Source: SourceSensor})
	s = Reduce(s, SensorDataStored{Reading: sensor.Reading{sensor.Temperature: 30}})
	s = Reduce(s, LoadingChanged{Loading: true})

	reset := Reduce(s, FormReset{})
	assert.False(t, reset.Loading)
	assert.Equal(t, ModeSuitability, reset.Mode)
	assert.Equal(t, SourceSensor, reset.WeatherSource)
	assert.Equal(t, 30.0, reset.SensorData[sensor.Temperature])
}

func TestParse(t *testing.T) {
	m, err := ParseMode("fertilizer")
	require.NoError(t, err)
	assert.Equal(t, ModeFertilizer, m)
	_, err = ParseMode("Crop")
	assert.Error(t, err)

	src, err := ParseSource("api")
	require.NoError(t, err)
	assert.Equal(t, "Weather API", src.Label())
	_, err = ParseSource("")
	assert.Error(t, err)
}
