package render

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terradetect/terradetect/internal/backend"
)

func decode(t *testing.T, mode, body string) *backend.Prediction {
	t.Helper()
	p, err := backend.DecodePrediction(mode, 200, []byte(body))
	require.NoError(t, err)
	return p
}

func TestResultCrop(t *testing.T) {
	f := Result(backend.ModeCrop, decode(t, backend.ModeCrop, `{"crop":"rice","confidence":"92.35"}`))

	assert.Equal(t, "Recommended Crop", f.Heading)
	assert.Equal(t, "rice", f.Highlight)
	assert.Equal(t, []Detail{{Label: "Confidence", Value: "92.35%"}}, f.Details)
	assert.Nil(t, f.Bar)
	assert.Nil(t, f.Table)

	text := PlainText(f)
	assert.Contains(t, text, "Recommended Crop: rice")
	assert.Contains(t, text, "Confidence: 92.35%")
}

func TestResultCropNumericConfidenceVerbatim(t *testing.T) {
	f := Result(backend.ModeCrop, decode(t, backend.ModeCrop, `{"crop":"maize","confidence":87.5}`))
	assert.Equal(t, "87.5%", f.Details[0].Value)
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Tier
		color string
	}{
		{82.5, TierHigh, "#2ecc71"},
		{75.01, TierHigh, "#2ecc71"},
		{75, TierMedium, "#f39c12"},
		{50.5, TierMedium, "#f39c12"},
		{50, TierLow, "#e74c3c"},
		{0, TierLow, "#e74c3c"},
	}
	for _, tt := range tests {
		got := TierFor(tt.score)
		assert.Equal(t, tt.want, got, "score %v", tt.score)
		assert.Equal(t, tt.color, got.Color())
	}
}

func TestResultSuitability(t *testing.T) {
	body := `{
		"crop": "maize",
		"suitability": 82.5,
		"recommendations": [],
		"table_data": [
			{"parameter":"N","recommended":"60-100","observed":90,"remarks":"Optimal"},
			{"parameter":"ph","recommended":"5.5-7.0","observed":"7.8","remarks":"Too high"}
		]
	}`
	f := Result(backend.ModeSuitability, decode(t, backend.ModeSuitability, body))

	assert.Equal(t, "maize", f.Highlight)
	require.NotNil(t, f.Bar)
	assert.Equal(t, 82.5, f.Bar.Percent)
	assert.Equal(t, "82.5%", f.Bar.Label)
	assert.Equal(t, TierHigh, f.Bar.Tier)

	require.NotNil(t, f.Table)
	require.Len(t, f.Table.Rows, 2)
	assert.True(t, f.Table.Rows[0].Optimal)
	assert.Equal(t, "90", f.Table.Rows[0].Observed)
	assert.False(t, f.Table.Rows[1].Optimal)

	text := PlainText(f)
	assert.Contains(t, text, OptimalMarker+" N: recommended 60-100, observed 90 (Optimal)")
	assert.Contains(t, text, WarningMarker+" ph: recommended 5.5-7.0, observed 7.8 (Too high)")
}

func TestResultSuitabilityRemarksMatchExactly(t *testing.T) {
	body := `{"crop":"rice","suitability":40,"table_data":[{"parameter":"K","recommended":"1","observed":"2","remarks":"optimal"}]}`
	f := Result(backend.ModeSuitability, decode(t, backend.ModeSuitability, body))
	assert.False(t, f.Table.Rows[0].Optimal)
	assert.Equal(t, TierLow, f.Bar.Tier)
}

func TestResultSuitabilityEmptyTable(t *testing.T) {
	body := `{"crop":"rice","suitability":60,"table_data":[]}`
	f := Result(backend.ModeSuitability, decode(t, backend.ModeSuitability, body))

	require.NotNil(t, f.Table)
	assert.Empty(t, f.Table.Rows)
	assert.Contains(t, PlainText(f), Placeholder)
	assert.Contains(t, View(f, 80), Placeholder)
}

func TestResultSuitabilityBarClamped(t *testing.T) {
	body := `{"crop":"rice","suitability":140,"table_data":[]}`
	f := Result(backend.ModeSuitability, decode(t, backend.ModeSuitability, body))
	assert.Equal(t, 100.0, f.Bar.Percent)
	assert.Equal(t, "140%", f.Bar.Label)
}

func TestResultSuitabilityNonFiniteScore(t *testing.T) {
	p := &backend.Prediction{
		Mode: backend.ModeSuitability,
		Suitability: &backend.SuitabilityResult{
			Crop:        "rice",
			Suitability: backend.Number{Value: math.NaN(), Raw: "NaN"},
		},
	}
	f := Result(backend.ModeSuitability, p)
	require.NotNil(t, f.Bar)
	assert.Equal(t, 0.0, f.Bar.Percent)

	assert.NotPanics(t, func() { View(f, 80) })
	assert.NotPanics(t, func() { viewBar(Bar{Percent: math.Inf(1), Label: "?"}, 40) })
}

func TestResultFertilizerDeficient(t *testing.T) {
	body := `{
		"fertilizer": "Urea",
		"composition": "46-0-0",
		"application": "Split dose",
		"deficiencies": {"N": 20, "P": 0, "K": 5},
		"nitrogen_advice": "Add nitrogen",
		"phosphorus_advice": "Add phosphorus",
		"potassium_advice": "Add potash",
		"crop_name": "rice"
	}`
	f := Result(backend.ModeFertilizer, decode(t, backend.ModeFertilizer, body))

	assert.Equal(t, "Urea", f.Highlight)
	assert.Equal(t, []Detail{
		{Label: "Composition", Value: "46-0-0"},
		{Label: "Application", Value: "Split dose"},
	}, f.Details)
	require.NotNil(t, f.Analysis)
	assert.Equal(t, []string{"Add nitrogen", "Add potash"}, f.Analysis.Warnings)
	assert.Empty(t, f.Analysis.Adequate)
	assert.Contains(t, PlainText(f), "Deficiencies Detected:")
}

func TestResultFertilizerAdequate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"with crop name",
			`{"fertilizer":"DAP","deficiencies":{"N":0,"P":-3,"K":0},"crop_name":"rice"}`,
			"Your soil has adequate nutrient levels for rice.",
		},
		{
			"missing crop name",
			`{"fertilizer":"DAP","deficiencies":{"N":0,"P":0,"K":0}}`,
			"Your soil has adequate nutrient levels for the selected crop.",
		},
		{
			"missing deficiencies",
			`{"fertilizer":"DAP"}`,
			"Your soil has adequate nutrient levels for the selected crop.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Result(backend.ModeFertilizer, decode(t, backend.ModeFertilizer, tt.body))
			require.NotNil(t, f.Analysis)
			assert.Empty(t, f.Analysis.Warnings)
			assert.Equal(t, tt.want, f.Analysis.Adequate)
		})
	}
}

func TestResultNilOrMismatched(t *testing.T) {
	assert.True(t, Result(backend.ModeCrop, nil).Empty())
	assert.True(t, Result(backend.ModeCrop, &backend.Prediction{Mode: backend.ModeCrop}).Empty())
}

func TestViewTruncatesWideCells(t *testing.T) {
	f := Fragment{
		Table: &Table{
			Title:   "Recommendations:",
			Columns: []string{"Parameter", "Recommended", "Observed", "Remarks"},
			Rows: []Row{{
				Parameter:   "temperature",
				Recommended: "20-30",
				Observed:    "25",
				Remarks:     strings.Repeat("very long remark ", 10),
			}},
		},
	}
	out := View(f, 60)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len([]rune(stripANSI(line))), 60)
	}
	assert.Contains(t, out, "…")
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
