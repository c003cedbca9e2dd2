package render

import (
	"fmt"
	"strings"

	"github.com/terradetect/terradetect/internal/backend"
)

// Placeholder is shown in an empty suitability table.
const Placeholder = "No recommendation data available"

// OptimalRemark marks a table row as within the crop's range.
const OptimalRemark = "Optimal"

// Tier buckets a suitability score.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

// TierFor returns the tier for a score: High above 75, Medium above 50.
func TierFor(score float64) Tier {
	switch {
	case score > 75:
		return TierHigh
	case score > 50:
		return TierMedium
	default:
		return TierLow
	}
}

// Color is the hex bar color for the tier.
func (t Tier) Color() string {
	switch t {
	case TierHigh:
		return "#2ecc71"
	case TierMedium:
		return "#f39c12"
	default:
		return "#e74c3c"
	}
}

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// Detail is a labelled line such as "Confidence: 92.35%".
type Detail struct {
	Label string
	Value string
}

// Bar is the suitability progress bar. Percent is clamped to 0..100 for
// drawing; Label keeps the value as the backend sent it.
type Bar struct {
	Percent float64
	Label   string
	Tier    Tier
}

// Row is one suitability comparison row.
type Row struct {
	Parameter   string
	Recommended string
	Observed    string
	Remarks     string
	Optimal     bool
}

// Table is the suitability comparison table. Rows is empty when the backend
// sent no data; views then show Placeholder.
type Table struct {
	Title   string
	Columns []string
	Rows    []Row
}

// Analysis is the fertilizer nutrient section. Warnings holds one advice line
// per deficient nutrient; Adequate is set when there are none.
type Analysis struct {
	Title    string
	Warnings []string
	Adequate string
}

// Fragment is a rendered result, independent of any output surface.
type Fragment struct {
	Mode      string
	Heading   string
	Highlight string
	Details   []Detail
	Bar       *Bar
	Table     *Table
	Analysis  *Analysis
}

// Result turns a decoded prediction into a fragment for the given mode. A
// nil prediction or a result missing for the mode yields an empty fragment.
func Result(mode string, p *backend.Prediction) Fragment {
	f := Fragment{Mode: mode}
	if p == nil {
		return f
	}
	switch mode {
	case backend.ModeCrop:
		if p.Crop != nil {
			crop(&f, p.Crop)
		}
	case backend.ModeSuitability:
		if p.Suitability != nil {
			suitability(&f, p.Suitability)
		}
	case backend.ModeFertilizer:
		if p.Fertilizer != nil {
			fertilizer(&f, p.Fertilizer)
		}
	}
	return f
}

func crop(f *Fragment, r *backend.CropResult) {
	f.Heading = "Recommended Crop"
	f.Highlight = r.Crop.String()
	f.Details = []Detail{{Label: "Confidence", Value: r.Confidence.String() + "%"}}
}

func suitability(f *Fragment, r *backend.SuitabilityResult) {
	f.Heading = "Suitability Analysis for"
	f.Highlight = r.Crop.String()

	score := r.Suitability.Value
	pct := score
	if !(pct >= 0) {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	f.Bar = &Bar{
		Percent: pct,
		Label:   r.Suitability.String() + "%",
		Tier:    TierFor(score),
	}

	t := &Table{
		Title:   "Recommendations:",
		Columns: []string{"Parameter", "Recommended", "Observed", "Remarks"},
	}
	for _, row := range r.TableData {
		t.Rows = append(t.Rows, Row{
			Parameter:   row.Parameter.String(),
			Recommended: row.Recommended.String(),
			Observed:    row.Observed.String(),
			Remarks:     row.Remarks.String(),
			Optimal:     row.Remarks.String() == OptimalRemark,
		})
	}
	f.Table = t
}

func fertilizer(f *Fragment, r *backend.FertilizerResult) {
	f.Heading = "Recommended Fertilizer"
	f.Highlight = r.Fertilizer.String()
	f.Details = []Detail{
		{Label: "Composition", Value: r.Composition.String()},
		{Label: "Application", Value: r.Application.String()},
	}

	a := &Analysis{Title: "Nutrient Analysis"}
	d := r.Deficiencies
	if d.Any() {
		if d.N.Value > 0 {
			a.Warnings = append(a.Warnings, r.NitrogenAdvice.String())
		}
		if d.P.Value > 0 {
			a.Warnings = append(a.Warnings, r.PhosphorusAdvice.String())
		}
		if d.K.Value > 0 {
			a.Warnings = append(a.Warnings, r.PotassiumAdvice.String())
		}
	} else {
		name := strings.TrimSpace(r.CropName.String())
		if name == "" {
			name = "the selected crop"
		}
		a.Adequate = fmt.Sprintf("Your soil has adequate nutrient levels for %s.", name)
	}
	f.Analysis = a
}

// Empty reports whether the fragment has nothing to show.
func (f Fragment) Empty() bool {
	return f.Heading == "" && len(f.Details) == 0 && f.Bar == nil && f.Table == nil && f.Analysis == nil
}
