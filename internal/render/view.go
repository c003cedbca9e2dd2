package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Markers used by both views.
const (
	OptimalMarker = "✓"
	WarningMarker = "⚠"
)

var (
	headingStyle   = lipgloss.NewStyle().Bold(true)
	highlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4E9F3D"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).MarginTop(1)
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8B5E34"))
	optimalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f39c12"))
	adequateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71"))
	trackStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#3A3A3A"))
)

const minViewWidth = 40

// View draws the fragment for a terminal of the given width.
func View(f Fragment, width int) string {
	if width < minViewWidth {
		width = minViewWidth
	}
	var parts []string

	if f.Heading != "" {
		parts = append(parts, headingStyle.Render(f.Heading+": ")+highlightStyle.Render(f.Highlight))
	}
	for _, d := range f.Details {
		parts = append(parts, labelStyle.Render(d.Label+": ")+d.Value)
	}
	if f.Bar != nil {
		parts = append(parts, viewBar(*f.Bar, width))
	}
	if f.Table != nil {
		parts = append(parts, sectionStyle.Render(f.Table.Title), viewTable(*f.Table, width))
	}
	if f.Analysis != nil {
		parts = append(parts, sectionStyle.Render(f.Analysis.Title))
		if len(f.Analysis.Warnings) > 0 {
			parts = append(parts, warningStyle.Render("Deficiencies Detected:"))
			for _, w := range f.Analysis.Warnings {
				parts = append(parts, warningStyle.Render(WarningMarker+" ")+w)
			}
		} else {
			parts = append(parts, adequateStyle.Render(OptimalMarker+" "+f.Analysis.Adequate))
		}
	}

	return lipgloss.NewStyle().MaxWidth(width).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func viewBar(b Bar, width int) string {
	barWidth := width - runewidth.StringWidth(b.Label) - 1
	if barWidth > 50 {
		barWidth = 50
	} else if barWidth < 10 {
		barWidth = 10
	}
	filled := int(math.Round(b.Percent / 100 * float64(barWidth)))
	if !(filled >= 0) {
		filled = 0
	} else if filled > barWidth {
		filled = barWidth
	}
	fill := lipgloss.NewStyle().Foreground(lipgloss.Color(b.Tier.Color()))
	return fill.Render(strings.Repeat("█", filled)) +
		trackStyle.Render(strings.Repeat("░", barWidth-filled)) +
		" " + fill.Bold(true).Render(b.Label)
}

func viewTable(t Table, width int) string {
	if len(t.Rows) == 0 {
		return labelStyle.Render(Placeholder)
	}

	cols := len(t.Columns)
	widths := make([]int, cols)
	for i, c := range t.Columns {
		widths[i] = runewidth.StringWidth(c)
	}
	for _, r := range t.Rows {
		for i, cell := range r.cells() {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	// two spaces between columns, marker column in front
	avail := width - 2 - 2*(cols-1)
	if avail > 0 {
		fitWidths(widths, avail)
	}

	var lines []string
	lines = append(lines, "  "+headerStyle.Render(joinCells(t.Columns, widths)))
	for _, r := range t.Rows {
		line := joinCells(r.cells(), widths)
		if r.Optimal {
			lines = append(lines, optimalStyle.Render(OptimalMarker+" "+line))
		} else {
			lines = append(lines, warningStyle.Render(WarningMarker+" "+line))
		}
	}
	return strings.Join(lines, "\n")
}

func (r Row) cells() []string {
	return []string{r.Parameter, r.Recommended, r.Observed, r.Remarks}
}

// fitWidths shrinks the widest column until the row fits in avail cells.
func fitWidths(widths []int, avail int) {
	for {
		total, widest := 0, 0
		for i, w := range widths {
			total += w
			if w > widths[widest] {
				widest = i
			}
		}
		if total <= avail || widths[widest] <= 4 {
			return
		}
		widths[widest]--
	}
}

func joinCells(cells []string, widths []int) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if runewidth.StringWidth(c) > widths[i] {
			c = runewidth.Truncate(c, widths[i], "…")
		}
		out[i] = runewidth.FillRight(c, widths[i])
	}
	return strings.TrimRight(strings.Join(out, "  "), " ")
}

// PlainText renders the fragment without styling, for the clipboard and
// non-terminal output.
func PlainText(f Fragment) string {
	var b strings.Builder
	if f.Heading != "" {
		fmt.Fprintf(&b, "%s: %s\n", f.Heading, f.Highlight)
	}
	for _, d := range f.Details {
		fmt.Fprintf(&b, "%s: %s\n", d.Label, d.Value)
	}
	if f.Bar != nil {
		fmt.Fprintf(&b, "Suitability: %s (%s)\n", f.Bar.Label, f.Bar.Tier)
	}
	if f.Table != nil {
		fmt.Fprintf(&b, "\n%s\n", f.Table.Title)
		if len(f.Table.Rows) == 0 {
			b.WriteString(Placeholder + "\n")
		}
		for _, r := range f.Table.Rows {
			marker := WarningMarker
			if r.Optimal {
				marker = OptimalMarker
			}
			fmt.Fprintf(&b, "%s %s: recommended %s, observed %s (%s)\n",
				marker, r.Parameter, r.Recommended, r.Observed, r.Remarks)
		}
	}
	if f.Analysis != nil {
		fmt.Fprintf(&b, "\n%s\n", f.Analysis.Title)
		if len(f.Analysis.Warnings) > 0 {
			b.WriteString("Deficiencies Detected:\n")
			for _, w := range f.Analysis.Warnings {
				fmt.Fprintf(&b, "%s %s\n", WarningMarker, w)
			}
		} else {
			fmt.Fprintf(&b, "%s %s\n", OptimalMarker, f.Analysis.Adequate)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
