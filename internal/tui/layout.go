package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/terradetect/terradetect/internal/advisor"
	"github.com/terradetect/terradetect/internal/render"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/session"
	"github.com/terradetect/terradetect/internal/source"
)

type itemKind int

const (
	itemMode itemKind = iota
	itemSource
	itemInput
	itemSoil
	itemUseData
	itemSubmit
	itemReset
	itemCopy
)

// item is one focusable control.
type item struct {
	kind   itemKind
	mode   session.Mode
	source session.WeatherSource
	field  advisor.Field
}

// items lists the focusable controls of the current layout in tab order.
func (m Model) items() []item {
	var out []item
	for _, md := range session.Modes {
		out = append(out, item{kind: itemMode, mode: md})
	}
	for _, src := range session.Sources {
		out = append(out, item{kind: itemSource, source: src})
	}
	for _, f := range advisor.VisibleFields(m.form.mode) {
		if f == advisor.FieldSoil {
			out = append(out, item{kind: itemSoil, field: f})
			continue
		}
		out = append(out, item{kind: itemInput, field: f})
	}
	if m.form.sensorVisible {
		out = append(out, item{kind: itemUseData})
	}
	out = append(out, item{kind: itemSubmit}, item{kind: itemReset})
	if m.form.result != nil {
		out = append(out, item{kind: itemCopy})
	}
	return out
}

func (m Model) current() item {
	items := m.items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return item{kind: itemSubmit}
	}
	return items[m.cursor]
}

func (m *Model) moveCursor(delta int) {
	n := len(m.items())
	m.blurCurrent()
	m.cursor = ((m.cursor+delta)%n + n) % n
	m.focusCurrent()
}

// clampCursor keeps the cursor valid after the layout changed.
func (m *Model) clampCursor() {
	m.blurCurrent()
	if n := len(m.items()); m.cursor >= n {
		m.cursor = n - 1
	}
	m.focusCurrent()
}

func (m *Model) blurCurrent() {
	for _, ti := range m.form.inputs {
		ti.Blur()
	}
}

func (m *Model) focusCurrent() {
	if it := m.current(); it.kind == itemInput {
		m.form.inputs[it.field].Focus()
	}
}

type body struct {
	content   string
	focusLine int
	panelLine int
}

// lines collects rendered blocks and tracks line offsets.
type lines struct {
	b     strings.Builder
	count int
}

func (l *lines) add(block string) int {
	at := l.count
	if l.count > 0 {
		l.b.WriteString("\n")
	}
	l.b.WriteString(block)
	l.count += lineCount(block)
	return at
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}

func (m Model) renderBody(width int) body {
	var l lines
	cur := m.current()
	focusLine := 0
	mark := func(at int, it item) {
		if it == cur {
			focusLine = at
		}
	}

	title := m.form.cfg.Title
	if title == "" {
		title = AppName
	}
	l.add(RenderTitle(title))

	// Mode buttons
	var row []string
	for _, md := range session.Modes {
		cfg, _ := session.ConfigFor(md)
		it := item{kind: itemMode, mode: md}
		row = append(row, RenderButton(cfg.ButtonLabel, md == m.state.Mode, it == cur, false))
	}
	at := l.add(LabelStyle.Render("Mode") + lipgloss.JoinHorizontal(lipgloss.Top, row...))
	for _, md := range session.Modes {
		mark(at, item{kind: itemMode, mode: md})
	}

	// Weather source buttons
	row = row[:0]
	for _, src := range session.Sources {
		it := item{kind: itemSource, source: src}
		row = append(row, RenderButton(src.Label(), src == m.state.WeatherSource, it == cur, false))
	}
	at = l.add(LabelStyle.Render("Weather Source") + lipgloss.JoinHorizontal(lipgloss.Top, row...))
	for _, src := range session.Sources {
		mark(at, item{kind: itemSource, source: src})
	}

	if status := m.statusLine(); status != "" {
		l.add(status)
	}

	// Inputs, grouped
	visible := advisor.VisibleFields(m.form.mode)
	section := ""
	for _, f := range visible {
		if s := sectionFor(f); s != section {
			section = s
			l.add(RenderSection(s))
		}
		it := item{kind: itemInput, field: f}
		if f == advisor.FieldSoil {
			it.kind = itemSoil
		}
		mark(l.add(m.renderField(it, it == cur)), it)
	}

	if m.form.sensorVisible {
		l.add(renderSensorPanel(m.form.sensorData, width))
		it := item{kind: itemUseData}
		mark(l.add(RenderButton("Use Sensor Data", false, it == cur, false)), it)
	}

	// Actions
	submit := item{kind: itemSubmit}
	reset := item{kind: itemReset}
	label := m.form.cfg.SubmitLabel
	if m.form.loading {
		label = "Working..."
	}
	at = l.add("\n" + lipgloss.JoinHorizontal(lipgloss.Top,
		RenderButton(label, false, submit == cur, m.form.loading),
		RenderButton("Reset", false, reset == cur, false),
	))
	mark(at+1, submit)
	mark(at+1, reset)

	if m.form.notice != "" {
		l.add(NoticeStyle.Render(m.form.notice))
	}

	// Panels
	panelLine := -1
	if m.form.errMsg != "" {
		panelLine = l.add("\n" + RenderError(m.form.errMsg, width))
	}
	if m.form.result != nil {
		at := l.add("\n" + render.View(*m.form.result, width))
		if panelLine < 0 {
			panelLine = at
		}
		cp := item{kind: itemCopy}
		mark(l.add(RenderButton("Copy Result", false, cp == cur, false)), cp)
	}

	return body{content: l.b.String(), focusLine: focusLine, panelLine: panelLine}
}

func (m Model) statusLine() string {
	var parts []string
	if m.form.loading {
		parts = append(parts, m.Spinner.View())
	}
	if m.form.message != "" {
		parts = append(parts, MessageStyle.Render(m.form.message))
	} else if m.form.loading {
		parts = append(parts, MessageStyle.Render("Loading..."))
	}
	return strings.Join(parts, " ")
}

func sectionFor(f advisor.Field) string {
	switch f {
	case advisor.FieldN, advisor.FieldP, advisor.FieldK, advisor.FieldPH:
		return "Soil Nutrients"
	case advisor.FieldTemperature, advisor.FieldHumidity, advisor.FieldRainfall:
		return "Weather Conditions"
	default:
		return "Crop & Soil"
	}
}

func (m Model) renderField(it item, focused bool) string {
	label := LabelStyle.Render(it.field.Label())
	if focused {
		label = FocusedLabelStyle.Render(it.field.Label())
	}
	if it.kind == itemSoil {
		value := "‹ " + m.form.soilName() + " ›"
		if focused {
			value = FocusedButtonStyle.Render(value)
		}
		return label + value
	}
	return label + m.form.inputs[it.field].View()
}

var sensorPanelRows = [][]struct {
	label, key, unit string
}{
	{{"Temperature", sensor.Temperature, "°C"}, {"Humidity", sensor.Humidity, "%"}},
	{{"pH", sensor.PH, ""}, {"Moisture", sensor.Moisture, "%"}},
	{{"Nitrogen", sensor.Nitrogen, ""}, {"Phosphorus", sensor.Phosphorus, ""}},
	{{"Potassium", sensor.Potassium, ""}, {"EC", sensor.EC, ""}},
}

func renderSensorPanel(r sensor.Reading, width int) string {
	var b strings.Builder
	b.WriteString(SectionStyle.UnsetMarginTop().Render("Sensor Data"))
	for _, row := range sensorPanelRows {
		b.WriteString("\n")
		for i, c := range row {
			v := source.PanelValue(r, c.key)
			if v != "--" {
				v += c.unit
			}
			cell := fmt.Sprintf("%-12s %s", c.label+":", v)
			if i == 0 {
				cell = lipgloss.NewStyle().Width(26).Render(cell)
			}
			b.WriteString(cell)
		}
	}
	w := width - 2
	if w > 60 {
		w = 60
	}
	return SensorPanelStyle.Width(w).Render(b.String())
}
