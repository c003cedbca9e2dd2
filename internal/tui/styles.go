package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/terradetect/terradetect/internal/version"
)

// Application branding constants
const (
	AppName = "TERRADETECT SOIL ADVISOR"
	Tagline = "crop, suitability and fertilizer advice"
)

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxFormWidth     = 100 // Form content never grows past this
	labelWidth       = 20  // Width of the field label column
	inputWidth       = 24
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#4E9F3D") // Leaf green
	SecondaryColor = lipgloss.Color("#8B5E34") // Soil brown
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red

	TextColor   = lipgloss.Color("#FFFFFF")
	SubtleColor = lipgloss.Color("#626262")
	BorderColor = lipgloss.Color("#4E9F3D")
	MutedBg     = lipgloss.Color("236")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginBottom(1)

	SectionStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Width(labelWidth)

	FocusedLabelStyle = LabelStyle.
				Foreground(PrimaryColor).
				Bold(true)

	// Buttons
	ButtonStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(MutedBg).
			Padding(0, 2).
			MarginRight(1)

	ActiveButtonStyle = ButtonStyle.
				Foreground(lipgloss.Color("#1A1A1A")).
				Background(PrimaryColor).
				Bold(true)

	FocusedButtonStyle = ButtonStyle.
				Foreground(TextColor).
				Background(SecondaryColor).
				Bold(true)

	DisabledButtonStyle = ButtonStyle.
				Foreground(SubtleColor)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	MessageStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Italic(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	ErrorPanelStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor)

	SensorPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(SecondaryColor).
				Padding(0, 2).
				MarginTop(1)
)

// RenderTitle renders a title with consistent styling
func RenderTitle(text string) string {
	return TitleStyle.Render(text)
}

// RenderSection renders a form section heading
func RenderSection(text string) string {
	return SectionStyle.Render(text)
}

// RenderButton renders a button. active marks the selected choice of a
// group; focused is the keyboard cursor.
func RenderButton(label string, active, focused, disabled bool) string {
	switch {
	case disabled:
		return DisabledButtonStyle.Render(label)
	case focused:
		return FocusedButtonStyle.Render("▸ " + label)
	case active:
		return ActiveButtonStyle.Render(label)
	default:
		return ButtonStyle.Render(label)
	}
}

// RenderError renders the error panel
func RenderError(text string, width int) string {
	return ErrorPanelStyle.Width(width - 2).Render("✗ " + text)
}

// BuildHeaderContent creates header content with app name and gateway
func BuildHeaderContent(gateway string) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + AppVersion())

	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(gateway)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// BuildFooterContent creates footer content with help text
func BuildFooterContent(helpText string) string {
	return lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(helpText)
}

// ContentWidth is the usable width inside the application container.
func ContentWidth(terminalWidth int) int {
	w := CalculateBoxWidth(terminalWidth) - 4
	if w > MaxFormWidth {
		w = MaxFormWidth
	}
	return w
}

// CalculateBoxWidth calculates the box width based on terminal width
func CalculateBoxWidth(terminalWidth int) int {
	if terminalWidth < MinTerminalWidth {
		return MinTerminalWidth
	}
	return terminalWidth
}

// RenderApplicationContainer wraps the screen in the bordered full-screen
// panel with the header on top and the help footer pinned to the bottom.
// content is expected to be the viewport output.
func RenderApplicationContainer(content, gateway, footerText string, terminalWidth, terminalHeight int) string {
	width := CalculateBoxWidth(terminalWidth)

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(width-4).
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(width-4).
		Padding(0, 1)

	inner := lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(BuildHeaderContent(gateway)),
		lipgloss.NewStyle().Width(width-4).Render(content),
		footerStyle.Render(BuildFooterContent(footerText)),
	)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(width - 2).
		Height(terminalHeight - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}

// chromeHeight is the number of lines the container uses around the
// content: outer border, header with its rule, footer with its rule.
const chromeHeight = 2 + 2 + 2
