// Package render turns prediction responses into display fragments.
//
// Result is pure: the same mode and prediction always give the same
// Fragment. View draws a fragment with lipgloss for the terminal UI and
// PlainText gives an unstyled version for the clipboard and piped output.
package render
