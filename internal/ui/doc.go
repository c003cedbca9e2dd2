// Package ui provides terminal output components for the one-shot
// terradetect commands.
//
// Unlike the interactive form in package tui, these components render once
// and exit. They are plain strings built with Lipgloss and sized to the
// terminal width reported by golang.org/x/term.
//
// # Components
//
//   - Header: command banner with title and parameters
//   - Steps: numbered stage list with status markers
//   - Result: success, failure or warning box with details and
//     troubleshooting tips
//   - Raw box: verbatim text such as a response body in --verbose mode
//
// Runner ties them together: it prints the header, streams the steps as
// the operation reports them and closes with a result box.
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Sensor Reading",
//	    Command:   "terradetect sensor trigger",
//	    Params:    []ui.Param{{Key: "Gateway", Value: gatewayURL}},
//	    StepNames: []string{"Trigger sensors", "Wait for reading"},
//	})
//
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) (*ui.Result, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, ui.StepComplete, "")
//	    return ui.NewSuccessResult("Reading received"), nil
//	})
//
// # Logging
//
// Logging is controlled by TERRADETECT_LOG_LEVEL or --log-level. When unset
// zap is silent so only the curated output reaches the terminal.
package ui
