package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// Step is one stage of a multi-step command.
type Step struct {
	Number  int
	Name    string
	Status  StepStatus
	Message string // Optional note, e.g. "check 3 of 18"
}

// Steps tracks the stages of a command.
type Steps struct {
	Steps []Step
}

// NewSteps creates pending steps with the given names.
func NewSteps(names ...string) *Steps {
	s := &Steps{Steps: make([]Step, len(names))}
	for i, name := range names {
		s.Steps[i] = Step{Number: i + 1, Name: name}
	}
	return s
}

// Update sets the status and note of a step. Out of range numbers are
// ignored.
func (s *Steps) Update(number int, status StepStatus, message string) bool {
	if number < 1 || number > len(s.Steps) {
		return false
	}
	s.Steps[number-1].Status = status
	s.Steps[number-1].Message = message
	return true
}

// Completed counts complete and skipped steps.
func (s *Steps) Completed() int {
	n := 0
	for _, st := range s.Steps {
		if st.Status == StepComplete || st.Status == StepSkipped {
			n++
		}
	}
	return n
}

// RenderLine renders a single step line
func (s *Steps) RenderLine(step Step) string {
	var marker string
	var style lipgloss.Style
	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", step.Number, len(s.Steps))
	b.WriteString(style.Render(step.Name))

	// Align markers on one column
	padding := 40 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// Render returns every step, one per line
func (s *Steps) Render() string {
	lines := make([]string, len(s.Steps))
	for i, st := range s.Steps {
		lines[i] = s.RenderLine(st)
	}
	return strings.Join(lines, "\n")
}

// StepCallback reports progress on a step.
type StepCallback func(number int, status StepStatus, message string)

// RunnerConfig describes a command run by Runner.
type RunnerConfig struct {
	Title     string
	Command   string
	Params    []Param
	StepNames []string
	Output    io.Writer // Default: os.Stdout
	Width     int       // Default: terminal width

	// Troubleshoot returns tips for a failure. Optional.
	Troubleshoot func(error) []string
}

// Operation is the work of a command. It reports progress through onStep
// and returns the success box to print; nil prints a default one.
type Operation func(ctx context.Context, onStep StepCallback) (*Result, error)

// Runner prints a header, the steps as they finish and a closing result
// box around an operation.
type Runner struct {
	config RunnerConfig
	steps  *Steps
	out    io.Writer
	width  int
	tty    bool
}

// NewRunner creates a runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := config.Width
	if width == 0 {
		width = GetTerminalWidth()
	}
	return &Runner{
		config: config,
		steps:  NewSteps(config.StepNames...),
		out:    config.Output,
		width:  width,
		tty:    config.Output == os.Stdout && IsTerminal(),
	}
}

// Run executes op and returns its error after printing the result.
func (r *Runner) Run(ctx context.Context, op Operation) error {
	start := time.Now()

	header := NewHeader(r.config.Title, r.config.Command, r.config.Params...).SetWidth(r.width)
	_, _ = fmt.Fprintln(r.out, header.Render())
	_, _ = fmt.Fprintln(r.out)

	res, err := op(ctx, r.onStep)
	duration := time.Since(start).Round(time.Millisecond).String()
	_, _ = fmt.Fprintln(r.out)

	if err != nil {
		var tips []string
		if r.config.Troubleshoot != nil {
			tips = r.config.Troubleshoot(err)
		}
		fail := NewFailureResult(r.config.Title+" failed", err, tips...).SetWidth(r.width)
		fail.AddDetail("Duration", duration)
		_, _ = fmt.Fprintln(r.out, fail.Render())
		return err
	}

	if res == nil {
		res = NewSuccessResult(r.config.Title + " complete")
	}
	res.SetWidth(r.width).AddDetail("Duration", duration)
	_, _ = fmt.Fprintln(r.out, res.Render())
	return nil
}

func (r *Runner) onStep(number int, status StepStatus, message string) {
	if !r.steps.Update(number, status, message) {
		return
	}
	line := r.steps.RenderLine(r.steps.Steps[number-1])
	switch status {
	case StepRunning:
		// Overwritten in place when the step finishes
		if r.tty {
			_, _ = fmt.Fprint(r.out, line+"\r")
		}
	default:
		if r.tty {
			_, _ = fmt.Fprint(r.out, "\033[2K")
		}
		_, _ = fmt.Fprintln(r.out, line)
	}
}
