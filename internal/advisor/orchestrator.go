package advisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/backend"
	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/render"
	"github.com/terradetect/terradetect/internal/session"
)

// ErrSubmissionInFlight is returned when Submit is called while an earlier
// submission has not finished.
var ErrSubmissionInFlight = errors.New("a submission is already in progress")

// Display is what the orchestrator needs from a user interface. There is a
// single result panel and a single error panel; showing one does not hide
// the other, ClearPanels hides both.
type Display interface {
	ShowLoading(loading bool)
	ShowError(msg string)
	ShowResult(f render.Fragment)
	ClearPanels()
}

// ModeView is a Display that can also relayout the form for a mode.
type ModeView interface {
	Display
	ApplyMode(mode session.Mode, cfg session.ModeConfig)
}

// Predictor sends a prediction request.
type Predictor interface {
	Predict(ctx context.Context, req *backend.PredictRequest) (*backend.Prediction, error)
}

// Phase is the submission lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "success"
	case PhaseFailed:
		return "error"
	default:
		return "unknown"
	}
}

// Orchestrator runs form submissions one at a time.
//
// Submit does the whole round trip. Interfaces with an event loop split it:
// Begin on the loop, Execute in the background, Finish back on the loop.
type Orchestrator struct {
	predictor Predictor

	inFlight atomic.Bool

	mu    sync.Mutex
	phase Phase
}

// NewOrchestrator creates an orchestrator sending requests to p.
func NewOrchestrator(p Predictor) *Orchestrator {
	return &Orchestrator{predictor: p}
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// InFlight reports whether a submission has begun and not finished.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	from := o.phase
	o.phase = p
	o.mu.Unlock()
	if from != p {
		logging.LogTransition("submission", from.String(), p.String())
	}
}

// Begin clears the panels, validates v and builds the request. On a
// validation failure the message is shown, no request is built and the
// orchestrator is idle again. Otherwise the returned state is loading and
// Finish must be called.
func (o *Orchestrator) Begin(st session.State, v Values, d Display) (session.State, *backend.PredictRequest, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return st, nil, ErrSubmissionInFlight
	}

	d.ClearPanels()
	o.setPhase(PhaseValidating)

	req, err := BuildRequest(st, v)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			d.ShowError(ve.Message)
		} else {
			d.ShowError(backend.UserMessage(err))
		}
		logging.Debug("Submission blocked by validation", zap.Error(err))
		o.setPhase(PhaseIdle)
		o.inFlight.Store(false)
		return st, nil, err
	}

	st = session.Reduce(st, session.LoadingChanged{Loading: true})
	d.ShowLoading(true)
	o.setPhase(PhaseSubmitting)
	return st, req, nil
}

// Execute sends the request. It touches no display and may run off the
// event loop.
func (o *Orchestrator) Execute(ctx context.Context, req *backend.PredictRequest) (*backend.Prediction, error) {
	start := time.Now()
	p, err := o.predictor.Predict(ctx, req)
	logging.Debug("Prediction request finished",
		zap.String("mode", req.Mode),
		zap.Bool("use_sensor_data", req.UseSensorData),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	return p, err
}

// Finish shows the outcome of Execute, restores the non-loading state and
// returns the orchestrator to idle. The result is rendered for the mode it
// was requested in, even if the form has switched since.
func (o *Orchestrator) Finish(st session.State, p *backend.Prediction, err error, d Display) session.State {
	if err != nil {
		d.ShowError(backend.UserMessage(err))
		o.setPhase(PhaseFailed)
	} else {
		mode := string(st.Mode)
		if p != nil && p.Mode != "" {
			mode = p.Mode
		}
		d.ShowResult(render.Result(mode, p))
		o.setPhase(PhaseSucceeded)
	}

	d.ShowLoading(false)
	st = session.Reduce(st, session.LoadingChanged{Loading: false})
	o.setPhase(PhaseIdle)
	o.inFlight.Store(false)
	return st
}

// Submit validates, sends and displays one submission.
func (o *Orchestrator) Submit(ctx context.Context, st session.State, v Values, d Display) (session.State, error) {
	st, req, err := o.Begin(st, v, d)
	if err != nil {
		return st, err
	}
	p, err := o.Execute(ctx, req)
	return o.Finish(st, p, err, d), err
}

// SetMode switches the form to mode: the view is relaid out and both
// panels are cleared. An unknown mode leaves state and view untouched.
func SetMode(st session.State, mode session.Mode, v ModeView) session.State {
	next := session.Reduce(st, session.ModeSelected{Mode: mode})
	if next.Mode != mode {
		return st
	}
	cfg, _ := session.ConfigFor(mode)
	v.ApplyMode(mode, cfg)
	v.ClearPanels()
	return next
}
