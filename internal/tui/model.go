package tui

import (
	"context"
	"errors"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/advisor"
	"github.com/terradetect/terradetect/internal/backend"
	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/render"
	"github.com/terradetect/terradetect/internal/session"
	"github.com/terradetect/terradetect/internal/source"
)

var (
	_ advisor.ModeView = (*form)(nil)
	_ source.View      = (*form)(nil)
)

// Messages reporting background work back to the update loop.
type (
	predictionMsg struct {
		prediction *backend.Prediction
		err        error
	}
	acquiredMsg struct {
		gen     uint64
		outcome source.Outcome
	}
	progressMsg string
	copiedMsg   struct{ err error }
)

// Deps are the collaborators of the form.
type Deps struct {
	Orchestrator *advisor.Orchestrator
	Sources      *source.Controller

	// GatewayURL is shown in the header.
	GatewayURL  string
	DefaultMode session.Mode
	DefaultSoil string

	// Copy writes text to the clipboard. Defaults to the system clipboard.
	Copy func(string) error
}

// Model is the advisory form screen.
type Model struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc

	state    session.State
	form     *form
	cursor   int
	progress chan string

	// acquisition numbers source acquisitions; stale outcomes are dropped.
	acquisition uint64

	Spinner  spinner.Model
	Viewport viewport.Model
	Help     help.Model
	Keys     keyMap

	Width  int
	Height int
}

// New creates the form. The controller's Progress hook is pointed at the
// form's status line.
func New(deps Deps) Model {
	if deps.Copy == nil {
		deps.Copy = clipboard.WriteAll
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		state:    session.New(deps.DefaultMode),
		form:     newForm(deps.DefaultSoil),
		progress: make(chan string, 8),
		Spinner:  s,
		Viewport: viewport.New(MinTerminalWidth, 20),
		Help:     help.New(),
		Keys:     newKeyMap(),
		Width:    MinTerminalWidth + 20,
		Height:   30,
	}

	progress := m.progress
	deps.Sources.Progress = func(msg string) {
		select {
		case progress <- msg:
		default:
			logging.Debug("Dropping progress message", zap.String("message", msg))
		}
	}

	m.state = advisor.SetMode(m.state, m.state.Mode, m.form)
	m.focusCurrent()
	m.refresh()
	return m
}

// State returns the current session snapshot.
func (m Model) State() session.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, textinput.Blink, m.listenProgress())
}

// listenProgress waits for the next waiting message from the source
// controller. It re-arms itself from Update.
func (m Model) listenProgress() tea.Cmd {
	ch, ctx := m.progress, m.ctx
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return progressMsg(msg)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progressMsg:
		m.form.ShowMessage(string(msg))
		cmds = append(cmds, m.listenProgress())

	case predictionMsg:
		m.state = m.deps.Orchestrator.Finish(m.state, msg.prediction, msg.err, m.form)

	case acquiredMsg:
		if msg.gen != m.acquisition {
			logging.Debug("Dropping stale acquisition", zap.String("source", string(msg.outcome.Source)))
			break
		}
		m.state = source.Apply(m.state, msg.outcome, m.form)

	case copiedMsg:
		if msg.err != nil {
			m.form.notice = "Clipboard unavailable: " + msg.err.Error()
		} else {
			m.form.notice = "Result copied to clipboard"
		}

	case tea.KeyMsg:
		var cmd tea.Cmd
		var quit bool
		m, cmd, quit = m.handleKey(msg)
		if quit {
			m.cancel()
			m.deps.Sources.Cancel()
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, nil, true

	case key.Matches(msg, m.Keys.Help):
		m.Help.ShowAll = !m.Help.ShowAll
		return m, nil, false

	case key.Matches(msg, m.Keys.Next):
		if !m.acceptSuggestion(msg) {
			m.moveCursor(1)
		}
		return m, textinput.Blink, false

	case key.Matches(msg, m.Keys.Prev):
		m.moveCursor(-1)
		return m, textinput.Blink, false

	case key.Matches(msg, m.Keys.Submit):
		cmd := m.submit()
		return m, cmd, false

	case key.Matches(msg, m.Keys.Reset):
		m.resetForm()
		return m, nil, false

	case key.Matches(msg, m.Keys.UseData):
		m.useSensorData()
		return m, nil, false

	case key.Matches(msg, m.Keys.Copy):
		return m, m.copyResult(), false

	case key.Matches(msg, m.Keys.Cancel):
		m.cancelAcquisition()
		return m, nil, false

	case key.Matches(msg, m.Keys.PageUp):
		m.Viewport.LineUp(max(1, m.Viewport.Height/2))
		return m, nil, false

	case key.Matches(msg, m.Keys.PageDown):
		m.Viewport.LineDown(max(1, m.Viewport.Height/2))
		return m, nil, false
	}

	it := m.current()
	switch it.kind {
	case itemInput:
		if key.Matches(msg, m.Keys.Activate) {
			m.moveCursor(1)
			return m, textinput.Blink, false
		}
		ti := m.form.inputs[it.field]
		updated, cmd := ti.Update(msg)
		*ti = updated
		return m, cmd, false

	case itemSoil:
		switch {
		case key.Matches(msg, m.Keys.Left):
			m.form.cycleSoil(-1)
		case key.Matches(msg, m.Keys.Right), key.Matches(msg, m.Keys.Activate):
			m.form.cycleSoil(1)
		}
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.Keys.Left):
		m.moveCursor(-1)
		return m, nil, false
	case key.Matches(msg, m.Keys.Right):
		m.moveCursor(1)
		return m, nil, false
	case key.Matches(msg, m.Keys.Activate), msg.String() == " ":
		cmd := m.activate(it)
		return m, cmd, false
	case msg.String() == "?":
		m.Help.ShowAll = !m.Help.ShowAll
	}
	return m, nil, false
}

// acceptSuggestion lets tab complete the crop name when a suggestion is
// showing.
func (m *Model) acceptSuggestion(msg tea.KeyMsg) bool {
	it := m.current()
	if it.kind != itemInput || it.field != advisor.FieldCropName || msg.String() != "tab" {
		return false
	}
	ti := m.form.inputs[it.field]
	sug := ti.CurrentSuggestion()
	if sug == "" || sug == ti.Value() {
		return false
	}
	ti.SetValue(sug)
	ti.CursorEnd()
	return true
}

func (m *Model) activate(it item) tea.Cmd {
	switch it.kind {
	case itemMode:
		m.form.notice = ""
		m.state = advisor.SetMode(m.state, it.mode, m.form)
		m.clampCursor()
	case itemSource:
		return m.selectSource(it.source)
	case itemSubmit:
		return m.submit()
	case itemReset:
		m.resetForm()
	case itemUseData:
		m.useSensorData()
	case itemCopy:
		return m.copyResult()
	}
	return nil
}

// submit runs validation on the loop and sends the request in the
// background.
func (m *Model) submit() tea.Cmd {
	st, req, err := m.deps.Orchestrator.Begin(m.state, m.form.Values(), m.form)
	m.state = st
	if err != nil {
		if errors.Is(err, advisor.ErrSubmissionInFlight) {
			logging.Debug("Submit ignored while a submission is in flight")
		}
		return nil
	}

	orch, ctx := m.deps.Orchestrator, m.ctx
	return func() tea.Msg {
		p, err := orch.Execute(ctx, req)
		return predictionMsg{prediction: p, err: err}
	}
}

func (m *Model) selectSource(src session.WeatherSource) tea.Cmd {
	m.acquisition++
	m.state = m.deps.Sources.Begin(m.state, src, m.form)
	if src == session.SourceManual {
		return nil
	}
	ctrl, ctx, gen := m.deps.Sources, m.ctx, m.acquisition
	return func() tea.Msg {
		return acquiredMsg{gen: gen, outcome: ctrl.Acquire(ctx, src)}
	}
}

// cancelAcquisition returns to manual entry. The acquisition may not have
// started yet, so the waiting state is cleared here as well.
func (m *Model) cancelAcquisition() {
	if m.state.WeatherSource == session.SourceManual {
		return
	}
	m.selectSource(session.SourceManual)
	m.form.ShowMessage("")
	if !m.deps.Orchestrator.InFlight() {
		m.form.ShowLoading(false)
		m.state = session.Reduce(m.state, session.LoadingChanged{Loading: false})
	}
	m.clampCursor()
}

func (m *Model) useSensorData() {
	st, err := source.UseSensorData(m.state, m.form)
	m.state = st
	if err == nil {
		m.form.notice = "Sensor values copied into the form"
	}
}

func (m *Model) resetForm() {
	m.form.reset()
	if !m.deps.Orchestrator.InFlight() {
		m.state = session.Reduce(m.state, session.FormReset{})
	}
	m.clampCursor()
}

func (m *Model) copyResult() tea.Cmd {
	if m.form.result == nil {
		return nil
	}
	text := render.PlainText(*m.form.result)
	copyFn := m.deps.Copy
	return func() tea.Msg {
		return copiedMsg{err: copyFn(text)}
	}
}

// refresh re-renders the body into the viewport and keeps the focused
// control, or a freshly shown panel, in view.
func (m *Model) refresh() {
	if m.cursor >= len(m.items()) {
		m.clampCursor()
	}
	footer := m.Help.View(m.Keys)
	m.Help.Width = CalculateBoxWidth(m.Width) - 6
	m.Viewport.Width = CalculateBoxWidth(m.Width) - 4
	h := m.Height - chromeHeight - (lineCount(footer) - 1)
	if h < 3 {
		h = 3
	}
	m.Viewport.Height = h

	body := m.renderBody(ContentWidth(m.Width))
	m.Viewport.SetContent(body.content)

	if m.form.scrollToPanel && body.panelLine >= 0 {
		m.form.scrollToPanel = false
		m.Viewport.SetYOffset(body.panelLine)
		return
	}
	switch {
	case body.focusLine < m.Viewport.YOffset:
		m.Viewport.SetYOffset(body.focusLine)
	case body.focusLine >= m.Viewport.YOffset+m.Viewport.Height:
		m.Viewport.SetYOffset(body.focusLine - m.Viewport.Height + 1)
	}
}

func (m Model) View() string {
	return RenderApplicationContainer(m.Viewport.View(), m.deps.GatewayURL, m.Help.View(m.Keys), m.Width, m.Height)
}
