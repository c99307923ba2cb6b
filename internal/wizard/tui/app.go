package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/lorasim/internal/provision"
)

// opDoneMsg reports that a wizard operation returned
type opDoneMsg struct {
	op  string
	err error
}

// Model is the Bubble Tea model for the provisioning wizard. It never holds
// its own copy of workflow rules: every key maps to a provision.Wizard call,
// and the screen is rendered from the wizard's state snapshot plus live
// events received while an operation runs.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	wiz  *provision.Wizard
	feed *Feed
	org  string

	state provision.State
	busy  string // Name of the running operation, empty when idle
	err   error

	// Live data gathered from events while an operation runs
	live     map[string]provision.EntityStatus
	outcomes []provision.Outcome

	cursor int

	Width  int
	Height int

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	bar      progress.Model
	viewport viewport.Model
}

// NewModel creates the wizard screen. feed must be the Feed whose Observer
// was passed to the wizard.
func NewModel(ctx context.Context, wiz *provision.Wizard, feed *Feed, org string) Model {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	vp := viewport.New(MinTerminalWidth-8, 10)

	return Model{
		ctx:      ctx,
		cancel:   cancel,
		wiz:      wiz,
		feed:     feed,
		org:      org,
		state:    wiz.State(),
		busy:     "validate",
		live:     map[string]provision.EntityStatus{},
		Width:    MinTerminalWidth,
		Height:   MinTerminalHeight + 10,
		keys:     newKeyMap(),
		help:     help.New(),
		spinner:  s,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		viewport: vp,
	}
}

// State returns the last wizard state the screen rendered
func (m Model) State() provision.State {
	return m.state
}

// Init starts validation straight away. NewModel already marked the
// model busy with it.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.feed.wait(), m.spinner.Tick, m.run("validate"))
}

// start marks the model busy and returns the command running op
func (m *Model) start(op string) tea.Cmd {
	m.busy = op
	m.err = nil
	if op == "discover" || op == "rediscover" || op == "back-discover" {
		m.live = map[string]provision.EntityStatus{}
	}
	if op == "next" && m.state.Current == provision.StepSelect {
		m.outcomes = nil
	}
	return m.run(op)
}

// run returns a command performing op on the wizard in the background
func (m Model) run(op string) tea.Cmd {
	wiz, ctx := m.wiz, m.ctx
	return func() tea.Msg {
		var err error
		switch op {
		case "validate":
			_, err = wiz.Validate(ctx)
		case "next", "discover":
			err = wiz.Next(ctx)
			// Execute has nothing to review once the summary is in
			if st := wiz.State(); err == nil && st.Current == provision.StepExecute && st.Steps[provision.StepExecute] == provision.StepPassed {
				err = wiz.Next(ctx)
			}
		case "rediscover":
			err = wiz.Rediscover(ctx)
		case "back-discover":
			err = wiz.Back(ctx, provision.StepDiscover)
		case "back-validate":
			err = wiz.Back(ctx, provision.StepValidate)
		}
		return opDoneMsg{op: op, err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.help.Width = msg.Width - 6
		m.viewport.Width = max(msg.Width-8, 20)
		m.viewport.Height = max(msg.Height-16, 5)
		m.refreshTable()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.applyEvent(provision.Event(msg))
		return m, m.feed.wait()

	case opDoneMsg:
		m.busy = ""
		m.state = m.wiz.State()
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.err = msg.err
		}
		m.clampCursor()
		m.refreshTable()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// applyEvent folds a live event into the display while an operation runs
func (m *Model) applyEvent(ev provision.Event) {
	switch ev.Type {
	case provision.EventEntity:
		if ev.Resolution != nil && m.busy != "" {
			m.live[ev.Resolution.LocalID] = ev.Resolution.Status
			m.refreshTable()
		}
	case provision.EventOutcome:
		if ev.Outcome != nil {
			m.outcomes = append(m.outcomes, *ev.Outcome)
		}
	case provision.EventStep:
		if m.busy == "" {
			return
		}
		m.state.Current = ev.Step
		m.state.Steps[ev.Step] = ev.Status
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) {
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.busy != "" {
		return m, nil
	}

	switch m.state.Current {
	case provision.StepValidate:
		switch {
		case key.Matches(msg, m.keys.Retry):
			cmd := m.start("validate")
			return m, cmd
		case key.Matches(msg, m.keys.Next):
			cmd := m.start("discover")
			return m, cmd
		}

	case provision.StepDiscover, provision.StepSelect:
		return m.handleSelectionKey(msg)

	case provision.StepExecute, provision.StepComplete:
		if key.Matches(msg, m.keys.Next) {
			m.cancel()
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) handleSelectionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entities := m.state.Entities
	onSelect := m.state.Current == provision.StepSelect

	var err error
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(entities)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if len(entities) > 0 {
			err = m.wiz.Toggle(entities[m.cursor].LocalID)
		}
	case key.Matches(msg, m.keys.All):
		err = m.wiz.SelectUnregistered()
	case key.Matches(msg, m.keys.None):
		err = m.wiz.SelectNone()
	case key.Matches(msg, m.keys.Retry):
		cmd := m.start("rediscover")
		return m, cmd
	case key.Matches(msg, m.keys.Back):
		if onSelect {
			cmd := m.start("back-discover")
			return m, cmd
		}
		cmd := m.start("back-validate")
		return m, cmd
	case onSelect && key.Matches(msg, m.keys.Confirm):
		err = m.wiz.Confirm()
	case onSelect && key.Matches(msg, m.keys.Edit):
		err = m.wiz.Unconfirm()
	case key.Matches(msg, m.keys.Next):
		cmd := m.start("next")
		return m, cmd
	default:
		return m, nil
	}

	m.err = err
	m.state = m.wiz.State()
	m.refreshTable()
	return m, nil
}

func (m *Model) clampCursor() {
	if n := len(m.state.Entities); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// Run shows the wizard full screen until the user quits, and returns the
// final state.
func Run(ctx context.Context, wiz *provision.Wizard, feed *Feed, org string) (provision.State, error) {
	p := tea.NewProgram(NewModel(ctx, wiz, feed, org), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		m.cancel()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = ctx.Err()
	}
	return wiz.State(), err
}
