package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/lorasim/internal/provision"
	"github.com/muurk/lorasim/internal/registry"
	"github.com/muurk/lorasim/internal/ui"
)

// View renders the current step inside the application container
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderStepper())
	b.WriteString("\n\n")

	switch m.state.Current {
	case provision.StepValidate:
		b.WriteString(m.viewValidate())
	case provision.StepDiscover, provision.StepSelect:
		b.WriteString(m.viewSelection())
	case provision.StepExecute, provision.StepComplete:
		b.WriteString(m.viewExecute())
	}

	if m.busy != "" {
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View() + " " + SubtitleStyle.Render(busyLabel(m.busy)))
	}
	if m.err != nil {
		b.WriteString("\n\n")
		b.WriteString(RenderError(errorText(m.err)))
	}

	return RenderApplicationContainer(m.org, b.String(), m.help.View(m.activeKeys()), m.Width, m.Height)
}

// renderStepper renders the five steps on one line
func (m Model) renderStepper() string {
	parts := make([]string, provision.NumSteps)
	for i := range parts {
		step := provision.Step(i)
		marker, style := ui.StepMarkerPending, ui.StepPendingStyle
		switch m.state.Steps[i] {
		case provision.StepActive:
			marker, style = ui.StepMarkerRunning, ui.StepRunningStyle
		case provision.StepPassed:
			marker, style = ui.StepMarkerComplete, ui.StepCompleteStyle
		case provision.StepFailed:
			marker, style = ui.FailureMarker, ui.ErrorTitleStyle
		}
		label := style.Render(marker + " " + step.Title())
		if step == m.state.Current {
			label = lipgloss.NewStyle().Underline(true).Render(label)
		}
		parts[i] = label
	}
	return strings.Join(parts, ui.StepNoteStyle.Render("  ›  "))
}

func (m Model) viewValidate() string {
	var b strings.Builder
	b.WriteString(RenderTitle("Validate connection"))
	b.WriteString("\n")

	if m.state.Validation != nil {
		b.WriteString(ui.RenderValidation(*m.state.Validation))
		if m.state.Validation.Success() {
			b.WriteString("\n\n")
			b.WriteString(NoticeStyle.Render(fmt.Sprintf("Ready. %d entities in inventory. Press enter to check them against the registry.", len(m.state.Entities))))
		} else if m.state.Validation.Err != nil {
			if tips := ui.Tips(registry.GetTroubleshootingHint(m.state.Validation.Err)); len(tips) > 0 {
				b.WriteString("\n\n")
				b.WriteString(InfoBoxStyle.Render("Troubleshooting:\n  • " + strings.Join(tips, "\n  • ")))
			}
		}
	}
	return b.String()
}

func (m Model) viewSelection() string {
	var b strings.Builder

	if m.state.Current == provision.StepDiscover {
		b.WriteString(RenderTitle("Discover inventory"))
	} else {
		b.WriteString(RenderTitle("Select & confirm"))
	}
	b.WriteString("\n")

	if len(m.state.Entities) == 0 {
		b.WriteString(SubtitleStyle.Render("The inventory is empty. Add entities with: lorasim-provision inventory add"))
		return b.String()
	}

	if m.busy != "" {
		done := len(m.live)
		b.WriteString(m.bar.ViewAs(float64(done) / float64(len(m.state.Entities))))
		b.WriteString(fmt.Sprintf("  %d/%d checked\n\n", done, len(m.state.Entities)))
	} else if d := m.state.Discovery; d != nil {
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("%d registered • %d not registered • %d errors • %d selected",
			d.Count(provision.StatusRegistered), d.Count(provision.StatusNotRegistered),
			d.Count(provision.StatusError), m.state.Selection.Len())))
		b.WriteString("\n\n")
	}

	b.WriteString(m.viewport.View())

	if m.state.Confirmed {
		b.WriteString("\n\n")
		b.WriteString(InfoBoxStyle.Render(ui.RenderPlans(m.state.Plans)))
		b.WriteString("\n")
		b.WriteString(NoticeStyle.Render("Press enter to register, e to change the selection."))
	} else if m.state.Current == provision.StepSelect {
		b.WriteString("\n\n")
		b.WriteString(SubtitleStyle.Render("Press c to review and confirm the registration plan."))
	}
	return b.String()
}

func (m Model) viewExecute() string {
	var b strings.Builder

	total := 0
	for _, p := range m.state.Plans {
		total += len(p.Targets)
	}

	if m.state.Current == provision.StepExecute && m.busy != "" {
		b.WriteString(RenderTitle("Registering"))
		b.WriteString("\n")
		pct := 0.0
		if total > 0 {
			pct = float64(len(m.outcomes)) / float64(total)
		}
		b.WriteString(m.bar.ViewAs(pct))
		b.WriteString(fmt.Sprintf("  %d/%d\n\n", len(m.outcomes), total))
	} else {
		b.WriteString(RenderTitle("Complete"))
		b.WriteString("\n")
	}

	outcomes := m.outcomes
	if m.state.Summary != nil {
		outcomes = m.state.Summary.Results
	}
	lines := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		lines = append(lines, ui.RenderOutcome(o))
	}
	// Keep the most recent lines visible on small terminals.
	if room := max(m.Height-20, 3); len(lines) > room {
		lines = append([]string{ui.StepNoteStyle.Render(fmt.Sprintf("  … %d more", len(lines)-room))}, lines[len(lines)-room:]...)
	}
	b.WriteString(strings.Join(lines, "\n"))

	if m.state.Summary != nil {
		b.WriteString("\n\n")
		b.WriteString(ui.SummaryResult(m.state.Summary).SetWidth(max(m.Width-6, ui.MinTerminalWidth)).Render())
	}
	return b.String()
}

// refreshTable re-renders the entity table into the viewport and scrolls
// so the cursor stays visible.
func (m *Model) refreshTable() {
	d := m.state.Discovery
	if m.busy != "" && len(m.live) > 0 {
		d = &provision.Discovery{Statuses: m.live}
	}

	var sel *provision.Selection
	if m.state.Discovery != nil {
		s := m.state.Selection
		sel = &s
	}
	m.viewport.SetContent(ui.RenderEntities(m.state.Entities, d, sel, m.cursor))

	// Line 0 is the table header.
	line := m.cursor + 1
	if line < m.viewport.YOffset+1 {
		m.viewport.SetYOffset(max(line-1, 0))
	} else if line >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

// activeKeys returns the bindings that do something on the current screen
func (m Model) activeKeys() stepKeys {
	k := m.keys
	var short []key.Binding

	switch {
	case m.busy != "":
		short = []key.Binding{k.Quit}
	case m.state.Current == provision.StepValidate:
		short = []key.Binding{k.Next, k.Retry, k.Quit}
	case m.state.Current == provision.StepDiscover:
		short = []key.Binding{k.Up, k.Down, k.Toggle, k.All, k.None, k.Next, k.Retry, k.Back, k.Quit}
	case m.state.Current == provision.StepSelect && m.state.Confirmed:
		short = []key.Binding{k.Next, k.Edit, k.Back, k.Quit}
	case m.state.Current == provision.StepSelect:
		short = []key.Binding{k.Up, k.Down, k.Toggle, k.All, k.None, k.Confirm, k.Back, k.Quit}
	default:
		exit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "exit"))
		short = []key.Binding{exit, k.Quit}
	}

	half := (len(short) + 1) / 2
	return stepKeys{
		short: short,
		full:  [][]key.Binding{short[:half], append(short[half:len(short):len(short)], k.Help)},
	}
}

func busyLabel(op string) string {
	switch op {
	case "validate":
		return "Checking registry settings and credentials..."
	case "discover", "rediscover", "back-discover":
		return "Checking inventory against the registry..."
	case "next":
		return "Registering..."
	default:
		return "Working..."
	}
}

// errorText turns a wizard error into a one-line message
func errorText(err error) string {
	switch {
	case errors.Is(err, provision.ErrNothingSelected):
		return "Select at least one entity first (space to toggle, a for all unregistered)."
	case errors.Is(err, provision.ErrConfirmed):
		return "The plan is confirmed. Press e to change the selection."
	}
	return registry.GetShortErrorMessage(err)
}
