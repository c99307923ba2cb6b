package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/lorasim/internal/eui"
	"github.com/muurk/lorasim/internal/provision"
)

// RenderValidation renders the connection checks, one per line
func RenderValidation(r provision.ValidationReport) string {
	lines := make([]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		var marker string
		var style lipgloss.Style
		switch c.Status {
		case provision.CheckPassed:
			marker, style = SuccessMarker, StepCompleteStyle
		case provision.CheckFailed:
			marker, style = FailureMarker, ErrorTitleStyle
		default:
			marker, style = StepMarkerPending, StepPendingStyle
		}
		line := fmt.Sprintf("  %s %s", style.Render(marker), style.Render(c.Name))
		if c.Diagnostic != "" {
			line += "  " + StepNoteStyle.Render("("+c.Diagnostic+")")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// RenderEntities renders the inventory with discovery status and selection.
// A nil selection hides the selection column; cursor < 0 hides the cursor.
func RenderEntities(entities []provision.Entity, d *provision.Discovery, sel *provision.Selection, cursor int) string {
	var b strings.Builder

	head := fmt.Sprintf("  %-3s %-20s %-8s %-24s %s", "", "ID", "KIND", "EUI", "STATUS")
	b.WriteString(TableHeaderStyle.Render(head))
	b.WriteString("\n")

	for i, e := range entities {
		pointer := " "
		if i == cursor {
			pointer = lipgloss.NewStyle().Foreground(PrimaryColor).Render("›")
		}
		box := "   "
		if sel != nil {
			box = "[ ]"
			if sel.Has(e.LocalID) {
				box = "[x]"
			}
		}

		status := provision.StatusUnknown
		diag := ""
		if d != nil {
			status = d.Statuses[e.LocalID]
			diag = d.Diagnostics[e.LocalID]
		}
		marker, style := EntityStatusStyle(status)

		line := fmt.Sprintf("%s %s %-20s %-8s %-24s %s",
			pointer, box, truncate(e.Label(), 20), e.Kind, eui.Pretty(e.HardwareEUI),
			style.Render(marker+" "+status.String()))
		if diag != "" {
			line += "  " + StepNoteStyle.Render("("+diag+")")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPlans renders what will be registered, for the confirmation gate
func RenderPlans(plans []*provision.Plan) string {
	var b strings.Builder
	for _, p := range plans {
		mode := "sequential"
		if p.Batched {
			mode = "batched"
		}
		title := fmt.Sprintf("  %ss: %d (%s, %s", p.Kind, len(p.Targets), mode, p.FrequencyPlan)
		if p.ActivationMode != provision.ActivationNone {
			title += ", " + string(p.ActivationMode)
		}
		b.WriteString(TableHeaderStyle.Render(title + ")"))
		b.WriteString("\n")

		for _, t := range p.Targets {
			fmt.Fprintf(&b, "    %s %-20s → %s\n", StepMarkerPending, truncate(t.Entity.Label(), 20), t.RemoteID)
		}
		for _, r := range p.Rejected {
			reason := "invalid EUI"
			if r.Err != nil {
				reason = r.Err.Error()
			}
			b.WriteString(ErrorMessageStyle.Render(fmt.Sprintf("    %s %-20s skipped: %s", FailureMarker, truncate(r.Entity.Label(), 20), reason)))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderOutcome renders one registration outcome line
func RenderOutcome(o provision.Outcome) string {
	marker, style := OutcomeStyle(o.Result)
	line := fmt.Sprintf("  %s %-8s %-28s %s", style.Render(marker), o.Kind, o.RemoteID, style.Render(o.Result.String()))
	if o.Reason != "" {
		line += "  " + StepNoteStyle.Render("("+o.Reason+")")
	}
	return line
}

// SummaryResult builds the result box for an execution summary. Any failure
// turns the box into a warning.
func SummaryResult(s *provision.Summary) *Result {
	details := []Detail{
		{Key: "Created", Value: fmt.Sprint(s.Created)},
		{Key: "Already existed", Value: fmt.Sprint(s.AlreadyExists)},
		{Key: "Failed", Value: fmt.Sprint(s.Failed)},
	}
	if s.Failed > 0 {
		r := NewWarningResult(fmt.Sprintf("%d of %d registrations failed", s.Failed, s.Total()), details...)
		for _, o := range s.Results {
			if o.Result == provision.ResultFailed {
				r.AddDetail(o.LocalID, o.Reason)
			}
		}
		return r
	}
	return NewSuccessResult(fmt.Sprintf("%d entities provisioned", s.Total()), details...)
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
