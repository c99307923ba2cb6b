package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/lorasim/internal/provision"
)

// ConfirmPrompt shows a warning box and asks the user to type word to
// proceed. Returns true only on an exact match.
func ConfirmPrompt(in io.Reader, out io.Writer, title, body, word string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		WarningTitleStyle.Render(fmt.Sprintf("   %s  CONFIRM  ─  %s", WarningMarker, title)),
		"",
		body,
		"",
	}
	fmt.Fprintln(out, WarningBoxStyle(width).Render(strings.Join(lines, "\n")))
	fmt.Fprintln(out)

	prompt := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	fmt.Fprint(out, prompt.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", word)))

	input, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}
	if strings.TrimSpace(input) == word {
		return true
	}

	fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	fmt.Fprintln(out)
	return false
}

// ConfirmPlans is the confirmation gate for a registration run.
func ConfirmPlans(in io.Reader, out io.Writer, org string, plans []*provision.Plan) bool {
	n := 0
	for _, p := range plans {
		n += len(p.Targets)
	}
	title := fmt.Sprintf("REGISTER %d ENTITIES IN %s", n, strings.ToUpper(org))
	body := RenderPlans(plans) + "\n\n" +
		StepNoteStyle.Render("   Registrations are not rolled back if a later one fails.")
	return ConfirmPrompt(in, out, title, body, "yes")
}
