package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/lorasim/internal/version"
)

// Application branding constants
const (
	AppName   = "LORASIM PROVISIONING WIZARD"
	GitHubURL = "github.com/muurk/lorasim"
)

// Layout constants
const (
	MinTerminalWidth  = 72
	MinTerminalHeight = 20
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red
	TextColor      = lipgloss.Color("#FFFFFF") // White
	SubtleColor    = lipgloss.Color("#626262") // Gray
	BorderColor    = PrimaryColor
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)
)

// RenderTitle renders a screen title
func RenderTitle(text string) string {
	return TitleStyle.Render(text)
}

// RenderError renders an error message box
func RenderError(text string) string {
	return ErrorStyle.Render("✗ " + text)
}

// buildHeaderContent renders the app name, version and target org
func buildHeaderContent(org string) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + version.Version)

	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render("org: " + org + "  •  " + GitHubURL)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// RenderApplicationContainer wraps every screen: header with branding, the
// screen content, and a footer with context help, filling the terminal.
func RenderApplicationContainer(org, content, footer string, width, height int) string {
	width = max(width, MinTerminalWidth)
	height = max(height, MinTerminalHeight)

	header := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(width-4).
		Padding(0, 1).
		Render(buildHeaderContent(org))

	foot := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(width-4).
		Padding(0, 1).
		Foreground(SubtleColor).
		Render(footer)

	body := lipgloss.NewStyle().
		Width(width-4).
		Padding(1, 1).
		Render(content)

	inner := lipgloss.JoinVertical(lipgloss.Left, header, body, foot)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(width - 2).
		Height(height - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, bordered)
}
