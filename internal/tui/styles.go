package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/modelhub/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	textStyle  = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(12)

	activeTabStyle = lipgloss.NewStyle().
			Background(colorSurface0).
			Foreground(colorAccent).
			Bold(true).
			Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().
				Background(colorMantle).
				Foreground(colorTabOff).
				Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	stagedStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	failedStyle = lipgloss.NewStyle().Foreground(colorError)

	zoneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(44)
	zoneFocusStyle     = zoneStyle.BorderForeground(colorAccent)
	zoneHighlightStyle = zoneStyle.BorderForeground(colorSuccess).Bold(true)

	buttonStyle      = lipgloss.NewStyle().Foreground(colorText).Background(colorSurface0).Padding(0, 2)
	buttonFocusStyle = buttonStyle.Foreground(colorMantle).Background(colorAccent).Bold(true)

	footerStyle = lipgloss.NewStyle().Background(colorMantle)
	keyStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Background(colorMantle)
	descStyle   = lipgloss.NewStyle().Foreground(colorMuted).Background(colorMantle)
)

func noticeStyle(sev session.Severity) lipgloss.Style {
	base := lipgloss.NewStyle().Background(colorSurface0)
	switch sev {
	case session.SeverityError:
		return base.Foreground(colorError)
	case session.SeveritySuccess:
		return base.Foreground(colorSuccess)
	default:
		return base.Foreground(colorWarn)
	}
}

// renderBar pads or truncates text to a single line of width.
// padRight pads s with spaces to w cells, measuring only visible text.
func padRight(s string, w int) string {
	if n := ansi.StringWidth(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

func renderBar(style lipgloss.Style, width int, text string) string {
	line := strings.ReplaceAll(text, "\n", " ")
	line = ansi.Truncate(line, width, "")
	if w := ansi.StringWidth(line); w < width {
		line += strings.Repeat(" ", width-w)
	}
	return style.Render(line)
}
