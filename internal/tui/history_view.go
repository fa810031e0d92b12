package tui

import (
	"strings"

	"github.com/jask/modelhub/internal/journal"
)

func (a *App) renderHistory() string {
	lines := []string{titleStyle.Render("Submission history")}
	if a.journal == nil {
		return strings.Join(append(lines, mutedStyle.Render("History is disabled")), "\n")
	}
	if len(a.history) == 0 {
		return strings.Join(append(lines, mutedStyle.Render("Nothing submitted yet")), "\n")
	}
	for _, e := range a.history {
		outcome := mutedStyle.Render(string(e.Outcome))
		switch e.Outcome {
		case journal.OutcomeSucceeded:
			outcome = stagedStyle.Render(string(e.Outcome))
		case journal.OutcomeFailed:
			outcome = failedStyle.Render(string(e.Outcome))
		}
		row := mutedStyle.Render(e.CreatedAt.In(a.tz).Format("2006-01-02 15:04")) + "  " +
			padRight(string(e.Kind), 11) + " " + padRight(e.Name, 28) + " " + outcome
		if e.Detail != "" {
			row += "  " + mutedStyle.Render(e.Detail)
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}
