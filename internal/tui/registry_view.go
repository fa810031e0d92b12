package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/modelhub/internal/journal"
	"github.com/jask/modelhub/internal/registry"
	"github.com/jask/modelhub/internal/session"
)

const nameColumn = 32

func (a *App) collection() session.Collection {
	if a.view == viewPending {
		return session.Pending
	}
	return session.Approved
}

func (a *App) handleListKey(m tea.KeyMsg) tea.Cmd {
	c := a.collection()
	list := a.models(c)
	st := &a.lists[c]
	switch {
	case key.Matches(m, a.keys.Refresh):
		return tea.Batch(a.refreshCmd(session.Approved), a.refreshCmd(session.Pending))
	case key.Matches(m, a.keys.UpDown):
		switch m.String() {
		case "up", "k":
			if st.cursor > 0 {
				st.cursor--
			}
		default:
			if st.cursor < len(list)-1 {
				st.cursor++
			}
		}
		return nil
	}
	if len(list) == 0 {
		return nil
	}
	selected := list[min(st.cursor, len(list)-1)]
	switch {
	case key.Matches(m, a.keys.Detail):
		if st.expanded == selected.ID {
			st.expanded = ""
		} else {
			st.expanded = selected.ID
		}
	case c == session.Approved && key.Matches(m, a.keys.Stage):
		if err := a.builder.ToggleStaged(selected); err != nil {
			a.notice = a.builder.Notice()
			return nil
		}
		a.syncSelectors()
		if a.builder.Staged(selected.ID) {
			a.notice = session.Notice{Severity: session.SeverityInfo, Message: fmt.Sprintf("%s staged for aggregation", selected.Name)}
		} else {
			a.notice = session.Notice{Severity: session.SeverityInfo, Message: fmt.Sprintf("%s removed from aggregation", selected.Name)}
		}
	case c == session.Approved && key.Matches(m, a.keys.Base):
		if err := a.builder.SetBase(selected); err != nil {
			a.notice = a.builder.Notice()
			return nil
		}
		a.syncSelectors()
		a.notice = session.Notice{Severity: session.SeverityInfo, Message: fmt.Sprintf("%s is the aggregation base", selected.Name)}
	case c == session.Approved && key.Matches(m, a.keys.Fetch):
		return a.fetchCmd(selected)
	}
	return nil
}

func (a *App) fetchCmd(m registry.Model) tea.Cmd {
	if strings.TrimSpace(m.NFTID) == "" {
		a.notice = errorNotice(m.Name + " has no ledger block to fetch")
		return nil
	}
	a.fetching++
	a.notice = session.Notice{Severity: session.SeverityInfo, Message: "Fetching " + m.Name + "..."}
	backend, ctx, dir := a.backend, a.ctx, a.cfg.Download.Dir
	return tea.Batch(func() tea.Msg {
		path, n, err := registry.SaveArtifact(ctx, backend, m.NFTID, dir)
		return fetchDoneMsg{nftID: m.NFTID, path: path, size: n, err: err}
	}, a.spin.Tick)
}

func (a *App) finishFetch(m fetchDoneMsg) tea.Cmd {
	entry := journal.Entry{Kind: journal.KindFetch, Name: m.nftID}
	if m.err != nil {
		a.log.Warnw("artifact fetch failed", "nft_id", m.nftID, "error", m.err)
		a.notice = errorNotice(registry.UserMessage(m.err, "Error fetching model"))
		entry.Outcome = journal.OutcomeFailed
		entry.Detail = m.err.Error()
		return a.recordCmd(entry)
	}
	a.notice = session.Notice{Severity: session.SeveritySuccess, Message: fmt.Sprintf("Saved %s (%d bytes)", m.path, m.size)}
	entry.Outcome = journal.OutcomeSucceeded
	entry.Detail = m.path
	return a.recordCmd(entry)
}

func (a *App) renderList(c session.Collection) string {
	list := a.models(c)
	title := "Approved models"
	if c == session.Pending {
		title = "Models pending approval"
	}
	lines := []string{titleStyle.Render(title)}
	if len(list) == 0 {
		if !a.sync.Loaded(c) {
			lines = append(lines, mutedStyle.Render("Loading..."))
		} else {
			lines = append(lines, mutedStyle.Render("No models"))
		}
		return strings.Join(lines, "\n")
	}
	st := a.lists[c]
	for i, m := range list {
		prefix := "  "
		name := textStyle.Render(padRight(m.Name, nameColumn))
		if i == st.cursor {
			prefix = cursorStyle.Render("> ")
			name = cursorStyle.Render(padRight(m.Name, nameColumn))
		}
		row := prefix + name + " " + mutedStyle.Render(a.formatDate(m))
		if c == session.Approved && a.builder.Staged(m.ID) {
			row += " " + stagedStyle.Render("[staged]")
		}
		if base, ok := a.builder.Base(); ok && c == session.Approved && base.ID == m.ID {
			row += " " + stagedStyle.Render("[base]")
		}
		lines = append(lines, row)
		if st.expanded == m.ID {
			lines = append(lines, a.renderDetail(c, m)...)
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderDetail(c session.Collection, m registry.Model) []string {
	field := func(label, value string) string {
		if strings.TrimSpace(value) == "" {
			value = "-"
		}
		return "    " + labelStyle.Render(label) + textStyle.Render(value)
	}
	out := []string{
		field("model_id", m.ID),
		field("BLOCK ID", m.NFTID),
		field("task", m.Task),
		field("status", string(m.Status)),
	}
	if c == session.Approved {
		out = append(out, field("explorer", a.explorer.BlockURL(m.NFTID)))
	}
	return out
}
