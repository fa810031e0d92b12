package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/modelhub/internal/journal"
	"github.com/jask/modelhub/internal/registry"
	"github.com/jask/modelhub/internal/session"
)

type aggField int

const (
	aggFieldBase aggField = iota
	aggFieldMember
	aggFieldMemberList
	aggFieldName
	aggFieldSubmit
	aggFieldCount
)

const maxSuggestions = 6

type aggregateForm struct {
	editing      bool
	focus        aggField
	base         *session.Selector
	member       *session.Selector
	memberCursor int
	name         textinput.Model
}

func newAggregateForm() aggregateForm {
	return aggregateForm{
		base:   session.NewSelector("Base model"),
		member: session.NewSelector("Models to aggregate"),
		name:   newInput("", "name of the aggregated model"),
	}
}

func (f *aggregateForm) enter() tea.Cmd {
	f.editing = true
	return f.focusField(f.focus)
}

func (f *aggregateForm) leave() {
	f.name.Blur()
	f.editing = false
}

func (f *aggregateForm) focusField(field aggField) tea.Cmd {
	f.focus = field
	if field == aggFieldName {
		return f.name.Focus()
	}
	f.name.Blur()
	return nil
}

func (f *aggregateForm) move(delta int) tea.Cmd {
	next := (int(f.focus) + delta + int(aggFieldCount)) % int(aggFieldCount)
	return f.focusField(aggField(next))
}

// syncSelectors refreshes candidate lists and exclusions from the registry
// and the builder.
func (a *App) syncSelectors() {
	approved := a.sync.Approved()
	a.agg.base.SetCandidates(approved)
	a.agg.base.SetExclude(a.builder.BaseExclusions())
	a.agg.member.SetCandidates(approved)
	a.agg.member.SetExclude(a.builder.MemberExclusions())
	if n := len(a.builder.Members()); a.agg.memberCursor >= n {
		a.agg.memberCursor = max(n-1, 0)
	}
	if a.agg.name.Value() != a.builder.Name() {
		a.agg.name.SetValue(a.builder.Name())
	}
}

func (a *App) handleAggregateKey(m tea.KeyMsg) tea.Cmd {
	f := &a.agg
	if !m.Paste {
		switch {
		case key.Matches(m, a.keys.Leave) && f.focus != aggFieldBase && f.focus != aggFieldMember:
			f.leave()
			return nil
		case key.Matches(m, a.keys.NextField):
			return f.move(1)
		case key.Matches(m, a.keys.PrevField):
			return f.move(-1)
		case key.Matches(m, a.keys.Submit):
			return a.submitAggregation()
		}
	}
	switch f.focus {
	case aggFieldBase:
		return a.handleSelectorKey(f.base, m, true)
	case aggFieldMember:
		return a.handleSelectorKey(f.member, m, false)
	case aggFieldMemberList:
		return a.handleMemberListKey(m)
	case aggFieldName:
		if m.Type == tea.KeyEnter {
			return f.move(1)
		}
		var cmd tea.Cmd
		f.name, cmd = f.name.Update(m)
		a.builder.SetName(f.name.Value())
		return cmd
	case aggFieldSubmit:
		if m.Type == tea.KeyEnter {
			return a.submitAggregation()
		}
	}
	return nil
}

func (a *App) handleSelectorKey(sel *session.Selector, m tea.KeyMsg, isBase bool) tea.Cmd {
	if m.Paste {
		sel.SetQuery(sel.Query() + string(m.Runes))
		return nil
	}
	if isBase && m.Type == tea.KeyBackspace && sel.Query() == "" {
		a.builder.ClearBase()
		a.syncSelectors()
		return nil
	}
	res := sel.HandleKey(m.String())
	switch res.Action {
	case session.SelectorActionSelected:
		var err error
		if isBase {
			err = a.builder.SetBase(res.Model)
		} else {
			err = a.builder.AddMember(res.Model)
		}
		if err != nil {
			a.notice = a.builder.Notice()
			return nil
		}
		sel.Reset()
		a.syncSelectors()
		if isBase {
			return a.agg.move(1)
		}
	case session.SelectorActionCancelled:
		if sel.Query() == "" {
			a.agg.leave()
			return nil
		}
		sel.Reset()
		a.syncSelectors()
	}
	return nil
}

func (a *App) handleMemberListKey(m tea.KeyMsg) tea.Cmd {
	f := &a.agg
	members := a.builder.Members()
	switch {
	case key.Matches(m, a.keys.UpDown):
		switch m.String() {
		case "up", "k":
			if f.memberCursor > 0 {
				f.memberCursor--
			}
		default:
			if f.memberCursor < len(members)-1 {
				f.memberCursor++
			}
		}
	case key.Matches(m, a.keys.Remove):
		if len(members) == 0 {
			return nil
		}
		a.builder.RemoveMember(members[min(f.memberCursor, len(members)-1)].ID)
		a.syncSelectors()
	case m.Type == tea.KeyEnter:
		return f.move(1)
	}
	return nil
}

func (a *App) submitAggregation() tea.Cmd {
	a.builder.SetName(a.agg.name.Value())
	req, err := a.builder.Submit(a.agg.name.Value())
	a.notice = a.builder.Notice()
	if err != nil {
		return nil
	}
	a.agg.base.Reset()
	a.agg.member.Reset()
	a.agg.name.Reset()
	a.agg.memberCursor = 0
	a.syncSelectors()
	return a.recordCmd(journal.Entry{
		Kind:    journal.KindAggregation,
		Name:    req.ModelName,
		Detail:  fmt.Sprintf("base=%s members=%s", req.BaseModel, strings.Join(req.ModelsToAggregate, ",")),
		Outcome: journal.OutcomeDispatched,
	})
}

func (a *App) renderAggregate() string {
	f := &a.agg
	focused := func(field aggField) bool { return f.editing && f.focus == field }
	label := func(field aggField, text string) string {
		if focused(field) {
			return labelStyle.Foreground(colorAccent).Render(text)
		}
		return labelStyle.Render(text)
	}
	lines := []string{titleStyle.Render("Aggregate models")}

	baseText := mutedStyle.Render("none")
	if base, ok := a.builder.Base(); ok {
		baseText = stagedStyle.Render(base.Name)
	}
	lines = append(lines, label(aggFieldBase, "Base")+baseText)
	if focused(aggFieldBase) {
		lines = append(lines, a.renderSelector(f.base)...)
	}

	lines = append(lines, label(aggFieldMember, "Add model")+textStyle.Render(f.member.Query()))
	if focused(aggFieldMember) {
		lines = append(lines, a.renderSelector(f.member)...)
	}

	members := a.builder.Members()
	lines = append(lines, label(aggFieldMemberList, "Members")+mutedStyle.Render(fmt.Sprintf("%d selected", len(members))))
	for i, m := range members {
		prefix := "    "
		if focused(aggFieldMemberList) && i == f.memberCursor {
			prefix = "  " + cursorStyle.Render("> ")
		}
		lines = append(lines, prefix+textStyle.Render(m.Name))
	}

	lines = append(lines, label(aggFieldName, "Name")+f.name.View())
	button := buttonStyle.Render("Aggregate")
	if focused(aggFieldSubmit) {
		button = buttonFocusStyle.Render("Aggregate")
	}
	lines = append(lines, button)
	if !f.editing {
		lines = append(lines, "", mutedStyle.Render("enter to edit the aggregation"))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderSelector(sel *session.Selector) []string {
	out := []string{"    " + mutedStyle.Render("search: ") + textStyle.Render(sel.Query())}
	suggestions := sel.Suggestions()
	if len(suggestions) == 0 {
		msg := "no matching approved models"
		if hint, ok := sel.Hint(); ok {
			msg = fmt.Sprintf("no match, did you mean %s?", hint.Name)
		}
		return append(out, "    "+mutedStyle.Render(msg))
	}
	for i, m := range suggestions[:min(len(suggestions), maxSuggestions)] {
		out = append(out, "    "+a.renderSuggestion(m, i == sel.Cursor()))
	}
	if extra := len(suggestions) - maxSuggestions; extra > 0 {
		out = append(out, "    "+mutedStyle.Render(fmt.Sprintf("+%d more", extra)))
	}
	return out
}

func (a *App) renderSuggestion(m registry.Model, current bool) string {
	if current {
		return cursorStyle.Render("> " + m.Name)
	}
	return "  " + textStyle.Render(m.Name)
}
