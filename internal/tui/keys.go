package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Quit      key.Binding
	Views     key.Binding
	NextView  key.Binding
	PrevView  key.Binding
	UpDown    key.Binding
	Detail    key.Binding
	Refresh   key.Binding
	Stage     key.Binding
	Base      key.Binding
	Fetch     key.Binding
	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding
	Leave     key.Binding
	Remove    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Views:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "views")),
		NextView:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next view")),
		PrevView:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev view")),
		UpDown:    key.NewBinding(key.WithKeys("up", "down", "k", "j"), key.WithHelp("j/k", "navigate")),
		Detail:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Stage:     key.NewBinding(key.WithKeys("s", " "), key.WithHelp("space", "stage")),
		Base:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "use as base")),
		Fetch:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fetch")),
		NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		Submit:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		Leave:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "leave form")),
		Remove:    key.NewBinding(key.WithKeys("x", "delete", "backspace"), key.WithHelp("x", "remove")),
	}
}

// help returns the bindings shown in the footer for the current view.
func (k keyMap) help(v view, editing bool) []key.Binding {
	if editing {
		return []key.Binding{k.NextField, k.PrevField, k.Submit, k.Leave}
	}
	switch v {
	case viewApproved:
		return []key.Binding{k.Views, k.UpDown, k.Detail, k.Stage, k.Base, k.Fetch, k.Refresh, k.Quit}
	case viewPending:
		return []key.Binding{k.Views, k.UpDown, k.Detail, k.Refresh, k.Quit}
	case viewHistory:
		return []key.Binding{k.Views, k.Refresh, k.Quit}
	default:
		return []key.Binding{k.Views, k.Detail, k.Quit}
	}
}

func renderHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" && h.Desc == "" {
			continue
		}
		parts = append(parts, keyStyle.Render(h.Key)+descStyle.Render(" "+h.Desc))
	}
	return strings.Join(parts, descStyle.Render("  "))
}
