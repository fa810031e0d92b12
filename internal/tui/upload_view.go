package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/modelhub/internal/dropzone"
	"github.com/jask/modelhub/internal/journal"
	"github.com/jask/modelhub/internal/session"
)

type uploadField int

const (
	fieldName uploadField = iota
	fieldTask
	fieldModelZone
	fieldTokenizerZone
	fieldUploadButton
	uploadFieldCount
)

type uploadForm struct {
	editing bool
	focus   uploadField
	name    textinput.Model
	task    textinput.Model
	path    textinput.Model
	zones   [2]*dropzone.Zone
}

// newInput returns a text input with a steady cursor.
func newInput(prompt, placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.Cursor.SetMode(cursor.CursorStatic)
	return in
}

func newUploadForm() uploadForm {
	return uploadForm{
		name:  newInput("", "model name"),
		task:  newInput("", "task, e.g. text-classification"),
		path:  newInput("path: ", "paste or drop a .zip, or type its path"),
		zones: [2]*dropzone.Zone{dropzone.New("model.zip"), dropzone.New("tokenizer.zip")},
	}
}

func (f *uploadForm) enter() tea.Cmd {
	f.editing = true
	return f.focusField(f.focus)
}

func (f *uploadForm) leave() {
	f.blurField(f.focus)
	f.editing = false
}

func (f *uploadForm) reset() {
	f.name.Reset()
	f.task.Reset()
	f.path.Reset()
	for _, z := range f.zones {
		z.Clear()
	}
}

func zoneKind(field uploadField) (session.ArchiveKind, bool) {
	switch field {
	case fieldModelZone:
		return session.ModelArchive, true
	case fieldTokenizerZone:
		return session.TokenizerArchive, true
	}
	return 0, false
}

func (f *uploadForm) focusField(field uploadField) tea.Cmd {
	f.focus = field
	switch field {
	case fieldName:
		return f.name.Focus()
	case fieldTask:
		return f.task.Focus()
	}
	if kind, ok := zoneKind(field); ok {
		f.zones[kind].Handle(dropzone.DragEnter{})
		return f.path.Focus()
	}
	return nil
}

func (f *uploadForm) blurField(field uploadField) {
	switch field {
	case fieldName:
		f.name.Blur()
	case fieldTask:
		f.task.Blur()
	}
	if kind, ok := zoneKind(field); ok {
		f.zones[kind].Handle(dropzone.DragLeave{})
		f.path.Blur()
		f.path.Reset()
	}
}

func (f *uploadForm) move(delta int) tea.Cmd {
	f.blurField(f.focus)
	next := (int(f.focus) + delta + int(uploadFieldCount)) % int(uploadFieldCount)
	return f.focusField(uploadField(next))
}

func (a *App) handleUploadKey(m tea.KeyMsg) tea.Cmd {
	f := &a.form
	if !m.Paste {
		switch {
		case key.Matches(m, a.keys.Leave):
			f.leave()
			return nil
		case key.Matches(m, a.keys.NextField):
			return f.move(1)
		case key.Matches(m, a.keys.PrevField):
			return f.move(-1)
		case key.Matches(m, a.keys.Submit):
			return a.submitUpload()
		}
	}
	if kind, ok := zoneKind(f.focus); ok {
		return a.handleZoneKey(kind, m)
	}
	var cmd tea.Cmd
	switch f.focus {
	case fieldName:
		if m.Type == tea.KeyEnter {
			return f.move(1)
		}
		f.name, cmd = f.name.Update(m)
	case fieldTask:
		if m.Type == tea.KeyEnter {
			return f.move(1)
		}
		f.task, cmd = f.task.Update(m)
	case fieldUploadButton:
		if m.Type == tea.KeyEnter {
			return a.submitUpload()
		}
	}
	return cmd
}

// handleZoneKey maps terminal input on a focused drop zone: a bracketed
// paste is a drop, enter confirms the typed path as a pick.
func (a *App) handleZoneKey(kind session.ArchiveKind, m tea.KeyMsg) tea.Cmd {
	f := &a.form
	zone := f.zones[kind]
	switch {
	case m.Paste:
		drop, err := dropzone.DropFromPaste(string(m.Runes))
		if err != nil {
			zone.Handle(dropzone.DragLeave{})
			a.notice = errorNotice(fmt.Sprintf("Cannot read dropped file: %v", err))
			return nil
		}
		a.applySignals(kind, zone.Handle(drop))
		return nil
	case m.Type == tea.KeyEnter:
		pick, err := dropzone.PickPath(f.path.Value())
		if err != nil {
			a.notice = errorNotice(fmt.Sprintf("Cannot open %s", strings.TrimSpace(f.path.Value())))
			return nil
		}
		if pick.File == nil {
			return f.move(1)
		}
		a.applySignals(kind, zone.Handle(pick))
		return nil
	}
	var cmd tea.Cmd
	f.path, cmd = f.path.Update(m)
	return cmd
}

func (a *App) applySignals(kind session.ArchiveKind, sigs []dropzone.Signal) {
	for _, sig := range sigs {
		switch s := sig.(type) {
		case dropzone.FileSelected:
			if err := a.upload.Attach(kind, s.File); err == nil {
				a.form.path.Reset()
				a.notice = session.Notice{Severity: session.SeverityInfo, Message: fmt.Sprintf("%s attached as %s", s.File.Name, kind)}
				continue
			}
			a.notice = a.upload.Notice()
		case dropzone.Rejected:
			a.log.Debugw("archive rejected", "kind", kind.String(), "file", s.File.Name, "reason", s.Reason)
			a.notice = errorNotice(session.MsgZipOnly)
		}
	}
}

func (a *App) submitUpload() tea.Cmd {
	req, err := a.upload.Prepare(a.form.name.Value(), a.form.task.Value())
	a.notice = a.upload.Notice()
	if err != nil {
		return nil
	}
	backend, ctx := a.backend, a.ctx
	return tea.Batch(func() tea.Msg {
		return uploadDoneMsg{name: req.ModelName, err: backend.AddModel(ctx, req)}
	}, a.spin.Tick)
}

func (a *App) finishUpload(m uploadDoneMsg) tea.Cmd {
	refresh := a.upload.Finish(m.err)
	a.notice = a.upload.Notice()
	entry := journal.Entry{Kind: journal.KindUpload, Name: m.name, Outcome: journal.OutcomeSucceeded}
	if m.err != nil {
		entry.Outcome = journal.OutcomeFailed
		entry.Detail = a.notice.Message
	}
	cmds := []tea.Cmd{a.recordCmd(entry)}
	if refresh {
		a.form.reset()
		cmds = append(cmds, a.refreshCmd(session.Approved))
	}
	return tea.Batch(cmds...)
}

func (a *App) renderUpload() string {
	f := &a.form
	lines := []string{titleStyle.Render("Upload a model")}
	field := func(field uploadField, label string, in textinput.Model) string {
		l := labelStyle.Render(label)
		if f.editing && f.focus == field {
			l = labelStyle.Foreground(colorAccent).Render(label)
		}
		return l + in.View()
	}
	lines = append(lines, field(fieldName, "Name", f.name), field(fieldTask, "Task", f.task))
	for _, kind := range []session.ArchiveKind{session.ModelArchive, session.TokenizerArchive} {
		lines = append(lines, a.renderZone(kind))
	}
	button := buttonStyle.Render("Upload")
	if f.editing && f.focus == fieldUploadButton {
		button = buttonFocusStyle.Render("Upload")
	}
	if a.upload.State() == session.UploadSubmitting {
		button += " " + a.spin.View()
	}
	lines = append(lines, button)
	if !f.editing {
		lines = append(lines, "", mutedStyle.Render("enter to edit the form"))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderZone(kind session.ArchiveKind) string {
	f := &a.form
	zone := f.zones[kind]
	focused := f.editing && f.focus == fieldModelZone+uploadField(kind)
	content := mutedStyle.Render("Drop " + zone.Label + " here")
	if att := a.upload.Archive(kind); !att.IsZero() {
		content = stagedStyle.Render(fmt.Sprintf("%s (%d bytes)", att.Name, att.Size))
	}
	if focused {
		content += "\n" + f.path.View()
	}
	style := zoneStyle
	switch {
	case zone.Highlighted():
		style = zoneHighlightStyle
	case focused:
		style = zoneFocusStyle
	}
	return style.Render(titleStyle.Render(zone.Label) + "\n" + content)
}
