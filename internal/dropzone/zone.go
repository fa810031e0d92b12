// Package dropzone turns terminal file gestures into archive selections.
//
// A terminal has no drag events. Focusing a zone stands in for a drag entering
// it, leaving focus for a drag leaving it, and a bracketed paste (what most
// terminals emit when a file is dropped onto the window) for the drop itself.
// Typing a path and confirming it is the equivalent of the file picker.
package dropzone

import (
	"path/filepath"
	"strings"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/jask/modelhub/internal/archive"
)

// Event is an input gesture delivered to a Zone.
type Event interface{ isEvent() }

// DragEnter is a drag moving into the zone.
type DragEnter struct{}

// DragOver is a drag moving within the zone.
type DragOver struct{}

// DragLeave is a drag leaving the zone without dropping.
type DragLeave struct{}

// Drop carries the files dropped on the zone, in order.
type Drop struct{ Files []archive.File }

// Pick carries the file chosen through the picker, if any.
type Pick struct{ File *archive.File }

func (DragEnter) isEvent() {}
func (DragOver) isEvent()  {}
func (DragLeave) isEvent() {}
func (Drop) isEvent()      {}
func (Pick) isEvent()      {}

// Signal is what the zone reports back to its owner.
type Signal interface{ isSignal() }

// HighlightOn asks the owner to render the zone as an active drop target.
type HighlightOn struct{}

// HighlightOff asks the owner to stop highlighting.
type HighlightOff struct{}

// FileSelected carries an accepted archive.
type FileSelected struct{ File archive.File }

// Rejected reports a file that was refused. The previous selection stands.
type Rejected struct {
	File   archive.File
	Reason string
}

func (HighlightOn) isSignal()  {}
func (HighlightOff) isSignal() {}
func (FileSelected) isSignal() {}
func (Rejected) isSignal()     {}

// ReasonWrongExtension is the Rejected reason for non-archive files.
const ReasonWrongExtension = "wrong extension"

// Zone is one drop target bound to a single archive slot.
type Zone struct {
	Label       string
	highlighted bool
	selected    archive.File
}

func New(label string) *Zone {
	return &Zone{Label: label}
}

func (z *Zone) Highlighted() bool { return z.highlighted }

// Selected returns the last accepted file (zero when none).
func (z *Zone) Selected() archive.File { return z.selected }

// Clear forgets the accepted file.
func (z *Zone) Clear() { z.selected = archive.File{} }

// Handle applies ev and returns the signals it produced, in order.
func (z *Zone) Handle(ev Event) []Signal {
	switch ev := ev.(type) {
	case DragEnter, DragOver:
		if z.highlighted {
			return nil
		}
		z.highlighted = true
		return []Signal{HighlightOn{}}
	case DragLeave:
		return z.unhighlight()
	case Drop:
		out := z.unhighlight()
		if len(ev.Files) == 0 {
			if len(out) == 0 {
				out = append(out, HighlightOff{})
			}
			return out
		}
		return append(out, z.accept(ev.Files[0]))
	case Pick:
		if ev.File == nil {
			return nil
		}
		return []Signal{z.accept(*ev.File)}
	}
	return nil
}

func (z *Zone) unhighlight() []Signal {
	if !z.highlighted {
		return nil
	}
	z.highlighted = false
	return []Signal{HighlightOff{}}
}

func (z *Zone) accept(f archive.File) Signal {
	if !archive.HasExtension(f.Name) {
		return Rejected{File: f, Reason: ReasonWrongExtension}
	}
	z.selected = f
	return FileSelected{File: f}
}

// ParsePaste splits pasted text into file paths. Terminals quote or escape
// paths containing spaces the way a shell would; file:// URIs are unwrapped.
// Unbalanced quoting falls back to whitespace splitting.
func ParsePaste(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	words, err := shellquote.Split(text)
	if err != nil {
		words = strings.Fields(text)
	}
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimPrefix(w, "file://")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// DropFromPaste builds a Drop from pasted text. Only the first pasted path is
// considered, matching the zone's one-file rule. A path with the wrong
// extension is passed through by name even when it cannot be opened so the
// zone can reject it; an archive path that cannot be opened is an error.
func DropFromPaste(text string) (Drop, error) {
	paths := ParsePaste(text)
	if len(paths) == 0 {
		return Drop{}, nil
	}
	p := paths[0]
	f, err := archive.FromPath(p)
	if err != nil {
		if archive.HasExtension(filepath.Base(p)) {
			return Drop{}, err
		}
		f = archive.File{Name: filepath.Base(p)}
	}
	return Drop{Files: []archive.File{f}}, nil
}

// PickPath builds a Pick from a typed path. The path is tried as typed, then
// shell-unquoted. A blank path is a cancelled pick.
func PickPath(path string) (Pick, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Pick{}, nil
	}
	f, err := archive.FromPath(path)
	if err != nil {
		paths := ParsePaste(path)
		if len(paths) != 1 || paths[0] == path {
			return Pick{}, err
		}
		if f, err = archive.FromPath(paths[0]); err != nil {
			return Pick{}, err
		}
	}
	return Pick{File: &f}, nil
}
