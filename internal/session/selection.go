package session

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/modelhub/internal/registry"
)

// IDSet is a set of model ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids, skipping blanks.
func NewIDSet(ids ...string) IDSet {
	out := make(IDSet, len(ids))
	for _, id := range ids {
		if id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Suggest returns the models whose name contains query (case-insensitive),
// in collection order, minus excluded ids. An empty query suggests nothing.
func Suggest(models []registry.Model, query string, exclude IDSet) []registry.Model {
	q := strings.ToLower(query)
	if q == "" {
		return nil
	}
	var out []registry.Model
	for _, m := range models {
		if exclude.Has(m.ID) {
			continue
		}
		if strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out
}

// Closest finds the non-excluded model whose name is nearest to query by edit
// distance. It is only a hint for queries with no suggestions.
func Closest(models []registry.Model, query string, exclude IDSet) (registry.Model, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return registry.Model{}, false
	}
	best, bestDist := registry.Model{}, -1
	for _, m := range models {
		if exclude.Has(m.ID) {
			continue
		}
		d := levenshtein.ComputeDistance(q, strings.ToLower(m.Name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = m, d
		}
	}
	if bestDist < 0 || bestDist > len(q) {
		return registry.Model{}, false
	}
	return best, true
}

// SelectorAction is the outcome of a key handled by a Selector.
type SelectorAction int

const (
	SelectorActionNone SelectorAction = iota
	SelectorActionMoved
	SelectorActionSelected
	SelectorActionCancelled
)

// SelectorResult carries the action and, for SelectorActionSelected, the model.
type SelectorResult struct {
	Action SelectorAction
	Model  registry.Model
}

// Selector is an autocomplete list over a candidate collection: typed text
// narrows the suggestions, a cursor moves through them, enter picks one.
type Selector struct {
	title      string
	candidates []registry.Model
	exclude    IDSet
	query      string
	filtered   []registry.Model
	cursor     int
}

func NewSelector(title string) *Selector {
	return &Selector{title: strings.TrimSpace(title), exclude: IDSet{}}
}

func (p *Selector) Title() string {
	if p == nil {
		return ""
	}
	return p.title
}

func (p *Selector) Query() string {
	if p == nil {
		return ""
	}
	return p.query
}

func (p *Selector) Cursor() int {
	if p == nil {
		return 0
	}
	return p.cursor
}

// Suggestions returns the current filtered list.
func (p *Selector) Suggestions() []registry.Model {
	if p == nil {
		return nil
	}
	return append([]registry.Model(nil), p.filtered...)
}

// SetCandidates replaces the candidate collection (the approved models).
func (p *Selector) SetCandidates(models []registry.Model) {
	if p == nil {
		return
	}
	p.candidates = append([]registry.Model(nil), models...)
	p.rebuild()
}

// SetExclude replaces the excluded ids.
func (p *Selector) SetExclude(ids IDSet) {
	if p == nil {
		return
	}
	if ids == nil {
		ids = IDSet{}
	}
	p.exclude = ids
	p.rebuild()
}

func (p *Selector) SetQuery(q string) {
	if p == nil {
		return
	}
	p.query = q
	p.rebuild()
}

// Reset clears the query and cursor.
func (p *Selector) Reset() {
	p.SetQuery("")
	p.cursor = 0
}

// Hint is a "did you mean" candidate when the query matches nothing.
func (p *Selector) Hint() (registry.Model, bool) {
	if p == nil || len(p.filtered) > 0 {
		return registry.Model{}, false
	}
	return Closest(p.candidates, p.query, p.exclude)
}

func (p *Selector) CursorUp() {
	if p == nil {
		return
	}
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p *Selector) CursorDown() {
	if p == nil {
		return
	}
	maxIdx := len(p.filtered) - 1
	if maxIdx < 0 {
		p.cursor = 0
		return
	}
	if p.cursor < maxIdx {
		p.cursor++
	}
}

func (p *Selector) Current() (registry.Model, bool) {
	if p == nil || len(p.filtered) == 0 {
		return registry.Model{}, false
	}
	idx := min(max(p.cursor, 0), len(p.filtered)-1)
	return p.filtered[idx], true
}

// HandleKey feeds one key name (as reported by bubbletea's KeyMsg.String).
func (p *Selector) HandleKey(keyName string) SelectorResult {
	if p == nil {
		return SelectorResult{Action: SelectorActionNone}
	}
	switch keyName {
	case "up", "ctrl+p":
		before := p.cursor
		p.CursorUp()
		if p.cursor != before {
			return SelectorResult{Action: SelectorActionMoved}
		}
		return SelectorResult{Action: SelectorActionNone}
	case "down", "ctrl+n":
		before := p.cursor
		p.CursorDown()
		if p.cursor != before {
			return SelectorResult{Action: SelectorActionMoved}
		}
		return SelectorResult{Action: SelectorActionNone}
	case "enter", "tab":
		m, ok := p.Current()
		if !ok {
			return SelectorResult{Action: SelectorActionNone}
		}
		return SelectorResult{Action: SelectorActionSelected, Model: m}
	case "esc":
		return SelectorResult{Action: SelectorActionCancelled}
	case "backspace":
		if len(p.query) > 0 {
			r := []rune(p.query)
			p.SetQuery(string(r[:len(r)-1]))
		}
		return SelectorResult{Action: SelectorActionNone}
	case "space":
		p.SetQuery(p.query + " ")
		return SelectorResult{Action: SelectorActionNone}
	default:
		if isPrintableKey(keyName) {
			p.SetQuery(p.query + keyName)
		}
		return SelectorResult{Action: SelectorActionNone}
	}
}

func (p *Selector) rebuild() {
	p.filtered = Suggest(p.candidates, p.query, p.exclude)
	maxIdx := len(p.filtered) - 1
	if maxIdx < 0 {
		p.cursor = 0
	} else if p.cursor > maxIdx {
		p.cursor = maxIdx
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func isPrintableKey(keyName string) bool {
	r := []rune(keyName)
	return len(r) == 1 && r[0] >= 32 && r[0] != 127
}
