package session

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/jask/modelhub/internal/registry"
)

// Collection names one of the two remote model lists.
type Collection int

const (
	Approved Collection = iota
	Pending
)

func (c Collection) String() string {
	if c == Pending {
		return "pending"
	}
	return "approved"
}

// Fetcher reads the remote collections.
type Fetcher interface {
	ListApproved(ctx context.Context) ([]registry.Model, error)
	ListPending(ctx context.Context) ([]registry.Model, error)
}

// Snapshot is the result of one refresh, produced off the event loop and
// handed back to RegistrySync.Apply.
type Snapshot struct {
	Collection Collection
	Generation uint64
	Models     []registry.Model
	Err        error
}

// RegistrySync caches the approved and pending collections. Each refresh
// replaces its own collection wholesale; there is no merge step, so the two
// collections can be refreshed concurrently in any order.
type RegistrySync struct {
	fetcher Fetcher
	log     *zap.SugaredLogger

	models  [2][]registry.Model
	issued  [2]uint64
	applied [2]uint64
	loaded  [2]bool
}

func NewRegistrySync(f Fetcher, log *zap.SugaredLogger) *RegistrySync {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RegistrySync{
		fetcher: f,
		log:     log,
		models:  [2][]registry.Model{{}, {}},
	}
}

// Begin registers a new refresh of c and returns the fetch to run off the loop.
// The fetch touches no RegistrySync state.
func (s *RegistrySync) Begin(c Collection) func(ctx context.Context) Snapshot {
	s.issued[c]++
	gen := s.issued[c]
	fetcher := s.fetcher
	return func(ctx context.Context) Snapshot {
		var (
			models []registry.Model
			err    error
		)
		if c == Pending {
			models, err = fetcher.ListPending(ctx)
		} else {
			models, err = fetcher.ListApproved(ctx)
		}
		return Snapshot{Collection: c, Generation: gen, Models: models, Err: err}
	}
}

// Apply installs snap. A failed refresh keeps the previous collection and is
// logged; a snapshot older than the one already applied is dropped. It
// reports whether the cached collection was replaced.
func (s *RegistrySync) Apply(snap Snapshot) bool {
	c := snap.Collection
	if snap.Err != nil {
		s.log.Warnw("registry refresh failed; keeping previous collection",
			"collection", c.String(), "generation", snap.Generation, "error", snap.Err)
		return false
	}
	if snap.Generation <= s.applied[c] {
		s.log.Debugw("dropping stale registry snapshot",
			"collection", c.String(), "generation", snap.Generation, "applied", s.applied[c])
		return false
	}
	s.models[c] = s.dedupe(c, snap.Models)
	s.applied[c] = snap.Generation
	s.loaded[c] = true
	s.log.Debugw("registry collection replaced", "collection", c.String(), "count", len(s.models[c]))
	return true
}

func (s *RegistrySync) dedupe(c Collection, in []registry.Model) []registry.Model {
	out := make([]registry.Model, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, m := range in {
		if _, ok := seen[m.ID]; ok {
			s.log.Warnw("duplicate model id in response", "collection", c.String(), "model_id", m.ID)
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// RefreshApproved runs a full approved refresh in the caller's goroutine.
func (s *RegistrySync) RefreshApproved(ctx context.Context) error {
	return s.refresh(ctx, Approved)
}

// RefreshPending runs a full pending refresh in the caller's goroutine.
func (s *RegistrySync) RefreshPending(ctx context.Context) error {
	return s.refresh(ctx, Pending)
}

func (s *RegistrySync) refresh(ctx context.Context, c Collection) error {
	snap := s.Begin(c)(ctx)
	s.Apply(snap)
	return snap.Err
}

// Approved returns a copy of the cached approved collection.
func (s *RegistrySync) Approved() []registry.Model { return slices.Clone(s.models[Approved]) }

// Pending returns a copy of the cached pending collection.
func (s *RegistrySync) Pending() []registry.Model { return slices.Clone(s.models[Pending]) }

// Loaded reports whether c has been populated at least once.
func (s *RegistrySync) Loaded(c Collection) bool { return s.loaded[c] }

// Registry is approved followed by pending, with each model_id appearing once.
// A pending copy of an id that is already approved is a status change caught
// between refreshes; the approved copy wins.
func (s *RegistrySync) Registry() []registry.Model {
	out := make([]registry.Model, 0, len(s.models[Approved])+len(s.models[Pending]))
	seen := make(map[string]struct{}, cap(out))
	for _, c := range []Collection{Approved, Pending} {
		for _, m := range s.models[c] {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
