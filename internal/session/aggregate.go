package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jask/modelhub/internal/registry"
)

// DefaultResyncDelay is how long after an aggregation request the approved
// collection is refreshed. The server gives no completion signal; this is a
// guess at when the aggregated model is likely visible.
const DefaultResyncDelay = 15 * time.Second

// MsgAggregating is shown once an aggregation request has been dispatched.
const MsgAggregating = "Aggregation in progress. The new model will appear once the registry approves it."

// AggregationState is the builder phase. Submitting lasts only for the
// duration of Submit; the builder is back to composing when Submit returns.
type AggregationState int

const (
	AggregationComposing AggregationState = iota
	AggregationSubmitting
)

func (s AggregationState) String() string {
	if s == AggregationSubmitting {
		return "submitting"
	}
	return "composing"
}

// Dispatcher sends an aggregation request without blocking the caller.
type Dispatcher interface {
	Dispatch(req registry.AggregationRequest)
}

// AggregationBuilder owns one aggregation request: the base model, the ordered
// member set, and the name of the new model.
type AggregationBuilder struct {
	dispatcher Dispatcher
	scheduler  Scheduler
	delay      time.Duration
	resync     func()
	log        *zap.SugaredLogger

	state   AggregationState
	base    *registry.Model
	members []registry.Model
	name    string
	notice  Notice
	timer   Timer
}

// BuilderOption configures an AggregationBuilder.
type BuilderOption func(*AggregationBuilder)

// WithScheduler replaces the wall clock used for the delayed resync.
func WithScheduler(s Scheduler) BuilderOption {
	return func(b *AggregationBuilder) { b.scheduler = s }
}

// WithResyncDelay overrides DefaultResyncDelay.
func WithResyncDelay(d time.Duration) BuilderOption {
	return func(b *AggregationBuilder) {
		if d > 0 {
			b.delay = d
		}
	}
}

// NewAggregationBuilder wires a builder. resync runs on the scheduler's
// goroutine after each submit and must be safe to call from there; nil
// disables the delayed refresh.
func NewAggregationBuilder(d Dispatcher, resync func(), log *zap.SugaredLogger, opts ...BuilderOption) *AggregationBuilder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	b := &AggregationBuilder{
		dispatcher: d,
		scheduler:  WallClock{},
		delay:      DefaultResyncDelay,
		resync:     resync,
		log:        log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *AggregationBuilder) State() AggregationState { return b.state }

func (b *AggregationBuilder) Notice() Notice { return b.notice }

// Base returns the chosen base model.
func (b *AggregationBuilder) Base() (registry.Model, bool) {
	if b.base == nil {
		return registry.Model{}, false
	}
	return *b.base, true
}

// Members returns the chosen members in insertion order.
func (b *AggregationBuilder) Members() []registry.Model { return slices.Clone(b.members) }

func (b *AggregationBuilder) Name() string { return b.name }

// SetName records the aggregation name as it is typed.
func (b *AggregationBuilder) SetName(name string) { b.name = name }

// Staged reports whether id is staged as a member.
func (b *AggregationBuilder) Staged(id string) bool {
	return b.memberIndex(id) >= 0
}

// BaseExclusions are the ids the base selector must hide.
func (b *AggregationBuilder) BaseExclusions() IDSet {
	out := make(IDSet, len(b.members))
	for _, m := range b.members {
		out[m.ID] = struct{}{}
	}
	return out
}

// MemberExclusions are the ids the member selector must hide.
func (b *AggregationBuilder) MemberExclusions() IDSet {
	out := b.BaseExclusions()
	if b.base != nil {
		out[b.base.ID] = struct{}{}
	}
	return out
}

// SetBase chooses m as the base. A model that is already a member is rejected
// and nothing changes.
func (b *AggregationBuilder) SetBase(m registry.Model) error {
	if b.conflictsWithMembers(m) {
		err := registry.Invalid("base_model", fmt.Sprintf("%s is already selected for aggregation", m.Name))
		b.notice = failure(registry.UserMessage(err, ""))
		return err
	}
	cp := m
	b.base = &cp
	b.notice = Notice{}
	return nil
}

// ClearBase drops the base; members are untouched.
func (b *AggregationBuilder) ClearBase() {
	b.base = nil
}

// AddMember appends m. The base and existing members are rejected.
func (b *AggregationBuilder) AddMember(m registry.Model) error {
	if b.base != nil && (b.base.ID == m.ID || b.base.Name == m.Name) {
		err := registry.Invalid("models_to_aggregate", fmt.Sprintf("%s is the base model", m.Name))
		b.notice = failure(registry.UserMessage(err, ""))
		return err
	}
	if b.conflictsWithMembers(m) {
		err := registry.Invalid("models_to_aggregate", fmt.Sprintf("%s is already selected", m.Name))
		b.notice = failure(registry.UserMessage(err, ""))
		return err
	}
	b.members = append(b.members, m)
	b.notice = Notice{}
	return nil
}

// RemoveMember drops the member with id; the base is untouched.
func (b *AggregationBuilder) RemoveMember(id string) bool {
	idx := b.memberIndex(id)
	if idx < 0 {
		return false
	}
	b.members = slices.Delete(b.members, idx, idx+1)
	return true
}

// ToggleStaged adds m as a member, or removes it if already staged.
func (b *AggregationBuilder) ToggleStaged(m registry.Model) error {
	if b.RemoveMember(m.ID) {
		return nil
	}
	return b.AddMember(m)
}

// Prune drops the base and any member whose id is no longer in approved, and
// refreshes the kept copies. A member whose refreshed name collides with the
// base or an earlier member is dropped too. It reports whether anything was
// dropped.
func (b *AggregationBuilder) Prune(approved []registry.Model) bool {
	byID := make(map[string]registry.Model, len(approved))
	for _, m := range approved {
		byID[m.ID] = m
	}
	dropped := false
	if b.base != nil {
		if fresh, ok := byID[b.base.ID]; ok {
			b.base = &fresh
		} else {
			b.log.Infow("base model left the approved collection", "model_id", b.base.ID)
			b.base = nil
			dropped = true
		}
	}
	seen := make(map[string]struct{}, len(b.members)+1)
	if b.base != nil {
		seen[b.base.Name] = struct{}{}
	}
	kept := b.members[:0]
	for _, m := range b.members {
		fresh, ok := byID[m.ID]
		if !ok {
			b.log.Infow("member model left the approved collection", "model_id", m.ID)
			dropped = true
			continue
		}
		if _, taken := seen[fresh.Name]; taken {
			b.log.Infow("member model renamed onto a selected name", "model_id", m.ID, "name", fresh.Name)
			dropped = true
			continue
		}
		seen[fresh.Name] = struct{}{}
		kept = append(kept, fresh)
	}
	b.members = kept
	return dropped
}

// Request builds the request for name from the current selection without
// validating it.
func (b *AggregationBuilder) Request(name string) registry.AggregationRequest {
	req := registry.AggregationRequest{ModelName: strings.TrimSpace(name)}
	if b.base != nil {
		req.BaseModel = b.base.Name
	}
	for _, m := range b.members {
		req.ModelsToAggregate = append(req.ModelsToAggregate, m.Name)
	}
	return req
}

// Submit validates and dispatches the request without waiting for it, resets
// the composing fields, and (re)starts the delayed approved refresh. On a
// validation failure nothing is sent and the selection is kept.
func (b *AggregationBuilder) Submit(name string) (registry.AggregationRequest, error) {
	req := b.Request(name)
	if err := req.Validate(); err != nil {
		b.notice = failure(registry.UserMessage(err, "Invalid aggregation request"))
		return registry.AggregationRequest{}, err
	}

	b.state = AggregationSubmitting
	b.notice = info(MsgAggregating)
	b.dispatcher.Dispatch(req)
	b.log.Infow("aggregation dispatched", "model_name", req.ModelName, "base_model", req.BaseModel, "members", req.ModelsToAggregate)

	b.base = nil
	b.members = nil
	b.name = ""
	b.scheduleResync()
	b.state = AggregationComposing
	return req, nil
}

func (b *AggregationBuilder) scheduleResync() {
	if b.resync == nil {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = b.scheduler.AfterFunc(b.delay, b.resync)
}

// Close cancels a pending delayed refresh.
func (b *AggregationBuilder) Close() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *AggregationBuilder) memberIndex(id string) int {
	return slices.IndexFunc(b.members, func(m registry.Model) bool { return m.ID == id })
}

func (b *AggregationBuilder) conflictsWithMembers(m registry.Model) bool {
	return slices.ContainsFunc(b.members, func(x registry.Model) bool { return x.ID == m.ID || x.Name == m.Name })
}

// Aggregator sends an aggregation request.
type Aggregator interface {
	AggregateModels(ctx context.Context, r registry.AggregationRequest) error
}

// AsyncDispatcher sends each request on its own goroutine. Failures to send
// are logged and otherwise ignored.
type AsyncDispatcher struct {
	client  Aggregator
	timeout time.Duration
	log     *zap.SugaredLogger
	wg      sync.WaitGroup
}

func NewAsyncDispatcher(c Aggregator, timeout time.Duration, log *zap.SugaredLogger) *AsyncDispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AsyncDispatcher{client: c, timeout: timeout, log: log}
}

func (d *AsyncDispatcher) Dispatch(req registry.AggregationRequest) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx := context.Background()
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}
		err := d.client.AggregateModels(ctx, req)
		switch {
		case err == nil:
		case registry.IsTransport(err):
			d.log.Warnw("aggregation request not delivered", "model_name", req.ModelName, "error", err)
		default:
			d.log.Errorw("aggregation request rejected", "model_name", req.ModelName, "error", err)
		}
	}()
}

// Wait blocks until every dispatched request has been handed to the server.
// Only process teardown should call it.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}
