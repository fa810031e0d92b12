package session

import (
	"context"
	"sync"
	"time"

	"github.com/jask/modelhub/internal/registry"
)

type fakeFetcher struct {
	mu       sync.Mutex
	approved [][]registry.Model
	pending  [][]registry.Model
	err      error
	calls    int
}

func (f *fakeFetcher) ListApproved(context.Context) ([]registry.Model, error) {
	return f.next(&f.approved)
}

func (f *fakeFetcher) ListPending(context.Context) ([]registry.Model, error) {
	return f.next(&f.pending)
}

func (f *fakeFetcher) next(q *[][]registry.Model) ([]registry.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(*q) == 0 {
		return []registry.Model{}, nil
	}
	out := (*q)[0]
	*q = (*q)[1:]
	return out, nil
}

type fakeUploader struct {
	err   error
	calls int
	last  registry.UploadRequest
}

func (u *fakeUploader) AddModel(_ context.Context, r registry.UploadRequest) error {
	u.calls++
	u.last = r
	return u.err
}

type countingRefresher struct{ calls int }

func (r *countingRefresher) RefreshApproved(context.Context) error {
	r.calls++
	return nil
}

type recordingDispatcher struct{ sent []registry.AggregationRequest }

func (d *recordingDispatcher) Dispatch(req registry.AggregationRequest) {
	d.sent = append(d.sent, req)
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct{ timers []*fakeTimer }

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) fire() {
	for _, t := range s.timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

func model(id, name string) registry.Model {
	return registry.Model{ID: id, Name: name, Status: registry.StatusApproved}
}
