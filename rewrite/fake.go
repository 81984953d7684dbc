package rewrite

import (
	"context"
	"sync"
	"time"
)

// FakeRewriter replays scripted deltas, optionally failing partway
// through.
type FakeRewriter struct {
	Deltas   []string
	FailAt   int // fail before emitting delta at this index; -1 disables
	Err      error
	OpenErr  error
	Interval time.Duration

	mu    sync.Mutex
	calls int
}

func NewFake(deltas ...string) *FakeRewriter {
	return &FakeRewriter{Deltas: deltas, FailAt: -1}
}

func (f *FakeRewriter) Name() string { return "fake" }

func (f *FakeRewriter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeRewriter) Rewrite(ctx context.Context, text string) (<-chan Delta, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.OpenErr != nil {
		return nil, f.OpenErr
	}

	ch := make(chan Delta, 32)
	go func() {
		defer close(ch)
		for i, d := range f.Deltas {
			if f.FailAt >= 0 && i == f.FailAt {
				ch <- Delta{Err: f.Err}
				return
			}
			if f.Interval > 0 {
				select {
				case <-time.After(f.Interval):
				case <-ctx.Done():
					ch <- Delta{Err: ctx.Err()}
					return
				}
			}
			ch <- Delta{Text: d}
		}
		if f.FailAt >= 0 && f.FailAt >= len(f.Deltas) {
			ch <- Delta{Err: f.Err}
			return
		}
		ch <- Delta{Done: true}
	}()
	return ch, nil
}
