package typist

import (
	"strings"
	"sync"
)

// FakeSink records typed increments for tests.
type FakeSink struct {
	mu    sync.Mutex
	calls []string
	Err   error // returned by every Type call when set
}

func NewFakeSink() *FakeSink { return &FakeSink{} }

func (f *FakeSink) Type(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.calls = append(f.calls, text)
	return nil
}

// Calls returns each Type increment in order.
func (f *FakeSink) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Text returns everything typed so far, concatenated.
func (f *FakeSink) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.calls, "")
}
