package transcriber

import (
	"context"
	"sync"
	"time"

	"murmur/audio"
)

// FakeTranscriber returns a scripted result after an optional delay.
type FakeTranscriber struct {
	Text  string
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	lang  string
	calls int
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{Text: text, lang: "auto", Err: err}
}

func (f *FakeTranscriber) Name() string { return "fake" }

func (f *FakeTranscriber) SetLanguage(lang string) {
	f.mu.Lock()
	f.lang = lang
	f.mu.Unlock()
}

func (f *FakeTranscriber) GetLanguage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lang
}

func (f *FakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeTranscriber) Transcribe(ctx context.Context, buf *audio.Buffer) (*Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &Result{
		Text:    f.Text,
		Network: &NetworkMetrics{},
		Audio:   AudioStats{LengthS: buf.Duration().Seconds()},
	}, nil
}
