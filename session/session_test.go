package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"murmur/audio"
	"murmur/encoder"
	"murmur/rewrite"
	"murmur/transcriber"
	"murmur/typist"
)

type fakeRecorder struct {
	mu       sync.Mutex
	startErr error
	starts   int
	stops    int
	buf      *audio.Buffer
}

func (r *fakeRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	return nil
}

func (r *fakeRecorder) Stop() *audio.Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return r.buf
}

func (r *fakeRecorder) DeviceName() string { return "fake" }

func secondBuffer() *audio.Buffer {
	return &audio.Buffer{
		PCM:        make([]byte, encoder.SampleRate*2),
		Frames:     encoder.SampleRate,
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}
}

type overlayLog struct {
	mu     sync.Mutex
	shows  int
	hides  int
	errors []string
}

func (l *overlayLog) hooks() Hooks {
	return Hooks{
		OverlayShow: func() {
			l.mu.Lock()
			l.shows++
			l.mu.Unlock()
		},
		OverlayHide: func() {
			l.mu.Lock()
			l.hides++
			l.mu.Unlock()
		},
		OnError: func(stage string, err error) {
			l.mu.Lock()
			l.errors = append(l.errors, stage)
			l.mu.Unlock()
		},
	}
}

func (l *overlayLog) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

// waitTyped polls until the sink's full text equals want.
func waitTyped(t *testing.T, sink *typist.FakeSink, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sink.Text() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("typed %q, want %q", sink.Text(), want)
}

func waitErrors(t *testing.T, l *overlayLog, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if l.errorCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("got %d reported errors, want %d", l.errorCount(), n)
}

func TestRawUtteranceTyped(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	ol := &overlayLog{}
	o := New(rec, transcriber.NewFake("hello world", nil), nil, sink, ol.hooks())

	o.Arm()
	o.Release()
	o.Wait()

	if got := sink.Calls(); len(got) != 1 || got[0] != "hello world" {
		t.Fatalf("sink calls = %q, want one full transcript", got)
	}
	if ol.shows != 1 || ol.hides != 1 {
		t.Errorf("overlay shows/hides = %d/%d, want 1/1", ol.shows, ol.hides)
	}
	if o.LastTranscript() != "hello world" {
		t.Errorf("LastTranscript = %q", o.LastTranscript())
	}
}

func TestDeviceFailureNoOverlay(t *testing.T) {
	rec := &fakeRecorder{startErr: errors.New("device busy")}
	sink := typist.NewFakeSink()
	ol := &overlayLog{}
	o := New(rec, transcriber.NewFake("x", nil), nil, sink, ol.hooks())

	o.Arm()
	if ol.shows != 0 {
		t.Error("overlay shown despite device failure")
	}
	waitErrors(t, ol, 1)

	// Release with no active recording is a no-op.
	o.Release()
	if rec.stops != 0 {
		t.Error("Stop called without active recording")
	}
}

func TestShortCaptureSkipsTranscription(t *testing.T) {
	rec := &fakeRecorder{buf: nil} // recorder discarded the capture
	tr := transcriber.NewFake("x", nil)
	o := New(rec, tr, nil, typist.NewFakeSink(), Hooks{})

	o.Arm()
	o.Release()
	o.Wait()

	if tr.Calls() != 0 {
		t.Error("transcriber called for empty capture")
	}
}

func TestArmWhileRecordingIgnored(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	o := New(rec, transcriber.NewFake("x", nil), nil, typist.NewFakeSink(), Hooks{})

	o.Arm()
	o.Arm()
	if rec.starts != 1 {
		t.Fatalf("capture started %d times, want 1", rec.starts)
	}
	o.Release()
	o.Wait()
}

func TestTranscriptionFailureTypesNothing(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	ol := &overlayLog{}
	o := New(rec, transcriber.NewFake("", errors.New("503")), nil, sink, ol.hooks())

	o.Arm()
	o.Release()
	o.Wait()

	if sink.Text() != "" {
		t.Errorf("typed %q after transcription failure", sink.Text())
	}
	waitErrors(t, ol, 1)
}

func TestEmptyTranscriptTypesNothing(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	o := New(rec, transcriber.NewFake("", nil), nil, sink, Hooks{})

	o.Arm()
	o.Release()
	o.Wait()

	if sink.Text() != "" {
		t.Errorf("typed %q for empty transcript", sink.Text())
	}
}

func TestSmartTypesDeltasInOrder(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	rw := rewrite.NewFake("Hello", ", ", "world.")
	o := New(rec, transcriber.NewFake("hello world", nil), rw, sink, Hooks{})
	o.SetMode(ModeSmart)

	o.Arm()
	o.Release()
	o.Wait()

	calls := sink.Calls()
	if len(calls) != 3 || calls[0] != "Hello" || calls[1] != ", " || calls[2] != "world." {
		t.Fatalf("sink calls = %q", calls)
	}
	if o.LastTranscript() != "Hello, world." {
		t.Errorf("LastTranscript = %q", o.LastTranscript())
	}
}

func TestSmartSignalsRewriteStage(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	rw := rewrite.NewFake("cleaned up")
	rewriting := make(chan struct{}, 1)
	o := New(rec, transcriber.NewFake("raw words", nil), rw, sink, Hooks{
		OnRewrite: func() { rewriting <- struct{}{} },
	})
	o.SetMode(ModeSmart)

	o.Arm()
	o.Release()
	o.Wait()

	select {
	case <-rewriting:
	default:
		t.Error("rewrite stage never signaled")
	}
	waitTyped(t, sink, "cleaned up")
}

func TestRawSkipsRewriteStage(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	rewriting := make(chan struct{}, 1)
	o := New(rec, transcriber.NewFake("raw words", nil), rewrite.NewFake("unused"), sink, Hooks{
		OnRewrite: func() { rewriting <- struct{}{} },
	})

	o.Arm()
	o.Release()
	o.Wait()

	select {
	case <-rewriting:
		t.Error("rewrite stage signaled in raw mode")
	default:
	}
	waitTyped(t, sink, "raw words")
}

func TestSmartMidStreamFailureKeepsPartial(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	rw := rewrite.NewFake("partial ", "output ", "lost")
	rw.FailAt = 2
	rw.Err = errors.New("connection reset")
	ol := &overlayLog{}
	o := New(rec, transcriber.NewFake("the raw transcript", nil), rw, sink, ol.hooks())
	o.SetMode(ModeSmart)

	o.Arm()
	o.Release()
	o.Wait()

	// Partial output stands, no raw fallback appended.
	if sink.Text() != "partial output " {
		t.Fatalf("typed %q", sink.Text())
	}
	waitErrors(t, ol, 1)
}

func TestSmartFailureBeforeOutputFallsBackToRaw(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	rw := rewrite.NewFake()
	rw.FailAt = 0
	rw.Err = errors.New("timeout")
	ol := &overlayLog{}
	o := New(rec, transcriber.NewFake("the raw transcript", nil), rw, sink, ol.hooks())
	o.SetMode(ModeSmart)

	o.Arm()
	o.Release()
	o.Wait()

	if sink.Text() != "the raw transcript" {
		t.Fatalf("typed %q, want raw fallback", sink.Text())
	}
	waitErrors(t, ol, 1)
}

func TestSmartOpenFailureFallsBackToRaw(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	rw := rewrite.NewFake("never")
	rw.OpenErr = errors.New("401")
	ol := &overlayLog{}
	o := New(rec, transcriber.NewFake("raw text", nil), rw, sink, ol.hooks())
	o.SetMode(ModeSmart)

	o.Arm()
	o.Release()
	o.Wait()

	if sink.Text() != "raw text" {
		t.Fatalf("typed %q, want raw fallback", sink.Text())
	}
	waitErrors(t, ol, 1)
}

func TestSmartEmptyCompletionFallsBackToRaw(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	rw := rewrite.NewFake() // clean completion, zero content deltas
	o := New(rec, transcriber.NewFake("raw text", nil), rw, sink, Hooks{})
	o.SetMode(ModeSmart)

	o.Arm()
	o.Release()
	o.Wait()

	if sink.Text() != "raw text" {
		t.Fatalf("typed %q, want raw fallback", sink.Text())
	}
}

func TestModeReadAtTranscriptionCompletion(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	tr := transcriber.NewFake("hello", nil)
	tr.Delay = 100 * time.Millisecond
	rw := rewrite.NewFake("rewritten")
	o := New(rec, tr, rw, sink, Hooks{})
	o.SetMode(ModeRaw)

	o.Arm()
	o.Release()
	// Switch while transcription is still in flight; the new mode applies
	// because no mode decision has been made yet.
	o.SetMode(ModeSmart)
	o.Wait()

	if sink.Text() != "rewritten" {
		t.Fatalf("typed %q, want rewrite output", sink.Text())
	}
}

func TestModeSwitchDoesNotAffectInFlightRewrite(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	rw := rewrite.NewFake("slow ", "stream ", "done.")
	rw.Interval = 30 * time.Millisecond
	o := New(rec, transcriber.NewFake("raw", nil), rw, sink, Hooks{})
	o.SetMode(ModeSmart)

	o.Arm()
	o.Release()
	time.Sleep(40 * time.Millisecond)
	o.SetMode(ModeRaw) // mid-stream switch
	o.Wait()

	if sink.Text() != "slow stream done." {
		t.Fatalf("typed %q, want full rewrite output", sink.Text())
	}
}

func TestOutputSerializedAcrossUtterances(t *testing.T) {
	sink := typist.NewFakeSink()

	slow := transcriber.NewFake("first. ", nil)
	slow.Delay = 150 * time.Millisecond
	fast := transcriber.NewFake("second.", nil)

	recA := &fakeRecorder{buf: secondBuffer()}
	recB := &fakeRecorder{buf: secondBuffer()}

	// Two orchestrators sharing a sink would not serialize; ordering is a
	// per-orchestrator guarantee, so drive two utterances through one.
	o := New(recA, slow, nil, sink, Hooks{})

	o.Arm()
	o.Release() // slow utterance in flight

	o.rec = recB
	o.trans = fast
	o.Arm()
	o.Release() // fast utterance must still type second

	o.Wait()
	waitTyped(t, sink, "first. second.")
}

func TestTypingErrorReported(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	sink := typist.NewFakeSink()
	sink.Err = errors.New("uinput gone")
	ol := &overlayLog{}
	o := New(rec, transcriber.NewFake("hello", nil), nil, sink, ol.hooks())

	o.Arm()
	o.Release()
	o.Wait()
	waitErrors(t, ol, 1)
}

func TestReleaseWithoutArmIgnored(t *testing.T) {
	rec := &fakeRecorder{buf: secondBuffer()}
	tr := transcriber.NewFake("x", nil)
	o := New(rec, tr, nil, typist.NewFakeSink(), Hooks{})

	o.Release()
	if rec.stops != 0 || tr.Calls() != 0 {
		t.Error("release without arm touched the pipeline")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("raw"); err != nil || m != ModeRaw {
		t.Errorf("ParseMode(raw) = %v, %v", m, err)
	}
	if m, err := ParseMode("smart"); err != nil || m != ModeSmart {
		t.Errorf("ParseMode(smart) = %v, %v", m, err)
	}
	if _, err := ParseMode("clever"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
