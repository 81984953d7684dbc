package audio

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"murmur/encoder"
)

// scriptedCapture lets tests feed frames through the callback directly.
type scriptedCapture struct {
	mu       sync.Mutex
	cb       DataCallback
	startErr error
	started  int
	stopped  int
}

func (s *scriptedCapture) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started++
	return nil
}

func (s *scriptedCapture) Stop() {
	s.mu.Lock()
	s.stopped++
	s.mu.Unlock()
}

func (s *scriptedCapture) Close() {}

func (s *scriptedCapture) SetCallback(cb DataCallback) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *scriptedCapture) ClearCallback() {
	s.mu.Lock()
	s.cb = nil
	s.mu.Unlock()
}

func (s *scriptedCapture) DeviceName() string { return "scripted" }

func (s *scriptedCapture) feed(frames int) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb != nil {
		cb(make([]byte, frames*2), uint32(frames))
	}
}

func TestRecorderAccumulatesFrames(t *testing.T) {
	cap := &scriptedCapture{}
	rec := NewRecorder(cap, nil)

	if err := rec.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 16; i++ {
		cap.feed(1024)
	}
	buf := rec.Stop()
	if buf == nil {
		t.Fatal("expected buffer, got nil")
	}
	if buf.Frames != 16*1024 {
		t.Fatalf("frames = %d, want %d", buf.Frames, 16*1024)
	}
	if len(buf.PCM) != 16*1024*2 {
		t.Fatalf("pcm bytes = %d, want %d", len(buf.PCM), 16*1024*2)
	}
	if buf.SampleRate != encoder.SampleRate || buf.Channels != encoder.Channels {
		t.Fatalf("unexpected format %d/%d", buf.SampleRate, buf.Channels)
	}
	if cap.stopped != 1 {
		t.Fatalf("capture stopped %d times, want 1", cap.stopped)
	}
}

func TestRecorderShortCaptureDiscarded(t *testing.T) {
	cap := &scriptedCapture{}
	rec := NewRecorder(cap, nil)

	if err := rec.Start(); err != nil {
		t.Fatal(err)
	}
	cap.feed(minCaptureFrames - 1)
	if buf := rec.Stop(); buf != nil {
		t.Fatalf("expected nil buffer for short capture, got %d frames", buf.Frames)
	}
}

func TestRecorderStopWithoutStart(t *testing.T) {
	cap := &scriptedCapture{}
	rec := NewRecorder(cap, nil)
	if buf := rec.Stop(); buf != nil {
		t.Fatal("expected nil buffer")
	}
}

func TestRecorderDoubleStart(t *testing.T) {
	cap := &scriptedCapture{}
	rec := NewRecorder(cap, nil)
	if err := rec.Start(); err != nil {
		t.Fatal(err)
	}
	if err := rec.Start(); err == nil {
		t.Fatal("expected error on second Start")
	}
	rec.Stop()
}

func TestRecorderStartFailure(t *testing.T) {
	cap := &scriptedCapture{startErr: errors.New("device busy")}
	rec := NewRecorder(cap, nil)

	err := rec.Start()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "device busy") {
		t.Fatalf("error %q does not wrap cause", err)
	}
	if cap.cb != nil {
		t.Fatal("callback not cleared after failed start")
	}

	// Recorder must be reusable after a failed start.
	cap.startErr = nil
	if err := rec.Start(); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
	rec.Stop()
}

func TestRecorderLevelCallback(t *testing.T) {
	cap := &scriptedCapture{}
	var levels []float64
	rec := NewRecorder(cap, func(l float64) { levels = append(levels, l) })

	if err := rec.Start(); err != nil {
		t.Fatal(err)
	}
	cap.feed(1024)
	cap.feed(1024)
	rec.Stop()

	if len(levels) != 2 {
		t.Fatalf("got %d level updates, want 2", len(levels))
	}
	for _, l := range levels {
		if l < 0 || l >= 1 {
			t.Fatalf("level %v out of range", l)
		}
	}
}

func TestRecorderReplay(t *testing.T) {
	cap := &scriptedCapture{}
	rec := NewRecorder(cap, nil)

	for cycle := 0; cycle < 3; cycle++ {
		if err := rec.Start(); err != nil {
			t.Fatalf("cycle %d: %v", cycle, err)
		}
		cap.feed(encoder.SampleRate)
		buf := rec.Stop()
		if buf == nil || buf.Frames != encoder.SampleRate {
			t.Fatalf("cycle %d: bad buffer %+v", cycle, buf)
		}
	}
}

func TestIsBluetooth(t *testing.T) {
	cases := map[string]bool{
		"AirPods Pro":              true,
		"WH-1000XM4":               true,
		"Built-in Microphone":      false,
		"USB Audio Device":         false,
		"Jabra Elite 75t":          true,
		"Scarlett Solo":            false,
		"Galaxy Buds2 (Bluetooth)": true,
	}
	for name, want := range cases {
		if got := IsBluetooth(name); got != want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", name, got, want)
		}
	}
}
