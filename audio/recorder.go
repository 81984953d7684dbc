package audio

import (
	"fmt"
	"sync"

	"murmur/encoder"
)

// Captures shorter than this are treated as empty (release right after
// arming, before the device produced anything meaningful).
const minCaptureFrames = encoder.SampleRate / 10

// Recorder owns one recording's lifecycle on a long-lived capture device:
// Start arms the device and accumulates frames, Stop yields the finished
// buffer. Levels are pushed to onLevel per frame, fire-and-forget.
type Recorder struct {
	capture CaptureDevice
	onLevel func(float64)

	mu     sync.Mutex
	meter  *LevelMeter
	pcm    []byte
	frames uint64
	open   bool
}

func NewRecorder(capture CaptureDevice, onLevel func(float64)) *Recorder {
	return &Recorder{capture: capture, onLevel: onLevel}
}

func (r *Recorder) SetCapture(capture CaptureDevice) {
	r.mu.Lock()
	r.capture = capture
	r.mu.Unlock()
}

func (r *Recorder) DeviceName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capture.DeviceName()
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.open {
		r.mu.Unlock()
		return fmt.Errorf("recorder already open")
	}
	r.pcm = nil
	r.frames = 0
	r.meter = NewLevelMeter()
	r.open = true
	capture := r.capture
	r.mu.Unlock()

	capture.SetCallback(func(data []byte, frameCount uint32) {
		r.mu.Lock()
		if !r.open {
			r.mu.Unlock()
			return
		}
		r.pcm = append(r.pcm, data...)
		r.frames += uint64(frameCount)
		meter := r.meter
		r.mu.Unlock()

		if r.onLevel != nil && len(data) > 1 {
			r.onLevel(meter.Update(data))
		}
	})

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		r.mu.Lock()
		r.open = false
		r.mu.Unlock()
		return fmt.Errorf("starting capture: %w", err)
	}
	return nil
}

// Stop halts capture and returns the finished buffer, or nil when the
// capture was too short to transcribe.
func (r *Recorder) Stop() *Buffer {
	r.mu.Lock()
	capture := r.capture
	r.mu.Unlock()

	capture.Stop()
	capture.ClearCallback()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil
	}
	r.open = false

	if r.frames < minCaptureFrames {
		return nil
	}
	buf := &Buffer{
		PCM:        r.pcm,
		Frames:     r.frames,
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}
	r.pcm = nil
	return buf
}
