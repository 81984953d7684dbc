// Package session drives one utterance from armed capture to typed text.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"murmur/audio"
	"murmur/log"
	"murmur/rewrite"
	"murmur/transcriber"
	"murmur/typist"
)

// Recorder is the capture surface the orchestrator needs. *audio.Recorder
// satisfies it.
type Recorder interface {
	Start() error
	Stop() *audio.Buffer
	DeviceName() string
}

// Hooks are fire-and-forget UI notifications. Nil funcs are skipped.
type Hooks struct {
	OverlayShow  func()
	OverlayHide  func()
	OnRewrite    func() // a SMART rewrite stream is opening
	OnTranscript func(text string)
	OnError      func(stage string, err error)
}

func (h Hooks) show() {
	if h.OverlayShow != nil {
		h.OverlayShow()
	}
}

func (h Hooks) hide() {
	if h.OverlayHide != nil {
		h.OverlayHide()
	}
}

func (h Hooks) rewriting() {
	if h.OnRewrite != nil {
		h.OnRewrite()
	}
}

func (h Hooks) transcript(text string) {
	if h.OnTranscript != nil {
		h.OnTranscript(text)
	}
}

func (h Hooks) fail(stage string, err error) {
	log.Errorf("%s: %v", stage, err)
	if h.OnError != nil {
		h.OnError(stage, err)
	}
}

// Orchestrator owns the capture→transcribe→(rewrite)→type pipeline.
// Arm and Release must be called from a single goroutine; the network
// and typing stages run on per-utterance goroutines so the next capture
// can begin while the previous utterance is still in flight.
type Orchestrator struct {
	rec   Recorder
	trans transcriber.Transcriber
	rw    rewrite.Rewriter
	sink  typist.Sink
	hooks Hooks

	mode      atomic.Int32
	recording bool

	// Closed when the previous utterance has finished typing. Each new
	// utterance chains on it so typed output stays in capture order even
	// when network stages overlap.
	prevDone chan struct{}

	lastMu sync.Mutex
	last   string
}

func New(rec Recorder, trans transcriber.Transcriber, rw rewrite.Rewriter, sink typist.Sink, hooks Hooks) *Orchestrator {
	done := make(chan struct{})
	close(done)
	return &Orchestrator{
		rec:      rec,
		trans:    trans,
		rw:       rw,
		sink:     sink,
		hooks:    hooks,
		prevDone: done,
	}
}

func (o *Orchestrator) SetMode(m Mode) { o.mode.Store(int32(m)) }
func (o *Orchestrator) Mode() Mode     { return Mode(o.mode.Load()) }

// LastTranscript returns the most recently typed text.
func (o *Orchestrator) LastTranscript() string {
	o.lastMu.Lock()
	defer o.lastMu.Unlock()
	return o.last
}

func (o *Orchestrator) setLast(text string) {
	o.lastMu.Lock()
	o.last = text
	o.lastMu.Unlock()
	o.hooks.transcript(text)
}

// Arm opens capture. The overlay only appears once the device confirms;
// a device failure is reported and the session stays idle.
func (o *Orchestrator) Arm() {
	if o.recording {
		return
	}
	if err := o.rec.Start(); err != nil {
		o.hooks.fail("starting capture", err)
		return
	}
	o.recording = true
	o.hooks.show()
}

// Release closes capture and hands the finished buffer to the pipeline.
// Returns immediately; transcription and typing continue in background.
func (o *Orchestrator) Release() {
	if !o.recording {
		return
	}
	o.recording = false
	o.hooks.hide()

	buf := o.rec.Stop()
	if buf == nil {
		// Released almost immediately after arming; nothing worth sending.
		return
	}

	prev := o.prevDone
	done := make(chan struct{})
	o.prevDone = done
	go o.pipeline(buf, prev, done)
}

// Wait blocks until every utterance released so far has finished typing.
// Must be called from the same goroutine as Arm and Release.
func (o *Orchestrator) Wait() {
	<-o.prevDone
}

// pipeline runs one utterance to completion. It must receive from prev
// before the first Type call and must not close done until after that
// receive, so output stays serialized across overlapping utterances.
func (o *Orchestrator) pipeline(buf *audio.Buffer, prev <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	result, err := o.trans.Transcribe(context.Background(), buf)

	<-prev

	if err != nil {
		o.hooks.fail("transcription", err)
		return
	}
	if result.Text == "" {
		return
	}

	log.TranscriptionText(result.Text)
	if result.Network != nil {
		log.TranscriptionMetrics(log.Metrics{
			AudioLengthS: result.Audio.LengthS,
			RawSizeKB:    result.Audio.RawKB,
			EncodedKB:    result.Audio.EncodedKB,
			EncodeTimeMs: result.Audio.EncodeMs,
			DNSTimeMs:    float64(result.Network.DNS.Milliseconds()),
			TLSTimeMs:    float64(result.Network.TLS.Milliseconds()),
			TTFBMs:       float64(result.Network.TTFB.Milliseconds()),
			TotalTimeMs:  float64(result.Network.Total.Milliseconds()),
		}, o.trans.Name(), "", o.trans.GetLanguage(), result.Network.ConnReused, result.Network.TLSProtocol)
	}

	// The mode is fixed for this utterance from here on. A switch in the
	// tray affects the next utterance, never one already past this point.
	mode := o.Mode()
	if mode == ModeSmart && o.rw != nil {
		o.typeSmart(result.Text)
		return
	}

	if err := o.sink.Type(result.Text); err != nil {
		o.hooks.fail("typing", err)
		return
	}
	o.setLast(result.Text)
}

// typeSmart streams the rewrite and types each content delta as it
// arrives. On failure the raw transcript is typed only when no delta
// made it out; partial output is kept as-is, never retracted.
func (o *Orchestrator) typeSmart(raw string) {
	start := time.Now()
	o.hooks.rewriting()

	stream, err := o.rw.Rewrite(context.Background(), raw)
	if err != nil {
		o.hooks.fail("rewrite", err)
		o.typeRawFallback(raw, 0, start)
		return
	}

	var typed string
	deltas := 0
	for d := range stream {
		if d.Err != nil {
			o.hooks.fail("rewrite stream", d.Err)
			if typed == "" {
				o.typeRawFallback(raw, deltas, start)
				return
			}
			// Partial output stands; the fallback would duplicate it.
			o.setLast(typed)
			log.RewriteMetrics(log.RewriteMetricsData{
				Deltas:     deltas,
				TypedChars: len(typed),
				TotalMs:    float64(time.Since(start).Milliseconds()),
				Failed:     true,
			})
			return
		}
		if d.Done {
			break
		}
		if d.Text == "" {
			continue
		}
		deltas++
		if err := o.sink.Type(d.Text); err != nil {
			o.hooks.fail("typing", err)
			o.setLast(typed)
			return
		}
		typed += d.Text
	}

	if typed == "" {
		// Clean completion with no content at all reads as a model
		// refusal; the raw transcript is better than nothing.
		o.typeRawFallback(raw, deltas, start)
		return
	}

	o.setLast(typed)
	log.RewriteMetrics(log.RewriteMetricsData{
		Deltas:     deltas,
		TypedChars: len(typed),
		TotalMs:    float64(time.Since(start).Milliseconds()),
	})
}

func (o *Orchestrator) typeRawFallback(raw string, deltas int, start time.Time) {
	if err := o.sink.Type(raw); err != nil {
		o.hooks.fail("typing", err)
		return
	}
	o.setLast(raw)
	log.RewriteMetrics(log.RewriteMetricsData{
		Deltas:     deltas,
		TypedChars: len(raw),
		TotalMs:    float64(time.Since(start).Milliseconds()),
		Fallback:   true,
	})
}
