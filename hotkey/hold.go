package hotkey

import (
	"time"
)

const DefaultHoldDelay = 500 * time.Millisecond

// Debouncer converts raw key edges into hold-to-talk events. A press held
// for at least holdDelay emits Armed; the following release emits
// Released. A release before the threshold cancels the pending timer and
// emits nothing, so short taps (ordinary typing with the modifier) are
// absorbed.
type Debouncer struct {
	armed    chan struct{}
	released chan struct{}
	stop     chan struct{}
}

type holdState int

const (
	holdIdle holdState = iota
	holdPending
	holdArmed
)

func NewDebouncer(hk Hotkey, holdDelay time.Duration) *Debouncer {
	if holdDelay <= 0 {
		holdDelay = DefaultHoldDelay
	}
	d := &Debouncer{
		armed:    make(chan struct{}, 1),
		released: make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	go d.run(hk, holdDelay)
	return d
}

// Armed signals that the key has been held past the threshold.
func (d *Debouncer) Armed() <-chan struct{} { return d.armed }

// Released signals key-up after a prior Armed.
func (d *Debouncer) Released() <-chan struct{} { return d.released }

func (d *Debouncer) Close() {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
}

func (d *Debouncer) run(hk Hotkey, holdDelay time.Duration) {
	state := holdIdle
	timer := time.NewTimer(holdDelay)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		switch state {
		case holdIdle:
			select {
			case <-hk.Keydown():
				timer.Reset(holdDelay)
				state = holdPending
			case <-d.stop:
				return
			}

		case holdPending:
			select {
			case <-timer.C:
				d.armed <- struct{}{}
				state = holdArmed
			case <-hk.Keyup():
				// Short tap: cancel, emit nothing.
				if !timer.Stop() {
					<-timer.C
				}
				state = holdIdle
			case <-d.stop:
				return
			}

		case holdArmed:
			select {
			case <-hk.Keyup():
				d.released <- struct{}{}
				state = holdIdle
			case <-hk.Keydown():
				// Chatter while already armed.
			case <-d.stop:
				return
			}
		}
	}
}
