// Package typist injects text into the focused application as synthetic
// keystrokes. Output is append-only: characters already delivered are
// never retracted.
package typist

import "time"

// Sink receives text increments in call order.
type Sink interface {
	Type(text string) error
}

var restoreDelay = 600 * time.Millisecond

// scheduleClipboardRestore puts prev back on the clipboard once the
// paste chord has had time to land. An empty prev is left alone so the
// pasted text survives when there was nothing to put back.
func scheduleClipboardRestore(prev string, copyFn func(string) error) {
	if prev == "" {
		return
	}
	go func() {
		time.Sleep(restoreDelay)
		copyFn(prev)
	}()
}
