//go:build darwin

package typist

import (
	"github.com/micmonay/keybd_event"

	"murmur/clipboard"
)

// Paster delivers text by placing it on the clipboard and sending Cmd+V.
// Keystroke-level injection needs accessibility APIs macOS gates behind
// entitlements, so the paste chord is the reliable path. The previous
// clipboard contents are put back after the paste lands.
type Paster struct{}

func NewPaster() *Paster { return &Paster{} }

func (p *Paster) Type(text string) error {
	prev, _ := clipboard.Read()
	if err := clipboard.Copy(text); err != nil {
		return err
	}
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSuper(true) // Cmd+V
	if err := kb.Launching(); err != nil {
		return err
	}
	scheduleClipboardRestore(prev, clipboard.Copy)
	return nil
}

func New() Sink { return NewPaster() }
