//go:build !linux && !darwin

package typist

import (
	"sync"

	"github.com/micmonay/keybd_event"

	"murmur/clipboard"
)

// Paster delivers text by placing it on the clipboard and sending Ctrl+V.
// The previous clipboard contents are put back after the paste lands.
type Paster struct {
	once sync.Once
	kb   keybd_event.KeyBonding
	err  error
}

func NewPaster() *Paster { return &Paster{} }

func (p *Paster) Type(text string) error {
	p.once.Do(func() {
		p.kb, p.err = keybd_event.NewKeyBonding()
	})
	if p.err != nil {
		return p.err
	}
	prev, _ := clipboard.Read()
	if err := clipboard.Copy(text); err != nil {
		return err
	}
	p.kb.SetKeys(keybd_event.VK_V)
	p.kb.HasCTRL(true)
	if err := p.kb.Launching(); err != nil {
		return err
	}
	scheduleClipboardRestore(prev, clipboard.Copy)
	return nil
}

func New() Sink { return NewPaster() }
