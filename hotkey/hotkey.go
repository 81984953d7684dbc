package hotkey

// Hotkey delivers raw key-down/key-up edges for the push-to-talk key.
type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
