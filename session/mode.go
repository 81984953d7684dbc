package session

import "fmt"

// Mode selects what happens to a transcript after transcription: typed
// verbatim or passed through the streaming rewrite first.
type Mode int32

const (
	ModeRaw Mode = iota
	ModeSmart
)

func (m Mode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeSmart:
		return "smart"
	default:
		return fmt.Sprintf("Mode(%d)", int32(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "raw":
		return ModeRaw, nil
	case "smart":
		return ModeSmart, nil
	default:
		return ModeRaw, fmt.Errorf("unknown mode %q (want raw or smart)", s)
	}
}
