package audio

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// DeviceByName resolves a capture device by its exact name.
func DeviceByName(ctx Context, name string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing capture devices: %w", err)
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("capture device %q not found", name)
}

type pickKey int

const (
	pickNone pickKey = iota
	pickUp
	pickDown
	pickAccept
	pickAbort
)

// decodeKey maps one raw terminal read to a picker action. Arrow keys
// arrive as 3-byte escape sequences; j/k and Enter as single bytes.
func decodeKey(b []byte) pickKey {
	if len(b) == 3 && b[0] == 0x1b && b[1] == '[' {
		switch b[2] {
		case 'A':
			return pickUp
		case 'B':
			return pickDown
		}
		return pickNone
	}
	if len(b) != 1 {
		return pickNone
	}
	switch b[0] {
	case '\r':
		return pickAccept
	case 0x03: // Ctrl+C
		return pickAbort
	case 'k':
		return pickUp
	case 'j':
		return pickDown
	}
	return pickNone
}

// SelectDevice prompts for a microphone on the terminal. A single
// available device is returned without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing capture devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, fmt.Errorf("no capture devices available")
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw terminal mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	draw := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Pick a microphone (arrows or j/k, Enter to accept):\r\n\r\n")
		for i, d := range devices {
			line := d.Name
			if IsBluetooth(d.Name) {
				line += " \x1b[33m(BT: reduced audio quality)\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;32m> %s\x1b[0m\r\n", line)
			} else {
				fmt.Printf("    %s\r\n", line)
			}
		}
	}
	draw()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading key: %w", err)
		}
		switch decodeKey(buf[:n]) {
		case pickAccept:
			fmt.Print("\r\n")
			return &devices[cursor], nil
		case pickAbort:
			fmt.Print("\r\n")
			term.Restore(fd, oldState)
			os.Exit(130)
		case pickUp:
			if cursor > 0 {
				cursor--
			}
		case pickDown:
			if cursor < len(devices)-1 {
				cursor++
			}
		}
		fmt.Printf("\x1b[%dA", len(devices)+2)
		draw()
	}
}
