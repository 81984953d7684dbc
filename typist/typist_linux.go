//go:build linux

package typist

import (
	"encoding/binary"
	"errors"
	"os"
	"sync"
	"syscall"
	"time"
)

// ioctl constants from linux/uinput.h
const (
	uiSetEvbit  = 0x40045564 // UI_SET_EVBIT
	uiSetKeybit = 0x40045565 // UI_SET_KEYBIT
	uiDevCreate = 0x5501     // UI_DEV_CREATE
)

// input event types from linux/input-event-codes.h
const (
	evSyn = 0x00
	evKey = 0x01
)

const busUSB = 0x03

const keyLeftShift = 42

type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name         [80]byte
	ID           inputID
	FfEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

// Keyboard is a virtual uinput keyboard. The device is created lazily on
// first Type and kept for the life of the process.
type Keyboard struct {
	once sync.Once
	fd   *os.File
	err  error
}

func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

func (k *Keyboard) init() error {
	k.once.Do(func() {
		path := "/dev/uinput"
		if _, err := os.Stat(path); err != nil {
			path = "/dev/input/uinput"
			if _, err := os.Stat(path); err != nil {
				k.err = errors.New("uinput device not found, try: sudo modprobe uinput")
				return
			}
		}
		f, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, os.ModeDevice)
		if err != nil {
			k.err = err
			return
		}
		if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), uiSetEvbit, evKey); errno != 0 {
			k.err = errno
			f.Close()
			return
		}
		if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), uiSetEvbit, evSyn); errno != 0 {
			k.err = errno
			f.Close()
			return
		}
		// Register all standard keys so udev classifies this as a keyboard
		for i := uintptr(0); i < 256; i++ {
			if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), uiSetKeybit, i); errno != 0 {
				k.err = errno
				f.Close()
				return
			}
		}
		dev := uinputUserDev{}
		copy(dev.Name[:], "murmur-kbd")
		dev.ID.Bustype = busUSB
		dev.ID.Vendor = 0x1234
		dev.ID.Product = 0x5678
		dev.ID.Version = 1
		if err := binary.Write(f, binary.LittleEndian, &dev); err != nil {
			k.err = err
			f.Close()
			return
		}
		if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), uiDevCreate, 0); errno != 0 {
			k.err = errno
			f.Close()
			return
		}
		k.fd = f
		// Give compositor time to recognize the new input device
		time.Sleep(200 * time.Millisecond)
	})
	return k.err
}

func (k *Keyboard) writeEvent(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	return binary.Write(k.fd, binary.LittleEndian, &ev)
}

func (k *Keyboard) syn() error {
	return k.writeEvent(evSyn, 0, 0)
}

func (k *Keyboard) keyTap(code uint16, shift bool) error {
	if shift {
		if err := k.writeEvent(evKey, keyLeftShift, 1); err != nil {
			return err
		}
		if err := k.syn(); err != nil {
			return err
		}
	}
	if err := k.writeEvent(evKey, code, 1); err != nil {
		return err
	}
	if err := k.syn(); err != nil {
		return err
	}
	if err := k.writeEvent(evKey, code, 0); err != nil {
		return err
	}
	if err := k.syn(); err != nil {
		return err
	}
	if shift {
		if err := k.writeEvent(evKey, keyLeftShift, 0); err != nil {
			return err
		}
		if err := k.syn(); err != nil {
			return err
		}
	}
	return nil
}

// Type sends each character of text as a keystroke. Characters with no
// keycode mapping are skipped.
func (k *Keyboard) Type(text string) error {
	if err := k.init(); err != nil {
		return err
	}
	for i := 0; i < len(text); i++ {
		code, shift, ok := charToKey(text[i])
		if !ok {
			continue
		}
		if err := k.keyTap(code, shift); err != nil {
			return err
		}
	}
	return nil
}

func New() Sink { return NewKeyboard() }
