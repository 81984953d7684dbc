package audio

import "testing"

type stubContext struct {
	devices []DeviceInfo
	err     error
}

func (s *stubContext) Devices() ([]DeviceInfo, error) { return s.devices, s.err }
func (s *stubContext) Close()                         {}

func (s *stubContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return nil, nil
}

func TestDeviceByName(t *testing.T) {
	ctx := &stubContext{devices: []DeviceInfo{
		{ID: "0", Name: "Built-in Microphone"},
		{ID: "1", Name: "USB Desk Mic"},
	}}

	d, err := DeviceByName(ctx, "USB Desk Mic")
	if err != nil {
		t.Fatal(err)
	}
	if d.ID != "1" {
		t.Errorf("resolved ID = %q, want 1", d.ID)
	}

	if _, err := DeviceByName(ctx, "Phantom Mic"); err == nil {
		t.Error("unknown name did not error")
	}
}

func TestSelectDeviceSingle(t *testing.T) {
	// One device short-circuits before any terminal interaction.
	ctx := &stubContext{devices: []DeviceInfo{{ID: "0", Name: "Only Mic"}}}
	d, err := SelectDevice(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "Only Mic" {
		t.Errorf("selected %q", d.Name)
	}
}

func TestSelectDeviceNone(t *testing.T) {
	if _, err := SelectDevice(&stubContext{}); err == nil {
		t.Error("empty device list did not error")
	}
}

func TestDecodeKey(t *testing.T) {
	cases := []struct {
		in   []byte
		want pickKey
	}{
		{[]byte{0x1b, '[', 'A'}, pickUp},
		{[]byte{0x1b, '[', 'B'}, pickDown},
		{[]byte{0x1b, '[', 'C'}, pickNone},
		{[]byte{'k'}, pickUp},
		{[]byte{'j'}, pickDown},
		{[]byte{'\r'}, pickAccept},
		{[]byte{0x03}, pickAbort},
		{[]byte{'x'}, pickNone},
	}
	for _, c := range cases {
		if got := decodeKey(c.in); got != c.want {
			t.Errorf("decodeKey(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
