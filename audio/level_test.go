package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func sineFrame(amplitude float64, samples int) []byte {
	data := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return data
}

func TestLevelEmptyFrame(t *testing.T) {
	m := NewLevelMeter()
	if got := m.Update(nil); got != 0 {
		t.Fatalf("empty frame level = %v, want 0", got)
	}
}

func TestLevelBounded(t *testing.T) {
	m := NewLevelMeter()
	for _, amp := range []float64{0, 0.001, 0.1, 0.5, 1.0} {
		level := m.Update(sineFrame(amp, 1024))
		if level < 0 || level >= 1 {
			t.Fatalf("amp %v: level %v out of [0,1)", amp, level)
		}
	}
}

func TestLevelLoudAboveQuiet(t *testing.T) {
	quiet := NewLevelMeter()
	loud := NewLevelMeter()

	var quietLevel, loudLevel float64
	for i := 0; i < 20; i++ {
		quietLevel = quiet.Update(sineFrame(0.02, 1024))
		loudLevel = loud.Update(sineFrame(0.8, 1024))
	}
	if loudLevel <= quietLevel {
		t.Fatalf("loud level %v not above quiet level %v", loudLevel, quietLevel)
	}
}

func TestLevelAdaptsToQuietMic(t *testing.T) {
	// A consistently quiet signal should still reach a visible level once
	// the EMA reference settles.
	m := NewLevelMeter()
	var level float64
	for i := 0; i < 50; i++ {
		level = m.Update(sineFrame(0.01, 1024))
	}
	if level < 0.3 {
		t.Fatalf("quiet mic level %v, want >= 0.3 after settling", level)
	}
}

func TestLevelSilenceDecays(t *testing.T) {
	m := NewLevelMeter()
	for i := 0; i < 10; i++ {
		m.Update(sineFrame(0.8, 1024))
	}
	var level float64
	for i := 0; i < 50; i++ {
		level = m.Update(make([]byte, 2048))
	}
	if level > 0.1 {
		t.Fatalf("level after silence = %v, want <= 0.1", level)
	}
}
