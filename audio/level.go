package audio

import (
	"encoding/binary"
	"math"
)

const minLevel = 0.01

// LevelMeter normalizes raw PCM frames into a display intensity in [0,1].
// It tracks a decaying peak and an adaptive EMA reference so quiet and
// loud microphones both produce visible movement.
type LevelMeter struct {
	peak   float64
	ema    float64
	primed bool
}

func NewLevelMeter() *LevelMeter {
	return &LevelMeter{peak: 0.05}
}

// Update consumes one frame of little-endian int16 samples.
func (m *LevelMeter) Update(data []byte) float64 {
	n := len(data) / 2
	if n == 0 {
		return 0
	}

	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	raw := math.Sqrt(sumSquares / float64(n))

	if !m.primed {
		m.ema = math.Max(minLevel, raw)
		m.primed = true
	}

	if raw > m.peak {
		m.peak = raw
	} else {
		m.peak = math.Max(minLevel, m.peak*0.997)
	}

	// Adaptive gain: track upward fast, downward slow.
	if raw >= m.ema {
		m.ema += (raw - m.ema) * 0.22
	} else {
		m.ema += (raw - m.ema) * 0.08
	}

	reference := math.Max(minLevel, m.ema*1.35)
	normalized := math.Max(0, (raw/reference)*1.2)
	return normalized / (1.0 + normalized)
}
