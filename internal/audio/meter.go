package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

const (
	// FFTSize is the analysis window, in mono samples.
	FFTSize = 256
	// FrequencyBinCount is the number of bins produced per frame.
	FrequencyBinCount = FFTSize / 2

	minDecibels = -100.0
	maxDecibels = -30.0
	smoothing   = 0.8
)

// Analyzer produces a byte frequency spectrum (0-255 per bin) of whatever
// audio it observes.
type Analyzer interface {
	FrequencyData(dst []byte)
	Close() error
}

// Silent returns an analyser that never sees a signal. It stands in on
// engines whose output cannot be tapped.
func Silent() Analyzer { return silent{} }

type silent struct{}

func (silent) FrequencyData(dst []byte) { clear(dst) }
func (silent) Close() error             { return nil }

// Meter is an Analyzer fed from a PCM tap. It keeps the most recent
// FFTSize samples of the downmixed signal.
type Meter struct {
	mu     sync.Mutex
	ring   [FFTSize]float64
	pos    int
	prev   [FrequencyBinCount]float64
	closed bool
}

// NewMeter returns an open meter.
func NewMeter() *Meter { return &Meter{} }

// Write implements Tap for stereo 16-bit LE PCM.
func (m *Meter) Write(pcm []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for i := 0; i+3 < len(pcm); i += 4 {
		l := int16(binary.LittleEndian.Uint16(pcm[i:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i+2:]))
		m.ring[m.pos] = (float64(l) + float64(r)) / 65536.0
		m.pos = (m.pos + 1) % FFTSize
	}
}

// FrequencyData fills dst with up to FrequencyBinCount bins. Magnitudes
// are smoothed over time and mapped linearly from [-100, -30] dB to 0-255.
// A closed meter reports silence.
func (m *Meter) FrequencyData(dst []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		clear(dst)
		return
	}

	var frame [FFTSize]float64
	for i := range frame {
		// Blackman window over the ring in chronological order.
		w := 0.42 - 0.5*math.Cos(2*math.Pi*float64(i)/FFTSize) + 0.08*math.Cos(4*math.Pi*float64(i)/FFTSize)
		frame[i] = m.ring[(m.pos+i)%FFTSize] * w
	}

	n := min(len(dst), FrequencyBinCount)
	for k := 0; k < n; k++ {
		var re, im float64
		for i, x := range frame {
			angle := 2 * math.Pi * float64(k*i) / FFTSize
			re += x * math.Cos(angle)
			im -= x * math.Sin(angle)
		}
		mag := math.Hypot(re, im) / FFTSize
		mag = smoothing*m.prev[k] + (1-smoothing)*mag
		m.prev[k] = mag
		dst[k] = toByte(mag)
	}
	clear(dst[n:])
}

// Close detaches the meter; later writes are dropped.
func (m *Meter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.ring = [FFTSize]float64{}
	m.prev = [FrequencyBinCount]float64{}
	return nil
}

func toByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := 255 * (db - minDecibels) / (maxDecibels - minDecibels)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return byte(v)
}
