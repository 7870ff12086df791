package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// SampleRate is the playback rate of the shared output context.
const SampleRate = 44100

// Tone is a single sine burst.
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Volume    float64 // 0.0 to 1.0
}

// Cues are the short signals the kiosk plays outside of speech.
var Cues = map[string][]Tone{
	// Countdown reached zero and the answer form was submitted.
	"timeup": {
		{Frequency: 659.25, Duration: 200 * time.Millisecond, Volume: 0.5}, // E5
		{Frequency: 523.25, Duration: 300 * time.Millisecond, Volume: 0.4}, // C5
	},
	// A replay of a play-once prompt was refused.
	"locked": {
		{Frequency: 400, Duration: 120 * time.Millisecond, Volume: 0.6},
		{Frequency: 300, Duration: 180 * time.Millisecond, Volume: 0.6},
	},
}

// TonePCM renders tones as stereo 16-bit signed LE PCM at SampleRate.
func TonePCM(tones []Tone) []byte {
	total := 0
	for _, t := range tones {
		total += int(float64(SampleRate) * t.Duration.Seconds())
	}
	buf := make([]byte, 0, total*4)

	fade := SampleRate * 5 / 1000 // 5ms ramps avoid clicks
	for _, t := range tones {
		n := int(float64(SampleRate) * t.Duration.Seconds())
		for i := 0; i < n; i++ {
			env := 1.0
			if i < fade {
				env = float64(i) / float64(fade)
			} else if i > n-fade {
				env = float64(n-i) / float64(fade)
			}
			var v float64
			if t.Frequency > 0 {
				v = math.Sin(2*math.Pi*t.Frequency*float64(i)/SampleRate) * t.Volume * env
			}
			s := uint16(int16(v * 32767))
			buf = binary.LittleEndian.AppendUint16(buf, s)
			buf = binary.LittleEndian.AppendUint16(buf, s)
		}
	}
	return buf
}
