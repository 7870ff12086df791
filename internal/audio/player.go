package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoCtx     *oto.Context
	otoOnce    sync.Once
	otoInitErr error
)

func getContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-readyChan
		}
	})
	return otoCtx, otoInitErr
}

// Tap receives every PCM chunk as it is handed to the output device.
type Tap interface {
	Write(pcm []byte)
}

// tapReader forwards reads to a Tap.
type tapReader struct {
	r   io.Reader
	tap func() Tap
}

func (t *tapReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		if tap := t.tap(); tap != nil {
			tap.Write(p[:n])
		}
	}
	return n, err
}

// Play plays stereo 16-bit PCM at SampleRate, blocking until playback
// completes or ctx is cancelled. volume is a multiplier from 0.0 to 1.0.
// tap may be nil; it is consulted on every read so an analyser can be
// attached or detached mid-playback.
func Play(ctx context.Context, pcm []byte, volume float64, tap func() Tap) error {
	out, err := getContext()
	if err != nil {
		return fmt.Errorf("audio: initialize output: %w", err)
	}

	var r io.Reader = bytes.NewReader(pcm)
	if tap != nil {
		r = &tapReader{r: r, tap: tap}
	}
	player := out.NewPlayer(r)
	player.SetVolume(clampVolume(volume))
	player.Play()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			player.Close()
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
	return player.Close()
}

// PlayCue plays a named cue at the given volume. Unknown names are an error.
func PlayCue(ctx context.Context, name string, volume float64) error {
	tones, ok := Cues[name]
	if !ok {
		return fmt.Errorf("audio: unknown cue %q", name)
	}
	return Play(ctx, TonePCM(tones), volume, nil)
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
