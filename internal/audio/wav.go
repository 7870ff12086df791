package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// maxWAVSize is the maximum WAV payload accepted (50 MB).
const maxWAVSize = 50 * 1024 * 1024

// ErrNotWAV is returned when the data lacks a RIFF/WAVE header.
var ErrNotWAV = errors.New("wav: not a WAV file")

// LoadWAV reads a WAV file from disk and decodes it with DecodeWAV.
func LoadWAV(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return DecodeWAV(data)
}

// DecodeWAV converts an in-memory WAV file to stereo 16-bit signed LE PCM
// at SampleRate. Accepts PCM (format 1) with 8, 16 or 24-bit samples, mono
// or stereo. Streamed WAVs with a bogus data size (0xFFFFFFFF, as sent by
// some TTS APIs) are read to the end of the buffer.
func DecodeWAV(data []byte) ([]byte, error) {
	if len(data) > maxWAVSize {
		return nil, fmt.Errorf("wav: too large (%d bytes, max %d)", len(data), maxWAVSize)
	}
	if len(data) < 44 {
		return nil, fmt.Errorf("wav: too short")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	fmtOff, fmtSize, err := findChunk(data, "fmt ")
	if err != nil {
		return nil, err
	}
	if fmtSize < 16 {
		return nil, fmt.Errorf("wav: fmt chunk too short")
	}
	if format := binary.LittleEndian.Uint16(data[fmtOff : fmtOff+2]); format != 1 {
		return nil, fmt.Errorf("wav: unsupported format %d (only PCM supported)", format)
	}
	channels := int(binary.LittleEndian.Uint16(data[fmtOff+2 : fmtOff+4]))
	sampleRate := int(binary.LittleEndian.Uint32(data[fmtOff+4 : fmtOff+8]))
	bits := binary.LittleEndian.Uint16(data[fmtOff+14 : fmtOff+16])
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("wav: unsupported channel count %d", channels)
	}
	if bits != 8 && bits != 16 && bits != 24 {
		return nil, fmt.Errorf("wav: unsupported bit depth %d", bits)
	}

	dataOff, dataSize, err := findChunk(data, "data")
	if err != nil {
		return nil, err
	}
	if dataSize < 0 || dataOff+dataSize > len(data) {
		dataSize = len(data) - dataOff
	}
	raw := data[dataOff : dataOff+dataSize]

	width := int(bits) / 8
	frameSize := width * channels
	frames := len(raw) / frameSize
	if frames == 0 {
		return nil, fmt.Errorf("wav: no audio data")
	}

	samples := make([]float64, frames*2)
	for i := 0; i < frames; i++ {
		off := i * frameSize
		left := decodeSample(raw, off, bits)
		right := left
		if channels == 2 {
			right = decodeSample(raw, off+width, bits)
		}
		samples[i*2] = left
		samples[i*2+1] = right
	}
	if sampleRate != SampleRate {
		samples = resampleLinear(samples, sampleRate, SampleRate)
	}

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(clamp16(s)))
	}
	return pcm, nil
}

// findChunk locates a RIFF chunk by its 4-byte ID and returns its data
// offset and declared size.
func findChunk(data []byte, id string) (int, int, error) {
	off := 12
	for off+8 <= len(data) {
		size := int(int32(binary.LittleEndian.Uint32(data[off+4 : off+8])))
		if string(data[off:off+4]) == id {
			return off + 8, size, nil
		}
		if size < 0 {
			break
		}
		// Chunks are word-aligned.
		off += 8 + size + size%2
	}
	return 0, 0, fmt.Errorf("wav: %q chunk not found", id)
}

// decodeSample returns the sample at off as a float64 in [-1, 1].
func decodeSample(data []byte, off int, bits uint16) float64 {
	switch bits {
	case 8:
		// 8-bit WAV is unsigned, 128 = silence.
		return (float64(data[off]) - 128.0) / 128.0
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(data[off:]))) / 32768.0
	case 24:
		val := int(data[off]) | int(data[off+1])<<8 | int(data[off+2])<<16
		if val >= 1<<23 {
			val -= 1 << 24
		}
		return float64(val) / 8388608.0
	}
	return 0
}

// resampleLinear resamples interleaved stereo samples from srcRate to dstRate.
func resampleLinear(samples []float64, srcRate, dstRate int) []float64 {
	srcFrames := len(samples) / 2
	ratio := float64(srcRate) / float64(dstRate)
	dstFrames := int(math.Ceil(float64(srcFrames) / ratio))
	out := make([]float64, dstFrames*2)

	for i := 0; i < dstFrames; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		for ch := 0; ch < 2; ch++ {
			switch {
			case idx+1 < srcFrames:
				out[i*2+ch] = samples[idx*2+ch]*(1-frac) + samples[(idx+1)*2+ch]*frac
			case idx < srcFrames:
				out[i*2+ch] = samples[idx*2+ch]
			}
		}
	}
	return out
}

func clamp16(f float64) int16 {
	s := f * 32767.0
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}
