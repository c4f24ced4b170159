package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// PCM layout shared by every capture and the mixer: interleaved signed 16-bit
// little-endian samples.
const (
	SampleRate     = 48000
	Channels       = 2
	BytesPerSample = 2
)

// DefaultFrameDuration is the mixing period.
const DefaultFrameDuration = 20 * time.Millisecond

// frameSamples returns the interleaved sample count of one frame of duration d.
func frameSamples(d time.Duration) int {
	n := int(int64(SampleRate) * int64(d) / int64(time.Second))
	if n < 1 {
		n = 1
	}
	return n * Channels
}

// decodeSamples converts little-endian bytes into samples. A trailing odd byte
// is ignored.
func decodeSamples(dst []int16, src []byte) int {
	n := len(src) / BytesPerSample
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*BytesPerSample:]))
	}
	return n
}

// mixFrame sums equally sized sample frames into out, clipping to int16.
func mixFrame(out []byte, frames [][]int16) {
	samples := len(out) / BytesPerSample
	for i := 0; i < samples; i++ {
		var sum int32
		for _, frame := range frames {
			if i < len(frame) {
				sum += int32(frame[i])
			}
		}
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(clampSample(sum)))
	}
}

func clampSample(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
