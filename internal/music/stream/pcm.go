package stream

import (
	"encoding/binary"
	"math"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz
)

// frameBytes is one s16le stereo frame.
const frameBytes = FrameSize * Channels * 2

// decodeFrame converts little-endian PCM bytes into samples.
func decodeFrame(dst []int16, src []byte) {
	for i := range dst {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*2 : i*2+2]))
	}
}

// scaleVolume multiplies samples by vol in place, clipping at the int16
// range. vol is expected in [0,1].
func scaleVolume(samples []int16, vol float64) {
	if vol >= 1 {
		return
	}
	if vol <= 0 {
		clear(samples)
		return
	}
	for i, s := range samples {
		v := math.Round(float64(s) * vol)
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		samples[i] = int16(v)
	}
}
