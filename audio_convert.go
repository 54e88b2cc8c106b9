// audio_convert.go - Sample format conversion at the device boundary

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"encoding/binary"
	"math"
)

// clampSample bounds one sample to [-1, 1]. Everything leaving the
// engine passes through this; a filter resonance spike must never reach
// the device as an out-of-range value.
func clampSample(s float32) float32 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}

// encodeFramesLE writes interleaved float32 samples into dst as
// little-endian IEEE 754 bytes, clamping each sample. dst must hold
// len(src)*4 bytes; the written byte count is returned.
func encodeFramesLE(dst []byte, src []float32) int {
	n := len(src)
	if n*4 > len(dst) {
		n = len(dst) / 4
	}
	for i := 0; i < n; i++ {
		bits := math.Float32bits(clampSample(src[i]))
		binary.LittleEndian.PutUint32(dst[i*4:], bits)
	}
	return n * 4
}

// framesToInt16 converts interleaved float32 samples to 16-bit PCM
// values, clamping first. Used by the WAV render path.
func framesToInt16(dst []int, src []float32) {
	for i, s := range src {
		dst[i] = int(clampSample(s) * 32767.0)
	}
}
