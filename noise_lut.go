// noise_lut.go - Trig lookup tables for the LFO hot path

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"math"
	"strings"
)

const TWO_PI = float32(2 * math.Pi)

// Lookup table size: 8192 entries gives ~0.00077 radian resolution, far
// below audibility for LFO rates under 1 Hz.
const (
	cosLUTSize = 8192
	cosLUTMask = cosLUTSize - 1
)

const cosLUTScale = float32(cosLUTSize) / TWO_PI // phase to index

// cosLUT contains precomputed cosine values for phase [0, 2π)
var cosLUT [cosLUTSize]float32

func init() {
	for i := 0; i < cosLUTSize; i++ {
		phase := float64(i) * 2 * math.Pi / float64(cosLUTSize)
		cosLUT[i] = float32(math.Cos(phase))
	}
}

// fastCos returns cos(phase) using the lookup table with linear
// interpolation. Phase is in radians; values outside [0, 2π) are wrapped.
//
//go:nosplit
func fastCos(phase float32) float32 {
	if phase < 0 {
		phase += TWO_PI
		if phase < 0 {
			phase = phase - TWO_PI*float32(int(phase/TWO_PI)-1)
		}
	} else if phase >= TWO_PI {
		phase = phase - TWO_PI*float32(int(phase/TWO_PI))
	}

	indexF := phase * cosLUTScale
	index := int(indexF)
	frac := indexF - float32(index)

	index &= cosLUTMask
	nextIndex := (index + 1) & cosLUTMask

	return cosLUT[index] + frac*(cosLUT[nextIndex]-cosLUT[index])
}

// triangleWave evaluates a symmetric triangle waveform (width 0.5) at the
// given phase, matching scipy.signal.sawtooth(phase, width=0.5): rises
// from -1 to 1 over the first half period, falls back over the second.
func triangleWave(phase float32) float32 {
	t := float32(math.Mod(float64(phase), float64(TWO_PI)))
	if t < 0 {
		t += TWO_PI
	}
	t /= TWO_PI
	const width = 0.5
	if t < width {
		return -1.0 + 2.0*t/width
	}
	return 1.0 - 2.0*(t-width)/(1.0-width)
}

// lfoValue evaluates the configured LFO waveform at a phase. The "sine"
// waveform is actually a cosine so the sweep starts at the top of its band.
func lfoValue(phase float32, waveform string) float32 {
	if strings.EqualFold(waveform, "triangle") {
		return triangleWave(phase)
	}
	return fastCos(phase)
}
