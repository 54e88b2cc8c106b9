// noise_loudness.go - Loudness compensation for filtered noise

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import "math"

const (
	// Running RMS window for loudness tracking, in samples.
	RENORM_WINDOW = 16384

	// Base stream compensation.
	RENORM_HYSTERESIS_RATIO = 0.10
	GAIN_SMOOTHING_COEFF    = float32(0.99995)

	// Swept-notch path reacts faster: the notches move, so the energy
	// deficit changes on LFO timescales rather than buffer timescales.
	OLA_RMS_HYSTERESIS_RATIO = 0.15
	OLA_GAIN_SMOOTHING_COEFF = float32(0.998)

	// Compensation gain bounds. Outside this range something upstream is
	// broken and amplifying further only makes it louder.
	RENORM_GAIN_MIN = 0.25
	RENORM_GAIN_MAX = 16.0
)

// loudnessCompensator restores the loudness a filter chain removes. It
// accumulates pre- and post-filter RMS over a sliding window and derives
// a makeup gain from their ratio, applied through per-sample smoothing
// so corrections never click.
//
// Static mode locks the first measured gain forever: with fixed filters
// the deficit never changes, and continuing to track it just lets two
// compensation loops fight each other. Tracking mode keeps chasing the
// target through a hysteresis gate so ordinary noise variance does not
// wiggle the gain.
type loudnessCompensator struct {
	static bool

	renormGain   float32
	smoothedGain float32
	initialized  bool

	preAccum  float32
	postAccum float32
	samples   int
}

func newStaticCompensator() *loudnessCompensator {
	return &loudnessCompensator{static: true, renormGain: 1.0, smoothedGain: 1.0}
}

func newTrackingCompensator() *loudnessCompensator {
	return &loudnessCompensator{renormGain: 1.0, smoothedGain: 1.0}
}

// Process accumulates one pre/post sample pair, updates the target gain
// when the window fills, and returns post with the smoothed gain applied.
func (lc *loudnessCompensator) Process(pre, post float32) float32 {
	lc.preAccum += pre * pre
	lc.postAccum += post * post
	lc.samples++

	if lc.samples >= RENORM_WINDOW {
		preRMS := float32(math.Sqrt(float64(lc.preAccum / float32(lc.samples))))
		postRMS := float32(math.Sqrt(float64(lc.postAccum / float32(lc.samples))))

		if preRMS > 1e-6 && postRMS > 1e-6 {
			target := clamp32(preRMS/postRMS, RENORM_GAIN_MIN, RENORM_GAIN_MAX)
			if lc.static {
				if !lc.initialized {
					lc.renormGain = target
					lc.smoothedGain = target
					lc.initialized = true
				}
			} else {
				ratioDiff := float32(math.Abs(float64(target-lc.renormGain))) / lc.renormGain
				if ratioDiff > RENORM_HYSTERESIS_RATIO {
					if !lc.initialized {
						lc.renormGain = target
						lc.smoothedGain = target
						lc.initialized = true
					} else {
						lc.renormGain = 0.8*lc.renormGain + 0.2*target
					}
				}
			}
		} else if !lc.initialized {
			lc.renormGain = 1.0
			lc.smoothedGain = 1.0
			lc.initialized = true
		}

		lc.preAccum = 0
		lc.postAccum = 0
		lc.samples = 0
	}

	lc.smoothedGain = GAIN_SMOOTHING_COEFF*lc.smoothedGain +
		(1.0-GAIN_SMOOTHING_COEFF)*lc.renormGain
	return post * lc.smoothedGain
}

// Gain exposes the current smoothed gain for telemetry.
func (lc *loudnessCompensator) Gain() float32 {
	return lc.smoothedGain
}
