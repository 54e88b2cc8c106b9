// noise_biquad.go - Cascaded biquad filtering with persistent state

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import "math"

// biquadCoeffs holds normalized second-order section coefficients (a0 = 1).
// Coefficients stay in float64 end to end: with deep cascades, float32
// coefficient arithmetic accumulates enough error to produce peak spikes
// that poison downstream peak-based calibration.
type biquadCoeffs struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// biquadState is the persistent memory of one Direct-Form-II-Transposed
// stage. Never reset mid-stream: zeroing it between blocks is an audible
// discontinuity.
type biquadState struct {
	z1, z2 float64
}

// notchCoeffs derives a normalized second-order notch from center
// frequency and Q (scipy iirnotch form). Pure function of its inputs.
func notchCoeffs(freq, q, sampleRate float64) biquadCoeffs {
	w0 := 2.0 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	alpha := sinW0 / (2.0 * q)

	// b = [1, -2cos(w0), 1]
	// a = [1+alpha, -2cos(w0), 1-alpha]
	a0 := 1.0 + alpha
	return biquadCoeffs{
		b0: 1.0 / a0,
		b1: -2.0 * cosW0 / a0,
		b2: 1.0 / a0,
		a1: -2.0 * cosW0 / a0,
		a2: (1.0 - alpha) / a0,
	}
}

const butterworthQ = math.Sqrt2 / 2.0

// lowpassCoeffs derives a Butterworth low-pass section (RBJ cookbook).
func lowpassCoeffs(freq, sampleRate float64) biquadCoeffs {
	w0 := 2.0 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2.0 * butterworthQ)

	a0 := 1.0 + alpha
	b1 := 1.0 - cosW0
	return biquadCoeffs{
		b0: b1 / 2.0 / a0,
		b1: b1 / a0,
		b2: b1 / 2.0 / a0,
		a1: -2.0 * cosW0 / a0,
		a2: (1.0 - alpha) / a0,
	}
}

// highpassCoeffs derives a Butterworth high-pass section (RBJ cookbook).
func highpassCoeffs(freq, sampleRate float64) biquadCoeffs {
	w0 := 2.0 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2.0 * butterworthQ)

	a0 := 1.0 + alpha
	b1 := 1.0 + cosW0
	return biquadCoeffs{
		b0: b1 / 2.0 / a0,
		b1: -b1 / a0,
		b2: b1 / 2.0 / a0,
		a1: -2.0 * cosW0 / a0,
		a2: (1.0 - alpha) / a0,
	}
}

// apply runs one sample through the section (DF2T recurrence).
func (c *biquadCoeffs) apply(sample float64, st *biquadState) float64 {
	out := sample*c.b0 + st.z1
	st.z1 = sample*c.b1 - out*c.a1 + st.z2
	st.z2 = sample*c.b2 - out*c.a2
	return out
}

// applyBlock filters a float32 block in place with fixed coefficients,
// carrying state across calls.
func (c *biquadCoeffs) applyBlock(block []float32, st *biquadState) {
	z1, z2 := st.z1, st.z2
	for i, s := range block {
		in := float64(s)
		out := in*c.b0 + z1
		z1 = in*c.b1 - out*c.a1 + z2
		z2 = in*c.b2 - out*c.a2
		block[i] = float32(out)
	}
	st.z1, st.z2 = z1, z2
}

// biquadTimeVaryingBlock filters a block with per-sample notch
// coefficients derived from freqSeries/qSeries, routing each sample
// through cascSeries[i] cascaded stages with persistent per-stage state.
//
// A requested frequency at or above 0.49×sampleRate, non-finite, or
// non-positive passes the sample through unfiltered: notch sections go
// unstable that close to Nyquist.
func biquadTimeVaryingBlock(block, freqSeries, qSeries []float32, cascSeries []int, states []biquadState, sampleRate float64) {
	maxStage := len(states)
	if maxStage == 0 {
		return
	}
	for i := range block {
		casc := cascSeries[i]
		if casc < 1 {
			casc = 1
		} else if casc > maxStage {
			casc = maxStage
		}

		freq := float64(freqSeries[i])
		if math.IsNaN(freq) || math.IsInf(freq, 0) || freq <= 0 || freq >= sampleRate*0.49 {
			continue
		}
		q := math.Max(float64(qSeries[i]), 1e-6)
		coeffs := notchCoeffs(freq, q, sampleRate)

		sample := float64(block[i])
		for stage := 0; stage < casc; stage++ {
			sample = coeffs.apply(sample, &states[stage])
		}
		block[i] = float32(sample)
	}
}
