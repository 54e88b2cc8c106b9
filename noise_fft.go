// noise_fft.go - Spectrally shaped noise generation

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"math"
	"math/rand"

	algofft "github.com/cwbudde/algo-fft"
)

// Noise buffers are capped at 1<<15 samples (~0.74 s at 44.1 kHz). Larger
// buffers take too long to regenerate under mobile CPU scheduling and
// stall the double-buffer pipeline.
const MAX_NOISE_BUFFER = 1 << 15

// spectralNoiseGenerator owns the mutable state needed to synthesize one
// buffer of colored noise: the RNG, the transform plan, the scratch
// buffers and the locked loudness target. It is single-owner state; only
// the regeneration worker touches it after construction.
type spectralNoiseGenerator struct {
	size              int
	exponent          float32
	highExponent      float32
	distributionCurve float32
	sampleRate        float32

	plan    *algofft.Plan[complex128]
	rng     *rand.Rand
	scratch []complex128
	freq    []complex128

	// Locked RMS target: set from the first generated buffer, then held
	// so independently regenerated buffers land at the same loudness.
	targetRMS    float64
	targetRMSSet bool
}

// noiseBufferSize derives the generation buffer length from a requested
// duration: short clips get their exact length, everything else the
// capped streaming chunk size. Always even, floored at 8.
func noiseBufferSize(durationSeconds float64, sampleRate float32) int {
	requested := int(math.Max(durationSeconds, 0) * float64(sampleRate))
	size := MAX_NOISE_BUFFER
	if requested > 0 && requested < size {
		size = requested
	}
	if size < 8 {
		size = 8
	}
	if size%2 != 0 {
		size++
	}
	return size
}

func newSpectralNoiseGenerator(params resolvedNoiseParams, sampleRate float32) (*spectralNoiseGenerator, error) {
	size := noiseBufferSize(params.durationSeconds, sampleRate)
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("noise generator: FFT plan for size %d: %w", size, err)
	}
	return &spectralNoiseGenerator{
		size:              size,
		exponent:          params.exponent,
		highExponent:      params.highExponent,
		distributionCurve: params.distributionCurve,
		sampleRate:        sampleRate,
		plan:              plan,
		rng:               rand.New(rand.NewSource(params.seed)),
		scratch:           make([]complex128, size),
		freq:              make([]complex128, size),
	}, nil
}

// regenerateInto synthesizes one buffer of shaped noise into dst:
// unit-normal samples → forward FFT → per-bin power-law scaling with the
// low/high exponents blended along the log-frequency axis → conjugate
// mirroring → inverse FFT → RMS lock.
func (g *spectralNoiseGenerator) regenerateInto(dst []float32) error {
	if len(dst) != g.size {
		return fmt.Errorf("noise generator: buffer length %d, want %d", len(dst), g.size)
	}

	for i := range g.scratch {
		g.scratch[i] = complex(g.rng.NormFloat64(), 0)
	}
	if err := g.plan.Forward(g.freq, g.scratch); err != nil {
		return fmt.Errorf("noise generator: forward FFT: %w", err)
	}

	nyquist := float64(g.sampleRate) / 2.0
	minF := float64(g.sampleRate) / float64(g.size)
	logMin := math.Log(minF)
	logMax := math.Log(nyquist)
	denom := math.Max(logMax-logMin, 1e-12)

	g.freq[0] = 0 // no DC

	half := g.size / 2
	for i := 1; i <= half; i++ {
		f := float64(i) * float64(g.sampleRate) / float64(g.size)

		// Blend between the low and high exponents along the normalized
		// log-frequency axis, shaped by the distribution curve.
		logNorm := (math.Log(f) - logMin) / denom
		if logNorm < 0 {
			logNorm = 0
		} else if logNorm > 1 {
			logNorm = 1
		}
		interp := math.Pow(logNorm, float64(g.distributionCurve))
		exp := float64(g.exponent) + (float64(g.highExponent)-float64(g.exponent))*interp

		scale := complex(math.Pow(f, -exp/2.0), 0)
		g.freq[i] *= scale
		if i < half {
			g.freq[g.size-i] = cmplxConj(g.freq[i])
		}
	}

	if err := g.plan.Inverse(g.scratch, g.freq); err != nil {
		return fmt.Errorf("noise generator: inverse FFT: %w", err)
	}

	// The transform is unnormalized in both directions.
	sizeF := float64(g.size)
	for i := range dst {
		dst[i] = float32(real(g.scratch[i]) / sizeF)
	}

	g.lockRMS(dst)
	return nil
}

// lockRMS holds every buffer after the first at the loudness of the
// first: the first buffer is peak-normalized and its RMS recorded as the
// target; later buffers are scaled uniformly to that target and clamped.
// FFT noise is statistically variable buffer to buffer; without this,
// regeneration is an audible loudness wobble.
func (g *spectralNoiseGenerator) lockRMS(buf []float32) {
	var sumSq float64
	for _, x := range buf {
		sumSq += float64(x) * float64(x)
	}
	currentRMS := math.Sqrt(sumSq / float64(len(buf)))
	if currentRMS <= 1e-9 {
		return
	}

	if g.targetRMSSet {
		gain := float32(g.targetRMS / currentRMS)
		for i, x := range buf {
			buf[i] = clamp32(x*gain, -1.0, 1.0)
		}
		return
	}

	var maxVal float32
	for _, x := range buf {
		if a := float32(math.Abs(float64(x))); a > maxVal {
			maxVal = a
		}
	}
	if maxVal <= 1e-9 {
		return
	}
	var sumSqNorm float64
	for i, x := range buf {
		buf[i] = x / maxVal
		sumSqNorm += float64(buf[i]) * float64(buf[i])
	}
	g.targetRMS = math.Sqrt(sumSqNorm / float64(len(buf)))
	g.targetRMSSet = true
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}
