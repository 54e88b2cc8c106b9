// noise_biquad_test.go - Biquad coefficient and state continuity tests

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"math"
	"math/rand"
	"testing"
)

func TestNotchCoeffsNormalized(t *testing.T) {
	tests := []struct {
		name string
		freq float64
		q    float64
		rate float64
	}{
		{"mid band", 1000, 25, 44100},
		{"low", 50, 5, 44100},
		{"high", 15000, 40, 48000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := notchCoeffs(tt.freq, tt.q, tt.rate)
			// Notch symmetry: b0 == b2 and b1 == a1 after normalization.
			if math.Abs(c.b0-c.b2) > 1e-12 {
				t.Errorf("b0 %v != b2 %v", c.b0, c.b2)
			}
			if math.Abs(c.b1-c.a1) > 1e-12 {
				t.Errorf("b1 %v != a1 %v", c.b1, c.a1)
			}
			// Unity gain at DC: sum(b)/(1+sum(a)) == 1.
			num := c.b0 + c.b1 + c.b2
			den := 1.0 + c.a1 + c.a2
			if math.Abs(num/den-1.0) > 1e-9 {
				t.Errorf("DC gain %v, want 1", num/den)
			}
		})
	}
}

func TestNotchAttenuatesCenterFrequency(t *testing.T) {
	const rate = 44100.0
	const freq = 1000.0
	c := notchCoeffs(freq, 25, rate)

	var st biquadState
	var inPow, outPow float64
	n := 0
	for i := 0; i < 44100; i++ {
		in := math.Sin(2 * math.Pi * freq * float64(i) / rate)
		out := c.apply(in, &st)
		if i >= 4410 { // skip transient
			inPow += in * in
			outPow += out * out
			n++
		}
	}
	attenuation := math.Sqrt(outPow/float64(n)) / math.Sqrt(inPow/float64(n))
	if attenuation > 0.05 {
		t.Errorf("center frequency attenuation ratio %v, want < 0.05", attenuation)
	}
}

func TestLowpassHighpassComplementaryDC(t *testing.T) {
	const rate = 44100.0
	lp := lowpassCoeffs(1000, rate)
	hp := highpassCoeffs(1000, rate)

	dcGain := func(c biquadCoeffs) float64 {
		return (c.b0 + c.b1 + c.b2) / (1.0 + c.a1 + c.a2)
	}
	if g := dcGain(lp); math.Abs(g-1.0) > 1e-9 {
		t.Errorf("lowpass DC gain %v, want 1", g)
	}
	if g := dcGain(hp); math.Abs(g) > 1e-9 {
		t.Errorf("highpass DC gain %v, want 0", g)
	}
}

// Splitting a block in two must be bitwise identical to one call:
// filter state carries across block boundaries with no reset.
func TestTimeVaryingBlockStateContinuity(t *testing.T) {
	const n = 2048
	const rate = 44100.0
	rng := rand.New(rand.NewSource(7))

	input := make([]float32, n)
	freqs := make([]float32, n)
	qs := make([]float32, n)
	cascs := make([]int, n)
	for i := range input {
		input[i] = float32(rng.NormFloat64())
		freqs[i] = 1000 + 500*float32(math.Sin(float64(i)*0.01))
		qs[i] = 25
		cascs[i] = 4
	}

	whole := append([]float32(nil), input...)
	statesWhole := make([]biquadState, 8)
	biquadTimeVaryingBlock(whole, freqs, qs, cascs, statesWhole, rate)

	split := append([]float32(nil), input...)
	statesSplit := make([]biquadState, 8)
	biquadTimeVaryingBlock(split[:n/2], freqs[:n/2], qs[:n/2], cascs[:n/2], statesSplit, rate)
	biquadTimeVaryingBlock(split[n/2:], freqs[n/2:], qs[n/2:], cascs[n/2:], statesSplit, rate)

	for i := range whole {
		if whole[i] != split[i] {
			t.Fatalf("sample %d: whole %v != split %v", i, whole[i], split[i])
		}
	}
}

func TestTimeVaryingBlockNearNyquistPassthrough(t *testing.T) {
	const rate = 44100.0
	input := []float32{0.5, -0.25, 0.75, -1.0}
	want := append([]float32(nil), input...)

	freqs := []float32{float32(rate) * 0.49, float32(rate), -10, float32(math.NaN())}
	qs := []float32{25, 25, 25, 25}
	cascs := []int{4, 4, 4, 4}
	states := make([]biquadState, 4)

	biquadTimeVaryingBlock(input, freqs, qs, cascs, states, rate)
	for i := range input {
		if input[i] != want[i] {
			t.Errorf("sample %d modified: got %v, want %v", i, input[i], want[i])
		}
	}
	for i, st := range states {
		if st.z1 != 0 || st.z2 != 0 {
			t.Errorf("stage %d state disturbed by passthrough", i)
		}
	}
}

func TestTimeVaryingBlockCascadeClamp(t *testing.T) {
	const rate = 44100.0
	input := make([]float32, 16)
	freqs := make([]float32, 16)
	qs := make([]float32, 16)
	cascs := make([]int, 16)
	for i := range input {
		input[i] = 1.0
		freqs[i] = 1000
		qs[i] = 25
		cascs[i] = 100 // beyond allocated states
	}
	states := make([]biquadState, 3)
	biquadTimeVaryingBlock(input, freqs, qs, cascs, states, rate)
	// No panic and all three stages exercised.
	for i, st := range states {
		if st.z1 == 0 && st.z2 == 0 {
			t.Errorf("stage %d never ran", i)
		}
	}
}
