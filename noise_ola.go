// noise_ola.go - Swept-notch overlap-add engine

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"math"
	"sort"
)

const (
	// Overlap-add geometry: 50% overlap with a Hann window.
	OLA_BLOCK_SIZE = 2048
	OLA_HOP_SIZE   = 1024
)

// sampleSource is any endless mono sample producer.
type sampleSource interface {
	Next() float32
}

// sweepParams holds one swept notch fully resolved: band endpoints, Q
// and cascade depth at the start and end of the transition.
type sweepParams struct {
	startMin, endMin   float32
	startMax, endMax   float32
	startQ, endQ       float32
	startCasc, endCasc int
}

// interpolateAt evaluates the sweep at transition fraction t.
func (sp *sweepParams) interpolateAt(t float32) (minF, maxF, q float32, casc int) {
	t = clamp32(t, 0, 1)
	minF = sp.startMin + (sp.endMin-sp.startMin)*t
	maxF = sp.startMax + (sp.endMax-sp.startMax)*t
	q = sp.startQ + (sp.endQ-sp.startQ)*t
	cascF := float32(sp.startCasc) + (float32(sp.endCasc)-float32(sp.startCasc))*t
	casc = int(math.Round(float64(cascF)))
	if casc < 1 {
		casc = 1
	}
	return
}

// sweepRuntime owns the persistent filter state for one sweep. Each
// cascade stage keeps its own state across blocks, like a true series
// of biquads applied to a continuous signal.
type sweepRuntime struct {
	maxCasc int
	lMain   []biquadState
	rMain   []biquadState
	lExtra  []biquadState
	rExtra  []biquadState
}

func newSweepRuntime(maxCasc int) sweepRuntime {
	if maxCasc < 1 {
		maxCasc = 1
	}
	return sweepRuntime{
		maxCasc: maxCasc,
		lMain:   make([]biquadState, maxCasc),
		rMain:   make([]biquadState, maxCasc),
		lExtra:  make([]biquadState, maxCasc),
		rExtra:  make([]biquadState, maxCasc),
	}
}

// hannWindow matches np.hanning: 0.5 - 0.5*cos(2*pi*n/(N-1)).
func hannWindow(size int) []float32 {
	w := make([]float32, size)
	for n := range w {
		w[n] = float32(0.5 - 0.5*math.Cos(2.0*math.Pi*float64(n)/float64(size-1)))
	}
	return w
}

// olaState carries the overlap-add machinery: the mono input ring, the
// stereo output accumulators, and every scratch buffer processBlock
// needs. Everything is allocated once here; the block path must not
// allocate.
type olaState struct {
	inputRing            []float32
	inputWritePos        int
	inputSamplesBuffered int

	outAccL []float32
	outAccR []float32
	winAcc  []float32

	accReadPos  int
	accWritePos int

	samplesReady       int
	absoluteBlockStart int

	window []float32

	blockL []float32
	blockR []float32

	smoothedGainL float32
	smoothedGainR float32

	tVals       []float32
	lfoMainL    []float32
	lfoMainR    []float32
	lfoExtraL   []float32
	lfoExtraR   []float32
	qSeries     []float32
	notchFreqL  []float32
	notchFreqR  []float32
	notchFreqLX []float32
	notchFreqRX []float32
	cascSeries  []int
	cascClamped []int
}

func newOlaState() *olaState {
	accSize := OLA_BLOCK_SIZE * 2
	return &olaState{
		inputRing:     make([]float32, OLA_BLOCK_SIZE),
		outAccL:       make([]float32, accSize),
		outAccR:       make([]float32, accSize),
		winAcc:        make([]float32, accSize),
		window:        hannWindow(OLA_BLOCK_SIZE),
		blockL:        make([]float32, OLA_BLOCK_SIZE),
		blockR:        make([]float32, OLA_BLOCK_SIZE),
		smoothedGainL: 1.0,
		smoothedGainR: 1.0,
		tVals:         make([]float32, OLA_BLOCK_SIZE),
		lfoMainL:      make([]float32, OLA_BLOCK_SIZE),
		lfoMainR:      make([]float32, OLA_BLOCK_SIZE),
		lfoExtraL:     make([]float32, OLA_BLOCK_SIZE),
		lfoExtraR:     make([]float32, OLA_BLOCK_SIZE),
		qSeries:       make([]float32, OLA_BLOCK_SIZE),
		notchFreqL:    make([]float32, OLA_BLOCK_SIZE),
		notchFreqR:    make([]float32, OLA_BLOCK_SIZE),
		notchFreqLX:   make([]float32, OLA_BLOCK_SIZE),
		notchFreqRX:   make([]float32, OLA_BLOCK_SIZE),
		cascSeries:    make([]int, OLA_BLOCK_SIZE),
		cascClamped:   make([]int, OLA_BLOCK_SIZE),
	}
}

// NoiseVoice is one complete stereo noise voice: a double-buffered base
// noise stream pushed through the swept-notch overlap-add engine. With
// no sweeps configured it degenerates to a plain stereo copy of the
// base stream.
type NoiseVoice struct {
	sampleRate      float32
	durationSamples int

	startLFOFreq     float32
	endLFOFreq       float32
	lfoFreq          float32
	startPhaseOffset float32
	endPhaseOffset   float32
	startIntraOffset float32
	endIntraOffset   float32
	lfoWaveform      string
	initialOffset    float32

	sweeps  []sweepParams
	runtime []sweepRuntime

	transition bool

	base sampleSource
	ola  *olaState

	totalSamplesOutput int
}

// newNoiseVoice builds a voice from resolved parameters. Blocks briefly
// while the base stream primes its double buffer.
func newNoiseVoice(params resolvedNoiseParams, sampleRate float32) (*NoiseVoice, error) {
	base, err := newNoiseStream(params, sampleRate)
	if err != nil {
		return nil, err
	}
	v := newNoiseVoiceWithBase(params, sampleRate, base)

	// With no sweeps the base stream's makeup gain locks on its first
	// RMS window. Run that window here so playback does not start with
	// a quiet fade-in while the gain latches.
	if len(v.sweeps) == 0 {
		for i := 0; i < RENORM_WINDOW; i++ {
			base.Next()
		}
	}
	return v, nil
}

func newNoiseVoiceWithBase(params resolvedNoiseParams, sampleRate float32, base sampleSource) *NoiseVoice {
	runtime := make([]sweepRuntime, 0, len(params.sweeps))
	for _, sp := range params.sweeps {
		maxCasc := sp.startCasc
		if sp.endCasc > maxCasc {
			maxCasc = sp.endCasc
		}
		runtime = append(runtime, newSweepRuntime(maxCasc))
	}

	return &NoiseVoice{
		sampleRate:       sampleRate,
		durationSamples:  int(params.durationSeconds * float64(sampleRate)),
		startLFOFreq:     params.startLFOFreq,
		endLFOFreq:       params.endLFOFreq,
		lfoFreq:          params.lfoFreq,
		startPhaseOffset: params.startPhaseOffset,
		endPhaseOffset:   params.endPhaseOffset,
		startIntraOffset: params.startIntraOffset,
		endIntraOffset:   params.endIntraOffset,
		lfoWaveform:      params.lfoWaveform,
		initialOffset:    params.initialOffset,
		sweeps:           params.sweeps,
		runtime:          runtime,
		transition:       params.transition,
		base:             base,
		ola:              newOlaState(),
	}
}

// NewNoiseVoiceWithCalibratedPeak builds a voice and measures its robust
// peak over calibrationFrames stereo frames using a throwaway twin.
//
// An absolute max is too fragile here: deep high-Q cascades produce rare
// block-edge spikes, and normalizing to one poisoned sample makes the
// whole stream nearly silent. The 99.9th percentile of |x| ignores them.
func NewNoiseVoiceWithCalibratedPeak(params resolvedNoiseParams, sampleRate float32, calibrationFrames int) (*NoiseVoice, float32, error) {
	if calibrationFrames < 1 {
		calibrationFrames = 1
	}

	calib, err := newNoiseVoice(params, sampleRate)
	if err != nil {
		return nil, 0, err
	}
	scratch := make([]float32, calibrationFrames*2)
	calib.Generate(scratch)
	calib.Close()

	absVals := scratch
	for i, v := range absVals {
		absVals[i] = float32(math.Abs(float64(v)))
	}
	sort.Slice(absVals, func(i, j int) bool { return absVals[i] < absVals[j] })
	idx := int(math.Floor(float64(len(absVals)) * 0.999))
	if idx > len(absVals)-1 {
		idx = len(absVals) - 1
	}
	peak := max32(absVals[idx], 1e-9)

	voice, err := newNoiseVoice(params, sampleRate)
	if err != nil {
		return nil, 0, err
	}
	return voice, peak, nil
}

// UpdateRealtime swaps in new sweep and LFO parameters without touching
// filter state, so playback continues seamlessly. Returns false when the
// change cannot be applied in place: a different sweep count, or a
// cascade deeper than the state already allocated. The caller rebuilds
// the voice in that case.
func (v *NoiseVoice) UpdateRealtime(params resolvedNoiseParams) bool {
	if len(params.sweeps) != len(v.sweeps) {
		return false
	}
	for i, sp := range params.sweeps {
		maxCasc := sp.startCasc
		if sp.endCasc > maxCasc {
			maxCasc = sp.endCasc
		}
		if maxCasc < 1 {
			maxCasc = 1
		}
		if maxCasc > v.runtime[i].maxCasc {
			return false
		}
	}
	for i, sp := range params.sweeps {
		maxCasc := sp.startCasc
		if sp.endCasc > maxCasc {
			maxCasc = sp.endCasc
		}
		if maxCasc < 1 {
			maxCasc = 1
		}
		v.runtime[i].maxCasc = maxCasc
	}

	v.sweeps = params.sweeps
	v.transition = params.transition
	v.lfoWaveform = params.lfoWaveform
	v.startLFOFreq = params.startLFOFreq
	v.endLFOFreq = params.endLFOFreq
	v.lfoFreq = params.lfoFreq
	v.startPhaseOffset = params.startPhaseOffset
	v.endPhaseOffset = params.endPhaseOffset
	v.startIntraOffset = params.startIntraOffset
	v.endIntraOffset = params.endIntraOffset
	return true
}

// SkipSamples advances the voice by n stereo frames, discarding output.
func (v *NoiseVoice) SkipSamples(n int) {
	scratch := make([]float32, n*2)
	v.Generate(scratch)
}

// Close releases the base stream's worker if it has one.
func (v *NoiseVoice) Close() {
	if c, ok := v.base.(interface{ Close() }); ok {
		c.Close()
	}
}

func (v *NoiseVoice) transitionFraction(sampleIdx int) float32 {
	if !v.transition || v.durationSamples == 0 {
		return 0
	}
	return clamp32(float32(sampleIdx)/float32(v.durationSamples), 0, 1)
}

func (v *NoiseVoice) interpolateLFOFreq(t float32) float32 {
	if !v.transition {
		return v.lfoFreq
	}
	return v.startLFOFreq + (v.endLFOFreq-v.startLFOFreq)*t
}

func (v *NoiseVoice) interpolatePhaseOffset(t float32) float32 {
	if !v.transition {
		return v.startPhaseOffset
	}
	return v.startPhaseOffset + (v.endPhaseOffset-v.startPhaseOffset)*t
}

func (v *NoiseVoice) interpolateIntraOffset(t float32) float32 {
	if !v.transition {
		return v.startIntraOffset
	}
	return v.startIntraOffset + (v.endIntraOffset-v.startIntraOffset)*t
}

// computeLFOPhase derives the LFO phase at an absolute sample index:
// t = idx/rate + initialOffset, phase = 2*pi*f*t + offset.
func (v *NoiseVoice) computeLFOPhase(sampleIdx int, lfoFreq, extraPhaseOffset float32) float32 {
	t := float32(sampleIdx)/v.sampleRate + v.initialOffset
	return TWO_PI*lfoFreq*t + extraPhaseOffset
}

// processBlock filters one block through every sweep and folds it into
// the output accumulators. Runs on the production path, so it only uses
// the buffers preallocated in olaState.
func (v *NoiseVoice) processBlock() {
	ola := v.ola
	accSize := len(ola.outAccL)
	blockStartIdx := ola.absoluteBlockStart

	doExtra := math.Abs(float64(v.startIntraOffset)) > 1e-6 ||
		math.Abs(float64(v.endIntraOffset)) > 1e-6

	for i := 0; i < OLA_BLOCK_SIZE; i++ {
		absIdx := blockStartIdx + i
		t := v.transitionFraction(absIdx)
		ola.tVals[i] = t

		lfoFreq := v.interpolateLFOFreq(t)
		phaseOffset := v.interpolatePhaseOffset(t)
		intraOffset := v.interpolateIntraOffset(t)

		lPhase := v.computeLFOPhase(absIdx, lfoFreq, 0)
		rPhase := v.computeLFOPhase(absIdx, lfoFreq, phaseOffset)
		ola.lfoMainL[i] = lfoValue(lPhase, v.lfoWaveform)
		ola.lfoMainR[i] = lfoValue(rPhase, v.lfoWaveform)
		if doExtra {
			ola.lfoExtraL[i] = lfoValue(lPhase+intraOffset, v.lfoWaveform)
			ola.lfoExtraR[i] = lfoValue(rPhase+intraOffset, v.lfoWaveform)
		}
	}

	// Copy the input block out of the ring WITHOUT windowing. The window
	// is applied after filtering so the IIR filters see a continuous
	// signal with no windowing discontinuities in their state.
	var sumSqIn float32
	for i := 0; i < OLA_BLOCK_SIZE; i++ {
		ringIdx := (ola.inputWritePos + OLA_BLOCK_SIZE - ola.inputSamplesBuffered + i) % OLA_BLOCK_SIZE
		base := ola.inputRing[ringIdx]
		ola.blockL[i] = base
		ola.blockR[i] = base
		sumSqIn += base * base
	}
	rmsIn := float32(math.Sqrt(float64(sumSqIn / OLA_BLOCK_SIZE)))

	for si := range v.sweeps {
		sp := &v.sweeps[si]
		rt := &v.runtime[si]

		for i := 0; i < OLA_BLOCK_SIZE; i++ {
			t := ola.tVals[i]
			minF := sp.startMin + (sp.endMin-sp.startMin)*t
			maxF := sp.startMax + (sp.endMax-sp.startMax)*t
			ola.qSeries[i] = sp.startQ + (sp.endQ-sp.startQ)*t
			cascF := float32(sp.startCasc) + (float32(sp.endCasc)-float32(sp.startCasc))*t
			casc := int(math.Round(float64(cascF)))
			if casc < 1 {
				casc = 1
			}
			ola.cascSeries[i] = casc

			centerFreq := (minF + maxF) * 0.5
			freqRange := (maxF - minF) * 0.5
			ola.notchFreqL[i] = centerFreq + freqRange*ola.lfoMainL[i]
			ola.notchFreqR[i] = centerFreq + freqRange*ola.lfoMainR[i]
			if doExtra {
				ola.notchFreqLX[i] = centerFreq + freqRange*ola.lfoExtraL[i]
				ola.notchFreqRX[i] = centerFreq + freqRange*ola.lfoExtraR[i]
			}
		}

		for i := 0; i < OLA_BLOCK_SIZE; i++ {
			casc := ola.cascSeries[i]
			if casc > rt.maxCasc {
				casc = rt.maxCasc
			}
			ola.cascClamped[i] = casc
		}

		rate := float64(v.sampleRate)
		biquadTimeVaryingBlock(ola.blockL, ola.notchFreqL, ola.qSeries, ola.cascClamped, rt.lMain, rate)
		biquadTimeVaryingBlock(ola.blockR, ola.notchFreqR, ola.qSeries, ola.cascClamped, rt.rMain, rate)
		if doExtra {
			biquadTimeVaryingBlock(ola.blockL, ola.notchFreqLX, ola.qSeries, ola.cascClamped, rt.lExtra, rate)
			biquadTimeVaryingBlock(ola.blockR, ola.notchFreqRX, ola.qSeries, ola.cascClamped, rt.rExtra, rate)
		}
	}

	// Restore the loudness the notches removed. Only with active sweeps:
	// for steady noise this would just chase ordinary block-to-block RMS
	// variance and pump the volume.
	if len(v.sweeps) > 0 && rmsIn > 1e-8 {
		var sumSqL, sumSqR float32
		for i := 0; i < OLA_BLOCK_SIZE; i++ {
			sumSqL += ola.blockL[i] * ola.blockL[i]
			sumSqR += ola.blockR[i] * ola.blockR[i]
		}
		rmsL := float32(math.Sqrt(float64(sumSqL / OLA_BLOCK_SIZE)))
		rmsR := float32(math.Sqrt(float64(sumSqR / OLA_BLOCK_SIZE)))

		// The clamp matters: deep high-Q cascades can leave tiny block
		// RMS, and an unbounded makeup gain turns that into spikes that
		// poison peak calibration.
		rawTargetL := ola.smoothedGainL
		if rmsL > 1e-8 {
			rawTargetL = clamp32(rmsIn/rmsL, RENORM_GAIN_MIN, RENORM_GAIN_MAX)
		}
		rawTargetR := ola.smoothedGainR
		if rmsR > 1e-8 {
			rawTargetR = clamp32(rmsIn/rmsR, RENORM_GAIN_MIN, RENORM_GAIN_MAX)
		}

		// Hysteresis gate: chase only significant changes, not the RMS
		// jitter every moving notch produces block to block.
		targetL := ola.smoothedGainL
		if float32(math.Abs(float64(rawTargetL-ola.smoothedGainL)))/max32(ola.smoothedGainL, 0.01) > OLA_RMS_HYSTERESIS_RATIO {
			targetL = rawTargetL
		}
		targetR := ola.smoothedGainR
		if float32(math.Abs(float64(rawTargetR-ola.smoothedGainR)))/max32(ola.smoothedGainR, 0.01) > OLA_RMS_HYSTERESIS_RATIO {
			targetR = rawTargetR
		}

		const oneMinus = 1.0 - OLA_GAIN_SMOOTHING_COEFF
		for i := 0; i < OLA_BLOCK_SIZE; i++ {
			ola.smoothedGainL = OLA_GAIN_SMOOTHING_COEFF*ola.smoothedGainL + oneMinus*targetL
			ola.blockL[i] *= ola.smoothedGainL
		}
		for i := 0; i < OLA_BLOCK_SIZE; i++ {
			ola.smoothedGainR = OLA_GAIN_SMOOTHING_COEFF*ola.smoothedGainR + oneMinus*targetR
			ola.blockR[i] *= ola.smoothedGainR
		}
	}

	// Window after filtering, then fold into the accumulators.
	for i := 0; i < OLA_BLOCK_SIZE; i++ {
		ola.blockL[i] *= ola.window[i]
		ola.blockR[i] *= ola.window[i]
	}

	writeBase := ola.accWritePos
	for i := 0; i < OLA_BLOCK_SIZE; i++ {
		accIdx := (writeBase + i) % accSize
		ola.outAccL[accIdx] += ola.blockL[i]
		ola.outAccR[accIdx] += ola.blockR[i]
		ola.winAcc[accIdx] += ola.window[i]
	}

	ola.accWritePos = (ola.accWritePos + OLA_HOP_SIZE) % accSize
	ola.samplesReady += OLA_HOP_SIZE
	ola.absoluteBlockStart += OLA_HOP_SIZE
}

// Generate fills out with interleaved stereo samples.
func (v *NoiseVoice) Generate(out []float32) {
	ola := v.ola
	frames := len(out) / 2
	framesWritten := 0
	accSize := len(ola.outAccL)

	for framesWritten < frames {
		if ola.samplesReady > 0 {
			readPos := ola.accReadPos

			winVal := ola.winAcc[readPos]
			var l, r float32
			if winVal > 1e-8 {
				l = ola.outAccL[readPos] / winVal
				r = ola.outAccR[readPos] / winVal
			}

			out[framesWritten*2] = l
			out[framesWritten*2+1] = r

			ola.outAccL[readPos] = 0
			ola.outAccR[readPos] = 0
			ola.winAcc[readPos] = 0

			ola.accReadPos = (readPos + 1) % accSize
			ola.samplesReady--
			v.totalSamplesOutput++
			framesWritten++
			continue
		}

		for ola.inputSamplesBuffered < OLA_BLOCK_SIZE {
			ola.inputRing[ola.inputWritePos] = v.base.Next()
			ola.inputWritePos = (ola.inputWritePos + 1) % OLA_BLOCK_SIZE
			ola.inputSamplesBuffered++
		}

		v.processBlock()

		// The block consumed one hop's worth of input; the ring keeps
		// the other half for the 50% overlap.
		ola.inputSamplesBuffered = OLA_BLOCK_SIZE - OLA_HOP_SIZE
	}
}
