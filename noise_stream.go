// noise_stream.go - Double-buffered streaming noise source

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import "math"

const (
	// Length of the raised-cosine blend between consecutive noise buffers.
	CROSSFADE_SAMPLES = 2048

	// Fade length when looping the current buffer after an underrun.
	UNDERRUN_FADE_SAMPLES = 512
)

// noiseStream produces an endless mono noise signal from independently
// generated buffers. A background worker regenerates buffers while the
// current one plays; consecutive buffers are joined with a raised-cosine
// crossfade. If the worker falls behind, the stream loops its current
// buffer with a short declick fade instead of going silent.
type noiseStream struct {
	buffer     []float32
	nextBuffer []float32
	nextReady  bool
	cursor     int
	size       int

	worker          *noiseWorker
	workerRequested bool

	// Static band-edge filters, two Butterworth stages each. nil when the
	// config leaves the band open on that side.
	lowcutCoeffs  *biquadCoeffs
	lowcutStates  []biquadState
	highcutCoeffs *biquadCoeffs
	highcutStates []biquadState

	baseAmplitude float32
	comp          *loudnessCompensator

	underrunRecovering bool
	underrunFadePos    int
	underrunHold       float32
}

// newNoiseStream builds the generator and its worker, then blocks for
// two buffers so playback starts with a full pipeline. Construction runs
// on the loader path where a brief wait beats initial silence.
func newNoiseStream(params resolvedNoiseParams, sampleRate float32) (*noiseStream, error) {
	gen, err := newSpectralNoiseGenerator(params, sampleRate)
	if err != nil {
		return nil, err
	}
	worker := newNoiseWorker(gen)

	worker.request(make([]float32, gen.size))
	first := worker.receive()
	worker.request(make([]float32, gen.size))
	second := worker.receive()

	s := &noiseStream{
		buffer:        first,
		nextBuffer:    second,
		nextReady:     true,
		size:          gen.size,
		worker:        worker,
		baseAmplitude: params.amplitude,
		comp:          newStaticCompensator(),
	}

	nyquist := sampleRate / 2.0
	if params.lowcut > 0 && params.lowcut < nyquist {
		c := highpassCoeffs(float64(params.lowcut), float64(sampleRate))
		s.lowcutCoeffs = &c
		s.lowcutStates = make([]biquadState, 2)
	}
	if params.highcut > 0 && params.highcut < nyquist {
		c := lowpassCoeffs(float64(params.highcut), float64(sampleRate))
		s.highcutCoeffs = &c
		s.highcutStates = make([]biquadState, 2)
	}
	return s, nil
}

func (s *noiseStream) crossfadeLen() int {
	// Never more than half a buffer: the swap rewinds the cursor by the
	// crossfade length, and the regeneration trigger already fires at the
	// midpoint, so a longer fade would leave the cursor past the end.
	if half := len(s.buffer) / 2; half < CROSSFADE_SAMPLES {
		return half
	}
	return CROSSFADE_SAMPLES
}

// Next returns the next mono sample. Never blocks.
func (s *noiseStream) Next() float32 {
	crossfadeLen := s.crossfadeLen()

	// Request the next buffer at the 50% mark. Triggering this early
	// gives a slow worker a full half buffer of headroom under mobile
	// CPU scheduling.
	if !s.nextReady && !s.workerRequested {
		if s.cursor >= s.size/2 {
			recycle := s.nextBuffer
			s.nextBuffer = nil
			if len(recycle) != s.size {
				recycle = make([]float32, s.size)
			}
			if s.worker.request(recycle) {
				s.workerRequested = true
			} else {
				s.nextBuffer = recycle
			}
		}
	}

	if s.workerRequested {
		if buf, ok := s.worker.tryReceive(); ok {
			s.nextBuffer = buf
			s.nextReady = true
			s.workerRequested = false
		}
	}

	if s.cursor >= len(s.buffer) {
		if s.nextReady {
			// The crossfade already consumed the head of the next buffer.
			skip := crossfadeLen
			if skip > len(s.nextBuffer) {
				skip = len(s.nextBuffer)
			}
			s.buffer, s.nextBuffer = s.nextBuffer, s.buffer
			s.cursor = skip
			s.nextReady = false
			s.underrunRecovering = false
			s.underrunFadePos = 0
		} else {
			// Underrun. Loop the current buffer, holding the last played
			// sample and fading it into the restarted head so the seam
			// starts exactly where playback left off.
			s.underrunHold = s.buffer[len(s.buffer)-1]
			s.cursor = 0
			s.underrunRecovering = true
			s.underrunFadePos = 0
		}
	}

	var sample float32
	if s.nextReady {
		crossfadeStart := len(s.buffer) - crossfadeLen
		if crossfadeStart < 0 {
			crossfadeStart = 0
		}
		if s.cursor >= crossfadeStart && crossfadeLen > 0 && len(s.nextBuffer) > 0 {
			idx := s.cursor - crossfadeStart
			t := float32(idx) / float32(crossfadeLen)
			fadeOut := 0.5 * (1.0 + fastCos(float32(math.Pi)*t))
			fadeIn := 1.0 - fadeOut
			var nextSample float32
			if idx < len(s.nextBuffer) {
				nextSample = s.nextBuffer[idx]
			}
			sample = s.buffer[s.cursor]*fadeOut + nextSample*fadeIn
		} else {
			sample = s.buffer[s.cursor]
		}
	} else {
		sample = s.buffer[s.cursor]
	}

	if s.underrunRecovering {
		if s.underrunFadePos < UNDERRUN_FADE_SAMPLES {
			t := float32(s.underrunFadePos) / float32(UNDERRUN_FADE_SAMPLES)
			fadeIn := 0.5 * (1.0 - fastCos(float32(math.Pi)*t))
			sample = s.underrunHold*(1.0-fadeIn) + sample*fadeIn
			s.underrunFadePos++
		} else {
			s.underrunRecovering = false
			s.underrunFadePos = 0
		}
	}

	s.cursor++

	preFilter := sample
	if s.lowcutCoeffs != nil {
		for i := range s.lowcutStates {
			sample = float32(s.lowcutCoeffs.apply(float64(sample), &s.lowcutStates[i]))
		}
	}
	if s.highcutCoeffs != nil {
		for i := range s.highcutStates {
			sample = float32(s.highcutCoeffs.apply(float64(sample), &s.highcutStates[i]))
		}
	}
	sample = s.comp.Process(preFilter, sample)

	return sample * s.baseAmplitude
}

// Close stops the regeneration worker.
func (s *noiseStream) Close() {
	s.worker.close()
}
