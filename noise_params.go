// noise_params.go - Track and noise configuration model for the Drift Engine

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const (
	// Hard ceiling on cascade stages a single sweep may provision.
	// Deeper cascades multiply per-sample filter cost linearly and give
	// no audible benefit past this point.
	MAX_CASCADE_STAGES = 64

	// Defaults applied when a sweep config leaves fields at zero.
	DEFAULT_SWEEP_MIN_HZ   = 1000.0
	DEFAULT_SWEEP_SPAN_HZ  = 9000.0
	DEFAULT_SWEEP_Q        = 25.0
	DEFAULT_SWEEP_CASCADE  = 10
	DEFAULT_LFO_FREQ_HZ    = 1.0 / 12.0
	DEFAULT_SAMPLE_RATE    = 44100
	DEFAULT_NOISE_DURATION = 300.0
)

// SweepConfig describes one swept notch: frequency-band endpoints, Q and
// cascade depth at the start and end of the transition.
type SweepConfig struct {
	StartMin  float32 `json:"start_min"`
	EndMin    float32 `json:"end_min"`
	StartMax  float32 `json:"start_max"`
	EndMax    float32 `json:"end_max"`
	StartQ    float32 `json:"start_q"`
	EndQ      float32 `json:"end_q"`
	StartCasc int     `json:"start_casc"`
	EndCasc   int     `json:"end_casc"`
}

// NoiseParams is the full parameter set for one noise voice. Optional
// fields are pointers so a preset can fill them only when absent.
type NoiseParams struct {
	Name              string   `json:"name,omitempty"`
	Exponent          *float32 `json:"exponent,omitempty"`
	HighExponent      *float32 `json:"high_exponent,omitempty"`
	DistributionCurve *float32 `json:"distribution_curve,omitempty"`
	Lowcut            *float32 `json:"lowcut,omitempty"`
	Highcut           *float32 `json:"highcut,omitempty"`
	Amplitude         *float32 `json:"amplitude,omitempty"`
	Seed              *int64   `json:"seed,omitempty"`
	DurationSeconds   float64  `json:"duration_seconds"`

	Transition               bool          `json:"transition"`
	LFOFreq                  float32       `json:"lfo_freq"`
	StartLFOFreq             float32       `json:"start_lfo_freq"`
	EndLFOFreq               float32       `json:"end_lfo_freq"`
	StartLFOPhaseOffsetDeg   float32       `json:"start_lfo_phase_offset_deg"`
	EndLFOPhaseOffsetDeg     float32       `json:"end_lfo_phase_offset_deg"`
	StartIntraPhaseOffsetDeg float32       `json:"start_intra_phase_offset_deg"`
	EndIntraPhaseOffsetDeg   float32       `json:"end_intra_phase_offset_deg"`
	LFOWaveform              string        `json:"lfo_waveform,omitempty"`
	InitialOffset            float32       `json:"initial_offset"`
	Sweeps                   []SweepConfig `json:"sweeps,omitempty"`
}

// noisePreset carries the default spectral shape for a named noise color.
type noisePreset struct {
	exponent          float32
	highExponent      float32
	distributionCurve float32
	lowcut            float32 // 0 = none
	highcut           float32 // 0 = none
	amplitude         float32
}

var noisePresets = map[string]noisePreset{
	"pink":       {1.0, 1.0, 1.0, 0, 0, 1.0},
	"brown":      {2.0, 2.0, 1.0, 0, 0, 1.0},
	"red":        {2.0, 1.5, 1.0, 0, 0, 1.0},
	"green":      {0.0, 0.0, 1.0, 100.0, 8000.0, 1.0},
	"blue":       {-1.0, -1.0, 1.0, 0, 0, 1.0},
	"purple":     {-2.0, -2.0, 1.0, 0, 0, 1.0},
	"deep brown": {2.5, 2.0, 1.0, 0, 0, 1.0},
	"white":      {0.0, 0.0, 1.0, 0, 0, 1.0},
}

// presetForName resolves a noise color name. Unrecognized or empty names
// fall back to pink, which is the documented default for the app.
func presetForName(name string) noisePreset {
	if p, ok := noisePresets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return noisePresets["pink"]
}

// resolvedNoiseParams is NoiseParams with every optional field filled from
// its preset and every sweep's zero fields replaced by defaults. This is
// the only form the synthesis code consumes.
type resolvedNoiseParams struct {
	exponent          float32
	highExponent      float32
	distributionCurve float32
	lowcut            float32
	highcut           float32
	amplitude         float32
	seed              int64
	durationSeconds   float64

	transition       bool
	lfoFreq          float32
	startLFOFreq     float32
	endLFOFreq       float32
	startPhaseOffset float32 // radians
	endPhaseOffset   float32
	startIntraOffset float32
	endIntraOffset   float32
	lfoWaveform      string
	initialOffset    float32
	sweeps           []sweepParams
}

func degToRad(deg float32) float32 {
	return deg * math.Pi / 180.0
}

// resolve applies the preset table and per-field defaults.
func (p *NoiseParams) resolve() resolvedNoiseParams {
	preset := presetForName(p.Name)

	pick := func(v *float32, def float32) float32 {
		if v != nil {
			return *v
		}
		return def
	}

	exponent := pick(p.Exponent, preset.exponent)
	r := resolvedNoiseParams{
		exponent:          exponent,
		highExponent:      pick(p.HighExponent, preset.highExponent),
		distributionCurve: max32(pick(p.DistributionCurve, preset.distributionCurve), 1e-6),
		lowcut:            pick(p.Lowcut, preset.lowcut),
		highcut:           pick(p.Highcut, preset.highcut),
		amplitude:         pick(p.Amplitude, preset.amplitude),
		seed:              1,
		durationSeconds:   p.DurationSeconds,
	}
	if p.HighExponent == nil && preset.highExponent == preset.exponent {
		r.highExponent = exponent
	}
	if p.Seed != nil {
		// An explicit zero is a valid seed; only negatives are clamped.
		r.seed = *p.Seed
		if r.seed < 0 {
			r.seed = 0
		}
	}
	if r.durationSeconds <= 0 {
		r.durationSeconds = DEFAULT_NOISE_DURATION
	}

	lfoFreq := p.LFOFreq
	if p.Transition {
		lfoFreq = p.StartLFOFreq
	}
	if lfoFreq == 0 {
		lfoFreq = DEFAULT_LFO_FREQ_HZ
	}
	r.transition = p.Transition
	r.lfoFreq = lfoFreq
	r.startLFOFreq = lfoFreq
	if p.StartLFOFreq > 0 {
		r.startLFOFreq = p.StartLFOFreq
	}
	r.endLFOFreq = lfoFreq
	if p.EndLFOFreq > 0 {
		r.endLFOFreq = p.EndLFOFreq
	}
	r.startPhaseOffset = degToRad(p.StartLFOPhaseOffsetDeg)
	r.endPhaseOffset = degToRad(p.EndLFOPhaseOffsetDeg)
	r.startIntraOffset = degToRad(p.StartIntraPhaseOffsetDeg)
	r.endIntraOffset = degToRad(p.EndIntraPhaseOffsetDeg)
	r.lfoWaveform = p.LFOWaveform
	r.initialOffset = p.InitialOffset

	r.sweeps = make([]sweepParams, 0, len(p.Sweeps))
	for _, sw := range p.Sweeps {
		r.sweeps = append(r.sweeps, resolveSweep(sw))
	}
	return r
}

// resolveSweep fills zeroed sweep fields with the documented defaults and
// keeps the band edges ordered.
func resolveSweep(sw SweepConfig) sweepParams {
	startMin := sw.StartMin
	if startMin <= 0 {
		startMin = DEFAULT_SWEEP_MIN_HZ
	}
	endMin := sw.EndMin
	if endMin <= 0 {
		endMin = startMin
	}
	startMax := sw.StartMax
	if startMax > 0 {
		startMax = max32(startMax, startMin+1.0)
	} else {
		startMax = startMin + DEFAULT_SWEEP_SPAN_HZ
	}
	endMax := sw.EndMax
	if endMax > 0 {
		endMax = max32(endMax, endMin+1.0)
	} else {
		endMax = startMax
	}
	startQ := sw.StartQ
	if startQ <= 0 {
		startQ = DEFAULT_SWEEP_Q
	}
	endQ := sw.EndQ
	if endQ <= 0 {
		endQ = startQ
	}
	startCasc := sw.StartCasc
	if startCasc <= 0 {
		startCasc = DEFAULT_SWEEP_CASCADE
	}
	endCasc := sw.EndCasc
	if endCasc <= 0 {
		endCasc = startCasc
	}
	return sweepParams{
		startMin: startMin, endMin: endMin,
		startMax: startMax, endMax: endMax,
		startQ: startQ, endQ: endQ,
		startCasc: startCasc, endCasc: endCasc,
	}
}

// Validate rejects malformed parameters at the boundary, before any audio
// state is built. Fields covered by preset defaults are not errors.
func (p *NoiseParams) Validate() error {
	check := func(name string, v *float32) error {
		if v != nil && (math.IsNaN(float64(*v)) || math.IsInf(float64(*v), 0)) {
			return fmt.Errorf("noise config: %s is not finite", name)
		}
		return nil
	}
	for name, v := range map[string]*float32{
		"exponent":           p.Exponent,
		"high_exponent":      p.HighExponent,
		"distribution_curve": p.DistributionCurve,
		"lowcut":             p.Lowcut,
		"highcut":            p.Highcut,
		"amplitude":          p.Amplitude,
	} {
		if err := check(name, v); err != nil {
			return err
		}
	}
	if p.DurationSeconds < 0 {
		return fmt.Errorf("noise config: duration_seconds %v is negative", p.DurationSeconds)
	}
	switch strings.ToLower(p.LFOWaveform) {
	case "", "sine", "triangle":
	default:
		return fmt.Errorf("noise config: unknown lfo_waveform %q", p.LFOWaveform)
	}
	for i, sw := range p.Sweeps {
		for name, v := range map[string]float32{
			"start_min": sw.StartMin, "end_min": sw.EndMin,
			"start_max": sw.StartMax, "end_max": sw.EndMax,
			"start_q": sw.StartQ, "end_q": sw.EndQ,
		} {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || v < 0 {
				return fmt.Errorf("noise config: sweep %d %s %v is invalid", i, name, v)
			}
		}
		if sw.StartCasc < 0 || sw.EndCasc < 0 {
			return fmt.Errorf("noise config: sweep %d has a negative cascade count", i)
		}
		if sw.StartCasc > MAX_CASCADE_STAGES || sw.EndCasc > MAX_CASCADE_STAGES {
			return fmt.Errorf("noise config: sweep %d cascade exceeds %d stages", i, MAX_CASCADE_STAGES)
		}
	}
	return nil
}

// Voice kinds understood by the scheduler.
const (
	VOICE_NOISE    = "noise"
	VOICE_BINAURAL = "binaural"
	VOICE_CLIP     = "clip"
)

// VoiceConfig configures one voice within a step.
type VoiceConfig struct {
	Kind string  `json:"kind"`
	Gain float32 `json:"gain"`

	// Noise voice.
	Noise *NoiseParams `json:"noise,omitempty"`

	// Binaural voice: carrier and beat frequency in Hz.
	BaseFreq float32 `json:"base_freq,omitempty"`
	BeatFreq float32 `json:"beat_freq,omitempty"`

	// Clip voice: index of the streamed overlay clip feeding it.
	ClipIndex int `json:"clip_index,omitempty"`
}

// StepConfig is one timeline step: a duration and the voices active in it.
type StepConfig struct {
	Duration float64       `json:"duration"`
	Voices   []VoiceConfig `json:"voices"`
}

// GlobalSettings applies to the whole track.
type GlobalSettings struct {
	SampleRate int `json:"sample_rate"`
	// NormalizationLevel, when > 0, scales noise voices so their
	// calibrated robust peak sits at this level.
	NormalizationLevel float32 `json:"normalization_level,omitempty"`
}

// TrackConfig is the full declarative session configuration.
type TrackConfig struct {
	GlobalSettings GlobalSettings `json:"global_settings"`
	Steps          []StepConfig   `json:"steps"`
}

// ParseTrackConfig decodes and validates a JSON track configuration.
func ParseTrackConfig(data []byte) (*TrackConfig, error) {
	var track TrackConfig
	if err := json.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("invalid track JSON: %w", err)
	}
	if err := track.Validate(); err != nil {
		return nil, err
	}
	return &track, nil
}

// Validate rejects malformed track structure before a session starts.
func (t *TrackConfig) Validate() error {
	if t.GlobalSettings.SampleRate == 0 {
		t.GlobalSettings.SampleRate = DEFAULT_SAMPLE_RATE
	}
	if t.GlobalSettings.SampleRate < 8000 || t.GlobalSettings.SampleRate > 192000 {
		return fmt.Errorf("track config: sample_rate %d out of range", t.GlobalSettings.SampleRate)
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("track config: no steps")
	}
	for i, step := range t.Steps {
		if step.Duration <= 0 || math.IsNaN(step.Duration) || math.IsInf(step.Duration, 0) {
			return fmt.Errorf("track config: step %d duration %v is invalid", i, step.Duration)
		}
		for j, v := range step.Voices {
			switch v.Kind {
			case VOICE_NOISE:
				if v.Noise == nil {
					return fmt.Errorf("track config: step %d voice %d has no noise params", i, j)
				}
				if err := v.Noise.Validate(); err != nil {
					return fmt.Errorf("track config: step %d voice %d: %w", i, j, err)
				}
			case VOICE_BINAURAL:
				if v.BaseFreq <= 0 || v.BaseFreq > 20000 {
					return fmt.Errorf("track config: step %d voice %d base_freq %v is invalid", i, j, v.BaseFreq)
				}
				if v.BeatFreq < 0 || v.BeatFreq > 100 {
					return fmt.Errorf("track config: step %d voice %d beat_freq %v is invalid", i, j, v.BeatFreq)
				}
			case VOICE_CLIP:
				if v.ClipIndex < 0 {
					return fmt.Errorf("track config: step %d voice %d clip_index is negative", i, j)
				}
			default:
				return fmt.Errorf("track config: step %d voice %d has unknown kind %q", i, j, v.Kind)
			}
		}
	}
	return nil
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
