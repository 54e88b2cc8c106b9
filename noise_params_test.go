// noise_params_test.go - Preset resolution and track validation tests

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresetLookup(t *testing.T) {
	tests := []struct {
		name     string
		exponent float32
	}{
		{"pink", 1.0},
		{"brown", 2.0},
		{"blue", -1.0},
		{"purple", -2.0},
		{"white", 0.0},
		{"deep brown", 2.5},
		{"PINK", 1.0},      // case insensitive
		{"  brown  ", 2.0}, // trimmed
		{"mauve", 1.0},     // unknown falls back to pink
		{"", 1.0},          // empty falls back to pink
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := presetForName(tt.name)
			if p.exponent != tt.exponent {
				t.Errorf("presetForName(%q).exponent = %v, want %v", tt.name, p.exponent, tt.exponent)
			}
		})
	}
}

func TestResolveDefaults(t *testing.T) {
	p := NoiseParams{Name: "pink"}
	r := p.resolve()

	require.Equal(t, int64(1), r.seed)
	require.InDelta(t, DEFAULT_NOISE_DURATION, r.durationSeconds, 1e-9)
	// float32 storage: compare at float32 resolution.
	require.InDelta(t, DEFAULT_LFO_FREQ_HZ, float64(r.lfoFreq), 1e-6)
	require.InDelta(t, 1.0, float64(r.exponent), 1e-6)
	require.InDelta(t, 1.0, float64(r.amplitude), 1e-6)
	require.Empty(t, r.sweeps)
}

func TestResolveOverridesBeatPreset(t *testing.T) {
	exp := float32(3.5)
	amp := float32(0.5)
	seed := int64(99)
	p := NoiseParams{Name: "pink", Exponent: &exp, Amplitude: &amp, Seed: &seed}
	r := p.resolve()

	require.Equal(t, exp, r.exponent)
	// With no explicit high exponent and a flat preset, the high end
	// follows the overridden low end.
	require.Equal(t, exp, r.highExponent)
	require.Equal(t, amp, r.amplitude)
	require.Equal(t, seed, r.seed)
}

func TestResolveSeedExplicitZeroKept(t *testing.T) {
	zero := int64(0)
	p := NoiseParams{Name: "pink", Seed: &zero}
	require.Equal(t, int64(0), p.resolve().seed)

	neg := int64(-7)
	p.Seed = &neg
	require.Equal(t, int64(0), p.resolve().seed)

	p.Seed = nil
	require.Equal(t, int64(1), p.resolve().seed)
}

func TestResolveRedPresetKeepsSplitExponents(t *testing.T) {
	p := NoiseParams{Name: "red"}
	r := p.resolve()
	require.InDelta(t, 2.0, float64(r.exponent), 1e-6)
	require.InDelta(t, 1.5, float64(r.highExponent), 1e-6)
}

func TestResolveTransitionLFO(t *testing.T) {
	p := NoiseParams{
		Name:         "pink",
		Transition:   true,
		StartLFOFreq: 0.2,
		EndLFOFreq:   0.05,
	}
	r := p.resolve()
	require.True(t, r.transition)
	require.InDelta(t, 0.2, float64(r.startLFOFreq), 1e-6)
	require.InDelta(t, 0.05, float64(r.endLFOFreq), 1e-6)
}

func TestResolveSweepBandOrdering(t *testing.T) {
	// A max at or below the min is pushed above it, never inverted.
	sw := resolveSweep(SweepConfig{StartMin: 2000, StartMax: 500})
	require.Greater(t, sw.startMax, sw.startMin)

	// End fields default to their start counterparts.
	sw = resolveSweep(SweepConfig{StartMin: 800, StartMax: 1600, StartQ: 12, StartCasc: 6})
	require.Equal(t, sw.startMin, sw.endMin)
	require.Equal(t, sw.startMax, sw.endMax)
	require.Equal(t, sw.startQ, sw.endQ)
	require.Equal(t, sw.startCasc, sw.endCasc)
}

func TestNoiseParamsValidate(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name    string
		params  NoiseParams
		wantErr bool
	}{
		{"plain pink", NoiseParams{Name: "pink"}, false},
		{"nan exponent", NoiseParams{Exponent: &nan}, true},
		{"negative duration", NoiseParams{DurationSeconds: -1}, true},
		{"bad waveform", NoiseParams{LFOWaveform: "square"}, true},
		{"triangle waveform", NoiseParams{LFOWaveform: "triangle"}, false},
		{"cascade too deep", NoiseParams{Sweeps: []SweepConfig{{StartCasc: MAX_CASCADE_STAGES + 1}}}, true},
		{"negative sweep freq", NoiseParams{Sweeps: []SweepConfig{{StartMin: -100}}}, true},
		{"valid sweep", NoiseParams{Sweeps: []SweepConfig{{StartMin: 500, StartMax: 4000}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTrackConfig(t *testing.T) {
	data := []byte(`{
		"global_settings": {"sample_rate": 48000, "normalization_level": 0.8},
		"steps": [
			{"duration": 60, "voices": [
				{"kind": "noise", "gain": 0.9, "noise": {"name": "brown"}},
				{"kind": "binaural", "gain": 0.3, "base_freq": 200, "beat_freq": 4}
			]},
			{"duration": 120, "voices": [
				{"kind": "clip", "gain": 1.0, "clip_index": 0}
			]}
		]
	}`)
	track, err := ParseTrackConfig(data)
	require.NoError(t, err)
	require.Equal(t, 48000, track.GlobalSettings.SampleRate)
	require.InDelta(t, 0.8, float64(track.GlobalSettings.NormalizationLevel), 1e-6)
	require.Len(t, track.Steps, 2)
	require.Equal(t, VOICE_BINAURAL, track.Steps[0].Voices[1].Kind)
}

func TestParseTrackConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{steps:}`},
		{"no steps", `{"steps": []}`},
		{"zero duration", `{"steps": [{"duration": 0, "voices": []}]}`},
		{"unknown voice", `{"steps": [{"duration": 10, "voices": [{"kind": "theremin"}]}]}`},
		{"noise without params", `{"steps": [{"duration": 10, "voices": [{"kind": "noise"}]}]}`},
		{"binaural bad base", `{"steps": [{"duration": 10, "voices": [{"kind": "binaural", "base_freq": 0}]}]}`},
		{"sample rate too low", `{"global_settings": {"sample_rate": 4000}, "steps": [{"duration": 10, "voices": []}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTrackConfig([]byte(tt.data)); err == nil {
				t.Errorf("ParseTrackConfig accepted %s", tt.name)
			}
		})
	}
}

func TestTrackConfigDefaultSampleRate(t *testing.T) {
	track, err := ParseTrackConfig([]byte(`{"steps": [{"duration": 10, "voices": []}]}`))
	require.NoError(t, err)
	require.Equal(t, DEFAULT_SAMPLE_RATE, track.GlobalSettings.SampleRate)
}
