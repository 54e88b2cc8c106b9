// audio_output.go - Audio backend interface and runtime selection

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import "fmt"

const (
	AUDIO_BACKEND_OTO = iota // Pure Go oto backend (default)
	AUDIO_BACKEND_MALGO
	AUDIO_BACKEND_HEADLESS
)

// AudioOutput abstracts a hardware playback backend. All backends pull
// frames from the same DeliveryPipeline; only the device plumbing
// differs. Selection happens at runtime so one binary serves every
// target.
type AudioOutput interface {
	Start() error
	Stop()
	Close()
	IsStarted() bool
}

// NewAudioOutput creates the requested backend bound to a pipeline.
func NewAudioOutput(backend int, sampleRate int, pipe *DeliveryPipeline) (AudioOutput, error) {
	switch backend {
	case AUDIO_BACKEND_OTO:
		return NewOtoOutput(sampleRate, pipe)
	case AUDIO_BACKEND_MALGO:
		return NewMalgoOutput(sampleRate, pipe)
	case AUDIO_BACKEND_HEADLESS:
		return NewHeadlessOutput(sampleRate, pipe), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %d", backend)
	}
}

// ParseBackendName maps a CLI/config backend name to its constant.
func ParseBackendName(name string) (int, error) {
	switch name {
	case "", "oto":
		return AUDIO_BACKEND_OTO, nil
	case "malgo":
		return AUDIO_BACKEND_MALGO, nil
	case "headless":
		return AUDIO_BACKEND_HEADLESS, nil
	default:
		return 0, fmt.Errorf("unknown audio backend %q", name)
	}
}
