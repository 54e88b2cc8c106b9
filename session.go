// session.go - Audio session lifecycle and control API

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrCommandDropped reports a control command lost to a full queue.
var ErrCommandDropped = errors.New("command queue full, command dropped")

// SessionConfig configures a playback session. Zero fields take
// defaults: oto backend, 2 s ring, 0.25 s / 1.0 s watermarks, no
// observer.
type SessionConfig struct {
	Backend          int
	RingSeconds      float64
	LowWaterSeconds  float64
	HighWaterSeconds float64
	Observer         Observer
	TelemetryPeriod  time.Duration
}

// Session is one live audio playback session: scheduler, delivery
// pipeline, backend, and optional telemetry worker. Sessions are
// explicit handles; nothing in the engine is process-global, so tests
// and multi-tenant hosts can run several sessions side by side.
type Session struct {
	pipe   *DeliveryPipeline
	output AudioOutput

	sampleRate int

	telemetryStop chan struct{}

	mu      sync.Mutex
	stopped bool
}

// PlaybackStatus is a snapshot of playback state.
type PlaybackStatus struct {
	PositionSeconds float64
	CurrentStep     uint64
	IsPaused        bool
	SampleRate      int
}

// StartSession validates the track, builds the full chain and starts
// playback from startSeconds.
func StartSession(track *TrackConfig, startSeconds float64, cfg SessionConfig) (*Session, error) {
	if track == nil {
		return nil, errors.New("nil track config")
	}
	if err := track.Validate(); err != nil {
		return nil, err
	}

	sampleRate := track.GlobalSettings.SampleRate
	sched := NewTrackScheduler(track, sampleRate)
	if startSeconds > 0 {
		sched.HandleCommand(CmdStartFrom{Seconds: startSeconds})
	}

	pipe := NewDeliveryPipeline(sched, PipelineConfig{
		RingSeconds:      cfg.RingSeconds,
		LowWaterSeconds:  cfg.LowWaterSeconds,
		HighWaterSeconds: cfg.HighWaterSeconds,
	})

	output, err := NewAudioOutput(cfg.Backend, sampleRate, pipe)
	if err != nil {
		sched.Close()
		return nil, fmt.Errorf("audio backend: %w", err)
	}

	s := &Session{
		pipe:       pipe,
		output:     output,
		sampleRate: sampleRate,
	}

	go pipe.Run()
	if err := output.Start(); err != nil {
		pipe.Stop()
		output.Close()
		return nil, fmt.Errorf("audio start: %w", err)
	}

	if cfg.Observer != nil {
		s.telemetryStop = make(chan struct{})
		go telemetryWorker(pipe, cfg.Observer, cfg.TelemetryPeriod, s.telemetryStop)
	}

	logrus.WithFields(logrus.Fields{
		"sample_rate": sampleRate,
		"steps":       len(track.Steps),
		"backend":     cfg.Backend,
	}).Info("Audio session started")
	return s, nil
}

// Stop tears the session down: backend stopped first so the callback
// quiesces, then the production worker, then the device resources.
// Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true

	if s.telemetryStop != nil {
		close(s.telemetryStop)
	}
	s.output.Stop()
	s.pipe.Stop()
	s.output.Close()
	logrus.Info("Audio session stopped")
}

func (s *Session) submit(cmd Command) error {
	if !s.pipe.Submit(cmd) {
		return ErrCommandDropped
	}
	return nil
}

func (s *Session) Pause() error  { return s.submit(CmdSetPaused{Paused: true}) }
func (s *Session) Resume() error { return s.submit(CmdSetPaused{Paused: false}) }

func (s *Session) SetMasterGain(gain float32) error {
	return s.submit(CmdSetMasterGain{Gain: gain})
}

func (s *Session) SetBinauralGain(gain float32) error {
	return s.submit(CmdSetBinauralGain{Gain: gain})
}

func (s *Session) SetNoiseGain(gain float32) error {
	return s.submit(CmdSetNoiseGain{Gain: gain})
}

func (s *Session) SetNormalizationLevel(level float32) error {
	return s.submit(CmdSetNormalizationLevel{Level: level})
}

// EnableTurbo toggles accelerated offline rendering. Accepted for API
// parity; realtime playback ignores it.
func (s *Session) EnableTurbo(enabled bool) error {
	return s.submit(CmdEnableTurbo{Enabled: enabled})
}

func (s *Session) StartFrom(seconds float64) error {
	return s.submit(CmdStartFrom{Seconds: seconds})
}

// UpdateTrack replaces the track configuration, preserving position.
func (s *Session) UpdateTrack(track *TrackConfig) error {
	if track == nil {
		return errors.New("nil track config")
	}
	if err := track.Validate(); err != nil {
		return err
	}
	return s.submit(CmdUpdateTrack{Track: track})
}

// UpdateRealtime adjusts playing voices in place where their filter
// allocations allow.
func (s *Session) UpdateRealtime(track *TrackConfig) error {
	if track == nil {
		return errors.New("nil track config")
	}
	if err := track.Validate(); err != nil {
		return err
	}
	return s.submit(CmdUpdateRealtime{Track: track})
}

// PushClipChunk feeds mono samples to a streaming overlay clip. The
// slice is handed off; the caller must not reuse it.
func (s *Session) PushClipChunk(index int, samples []float32, finished bool) error {
	return s.submit(CmdPushClipSamples{Index: index, Data: samples, Finished: finished})
}

// Status reads the playback state atomics.
func (s *Session) Status() PlaybackStatus {
	return PlaybackStatus{
		PositionSeconds: float64(s.pipe.ElapsedSamples()) / float64(s.sampleRate),
		CurrentStep:     s.pipe.CurrentStep(),
		IsPaused:        s.pipe.IsPaused(),
		SampleRate:      s.sampleRate,
	}
}

// Telemetry exposes the pipeline counters for callers that poll rather
// than observe.
func (s *Session) Telemetry() PipelineTelemetry {
	return s.pipe.Telemetry()
}
