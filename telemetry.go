// telemetry.go - Observer port for delivery telemetry

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Observer receives periodic telemetry snapshots from a running
// session. Implementations must return quickly; they are called from a
// dedicated telemetry goroutine, never from the audio path.
type Observer interface {
	ObservePipeline(t PipelineTelemetry)
}

// NopObserver discards telemetry.
type NopObserver struct{}

func (NopObserver) ObservePipeline(PipelineTelemetry) {}

// LogObserver writes telemetry snapshots to the structured log at debug
// level, raising underrun growth to warning.
type LogObserver struct {
	lastUnderruns uint64
}

func (o *LogObserver) ObservePipeline(t PipelineTelemetry) {
	entry := logrus.WithFields(logrus.Fields{
		"frames_produced": t.FramesProduced,
		"frames_consumed": t.FramesConsumed,
		"buffered_frames": t.BufferedFrames,
		"refill_cycles":   t.RefillCycles,
		"underruns":       t.UnderrunEvents,
	})
	if t.UnderrunEvents > o.lastUnderruns {
		entry.Warn("Audio delivery underruns")
	} else {
		entry.Debug("Audio delivery telemetry")
	}
	o.lastUnderruns = t.UnderrunEvents
}

// telemetryWorker polls the pipeline on a fixed period and forwards
// snapshots to the observer until stopped.
func telemetryWorker(pipe *DeliveryPipeline, obs Observer, period time.Duration, stop <-chan struct{}) {
	if period <= 0 {
		period = 5 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			obs.ObservePipeline(pipe.Telemetry())
		}
	}
}
