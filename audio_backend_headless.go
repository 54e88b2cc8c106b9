// audio_backend_headless.go - Device-free output for tests and servers

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"sync"
	"time"
)

// HeadlessOutput consumes the pipeline at wall-clock rate and discards
// the frames. Selected at runtime like any other backend, so CI and
// audio-less servers exercise the full delivery path without a device.
type HeadlessOutput struct {
	pipe       *DeliveryPipeline
	sampleRate int

	stop    chan struct{}
	done    chan struct{}
	started bool
	mutex   sync.Mutex
}

func NewHeadlessOutput(sampleRate int, pipe *DeliveryPipeline) *HeadlessOutput {
	return &HeadlessOutput{
		pipe:       pipe,
		sampleRate: sampleRate,
	}
}

func (h *HeadlessOutput) Start() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.started {
		return nil
	}
	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	h.started = true

	go h.run(h.stop, h.done)
	return nil
}

func (h *HeadlessOutput) run(stop, done chan struct{}) {
	defer close(done)

	buf := make([]float32, DELIVERY_CHUNK_FRAMES*2)
	interval := time.Duration(float64(DELIVERY_CHUNK_FRAMES) / float64(h.sampleRate) * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.pipe.PopInto(buf)
		}
	}
}

func (h *HeadlessOutput) Stop() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.started {
		close(h.stop)
		<-h.done
		h.started = false
	}
}

func (h *HeadlessOutput) Close() {
	h.Stop()
}

func (h *HeadlessOutput) IsStarted() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.started
}
