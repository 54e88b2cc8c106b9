// noise_worker.go - Background regeneration worker for the noise double buffer

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"github.com/sirupsen/logrus"
)

// noiseGenRequest hands a recycled buffer to the worker for refilling.
type noiseGenRequest struct {
	buf []float32
}

// noiseGenResponse returns a freshly generated buffer to the stream.
type noiseGenResponse struct {
	buf []float32
}

// noiseWorker regenerates noise buffers off the audio thread. Requests
// and responses ride buffered channels so neither side blocks: the
// stream posts a recycled buffer and later try-receives the result.
type noiseWorker struct {
	gen       *spectralNoiseGenerator
	requests  chan noiseGenRequest
	responses chan noiseGenResponse
}

func newNoiseWorker(gen *spectralNoiseGenerator) *noiseWorker {
	w := &noiseWorker{
		gen:       gen,
		requests:  make(chan noiseGenRequest, 2),
		responses: make(chan noiseGenResponse, 2),
	}
	go w.run()
	return w
}

// run services regeneration requests until the request channel is
// closed. A panic in the generator must not take down the process while
// audio is live, so each request is serviced defensively and a failed
// buffer ships as silence.
func (w *noiseWorker) run() {
	for req := range w.requests {
		w.fill(req.buf)
		w.responses <- noiseGenResponse{buf: req.buf}
	}
	close(w.responses)
}

func (w *noiseWorker) fill(buf []float32) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Noise regeneration panicked, emitting silence")
			for i := range buf {
				buf[i] = 0
			}
		}
	}()
	if err := w.gen.regenerateInto(buf); err != nil {
		logrus.WithError(err).Error("Noise regeneration failed, emitting silence")
		for i := range buf {
			buf[i] = 0
		}
	}
}

// request posts a recycled buffer for regeneration. Returns false if the
// worker is saturated, which means a request is already in flight.
func (w *noiseWorker) request(buf []float32) bool {
	select {
	case w.requests <- noiseGenRequest{buf: buf}:
		return true
	default:
		return false
	}
}

// tryReceive picks up a finished buffer without blocking.
func (w *noiseWorker) tryReceive() ([]float32, bool) {
	select {
	case resp := <-w.responses:
		return resp.buf, true
	default:
		return nil, false
	}
}

// receive blocks until a finished buffer arrives. Only used during
// priming, before the realtime path is live.
func (w *noiseWorker) receive() []float32 {
	resp := <-w.responses
	return resp.buf
}

// close stops the worker goroutine. Any in-flight request finishes first.
func (w *noiseWorker) close() {
	close(w.requests)
}
