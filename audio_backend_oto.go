// audio_backend_oto.go - OTO v3 audio output implementation

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

type OtoOutput struct {
	ctx       *oto.Context
	player    *oto.Player
	pipe      atomic.Pointer[DeliveryPipeline] // Atomic for lock-free Read()
	sampleBuf []float32                        // Pre-allocated sample buffer
	started   bool
	mutex     sync.Mutex // Only for setup/control operations
}

func NewOtoOutput(sampleRate int, pipe *DeliveryPipeline) (*OtoOutput, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0, // oto default
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	out := &OtoOutput{ctx: ctx}
	out.pipe.Store(pipe)
	out.player = ctx.NewPlayer(out)
	// Pre-allocate for typical oto read sizes (4096 bytes = 512 stereo frames)
	out.sampleBuf = make([]float32, 4096)
	return out, nil
}

// Read is oto's pull callback. Hot path: load the pipeline atomically,
// pop frames, encode. No locks, no allocation after warmup.
func (o *OtoOutput) Read(p []byte) (n int, err error) {
	pipe := o.pipe.Load()
	if pipe == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	numSamples := len(p) / 4
	numSamples -= numSamples % 2 // whole stereo frames only

	// Should not grow after the first large read
	if len(o.sampleBuf) < numSamples {
		o.sampleBuf = make([]float32, numSamples)
	}
	samples := o.sampleBuf[:numSamples]

	pipe.PopInto(samples)
	written := encodeFramesLE(p, samples)
	for i := written; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

func (o *OtoOutput) Start() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.started && o.player != nil {
		o.player.Play()
		o.started = true
	}
	return nil
}

func (o *OtoOutput) Stop() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.started && o.player != nil {
		o.player.Pause()
		o.started = false
	}
}

func (o *OtoOutput) Close() {
	o.Stop()
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
}

func (o *OtoOutput) IsStarted() bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.started
}
