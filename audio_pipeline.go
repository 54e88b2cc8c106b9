// audio_pipeline.go - Production worker and delivery ring management

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Frames rendered per production cycle.
	DELIVERY_CHUNK_FRAMES = 512

	// Ring sizing defaults, in seconds of audio.
	DEFAULT_RING_SECONDS       = 2.0
	DEFAULT_LOW_WATER_SECONDS  = 0.25
	DEFAULT_HIGH_WATER_SECONDS = 1.0

	// Crossfade length when real data resumes after a callback-side
	// underflow, in frames.
	RESUME_FADE_FRAMES = 256

	// Command channel depth. A full channel drops the command; the
	// session reports that to the caller.
	COMMAND_QUEUE_DEPTH = 1024
)

// DeliveryPipeline connects the scheduler to a hardware callback
// through a lock-free frame ring. A production worker keeps the ring
// between its watermarks and drains control commands once per cycle;
// the callback side only ever pops, repeats, and fades.
type DeliveryPipeline struct {
	sched *TrackScheduler
	ring  *FrameRing

	lowWaterFrames  int
	highWaterFrames int

	commands chan Command
	stop     chan struct{}
	done     chan struct{}

	chunk []float32

	// Consumer-side underflow state. Only the hardware callback touches
	// these, so they need no synchronization.
	lastL, lastR float32
	fading       bool
	fadePos      int

	// Shared playback state for the session API.
	elapsedSamples atomic.Uint64
	currentStep    atomic.Uint64
	paused         atomic.Bool

	underrunEvents atomic.Uint64
	refillCycles   atomic.Uint64
}

// PipelineConfig sizes the delivery ring. Zero fields take defaults.
type PipelineConfig struct {
	RingSeconds      float64
	LowWaterSeconds  float64
	HighWaterSeconds float64
}

func NewDeliveryPipeline(sched *TrackScheduler, cfg PipelineConfig) *DeliveryPipeline {
	ringSec := cfg.RingSeconds
	if ringSec <= 0 {
		ringSec = DEFAULT_RING_SECONDS
	}
	lowSec := cfg.LowWaterSeconds
	if lowSec <= 0 {
		lowSec = DEFAULT_LOW_WATER_SECONDS
	}
	highSec := cfg.HighWaterSeconds
	if highSec <= 0 {
		highSec = DEFAULT_HIGH_WATER_SECONDS
	}
	if highSec > ringSec {
		highSec = ringSec
	}
	if lowSec > highSec {
		lowSec = highSec / 2
	}

	rate := float64(sched.SampleRate())
	p := &DeliveryPipeline{
		sched:           sched,
		ring:            NewFrameRing(int(ringSec * rate)),
		lowWaterFrames:  int(lowSec * rate),
		highWaterFrames: int(highSec * rate),
		commands:        make(chan Command, COMMAND_QUEUE_DEPTH),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
		chunk:           make([]float32, DELIVERY_CHUNK_FRAMES*2),
	}
	// The high watermark must fit the ring, which rounded capacity up.
	if p.highWaterFrames > p.ring.CapacityFrames() {
		p.highWaterFrames = p.ring.CapacityFrames()
	}
	if p.lowWaterFrames > p.highWaterFrames {
		p.lowWaterFrames = p.highWaterFrames / 2
	}
	return p
}

// Submit queues a control command without blocking. Returns false when
// the queue is full.
func (p *DeliveryPipeline) Submit(cmd Command) bool {
	select {
	case p.commands <- cmd:
		return true
	default:
		return false
	}
}

// Run is the production worker loop. It owns the scheduler: drain
// commands, top the ring up to the high watermark, publish playback
// state, sleep until the ring needs attention again. Run returns after
// Stop and closes the done channel as its acknowledgement.
func (p *DeliveryPipeline) Run() {
	defer close(p.done)
	defer p.sched.Close()

	// Sleep roughly half a chunk so a drained ring is refilled well
	// before the callback can catch up.
	interval := time.Duration(float64(DELIVERY_CHUNK_FRAMES) / float64(p.sched.SampleRate()) / 2 * float64(time.Second))
	if interval < time.Millisecond {
		interval = time.Millisecond
	}

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		p.drainCommands()

		if p.ring.OccupiedFrames() < p.lowWaterFrames {
			p.refillCycles.Add(1)
			for p.ring.OccupiedFrames() < p.highWaterFrames {
				select {
				case <-p.stop:
					return
				default:
				}
				p.sched.ProcessBlock(p.chunk)
				pushed := p.ring.Push(p.chunk)
				if pushed < DELIVERY_CHUNK_FRAMES {
					// Ring filled mid-chunk; the tail of this chunk is
					// dropped rather than blocking the worker.
					logrus.WithField("dropped_frames", DELIVERY_CHUNK_FRAMES-pushed).
						Debug("Delivery ring full during refill")
					break
				}
			}
		}

		p.elapsedSamples.Store(p.sched.AbsoluteSample())
		p.currentStep.Store(uint64(p.sched.CurrentStep()))
		p.paused.Store(p.sched.Paused())

		select {
		case <-p.stop:
			return
		case <-time.After(interval):
		}
	}
}

func (p *DeliveryPipeline) drainCommands() {
	for {
		select {
		case cmd := <-p.commands:
			p.sched.HandleCommand(cmd)
		default:
			return
		}
	}
}

// Stop signals the production worker and waits for it to exit.
func (p *DeliveryPipeline) Stop() {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	<-p.done
}

// PopInto fills out with interleaved stereo frames for the hardware
// callback. It never blocks and never allocates: when the ring runs
// dry it repeats the last delivered frame, and when real data resumes
// it crossfades over RESUME_FADE_FRAMES frames to mask the seam.
func (p *DeliveryPipeline) PopInto(out []float32) {
	frames := len(out) / 2
	got := p.ring.Pop(out)

	if got < frames {
		if got == 0 {
			p.underrunEvents.Add(1)
		}
		// Take the held sample from this pop, not the previous one, so
		// the padding continues seamlessly from the last real frame.
		if got > 0 {
			p.lastL = out[(got-1)*2]
			p.lastR = out[(got-1)*2+1]
		}
		for i := got; i < frames; i++ {
			out[i*2] = p.lastL
			out[i*2+1] = p.lastR
		}
		p.fading = true
		p.fadePos = 0
		return
	}

	if p.fading {
		for i := 0; i < frames && p.fadePos < RESUME_FADE_FRAMES; i++ {
			t := float32(p.fadePos) / float32(RESUME_FADE_FRAMES)
			out[i*2] = p.lastL*(1-t) + out[i*2]*t
			out[i*2+1] = p.lastR*(1-t) + out[i*2+1]*t
			p.fadePos++
		}
		if p.fadePos >= RESUME_FADE_FRAMES {
			p.fading = false
		}
	}

	p.lastL = out[(frames-1)*2]
	p.lastR = out[(frames-1)*2+1]
}

// Playback state accessors used by the session API.

func (p *DeliveryPipeline) ElapsedSamples() uint64 { return p.elapsedSamples.Load() }
func (p *DeliveryPipeline) CurrentStep() uint64    { return p.currentStep.Load() }
func (p *DeliveryPipeline) IsPaused() bool         { return p.paused.Load() }

// Telemetry reads the cumulative counters.
func (p *DeliveryPipeline) Telemetry() PipelineTelemetry {
	pushed, popped, polls := p.ring.Counters()
	return PipelineTelemetry{
		FramesProduced: pushed,
		FramesConsumed: popped,
		EmptyPolls:     polls,
		UnderrunEvents: p.underrunEvents.Load(),
		RefillCycles:   p.refillCycles.Load(),
		BufferedFrames: uint64(p.ring.OccupiedFrames()),
	}
}

// PipelineTelemetry is a snapshot of the delivery counters.
type PipelineTelemetry struct {
	FramesProduced uint64
	FramesConsumed uint64
	EmptyPolls     uint64
	UnderrunEvents uint64
	RefillCycles   uint64
	BufferedFrames uint64
}
