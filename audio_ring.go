// audio_ring.go - Lock-free SPSC ring buffer for stereo frames

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import "sync/atomic"

// FrameRing is a single-producer single-consumer lock-free ring of
// stereo frames. The production worker pushes, the hardware callback
// pops; neither side ever blocks or allocates. Head and tail are
// monotonically increasing frame counts, so occupancy is always
// head-tail with no wrap ambiguity.
//
// Capacity is rounded up to a power of two so index masking replaces
// modulo on the callback path.
type FrameRing struct {
	data []float32 // interleaved stereo, capacity*2 floats
	mask uint64

	head atomic.Uint64 // frames ever pushed
	tail atomic.Uint64 // frames ever popped

	// Telemetry counters, drained by the observer.
	framesPushed  atomic.Uint64
	framesPopped  atomic.Uint64
	underrunPolls atomic.Uint64
}

// NewFrameRing builds a ring holding at least capacityFrames frames.
func NewFrameRing(capacityFrames int) *FrameRing {
	if capacityFrames < 2 {
		capacityFrames = 2
	}
	size := uint64(1)
	for size < uint64(capacityFrames) {
		size <<= 1
	}
	return &FrameRing{
		data: make([]float32, size*2),
		mask: size - 1,
	}
}

// CapacityFrames reports the usable capacity in frames.
func (r *FrameRing) CapacityFrames() int {
	return len(r.data) / 2
}

// OccupiedFrames reports how many frames are buffered. Safe from either
// side; the value may be stale by the time it is used, which is fine for
// watermark decisions.
func (r *FrameRing) OccupiedFrames() int {
	return int(r.head.Load() - r.tail.Load())
}

// VacantFrames reports remaining space in frames.
func (r *FrameRing) VacantFrames() int {
	return r.CapacityFrames() - r.OccupiedFrames()
}

// Push copies up to len(frames)/2 frames into the ring and returns the
// number of frames accepted. Producer side only.
func (r *FrameRing) Push(frames []float32) int {
	want := len(frames) / 2
	head := r.head.Load()
	tail := r.tail.Load()
	free := r.CapacityFrames() - int(head-tail)
	if want > free {
		want = free
	}
	if want <= 0 {
		return 0
	}
	for i := 0; i < want; i++ {
		idx := ((head + uint64(i)) & r.mask) * 2
		r.data[idx] = frames[i*2]
		r.data[idx+1] = frames[i*2+1]
	}
	// The store publishes the copied frames to the consumer.
	r.head.Store(head + uint64(want))
	r.framesPushed.Add(uint64(want))
	return want
}

// Pop copies up to len(out)/2 frames out of the ring and returns the
// number of frames delivered. Consumer side only.
func (r *FrameRing) Pop(out []float32) int {
	want := len(out) / 2
	head := r.head.Load()
	tail := r.tail.Load()
	avail := int(head - tail)
	if want > avail {
		want = avail
	}
	if want <= 0 {
		r.underrunPolls.Add(1)
		return 0
	}
	for i := 0; i < want; i++ {
		idx := ((tail + uint64(i)) & r.mask) * 2
		out[i*2] = r.data[idx]
		out[i*2+1] = r.data[idx+1]
	}
	r.tail.Store(tail + uint64(want))
	r.framesPopped.Add(uint64(want))
	return want
}

// Counters returns the cumulative pushed/popped frame counts and the
// number of empty polls.
func (r *FrameRing) Counters() (pushed, popped, underrunPolls uint64) {
	return r.framesPushed.Load(), r.framesPopped.Load(), r.underrunPolls.Load()
}
