// audio_ring_test.go - Lock-free frame ring tests

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRingCapacityRounding(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{1, 2},
		{2, 2},
		{3, 4},
		{1000, 1024},
		{1024, 1024},
		{1025, 2048},
	}
	for _, tt := range tests {
		r := NewFrameRing(tt.requested)
		if got := r.CapacityFrames(); got != tt.want {
			t.Errorf("NewFrameRing(%d).CapacityFrames() = %d, want %d", tt.requested, got, tt.want)
		}
	}
}

// counterFrames builds n frames whose samples encode their frame index,
// so reordering or loss is detectable on the far side.
func counterFrames(start, n int) []float32 {
	out := make([]float32, n*2)
	for i := 0; i < n; i++ {
		out[i*2] = float32(start + i)
		out[i*2+1] = -float32(start + i)
	}
	return out
}

func TestFrameRingPushPopRoundTrip(t *testing.T) {
	r := NewFrameRing(16)
	pushed := r.Push(counterFrames(0, 10))
	require.Equal(t, 10, pushed)
	require.Equal(t, 10, r.OccupiedFrames())
	require.Equal(t, 6, r.VacantFrames())

	out := make([]float32, 10*2)
	popped := r.Pop(out)
	require.Equal(t, 10, popped)
	require.Equal(t, counterFrames(0, 10), out)
	require.Equal(t, 0, r.OccupiedFrames())
}

func TestFrameRingPartialPush(t *testing.T) {
	r := NewFrameRing(8)
	require.Equal(t, 8, r.Push(counterFrames(0, 12)), "push past capacity must truncate")
	require.Equal(t, 0, r.Push(counterFrames(8, 4)), "full ring accepts nothing")

	out := make([]float32, 8*2)
	require.Equal(t, 8, r.Pop(out))
	require.Equal(t, counterFrames(0, 8), out)
}

func TestFrameRingEmptyPopCountsUnderrunPoll(t *testing.T) {
	r := NewFrameRing(8)
	out := make([]float32, 4*2)
	require.Equal(t, 0, r.Pop(out))
	require.Equal(t, 0, r.Pop(out))
	_, _, polls := r.Counters()
	require.Equal(t, uint64(2), polls)
}

// Push and pop in mismatched chunk sizes across many wraps; the frame
// sequence must come out intact.
func TestFrameRingWraparoundIntegrity(t *testing.T) {
	r := NewFrameRing(16)
	next := 0
	read := 0
	out := make([]float32, 6*2)
	for read < 2000 {
		pushed := r.Push(counterFrames(next, 5))
		next += pushed

		n := r.Pop(out)
		for i := 0; i < n; i++ {
			require.Equal(t, float32(read), out[i*2], "left frame %d", read)
			require.Equal(t, -float32(read), out[i*2+1], "right frame %d", read)
			read++
		}
	}

	pushed, popped, _ := r.Counters()
	require.Equal(t, uint64(next), pushed)
	require.Equal(t, uint64(read), popped)
}

// Concurrent producer and consumer; run under the race detector. Every
// frame must arrive exactly once, in order.
func TestFrameRingConcurrentSPSC(t *testing.T) {
	const total = 50000
	r := NewFrameRing(64)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sent := 0
		for sent < total {
			n := 7
			if total-sent < n {
				n = total - sent
			}
			sent += r.Push(counterFrames(sent, n))
		}
	}()

	out := make([]float32, 13*2)
	read := 0
	for read < total {
		n := r.Pop(out)
		for i := 0; i < n; i++ {
			if out[i*2] != float32(read) {
				t.Fatalf("frame %d: got %v", read, out[i*2])
			}
			read++
		}
	}
	<-done
	require.Equal(t, 0, r.OccupiedFrames())
}
