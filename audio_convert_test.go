// audio_convert_test.go - Device-boundary sample conversion tests

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestClampSample(t *testing.T) {
	tests := []struct {
		in   float32
		want float32
	}{
		{0.5, 0.5},
		{-0.5, -0.5},
		{1.0, 1.0},
		{-1.0, -1.0},
		{1.7, 1.0},
		{-3.2, -1.0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := clampSample(tt.in); got != tt.want {
			t.Errorf("clampSample(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEncodeFramesLE(t *testing.T) {
	src := []float32{0.25, -0.75, 2.0, -2.0}
	dst := make([]byte, len(src)*4)
	n := encodeFramesLE(dst, src)
	if n != len(src)*4 {
		t.Fatalf("wrote %d bytes, want %d", n, len(src)*4)
	}

	want := []float32{0.25, -0.75, 1.0, -1.0}
	for i, w := range want {
		bits := binary.LittleEndian.Uint32(dst[i*4:])
		if got := math.Float32frombits(bits); got != w {
			t.Errorf("sample %d decoded as %v, want %v", i, got, w)
		}
	}
}

func TestEncodeFramesLEShortDst(t *testing.T) {
	src := []float32{0.1, 0.2, 0.3, 0.4}
	dst := make([]byte, 9) // room for two samples plus one stray byte
	n := encodeFramesLE(dst, src)
	if n != 8 {
		t.Fatalf("wrote %d bytes into a 9-byte dst, want 8", n)
	}
	if dst[8] != 0 {
		t.Errorf("stray byte past the truncation point was touched")
	}
}

func TestFramesToInt16(t *testing.T) {
	src := []float32{0, 1.0, -1.0, 0.5, 3.0}
	dst := make([]int, len(src))
	framesToInt16(dst, src)

	want := []int{0, 32767, -32767, 16383, 32767}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("sample %d = %d, want %d", i, dst[i], w)
		}
	}
}
