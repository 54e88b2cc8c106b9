// wav_render.go - Offline track rendering to WAV files

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
)

// Sample renders are capped at 60 seconds.
const SAMPLE_RENDER_MAX_SECONDS = 60

// RenderSampleWAV renders up to 60 seconds of the track to a 16-bit
// stereo WAV file.
func RenderSampleWAV(track *TrackConfig, outPath string) error {
	if err := track.Validate(); err != nil {
		return err
	}
	sched := NewTrackScheduler(track, track.GlobalSettings.SampleRate)
	defer sched.Close()

	target := sched.TotalFrames()
	maxFrames := uint64(track.GlobalSettings.SampleRate) * SAMPLE_RENDER_MAX_SECONDS
	if target > maxFrames {
		target = maxFrames
	}
	return renderWAV(sched, target, outPath)
}

// RenderFullWAV renders the complete track to a 16-bit stereo WAV file.
func RenderFullWAV(track *TrackConfig, outPath string) error {
	if err := track.Validate(); err != nil {
		return err
	}
	sched := NewTrackScheduler(track, track.GlobalSettings.SampleRate)
	defer sched.Close()

	start := time.Now()
	target := sched.TotalFrames()
	logrus.WithFields(logrus.Fields{
		"frames":      target,
		"sample_rate": sched.SampleRate(),
	}).Info("Rendering full track")

	if err := renderWAV(sched, target, outPath); err != nil {
		return err
	}
	logrus.WithField("elapsed", time.Since(start).Round(10*time.Millisecond)).
		Info("Render finished")
	return nil
}

func renderWAV(sched *TrackScheduler, targetFrames uint64, outPath string) error {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create WAV file: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sched.SampleRate(), 16, 2, 1)

	floatBuf := make([]float32, DELIVERY_CHUNK_FRAMES*2)
	intData := make([]int, DELIVERY_CHUNK_FRAMES*2)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sched.SampleRate()},
		SourceBitDepth: 16,
	}

	remaining := targetFrames
	for remaining > 0 {
		frames := uint64(DELIVERY_CHUNK_FRAMES)
		if frames > remaining {
			frames = remaining
		}
		chunk := floatBuf[:frames*2]
		sched.ProcessBlock(chunk)
		framesToInt16(intData[:frames*2], chunk)
		buf.Data = intData[:frames*2]
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("write WAV samples: %w", err)
		}
		remaining -= frames
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize WAV file: %w", err)
	}
	return nil
}
