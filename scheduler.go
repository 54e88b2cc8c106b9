// scheduler.go - Track timeline scheduler and voice mixer

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Calibration length for the robust-peak measurement of a noise voice,
// in stereo frames. One second is enough OLA blocks for the percentile
// to be meaningful without making step changes noticeably slow.
const CALIBRATION_FRAMES_PER_VOICE = 44100

// SCHED_MIX_CHUNK bounds the per-voice scratch buffer. Blocks larger
// than this are mixed in slices.
const SCHED_MIX_CHUNK = 4096

// activeVoice is one playing voice within the current step.
type activeVoice struct {
	kind string
	gain float32

	// Noise voice.
	noise     *NoiseVoice
	peak      float32
	normGain  float32
	noiseConf *NoiseParams

	// Binaural voice.
	phaseL   float64
	phaseR   float64
	baseFreq float64
	beatFreq float64

	// Clip voice.
	clipIndex int

	scratch []float32
}

// clipStream buffers mono overlay samples pushed from the session API.
// Samples are consumed exactly once; Finished marks the end of data.
type clipStream struct {
	samples  []float32
	readPos  int
	finished bool
}

func (c *clipStream) push(data []float32, finished bool) {
	c.samples = append(c.samples, data...)
	if finished {
		c.finished = true
	}
	// Drop consumed data occasionally so a long clip does not pin its
	// whole history in memory.
	if c.readPos > len(c.samples)/2 && c.readPos > 1<<16 {
		c.samples = append(c.samples[:0], c.samples[c.readPos:]...)
		c.readPos = 0
	}
}

func (c *clipStream) next() (float32, bool) {
	if c.readPos >= len(c.samples) {
		return 0, false
	}
	s := c.samples[c.readPos]
	c.readPos++
	return s, true
}

// TrackScheduler walks the track timeline and mixes the voices of the
// current step into stereo blocks. It is single-owner state driven from
// one goroutine; the session reads its position fields through the
// pipeline's atomics, never directly.
type TrackScheduler struct {
	track      *TrackConfig
	sampleRate int

	absoluteSample uint64
	currentStep    int
	paused         bool
	turboEnabled   bool

	masterGain float32

	// Per-kind overrides. NaN means no override.
	binauralGainOverride float32
	noiseGainOverride    float32
	normalizationLevel   float32

	// Cumulative end frame of each step.
	stepEnds []uint64

	voices      []*activeVoice
	voicesStep  int
	voicesBuilt bool

	clips map[int]*clipStream
}

func NewTrackScheduler(track *TrackConfig, sampleRate int) *TrackScheduler {
	s := &TrackScheduler{
		track:                track,
		sampleRate:           sampleRate,
		masterGain:           1.0,
		binauralGainOverride: float32(math.NaN()),
		noiseGainOverride:    float32(math.NaN()),
		normalizationLevel:   track.GlobalSettings.NormalizationLevel,
		clips:                make(map[int]*clipStream),
	}
	s.rebuildStepEnds()
	return s
}

func (s *TrackScheduler) rebuildStepEnds() {
	s.stepEnds = s.stepEnds[:0]
	var total uint64
	for _, step := range s.track.Steps {
		total += uint64(step.Duration * float64(s.sampleRate))
		s.stepEnds = append(s.stepEnds, total)
	}
}

// TotalFrames reports the length of the whole track in stereo frames.
func (s *TrackScheduler) TotalFrames() uint64 {
	if len(s.stepEnds) == 0 {
		return 0
	}
	return s.stepEnds[len(s.stepEnds)-1]
}

func (s *TrackScheduler) SampleRate() int        { return s.sampleRate }
func (s *TrackScheduler) AbsoluteSample() uint64 { return s.absoluteSample }
func (s *TrackScheduler) CurrentStep() int       { return s.currentStep }
func (s *TrackScheduler) Paused() bool           { return s.paused }

// stepForSample finds the step containing an absolute frame. Past the
// end of the timeline the last step stays active, so an open-ended
// session keeps sounding instead of cutting to silence.
func (s *TrackScheduler) stepForSample(abs uint64) int {
	for i, end := range s.stepEnds {
		if abs < end {
			return i
		}
	}
	return len(s.stepEnds) - 1
}

func (s *TrackScheduler) dropVoices() {
	for _, v := range s.voices {
		if v.noise != nil {
			v.noise.Close()
		}
	}
	s.voices = nil
	s.voicesBuilt = false
}

// buildVoices constructs the voices of one step. Noise voices run a
// calibration pass when a normalization level is set, so construction
// can take tens of milliseconds; step boundaries absorb this because the
// delivery ring holds far more audio than one block.
func (s *TrackScheduler) buildVoices(stepIdx int) {
	s.dropVoices()
	s.voicesStep = stepIdx
	s.voicesBuilt = true

	if stepIdx < 0 || stepIdx >= len(s.track.Steps) {
		return
	}
	for _, vc := range s.track.Steps[stepIdx].Voices {
		gain := vc.Gain
		if gain == 0 {
			gain = 1.0
		}
		av := &activeVoice{
			kind:    vc.Kind,
			gain:    gain,
			scratch: make([]float32, SCHED_MIX_CHUNK*2),
		}
		switch vc.Kind {
		case VOICE_NOISE:
			resolved := vc.Noise.resolve()
			av.noiseConf = vc.Noise
			av.normGain = 1.0
			if s.normalizationLevel > 0 {
				voice, peak, err := NewNoiseVoiceWithCalibratedPeak(resolved, float32(s.sampleRate), CALIBRATION_FRAMES_PER_VOICE)
				if err != nil {
					logrus.WithError(err).WithField("step", stepIdx).Error("Noise voice construction failed, skipping voice")
					continue
				}
				av.noise = voice
				av.peak = peak
				av.normGain = s.normalizationLevel / peak
			} else {
				voice, err := newNoiseVoice(resolved, float32(s.sampleRate))
				if err != nil {
					logrus.WithError(err).WithField("step", stepIdx).Error("Noise voice construction failed, skipping voice")
					continue
				}
				av.noise = voice
			}
		case VOICE_BINAURAL:
			av.baseFreq = float64(vc.BaseFreq)
			av.beatFreq = float64(vc.BeatFreq)
		case VOICE_CLIP:
			av.clipIndex = vc.ClipIndex
			if _, ok := s.clips[vc.ClipIndex]; !ok {
				s.clips[vc.ClipIndex] = &clipStream{}
			}
		}
		s.voices = append(s.voices, av)
	}
}

// ProcessBlock renders the next block of interleaved stereo samples.
// Paused playback emits silence without advancing the position.
func (s *TrackScheduler) ProcessBlock(out []float32) {
	for i := range out {
		out[i] = 0
	}
	if s.paused || len(s.track.Steps) == 0 {
		return
	}

	frames := len(out) / 2
	offset := 0
	for frames > 0 {
		step := s.stepForSample(s.absoluteSample)
		if !s.voicesBuilt || step != s.voicesStep {
			s.buildVoices(step)
			s.currentStep = step
		}

		// Render up to the step boundary, then rebuild.
		chunk := frames
		if step < len(s.stepEnds)-1 {
			remain := s.stepEnds[step] - s.absoluteSample
			if uint64(chunk) > remain {
				chunk = int(remain)
			}
		}
		if chunk > SCHED_MIX_CHUNK {
			chunk = SCHED_MIX_CHUNK
		}

		s.mixChunk(out[offset*2 : (offset+chunk)*2])
		s.absoluteSample += uint64(chunk)
		offset += chunk
		frames -= chunk
	}
	s.currentStep = s.stepForSample(s.absoluteSample)
}

func (s *TrackScheduler) mixChunk(out []float32) {
	frames := len(out) / 2
	for _, v := range s.voices {
		switch v.kind {
		case VOICE_NOISE:
			if v.noise == nil {
				continue
			}
			buf := v.scratch[:len(out)]
			v.noise.Generate(buf)
			g := v.gain * v.normGain * s.masterGain
			if !math.IsNaN(float64(s.noiseGainOverride)) {
				g = s.noiseGainOverride * v.normGain * s.masterGain
			}
			for i := range buf {
				out[i] += buf[i] * g
			}
		case VOICE_BINAURAL:
			g := v.gain * s.masterGain
			if !math.IsNaN(float64(s.binauralGainOverride)) {
				g = s.binauralGainOverride * s.masterGain
			}
			freqL := v.baseFreq - v.beatFreq/2.0
			freqR := v.baseFreq + v.beatFreq/2.0
			incL := 2.0 * math.Pi * freqL / float64(s.sampleRate)
			incR := 2.0 * math.Pi * freqR / float64(s.sampleRate)
			for i := 0; i < frames; i++ {
				out[i*2] += float32(math.Sin(v.phaseL)) * g
				out[i*2+1] += float32(math.Sin(v.phaseR)) * g
				v.phaseL += incL
				v.phaseR += incR
			}
			if v.phaseL > 2.0*math.Pi {
				v.phaseL = math.Mod(v.phaseL, 2.0*math.Pi)
			}
			if v.phaseR > 2.0*math.Pi {
				v.phaseR = math.Mod(v.phaseR, 2.0*math.Pi)
			}
		case VOICE_CLIP:
			clip := s.clips[v.clipIndex]
			if clip == nil {
				continue
			}
			g := v.gain * s.masterGain
			for i := 0; i < frames; i++ {
				sample, ok := clip.next()
				if !ok {
					break
				}
				out[i*2] += sample * g
				out[i*2+1] += sample * g
			}
		}
	}
}

// HandleCommand applies one control command. Called between blocks on
// the production goroutine.
func (s *TrackScheduler) HandleCommand(cmd Command) {
	switch c := cmd.(type) {
	case CmdUpdateTrack:
		s.track = c.Track
		s.normalizationLevel = c.Track.GlobalSettings.NormalizationLevel
		s.rebuildStepEnds()
		s.dropVoices()
	case CmdUpdateRealtime:
		s.applyRealtimeUpdate(c.Track)
	case CmdEnableTurbo:
		s.turboEnabled = c.Enabled
	case CmdSetPaused:
		s.paused = c.Paused
	case CmdStartFrom:
		s.seekTo(c.Seconds)
	case CmdSetMasterGain:
		s.masterGain = clamp32(c.Gain, 0, 1)
	case CmdSetBinauralGain:
		s.binauralGainOverride = c.Gain
	case CmdSetNoiseGain:
		s.noiseGainOverride = c.Gain
	case CmdSetNormalizationLevel:
		s.normalizationLevel = c.Level
		for _, v := range s.voices {
			if v.kind == VOICE_NOISE && v.peak > 0 {
				if c.Level > 0 {
					v.normGain = c.Level / v.peak
				} else {
					v.normGain = 1.0
				}
			}
		}
	case CmdPushClipSamples:
		clip, ok := s.clips[c.Index]
		if !ok {
			clip = &clipStream{}
			s.clips[c.Index] = clip
		}
		clip.push(c.Data, c.Finished)
	}
}

// applyRealtimeUpdate adjusts playing noise voices in place. A voice
// whose new parameters need more filter stages than it allocated is
// rebuilt; everything else keeps its filter state and plays through the
// change seamlessly.
func (s *TrackScheduler) applyRealtimeUpdate(track *TrackConfig) {
	s.track = track
	s.rebuildStepEnds()
	if !s.voicesBuilt || s.voicesStep >= len(track.Steps) {
		s.dropVoices()
		return
	}

	newVoices := track.Steps[s.voicesStep].Voices
	ni := 0
	for _, v := range s.voices {
		if v.kind != VOICE_NOISE || v.noise == nil {
			continue
		}
		// Pair playing noise voices with the step's noise configs in order.
		var conf *NoiseParams
		for ; ni < len(newVoices); ni++ {
			if newVoices[ni].Kind == VOICE_NOISE && newVoices[ni].Noise != nil {
				conf = newVoices[ni].Noise
				ni++
				break
			}
		}
		if conf == nil {
			break
		}
		resolved := conf.resolve()
		if !v.noise.UpdateRealtime(resolved) {
			logrus.WithField("step", s.voicesStep).Info("Realtime update exceeds allocated filters, rebuilding voice")
			v.noise.Close()
			voice, err := newNoiseVoice(resolved, float32(s.sampleRate))
			if err != nil {
				logrus.WithError(err).Error("Noise voice rebuild failed")
				v.noise = nil
				continue
			}
			v.noise = voice
		}
		v.noiseConf = conf
	}
}

// seekTo renders and discards up to the target position. Seeking
// backwards restarts the timeline from zero first.
func (s *TrackScheduler) seekTo(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	target := uint64(seconds * float64(s.sampleRate))
	if target < s.absoluteSample {
		s.absoluteSample = 0
		s.dropVoices()
	}

	wasPaused := s.paused
	s.paused = false
	scratch := make([]float32, SCHED_MIX_CHUNK*2)
	for s.absoluteSample < target {
		n := target - s.absoluteSample
		if n > SCHED_MIX_CHUNK {
			n = SCHED_MIX_CHUNK
		}
		s.ProcessBlock(scratch[:n*2])
	}
	s.paused = wasPaused
}

// Close releases all voices.
func (s *TrackScheduler) Close() {
	s.dropVoices()
}
