// command.go - Control commands for a running audio session

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

// Command is a control message applied to the scheduler between blocks.
// Commands travel over a buffered channel from the session API to the
// production worker and are drained once per production cycle, so a
// burst of UI activity never stalls audio.
type Command interface {
	isCommand()
}

// CmdUpdateTrack replaces the whole track configuration. Playback
// position is preserved; voices rebuild at the current step.
type CmdUpdateTrack struct {
	Track *TrackConfig
}

// CmdUpdateRealtime adjusts sweep and LFO parameters of playing noise
// voices in place where possible, rebuilding only voices whose filter
// allocation cannot absorb the change.
type CmdUpdateRealtime struct {
	Track *TrackConfig
}

// CmdEnableTurbo toggles accelerated offline rendering. Realtime
// playback ignores it.
type CmdEnableTurbo struct {
	Enabled bool
}

// CmdSetPaused pauses or resumes playback. Paused output is silence and
// the playback position does not advance.
type CmdSetPaused struct {
	Paused bool
}

// CmdStartFrom seeks to an absolute position in seconds.
type CmdStartFrom struct {
	Seconds float64
}

// CmdSetMasterGain adjusts the master output gain (0.0 - 1.0).
type CmdSetMasterGain struct {
	Gain float32
}

// CmdSetBinauralGain overrides the per-step binaural gain.
type CmdSetBinauralGain struct {
	Gain float32
}

// CmdSetNoiseGain overrides the per-step noise gain.
type CmdSetNoiseGain struct {
	Gain float32
}

// CmdSetNormalizationLevel overrides the track normalization level.
type CmdSetNormalizationLevel struct {
	Level float32
}

// CmdPushClipSamples feeds mono samples to a streaming overlay clip.
// Finished marks the end of the clip's data.
type CmdPushClipSamples struct {
	Index    int
	Data     []float32
	Finished bool
}

func (CmdUpdateTrack) isCommand()           {}
func (CmdUpdateRealtime) isCommand()        {}
func (CmdEnableTurbo) isCommand()           {}
func (CmdSetPaused) isCommand()             {}
func (CmdStartFrom) isCommand()             {}
func (CmdSetMasterGain) isCommand()         {}
func (CmdSetBinauralGain) isCommand()       {}
func (CmdSetNoiseGain) isCommand()          {}
func (CmdSetNormalizationLevel) isCommand() {}
func (CmdPushClipSamples) isCommand()       {}
