// session_test.go - Session lifecycle tests over the headless backend

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func headlessSession(t *testing.T, track *TrackConfig, startSeconds float64) *Session {
	t.Helper()
	s, err := StartSession(track, startSeconds, SessionConfig{
		Backend:          AUDIO_BACKEND_HEADLESS,
		RingSeconds:      0.5,
		LowWaterSeconds:  0.05,
		HighWaterSeconds: 0.2,
	})
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestSessionPositionProgresses(t *testing.T) {
	const rate = 8000
	s := headlessSession(t, binauralTrack(rate, 30), 0)

	waitFor(t, 5*time.Second, func() bool {
		return s.Status().PositionSeconds > 0
	}, "position never advanced")
	require.Equal(t, rate, s.Status().SampleRate)
}

func TestSessionStartFromSeconds(t *testing.T) {
	const rate = 8000
	s := headlessSession(t, binauralTrack(rate, 1, 30), 2.0)

	waitFor(t, 5*time.Second, func() bool {
		st := s.Status()
		return st.PositionSeconds >= 2.0 && st.CurrentStep == 1
	}, "session did not start from the requested position")
}

func TestSessionPauseResume(t *testing.T) {
	const rate = 8000
	s := headlessSession(t, binauralTrack(rate, 30), 0)

	require.NoError(t, s.Pause())
	waitFor(t, 5*time.Second, func() bool {
		return s.Status().IsPaused
	}, "pause never reflected in status")

	paused := s.Status().PositionSeconds
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, paused, s.Status().PositionSeconds, "position moved while paused")

	require.NoError(t, s.Resume())
	waitFor(t, 5*time.Second, func() bool {
		return !s.Status().IsPaused
	}, "resume never reflected in status")
}

func TestSessionTelemetryCounts(t *testing.T) {
	const rate = 8000
	s := headlessSession(t, binauralTrack(rate, 30), 0)

	waitFor(t, 5*time.Second, func() bool {
		tel := s.Telemetry()
		return tel.FramesProduced > 0 && tel.FramesConsumed > 0
	}, "telemetry counters never moved")
}

func TestSessionStopIdempotent(t *testing.T) {
	const rate = 8000
	s, err := StartSession(binauralTrack(rate, 30), 0, SessionConfig{
		Backend: AUDIO_BACKEND_HEADLESS,
	})
	require.NoError(t, err)
	s.Stop()
	s.Stop()
}

func TestSessionRejectsInvalidTrack(t *testing.T) {
	_, err := StartSession(nil, 0, SessionConfig{Backend: AUDIO_BACKEND_HEADLESS})
	require.Error(t, err)

	_, err = StartSession(&TrackConfig{}, 0, SessionConfig{Backend: AUDIO_BACKEND_HEADLESS})
	require.Error(t, err, "empty track must be rejected")

	bad := binauralTrack(8000, 5)
	bad.Steps[0].Voices[0].BaseFreq = -1
	_, err = StartSession(bad, 0, SessionConfig{Backend: AUDIO_BACKEND_HEADLESS})
	require.Error(t, err)
}

func TestSessionUpdateValidatesBeforeSubmit(t *testing.T) {
	const rate = 8000
	s := headlessSession(t, binauralTrack(rate, 30), 0)

	require.Error(t, s.UpdateTrack(nil))
	require.Error(t, s.UpdateTrack(&TrackConfig{}))
	require.NoError(t, s.UpdateTrack(binauralTrack(rate, 10, 10)))
	require.NoError(t, s.UpdateRealtime(binauralTrack(rate, 10, 10)))
}

func TestParseBackendName(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"", AUDIO_BACKEND_OTO, false},
		{"oto", AUDIO_BACKEND_OTO, false},
		{"malgo", AUDIO_BACKEND_MALGO, false},
		{"headless", AUDIO_BACKEND_HEADLESS, false},
		{"pulse", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBackendName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackendName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseBackendName(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}
