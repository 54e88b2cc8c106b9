// audio_backend_malgo.go - miniaudio (malgo) audio output implementation

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tphakala/malgo"
)

// MalgoOutput drives playback through miniaudio. Unlike oto's pull
// Reader, malgo pushes a data callback that must fill pOutput in place;
// both adapters end at the same DeliveryPipeline.PopInto.
type MalgoOutput struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	pipe   *DeliveryPipeline

	sampleBuf []float32
	started   bool
	mutex     sync.Mutex
}

func NewMalgoOutput(sampleRate int, pipe *DeliveryPipeline) (*MalgoOutput, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logrus.Debug(message)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}

	m := &MalgoOutput{
		ctx:  ctx,
		pipe: pipe,
		// Typical miniaudio period sizes stay well under this
		sampleBuf: make([]float32, 8192),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 2
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: m.onData,
	}
	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("malgo device: %w", err)
	}
	m.device = device
	return m, nil
}

// onData is the device callback. framecount stereo frames, float32 LE.
func (m *MalgoOutput) onData(pOutput, _ []byte, framecount uint32) {
	numSamples := int(framecount) * 2
	if len(m.sampleBuf) < numSamples {
		// Only on an unusually large period, and then only once
		m.sampleBuf = make([]float32, numSamples)
	}
	samples := m.sampleBuf[:numSamples]
	m.pipe.PopInto(samples)
	encodeFramesLE(pOutput, samples)
}

func (m *MalgoOutput) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.started || m.device == nil {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("malgo start: %w", err)
	}
	m.started = true
	return nil
}

func (m *MalgoOutput) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.started && m.device != nil {
		_ = m.device.Stop()
		m.started = false
	}
}

func (m *MalgoOutput) Close() {
	m.Stop()
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	if m.ctx != nil {
		_ = m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
}

func (m *MalgoOutput) IsStarted() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.started
}
