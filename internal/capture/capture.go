// SPDX-License-Identifier: MIT
/*
Package capture delivers stereo audio from a PortAudio input stream to the
analysis engine. The capture callback runs on PortAudio's audio thread:
samples are widened to float64 into preallocated scratch buffers and handed
to the sink, which copies them across its own goroutine boundary. No
allocations happen per callback after the stream is open.
*/
package capture

import (
	"fmt"
	"time"

	"mira/internal/config"
	applog "mira/internal/log"

	"github.com/gordonklaus/portaudio"
)

// FrameSink consumes captured stereo chunks. OnFrames must not block; both
// methods are called from the capture callback's thread.
type FrameSink interface {
	OnFrames(left, right []float64)
	SetSampleRate(sampleRate int)
}

// Capture owns one PortAudio input stream and forwards its frames to a
// FrameSink. Mono devices are tolerated by duplicating the single channel.
type Capture struct {
	cfg    *config.AudioConfig
	sink   FrameSink
	device *portaudio.DeviceInfo
	stream *portaudio.Stream

	channels   int
	sampleRate int
	latency    time.Duration

	scratchL []float64
	scratchR []float64

	recorder *Recorder // optional, nil when recording is disabled
}

// New resolves the configured input device and prepares scratch buffers.
// The stream itself is opened by Start.
func New(cfg *config.AudioConfig, sink FrameSink) (*Capture, error) {
	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	if device.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %q has no input channels", device.Name)
	}

	channels := 2
	if device.MaxInputChannels < 2 {
		channels = 1
		applog.Warnf("Capture: %q is mono, duplicating into both channels", device.Name)
	}

	sampleRate := cfg.SampleRate
	if deviceRate := int(device.DefaultSampleRate); deviceRate != sampleRate {
		applog.Infof("Capture: device rate %d Hz overrides configured %d Hz", deviceRate, sampleRate)
		sampleRate = deviceRate
	}

	return &Capture{
		cfg:        cfg,
		sink:       sink,
		device:     device,
		channels:   channels,
		sampleRate: sampleRate,
		latency:    device.DefaultHighInputLatency,
		scratchL:   make([]float64, cfg.ChunkFrames),
		scratchR:   make([]float64, cfg.ChunkFrames),
	}, nil
}

// SampleRate returns the rate the stream will actually run at.
func (c *Capture) SampleRate() int { return c.sampleRate }

// Start reports the active sample rate to the sink, opens the input stream
// and begins delivering frames.
func (c *Capture) Start() error {
	c.sink.SetSampleRate(c.sampleRate)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   c.device,
			Channels: c.channels,
			Latency:  c.latency,
		},
		FramesPerBuffer: c.cfg.ChunkFrames,
		SampleRate:      float64(c.sampleRate),
	}

	stream, err := portaudio.OpenStream(params, c.processInput)
	if err != nil {
		return fmt.Errorf("failed to open input stream on %q: %w", c.device.Name, err)
	}
	c.stream = stream

	if err := c.stream.Start(); err != nil {
		c.stream.Close()
		c.stream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	applog.Infof("Capture: streaming from %q (%d ch, %d Hz, %d-frame chunks)",
		c.device.Name, c.channels, c.sampleRate, c.cfg.ChunkFrames)
	return nil
}

// Stop halts and closes the stream and any active recording.
func (c *Capture) Stop() error {
	if c.stream != nil {
		if err := c.stream.Stop(); err != nil {
			return err
		}
		if err := c.stream.Close(); err != nil {
			return err
		}
		c.stream = nil
	}
	if c.recorder != nil {
		if err := c.recorder.Stop(); err != nil {
			return err
		}
	}
	return nil
}

// StartRecording mirrors the raw capture stream into a WAV file alongside
// the analysis.
func (c *Capture) StartRecording(cfg *config.RecordingConfig) error {
	recorder, err := NewRecorder(cfg, c.sampleRate, c.channels)
	if err != nil {
		return err
	}
	c.recorder = recorder
	return nil
}

// StopRecording finalizes the WAV file, if recording was active.
func (c *Capture) StopRecording() error {
	if c.recorder == nil {
		return nil
	}
	err := c.recorder.Stop()
	c.recorder = nil
	return err
}

// processInput is the PortAudio callback. Non-interleaved float32 input:
// one inner slice per channel.
func (c *Capture) processInput(in [][]float32) {
	if len(in) == 0 {
		return
	}

	left := in[0]
	right := left
	if len(in) > 1 {
		right = in[1]
	}

	n := min(len(left), len(right), len(c.scratchL))
	for i := range n {
		c.scratchL[i] = float64(left[i])
		c.scratchR[i] = float64(right[i])
	}

	c.sink.OnFrames(c.scratchL[:n], c.scratchR[:n])

	if c.recorder != nil {
		if err := c.recorder.Write(left[:n], right[:n]); err != nil {
			applog.Errorf("Capture: recording write failed: %v", err)
		}
	}
}
