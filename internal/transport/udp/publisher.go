// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"mira/internal/analysis"
	applog "mira/internal/log"
)

/*
SR v2 packet layout (little-endian, packed, 44 bytes):

	| Field             | Type       | Size | Description                  |
	|-------------------|------------|------|------------------------------|
	| Header            | [6]byte    | 6    | "00002" + NUL                |
	| Pressure          | [2]uint8   | 2    | unused, zero                 |
	| SampleRaw         | float32    | 4    | raw level, 0..255            |
	| SampleSmth        | float32    | 4    | AGC'd level, 0..255          |
	| SamplePeak        | uint8      | 1    | 0/1 peak flag                |
	| FrameCounter      | uint8      | 1    | rolls over                   |
	| FFTResult         | [16]uint8  | 16   | 16 band bytes, 0..255        |
	| ZeroCrossingCount | uint16     | 2    | crossings in last frame      |
	| FFTMagnitude      | float32    | 4    | strongest band energy        |
	| FFTMajorPeak      | float32    | 4    | dominant frequency (Hz)      |
*/
type srPacket struct {
	Header            [6]byte
	Pressure          [2]uint8
	SampleRaw         float32
	SampleSmth        float32
	SamplePeak        uint8
	FrameCounter      uint8
	FFTResult         [16]uint8
	ZeroCrossingCount uint16
	FFTMagnitude      float32
	FFTMajorPeak      float32
}

const srPacketSize = 44

var srHeader = [6]byte{'0', '0', '0', '0', '2', 0}

// Publisher converts per-hop results into SR v2 packets and sends them,
// throttled to at most one packet per interval (receivers expect <= 50 FPS).
// The harmonic band energies are normalized against a decaying running peak,
// downmixed to 16 bytes, and the overall level runs through a fast/slow AGC
// pair so quiet and loud material land in the same byte range.
type Publisher struct {
	sender   *Sender
	interval time.Duration
	lastSend time.Time

	frame    uint8
	peakNorm float64 // decaying max band energy for normalization
	fast     float64 // fast AGC follower
	slow     float64 // slow AGC follower

	packet srPacket
	buf    bytes.Buffer
}

// AGC follower coefficients and the peak-normalization decay, carried over
// from the controller firmware this packet format pairs with.
const (
	fastAlpha = 0.4
	slowAlpha = 0.98
	peakDecay = 0.995
)

// NewPublisher wraps a Sender. An interval <= 0 defaults to 20 ms.
func NewPublisher(sender *Sender, interval time.Duration) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	if interval <= 0 {
		interval = 20 * time.Millisecond
		applog.Warnf("UDP: invalid publish interval, defaulting to %s", interval)
	}
	return &Publisher{
		sender:   sender,
		interval: interval,
		slow:     1e-3,
	}, nil
}

// Send implements transport.Transport. Called once per hop; most calls
// return immediately because of the throttle.
func (p *Publisher) Send(result *analysis.Result) error {
	now := time.Now()
	if now.Sub(p.lastSend) < p.interval {
		return nil
	}
	p.lastSend = now

	p.buildPacket(result)

	p.buf.Reset()
	if err := binary.Write(&p.buf, binary.LittleEndian, &p.packet); err != nil {
		return fmt.Errorf("failed to pack SR packet: %w", err)
	}
	if p.buf.Len() != srPacketSize {
		return fmt.Errorf("SR packet is %d bytes, want %d", p.buf.Len(), srPacketSize)
	}
	if err := p.sender.Send(p.buf.Bytes()); err != nil {
		return err
	}
	applog.Debugf("UDP: sent SR packet %d", p.packet.FrameCounter)
	return nil
}

// buildPacket fills the reusable packet from one result.
func (p *Publisher) buildPacket(result *analysis.Result) {
	bands := result.Harmonic

	// Track a decaying peak for normalization; band energies are unbounded.
	var maxBand float64
	for _, v := range bands {
		maxBand = math.Max(maxBand, v)
	}
	p.peakNorm = math.Max(p.peakNorm*peakDecay, maxBand)
	norm := math.Max(p.peakNorm, 1e-6)

	var mean float64
	for _, v := range bands {
		mean += v
	}
	if len(bands) > 0 {
		mean /= float64(len(bands)) * norm
	}
	mean = clamp01(mean)

	// Fast/slow AGC: the ratio in dB maps -6..+12 dB onto 0..1.
	p.fast = fastAlpha*p.fast + (1-fastAlpha)*mean
	p.slow = slowAlpha*p.slow + (1-slowAlpha)*mean
	ratio := p.fast / math.Max(p.slow, 1e-6)
	rdb := 10 * math.Log10(math.Max(ratio, 1e-6))
	v01 := clamp01((rdb + 6) / 18)

	p.packet = srPacket{
		Header:       srHeader,
		SampleRaw:    float32(mean * 255),
		SampleSmth:   float32(v01 * 255),
		FrameCounter: p.frame,
	}
	if rdb > 9 {
		p.packet.SamplePeak = 1
	}
	p.frame++

	// Downmix the normalized bands into 16 averaged segments.
	n := len(bands)
	for i := 0; i < 16; i++ {
		if n == 0 {
			break
		}
		k0 := i * n / 16
		k1 := (i+1)*n/16 - 1
		if k1 < k0 {
			k1 = k0
		}
		var acc float64
		for k := k0; k <= k1; k++ {
			acc += clamp01(bands[k] / norm)
		}
		avg := acc / float64(k1-k0+1)
		p.packet.FFTResult[i] = uint8(math.Round(avg * 255))
	}

	p.packet.ZeroCrossingCount = uint16(math.Round(
		result.ZeroCrossingRate * float64(analysis.HarmonicFFTSize)))
	p.packet.FFTMagnitude = float32(maxBand)
	p.packet.FFTMajorPeak = float32(result.SpectralCentroid)
}

// Close releases the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
