// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"os"
	"time"

	"mira/internal/config"
	applog "mira/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder writes the raw capture stream to a WAV file while analysis runs.
// Write is called from the capture callback, so the conversion buffer is
// preallocated and reused.
type Recorder struct {
	file     *os.File
	encoder  *wav.Encoder
	buf      *audio.IntBuffer
	scale    float64
	channels int
}

// NewRecorder creates the output file and WAV encoder. An empty output file
// name yields a timestamped one in the working directory.
func NewRecorder(cfg *config.RecordingConfig, sampleRate, channels int) (*Recorder, error) {
	filename := cfg.OutputFile
	if filename == "" {
		filename = "capture-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	r := &Recorder{
		file:     file,
		encoder:  wav.NewEncoder(file, sampleRate, cfg.BitDepth, channels, 1),
		scale:    float64(int(1) << (cfg.BitDepth - 1)),
		channels: channels,
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: cfg.BitDepth,
		},
	}
	applog.Infof("Capture: recording to %s (%d-bit, %d ch)", filename, cfg.BitDepth, channels)
	return r, nil
}

// Write appends one chunk pair, interleaving and quantizing to the
// configured bit depth.
func (r *Recorder) Write(left, right []float32) error {
	n := min(len(left), len(right))
	want := n * r.channels
	if cap(r.buf.Data) < want {
		r.buf.Data = make([]int, want)
	}
	r.buf.Data = r.buf.Data[:want]

	limit := r.scale - 1
	for i := range n {
		r.buf.Data[i*r.channels] = quantize(float64(left[i]), r.scale, limit)
		if r.channels > 1 {
			r.buf.Data[i*r.channels+1] = quantize(float64(right[i]), r.scale, limit)
		}
	}
	return r.encoder.Write(r.buf)
}

// Stop finalizes the WAV header and closes the file. Idempotent.
func (r *Recorder) Stop() error {
	if r.encoder != nil {
		if err := r.encoder.Close(); err != nil {
			return err
		}
		r.encoder = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return err
		}
		r.file = nil
	}
	return nil
}

func quantize(sample, scale, limit float64) int {
	v := sample * scale
	if v > limit {
		v = limit
	}
	if v < -scale {
		v = -scale
	}
	return int(v)
}
