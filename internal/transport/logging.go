// SPDX-License-Identifier: MIT
package transport

import (
	"mira/internal/analysis"
	applog "mira/internal/log"
)

// LoggingTransport implements Transport by logging a one-line summary of
// every Nth result at debug level. Useful when bringing up a device without
// a visualizer attached.
type LoggingTransport struct {
	Every uint64 // log every Nth hop; 0 logs every hop
}

func NewLoggingTransport(every uint64) *LoggingTransport {
	applog.Infof("Transport: using LoggingTransport (every %d hops)", every)
	return &LoggingTransport{Every: every}
}

func (lt *LoggingTransport) Send(result *analysis.Result) error {
	if lt.Every > 1 && result.Hop%lt.Every != 0 {
		return nil
	}
	applog.Debugf("hop=%d onset=%v flux=%.3f centroid=%.0fHz period=%.0f conf=%.2f",
		result.Hop, result.Onset, result.OnsetStrength[0],
		result.SpectralCentroid, result.BeatPeriod, result.BeatConfidence)
	return nil
}

func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
