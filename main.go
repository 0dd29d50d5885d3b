// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"os/signal"
	"syscall"

	"mira/cmd"
	"mira/internal/analysis"
	"mira/internal/capture"
	"mira/internal/config"
	applog "mira/internal/log"
	"mira/internal/snapshot"
	"mira/internal/transport"
	"mira/internal/transport/udp"
	"mira/internal/tui"
	"mira/pkg/build"
)

// main runs in three phases:
//
//  1. Startup (cold path): build info, PortAudio, argument parsing, one-off
//     commands.
//  2. Concurrent (hot path): analysis engine goroutine, capture stream,
//     optional recording.
//  3. Shutdown (cold path): signal-driven teardown in reverse order.
func main() {
	// ==================== STARTUP PHASE ====================

	if err := build.Initialize(); err != nil {
		applog.Warnf("Build info unavailable: %v", err)
	}

	if err := capture.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer capture.Terminate()

	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	cfg := opts.Config

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	switch opts.Command {
	case "list":
		if err := capture.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	case "devices":
		if err := tui.RunDeviceBrowser(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// ==================== CONCURRENT PHASE ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	sinks, err := buildTransports(cfg)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	engine := analysis.NewEngine(cfg.Audio.SampleRate, paramsFromConfig(&cfg.Analysis),
		func(result *analysis.Result) {
			if err := sinks.Send(result); err != nil {
				applog.Warnf("Transport: %v", err)
			}
		})
	engine.Start()

	stream, err := capture.New(&cfg.Audio, engine)
	if err != nil {
		engine.RequestStop()
		applog.Fatalf("%v", err)
	}
	if err := stream.Start(); err != nil {
		engine.RequestStop()
		applog.Fatalf("%v", err)
	}

	if cfg.Recording.Enabled {
		if err := stream.StartRecording(&cfg.Recording); err != nil {
			applog.Errorf("Recording disabled: %v", err)
		}
	}

	<-done

	// ==================== SHUTDOWN PHASE ====================

	if err := stream.Stop(); err != nil {
		applog.Errorf("Capture shutdown: %v", err)
	}
	engine.RequestStop()
	if err := sinks.Close(); err != nil {
		applog.Errorf("Transport shutdown: %v", err)
	}
}

// buildTransports assembles the result fanout from the configuration: a
// debug logger and a snapshot history always, websocket and UDP when enabled.
func buildTransports(cfg *config.Config) (transport.Fanout, error) {
	sinks := transport.Fanout{
		transport.NewLoggingTransport(180),
		snapshot.NewManager(cfg.Snapshot.BufferSeconds),
	}

	if cfg.Transport.WSEnabled {
		sinks = append(sinks, transport.NewWebSocketTransport(cfg.Transport.WSPort))
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		publisher, err := udp.NewPublisher(sender, cfg.Transport.UDPSendInterval)
		if err != nil {
			sender.Close()
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, publisher)
	}

	return sinks, nil
}

func paramsFromConfig(a *config.AnalysisConfig) analysis.Params {
	return analysis.Params{
		FluxThreshold:  a.FluxThreshold,
		OnsetCooldown:  a.OnsetCooldown,
		BeatHistoryLen: a.BeatHistoryLen,
		LagMin:         a.LagMin,
		LagMax:         a.LagMax,
		ConfidenceNorm: a.ConfidenceNorm,
		RolloffFrac:    a.RolloffFrac,
	}
}
