// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"mira/internal/config"
	"mira/pkg/build"

	"github.com/spf13/cobra"
)

// Options is the outcome of argument parsing: the effective configuration
// plus the one-off command to run instead of the engine, if any.
type Options struct {
	Config  *config.Config
	Command string // "" runs the engine; "list" and "devices" are one-offs
}

// ParseArgs builds the effective configuration from the YAML config file and
// command line flags. Flags win over the file; the file wins over defaults.
func ParseArgs() (*Options, error) {
	buildInfo := build.GetBuildFlags()
	opts := &Options{}

	var (
		configPath  string
		deviceID    int
		sampleRate  int
		chunkFrames int
		record      bool
		outputFile  string
		udpTarget   string
		wsPort      string
		verbose     bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Streaming multi-resolution music analysis",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Only apply flags the user actually set.
			flags := cmd.Flags()
			if flags.Changed("device") {
				cfg.Audio.InputDevice = deviceID
			}
			if flags.Changed("sample-rate") {
				cfg.Audio.SampleRate = sampleRate
			}
			if flags.Changed("chunk-frames") {
				cfg.Audio.ChunkFrames = chunkFrames
			}
			if flags.Changed("record") {
				cfg.Recording.Enabled = record
			}
			if flags.Changed("output") {
				cfg.Recording.OutputFile = outputFile
			}
			if flags.Changed("udp-target") {
				cfg.Transport.UDPEnabled = true
				cfg.Transport.UDPTargetAddress = udpTarget
			}
			if flags.Changed("ws-port") {
				cfg.Transport.WSEnabled = true
				cfg.Transport.WSPort = wsPort
			}
			if verbose {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Browse audio devices interactively",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "devices"
		},
	}
	rootCmd.AddCommand(devicesCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", config.MinDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&sampleRate, "sample-rate", "s", 48000,
		"Requested sample rate in Hz (the device's rate wins)")
	rootCmd.PersistentFlags().IntVarP(&chunkFrames, "chunk-frames", "b", 512,
		"Capture chunk size in frames")
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record the raw capture stream to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "",
		"Recording file name. Default is capture-DD-MM-YYYY-HHMMSS.wav")
	rootCmd.PersistentFlags().StringVar(&udpTarget, "udp-target", "",
		"Enable UDP SR packets to this host:port")
	rootCmd.PersistentFlags().StringVar(&wsPort, "ws-port", "",
		"Enable the websocket result stream on this port")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	// One-off subcommands skip the root RunE; give them defaults.
	if opts.Config == nil {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		opts.Config = cfg
	}

	return opts, nil
}
