package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dokzlo13/huefri/internal/app"
	"github.com/dokzlo13/huefri/internal/config"
	"github.com/dokzlo13/huefri/internal/output"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

type cliOptions struct {
	ConfigPath string
	JSON       bool
	NoColor    bool
}

func main() {
	opts := &cliOptions{}
	root := newRootCmd(opts)

	if err := root.Execute(); err != nil {
		out := output.New(output.Options{NoColor: opts.NoColor})
		out.Error("Error: " + err.Error())
		if errors.Is(err, config.ErrConfig) {
			fmt.Fprint(os.Stderr, config.UsageTemplate)
		}
		os.Exit(exitFailure)
	}
	os.Exit(exitSuccess)
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "huefri",
		Short:         "Keep Hue and Tradfri lights in sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "Path to configuration file")
	root.PersistentFlags().BoolVar(&opts.JSON, "json", false, "Print machine-readable output")
	root.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the sync daemon (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDaemon(opts)
			},
		},
		newLightsCmd(opts),
		newIdentifyCmd(opts),
		newColorCmd(opts),
		newBrightnessCmd(opts),
	)
	return root
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig(opts *cliOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	colors := term.IsTerminal(int(os.Stderr.Fd()))
	if cfg.Log.Colors != nil {
		colors = *cfg.Log.Colors
	}
	if opts.NoColor {
		colors = false
	}
	setupLogging(cfg.Log.Level, cfg.Log.JSON, colors)
	return cfg, nil
}

func runDaemon(opts *cliOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log.Info().Str("config", opts.ConfigPath).Msg("Starting huefri")

	// Create application
	application, err := app.New(cfg)
	if err != nil {
		return err
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	// Start the application
	if err := application.Start(ctx); err != nil {
		application.Stop()
		return err
	}

	// Wait for shutdown
	application.Wait()

	// Graceful shutdown
	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	log.Info().Msg("Stopped")
	return nil
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
