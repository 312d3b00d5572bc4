package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/guidowb/rebel/internal/config"
	"github.com/guidowb/rebel/internal/provision"
	"github.com/guidowb/rebel/internal/telemetry"
)

var (
	version = "0.1.0"

	configPath  string
	flagRegion  string
	flagProfile string
	debug       bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "rebel",
		Short: "Provision, inspect and tear down AWS environments",
		Long: `Rebel drives CloudFormation stacks through their lifecycle and
cleans up the network resources they leave behind.

Resources are discovered live from the AWS APIs; nothing is stored
between runs.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

// Execute runs the root command
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err, echoing the failing request of a transport error.
func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var transport *provision.TransportError
	if errors.As(err, &transport) {
		fmt.Fprintf(w, "Failed request: %s\n", transport.Request)
		if transport.StatusCode > 0 {
			fmt.Fprintf(w, "Status: %d\n", transport.StatusCode)
		}
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Rebel {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.rebel.toml)")
	rootCmd.PersistentFlags().StringVarP(&flagRegion, "region", "r", "", "AWS region (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "AWS shared config profile (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func setup(cmd *cobra.Command, _ []string) error {
	log.Logger = telemetry.WithTraceHook(log.Output(zerolog.ConsoleWriter{Out: os.Stderr}))

	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(loaded)

	level, err := zerolog.ParseLevel(loaded.Log.Level)
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	cfg = loaded
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	path, err := config.DefaultPath()
	if err != nil {
		log.Debug().Err(err).Msg("no default config file")
		return config.Default(), nil
	}
	return config.LoadOptional(path)
}

func applyOverrides(c *config.Config) {
	if flagRegion != "" {
		c.AWS.Region = flagRegion
	}
	if c.AWS.Region == "" {
		c.AWS.Region = firstNonEmpty(os.Getenv("AWS_REGION"), os.Getenv("AWS_DEFAULT_REGION"))
	}
	if flagProfile != "" {
		c.AWS.Profile = flagProfile
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
