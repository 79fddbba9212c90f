package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relaypoint/gateway/pkg/config"
	"relaypoint/gateway/pkg/gateway"
	"relaypoint/gateway/pkg/telemetry/logging"
)

var runFlags struct {
	port     int
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the gateway: load configuration, probe every provider's
capabilities, then serve until interrupted.

Configuration comes from an optional YAML file overlaid with
environment entries (PROVIDER_<ID>_URL, PROVIDER_<ID>_KEY,
ALIAS_<NAME>, ALIAS_<NAME>_FALLBACK, RELAYPOINT_PORT).

Examples:
  # Environment only
  relaypoint run

  # With a config file
  relaypoint run --config /etc/relaypoint/relaypoint.yaml

  # Validate configuration without starting
  relaypoint run --dry-run`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runFlags.port, "port", "p", 0, "override listen port")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runGateway(cmd *cobra.Command, args []string) error {
	environ := os.Environ()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	config.ApplyEnviron(cfg, environ)

	if runFlags.port != 0 {
		cfg.Server.Port = runFlags.port
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Printf("configuration valid: %d providers, %d aliases\n",
			len(cfg.Providers), len(cfg.Aliases))
		return nil
	}

	g, err := gateway.New(gateway.Options{
		Config:     cfg,
		ConfigPath: cfgFile,
		Environ:    environ,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := g.Start(ctx); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := g.Stop(context.Background()); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	return g.Serve()
}
