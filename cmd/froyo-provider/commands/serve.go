package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/froyo-provider/pkg/config"
	"github.com/openfroyo/froyo-provider/pkg/server"
	"github.com/openfroyo/froyo-provider/pkg/stores"
	"github.com/openfroyo/froyo-provider/pkg/telemetry"
	"github.com/openfroyo/froyo-provider/providers/kv"
)

func newServeCommand(version string) *cobra.Command {
	var (
		listenAddress string
		statePath     string
	)

	cmd := &cobra.Command{
		Use:   "serve [engine-address]",
		Short: "Serve the provider RPC protocol",
		Long: `Start the provider host. The host binds a TCP port, writes the port
number to stdout as the first line, and serves provider requests until
interrupted.

The optional engine-address argument is the address of the engine that
launched the host, as passed by plugin launchers.`,
		Example: `  # Serve with defaults on an ephemeral port
  froyo-provider serve

  # Serve with a config file
  froyo-provider serve --config host.yaml

  # Serve as an engine-launched plugin
  froyo-provider serve 127.0.0.1:41221`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engineAddress := ""
			if len(args) > 0 {
				engineAddress = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listenAddress != "" {
				cfg.Listen.Address = listenAddress
			}
			if statePath != "" {
				cfg.State.Path = statePath
			}
			if cfg.Plugin.Version == "" || cfg.Plugin.Version == "0.0.0" {
				cfg.Plugin.Version = version
			}

			return serve(cmd.Context(), cfg, engineAddress)
		},
	}

	cmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&statePath, "state", "", "checkpoint database path (overrides config)")

	return cmd
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func serve(ctx context.Context, cfg *config.Config, engineAddress string) error {
	tcfg := cfg.TelemetryConfig()
	if verbose {
		tcfg.Logging.Level = "debug"
	}
	tel, err := telemetry.NewTelemetry(tcfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	log := tel.Logger
	if tcfg.Metrics.Enabled {
		if err := tel.StartMetricsServer(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.State.Path})
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate checkpoint store: %w", err)
	}

	prov := kv.NewProvider(store, cfg.Plugin.Version, log)
	servicer := server.NewServicer(server.Options{
		Provider:      prov,
		Name:          cfg.Plugin.Name,
		Version:       cfg.Plugin.Version,
		EngineAddress: engineAddress,
		Logger:        log,
		Telemetry:     tel,
	})

	srv := server.NewServer(servicer, log)
	if err := srv.Listen(cfg.Listen.Address); err != nil {
		return err
	}

	// The engine reads the bound port from stdout before connecting.
	if err := srv.Announce(os.Stdout); err != nil {
		return err
	}

	log.WithProvider(cfg.Plugin.Name, cfg.Plugin.Version).
		WithField("port", srv.Port()).
		Info("provider host listening")

	return srv.Serve(tel.WithContext(ctx))
}
