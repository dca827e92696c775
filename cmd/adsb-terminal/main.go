package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/unklstewy/adsb-terminal/internal/api"
	"github.com/unklstewy/adsb-terminal/internal/logging"
	"github.com/unklstewy/adsb-terminal/internal/metrics"
	"github.com/unklstewy/adsb-terminal/pkg/adsb"
	"github.com/unklstewy/adsb-terminal/pkg/config"
	"github.com/unklstewy/adsb-terminal/pkg/preferences"
	"github.com/unklstewy/adsb-terminal/pkg/refdata"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Env:   cfg.Environment,
		Level: cfg.Logging.Level,
		Dir:   cfg.Logging.Dir,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Info("Starting adsb-terminal",
		zap.String("environment", cfg.Environment),
		zap.String("feed", cfg.Feed.BaseURL),
		zap.String("storage", cfg.Storage.Driver))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, closeStorage, err := preferences.OpenStorage(ctx, cfg.Storage, logger.Logger)
	if err != nil {
		logger.Error("Failed to open preferences storage", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeStorage()

	store, err := preferences.Open(ctx, storage, logger.Logger)
	if err != nil {
		logger.Error("Failed to open preferences", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reg := metrics.NewRegistry()
	tracker := adsb.NewTracker()

	opts := cfg.Feed.ClientOptions()
	opts.Logger = logger.Logger
	client := adsb.NewReadsbClient(cfg.Feed.BaseURL, opts)

	pollerCfg := cfg.Feed.PollerConfig()
	pollerCfg.Retry.Logger = logger.Logger

	f := &feed{
		ctx:    ctx,
		source: client,
		loader: refdata.NewLoader(logger.Logger),
		sources: refdata.Sources{
			AircraftModels: cfg.Reference.AircraftModels,
			Airlines:       cfg.Reference.Airlines,
		},
		poller:  pollerCfg,
		tracker: tracker,
		metrics: reg,
		logger:  logger.Logger,
	}

	if cfg.Server.Enabled {
		srv := api.New(api.Options{
			Snapshots:   tracker,
			Preferences: store,
			Metrics:     reg,
			Logger:      logger.Logger,
			Checks:      healthChecks(cfg.Storage.Driver, storage),
		})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr()); err != nil {
				logger.Error("Status server failed", zap.Error(err))
			}
		}()
	}

	p := tea.NewProgram(newModel(ctx, store, f), tea.WithAltScreen())
	f.send = p.Send

	_, runErr := p.Run()

	// The program has exited, so Send no longer blocks the sink.
	f.stop()
	cancel()

	if runErr != nil {
		logger.Error("Dashboard exited with error", zap.Error(runErr))
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
	logger.Info("Stopped")
}

// healthChecks exposes connection pings for networked backends.
func healthChecks(driver string, storage preferences.Storage) map[string]api.HealthCheck {
	pinger, ok := storage.(preferences.Pinger)
	if !ok {
		return nil
	}
	return map[string]api.HealthCheck{driver: pinger.Ping}
}
