package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/unklstewy/adsb-terminal/internal/logging"
	"github.com/unklstewy/adsb-terminal/pkg/config"
	"github.com/unklstewy/adsb-terminal/pkg/preferences"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	reset := flag.Bool("reset", false, "Restore default preferences and exit")
	show := flag.Bool("show", false, "Print the stored preferences and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
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

	ctx := context.Background()

	storage, closeStorage, err := preferences.OpenStorage(ctx, cfg.Storage, logger.Logger)
	if err != nil {
		log.Fatalf("Failed to open preferences storage: %v", err)
	}
	defer closeStorage()

	store, err := preferences.Open(ctx, storage, logger.Logger)
	if err != nil {
		log.Fatalf("Failed to open preferences: %v", err)
	}

	switch {
	case *reset:
		if err := store.Reset(ctx); err != nil {
			log.Fatalf("Failed to reset preferences: %v", err)
		}
		fmt.Println("Preferences reset to defaults")
		return
	case *show:
		printPreferences(store.Get())
		return
	}

	if err := newEditor(ctx, store, logger.Logger).Run(); err != nil {
		logger.Error("Editor exited with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printPreferences(p preferences.Preferences) {
	unit := "mi"
	if p.UseMetric {
		unit = "km"
	}
	fmt.Println("Preferences:")
	fmt.Printf("  Location:  %.4f, %.4f\n", p.Location.Lat, p.Location.Lon)
	fmt.Printf("  Radius:    %g %s\n", p.MaxRadius, unit)
	fmt.Printf("  Metric:    %v\n", p.UseMetric)
	fmt.Printf("  Favorites: %v\n", p.FavoriteCallsigns.Sorted())
	fmt.Printf("  Palette:   %s\n", p.Theme.Palette)
	fmt.Printf("  Effects:   scanlines=%v glow=%v flicker=%v blink=%v\n",
		p.Theme.Scanlines, p.Theme.TextGlow, p.Theme.ScreenFlicker, p.Theme.CursorBlink)
}
