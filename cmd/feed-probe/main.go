// Command feed-probe fetches one snapshot from a readsb receiver, enriches
// and ranks it the way the dashboard does, and prints the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/unklstewy/adsb-terminal/internal/logging"
	"github.com/unklstewy/adsb-terminal/pkg/adsb"
	"github.com/unklstewy/adsb-terminal/pkg/config"
	"github.com/unklstewy/adsb-terminal/pkg/coordinates"
	"github.com/unklstewy/adsb-terminal/pkg/preferences"
	"github.com/unklstewy/adsb-terminal/pkg/ranking"
	"github.com/unklstewy/adsb-terminal/pkg/refdata"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	feedURL := flag.String("url", "", "Override the feed base URL")
	lat := flag.Float64("lat", preferences.DefaultLatitude, "Reference latitude")
	lon := flag.Float64("lon", preferences.DefaultLongitude, "Reference longitude")
	radius := flag.Float64("radius", preferences.DefaultMaxRadius, "Radius in miles (km with -metric)")
	metric := flag.Bool("metric", false, "Use metric units")
	search := flag.String("search", "", "Filter on callsign, airline or model")
	sortField := flag.String("sort", string(ranking.SortDistance), "Sort field: distance, altitude, speed, callsign, airline")
	sortDir := flag.String("dir", string(ranking.Ascending), "Sort direction: asc or desc")
	limit := flag.Int("limit", 20, "Maximum rows to print (0 = all)")
	asJSON := flag.Bool("json", false, "Print JSON instead of a table")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *feedURL != "" {
		cfg.Feed.BaseURL = *feedURL
	}

	logger, err := logging.New(logging.Options{
		Env:     cfg.Environment,
		Level:   cfg.Logging.Level,
		Console: true,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	field, err := ranking.ParseSortField(*sortField)
	if err != nil {
		log.Fatalf("Invalid -sort: %v", err)
	}
	dir, err := ranking.ParseSortDirection(*sortDir)
	if err != nil {
		log.Fatalf("Invalid -dir: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Preferences live in memory so probing never touches saved settings
	store, err := preferences.Open(ctx, preferences.NewMemoryStorage(), logger.Logger)
	if err != nil {
		log.Fatalf("Failed to open preferences: %v", err)
	}
	if err := store.Update(ctx, preferences.Patch{
		Lat:       lat,
		Lon:       lon,
		MaxRadius: radius,
		UseMetric: metric,
	}); err != nil {
		log.Fatalf("Invalid location or radius: %v", err)
	}

	refs := refdata.LoadProvider(ctx, refdata.NewLoader(logger.Logger), refdata.Sources{
		AircraftModels: cfg.Reference.AircraftModels,
		Airlines:       cfg.Reference.Airlines,
	})
	logger.Info("Reference data loaded",
		zap.Int("aircraft_models", refs.Models().Len()),
		zap.Int("airlines", refs.Airlines().Len()))

	opts := cfg.Feed.ClientOptions()
	opts.Logger = logger.Logger
	client := adsb.NewReadsbClient(cfg.Feed.BaseURL, opts)

	retry := cfg.Feed.RetryPolicy()
	retry.Logger = logger.Logger

	start := time.Now()
	raw, err := adsb.RetryWithBackoffResult(ctx, retry, func() ([]adsb.RawAircraft, error) {
		return client.FetchAircraft(ctx)
	})
	if err != nil {
		logger.Error("Fetch failed", zap.String("url", client.FeedURL()), zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Fetched feed",
		zap.String("url", client.FeedURL()),
		zap.Int("aircraft", len(raw)),
		zap.Duration("elapsed", time.Since(start)))

	prefs := store.Get()
	ranked := ranking.Rank(adsb.NewNormalizer(refs).Normalize(raw), prefs, *search, field, dir)
	if *limit > 0 && len(ranked) > *limit {
		ranked = ranked[:*limit]
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ranked); err != nil {
			log.Fatalf("Failed to encode: %v", err)
		}
		return
	}

	printTable(ranked, prefs.UseMetric)
}

func printTable(ranked []ranking.Ranked, metric bool) {
	fmt.Printf("%-2s %-9s %-22s %-22s %10s %8s %5s %12s\n",
		"", "CALLSIGN", "AIRLINE", "MODEL", "ALT", "SPD", "HDG", "DIST")

	for _, r := range ranked {
		mark := " "
		if r.IsMilitary {
			mark = "M"
		}
		alt := "GND"
		if !r.OnGround {
			alt = fmt.Sprintf("%.0f%s", coordinates.ConvertAltitude(r.Altitude, metric), r.AltitudeTrend().Arrow())
		}
		fmt.Printf("%-2s %-9s %-22.22s %-22.22s %10s %8.0f %5.0f %8.1f %-3s %s\n",
			mark,
			r.Callsign,
			r.Airline,
			r.Model,
			alt,
			coordinates.ConvertSpeed(r.Speed, metric),
			r.Heading,
			coordinates.ConvertDistance(r.Distance, metric),
			coordinates.DistanceUnit(metric),
			coordinates.CardinalDirection(r.Bearing))
	}

	fmt.Printf("\n%d aircraft (altitude %s, speed %s)\n",
		len(ranked), coordinates.AltitudeUnit(metric), coordinates.SpeedUnit(metric))
}
