package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"eve-data-hub/internal/api"
	"eve-data-hub/internal/config"
	"eve-data-hub/internal/db"
	"eve-data-hub/internal/esi"
	"eve-data-hub/internal/history"
	"eve-data-hub/internal/logger"
	"eve-data-hub/internal/region"
	"eve-data-hub/internal/staticdata"
	"eve-data-hub/internal/viewer"
)

var version = "dev"

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Config", fmt.Sprintf("Invalid configuration: %v", err))
		os.Exit(1)
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", filepath.Join("data", "hub.db"), "SQLite database path")
	flag.Parse()

	logger.Banner(version)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to create data directory: %v", err))
		os.Exit(1)
	}
	database, err := db.Open(*dbPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	esiClient := esi.NewClient(cfg.ESIBaseURL)
	srv := api.NewServer(cfg, esiClient)

	// Load static data in the background; the server answers 503 on data
	// routes until the viewer core is wired. Neither resource is optional,
	// so a load failure closes the store and takes the process down.
	go func() {
		if err := loadCore(cfg, esiClient, database, srv); err != nil {
			logger.Error("StaticData", fmt.Sprintf("Startup load failed: %v", err))
			database.Close()
			os.Exit(1)
		}
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	logger.Server(addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		database.Close()
		os.Exit(1)
	}
}

// loadCore fetches the static resources, builds the viewer core, restores
// the previous session, and attaches everything to the server.
func loadCore(cfg *config.Config, esiClient *esi.Client, database *db.DB, srv *api.Server) error {
	ctx := context.Background()
	loader := staticdata.NewLoader(cfg.DataBaseURL)

	tree, err := loader.LoadLocations(ctx, cfg.LocationsFile)
	if err != nil {
		return fmt.Errorf("locations: %w", err)
	}
	taxonomy, err := loader.LoadTaxonomy(ctx, cfg.MarketFile)
	if err != nil {
		return fmt.Errorf("taxonomy: %w", err)
	}

	regionIndex, stations := staticdata.BuildLocationIndex(tree)
	flatIndex := staticdata.FlattenItems(taxonomy)
	logger.Section("Static data")
	logger.Stats("Items indexed", len(flatIndex))
	logger.Stats("Regions", len(regionIndex.ByName))
	logger.Stats("Stations", len(stations))

	resolver := region.NewResolver(regionIndex, cfg.DefaultRegionID, database)
	orders := esi.NewOrderService(esiClient, resolver)
	historySvc := history.NewService(esiClient, resolver, cfg.HistoryTTL, cfg.HistoryDays)

	state := viewer.NewState()
	ctrl := viewer.NewController(state, flatIndex, taxonomy, resolver, orders, historySvc, database)
	ctrl.SetSearchLimits(cfg.SearchMinLength, cfg.SearchMaxResults)
	ctrl.SetSinks(viewer.ConsoleSink{}, viewer.ConsoleSink{})

	resolver.Restore()
	ctrl.RestoreSession(ctx)
	logger.Info("Region", "Selected "+resolver.Summary())

	srv.SetCore(ctrl, state, resolver, orders, historySvc)
	logger.Success("Core", "Viewer ready")
	return nil
}
