package main

import (
	"database/sql"
	"fmt"
	"net"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tokenatlas/tokenatlas/pkg/cache"
	"github.com/tokenatlas/tokenatlas/pkg/server"
	"github.com/tokenatlas/tokenatlas/pkg/services/analytics"
	"github.com/tokenatlas/tokenatlas/pkg/services/config"
	"github.com/tokenatlas/tokenatlas/pkg/services/filters"
	"github.com/tokenatlas/tokenatlas/pkg/services/ingest"
	"github.com/tokenatlas/tokenatlas/pkg/services/recommend"
	"github.com/tokenatlas/tokenatlas/pkg/store/reference"
	"github.com/tokenatlas/tokenatlas/pkg/store/usagelog"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the Token Atlas analytics server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the config file (optional, env vars apply either way)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file loaded: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(cmd.Context()); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	eventStore := usagelog.NewStore(db)
	referenceStore := reference.NewStore(db)

	queryCache := cache.New(cache.Settings{
		TTLWindow:     time.Duration(cfg.Cache.TTLWindowSeconds) * time.Second,
		Capacity:      cfg.Cache.Capacity,
		SoftWatermark: cfg.Cache.SoftWatermark,
		HardWatermark: cfg.Cache.HardWatermark,
	})

	controller := analytics.NewController(analytics.Dependencies{
		Normalizer:  filters.NewNormalizer(filters.WithExtentProber(eventStore)),
		Events:      eventStore,
		Recommender: recommend.NewEngine(referenceStore),
		Cache:       queryCache,
		PageSize:    cfg.Store.PageSize,
	})

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	api := server.NewWebAPI(server.Config{
		Addr: addr,
		Dependencies: server.Dependencies{
			Analytics: controller,
			Recorder:  ingest.NewRecorder(referenceStore, eventStore),
			Logger:    logger,
		},
	})

	return api.Start()
}
