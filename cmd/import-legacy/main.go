// Command import-legacy loads a JSON export of the old gift list, where each
// gift carries a takenBy string or array, into the claims table.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/AlexTLDR/giftregistry/internal/config"
	"github.com/AlexTLDR/giftregistry/internal/database"
	"github.com/AlexTLDR/giftregistry/internal/logger"
)

func main() {
	file := flag.String("file", "gifts.json", "path to the legacy gifts JSON array")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	lg := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := run(context.Background(), cfg, lg, *file); err != nil {
		lg.Error("legacy import failed", "file", *file, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, lg *slog.Logger, file string) (err error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	var gifts []database.LegacyGift
	if err := json.Unmarshal(data, &gifts); err != nil {
		return fmt.Errorf("failed to parse %s: %w", file, err)
	}

	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	if err := db.Migrate(); err != nil {
		return err
	}

	stats, err := db.ImportLegacyGifts(ctx, gifts, cfg.GiftDefaultCapacity)
	lg.Info("legacy import finished",
		"read", len(gifts),
		"imported", stats.Gifts,
		"claims", stats.Claims,
		"skipped", stats.Skipped)
	return err
}
