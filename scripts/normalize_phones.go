package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/AlexTLDR/giftregistry/internal/config"
	"github.com/AlexTLDR/giftregistry/internal/database"
	"github.com/AlexTLDR/giftregistry/internal/utils"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	guests, err := db.ListGuestPhones(ctx)
	if err != nil {
		log.Fatalf("Failed to query guests: %v", err)
	}

	fmt.Printf("Found %d guests with a phone number (default region %s)\n", len(guests), cfg.DefaultPhoneRegion)

	// Normalize each phone number
	updated := 0
	failed := 0
	for _, g := range guests {
		normalized, err := utils.NormalizePhoneNumber(g.Phone, cfg.DefaultPhoneRegion)
		if err != nil {
			log.Printf("Failed to normalize phone %q (guest %s): %v", g.Phone, g.ID, err)
			failed++
			continue
		}

		// Only update if the phone number changed
		if normalized != g.Phone {
			if err := db.UpdateGuestPhone(ctx, g.ID, normalized); err != nil {
				log.Printf("Failed to update phone for guest %s: %v", g.ID, err)
				failed++
				continue
			}
			fmt.Printf("Updated %s: %q -> %q\n", g.ID, g.Phone, normalized)
			updated++
		}
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total: %d\n", len(guests))
	fmt.Printf("  Updated: %d\n", updated)
	fmt.Printf("  Failed: %d\n", failed)
	fmt.Printf("  Unchanged: %d\n", len(guests)-updated-failed)
}
