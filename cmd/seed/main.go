// seed inserts development sample accounts for local testing and prints the
// encoded QR payload for each so a client can exercise the scan flow.
// Idempotent: skips accounts whose external id already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	accountdomain "mobile-workforce/backend/internal/account/domain"
	"mobile-workforce/backend/internal/account/repository"
	"mobile-workforce/backend/internal/config"
	"mobile-workforce/backend/internal/db"
	regdomain "mobile-workforce/backend/internal/registration/domain"
)

var demoPayloads = []regdomain.QRPayload{
	{ExternalID: "E1001", Username: "jdoe", Email: "jdoe@example.com", Phone: "+15550001001"},
	{ExternalID: "E1002", Username: "asmith", Email: "asmith@example.com", Phone: "+15550001002"},
	{ExternalID: "E1003", Username: "bchan", Email: "bchan@example.com", Phone: "+15550001003"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	accounts := repository.NewPostgresRepository(database)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, p := range demoPayloads {
		existing, err := accounts.GetByExternalID(ctx, p.ExternalID)
		if err != nil {
			log.Fatalf("lookup %s: %v", p.ExternalID, err)
		}
		if existing == nil {
			a := &accountdomain.Account{
				ID:         uuid.New().String(),
				ExternalID: p.ExternalID,
				Username:   p.Username,
				Email:      p.Email,
				Name:       p.Username,
				Phone:      p.Phone,
				IsActive:   true,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := accounts.Create(ctx, a); err != nil {
				log.Fatalf("create %s: %v", p.ExternalID, err)
			}
			log.Printf("seeded account %s (%s)", p.ExternalID, p.Email)
		} else {
			log.Printf("account %s already exists, skipping", p.ExternalID)
		}

		encoded, err := p.Encode()
		if err != nil {
			log.Fatalf("encode %s: %v", p.ExternalID, err)
		}
		fmt.Printf("%s\t%s\n", p.ExternalID, encoded)
	}
}
