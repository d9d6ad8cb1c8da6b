package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)

	playerID := uuid.New()
	seeded := SeedOutcome(t, pool, playerID, domain.RoundResultWin, 3)

	var species string
	err := pool.QueryRow(context.Background(),
		`SELECT species FROM round_outcomes WHERE id = $1`, seeded.ID,
	).Scan(&species)
	if err != nil {
		t.Fatalf("expected outcome in DB, got error: %v", err)
	}
	if species != seeded.Species {
		t.Fatalf("expected species %q, got %q", seeded.Species, species)
	}
}
