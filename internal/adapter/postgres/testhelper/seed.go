package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

// SeedOutcome inserts a resolved round for playerID and returns it.
func SeedOutcome(t *testing.T, pool *pgxpool.Pool, playerID uuid.UUID, result domain.RoundResult, score int) domain.RoundOutcome {
	t.Helper()

	o := domain.RoundOutcome{
		ID:         uuid.New(),
		PlayerID:   playerID,
		SessionID:  uuid.New(),
		TaxonID:    42069,
		Species:    "Red Fox",
		Region:     "Europe",
		Result:     result,
		Score:      score,
		ClueIndex:  5 - max(score, 1),
		ResolvedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO round_outcomes (id, player_id, session_id, taxon_id, species, region, result, score, clue_index, offline, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.PlayerID, o.SessionID, o.TaxonID, o.Species, o.Region, string(o.Result), o.Score, o.ClueIndex, o.Offline, o.ResolvedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: seed outcome: %v", err)
	}
	return o
}
