// Package score stores resolved rounds and aggregates them into player stats.
package score

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/wildguess-backend/internal/adapter/postgres"
	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

const table = "round_outcomes"

var outcomeColumns = []string{
	"id", "player_id", "session_id", "taxon_id", "species", "region",
	"result", "score", "clue_index", "offline", "resolved_at",
}

// Repo provides round outcome persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new score repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Insert stores one resolved round.
func (r *Repo) Insert(ctx context.Context, o domain.RoundOutcome) error {
	query := postgres.Builder().
		Insert(table).
		Columns(outcomeColumns...).
		Values(o.ID, o.PlayerID, o.SessionID, o.TaxonID, o.Species, o.Region,
			string(o.Result), o.Score, o.ClueIndex, o.Offline, o.ResolvedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert outcome: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "round_outcome", o.ID)
	}
	return nil
}

// Stats aggregates every round the player finished. A player with no rounds
// gets zero stats in the hobbyist tier.
func (r *Repo) Stats(ctx context.Context, playerID uuid.UUID) (domain.PlayerStats, error) {
	query := postgres.Builder().
		Select(
			"count(*)",
			"count(*) FILTER (WHERE result = 'WIN')",
			"coalesce(sum(score), 0)",
		).
		From(table).
		Where(squirrel.Eq{"player_id": playerID})

	sql, args, err := query.ToSql()
	if err != nil {
		return domain.PlayerStats{}, fmt.Errorf("build stats query: %w", err)
	}

	var games, wins, total int64
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&games, &wins, &total); err != nil {
		return domain.PlayerStats{}, postgres.MapError(err, "player_stats", playerID)
	}

	stats := domain.PlayerStats{
		Games:      int(games),
		Wins:       int(wins),
		TotalScore: int(total),
		Tier:       domain.TierForGames(int(games)),
	}
	if games > 0 {
		stats.AverageScore = float64(total) / float64(games)
	}
	return stats, nil
}

// Recent returns the player's latest outcomes, newest first.
func (r *Repo) Recent(ctx context.Context, playerID uuid.UUID, limit int) ([]domain.RoundOutcome, error) {
	query := postgres.Builder().
		Select(outcomeColumns...).
		From(table).
		Where(squirrel.Eq{"player_id": playerID}).
		OrderBy("resolved_at DESC").
		Limit(uint64(limit))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "round_outcome", playerID)
	}
	defer rows.Close()

	out := []domain.RoundOutcome{}
	for rows.Next() {
		var (
			o      domain.RoundOutcome
			result string
		)
		if err := rows.Scan(&o.ID, &o.PlayerID, &o.SessionID, &o.TaxonID, &o.Species, &o.Region,
			&result, &o.Score, &o.ClueIndex, &o.Offline, &o.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan round_outcome: %w", err)
		}
		o.Result = domain.RoundResult(result)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "round_outcome", playerID)
	}

	return out, nil
}
