// Package playerstate persists per-player string lists (played species,
// pending journal entries) and one-time "seen" flags.
package playerstate

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/wildguess-backend/internal/adapter/postgres"
	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

const (
	listsTable = "player_lists"
	flagsTable = "player_flags"
)

// Repo provides player state persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new player state repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

// List returns the items of one list in insertion order.
func (r *Repo) List(ctx context.Context, playerID uuid.UUID, list domain.PlayerList) ([]string, error) {
	query := postgres.Builder().
		Select("item").
		From(listsTable).
		Where(squirrel.Eq{"player_id": playerID, "list": string(list)}).
		OrderBy("created_at", "item")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "player_list", list)
	}
	defer rows.Close()

	items := []string{}
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("scan player_list item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "player_list", list)
	}

	return items, nil
}

// Append adds item to the list. Appending an existing item is a no-op.
func (r *Repo) Append(ctx context.Context, playerID uuid.UUID, list domain.PlayerList, item string) error {
	query := postgres.Builder().
		Insert(listsTable).
		Columns("player_id", "list", "item").
		Values(playerID, string(list), item).
		Suffix("ON CONFLICT (player_id, list, item) DO NOTHING")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build append query: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "player_list", list)
	}
	return nil
}

// Remove deletes item from the list and reports whether it was present.
func (r *Repo) Remove(ctx context.Context, playerID uuid.UUID, list domain.PlayerList, item string) (bool, error) {
	query := postgres.Builder().
		Delete(listsTable).
		Where(squirrel.Eq{"player_id": playerID, "list": string(list), "item": item})

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("build remove query: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return false, postgres.MapError(err, "player_list", list)
	}
	return tag.RowsAffected() > 0, nil
}

// Clear empties the list.
func (r *Repo) Clear(ctx context.Context, playerID uuid.UUID, list domain.PlayerList) error {
	query := postgres.Builder().
		Delete(listsTable).
		Where(squirrel.Eq{"player_id": playerID, "list": string(list)})

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build clear query: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "player_list", list)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

// Flags returns the names of every flag the player has seen.
func (r *Repo) Flags(ctx context.Context, playerID uuid.UUID) ([]string, error) {
	query := postgres.Builder().
		Select("flag").
		From(flagsTable).
		Where(squirrel.Eq{"player_id": playerID}).
		OrderBy("flag")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build flags query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "player_flag", playerID)
	}
	defer rows.Close()

	flags := []string{}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan player_flag: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "player_flag", playerID)
	}

	return flags, nil
}

// MarkFlag records that the player has seen flag. Idempotent.
func (r *Repo) MarkFlag(ctx context.Context, playerID uuid.UUID, flag string) error {
	query := postgres.Builder().
		Insert(flagsTable).
		Columns("player_id", "flag").
		Values(playerID, flag).
		Suffix("ON CONFLICT (player_id, flag) DO NOTHING")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build mark flag query: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "player_flag", flag)
	}
	return nil
}
