// Package eventlog appends game events to an append-only table.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/wildguess-backend/internal/adapter/postgres"
	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

const table = "game_events"

// Repo provides event log persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new event log repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Append stores one event. A nil payload is stored as an empty object.
func (r *Repo) Append(ctx context.Context, e domain.GameEvent) error {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", e.Type, err)
	}

	query := postgres.Builder().
		Insert(table).
		Columns("id", "player_id", "session_id", "type", "payload", "created_at").
		Values(e.ID, e.PlayerID, e.SessionID, string(e.Type), raw, e.CreatedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert event: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "game_event", e.ID)
	}
	return nil
}

// ListBySession returns a session's events in the order they happened.
func (r *Repo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.GameEvent, error) {
	query := postgres.Builder().
		Select("id", "player_id", "session_id", "type", "payload", "created_at").
		From(table).
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("created_at", "id").
		Limit(uint64(limit))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list events: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "game_event", sessionID)
	}
	defer rows.Close()

	events := []domain.GameEvent{}
	for rows.Next() {
		var (
			e   domain.GameEvent
			typ string
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.SessionID, &typ, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan game_event: %w", err)
		}
		e.Type = domain.GameEventType(typ)
		if err := json.Unmarshal(raw, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal game_event %s payload: %w", e.ID, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "game_event", sessionID)
	}

	return events, nil
}

// DeleteBefore removes events created before threshold and returns how many
// rows were deleted.
func (r *Repo) DeleteBefore(ctx context.Context, threshold time.Time) (int64, error) {
	sql, args, err := postgres.Builder().
		Delete(table).
		Where(squirrel.Lt{"created_at": threshold}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete events: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.MapError(err, "game_event", threshold)
	}
	return tag.RowsAffected(), nil
}
