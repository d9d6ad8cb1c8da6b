// Package player owns per-player persisted state: played history, the
// pending journal queue, onboarding flags and score statistics.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

const (
	maxFlagLength     = 64
	defaultRecentSize = 20
	maxRecentSize     = 100
)

type listStore interface {
	List(ctx context.Context, playerID uuid.UUID, list domain.PlayerList) ([]string, error)
	Append(ctx context.Context, playerID uuid.UUID, list domain.PlayerList, item string) error
	Remove(ctx context.Context, playerID uuid.UUID, list domain.PlayerList, item string) (bool, error)
	Clear(ctx context.Context, playerID uuid.UUID, list domain.PlayerList) error
}

type flagStore interface {
	Flags(ctx context.Context, playerID uuid.UUID) ([]string, error)
	MarkFlag(ctx context.Context, playerID uuid.UUID, flag string) error
}

type scoreStore interface {
	Stats(ctx context.Context, playerID uuid.UUID) (domain.PlayerStats, error)
	Recent(ctx context.Context, playerID uuid.UUID, limit int) ([]domain.RoundOutcome, error)
}

// Service implements player state operations.
type Service struct {
	log    *slog.Logger
	lists  listStore
	flags  flagStore
	scores scoreStore
}

// NewService creates a new player service.
func NewService(logger *slog.Logger, lists listStore, flags flagStore, scores scoreStore) *Service {
	return &Service{
		log:    logger.With("service", "player"),
		lists:  lists,
		flags:  flags,
		scores: scores,
	}
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// History loads the player's played species into a write-through set.
func (s *Service) History(ctx context.Context, playerID uuid.UUID) (*History, error) {
	names, err := s.lists.List(ctx, playerID, domain.PlayerListPlayed)
	if err != nil {
		return nil, fmt.Errorf("load played history: %w", err)
	}

	h := &History{
		log:      s.log,
		store:    s.lists,
		playerID: playerID,
		names:    make(map[string]struct{}, len(names)),
	}
	for _, n := range names {
		h.names[n] = struct{}{}
	}
	return h, nil
}

// ResetHistory forgets every played species.
func (s *Service) ResetHistory(ctx context.Context, playerID uuid.UUID) error {
	if err := s.lists.Clear(ctx, playerID, domain.PlayerListPlayed); err != nil {
		return fmt.Errorf("reset played history: %w", err)
	}
	s.log.InfoContext(ctx, "played history reset", slog.String("player_id", playerID.String()))
	return nil
}

// ---------------------------------------------------------------------------
// Journal
// ---------------------------------------------------------------------------

// PendingJournal returns species won but not yet confirmed in the journal.
func (s *Service) PendingJournal(ctx context.Context, playerID uuid.UUID) ([]string, error) {
	items, err := s.lists.List(ctx, playerID, domain.PlayerListJournalPending)
	if err != nil {
		return nil, fmt.Errorf("list pending journal: %w", err)
	}
	return items, nil
}

// QueueJournal adds a species to the pending journal queue.
func (s *Service) QueueJournal(ctx context.Context, playerID uuid.UUID, species string) error {
	if err := s.lists.Append(ctx, playerID, domain.PlayerListJournalPending, species); err != nil {
		return fmt.Errorf("queue journal entry: %w", err)
	}
	return nil
}

// ConfirmJournal removes a species from the pending queue. Returns
// domain.ErrNotFound when it was not queued.
func (s *Service) ConfirmJournal(ctx context.Context, playerID uuid.UUID, species string) error {
	removed, err := s.lists.Remove(ctx, playerID, domain.PlayerListJournalPending, species)
	if err != nil {
		return fmt.Errorf("confirm journal entry: %w", err)
	}
	if !removed {
		return fmt.Errorf("journal entry %q: %w", species, domain.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

func (s *Service) Flags(ctx context.Context, playerID uuid.UUID) ([]string, error) {
	flags, err := s.flags.Flags(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	return flags, nil
}

// MarkFlag records a one-time flag such as an onboarding modal being seen.
func (s *Service) MarkFlag(ctx context.Context, playerID uuid.UUID, flag string) error {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return domain.NewValidationError("flag", "required")
	}
	if len(flag) > maxFlagLength {
		return domain.NewValidationError("flag", fmt.Sprintf("must be at most %d characters", maxFlagLength))
	}
	if err := s.flags.MarkFlag(ctx, playerID, flag); err != nil {
		return fmt.Errorf("mark flag: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func (s *Service) Stats(ctx context.Context, playerID uuid.UUID) (domain.PlayerStats, error) {
	stats, err := s.scores.Stats(ctx, playerID)
	if err != nil {
		return domain.PlayerStats{}, fmt.Errorf("player stats: %w", err)
	}
	return stats, nil
}

// Recent returns the latest outcomes. limit <= 0 selects the default and
// values above the maximum are clamped.
func (s *Service) Recent(ctx context.Context, playerID uuid.UUID, limit int) ([]domain.RoundOutcome, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentSize
	case limit > maxRecentSize:
		limit = maxRecentSize
	}
	out, err := s.scores.Recent(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent outcomes: %w", err)
	}
	return out, nil
}
