package player

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

// History is a player's set of finished species. It is safe for
// concurrent use: foreground and prefetch acquisitions share one History.
// Adds are written through to the store when the player is known; a failed
// write is logged and the name stays in memory for the session.
type History struct {
	log      *slog.Logger
	store    listStore
	playerID uuid.UUID

	mu    sync.RWMutex
	names map[string]struct{}
}

// NewMemoryHistory returns a History that is never persisted, used for
// anonymous sessions.
func NewMemoryHistory() *History {
	return &History{names: make(map[string]struct{})}
}

func (h *History) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.names[name]
	return ok
}

// Add is idempotent.
func (h *History) Add(ctx context.Context, name string) {
	h.mu.Lock()
	if _, ok := h.names[name]; ok {
		h.mu.Unlock()
		return
	}
	h.names[name] = struct{}{}
	h.mu.Unlock()

	if h.store == nil {
		return
	}
	if err := h.store.Append(ctx, h.playerID, domain.PlayerListPlayed, name); err != nil {
		h.log.WarnContext(ctx, "persist played species",
			slog.String("player_id", h.playerID.String()),
			slog.String("species", name),
			slog.String("error", err.Error()),
		)
	}
}

// Len returns the number of distinct species in the history.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.names)
}

// Reset empties the in-memory set. The store is left alone; clearing the
// persisted list is Service.ResetHistory's job.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.names)
}
