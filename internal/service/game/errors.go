package game

import (
	"fmt"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

var (
	// ErrRoundLoading is returned while a blocking acquisition for the
	// session's next round is in flight.
	ErrRoundLoading = fmt.Errorf("round is loading: %w", domain.ErrConflict)
	// ErrRoundInProgress rejects actions only valid between rounds.
	ErrRoundInProgress = fmt.Errorf("round in progress: %w", domain.ErrConflict)
	// ErrSessionClosed is returned by a session that expired or was closed.
	ErrSessionClosed = fmt.Errorf("session closed: %w", domain.ErrNotFound)
	// ErrTooManySessions is returned when the manager is at capacity.
	ErrTooManySessions = fmt.Errorf("too many sessions: %w", domain.ErrConflict)
)
