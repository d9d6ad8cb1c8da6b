package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
	"github.com/heartmarshall/wildguess-backend/internal/service/game/round"
	"github.com/heartmarshall/wildguess-backend/internal/service/player"
	"github.com/heartmarshall/wildguess-backend/internal/service/prefetch"
)

type historyLoader interface {
	History(ctx context.Context, playerID uuid.UUID) (*player.History, error)
}

// Config holds session settings.
type Config struct {
	TimerEnabled    bool
	ClueSeconds     int
	FeedbackDelay   time.Duration
	IdleTTL         time.Duration
	JanitorInterval time.Duration
	MaxSessions     int
}

// Manager owns the live sessions and expires idle ones.
type Manager struct {
	log       *slog.Logger
	acq       acquirer
	catalog   speciesCatalog
	histories historyLoader
	rec       recorder
	cfg       Config

	tickInterval time.Duration
	now          func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	closed   bool
}

// NewManager creates a session manager. Call Run to start the janitor.
func NewManager(
	logger *slog.Logger,
	acq acquirer,
	catalog speciesCatalog,
	histories historyLoader,
	rec recorder,
	cfg Config,
) *Manager {
	return &Manager{
		log:          logger.With("service", "game"),
		acq:          acq,
		catalog:      catalog,
		histories:    histories,
		rec:          rec,
		cfg:          cfg,
		tickInterval: time.Second,
		now:          time.Now,
		sessions:     make(map[uuid.UUID]*Session),
	}
}

// Create opens a session in regionName (empty selects the default region)
// and starts prefetching its first round. playerID is nil for anonymous
// players, whose history lives only in memory.
func (m *Manager) Create(ctx context.Context, playerID *uuid.UUID, regionName string) (*Session, error) {
	region, err := m.catalog.Region(regionName)
	if err != nil {
		return nil, err
	}

	history := player.NewMemoryHistory()
	if playerID != nil {
		h, err := m.histories.History(ctx, *playerID)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		history = h
	}

	id := uuid.New()
	s := &Session{
		id:            id,
		playerID:      playerID,
		log:           m.log.With("session_id", id.String()),
		machine:       round.Machine{TimerEnabled: m.cfg.TimerEnabled, ClueSeconds: m.cfg.ClueSeconds},
		feedbackDelay: m.cfg.FeedbackDelay,
		tickInterval:  m.tickInterval,
		now:           m.now,
		acq:           m.acq,
		catalog:       m.catalog,
		rec:           m.rec,
		prefetch:      prefetch.NewCoordinator(m.log, m.acq),
		history:       history,
		region:        region,
		state:         round.Idle(),
		lastSeen:      m.now(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		s.prefetch.Close()
		return nil, ErrSessionClosed
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		s.prefetch.Close()
		return nil, ErrTooManySessions
	}
	m.sessions[id] = s
	m.mu.Unlock()

	s.mu.Lock()
	s.prefetch.Start(s.requestLocked())
	s.mu.Unlock()

	m.log.InfoContext(ctx, "session created",
		slog.String("session_id", id.String()),
		slog.String("region", region.Name),
		slog.Bool("anonymous", playerID == nil),
	)
	return s, nil
}

// Get returns a live session. Sessions owned by a player are only visible
// to that player; anonymous sessions are reachable by id alone.
func (m *Manager) Get(id uuid.UUID, playerID *uuid.UUID) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok || !owns(s, playerID) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

// Remove closes and forgets a session.
func (m *Manager) Remove(id uuid.UUID, playerID *uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || !owns(s, playerID) {
		m.mu.Unlock()
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.Close()
	return nil
}

func owns(s *Session, playerID *uuid.UUID) bool {
	if s.playerID == nil {
		return true
	}
	return playerID != nil && *playerID == *s.playerID
}

// ForgetPlayed empties the in-memory played history of every live session
// owned by playerID, so that a history reset takes effect without a new
// session. It returns how many sessions were touched. Prefetches already in
// flight are not cancelled.
func (m *Manager) ForgetPlayed(ctx context.Context, playerID uuid.UUID) int {
	m.mu.Lock()
	var owned []*Session
	for _, s := range m.sessions {
		if s.playerID != nil && *s.playerID == playerID {
			owned = append(owned, s)
		}
	}
	m.mu.Unlock()

	for _, s := range owned {
		s.history.Reset()
	}
	if len(owned) > 0 {
		m.log.InfoContext(ctx, "live session histories reset",
			slog.String("player_id", playerID.String()),
			slog.Int("sessions", len(owned)),
		)
	}
	return len(owned)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than IdleTTL and returns how many
// it closed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		m.log.Info("idle sessions closed", slog.Int("count", len(idle)), slog.Int("active", m.Len()))
	}
	return len(idle)
}

// Run sweeps idle sessions every JanitorInterval until ctx ends, then
// closes every session.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Shutdown()
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Shutdown closes every session and refuses new ones.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
