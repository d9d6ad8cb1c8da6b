package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
	"github.com/heartmarshall/wildguess-backend/internal/service/acquisition"
	"github.com/heartmarshall/wildguess-backend/internal/service/game/round"
	"github.com/heartmarshall/wildguess-backend/internal/service/player"
	"github.com/heartmarshall/wildguess-backend/internal/service/prefetch"
)

type acquirer interface {
	Acquire(ctx context.Context, req acquisition.Request) acquisition.Result
}

type speciesCatalog interface {
	Region(name string) (domain.Region, error)
	Species(ctx context.Context, region domain.Region) ([]domain.Species, error)
	Lookup(ctx context.Context, region domain.Region, taxonID int) (domain.Species, error)
	Resolve(ctx context.Context, region domain.Region, text string) (domain.Species, error)
}

type recorder interface {
	RoundStarted(ctx context.Context, info Info, rec domain.RoundRecord, offline bool, attempts int)
	RoundResolved(ctx context.Context, info Info, st round.State, offline bool)
	RegionChanged(ctx context.Context, info Info, from string)
}

// Info identifies a session in recorded events.
type Info struct {
	SessionID uuid.UUID
	PlayerID  *uuid.UUID
	Region    string
}

// GuessInput names the guessed species by taxon id or, when TaxonID is
// zero, by free text resolved against the region's catalog.
type GuessInput struct {
	TaxonID int
	Name    string
}

// Session is one player's game. All state changes happen under mu, so HTTP
// calls, timer ticks and feedback timers are processed one at a time.
type Session struct {
	id       uuid.UUID
	playerID *uuid.UUID
	log      *slog.Logger

	machine       round.Machine
	feedbackDelay time.Duration
	tickInterval  time.Duration
	now           func() time.Time

	acq      acquirer
	catalog  speciesCatalog
	rec      recorder
	prefetch *prefetch.Coordinator
	history  *player.History

	mu       sync.Mutex
	region   domain.Region
	state    round.State
	offline  bool
	loading  bool
	closed   bool
	lastSeen time.Time

	// roundSeq and lockSeq tag timer callbacks so a late one cannot act on
	// a newer round or lock.
	roundSeq uint64
	lockSeq  uint64
	stopTick chan struct{}
	settle   *time.Timer
	wg       sync.WaitGroup
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// PlayerID returns the owning player, or nil for anonymous sessions.
func (s *Session) PlayerID() *uuid.UUID { return s.playerID }

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	return s.viewLocked()
}

// LastSeen returns the time of the last player action.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// ---------------------------------------------------------------------------
// Region
// ---------------------------------------------------------------------------

// SelectRegion switches the region between rounds. The prefetch for the old
// region is invalidated before the new one starts.
func (s *Session) SelectRegion(ctx context.Context, name string) (View, error) {
	region, err := s.catalog.Region(name)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrSessionClosed
	}
	if s.state.Phase.Revealing() || s.loading {
		s.mu.Unlock()
		return View{}, ErrRoundInProgress
	}
	s.touchLocked()

	if region.Name == s.region.Name {
		v := s.viewLocked()
		s.mu.Unlock()
		return v, nil
	}

	from := s.region.Name
	s.region = region
	s.prefetch.Invalidate()
	s.prefetch.Start(s.requestLocked())
	info, v := s.infoLocked(), s.viewLocked()
	s.mu.Unlock()

	s.log.InfoContext(ctx, "region changed", slog.String("from", from), slog.String("to", region.Name))
	s.rec.RegionChanged(ctx, info, from)
	return v, nil
}

// ---------------------------------------------------------------------------
// Round
// ---------------------------------------------------------------------------

// StartRound begins the next round. A fresh prefetched record is used
// immediately; an in-flight prefetch for the current region is awaited;
// otherwise the record is acquired while the session reports Loading.
func (s *Session) StartRound(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrSessionClosed
	}
	if s.loading {
		s.mu.Unlock()
		return View{}, ErrRoundLoading
	}
	if s.state.Phase.Revealing() {
		s.mu.Unlock()
		return View{}, ErrRoundInProgress
	}
	s.touchLocked()

	res, ok := s.prefetch.GetIfFresh()
	source := "prefetch"
	if !ok {
		s.loading = true
		req := s.requestLocked()
		s.mu.Unlock()

		// SelectRegion refuses while loading, so req stays current.
		res, ok = s.prefetch.Await(ctx)
		if !ok {
			source = "blocking"
			res = s.acq.Acquire(ctx, req)
		}

		s.mu.Lock()
		s.loading = false
		if s.closed {
			s.mu.Unlock()
			return View{}, ErrSessionClosed
		}
		if err := ctx.Err(); err != nil {
			if !s.prefetch.Pending() {
				s.prefetch.Start(s.requestLocked())
			}
			s.mu.Unlock()
			return View{}, err
		}
	}

	s.prefetch.Invalidate()
	s.roundSeq++
	s.state = s.machine.Apply(s.state, round.Start{Record: res.Record})
	s.offline = res.Offline
	s.startTimerLocked()
	info, v := s.infoLocked(), s.viewLocked()
	s.mu.Unlock()

	s.log.InfoContext(ctx, "round started",
		slog.String("source", source),
		slog.Bool("offline", res.Offline),
		slog.Int("attempts", res.Attempts),
	)
	s.rec.RoundStarted(ctx, info, res.Record, res.Offline, res.Attempts)
	return v, nil
}

// Guess submits a guess. A guess while the previous one is still shown as
// feedback, or outside a round, is ignored and reported as not accepted.
func (s *Session) Guess(ctx context.Context, in GuessInput) (GuessResult, error) {
	s.mu.Lock()
	region, closed := s.region, s.closed
	var target domain.RoundRecord
	if s.state.Phase.Revealing() {
		target = s.state.Target
	}
	s.mu.Unlock()
	if closed {
		return GuessResult{}, ErrSessionClosed
	}

	sp, err := s.resolveGuess(ctx, region, target, in)
	if err != nil {
		return GuessResult{}, err
	}

	prev, next, v, err := s.apply(ctx, round.Guess{TaxonID: sp.TaxonID, Name: sp.Name}, true)
	if err != nil {
		return GuessResult{}, err
	}

	justResolved := next.Resolved() && !prev.Resolved()
	return GuessResult{
		Accepted: justResolved || len(next.Rejected) != len(prev.Rejected),
		Correct:  justResolved && *next.Result == domain.RoundResultWin,
		View:     v,
	}, nil
}

// resolveGuess maps a guess onto a species. The current target is matched
// first so that a backup round outside the region's catalog stays winnable.
func (s *Session) resolveGuess(ctx context.Context, region domain.Region, target domain.RoundRecord, in GuessInput) (domain.Species, error) {
	if in.TaxonID > 0 {
		if target.TaxonID != 0 && in.TaxonID == target.TaxonID {
			return targetSpecies(target), nil
		}
		sp, err := s.catalog.Lookup(ctx, region, in.TaxonID)
		if err != nil {
			return domain.Species{}, domain.NewValidationError("taxon_id", "unknown species")
		}
		return sp, nil
	}
	name := domain.NormalizeName(in.Name)
	if name == "" {
		return domain.Species{}, domain.NewValidationError("name", "taxon_id or name is required")
	}
	if target.TaxonID != 0 && name == domain.NormalizeName(target.SpeciesName) {
		return targetSpecies(target), nil
	}
	sp, err := s.catalog.Resolve(ctx, region, in.Name)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return domain.Species{}, err
		}
		return domain.Species{}, domain.NewValidationError("name", "no species matches the guess")
	}
	return sp, nil
}

func targetSpecies(rec domain.RoundRecord) domain.Species {
	return domain.Species{
		TaxonID:        rec.TaxonID,
		Name:           rec.SpeciesName,
		ScientificName: rec.ScientificName,
		Category:       rec.Category,
		Emoji:          rec.Emoji,
	}
}

// Skip reveals the next clue, or loses the round on the final clue.
func (s *Session) Skip(ctx context.Context) (View, error) {
	_, _, v, err := s.apply(ctx, round.Advance{}, true)
	return v, err
}

// Surrender gives up the current round.
func (s *Session) Surrender(ctx context.Context) (View, error) {
	_, _, v, err := s.apply(ctx, round.Surrender{}, true)
	return v, err
}

// Options lists the species a guess may name at the current clue.
func (s *Session) Options(ctx context.Context) ([]domain.Species, error) {
	s.mu.Lock()
	region, st, closed := s.region, s.state, s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	list, err := s.catalog.Species(ctx, region)
	if err != nil {
		return nil, err
	}
	return round.Options(list, st), nil
}

// apply feeds ev to the machine and runs the side effects of the
// transition.
func (s *Session) apply(ctx context.Context, ev round.Event, touch bool) (prev, next round.State, v View, err error) {
	return s.applyIf(ctx, ev, touch, nil)
}

// applyIf is apply with an optional guard checked under the lock. touch
// marks player activity; timer events pass false.
func (s *Session) applyIf(ctx context.Context, ev round.Event, touch bool, guard func() bool) (prev, next round.State, v View, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return prev, next, View{}, ErrSessionClosed
	}
	if guard != nil && !guard() {
		prev, next, v = s.state, s.state, s.viewLocked()
		s.mu.Unlock()
		return prev, next, v, nil
	}
	if touch {
		s.touchLocked()
	}

	prev = s.state
	s.state = s.machine.Apply(prev, ev)
	resolved := s.afterTransitionLocked(prev)
	next, v = s.state, s.viewLocked()
	info, offline := s.infoLocked(), s.offline
	s.mu.Unlock()

	if resolved {
		s.log.InfoContext(ctx, "round resolved",
			slog.String("result", string(*next.Result)),
			slog.Int("score", next.Score),
			slog.Int("clue_index", next.ClueIndex),
		)
		s.rec.RoundResolved(ctx, info, next, offline)
	}
	return prev, next, v, nil
}

// afterTransitionLocked schedules timers for the new state and reports
// whether the round just resolved.
func (s *Session) afterTransitionLocked(prev round.State) bool {
	switch {
	case s.state.Resolved() && !prev.Resolved():
		s.stopTimerLocked()
		s.stopSettleLocked()
		s.prefetch.Start(s.requestLocked())
		return true
	case s.state.Locked && !prev.Locked:
		s.scheduleSettleLocked()
	}
	return false
}

// ---------------------------------------------------------------------------
// Timers
// ---------------------------------------------------------------------------

func (s *Session) scheduleSettleLocked() {
	if s.feedbackDelay <= 0 {
		s.state = s.machine.Apply(s.state, round.Settle{})
		return
	}

	s.lockSeq++
	seq := s.lockSeq
	s.wg.Add(1)
	s.settle = time.AfterFunc(s.feedbackDelay, func() {
		defer s.wg.Done()
		s.timerEvent(round.Settle{}, func() bool { return s.lockSeq == seq })
	})
}

func (s *Session) stopSettleLocked() {
	if s.settle != nil && s.settle.Stop() {
		s.wg.Done()
	}
	s.settle = nil
}

func (s *Session) startTimerLocked() {
	s.stopTimerLocked()
	if !s.machine.TimerEnabled {
		return
	}

	stop := make(chan struct{})
	s.stopTick = stop
	seq := s.roundSeq
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.timerEvent(round.Tick{}, func() bool { return s.roundSeq == seq })
			}
		}
	}()
}

func (s *Session) stopTimerLocked() {
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

// timerEvent applies a timer-driven event if current still holds under the
// session lock.
func (s *Session) timerEvent(ev round.Event, current func() bool) {
	_, _, _, _ = s.applyIf(context.Background(), ev, false, current)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Close stops timers and the prefetch and waits for their goroutines.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.stopSettleLocked()
	s.mu.Unlock()

	s.prefetch.Close()
	s.wg.Wait()
}

func (s *Session) requestLocked() acquisition.Request {
	return acquisition.Request{Region: s.region, History: s.history}
}

func (s *Session) infoLocked() Info {
	return Info{SessionID: s.id, PlayerID: s.playerID, Region: s.region.Name}
}

func (s *Session) touchLocked() {
	s.lastSeen = s.now()
}
