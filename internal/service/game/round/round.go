// Package round is the clue-reveal state machine of a single round.
//
// The machine is pure: Apply takes a State and an Event and returns the
// next State without side effects. Callers serialize events; the lock flag
// then guarantees at most one guess per clue state, and a timer expiry that
// races a manual action is a no-op when it loses.
package round

import (
	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

const (
	// FinalClue is the index of the last clue; a wrong guess here loses.
	FinalClue = 4
	// MaxScore is the score of a round won on the first clue.
	MaxScore = 5
)

// State is one round's machine state.
type State struct {
	Phase     domain.RoundPhase
	ClueIndex int
	Score     int
	// Locked is set while a wrong guess is shown as feedback; Settle clears it.
	Locked   bool
	Rejected []string
	Result   *domain.RoundResult
	TimeLeft int
	Target   domain.RoundRecord
}

// Idle returns the state before any round has started.
func Idle() State {
	return State{Phase: domain.RoundPhaseIdle, ClueIndex: -1}
}

// Resolved reports whether the round has a result.
func (s State) Resolved() bool {
	return s.Phase == domain.RoundPhaseResolved
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// Event is an input to the machine.
type Event interface {
	event()
}

// Start begins a round for Record.
type Start struct {
	Record domain.RoundRecord
}

// Advance reveals the next clue (a manual skip).
type Advance struct{}

// Guess submits a candidate species. TaxonID decides correctness; Name is
// what gets recorded as rejected.
type Guess struct {
	TaxonID int
	Name    string
}

// Settle ends the feedback of a wrong guess and reveals the next clue.
type Settle struct{}

// Surrender gives up the round.
type Surrender struct{}

// Tick is one second of the clue timer.
type Tick struct{}

func (Start) event()     {}
func (Advance) event()   {}
func (Guess) event()     {}
func (Settle) event()    {}
func (Surrender) event() {}
func (Tick) event()      {}

// ---------------------------------------------------------------------------
// Machine
// ---------------------------------------------------------------------------

// Machine holds the timer settings transitions depend on.
type Machine struct {
	TimerEnabled bool
	ClueSeconds  int
}

// Apply returns the state after ev. Events that are not valid in s return
// s unchanged.
func (m Machine) Apply(s State, ev Event) State {
	switch e := ev.(type) {
	case Start:
		if s.Phase.Revealing() {
			return s
		}
		return State{
			Phase:     domain.RoundPhaseClueReveal,
			ClueIndex: 0,
			Score:     MaxScore,
			Rejected:  []string{},
			TimeLeft:  m.clueTime(),
			Target:    e.Record,
		}

	case Advance:
		if !s.Phase.Revealing() || s.Locked {
			return s
		}
		return m.advance(s)

	case Guess:
		if !s.Phase.Revealing() || s.Locked {
			return s
		}
		if e.TaxonID == s.Target.TaxonID {
			return resolve(s, domain.RoundResultWin, s.Score)
		}
		s.Rejected = append(append([]string(nil), s.Rejected...), e.Name)
		if s.ClueIndex >= FinalClue {
			return resolve(s, domain.RoundResultLoss, 0)
		}
		s.Locked = true
		return s

	case Settle:
		if !s.Phase.Revealing() || !s.Locked {
			return s
		}
		s.Locked = false
		return m.advance(s)

	case Surrender:
		if !s.Phase.Revealing() {
			return s
		}
		return resolve(s, domain.RoundResultSurrender, 0)

	case Tick:
		if !m.TimerEnabled || !s.Phase.Revealing() || s.Locked {
			return s
		}
		s.TimeLeft--
		if s.TimeLeft > 0 {
			return s
		}
		return m.advance(s)
	}

	return s
}

// advance moves to the next clue, or loses the round after the final one.
func (m Machine) advance(s State) State {
	if s.ClueIndex >= FinalClue {
		return resolve(s, domain.RoundResultLoss, 0)
	}
	s.ClueIndex++
	s.Score = MaxScore - s.ClueIndex
	s.TimeLeft = m.clueTime()
	if s.ClueIndex == FinalClue {
		s.Phase = domain.RoundPhaseAwaitingFinalGuess
	}
	return s
}

func (m Machine) clueTime() int {
	if !m.TimerEnabled {
		return 0
	}
	return m.ClueSeconds
}

func resolve(s State, result domain.RoundResult, score int) State {
	s.Phase = domain.RoundPhaseResolved
	s.Result = &result
	s.Score = score
	s.Locked = false
	s.TimeLeft = 0
	return s
}
