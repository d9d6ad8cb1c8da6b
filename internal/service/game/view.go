package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
	"github.com/heartmarshall/wildguess-backend/internal/service/game/round"
)

// View is a read-only snapshot of a session. Target is only set once the
// round is resolved so the answer never leaks mid-round.
type View struct {
	SessionID uuid.UUID
	Region    domain.Region
	Phase     domain.RoundPhase
	ClueIndex int
	Score     int
	Locked    bool
	Rejected  []string
	Result    *domain.RoundResult
	TimeLeft  int
	Clues     []round.Clue
	Category  string
	Offline   bool
	Loading   bool
	Target    *domain.RoundRecord
	UpdatedAt time.Time
}

// GuessResult reports what a guess did. Accepted is false when the guess
// was ignored (locked, or no round in progress).
type GuessResult struct {
	Accepted bool
	Correct  bool
	View     View
}

func (s *Session) viewLocked() View {
	st := s.state
	v := View{
		SessionID: s.id,
		Region:    s.region,
		Phase:     st.Phase,
		ClueIndex: st.ClueIndex,
		Score:     st.Score,
		Locked:    st.Locked,
		Rejected:  append([]string{}, st.Rejected...),
		Result:    st.Result,
		TimeLeft:  st.TimeLeft,
		Clues:     round.Clues(st),
		Offline:   s.offline,
		Loading:   s.loading,
		UpdatedAt: s.lastSeen,
	}
	if st.ClueIndex >= round.FinalClue {
		v.Category = st.Target.Category
	}
	if st.Resolved() {
		target := st.Target
		v.Target = &target
	}
	return v
}
