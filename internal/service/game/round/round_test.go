package round

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

var fox = domain.RoundRecord{
	TaxonID:        42069,
	SpeciesName:    "Red Fox",
	ScientificName: "Vulpes vulpes",
	Category:       "Mammal",
	PhotoURL:       "https://static.example/fox/original.jpg",
	Location:       &domain.Coordinates{Lat: 51.5, Lng: -0.12},
	PlaceGuess:     "Hyde Park, London",
	Hint1:          "Bushy tail with a white tip",
	Hint2:          "Often seen at dusk",
}

const badgerID = 41777

func started(m Machine) State {
	return m.Apply(Idle(), Start{Record: fox})
}

func resultOf(t *testing.T, s State) domain.RoundResult {
	t.Helper()
	require.NotNil(t, s.Result)
	return *s.Result
}

func TestApply_Start(t *testing.T) {
	t.Parallel()

	m := Machine{TimerEnabled: true, ClueSeconds: 20}
	s := started(m)

	assert.Equal(t, domain.RoundPhaseClueReveal, s.Phase)
	assert.Equal(t, 0, s.ClueIndex)
	assert.Equal(t, 5, s.Score)
	assert.False(t, s.Locked)
	assert.Empty(t, s.Rejected)
	assert.Nil(t, s.Result)
	assert.Equal(t, 20, s.TimeLeft)
	assert.Equal(t, fox, s.Target)
}

func TestApply_StartIgnoredMidRound(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := m.Apply(started(m), Advance{})
	next := m.Apply(s, Start{Record: domain.RoundRecord{TaxonID: 1}})

	assert.Equal(t, s, next)
}

func TestApply_StartAfterResolveResets(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := m.Apply(started(m), Guess{TaxonID: badgerID, Name: "Eurasian Badger"})
	s = m.Apply(s, Settle{})
	s = m.Apply(s, Surrender{})
	require.True(t, s.Resolved())

	s = m.Apply(s, Start{Record: fox})
	assert.Equal(t, 0, s.ClueIndex)
	assert.Equal(t, 5, s.Score)
	assert.Empty(t, s.Rejected)
	assert.Nil(t, s.Result)
}

// Advancing through every clue without a correct guess scores 5,4,3,2,1 and
// the next advance loses.
func TestApply_ScoreDecreasesPerClue(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := started(m)

	scores := []int{s.Score}
	for range FinalClue {
		s = m.Apply(s, Advance{})
		scores = append(scores, s.Score)
	}

	assert.Equal(t, []int{5, 4, 3, 2, 1}, scores)
	assert.Equal(t, FinalClue, s.ClueIndex)
	assert.Equal(t, domain.RoundPhaseAwaitingFinalGuess, s.Phase)

	s = m.Apply(s, Advance{})
	assert.True(t, s.Resolved())
	assert.Equal(t, domain.RoundResultLoss, resultOf(t, s))
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, FinalClue, s.ClueIndex)

	after := m.Apply(s, Advance{})
	assert.Equal(t, s, after, "no advance after resolution")
}

func TestApply_CorrectGuessWins(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := m.Apply(started(m), Advance{})
	s = m.Apply(s, Guess{TaxonID: fox.TaxonID, Name: "Red fox (renamed)"})

	assert.True(t, s.Resolved())
	assert.Equal(t, domain.RoundResultWin, resultOf(t, s))
	assert.Equal(t, 4, s.Score)
}

func TestApply_MatchesByTaxonNotName(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := m.Apply(started(m), Guess{TaxonID: 999, Name: "Red Fox"})

	assert.False(t, s.Resolved())
	assert.Equal(t, []string{"Red Fox"}, s.Rejected)
}

func TestApply_WrongGuessLocksUntilSettle(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := m.Apply(started(m), Guess{TaxonID: badgerID, Name: "Eurasian Badger"})

	assert.True(t, s.Locked)
	assert.Equal(t, 0, s.ClueIndex, "advance waits for settle")
	assert.Equal(t, []string{"Eurasian Badger"}, s.Rejected)

	for _, ev := range []Event{Advance{}, Guess{TaxonID: fox.TaxonID}, Tick{}} {
		assert.Equal(t, s, m.Apply(s, ev), "%T must be ignored while locked", ev)
	}

	s = m.Apply(s, Settle{})
	assert.False(t, s.Locked)
	assert.Equal(t, 1, s.ClueIndex)
	assert.Equal(t, 4, s.Score)

	assert.Equal(t, s, m.Apply(s, Settle{}), "settle without a lock is a no-op")
}

// Two guesses arriving back to back: only the first is processed.
func TestApply_OneGuessPerClueState(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := started(m)

	first := m.Apply(s, Guess{TaxonID: badgerID, Name: "Eurasian Badger"})
	second := m.Apply(first, Guess{TaxonID: fox.TaxonID, Name: "Red Fox"})

	assert.Equal(t, first, second)
	assert.Nil(t, second.Result)
	assert.Len(t, second.Rejected, 1)
}

func TestApply_WrongFinalGuessLoses(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := started(m)
	for range FinalClue {
		s = m.Apply(s, Advance{})
	}

	s = m.Apply(s, Guess{TaxonID: badgerID, Name: "Eurasian Badger"})
	assert.True(t, s.Resolved())
	assert.Equal(t, domain.RoundResultLoss, resultOf(t, s))
	assert.Equal(t, []string{"Eurasian Badger"}, s.Rejected)
	assert.False(t, s.Locked)
}

// Wrong at clues 0-3, right at clue 4: one point.
func TestApply_WinOnFinalClue(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := started(m)
	wrong := []string{"Eurasian Badger", "Grey Wolf", "Golden Jackal", "Pine Marten"}
	for i, name := range wrong {
		s = m.Apply(s, Guess{TaxonID: 100 + i, Name: name})
		s = m.Apply(s, Settle{})
	}
	require.Equal(t, FinalClue, s.ClueIndex)

	s = m.Apply(s, Guess{TaxonID: fox.TaxonID, Name: fox.SpeciesName})
	assert.Equal(t, domain.RoundResultWin, resultOf(t, s))
	assert.Equal(t, 1, s.Score)
	assert.Equal(t, wrong, s.Rejected)
}

func TestApply_Surrender(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := m.Apply(m.Apply(started(m), Advance{}), Surrender{})

	assert.Equal(t, domain.RoundResultSurrender, resultOf(t, s))
	assert.Equal(t, 0, s.Score)

	assert.Equal(t, Idle(), m.Apply(Idle(), Surrender{}), "nothing to surrender while idle")
}

func TestApply_SurrenderWhileLocked(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := m.Apply(started(m), Guess{TaxonID: badgerID, Name: "Eurasian Badger"})
	s = m.Apply(s, Surrender{})

	assert.Equal(t, domain.RoundResultSurrender, resultOf(t, s))
	assert.False(t, s.Locked)

	assert.Equal(t, s, m.Apply(s, Settle{}), "late settle after resolution is ignored")
}

func TestApply_IdleIgnoresRoundEvents(t *testing.T) {
	t.Parallel()

	m := Machine{TimerEnabled: true, ClueSeconds: 3}
	for _, ev := range []Event{Advance{}, Guess{TaxonID: 1}, Settle{}, Tick{}} {
		assert.Equal(t, Idle(), m.Apply(Idle(), ev), "%T", ev)
	}
}

// ---------------------------------------------------------------------------
// Timer
// ---------------------------------------------------------------------------

func TestApply_TickExpiryAdvancesOnce(t *testing.T) {
	t.Parallel()

	m := Machine{TimerEnabled: true, ClueSeconds: 3}
	s := started(m)

	s = m.Apply(s, Tick{})
	s = m.Apply(s, Tick{})
	assert.Equal(t, 1, s.TimeLeft)
	assert.Equal(t, 0, s.ClueIndex)

	s = m.Apply(s, Tick{})
	assert.Equal(t, 1, s.ClueIndex)
	assert.Equal(t, 3, s.TimeLeft, "timer resets for the new clue")
}

func TestApply_TimerDisabled(t *testing.T) {
	t.Parallel()

	m := Machine{ClueSeconds: 1}
	s := started(m)
	assert.Zero(t, s.TimeLeft)
	assert.Equal(t, s, m.Apply(s, Tick{}))
}

// A manual skip and the timer expiry race: whichever is applied first wins
// and the other finds a fresh clue timer or a lock.
func TestApply_ExpiryRacingGuess(t *testing.T) {
	t.Parallel()

	m := Machine{TimerEnabled: true, ClueSeconds: 1}
	s := started(m)

	guessFirst := m.Apply(s, Guess{TaxonID: badgerID, Name: "Eurasian Badger"})
	guessFirst = m.Apply(guessFirst, Tick{})
	assert.Equal(t, 0, guessFirst.ClueIndex, "expiry loses to the lock")

	tickFirst := m.Apply(s, Tick{})
	assert.Equal(t, 1, tickFirst.ClueIndex)
	tickFirst = m.Apply(tickFirst, Guess{TaxonID: badgerID, Name: "Eurasian Badger"})
	assert.Equal(t, 1, tickFirst.ClueIndex, "guess applies to the new clue")
	assert.True(t, tickFirst.Locked)
}

func TestApply_ExpiryOnFinalClueLoses(t *testing.T) {
	t.Parallel()

	m := Machine{TimerEnabled: true, ClueSeconds: 1}
	s := started(m)
	for range FinalClue + 1 {
		s = m.Apply(s, Tick{})
	}

	assert.Equal(t, domain.RoundResultLoss, resultOf(t, s))
}

func TestApply_DoesNotAliasRejected(t *testing.T) {
	t.Parallel()

	m := Machine{}
	s := m.Apply(started(m), Guess{TaxonID: badgerID, Name: "Eurasian Badger"})
	s = m.Apply(s, Settle{})

	a := m.Apply(s, Guess{TaxonID: 1, Name: "A"})
	b := m.Apply(s, Guess{TaxonID: 2, Name: "B"})

	assert.Equal(t, []string{"Eurasian Badger", "A"}, a.Rejected)
	assert.Equal(t, []string{"Eurasian Badger", "B"}, b.Rejected)
	assert.Equal(t, []string{"Eurasian Badger"}, s.Rejected)
}
