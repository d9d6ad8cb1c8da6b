package round

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

func TestClues_RevealProgressively(t *testing.T) {
	t.Parallel()

	m := Machine{}
	assert.Empty(t, Clues(Idle()))

	s := started(m)
	clues := Clues(s)
	require.Len(t, clues, 1)
	assert.Equal(t, ClueLocation, clues[0].Kind)
	assert.Equal(t, "Hyde Park, London", clues[0].Text)
	assert.Equal(t, fox.Location, clues[0].Location)

	s = m.Apply(s, Advance{})
	s = m.Apply(s, Advance{})
	clues = Clues(s)
	require.Len(t, clues, 3)
	assert.Equal(t, fox.PhotoURL, clues[1].PhotoURL)
	assert.Equal(t, "Vulpes vulpes", clues[2].Text)

	s = m.Apply(s, Surrender{})
	clues = Clues(s)
	require.Len(t, clues, 5, "a resolved round shows every clue")
	assert.Equal(t, "Often seen at dusk", clues[4].Text)
}

func TestOptions_NarrowOnFinalClue(t *testing.T) {
	t.Parallel()

	catalog := []domain.Species{
		{TaxonID: 42069, Name: "Red Fox", Category: "Mammal"},
		{TaxonID: 41777, Name: "Eurasian Badger", Category: "mammal "},
		{TaxonID: 13094, Name: "European Robin", Category: "Bird"},
	}
	m := Machine{}
	s := started(m)

	assert.Len(t, Options(catalog, s), 3)

	for range FinalClue {
		s = m.Apply(s, Advance{})
	}
	opts := Options(catalog, s)
	require.Len(t, opts, 2)
	assert.Equal(t, "Red Fox", opts[0].Name)
	assert.Equal(t, "Eurasian Badger", opts[1].Name)
}

func TestOptions_NoCategoryMatchKeepsAll(t *testing.T) {
	t.Parallel()

	catalog := []domain.Species{
		{TaxonID: fox.TaxonID, Name: "Red Fox", Category: "Carnivora"},
		{TaxonID: 1, Name: "European Robin", Category: "Bird"},
	}
	s := State{Phase: domain.RoundPhaseAwaitingFinalGuess, ClueIndex: FinalClue, Target: fox}

	assert.Equal(t, catalog, Options(catalog, s))
}

func TestOptions_IncludesTargetMissingFromCatalog(t *testing.T) {
	t.Parallel()

	catalog := []domain.Species{{TaxonID: 13094, Name: "European Robin", Category: "Bird"}}
	m := Machine{}

	assert.Equal(t, catalog, Options(catalog, Idle()), "no target before a round starts")

	s := started(m)
	opts := Options(catalog, s)
	require.Len(t, opts, 2)
	assert.Equal(t, "European Robin", opts[0].Name)
	assert.Equal(t, fox.TaxonID, opts[1].TaxonID)
	assert.Equal(t, fox.SpeciesName, opts[1].Name)
	assert.Len(t, catalog, 1, "caller's slice is left alone")

	for range FinalClue {
		s = m.Apply(s, Advance{})
	}
	opts = Options(catalog, s)
	require.Len(t, opts, 1)
	assert.Equal(t, fox.TaxonID, opts[0].TaxonID)
}
