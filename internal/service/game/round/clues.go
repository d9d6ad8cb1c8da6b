package round

import (
	"strings"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

// ClueKind names what a clue reveals.
type ClueKind string

const (
	ClueLocation       ClueKind = "LOCATION"
	CluePhoto          ClueKind = "PHOTO"
	ClueScientificName ClueKind = "SCIENTIFIC_NAME"
	ClueHint           ClueKind = "HINT"
)

// Clue is one revealed piece of information about the target.
type Clue struct {
	Index    int                 `json:"index"`
	Kind     ClueKind            `json:"kind"`
	Text     string              `json:"text,omitempty"`
	PhotoURL string              `json:"photo_url,omitempty"`
	Location *domain.Coordinates `json:"location,omitempty"`
}

// Clues returns the clues revealed up to the current index. A resolved
// round reveals everything.
func Clues(s State) []Clue {
	if s.Phase == domain.RoundPhaseIdle {
		return []Clue{}
	}
	t := s.Target
	all := []Clue{
		{Index: 0, Kind: ClueLocation, Text: t.PlaceGuess, Location: t.Location},
		{Index: 1, Kind: CluePhoto, PhotoURL: t.PhotoURL},
		{Index: 2, Kind: ClueScientificName, Text: t.ScientificName},
		{Index: 3, Kind: ClueHint, Text: t.Hint1},
		{Index: 4, Kind: ClueHint, Text: t.Hint2},
	}
	if s.Resolved() {
		return all
	}
	return all[:s.ClueIndex+1]
}

// Options returns the species a player may pick from. The target is always
// offered, even when the record came from outside the catalog. On the final
// clue the list narrows to the target's category; if the catalog has no
// species in that category the full list is returned.
func Options(catalog []domain.Species, s State) []domain.Species {
	catalog = withTarget(catalog, s)
	if s.ClueIndex < FinalClue || s.Target.Category == "" {
		return catalog
	}
	out := make([]domain.Species, 0, len(catalog))
	for _, sp := range catalog {
		if strings.EqualFold(strings.TrimSpace(sp.Category), strings.TrimSpace(s.Target.Category)) {
			out = append(out, sp)
		}
	}
	if len(out) == 0 {
		return catalog
	}
	return out
}

func withTarget(catalog []domain.Species, s State) []domain.Species {
	if s.Phase == domain.RoundPhaseIdle || s.Target.TaxonID == 0 {
		return catalog
	}
	for _, sp := range catalog {
		if sp.TaxonID == s.Target.TaxonID {
			return catalog
		}
	}
	out := make([]domain.Species, 0, len(catalog)+1)
	out = append(out, catalog...)
	return append(out, domain.Species{
		TaxonID:        s.Target.TaxonID,
		Name:           s.Target.SpeciesName,
		ScientificName: s.Target.ScientificName,
		Category:       s.Target.Category,
		Emoji:          s.Target.Emoji,
	})
}
