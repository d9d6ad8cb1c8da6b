package domain

import "strings"

// AnyRegion is the region label that spans every catalog sheet and sends
// no place constraint upstream.
const AnyRegion = "Any"

// Species is a static catalog entry. TaxonID is the stable identity used
// when evaluating guesses; Name is what players see.
type Species struct {
	TaxonID        int
	Name           string
	ScientificName string
	Category       string
	Emoji          string
	Hint1          string
	Hint2          string
	Region         string
}

// Region is a playable area. PlaceID is the upstream place identifier,
// zero meaning "no place constraint".
type Region struct {
	Name    string
	PlaceID int
}

// IsAny reports whether the region is the unconstrained aggregate region.
func (r Region) IsAny() bool {
	return strings.EqualFold(r.Name, AnyRegion)
}

// Matches reports whether a catalog row labelled label belongs to this region.
func (r Region) Matches(label string) bool {
	return r.IsAny() || strings.EqualFold(strings.TrimSpace(label), r.Name)
}
