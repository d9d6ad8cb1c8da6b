package species

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50

	// resolveMinScore is the weakest match Resolve accepts as a typed guess.
	resolveMinScore = 0.6
	// resolveMinQuery is the shortest non-exact guess Resolve accepts.
	resolveMinQuery = 3
)

// Match is one search hit.
type Match struct {
	Species domain.Species
	Score   float64
	Source  string // exact, prefix, contains, lev
}

// Search ranks the species of region against a free-text query, matching
// common and scientific names. Limit is clamped to [1, 50], defaulting to 10.
func (s *Service) Search(ctx context.Context, region domain.Region, query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)

	q := domain.NormalizeName(query)
	if q == "" {
		return []Match{}, nil
	}

	list, err := s.Species(ctx, region)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, limit)
	for _, sp := range list {
		best, ok := scoreName(q, domain.NormalizeName(sp.Name))
		if sci, sciOK := scoreName(q, domain.NormalizeName(sp.ScientificName)); sciOK && (!ok || sci.Score > best.Score) {
			best, ok = sci, true
		}
		if !ok {
			continue
		}
		best.Species = sp
		matches = append(matches, best)
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Species.Name, b.Species.Name)
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Resolve maps a typed guess to a single species. An exact name wins
// outright; otherwise the query must be at least resolveMinQuery runes long
// and have one strictly best match, or a validation error is returned.
func (s *Service) Resolve(ctx context.Context, region domain.Region, text string) (domain.Species, error) {
	matches, err := s.Search(ctx, region, text, 2)
	if err != nil {
		return domain.Species{}, err
	}
	if len(matches) == 0 || matches[0].Score < resolveMinScore {
		return domain.Species{}, fmt.Errorf("species %q: %w", text, domain.ErrNotFound)
	}
	if matches[0].Source == "exact" {
		return matches[0].Species, nil
	}
	if utf8.RuneCountInString(domain.NormalizeName(text)) < resolveMinQuery ||
		(len(matches) > 1 && matches[1].Score == matches[0].Score) {
		return domain.Species{}, domain.NewValidationError("name", "ambiguous guess")
	}
	return matches[0].Species, nil
}

func scoreName(query, name string) (Match, bool) {
	if name == "" {
		return Match{}, false
	}
	switch {
	case query == name:
		return Match{Score: 1, Source: "exact"}, true
	case strings.HasPrefix(name, query):
		return Match{Score: 0.9, Source: "prefix"}, true
	case strings.Contains(name, query):
		return Match{Score: 0.8, Source: "contains"}, true
	}

	// Fuzzy: whole name first, then each word so "badgr" finds "eurasian badger".
	if len(query) < 3 {
		return Match{}, false
	}
	candidates := append([]string{name}, strings.Fields(name)...)
	bestDist := -1
	for _, cand := range candidates {
		dist := levenshtein.ComputeDistance(query, cand)
		if dist > levenshteinLimit(len(cand)) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
		}
	}
	if bestDist < 0 {
		return Match{}, false
	}
	return Match{Score: 0.72 - 0.08*float64(bestDist), Source: "lev"}, true
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
