package domain

import (
	"strings"
)

// NormalizeName prepares a species name or a typed guess for comparison:
// lower-cased, surrounding whitespace trimmed, inner whitespace runs
// (including tabs and newlines) collapsed to a single space.
//
// Hyphens and apostrophes are kept: "Grey-headed" and "Grey headed" are
// different strings here, fuzzy matching handles the rest.
func NormalizeName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, " ")
}
