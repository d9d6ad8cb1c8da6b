// Package quality decides whether an observation shows a live, directly
// observed animal or only indirect evidence (tracks, scat, remains, ...).
//
// The upstream API guarantees "photographed, research grade, licensed" but
// not "the animal is visible", so these checks run on every candidate.
package quality

import (
	"strings"
	"unicode"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

// Rule identifies the check that rejected a record.
type Rule string

const (
	RuleDeadAnnotation     Rule = "annotation_dead"
	RuleEvidenceAnnotation Rule = "annotation_evidence"
	RuleBadValue           Rule = "annotation_bad_value"
	RuleStructuredText     Rule = "structured_text"
	RuleKeyword            Rule = "keyword"
)

// Controlled attribute and value ids of the observation annotation vocabulary.
const (
	attrAliveOrDead = 17
	attrEvidence    = 22

	valueDead     = 19
	valueOrganism = 24
)

// badValues are annotation values that disqualify a record whatever
// attribute they are attached to.
var badValues = map[int]struct{}{
	19: {}, // dead
	23: {}, // feather
	25: {}, // scat
	26: {}, // track
	27: {}, // bone
	28: {}, // molt
	29: {}, // gall
	30: {}, // egg
	31: {}, // hair
	32: {}, // leafmine
	35: {}, // construction
}

// structuredMarkers are matched against the lower-cased, whitespace-free
// observation field JSON.
var structuredMarkers = []string{
	`"aliveordead":"dead"`,
	`"alive/dead":"dead"`,
	`"evidenceofpresence":"track"`,
	`"evidenceofpresence":"tracks"`,
	`"evidenceofpresence":"scat"`,
	`"evidenceofpresence":"bone"`,
	`"evidenceofpresence":"bones"`,
	`"evidence":"track"`,
	`"evidence":"tracks"`,
	`"evidence":"scat"`,
	`"evidence":"dead"`,
	`"roadkill":"yes"`,
	`"dead":"yes"`,
}

// bannedKeywords are matched as substrings of the combined free text.
var bannedKeywords = []string{
	"track", "print", "paw",
	"scat", "feces", "dung",
	"burrow", "nest", "den",
	"molt", "shed",
	"dead", "roadkill", "carcass", "remains",
	"bone", "skull", "skeleton", "corpse",
	"specimen", "taxidermy",
	"construction", "web",
}

// IsLowQuality reports whether rec depicts unusable evidence rather than a
// live animal. It never panics; missing fields count as empty.
func IsLowQuality(rec domain.ObservationRecord) bool {
	_, rejected := Reason(rec)
	return rejected
}

// Reason runs the checks in order and returns the first rule that matched.
func Reason(rec domain.ObservationRecord) (Rule, bool) {
	if rule, ok := checkAnnotations(rec.Annotations); ok {
		return rule, true
	}
	if checkStructuredText(rec.StructuredText) {
		return RuleStructuredText, true
	}
	if checkFreeText(rec) {
		return RuleKeyword, true
	}
	return "", false
}

func checkAnnotations(annotations []domain.Annotation) (Rule, bool) {
	for _, a := range annotations {
		if a.AttributeID == attrAliveOrDead && a.ValueID == valueDead {
			return RuleDeadAnnotation, true
		}
		if a.AttributeID == attrEvidence && a.ValueID != valueOrganism {
			return RuleEvidenceAnnotation, true
		}
		if _, bad := badValues[a.ValueID]; bad {
			return RuleBadValue, true
		}
	}
	return "", false
}

func checkStructuredText(blob string) bool {
	if blob == "" {
		return false
	}
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, blob)
	for _, marker := range structuredMarkers {
		if strings.Contains(compact, marker) {
			return true
		}
	}
	return false
}

func checkFreeText(rec domain.ObservationRecord) bool {
	text := strings.ToLower(freeText(rec))
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, kw := range bannedKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// freeText joins every human-written field of the record.
func freeText(rec domain.ObservationRecord) string {
	parts := []string{rec.Description, rec.OccurrenceRemarks, rec.FieldNotes}
	if len(rec.Photos) > 0 {
		parts = append(parts, rec.Photos[0].Description, rec.Photos[0].Title)
	}
	parts = append(parts, strings.Join(rec.Tags, " "))
	return strings.Join(parts, " ")
}
