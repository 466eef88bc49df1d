// Package correlation implements the Correlation Engine (C8) and Timeline
// Reconstructor (C9): entity extraction, canonicalization, optional AI
// disambiguation, mandatory deduplication, and timeline/gap/pattern
// detection over one case's UnifiedAnalysis records (SPEC_FULL.md §4.8,
// §4.8.4).
package correlation

import (
	"regexp"
	"strings"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// honorifics are stripped before building a canonical key (§4.8.1). This
// list is deliberately short and English-centric — the corpus gives no
// grounding for a locale-aware title list.
var honorifics = map[string]bool{
	"mr": true, "mr.": true, "mrs": true, "mrs.": true, "ms": true, "ms.": true,
	"dr": true, "dr.": true, "prof": true, "prof.": true, "miss": true,
}

var punctuationPattern = regexp.MustCompile(`[^\w\s]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// initialPattern recognizes a single-letter initial with an optional
// trailing period, e.g. "S." in "S. Johnson".
var initialPattern = regexp.MustCompile(`^[a-z]\.?$`)

// CanonicalKey is the deterministic (name, type) comparison key invariant
// 4 is defined over. It builds on models.Normalize (lowercase + whitespace
// collapse) with the honorific-stripping and initials handling that
// function deliberately leaves to this package.
type CanonicalKey struct {
	Key         string // comparison key: for persons, surname plus first initial
	DisplayForm string // human-readable form, first-seen casing preserved
}

// Canonicalize strips honorifics and punctuation, collapses whitespace,
// lowercases for comparison, and for persons normalizes initials so that
// "S. Johnson" and "Sarah Johnson" share an initials-reduced key, so
// GroupOccurrences already puts them in one group (§4.8.1).
func Canonicalize(name string, entityType models.EntityType) CanonicalKey {
	display := strings.TrimSpace(name)
	stripped := punctuationPattern.ReplaceAllString(strings.ToLower(name), " ")
	stripped = whitespacePattern.ReplaceAllString(stripped, " ")
	stripped = strings.TrimSpace(stripped)

	words := strings.Fields(stripped)
	kept := words[:0:0]
	for _, w := range words {
		if honorifics[w] {
			continue
		}
		kept = append(kept, w)
	}

	key := strings.Join(kept, " ")
	if entityType == models.EntityPerson {
		key = initialsReducedKey(kept)
	}
	return CanonicalKey{Key: key, DisplayForm: display}
}

// initialsReducedKey collapses a person's name to its last token plus the
// first letter of its first token, so "S Johnson" and "Sarah Johnson"
// reduce to the same key ("johnson s") and remain distinguishable from
// "Mark Johnson" ("johnson m"). Any two names with the same surname and
// first initial share a key; a single-token name ("Sarah") keys on that
// token alone and is left for the AI-disambiguation pass (§4.8.2).
func initialsReducedKey(words []string) string {
	if len(words) == 0 {
		return ""
	}
	last := words[len(words)-1]
	if len(words) == 1 {
		return last
	}
	first := words[0]
	initial := first
	if len([]rune(first)) > 0 {
		initial = strings.TrimSuffix(first, ".")
		if !initialPattern.MatchString(initial + ".") {
			initial = string([]rune(first)[0])
		} else {
			initial = string([]rune(initial)[0])
		}
	}
	return last + " " + initial
}
