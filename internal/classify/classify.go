// Package classify maps raw parameter names to normalized keys and
// substance categories using a fixed vocabulary.
package classify

import (
	"regexp"
	"strings"

	"github.com/keepnetics/waterzone/internal/ingest"
)

var (
	asQualifier   = regexp.MustCompile(`\s+as\s+[a-z0-9\(\)]+`)
	parenthetical = regexp.MustCompile(`\(.*?\)`)
	disallowed    = regexp.MustCompile(`[^a-z0-9\+\-\. ]`)
	spaceRuns     = regexp.MustCompile(`\s+`)
)

// Normalize reduces a printed parameter name to its lookup key:
// lowercase, no trailing "as <token>" qualifier, no parenthesized
// annotations, only [a-z0-9+-. ] characters, single spaces, and synonym
// spellings folded to their canonical form.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = asQualifier.ReplaceAllString(s, "")
	s = parenthetical.ReplaceAllString(s, "")
	s = disallowed.ReplaceAllString(s, "")
	s = strings.TrimSpace(spaceRuns.ReplaceAllString(s, " "))
	if canon, ok := synonyms[s]; ok {
		return canon
	}
	return s
}

// Classify buckets a parameter by its normalized name. Membership in the
// heavy-metal set wins, then the pesticide set; everything else,
// including exotic parameters we have never seen, is a chemical.
func Classify(name string) ingest.Category {
	key := Normalize(name)
	if _, ok := heavyMetals[key]; ok {
		return ingest.CategoryHeavyMetal
	}
	if _, ok := pesticides[key]; ok {
		return ingest.CategoryPesticide
	}
	return ingest.CategoryChemical
}

// Annotate converts a raw extraction record into a persistable
// measurement, attaching the normalized key and category and coercing
// the sample counters.
func Annotate(r ingest.RawRecord) ingest.Measurement {
	return ingest.Measurement{
		Parameter:       r.Parameter,
		ParameterNorm:   Normalize(r.Parameter),
		Category:        string(Classify(r.Parameter)),
		Units:           r.Units,
		RegulatoryLimit: r.RegulatoryLimit,
		Min:             r.Min,
		Mean:            r.Mean,
		Max:             r.Max,
		SamplesTotal:    ingest.CoerceInt(r.SamplesTotal),
		SamplesContrav:  ingest.CoerceInt(r.Contravening),
		PctContrav:      r.PctContravening,
	}
}
