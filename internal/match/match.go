// internal/match/match.go
package match

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kestrelmotion/showreel-cli/internal/discovery"
)

// Scoring weights. Whole containment between description and visible text is
// the strongest signal, the accessible label second, the test identifier
// third; individual keyword hits accumulate underneath the containment bands.
const (
	WholeTextWeight = 100
	LabelWeight     = 80
	TestIDWeight    = 60
	KeywordWeight   = 10

	// minKeywordLen filters filler words. Words shorter than this never count.
	minKeywordLen = 3
)

// Keywords splits a description into lowercase match terms of length >= 3.
func Keywords(description string) []string {
	fields := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= minKeywordLen {
			out = append(out, f)
		}
	}
	return out
}

// Score computes the relevance of one discovered element against a free-text
// description. It is a pure function so the weighting can be unit-tested
// without a live page. A zero score means "no relation".
func Score(description string, el discovery.Element) int {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return 0
	}

	text := strings.ToLower(el.VisibleText)
	label := strings.ToLower(el.AriaLabel)
	testID := strings.ToLower(el.TestID)

	score := 0
	switch {
	case bandMatch(text, desc):
		score += WholeTextWeight
	case bandMatch(label, desc):
		score += LabelWeight
	case bandMatch(testID, desc):
		score += TestIDWeight
	}

	for _, kw := range Keywords(desc) {
		if strings.Contains(text, kw) || strings.Contains(label, kw) || strings.Contains(testID, kw) {
			score += KeywordWeight
		}
	}
	return score
}

// bandMatch reports whole-field affinity in either direction: a terse
// description contained in the field, or a verbose description that quotes
// the field in full. Checking both directions keeps a description that adds
// words around the field's text in the same band as the terse form.
func bandMatch(field, desc string) bool {
	return field != "" && (strings.Contains(field, desc) || strings.Contains(desc, field))
}

// FindByDescription ranks a snapshot's elements against the description.
// Results are ordered by descending score; ties keep discovery order. Elements
// scoring zero are excluded. "No match" is an expected outcome: the return
// value is then an empty, non-nil slice.
func FindByDescription(snap *discovery.Snapshot, description string) []discovery.Element {
	ranked := make([]discovery.Element, 0)
	if snap == nil {
		return ranked
	}

	type scored struct {
		el    discovery.Element
		score int
	}
	candidates := make([]scored, 0, snap.Len())
	for _, el := range snap.All() {
		if s := Score(description, el); s > 0 {
			candidates = append(candidates, scored{el: el, score: s})
		}
	}

	// SliceStable keeps discovery order for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	for _, c := range candidates {
		ranked = append(ranked, c.el)
	}
	return ranked
}
