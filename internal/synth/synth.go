// internal/synth/synth.go
package synth

import (
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/discovery"
)

// Validation score weights (summed, capped at 100).
const (
	weightMatchExists       = 30
	weightMatchVisible      = 25
	weightMatchInteractable = 25
	weightMatchNonEmpty     = 20
)

// Confidence bands, ordered by the strength of the textual overlap between
// the description and the top match.
const (
	confidenceText   = 90
	confidenceLabel  = 85
	confidenceTestID = 80
	confidenceWeak   = 70
)

// maxAlternates bounds the suggested fallback elements carried on a Validation.
const maxAlternates = 3

// Base delays per keyword class. Jitter is applied on top so two identical
// descriptions never replay with identical timing.
const (
	delayWait    = 3 * time.Second
	delayLoad    = 2 * time.Second
	delayQuick   = 300 * time.Millisecond
	delayDefault = 800 * time.Millisecond
	delayJitter  = 250 * time.Millisecond
)

// kindKeywords drives classification. Scanned in order; first hit wins and
// the default is a click.
var kindKeywords = []struct {
	kind  Kind
	words []string
}{
	{Hover, []string{"hover", "mouse over", "mouseover"}},
	{Type, []string{"type", "enter", "input", "fill"}},
	{Scroll, []string{"scroll", "move up", "move down"}},
	{Wait, []string{"wait", "pause"}},
	{KeyPress, []string{"press", "key "}},
}

// Synthesizer turns a description plus ranked matches into an Action. The
// random source is injected so tests can pin a seed.
type Synthesizer struct {
	rng    *rand.Rand
	logger *zap.Logger
}

// New creates a Synthesizer. A nil rng gets a time-seeded source.
func New(rng *rand.Rand, logger *zap.Logger) *Synthesizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{rng: rng, logger: logger.Named("synth")}
}

// Synthesize builds the action record for one description. matches must be
// ranked best-first (the matcher's output order). An empty match list is a
// legal input: the result then carries no target and zero confidence.
func (s *Synthesizer) Synthesize(description string, matches []discovery.Element) Action {
	act := Action{
		Kind:        ClassifyKind(description),
		Description: description,
		BaseDelay:   s.baseDelay(description),
	}

	if act.Kind == Type {
		if text, ok := QuotedText(description); ok {
			act.Text = text
		}
	}

	var alternates []discovery.Element
	if len(matches) > 0 {
		top := matches[0]
		act.Selector = top.Selector
		act.X, act.Y = top.Box.Center()
		act.HasTarget = true
		if len(matches) > 1 {
			alternates = matches[1:]
			if len(alternates) > maxAlternates {
				alternates = alternates[:maxAlternates]
			}
		}
	} else {
		s.logger.Debug("No grounding element for description", zap.String("description", description))
	}

	act.Validation = s.validate(matches, alternates)
	act.Confidence = Confidence(description, matches)
	return act
}

// ClassifyKind scans the description for action keywords. First match wins;
// anything unrecognized is a click.
func ClassifyKind(description string) Kind {
	desc := strings.ToLower(description)
	for _, entry := range kindKeywords {
		for _, w := range entry.words {
			if strings.Contains(desc, w) {
				return entry.kind
			}
		}
	}
	return Click
}

// QuotedText extracts the first double-quoted substring of the description,
// verbatim and without the quotes. ok is false when no complete quoted pair
// exists.
func QuotedText(description string) (text string, ok bool) {
	start := strings.IndexByte(description, '"')
	if start < 0 {
		return "", false
	}
	rest := description[start+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// validate computes the grounding sub-record from the ranked matches.
func (s *Synthesizer) validate(matches []discovery.Element, alternates []discovery.Element) Validation {
	v := Validation{Alternates: alternates}
	if len(matches) == 0 {
		return v
	}

	v.Exists = true
	for _, m := range matches {
		if m.Visible {
			v.Visible = true
		}
		if m.Visible && m.Enabled {
			v.Interactable = true
		}
	}

	v.Score = weightMatchExists + weightMatchNonEmpty
	if v.Visible {
		v.Score += weightMatchVisible
	}
	if v.Interactable {
		v.Score += weightMatchInteractable
	}
	if v.Score > 100 {
		v.Score = 100
	}
	return v
}

// Confidence scores the textual overlap between the description and the top
// match. The bands are deliberate: visible text beats the accessible label,
// which beats the test identifier; any match at all is still worth something.
func Confidence(description string, matches []discovery.Element) int {
	if len(matches) == 0 {
		return 0
	}
	desc := strings.ToLower(description)
	top := matches[0]

	if t := strings.ToLower(strings.TrimSpace(top.VisibleText)); t != "" && strings.Contains(desc, t) {
		return confidenceText
	}
	if l := strings.ToLower(strings.TrimSpace(top.AriaLabel)); l != "" && strings.Contains(desc, l) {
		return confidenceLabel
	}
	if id := strings.ToLower(strings.TrimSpace(top.TestID)); id != "" && strings.Contains(desc, id) {
		return confidenceTestID
	}
	return confidenceWeak
}

// baseDelay derives the pre-action delay from the description's pacing
// keywords, then jitters it.
func (s *Synthesizer) baseDelay(description string) time.Duration {
	desc := strings.ToLower(description)

	var base time.Duration
	switch {
	case strings.Contains(desc, "wait") || strings.Contains(desc, "pause"):
		base = delayWait
	case strings.Contains(desc, "load") || strings.Contains(desc, "appear"):
		base = delayLoad
	case strings.Contains(desc, "quick") || strings.Contains(desc, "fast"):
		base = delayQuick
	default:
		base = delayDefault
	}

	jitter := time.Duration(s.rng.Int63n(int64(2*delayJitter))) - delayJitter
	if base+jitter < 0 {
		return base
	}
	return base + jitter
}
