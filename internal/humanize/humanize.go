// internal/humanize/humanize.go
//
// Humanizer expands a terse synthesized action into the richer plan a human
// operator would produce on camera: a movement persona, a set of plausible
// mistakes, and a viewing delay long enough for a recorded clip to stay
// legible. It is pure: the only inputs are the action and the injected
// random source, and there is no I/O.
package humanize

import (
	"math/rand"
	"strings"
	"time"

	"github.com/kestrelmotion/showreel-cli/internal/synth"
)

// Visibility delays keep recorded footage watchable. These are deliberately
// much larger than the synthesizer's interaction delays.
const (
	visibilityWait    = 5 * time.Second
	visibilityLoad    = 4 * time.Second
	visibilityDefault = 2 * time.Second
	visibilityJitter  = 500 * time.Millisecond
)

// Action is a synthesized action enriched with humanization metadata.
type Action struct {
	synth.Action
	Pattern         Pattern       `json:"pattern"`
	Mistakes        []Mistake     `json:"mistakes,omitempty"`
	VisibilityDelay time.Duration `json:"visibilityDelayMs"`
}

// Humanizer attaches movement personas and mistake sets to actions.
type Humanizer struct {
	rng *rand.Rand
}

// New creates a Humanizer around an injected random source. A nil rng gets a
// time-seeded one; tests pass a seeded source and assert exact draws.
func New(rng *rand.Rand) *Humanizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Humanizer{rng: rng}
}

// Humanize draws the persona, mistakes and visibility delay for one action.
// Persona choice is biased by kind: clicks stay in the careful half of the
// catalogue, hovers are always confident (a hover that wanders reads as a
// misclick on video), everything else draws uniformly.
func (h *Humanizer) Humanize(act synth.Action) Action {
	out := Action{Action: act}

	switch act.Kind {
	case synth.Click:
		if h.rng.Intn(2) == 0 {
			out.Pattern = rollPattern(Natural, h.rng)
		} else {
			out.Pattern = rollPattern(Hesitant, h.rng)
		}
	case synth.Hover:
		out.Pattern = rollPattern(Confident, h.rng)
	default:
		names := []PatternName{Natural, Hesitant, Confident, Exploratory}
		out.Pattern = rollPattern(names[h.rng.Intn(len(names))], h.rng)
	}

	out.Mistakes = rollMistakes(h.rng, act.Kind == synth.Click)
	out.VisibilityDelay = h.visibilityDelay(act.Description)
	return out
}

// visibilityDelay derives the on-camera dwell time from pacing keywords.
func (h *Humanizer) visibilityDelay(description string) time.Duration {
	desc := strings.ToLower(description)

	var base time.Duration
	switch {
	case strings.Contains(desc, "wait") || strings.Contains(desc, "pause"):
		base = visibilityWait
	case strings.Contains(desc, "load") || strings.Contains(desc, "appear"):
		base = visibilityLoad
	default:
		base = visibilityDefault
	}

	jitter := time.Duration(h.rng.Int63n(int64(2 * visibilityJitter)))
	return base + jitter - visibilityJitter
}
