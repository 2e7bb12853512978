// internal/humanize/mistake.go
package humanize

import "math/rand"

// MistakeKind enumerates the simulated human errors attached to an action.
// Mistakes are descriptive metadata for the recording plan; they do not change
// what is replayed against the browser.
type MistakeKind string

const (
	MistakeOvershoot    MistakeKind = "overshoot"
	MistakeDoubleClick  MistakeKind = "double-click"
	MistakeHesitation   MistakeKind = "hesitation"
	MistakeWrongElement MistakeKind = "wrong-element"
)

// Mistake pairs an error with the recovery a human would perform.
type Mistake struct {
	Kind        MistakeKind `json:"kind"`
	Description string      `json:"description"`
	Recovery    string      `json:"recovery"`
}

// Attachment probabilities, drawn independently per action.
const (
	overshootChance    = 0.40
	doubleClickChance  = 0.15
	hesitationChance   = 0.60
	wrongElementChance = 0.10
)

// rollMistakes draws the mistake set for one action. forClick enables the
// double-click mistake, which only makes sense for click actions.
func rollMistakes(rng *rand.Rand, forClick bool) []Mistake {
	var out []Mistake

	if rng.Float64() < overshootChance {
		out = append(out, Mistake{
			Kind:        MistakeOvershoot,
			Description: "cursor travels past the target before settling",
			Recovery:    "small corrective movement back onto the target",
		})
	}
	if forClick && rng.Float64() < doubleClickChance {
		out = append(out, Mistake{
			Kind:        MistakeDoubleClick,
			Description: "an accidental second click lands on the same spot",
			Recovery:    "none needed, the second click is absorbed by the target",
		})
	}
	if rng.Float64() < hesitationChance {
		out = append(out, Mistake{
			Kind:        MistakeHesitation,
			Description: "cursor idles near the target while the user re-reads the label",
			Recovery:    "proceed after a short visual confirmation pause",
		})
	}
	if rng.Float64() < wrongElementChance {
		out = append(out, Mistake{
			Kind:        MistakeWrongElement,
			Description: "cursor drifts toward a neighbouring element first",
			Recovery:    "redirect to the intended target before any press",
		})
	}
	return out
}
