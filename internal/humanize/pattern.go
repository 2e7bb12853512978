// internal/humanize/pattern.go
package humanize

import "math/rand"

// PatternName identifies one of the canonical mouse-movement personas.
type PatternName string

const (
	Natural     PatternName = "natural"
	Hesitant    PatternName = "hesitant"
	Confident   PatternName = "confident"
	Exploratory PatternName = "exploratory"
)

// Speed is the qualitative pace tag of a pattern.
type Speed string

const (
	SpeedSlow     Speed = "slow"
	SpeedModerate Speed = "moderate"
	SpeedFast     Speed = "fast"
	SpeedVariable Speed = "variable"
)

// PathShape is the qualitative trajectory tag of a pattern.
type PathShape string

const (
	PathDirect   PathShape = "direct"
	PathCurved   PathShape = "curved"
	PathZigzag   PathShape = "zigzag"
	PathHesitant PathShape = "hesitant"
)

// Pattern is the fixed profile of one movement persona. PausePoints are
// fractional positions along the trajectory, each in [0,1], where the cursor
// briefly stalls. Generated once per action and never reused.
type Pattern struct {
	Name              PatternName `json:"name"`
	Speed             Speed       `json:"speed"`
	Path              PathShape   `json:"path"`
	OvershootChance   float64     `json:"overshootChance"`
	Overshoot         bool        `json:"overshoot"`
	Correction        bool        `json:"correction"`
	PausePoints       []float64   `json:"pausePoints,omitempty"`
	// Curvature scales how far the Bezier control points bow away from
	// the straight line between start and target.
	Curvature float64 `json:"-"`
}

// profiles is the single canonical parameter set. The source material carried
// two diverging humanizer variants; these values are the reconciled choice.
var profiles = map[PatternName]Pattern{
	Natural: {
		Name:            Natural,
		Speed:           SpeedModerate,
		Path:            PathCurved,
		OvershootChance: 0.25,
		Curvature:       0.12,
	},
	Hesitant: {
		Name:            Hesitant,
		Speed:           SpeedSlow,
		Path:            PathHesitant,
		OvershootChance: 0.45,
		Curvature:       0.18,
	},
	Confident: {
		Name:            Confident,
		Speed:           SpeedFast,
		Path:            PathDirect,
		OvershootChance: 0.10,
		Curvature:       0.05,
	},
	Exploratory: {
		Name:            Exploratory,
		Speed:           SpeedVariable,
		Path:            PathZigzag,
		OvershootChance: 0.35,
		Curvature:       0.25,
	},
}

// Profile returns the fixed profile for a persona name.
func Profile(name PatternName) Pattern {
	p, ok := profiles[name]
	if !ok {
		return profiles[Natural]
	}
	return p
}

// rollPattern instantiates a persona profile with per-action randomness:
// the overshoot flag is drawn against the profile's chance, a correction
// follows any overshoot, and 0-2 pause points are scattered along the path.
func rollPattern(name PatternName, rng *rand.Rand) Pattern {
	p := Profile(name)
	p.Overshoot = rng.Float64() < p.OvershootChance
	p.Correction = p.Overshoot || rng.Float64() < 0.2

	nPauses := rng.Intn(3)
	if p.Path == PathHesitant && nPauses == 0 {
		nPauses = 1
	}
	for i := 0; i < nPauses; i++ {
		// Keep pauses away from the endpoints.
		p.PausePoints = append(p.PausePoints, 0.15+rng.Float64()*0.7)
	}
	return p
}
