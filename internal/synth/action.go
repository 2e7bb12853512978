// internal/synth/action.go
package synth

import (
	"time"

	"github.com/kestrelmotion/showreel-cli/internal/discovery"
)

// Kind enumerates the interaction kinds the synthesizer can emit.
type Kind int

const (
	Click Kind = iota
	Hover
	Type
	Scroll
	Wait
	KeyPress
)

// String returns the wire/report name of the kind.
func (k Kind) String() string {
	switch k {
	case Click:
		return "click"
	case Hover:
		return "hover"
	case Type:
		return "type"
	case Scroll:
		return "scroll"
	case Wait:
		return "wait"
	case KeyPress:
		return "keypress"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Validation records how well-grounded an action is in real page elements.
// Score is a 0-100 weighted sum over match existence, visibility and
// interactability.
type Validation struct {
	Exists       bool                `json:"exists"`
	Visible      bool                `json:"visible"`
	Interactable bool                `json:"interactable"`
	Score        int                 `json:"score"`
	Alternates   []discovery.Element `json:"alternates,omitempty"`
}

// Action is one intended interaction, immutable after synthesis. Either
// Selector or the X/Y fallback coordinates locate the target; when neither is
// set the action was synthesized without a grounding element and carries zero
// confidence.
type Action struct {
	Kind        Kind          `json:"kind"`
	Selector    string        `json:"selector,omitempty"`
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
	HasTarget   bool          `json:"hasTarget"`
	Text        string        `json:"text,omitempty"`
	BaseDelay   time.Duration `json:"baseDelayMs"`
	Description string        `json:"description"`
	Validation  Validation    `json:"validation"`
	// Confidence measures textual overlap between the description and its
	// best match, distinct from the validation score.
	Confidence int `json:"confidence"`
}
