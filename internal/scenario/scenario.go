// internal/scenario/scenario.go
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one declarative recording plan: a target, a viewport, and an
// ordered list of beats.
type Scenario struct {
	Name     string    `yaml:"name" json:"name"`
	URL      string    `yaml:"url" json:"url"`
	Viewport *Viewport `yaml:"viewport,omitempty" json:"viewport,omitempty"`
	Beats    []Beat    `yaml:"beats" json:"beats"`
}

// Viewport overrides the configured browser window size for this scenario.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Beat is one named, timed unit of the plan. Duration is the minimum on-video
// length of the beat: if its steps finish early, the recorder holds the page
// until the duration elapses.
type Beat struct {
	Name      string        `yaml:"name" json:"name"`
	Duration  time.Duration `yaml:"duration" json:"duration"`
	Narration string        `yaml:"narration,omitempty" json:"narration,omitempty"`
	Steps     []Step        `yaml:"steps" json:"steps"`
}

// Step is either a natural-language description to be matched against the
// live page (Describe) or a literal interaction primitive. Exactly one form
// is used per step.
type Step struct {
	// Describe is matched, synthesized and humanized at runtime.
	Describe string `yaml:"describe,omitempty" json:"describe,omitempty"`

	// Literal primitive fields.
	Action   string        `yaml:"action,omitempty" json:"action,omitempty"`
	Selector string        `yaml:"selector,omitempty" json:"selector,omitempty"`
	Text     string        `yaml:"text,omitempty" json:"text,omitempty"`
	Key      string        `yaml:"key,omitempty" json:"key,omitempty"`
	Wait     time.Duration `yaml:"wait,omitempty" json:"wait,omitempty"`
}

// IsDescribed reports whether the step goes through the matching pipeline.
func (s Step) IsDescribed() bool { return s.Describe != "" }

// UnmarshalYAML decodes a beat, accepting durations either as Go duration
// strings ("8s") or as integer seconds.
func (b *Beat) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name      string    `yaml:"name"`
		Duration  yaml.Node `yaml:"duration"`
		Narration string    `yaml:"narration"`
		Steps     []Step    `yaml:"steps"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	d, err := decodeDuration(&raw.Duration)
	if err != nil {
		return fmt.Errorf("beat %q duration: %w", raw.Name, err)
	}
	*b = Beat{Name: raw.Name, Duration: d, Narration: raw.Narration, Steps: raw.Steps}
	return nil
}

// UnmarshalYAML decodes a step with the same duration convention for wait.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Describe string    `yaml:"describe"`
		Action   string    `yaml:"action"`
		Selector string    `yaml:"selector"`
		Text     string    `yaml:"text"`
		Key      string    `yaml:"key"`
		Wait     yaml.Node `yaml:"wait"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	w, err := decodeDuration(&raw.Wait)
	if err != nil {
		return fmt.Errorf("step wait: %w", err)
	}
	*s = Step{
		Describe: raw.Describe,
		Action:   raw.Action,
		Selector: raw.Selector,
		Text:     raw.Text,
		Key:      raw.Key,
		Wait:     w,
	}
	return nil
}

// decodeDuration reads an optional duration node: absent or null means zero,
// integers are seconds, strings go through time.ParseDuration.
func decodeDuration(node *yaml.Node) (time.Duration, error) {
	if node.Kind == 0 || node.Tag == "!!null" {
		return 0, nil
	}
	var secs int64
	if err := node.Decode(&secs); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return 0, fmt.Errorf("expected a duration string or integer seconds")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// Load reads, parses and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates raw YAML against the scenario schema and unmarshals it.
func Parse(data []byte) (*Scenario, error) {
	if err := ValidateYAML(data); err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}

	for _, beat := range sc.Beats {
		for j, step := range beat.Steps {
			literal := step.Action != ""
			if step.IsDescribed() == literal {
				return nil, fmt.Errorf(
					"beat %q step %d: exactly one of describe or action must be set",
					beat.Name, j+1)
			}
		}
	}
	return &sc, nil
}
