// internal/report/report.go
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/kestrelmotion/showreel-cli/internal/discovery"
	"github.com/kestrelmotion/showreel-cli/internal/humanize"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BeatStatus is the typed outcome of one beat.
type BeatStatus string

const (
	BeatSucceeded BeatStatus = "succeeded"
	BeatFailed    BeatStatus = "failed"
	BeatSkipped   BeatStatus = "skipped"
)

// BeatResult records what happened to one beat. A failed beat carries its
// error text; the run continues regardless.
type BeatResult struct {
	Name     string            `json:"name"`
	Status   BeatStatus        `json:"status"`
	Error    string            `json:"error,omitempty"`
	Actions  []humanize.Action `json:"actions,omitempty"`
	Started  time.Time         `json:"started"`
	Elapsed  time.Duration     `json:"elapsedMs"`
	Narrated bool              `json:"narrated,omitempty"`
	FrameDir string            `json:"frameDir,omitempty"`
	Segment  string            `json:"segment,omitempty"`
}

// RunReport is the one-per-run summary written next to the output video.
type RunReport struct {
	RunID     string        `json:"runId"`
	Scenario  string        `json:"scenario"`
	URL       string        `json:"url"`
	Started   time.Time     `json:"started"`
	Elapsed   time.Duration `json:"elapsedMs"`
	Beats     []BeatResult  `json:"beats"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Output    string        `json:"output,omitempty"`
	// Fallback is set when the still-image slideshow replaced the
	// frame-accurate encode.
	Fallback bool `json:"fallback,omitempty"`
}

// NewRunReport starts a report with a fresh run ID.
func NewRunReport(scenarioName, url string) *RunReport {
	return &RunReport{
		RunID:    uuid.NewString(),
		Scenario: scenarioName,
		URL:      url,
		Started:  time.Now(),
	}
}

// Append adds a beat outcome and keeps the totals current.
func (r *RunReport) Append(br BeatResult) {
	r.Beats = append(r.Beats, br)
	switch br.Status {
	case BeatSucceeded:
		r.Succeeded++
	case BeatFailed:
		r.Failed++
	case BeatSkipped:
		r.Skipped++
	}
}

// UIElementReport aggregates a batch of synthesized actions into the
// element-grounding summary the plan command emits.
type UIElementReport struct {
	Scenario         string         `json:"scenario"`
	Generated        time.Time      `json:"generated"`
	TotalActions     int            `json:"totalActions"`
	Grounded         int            `json:"grounded"`
	AvgValidation    float64        `json:"avgValidationScore"`
	AvgConfidence    float64        `json:"avgConfidence"`
	CategoryCoverage map[string]int `json:"categoryCoverage"`
	Issues           []string       `json:"issues,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
	Suggestions      []string       `json:"suggestions,omitempty"`
}

// BuildElementReport rolls up actions plus the snapshot they were grounded
// against.
func BuildElementReport(scenarioName string, actions []humanize.Action, snap *discovery.Snapshot) *UIElementReport {
	rep := &UIElementReport{
		Scenario:         scenarioName,
		Generated:        time.Now(),
		TotalActions:     len(actions),
		CategoryCoverage: make(map[string]int),
	}

	if snap != nil {
		for _, cat := range discovery.Categories() {
			rep.CategoryCoverage[cat.String()] = len(snap.ByCategory(cat))
		}
	}

	var sumValidation, sumConfidence int
	for _, act := range actions {
		sumValidation += act.Validation.Score
		sumConfidence += act.Confidence
		if act.HasTarget {
			rep.Grounded++
			continue
		}
		rep.Issues = append(rep.Issues,
			fmt.Sprintf("no matching element for %q", act.Description))
	}
	if len(actions) > 0 {
		rep.AvgValidation = float64(sumValidation) / float64(len(actions))
		rep.AvgConfidence = float64(sumConfidence) / float64(len(actions))
	}

	for _, act := range actions {
		if act.HasTarget && act.Confidence < 80 {
			rep.Warnings = append(rep.Warnings,
				fmt.Sprintf("weak textual match for %q (confidence %d)", act.Description, act.Confidence))
		}
		if len(act.Validation.Alternates) > 0 && act.Confidence < 90 {
			rep.Suggestions = append(rep.Suggestions,
				fmt.Sprintf("%q has %d alternate candidates worth reviewing",
					act.Description, len(act.Validation.Alternates)))
		}
	}
	return rep
}

// Write serializes any report as indented JSON under dir with a
// timestamp-derived name. It returns the written path.
func Write(dir, prefix string, v interface{}) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.json", prefix, time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report %s: %w", path, err)
	}
	return path, nil
}
