// internal/orchestrator/runner.go
//
// Runner sequences a scenario's beats against a live page. The failure policy
// is deliberate: a demonstration video is worth more mostly-complete than
// aborted on first failure, so each beat's outcome is captured as a typed
// result and the run always proceeds to the next beat. Only acquiring the
// page at all is fatal.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/config"
	"github.com/kestrelmotion/showreel-cli/internal/discovery"
	"github.com/kestrelmotion/showreel-cli/internal/humanize"
	"github.com/kestrelmotion/showreel-cli/internal/match"
	"github.com/kestrelmotion/showreel-cli/internal/report"
	"github.com/kestrelmotion/showreel-cli/internal/scenario"
	"github.com/kestrelmotion/showreel-cli/internal/synth"
	"github.com/kestrelmotion/showreel-cli/internal/tts"
)

// Runner executes recording runs.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	browser Browser
	encoder Encoder
	tts     tts.Provider

	discoverer  Discoverer
	synthesizer *synth.Synthesizer
	humanizer   *humanize.Humanizer
	mover       *humanize.Mover
}

// Discoverer is the minimal discovery dependency, satisfied by
// *discovery.Discoverer.
type Discoverer interface {
	Discover(ctx context.Context, page discovery.Evaluator) (*discovery.Snapshot, error)
}

// NewRunner wires a runner. rng seeds every stochastic component so a pinned
// seed reproduces a run's timing and motion exactly.
func NewRunner(cfg *config.Config, logger *zap.Logger, browser Browser, enc Encoder, speech tts.Provider, rng *rand.Rand) (*Runner, error) {
	if cfg == nil || logger == nil || browser == nil || enc == nil || speech == nil {
		return nil, fmt.Errorf("cannot initialize runner with nil dependencies")
	}
	if rng == nil {
		seed := cfg.Humanize.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	return &Runner{
		cfg:         cfg,
		logger:      logger.Named("runner"),
		browser:     browser,
		encoder:     enc,
		tts:         speech,
		discoverer:  discovery.New(logger),
		synthesizer: synth.New(rng, logger),
		humanizer:   humanize.New(rng),
		mover:       humanize.NewMover(rng, logger),
	}, nil
}

// Run executes the scenario end to end and always returns a report, even
// when every beat failed. The page handle is released in all paths.
func (r *Runner) Run(ctx context.Context, sc *scenario.Scenario) (*report.RunReport, error) {
	rep := report.NewRunReport(sc.Name, sc.URL)
	runDir := filepath.Join(r.cfg.Recorder.CaptureDir, rep.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return rep, fmt.Errorf("creating capture dir: %w", err)
	}

	page, err := r.browser.NewPage(ctx)
	if err != nil {
		return rep, fmt.Errorf("acquiring page: %w", err)
	}
	// The one hard resource guarantee: the page is released no matter how
	// the run ends.
	defer page.Close()

	if err := page.Navigate(ctx, sc.URL); err != nil {
		// Without a loaded page no beat can succeed; record them all as
		// failed rather than pretending they ran.
		for _, beat := range sc.Beats {
			rep.Append(report.BeatResult{
				Name:    beat.Name,
				Status:  report.BeatFailed,
				Error:   fmt.Sprintf("initial navigation failed: %v", err),
				Started: time.Now(),
			})
		}
		rep.Elapsed = time.Since(rep.Started)
		return rep, nil
	}

	var stills []string
	for i, beat := range sc.Beats {
		result := r.runBeat(ctx, page, runDir, i, beat)
		rep.Append(result)
		if still := filepath.Join(runDir, fmt.Sprintf("beat-%02d.png", i+1)); fileExists(still) {
			stills = append(stills, still)
		}
		if result.Status == report.BeatFailed {
			r.logger.Warn("Beat failed, continuing",
				zap.String("beat", beat.Name), zap.String("error", result.Error))
		}
	}

	r.assemble(ctx, sc, rep, runDir, stills)
	rep.Elapsed = time.Since(rep.Started)
	return rep, nil
}

// runBeat executes one beat and converts any error into the beat's result.
func (r *Runner) runBeat(ctx context.Context, page Page, runDir string, index int, beat scenario.Beat) report.BeatResult {
	result := report.BeatResult{
		Name:    beat.Name,
		Status:  report.BeatSucceeded,
		Started: time.Now(),
	}
	defer func() { result.Elapsed = time.Since(result.Started) }()

	r.logger.Info("Running beat", zap.Int("index", index+1), zap.String("name", beat.Name))

	// A still per beat feeds the slideshow fallback.
	still := filepath.Join(runDir, fmt.Sprintf("beat-%02d.png", index+1))
	if err := page.Screenshot(ctx, still, false); err != nil {
		r.logger.Warn("Beat still capture failed", zap.Error(err))
	}

	frameDir := filepath.Join(runDir, fmt.Sprintf("frames-%02d", index+1))
	recording := true
	if err := page.StartScreencast(ctx, frameDir, r.cfg.Recorder.FPS); err != nil {
		// Recording trouble degrades the output, it does not fail the beat.
		r.logger.Warn("Screencast unavailable for beat", zap.Error(err))
		recording = false
	}
	result.FrameDir = frameDir

	beatErr := r.runSteps(ctx, page, beat, &result)

	// Hold the page until the beat's on-video duration has elapsed.
	if remaining := beat.Duration - time.Since(result.Started); remaining > 0 {
		if err := page.Sleep(ctx, remaining); err != nil && beatErr == nil {
			beatErr = err
		}
	}

	if recording {
		if _, err := page.StopScreencast(); err != nil {
			r.logger.Warn("Stopping screencast failed", zap.Error(err))
		}
	}

	if beat.Narration != "" {
		if path, err := r.narrate(ctx, runDir, index, beat.Narration); err != nil {
			r.logger.Warn("Narration failed", zap.String("beat", beat.Name), zap.Error(err))
		} else if path != "" {
			result.Narrated = true
		}
	}

	if beatErr != nil {
		result.Status = report.BeatFailed
		result.Error = beatErr.Error()
	}
	return result
}

// runSteps walks a beat's steps. The first step error fails the beat; the
// actions synthesized so far stay on the result for the report.
func (r *Runner) runSteps(ctx context.Context, page Page, beat scenario.Beat, result *report.BeatResult) error {
	for i, step := range beat.Steps {
		var act humanize.Action
		if step.IsDescribed() {
			snap, err := r.Discover(ctx, page)
			if err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			matches := match.FindByDescription(snap, step.Describe)
			act = r.humanizer.Humanize(r.synthesizer.Synthesize(step.Describe, matches))
		} else {
			act = r.humanizer.Humanize(literalAction(step))
		}
		result.Actions = append(result.Actions, act)

		if err := r.replay(ctx, page, act); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, act.Kind, err)
		}
	}
	return nil
}

// Discover runs a discovery pass via the injected discoverer.
func (r *Runner) Discover(ctx context.Context, page discovery.Evaluator) (*discovery.Snapshot, error) {
	return r.discoverer.Discover(ctx, page)
}

// literalAction converts a literal primitive step into an action record with
// full confidence: the author named the selector themselves.
func literalAction(step scenario.Step) synth.Action {
	act := synth.Action{
		Kind:        synth.ClassifyKind(step.Action),
		Selector:    step.Selector,
		Text:        step.Text,
		Description: step.Action,
		HasTarget:   step.Selector != "",
		BaseDelay:   step.Wait,
		Confidence:  100,
	}
	if step.Action == "keypress" || step.Key != "" {
		act.Kind = synth.KeyPress
		act.Text = step.Key
	}
	if step.Action == "wait" {
		act.Kind = synth.Wait
	}
	return act
}

// replay performs one humanized action against the page.
func (r *Runner) replay(ctx context.Context, page Page, act humanize.Action) error {
	if act.BaseDelay > 0 {
		if err := page.Sleep(ctx, act.BaseDelay); err != nil {
			return err
		}
	}

	// Cursor travel first, so clicks land where the viewer saw the cursor go.
	if act.HasTarget && (act.X != 0 || act.Y != 0) {
		target := humanize.Vec{X: act.X, Y: act.Y}
		if err := r.mover.MoveTo(ctx, page, target, act.Pattern); err != nil {
			return err
		}
	}

	var err error
	switch act.Kind {
	case synth.Click:
		if act.Selector != "" {
			err = page.Click(ctx, act.Selector)
		} else {
			err = r.mover.Click(ctx, page)
		}
	case synth.Hover:
		if act.Selector != "" {
			err = page.Hover(ctx, act.Selector)
		}
	case synth.Type:
		if act.Selector != "" && act.Text != "" {
			err = page.Type(ctx, act.Selector, act.Text)
		}
	case synth.Scroll:
		err = page.ScrollBy(ctx, 0, 400)
	case synth.Wait:
		// The base delay above already held the page.
	case synth.KeyPress:
		if act.Text != "" {
			err = page.Press(ctx, act.Text)
		}
	}
	if err != nil {
		return err
	}

	if act.VisibilityDelay > 0 {
		return page.Sleep(ctx, act.VisibilityDelay)
	}
	return nil
}

// narrate synthesizes one beat's narration clip to disk.
func (r *Runner) narrate(ctx context.Context, runDir string, index int, text string) (string, error) {
	audio, err := r.tts.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		// The noop provider; narration is configured off.
		return "", nil
	}
	path := filepath.Join(runDir, fmt.Sprintf("narration-%02d.mp3", index+1))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("writing narration: %w", err)
	}
	return path, nil
}

// assemble turns the run's captures into the final video, degrading to the
// slideshow fallback when the frame-accurate path fails.
func (r *Runner) assemble(ctx context.Context, sc *scenario.Scenario, rep *report.RunReport, runDir string, stills []string) {
	if err := os.MkdirAll(r.cfg.Recorder.OutputDir, 0o755); err != nil {
		r.logger.Error("Cannot create output dir", zap.Error(err))
		return
	}
	final := filepath.Join(r.cfg.Recorder.OutputDir,
		fmt.Sprintf("%s-%s.mp4", sanitizeName(sc.Name), time.Now().Format("20060102-150405")))

	var segments []string
	encodeFailed := false
	for i := range rep.Beats {
		br := &rep.Beats[i]
		if br.FrameDir == "" || !dirHasFrames(br.FrameDir) {
			continue
		}
		seg := filepath.Join(runDir, fmt.Sprintf("segment-%02d.mp4", i+1))
		if err := r.encoder.FramesToVideo(ctx, br.FrameDir, r.cfg.Recorder.FPS, seg); err != nil {
			r.logger.Warn("Segment encode failed", zap.String("beat", br.Name), zap.Error(err))
			encodeFailed = true
			continue
		}

		if narr := filepath.Join(runDir, fmt.Sprintf("narration-%02d.mp3", i+1)); br.Narrated && fileExists(narr) {
			muxed := filepath.Join(runDir, fmt.Sprintf("segment-%02d-narrated.mp4", i+1))
			if err := r.encoder.MuxAudio(ctx, seg, narr, muxed); err != nil {
				r.logger.Warn("Narration mux failed", zap.String("beat", br.Name), zap.Error(err))
			} else {
				seg = muxed
			}
		}
		br.Segment = seg
		segments = append(segments, seg)
	}

	switch {
	case len(segments) > 0:
		if err := r.encoder.Concat(ctx, segments, final); err != nil {
			r.logger.Error("Final concat failed", zap.Error(err))
			encodeFailed = true
		} else {
			rep.Output = final
		}
	default:
		encodeFailed = true
	}

	if encodeFailed && rep.Output == "" && r.cfg.Encoder.SlideshowFallback && len(stills) > 0 {
		r.logger.Warn("Falling back to still-image slideshow")
		if err := r.encoder.Slideshow(ctx, stills, 3*time.Second, final); err != nil {
			r.logger.Error("Slideshow fallback failed", zap.Error(err))
			return
		}
		rep.Output = final
		rep.Fallback = true
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirHasFrames(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "frame-*.jpg"))
	return err == nil && len(matches) > 0
}

func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ':
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "run"
	}
	return string(out)
}
