// Filename: internal/orchestrator/runner_test.go
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/config"
	"github.com/kestrelmotion/showreel-cli/internal/humanize"
	"github.com/kestrelmotion/showreel-cli/internal/report"
	"github.com/kestrelmotion/showreel-cli/internal/scenario"
	"github.com/kestrelmotion/showreel-cli/internal/synth"
	"github.com/kestrelmotion/showreel-cli/internal/tts"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePage is a scripted Page. Discovery returns pageResult, navigation and
// interactions record themselves, and failures are injected per selector.
type fakePage struct {
	mu sync.Mutex

	pageResult  string
	navigated   []string
	clicks      []string
	typed       map[string]string
	pressed     []string
	mouseEvents []humanize.MouseEvent
	sleeps      []time.Duration

	navigateErr    error
	failSelector   string
	screencastDirs []string
	frames         int
	closed         bool
	onClose        func()
}

func newFakePage(pageResult string) *fakePage {
	return &fakePage{pageResult: pageResult, typed: map[string]string{}}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.navigateErr != nil {
		return p.navigateErr
	}
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if selector == p.failSelector && p.failSelector != "" {
		return fmt.Errorf("element %s detached", selector)
	}
	p.clicks = append(p.clicks, selector)
	return nil
}

func (p *fakePage) Hover(ctx context.Context, selector string) error { return nil }

func (p *fakePage) Type(ctx context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typed[selector] = text
	return nil
}

func (p *fakePage) Press(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pressed = append(p.pressed, key)
	return nil
}

func (p *fakePage) ScrollBy(ctx context.Context, dx, dy float64) error { return nil }

func (p *fakePage) Screenshot(ctx context.Context, path string, fullPage bool) error {
	return os.WriteFile(path, []byte("png"), 0o644)
}

func (p *fakePage) EvaluateScript(ctx context.Context, script string) (json.RawMessage, error) {
	return json.RawMessage(p.pageResult), nil
}

func (p *fakePage) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sleeps = append(p.sleeps, d)
	return nil
}

func (p *fakePage) DispatchMouseEvent(ctx context.Context, ev humanize.MouseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mouseEvents = append(p.mouseEvents, ev)
	return nil
}

func (p *fakePage) StartScreencast(ctx context.Context, dir string, fps int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	// Seed a couple of frames so assembly has something to encode.
	for i := 1; i <= 2; i++ {
		name := filepath.Join(dir, fmt.Sprintf("frame-%06d.jpg", i))
		if err := os.WriteFile(name, []byte("jpg"), 0o644); err != nil {
			return err
		}
		p.frames++
	}
	p.mu.Lock()
	p.screencastDirs = append(p.screencastDirs, dir)
	p.mu.Unlock()
	return nil
}

func (p *fakePage) StopScreencast() (int, error) { return p.frames, nil }

func (p *fakePage) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.onClose != nil {
		p.onClose()
	}
}

// fakeBrowser hands out one fakePage and tracks outstanding sessions.
type fakeBrowser struct {
	mu      sync.Mutex
	page    *fakePage
	pageErr error
	active  int
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	b.active++
	b.page.onClose = func() {
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	}
	return b.page, nil
}

func (b *fakeBrowser) ActiveSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *fakeBrowser) Close() {}

// fakeEncoder materializes outputs as empty files and records calls.
type fakeEncoder struct {
	mu            sync.Mutex
	framesCalls   []string
	concatInputs  []string
	muxCalls      int
	slideshowUsed bool
	framesErr     error
	concatErr     error
}

func (e *fakeEncoder) Probe(ctx context.Context) error { return nil }

func (e *fakeEncoder) FramesToVideo(ctx context.Context, frameDir string, fps int, out string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.framesErr != nil {
		return e.framesErr
	}
	e.framesCalls = append(e.framesCalls, frameDir)
	return os.WriteFile(out, []byte("mp4"), 0o644)
}

func (e *fakeEncoder) Concat(ctx context.Context, inputs []string, out string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.concatErr != nil {
		return e.concatErr
	}
	e.concatInputs = inputs
	return os.WriteFile(out, []byte("mp4"), 0o644)
}

func (e *fakeEncoder) Overlay(ctx context.Context, in, caption, out string) error { return nil }

func (e *fakeEncoder) MuxAudio(ctx context.Context, video, audio, out string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muxCalls++
	return os.WriteFile(out, []byte("mp4"), 0o644)
}

func (e *fakeEncoder) Slideshow(ctx context.Context, images []string, perImage time.Duration, out string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.slideshowUsed = true
	return os.WriteFile(out, []byte("mp4"), 0o644)
}

// livePageResult mimics a dashboard with a Live Map button and a search box.
const livePageResult = `{
	"buttons": [
		{"text": "Live Map", "testId": "live-map",
		 "box": {"x": 200, "y": 100, "width": 140, "height": 44},
		 "visible": true, "enabled": true, "selector": "#live-map"}
	],
	"inputs": [
		{"text": "", "ariaLabel": "Search",
		 "box": {"x": 500, "y": 20, "width": 220, "height": 32},
		 "visible": true, "enabled": true, "selector": "#search"}
	]
}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Recorder.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Recorder.CaptureDir = filepath.Join(t.TempDir(), "capture")
	cfg.Humanize.Seed = 12345
	return cfg
}

func newTestRunner(t *testing.T, cfg *config.Config, b Browser, enc Encoder) *Runner {
	t.Helper()
	speech, err := tts.NewProvider(config.TTSConfig{Provider: "none"}, zap.NewNop())
	require.NoError(t, err)
	r, err := NewRunner(cfg, zap.NewNop(), b, enc, speech, rand.New(rand.NewSource(12345)))
	require.NoError(t, err)
	return r
}

func liveMapScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name: "dispatch-demo",
		URL:  "https://demo.example.com",
		Beats: []scenario.Beat{
			{
				Name: "Open the live map",
				Steps: []scenario.Step{
					{Describe: "click the Live Map button"},
				},
			},
		},
	}
}

func TestRunLiveMapEndToEnd(t *testing.T) {
	page := newFakePage(livePageResult)
	browser := &fakeBrowser{page: page}
	enc := &fakeEncoder{}
	cfg := testConfig(t)
	r := newTestRunner(t, cfg, browser, enc)

	rep, err := r.Run(context.Background(), liveMapScenario())
	require.NoError(t, err)
	require.NotNil(t, rep)

	assert.Equal(t, []string{"https://demo.example.com"}, page.navigated)
	require.Len(t, rep.Beats, 1)
	beat := rep.Beats[0]
	assert.Equal(t, report.BeatSucceeded, beat.Status)

	require.Len(t, beat.Actions, 1)
	act := beat.Actions[0]
	assert.Equal(t, synth.Click, act.Kind)
	assert.Equal(t, "#live-map", act.Selector)
	assert.Equal(t, 100, act.Validation.Score)
	assert.GreaterOrEqual(t, act.Confidence, 90)

	// The click was replayed against the matched selector, with cursor
	// travel broadcast first.
	assert.Equal(t, []string{"#live-map"}, page.clicks)
	assert.NotEmpty(t, page.mouseEvents)

	// The captured frames were assembled into a final video.
	require.NotEmpty(t, enc.framesCalls)
	assert.NotEmpty(t, rep.Output)
	assert.False(t, rep.Fallback)
	assert.FileExists(t, rep.Output)

	// The page handle was released.
	assert.True(t, page.closed)
	assert.Zero(t, browser.ActiveSessions())
}

func TestRunTypeStepSendsQuotedText(t *testing.T) {
	page := newFakePage(livePageResult)
	browser := &fakeBrowser{page: page}
	cfg := testConfig(t)
	r := newTestRunner(t, cfg, browser, &fakeEncoder{})

	sc := liveMapScenario()
	sc.Beats = []scenario.Beat{{
		Name: "Search",
		Steps: []scenario.Step{
			{Describe: `Type "emergency" into the Search field`},
		},
	}}

	rep, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, rep.Beats, 1)
	assert.Equal(t, report.BeatSucceeded, rep.Beats[0].Status)
	assert.Equal(t, "emergency", page.typed["#search"])
}

// A failed beat is recorded and the run proceeds to the next one.
func TestRunBeatFailureIsolation(t *testing.T) {
	page := newFakePage(livePageResult)
	page.failSelector = "#live-map"
	browser := &fakeBrowser{page: page}
	cfg := testConfig(t)
	r := newTestRunner(t, cfg, browser, &fakeEncoder{})

	sc := liveMapScenario()
	sc.Beats = []scenario.Beat{
		{Name: "one", Steps: []scenario.Step{{Action: "keypress", Key: "Tab"}}},
		{Name: "two", Steps: []scenario.Step{{Describe: "click the Live Map button"}}},
		{Name: "three", Steps: []scenario.Step{{Action: "keypress", Key: "Enter"}}},
	}

	rep, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, rep.Beats, 3)

	assert.Equal(t, report.BeatSucceeded, rep.Beats[0].Status)
	assert.Equal(t, report.BeatFailed, rep.Beats[1].Status)
	assert.Contains(t, rep.Beats[1].Error, "detached")
	// The third beat still ran.
	assert.Equal(t, report.BeatSucceeded, rep.Beats[2].Status)
	assert.Equal(t, []string{"Tab", "Enter"}, page.pressed)

	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 2, rep.Succeeded)
	assert.Zero(t, browser.ActiveSessions())
}

// Initial navigation failure marks every beat failed but still returns a
// report and releases the page.
func TestRunNavigationFailure(t *testing.T) {
	page := newFakePage(livePageResult)
	page.navigateErr = errors.New("dns lookup failed")
	browser := &fakeBrowser{page: page}
	cfg := testConfig(t)
	r := newTestRunner(t, cfg, browser, &fakeEncoder{})

	sc := liveMapScenario()
	sc.Beats = append(sc.Beats, scenario.Beat{Name: "second"})

	rep, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, rep.Beats, 2)
	for _, beat := range rep.Beats {
		assert.Equal(t, report.BeatFailed, beat.Status)
		assert.Contains(t, beat.Error, "navigation failed")
	}
	assert.True(t, page.closed)
	assert.Zero(t, browser.ActiveSessions())
}

func TestRunPageAcquisitionFailure(t *testing.T) {
	browser := &fakeBrowser{page: newFakePage(livePageResult), pageErr: errors.New("browser gone")}
	cfg := testConfig(t)
	r := newTestRunner(t, cfg, browser, &fakeEncoder{})

	_, err := r.Run(context.Background(), liveMapScenario())
	require.Error(t, err)
	assert.Zero(t, browser.ActiveSessions())
}

// When segment encoding fails the runner degrades to the slideshow built from
// the per-beat stills.
func TestRunSlideshowFallback(t *testing.T) {
	page := newFakePage(livePageResult)
	browser := &fakeBrowser{page: page}
	enc := &fakeEncoder{framesErr: errors.New("encoder exploded")}
	cfg := testConfig(t)
	cfg.Encoder.SlideshowFallback = true
	r := newTestRunner(t, cfg, browser, enc)

	rep, err := r.Run(context.Background(), liveMapScenario())
	require.NoError(t, err)

	assert.True(t, enc.slideshowUsed)
	assert.True(t, rep.Fallback)
	assert.NotEmpty(t, rep.Output)
}

func TestRunNoFallbackWhenDisabled(t *testing.T) {
	page := newFakePage(livePageResult)
	browser := &fakeBrowser{page: page}
	enc := &fakeEncoder{framesErr: errors.New("encoder exploded")}
	cfg := testConfig(t)
	cfg.Encoder.SlideshowFallback = false
	r := newTestRunner(t, cfg, browser, enc)

	rep, err := r.Run(context.Background(), liveMapScenario())
	require.NoError(t, err)
	assert.False(t, enc.slideshowUsed)
	assert.Empty(t, rep.Output)
}

func TestNewRunnerRejectsNilDependencies(t *testing.T) {
	cfg := testConfig(t)
	speech, err := tts.NewProvider(config.TTSConfig{}, zap.NewNop())
	require.NoError(t, err)

	_, err = NewRunner(nil, zap.NewNop(), &fakeBrowser{}, &fakeEncoder{}, speech, nil)
	assert.Error(t, err)

	_, err = NewRunner(cfg, zap.NewNop(), nil, &fakeEncoder{}, speech, nil)
	assert.Error(t, err)
}

func TestLiteralAction(t *testing.T) {
	testCases := []struct {
		name     string
		step     scenario.Step
		expected synth.Kind
		text     string
	}{
		{
			name:     "click_with_selector",
			step:     scenario.Step{Action: "click", Selector: "#btn"},
			expected: synth.Click,
		},
		{
			name:     "keypress_carries_key",
			step:     scenario.Step{Action: "keypress", Key: "Escape"},
			expected: synth.KeyPress,
			text:     "Escape",
		},
		{
			name:     "wait_is_wait",
			step:     scenario.Step{Action: "wait", Wait: 2 * time.Second},
			expected: synth.Wait,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			act := literalAction(tc.step)
			assert.Equal(t, tc.expected, act.Kind)
			assert.Equal(t, tc.text, act.Text)
			assert.Equal(t, 100, act.Confidence)
		})
	}
}
