// internal/orchestrator/interfaces.go
package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kestrelmotion/showreel-cli/internal/humanize"
)

// Page is the slice of a browser session the runner drives. The production
// implementation is internal/browser.Session; tests use a scripted fake.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Hover(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Press(ctx context.Context, key string) error
	ScrollBy(ctx context.Context, dx, dy float64) error
	Screenshot(ctx context.Context, path string, fullPage bool) error
	EvaluateScript(ctx context.Context, script string) (json.RawMessage, error)
	Sleep(ctx context.Context, d time.Duration) error
	DispatchMouseEvent(ctx context.Context, ev humanize.MouseEvent) error
	StartScreencast(ctx context.Context, dir string, fps int) error
	StopScreencast() (int, error)
	Close()
}

// Browser acquires pages and accounts for their release.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	ActiveSessions() int
	Close()
}

// Encoder is the external media assembler. internal/encoder.FFmpeg satisfies
// it directly.
type Encoder interface {
	Probe(ctx context.Context) error
	FramesToVideo(ctx context.Context, frameDir string, fps int, out string) error
	Concat(ctx context.Context, inputs []string, out string) error
	Overlay(ctx context.Context, in, caption, out string) error
	MuxAudio(ctx context.Context, video, audio, out string) error
	Slideshow(ctx context.Context, images []string, perImage time.Duration, out string) error
}
