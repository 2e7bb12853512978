// internal/browser/session.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/humanize"
)

// Session is one browser tab. It implements discovery.Evaluator and
// humanize.Dispatcher so the matching and movement layers stay driver
// agnostic.
type Session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	timeout time.Duration

	screencast *screencast

	mu      sync.Mutex
	closed  bool
	release func()
}

// Navigate loads a URL and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	runCtx, cancel := s.opContext(ctx)
	defer cancel()
	return chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	runCtx, cancel := s.opContext(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Click clicks the first element matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	runCtx, cancel := s.opContext(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery))
}

// Hover moves the browser's notion of the pointer onto the element.
func (s *Session) Hover(ctx context.Context, selector string) error {
	runCtx, cancel := s.opContext(ctx)
	defer cancel()
	// chromedp has no first-class hover; dispatch a mouseover via script.
	script := fmt.Sprintf(
		`document.querySelector(%q)?.dispatchEvent(new MouseEvent('mouseover', {bubbles: true}))`,
		selector)
	return chromedp.Run(runCtx, chromedp.Evaluate(script, nil))
}

// Type focuses the element and sends the text with per-key events.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	runCtx, cancel := s.opContext(ctx)
	defer cancel()
	return chromedp.Run(runCtx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// Press sends a key chord (e.g. "Enter") to the focused element.
func (s *Session) Press(ctx context.Context, key string) error {
	runCtx, cancel := s.opContext(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.KeyEvent(key))
}

// ScrollBy scrolls the viewport by the given deltas.
func (s *Session) ScrollBy(ctx context.Context, dx, dy float64) error {
	runCtx, cancel := s.opContext(ctx)
	defer cancel()
	script := fmt.Sprintf(`window.scrollBy(%f, %f)`, dx, dy)
	return chromedp.Run(runCtx, chromedp.Evaluate(script, nil))
}

// Screenshot captures the viewport (or full page) as PNG to path.
func (s *Session) Screenshot(ctx context.Context, path string, fullPage bool) error {
	runCtx, cancel := s.opContext(ctx)
	defer cancel()

	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 90)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := chromedp.Run(runCtx, action); err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("writing screenshot %s: %w", path, err)
	}
	return nil
}

// EvaluateScript runs an expression in the page and returns its JSON value.
// This is the discovery.Evaluator implementation.
func (s *Session) EvaluateScript(ctx context.Context, script string) (json.RawMessage, error) {
	runCtx, cancel := s.opContext(ctx)
	defer cancel()

	var raw json.RawMessage
	err := chromedp.Run(runCtx, chromedp.Evaluate(script, &raw,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true)
		}))
	if err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}
	return raw, nil
}

// Sleep pauses while respecting both the caller's and the tab's context.
// Part of the humanize.Dispatcher implementation.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// DispatchMouseEvent sends a raw mouse event to the tab.
func (s *Session) DispatchMouseEvent(ctx context.Context, ev humanize.MouseEvent) error {
	runCtx, cancel := s.opContext(ctx)
	defer cancel()

	p := input.DispatchMouseEvent(input.MouseType(ev.Type), ev.X, ev.Y)
	if ev.Button != "" && ev.Button != "none" {
		p = p.WithButton(input.MouseButton(ev.Button))
	}
	if ev.ClickCount > 0 {
		p = p.WithClickCount(int64(ev.ClickCount))
	}
	return chromedp.Run(runCtx, chromedp.ActionFunc(func(c context.Context) error {
		return p.Do(c)
	}))
}

// Close releases the tab. Idempotent; always decrements the manager's active
// count exactly once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if s.screencast != nil {
		if _, err := s.stopScreencastLocked(); err != nil {
			s.logger.Warn("Stopping screencast during close failed", zap.Error(err))
		}
	}
	s.cancel()
	if s.release != nil {
		s.release()
	}
}

// opContext derives a per-operation context: the tab's context bounded by the
// caller's cancellation and the configured timeout.
func (s *Session) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opCtx, cancelTimeout := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancelTimeout)
	return opCtx, func() {
		stop()
		cancelTimeout()
	}
}
