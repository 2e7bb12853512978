// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/config"
)

// Manager owns the browser process. Every Session derives from its allocator
// context, and Close tears the whole process down after waiting for active
// sessions to release. The acquire/release discipline here is the one piece
// of resource safety the pipeline depends on.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	active atomic.Int64
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewManager launches the browser process and verifies it responds.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger: logger.Named("browser"),
		cfg:    cfg,
	}

	opts := m.allocatorOptions()
	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)

	// Probe with a short-lived tab to confirm the process came up.
	probeCtx, cancelProbe := context.WithTimeout(m.allocatorCtx, 30*time.Second)
	probeCtx, cancelTab := chromedp.NewContext(probeCtx)
	defer cancelTab()
	defer cancelProbe()

	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched", zap.Bool("headless", cfg.Headless))
	return m, nil
}

// allocatorOptions assembles launch flags. The automation banner is stripped
// so recorded footage does not show the "controlled by automated software"
// infobar.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		// Overriding to false drops the --enable-automation default.
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Headless),
		chromedp.Flag("hide-scrollbars", false),
		chromedp.WindowSize(m.cfg.ViewportWidth, m.cfg.ViewportHeight),
	)
	if m.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.ExecPath))
	}
	return opts
}

// NewSession opens a fresh tab. The caller must Close it; the manager tracks
// it so Close can account for every outstanding handle.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	if m.allocatorCtx == nil || m.allocatorCtx.Err() != nil {
		return nil, fmt.Errorf("browser manager is closed")
	}

	tabCtx, cancelTab := chromedp.NewContext(m.allocatorCtx)

	// Materialize the tab now so a dead browser surfaces here, not on first use.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		return nil, fmt.Errorf("failed to open browser tab: %w", err)
	}

	m.active.Add(1)
	m.wg.Add(1)

	s := &Session{
		ctx:     tabCtx,
		cancel:  cancelTab,
		logger:  m.logger.Named("session"),
		timeout: m.cfg.NavigationTimeout,
		release: func() {
			m.active.Add(-1)
			m.wg.Done()
		},
	}
	return s, nil
}

// ActiveSessions reports the number of sessions not yet closed. A completed
// run, successful or not, must bring this back to zero.
func (m *Manager) ActiveSessions() int {
	return int(m.active.Load())
}

// Close waits briefly for sessions to release, then kills the browser
// process. Safe to call more than once and safe in a defer chain.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			m.logger.Warn("Closing browser with sessions still active",
				zap.Int64("active", m.active.Load()))
		}
		if m.allocatorCancel != nil {
			m.allocatorCancel()
		}
		m.logger.Info("Browser closed")
	})
}
