// internal/browser/screencast.go
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// screencast holds the state of one in-flight frame capture. The frames
// channel is never closed; shutdown is signalled through the sink context so
// a late frame from the event listener can never hit a closed channel.
type screencast struct {
	dir     string
	frames  chan []byte
	group   *errgroup.Group
	cancel  context.CancelFunc
	limiter *rate.Limiter
	count   int
}

// StartScreencast begins writing JPEG frames into dir as frame-000001.jpg,
// frame-000002.jpg, ... at no more than fps frames per second. The browser
// pushes frames as fast as it renders; the limiter drops the excess so the
// encoder sees a steady cadence.
func (s *Session) StartScreencast(ctx context.Context, dir string, fps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session is closed")
	}
	if s.screencast != nil {
		return fmt.Errorf("screencast already running")
	}
	if fps <= 0 {
		fps = 10
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating frame directory: %w", err)
	}

	sinkCtx, cancel := context.WithCancel(s.ctx)
	sc := &screencast{
		dir:     dir,
		frames:  make(chan []byte, 32),
		cancel:  cancel,
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
	}
	sc.group, _ = errgroup.WithContext(sinkCtx)

	// Frame sink: the only writer of capture files for this session. On
	// shutdown it drains whatever is already buffered before returning.
	sc.group.Go(func() error {
		write := func(data []byte) error {
			sc.count++
			name := filepath.Join(sc.dir, fmt.Sprintf("frame-%06d.jpg", sc.count))
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return fmt.Errorf("writing frame %s: %w", name, err)
			}
			return nil
		}
		for {
			select {
			case data := <-sc.frames:
				if err := write(data); err != nil {
					return err
				}
			case <-sinkCtx.Done():
				for {
					select {
					case data := <-sc.frames:
						if err := write(data); err != nil {
							return err
						}
					default:
						return nil
					}
				}
			}
		}
	})

	chromedp.ListenTarget(sinkCtx, func(ev interface{}) {
		frame, ok := ev.(*page.EventScreencastFrame)
		if !ok {
			return
		}
		// Every frame must be acked or the browser stops sending.
		go func() {
			_ = chromedp.Run(s.ctx, chromedp.ActionFunc(func(c context.Context) error {
				return page.ScreencastFrameAck(frame.SessionID).Do(c)
			}))
		}()

		if !sc.limiter.Allow() {
			return
		}
		data, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			s.logger.Warn("Dropping undecodable screencast frame", zap.Error(err))
			return
		}
		select {
		case sc.frames <- data:
		default:
			// Sink is behind; dropping a frame beats stalling the tab.
		}
	})

	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(c context.Context) error {
		return page.StartScreencast().
			WithFormat(page.ScreencastFormatJpeg).
			WithQuality(85).
			Do(c)
	}))
	if err != nil {
		cancel()
		_ = sc.group.Wait()
		return fmt.Errorf("starting screencast: %w", err)
	}

	s.screencast = sc
	s.logger.Debug("Screencast started", zap.String("dir", dir), zap.Int("fps", fps))
	return nil
}

// StopScreencast ends the capture and waits for buffered frames to hit disk.
// It returns the number of frames written.
func (s *Session) StopScreencast() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopScreencastLocked()
}

func (s *Session) stopScreencastLocked() (int, error) {
	sc := s.screencast
	if sc == nil {
		return 0, fmt.Errorf("no screencast running")
	}
	s.screencast = nil

	// Best effort: the tab may already be gone.
	if err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(c context.Context) error {
		return page.StopScreencast().Do(c)
	})); err != nil {
		s.logger.Debug("StopScreencast command failed", zap.Error(err))
	}

	sc.cancel()
	err := sc.group.Wait()
	s.logger.Debug("Screencast stopped", zap.Int("frames", sc.count))
	return sc.count, err
}
