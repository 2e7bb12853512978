// internal/humanize/mover.go
package humanize

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"
)

// MouseEventType aligns with standard DOM event type strings.
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
)

// MouseEvent is the driver-agnostic payload the Mover dispatches.
type MouseEvent struct {
	Type       MouseEventType
	X, Y       float64
	Button     string
	ClickCount int
}

// Dispatcher is the slice of the browser session the Mover needs. The
// production implementation lives in internal/browser; tests record events.
type Dispatcher interface {
	Sleep(ctx context.Context, d time.Duration) error
	DispatchMouseEvent(ctx context.Context, ev MouseEvent) error
}

// Fitts's-law coefficients (milliseconds). Movement time grows with the log of
// distance over target width; speed tags scale the result.
const (
	fittsA      = 120.0
	fittsB      = 160.0
	targetWidth = 30.0
)

// speedFactor converts a pattern's qualitative speed into a duration scale.
func speedFactor(s Speed, rng *rand.Rand) float64 {
	switch s {
	case SpeedSlow:
		return 1.5
	case SpeedFast:
		return 0.7
	case SpeedVariable:
		return 0.7 + rng.Float64()*0.8
	default:
		return 1.0
	}
}

// Mover replays cursor travel for a humanized action: a Bezier trajectory
// shaped by the pattern's curvature, eased timing, low-frequency Perlin drift
// and high-frequency Gaussian tremor, with the pattern's pause points and
// overshoot honoured along the way.
type Mover struct {
	rng    *rand.Rand
	logger *zap.Logger
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin

	pos Vec
}

// NewMover creates a Mover with its own noise generators. The rng seed also
// seeds the Perlin noise so a pinned seed yields a reproducible trajectory.
func NewMover(rng *rand.Rand, logger *zap.Logger) *Mover {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := rng.Int63()
	return &Mover{
		rng:    rng,
		logger: logger.Named("mover"),
		noiseX: perlin.NewPerlin(2, 2, 3, seed),
		noiseY: perlin.NewPerlin(2, 2, 3, seed+1),
	}
}

// Position returns the current cursor position.
func (m *Mover) Position() Vec { return m.pos }

// SetPosition teleports the cursor, used when a fresh page resets state.
func (m *Mover) SetPosition(p Vec) { m.pos = p }

// easeInOutCubic gives the acceleration/deceleration profile of real arm
// movement.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// fittsDuration models movement time for a given distance, scaled by the
// pattern's speed and randomized +/- 15%.
func (m *Mover) fittsDuration(distance float64, p Pattern) time.Duration {
	id := math.Log2(1.0 + distance/targetWidth)
	mt := (fittsA + fittsB*id) * speedFactor(p.Speed, m.rng)
	mt += mt * (m.rng.Float64()*0.3 - 0.15)
	return time.Duration(mt) * time.Millisecond
}

// bezierPath samples a cubic Bezier from start to end whose control points bow
// sideways by the pattern's curvature. Zigzag paths bow the two control points
// in opposite directions.
func (m *Mover) bezierPath(start, end Vec, p Pattern, steps int) []Vec {
	if steps < 2 {
		steps = 2
	}
	main := end.Sub(start)
	dist := main.Mag()
	if dist < 1.0 {
		return []Vec{end}
	}

	dir := main.Normalize()
	// Perpendicular to the travel direction.
	perp := Vec{X: -dir.Y, Y: dir.X}

	bow1 := dist * p.Curvature * (m.rng.Float64()*2 - 1)
	bow2 := dist * p.Curvature * (m.rng.Float64()*2 - 1)
	if p.Path == PathZigzag && bow1*bow2 > 0 {
		bow2 = -bow2
	}

	c1 := start.Add(dir.Mul(dist / 3.0)).Add(perp.Mul(bow1))
	c2 := start.Add(dir.Mul(dist * 2.0 / 3.0)).Add(perp.Mul(bow2))

	path := make([]Vec, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		omt := 1 - t
		path[i] = start.Mul(omt * omt * omt).
			Add(c1.Mul(3 * omt * omt * t)).
			Add(c2.Mul(3 * omt * t * t)).
			Add(end.Mul(t * t * t))
	}
	return path
}

// MoveTo walks the cursor to target, dispatching mouseMoved events along the
// trajectory. When the pattern carries an overshoot, the cursor first travels
// past the target and then corrects back.
func (m *Mover) MoveTo(ctx context.Context, d Dispatcher, target Vec, p Pattern) error {
	if p.Overshoot {
		over := target.Add(target.Sub(m.pos).Normalize().Mul(10 + m.rng.Float64()*20))
		if err := m.travel(ctx, d, over, p); err != nil {
			return err
		}
		// The correction is a short, careful approach.
		corr := Profile(Natural)
		corr.Curvature = 0.05
		return m.travel(ctx, d, target, corr)
	}
	return m.travel(ctx, d, target, p)
}

// travel performs one continuous trajectory segment.
func (m *Mover) travel(ctx context.Context, d Dispatcher, target Vec, p Pattern) error {
	dist := m.pos.Dist(target)
	duration := m.fittsDuration(dist, p)
	steps := int(duration.Seconds() * 100)
	if steps < 2 {
		steps = 2
	}

	path := m.bezierPath(m.pos, target, p, steps)
	start := time.Now()

	for i, point := range path {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		t := float64(i) / float64(len(path)-1)
		eased := easeInOutCubic(t)

		// Hold at any pause point we just crossed.
		for _, pp := range p.PausePoints {
			prev := float64(i-1) / float64(len(path)-1)
			if i > 0 && prev < pp && t >= pp {
				hold := time.Duration(80+m.rng.Intn(220)) * time.Millisecond
				if err := d.Sleep(ctx, hold); err != nil {
					return err
				}
			}
		}

		// Pace the step against the eased timeline.
		stepDeadline := start.Add(time.Duration(eased * float64(duration)))
		if wait := time.Until(stepDeadline); wait > 0 {
			if err := d.Sleep(ctx, wait); err != nil {
				return err
			}
		}

		elapsed := time.Since(start).Seconds()
		drift := Vec{
			X: m.noiseX.Noise1D(elapsed*0.8) * 2.0,
			Y: m.noiseY.Noise1D(elapsed*0.8) * 2.0,
		}
		tremor := Vec{
			X: m.rng.NormFloat64() * 0.4,
			Y: m.rng.NormFloat64() * 0.4,
		}
		final := point.Add(drift).Add(tremor)

		if err := d.DispatchMouseEvent(ctx, MouseEvent{Type: MouseMove, X: final.X, Y: final.Y, Button: "none"}); err != nil {
			if ctx.Err() == nil {
				m.logger.Warn("Mouse move dispatch failed", zap.Error(err))
			}
			return err
		}
		m.pos = final
	}

	// Land exactly on the target so a following press hits it.
	m.pos = target
	return nil
}

// Click presses and releases at the current position with a human hold time.
func (m *Mover) Click(ctx context.Context, d Dispatcher) error {
	press := MouseEvent{Type: MousePress, X: m.pos.X, Y: m.pos.Y, Button: "left", ClickCount: 1}
	if err := d.DispatchMouseEvent(ctx, press); err != nil {
		return err
	}
	hold := time.Duration(45+m.rng.Intn(80)) * time.Millisecond
	if err := d.Sleep(ctx, hold); err != nil {
		return err
	}
	release := press
	release.Type = MouseRelease
	return d.DispatchMouseEvent(ctx, release)
}
