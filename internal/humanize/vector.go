// internal/humanize/vector.go
package humanize

import "math"

// Vec is a point or vector in viewport space.
type Vec struct {
	X, Y float64
}

// Add returns the vector sum of v and o.
func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns the vector difference of v and o.
func (v Vec) Sub(o Vec) Vec { return Vec{X: v.X - o.X, Y: v.Y - o.Y} }

// Mul returns v scaled by s.
func (v Vec) Mul(s float64) Vec { return Vec{X: v.X * s, Y: v.Y * s} }

// Mag returns the magnitude of v.
func (v Vec) Mag() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the Euclidean distance between v and o as points.
func (v Vec) Dist(o Vec) float64 { return math.Hypot(v.X-o.X, v.Y-o.Y) }

// Normalize returns a unit vector in the direction of v.
func (v Vec) Normalize() Vec {
	mag := v.Mag()
	if mag < 1e-9 {
		return Vec{}
	}
	return v.Mul(1.0 / mag)
}
