// internal/discovery/types.go
package discovery

import "fmt"

// Category is the closed set of structural buckets an element can belong to.
// Using a typed enum instead of raw strings keeps a typo from silently
// producing an empty bucket.
type Category int

const (
	Buttons Category = iota
	Links
	Inputs
	Navigation
	Interactive
	Content
	categoryCount // sentinel, must stay last
)

// Categories lists every category in declaration order.
func Categories() []Category {
	cats := make([]Category, 0, int(categoryCount))
	for c := Category(0); c < categoryCount; c++ {
		cats = append(cats, c)
	}
	return cats
}

// String returns the bucket name used in reports and logs.
func (c Category) String() string {
	switch c {
	case Buttons:
		return "buttons"
	case Links:
		return "links"
	case Inputs:
		return "inputs"
	case Navigation:
		return "navigation"
	case Interactive:
		return "interactive"
	case Content:
		return "content"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Box is a viewport-relative bounding box.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the geometric center of the box.
func (b Box) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Element is a snapshot of one DOM node at the moment of discovery. It is a
// pure value object: it carries no identity beyond its derived selector, and
// it is stale the moment the page mutates.
type Element struct {
	Category    Category `json:"-"`
	VisibleText string   `json:"text"`
	AriaLabel   string   `json:"ariaLabel,omitempty"`
	TestID      string   `json:"testId,omitempty"`
	Box         Box      `json:"box"`
	Visible     bool     `json:"visible"`
	Enabled     bool     `json:"enabled"`
	// Selector is a CSS-like selector usable to re-locate the node.
	Selector string `json:"selector"`
}

// Snapshot holds one discovery pass, bucketed by category. The per-category
// slices preserve in-page document order, which downstream code relies on for
// stable tie-breaking.
type Snapshot struct {
	buckets [categoryCount][]Element
}

// Add appends an element to its category bucket.
func (s *Snapshot) Add(el Element) {
	if el.Category < 0 || el.Category >= categoryCount {
		return
	}
	s.buckets[el.Category] = append(s.buckets[el.Category], el)
}

// ByCategory returns the elements discovered in one bucket. An empty bucket is
// a valid, non-exceptional result.
func (s *Snapshot) ByCategory(c Category) []Element {
	if c < 0 || c >= categoryCount {
		return nil
	}
	return s.buckets[c]
}

// All returns every discovered element, buckets concatenated in category
// order. The result preserves discovery order within each bucket.
func (s *Snapshot) All() []Element {
	var out []Element
	for _, bucket := range s.buckets {
		out = append(out, bucket...)
	}
	return out
}

// Len reports the total number of discovered elements.
func (s *Snapshot) Len() int {
	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}
