// Package viewport tracks the pan/zoom transform of the canvas and the
// current selection.
package viewport

import (
	"math"
	"time"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/layout"
)

const (
	// DefaultDuration is how long a re-centre animation runs.
	DefaultDuration = 800 * time.Millisecond
	MinZoom         = 0.25
	MaxZoom         = 2.0
)

// Transform maps world coordinates to screen coordinates:
// screen = world*Zoom + (X, Y).
type Transform struct {
	X    float64
	Y    float64
	Zoom float64
}

// Identity is the unpanned, unzoomed transform
var Identity = Transform{Zoom: 1}

// Size is the visible container size in screen units
type Size struct {
	Width  float64
	Height float64
}

// Animator moves the view so that world point (x, y) is centred at zoom,
// over d.
type Animator interface {
	SetCenter(x, y, zoom float64, d time.Duration)
}

// Option configures a State
type Option func(*State)

// WithAnimator routes centring requests to a but still tracks selection.
func WithAnimator(a Animator) Option {
	return func(s *State) {
		s.animator = a
	}
}

// WithDuration sets the re-centre animation length. Zero jumps immediately.
func WithDuration(d time.Duration) Option {
	return func(s *State) {
		if d >= 0 {
			s.duration = d
		}
	}
}

// WithClock overrides time.Now for the built-in tween.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// State is the viewport and selection of one canvas view. It is not safe
// for concurrent use; the owning UI loop drives it.
type State struct {
	transform Transform
	container Size
	selected  string

	animator Animator
	duration time.Duration
	now      func() time.Time
	tween    *tween
}

// New creates a State for a container of the given size
func New(container Size, opts ...Option) *State {
	s := &State{
		transform: Identity,
		container: container,
		duration:  DefaultDuration,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transform returns the current transform
func (s *State) Transform() Transform {
	return s.transform
}

// SetTransform replaces the transform and stops any animation
func (s *State) SetTransform(t Transform) {
	t.Zoom = clampZoom(t.Zoom)
	s.transform = t
	s.tween = nil
}

// Container returns the visible size
func (s *State) Container() Size {
	return s.container
}

// SetContainer updates the visible size, e.g. on terminal resize
func (s *State) SetContainer(size Size) {
	s.container = size
}

// Selected returns the selected vertex id or ""
func (s *State) Selected() string {
	return s.selected
}

// Select marks v as the only selected vertex. When any part of v lies
// outside the visible area the view is re-centred on it; the return value
// reports whether that happened.
func (s *State) Select(v graph.Vertex) bool {
	s.selected = v.ID
	if !s.IsOutside(v) {
		return false
	}
	s.CenterOn(v.Center())
	return true
}

// DeselectAll clears the selection without moving the view
func (s *State) DeselectAll() {
	s.selected = ""
}

// RecenterOnRoot centres the view on the first vertex that has no incoming
// edge. It returns that vertex id, or false when every vertex has a parent.
func (s *State) RecenterOnRoot(vertices []graph.Vertex, edges []graph.Edge) (string, bool) {
	roots := graph.Roots(vertices, edges)
	if len(roots) == 0 {
		return "", false
	}
	for _, v := range vertices {
		if v.ID == roots[0] {
			s.CenterOn(v.Center())
			return v.ID, true
		}
	}
	return "", false
}

// CenterOn animates the view so that world point p is centred at the
// current zoom.
func (s *State) CenterOn(p graph.Point) {
	a := s.animator
	if a == nil {
		a = s
	}
	a.SetCenter(p.X, p.Y, s.transform.Zoom, s.duration)
}

// SetCenter implements Animator with the built-in tween
func (s *State) SetCenter(x, y, zoom float64, d time.Duration) {
	zoom = clampZoom(zoom)
	target := Transform{
		X:    s.container.Width/2 - x*zoom,
		Y:    s.container.Height/2 - y*zoom,
		Zoom: zoom,
	}
	if d <= 0 {
		s.transform = target
		s.tween = nil
		return
	}
	s.tween = &tween{from: s.transform, to: target, start: s.now(), duration: d}
}

// Animating reports whether a tween is in progress
func (s *State) Animating() bool {
	return s.tween != nil
}

// Advance moves an in-progress tween to time now and reports whether it is
// still running.
func (s *State) Advance(now time.Time) bool {
	if s.tween == nil {
		return false
	}
	t, done := s.tween.at(now)
	s.transform = t
	if done {
		s.tween = nil
	}
	return !done
}

// Pan shifts the view by a screen-space delta
func (s *State) Pan(dx, dy float64) {
	s.tween = nil
	s.transform.X += dx
	s.transform.Y += dy
}

// ZoomBy multiplies the zoom, keeping the world point at the container
// centre fixed. Zoom is clamped to [MinZoom, MaxZoom].
func (s *State) ZoomBy(factor float64) {
	if factor <= 0 {
		return
	}
	s.tween = nil
	cx, cy := s.container.Width/2, s.container.Height/2
	old := s.transform
	zoom := clampZoom(old.Zoom * factor)
	wx := (cx - old.X) / old.Zoom
	wy := (cy - old.Y) / old.Zoom
	s.transform = Transform{X: cx - wx*zoom, Y: cy - wy*zoom, Zoom: zoom}
}

// FitView zooms and pans so every vertex is visible with the given padding
// fraction around the bounding box.
func (s *State) FitView(vertices []graph.Vertex, padding float64) {
	if len(vertices) == 0 || s.container.Width <= 0 || s.container.Height <= 0 {
		return
	}
	topLeft, bottomRight := layout.Bounds(vertices)
	w := (bottomRight.X - topLeft.X) * (1 + 2*padding)
	h := (bottomRight.Y - topLeft.Y) * (1 + 2*padding)
	zoom := MaxZoom
	if w > 0 {
		zoom = math.Min(zoom, s.container.Width/w)
	}
	if h > 0 {
		zoom = math.Min(zoom, s.container.Height/h)
	}
	zoom = clampZoom(zoom)
	centre := graph.Point{X: (topLeft.X + bottomRight.X) / 2, Y: (topLeft.Y + bottomRight.Y) / 2}
	s.transform = Transform{
		X:    s.container.Width/2 - centre.X*zoom,
		Y:    s.container.Height/2 - centre.Y*zoom,
		Zoom: zoom,
	}
	s.tween = nil
}

// Reset returns to the identity transform with nothing selected. Called
// when switching canvases.
func (s *State) Reset() {
	s.transform = Identity
	s.selected = ""
	s.tween = nil
}

// IsOutside reports whether any edge of v's screen box leaves the container
func (s *State) IsOutside(v graph.Vertex) bool {
	size := v.EffectiveSize()
	z := s.transform.Zoom
	left := v.Position.X*z + s.transform.X
	top := v.Position.Y*z + s.transform.Y
	right := left + size.Width*z
	bottom := top + size.Height*z
	return left < 0 || top < 0 || right > s.container.Width || bottom > s.container.Height
}

// ToScreen maps a world point to screen coordinates
func (s *State) ToScreen(p graph.Point) graph.Point {
	t := s.transform
	return graph.Point{X: p.X*t.Zoom + t.X, Y: p.Y*t.Zoom + t.Y}
}

// ToWorld maps a screen point to world coordinates
func (s *State) ToWorld(p graph.Point) graph.Point {
	t := s.transform
	return graph.Point{X: (p.X - t.X) / t.Zoom, Y: (p.Y - t.Y) / t.Zoom}
}

func clampZoom(z float64) float64 {
	if z <= 0 || math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
