package viewport

import (
	"math"
	"testing"
	"time"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
)

type centreCall struct {
	x, y, zoom float64
	d          time.Duration
}

type recordingAnimator struct {
	calls []centreCall
}

func (r *recordingAnimator) SetCenter(x, y, zoom float64, d time.Duration) {
	r.calls = append(r.calls, centreCall{x, y, zoom, d})
}

func box(id string, x, y float64) graph.Vertex {
	return graph.Vertex{ID: id, Width: 300, Height: 150, Position: graph.Point{X: x, Y: y}}
}

func TestSelect_OutOfViewportRecentres(t *testing.T) {
	anim := &recordingAnimator{}
	s := New(Size{Width: 800, Height: 600}, WithAnimator(anim))

	v := box("far", 2000, 2000)
	if !s.Select(v) {
		t.Fatalf("expected re-centre for a vertex outside the viewport")
	}
	if s.Selected() != "far" {
		t.Errorf("selected = %q", s.Selected())
	}
	if len(anim.calls) != 1 {
		t.Fatalf("expected one SetCenter call, got %d", len(anim.calls))
	}
	call := anim.calls[0]
	if call.x != 2150 || call.y != 2075 {
		t.Errorf("centre target = (%v, %v), want (2150, 2075)", call.x, call.y)
	}
	if call.zoom != 1 || call.d != DefaultDuration {
		t.Errorf("zoom/duration = %v/%v", call.zoom, call.d)
	}
}

func TestSelect_InsideViewportDoesNotMove(t *testing.T) {
	anim := &recordingAnimator{}
	s := New(Size{Width: 800, Height: 600}, WithAnimator(anim))

	if s.Select(box("near", 10, 10)) {
		t.Errorf("vertex fully inside should not re-centre")
	}
	if len(anim.calls) != 0 {
		t.Errorf("unexpected SetCenter calls: %+v", anim.calls)
	}
}

func TestIsOutside(t *testing.T) {
	s := New(Size{Width: 800, Height: 600})
	tests := []struct {
		name string
		v    graph.Vertex
		want bool
	}{
		{"inside", box("a", 0, 0), false},
		{"right edge clipped", box("b", 600, 0), true},
		{"bottom edge clipped", box("c", 0, 500), true},
		{"left of viewport", box("d", -1, 0), true},
		{"exactly fits", box("e", 500, 450), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsOutside(tt.v); got != tt.want {
				t.Errorf("IsOutside = %v, want %v", got, tt.want)
			}
		})
	}

	s.SetTransform(Transform{X: -100, Y: 0, Zoom: 0.5})
	// left = 600*0.5-100 = 200, right = 200+150 = 350
	if s.IsOutside(box("f", 600, 0)) {
		t.Errorf("transform not applied")
	}
}

func TestRecenterOnRoot(t *testing.T) {
	anim := &recordingAnimator{}
	s := New(Size{Width: 800, Height: 600}, WithAnimator(anim))

	vertices := []graph.Vertex{box("child", 0, 300), box("root", 100, 0)}
	edges := []graph.Edge{{ID: "root-child", Source: "root", Target: "child", Primary: true}}

	id, ok := s.RecenterOnRoot(vertices, edges)
	if !ok || id != "root" {
		t.Fatalf("RecenterOnRoot = %q, %v", id, ok)
	}
	if len(anim.calls) != 1 || anim.calls[0].x != 250 || anim.calls[0].y != 75 {
		t.Errorf("unexpected calls %+v", anim.calls)
	}

	cyclic := []graph.Edge{
		{Source: "root", Target: "child"},
		{Source: "child", Target: "root"},
	}
	if _, ok := s.RecenterOnRoot(vertices, cyclic); ok {
		t.Errorf("no root exists when every vertex has an incoming edge")
	}
}

func TestDeselectAllKeepsTransform(t *testing.T) {
	s := New(Size{Width: 800, Height: 600}, WithDuration(0))
	s.Select(box("far", 5000, 0))
	before := s.Transform()

	s.DeselectAll()
	if s.Selected() != "" {
		t.Errorf("selection not cleared")
	}
	if s.Transform() != before {
		t.Errorf("DeselectAll moved the view")
	}
}

func TestBuiltinTween(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	s := New(Size{Width: 800, Height: 600}, WithClock(func() time.Time { return now }))

	s.CenterOn(graph.Point{X: 1400, Y: 300})
	if !s.Animating() {
		t.Fatalf("expected animation to start")
	}

	if !s.Advance(start.Add(400 * time.Millisecond)) {
		t.Errorf("tween should still run at the midpoint")
	}
	mid := s.Transform()
	// Halfway through ease-in-out is exactly halfway.
	if math.Abs(mid.X-(-500)) > 1e-9 {
		t.Errorf("midpoint X = %v, want -500", mid.X)
	}

	if s.Advance(start.Add(time.Second)) {
		t.Errorf("tween should be finished")
	}
	final := s.Transform()
	if final.X != -1000 || final.Y != 0 || final.Zoom != 1 {
		t.Errorf("final transform = %+v", final)
	}
	if s.Animating() {
		t.Errorf("Animating after completion")
	}
}

func TestZoomByClampsAndKeepsCentre(t *testing.T) {
	s := New(Size{Width: 800, Height: 600})
	centre := s.ToWorld(graph.Point{X: 400, Y: 300})

	s.ZoomBy(10)
	if s.Transform().Zoom != MaxZoom {
		t.Errorf("zoom = %v, want clamp to %v", s.Transform().Zoom, MaxZoom)
	}
	after := s.ToWorld(graph.Point{X: 400, Y: 300})
	if math.Abs(after.X-centre.X) > 1e-9 || math.Abs(after.Y-centre.Y) > 1e-9 {
		t.Errorf("world centre moved from %+v to %+v", centre, after)
	}

	s.ZoomBy(0.001)
	if s.Transform().Zoom != MinZoom {
		t.Errorf("zoom = %v, want clamp to %v", s.Transform().Zoom, MinZoom)
	}
}

func TestFitViewShowsEverything(t *testing.T) {
	s := New(Size{Width: 800, Height: 600})
	vertices := []graph.Vertex{box("a", 0, 0), box("b", 1200, 900)}
	s.FitView(vertices, 0.1)
	for _, v := range vertices {
		if s.IsOutside(v) {
			t.Errorf("%s not visible after FitView: %+v", v.ID, s.Transform())
		}
	}
}

func TestReset(t *testing.T) {
	s := New(Size{Width: 800, Height: 600})
	s.Pan(50, 20)
	s.ZoomBy(1.5)
	s.Select(box("a", 0, 0))

	s.Reset()
	if s.Transform() != Identity || s.Selected() != "" || s.Animating() {
		t.Errorf("Reset left state behind: %+v %q", s.Transform(), s.Selected())
	}
}
