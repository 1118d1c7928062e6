package engine

import (
	"errors"
	"testing"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/layout"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/navigator"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/viewport"
)

type nodeSpec struct {
	id       string
	parent   string
	children []string
}

func canvas(id string, nodes ...nodeSpec) *model.CanvasData {
	c := &model.CanvasData{CanvasID: id, Nodes: make(map[string]model.ConversationNode)}
	for _, n := range nodes {
		node := model.ConversationNode{ID: n.id, Message: model.NewTextMessage(model.RoleUser, n.id), ChildIDs: n.children}
		if n.parent != "" {
			p := n.parent
			node.ParentID = &p
		}
		c.Nodes[n.id] = node
	}
	return c
}

func chain() *model.CanvasData {
	return canvas("c1",
		nodeSpec{id: "a", children: []string{"b"}},
		nodeSpec{id: "b", parent: "a", children: []string{"c"}},
		nodeSpec{id: "c", parent: "b"},
	)
}

func newEngine() *Engine {
	opts := DefaultOptions()
	opts.Sizes = layout.SizeFunc(func(string) (graph.Size, bool) {
		return graph.Size{Width: 100, Height: 50}, true
	})
	opts.Viewport = []viewport.Option{viewport.WithDuration(0)}
	return New(opts)
}

func position(t *testing.T, e *Engine, id string) graph.Point {
	t.Helper()
	v, ok := e.Vertex(id)
	if !ok {
		t.Fatalf("vertex %s not found", id)
	}
	return v.Position
}

func TestLoadThenSizesReady(t *testing.T) {
	e := newEngine()
	if err := e.Load(chain()); err != nil {
		t.Fatal(err)
	}
	if !e.NeedsSizes() || len(e.Pending()) != 3 {
		t.Fatalf("expected all vertices pending, got %v", e.Pending())
	}
	if err := e.SizesReady(); err != nil {
		t.Fatalf("SizesReady: %v", err)
	}
	if e.NeedsSizes() {
		t.Errorf("nothing should be pending after SizesReady")
	}

	want := map[string]graph.Point{"a": {X: 10, Y: 10}, "b": {X: 10, Y: 160}, "c": {X: 10, Y: 310}}
	for id, p := range want {
		if got := position(t, e, id); got != p {
			t.Errorf("%s at %+v, want %+v", id, got, p)
		}
	}

	// Root a is 100x50 at (10,10): centre (60,35) in an 800x600 container.
	tr := e.Transform()
	if tr.X != 340 || tr.Y != 265 || tr.Zoom != 1 {
		t.Errorf("expected view centred on root, got %+v", tr)
	}
}

func TestApplyKeepsPlacedVertices(t *testing.T) {
	e := newEngine()
	e.Load(canvas("c1",
		nodeSpec{id: "a", children: []string{"b"}},
		nodeSpec{id: "b", parent: "a"},
	))
	if err := e.SizesReady(); err != nil {
		t.Fatal(err)
	}
	a, b := position(t, e, "a"), position(t, e, "b")
	e.Select("b")

	err := e.Apply(canvas("c1",
		nodeSpec{id: "a", children: []string{"b", "c"}},
		nodeSpec{id: "b", parent: "a"},
		nodeSpec{id: "c", parent: "a"},
	))
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Pending(); len(got) != 1 || got[0] != "c" {
		t.Fatalf("expected only c pending, got %v", got)
	}
	if err := e.SizesReady(); err != nil {
		t.Fatal(err)
	}

	if got := position(t, e, "a"); got != a {
		t.Errorf("a moved from %+v to %+v", a, got)
	}
	if got := position(t, e, "b"); got != b {
		t.Errorf("b moved from %+v to %+v", b, got)
	}
	c := position(t, e, "c")
	if c == b {
		t.Errorf("new vertex placed on top of its sibling")
	}
	if c.Y != b.Y {
		t.Errorf("new child should sit one rank below its parent, got y=%f want %f", c.Y, b.Y)
	}
	if e.Selected() != "b" {
		t.Errorf("selection should survive a refresh, got %q", e.Selected())
	}
}

func TestApplyTwiceBeforeSizesReady(t *testing.T) {
	e := newEngine()
	e.Load(canvas("c1", nodeSpec{id: "a"}))
	if err := e.SizesReady(); err != nil {
		t.Fatal(err)
	}

	e.Apply(canvas("c1",
		nodeSpec{id: "a", children: []string{"b"}},
		nodeSpec{id: "b", parent: "a"},
	))
	e.Apply(canvas("c1",
		nodeSpec{id: "a", children: []string{"b", "c"}},
		nodeSpec{id: "b", parent: "a"},
		nodeSpec{id: "c", parent: "a"},
	))
	if got := e.Pending(); len(got) != 2 {
		t.Fatalf("expected b and c pending, got %v", got)
	}
	if err := e.SizesReady(); err != nil {
		t.Fatal(err)
	}
	if got := position(t, e, "b"); got.IsZero() {
		t.Errorf("b was never placed")
	}
}

func overlapping(vertices []graph.Vertex) (string, string, bool) {
	for i, a := range vertices {
		for _, b := range vertices[i+1:] {
			if a.Position.X < b.Position.X+b.Width && b.Position.X < a.Position.X+a.Width &&
				a.Position.Y < b.Position.Y+b.Height && b.Position.Y < a.Position.Y+a.Height {
				return a.ID, b.ID, true
			}
		}
	}
	return "", "", false
}

func TestApplyNewSiblingClearsKeptSibling(t *testing.T) {
	e := newEngine()
	e.Load(canvas("c1",
		nodeSpec{id: "a", children: []string{"b"}},
		nodeSpec{id: "b", parent: "a"},
	))
	e.SizesReady()
	b := position(t, e, "b")

	e.Apply(canvas("c1",
		nodeSpec{id: "a", children: []string{"b", "c"}},
		nodeSpec{id: "b", parent: "a"},
		nodeSpec{id: "c", parent: "a"},
	))
	if err := e.SizesReady(); err != nil {
		t.Fatal(err)
	}

	if got := position(t, e, "b"); got != b {
		t.Errorf("b moved from %+v to %+v", b, got)
	}
	if x, y, ok := overlapping(e.Vertices()); ok {
		t.Fatalf("%s overlaps %s", x, y)
	}
	c := position(t, e, "c")
	if c.Y != b.Y {
		t.Errorf("c should share b's rank, got y=%f want %f", c.Y, b.Y)
	}
	if gap := c.X - (b.X + 100); gap < 50 {
		t.Errorf("c sits %f from b, want at least the node separation", gap)
	}
}

func TestApplyMergeChildWaitsForNewParent(t *testing.T) {
	e := newEngine()
	e.Load(canvas("c1",
		nodeSpec{id: "r", children: []string{"y"}},
		nodeSpec{id: "y", parent: "r"},
	))
	e.SizesReady()

	// m comes before its parent x in pre-order: r, y, m, x.
	e.Apply(canvas("c1",
		nodeSpec{id: "r", children: []string{"y", "x"}},
		nodeSpec{id: "y", parent: "r", children: []string{"m"}},
		nodeSpec{id: "x", parent: "r", children: []string{"m"}},
		nodeSpec{id: "m", parent: "x"},
	))
	if err := e.SizesReady(); err != nil {
		t.Fatal(err)
	}

	x, m := position(t, e, "x"), position(t, e, "m")
	if m.Y <= x.Y {
		t.Errorf("m at %+v should sit below its parent x at %+v", m, x)
	}
	if x.IsZero() || m.IsZero() {
		t.Errorf("new vertices left at the origin: x=%+v m=%+v", x, m)
	}
	if a, b, ok := overlapping(e.Vertices()); ok {
		t.Errorf("%s overlaps %s", a, b)
	}
}

func TestNavigateSkipsUnplacedVertices(t *testing.T) {
	e := newEngine()
	e.Load(canvas("c1",
		nodeSpec{id: "a", children: []string{"b"}},
		nodeSpec{id: "b", parent: "a"},
	))
	e.SizesReady()
	e.Select("b")

	e.Apply(canvas("c1",
		nodeSpec{id: "a", children: []string{"b", "c"}},
		nodeSpec{id: "b", parent: "a"},
		nodeSpec{id: "c", parent: "a"},
	))
	if out := e.Navigate(navigator.Up); out.Target != "a" {
		t.Errorf("expected a, got %+v", out)
	}
}

func TestApplyDropsVanishedSelection(t *testing.T) {
	e := newEngine()
	e.Load(chain())
	e.SizesReady()
	e.Select("c")

	e.Apply(canvas("c1",
		nodeSpec{id: "a", children: []string{"b"}},
		nodeSpec{id: "b", parent: "a"},
	))
	if e.Selected() != "" {
		t.Errorf("selection on a removed vertex should clear, got %q", e.Selected())
	}
	if e.NeedsSizes() {
		t.Errorf("a pure removal needs no placement")
	}
}

func TestApplyOtherCanvasLoadsFresh(t *testing.T) {
	e := newEngine()
	e.Load(chain())
	e.SizesReady()
	e.Select("a")

	other := chain()
	other.CanvasID = "c2"
	e.Apply(other)
	if e.Selected() != "" || len(e.Pending()) != 3 {
		t.Errorf("expected a fresh load, selected=%q pending=%v", e.Selected(), e.Pending())
	}
}

func TestNavigate(t *testing.T) {
	e := newEngine()
	e.Load(chain())
	e.SizesReady()

	steps := []struct {
		dir    navigator.Direction
		target string
		shake  bool
	}{
		{navigator.Down, "a", false},
		{navigator.Down, "b", false},
		{navigator.Down, "c", false},
		{navigator.Down, "c", true},
		{navigator.Left, "c", true},
		{navigator.Up, "b", false},
	}
	for i, s := range steps {
		out := e.Navigate(s.dir)
		if out.Target != s.target || out.Shake != s.shake {
			t.Errorf("step %d (%s): got %+v, want target=%s shake=%v", i, s.dir, out, s.target, s.shake)
		}
		if e.Selected() != s.target {
			t.Errorf("step %d: selected %q, want %q", i, e.Selected(), s.target)
		}
	}
}

func TestSetDirection(t *testing.T) {
	e := newEngine()
	e.Load(chain())
	e.SizesReady()

	if err := e.SetDirection(graph.LeftToRight); err != nil {
		t.Fatal(err)
	}
	want := map[string]graph.Point{"a": {X: 10, Y: 10}, "b": {X: 210, Y: 10}, "c": {X: 410, Y: 10}}
	for id, p := range want {
		if got := position(t, e, id); got != p {
			t.Errorf("%s at %+v, want %+v", id, got, p)
		}
	}
	for _, v := range e.Vertices() {
		if v.Direction != graph.LeftToRight {
			t.Errorf("%s still tagged %s", v.ID, v.Direction)
		}
	}
	if len(e.Edges()) != 2 {
		t.Errorf("direction change must not alter edges")
	}

	if err := e.SetDirection("diagonal"); err == nil {
		t.Errorf("expected error for invalid direction")
	}
}

func TestSizesReadyWithoutProvider(t *testing.T) {
	e := New(DefaultOptions())
	e.Load(chain())
	err := e.SizesReady()
	if !errors.Is(err, layout.ErrMissingDimensions) {
		t.Fatalf("expected ErrMissingDimensions, got %v", err)
	}

	opts := DefaultOptions()
	opts.Layout.Policy = layout.FallbackToDefault
	e = New(opts)
	e.Load(chain())
	if err := e.SizesReady(); err != nil {
		t.Fatalf("fallback policy should lay out unmeasured vertices: %v", err)
	}
	if v, _ := e.Vertex("a"); v.Width != 300 || v.Height != 150 {
		t.Errorf("expected default size, got %vx%v", v.Width, v.Height)
	}
}

func TestNoCanvas(t *testing.T) {
	e := newEngine()
	if err := e.SizesReady(); !errors.Is(err, ErrNoCanvas) {
		t.Errorf("SizesReady: %v", err)
	}
	if err := e.Relayout(); !errors.Is(err, ErrNoCanvas) {
		t.Errorf("Relayout: %v", err)
	}
	if err := e.Load(nil); !errors.Is(err, ErrNoCanvas) {
		t.Errorf("Load(nil): %v", err)
	}
	if out := e.Navigate(navigator.Down); out.Moved || out.Shake {
		t.Errorf("navigating an empty engine should do nothing, got %+v", out)
	}
}

func TestParentsPrefersPrimary(t *testing.T) {
	edges := []graph.Edge{
		{Source: "x", Target: "m"},
		{Source: "y", Target: "m", Primary: true},
		{Source: "z", Target: "m"},
		{Source: "x", Target: "n"},
	}
	p := parents(edges)
	if p["m"] != "y" || p["n"] != "x" {
		t.Errorf("unexpected parents %v", p)
	}
}
