package layout

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
)

func sized(id string, w, h float64) graph.Vertex {
	return graph.Vertex{ID: id, Width: w, Height: h}
}

func edge(from, to string, primary bool) graph.Edge {
	return graph.Edge{ID: graph.EdgeID(from, to), Source: from, Target: to, Primary: primary}
}

func byID(vertices []graph.Vertex) map[string]graph.Vertex {
	m := make(map[string]graph.Vertex, len(vertices))
	for _, v := range vertices {
		m[v.ID] = v
	}
	return m
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestLayout_LinearChainTopToBottom(t *testing.T) {
	vertices := []graph.Vertex{sized("a", 100, 40), sized("b", 100, 40), sized("c", 100, 40)}
	edges := []graph.Edge{edge("a", "b", true), edge("b", "c", true)}

	out, err := Layout(vertices, edges, graph.TopToBottom, DefaultOptions())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	want := map[string]graph.Point{
		"a": {X: 10, Y: 10},
		"b": {X: 10, Y: 150},
		"c": {X: 10, Y: 290},
	}
	for _, v := range out {
		w := want[v.ID]
		if !approx(v.Position.X, w.X) || !approx(v.Position.Y, w.Y) {
			t.Errorf("%s: got %+v, want %+v", v.ID, v.Position, w)
		}
		if v.Direction != graph.TopToBottom {
			t.Errorf("%s: direction %s", v.ID, v.Direction)
		}
	}
}

func TestLayout_LinearChainLeftToRight(t *testing.T) {
	vertices := []graph.Vertex{sized("a", 100, 40), sized("b", 100, 40), sized("c", 100, 40)}
	edges := []graph.Edge{edge("a", "b", true), edge("b", "c", true)}

	out, err := Layout(vertices, edges, graph.LeftToRight, DefaultOptions())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	m := byID(out)
	if !approx(m["a"].Position.Y, m["b"].Position.Y) || !approx(m["b"].Position.Y, m["c"].Position.Y) {
		t.Errorf("chain should share one row: %+v", out)
	}
	if !(m["a"].Position.X < m["b"].Position.X && m["b"].Position.X < m["c"].Position.X) {
		t.Errorf("chain should advance along X: %+v", out)
	}
	if gap := m["b"].Position.X - (m["a"].Position.X + 100); !approx(gap, 100) {
		t.Errorf("rank gap = %v, want 100", gap)
	}
}

func TestLayout_Deterministic(t *testing.T) {
	vertices := []graph.Vertex{
		sized("r", 120, 60), sized("a", 80, 40), sized("b", 200, 90),
		sized("c", 90, 30), sized("d", 60, 60), sized("e", 150, 45),
	}
	edges := []graph.Edge{
		edge("r", "a", true), edge("r", "b", true), edge("a", "c", true),
		edge("b", "d", true), edge("b", "c", false), edge("r", "e", true), edge("e", "d", false),
	}

	first, err := Layout(vertices, edges, graph.TopToBottom, DefaultOptions())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Layout(vertices, edges, graph.TopToBottom, DefaultOptions())
		if err != nil {
			t.Fatalf("Layout failed: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced different positions", i)
		}
	}
}

func TestLayout_DoesNotMutateInput(t *testing.T) {
	vertices := []graph.Vertex{sized("a", 100, 40), sized("b", 100, 40)}
	edges := []graph.Edge{edge("a", "b", true)}
	before := append([]graph.Vertex(nil), vertices...)

	if _, err := Layout(vertices, edges, graph.LeftToRight, DefaultOptions()); err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if !reflect.DeepEqual(before, vertices) {
		t.Errorf("input vertices were modified")
	}
}

func TestLayout_PreservesInputOrder(t *testing.T) {
	vertices := []graph.Vertex{sized("c", 50, 50), sized("a", 50, 50), sized("b", 50, 50)}
	edges := []graph.Edge{edge("a", "b", true), edge("b", "c", true)}

	out, err := Layout(vertices, edges, graph.TopToBottom, DefaultOptions())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	for i := range vertices {
		if out[i].ID != vertices[i].ID {
			t.Errorf("position %d: got %s, want %s", i, out[i].ID, vertices[i].ID)
		}
	}
}

func TestLayout_MissingDimensions(t *testing.T) {
	vertices := []graph.Vertex{sized("a", 100, 40), {ID: "b"}, {ID: "c", Width: 10}}
	edges := []graph.Edge{edge("a", "b", true)}

	_, err := Layout(vertices, edges, graph.TopToBottom, DefaultOptions())
	if !errors.Is(err, ErrMissingDimensions) {
		t.Fatalf("expected ErrMissingDimensions, got %v", err)
	}
	var mde *MissingDimensionsError
	if !errors.As(err, &mde) {
		t.Fatalf("expected *MissingDimensionsError, got %T", err)
	}
	if !reflect.DeepEqual(mde.IDs, []string{"b", "c"}) {
		t.Errorf("missing ids = %v", mde.IDs)
	}
}

func TestLayout_FallbackToDefault(t *testing.T) {
	opts := DefaultOptions()
	opts.Policy = FallbackToDefault

	vertices := []graph.Vertex{{ID: "a"}, sized("b", 100, 40)}
	out, err := Layout(vertices, []graph.Edge{edge("a", "b", true)}, graph.TopToBottom, opts)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	m := byID(out)
	if m["a"].Width != graph.DefaultWidth || m["a"].Height != graph.DefaultHeight {
		t.Errorf("expected default size on a, got %vx%v", m["a"].Width, m["a"].Height)
	}
	// b is centred under a.
	if !approx(m["a"].Center().X, m["b"].Center().X) {
		t.Errorf("centres differ: %v vs %v", m["a"].Center(), m["b"].Center())
	}
}

func TestLayout_DirectionInvariance(t *testing.T) {
	vertices := []graph.Vertex{
		sized("r", 100, 50), sized("a", 100, 50), sized("b", 100, 50), sized("c", 100, 50),
	}
	edges := []graph.Edge{
		edge("r", "a", true), edge("r", "b", true), edge("a", "c", true), edge("b", "c", false),
	}

	tb, err := Layout(vertices, edges, graph.TopToBottom, DefaultOptions())
	if err != nil {
		t.Fatalf("TB failed: %v", err)
	}
	lr, err := Layout(vertices, edges, graph.LeftToRight, DefaultOptions())
	if err != nil {
		t.Fatalf("LR failed: %v", err)
	}

	tbm, lrm := byID(tb), byID(lr)
	for _, e := range edges {
		if tbm[e.Target].Center().Y <= tbm[e.Source].Center().Y {
			t.Errorf("TB: %s should be below %s", e.Target, e.Source)
		}
		if lrm[e.Target].Center().X <= lrm[e.Source].Center().X {
			t.Errorf("LR: %s should be right of %s", e.Target, e.Source)
		}
	}

	// Same relative order within the middle rank.
	if (tbm["a"].Center().X < tbm["b"].Center().X) != (lrm["a"].Center().Y < lrm["b"].Center().Y) {
		t.Errorf("sibling order differs between directions")
	}
}

func TestLayout_RankSeparationAndNoOverlap(t *testing.T) {
	vertices := []graph.Vertex{
		sized("r", 80, 30), sized("a", 120, 60), sized("b", 40, 20), sized("c", 200, 40),
	}
	edges := []graph.Edge{edge("r", "a", true), edge("r", "b", true), edge("r", "c", true)}

	out, err := Layout(vertices, edges, graph.TopToBottom, DefaultOptions())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	m := byID(out)

	children := []graph.Vertex{m["a"], m["b"], m["c"]}
	for i := 0; i < len(children); i++ {
		for j := i + 1; j < len(children); j++ {
			p, q := children[i], children[j]
			if p.Position.X > q.Position.X {
				p, q = q, p
			}
			if gap := q.Position.X - (p.Position.X + p.Width); gap < 50-1e-6 {
				t.Errorf("%s and %s are only %v apart", p.ID, q.ID, gap)
			}
		}
		// Children share a rank band centred 100px below the root band.
		if !approx(children[i].Center().Y, 30+100+30+10) {
			t.Errorf("%s centre Y = %v", children[i].ID, children[i].Center().Y)
		}
	}

	topLeft, _ := Bounds(out)
	if !approx(topLeft.X, 10) || !approx(topLeft.Y, 10) {
		t.Errorf("bounding box should start at the margins, got %+v", topLeft)
	}
}

func TestLayout_CyclesAndSelfLoops(t *testing.T) {
	vertices := []graph.Vertex{sized("a", 50, 50), sized("b", 50, 50), sized("c", 50, 50)}
	edges := []graph.Edge{
		edge("a", "b", true), edge("b", "c", true), edge("c", "a", false), edge("b", "b", false),
		edge("a", "ghost", true),
	}

	out, err := Layout(vertices, edges, graph.TopToBottom, DefaultOptions())
	if err != nil {
		t.Fatalf("cyclic input should still lay out: %v", err)
	}
	m := byID(out)
	if !(m["a"].Position.Y < m["b"].Position.Y && m["b"].Position.Y < m["c"].Position.Y) {
		t.Errorf("back edge should be reversed, keeping a→b→c ranks: %+v", out)
	}
}

func TestLayout_LongEdgeGetsVirtualVertices(t *testing.T) {
	vertices := []graph.Vertex{
		sized("a", 50, 50), sized("b", 50, 50), sized("c", 50, 50), sized("d", 50, 50),
	}
	// a→d spans three ranks next to the chain a→b→c→d.
	edges := []graph.Edge{
		edge("a", "b", true), edge("b", "c", true), edge("c", "d", true), edge("a", "d", false),
	}
	out, err := Layout(vertices, edges, graph.TopToBottom, DefaultOptions())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	m := byID(out)
	if !(m["c"].Position.Y < m["d"].Position.Y) {
		t.Errorf("d should be in the last rank")
	}
}

func TestLayout_EmptyAndInvalidOptions(t *testing.T) {
	out, err := Layout(nil, nil, graph.TopToBottom, DefaultOptions())
	if err != nil || len(out) != 0 {
		t.Errorf("empty input: got %v, %v", out, err)
	}

	opts := DefaultOptions()
	opts.RankSep = -1
	if _, err := Layout([]graph.Vertex{sized("a", 1, 1)}, nil, graph.TopToBottom, opts); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("expected ErrInvalidOptions, got %v", err)
	}

	dup := []graph.Vertex{sized("a", 1, 1), sized("a", 1, 1)}
	if _, err := Layout(dup, nil, graph.TopToBottom, DefaultOptions()); !errors.Is(err, ErrDuplicateVertex) {
		t.Errorf("expected ErrDuplicateVertex, got %v", err)
	}
}

func TestApplySizes(t *testing.T) {
	vertices := []graph.Vertex{{ID: "a"}, {ID: "b"}, sized("c", 5, 5)}
	provider := StaticSizes{"a": {Width: 10, Height: 20}}

	out, missing := ApplySizes(vertices, provider)
	if !reflect.DeepEqual(missing, []string{"b"}) {
		t.Errorf("missing = %v", missing)
	}
	if out[0].Width != 10 || out[0].Height != 20 {
		t.Errorf("a not sized: %+v", out[0])
	}
	if out[2].Width != 5 {
		t.Errorf("c should keep its size: %+v", out[2])
	}
	if vertices[0].Width != 0 {
		t.Errorf("input mutated")
	}
}

func TestIsotonic(t *testing.T) {
	tests := []struct {
		in, want []float64
	}{
		{[]float64{1, 2, 3}, []float64{1, 2, 3}},
		{[]float64{3, 1}, []float64{2, 2}},
		{[]float64{1, 5, 2, 2}, []float64{1, 3, 3, 3}},
		{nil, []float64{}},
	}
	for _, tt := range tests {
		got := isotonic(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("isotonic(%v) = %v", tt.in, got)
		}
		for i := range got {
			if !approx(got[i], tt.want[i]) {
				t.Errorf("isotonic(%v) = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}

func TestParseSizePolicy(t *testing.T) {
	if p, err := ParseSizePolicy("fallback"); err != nil || p != FallbackToDefault {
		t.Errorf("fallback: %v %v", p, err)
	}
	if p, err := ParseSizePolicy(""); err != nil || p != FailOnMissing {
		t.Errorf("empty: %v %v", p, err)
	}
	if _, err := ParseSizePolicy("maybe"); err == nil {
		t.Errorf("expected error")
	}
}
