package graph

import (
	"testing"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

func node(id, parent string, children ...string) model.ConversationNode {
	n := model.ConversationNode{
		ID:       id,
		Message:  model.NewTextMessage(model.RoleUser, id),
		ChildIDs: children,
	}
	if parent != "" {
		p := parent
		n.ParentID = &p
	}
	return n
}

func nodeSet(nodes ...model.ConversationNode) map[string]model.ConversationNode {
	m := make(map[string]model.ConversationNode, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

func TestBuild_LinearChain(t *testing.T) {
	nodes := nodeSet(
		node("a", "", "b"),
		node("b", "a", "c"),
		node("c", "b"),
	)

	res := Build(nodes, TopToBottom)

	if len(res.Vertices) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(res.Vertices))
	}
	wantOrder := []string{"a", "b", "c"}
	for i, id := range wantOrder {
		if res.Vertices[i].ID != id {
			t.Errorf("vertex %d: expected %s, got %s", i, id, res.Vertices[i].ID)
		}
	}

	flags := map[string][2]bool{
		"a": {false, true},
		"b": {true, true},
		"c": {true, false},
	}
	for _, v := range res.Vertices {
		want := flags[v.ID]
		if v.HasParent != want[0] || v.HasChildren != want[1] {
			t.Errorf("%s: hasParent=%v hasChildren=%v, want %v", v.ID, v.HasParent, v.HasChildren, want)
		}
		if v.Direction != TopToBottom {
			t.Errorf("%s: direction %s", v.ID, v.Direction)
		}
		if !v.Position.IsZero() {
			t.Errorf("%s: builder must not position vertices", v.ID)
		}
	}

	if len(res.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(res.Edges))
	}
	if res.Edges[0].ID != "a-b" || res.Edges[1].ID != "b-c" {
		t.Errorf("unexpected edge ids: %s, %s", res.Edges[0].ID, res.Edges[1].ID)
	}
	for _, e := range res.Edges {
		if !e.Primary {
			t.Errorf("edge %s should be primary", e.ID)
		}
	}
}

func TestBuild_MergeEdge(t *testing.T) {
	// c's parent is a, but b also lists c as a child.
	nodes := nodeSet(
		node("r", "", "a", "b"),
		node("a", "r", "c"),
		node("b", "r", "c"),
		node("c", "a"),
	)

	res := Build(nodes, LeftToRight)

	if len(res.Edges) != 4 {
		t.Fatalf("expected 4 edges, got %d: %+v", len(res.Edges), res.Edges)
	}
	byID := map[string]Edge{}
	for _, e := range res.Edges {
		byID[e.ID] = e
	}
	if e, ok := byID["a-c"]; !ok || !e.Primary {
		t.Errorf("a-c should be the primary edge: %+v", e)
	}
	if e, ok := byID["b-c"]; !ok || e.Primary {
		t.Errorf("b-c should be a merge (non-primary) edge: %+v", e)
	}
	for _, v := range res.Vertices {
		if v.Direction != LeftToRight {
			t.Errorf("%s: expected LR, got %s", v.ID, v.Direction)
		}
	}
}

func TestBuild_DanglingReferences(t *testing.T) {
	nodes := nodeSet(
		node("a", "", "ghost", "b"),
		node("b", "a"),
		node("orphan", "missing"),
	)

	res := Build(nodes, TopToBottom)

	if len(res.Vertices) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(res.Vertices))
	}
	if len(res.Edges) != 1 || res.Edges[0].ID != "a-b" {
		t.Fatalf("expected only a-b edge, got %+v", res.Edges)
	}
	if len(res.Dangling) != 2 {
		t.Fatalf("expected 2 dangling refs, got %+v", res.Dangling)
	}

	idx := IndexByID(res.Vertices)
	if !res.Vertices[idx["orphan"]].HasParent {
		t.Errorf("orphan keeps hasParent even though its parent is missing")
	}
}

func TestBuild_DuplicateChildIDs(t *testing.T) {
	nodes := nodeSet(
		node("a", "", "b", "b"),
		node("b", "a"),
	)
	res := Build(nodes, TopToBottom)
	if len(res.Edges) != 1 {
		t.Errorf("duplicate child ids should produce one edge, got %d", len(res.Edges))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	nodes := nodeSet(
		node("z", "", "y", "x"),
		node("y", "z"),
		node("x", "z", "w"),
		node("w", "x"),
		node("m", ""),
	)
	first := Build(nodes, TopToBottom)
	for i := 0; i < 20; i++ {
		again := Build(nodes, TopToBottom)
		for j := range first.Vertices {
			if first.Vertices[j].ID != again.Vertices[j].ID {
				t.Fatalf("run %d: vertex order changed at %d", i, j)
			}
		}
		for j := range first.Edges {
			if first.Edges[j] != again.Edges[j] {
				t.Fatalf("run %d: edge order changed at %d", i, j)
			}
		}
	}
	// Roots sorted by id, children in child_ids order.
	want := []string{"m", "z", "y", "x", "w"}
	for i, id := range want {
		if first.Vertices[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, first.Vertices[i].ID)
		}
	}
}

func TestDirectionHandles(t *testing.T) {
	tests := []struct {
		dir            Direction
		source, target Side
	}{
		{TopToBottom, SideBottom, SideTop},
		{LeftToRight, SideRight, SideLeft},
	}
	for _, tt := range tests {
		src, tgt := tt.dir.Handles()
		if src != tt.source || tgt != tt.target {
			t.Errorf("%s: got %s/%s, want %s/%s", tt.dir, src, tgt, tt.source, tt.target)
		}
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"TB", TopToBottom, false},
		{"lr", LeftToRight, false},
		{"vertical", TopToBottom, false},
		{"horizontal", LeftToRight, false},
		{"", TopToBottom, false},
		{"diagonal", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDirection(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDirection(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestVertexCenterUsesDefaultSize(t *testing.T) {
	v := Vertex{ID: "a", Position: Point{X: 10, Y: 20}}
	c := v.Center()
	if c.X != 10+DefaultWidth/2 || c.Y != 20+DefaultHeight/2 {
		t.Errorf("unexpected center %+v", c)
	}

	v.Width, v.Height = 100, 40
	c = v.Center()
	if c.X != 60 || c.Y != 40 {
		t.Errorf("unexpected measured center %+v", c)
	}
}

func TestRoots(t *testing.T) {
	res := Build(nodeSet(node("a", "", "b"), node("b", "a"), node("c", "")), TopToBottom)
	roots := Roots(res.Vertices, res.Edges)
	if len(roots) != 2 || roots[0] != "a" || roots[1] != "c" {
		t.Errorf("unexpected roots %v", roots)
	}
}
