package livesync

import (
	"reflect"
	"testing"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
)

func TestMergeVertices(t *testing.T) {
	prev := []graph.Vertex{
		{ID: "a", Position: graph.Point{X: 10, Y: 10}},
		{ID: "b", Position: graph.Point{X: 10, Y: 200}},
		{ID: "gone", Position: graph.Point{X: 400, Y: 400}},
	}
	next := []graph.Vertex{
		{ID: "a"},
		{ID: "new", Position: graph.Point{X: 99, Y: 99}},
		{ID: "b"},
	}

	out, needs := MergeVertices(prev, next)

	want := []graph.Vertex{
		{ID: "a", Position: graph.Point{X: 10, Y: 10}},
		{ID: "new"},
		{ID: "b", Position: graph.Point{X: 10, Y: 200}},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("merged = %+v\nwant %+v", out, want)
	}
	if !reflect.DeepEqual(needs, []string{"new"}) {
		t.Errorf("needs layout = %v", needs)
	}
	if next[1].Position.X != 99 {
		t.Errorf("input mutated")
	}
}

func TestMergeVerticesIdempotent(t *testing.T) {
	prev := []graph.Vertex{{ID: "a", Position: graph.Point{X: 1, Y: 2}}}
	out, needs := MergeVertices(prev, []graph.Vertex{{ID: "a"}})
	if len(needs) != 0 || out[0].Position != prev[0].Position {
		t.Errorf("unchanged vertex set should keep every position: %+v %v", out, needs)
	}
}
