package livesync

import (
	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
)

// MergeVertices carries positions from the previous vertex set into a
// freshly built one. Ids seen before keep their position; new ids start at
// the origin and are returned as needing layout. Ids absent from next are
// dropped. Output order follows next.
func MergeVertices(prev, next []graph.Vertex) ([]graph.Vertex, []string) {
	known := make(map[string]graph.Point, len(prev))
	for _, v := range prev {
		known[v.ID] = v.Position
	}

	out := make([]graph.Vertex, len(next))
	var needsLayout []string
	for i, v := range next {
		if pos, ok := known[v.ID]; ok {
			v.Position = pos
		} else {
			v.Position = graph.Point{}
			needsLayout = append(needsLayout, v.ID)
		}
		out[i] = v
	}
	return out, needsLayout
}
