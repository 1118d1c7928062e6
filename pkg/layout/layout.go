package layout

import (
	"fmt"
	"math"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
)

// Layout assigns a position to every vertex so that edges flow in dir.
//
// The result is a copy of vertices in the same order with Position and
// Direction set; sizes substituted under FallbackToDefault are written back.
// Edges naming unknown vertices and self loops are ignored. Identical inputs
// always produce identical positions.
func Layout(vertices []graph.Vertex, edges []graph.Edge, dir graph.Direction, opts Options) ([]graph.Vertex, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !dir.IsValid() {
		dir = graph.TopToBottom
	}

	out := make([]graph.Vertex, len(vertices))
	copy(out, vertices)
	if len(out) == 0 {
		return out, nil
	}

	sizes, err := resolveSizes(out, opts)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(out))
	for i, v := range out {
		if _, dup := index[v.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVertex, v.ID)
		}
		index[v.ID] = i
	}

	links := collectLinks(edges, index)
	dag := breakCycles(len(out), links)
	ranks, err := rankVertices(len(out), dag)
	if err != nil {
		return nil, err
	}

	lg := newLayered(sizes, ranks, dag, dir)
	lg.initOrder()
	lg.reduceCrossings(opts.Sweeps)
	cross := lg.crossCoordinates(opts)
	rankCentre := lg.rankCentres(opts.RankSep)

	centres := make([]graph.Point, len(out))
	minX, minY := math.Inf(1), math.Inf(1)
	for i := range out {
		c := cross[i]
		r := rankCentre[ranks[i]]
		if dir.IsVertical() {
			centres[i] = graph.Point{X: c, Y: r}
		} else {
			centres[i] = graph.Point{X: r, Y: c}
		}
		minX = math.Min(minX, centres[i].X-sizes[i].Width/2)
		minY = math.Min(minY, centres[i].Y-sizes[i].Height/2)
	}

	offX := opts.MarginX - minX
	offY := opts.MarginY - minY
	for i := range out {
		out[i].Width = sizes[i].Width
		out[i].Height = sizes[i].Height
		out[i].Direction = dir
		out[i].Position = graph.Point{
			X: centres[i].X - sizes[i].Width/2 + offX,
			Y: centres[i].Y - sizes[i].Height/2 + offY,
		}
	}
	return out, nil
}

// link is a directed edge between vertex indices
type link struct {
	from, to int
}

// collectLinks resolves edges to index pairs, dropping self loops, unknown
// endpoints and duplicates while keeping input order.
func collectLinks(edges []graph.Edge, index map[string]int) []link {
	seen := make(map[link]bool, len(edges))
	links := make([]link, 0, len(edges))
	for _, e := range edges {
		from, ok := index[e.Source]
		if !ok {
			continue
		}
		to, ok := index[e.Target]
		if !ok || from == to {
			continue
		}
		l := link{from, to}
		if seen[l] {
			continue
		}
		seen[l] = true
		links = append(links, l)
	}
	return links
}

// Bounds returns the top-left and bottom-right corners of the box that
// contains every vertex
func Bounds(vertices []graph.Vertex) (topLeft, bottomRight graph.Point) {
	if len(vertices) == 0 {
		return graph.Point{}, graph.Point{}
	}
	topLeft = graph.Point{X: math.Inf(1), Y: math.Inf(1)}
	bottomRight = graph.Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, v := range vertices {
		s := v.EffectiveSize()
		topLeft.X = math.Min(topLeft.X, v.Position.X)
		topLeft.Y = math.Min(topLeft.Y, v.Position.Y)
		bottomRight.X = math.Max(bottomRight.X, v.Position.X+s.Width)
		bottomRight.Y = math.Max(bottomRight.Y, v.Position.Y+s.Height)
	}
	return topLeft, bottomRight
}
