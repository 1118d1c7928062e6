package layout

import (
	"sort"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
)

// lnode is a vertex of the layered graph. Indices below the real vertex
// count map one-to-one onto input vertices; the rest are virtual vertices
// splitting long edges so every link joins adjacent ranks.
type lnode struct {
	rank    int
	cross   float64 // extent across the rank axis
	along   float64 // extent along the rank axis
	virtual bool
}

type layered struct {
	nodes  []lnode
	succ   [][]int
	pred   [][]int
	layers [][]int
	pos    []int // index of each node within its layer
	real   int
}

func newLayered(sizes []graph.Size, ranks []int, dag []link, dir graph.Direction) *layered {
	n := len(sizes)
	lg := &layered{real: n}

	maxRank := 0
	for i, s := range sizes {
		node := lnode{rank: ranks[i], cross: s.Width, along: s.Height}
		if !dir.IsVertical() {
			node.cross, node.along = s.Height, s.Width
		}
		lg.nodes = append(lg.nodes, node)
		if ranks[i] > maxRank {
			maxRank = ranks[i]
		}
	}
	lg.succ = make([][]int, n)
	lg.pred = make([][]int, n)

	connect := func(u, v int) {
		lg.succ[u] = append(lg.succ[u], v)
		lg.pred[v] = append(lg.pred[v], u)
	}
	for _, l := range dag {
		prev := l.from
		for r := ranks[l.from] + 1; r < ranks[l.to]; r++ {
			lg.nodes = append(lg.nodes, lnode{rank: r, virtual: true})
			lg.succ = append(lg.succ, nil)
			lg.pred = append(lg.pred, nil)
			w := len(lg.nodes) - 1
			connect(prev, w)
			prev = w
		}
		connect(prev, l.to)
	}

	lg.layers = make([][]int, maxRank+1)
	lg.pos = make([]int, len(lg.nodes))
	return lg
}

// initOrder fills layers by a depth-first walk from the real vertices in
// rank then input order, so subtrees start out contiguous.
func (lg *layered) initOrder() {
	starts := make([]int, lg.real)
	for i := range starts {
		starts[i] = i
	}
	sort.SliceStable(starts, func(a, b int) bool {
		return lg.nodes[starts[a]].rank < lg.nodes[starts[b]].rank
	})

	visited := make([]bool, len(lg.nodes))
	var visit func(u int)
	visit = func(u int) {
		if visited[u] {
			return
		}
		visited[u] = true
		r := lg.nodes[u].rank
		lg.pos[u] = len(lg.layers[r])
		lg.layers[r] = append(lg.layers[r], u)
		for _, s := range lg.succ[u] {
			visit(s)
		}
	}
	for _, u := range starts {
		visit(u)
	}
}

// reduceCrossings runs alternating barycenter sweeps and keeps the ordering
// with the fewest crossings seen. Ties keep the earlier ordering.
func (lg *layered) reduceCrossings(sweeps int) {
	best := lg.snapshot()
	bestCrossings := lg.crossings()

	for i := 0; i < sweeps && bestCrossings > 0; i++ {
		for r := 1; r < len(lg.layers); r++ {
			lg.reorder(r, lg.pred)
		}
		if c := lg.crossings(); c < bestCrossings {
			best, bestCrossings = lg.snapshot(), c
		}

		for r := len(lg.layers) - 2; r >= 0; r-- {
			lg.reorder(r, lg.succ)
		}
		if c := lg.crossings(); c < bestCrossings {
			best, bestCrossings = lg.snapshot(), c
		}
	}

	lg.restore(best)
}

// reorder sorts one layer by the mean position of each node's neighbours in
// the adjacent fixed layer. Nodes without neighbours hold their slot.
func (lg *layered) reorder(r int, neighbours [][]int) {
	layer := lg.layers[r]

	type keyed struct {
		node int
		bc   float64
	}
	var movable []keyed
	var slots []int
	for slot, u := range layer {
		ns := neighbours[u]
		if len(ns) == 0 {
			continue
		}
		sum := 0.0
		for _, v := range ns {
			sum += float64(lg.pos[v])
		}
		movable = append(movable, keyed{node: u, bc: sum / float64(len(ns))})
		slots = append(slots, slot)
	}

	sort.SliceStable(movable, func(a, b int) bool { return movable[a].bc < movable[b].bc })
	for i, slot := range slots {
		layer[slot] = movable[i].node
	}
	for i, u := range layer {
		lg.pos[u] = i
	}
}

// crossings counts pairwise edge crossings between all adjacent layers
func (lg *layered) crossings() int {
	total := 0
	type seg struct{ a, b int }
	for r := 0; r+1 < len(lg.layers); r++ {
		var segs []seg
		for _, u := range lg.layers[r] {
			for _, v := range lg.succ[u] {
				segs = append(segs, seg{lg.pos[u], lg.pos[v]})
			}
		}
		for i := 0; i < len(segs); i++ {
			for j := i + 1; j < len(segs); j++ {
				if (segs[i].a-segs[j].a)*(segs[i].b-segs[j].b) < 0 {
					total++
				}
			}
		}
	}
	return total
}

func (lg *layered) snapshot() [][]int {
	s := make([][]int, len(lg.layers))
	for r, layer := range lg.layers {
		s[r] = append([]int(nil), layer...)
	}
	return s
}

func (lg *layered) restore(s [][]int) {
	lg.layers = s
	for _, layer := range s {
		for i, u := range layer {
			lg.pos[u] = i
		}
	}
}

// gap returns the spacing a node contributes on each side of itself
func (lg *layered) gap(u int, opts Options) float64 {
	if lg.nodes[u].virtual {
		return opts.EdgeSep
	}
	return opts.NodeSep
}

// separation is the minimum centre distance between neighbours a and b
func (lg *layered) separation(a, b int, opts Options) float64 {
	return lg.nodes[a].cross/2 + lg.gap(a, opts)/2 + lg.nodes[b].cross/2 + lg.gap(b, opts)/2
}

// crossCoordinates places nodes along the axis perpendicular to the ranks.
// Each pass pulls nodes toward the mean coordinate of their neighbours in
// the previous (or next) rank while preserving order and separation.
func (lg *layered) crossCoordinates(opts Options) []float64 {
	x := make([]float64, len(lg.nodes))

	for r := range lg.layers {
		layer := lg.layers[r]
		if len(layer) == 0 {
			continue
		}
		cur := 0.0
		x[layer[0]] = 0
		for i := 1; i < len(layer); i++ {
			cur += lg.separation(layer[i-1], layer[i], opts)
			x[layer[i]] = cur
		}
		mid := cur / 2
		for _, u := range layer {
			x[u] -= mid
		}
	}

	passes := opts.Sweeps
	if passes < 1 {
		passes = 1
	}
	for p := 0; p < passes; p++ {
		for r := 1; r < len(lg.layers); r++ {
			lg.align(r, x, opts, lg.pred)
		}
		for r := len(lg.layers) - 2; r >= 0; r-- {
			lg.align(r, x, opts, lg.succ)
		}
	}
	for r := range lg.layers {
		lg.align(r, x, opts, lg.pred, lg.succ)
	}

	return x[:lg.real]
}

// align moves one layer to the closest coordinates, in the least squares
// sense, to its targets that keep order and separation.
func (lg *layered) align(r int, x []float64, opts Options, neighbourSets ...[][]int) {
	layer := lg.layers[r]
	if len(layer) == 0 {
		return
	}

	// Shift out the cumulative separation so the constraints become a
	// plain non-decreasing sequence, then pool adjacent violators.
	offset := make([]float64, len(layer))
	for i := 1; i < len(layer); i++ {
		offset[i] = offset[i-1] + lg.separation(layer[i-1], layer[i], opts)
	}

	targets := make([]float64, len(layer))
	for i, u := range layer {
		sum, count := 0.0, 0
		for _, set := range neighbourSets {
			for _, v := range set[u] {
				sum += x[v]
				count++
			}
		}
		t := x[u]
		if count > 0 {
			t = sum / float64(count)
		}
		targets[i] = t - offset[i]
	}

	fitted := isotonic(targets)
	for i, u := range layer {
		x[u] = fitted[i] + offset[i]
	}
}

// isotonic returns the non-decreasing sequence closest to values in the
// least squares sense (pool adjacent violators, equal weights).
func isotonic(values []float64) []float64 {
	type block struct {
		sum   float64
		count int
	}
	blocks := make([]block, 0, len(values))
	for _, v := range values {
		blocks = append(blocks, block{sum: v, count: 1})
		for len(blocks) > 1 {
			a, b := blocks[len(blocks)-2], blocks[len(blocks)-1]
			if a.sum*float64(b.count) <= b.sum*float64(a.count) {
				break
			}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, block{sum: a.sum + b.sum, count: a.count + b.count})
		}
	}

	out := make([]float64, 0, len(values))
	for _, b := range blocks {
		mean := b.sum / float64(b.count)
		for i := 0; i < b.count; i++ {
			out = append(out, mean)
		}
	}
	return out
}

// rankCentres returns the centre of each rank band along the rank axis.
// A band is as thick as its largest vertex.
func (lg *layered) rankCentres(rankSep float64) []float64 {
	thickness := make([]float64, len(lg.layers))
	for _, node := range lg.nodes[:lg.real] {
		if node.along > thickness[node.rank] {
			thickness[node.rank] = node.along
		}
	}

	centres := make([]float64, len(lg.layers))
	edge := 0.0
	for r, t := range thickness {
		if r > 0 {
			edge += rankSep
		}
		centres[r] = edge + t/2
		edge += t
	}
	return centres
}
