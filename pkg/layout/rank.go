package layout

import (
	"fmt"
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// breakCycles makes the link set acyclic by reversing back edges found by a
// depth-first search that visits vertices and their links in input order.
func breakCycles(n int, links []link) []link {
	adj := make([][]int, n)
	for i, l := range links {
		adj[l.from] = append(adj[l.from], i)
	}

	const (
		unvisited = iota
		onStack
		done
	)
	state := make([]int, n)
	reversed := make([]bool, len(links))

	var visit func(u int)
	visit = func(u int) {
		state[u] = onStack
		for _, li := range adj[u] {
			v := links[li].to
			switch state[v] {
			case onStack:
				reversed[li] = true
			case unvisited:
				visit(v)
			}
		}
		state[u] = done
	}
	for u := 0; u < n; u++ {
		if state[u] == unvisited {
			visit(u)
		}
	}

	seen := make(map[link]bool, len(links))
	dag := make([]link, 0, len(links))
	for i, l := range links {
		if reversed[i] {
			l = link{from: l.to, to: l.from}
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		dag = append(dag, l)
	}
	return dag
}

// rankVertices assigns each vertex the length of the longest path reaching
// it from a source, walking a stable topological order.
func rankVertices(n int, dag []link) ([]int, error) {
	g := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, l := range dag {
		g.SetEdge(g.NewEdge(simple.Node(int64(l.from)), simple.Node(int64(l.to))))
	}

	sorted, err := topo.SortStabilized(g, func(nodes []gonum.Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	})
	if err != nil {
		return nil, fmt.Errorf("rank vertices: %w", err)
	}

	ranks := make([]int, n)
	for _, node := range sorted {
		u := node.ID()
		preds := g.To(u)
		for preds.Next() {
			p := preds.Node().ID()
			if ranks[p]+1 > ranks[u] {
				ranks[u] = ranks[p] + 1
			}
		}
	}
	return ranks, nil
}
