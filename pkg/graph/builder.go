package graph

import (
	"sort"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// DanglingRef records a reference to a node that is not in the node set
type DanglingRef struct {
	From  string // node holding the reference
	To    string // missing node id
	Field string // "child_ids" or "parent_id"
}

// Result is the output of Build
type Result struct {
	Vertices []Vertex
	Edges    []Edge
	Dangling []DanglingRef
}

// Build converts a conversation node set into vertices and edges.
//
// Vertices come out in pre-order from the roots (roots sorted by id, children
// in child_ids order), followed by anything unreachable in id order. One edge
// is emitted per distinct (parent, child) pair listed in child_ids; it is
// primary when the child's own parent_id names the parent. References to
// unknown nodes are skipped and reported in Dangling. Positions are left zero.
func Build(nodes map[string]model.ConversationNode, dir Direction) Result {
	if !dir.IsValid() {
		dir = TopToBottom
	}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	order := make([]string, 0, len(ids))
	visited := make(map[string]bool, len(ids))

	var walk func(id string)
	walk = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		order = append(order, id)
		for _, child := range nodes[id].ChildIDs {
			if _, ok := nodes[child]; ok {
				walk(child)
			}
		}
	}

	for _, id := range ids {
		n := nodes[id]
		if !n.HasParent() {
			walk(id)
			continue
		}
		// Parent missing from the set: treat as a root for ordering.
		if _, ok := nodes[n.Parent()]; !ok {
			walk(id)
		}
	}
	for _, id := range ids {
		walk(id)
	}

	res := Result{
		Vertices: make([]Vertex, 0, len(order)),
	}
	for _, id := range order {
		n := nodes[id]
		res.Vertices = append(res.Vertices, Vertex{
			ID:          id,
			HasParent:   n.HasParent(),
			HasChildren: n.HasChildren(),
			Direction:   dir,
		})
		if n.HasParent() {
			if _, ok := nodes[n.Parent()]; !ok {
				res.Dangling = append(res.Dangling, DanglingRef{From: id, To: n.Parent(), Field: "parent_id"})
			}
		}
	}

	for _, id := range order {
		seen := make(map[string]bool)
		for _, childID := range nodes[id].ChildIDs {
			child, ok := nodes[childID]
			if !ok {
				res.Dangling = append(res.Dangling, DanglingRef{From: id, To: childID, Field: "child_ids"})
				continue
			}
			if seen[childID] {
				continue
			}
			seen[childID] = true
			res.Edges = append(res.Edges, Edge{
				ID:      EdgeID(id, childID),
				Source:  id,
				Target:  childID,
				Primary: child.Parent() == id,
			})
		}
	}

	return res
}

// WithDirection returns a copy of the vertices re-tagged with dir and with
// positions cleared, ready for a full re-layout.
func WithDirection(vertices []Vertex, dir Direction) []Vertex {
	out := make([]Vertex, len(vertices))
	for i, v := range vertices {
		v.Direction = dir
		v.Position = Point{}
		out[i] = v
	}
	return out
}
