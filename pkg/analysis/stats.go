package analysis

import (
	"sort"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/loader"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// CanvasStats summarizes the shape of a canvas for the side panel and the
// list view
type CanvasStats struct {
	TotalNodes        int     `json:"total_nodes"`
	UserMessages      int     `json:"user_messages"`
	AssistantMessages int     `json:"assistant_messages"`
	SystemMessages    int     `json:"system_messages"`
	Roots             int     `json:"roots"`
	Branches          int     `json:"branches"`      // one per leaf
	BranchPoints      int     `json:"branch_points"` // nodes with more than one child
	MaxDepth          int     `json:"max_depth"`     // longest root-to-leaf thread, in nodes
	MergeEdges        int     `json:"merge_edges"`   // child links not backed by the child's parent_id
	DanglingRefs      int     `json:"dangling_refs"`
	AvgFanOut         float64 `json:"avg_fan_out"` // mean children per non-leaf
}

// ComputeStats walks the canvas once. A nil canvas yields zero stats.
func ComputeStats(canvas *model.CanvasData) CanvasStats {
	var s CanvasStats
	if canvas == nil {
		return s
	}

	s.TotalNodes = len(canvas.Nodes)
	parents, children := 0, 0
	for _, id := range canvas.SortedIDs() {
		node := canvas.Nodes[id]
		switch node.Message.Role {
		case model.RoleUser:
			s.UserMessages++
		case model.RoleAssistant:
			s.AssistantMessages++
		case model.RoleSystem:
			s.SystemMessages++
		}

		if !node.HasParent() {
			s.Roots++
		} else if _, ok := canvas.Nodes[node.Parent()]; !ok {
			s.DanglingRefs++
		}

		if len(node.ChildIDs) > 1 {
			s.BranchPoints++
		}
		if node.HasChildren() {
			parents++
		}
		for _, childID := range node.ChildIDs {
			child, ok := canvas.Nodes[childID]
			if !ok {
				s.DanglingRefs++
				continue
			}
			children++
			if child.Parent() != id {
				s.MergeEdges++
			}
		}
	}
	if parents > 0 {
		s.AvgFanOut = float64(children) / float64(parents)
	}

	leaves := loader.Leaves(canvas)
	s.Branches = len(leaves)
	for _, leaf := range leaves {
		if d := len(loader.Thread(canvas, leaf.ID)); d > s.MaxDepth {
			s.MaxDepth = d
		}
	}
	return s
}

// RoleCount is one row of a role breakdown
type RoleCount struct {
	Role  model.Role `json:"role"`
	Count int        `json:"count"`
}

// RoleBreakdown returns message counts per role, most frequent first.
// Ties are ordered by role name.
func RoleBreakdown(canvas *model.CanvasData) []RoleCount {
	if canvas == nil {
		return nil
	}
	counts := make(map[model.Role]int)
	for _, node := range canvas.Nodes {
		counts[node.Message.Role]++
	}
	rows := make([]RoleCount, 0, len(counts))
	for role, n := range counts {
		rows = append(rows, RoleCount{Role: role, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Role < rows[j].Role
	})
	return rows
}
