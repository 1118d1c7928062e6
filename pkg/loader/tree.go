package loader

import (
	"fmt"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// Thread returns the path from the root down to nodeID by following
// parent_id. It stops at a missing parent or a parent cycle.
func Thread(canvas *model.CanvasData, nodeID string) []model.ConversationNode {
	if canvas == nil {
		return nil
	}
	var reversed []model.ConversationNode
	seen := make(map[string]bool)
	for id := nodeID; id != "" && !seen[id]; {
		node, ok := canvas.Nodes[id]
		if !ok {
			break
		}
		seen[id] = true
		reversed = append(reversed, node)
		id = node.Parent()
	}

	thread := make([]model.ConversationNode, len(reversed))
	for i, n := range reversed {
		thread[len(reversed)-1-i] = n
	}
	return thread
}

// Leaves returns nodes without children in id order
func Leaves(canvas *model.CanvasData) []model.ConversationNode {
	if canvas == nil {
		return nil
	}
	var leaves []model.ConversationNode
	for _, id := range canvas.SortedIDs() {
		if n := canvas.Nodes[id]; !n.HasChildren() {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// Branches returns one root-to-leaf thread for every leaf below nodeID,
// in child_ids order.
func Branches(canvas *model.CanvasData, nodeID string) [][]model.ConversationNode {
	if canvas == nil {
		return nil
	}
	var branches [][]model.ConversationNode
	visited := make(map[string]bool)

	var walk func(id string)
	walk = func(id string) {
		node, ok := canvas.Nodes[id]
		if !ok || visited[id] {
			return
		}
		visited[id] = true
		if !node.HasChildren() {
			branches = append(branches, Thread(canvas, id))
			return
		}
		for _, child := range node.ChildIDs {
			walk(child)
		}
	}
	walk(nodeID)
	return branches
}

// HasSiblings reports whether the node's parent has more than one child
func HasSiblings(canvas *model.CanvasData, nodeID string) bool {
	if canvas == nil {
		return false
	}
	node, ok := canvas.Nodes[nodeID]
	if !ok || !node.HasParent() {
		return false
	}
	parent, ok := canvas.Nodes[node.Parent()]
	return ok && len(parent.ChildIDs) > 1
}

// Subtree contains a node and everything reachable below it
type Subtree struct {
	Root        *model.ConversationNode
	Descendants []*model.ConversationNode // breadth-first order
}

// LoadSubtree collects rootID and its descendants by walking child_ids
// breadth first. Unknown child ids are skipped.
func LoadSubtree(canvas *model.CanvasData, rootID string) (*Subtree, error) {
	if canvas == nil {
		return nil, fmt.Errorf("node not found: %s", rootID)
	}
	root, exists := canvas.Nodes[rootID]
	if !exists {
		return nil, fmt.Errorf("node not found: %s", rootID)
	}

	descendants := make([]*model.ConversationNode, 0)
	seen := map[string]bool{rootID: true}

	queue := []string{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, childID := range canvas.Nodes[current].ChildIDs {
			if seen[childID] {
				continue
			}
			seen[childID] = true
			if child, ok := canvas.Nodes[childID]; ok {
				c := child
				descendants = append(descendants, &c)
				queue = append(queue, childID)
			}
		}
	}

	return &Subtree{Root: &root, Descendants: descendants}, nil
}

// All returns root + all descendants as a flat slice
func (t *Subtree) All() []*model.ConversationNode {
	result := make([]*model.ConversationNode, 0, 1+len(t.Descendants))
	result = append(result, t.Root)
	result = append(result, t.Descendants...)
	return result
}

// TotalCount returns the number of nodes in the subtree
func (t *Subtree) TotalCount() int {
	return 1 + len(t.Descendants)
}
