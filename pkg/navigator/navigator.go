// Package navigator picks the vertex to select when the user presses an
// arrow key.
package navigator

import (
	"math"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
)

// Direction is an arrow-key movement
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// String returns the key name
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// IsVertical returns true for up and down
func (d Direction) IsVertical() bool {
	return d == Up || d == Down
}

// DirectionFromKey maps arrow and vim keys to a direction
func DirectionFromKey(key string) (Direction, bool) {
	switch key {
	case "up", "k":
		return Up, true
	case "down", "j":
		return Down, true
	case "left", "h":
		return Left, true
	case "right", "l":
		return Right, true
	}
	return 0, false
}

// crossWeight discounts drift across the movement axis so that the nearest
// vertex along the axis wins and sideways distance only breaks near-ties.
const crossWeight = 0.1

// FindClosest returns the vertex nearest to fromID in direction dir. Only
// vertices whose centre lies strictly beyond the current centre on the
// movement axis are candidates. Equal distances keep the earliest vertex in
// input order. The second return is false when there is no candidate or
// fromID is unknown.
func FindClosest(vertices []graph.Vertex, fromID string, dir Direction) (string, bool) {
	var current graph.Point
	found := false
	for _, v := range vertices {
		if v.ID == fromID {
			current = v.Center()
			found = true
			break
		}
	}
	if !found {
		return "", false
	}

	best := ""
	bestDistance := math.Inf(1)
	for _, v := range vertices {
		if v.ID == fromID {
			continue
		}
		c := v.Center()
		if !beyond(current, c, dir) {
			continue
		}

		dx := math.Abs(c.X - current.X)
		dy := math.Abs(c.Y - current.Y)
		var distance float64
		if dir.IsVertical() {
			distance = dy + crossWeight*dx
		} else {
			distance = dx + crossWeight*dy
		}
		if distance < bestDistance {
			bestDistance = distance
			best = v.ID
		}
	}
	return best, best != ""
}

func beyond(from, to graph.Point, dir Direction) bool {
	switch dir {
	case Up:
		return to.Y < from.Y
	case Down:
		return to.Y > from.Y
	case Left:
		return to.X < from.X
	case Right:
		return to.X > from.X
	}
	return false
}

// Outcome is the result of one navigation key press
type Outcome struct {
	Target string // vertex to select, empty when nothing changes
	Moved  bool   // selection changed
	Shake  bool   // no candidate; give "can't move" feedback on the selection
}

// Step resolves a key press. With no (or an unknown) selection the first
// vertex is selected; with no candidate in dir the selection stays and the
// outcome asks for a shake.
func Step(vertices []graph.Vertex, selected string, dir Direction) Outcome {
	if len(vertices) == 0 {
		return Outcome{}
	}

	known := false
	for _, v := range vertices {
		if v.ID == selected {
			known = true
			break
		}
	}
	if selected == "" || !known {
		return Outcome{Target: vertices[0].ID, Moved: true}
	}

	if target, ok := FindClosest(vertices, selected, dir); ok {
		return Outcome{Target: target, Moved: true}
	}
	return Outcome{Target: selected, Shake: true}
}
