// Package graph derives the vertex/edge graph drawn for a canvas.
package graph

import (
	"fmt"
	"strings"
)

// Default vertex size used wherever a vertex has not been measured yet.
const (
	DefaultWidth  = 300.0
	DefaultHeight = 150.0
)

// Direction is the flow direction of the layered layout
type Direction string

const (
	TopToBottom Direction = "TB"
	LeftToRight Direction = "LR"
)

// IsValid returns true if the direction is a recognized value
func (d Direction) IsValid() bool {
	return d == TopToBottom || d == LeftToRight
}

// IsVertical returns true for top-to-bottom flow
func (d Direction) IsVertical() bool {
	return d != LeftToRight
}

// String returns a display name
func (d Direction) String() string {
	if d == LeftToRight {
		return "horizontal"
	}
	return "vertical"
}

// ParseDirection accepts TB/LR and their long names
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tb", "top-to-bottom", "vertical", "down", "":
		return TopToBottom, nil
	case "lr", "left-to-right", "horizontal", "right":
		return LeftToRight, nil
	}
	return "", fmt.Errorf("unknown layout direction %q", s)
}

// Side is the side of a vertex box where an edge handle attaches
type Side string

const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
	SideRight  Side = "right"
)

// Handles returns the source (outgoing) and target (incoming) handle sides
func (d Direction) Handles() (source, target Side) {
	if d == LeftToRight {
		return SideRight, SideLeft
	}
	return SideBottom, SideTop
}

// Point is a position in world coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsZero reports the {0,0} sentinel used for "needs layout"
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Size is a measured width and height
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Vertex is the drawn representation of one conversation node
type Vertex struct {
	ID          string    `json:"id"`
	HasParent   bool      `json:"has_parent"`
	HasChildren bool      `json:"has_children"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Position    Point     `json:"position"`
	Direction   Direction `json:"direction"`
}

// Size returns the measured size of the vertex
func (v Vertex) Size() Size {
	return Size{Width: v.Width, Height: v.Height}
}

// Measured reports whether the vertex carries a positive size
func (v Vertex) Measured() bool {
	return v.Size().Valid()
}

// EffectiveSize returns the measured size, substituting the default for
// any dimension that is not positive
func (v Vertex) EffectiveSize() Size {
	s := v.Size()
	if s.Width <= 0 {
		s.Width = DefaultWidth
	}
	if s.Height <= 0 {
		s.Height = DefaultHeight
	}
	return s
}

// Center returns the center of the vertex box
func (v Vertex) Center() Point {
	s := v.EffectiveSize()
	return Point{X: v.Position.X + s.Width/2, Y: v.Position.Y + s.Height/2}
}

// Edge connects a parent vertex to a child vertex
type Edge struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Primary bool   `json:"primary"`
}

// EdgeID formats the "<parent>-<child>" edge id
func EdgeID(source, target string) string {
	return source + "-" + target
}

// IndexByID maps vertex ids to slice positions
func IndexByID(vertices []Vertex) map[string]int {
	idx := make(map[string]int, len(vertices))
	for i, v := range vertices {
		idx[v.ID] = i
	}
	return idx
}

// Roots returns ids of vertices without incoming edges, in vertex order
func Roots(vertices []Vertex, edges []Edge) []string {
	incoming := make(map[string]bool, len(edges))
	for _, e := range edges {
		incoming[e.Target] = true
	}
	var roots []string
	for _, v := range vertices {
		if !incoming[v.ID] {
			roots = append(roots, v.ID)
		}
	}
	return roots
}
