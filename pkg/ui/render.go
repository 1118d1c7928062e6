package ui

import (
	"math"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/layout"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/viewport"
)

// scene is everything drawCanvas needs for one frame
type scene struct {
	vertices  []graph.Vertex
	edges     []graph.Edge
	dir       graph.Direction
	nodes     map[string]model.ConversationNode
	view      *viewport.State
	selected  string
	shakeID   string
	shakeStep int // horizontal jitter in cells for shakeID
}

// rect is a box on the grid, in cells
type rect struct {
	col, row, w, h int
}

// cellRect maps a vertex box from world pixels to grid cells
func cellRect(v graph.Vertex, view *viewport.State) rect {
	size := v.EffectiveSize()
	z := view.Transform().Zoom
	tl := view.ToScreen(v.Position)
	return rect{
		col: int(math.Floor(tl.X / CellWidth)),
		row: int(math.Floor(tl.Y / CellHeight)),
		w:   max(2, int(math.Round(size.Width*z/CellWidth))),
		h:   max(2, int(math.Round(size.Height*z/CellHeight))),
	}
}

func roleInk(role model.Role) ink {
	switch role {
	case model.RoleUser:
		return inkUser
	case model.RoleAssistant:
		return inkAssistant
	default:
		return inkSystem
	}
}

// drawCanvas draws edges, then boxes on top
func drawCanvas(g *grid, s scene) {
	rects := make(map[string]rect, len(s.vertices))
	for _, v := range s.vertices {
		r := cellRect(v, s.view)
		if v.ID == s.shakeID {
			r.col += s.shakeStep
		}
		rects[v.ID] = r
	}

	for _, e := range s.edges {
		src, ok1 := rects[e.Source]
		dst, ok2 := rects[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		drawEdge(g, src, dst, s.dir, !e.Primary)
	}

	for _, v := range s.vertices {
		drawNode(g, rects[v.ID], s.nodes[v.ID], v.ID == s.selected)
	}
}

// drawEdge routes an orthogonal connector from the source handle to the
// target handle with one bend segment halfway.
func drawEdge(g *grid, src, dst rect, dir graph.Direction, dashed bool) {
	k := inkEdge
	if dashed {
		k = inkMerge
	}
	if dir.IsVertical() {
		sx, sy := src.col+src.w/2, src.row+src.h
		tx, ty := dst.col+dst.w/2, dst.row-1
		if ty < sy {
			ty = sy
		}
		mid := sy + (ty-sy)/2
		g.vline(sx, sy, mid, dashed, k)
		g.hline(sx, tx, mid, dashed, k)
		g.vline(tx, mid, ty, dashed, k)
		if sx != tx {
			g.set(sx, mid, corner(sx < tx, true), k)
			g.set(tx, mid, corner(sx < tx, false), k)
		}
		g.set(tx, ty, '▼', k)
		return
	}

	sx, sy := src.col+src.w, src.row+src.h/2
	tx, ty := dst.col-1, dst.row+dst.h/2
	if tx < sx {
		tx = sx
	}
	mid := sx + (tx-sx)/2
	g.hline(sx, mid, sy, dashed, k)
	g.vline(mid, sy, ty, dashed, k)
	g.hline(mid, tx, ty, dashed, k)
	if sy != ty {
		g.set(mid, sy, hcorner(sy < ty, true), k)
		g.set(mid, ty, hcorner(sy < ty, false), k)
	}
	g.set(tx, ty, '▶', k)
}

// corner picks the bend of a vertical-flow connector
func corner(rightward, first bool) rune {
	switch {
	case rightward && first:
		return '╰'
	case rightward:
		return '╮'
	case first:
		return '╯'
	default:
		return '╭'
	}
}

// hcorner picks the bend of a horizontal-flow connector
func hcorner(downward, first bool) rune {
	switch {
	case downward && first:
		return '╮'
	case downward:
		return '╰'
	case first:
		return '╯'
	default:
		return '╭'
	}
}

func drawNode(g *grid, r rect, n model.ConversationNode, selected bool) {
	k := roleInk(n.Message.Role)
	if selected {
		k = inkSelected
	}
	g.box(r.col, r.row, r.w, r.h, selected, k)

	inner := r.w - 4
	if inner <= 0 {
		return
	}
	for i, line := range nodeLines(n) {
		row := r.row + 1 + i
		if row >= r.row+r.h-1 {
			break
		}
		lk := inkText
		if i == 0 {
			lk = roleInk(n.Message.Role)
		}
		g.text(r.col+2, row, line, inner, lk)
	}
}

// drawMinimap draws a scaled overview of all vertices with the visible
// area outlined, in the bottom-right corner of g.
func drawMinimap(g *grid, s scene) {
	if len(s.vertices) == 0 || g.w < MinimapWidth+2 || g.h < MinimapHeight+2 {
		return
	}
	col := g.w - MinimapWidth
	row := g.h - MinimapHeight
	g.box(col, row, MinimapWidth, MinimapHeight, false, inkFrame)

	innerW, innerH := float64(MinimapWidth-2), float64(MinimapHeight-2)
	topLeft, bottomRight := layout.Bounds(s.vertices)
	spanX := math.Max(bottomRight.X-topLeft.X, 1)
	spanY := math.Max(bottomRight.Y-topLeft.Y, 1)

	toMini := func(p graph.Point) (int, int) {
		x := (p.X - topLeft.X) / spanX * (innerW - 1)
		y := (p.Y - topLeft.Y) / spanY * (innerH - 1)
		return col + 1 + int(math.Round(x)), row + 1 + int(math.Round(y))
	}
	clamp := func(x, y int) (int, int) {
		x = min(max(x, col+1), col+MinimapWidth-2)
		y = min(max(y, row+1), row+MinimapHeight-2)
		return x, y
	}

	// visible area
	c := s.view.Container()
	x1, y1 := clamp(toMini(s.view.ToWorld(graph.Point{})))
	x2, y2 := clamp(toMini(s.view.ToWorld(graph.Point{X: c.Width, Y: c.Height})))
	for x := x1; x <= x2; x++ {
		g.set(x, y1, '·', inkViewport)
		g.set(x, y2, '·', inkViewport)
	}
	for y := y1; y <= y2; y++ {
		g.set(x1, y, '·', inkViewport)
		g.set(x2, y, '·', inkViewport)
	}

	for _, v := range s.vertices {
		x, y := clamp(toMini(v.Center()))
		if v.ID == s.selected {
			g.set(x, y, '■', inkSelected)
			continue
		}
		if g.at(x, y).r != '■' {
			g.set(x, y, '▪', roleInk(s.nodes[v.ID].Message.Role))
		}
	}
}
