// Package engine ties the graph builder, layout, navigator and viewport
// together for one canvas view. It has no terminal dependency; the UI feeds
// it canvases and sizes and reads positions back.
package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/layout"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/livesync"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/navigator"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/viewport"
)

// ErrNoCanvas is returned by operations that need a loaded canvas
var ErrNoCanvas = errors.New("no canvas loaded")

// Options configures an Engine
type Options struct {
	Direction graph.Direction
	Layout    layout.Options
	Sizes     layout.SizeProvider
	Container viewport.Size
	Viewport  []viewport.Option
}

// DefaultOptions returns a top-to-bottom engine with the default layout
// spacing and an 800x600 container.
func DefaultOptions() Options {
	return Options{
		Direction: graph.TopToBottom,
		Layout:    layout.DefaultOptions(),
		Container: viewport.Size{Width: 800, Height: 600},
	}
}

// Engine holds the graph, positions and view state of the canvas on screen.
// It is not safe for concurrent use.
type Engine struct {
	opts Options
	dir  graph.Direction
	view *viewport.State

	canvas   *model.CanvasData
	vertices []graph.Vertex
	edges    []graph.Edge
	dangling []graph.DanglingRef

	pending    []string // ids waiting for size and position
	firstPlace bool     // next SizesReady is the first layout of this canvas
}

// New creates an idle engine
func New(opts Options) *Engine {
	if !opts.Direction.IsValid() {
		opts.Direction = graph.TopToBottom
	}
	return &Engine{
		opts: opts,
		dir:  opts.Direction,
		view: viewport.New(opts.Container, opts.Viewport...),
	}
}

// Load replaces the canvas. Selection and view are reset and every vertex
// waits for SizesReady.
func (e *Engine) Load(canvas *model.CanvasData) error {
	if canvas == nil {
		return ErrNoCanvas
	}
	res := graph.Build(canvas.Nodes, e.dir)
	e.report(canvas.CanvasID, res.Dangling)

	e.canvas = canvas
	e.vertices = res.Vertices
	e.edges = res.Edges
	e.dangling = res.Dangling
	e.pending = make([]string, len(res.Vertices))
	for i, v := range res.Vertices {
		e.pending[i] = v.ID
	}
	e.firstPlace = true
	e.view.Reset()

	logger.Debug("Loaded canvas", "canvas", canvas.CanvasID, "vertices", len(e.vertices), "edges", len(e.edges))
	return nil
}

// Apply refreshes the current canvas in place. Known vertices keep their
// positions and sizes; new ones wait for SizesReady. The selection survives
// unless its vertex is gone. A canvas with a different id is loaded fresh.
func (e *Engine) Apply(canvas *model.CanvasData) error {
	if canvas == nil {
		return ErrNoCanvas
	}
	if e.canvas == nil || e.canvas.CanvasID != canvas.CanvasID {
		return e.Load(canvas)
	}

	res := graph.Build(canvas.Nodes, e.dir)
	e.report(canvas.CanvasID, res.Dangling)

	sizes := make(map[string]graph.Size, len(e.vertices))
	for _, v := range e.vertices {
		sizes[v.ID] = v.Size()
	}
	merged, fresh := livesync.MergeVertices(e.vertices, res.Vertices)
	for i := range merged {
		if s, ok := sizes[merged[i].ID]; ok {
			merged[i].Width, merged[i].Height = s.Width, s.Height
		}
	}

	// Vertices still unplaced from an earlier refresh stay pending.
	index := graph.IndexByID(merged)
	pending := append([]string(nil), fresh...)
	for _, id := range e.pending {
		if _, ok := index[id]; ok && !slices.Contains(pending, id) {
			pending = append(pending, id)
		}
	}

	e.canvas = canvas
	e.vertices = merged
	e.edges = res.Edges
	e.dangling = res.Dangling
	e.pending = pending

	if sel := e.view.Selected(); sel != "" {
		if _, ok := e.vertex(sel); !ok {
			e.view.DeselectAll()
		}
	}

	logger.Debug("Applied canvas refresh", "canvas", canvas.CanvasID, "vertices", len(merged), "new", len(fresh))
	return nil
}

// NeedsSizes reports whether vertices are waiting for SizesReady
func (e *Engine) NeedsSizes() bool {
	return e.firstPlace || len(e.pending) > 0
}

// Pending returns the ids waiting for placement
func (e *Engine) Pending() []string {
	return append([]string(nil), e.pending...)
}

// SizesReady measures every vertex and places what is pending.
//
// The first call after Load replaces all positions and centres the view on
// the root. Later calls keep placed vertices where they are and put each new
// vertex at the offset the full layout gives it from its parent, applied to
// the parent's current position.
func (e *Engine) SizesReady() error {
	if e.canvas == nil {
		return ErrNoCanvas
	}
	if !e.NeedsSizes() {
		return nil
	}

	measured, missing := layout.ApplySizes(e.vertices, e.opts.Sizes)
	if len(missing) > 0 {
		logger.Debug("Vertices without measured size", "canvas", e.canvas.CanvasID, "count", len(missing))
	}
	full, err := layout.Layout(measured, e.edges, e.dir, e.opts.Layout)
	if err != nil {
		return fmt.Errorf("layout canvas %s: %w", e.canvas.CanvasID, err)
	}

	if e.firstPlace {
		e.vertices = full
		e.firstPlace = false
		e.pending = nil
		if root, ok := e.view.RecenterOnRoot(e.vertices, e.edges); ok {
			logger.Debug("Centred on root", "canvas", e.canvas.CanvasID, "root", root)
		}
		return nil
	}

	e.vertices = anchor(measured, full, e.edges, e.pending, e.dir, e.opts.Layout.NodeSep)
	e.pending = nil
	return nil
}

// anchor places the pending vertices of current relative to their parent.
// current and full share order. A pending vertex waits until its parent is
// placed; one whose parent never is (missing, or a cycle of pending
// vertices) takes its full layout position. Each placed vertex is then
// pushed along the cross axis until it clears every settled box by nodeSep.
func anchor(current, full []graph.Vertex, edges []graph.Edge, pending []string, dir graph.Direction, nodeSep float64) []graph.Vertex {
	out := make([]graph.Vertex, len(current))
	copy(out, current)

	waiting := make(map[string]bool, len(pending))
	for _, id := range pending {
		waiting[id] = true
	}
	settled := make([]bool, len(out))
	for i := range out {
		out[i].Direction = full[i].Direction
		out[i].Width, out[i].Height = full[i].Width, full[i].Height
		settled[i] = !waiting[out[i].ID]
	}
	parent := parents(edges)
	index := graph.IndexByID(out)

	place := func(i int, pos graph.Point) {
		out[i].Position = pos
		makeRoom(out, settled, i, dir, nodeSep)
		settled[i] = true
		delete(waiting, out[i].ID)
	}

	for progress := true; progress; {
		progress = false
		for i := range out {
			if settled[i] {
				continue
			}
			p, ok := index[parent[out[i].ID]]
			if ok && p != i && !settled[p] {
				continue
			}
			if !ok || p == i {
				place(i, full[i].Position)
			} else {
				place(i, graph.Point{
					X: out[p].Position.X + full[i].Position.X - full[p].Position.X,
					Y: out[p].Position.Y + full[i].Position.Y - full[p].Position.Y,
				})
			}
			progress = true
		}
	}
	for i := range out {
		if !settled[i] {
			place(i, full[i].Position)
		}
	}
	return out
}

// makeRoom shifts out[i] along the cross axis past any settled box it overlaps
// or comes closer than nodeSep to.
func makeRoom(out []graph.Vertex, settled []bool, i int, dir graph.Direction, nodeSep float64) {
	v := &out[i]
	for moved := true; moved; {
		moved = false
		for j := range out {
			if j == i || !settled[j] {
				continue
			}
			o := out[j]
			if dir.IsVertical() {
				if v.Position.Y >= o.Position.Y+o.Height || o.Position.Y >= v.Position.Y+v.Height {
					continue
				}
				if v.Position.X >= o.Position.X+o.Width+nodeSep || o.Position.X >= v.Position.X+v.Width+nodeSep {
					continue
				}
				v.Position.X = o.Position.X + o.Width + nodeSep
			} else {
				if v.Position.X >= o.Position.X+o.Width || o.Position.X >= v.Position.X+v.Width {
					continue
				}
				if v.Position.Y >= o.Position.Y+o.Height+nodeSep || o.Position.Y >= v.Position.Y+v.Height+nodeSep {
					continue
				}
				v.Position.Y = o.Position.Y + o.Height + nodeSep
			}
			moved = true
		}
	}
}

// parents maps each target to its primary source, or to its first source
// when no incoming edge is primary.
func parents(edges []graph.Edge) map[string]string {
	out := make(map[string]string)
	primary := make(map[string]bool)
	for _, e := range edges {
		if primary[e.Target] {
			continue
		}
		if _, seen := out[e.Target]; seen && !e.Primary {
			continue
		}
		out[e.Target] = e.Source
		primary[e.Target] = e.Primary
	}
	return out
}

// SetDirection switches the flow direction and lays everything out again
func (e *Engine) SetDirection(dir graph.Direction) error {
	if !dir.IsValid() {
		return fmt.Errorf("invalid direction %q", dir)
	}
	e.dir = dir
	if e.canvas == nil {
		return nil
	}
	e.vertices = graph.WithDirection(e.vertices, dir)
	return e.Relayout()
}

// Relayout replaces every position with a fresh layout and re-centres on
// the selection, or the root when nothing is selected.
func (e *Engine) Relayout() error {
	if e.canvas == nil {
		return ErrNoCanvas
	}
	measured, _ := layout.ApplySizes(e.vertices, e.opts.Sizes)
	full, err := layout.Layout(measured, e.edges, e.dir, e.opts.Layout)
	if err != nil {
		return fmt.Errorf("layout canvas %s: %w", e.canvas.CanvasID, err)
	}
	e.vertices = full
	e.pending = nil
	e.firstPlace = false

	if v, ok := e.vertex(e.view.Selected()); ok {
		e.view.CenterOn(v.Center())
	} else {
		e.view.RecenterOnRoot(e.vertices, e.edges)
	}
	return nil
}

// Navigate moves the selection one step in dir
func (e *Engine) Navigate(dir navigator.Direction) navigator.Outcome {
	out := navigator.Step(e.placed(), e.view.Selected(), dir)
	if out.Moved {
		if v, ok := e.vertex(out.Target); ok {
			e.view.Select(v)
		}
	}
	return out
}

// Select selects id, re-centring when it is off screen. Unknown ids are
// ignored.
func (e *Engine) Select(id string) bool {
	v, ok := e.vertex(id)
	if !ok {
		return false
	}
	e.view.Select(v)
	return true
}

// DeselectAll clears the selection
func (e *Engine) DeselectAll() {
	e.view.DeselectAll()
}

// CenterOnRoot re-centres the view on the first root
func (e *Engine) CenterOnRoot() (string, bool) {
	return e.view.RecenterOnRoot(e.vertices, e.edges)
}

// Resize updates the visible container size
func (e *Engine) Resize(size viewport.Size) {
	e.view.SetContainer(size)
}

// View exposes the viewport for panning, zooming and animation frames
func (e *Engine) View() *viewport.State { return e.view }

// Selected returns the selected vertex id or ""
func (e *Engine) Selected() string { return e.view.Selected() }

// Transform returns the current view transform
func (e *Engine) Transform() viewport.Transform { return e.view.Transform() }

// Direction returns the flow direction
func (e *Engine) Direction() graph.Direction { return e.dir }

// Canvas returns the canvas on screen
func (e *Engine) Canvas() *model.CanvasData { return e.canvas }

// Vertices returns a copy of the positioned vertices
func (e *Engine) Vertices() []graph.Vertex {
	return append([]graph.Vertex(nil), e.vertices...)
}

// Edges returns a copy of the edges
func (e *Engine) Edges() []graph.Edge {
	return append([]graph.Edge(nil), e.edges...)
}

// Dangling returns the references the last build skipped
func (e *Engine) Dangling() []graph.DanglingRef {
	return append([]graph.DanglingRef(nil), e.dangling...)
}

// Vertex looks up one vertex by id
func (e *Engine) Vertex(id string) (graph.Vertex, bool) {
	return e.vertex(id)
}

// placed returns the vertices that are not waiting for SizesReady
func (e *Engine) placed() []graph.Vertex {
	if len(e.pending) == 0 {
		return e.vertices
	}
	out := make([]graph.Vertex, 0, len(e.vertices))
	for _, v := range e.vertices {
		if !slices.Contains(e.pending, v.ID) {
			out = append(out, v)
		}
	}
	return out
}

func (e *Engine) vertex(id string) (graph.Vertex, bool) {
	if id == "" {
		return graph.Vertex{}, false
	}
	for _, v := range e.vertices {
		if v.ID == id {
			return v, true
		}
	}
	return graph.Vertex{}, false
}

func (e *Engine) report(canvasID string, dangling []graph.DanglingRef) {
	for _, d := range dangling {
		logger.Debug("Skipping dangling reference", "canvas", canvasID, "from", d.From, "to", d.To, "field", d.Field)
	}
}
