// Package export writes positioned canvas graphs to files: SVG and PNG
// pictures for sharing, and JSON for other tools.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/muesli/reflow/truncate"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/layout"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// Snapshot formats
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

const (
	labelChars = 40
	charWidth  = 7.0 // basicfont.Face7x13 advance
	lineHeight = 13.0
	boxPadding = 8.0
	minWidth   = 120.0
	maxWidth   = 300.0
	boxHeight  = 2*lineHeight + 2*boxPadding
)

// GraphSnapshotOptions describes one export. Vertices and Edges are used as
// given when Vertices is non-empty; otherwise the canvas is built and laid
// out in Direction with sizes estimated from the labels.
type GraphSnapshotOptions struct {
	Path      string
	Format    string // svg, png or json; taken from Path's extension when empty
	Canvas    *model.CanvasData
	Vertices  []graph.Vertex
	Edges     []graph.Edge
	Direction graph.Direction
	Selected  string
	Title     string
}

// SaveGraphSnapshot renders the graph and writes it to opts.Path
func SaveGraphSnapshot(opts GraphSnapshotOptions) error {
	format, err := resolveFormat(opts)
	if err != nil {
		return err
	}
	if opts.Path == "" {
		return fmt.Errorf("snapshot path is required")
	}

	f, err := os.Create(opts.Path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := WriteGraphSnapshot(f, format, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteGraphSnapshot renders the graph in format to w
func WriteGraphSnapshot(w io.Writer, format string, opts GraphSnapshotOptions) error {
	snap, err := newSnapshot(opts)
	if err != nil {
		return err
	}
	switch format {
	case FormatSVG:
		return writeSVG(w, snap)
	case FormatPNG:
		return writePNG(w, snap)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	default:
		return fmt.Errorf("unsupported snapshot format %q", format)
	}
}

func resolveFormat(opts GraphSnapshotOptions) (string, error) {
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.Path)), ".")
	}
	switch format {
	case FormatSVG, FormatPNG, FormatJSON:
		return format, nil
	}
	return "", fmt.Errorf("unsupported snapshot format %q (want svg, png or json)", format)
}

// snapshot is the format-neutral picture, also the JSON schema
type snapshot struct {
	CanvasID  string         `json:"canvas_id"`
	Title     string         `json:"title"`
	Direction string         `json:"direction"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Nodes     []snapshotNode `json:"nodes"`
	Edges     []snapshotEdge `json:"edges"`
}

type snapshotNode struct {
	ID       string     `json:"id"`
	Role     model.Role `json:"role,omitempty"`
	Label    string     `json:"label"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
	Selected bool       `json:"selected,omitempty"`
}

type snapshotEdge struct {
	ID      string      `json:"id"`
	Source  string      `json:"source"`
	Target  string      `json:"target"`
	Primary bool        `json:"primary"`
	From    graph.Point `json:"from"`
	To      graph.Point `json:"to"`
}

func newSnapshot(opts GraphSnapshotOptions) (*snapshot, error) {
	vertices, edges := opts.Vertices, opts.Edges
	if len(vertices) == 0 {
		if opts.Canvas == nil {
			return nil, fmt.Errorf("nothing to export")
		}
		var err error
		vertices, edges, err = Positioned(opts.Canvas, opts.Direction)
		if err != nil {
			return nil, err
		}
	}

	snap := &snapshot{Title: opts.Title}
	if opts.Canvas != nil {
		snap.CanvasID = opts.Canvas.CanvasID
		if snap.Title == "" {
			snap.Title = opts.Canvas.DisplayTitle()
		}
	}

	dir := opts.Direction
	if !dir.IsValid() {
		dir = vertices[0].Direction
	}
	if !dir.IsValid() {
		dir = graph.TopToBottom
	}
	snap.Direction = dir.String()

	index := graph.IndexByID(vertices)
	for _, v := range vertices {
		size := v.EffectiveSize()
		node := snapshotNode{
			ID: v.ID, Label: v.ID,
			X: v.Position.X, Y: v.Position.Y,
			Width: size.Width, Height: size.Height,
			Selected: v.ID == opts.Selected,
		}
		if opts.Canvas != nil {
			if n, ok := opts.Canvas.Nodes[v.ID]; ok {
				node.Role = n.Message.Role
				node.Label = Label(n)
			}
		}
		snap.Nodes = append(snap.Nodes, node)
		snap.Width = max(snap.Width, node.X+node.Width)
		snap.Height = max(snap.Height, node.Y+node.Height)
	}

	srcSide, dstSide := dir.Handles()
	for _, e := range edges {
		s, ok1 := index[e.Source]
		t, ok2 := index[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		snap.Edges = append(snap.Edges, snapshotEdge{
			ID: e.ID, Source: e.Source, Target: e.Target, Primary: e.Primary,
			From: handle(vertices[s], srcSide),
			To:   handle(vertices[t], dstSide),
		})
	}

	// right and bottom margin to match the layout's top-left one
	snap.Width += layout.DefaultOptions().MarginX
	snap.Height += layout.DefaultOptions().MarginY
	return snap, nil
}

// handle is the midpoint of one side of v's box
func handle(v graph.Vertex, side graph.Side) graph.Point {
	size := v.EffectiveSize()
	p := v.Position
	switch side {
	case graph.SideTop:
		return graph.Point{X: p.X + size.Width/2, Y: p.Y}
	case graph.SideBottom:
		return graph.Point{X: p.X + size.Width/2, Y: p.Y + size.Height}
	case graph.SideLeft:
		return graph.Point{X: p.X, Y: p.Y + size.Height/2}
	default:
		return graph.Point{X: p.X + size.Width, Y: p.Y + size.Height/2}
	}
}

// Label is the one-line caption of a node: the first non-empty line of its
// text, truncated.
func Label(n model.ConversationNode) string {
	text := ""
	for _, line := range strings.Split(n.Message.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			text = line
			break
		}
	}
	if text == "" {
		text = n.ID
	}
	return truncate.StringWithTail(text, labelChars, "…")
}

// Positioned builds and lays out a canvas for export, sizing each box to
// its label.
func Positioned(canvas *model.CanvasData, dir graph.Direction) ([]graph.Vertex, []graph.Edge, error) {
	if !dir.IsValid() {
		dir = graph.TopToBottom
	}
	res := graph.Build(canvas.Nodes, dir)
	sizes := layout.SizeFunc(func(id string) (graph.Size, bool) {
		n, ok := canvas.Nodes[id]
		if !ok {
			return graph.Size{}, false
		}
		w := float64(len([]rune(Label(n))))*charWidth + 2*boxPadding
		return graph.Size{Width: min(max(w, minWidth), maxWidth), Height: boxHeight}, true
	})
	measured, _ := layout.ApplySizes(res.Vertices, sizes)
	positioned, err := layout.Layout(measured, res.Edges, dir, layout.DefaultOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("layout for export: %w", err)
	}
	return positioned, res.Edges, nil
}
